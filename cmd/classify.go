package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/pushnotify/internal/classify"
)

// ClassifyCmd returns the classify command.
func ClassifyCmd() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Print the change kind and reference kind of one reference change",
		ArgsUsage: "OLD NEW REF",
		Flags:     commonFlags(),
		Action:    classifyAction,
	}
}

func classifyAction(c *cli.Context) error {
	change, err := parseChange(c.Args().Slice())
	if err != nil {
		return err
	}
	cc, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	o, err := cc.OpenOracle(c.Context)
	if err != nil {
		return err
	}

	cls, err := classify.Classify(c.Context, o, change, cc.EngineOptions().Namespaces)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s\t%s\t%s", change.Name, cls.Change, cls.Reference)
	if cls.Suppressed() {
		fmt.Fprint(c.App.Writer, color.YellowString("\tsuppressed"))
	}
	fmt.Fprintln(c.App.Writer)
	return nil
}
