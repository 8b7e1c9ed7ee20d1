package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/masmgr/pushnotify/internal/classify"
)

// ShowCmd returns the show command, which processes a single change given
// on the command line.
func ShowCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Aliases:   []string{"s"},
		Usage:     "Describe one reference change",
		ArgsUsage: "OLD NEW REF",
		Flags:     commonFlags(),
		Action:    showAction,
	}
}

func showAction(c *cli.Context) error {
	change, err := parseChange(c.Args().Slice())
	if err != nil {
		return err
	}
	cc, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	return cc.ProcessChanges(c, []classify.ReferenceChange{change})
}
