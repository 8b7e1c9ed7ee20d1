package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/pushnotify/internal/diff"
	"github.com/masmgr/pushnotify/internal/git"
	"github.com/masmgr/pushnotify/internal/output"
)

// DiffCmd returns the diff command, which prints the file change model of a
// raw diff read from a file, stdin, or a commit of the repository.
func DiffCmd() *cli.Command {
	flags := append(commonFlags(),
		&cli.StringFlag{
			Name:  "rev",
			Usage: "Parse the first-parent diff of this commit instead of a file",
		},
	)

	return &cli.Command{
		Name:      "diff",
		Aliases:   []string{"d"},
		Usage:     "Parse a raw git diff and print its file changes",
		ArgsUsage: "[FILE|-]",
		Flags:     flags,
		Action:    diffAction,
	}
}

func diffAction(c *cli.Context) error {
	cc, err := NewCommandContext(c)
	if err != nil {
		return err
	}

	var (
		raw    string
		source string
		rev    git.RevisionID
	)
	if r := c.String("rev"); r != "" {
		rev = git.RevisionID(r)
		o, err := cc.OpenOracle(c.Context)
		if err != nil {
			return err
		}
		if raw, err = o.RawDiff(c.Context, rev); err != nil {
			return err
		}
		source = rev.Short()
	} else {
		source = c.Args().First()
		if raw, err = readDiffInput(source); err != nil {
			return err
		}
		if source == "" {
			source = "stdin"
		}
	}

	parser := &diff.Parser{SkipMalformed: cc.Config.Diff.SkipMalformed, Logger: cc.Logger}
	result, err := parser.Parse(raw, rev)
	if err != nil {
		return err
	}
	return output.WriteFileChanges(&output.FileChangeReport{
		Source:  source,
		Files:   result.Files,
		Skipped: result.Skipped,
	}, OutputOptions(c))
}

func readDiffInput(path string) (string, error) {
	var in io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("failed to open diff: %w", err)
		}
		defer f.Close()
		in = f
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read diff: %w", err)
	}
	return string(data), nil
}
