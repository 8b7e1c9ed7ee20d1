package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/pushnotify/internal/classify"
	"github.com/masmgr/pushnotify/internal/git"
)

// HookCmd returns the hook command, run from a post-receive hook.
func HookCmd() *cli.Command {
	flags := append(commonFlags(),
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Read reference updates from this file instead of stdin",
		},
		&cli.IntFlag{
			Name:    "jobs",
			Aliases: []string{"j"},
			Usage:   "Reference changes processed in parallel",
		},
	)

	return &cli.Command{
		Name:      "hook",
		Aliases:   []string{"post-receive"},
		Usage:     "Process \"<old> <new> <ref>\" lines as a post-receive hook receives them",
		ArgsUsage: " ",
		Flags:     flags,
		Action:    hookAction,
	}
}

func hookAction(c *cli.Context) error {
	var in io.Reader = os.Stdin
	if path := c.String("input"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	changes, err := parseHookInput(in)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}

	cc, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	return cc.ProcessChanges(c, changes)
}

// parseHookInput reads post-receive input: one "<old> <new> <ref>" line per
// updated reference. Blank lines are ignored.
func parseHookInput(r io.Reader) ([]classify.ReferenceChange, error) {
	var changes []classify.ReferenceChange
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		change, err := parseChange(strings.Fields(line))
		if err != nil {
			return nil, fmt.Errorf("input line %d: %w", lineNo, err)
		}
		changes = append(changes, change)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return changes, nil
}

// parseChange builds a change from its three fields: old, new and ref name.
func parseChange(fields []string) (classify.ReferenceChange, error) {
	if len(fields) != 3 {
		return classify.ReferenceChange{}, fmt.Errorf("expected \"<old> <new> <ref>\", got %d field(s)", len(fields))
	}
	for _, rev := range fields[:2] {
		if !isHex(rev) {
			return classify.ReferenceChange{}, fmt.Errorf("%q is not a full hexadecimal revision", rev)
		}
	}
	return classify.ReferenceChange{
		Old:  git.RevisionID(strings.ToLower(fields[0])),
		New:  git.RevisionID(strings.ToLower(fields[1])),
		Name: fields[2],
	}, nil
}

func isHex(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
