package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"golang.org/x/time/rate"
)

// CLIOptions configures the git CLI oracle.
type CLIOptions struct {
	RepoPath   string
	GitBinary  string  // Default: "git"
	QueryRate  float64 // Maximum git invocations per second; 0 disables throttling
	QueryBurst int
}

// CLIOracle answers oracle queries by running the git executable.
type CLIOracle struct {
	opts    CLIOptions
	limiter *rate.Limiter
}

// NewCLIOracle opens the repository at opts.RepoPath.
func NewCLIOracle(ctx context.Context, opts CLIOptions) (*CLIOracle, error) {
	if opts.GitBinary == "" {
		opts.GitBinary = "git"
	}
	o := &CLIOracle{opts: opts}
	if opts.QueryRate > 0 {
		burst := opts.QueryBurst
		if burst <= 0 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(opts.QueryRate), burst)
	}
	if _, err := o.run(ctx, nil, "rev-parse", "--git-dir"); err != nil {
		return nil, fmt.Errorf("open repository %s: %w", opts.RepoPath, errors.Join(ErrOracleUnavailable, err))
	}
	return o, nil
}

// RepoPath returns the repository path the oracle runs in.
func (o *CLIOracle) RepoPath() string {
	return o.opts.RepoPath
}

// gitExitError carries the exit status and stderr of a failed git invocation.
type gitExitError struct {
	command string
	code    int
	stderr  string
}

func (e *gitExitError) Error() string {
	if e.stderr == "" {
		return fmt.Sprintf("git %s failed with exit status %d", e.command, e.code)
	}
	return fmt.Sprintf("git %s failed with exit status %d: %s", e.command, e.code, e.stderr)
}

func (o *CLIOracle) run(ctx context.Context, stdin io.Reader, args ...string) (string, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	cmdArgs := append([]string{"-C", o.opts.RepoPath}, args...)
	cmd := exec.CommandContext(ctx, o.opts.GitBinary, cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), classifyGitFailure(&gitExitError{
				command: args[0],
				code:    exitErr.ExitCode(),
				stderr:  strings.TrimSpace(stderr.String()),
			})
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", errors.Join(ErrOracleUnavailable, err)
		}
		return "", err
	}
	return stdout.String(), nil
}

// classifyGitFailure maps git's diagnostics onto the oracle error sentinels.
func classifyGitFailure(e *gitExitError) error {
	msg := strings.ToLower(e.stderr)
	switch {
	case strings.Contains(msg, "not a valid object name"),
		strings.Contains(msg, "bad revision"),
		strings.Contains(msg, "unknown revision"),
		strings.Contains(msg, "bad object"),
		strings.Contains(msg, "not a valid commit name"):
		return errors.Join(ErrRevisionNotFound, e)
	case strings.Contains(msg, "not a git repository"):
		return errors.Join(ErrOracleUnavailable, e)
	default:
		return e
	}
}

// ObjectType runs `git cat-file -t`.
func (o *CLIOracle) ObjectType(ctx context.Context, rev RevisionID) (ObjectType, error) {
	out, err := o.run(ctx, nil, "cat-file", "-t", string(rev))
	if err != nil {
		return "", err
	}
	t, ok := ParseObjectType(out)
	if !ok {
		return "", fmt.Errorf("unexpected object type %q for %s", strings.TrimSpace(out), rev.Short())
	}
	return t, nil
}

// Parents runs `git rev-list --parents -n 1`.
func (o *CLIOracle) Parents(ctx context.Context, rev RevisionID) ([]RevisionID, error) {
	out, err := o.run(ctx, nil, "rev-list", "--parents", "-n", "1", string(rev), "--")
	if err != nil {
		return nil, err
	}
	return parseParentsLine(out, rev)
}

func parseParentsLine(out string, rev RevisionID) ([]RevisionID, error) {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRevisionNotFound, rev.Short())
	}
	parents := make([]RevisionID, 0, len(fields)-1)
	for _, f := range fields[1:] {
		parents = append(parents, RevisionID(f))
	}
	return parents, nil
}

// MergeBase runs `git merge-base`. Exit status 1 without output means the
// histories share no ancestor.
func (o *CLIOracle) MergeBase(ctx context.Context, a, b RevisionID) (RevisionID, error) {
	out, err := o.run(ctx, nil, "merge-base", string(a), string(b))
	if err != nil {
		var exitErr *gitExitError
		if errors.As(err, &exitErr) && exitErr.code == 1 && strings.TrimSpace(out) == "" {
			return ZeroRevision, nil
		}
		return "", err
	}
	base := strings.TrimSpace(out)
	if base == "" {
		return ZeroRevision, nil
	}
	return RevisionID(base), nil
}

// AncestryDifference runs `git rev-list --topo-order --reverse`, feeding the
// revisions on stdin so large exclusion sets do not hit argument limits.
func (o *CLIOracle) AncestryDifference(ctx context.Context, exclude []RevisionID, include RevisionID) ([]RevisionID, error) {
	if include.IsZero() {
		return nil, nil
	}
	var stdin strings.Builder
	stdin.WriteString(string(include))
	stdin.WriteByte('\n')
	for _, rev := range exclude {
		if rev.IsZero() {
			continue
		}
		stdin.WriteString("^")
		stdin.WriteString(string(rev))
		stdin.WriteByte('\n')
	}

	out, err := o.run(ctx, strings.NewReader(stdin.String()), "rev-list", "--topo-order", "--reverse", "--stdin")
	if err != nil {
		return nil, err
	}
	return parseRevisionLines(out), nil
}

func parseRevisionLines(out string) []RevisionID {
	var revs []RevisionID
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		revs = append(revs, RevisionID(line))
	}
	return revs
}

// forEachRefFormat prints name, object, type, and the peeled object and type
// separated by NUL.
const forEachRefFormat = "%(refname)%00%(objectname)%00%(objecttype)%00%(*objectname)%00%(*objecttype)"

// ReferenceTips runs `git for-each-ref` over the branch and tag namespaces.
func (o *CLIOracle) ReferenceTips(ctx context.Context, exclude []string) (map[string]RevisionID, error) {
	out, err := o.run(ctx, nil, "for-each-ref", "--format="+forEachRefFormat, "refs/heads", "refs/tags")
	if err != nil {
		return nil, err
	}
	return parseForEachRef(out, exclude)
}

func parseForEachRef(out string, exclude []string) (map[string]RevisionID, error) {
	tips := make(map[string]RevisionID)
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\x00")
		if len(fields) != 5 {
			return nil, fmt.Errorf("unexpected for-each-ref line: %q", line)
		}
		name, object, objectType := fields[0], fields[1], fields[2]
		if fields[3] != "" {
			object, objectType = fields[3], fields[4]
		}
		if ObjectType(objectType) != ObjectCommit {
			continue
		}
		if MatchAny(exclude, name) {
			continue
		}
		tips[name] = RevisionID(object)
	}
	return tips, nil
}

// RawDiff diffs a commit against its first parent with rename detection.
func (o *CLIOracle) RawDiff(ctx context.Context, rev RevisionID) (string, error) {
	parents, err := o.Parents(ctx, rev)
	if err != nil {
		return "", err
	}
	if len(parents) == 0 {
		return o.run(ctx, nil, "diff-tree", "-p", "-M", "--root", "--no-commit-id",
			"--no-color", "--no-ext-diff", "--src-prefix=a/", "--dst-prefix=b/", string(rev))
	}
	return o.run(ctx, nil, "diff", "-M", "--no-color", "--no-ext-diff",
		"--src-prefix=a/", "--dst-prefix=b/", string(parents[0]), string(rev), "--")
}

var metadataPlaceholders = map[MetadataField]string{
	FieldAuthorName:     "%an",
	FieldAuthorEmail:    "%ae",
	FieldAuthorDate:     "%aI",
	FieldCommitterName:  "%cn",
	FieldCommitterEmail: "%ce",
	FieldCommitterDate:  "%cI",
	FieldSubject:        "%s",
	FieldBody:           "%b",
}

// Metadata runs `git log -1` with one NUL-terminated placeholder per field.
func (o *CLIOracle) Metadata(ctx context.Context, rev RevisionID, fields ...MetadataField) (Metadata, error) {
	if len(fields) == 0 {
		fields = AllMetadataFields
	}
	var format strings.Builder
	for _, f := range fields {
		placeholder, ok := metadataPlaceholders[f]
		if !ok {
			return nil, fmt.Errorf("unsupported metadata field %d", f)
		}
		format.WriteString(placeholder)
		format.WriteString("%x00")
	}
	out, err := o.run(ctx, nil, "log", "-1", "--no-color", "--format="+format.String(), string(rev), "--")
	if err != nil {
		return nil, err
	}
	return parseMetadata(out, fields)
}

func parseMetadata(out string, fields []MetadataField) (Metadata, error) {
	values := strings.Split(out, "\x00")
	// The format ends every field with NUL, so a trailing newline remains.
	if len(values) < len(fields) {
		return nil, fmt.Errorf("unexpected git log output: %d fields, expected %d", len(values), len(fields))
	}
	md := make(Metadata, len(fields))
	for i, f := range fields {
		v := values[i]
		if f == FieldBody {
			v = strings.TrimRight(v, "\n")
		} else {
			v = strings.TrimSpace(v)
		}
		md[f] = v
	}
	return md, nil
}
