package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/masmgr/pushnotify/internal/git"
	"github.com/masmgr/pushnotify/internal/push"
)

// Backend names accepted by Repository.Backend.
const (
	BackendCLI    = "cli"
	BackendNative = "native"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PUSHNOTIFY_"

// Config is the root configuration structure.
type Config struct {
	Repository RepositoryConfig `json:"repository" yaml:"repository" toml:"repository"`
	References ReferenceConfig  `json:"references" yaml:"references" toml:"references"`
	Merges     MergeConfig      `json:"merges" yaml:"merges" toml:"merges"`
	Diff       DiffConfig       `json:"diff" yaml:"diff" toml:"diff"`
	Filters    FilterConfig     `json:"filters" yaml:"filters" toml:"filters"`
	Jobs       int              `json:"jobs" yaml:"jobs" toml:"jobs"` // Reference changes processed in parallel
}

// RepositoryConfig selects how the repository is queried.
type RepositoryConfig struct {
	Backend    string  `json:"backend" yaml:"backend" toml:"backend"`          // "cli" (default) or "native"
	GitBinary  string  `json:"gitBinary" yaml:"gitBinary" toml:"gitBinary"`    // Default: "git"
	QueryRate  float64 `json:"queryRate" yaml:"queryRate" toml:"queryRate"`    // git invocations per second, 0 = unlimited
	QueryBurst int     `json:"queryBurst" yaml:"queryBurst" toml:"queryBurst"` // Default: 1
}

// ReferenceConfig holds reference classification options.
type ReferenceConfig struct {
	MirrorRemote string   `json:"mirrorRemote" yaml:"mirrorRemote" toml:"mirrorRemote"` // Remote whose refs count as branches
	ExcludeTips  []string `json:"excludeTips" yaml:"excludeTips" toml:"excludeTips"`    // Ref patterns not used to exclude commits
	Ignore       []string `json:"ignore" yaml:"ignore" toml:"ignore"`                   // Ref patterns never notified
}

// MergeConfig holds merge traversal options.
type MergeConfig struct {
	Policy string `json:"policy" yaml:"policy" toml:"policy"` // "annotate" (default) or "exclude"
}

// DiffConfig holds diff parsing options.
type DiffConfig struct {
	Enabled       bool `json:"enabled" yaml:"enabled" toml:"enabled"`
	SkipMalformed bool `json:"skipMalformed" yaml:"skipMalformed" toml:"skipMalformed"`
}

// FilterConfig holds file path filtering options.
type FilterConfig struct {
	Include []string `json:"include" yaml:"include" toml:"include"`
	Exclude []string `json:"exclude" yaml:"exclude" toml:"exclude"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Repository: RepositoryConfig{
			Backend:    BackendCLI,
			GitBinary:  "git",
			QueryBurst: 1,
		},
		References: ReferenceConfig{
			ExcludeTips: []string{},
			Ignore:      []string{},
		},
		Merges: MergeConfig{
			Policy: push.PolicyAnnotate.String(),
		},
		Diff: DiffConfig{
			Enabled: true,
		},
		Filters: FilterConfig{
			Include: []string{},
			Exclude: []string{},
		},
		Jobs: 4,
	}
}

// Validate checks the values that cannot be checked by decoding alone.
func (c *Config) Validate() error {
	switch c.Repository.Backend {
	case BackendCLI, BackendNative:
	default:
		return fmt.Errorf("unknown repository backend %q", c.Repository.Backend)
	}
	if _, err := push.ParseMergePolicy(c.Merges.Policy); err != nil {
		return err
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if c.Repository.QueryRate < 0 {
		return fmt.Errorf("queryRate must not be negative, got %g", c.Repository.QueryRate)
	}
	for _, patterns := range [][]string{c.References.ExcludeTips, c.References.Ignore, c.Filters.Include, c.Filters.Exclude} {
		if err := git.ValidatePatterns(patterns); err != nil {
			return err
		}
	}
	return nil
}

// MergePolicy returns the parsed merge policy.
func (c *Config) MergePolicy() push.MergePolicy {
	p, err := push.ParseMergePolicy(c.Merges.Policy)
	if err != nil {
		return push.PolicyAnnotate
	}
	return p
}

var configNames = []string{".pushnotify.json", ".pushnotify.yaml", ".pushnotify.yml", ".pushnotify.toml"}

// LoadConfig loads configuration from a file, merging with defaults. The
// format is chosen by the file extension.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		// Try default locations
		dirs := []string{"."}
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			dirs = append(dirs, home)
		} else if envHome := os.Getenv("HOME"); envHome != "" {
			dirs = append(dirs, envHome)
		}
		path = findConfig(dirs)
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func findConfig(dirs []string) string {
	for _, dir := range dirs {
		for _, name := range configNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	default:
		return json.Unmarshal(data, cfg)
	}
}

// SaveConfig saves configuration to a file.
func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnvFile applies PUSHNOTIFY_* overrides. Values come from the dotenv
// file at path (if it exists) and from the process environment, which wins.
func ApplyEnvFile(cfg *Config, path string) error {
	values := map[string]string{}
	if path != "" {
		fileValues, err := godotenv.Read(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, EnvPrefix) {
			values[k] = v
		}
	}
	return applyEnv(cfg, values)
}

func applyEnv(cfg *Config, values map[string]string) error {
	var errs []error
	for key, raw := range values {
		name, ok := strings.CutPrefix(key, EnvPrefix)
		if !ok {
			continue
		}
		if err := applyEnvValue(cfg, name, raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func applyEnvValue(cfg *Config, name, raw string) error {
	var err error
	switch name {
	case "BACKEND":
		cfg.Repository.Backend = raw
	case "GIT_BINARY":
		cfg.Repository.GitBinary = raw
	case "QUERY_RATE":
		cfg.Repository.QueryRate, err = strconv.ParseFloat(raw, 64)
	case "QUERY_BURST":
		cfg.Repository.QueryBurst, err = strconv.Atoi(raw)
	case "MIRROR_REMOTE":
		cfg.References.MirrorRemote = raw
	case "EXCLUDE_TIPS":
		cfg.References.ExcludeTips = splitList(raw)
	case "IGNORE":
		cfg.References.Ignore = splitList(raw)
	case "MERGE_POLICY":
		cfg.Merges.Policy = raw
	case "DIFF":
		cfg.Diff.Enabled, err = strconv.ParseBool(raw)
	case "SKIP_MALFORMED":
		cfg.Diff.SkipMalformed, err = strconv.ParseBool(raw)
	case "INCLUDE":
		cfg.Filters.Include = splitList(raw)
	case "EXCLUDE":
		cfg.Filters.Exclude = splitList(raw)
	case "JOBS":
		cfg.Jobs, err = strconv.Atoi(raw)
	}
	return err
}

// splitList splits a comma separated list, dropping empty entries.
func splitList(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
