package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/masmgr/pushnotify/internal/push"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Repository.Backend != BackendCLI {
		t.Errorf("Backend = %q, expected %q", cfg.Repository.Backend, BackendCLI)
	}
	if cfg.Repository.GitBinary != "git" {
		t.Errorf("GitBinary = %q, expected git", cfg.Repository.GitBinary)
	}
	if cfg.Merges.Policy != "annotate" {
		t.Errorf("Merges.Policy = %q, expected annotate", cfg.Merges.Policy)
	}
	if !cfg.Diff.Enabled || cfg.Diff.SkipMalformed {
		t.Errorf("Diff = %+v, expected enabled and strict", cfg.Diff)
	}
	if cfg.Jobs != 4 {
		t.Errorf("Jobs = %d, expected 4", cfg.Jobs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{name: "Native backend", modify: func(c *Config) { c.Repository.Backend = BackendNative }},
		{name: "Unknown backend", modify: func(c *Config) { c.Repository.Backend = "svn" }, errMsg: "unknown repository backend"},
		{name: "Unknown policy", modify: func(c *Config) { c.Merges.Policy = "squash" }, errMsg: "unknown merge policy"},
		{name: "Zero jobs", modify: func(c *Config) { c.Jobs = 0 }, errMsg: "jobs must be at least 1"},
		{name: "Bad pattern", modify: func(c *Config) { c.References.Ignore = []string{"refs/[notes"} }, errMsg: "invalid pattern"},
		{name: "Negative rate", modify: func(c *Config) { c.Repository.QueryRate = -1 }, errMsg: "queryRate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Fatalf("Validate() = %v, expected error containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestMergePolicy(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MergePolicy() != push.PolicyAnnotate {
		t.Errorf("default policy = %v", cfg.MergePolicy())
	}
	cfg.Merges.Policy = "exclude"
	if cfg.MergePolicy() != push.PolicyExclude {
		t.Errorf("policy = %v, expected exclude", cfg.MergePolicy())
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfig_Formats(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "JSON",
			file: "config.json",
			content: `{"repository": {"backend": "native"}, "references": {"mirrorRemote": "upstream",
				"ignore": ["refs/notes/**"]}, "merges": {"policy": "exclude"}, "jobs": 2}`,
		},
		{
			name: "YAML",
			file: "config.yaml",
			content: `repository:
  backend: native
references:
  mirrorRemote: upstream
  ignore:
    - refs/notes/**
merges:
  policy: exclude
jobs: 2
`,
		},
		{
			name: "TOML",
			file: "config.toml",
			content: `jobs = 2

[repository]
backend = "native"

[references]
mirrorRemote = "upstream"
ignore = ["refs/notes/**"]

[merges]
policy = "exclude"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			cfg, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if cfg.Repository.Backend != BackendNative {
				t.Errorf("Backend = %q", cfg.Repository.Backend)
			}
			if cfg.References.MirrorRemote != "upstream" {
				t.Errorf("MirrorRemote = %q", cfg.References.MirrorRemote)
			}
			if len(cfg.References.Ignore) != 1 || cfg.References.Ignore[0] != "refs/notes/**" {
				t.Errorf("Ignore = %v", cfg.References.Ignore)
			}
			if cfg.Merges.Policy != "exclude" || cfg.Jobs != 2 {
				t.Errorf("Policy = %q, Jobs = %d", cfg.Merges.Policy, cfg.Jobs)
			}
			// Unset keys keep their defaults.
			if cfg.Repository.GitBinary != "git" || !cfg.Diff.Enabled {
				t.Errorf("defaults lost: %+v", cfg)
			}
		})
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Jobs != DefaultConfig().Jobs {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "jobs: [not a number\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFindConfig(t *testing.T) {
	empty := t.TempDir()
	withYAML := t.TempDir()
	want := writeFile(t, withYAML, ".pushnotify.yaml", "jobs: 3\n")

	if got := findConfig([]string{empty, withYAML}); got != want {
		t.Errorf("findConfig = %q, expected %q", got, want)
	}
	if got := findConfig([]string{empty}); got != "" {
		t.Errorf("findConfig = %q, expected none", got)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.json")
	cfg := DefaultConfig()
	cfg.Filters.Exclude = []string{"vendor/**"}
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(loaded.Filters.Exclude) != 1 || loaded.Filters.Exclude[0] != "vendor/**" {
		t.Errorf("Exclude = %v", loaded.Filters.Exclude)
	}
}

func TestApplyEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", strings.Join([]string{
		"PUSHNOTIFY_BACKEND=native",
		"PUSHNOTIFY_JOBS=8",
		"PUSHNOTIFY_EXCLUDE=vendor/**, docs/**",
		"OTHER_SETTING=ignored",
	}, "\n"))
	t.Setenv("PUSHNOTIFY_JOBS", "2")
	t.Setenv("PUSHNOTIFY_DIFF", "false")

	cfg := DefaultConfig()
	if err := ApplyEnvFile(cfg, envFile); err != nil {
		t.Fatalf("ApplyEnvFile failed: %v", err)
	}
	if cfg.Repository.Backend != BackendNative {
		t.Errorf("Backend = %q, expected native from .env", cfg.Repository.Backend)
	}
	if cfg.Jobs != 2 {
		t.Errorf("Jobs = %d, expected process environment to win", cfg.Jobs)
	}
	if cfg.Diff.Enabled {
		t.Error("Diff.Enabled should be false")
	}
	if len(cfg.Filters.Exclude) != 2 || cfg.Filters.Exclude[1] != "docs/**" {
		t.Errorf("Exclude = %v", cfg.Filters.Exclude)
	}
}

func TestApplyEnvFile_MissingFile(t *testing.T) {
	cfg := DefaultConfig()
	if err := ApplyEnvFile(cfg, filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
}

func TestApplyEnvFile_InvalidValue(t *testing.T) {
	t.Setenv("PUSHNOTIFY_QUERY_RATE", "fast")
	cfg := DefaultConfig()
	err := ApplyEnvFile(cfg, "")
	if err == nil || !strings.Contains(err.Error(), "PUSHNOTIFY_QUERY_RATE") {
		t.Fatalf("expected error naming the variable, got %v", err)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{}},
		{"a", []string{"a"}},
		{"a, b,,c ", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		got := splitList(tt.input)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
