package repeche

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WHAT: a missing or empty config path yields the built-in defaults.
// WHY: the daemon must start with zero configuration.
func TestLoadConfig_Defaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.yaml")} {
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig(%q): %v", path, err)
		}
		if cfg.MaxRetries != 2 {
			t.Errorf("MaxRetries = %d, want 2", cfg.MaxRetries)
		}
		if cfg.AttemptTimeoutSec != 60 {
			t.Errorf("AttemptTimeoutSec = %d, want 60", cfg.AttemptTimeoutSec)
		}
		if cfg.BatchConcurrency != 3 {
			t.Errorf("BatchConcurrency = %d, want 3", cfg.BatchConcurrency)
		}
		if cfg.MaxQuestions != 10 {
			t.Errorf("MaxQuestions = %d, want 10", cfg.MaxQuestions)
		}
		if cfg.OutputDir != "data/fetched" {
			t.Errorf("OutputDir = %q", cfg.OutputDir)
		}
		if cfg.ListenAddr != ":8094" {
			t.Errorf("ListenAddr = %q", cfg.ListenAddr)
		}
	}
}

// WHAT: YAML fields override defaults, unset fields still get them.
func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repeche.yaml")
	doc := `
strategies: [direct, wayback]
max_retries: 5
attempt_timeout_sec: 15
proxy_url: http://proxy.example:8080
output_dir: /tmp/out
video_command: transcript-tool
video_args: ["--json"]
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Strategies) != 2 || cfg.Strategies[0] != "direct" || cfg.Strategies[1] != "wayback" {
		t.Errorf("Strategies = %v", cfg.Strategies)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.ProxyURL != "http://proxy.example:8080" {
		t.Errorf("ProxyURL = %q", cfg.ProxyURL)
	}
	if cfg.VideoCommand != "transcript-tool" || len(cfg.VideoArgs) != 1 {
		t.Errorf("video = %q %v", cfg.VideoCommand, cfg.VideoArgs)
	}
	// unset fields fall back to defaults
	if cfg.StoreTimeoutSec != 30 {
		t.Errorf("StoreTimeoutSec = %d, want 30", cfg.StoreTimeoutSec)
	}
	if cfg.UserAgent != "repeche/1.0" {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
}

// WHAT: malformed YAML is a load error, not a silent default.
func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("max_retries: [not an int\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

// WHAT: second-valued fields convert to durations for the internal configs.
func TestConfig_DurationMapping(t *testing.T) {
	cfg := &Config{AttemptTimeoutSec: 15, StoreTimeoutSec: 7}
	cfg.defaults()

	if got := cfg.engineConfig().AttemptTimeout; got != 15*time.Second {
		t.Errorf("engine AttemptTimeout = %v", got)
	}
	if got := cfg.httpConfig().Timeout; got != 15*time.Second {
		t.Errorf("http Timeout = %v", got)
	}
	if got := cfg.storeConfig().Timeout; got != 7*time.Second {
		t.Errorf("store Timeout = %v", got)
	}
}
