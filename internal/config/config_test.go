package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tanq16/splitdl/internal/engine"
	"github.com/tanq16/splitdl/internal/utils"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.ChunkSize != 64*1024 {
		t.Errorf("ChunkSize = %d, want 65536", cfg.ChunkSize)
	}
	if cfg.PartTimeout != 20*time.Minute {
		t.Errorf("PartTimeout = %v, want 20m", cfg.PartTimeout)
	}
	if cfg.MaxRedirectHops != 10 {
		t.Errorf("MaxRedirectHops = %d, want 10", cfg.MaxRedirectHops)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splitdl.yaml")
	content := `
workers: 8
chunk_size: 128KiB
part_timeout: 5m
request_timeout: 15s
user_agent: randomize
proxy: http://proxy.local:3128
headers:
  X-Token: abc
jobs: 3
output_dir: /tmp/downloads
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Workers != 8 || cfg.ChunkSize != 128*1024 || cfg.Jobs != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.PartTimeout != 5*time.Minute || cfg.RequestTimeout != 15*time.Second {
		t.Errorf("durations = %v, %v", cfg.PartTimeout, cfg.RequestTimeout)
	}
	if cfg.KeepAliveTimeout != 90*time.Second {
		t.Errorf("KeepAliveTimeout = %v, want default", cfg.KeepAliveTimeout)
	}
	if cfg.MaxRedirectHops != 10 {
		t.Errorf("MaxRedirectHops = %d, want default", cfg.MaxRedirectHops)
	}
	if cfg.Headers["X-Token"] != "abc" || cfg.ProxyURL != "http://proxy.local:3128" || cfg.OutputDir != "/tmp/downloads" {
		t.Errorf("cfg = %+v", cfg)
	}

	client := cfg.ClientConfig()
	if client.UserAgent == "randomize" || client.UserAgent == "" {
		t.Errorf("UserAgent = %q, want a concrete agent", client.UserAgent)
	}
	if !client.HighThreadMode {
		t.Error("HighThreadMode should be on with 8 workers")
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	tests := map[string]string{
		"bad yaml":     "workers: [",
		"bad size":     "chunk_size: lots",
		"zero size":    "chunk_size: 0",
		"bad duration": "part_timeout: soon",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFromFile(path); err == nil {
				t.Errorf("LoadFromFile(%q) succeeded, want error", content)
			}
		})
	}
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadFromFile() of a missing file succeeded")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SPLITDL_WORKERS", "6")
	t.Setenv("SPLITDL_CHUNK_SIZE", "1MiB")
	t.Setenv("SPLITDL_PART_TIMEOUT", "90s")
	t.Setenv("SPLITDL_MAX_REDIRECT_HOPS", "3")
	t.Setenv("SPLITDL_USER_AGENT", "agent/1")
	t.Setenv("SPLITDL_PROXY", "http://p:1")
	t.Setenv("SPLITDL_OUTPUT_DIR", "out")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.Workers != 6 || cfg.ChunkSize != 1<<20 || cfg.PartTimeout != 90*time.Second || cfg.MaxRedirectHops != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.UserAgent != "agent/1" || cfg.ProxyURL != "http://p:1" || cfg.OutputDir != "out" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadFromEnvZeroRedirectsRejected(t *testing.T) {
	t.Setenv("SPLITDL_MAX_REDIRECT_HOPS", "0")
	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted max_redirect_hops 0")
	}
}

func TestLoadFromEnvInvalid(t *testing.T) {
	t.Setenv("SPLITDL_WORKERS", "many")
	cfg := Default()
	if err := cfg.LoadFromEnv(); err == nil {
		t.Error("LoadFromEnv() succeeded with a bad worker count")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative chunk", func(c *Config) { c.ChunkSize = -1 }},
		{"zero part timeout", func(c *Config) { c.PartTimeout = 0 }},
		{"negative hops", func(c *Config) { c.MaxRedirectHops = -1 }},
		{"zero hops", func(c *Config) { c.MaxRedirectHops = 0 }},
		{"negative queue", func(c *Config) { c.QueueDepth = -1 }},
		{"zero jobs", func(c *Config) { c.Jobs = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() succeeded, want error")
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := Default()
	base.Headers = map[string]string{"A": "1", "B": "2"}
	merged := base.Merge(Config{Workers: 2, Headers: map[string]string{"B": "3", "C": "4"}})

	if merged.Workers != 2 {
		t.Errorf("Workers = %d", merged.Workers)
	}
	if merged.ChunkSize != base.ChunkSize || merged.UserAgent != utils.ToolUserAgent {
		t.Error("zero override values replaced the base")
	}
	want := map[string]string{"A": "1", "B": "3", "C": "4"}
	for k, v := range want {
		if merged.Headers[k] != v {
			t.Errorf("Headers[%s] = %q, want %q", k, merged.Headers[k], v)
		}
	}
	if base.Headers["B"] != "2" {
		t.Error("Merge modified the receiver's headers")
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := Default()
	cfg.QueueDepth = 7
	opts := cfg.EngineOptions()
	want := engine.Options{
		Workers:         engine.DefaultWorkers,
		ChunkSize:       engine.DefaultChunkSize,
		PartTimeout:     engine.DefaultPartTimeout,
		MaxRedirectHops: engine.DefaultMaxRedirectHops,
		QueueDepth:      7,
		RequestTimeout:  60 * time.Second,
	}
	if opts.Workers != want.Workers || opts.ChunkSize != want.ChunkSize || opts.PartTimeout != want.PartTimeout ||
		opts.MaxRedirectHops != want.MaxRedirectHops || opts.QueueDepth != want.QueueDepth || opts.RequestTimeout != want.RequestTimeout {
		t.Errorf("EngineOptions() = %+v, want %+v", opts, want)
	}
}
