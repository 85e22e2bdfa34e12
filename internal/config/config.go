package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/tanq16/splitdl/internal/engine"
	"github.com/tanq16/splitdl/internal/utils"
)

// Config defines configuration for the splitdl CLI.
type Config struct {
	Workers          int
	ChunkSize        int64
	PartTimeout      time.Duration
	MaxRedirectHops  int
	QueueDepth       int
	RequestTimeout   time.Duration
	KeepAliveTimeout time.Duration
	UserAgent        string
	ProxyURL         string
	ProxyUsername    string
	ProxyPassword    string
	Headers          map[string]string
	Jobs             int
	OutputDir        string
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Workers:          engine.DefaultWorkers,
		ChunkSize:        engine.DefaultChunkSize,
		PartTimeout:      engine.DefaultPartTimeout,
		MaxRedirectHops:  engine.DefaultMaxRedirectHops,
		RequestTimeout:   60 * time.Second,
		KeepAliveTimeout: 90 * time.Second,
		UserAgent:        utils.ToolUserAgent,
		Headers:          map[string]string{},
		Jobs:             1,
		OutputDir:        ".",
	}
}

// yamlConfig mirrors Config with human-friendly strings for sizes and durations.
type yamlConfig struct {
	Workers          int               `yaml:"workers"`
	ChunkSize        string            `yaml:"chunk_size"`
	PartTimeout      string            `yaml:"part_timeout"`
	MaxRedirectHops  int               `yaml:"max_redirect_hops"`
	QueueDepth       int               `yaml:"queue_depth"`
	RequestTimeout   string            `yaml:"request_timeout"`
	KeepAliveTimeout string            `yaml:"keep_alive_timeout"`
	UserAgent        string            `yaml:"user_agent"`
	Proxy            string            `yaml:"proxy"`
	ProxyUsername    string            `yaml:"proxy_username"`
	ProxyPassword    string            `yaml:"proxy_password"`
	Headers          map[string]string `yaml:"headers"`
	Jobs             int               `yaml:"jobs"`
	OutputDir        string            `yaml:"output_dir"`
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	override := Config{
		Workers:         yc.Workers,
		MaxRedirectHops: yc.MaxRedirectHops,
		QueueDepth:      yc.QueueDepth,
		UserAgent:       yc.UserAgent,
		ProxyURL:        yc.Proxy,
		ProxyUsername:   yc.ProxyUsername,
		ProxyPassword:   yc.ProxyPassword,
		Headers:         yc.Headers,
		Jobs:            yc.Jobs,
		OutputDir:       yc.OutputDir,
	}
	if yc.ChunkSize != "" {
		size, err := parseSize(yc.ChunkSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse chunk_size: %w", err)
		}
		override.ChunkSize = size
	}
	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"part_timeout", yc.PartTimeout, &override.PartTimeout},
		{"request_timeout", yc.RequestTimeout, &override.RequestTimeout},
		{"keep_alive_timeout", yc.KeepAliveTimeout, &override.KeepAliveTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = v
	}
	return Default().Merge(override), nil
}

// LoadFromEnv applies SPLITDL_* environment variables to c.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("SPLITDL_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse SPLITDL_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("SPLITDL_CHUNK_SIZE"); v != "" {
		size, err := parseSize(v)
		if err != nil {
			return fmt.Errorf("parse SPLITDL_CHUNK_SIZE: %w", err)
		}
		c.ChunkSize = size
	}
	if v := os.Getenv("SPLITDL_PART_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SPLITDL_PART_TIMEOUT: %w", err)
		}
		c.PartTimeout = d
	}
	if v := os.Getenv("SPLITDL_MAX_REDIRECT_HOPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse SPLITDL_MAX_REDIRECT_HOPS: %w", err)
		}
		c.MaxRedirectHops = n
	}
	if v := os.Getenv("SPLITDL_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("SPLITDL_PROXY"); v != "" {
		c.ProxyURL = v
	}
	if v := os.Getenv("SPLITDL_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: chunk_size must be positive")
	}
	if c.PartTimeout <= 0 {
		return errors.New("config: part_timeout must be positive")
	}
	// Zero means "use the default" to the engine, so it cannot mean "no hops".
	if c.MaxRedirectHops <= 0 {
		return errors.New("config: max_redirect_hops must be positive")
	}
	if c.QueueDepth < 0 {
		return errors.New("config: queue_depth must not be negative")
	}
	if c.Jobs <= 0 {
		return errors.New("config: jobs must be positive")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored; headers are merged key by key.
func (c Config) Merge(override Config) Config {
	if override.Workers != 0 {
		c.Workers = override.Workers
	}
	if override.ChunkSize != 0 {
		c.ChunkSize = override.ChunkSize
	}
	if override.PartTimeout != 0 {
		c.PartTimeout = override.PartTimeout
	}
	if override.MaxRedirectHops != 0 {
		c.MaxRedirectHops = override.MaxRedirectHops
	}
	if override.QueueDepth != 0 {
		c.QueueDepth = override.QueueDepth
	}
	if override.RequestTimeout != 0 {
		c.RequestTimeout = override.RequestTimeout
	}
	if override.KeepAliveTimeout != 0 {
		c.KeepAliveTimeout = override.KeepAliveTimeout
	}
	if override.UserAgent != "" {
		c.UserAgent = override.UserAgent
	}
	if override.ProxyURL != "" {
		c.ProxyURL = override.ProxyURL
	}
	if override.ProxyUsername != "" {
		c.ProxyUsername = override.ProxyUsername
	}
	if override.ProxyPassword != "" {
		c.ProxyPassword = override.ProxyPassword
	}
	if len(override.Headers) > 0 {
		merged := make(map[string]string, len(c.Headers)+len(override.Headers))
		for k, v := range c.Headers {
			merged[k] = v
		}
		for k, v := range override.Headers {
			merged[k] = v
		}
		c.Headers = merged
	}
	if override.Jobs != 0 {
		c.Jobs = override.Jobs
	}
	if override.OutputDir != "" {
		c.OutputDir = override.OutputDir
	}
	return c
}

// ClientConfig projects the HTTP-related settings. A user agent of
// "randomize" picks one from the built-in list.
func (c Config) ClientConfig() utils.HTTPClientConfig {
	userAgent := c.UserAgent
	if userAgent == "randomize" {
		userAgent = utils.GetRandomUserAgent()
	}
	return utils.HTTPClientConfig{
		Timeout:        c.RequestTimeout,
		KATimeout:      c.KeepAliveTimeout,
		ProxyURL:       c.ProxyURL,
		ProxyUsername:  c.ProxyUsername,
		ProxyPassword:  c.ProxyPassword,
		UserAgent:      userAgent,
		Headers:        c.Headers,
		HighThreadMode: c.Workers > 5,
	}
}

// EngineOptions projects the download engine settings.
func (c Config) EngineOptions() engine.Options {
	return engine.Options{
		Workers:         c.Workers,
		ChunkSize:       c.ChunkSize,
		PartTimeout:     c.PartTimeout,
		MaxRedirectHops: c.MaxRedirectHops,
		QueueDepth:      c.QueueDepth,
		RequestTimeout:  c.RequestTimeout,
	}
}

// parseSize accepts "65536", "64KiB", "1MB" and similar.
func parseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n == 0 || n > 1<<40 {
		return 0, fmt.Errorf("size %q out of range", s)
	}
	return int64(n), nil
}
