package cmd

import (
	"context"
	"fmt"
	"io"
	u "net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/splitdl/internal/config"
	"github.com/tanq16/splitdl/internal/scheduler"
	"github.com/tanq16/splitdl/internal/utils"
)

var (
	configFile    string
	logFile       string
	debug         bool
	workers       int
	chunkSize     string
	partTimeout   time.Duration
	maxRedirects  int
	timeout       time.Duration
	kaTimeout     time.Duration
	userAgent     string
	proxyURL      string
	proxyUsername string
	proxyPassword string
	headers       []string
	jobs          int
	outputDir     string
)

var (
	cfg       = config.Default()
	logCloser io.Closer
)

var SplitdlVersion = "dev"

var rootCmd = &cobra.Command{
	Use:   "splitdl",
	Short: "splitdl is a segmented multi-connection downloader",
	Long: `splitdl downloads a file over several parallel HTTP range requests and
writes every part straight into its final position in the output file.

Sources: plain HTTP(S) URLs, S3 objects, Google Drive files and GitHub
release assets.`,
	Version:           SplitdlVersion,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "YAML configuration file")
	pf.IntVarP(&workers, "workers", "c", 4, "Number of parallel range requests per download (above 5 enables high-thread-mode)")
	pf.StringVar(&chunkSize, "chunk-size", "64KiB", "Read size for each part (eg. 64KiB, 1MiB)")
	pf.DurationVar(&partTimeout, "part-timeout", 20*time.Minute, "Time limit for a single part (eg. 5m, 1h)")
	pf.IntVar(&maxRedirects, "max-redirects", 10, "Maximum redirect hops while resolving the URL (at least 1)")
	pf.DurationVarP(&timeout, "timeout", "t", 60*time.Second, "Connection timeout (eg. 5s, 10m)")
	pf.DurationVarP(&kaTimeout, "keep-alive-timeout", "k", 90*time.Second, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	pf.StringVarP(&userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent (\"randomize\" picks a browser agent)")
	pf.StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	pf.StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	pf.StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	pf.StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")
	pf.IntVarP(&jobs, "jobs", "w", 1, "Number of downloads to run in parallel")
	pf.StringVar(&outputDir, "output-dir", ".", "Directory for downloads without an explicit output path")
	pf.BoolVar(&debug, "debug", false, "Enable debug logging")
	pf.StringVar(&logFile, "log-file", "", "Write JSON logs to this file")

	rootCmd.AddCommand(newHTTPCmd())
	rootCmd.AddCommand(newS3Cmd())
	rootCmd.AddCommand(newGDriveCmd())
	rootCmd.AddCommand(newGHReleaseCmd())
	rootCmd.AddCommand(newBatchCmd())
}

func setup(cmd *cobra.Command, args []string) error {
	closer, err := utils.InitLogger(debug, logFile)
	if err != nil {
		return err
	}
	logCloser = closer
	loaded, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg = loaded
	log.Debug().Str("op", "cmd/setup").Int("workers", cfg.Workers).Int64("chunkSize", cfg.ChunkSize).
		Int("jobs", cfg.Jobs).Str("outputDir", cfg.OutputDir).Msg("Configuration loaded")
	return nil
}

// loadConfig layers defaults, the config file, SPLITDL_* variables and
// explicitly set flags, in that order.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	c := config.Default()
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			return c, err
		}
		c = loaded
	}
	if err := c.LoadFromEnv(); err != nil {
		return c, err
	}

	f := cmd.Flags()
	if f.Changed("workers") {
		c.Workers = workers
	}
	if f.Changed("chunk-size") {
		size, err := humanize.ParseBytes(chunkSize)
		if err != nil {
			return c, fmt.Errorf("invalid --chunk-size %q: %w", chunkSize, err)
		}
		c.ChunkSize = int64(size)
	}
	if f.Changed("part-timeout") {
		c.PartTimeout = partTimeout
	}
	if f.Changed("max-redirects") {
		c.MaxRedirectHops = maxRedirects
	}
	if f.Changed("timeout") {
		c.RequestTimeout = timeout
	}
	if f.Changed("keep-alive-timeout") {
		c.KeepAliveTimeout = kaTimeout
	}
	if f.Changed("user-agent") {
		c.UserAgent = userAgent
	}
	if f.Changed("proxy") {
		c.ProxyURL = proxyURL
	}
	if f.Changed("proxy-username") {
		c.ProxyUsername = proxyUsername
	}
	if f.Changed("proxy-password") {
		c.ProxyPassword = proxyPassword
	}
	if f.Changed("jobs") {
		c.Jobs = jobs
	}
	if f.Changed("output-dir") {
		c.OutputDir = outputDir
	}
	c = c.Merge(config.Config{Headers: utils.ParseHeaderArgs(headers)})
	splitProxyAuth(&c)
	return c, c.Validate()
}

// splitProxyAuth moves credentials embedded in the proxy URL into the
// username and password fields unless those are already set.
func splitProxyAuth(c *config.Config) {
	if c.ProxyURL == "" {
		return
	}
	parsedProxy, err := u.Parse(c.ProxyURL)
	if err != nil || parsedProxy.User == nil || c.ProxyUsername != "" {
		return
	}
	c.ProxyUsername = parsedProxy.User.Username()
	if password, set := parsedProxy.User.Password(); set {
		c.ProxyPassword = password
	}
	parsedProxy.User = nil
	c.ProxyURL = parsedProxy.String()
}

// runJobs applies the shared client configuration and hands the jobs to
// the scheduler.
func runJobs(cmd *cobra.Command, jobList []utils.SplitJob) error {
	client := cfg.ClientConfig()
	for i := range jobList {
		jobList[i].HTTPClientConfig = client
		if jobList[i].Metadata == nil {
			jobList[i].Metadata = make(map[string]any)
		}
	}
	return scheduler.Run(cmd.Context(), jobList, cfg.Jobs, cfg.EngineOptions(), cfg.OutputDir)
}
