package utils

import (
	"context"
	"time"
)

// TargetProducer turns a job into something the download engine can fetch.
// Each source type (plain HTTP, S3, Drive) has its own producer.
type TargetProducer interface {
	ValidateJob(job *SplitJob) error
	Target(ctx context.Context, job *SplitJob) (*DownloadTarget, error)
}

// DownloadTarget is the fully resolved input for one download. It is not
// modified after a producer returns it.
type DownloadTarget struct {
	SourceURL string
	// ProbeURL, when set, is used for the size probe instead of SourceURL.
	// Object stores that sign each method separately need a HEAD-signed
	// URL next to the GET-signed one.
	ProbeURL       string
	Referer        string
	Headers        map[string]string
	DestinationDir string
	Filename       string
}

type SplitJob struct {
	ID               string
	JobType          string
	URL              string
	OutputPath       string
	Referer          string
	HTTPClientConfig HTTPClientConfig
	ProgressFunc     func(downloaded, total int64)
	Metadata         map[string]any
}

type HTTPClientConfig struct {
	Timeout        time.Duration
	KATimeout      time.Duration
	ProxyURL       string
	ProxyUsername  string
	ProxyPassword  string
	UserAgent      string
	Headers        map[string]string
	HighThreadMode bool // larger socket buffers for many connections
}

type BatchEntry struct {
	OutputPath string `yaml:"op,omitempty"`
	Link       string `yaml:"link"`
	Referer    string `yaml:"referer,omitempty"`
}

type BatchFile map[string][]BatchEntry
