package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	ghrelease "github.com/tanq16/splitdl/internal/downloaders/github-release"
	gdrive "github.com/tanq16/splitdl/internal/downloaders/google-drive"
	splithttp "github.com/tanq16/splitdl/internal/downloaders/http"
	"github.com/tanq16/splitdl/internal/downloaders/s3"
	"github.com/tanq16/splitdl/internal/engine"
	"github.com/tanq16/splitdl/internal/output"
	"github.com/tanq16/splitdl/internal/utils"
)

// DefaultRegistry maps job types to their target producers.
func DefaultRegistry(outputDir string) map[string]utils.TargetProducer {
	return map[string]utils.TargetProducer{
		"http":           &splithttp.HTTPDownloader{OutputDir: outputDir},
		"s3":             &s3.S3Downloader{OutputDir: outputDir},
		"google-drive":   &gdrive.GDriveDownloader{OutputDir: outputDir},
		"github-release": &ghrelease.GitReleaseDownloader{OutputDir: outputDir},
	}
}

type Scheduler struct {
	registry map[string]utils.TargetProducer
	opts     engine.Options
	out      *output.Manager
}

func New(registry map[string]utils.TargetProducer, opts engine.Options, out *output.Manager) *Scheduler {
	return &Scheduler{registry: registry, opts: opts, out: out}
}

// Run downloads every job with the default producers and a terminal display.
func Run(ctx context.Context, jobs []utils.SplitJob, numWorkers int, opts engine.Options, outputDir string) error {
	s := New(DefaultRegistry(outputDir), opts, output.NewTerminalManager(utils.GlobalDebugFlag))
	return s.Run(ctx, jobs, numWorkers)
}

// Run processes jobs on numWorkers workers. One job failing does not stop
// the others; the returned error reports how many failed.
func (s *Scheduler) Run(ctx context.Context, jobs []utils.SplitJob, numWorkers int) error {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	s.out.StartDisplay()

	jobCh := make(chan utils.SplitJob, len(jobs))
	for _, job := range jobs {
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		jobCh <- job
	}
	close(jobCh)

	var wg sync.WaitGroup
	for range min(numWorkers, len(jobs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				s.processJob(ctx, job)
			}
		}()
	}
	wg.Wait()
	s.out.StopDisplay()

	if _, failed := s.out.Counts(); failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(jobs))
	}
	return nil
}

func (s *Scheduler) processJob(ctx context.Context, job utils.SplitJob) {
	funcID := s.out.RegisterFunction(job.URL)
	logger := log.With().Str("op", "scheduler").Str("job", job.ID).Str("type", job.JobType).Logger()

	producer, exists := s.registry[job.JobType]
	if !exists {
		s.fail(funcID, job, fmt.Errorf("unknown job type: %s", job.JobType))
		return
	}
	s.out.SetMessage(funcID, fmt.Sprintf("Validating %s job", job.JobType))
	if job.Metadata == nil {
		job.Metadata = make(map[string]any)
	}
	if err := producer.ValidateJob(&job); err != nil {
		s.fail(funcID, job, fmt.Errorf("validation failed: %w", err))
		return
	}
	s.out.SetMessage(funcID, fmt.Sprintf("Preparing %s", job.URL))
	target, err := producer.Target(ctx, &job)
	if err != nil {
		s.fail(funcID, job, fmt.Errorf("preparing target failed: %w", err))
		return
	}
	removeDirs := func() {}
	if target.DestinationDir != "" {
		removeDirs, err = makeDestDir(target.DestinationDir)
		if err != nil {
			s.fail(funcID, job, fmt.Errorf("error creating output directory: %w", err))
			return
		}
	}

	opts := s.opts
	opts.OnState = func(state engine.State) {
		logger.Debug().Str("state", state.String()).Msg("engine state")
		if state == engine.StateDownloading {
			s.out.SetStatus(funcID, "active")
			s.out.SetMessage(funcID, fmt.Sprintf("Downloading %s", job.URL))
		}
	}
	opts.OnProgress = func(written, total int64) {
		s.out.SetProgress(funcID, written, total)
		if job.ProgressFunc != nil {
			job.ProgressFunc(written, total)
		}
	}
	client := utils.NewSplitHTTPClient(job.HTTPClientConfig)
	res, err := engine.New(client, opts).Download(ctx, target)
	if err != nil {
		removeDirs()
		s.fail(funcID, job, fmt.Errorf("%s: %w", res.Kind, err))
		return
	}
	logger.Info().Str("path", res.FinalPath).Int64("bytes", res.BytesTransferred).Msg("job complete")
	s.out.Complete(funcID, fmt.Sprintf("Downloaded %s (%s)", filepath.Base(res.FinalPath), humanize.IBytes(uint64(res.BytesTransferred))))
}

// makeDestDir creates dir and returns a func that removes, deepest first,
// the directories this call created. Directories that are no longer empty
// are left in place.
func makeDestDir(dir string) (func(), error) {
	var created []string
	for d := filepath.Clean(dir); ; {
		if _, err := os.Stat(d); err == nil {
			break
		}
		created = append(created, d)
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return func() {}, err
	}
	return func() {
		for _, d := range created {
			if err := os.Remove(d); err != nil {
				return
			}
		}
	}, nil
}

func (s *Scheduler) fail(funcID int, job utils.SplitJob, err error) {
	log.Error().Str("op", "scheduler").Str("job", job.ID).Err(err).Msgf("job failed for %s", job.URL)
	s.out.ReportError(funcID, err)
}
