package engine

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tanq16/splitdl/internal/utils"
)

const (
	DefaultWorkers          = 4
	DefaultChunkSize        = 64 * 1024
	DefaultPartTimeout      = 20 * time.Minute
	DefaultMaxRedirectHops  = 10
	DefaultRequestTimeout   = 60 * time.Second
	DefaultProgressInterval = 500 * time.Millisecond
	defaultFilename         = "download"
)

type Options struct {
	Workers         int
	ChunkSize       int64
	PartTimeout     time.Duration
	MaxRedirectHops int
	// QueueDepth bounds the chunks waiting for the sink; 0 means 4*Workers.
	QueueDepth     int
	RequestTimeout time.Duration

	SpaceChecker     SpaceChecker
	OnState          func(State)
	OnProgress       func(written, total int64)
	ProgressInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.PartTimeout <= 0 {
		o.PartTimeout = DefaultPartTimeout
	}
	if o.MaxRedirectHops <= 0 {
		o.MaxRedirectHops = DefaultMaxRedirectHops
	}
	if o.QueueDepth <= 0 {
		o.QueueDepth = 4 * o.Workers
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.SpaceChecker == nil {
		o.SpaceChecker = DiskSpace{}
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = DefaultProgressInterval
	}
	return o
}

// Result is what the caller gets back for one download. On failure the
// destination file does not exist and Err holds the cause.
type Result struct {
	Success          bool
	FinalPath        string
	BytesTransferred int64
	Kind             ErrorKind
	Err              error
	State            State
}

// Engine downloads one resource at a time with Workers concurrent ranged
// requests. It is safe to share between goroutines; every Download call has
// its own state.
type Engine struct {
	client utils.HTTPDoer
	opts   Options
}

func New(client utils.HTTPDoer, opts Options) *Engine {
	return &Engine{client: client, opts: opts.withDefaults()}
}

// download carries the state of one Download call.
type download struct {
	opts   Options
	target *utils.DownloadTarget
	state  State
}

func (d *download) transition(to State) {
	log.Debug().Str("op", "engine/state").Str("from", d.state.String()).Str("to", to.String()).Str("url", d.target.SourceURL).Msg("state change")
	d.state = to
	if d.opts.OnState != nil {
		d.opts.OnState(to)
	}
}

func (d *download) fail(res *Result, err error) (*Result, error) {
	res.Success = false
	res.Err = err
	res.Kind = KindOf(err)
	d.transition(StateFailed)
	res.State = d.state
	log.Error().Str("op", "engine/state").Err(err).Str("kind", res.Kind.String()).Str("url", d.target.SourceURL).Msg("download failed")
	return res, err
}

// Download runs the whole state machine for target. The returned error is
// the same as Result.Err.
func (e *Engine) Download(ctx context.Context, target *utils.DownloadTarget) (*Result, error) {
	d := &download{opts: e.opts, target: target, state: StatePending}
	res := &Result{State: StatePending}

	d.transition(StateResolving)
	resolver := &Resolver{Client: e.client, MaxHops: e.opts.MaxRedirectHops, RequestTimeout: e.opts.RequestTimeout}
	resource, err := resolver.Resolve(ctx, target)
	if err != nil {
		return d.fail(res, err)
	}
	d.transition(StateSizeKnown)

	destPath := destinationPath(target, resource)
	res.FinalPath = destPath
	if err := CheckSpace(e.opts.SpaceChecker, filepath.Dir(destPath), resource.TotalSize); err != nil {
		return d.fail(res, err)
	}
	d.transition(StateSpaceChecked)

	if err := ctx.Err(); err != nil {
		return d.fail(res, err)
	}
	if err := Allocate(destPath, resource.TotalSize); err != nil {
		removeFile(destPath)
		return d.fail(res, err)
	}
	d.transition(StateAllocated)

	segments, err := PlanSegments(resource.TotalSize, e.opts.Workers)
	if err != nil {
		removeFile(destPath)
		return d.fail(res, err)
	}
	d.transition(StateDownloading)
	written, err := e.fetchAll(ctx, target, resource, destPath, segments)
	res.BytesTransferred = written
	if err != nil {
		removeFile(destPath)
		return d.fail(res, err)
	}
	res.Success = true
	d.transition(StateComplete)
	res.State = d.state
	log.Info().Str("op", "engine/state").Str("path", destPath).Int64("bytes", written).Int("segments", len(segments)).Msg("download complete")
	return res, nil
}

// fetchAll runs one part per segment into a single sink and checks that
// every byte arrived exactly once.
func (e *Engine) fetchAll(ctx context.Context, target *utils.DownloadTarget, resource *ResolvedResource, destPath string, segments []Segment) (int64, error) {
	dlCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	group, groupCtx := errgroup.WithContext(dlCtx)

	// The sink watches dlCtx, not groupCtx: Wait cancels groupCtx even when
	// every part succeeded, and chunks still queued must be written.
	sink, err := NewWriteSink(dlCtx, cancel, destPath, e.opts.QueueDepth)
	if err != nil {
		return 0, err
	}
	pool := newBufferPool(int(e.opts.ChunkSize))
	sink.pool = pool
	go sink.Run()

	stopProgress := e.reportProgress(sink, resource.TotalSize)

	var (
		mu       sync.Mutex
		failures []PartFailure
	)
	counts := make([]int64, len(segments))
	part := &PartDownloader{
		Client:    e.client,
		ChunkSize: e.opts.ChunkSize,
		Timeout:   e.opts.PartTimeout,
		Referer:   refererFor(target),
		Headers:   target.Headers,
		TotalSize: resource.TotalSize,
		pool:      pool,
	}
	for _, seg := range segments {
		group.Go(func() error {
			n, err := part.Fetch(groupCtx, resource.FinalURL, seg, sink.In())
			counts[seg.Index] = n
			if err == nil {
				return nil
			}
			// Parts stopped because a sibling failed are not failures of
			// their own.
			if !(errors.Is(err, context.Canceled) && groupCtx.Err() != nil) {
				log.Debug().Str("op", "engine/part").Int("segment", seg.Index).Err(err).Msg("part failed")
				mu.Lock()
				failures = append(failures, PartFailure{Segment: seg, Err: err})
				mu.Unlock()
			}
			return err
		})
	}
	waitErr := group.Wait()
	close(sink.In())
	closeErr := sink.Close()
	stopProgress()
	written := sink.Written()

	switch {
	case ctx.Err() != nil:
		return written, ctx.Err()
	case len(failures) > 0:
		return written, &PartialDownloadFailure{Failures: failures}
	case closeErr != nil:
		return written, closeErr
	case waitErr != nil:
		return written, waitErr
	}
	for i, seg := range segments {
		if counts[i] != seg.Len() {
			return written, &SegmentSizeError{Segment: seg.Index, Expected: seg.Len(), Got: counts[i]}
		}
	}
	if written != resource.TotalSize {
		return written, &SegmentSizeError{Segment: -1, Expected: resource.TotalSize, Got: written}
	}
	return written, nil
}

// reportProgress polls the sink counter until the returned stop func is
// called. The stop func emits one final update.
func (e *Engine) reportProgress(sink *WriteSink, total int64) func() {
	if e.opts.OnProgress == nil {
		return func() {}
	}
	ticker := time.NewTicker(e.opts.ProgressInterval)
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case <-ticker.C:
				e.opts.OnProgress(sink.Written(), total)
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
		<-finished
		e.opts.OnProgress(sink.Written(), total)
	}
}

// destinationPath picks where the file goes. An existing file is never
// reused, so a failed download cannot clobber it.
func destinationPath(target *utils.DownloadTarget, resource *ResolvedResource) string {
	name := utils.SanitizeFilename(target.Filename)
	if name == "" {
		name = resource.Filename
	}
	if name == "" {
		name = utils.SanitizeFilename(urlBase(resource.FinalURL))
	}
	if name == "" {
		name = defaultFilename
	}
	if filepath.Ext(name) == "" && resource.Extension != "" {
		name += resource.Extension
	}
	dir := target.DestinationDir
	if dir == "" {
		dir = "."
	}
	dest := filepath.Join(dir, name)
	if _, err := os.Stat(dest); err == nil {
		dest = utils.RenewOutputPath(dest)
	}
	return dest
}

func urlBase(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return base
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Str("op", "engine/cleanup").Err(err).Str("path", path).Msg("failed to remove partial file")
	}
}
