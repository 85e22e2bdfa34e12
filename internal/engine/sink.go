package engine

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// WriteSink is the only owner of the destination file during a download.
// One goroutine (Run) drains a bounded channel of chunks and writes each one
// at its offset, so writes never race and need no lock.
type WriteSink struct {
	path    string
	file    *os.File
	in      chan Chunk
	pool    *bufferPool
	ctx     context.Context
	cancel  context.CancelCauseFunc
	written atomic.Int64
	err     error
	done    chan struct{}
}

// NewWriteSink opens an already allocated file for positioned writes. Once
// ctx is done the sink discards chunks instead of writing them; a write
// error calls cancel so the producers stop. ctx must outlive the producers:
// chunks queued before they return are still written.
func NewWriteSink(ctx context.Context, cancel context.CancelCauseFunc, path string, queueDepth int) (*WriteSink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0644)
	if err != nil {
		return nil, &AllocationError{Path: path, Size: -1, Err: err}
	}
	if queueDepth <= 0 {
		queueDepth = 1
	}
	return &WriteSink{
		path:   path,
		file:   f,
		in:     make(chan Chunk, queueDepth),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}, nil
}

// In is the queue producers send on. The orchestrator closes it once every
// producer has returned.
func (s *WriteSink) In() chan<- Chunk {
	return s.in
}

// Run consumes the queue until it is closed.
func (s *WriteSink) Run() {
	defer close(s.done)
	discarded := 0
	for c := range s.in {
		if s.err == nil && s.ctx.Err() == nil {
			if _, err := s.file.WriteAt(c.Data, c.Offset); err != nil {
				s.err = &WriteError{Path: s.path, Offset: c.Offset, Err: err}
				log.Error().Str("op", "engine/sink").Err(err).Int64("offset", c.Offset).Msg("write failed, cancelling download")
				if s.cancel != nil {
					s.cancel(s.err)
				}
			} else {
				s.written.Add(int64(len(c.Data)))
			}
		} else {
			discarded++
		}
		s.pool.put(c.buf)
	}
	if discarded > 0 {
		log.Debug().Str("op", "engine/sink").Int("chunks", discarded).Msg("discarded chunks after cancellation")
	}
}

// Written is the number of bytes written so far. It only grows.
func (s *WriteSink) Written() int64 {
	return s.written.Load()
}

// Err reports the first write error, if any. Valid after Close.
func (s *WriteSink) Err() error {
	return s.err
}

// Close waits for Run to drain the closed queue, then flushes and releases
// the file handle. It requires In to be closed and Run to have been started.
func (s *WriteSink) Close() error {
	<-s.done
	syncErr := s.file.Sync()
	closeErr := s.file.Close()
	if s.err != nil {
		return s.err
	}
	if syncErr != nil {
		return &WriteError{Path: s.path, Offset: -1, Err: syncErr}
	}
	if closeErr != nil {
		return &WriteError{Path: s.path, Offset: -1, Err: closeErr}
	}
	return nil
}
