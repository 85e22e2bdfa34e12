package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tanq16/splitdl/internal/utils"
)

// PartDownloader fetches one segment with a ranged GET and forwards the body
// to the sink in chunks of at most ChunkSize bytes. It never touches the
// destination file.
type PartDownloader struct {
	Client    utils.HTTPDoer
	ChunkSize int64
	Timeout   time.Duration
	Referer   string
	Headers   map[string]string
	// TotalSize lets a plain 200 through when the segment is the whole file.
	TotalSize int64

	pool *bufferPool
}

// Fetch downloads seg from rawURL, sending chunks on out, and returns the
// number of bytes forwarded. Offsets sent for one segment are strictly
// increasing.
func (p *PartDownloader) Fetch(ctx context.Context, rawURL string, seg Segment, out chan<- Chunk) (int64, error) {
	partCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		partCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	n, err := p.fetch(partCtx, rawURL, seg, out)
	if err != nil && ctx.Err() == nil && errors.Is(partCtx.Err(), context.DeadlineExceeded) {
		return n, &TimeoutError{Segment: seg.Index, Limit: p.Timeout}
	}
	return n, err
}

func (p *PartDownloader) fetch(ctx context.Context, rawURL string, seg Segment, out chan<- Chunk) (int64, error) {
	req, err := newRequest(ctx, http.MethodGet, rawURL, p.Referer, p.Headers)
	if err != nil {
		return 0, &RequestError{Op: "GET", URL: rawURL, Err: err}
	}
	req.Header.Set("Range", seg.RangeHeader())
	resp, err := p.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, &RequestError{Op: "GET", URL: rawURL, Err: err}
	}
	defer resp.Body.Close()
	if err := p.checkResponse(resp, seg); err != nil {
		return 0, err
	}
	log.Debug().Str("op", "engine/part").Int("segment", seg.Index).Str("range", seg.RangeHeader()).Int("status", resp.StatusCode).Msg("streaming segment")

	chunkSize := p.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	expected := seg.Len()
	offset := seg.Start
	var transferred int64
	for {
		buf := p.buffer(int(chunkSize))
		n, readErr := io.ReadFull(resp.Body, *buf)
		if n > 0 {
			if transferred+int64(n) > expected {
				p.pool.put(buf)
				return transferred, &SegmentSizeError{Segment: seg.Index, Expected: expected, Got: transferred + int64(n)}
			}
			select {
			case out <- Chunk{Offset: offset, Data: (*buf)[:n], buf: buf}:
			case <-ctx.Done():
				p.pool.put(buf)
				return transferred, ctx.Err()
			}
			offset += int64(n)
			transferred += int64(n)
		} else {
			p.pool.put(buf)
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return transferred, ctx.Err()
			}
			return transferred, &RequestError{Op: "read", URL: rawURL, Err: readErr}
		}
	}
	if transferred != expected {
		return transferred, &SegmentSizeError{Segment: seg.Index, Expected: expected, Got: transferred}
	}
	return transferred, nil
}

// checkResponse rejects any answer that would put bytes at the wrong offset.
func (p *PartDownloader) checkResponse(resp *http.Response, seg Segment) error {
	contentRange := resp.Header.Get("Content-Range")
	switch resp.StatusCode {
	case http.StatusPartialContent:
		if contentRange == "" {
			return nil
		}
		if !rangeMatches(contentRange, seg) {
			return &RangeNotSupportedError{Segment: seg.Index, Status: resp.StatusCode, ContentRange: contentRange}
		}
		return nil
	case http.StatusOK:
		if contentRange != "" && rangeMatches(contentRange, seg) {
			return nil
		}
		if seg.Start == 0 && seg.End == p.TotalSize-1 && resp.ContentLength == seg.Len() {
			return nil
		}
		return &RangeNotSupportedError{Segment: seg.Index, Status: resp.StatusCode}
	default:
		return &RangeRequestFailedError{Segment: seg.Index, Status: resp.StatusCode}
	}
}

func (p *PartDownloader) buffer(size int) *[]byte {
	if p.pool != nil {
		return p.pool.get()
	}
	b := make([]byte, size)
	return &b
}

func rangeMatches(header string, seg Segment) bool {
	start, end, _, err := ParseContentRange(header)
	return err == nil && start == seg.Start && end == seg.End
}

// ParseContentRange parses a "bytes start-end/total" header value. Total is
// -1 when the server reports "*".
func ParseContentRange(header string) (start, end, total int64, err error) {
	value, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes ")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}
	rangePart, totalPart, ok := strings.Cut(value, "/")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}
	startPart, endPart, ok := strings.Cut(rangePart, "-")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}
	if start, err = strconv.ParseInt(startPart, 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid start byte: %w", err)
	}
	if end, err = strconv.ParseInt(endPart, 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid end byte: %w", err)
	}
	if totalPart == "*" {
		return start, end, -1, nil
	}
	if total, err = strconv.ParseInt(totalPart, 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid total bytes: %w", err)
	}
	return start, end, total, nil
}
