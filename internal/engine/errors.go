package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ErrInvalidPlan is returned by PlanSegments for a negative size or a
// non-positive worker count.
var ErrInvalidPlan = errors.New("invalid segment plan input")

// ErrorKind classifies a download failure for callers that only need a
// coarse reason.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindRedirectLoop
	KindMissingLength
	KindUnexpectedStatus
	KindInsufficientSpace
	KindSpaceQuery
	KindAllocation
	KindRangeRequestFailed
	KindRangeNotSupported
	KindTimeout
	KindSegmentSize
	KindWrite
	KindPartialDownload
	KindRequest
	KindInvalidInput
	KindCanceled
	KindUnknown
)

var kindNames = map[ErrorKind]string{
	KindNone:               "none",
	KindRedirectLoop:       "redirect-loop",
	KindMissingLength:      "missing-length",
	KindUnexpectedStatus:   "unexpected-status",
	KindInsufficientSpace:  "insufficient-space",
	KindSpaceQuery:         "space-query",
	KindAllocation:         "allocation",
	KindRangeRequestFailed: "range-request-failed",
	KindRangeNotSupported:  "range-not-supported",
	KindTimeout:            "timeout",
	KindSegmentSize:        "segment-size",
	KindWrite:              "write",
	KindPartialDownload:    "partial-download",
	KindRequest:            "request",
	KindInvalidInput:       "invalid-input",
	KindCanceled:           "canceled",
	KindUnknown:            "unknown",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type RedirectLoopError struct {
	Hops    int
	LastURL string
}

func (e *RedirectLoopError) Error() string {
	return fmt.Sprintf("redirect loop: exceeded %d hops (last URL: %s)", e.Hops, e.LastURL)
}

type MissingLengthError struct {
	URL   string
	Value string
}

func (e *MissingLengthError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("no Content-Length for %s", e.URL)
	}
	return fmt.Sprintf("invalid Content-Length %q for %s", e.Value, e.URL)
}

type UnexpectedStatusError struct {
	URL    string
	Status int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Status, e.URL)
}

type InsufficientSpaceError struct {
	Dir       string
	Required  uint64
	Available uint64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space in %s: required %s, available %s",
		e.Dir, humanize.IBytes(e.Required), humanize.IBytes(e.Available))
}

type SpaceQueryError struct {
	Dir string
	Err error
}

func (e *SpaceQueryError) Error() string {
	return fmt.Sprintf("query free space of %s: %v", e.Dir, e.Err)
}

func (e *SpaceQueryError) Unwrap() error { return e.Err }

type AllocationError struct {
	Path string
	Size int64
	Err  error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate %s (%d bytes): %v", e.Path, e.Size, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

type RangeRequestFailedError struct {
	Segment int
	Status  int
}

func (e *RangeRequestFailedError) Error() string {
	return fmt.Sprintf("segment %d: range request failed with status %d", e.Segment, e.Status)
}

// RangeNotSupportedError means the server answered a ranged GET with
// something other than the requested range.
type RangeNotSupportedError struct {
	Segment      int
	Status       int
	ContentRange string
}

func (e *RangeNotSupportedError) Error() string {
	if e.ContentRange != "" {
		return fmt.Sprintf("segment %d: server returned range %q instead of the requested one", e.Segment, e.ContentRange)
	}
	return fmt.Sprintf("segment %d: server ignored the Range header (status %d)", e.Segment, e.Status)
}

type TimeoutError struct {
	Segment int
	Limit   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("segment %d: timed out after %s", e.Segment, e.Limit)
}

// Timeout lets TimeoutError satisfy the net.Error style check.
func (e *TimeoutError) Timeout() bool { return true }

type SegmentSizeError struct {
	Segment  int
	Expected int64
	Got      int64
}

func (e *SegmentSizeError) Error() string {
	if e.Segment < 0 {
		return fmt.Sprintf("size mismatch: expected %d bytes in total, wrote %d", e.Expected, e.Got)
	}
	return fmt.Sprintf("segment %d: expected %d bytes, received %d", e.Segment, e.Expected, e.Got)
}

type RequestError struct {
	Op  string
	URL string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// WriteError is a failed positioned write in the sink.
type WriteError struct {
	Path   string
	Offset int64
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s at offset %d: %v", e.Path, e.Offset, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// PartFailure ties a part error to its segment.
type PartFailure struct {
	Segment Segment
	Err     error
}

// PartialDownloadFailure aggregates every part that failed on its own (parts
// stopped because a sibling failed are not listed).
type PartialDownloadFailure struct {
	Failures []PartFailure
}

func (e *PartialDownloadFailure) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Err.Error())
	}
	return fmt.Sprintf("download failed (%d part(s)): %s", len(e.Failures), strings.Join(msgs, "; "))
}

func (e *PartialDownloadFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// KindOf maps err to its ErrorKind. A PartialDownloadFailure reports
// KindPartialDownload; inspect it with errors.As for the part causes.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var (
		partial     *PartialDownloadFailure
		loop        *RedirectLoopError
		missing     *MissingLengthError
		status      *UnexpectedStatusError
		space       *InsufficientSpaceError
		spaceQuery  *SpaceQueryError
		alloc       *AllocationError
		rangeFailed *RangeRequestFailedError
		noRange     *RangeNotSupportedError
		timeout     *TimeoutError
		size        *SegmentSizeError
		write       *WriteError
		request     *RequestError
	)
	switch {
	case errors.As(err, &partial):
		return KindPartialDownload
	case errors.As(err, &loop):
		return KindRedirectLoop
	case errors.As(err, &missing):
		return KindMissingLength
	case errors.As(err, &status):
		return KindUnexpectedStatus
	case errors.As(err, &space):
		return KindInsufficientSpace
	case errors.As(err, &spaceQuery):
		return KindSpaceQuery
	case errors.As(err, &alloc):
		return KindAllocation
	case errors.As(err, &rangeFailed):
		return KindRangeRequestFailed
	case errors.As(err, &noRange):
		return KindRangeNotSupported
	case errors.As(err, &timeout):
		return KindTimeout
	case errors.As(err, &size):
		return KindSegmentSize
	case errors.As(err, &write):
		return KindWrite
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.As(err, &request):
		return KindRequest
	case errors.Is(err, ErrInvalidPlan):
		return KindInvalidInput
	default:
		return KindUnknown
	}
}
