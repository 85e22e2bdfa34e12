package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{err: nil, want: KindNone},
		{err: &RedirectLoopError{Hops: 10}, want: KindRedirectLoop},
		{err: fmt.Errorf("resolve: %w", &MissingLengthError{}), want: KindMissingLength},
		{err: &UnexpectedStatusError{Status: 500}, want: KindUnexpectedStatus},
		{err: &InsufficientSpaceError{Required: 2, Available: 1}, want: KindInsufficientSpace},
		{err: &AllocationError{Err: errors.New("denied")}, want: KindAllocation},
		{err: &RangeRequestFailedError{Status: 416}, want: KindRangeRequestFailed},
		{err: &RangeNotSupportedError{Status: 200}, want: KindRangeNotSupported},
		{err: &TimeoutError{Limit: time.Second}, want: KindTimeout},
		{err: &SegmentSizeError{Segment: -1}, want: KindSegmentSize},
		{err: &RequestError{Op: "GET", Err: errors.New("reset")}, want: KindRequest},
		{err: &RequestError{Op: "GET", Err: context.Canceled}, want: KindCanceled},
		{err: context.DeadlineExceeded, want: KindCanceled},
		{err: errors.New("other"), want: KindUnknown},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestPartialDownloadFailureUnwraps(t *testing.T) {
	timeout := &TimeoutError{Segment: 1, Limit: time.Minute}
	status := &RangeRequestFailedError{Segment: 3, Status: 503}
	err := error(&PartialDownloadFailure{Failures: []PartFailure{
		{Segment: Segment{Index: 1}, Err: timeout},
		{Segment: Segment{Index: 3}, Err: status},
	}})

	if KindOf(err) != KindPartialDownload {
		t.Errorf("KindOf() = %v", KindOf(err))
	}
	var gotTimeout *TimeoutError
	if !errors.As(err, &gotTimeout) || gotTimeout != timeout {
		t.Error("PartialDownloadFailure does not expose the timeout")
	}
	if !errors.Is(err, status) {
		t.Error("PartialDownloadFailure does not expose the status failure")
	}
}

func TestErrorKindString(t *testing.T) {
	if KindInsufficientSpace.String() != "insufficient-space" {
		t.Errorf("String() = %q", KindInsufficientSpace.String())
	}
	if ErrorKind(999).String() != "kind(999)" {
		t.Errorf("String() = %q", ErrorKind(999).String())
	}
}
