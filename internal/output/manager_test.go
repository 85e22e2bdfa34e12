package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestManagerPlainMode(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(&buf, false)
	m.StartDisplay()

	ok := m.RegisterFunction("clip.mp4")
	bad := m.RegisterFunction("broken.bin")
	m.SetStatus(ok, "active")
	m.SetProgress(ok, 512, 1024)
	m.Complete(ok, "Downloaded clip.mp4")
	m.ReportError(bad, errors.New("range not supported"))
	m.StopDisplay()

	out := buf.String()
	for _, want := range []string{"Downloaded clip.mp4", "Completed 1 of 2", "Failed 1 of 2", "broken.bin", "range not supported"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "A\033[J") {
		t.Error("plain mode emitted cursor movement")
	}
	succeeded, failed := m.Counts()
	if succeeded != 1 || failed != 1 {
		t.Errorf("Counts() = %d, %d", succeeded, failed)
	}
	if m.GetStatus(bad) != "error" || m.GetStatus(99) != "unknown" {
		t.Errorf("GetStatus() = %q, %q", m.GetStatus(bad), m.GetStatus(99))
	}
}

func TestManagerRenderShowsProgress(t *testing.T) {
	m := NewManager(&bytes.Buffer{}, true)
	id := m.RegisterFunction("video.mp4")
	m.SetMessage(id, "Downloading video.mp4")
	m.SetStatus(id, "active")
	m.SetProgress(id, 256*1024, 1024*1024)
	m.RegisterFunction("next.mp4")

	var b strings.Builder
	lines := m.render(&b, 20)
	out := b.String()
	if lines != 3 {
		t.Errorf("render() used %d lines, want 3:\n%s", lines, out)
	}
	for _, want := range []string{"Downloading video.mp4", "25.0%", "256 KiB / 1.0 MiB", "Waiting..."} {
		if !strings.Contains(out, want) {
			t.Errorf("render() missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTrimsCompleted(t *testing.T) {
	m := NewManager(&bytes.Buffer{}, true)
	for range 6 {
		id := m.RegisterFunction("done")
		m.Complete(id, "")
	}
	active := m.RegisterFunction("active")
	m.SetMessage(active, "Downloading active")

	var b strings.Builder
	if lines := m.render(&b, 4); lines != 4 {
		t.Errorf("render() used %d lines, want 4", lines)
	}
	if !strings.Contains(b.String(), "Downloading active") {
		t.Errorf("active job not shown first:\n%s", b.String())
	}
}

func TestPrintProgressBar(t *testing.T) {
	tests := []struct {
		current, total int64
		want           string
	}{
		{current: 0, total: 100, want: "0.0%"},
		{current: 50, total: 100, want: "50.0%"},
		{current: 150, total: 100, want: "100.0%"},
		{current: -5, total: 100, want: "0.0%"},
		{current: 10, total: 0, want: "100.0%"},
	}
	for _, tt := range tests {
		if got := PrintProgressBar(tt.current, tt.total, 20); !strings.Contains(got, tt.want) {
			t.Errorf("PrintProgressBar(%d, %d) = %q, want %s", tt.current, tt.total, got, tt.want)
		}
	}
}
