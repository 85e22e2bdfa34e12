package utils

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"a/b", "a - b"},
		{`a\b`, "a - b"},
		{"what?<now>", "what_now_"},
		{"  padded  ", "padded"},
		{"..", ""},
		{".", ""},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenewOutputPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	for _, p := range []string{path, filepath.Join(dir, "file-(1).bin")} {
		if err := os.WriteFile(p, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	want := filepath.Join(dir, "file-(2).bin")
	if got := RenewOutputPath(path); got != want {
		t.Errorf("RenewOutputPath() = %q, want %q", got, want)
	}

	noExt := filepath.Join(dir, "archive")
	if got := RenewOutputPath(noExt); got != filepath.Join(dir, "archive-(1)") {
		t.Errorf("RenewOutputPath(no ext) = %q", got)
	}
}

func TestSplitOutputPath(t *testing.T) {
	existing := t.TempDir()
	tests := []struct {
		name, in, defaultDir string
		wantDir, wantFile    string
	}{
		{"empty", "", "out", "out", ""},
		{"trailing slash", "downloads/", "out", "downloads", ""},
		{"existing dir", existing, "out", existing, ""},
		{"bare name", "file.bin", "out", "out", "file.bin"},
		{"bare name no default", "file.bin", "", ".", "file.bin"},
		{"nested", filepath.Join("a", "b", "file.bin"), "out", filepath.Join("a", "b"), "file.bin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, file := SplitOutputPath(tt.in, tt.defaultDir)
			if dir != tt.wantDir || file != tt.wantFile {
				t.Errorf("SplitOutputPath(%q, %q) = (%q, %q), want (%q, %q)",
					tt.in, tt.defaultDir, dir, file, tt.wantDir, tt.wantFile)
			}
		})
	}
}

func TestParseHeaderArgs(t *testing.T) {
	got := ParseHeaderArgs([]string{"Authorization: Bearer x:y", "X-Empty:", "malformed"})
	if len(got) != 2 {
		t.Fatalf("ParseHeaderArgs() = %v, want 2 entries", got)
	}
	if got["Authorization"] != "Bearer x:y" {
		t.Errorf("Authorization = %q", got["Authorization"])
	}
	if v, ok := got["X-Empty"]; !ok || v != "" {
		t.Errorf("X-Empty = %q, %v", v, ok)
	}
}

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		bytes   int64
		elapsed float64
		want    string
	}{
		{0, 1, "0 B/s"},
		{100, 0, "0 B/s"},
		{2048, 2, "1.0 KiB/s"},
		{10 << 20, 1, "10 MiB/s"},
	}
	for _, tt := range tests {
		if got := FormatSpeed(tt.bytes, tt.elapsed); got != tt.want {
			t.Errorf("FormatSpeed(%d, %v) = %q, want %q", tt.bytes, tt.elapsed, got, tt.want)
		}
	}
}

func TestGetRandomUserAgent(t *testing.T) {
	for range 20 {
		if ua := GetRandomUserAgent(); !slices.Contains(userAgents, ua) {
			t.Fatalf("GetRandomUserAgent() = %q, not in the list", ua)
		}
	}
}
