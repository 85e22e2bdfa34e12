package ghrelease

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/tanq16/splitdl/internal/utils"
)

type release struct {
	TagName string  `json:"tag_name"`
	Assets  []asset `json:"assets"`
}

type asset struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"browser_download_url"`
}

var assetSelectMap = map[string][]string{
	"linuxamd64":   {"linux-amd64", "linux_amd64", "linux-x86_64", "linux-x86-64", "linux_x86_64", "linux_x86-64", "amd64-linux", "x86_64-linux", "x86-64-linux", "amd64_linux", "x86_64_linux", "x86-64_linux"},
	"linuxarm64":   {"linux-arm64", "linux_arm64", "linux-aarch64", "linux_aarch64", "arm64-linux", "aarch64-linux", "arm64_linux", "aarch64_linux"},
	"windowsamd64": {"windows-amd64", "windows_amd64", "windows-x86_64", "windows-x86-64", "windows_x86_64", "windows_x86-64", "amd64-windows", "x86_64-windows", "x86-64-windows", "amd64_windows", "x86_64_windows", "x86-64_windows"},
	"windowsarm64": {"windows-arm64", "windows_arm64", "windows-aarch64", "windows_aarch64", "arm64-windows", "aarch64-windows", "arm64_windows", "aarch64_windows"},
	"darwinamd64":  {"darwin-amd64", "darwin_amd64", "darwin-x86_64", "darwin-x86-64", "darwin_x86_64", "darwin_x86-64", "amd64-darwin", "x86_64-darwin", "x86-64-darwin", "amd64_darwin", "x86_64_darwin", "x86-64_darwin"},
	"darwinarm64":  {"darwin-arm64", "darwin_arm64", "darwin-aarch64", "darwin_aarch64", "arm64-darwin", "aarch64-darwin", "arm64_darwin", "aarch64_darwin"},
}

// assetSelectMapFallback keywords are scored when no exact platform pair
// matches; an asset needs at least two hits.
var assetSelectMapFallback = map[string][]string{
	"linuxamd64":   {"linux", "gnu", "x86-64", "x86_64", "amd64"},
	"linuxarm64":   {"linux", "gnu", "aarch64", "arm64"},
	"windowsamd64": {"windows", "exe", "x86-64", "x86_64", "amd64"},
	"windowsarm64": {"windows", "exe", "aarch64", "arm64"},
	"darwinamd64":  {"darwin", "apple", "macos", "x86-64", "x86_64", "amd64"},
	"darwinarm64":  {"darwin", "apple", "macos", "aarch64", "arm64"},
}

var repoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+)/?.*$`),
	regexp.MustCompile(`^github\.com/([^/]+)/([^/]+)/?.*$`),
	regexp.MustCompile(`^([^/]+)/([^/]+)$`),
}

var ignoredAssets = []string{
	"license", "readme", "changelog", "checksums", "sha256checksum", ".sha256", ".sig", ".pem",
}

func parseGitHubURL(url string) (string, string, error) {
	url = strings.TrimSuffix(strings.TrimSpace(url), "/")
	for _, pattern := range repoPatterns {
		matches := pattern.FindStringSubmatch(url)
		if len(matches) >= 3 {
			return matches[1], strings.TrimSuffix(matches[2], ".git"), nil
		}
	}
	return "", "", fmt.Errorf("invalid GitHub repository format: %s", url)
}

func getLatestRelease(ctx context.Context, client utils.HTTPDoer, apiURL, owner, repo string) (*release, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases/latest", strings.TrimSuffix(apiURL, "/"), owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating API request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making API request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status code: %d", resp.StatusCode)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("error decoding API response: %w", err)
	}
	if len(rel.Assets) == 0 {
		return nil, fmt.Errorf("no assets found in release %s", rel.TagName)
	}
	return &rel, nil
}

func isIgnored(name string) bool {
	for _, ignored := range ignoredAssets {
		if strings.Contains(name, ignored) {
			return true
		}
	}
	return false
}

// selectAsset returns the first asset naming the exact platform pair, else
// the best fallback match, else nil.
func selectAsset(assets []asset, platformKey string) *asset {
	var best *asset
	bestScore := 1
	for i := range assets {
		name := strings.ToLower(assets[i].Name)
		if isIgnored(name) {
			continue
		}
		for _, key := range assetSelectMap[platformKey] {
			if strings.Contains(name, key) {
				return &assets[i]
			}
		}
		score := 0
		for _, key := range assetSelectMapFallback[platformKey] {
			if strings.Contains(name, key) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = &assets[i], score
		}
	}
	return best
}

func promptAssetSelection(rel *release, in io.Reader, out io.Writer) (*asset, error) {
	fmt.Fprintf(out, "Release: %s\nAvailable assets:\n", rel.TagName)
	for i, a := range rel.Assets {
		fmt.Fprintf(out, "%d. %s (%s)\n", i+1, a.Name, humanize.IBytes(uint64(max(a.Size, 0))))
	}
	fmt.Fprint(out, "\nEnter the number of the asset to download: ")
	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	selection, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return nil, fmt.Errorf("invalid selection: %w", err)
	}
	if selection < 1 || selection > len(rel.Assets) {
		return nil, fmt.Errorf("selection out of range")
	}
	return &rel.Assets[selection-1], nil
}
