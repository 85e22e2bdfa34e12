package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/tanq16/splitdl/internal/utils"
)

var (
	driveFileRegex      = regexp.MustCompile(`https://drive\.google\.com/file/d/([^/?]+)`)
	driveShortLinkRegex = regexp.MustCompile(`https://drive\.google\.com/open\?id=([^&\s]+)`)
	driveFolderRegex    = regexp.MustCompile(`https://drive\.google\.com/drive/folders/([^/?]+)`)
	driveIDRegex        = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}$`)
)

const (
	driveAPIURL        = "https://www.googleapis.com/drive/v3/files"
	googleAppsMimeType = "application/vnd.google-apps."
)

type fileMetadata struct {
	Name     string `json:"name"`
	Size     string `json:"size"`
	MimeType string `json:"mimeType"`
}

func (m fileMetadata) size() int64 {
	n, _ := strconv.ParseInt(m.Size, 10, 64)
	return n
}

// auth is either an API key (query parameter) or an OAuth access token
// (bearer header).
type auth struct {
	apiKey      string
	accessToken string
}

func (a auth) query(values url.Values) url.Values {
	if a.apiKey != "" {
		values.Set("key", a.apiKey)
	}
	return values
}

func (a auth) headers() map[string]string {
	if a.accessToken == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + a.accessToken}
}

func extractFileID(rawURL string) (string, error) {
	if driveFolderRegex.MatchString(rawURL) {
		return "", fmt.Errorf("folders cannot be split into ranges: %s", rawURL)
	}
	if matches := driveFileRegex.FindStringSubmatch(rawURL); len(matches) > 1 {
		return matches[1], nil
	}
	if matches := driveShortLinkRegex.FindStringSubmatch(rawURL); len(matches) > 1 {
		return matches[1], nil
	}
	if driveIDRegex.MatchString(rawURL) {
		return rawURL, nil
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if id := parsedURL.Query().Get("id"); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("unable to extract file ID from URL: %s", rawURL)
}

func mediaURL(apiURL, fileID string, a auth) string {
	return fmt.Sprintf("%s/%s?%s", apiURL, url.PathEscape(fileID), a.query(url.Values{"alt": {"media"}}).Encode())
}

func getFileMetadata(ctx context.Context, client utils.HTTPDoer, apiURL, fileID string, a auth) (*fileMetadata, error) {
	metadataURL := fmt.Sprintf("%s/%s?%s", apiURL, url.PathEscape(fileID), a.query(url.Values{"fields": {"name,size,mimeType"}}).Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range a.headers() {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching file metadata: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get file metadata, status: %d", resp.StatusCode)
	}
	var metadata fileMetadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("error parsing metadata response: %w", err)
	}
	if strings.HasPrefix(metadata.MimeType, googleAppsMimeType) {
		return nil, fmt.Errorf("%s is a %s document and has no binary content", metadata.Name, metadata.MimeType)
	}
	return &metadata, nil
}
