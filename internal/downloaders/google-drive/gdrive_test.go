package gdrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/tanq16/splitdl/internal/engine"
	"github.com/tanq16/splitdl/internal/utils"
)

func TestExtractFileID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "https://drive.google.com/file/d/1AbCdEfGhIjKlMnOp/view?usp=sharing", want: "1AbCdEfGhIjKlMnOp"},
		{url: "https://drive.google.com/open?id=1AbCdEfGhIjKlMnOp", want: "1AbCdEfGhIjKlMnOp"},
		{url: "https://drive.google.com/uc?export=download&id=1AbCdEfGhIjKlMnOp", want: "1AbCdEfGhIjKlMnOp"},
		{url: "1AbCdEfGhIjKlMnOp", want: "1AbCdEfGhIjKlMnOp"},
		{url: "https://drive.google.com/drive/folders/1FolderIdValue", wantErr: true},
		{url: "https://example.com/nothing", wantErr: true},
	}
	for _, tt := range tests {
		got, err := extractFileID(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("extractFileID(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("extractFileID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestValidateJobAuthChoice(t *testing.T) {
	creds := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(creds, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name     string
		metadata map[string]any
		wantErr  bool
	}{
		{name: "api key", metadata: map[string]any{"apiKey": "AIzaTest"}},
		{name: "credentials", metadata: map[string]any{"credentialsFile": creds}},
		{name: "neither", metadata: map[string]any{}, wantErr: true},
		{name: "both", metadata: map[string]any{"apiKey": "AIzaTest", "credentialsFile": creds}, wantErr: true},
		{name: "missing credentials", metadata: map[string]any{"credentialsFile": creds + ".missing"}, wantErr: true},
	}
	d := &GDriveDownloader{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &utils.SplitJob{URL: "https://drive.google.com/file/d/1AbCdEfGhIjKlMnOp/view", Metadata: tt.metadata}
			err := d.ValidateJob(job)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateJob() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// newDriveServer serves metadata and media for one file, requiring the
// given key or bearer token.
func newDriveServer(t *testing.T, key, bearer string, data []byte, mimeType string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key != "" && r.URL.Query().Get("key") != key {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if bearer != "" && r.Header.Get("Authorization") != "Bearer "+bearer {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/files/1AbCdEfGhIjKlMnOp" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("alt") == "media" {
			http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(data))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name":"holiday.mov","size":"%d","mimeType":%q}`, len(data), mimeType)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func downloadTarget(t *testing.T, target *utils.DownloadTarget) []byte {
	t.Helper()
	client := utils.NewSplitHTTPClient(utils.HTTPClientConfig{Timeout: 10 * time.Second})
	eng := engine.New(client, engine.Options{Workers: 3, SpaceChecker: engine.SpaceCheckerFunc(func(string) (uint64, error) { return 1 << 40, nil })})
	res, err := eng.Download(context.Background(), target)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if filepath.Base(res.FinalPath) != "holiday.mov" {
		t.Errorf("FinalPath = %q", res.FinalPath)
	}
	got, err := os.ReadFile(res.FinalPath)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestTargetWithAPIKey(t *testing.T) {
	data := bytes.Repeat([]byte("drive"), 10_000)
	srv := newDriveServer(t, "AIzaTest", "", data, "video/quicktime")

	d := &GDriveDownloader{OutputDir: t.TempDir(), APIURL: srv.URL + "/files"}
	job := &utils.SplitJob{URL: "https://drive.google.com/file/d/1AbCdEfGhIjKlMnOp/view", Metadata: map[string]any{"apiKey": "AIzaTest"}}
	if err := d.ValidateJob(job); err != nil {
		t.Fatal(err)
	}
	target, err := d.Target(context.Background(), job)
	if err != nil {
		t.Fatalf("Target() error = %v", err)
	}
	if target.Headers["Authorization"] != "" {
		t.Error("API key mode should not send a bearer token")
	}
	if !strings.Contains(target.SourceURL, "alt=media") || !strings.Contains(target.SourceURL, "key=AIzaTest") {
		t.Errorf("SourceURL = %q", target.SourceURL)
	}
	if got := downloadTarget(t, target); !bytes.Equal(got, data) {
		t.Error("downloaded file differs")
	}
}

func TestTargetRejectsGoogleDocs(t *testing.T) {
	srv := newDriveServer(t, "AIzaTest", "", nil, "application/vnd.google-apps.document")
	d := &GDriveDownloader{OutputDir: t.TempDir(), APIURL: srv.URL + "/files"}
	job := &utils.SplitJob{URL: "1AbCdEfGhIjKlMnOp", Metadata: map[string]any{"apiKey": "AIzaTest"}}
	if err := d.ValidateJob(job); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Target(context.Background(), job); err == nil {
		t.Error("Target() succeeded for a Google Docs file")
	}
}

// newTokenServer issues tokens for the authorization code and refresh
// grants.
func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		var access string
		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			if r.PostForm.Get("code") != "the-code" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			access = "exchanged-token"
		case "refresh_token":
			access = "refreshed-token"
		default:
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  access,
			"token_type":    "Bearer",
			"refresh_token": "refresh-me",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeCredentials(t *testing.T, tokenURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client_secret.json")
	creds := fmt.Sprintf(`{"installed":{"client_id":"cid","client_secret":"csecret","auth_uri":"https://accounts.example.com/auth","token_uri":%q,"redirect_uris":["urn:ietf:wg:oauth:2.0:oob"]}}`, tokenURL)
	if err := os.WriteFile(path, []byte(creds), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAccessTokenCodeExchange(t *testing.T) {
	tokenSrv := newTokenServer(t)
	creds := writeCredentials(t, tokenSrv.URL)
	tokenFile := filepath.Join(t.TempDir(), "cache", "token.json")
	var prompt bytes.Buffer

	token, err := getAccessTokenFromCredentials(context.Background(), creds, tokenFile, strings.NewReader("the-code\n"), &prompt)
	if err != nil {
		t.Fatalf("getAccessTokenFromCredentials() error = %v", err)
	}
	if token != "exchanged-token" {
		t.Errorf("token = %q", token)
	}
	if !strings.Contains(prompt.String(), "client_id=cid") {
		t.Errorf("prompt does not show the authorization URL: %q", prompt.String())
	}
	cached, err := tokenFromFile(tokenFile)
	if err != nil {
		t.Fatalf("token was not cached: %v", err)
	}
	if cached.AccessToken != "exchanged-token" || cached.RefreshToken != "refresh-me" {
		t.Errorf("cached token = %+v", cached)
	}
}

func TestAccessTokenRefreshesExpiredToken(t *testing.T) {
	tokenSrv := newTokenServer(t)
	creds := writeCredentials(t, tokenSrv.URL)
	tokenFile := filepath.Join(t.TempDir(), "token.json")
	expired := &oauth2.Token{AccessToken: "stale", RefreshToken: "refresh-me", Expiry: time.Now().Add(-time.Hour)}
	if err := saveToken(tokenFile, expired); err != nil {
		t.Fatal(err)
	}

	token, err := getAccessTokenFromCredentials(context.Background(), creds, tokenFile, strings.NewReader(""), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("getAccessTokenFromCredentials() error = %v", err)
	}
	if token != "refreshed-token" {
		t.Errorf("token = %q, want refreshed-token", token)
	}
	cached, _ := tokenFromFile(tokenFile)
	if cached == nil || cached.AccessToken != "refreshed-token" {
		t.Errorf("refreshed token was not saved: %+v", cached)
	}
}

func TestAccessTokenExpiredWithoutRefresh(t *testing.T) {
	creds := writeCredentials(t, "http://127.0.0.1:1/token")
	tokenFile := filepath.Join(t.TempDir(), "token.json")
	if err := saveToken(tokenFile, &oauth2.Token{AccessToken: "stale", Expiry: time.Now().Add(-time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if _, err := getAccessTokenFromCredentials(context.Background(), creds, tokenFile, strings.NewReader(""), &bytes.Buffer{}); err == nil {
		t.Error("expected an error for an expired token without a refresh token")
	}
}

func TestTargetWithOAuth(t *testing.T) {
	data := bytes.Repeat([]byte("oauth"), 3_000)
	srv := newDriveServer(t, "", "cached-token", data, "video/quicktime")
	creds := writeCredentials(t, "http://127.0.0.1:1/token")
	tokenFile := filepath.Join(t.TempDir(), "token.json")
	if err := saveToken(tokenFile, &oauth2.Token{AccessToken: "cached-token", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}

	d := &GDriveDownloader{OutputDir: t.TempDir(), APIURL: srv.URL + "/files", TokenFile: tokenFile}
	job := &utils.SplitJob{URL: "https://drive.google.com/file/d/1AbCdEfGhIjKlMnOp/view", Metadata: map[string]any{"credentialsFile": creds}}
	if err := d.ValidateJob(job); err != nil {
		t.Fatal(err)
	}
	target, err := d.Target(context.Background(), job)
	if err != nil {
		t.Fatalf("Target() error = %v", err)
	}
	if target.Headers["Authorization"] != "Bearer cached-token" {
		t.Errorf("Headers = %v", target.Headers)
	}
	if got := downloadTarget(t, target); !bytes.Equal(got, data) {
		t.Error("downloaded file differs")
	}
}
