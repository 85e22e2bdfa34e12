package engine

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tanq16/splitdl/internal/utils"
)

func testClient() utils.HTTPDoer {
	return utils.NewSplitHTTPClient(utils.HTTPClientConfig{Timeout: 10 * time.Second})
}

func testPayload(size int) []byte {
	r := rand.New(rand.NewPCG(uint64(size), 42))
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(r.UintN(256))
	}
	return data
}

// newRangeServer serves data with full HEAD and Range support.
func newRangeServer(t *testing.T, name string, data []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func parseRangeHeader(t *testing.T, r *http.Request) (int64, int64) {
	t.Helper()
	var start, end int64
	if _, err := fmt.Sscanf(r.Header.Get("Range"), "bytes=%d-%d", &start, &end); err != nil {
		t.Errorf("bad Range header %q: %v", r.Header.Get("Range"), err)
	}
	return start, end
}

func target(url, dir string) *utils.DownloadTarget {
	return &utils.DownloadTarget{SourceURL: url, DestinationDir: dir}
}
