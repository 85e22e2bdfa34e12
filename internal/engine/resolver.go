package engine

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tanq16/splitdl/internal/utils"
)

var extensionPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,8}$`)

// ResolvedResource describes the terminal URL of a target. TotalSize is
// authoritative for everything that follows.
type ResolvedResource struct {
	FinalURL    string
	TotalSize   int64
	Filename    string
	Extension   string
	ContentType string
	Hops        int
}

// Resolver walks the redirect chain of a target with HEAD requests until
// it reaches a 200 carrying a Content-Length.
type Resolver struct {
	Client         utils.HTTPDoer
	MaxHops        int
	RequestTimeout time.Duration
}

func (r *Resolver) Resolve(ctx context.Context, target *utils.DownloadTarget) (*ResolvedResource, error) {
	referer := refererFor(target)
	start := target.SourceURL
	if target.ProbeURL != "" {
		start = target.ProbeURL
	}
	current, err := url.Parse(start)
	if err != nil {
		return nil, &RequestError{Op: "HEAD", URL: start, Err: err}
	}
	for hops := 0; ; hops++ {
		resp, err := r.head(ctx, current.String(), referer, target.Headers)
		if err != nil {
			return nil, &RequestError{Op: "HEAD", URL: current.String(), Err: err}
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			raw := resp.Header.Get("Content-Length")
			size, err := strconv.ParseInt(raw, 10, 64)
			if raw == "" || err != nil || size < 0 {
				return nil, &MissingLengthError{URL: current.String(), Value: raw}
			}
			res := &ResolvedResource{
				FinalURL:    current.String(),
				TotalSize:   size,
				Filename:    filenameFromDisposition(resp.Header.Get("Content-Disposition")),
				Extension:   extensionOf(current),
				ContentType: resp.Header.Get("Content-Type"),
				Hops:        hops,
			}
			if target.ProbeURL != "" {
				// The probe only answers for HEAD; ranged GETs go to SourceURL.
				res.FinalURL = target.SourceURL
				if source, err := url.Parse(target.SourceURL); err == nil {
					res.Extension = extensionOf(source)
				}
			}
			log.Debug().Str("op", "engine/resolve").Str("url", res.FinalURL).Int64("size", size).Int("hops", hops).Msg("resolved")
			return res, nil

		case isRedirect(resp.StatusCode):
			location := resp.Header.Get("Location")
			if location == "" {
				return nil, &UnexpectedStatusError{URL: current.String(), Status: resp.StatusCode}
			}
			if hops >= r.MaxHops {
				return nil, &RedirectLoopError{Hops: r.MaxHops, LastURL: current.String()}
			}
			// Parse resolves relative and protocol-relative ("//host/x")
			// locations against the current URL, inheriting its scheme.
			next, err := current.Parse(location)
			if err != nil {
				return nil, &RequestError{Op: "redirect", URL: location, Err: err}
			}
			log.Debug().Str("op", "engine/resolve").Int("status", resp.StatusCode).Str("from", current.String()).Str("to", next.String()).Msg("following redirect")
			current = next

		default:
			return nil, &UnexpectedStatusError{URL: current.String(), Status: resp.StatusCode}
		}
	}
}

func (r *Resolver) head(ctx context.Context, rawURL, referer string, headers map[string]string) (*http.Response, error) {
	if r.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.RequestTimeout)
		defer cancel()
	}
	req, err := newRequest(ctx, http.MethodHead, rawURL, referer, headers)
	if err != nil {
		return nil, err
	}
	return r.Client.Do(req)
}

// newRequest builds a request carrying the target headers and the referer.
func newRequest(ctx context.Context, method, rawURL, referer string, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	return req, nil
}

func refererFor(target *utils.DownloadTarget) string {
	if target.Referer != "" {
		return target.Referer
	}
	return target.SourceURL
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	if fn := params["filename"]; fn != "" {
		return utils.SanitizeFilename(fn)
	}
	return ""
}

func extensionOf(u *url.URL) string {
	ext := path.Ext(u.Path)
	if !extensionPattern.MatchString(ext) {
		return ""
	}
	return strings.ToLower(ext)
}
