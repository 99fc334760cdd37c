package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yourusername/chronos-console/internal/metrics"
)

// Fetcher loads playlists from a file path or an http(s) URL
type Fetcher struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewFetcher creates a playlist fetcher
func NewFetcher(logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With().Str("component", "playlist-fetcher").Logger(),
	}
}

// Fetch loads and parses the playlist at location
func (f *Fetcher) Fetch(ctx context.Context, location string) (*Playlist, error) {
	scheme := schemeOf(location)
	start := time.Now()
	defer func() {
		metrics.PlaylistFetchDuration.WithLabelValues(scheme).Observe(time.Since(start).Seconds())
	}()

	var (
		body io.ReadCloser
		err  error
	)
	if scheme == "http" {
		body, err = f.get(ctx, location)
	} else {
		body, err = os.Open(strings.TrimPrefix(location, "file://"))
	}
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("navigation").Inc()
		return nil, fmt.Errorf("fetch playlist: %w", err)
	}
	defer body.Close()

	p, err := ParsePlaylist(body)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("navigation").Inc()
		return nil, fmt.Errorf("parse playlist: %w", err)
	}

	f.logger.Debug().
		Str("location", location).
		Int("segments", len(p.Segments)).
		Msg("Playlist fetched")
	return p, nil
}

func (f *Fetcher) get(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("request failed with status: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func schemeOf(location string) string {
	u, err := url.Parse(location)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return "http"
	}
	return "file"
}
