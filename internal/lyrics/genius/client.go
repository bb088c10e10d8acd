// Package genius talks to the Genius API and scrapes lyrics from song pages.
package genius

import (
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sukalov/geniusbot/internal/cache"
	"github.com/sukalov/geniusbot/internal/logger"
	"github.com/sukalov/geniusbot/internal/song"
)

const (
	defaultAPIURL = "https://api.genius.com"
	defaultWebURL = "https://genius.com"
)

// Client is the HTTP client for Genius requests.
type Client struct {
	httpClient  *http.Client
	token       string
	apiURL      string
	webURL      string
	userAgent   string
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
}

// NewClient creates a Genius client authenticated with an API access token.
func NewClient(token string) *Client {
	maxRetries, backoff := getRetryConfig()
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				DisableCompression: false,
			},
		},
		token:       token,
		apiURL:      defaultAPIURL,
		webURL:      defaultWebURL,
		userAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		limiter:     rate.NewLimiter(rate.Every(250*time.Millisecond), 2),
		maxRetries:  maxRetries,
		baseBackoff: backoff,
	}
}

// SearchSong finds a song by title and artist and returns its full document with lyrics attached.
// It returns ErrNotFound when the search has no song hits.
func (c *Client) SearchSong(ctx context.Context, title, artist string) (*song.Document, error) {
	hits, err := c.Search(ctx, strings.TrimSpace(title+" "+artist))
	if err != nil {
		return nil, err
	}
	hit, ok := pickHit(hits, artist)
	if !ok {
		return nil, &Error{Op: "search", Err: ErrNotFound}
	}

	fields, err := c.Song(ctx, hit.ID)
	if err != nil {
		return nil, err
	}

	path := hit.Path
	if p, ok := fields["path"].(string); ok && p != "" {
		path = p
	}
	text, err := c.Lyrics(ctx, path)
	switch {
	case errors.Is(err, ErrNoLyrics):
		// instrumentals and unreleased songs have no lyrics container
		logger.Debug("genius page has no lyrics", zap.String("path", path))
		fields["lyrics"] = nil
	case err != nil:
		return nil, err
	default:
		fields["lyrics"] = text
	}

	return song.FromValue(fields)
}

// Search runs a free-text search and returns the song hits.
func (c *Client) Search(ctx context.Context, query string) ([]Hit, error) {
	params := url.Values{}
	params.Add("q", query)

	var resp searchResponse
	if err := c.getAPI(ctx, "search", "/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		if h.Type != "" && h.Type != "song" {
			continue
		}
		hits = append(hits, Hit{
			ID:            h.Result.ID,
			Title:         h.Result.Title,
			PrimaryArtist: h.Result.PrimaryArtist.Name,
			Path:          h.Result.Path,
		})
	}
	return hits, nil
}

// Song returns the full song object as loosely typed fields.
func (c *Client) Song(ctx context.Context, id int64) (map[string]any, error) {
	var resp songResponse
	if err := c.getAPI(ctx, "song", fmt.Sprintf("/songs/%d?text_format=plain", id), &resp); err != nil {
		return nil, err
	}
	if resp.Song == nil {
		return nil, &Error{Op: "song", Err: ErrNotFound}
	}
	return resp.Song, nil
}

// pickHit prefers the first hit whose primary artist matches artist, else the first hit.
func pickHit(hits []Hit, artist string) (Hit, bool) {
	if len(hits) == 0 {
		return Hit{}, false
	}
	want := cache.Normalize(artist)
	for _, h := range hits {
		if cache.Normalize(h.PrimaryArtist) == want {
			return h, true
		}
	}
	return hits[0], true
}

func (c *Client) getAPI(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return &Error{Op: op, Err: errors.Wrap(err, "create request")}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	body, err := c.fetch(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &Error{Op: op, Err: errors.Wrap(err, "decode response")}
	}
	if len(env.Response) == 0 || string(env.Response) == "null" {
		return &Error{Op: op, Err: ErrNotFound}
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return &Error{Op: op, Err: errors.Wrap(err, "decode response body")}
	}
	return nil
}

// fetch performs req with pacing and retries and returns the (decompressed) body.
func (c *Client) fetch(req *http.Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, errors.Wrap(err, "wait for rate limiter")
		}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, errors.Wrapf(ErrServer, "status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "create gzip reader")
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}
	return body, nil
}
