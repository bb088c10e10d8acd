package genius

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for Genius operations.
var (
	ErrNotFound    = errors.New("genius: not found")
	ErrRateLimited = errors.New("genius: rate limited by server")
	ErrServer      = errors.New("genius: server error")
	ErrNoLyrics    = errors.New("genius: no lyrics found on page")
)

// Error wraps an underlying error with the operation that failed.
type Error struct {
	Op  string // "search", "song", "lyrics"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("genius %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type envelope struct {
	Meta struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"meta"`
	Response json.RawMessage `json:"response"`
}

// Hit is one search result.
type Hit struct {
	ID            int64
	Title         string
	PrimaryArtist string
	Path          string
}

type searchResponse struct {
	Hits []struct {
		Type   string `json:"type"`
		Result struct {
			ID            int64  `json:"id"`
			Title         string `json:"title"`
			Path          string `json:"path"`
			PrimaryArtist struct {
				Name string `json:"name"`
			} `json:"primary_artist"`
		} `json:"result"`
	} `json:"hits"`
}

type songResponse struct {
	Song map[string]any `json:"song"`
}
