package genius

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchJSON = `{"meta":{"status":200},"response":{"hits":[
  {"type":"song","result":{"id":1,"title":"Lose Yourself (Demo)","path":"/Someone-else","primary_artist":{"name":"Cover Band"}}},
  {"type":"song","result":{"id":2,"title":"Lose Yourself","path":"/Eminem-lose-yourself-lyrics","primary_artist":{"name":"Eminem"}}}
]}}`

const songJSON = `{"meta":{"status":200},"response":{"song":{
  "id":2,"title":"Lose Yourself","path":"/Eminem-lose-yourself-lyrics",
  "primary_artist":{"name":"Eminem"},
  "album":{"name":"8 Mile"},
  "description":{"plain":"An anthem."}
}}}`

const pageHTML = `<html><body>
<div data-lyrics-container="true">[Verse 1]<br/>Look, if you had<br/>One shot<br/><span data-exclude-from-selection="true">Embed</span>[Chorus]<br/>You better</div>
</body></html>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient("token")
	c.httpClient = server.Client()
	c.apiURL = server.URL
	c.webURL = server.URL
	c.limiter = nil
	c.baseBackoff = time.Millisecond
	return c
}

func TestClient_SearchSong(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
			assert.Equal(t, "Lose Yourself Eminem", r.URL.Query().Get("q"))
			w.Write([]byte(searchJSON))
		case "/songs/2":
			assert.Equal(t, "plain", r.URL.Query().Get("text_format"))
			w.Write([]byte(songJSON))
		case "/Eminem-lose-yourself-lyrics":
			w.Write([]byte(pageHTML))
		default:
			t.Errorf("unexpected request %s", r.URL)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	doc, err := c.SearchSong(context.Background(), "Lose Yourself", "Eminem")
	require.NoError(t, err)
	assert.Equal(t, "Lose Yourself", doc.Title())
	assert.Equal(t, "Eminem", doc.PrimaryArtist())
	assert.Equal(t, "8 Mile", doc.Album())
	assert.Equal(t, "[Verse 1]\nLook, if you had\nOne shot\n\n[Chorus]\nYou better", doc.Lyrics())
}

func TestClient_SearchSong_NoHits(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta":{"status":200},"response":{"hits":[]}}`))
	})

	_, err := c.SearchSong(context.Background(), "zzz", "nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, "search", gerr.Op)
}

func TestClient_SearchSong_NoLyricsContainer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			w.Write([]byte(searchJSON))
		case "/songs/2":
			w.Write([]byte(songJSON))
		default:
			w.Write([]byte(`<html><body>instrumental</body></html>`))
		}
	})

	doc, err := c.SearchSong(context.Background(), "Lose Yourself", "Eminem")
	require.NoError(t, err)
	assert.Equal(t, "", doc.Lyrics())
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantErr  error
		attempts int
	}{
		{name: "not found", status: http.StatusNotFound, wantErr: ErrNotFound, attempts: 1},
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: ErrRateLimited, attempts: 3},
		{name: "server error", status: http.StatusBadGateway, wantErr: ErrServer, attempts: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				attempts++
				w.WriteHeader(tt.status)
			})
			c.maxRetries = 3

			_, err := c.Search(context.Background(), "anything")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, tt.attempts, attempts)
		})
	}
}

func TestClient_RetryThenSuccess(t *testing.T) {
	attempts := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"meta":{"status":200},"response":{"hits":[]}}`))
	})
	c.maxRetries = 3

	hits, err := c.Search(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 3, attempts)
}

func TestPickHit(t *testing.T) {
	hits := []Hit{
		{ID: 1, PrimaryArtist: "Someone"},
		{ID: 2, PrimaryArtist: "JAY-Z"},
	}

	got, ok := pickHit(hits, "jay z")
	require.True(t, ok)
	assert.Equal(t, int64(2), got.ID)

	got, ok = pickHit(hits, "unknown")
	require.True(t, ok)
	assert.Equal(t, int64(1), got.ID)

	_, ok = pickHit(nil, "x")
	assert.False(t, ok)
}

func TestCleanLyrics(t *testing.T) {
	got := cleanLyrics("  [Intro]\nYo\n[Verse 1]\n a \n\n\n\nb ")
	assert.Equal(t, "[Intro]\nYo\n\n[Verse 1]\na\n\nb", got)
}
