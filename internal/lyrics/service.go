package lyrics

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sukalov/geniusbot/internal/cache"
	"github.com/sukalov/geniusbot/internal/logger"
	"github.com/sukalov/geniusbot/internal/lyrics/genius"
	"github.com/sukalov/geniusbot/internal/song"
)

// ErrNotFound means the lyrics service has no match for the request. It is never retried.
var ErrNotFound = errors.New("lyrics: song not found")

// Searcher is the external lyrics service.
type Searcher interface {
	SearchSong(ctx context.Context, title, artist string) (*song.Document, error)
}

// Store is the durable document cache.
type Store interface {
	Lookup(key cache.Key) (*song.Document, bool, error)
	Store(key cache.Key, doc *song.Document) error
}

// Result is a resolved document and where it came from.
type Result struct {
	Doc    *song.Document
	Key    cache.Key
	Cached bool
}

// Service resolves songs from the cache, falling back to the lyrics service.
type Service struct {
	searcher Searcher
	store    Store
}

func NewService(searcher Searcher, store Store) *Service {
	return &Service{searcher: searcher, store: store}
}

// Resolve looks the song up in the cache and fetches it on a miss.
func (s *Service) Resolve(ctx context.Context, artist, title string) (Result, error) {
	key := cache.NewKey(artist, title)
	if !key.Valid() {
		return Result{}, fmt.Errorf("resolve %q by %q: %w", title, artist, ErrNotFound)
	}

	doc, ok, err := s.store.Lookup(key)
	if err != nil {
		// a corrupt entry is refetched and overwritten
		logger.Error("cache lookup failed", zap.String("key", key.String()), zap.Error(err))
	}
	if ok {
		logger.Debug("cache hit", zap.String("key", key.String()))
		return Result{Doc: doc, Key: key, Cached: true}, nil
	}

	return s.Fetch(ctx, artist, title)
}

// Fetch queries the lyrics service and stores the document under the key built from the
// canonical artist and title the service returned. When the request was spelled differently,
// the document is also stored under the request key so the same spelling hits the cache next time.
func (s *Service) Fetch(ctx context.Context, artist, title string) (Result, error) {
	logger.Debug("fetching song", zap.String("artist", artist), zap.String("title", title))

	doc, err := s.searcher.SearchSong(ctx, title, artist)
	if errors.Is(err, genius.ErrNotFound) {
		return Result{}, fmt.Errorf("fetch %q by %q: %w", title, artist, ErrNotFound)
	}
	if err != nil {
		return Result{}, fmt.Errorf("fetch %q by %q: %w", title, artist, err)
	}
	if doc == nil {
		return Result{}, fmt.Errorf("fetch %q by %q: %w", title, artist, ErrNotFound)
	}

	requested := cache.NewKey(artist, title)
	key := cache.NewKey(doc.PrimaryArtist(), doc.Title())
	if !key.Valid() {
		key = requested
	}
	s.save(key, doc)
	if requested.Valid() && requested != key {
		s.save(requested, doc)
	}

	return Result{Doc: doc, Key: key}, nil
}

func (s *Service) save(key cache.Key, doc *song.Document) {
	if err := s.store.Store(key, doc); err != nil {
		logger.Error("cache store failed", zap.String("key", key.String()), zap.Error(err))
		return
	}
	logger.Debug("cached song", zap.String("key", key.String()))
}
