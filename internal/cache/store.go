// Package cache persists fetched song documents on disk, keyed by normalized artist and song.
//
// Entries never expire. A small in-memory LRU sits in front of the files; the files stay the
// source of truth.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sukalov/geniusbot/internal/song"
)

var ErrInvalidKey = errors.New("cache: artist and song must not normalize to empty")

type Store struct {
	dir string
	mem *lru.Cache[Key, *song.Document]
}

// New opens (creating if needed) the cache directory. memorySize <= 0 disables the memory layer.
func New(dir string, memorySize int) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", abs, err)
	}

	s := &Store{dir: abs}
	if memorySize > 0 {
		s.mem, err = lru.New[Key, *song.Document](memorySize)
		if err != nil {
			return nil, fmt.Errorf("create memory cache: %w", err)
		}
	}
	return s, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute file path for key.
func (s *Store) Path(key Key) string {
	return filepath.Join(s.dir, key.FileName())
}

// Lookup returns the document for key; ok is false on a miss.
func (s *Store) Lookup(key Key) (*song.Document, bool, error) {
	if !key.Valid() {
		return nil, false, ErrInvalidKey
	}
	if s.mem != nil {
		if doc, ok := s.mem.Get(key); ok {
			return doc, true, nil
		}
	}

	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry %s: %w", key, err)
	}

	doc, err := song.Parse(data)
	if err != nil {
		return nil, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	if s.mem != nil {
		s.mem.Add(key, doc)
	}
	return doc, true, nil
}

// Store writes doc under key, replacing any previous entry.
func (s *Store) Store(key Key, doc *song.Document) error {
	if !key.Valid() {
		return ErrInvalidKey
	}
	if doc == nil || len(doc.Bytes()) == 0 {
		return fmt.Errorf("store cache entry %s: empty document", key)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+key.FileName())
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(doc.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache entry %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(key)); err != nil {
		return fmt.Errorf("commit cache entry %s: %w", key, err)
	}

	if s.mem != nil {
		s.mem.Add(key, doc)
	}
	return nil
}

// Count returns the number of entries on disk.
func (s *Store) Count() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "lyrics_*.json"))
	if err != nil {
		return 0, fmt.Errorf("list cache entries: %w", err)
	}
	return len(matches), nil
}
