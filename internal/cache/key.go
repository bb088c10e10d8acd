package cache

import (
	"strings"
	"unicode"
)

// Key identifies a cached song. Both parts are already normalized.
type Key struct {
	Artist string
	Song   string
}

// stripped are removed from names before keying. Changing this set orphans existing cache files.
var stripped = map[rune]bool{
	'\'': true, '’': true, '‘': true, '`': true,
	'-': true, '‐': true, '–': true, '—': true,
	'"': true, '“': true, '”': true,
	'&': true,
	'(': true, ')': true,
	'/': true, '\\': true,
}

// Normalize lowercases s and drops whitespace and the stripped punctuation.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) || stripped[r] {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func NewKey(artist, song string) Key {
	return Key{Artist: Normalize(artist), Song: Normalize(song)}
}

func (k Key) String() string {
	return k.Artist + "_" + k.Song
}

// FileName is lyrics_<artist>_<song>.json.
func (k Key) FileName() string {
	return "lyrics_" + k.String() + ".json"
}

func (k Key) Valid() bool {
	return k.Artist != "" && k.Song != ""
}
