// Package song wraps the loosely structured song metadata document returned by the lyrics service.
//
// Every accessor tolerates missing or null fields and returns the zero value instead.
package song

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// Document is a raw song metadata document as stored in the cache.
type Document struct {
	raw []byte
}

// Credit is one custom performance credit group.
type Credit struct {
	Label   string
	Artists []string
}

// Relation is one related-song edge group.
type Relation struct {
	Type   string
	Titles []string
}

// Parse validates that data is a JSON object and wraps it.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("song document is not valid JSON")
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("song document is not a JSON object")
	}
	raw := make([]byte, len(data))
	copy(raw, data)
	return &Document{raw: raw}, nil
}

// FromValue marshals v (typically a map decoded from the service) into a Document.
func FromValue(v any) (*Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal song document: %w", err)
	}
	return Parse(data)
}

func (d *Document) Bytes() []byte {
	if d == nil {
		return nil
	}
	return d.raw
}

// MarshalJSON lets a Document embed in other JSON values unchanged.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d == nil || len(d.raw) == 0 {
		return []byte("null"), nil
	}
	return d.raw, nil
}

func (d *Document) get(path string) gjson.Result {
	if d == nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(d.raw, path)
}

// str returns the string at path, or "" when absent, null or not a scalar.
func (d *Document) str(path string) string {
	r := d.get(path)
	if !r.Exists() || r.Type == gjson.Null || r.IsObject() || r.IsArray() {
		return ""
	}
	return strings.TrimSpace(r.String())
}

func (d *Document) names(path string) []string {
	var out []string
	d.get(path).ForEach(func(_, v gjson.Result) bool {
		if name := strings.TrimSpace(v.Get("name").String()); name != "" {
			out = append(out, name)
		}
		return true
	})
	return out
}

// HasTitle reports whether the one required field is present.
func (d *Document) HasTitle() bool {
	return d.Title() != ""
}

func (d *Document) Title() string         { return d.str("title") }
func (d *Document) Lyrics() string        { return d.get("lyrics").String() }
func (d *Document) PrimaryArtist() string { return d.str("primary_artist.name") }
func (d *Document) FeaturedArtists() []string {
	return d.names("featured_artists")
}
func (d *Document) Producers() []string { return d.names("producer_artists") }
func (d *Document) Writers() []string   { return d.names("writer_artists") }
func (d *Document) Album() string       { return d.str("album.name") }
func (d *Document) ReleaseDate() string { return d.str("release_date") }

// RecordingLocation is absent on most songs.
func (d *Document) RecordingLocation() string { return d.str("recording_location") }

// Description is the plain-text description; "?" is the service's "no description" placeholder.
func (d *Document) Description() string {
	desc := d.get("description")
	var text string
	switch {
	case desc.IsObject():
		text = strings.TrimSpace(desc.Get("plain").String())
		if text == "" {
			text = htmlToText(desc.Get("html").String())
		}
	case desc.Type == gjson.String:
		text = strings.TrimSpace(desc.String())
	}
	if text == "?" {
		return ""
	}
	return text
}

func htmlToText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div>" + fragment + "</div>"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}

// Credits groups custom performances by label in first-seen order.
func (d *Document) Credits() []Credit {
	var out []Credit
	pos := map[string]int{}
	d.get("custom_performances").ForEach(func(_, v gjson.Result) bool {
		label := strings.TrimSpace(v.Get("label").String())
		if label == "" {
			return true
		}
		i, ok := pos[label]
		if !ok {
			i = len(out)
			pos[label] = i
			out = append(out, Credit{Label: label})
		}
		v.Get("artists").ForEach(func(_, a gjson.Result) bool {
			if name := strings.TrimSpace(a.Get("name").String()); name != "" {
				out[i].Artists = append(out[i].Artists, name)
			}
			return true
		})
		return true
	})
	return out
}

// Relations groups song_relationships by type in first-seen order.
// The service uses "relationship_type" on newer payloads and "type" on older ones.
func (d *Document) Relations() []Relation {
	var out []Relation
	pos := map[string]int{}
	d.get("song_relationships").ForEach(func(_, v gjson.Result) bool {
		kind := strings.TrimSpace(v.Get("relationship_type").String())
		if kind == "" {
			kind = strings.TrimSpace(v.Get("type").String())
		}
		if kind == "" {
			return true
		}
		i, ok := pos[kind]
		if !ok {
			i = len(out)
			pos[kind] = i
			out = append(out, Relation{Type: kind})
		}
		v.Get("songs").ForEach(func(_, s gjson.Result) bool {
			title := strings.TrimSpace(s.Get("title").String())
			if title == "" {
				title = strings.TrimSpace(s.Get("full_title").String())
			}
			if title != "" {
				out[i].Titles = append(out[i].Titles, title)
			}
			return true
		})
		return true
	})
	return out
}
