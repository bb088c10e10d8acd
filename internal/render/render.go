// Package render formats reply text for each view.
//
// Replies use the forum's light markup: **bold** and --- rules, paragraphs separated by a blank line.
package render

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sukalov/geniusbot/internal/command"
	"github.com/sukalov/geniusbot/internal/lyrics"
	"github.com/sukalov/geniusbot/internal/song"
)

// ErrMissingTitle is the one document defect that aborts rendering.
var ErrMissingTitle = errors.New("render: document has no title")

const (
	NoLyrics    = "Lyrics not available."
	NoSections  = "None of the requested sections were found."
	NoRelations = "No related songs."
	NoCredits   = "No additional credits."

	rule = "---"
	// MaxReplyLength is the forum's comment size limit.
	MaxReplyLength = 10000
)

type Renderer struct {
	extractor *lyrics.Extractor
}

func New(extractor *lyrics.Extractor) *Renderer {
	if extractor == nil {
		extractor = lyrics.NewExtractor(nil)
	}
	return &Renderer{extractor: extractor}
}

// Render builds the reply for cmd from doc.
func (r *Renderer) Render(cmd command.Command, doc *song.Document) (string, error) {
	if doc == nil || !doc.HasTitle() {
		return "", ErrMissingTitle
	}

	switch cmd.View {
	case command.ViewLyrics:
		return r.lyrics(cmd, doc), nil
	case command.ViewShortInfo:
		return shortInfo(doc), nil
	case command.ViewLongInfo:
		return longInfo(doc), nil
	case command.ViewRelations:
		return relations(doc), nil
	}
	return "", fmt.Errorf("render: unknown view %s", cmd.View)
}

func (r *Renderer) lyrics(cmd command.Command, doc *song.Document) string {
	body := strings.TrimSpace(doc.Lyrics())
	switch {
	case body == "":
		body = NoLyrics
	case len(cmd.Sections) > 0:
		body = r.extractor.Extract(body, cmd.Sections, cmd.Range)
		if body == "" {
			body = NoSections
		}
	}
	return paragraphs(header(doc), rule, body)
}

func shortInfo(doc *song.Document) string {
	return paragraphs(
		header(doc),
		field("Artist", doc.PrimaryArtist()),
		field("Featuring", strings.Join(doc.FeaturedArtists(), ", ")),
		field("Album", doc.Album()),
		field("Release Date", doc.ReleaseDate()),
		field("Producers", strings.Join(doc.Producers(), ", ")),
		rule,
		field("Description", doc.Description()),
	)
}

func longInfo(doc *song.Document) string {
	credits := doc.Credits()
	block := make([]string, 0, len(credits))
	for _, c := range credits {
		block = append(block, group(c.Label, c.Artists))
	}
	if len(block) == 0 {
		block = append(block, NoCredits)
	}

	parts := []string{
		header(doc),
		field("Written By", strings.Join(doc.Writers(), ", ")),
		rule,
		"**Credits**",
	}
	parts = append(parts, block...)
	parts = append(parts, rule, field("Recorded At", doc.RecordingLocation()))
	return paragraphs(parts...)
}

func relations(doc *song.Document) string {
	var block []string
	for _, rel := range doc.Relations() {
		if len(rel.Titles) == 0 {
			continue
		}
		block = append(block, group(relationName(rel.Type), rel.Titles))
	}
	if len(block) == 0 {
		block = append(block, NoRelations)
	}
	return paragraphs(append([]string{header(doc), rule}, block...)...)
}

func header(doc *song.Document) string {
	return "**" + titleCase(doc.Title()) + "**"
}

func field(label, value string) string {
	return label + " - " + value
}

func group(label string, names []string) string {
	return label + " — " + strings.Join(names, ", ")
}

// relationName turns "sampled_in" into "Sampled In".
func relationName(kind string) string {
	return titleCase(strings.ReplaceAll(kind, "_", " "))
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func paragraphs(parts ...string) string {
	return strings.Join(parts, "\n\n")
}

// Truncate cuts text to at most limit bytes at a line boundary and marks the cut.
func Truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	const marker = "\n\n…"
	n := limit - len(marker)
	if n <= 0 {
		// no room for the marker
		return text[:runeFloor(text, max(limit, 0))]
	}
	cut := text[:runeFloor(text, n)]
	if i := strings.LastIndex(cut, "\n"); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, "\n") + marker
}

// runeFloor moves n back to the start of the rune it falls in.
func runeFloor(text string, n int) int {
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return n
}
