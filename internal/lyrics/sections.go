package lyrics

import (
	"regexp"
	"strings"

	"github.com/sukalov/geniusbot/internal/command"
)

var blankLine = regexp.MustCompile(`\n[ \t]*\n`)

// block is one blank-line delimited chunk of lyrics.
type block struct {
	head  string // label text before ':' without brackets, "" when unlabeled
	lines []string
}

// Extractor pulls named sections out of a lyrics blob.
type Extractor struct {
	vocab *command.Vocabulary
}

func NewExtractor(vocab *command.Vocabulary) *Extractor {
	if vocab == nil {
		vocab = command.NewVocabulary(command.DefaultMaxVerses)
	}
	return &Extractor{vocab: vocab}
}

// Extract returns the requested sections in canonical order. Sections missing from the lyrics
// contribute nothing. r, when set, slices every verse section; the label line is always kept.
// Lines of a section are joined with a space and sections with a blank line.
func (e *Extractor) Extract(text string, tokens []string, r *command.LineRange) string {
	blocks := splitBlocks(text)

	var parts []string
	for _, section := range e.vocab.Ordered(tokens) {
		b, ok := findBlock(blocks, section.Label)
		if !ok {
			continue
		}
		lines := b.lines
		if section.Verse && r != nil {
			lines = sliceLines(lines, *r)
		}
		if len(lines) > 0 {
			parts = append(parts, strings.Join(lines, " "))
		}
	}
	return strings.Join(parts, "\n\n")
}

func splitBlocks(text string) []block {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var blocks []block
	for _, chunk := range blankLine.Split(text, -1) {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}
		blocks = append(blocks, block{head: labelHead(lines[0]), lines: lines})
	}
	return blocks
}

// labelHead turns "[Verse 1: Eminem]" into "Verse 1".
func labelHead(line string) string {
	if !strings.HasPrefix(line, "[") {
		return ""
	}
	end := strings.Index(line, "]")
	if end < 0 {
		return ""
	}
	head, _, _ := strings.Cut(line[1:end], ":")
	return strings.TrimSpace(head)
}

// findBlock returns the first block labeled with label, or with label followed by a space
// ("Chorus 2" matches "Chorus", "Verse 10" does not match "Verse 1").
func findBlock(blocks []block, label string) (block, bool) {
	want := strings.ToLower(label)
	for _, b := range blocks {
		head := strings.ToLower(b.head)
		if head == want || strings.HasPrefix(head, want+" ") {
			return b, true
		}
	}
	return block{}, false
}

// sliceLines keeps the label line plus body lines Start..End (inclusive, 0-based, label excluded).
func sliceLines(lines []string, r command.LineRange) []string {
	if len(lines) == 0 {
		return lines
	}
	label, body := lines[0], lines[1:]

	start := r.Start
	if start > len(body) {
		start = len(body)
	}
	end := len(body)
	if r.HasEnd() && r.End+1 < end {
		end = r.End + 1
	}
	if end < start {
		end = start
	}

	out := make([]string, 0, 1+end-start)
	out = append(out, label)
	return append(out, body[start:end]...)
}
