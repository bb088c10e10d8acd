package command

import (
	"fmt"
	"sort"
	"strings"
)

const DefaultMaxVerses = 10

// Section is one entry of the section vocabulary.
type Section struct {
	Token string // what users type, e.g. "verse1"
	Label string // how lyrics label it, e.g. "Verse 1"
	Verse bool
}

// Vocabulary is the configured set of section tokens in canonical output order.
type Vocabulary struct {
	sections []Section
	index    map[string]int
}

// NewVocabulary builds the table:
// intro, verse1..verseN, pre-chorus, chorus, post-chorus, hook, refrain, collision, bridge, break, interlude, outro.
func NewVocabulary(maxVerses int) *Vocabulary {
	if maxVerses < 1 {
		maxVerses = DefaultMaxVerses
	}

	sections := []Section{{Token: "intro", Label: "Intro"}}
	for i := 1; i <= maxVerses; i++ {
		sections = append(sections, Section{
			Token: fmt.Sprintf("verse%d", i),
			Label: fmt.Sprintf("Verse %d", i),
			Verse: true,
		})
	}
	sections = append(sections,
		Section{Token: "pre-chorus", Label: "Pre-Chorus"},
		Section{Token: "chorus", Label: "Chorus"},
		Section{Token: "post-chorus", Label: "Post-Chorus"},
		Section{Token: "hook", Label: "Hook"},
		Section{Token: "refrain", Label: "Refrain"},
		Section{Token: "collision", Label: "Collision"},
		Section{Token: "bridge", Label: "Bridge"},
		Section{Token: "break", Label: "Break"},
		Section{Token: "interlude", Label: "Interlude"},
		Section{Token: "outro", Label: "Outro"},
	)

	v := &Vocabulary{sections: sections, index: make(map[string]int, len(sections))}
	for i, s := range sections {
		v.index[s.Token] = i
	}
	return v
}

func (v *Vocabulary) Lookup(token string) (Section, bool) {
	i, ok := v.index[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return Section{}, false
	}
	return v.sections[i], true
}

// Ordered returns the known sections among tokens, deduplicated, in canonical order.
func (v *Vocabulary) Ordered(tokens []string) []Section {
	seen := make(map[int]bool, len(tokens))
	positions := make([]int, 0, len(tokens))
	for _, t := range tokens {
		i, ok := v.index[strings.ToLower(strings.TrimSpace(t))]
		if !ok || seen[i] {
			continue
		}
		seen[i] = true
		positions = append(positions, i)
	}
	sort.Ints(positions)

	out := make([]Section, len(positions))
	for n, i := range positions {
		out[n] = v.sections[i]
	}
	return out
}
