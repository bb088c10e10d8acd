package command

import (
	"strconv"
	"strings"
)

const fieldDelimiter = ","

// Parser recognizes "<trigger>, <artist>, <song>, <view>[, <sections>[, <start> [end]]]".
type Parser struct {
	trigger string
	mode    TriggerMode
	vocab   *Vocabulary
}

func NewParser(trigger string, mode TriggerMode, vocab *Vocabulary) *Parser {
	if mode == "" {
		mode = TriggerExact
	}
	if vocab == nil {
		vocab = NewVocabulary(DefaultMaxVerses)
	}
	return &Parser{
		trigger: normalizeTrigger(trigger),
		mode:    mode,
		vocab:   vocab,
	}
}

func (p *Parser) Vocabulary() *Vocabulary {
	return p.vocab
}

// Triggered reports whether body addresses the bot at all.
func (p *Parser) Triggered(body string) bool {
	if p.trigger == "" {
		return false
	}
	switch p.mode {
	case TriggerSubstring:
		return strings.Contains(strings.ToLower(body), p.trigger)
	default:
		first, _, _ := strings.Cut(body, fieldDelimiter)
		return normalizeTrigger(first) == p.trigger
	}
}

// Parse returns a Command or a *RejectError.
func (p *Parser) Parse(body string) (Command, error) {
	if !p.Triggered(body) {
		return Command{}, &RejectError{Kind: ErrNoTrigger}
	}

	_, args, _ := strings.Cut(body, fieldDelimiter)
	fields := strings.Split(args, fieldDelimiter)
	if len(fields) < 3 {
		return Command{}, reject(ErrMalformedCommand, "expected at least 4 fields, got %d", len(fields)+1)
	}
	return p.parseFields(fields)
}

// ParseArgs parses "<artist>, <song>, <view>[, ...]" without a trigger.
func (p *Parser) ParseArgs(args string) (Command, error) {
	fields := strings.Split(args, fieldDelimiter)
	if len(fields) < 3 {
		return Command{}, reject(ErrMalformedCommand, "expected at least 3 fields, got %d", len(fields))
	}
	return p.parseFields(fields)
}

// maxArgFields counts artist, song, view, sections and range.
const maxArgFields = 5

func (p *Parser) parseFields(fields []string) (Command, error) {
	if len(fields) > maxArgFields {
		return Command{}, reject(ErrMalformedCommand, "expected at most %d fields after the trigger, got %d", maxArgFields, len(fields))
	}
	cmd := Command{
		Artist: strings.TrimSpace(fields[0]),
		Song:   strings.TrimSpace(fields[1]),
	}
	if cmd.Artist == "" || cmd.Song == "" {
		return Command{}, reject(ErrMalformedCommand, "artist and song are required")
	}

	phrase := strings.ToLower(strings.Join(strings.Fields(fields[2]), " "))
	view, ok := viewPhrases[phrase]
	if !ok {
		return Command{}, reject(ErrUnrecognizedOption, "view %q", phrase)
	}
	cmd.View = view

	if view != ViewLyrics {
		return cmd, nil
	}

	if len(fields) > 3 {
		for _, token := range strings.Fields(strings.ToLower(fields[3])) {
			if _, ok := p.vocab.Lookup(token); !ok {
				return Command{}, reject(ErrUnrecognizedOption, "section %q", token)
			}
			cmd.Sections = append(cmd.Sections, token)
		}
	}

	if len(fields) > 4 {
		r, err := parseRange(fields[4])
		if err != nil {
			return Command{}, err
		}
		cmd.Range = r
	}

	return cmd, nil
}

func parseRange(field string) (*LineRange, error) {
	tokens := strings.Fields(field)
	switch len(tokens) {
	case 0:
		return nil, nil
	case 1, 2:
	default:
		return nil, reject(ErrInvalidRange, "expected \"start [end]\", got %q", strings.TrimSpace(field))
	}

	start, err := strconv.Atoi(tokens[0])
	if err != nil || start < 0 {
		return nil, reject(ErrInvalidRange, "start %q", tokens[0])
	}

	r := &LineRange{Start: start, End: -1}
	if len(tokens) == 2 {
		end, err := strconv.Atoi(tokens[1])
		if err != nil || end < start {
			return nil, reject(ErrInvalidRange, "end %q", tokens[1])
		}
		r.End = end
	}
	return r, nil
}

// normalizeTrigger lowercases and drops a leading "u/" or "/u/".
func normalizeTrigger(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "/")
	return strings.TrimPrefix(s, "u/")
}
