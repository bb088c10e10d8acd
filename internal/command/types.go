// Package command turns comment bodies into validated bot commands.
package command

import "fmt"

// View is the kind of reply the commenter asked for.
type View int

const (
	ViewLyrics View = iota
	ViewShortInfo
	ViewLongInfo
	ViewRelations
)

// viewPhrases are the literal phrases users type in the third field.
var viewPhrases = map[string]View{
	"lyrics":     ViewLyrics,
	"short info": ViewShortInfo,
	"long info":  ViewLongInfo,
	"relations":  ViewRelations,
}

func (v View) String() string {
	switch v {
	case ViewLyrics:
		return "lyrics"
	case ViewShortInfo:
		return "short info"
	case ViewLongInfo:
		return "long info"
	case ViewRelations:
		return "relations"
	}
	return fmt.Sprintf("View(%d)", int(v))
}

// LineRange selects lines of a lyric section. End < 0 means "to the end of the section".
type LineRange struct {
	Start int
	End   int
}

func (r LineRange) HasEnd() bool { return r.End >= 0 }

// Command is a parsed request. Sections and Range are only set for ViewLyrics.
type Command struct {
	View     View
	Artist   string
	Song     string
	Sections []string
	Range    *LineRange
}

// TriggerMode picks how the trigger token is recognized in a comment.
type TriggerMode string

const (
	// TriggerExact requires the first comma field to be the trigger token.
	TriggerExact TriggerMode = "exact"
	// TriggerSubstring accepts the trigger token anywhere in the body.
	TriggerSubstring TriggerMode = "substring"
)
