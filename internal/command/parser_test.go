package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Parse(t *testing.T) {
	p := NewParser("rapgeniusbot", TriggerExact, NewVocabulary(DefaultMaxVerses))

	tests := []struct {
		name    string
		body    string
		want    Command
		wantErr error
	}{
		{
			name: "lyrics",
			body: "rapgeniusbot, Eminem, Lose Yourself, lyrics",
			want: Command{View: ViewLyrics, Artist: "Eminem", Song: "Lose Yourself"},
		},
		{
			name: "short info with odd spacing and case",
			body: "  RapGeniusBot ,Eminem,  Lose Yourself , Short   Info ",
			want: Command{View: ViewShortInfo, Artist: "Eminem", Song: "Lose Yourself"},
		},
		{
			name: "u/ prefix on trigger",
			body: "u/rapgeniusbot, Kanye West, Stronger, relations",
			want: Command{View: ViewRelations, Artist: "Kanye West", Song: "Stronger"},
		},
		{
			name: "sections and range",
			body: "rapgeniusbot, Eminem, Lose Yourself, lyrics, verse1 chorus, 0 3",
			want: Command{
				View: ViewLyrics, Artist: "Eminem", Song: "Lose Yourself",
				Sections: []string{"verse1", "chorus"},
				Range:    &LineRange{Start: 0, End: 3},
			},
		},
		{
			name: "open ended range",
			body: "rapgeniusbot, Eminem, Lose Yourself, lyrics, verse2, 4",
			want: Command{
				View: ViewLyrics, Artist: "Eminem", Song: "Lose Yourself",
				Sections: []string{"verse2"},
				Range:    &LineRange{Start: 4, End: -1},
			},
		},
		{
			name: "sections ignored for non lyrics views",
			body: "rapgeniusbot, Eminem, Lose Yourself, long info, nonsense",
			want: Command{View: ViewLongInfo, Artist: "Eminem", Song: "Lose Yourself"},
		},
		{
			name:    "not addressed to the bot",
			body:    "great song, Eminem, Lose Yourself, lyrics",
			wantErr: ErrNoTrigger,
		},
		{
			name:    "too few fields",
			body:    "rapgeniusbot, Eminem, Lose Yourself",
			wantErr: ErrMalformedCommand,
		},
		{
			name:    "extra field after range",
			body:    "rapgeniusbot, a, b, lyrics, , 1 2, junk",
			wantErr: ErrMalformedCommand,
		},
		{
			name:    "empty artist",
			body:    "rapgeniusbot, , Lose Yourself, lyrics",
			wantErr: ErrMalformedCommand,
		},
		{
			name:    "unrecognized view",
			body:    "rapgeniusbot, Eminem, Lose Yourself, lyricsss",
			wantErr: ErrUnrecognizedOption,
		},
		{
			name:    "unrecognized section",
			body:    "rapgeniusbot, Eminem, Lose Yourself, lyrics, verse1 solo",
			wantErr: ErrUnrecognizedOption,
		},
		{
			name:    "non numeric range",
			body:    "rapgeniusbot, Eminem, Lose Yourself, lyrics, verse1, a b",
			wantErr: ErrInvalidRange,
		},
		{
			name:    "end before start",
			body:    "rapgeniusbot, Eminem, Lose Yourself, lyrics, verse1, 3 1",
			wantErr: ErrInvalidRange,
		},
		{
			name:    "too many range tokens",
			body:    "rapgeniusbot, Eminem, Lose Yourself, lyrics, verse1, 1 2 3",
			wantErr: ErrInvalidRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse(tt.body)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
				var rej *RejectError
				assert.True(t, errors.As(err, &rej))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParser_SubstringMode(t *testing.T) {
	p := NewParser("rapgeniusbot", TriggerSubstring, nil)

	cmd, err := p.Parse("hey u/rapgeniusbot, Eminem, Stan, lyrics")
	require.NoError(t, err)
	assert.Equal(t, "Eminem", cmd.Artist)
	assert.Equal(t, "Stan", cmd.Song)

	exact := NewParser("rapgeniusbot", TriggerExact, nil)
	_, err = exact.Parse("hey u/rapgeniusbot, Eminem, Stan, lyrics")
	assert.ErrorIs(t, err, ErrNoTrigger)
}

func TestParser_EmptyTriggerNeverMatches(t *testing.T) {
	p := NewParser("", TriggerSubstring, nil)
	assert.False(t, p.Triggered("anything, at, all, lyrics"))
}

func TestVocabulary_Ordered(t *testing.T) {
	v := NewVocabulary(3)

	got := v.Ordered([]string{"outro", "chorus", "verse2", "intro", "chorus", "pre-chorus", "verse9"})

	tokens := make([]string, len(got))
	for i, s := range got {
		tokens[i] = s.Token
	}
	assert.Equal(t, []string{"intro", "verse2", "pre-chorus", "chorus", "outro"}, tokens)
	assert.True(t, got[1].Verse)
	assert.Equal(t, "Verse 2", got[1].Label)
}

func TestVocabulary_Lookup(t *testing.T) {
	v := NewVocabulary(0)

	s, ok := v.Lookup(" Verse10 ")
	require.True(t, ok)
	assert.Equal(t, "Verse 10", s.Label)

	_, ok = v.Lookup("verse11")
	assert.False(t, ok)
}

func TestParser_ParseArgs(t *testing.T) {
	p := NewParser("rapgeniusbot", TriggerExact, nil)

	cmd, err := p.ParseArgs("Eminem, Lose Yourself, lyrics, chorus, 1")
	require.NoError(t, err)
	assert.Equal(t, Command{
		View: ViewLyrics, Artist: "Eminem", Song: "Lose Yourself",
		Sections: []string{"chorus"},
		Range:    &LineRange{Start: 1, End: -1},
	}, cmd)

	_, err = p.ParseArgs("Eminem, Lose Yourself")
	assert.ErrorIs(t, err, ErrMalformedCommand)
}
