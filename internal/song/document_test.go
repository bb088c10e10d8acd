package song

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stronger = `{
	"title": "Stronger",
	"primary_artist": {"name": "Kanye West"},
	"featured_artists": [],
	"producer_artists": [{"name": "Kanye West"}, {"name": "Mike Dean"}],
	"writer_artists": [{"name": "Kanye West"}, {"name": ""}, {"name": "Daft Punk"}],
	"album": {"name": "Graduation"},
	"release_date": "2007-07-31",
	"recording_location": null,
	"description": {"plain": "?"},
	"custom_performances": [
		{"label": "Mixing Engineer", "artists": [{"name": "Manny Marroquin"}]},
		{"label": "Sample", "artists": [{"name": "Daft Punk"}]},
		{"label": "Mixing Engineer", "artists": [{"name": "Andrew Dawson"}]},
		{"label": "", "artists": [{"name": "nobody"}]}
	],
	"song_relationships": [
		{"relationship_type": "samples", "songs": [{"title": "Harder, Better, Faster, Stronger", "full_title": "Harder, Better, Faster, Stronger by Daft Punk"}]},
		{"type": "remixed_by", "songs": [{"full_title": "Stronger (Remix) by A-Trak"}]},
		{"relationship_type": "cover_of", "songs": []}
	]
}`

func TestDocument_Accessors(t *testing.T) {
	doc, err := Parse([]byte(stronger))
	require.NoError(t, err)

	assert.True(t, doc.HasTitle())
	assert.Equal(t, "Stronger", doc.Title())
	assert.Equal(t, "Kanye West", doc.PrimaryArtist())
	assert.Empty(t, doc.FeaturedArtists())
	assert.Equal(t, []string{"Kanye West", "Mike Dean"}, doc.Producers())
	assert.Equal(t, []string{"Kanye West", "Daft Punk"}, doc.Writers())
	assert.Equal(t, "Graduation", doc.Album())
	assert.Equal(t, "2007-07-31", doc.ReleaseDate())
	assert.Empty(t, doc.RecordingLocation())
	assert.Empty(t, doc.Description())
	assert.Empty(t, doc.Lyrics())
}

func TestDocument_CreditsGroupedInOrder(t *testing.T) {
	doc, err := Parse([]byte(stronger))
	require.NoError(t, err)

	want := []Credit{
		{Label: "Mixing Engineer", Artists: []string{"Manny Marroquin", "Andrew Dawson"}},
		{Label: "Sample", Artists: []string{"Daft Punk"}},
	}
	if diff := cmp.Diff(want, doc.Credits()); diff != "" {
		t.Errorf("Credits() mismatch (-want +got):\n%s", diff)
	}
}

func TestDocument_Relations(t *testing.T) {
	doc, err := Parse([]byte(stronger))
	require.NoError(t, err)

	want := []Relation{
		{Type: "samples", Titles: []string{"Harder, Better, Faster, Stronger"}},
		{Type: "remixed_by", Titles: []string{"Stronger (Remix) by A-Trak"}},
		{Type: "cover_of"},
	}
	if diff := cmp.Diff(want, doc.Relations()); diff != "" {
		t.Errorf("Relations() mismatch (-want +got):\n%s", diff)
	}
}

func TestDocument_Description(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"description": {"plain": " A song. "}}`, "A song."},
		{"html fallback", `{"description": {"html": "<p>A <a href=\"#\">great</a> song.</p>"}}`, "A great song."},
		{"placeholder", `{"description": {"plain": "?"}}`, ""},
		{"plain string", `{"description": "Old format"}`, "Old format"},
		{"missing", `{}`, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Parse([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, doc.Description())
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, raw := range []string{``, `not json`, `[1, 2]`, `"title"`} {
		_, err := Parse([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestFromValue(t *testing.T) {
	doc, err := FromValue(map[string]any{"title": "Stan", "primary_artist": map[string]any{"name": "Eminem"}})
	require.NoError(t, err)
	assert.Equal(t, "Stan", doc.Title())
	assert.Equal(t, "Eminem", doc.PrimaryArtist())

	var nilDoc *Document
	assert.False(t, nilDoc.HasTitle())
	data, err := nilDoc.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}
