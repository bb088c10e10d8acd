package dispatcher

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sukalov/geniusbot/internal/cache"
	"github.com/sukalov/geniusbot/internal/command"
	"github.com/sukalov/geniusbot/internal/lyrics"
	"github.com/sukalov/geniusbot/internal/lyrics/genius"
	"github.com/sukalov/geniusbot/internal/render"
	"github.com/sukalov/geniusbot/internal/song"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const loseYourself = `{
	"title": "Lose Yourself",
	"primary_artist": {"name": "Eminem"},
	"lyrics": "[Intro]\nLook\n\n[Verse 1]\nHis palms are sweaty\nknees weak\n\n[Chorus]\nYou better lose yourself"
}`

type fakeSearcher struct {
	mu    sync.Mutex
	docs  map[string]*song.Document
	calls int
}

func (f *fakeSearcher) SearchSong(_ context.Context, title, _ string) (*song.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if doc, ok := f.docs[cache.Normalize(title)]; ok {
		return doc, nil
	}
	return nil, genius.ErrNotFound
}

type reply struct {
	id, text string
}

type fakeReplier struct {
	mu      sync.Mutex
	replies []reply
	err     error
}

func (f *fakeReplier) Reply(_ context.Context, id, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.replies = append(f.replies, reply{id, text})
	return nil
}

type memLedger struct {
	mu     sync.Mutex
	ids    map[string]bool
	writes int
	hasErr error
}

func newMemLedger() *memLedger { return &memLedger{ids: map[string]bool{}} }

func (l *memLedger) Has(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ids[id], l.hasErr
}

func (l *memLedger) Add(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids[id] = true
	l.writes++
	return nil
}

type sliceStream struct {
	comments []Comment
	err      error
}

func (s *sliceStream) Next(ctx context.Context) (Comment, error) {
	if err := ctx.Err(); err != nil {
		return Comment{}, err
	}
	if len(s.comments) == 0 {
		if s.err != nil {
			return Comment{}, s.err
		}
		return Comment{}, io.EOF
	}
	c := s.comments[0]
	s.comments = s.comments[1:]
	return c, nil
}

type harness struct {
	d        *Dispatcher
	searcher *fakeSearcher
	replier  *fakeReplier
	ledger   *memLedger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	doc, err := song.Parse([]byte(loseYourself))
	require.NoError(t, err)
	untitled, err := song.Parse([]byte(`{"lyrics": "x"}`))
	require.NoError(t, err)

	store, err := cache.New(t.TempDir(), 8)
	require.NoError(t, err)

	vocab := command.NewVocabulary(command.DefaultMaxVerses)
	h := &harness{
		searcher: &fakeSearcher{docs: map[string]*song.Document{"loseyourself": doc, "untitled": untitled}},
		replier:  &fakeReplier{},
		ledger:   newMemLedger(),
	}
	h.d = New(
		command.NewParser("rapgeniusbot", command.TriggerExact, vocab),
		lyrics.NewService(h.searcher, store),
		render.New(lyrics.NewExtractor(vocab)),
		h.replier,
		h.ledger,
	)
	return h
}

func TestDispatcher_Handle(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		want      Outcome
		replied   bool
		contains  string
		fetches   int
		ledgerHit bool
	}{
		{
			name:      "lyrics reply",
			body:      "rapgeniusbot, Eminem, Lose Yourself, lyrics",
			want:      OutcomeAnswered,
			replied:   true,
			contains:  "His palms are sweaty",
			fetches:   1,
			ledgerHit: true,
		},
		{
			name:      "section extraction",
			body:      "rapgeniusbot, Eminem, Lose Yourself, lyrics, chorus",
			want:      OutcomeAnswered,
			replied:   true,
			contains:  "You better lose yourself",
			fetches:   1,
			ledgerHit: true,
		},
		{
			name: "not addressed to the bot",
			body: "great song, Eminem, Lose Yourself, lyrics",
			want: OutcomeIgnored,
		},
		{
			name: "unrecognized view never fetches",
			body: "rapgeniusbot, Eminem, Lose Yourself, lyricsss",
			want: OutcomeRejected,
		},
		{
			name: "too few fields",
			body: "rapgeniusbot, Eminem",
			want: OutcomeRejected,
		},
		{
			name:    "unknown song",
			body:    "rapgeniusbot, Eminem, Nope, lyrics",
			want:    OutcomeRejected,
			fetches: 1,
		},
		{
			name:    "document without title",
			body:    "rapgeniusbot, Eminem, Untitled, lyrics",
			want:    OutcomeRejected,
			fetches: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)

			got := h.d.Handle(context.Background(), Comment{ID: "c1", Body: tc.body})
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.fetches, h.searcher.calls)
			assert.Equal(t, tc.ledgerHit, h.ledger.ids["c1"])

			if !tc.replied {
				assert.Empty(t, h.replier.replies)
				assert.Zero(t, h.ledger.writes)
				return
			}
			require.Len(t, h.replier.replies, 1)
			assert.Equal(t, "c1", h.replier.replies[0].id)
			assert.Contains(t, h.replier.replies[0].text, tc.contains)
			assert.Contains(t, h.replier.replies[0].text, "**Lose Yourself**")
		})
	}
}

func TestDispatcher_NeverAnswersTwice(t *testing.T) {
	h := newHarness(t)
	c := Comment{ID: "dup", Body: "rapgeniusbot, Eminem, Lose Yourself, short info"}

	assert.Equal(t, OutcomeAnswered, h.d.Handle(context.Background(), c))
	assert.Equal(t, OutcomeDuplicate, h.d.Handle(context.Background(), c))

	assert.Len(t, h.replier.replies, 1)
	assert.Equal(t, 1, h.ledger.writes)
	assert.Equal(t, Stats{Seen: 2, Answered: 1, Duplicate: 1}, h.d.Stats())
}

func TestDispatcher_SecondRequestServedFromCache(t *testing.T) {
	h := newHarness(t)

	h.d.Handle(context.Background(), Comment{ID: "a", Body: "rapgeniusbot, Eminem, Lose Yourself, lyrics"})
	h.d.Handle(context.Background(), Comment{ID: "b", Body: "rapgeniusbot, eminem, lose yourself, relations"})

	assert.Equal(t, 1, h.searcher.calls)
	assert.Len(t, h.replier.replies, 2)
}

func TestDispatcher_ReplyFailureLeavesLedgerUntouched(t *testing.T) {
	h := newHarness(t)
	h.replier.err = errors.New("403 forbidden")

	got := h.d.Handle(context.Background(), Comment{ID: "x", Body: "rapgeniusbot, Eminem, Lose Yourself, lyrics"})
	assert.Equal(t, OutcomeRejected, got)
	assert.False(t, h.ledger.ids["x"])
}

func TestDispatcher_LedgerErrorSkipsComment(t *testing.T) {
	h := newHarness(t)
	h.ledger.hasErr = errors.New("db down")

	got := h.d.Handle(context.Background(), Comment{ID: "x", Body: "rapgeniusbot, Eminem, Lose Yourself, lyrics"})
	assert.Equal(t, OutcomeRejected, got)
	assert.Empty(t, h.replier.replies)
	assert.Zero(t, h.searcher.calls)
}

func TestDispatcher_RunContinuesPastFailures(t *testing.T) {
	h := newHarness(t)
	stream := &sliceStream{comments: []Comment{
		{ID: "1", Body: "rapgeniusbot, Eminem, Lose Yourself, lyricsss"},
		{ID: "2", Body: "rapgeniusbot, Eminem, Unknown, lyrics"},
		{ID: "3", Body: "rapgeniusbot, Eminem, Lose Yourself, long info"},
	}}

	require.NoError(t, h.d.Run(context.Background(), stream))
	require.Len(t, h.replier.replies, 1)
	assert.Equal(t, "3", h.replier.replies[0].id)
}

func TestDispatcher_RunWrapsTransportErrors(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("connection reset")

	err := h.d.Run(context.Background(), &sliceStream{err: boom})
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, boom)
}

func TestDispatcher_SuperviseReconnects(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	body := "rapgeniusbot, Eminem, Lose Yourself, lyrics"
	streams := []*sliceStream{
		{comments: []Comment{{ID: "1", Body: body}}, err: errors.New("dropped")},
		{comments: []Comment{{ID: "1", Body: body}, {ID: "2", Body: body}}},
	}

	var connects int
	connect := func(context.Context) (Stream, error) {
		connects++
		if connects > len(streams) {
			cancel()
			return nil, errors.New("no more streams")
		}
		return streams[connects-1], nil
	}

	err := h.d.Supervise(ctx, connect, Backoff{Min: time.Millisecond, Max: 4 * time.Millisecond})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, connects)

	require.Len(t, h.replier.replies, 2)
	assert.Equal(t, "1", h.replier.replies[0].id)
	assert.Equal(t, "2", h.replier.replies[1].id)
}

func TestBackoff_Next(t *testing.T) {
	b := Backoff{Min: time.Second, Max: 5 * time.Second}

	var got []time.Duration
	var d time.Duration
	for i := 0; i < 5; i++ {
		d = b.next(d)
		got = append(got, d)
	}
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}, got)
}

func TestDispatcher_Preview(t *testing.T) {
	h := newHarness(t)

	text, err := h.d.Preview(context.Background(), "Eminem, Lose Yourself, lyrics, verse1")
	require.NoError(t, err)
	assert.Contains(t, text, "His palms are sweaty")
	assert.NotContains(t, text, "You better lose yourself")
	assert.Empty(t, h.replier.replies)

	_, err = h.d.Preview(context.Background(), "Eminem, Nope, lyrics")
	assert.ErrorIs(t, err, lyrics.ErrNotFound)

	_, err = h.d.Preview(context.Background(), "Eminem, Lose Yourself, chords")
	assert.ErrorIs(t, err, command.ErrUnrecognizedOption)
}
