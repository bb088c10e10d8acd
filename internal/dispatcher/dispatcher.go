// Package dispatcher drives the comment stream: one comment at a time, parse, resolve, render,
// reply, and record the answer.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sukalov/geniusbot/internal/command"
	"github.com/sukalov/geniusbot/internal/logger"
	"github.com/sukalov/geniusbot/internal/lyrics"
	"github.com/sukalov/geniusbot/internal/render"
	"github.com/sukalov/geniusbot/internal/song"
)

// ErrTransport marks a failure of the comment stream itself. Run returns it; Supervise restarts.
var ErrTransport = errors.New("comment stream transport failure")

// Comment is one incoming forum comment.
type Comment struct {
	ID   string
	Body string
}

// Stream yields comments in arrival order and returns io.EOF when it has no more.
type Stream interface {
	Next(ctx context.Context) (Comment, error)
}

type Replier interface {
	Reply(ctx context.Context, commentID, text string) error
}

type Parser interface {
	Parse(body string) (command.Command, error)
	ParseArgs(args string) (command.Command, error)
}

type Resolver interface {
	Resolve(ctx context.Context, artist, title string) (lyrics.Result, error)
}

type Renderer interface {
	Render(cmd command.Command, doc *song.Document) (string, error)
}

// Ledger remembers which comments were answered.
type Ledger interface {
	Has(ctx context.Context, id string) (bool, error)
	Add(ctx context.Context, id string) error
}

// Outcome is the terminal state of one comment.
type Outcome int

const (
	OutcomeIgnored   Outcome = iota // not addressed to the bot
	OutcomeDuplicate                // already answered
	OutcomeRejected                 // addressed to the bot but not answered
	OutcomeAnswered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRejected:
		return "rejected"
	case OutcomeAnswered:
		return "answered"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Stats counts outcomes since start.
type Stats struct {
	Seen      int64
	Answered  int64
	Rejected  int64
	Duplicate int64
}

type Dispatcher struct {
	parser   Parser
	resolver Resolver
	renderer Renderer
	replier  Replier
	ledger   Ledger

	seen, answered, rejected, duplicate atomic.Int64
}

func New(parser Parser, resolver Resolver, renderer Renderer, replier Replier, ledger Ledger) *Dispatcher {
	return &Dispatcher{
		parser:   parser,
		resolver: resolver,
		renderer: renderer,
		replier:  replier,
		ledger:   ledger,
	}
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Seen:      d.seen.Load(),
		Answered:  d.answered.Load(),
		Rejected:  d.rejected.Load(),
		Duplicate: d.duplicate.Load(),
	}
}

// Run consumes stream until it ends (nil), ctx is done (ctx.Err()), or the stream fails
// (an error wrapping ErrTransport). Per-comment failures never stop the loop.
func (d *Dispatcher) Run(ctx context.Context, stream Stream) error {
	for {
		c, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransport, err)
		}

		d.Handle(ctx, c)
	}
}

// Handle takes one comment to its terminal state.
func (d *Dispatcher) Handle(ctx context.Context, c Comment) Outcome {
	d.seen.Add(1)
	outcome := d.handle(ctx, c)
	switch outcome {
	case OutcomeAnswered:
		d.answered.Add(1)
	case OutcomeRejected:
		d.rejected.Add(1)
	case OutcomeDuplicate:
		d.duplicate.Add(1)
	}
	return outcome
}

func (d *Dispatcher) handle(ctx context.Context, c Comment) Outcome {
	log := logger.L().With(zap.String("comment", c.ID))

	answered, err := d.ledger.Has(ctx, c.ID)
	if err != nil {
		// without the ledger a reply could be duplicated, so skip
		logger.Error("ledger check failed", zap.String("comment", c.ID), zap.Error(err))
		return OutcomeRejected
	}
	if answered {
		log.Debug("already answered")
		return OutcomeDuplicate
	}

	cmd, err := d.parser.Parse(c.Body)
	if errors.Is(err, command.ErrNoTrigger) {
		return OutcomeIgnored
	}
	if err != nil {
		log.Info("rejected command", zap.Error(err))
		return OutcomeRejected
	}
	log = log.With(zap.String("artist", cmd.Artist), zap.String("song", cmd.Song), zap.Stringer("view", cmd.View))

	text, res, err := d.answer(ctx, cmd)
	if errors.Is(err, lyrics.ErrNotFound) {
		log.Info("song not found")
		return OutcomeRejected
	}
	if err != nil {
		logger.Error("failed to build reply", zap.String("comment", c.ID), zap.Error(err))
		return OutcomeRejected
	}

	if err := d.replier.Reply(ctx, c.ID, text); err != nil {
		logger.Error("reply failed", zap.String("comment", c.ID), zap.Error(err))
		return OutcomeRejected
	}

	if err := d.ledger.Add(ctx, c.ID); err != nil {
		logger.Error("ledger write failed after reply", zap.String("comment", c.ID), zap.Error(err))
	}
	logger.Success("posted reply",
		zap.String("comment", c.ID), zap.String("key", res.Key.String()),
		zap.Stringer("view", cmd.View), zap.Bool("cached", res.Cached))
	return OutcomeAnswered
}

// Preview builds the reply for "<artist>, <song>, <view>[, ...]" without posting it.
func (d *Dispatcher) Preview(ctx context.Context, args string) (string, error) {
	cmd, err := d.parser.ParseArgs(args)
	if err != nil {
		return "", err
	}
	text, _, err := d.answer(ctx, cmd)
	return text, err
}

func (d *Dispatcher) answer(ctx context.Context, cmd command.Command) (string, lyrics.Result, error) {
	res, err := d.resolver.Resolve(ctx, cmd.Artist, cmd.Song)
	if err != nil {
		return "", lyrics.Result{}, err
	}

	text, err := d.renderer.Render(cmd, res.Doc)
	if err != nil {
		return "", res, fmt.Errorf("render %s: %w", res.Key, err)
	}
	return render.Truncate(text, render.MaxReplyLength), res, nil
}
