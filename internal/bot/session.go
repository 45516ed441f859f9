// Package bot is the conversational core: the session loop that reads
// messages from the gateway, the keyword dispatcher, and the interactive
// caption collector. Exactly one command is in flight at a time; the only
// suspension point is waiting on the gateway.
package bot

import (
	"context"
	"log/slog"
	"strings"

	"memebot/internal/domain"
	"memebot/internal/metrics"
)

// Sentinel ends the session when sent at the top level and cancels the
// caption sub-flow when sent during collection.
const Sentinel = "."

const (
	defaultListLimit = 20

	notUnderstoodReply = "Sorry, I didn't understand that command. Send 'help' to see what I can do."
	genericFailReply   = "Something went wrong handling that command. Please try again."
)

// Session is one conversation with one counterparty. It owns the gateway
// handle for its whole lifetime.
type Session struct {
	gateway   domain.Gateway
	memes     domain.MemeService
	recorder  domain.Recorder     // optional
	history   domain.HistoryStore // optional
	logger    *slog.Logger
	listLimit int
	handlers  map[string]func(ctx context.Context, arg string) error
}

type SessionConfig struct {
	Gateway   domain.Gateway
	Memes     domain.MemeService
	Recorder  domain.Recorder
	History   domain.HistoryStore
	Logger    *slog.Logger
	ListLimit int
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = defaultListLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Session{
		gateway:   cfg.Gateway,
		memes:     cfg.Memes,
		recorder:  cfg.Recorder,
		history:   cfg.History,
		logger:    cfg.Logger,
		listLimit: cfg.ListLimit,
	}
	s.handlers = map[string]func(ctx context.Context, arg string) error{
		"help":     s.handleHelp,
		"meme":     s.handleMeme,
		"generate": s.handleGenerate,
		"surprise": s.handleSurprise,
		"search":   s.handleSearch,
		"top":      s.handleTop,
		"random":   s.handleRandom,
		"caption":  s.handleCaption,
	}
	return s
}

// Run executes the session until the counterparty sends the sentinel or the
// context is cancelled. Stale inbound history is purged first so it cannot
// leak into the first command.
func (s *Session) Run(ctx context.Context) error {
	if err := s.gateway.ResetHistory(ctx); err != nil {
		s.logger.Warn("could not reset message history", "err", err)
	}
	s.logger.Info("session started", "gateway", s.gateway.Name())

	for {
		text, err := s.gateway.WaitForMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if strings.TrimSpace(text) == Sentinel {
			s.logger.Info("session terminated by user")
			return nil
		}
		s.dispatch(ctx, text)
	}
}

// dispatch routes one inbound message to its handler. No fault escapes:
// handler errors and panics are logged and reported to the user, and the
// session keeps reading.
func (s *Session) dispatch(ctx context.Context, raw string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panicked", "panic", r)
			s.reply(ctx, genericFailReply)
		}
	}()

	metrics.MessagesTotal.Inc()
	cmd := ParseCommand(raw)
	s.logger.Info("dispatching command", "keyword", cmd.Keyword)

	if s.history != nil {
		if err := s.history.RecordCommand(ctx, cmd.Keyword, cmd.Argument); err != nil {
			s.logger.Warn("could not record command", "err", err)
		}
	}

	handler, ok := s.handlers[cmd.Keyword]
	if !ok {
		metrics.UnknownCommands.Inc()
		s.reply(ctx, notUnderstoodReply)
		return
	}

	if err := handler(ctx, cmd.Argument); err != nil {
		s.logger.Error("command failed", "keyword", cmd.Keyword, "err", err)
		s.reply(ctx, genericFailReply)
	}
}

// reply sends a text message, logging instead of propagating a send
// failure; the loop must survive a flaky outbound path.
func (s *Session) reply(ctx context.Context, text string) {
	if err := s.gateway.SendText(ctx, text); err != nil {
		s.logger.Error("could not send reply", "err", err)
	}
}
