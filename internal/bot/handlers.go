package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"memebot/internal/domain"
	"memebot/internal/metrics"
)

const helpText = `MemeBot commands:
- meme <caption> — auto-captioned meme
- generate <prompt> — AI-generated meme
- surprise — a random meme on me
- search <query> — find matching templates
- top — the most popular templates
- random — a random pick of templates
- caption <template id> — caption a template step by step
- help — this message
Send '.' to end the conversation.`

func (s *Session) handleHelp(ctx context.Context, _ string) error {
	return s.gateway.SendText(ctx, helpText)
}

func (s *Session) handleMeme(ctx context.Context, arg string) error {
	meme, err := s.memes.AutoCaption(ctx, arg)
	return s.deliver(ctx, "auto", arg, meme, err, "Here's your generated meme.")
}

func (s *Session) handleGenerate(ctx context.Context, arg string) error {
	meme, err := s.memes.AIGenerate(ctx, arg)
	return s.deliver(ctx, "ai", arg, meme, err, "Here's your generated meme.")
}

func (s *Session) handleSurprise(ctx context.Context, _ string) error {
	prompt := surprisePrompts[rand.IntN(len(surprisePrompts))]
	s.logger.Info("surprise prompt picked", "prompt", prompt)
	meme, err := s.memes.AutoCaption(ctx, prompt)
	return s.deliver(ctx, "auto", prompt, meme, err, "Here's your surprise meme.")
}

// deliver interprets a generation result: on success the image goes out as
// media and the meme is recorded; a service-reported failure becomes one
// text reply with the verbatim message. Transport faults propagate to the
// dispatch boundary.
func (s *Session) deliver(ctx context.Context, kind, query string, meme *domain.Meme, err error, caption string) error {
	if err != nil {
		var svcErr *domain.ServiceError
		if errors.As(err, &svcErr) {
			metrics.GenerationFailures.Inc()
			s.recordGeneration(ctx, kind, query, "", false, svcErr.Message)
			return s.gateway.SendText(ctx,
				fmt.Sprintf("Failed to generate meme: %s. Try 'top', 'random' or 'help'.", svcErr.Message))
		}
		metrics.GenerationFailures.Inc()
		return err
	}

	metrics.MemesGenerated.Inc()
	s.recordGeneration(ctx, kind, query, meme.URL, true, "")

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, kind, query, meme); err != nil {
			s.logger.Warn("could not record meme", "err", err)
		}
	}

	return s.gateway.SendMedia(ctx, caption, meme.URL)
}

func (s *Session) recordGeneration(ctx context.Context, kind, query, url string, ok bool, errMsg string) {
	if s.history == nil {
		return
	}
	if err := s.history.RecordGeneration(ctx, kind, query, url, ok, errMsg); err != nil {
		s.logger.Warn("could not record generation", "err", err)
	}
}

func (s *Session) handleSearch(ctx context.Context, arg string) error {
	templates, err := s.memes.SearchTemplates(ctx, arg)
	if err != nil {
		s.logger.Warn("template search failed", "query", arg, "err", err)
		return s.gateway.SendText(ctx, "Couldn't fetch templates right now: "+serviceMessage(err))
	}
	return s.sendTemplates(ctx, templates)
}

func (s *Session) handleTop(ctx context.Context, _ string) error {
	templates, err := s.memes.ListTemplates(ctx)
	if err != nil {
		s.logger.Warn("template listing failed", "err", err)
		return s.gateway.SendText(ctx, "Couldn't fetch templates right now: "+serviceMessage(err))
	}
	if len(templates) > s.listLimit {
		templates = templates[:s.listLimit]
	}
	return s.sendTemplates(ctx, templates)
}

func (s *Session) handleRandom(ctx context.Context, _ string) error {
	templates, err := s.memes.ListTemplates(ctx)
	if err != nil {
		s.logger.Warn("template listing failed", "err", err)
		return s.gateway.SendText(ctx, "Couldn't fetch templates right now: "+serviceMessage(err))
	}

	// Uniform sample without replacement over the full set, then cap.
	shuffled := make([]domain.Template, len(templates))
	copy(shuffled, templates)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if len(shuffled) > s.listLimit {
		shuffled = shuffled[:s.listLimit]
	}
	return s.sendTemplates(ctx, shuffled)
}

// sendTemplates fans out one media message per template. An empty set still
// produces exactly one reply.
func (s *Session) sendTemplates(ctx context.Context, templates []domain.Template) error {
	if len(templates) == 0 {
		return s.gateway.SendText(ctx, "No templates found. Try 'top' or a different search.")
	}
	for _, tpl := range templates {
		caption := fmt.Sprintf("%s (id %s, %d text boxes)", tpl.Name, tpl.ID, tpl.BoxCount)
		if err := s.gateway.SendMedia(ctx, caption, tpl.URL); err != nil {
			return fmt.Errorf("send template %s: %w", tpl.ID, err)
		}
	}
	return nil
}

// serviceMessage extracts the user-facing text for a failed meme-service
// call, whatever the failure mode.
func serviceMessage(err error) string {
	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return "the meme service did not respond"
}
