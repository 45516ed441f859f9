package bot

import (
	"context"
	"fmt"
	"strings"

	"memebot/internal/domain"
)

// handleCaption runs the interactive captioning flow: look up the template's
// box count, collect one caption line per box, then issue the caption
// request. The whole flow blocks the session loop; no other command runs
// until it completes or is cancelled.
func (s *Session) handleCaption(ctx context.Context, arg string) error {
	id := strings.TrimSpace(arg)
	if id == "" {
		return s.gateway.SendText(ctx, "Usage: caption <template id>. Find template ids with 'search' or 'top'.")
	}

	tpl, err := s.memes.GetTemplate(ctx, id)
	if err != nil {
		s.logger.Warn("template lookup failed", "template", id, "err", err)
		return s.gateway.SendText(ctx, "Couldn't look up that template: "+serviceMessage(err))
	}

	texts, cancelled, err := s.collectCaptions(ctx, tpl)
	if err != nil {
		return err
	}
	if cancelled {
		// A local abort, not an error: no meme, no reply.
		s.logger.Info("caption flow cancelled", "template", id)
		return nil
	}

	// Animated templates go through the gif endpoint, which takes one field
	// per box. The image endpoint takes two fields; extra boxes are
	// collected but not transmitted.
	if strings.HasSuffix(tpl.URL, ".gif") {
		meme, err := s.memes.CaptionGif(ctx, id, texts)
		return s.deliver(ctx, "caption", strings.Join(texts, " | "), meme, err, "Here's your captioned meme.")
	}

	text0 := ""
	text1 := ""
	if len(texts) > 0 {
		text0 = texts[0]
	}
	if len(texts) > 1 {
		text1 = texts[1]
	}

	meme, err := s.memes.CaptionImage(ctx, id, text0, text1)
	query := text0 + " | " + text1
	return s.deliver(ctx, "caption", query, meme, err, "Here's your captioned meme.")
}

// collectCaptions prompts for each text box in turn and blocks on the
// gateway for exactly one reply per box. The sentinel aborts collection.
func (s *Session) collectCaptions(ctx context.Context, tpl *domain.Template) (texts []string, cancelled bool, err error) {
	for i := 0; i < tpl.BoxCount; i++ {
		prompt := fmt.Sprintf("Send the text for box %d of %d (or '%s' to cancel).", i+1, tpl.BoxCount, Sentinel)
		if err := s.gateway.SendText(ctx, prompt); err != nil {
			return nil, false, fmt.Errorf("prompt for box %d: %w", i+1, err)
		}

		reply, err := s.gateway.WaitForMessage(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("waiting for box %d: %w", i+1, err)
		}
		if strings.TrimSpace(reply) == Sentinel {
			return nil, true, nil
		}
		texts = append(texts, reply)
	}
	return texts, false, nil
}
