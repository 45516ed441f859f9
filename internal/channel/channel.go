// Package channel provides the messaging gateways the bot can talk through.
// Each gateway owns one long-lived conversation with a single counterparty.
package channel

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"memebot/internal/config"
	"memebot/internal/domain"
)

// New builds the gateway selected by general.channel.
func New(cfg *config.Config, logger *slog.Logger) (domain.Gateway, error) {
	switch cfg.General.Channel {
	case "twilio":
		return NewTwilio(TwilioGatewayConfig{Config: cfg.Twilio, Logger: logger}), nil
	case "telegram":
		return NewTelegram(TelegramGatewayConfig{Config: cfg.Telegram, Logger: logger}), nil
	default:
		return nil, fmt.Errorf("unknown channel: %s", cfg.General.Channel)
	}
}

func decodeJSON(r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
