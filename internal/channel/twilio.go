package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"memebot/internal/config"
	"memebot/internal/metrics"
)

const (
	twilioConversationsBase = "https://conversations.twilio.com/v1"
	twilioMessagingBase     = "https://api.twilio.com/2010-04-01"
)

// Twilio implements domain.Gateway over the Twilio Conversations API with a
// WhatsApp participant. Receive is a polling block: the newest inbound
// message is returned and deleted so it is consumed exactly once.
type Twilio struct {
	cfg    config.TwilioConfig
	logger *slog.Logger
	client *http.Client

	// overridable in tests
	conversationsBase string
	messagingBase     string

	userAddress string // whatsapp:+E164 of the counterparty
	botAddress  string // whatsapp:+E164 of the Twilio number
	convSID     string
}

type TwilioGatewayConfig struct {
	Config config.TwilioConfig
	Logger *slog.Logger
}

func NewTwilio(cfg TwilioGatewayConfig) *Twilio {
	return &Twilio{
		cfg:               cfg.Config,
		logger:            cfg.Logger,
		client:            &http.Client{Timeout: 30 * time.Second},
		conversationsBase: twilioConversationsBase,
		messagingBase:     twilioMessagingBase,
		userAddress:       "whatsapp:" + cfg.Config.UserNumber,
		botAddress:        "whatsapp:" + cfg.Config.BotNumber,
	}
}

func (t *Twilio) Name() string { return "twilio" }

// Connect finds the conversation whose participant is bound to the user's
// WhatsApp address, creating one if none exists.
func (t *Twilio) Connect(ctx context.Context) error {
	sid, err := t.findConversation(ctx)
	if err != nil {
		return fmt.Errorf("find conversation: %w", err)
	}
	if sid == "" {
		sid, err = t.createConversation(ctx)
		if err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		t.logger.Info("conversation created", "sid", sid)
	} else {
		t.logger.Info("conversation found", "sid", sid)
	}
	t.convSID = sid
	return nil
}

// WaitForMessage polls the conversation until the counterparty has sent a
// message, then deletes and returns it.
func (t *Twilio) WaitForMessage(ctx context.Context) (string, error) {
	interval := time.Duration(t.cfg.PollIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		msgs, err := t.listMessages(ctx)
		if err != nil {
			return "", fmt.Errorf("list messages: %w", err)
		}
		metrics.GatewayPolls.Inc()

		if len(msgs) > 0 && msgs[len(msgs)-1].Author == t.userAddress {
			last := msgs[len(msgs)-1]
			if err := t.deleteMessage(ctx, last.SID); err != nil {
				t.logger.Warn("could not delete consumed message", "sid", last.SID, "err", err)
			}
			t.logger.Info("message received", "len", len(last.Body))
			return last.Body, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (t *Twilio) SendText(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("Body", text)
	endpoint := fmt.Sprintf("%s/Conversations/%s/Messages", t.serviceBase(), t.convSID)
	if err := t.postForm(ctx, endpoint, form, nil); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}

// SendMedia sends the image through the Messaging API rather than the
// conversation, matching how WhatsApp media delivery works on Twilio.
func (t *Twilio) SendMedia(ctx context.Context, caption, mediaURL string) error {
	form := url.Values{}
	form.Set("From", t.botAddress)
	form.Set("To", t.userAddress)
	form.Set("Body", caption)
	form.Set("MediaUrl", mediaURL)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.messagingBase, t.cfg.AccountSID)
	if err := t.postForm(ctx, endpoint, form, nil); err != nil {
		return fmt.Errorf("send media: %w", err)
	}
	t.logger.Info("media sent", "url", mediaURL)
	return nil
}

// ResetHistory deletes every message the counterparty has sent so far, so a
// fresh session starts with no unread backlog.
func (t *Twilio) ResetHistory(ctx context.Context) error {
	msgs, err := t.listMessages(ctx)
	if err != nil {
		return fmt.Errorf("reset history: %w", err)
	}
	for _, m := range msgs {
		if m.Author != t.userAddress {
			continue
		}
		if err := t.deleteMessage(ctx, m.SID); err != nil {
			t.logger.Warn("could not delete stale message", "sid", m.SID, "err", err)
		}
	}
	return nil
}

// --- Conversations REST plumbing ---

func (t *Twilio) serviceBase() string {
	return fmt.Sprintf("%s/Services/%s", t.conversationsBase, t.cfg.ChatServiceSID)
}

type twConversation struct {
	SID string `json:"sid"`
}

type twConversationList struct {
	Conversations []twConversation `json:"conversations"`
}

type twParticipant struct {
	SID              string `json:"sid"`
	MessagingBinding *struct {
		Address      string `json:"address"`
		ProxyAddress string `json:"proxy_address"`
	} `json:"messaging_binding"`
}

type twParticipantList struct {
	Participants []twParticipant `json:"participants"`
}

type twMessage struct {
	SID    string `json:"sid"`
	Author string `json:"author"`
	Body   string `json:"body"`
}

type twMessageList struct {
	Messages []twMessage `json:"messages"`
}

// findConversation scans the service's conversations for one whose
// participant binding matches the user's address. Returns "" if none match.
func (t *Twilio) findConversation(ctx context.Context) (string, error) {
	var list twConversationList
	if err := t.get(ctx, t.serviceBase()+"/Conversations?PageSize=50", &list); err != nil {
		return "", err
	}

	for _, conv := range list.Conversations {
		var participants twParticipantList
		endpoint := fmt.Sprintf("%s/Conversations/%s/Participants", t.serviceBase(), conv.SID)
		if err := t.get(ctx, endpoint, &participants); err != nil {
			return "", err
		}
		for _, p := range participants.Participants {
			if p.MessagingBinding != nil && p.MessagingBinding.Address == t.userAddress {
				return conv.SID, nil
			}
		}
	}
	return "", nil
}

func (t *Twilio) createConversation(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("FriendlyName", "Conversation with "+t.userAddress)

	var conv twConversation
	if err := t.postForm(ctx, t.serviceBase()+"/Conversations", form, &conv); err != nil {
		return "", err
	}

	pform := url.Values{}
	pform.Set("MessagingBinding.Address", t.userAddress)
	pform.Set("MessagingBinding.ProxyAddress", t.botAddress)
	endpoint := fmt.Sprintf("%s/Conversations/%s/Participants", t.serviceBase(), conv.SID)
	if err := t.postForm(ctx, endpoint, pform, nil); err != nil {
		return "", fmt.Errorf("bind participant: %w", err)
	}

	return conv.SID, nil
}

func (t *Twilio) listMessages(ctx context.Context) ([]twMessage, error) {
	var list twMessageList
	endpoint := fmt.Sprintf("%s/Conversations/%s/Messages?PageSize=50", t.serviceBase(), t.convSID)
	if err := t.get(ctx, endpoint, &list); err != nil {
		return nil, err
	}
	return list.Messages, nil
}

func (t *Twilio) deleteMessage(ctx context.Context, messageSID string) error {
	endpoint := fmt.Sprintf("%s/Conversations/%s/Messages/%s", t.serviceBase(), t.convSID, messageSID)
	req, err := http.NewRequestWithContext(ctx, "DELETE", endpoint, nil)
	if err != nil {
		return err
	}
	return t.do(req, nil)
}

func (t *Twilio) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return err
	}
	return t.do(req, out)
}

func (t *Twilio) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return t.do(req, out)
}

func (t *Twilio) do(req *http.Request, out any) error {
	req.SetBasicAuth(t.cfg.APIKeySID, t.cfg.APIKeySecret)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twilio %d: %s", resp.StatusCode, string(body))
	}

	if out != nil {
		return decodeJSON(resp.Body, out)
	}
	return nil
}
