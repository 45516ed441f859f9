package channel

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"memebot/internal/config"
)

func testTwilioConfig() config.TwilioConfig {
	return config.TwilioConfig{
		AccountSID:          "AC123",
		APIKeySID:           "SK123",
		APIKeySecret:        "secret",
		ChatServiceSID:      "IS123",
		UserNumber:          "+4911111111",
		BotNumber:           "+14155238886",
		PollIntervalSeconds: 1,
	}
}

func newTestTwilio(t *testing.T, handler http.Handler) *Twilio {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tw := NewTwilio(TwilioGatewayConfig{
		Config: testTwilioConfig(),
		Logger: slog.New(slog.DiscardHandler),
	})
	tw.conversationsBase = srv.URL
	tw.messagingBase = srv.URL
	return tw
}

func TestConnect_FindsConversationByParticipantBinding(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /Services/IS123/Conversations", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"conversations": [{"sid": "CH1"}, {"sid": "CH2"}]}`)
	})
	mux.HandleFunc("GET /Services/IS123/Conversations/CH1/Participants", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"participants": [{"sid": "MB1", "messaging_binding": {"address": "whatsapp:+49999"}}]}`)
	})
	mux.HandleFunc("GET /Services/IS123/Conversations/CH2/Participants", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"participants": [{"sid": "MB2", "messaging_binding": {"address": "whatsapp:+4911111111"}}]}`)
	})

	tw := newTestTwilio(t, mux)
	if err := tw.Connect(t.Context()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if tw.convSID != "CH2" {
		t.Fatalf("expected CH2, got %q", tw.convSID)
	}
}

func TestConnect_CreatesConversationWhenNoneMatches(t *testing.T) {
	var boundAddress string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /Services/IS123/Conversations", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"conversations": []}`)
	})
	mux.HandleFunc("POST /Services/IS123/Conversations", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sid": "CHNEW"}`)
	})
	mux.HandleFunc("POST /Services/IS123/Conversations/CHNEW/Participants", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		boundAddress = r.PostForm.Get("MessagingBinding.Address")
		fmt.Fprint(w, `{"sid": "MBNEW"}`)
	})

	tw := newTestTwilio(t, mux)
	if err := tw.Connect(t.Context()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if tw.convSID != "CHNEW" {
		t.Fatalf("expected CHNEW, got %q", tw.convSID)
	}
	if boundAddress != "whatsapp:+4911111111" {
		t.Fatalf("participant bound to wrong address: %q", boundAddress)
	}
}

func TestWaitForMessage_ConsumesLatestUserMessage(t *testing.T) {
	var mu sync.Mutex
	var deleted []string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /Services/IS123/Conversations/CH1/Messages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"messages": [
			{"sid": "IM1", "author": "system", "body": "welcome"},
			{"sid": "IM2", "author": "whatsapp:+4911111111", "body": "meme hello"}
		]}`)
	})
	mux.HandleFunc("DELETE /Services/IS123/Conversations/CH1/Messages/{sid}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		deleted = append(deleted, r.PathValue("sid"))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	tw := newTestTwilio(t, mux)
	tw.convSID = "CH1"

	body, err := tw.WaitForMessage(t.Context())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if body != "meme hello" {
		t.Fatalf("expected user message body, got %q", body)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(deleted) != 1 || deleted[0] != "IM2" {
		t.Fatalf("consumed message should be deleted, got %v", deleted)
	}
}

func TestResetHistory_DeletesOnlyUserMessages(t *testing.T) {
	var mu sync.Mutex
	var deleted []string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /Services/IS123/Conversations/CH1/Messages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"messages": [
			{"sid": "IM1", "author": "whatsapp:+4911111111", "body": "old"},
			{"sid": "IM2", "author": "system", "body": "reply"},
			{"sid": "IM3", "author": "whatsapp:+4911111111", "body": "stale"}
		]}`)
	})
	mux.HandleFunc("DELETE /Services/IS123/Conversations/CH1/Messages/{sid}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		deleted = append(deleted, r.PathValue("sid"))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	tw := newTestTwilio(t, mux)
	tw.convSID = "CH1"

	if err := tw.ResetHistory(t.Context()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(deleted) != 2 {
		t.Fatalf("expected 2 deletions, got %v", deleted)
	}
}

func TestSendMedia_UsesMessagingAPI(t *testing.T) {
	var gotForm map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /Accounts/AC123/Messages.json", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		gotForm = map[string]string{
			"From":     r.PostForm.Get("From"),
			"To":       r.PostForm.Get("To"),
			"Body":     r.PostForm.Get("Body"),
			"MediaUrl": r.PostForm.Get("MediaUrl"),
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"sid": "SM1"}`)
	})

	tw := newTestTwilio(t, mux)
	tw.convSID = "CH1"

	err := tw.SendMedia(t.Context(), "Here's your generated meme.", "https://i.imgflip.com/abc.jpg")
	if err != nil {
		t.Fatalf("send media: %v", err)
	}
	if gotForm["From"] != "whatsapp:+14155238886" || gotForm["To"] != "whatsapp:+4911111111" {
		t.Fatalf("wrong addressing: %+v", gotForm)
	}
	if gotForm["MediaUrl"] != "https://i.imgflip.com/abc.jpg" {
		t.Fatalf("media url missing: %+v", gotForm)
	}
}
