package imgflip

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"memebot/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		Username:    "user",
		Password:    "pass",
		APIBase:     srv.URL,
		NoWatermark: true,
	})
}

func TestAutoCaption_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/automeme" {
			t.Errorf("expected /automeme, got %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("username") != "user" || r.PostForm.Get("password") != "pass" {
			t.Error("credentials missing from form")
		}
		if r.PostForm.Get("text") != "one does not simply test" {
			t.Errorf("unexpected text: %q", r.PostForm.Get("text"))
		}
		if r.PostForm.Get("no_watermark") != "1" {
			t.Errorf("expected no_watermark=1, got %q", r.PostForm.Get("no_watermark"))
		}
		fmt.Fprint(w, `{"success": true, "data": {"url": "https://i.imgflip.com/abc.jpg", "page_url": "https://imgflip.com/i/abc", "template_id": 61579, "texts": ["one does not simply", "test"]}}`)
	})

	meme, err := c.AutoCaption(t.Context(), "one does not simply test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meme.URL != "https://i.imgflip.com/abc.jpg" {
		t.Fatalf("unexpected url: %q", meme.URL)
	}
	if meme.TemplateID != "61579" {
		t.Fatalf("template id should survive numeric JSON, got %q", meme.TemplateID)
	}
	if len(meme.Texts) != 2 {
		t.Fatalf("expected 2 texts, got %d", len(meme.Texts))
	}
}

func TestAIGenerate_ServiceFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": false, "error_message": "AI meme quota exceeded"}`)
	})

	_, err := c.AIGenerate(t.Context(), "cats at work")
	var svcErr *domain.ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *domain.ServiceError, got %T: %v", err, err)
	}
	if svcErr.Message != "AI meme quota exceeded" {
		t.Fatalf("expected verbatim service message, got %q", svcErr.Message)
	}
}

func TestPost_HTTPErrorIsNotServiceError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := c.AutoCaption(t.Context(), "text")
	if err == nil {
		t.Fatal("expected error")
	}
	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) {
		t.Fatal("HTTP-level failures must not be ServiceError")
	}
}

func TestSearchTemplates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search_memes" {
			t.Errorf("expected /search_memes, got %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("query") != "cat" {
			t.Errorf("unexpected query: %q", r.PostForm.Get("query"))
		}
		fmt.Fprint(w, `{"success": true, "data": {"memes": [
			{"id": "101", "name": "Grumpy Cat", "url": "https://i.imgflip.com/1.jpg", "box_count": 2},
			{"id": "102", "name": "Smudge", "url": "https://i.imgflip.com/2.jpg", "box_count": 3}
		]}}`)
	})

	templates, err := c.SearchTemplates(t.Context(), "cat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(templates))
	}
	if templates[0].Name != "Grumpy Cat" || templates[0].BoxCount != 2 {
		t.Fatalf("unexpected first template: %+v", templates[0])
	}
}

func TestListTemplates_GetWithoutCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("get_memes should be a GET, got %s", r.Method)
		}
		fmt.Fprint(w, `{"success": true, "data": {"memes": [
			{"id": "61579", "name": "One Does Not Simply", "url": "https://i.imgflip.com/1bij.jpg", "box_count": 2}
		]}}`)
	})

	templates, err := c.ListTemplates(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(templates) != 1 || templates[0].ID != "61579" {
		t.Fatalf("unexpected templates: %+v", templates)
	}
}

func TestGetTemplate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("template_id") != "61579" {
			t.Errorf("unexpected template_id: %q", r.PostForm.Get("template_id"))
		}
		fmt.Fprint(w, `{"success": true, "data": {"meme": {"id": "61579", "name": "One Does Not Simply", "url": "https://i.imgflip.com/1bij.jpg", "box_count": 2}}}`)
	})

	tpl, err := c.GetTemplate(t.Context(), "61579")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tpl.BoxCount != 2 {
		t.Fatalf("expected box_count 2, got %d", tpl.BoxCount)
	}
}

func TestCaptionImage_SendsBothTexts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("text0") != "top" || r.PostForm.Get("text1") != "bottom" {
			t.Errorf("unexpected texts: %q / %q", r.PostForm.Get("text0"), r.PostForm.Get("text1"))
		}
		fmt.Fprint(w, `{"success": true, "data": {"url": "https://i.imgflip.com/cap.jpg", "page_url": "https://imgflip.com/i/cap"}}`)
	})

	meme, err := c.CaptionImage(t.Context(), "61579", "top", "bottom")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meme.URL != "https://i.imgflip.com/cap.jpg" {
		t.Fatalf("unexpected url: %q", meme.URL)
	}
}

func TestCaptionGif_SendsOneFieldPerBox(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/caption_gif" {
			t.Errorf("expected /caption_gif, got %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("boxes[0][text]") != "one" || r.PostForm.Get("boxes[2][text]") != "three" {
			t.Errorf("unexpected boxes: %v", r.PostForm)
		}
		fmt.Fprint(w, `{"success": true, "data": {"url": "https://i.imgflip.com/out.gif", "page_url": "https://imgflip.com/i/out"}}`)
	})

	meme, err := c.CaptionGif(t.Context(), "20260420", []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meme.URL != "https://i.imgflip.com/out.gif" {
		t.Fatalf("unexpected url: %q", meme.URL)
	}
}
