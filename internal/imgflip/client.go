// Package imgflip is a client for the Imgflip REST API. One client, one
// method per endpoint; credentials are injected per request from the config
// the client was built with.
package imgflip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"memebot/internal/domain"
	"memebot/internal/metrics"
)

const (
	defaultAPIBase = "https://api.imgflip.com"
	defaultTimeout = 60 * time.Second
)

// Client implements domain.MemeService against api.imgflip.com.
type Client struct {
	username    string
	password    string
	apiBase     string
	noWatermark bool
	client      *http.Client
	logger      *slog.Logger
}

type Config struct {
	Username    string
	Password    string
	APIBase     string
	NoWatermark bool
	Logger      *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		username:    cfg.Username,
		password:    cfg.Password,
		apiBase:     cfg.APIBase,
		noWatermark: cfg.NoWatermark,
		client:      &http.Client{Timeout: defaultTimeout},
		logger:      cfg.Logger,
	}
}

// envelope is the common {success, data | error_message} response wrapper.
type envelope struct {
	Success      bool            `json:"success"`
	ErrorMessage string          `json:"error_message"`
	Data         json.RawMessage `json:"data"`
}

type memeData struct {
	URL        string      `json:"url"`
	PageURL    string      `json:"page_url"`
	TemplateID json.Number `json:"template_id"`
	Texts      []string    `json:"texts"`
}

type templateData struct {
	ID       json.Number `json:"id"`
	Name     string      `json:"name"`
	URL      string      `json:"url"`
	BoxCount int         `json:"box_count"`
}

func (t templateData) toDomain() domain.Template {
	return domain.Template{
		ID:       t.ID.String(),
		Name:     t.Name,
		URL:      t.URL,
		BoxCount: t.BoxCount,
	}
}

func (m memeData) toDomain() *domain.Meme {
	return &domain.Meme{
		URL:        m.URL,
		PageURL:    m.PageURL,
		TemplateID: m.TemplateID.String(),
		Texts:      m.Texts,
	}
}

// post sends a form-encoded request with credentials and decodes the
// envelope. A well-formed failure response comes back as *domain.ServiceError.
func (c *Client) post(ctx context.Context, endpoint string, form url.Values, out any) error {
	form.Set("username", c.username)
	form.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiBase+"/"+endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.ImgflipLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("imgflip %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("imgflip %s: HTTP %d: %s", endpoint, resp.StatusCode, string(body))
	}

	return decodeEnvelope(resp.Body, endpoint, out)
}

func decodeEnvelope(r io.Reader, endpoint string, out any) error {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return fmt.Errorf("imgflip %s: decode: %w", endpoint, err)
	}
	if !env.Success {
		msg := env.ErrorMessage
		if msg == "" {
			msg = "unknown error"
		}
		return &domain.ServiceError{Message: msg}
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("imgflip %s: decode data: %w", endpoint, err)
		}
	}
	return nil
}

func (c *Client) watermarkValue() string {
	if c.noWatermark {
		return "1"
	}
	return "0"
}

// AutoCaption calls the automeme endpoint: the service picks a template and
// splits the text onto it.
func (c *Client) AutoCaption(ctx context.Context, text string) (*domain.Meme, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("no_watermark", c.watermarkValue())

	var data memeData
	if err := c.post(ctx, "automeme", form, &data); err != nil {
		return nil, err
	}
	c.logger.Info("automeme generated", "url", data.URL)
	return data.toDomain(), nil
}

// AIGenerate calls the ai_meme endpoint with the given prompt.
func (c *Client) AIGenerate(ctx context.Context, prompt string) (*domain.Meme, error) {
	form := url.Values{}
	form.Set("model", "openai")
	form.Set("prefix_text", prompt)
	form.Set("no_watermark", c.watermarkValue())

	var data memeData
	if err := c.post(ctx, "ai_meme", form, &data); err != nil {
		return nil, err
	}
	c.logger.Info("ai meme generated", "url", data.URL)
	return data.toDomain(), nil
}

// SearchTemplates calls search_memes and returns matching templates.
func (c *Client) SearchTemplates(ctx context.Context, query string) ([]domain.Template, error) {
	form := url.Values{}
	form.Set("query", query)
	form.Set("include_nsfw", "0")

	var data struct {
		Memes []templateData `json:"memes"`
	}
	if err := c.post(ctx, "search_memes", form, &data); err != nil {
		return nil, err
	}

	templates := make([]domain.Template, 0, len(data.Memes))
	for _, m := range data.Memes {
		templates = append(templates, m.toDomain())
	}
	return templates, nil
}

// ListTemplates calls get_memes, the service's popular-template listing.
// This endpoint is a plain GET and needs no credentials.
func (c *Client) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.apiBase+"/get_memes", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.ImgflipLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("imgflip get_memes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("imgflip get_memes: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		Memes []templateData `json:"memes"`
	}
	if err := decodeEnvelope(resp.Body, "get_memes", &data); err != nil {
		return nil, err
	}

	templates := make([]domain.Template, 0, len(data.Memes))
	for _, m := range data.Memes {
		templates = append(templates, m.toDomain())
	}
	return templates, nil
}

// GetTemplate calls get_meme for a single template.
func (c *Client) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	form := url.Values{}
	form.Set("template_id", id)

	var data struct {
		Meme templateData `json:"meme"`
	}
	if err := c.post(ctx, "get_meme", form, &data); err != nil {
		return nil, err
	}
	tpl := data.Meme.toDomain()
	return &tpl, nil
}

// CaptionImage calls caption_image. The endpoint accepts exactly two caption
// fields; templates with more boxes still render with text0/text1 only.
func (c *Client) CaptionImage(ctx context.Context, id, text0, text1 string) (*domain.Meme, error) {
	form := url.Values{}
	form.Set("template_id", id)
	form.Set("text0", text0)
	form.Set("text1", text1)
	form.Set("font", "impact")
	form.Set("no_watermark", c.watermarkValue())

	var data memeData
	if err := c.post(ctx, "caption_image", form, &data); err != nil {
		return nil, err
	}
	c.logger.Info("template captioned", "template", id, "url", data.URL)
	return data.toDomain(), nil
}

// CaptionGif calls caption_gif with one boxes[i][text] field per caption.
func (c *Client) CaptionGif(ctx context.Context, id string, texts []string) (*domain.Meme, error) {
	form := url.Values{}
	form.Set("template_id", id)
	form.Set("no_watermark", c.watermarkValue())
	for i, text := range texts {
		form.Set(fmt.Sprintf("boxes[%d][text]", i), text)
	}

	var data memeData
	if err := c.post(ctx, "caption_gif", form, &data); err != nil {
		return nil, err
	}
	c.logger.Info("gif captioned", "template", id, "url", data.URL)
	return data.toDomain(), nil
}
