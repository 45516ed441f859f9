package domain

import "context"

// Template is a meme image skeleton with a fixed number of caption text boxes.
type Template struct {
	ID       string
	Name     string
	URL      string
	BoxCount int
}

// Meme is one generated image as reported by the meme service.
type Meme struct {
	URL        string
	PageURL    string
	TemplateID string
	Texts      []string
}

// MemeService is the remote meme-generation API consumed by the bot.
// Transport problems are returned as plain errors; a failure reported by
// the service itself is returned as *ServiceError so callers can surface
// its message verbatim.
type MemeService interface {
	// AutoCaption places the given text on an automatically chosen template.
	AutoCaption(ctx context.Context, text string) (*Meme, error)

	// AIGenerate asks the service's AI model to invent a meme from a prompt.
	AIGenerate(ctx context.Context, prompt string) (*Meme, error)

	// SearchTemplates returns templates matching the query, up to the
	// service's page size.
	SearchTemplates(ctx context.Context, query string) ([]Template, error)

	// ListTemplates returns the service's popular-template set.
	ListTemplates(ctx context.Context) ([]Template, error)

	// GetTemplate looks up a single template by id.
	GetTemplate(ctx context.Context, id string) (*Template, error)

	// CaptionImage renders text0/text1 onto the template. The service
	// supports exactly two caption fields on this endpoint.
	CaptionImage(ctx context.Context, id, text0, text1 string) (*Meme, error)

	// CaptionGif renders one text per box onto an animated template. Unlike
	// CaptionImage, this endpoint accepts an arbitrary number of boxes.
	CaptionGif(ctx context.Context, id string, texts []string) (*Meme, error)
}

// ServiceError is a failure reported by the meme service in a well-formed
// response ("success": false). It is a normal result, not a transport fault.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string { return e.Message }
