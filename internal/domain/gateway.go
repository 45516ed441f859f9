package domain

import "context"

// Gateway is one long-lived messaging conversation with a single
// counterparty. The session loop owns the handle exclusively; handlers
// receive it by reference and may not create or close it.
type Gateway interface {
	Name() string

	// Connect establishes the conversation (find-or-create semantics where
	// the transport supports it). Must be called before any other method.
	Connect(ctx context.Context) error

	// WaitForMessage blocks until the counterparty sends a message and
	// returns its text. The message is consumed exactly once.
	WaitForMessage(ctx context.Context) (string, error)

	// SendText sends a plain text message to the counterparty.
	SendText(ctx context.Context, text string) error

	// SendMedia sends an image by URL with an accompanying caption.
	SendMedia(ctx context.Context, caption, mediaURL string) error

	// ResetHistory discards unread inbound messages so stale history does
	// not leak into the first command of a new session.
	ResetHistory(ctx context.Context) error
}
