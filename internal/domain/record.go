package domain

import "context"

// Recorder persists a successfully generated meme (metadata log plus the
// downloaded image). Recording is best-effort from the session's point of
// view: a failed Record never blocks delivery to the user.
type Recorder interface {
	Record(ctx context.Context, kind, query string, meme *Meme) error
}

// HistoryStore keeps an audit trail of dispatched commands and generation
// outcomes.
type HistoryStore interface {
	RecordCommand(ctx context.Context, keyword, argument string) error
	RecordGeneration(ctx context.Context, kind, query, url string, ok bool, errMsg string) error
	Close() error
}
