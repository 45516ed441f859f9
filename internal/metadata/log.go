// Package metadata keeps the append-only record of generated memes: a JSON
// document plus the downloaded images, laid out per generation type under
// the workspace directory.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"memebot/internal/domain"
)

const logFileName = "meme_metadata.json"

// Entry is one generated meme in the log. Entries are appended, never
// mutated or deleted.
type Entry struct {
	Timestamp  string   `json:"timestamp"`
	Type       string   `json:"type"`
	Query      string   `json:"query"`
	ImgflipURL string   `json:"imgflip_url"`
	PageURL    string   `json:"page_url,omitempty"`
	LocalPath  string   `json:"local_path,omitempty"`
	TemplateID string   `json:"template_id,omitempty"`
	Texts      []string `json:"texts"`
}

type document struct {
	Memes []Entry `json:"memes"`
}

// Log implements domain.Recorder over a workspace directory.
type Log struct {
	dir     string
	path    string
	folders map[string]string
	client  *http.Client
	logger  *slog.Logger
	mu      sync.Mutex
}

func NewLog(dir string, logger *slog.Logger) (*Log, error) {
	folders := map[string]string{
		"ai":      filepath.Join(dir, "ai_memes"),
		"auto":    filepath.Join(dir, "auto_memes"),
		"caption": filepath.Join(dir, "captioned_memes"),
	}
	for _, folder := range folders {
		if err := os.MkdirAll(folder, 0o755); err != nil {
			return nil, fmt.Errorf("create meme folder %s: %w", folder, err)
		}
	}

	return &Log{
		dir:     dir,
		path:    filepath.Join(dir, logFileName),
		folders: folders,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}, nil
}

// Path returns the location of the JSON document.
func (l *Log) Path() string { return l.path }

// Record downloads the meme image and appends an entry to the log. A failed
// download still produces an entry, just without a local path.
func (l *Log) Record(ctx context.Context, kind, query string, meme *domain.Meme) error {
	localPath, err := l.download(ctx, kind, meme.URL)
	if err != nil {
		l.logger.Warn("meme download failed", "url", meme.URL, "err", err)
		localPath = ""
	}

	entry := Entry{
		Timestamp:  time.Now().Format(time.RFC3339),
		Type:       kind,
		Query:      query,
		ImgflipURL: meme.URL,
		PageURL:    meme.PageURL,
		LocalPath:  localPath,
		TemplateID: meme.TemplateID,
		Texts:      meme.Texts,
	}
	if entry.Texts == nil {
		entry.Texts = []string{}
	}

	return l.append(entry)
}

// Entries returns all logged memes in insertion order. A missing document is
// an empty log, not an error.
func (l *Log) Entries() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc, err := l.load()
	if err != nil {
		return nil, err
	}
	return doc.Memes, nil
}

func (l *Log) append(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.load()
	if err != nil {
		return err
	}
	doc.Memes = append(doc.Memes, entry)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func (l *Log) load() (*document, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return &document{Memes: []Entry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &doc, nil
}

func (l *Log) download(ctx context.Context, kind, memeURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", memeURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: HTTP %d", resp.StatusCode)
	}

	ext := "jpg"
	if strings.HasSuffix(memeURL, ".gif") {
		ext = "gif"
	} else if strings.HasSuffix(memeURL, ".png") {
		ext = "png"
	}

	folder, ok := l.folders[kind]
	if !ok {
		folder = l.dir
	}
	name := fmt.Sprintf("%s_%s.%s", kind, time.Now().Format("20060102_150405"), ext)
	path := filepath.Join(folder, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
