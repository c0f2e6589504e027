package types

import (
	"context"

	"github.com/xhad/pagechat/internal/models"
)

// Core interfaces
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

type Extractor interface {
	Extract(pageURL, html string) (string, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type ContentSlot interface {
	Store(url, text string) models.ScrapedDocument
	Snapshot() (models.ScrapedDocument, bool)
	Status() models.StatusResponse
	Preview() string
	Clear()
}

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteStream(ctx context.Context, prompt string, onChunk func(chunk string) error) (string, error)
}

type HistoryStore interface {
	Record(ctx context.Context, doc models.ScrapedDocument) error
	Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error)
	Close()
}
