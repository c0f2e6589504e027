// Package content holds the most recently scraped document.
package content

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/xhad/pagechat/internal/models"
)

const (
	DefaultMaxChars     = 15000
	DefaultPreviewChars = 1000

	Ellipsis = "..."
)

type SlotConfig struct {
	MaxChars     int
	PreviewChars int
}

// Slot stores at most one document. All methods are safe for concurrent use
// and readers always observe a URL and text written by the same Store call.
type Slot struct {
	config SlotConfig

	mu  sync.RWMutex
	doc models.ScrapedDocument
	now func() time.Time
}

func NewWithConfig(config SlotConfig) *Slot {
	if config.MaxChars <= 0 {
		config.MaxChars = DefaultMaxChars
	}
	if config.PreviewChars <= 0 {
		config.PreviewChars = DefaultPreviewChars
	}

	return &Slot{
		config: config,
		now:    time.Now,
	}
}

func New() *Slot {
	return NewWithConfig(SlotConfig{})
}

// Store replaces the slot with text truncated to MaxChars characters.
func (s *Slot) Store(url, text string) models.ScrapedDocument {
	text = Truncate(text, s.config.MaxChars)
	doc := models.ScrapedDocument{
		URL:       url,
		Text:      text,
		Length:    utf8.RuneCountInString(text),
		Preview:   Preview(text, s.config.PreviewChars),
		ScrapedAt: s.now(),
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	return doc
}

func (s *Slot) Clear() {
	s.mu.Lock()
	s.doc = models.ScrapedDocument{}
	s.mu.Unlock()
}

// Snapshot returns a copy of the stored document and whether it has text.
func (s *Slot) Snapshot() (models.ScrapedDocument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc, !s.doc.Empty()
}

func (s *Slot) Status() models.StatusResponse {
	doc, ok := s.Snapshot()
	if !ok {
		return models.StatusResponse{}
	}
	return models.StatusResponse{
		HasContent:    true,
		ContentLength: doc.Length,
		URL:           doc.URL,
	}
}

// Preview returns the head of the stored text followed by an ellipsis.
func (s *Slot) Preview() string {
	doc, _ := s.Snapshot()
	return Preview(doc.Text, s.config.PreviewChars)
}

func Preview(text string, n int) string {
	return Truncate(text, n) + Ellipsis
}

// Truncate returns the first n characters of text.
func Truncate(text string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(text) <= n {
		return text
	}

	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
