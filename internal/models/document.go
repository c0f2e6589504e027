package models

import "time"

// ScrapedDocument is the text of the most recently scraped page. Preview is
// computed from Text when the document is stored.
type ScrapedDocument struct {
	URL       string
	Text      string
	Length    int
	Preview   string
	ScrapedAt time.Time
}

func (d ScrapedDocument) Empty() bool {
	return d.Text == ""
}

type ScrapeRequest struct {
	URL string `json:"url"`
}

type ScrapeResponse struct {
	Content       string `json:"content"`
	URL           string `json:"url"`
	ContentLength int    `json:"content_length"`
}

type StatusResponse struct {
	HasContent    bool   `json:"has_content"`
	ContentLength int    `json:"content_length"`
	URL           string `json:"url"`
}

// ChatRequest asks a question. A nil UseScrapedContent means true.
type ChatRequest struct {
	UserPrompt        string `json:"user_prompt"`
	UseScrapedContent *bool  `json:"use_scraped_content,omitempty"`
}

func (r ChatRequest) WantsContent() bool {
	return r.UseScrapedContent == nil || *r.UseScrapedContent
}

type ChatStatus string

const (
	ChatOK        ChatStatus = "ok"
	ChatNoContent ChatStatus = "no_content"
	ChatError     ChatStatus = "error"
)

// ChatResponse always carries displayable text in Response. Status tells a
// genuine answer apart from the informational and failure messages.
type ChatResponse struct {
	Response string     `json:"response"`
	Status   ChatStatus `json:"status"`
	Error    string     `json:"error,omitempty"`
}

type HistoryEntry struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Length    int       `json:"content_length"`
	Preview   string    `json:"preview"`
	ScrapedAt time.Time `json:"scraped_at"`
}
