package processor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

type ProcessorConfig struct {
	// Readability narrows the document to its main article before text
	// extraction. Pages without a detectable article fall back to the whole
	// document.
	Readability bool
	// StripTags lists elements removed together with their contents.
	StripTags []string
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if len(config.StripTags) == 0 {
		config.StripTags = []string{"script", "style"}
	}

	return Processor{
		config: config,
	}
}

func New() Processor {
	return NewWithConfig(ProcessorConfig{})
}

// Extract converts rendered HTML into newline separated plain text.
func (p Processor) Extract(pageURL, rawHTML string) (string, error) {
	if p.config.Readability {
		if article, ok := p.mainArticle(pageURL, rawHTML); ok {
			rawHTML = article
		}
	}

	doc, err := parseDocument(rawHTML)
	if err != nil {
		return "", err
	}

	doc.Find(strings.Join(p.config.StripTags, ", ")).Remove()

	return Normalize(doc.Text()), nil
}

func (p Processor) mainArticle(pageURL, rawHTML string) (string, bool) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}

	article, err := readability.NewParser().Parse(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		zap.L().Debug("readability: no article found", zap.String("url", pageURL), zap.Error(err))
		return "", false
	}
	if strings.TrimSpace(article.Content) == "" {
		return "", false
	}

	return article.Content, true
}

// parseDocument parses with scripting disabled so <noscript> contents become
// elements instead of raw text.
func parseDocument(rawHTML string) (*goquery.Document, error) {
	root, err := html.ParseWithOptions(strings.NewReader(rawHTML), html.ParseOptionEnableScripting(false))
	if err != nil {
		return nil, eris.Wrap(err, "processor: parse html")
	}
	return goquery.NewDocumentFromNode(root), nil
}

// Normalize trims every line, splits lines on runs of two spaces, drops empty
// fragments and joins the rest with single newlines. Normalize is idempotent.
func Normalize(text string) string {
	var chunks []string

	for _, line := range strings.FieldsFunc(text, isLineBreak) {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				chunks = append(chunks, phrase)
			}
		}
	}

	return strings.Join(chunks, "\n")
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}
