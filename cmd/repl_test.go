package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/xhad/pagechat/internal/models"
	"github.com/xhad/pagechat/pkg/config"
	"github.com/xhad/pagechat/pkg/content"
	"github.com/xhad/pagechat/pkg/llm"
	"github.com/xhad/pagechat/pkg/processor"
	"github.com/xhad/pagechat/pkg/scraper"
)

const examplePage = `<html><body>
<h1>Example Domain</h1>
<p>This domain is for use in examples.</p>
<script>var tracking = true;</script>
</body></html>`

type pageRenderer map[string]string

func (p pageRenderer) Render(_ context.Context, url string) (string, error) {
	html, ok := p[url]
	if !ok {
		return "", errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	return html, nil
}

// scriptedModel answers every prompt with reply and streams chunks when
// asked to.
type scriptedModel struct {
	mu       sync.Mutex
	reply    string
	chunks   []string
	prompts  []string
	streamed int
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var prompt strings.Builder
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt.WriteString(text.Text)
			}
		}
	}

	opts := llms.CallOptions{}
	for _, o := range options {
		o(&opts)
	}

	m.mu.Lock()
	m.prompts = append(m.prompts, prompt.String())
	if opts.StreamingFunc != nil {
		m.streamed++
	}
	m.mu.Unlock()

	if opts.StreamingFunc != nil {
		for _, chunk := range m.chunks {
			if err := opts.StreamingFunc(ctx, []byte(chunk)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

type memoryHistory struct {
	docs []models.ScrapedDocument
}

func (h *memoryHistory) Record(_ context.Context, doc models.ScrapedDocument) error {
	h.docs = append(h.docs, doc)
	return nil
}

func (h *memoryHistory) Recent(_ context.Context, limit int) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	for i := len(h.docs) - 1; i >= 0 && len(entries) < limit; i-- {
		d := h.docs[i]
		entries = append(entries, models.HistoryEntry{URL: d.URL, Length: d.Length, Preview: d.Preview, ScrapedAt: d.ScrapedAt})
	}
	return entries, nil
}

func (h *memoryHistory) Close() {}

func newTestRepl(t *testing.T, stream bool, model *scriptedModel) (*repl, *memoryHistory) {
	t.Helper()
	r := &repl{stream: stream}

	s, err := scraper.NewWithConfig(scraper.ScraperConfig{RateLimit: 1000, OnStage: r.onStage},
		pageRenderer{"https://example.com": examplePage}, processor.New())
	require.NoError(t, err)

	history := &memoryHistory{}
	r.pipeline = &pipeline{
		scraper: s,
		slot:    content.New(),
		engine:  llm.NewWithModel(llm.ChatConfig{Model: "stub"}, model),
		history: history,
	}
	r.forwarder = llm.NewForwarder(r.pipeline.engine, r.pipeline.slot)
	return r, history
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		line string
		want replCommand
	}{
		{"", replCommand{action: actionNone}},
		{"   ", replCommand{action: actionNone}},
		{"exit", replCommand{action: actionExit}},
		{"QUIT", replCommand{action: actionExit}},
		{"/help", replCommand{action: actionHelp}},
		{"/status", replCommand{action: actionStatus}},
		{"/clear", replCommand{action: actionClear}},
		{"/history", replCommand{action: actionHistory}},
		{"/ask what is 2+2?", replCommand{action: actionAsk, prompt: "what is 2+2?"}},
		{"https://example.com", replCommand{action: actionScrape, url: "https://example.com"}},
		{
			"summarize https://example.com/a?b=1 please",
			replCommand{action: actionScrape, url: "https://example.com/a?b=1", prompt: "summarize please"},
		},
		{"What is this page about?", replCommand{action: actionChat, prompt: "What is this page about?"}},
		{"example.com", replCommand{action: actionChat, prompt: "example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, parseInput(tt.line))
		})
	}
}

func TestReplExitsOnEOFAndExit(t *testing.T) {
	r := &repl{}
	assert.NoError(t, r.run(context.Background(), strings.NewReader("")))
	assert.NoError(t, r.run(context.Background(), strings.NewReader("\n\nexit\n/status\n")))
}

func TestReplScrapeThenChat(t *testing.T) {
	model := &scriptedModel{reply: "An example page.", chunks: []string{"An example", " page."}}
	r, history := newTestRepl(t, true, model)

	input := strings.Join([]string{
		"what is this? https://example.com",
		"/ask hello",
		"https://missing.example tell me",
		"/status",
		"/history",
		"/clear",
		"anything left?",
		"exit",
	}, "\n")
	require.NoError(t, r.run(context.Background(), strings.NewReader(input)))

	require.Len(t, history.docs, 1)
	doc := history.docs[0]
	assert.Equal(t, "https://example.com", doc.URL)
	assert.Equal(t, "Example Domain\nThis domain is for use in examples.", doc.Text)
	assert.Equal(t, doc.Text+"...", doc.Preview)

	// The failed scrape and the chat after /clear never reach the model.
	require.Len(t, model.prompts, 2)
	assert.Equal(t, llm.ComposePrompt(doc.URL, doc.Text, "what is this?"), model.prompts[0])
	assert.Equal(t, "hello", model.prompts[1])
	assert.Equal(t, 2, model.streamed)

	assert.False(t, r.pipeline.slot.Status().HasContent)
}

func TestReplWithoutStreaming(t *testing.T) {
	model := &scriptedModel{reply: "A summary."}
	r, history := newTestRepl(t, false, model)

	require.NoError(t, r.run(context.Background(), strings.NewReader("https://example.com summarize\nexit\n")))

	require.Len(t, history.docs, 1)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "summarize")
	assert.Contains(t, model.prompts[0], "This domain is for use in examples.")
	assert.Zero(t, model.streamed)
	assert.Equal(t, "https://example.com", r.pipeline.slot.Status().URL)
}

func TestChatConfig(t *testing.T) {
	temperature := 0.2
	got := chatConfig(config.LLMConfig{
		Provider:    config.ProviderOpenAI,
		Endpoint:    config.DefaultEndpoint,
		APIKey:      "k",
		Model:       config.DefaultModel,
		TimeoutMs:   1500,
		Temperature: &temperature,
		MaxTokens:   512,
	})

	assert.Equal(t, config.DefaultEndpoint, got.Endpoint)
	assert.Equal(t, "k", got.APIKey)
	assert.Equal(t, 1500*time.Millisecond, got.Timeout)
	require.NotNil(t, got.Temperature)
	assert.Equal(t, 0.2, *got.Temperature)
	assert.Equal(t, 512, got.MaxTokens)
}

func TestBrowserConfig(t *testing.T) {
	got := browserConfig(config.ScraperConfig{
		NavigationTimeoutMs: 45000,
		SettleTimeoutMs:     3000,
		PollIntervalMs:      250,
		StablePolls:         2,
		UserAgent:           "pagechat",
		ChromePath:          "/usr/bin/chromium",
	})

	assert.Equal(t, 45*time.Second, got.NavigationTimeout)
	assert.Equal(t, 3*time.Second, got.SettleTimeout)
	assert.Equal(t, 250*time.Millisecond, got.PollInterval)
	assert.Equal(t, 2, got.StablePolls)
	assert.Equal(t, "/usr/bin/chromium", got.ExecPath)
}

func TestInitPipelineWithoutDatabase(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PAGECHAT_LLM_API_KEY", "test-key")

	c, err := config.LoadConfig("")
	require.NoError(t, err)

	p, err := initPipeline(context.Background(), c, nil)
	require.NoError(t, err)
	defer p.Close()

	assert.NotNil(t, p.scraper)
	assert.NotNil(t, p.engine)
	assert.Nil(t, p.history)
	assert.False(t, p.slot.Status().HasContent)
}
