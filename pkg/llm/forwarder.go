package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/xhad/pagechat/internal/models"
	"github.com/xhad/pagechat/internal/types"
)

const NoContentMessage = "No content has been scraped yet. Please scrape a website first."

// Forwarder answers chat requests, optionally grounding them in the
// document held by the content slot. It never returns an error; failures
// come back as a ChatResponse with status "error".
type Forwarder struct {
	completer types.Completer
	slot      types.ContentSlot
}

func NewForwarder(completer types.Completer, slot types.ContentSlot) *Forwarder {
	return &Forwarder{completer: completer, slot: slot}
}

// Prompt builds the text sent to the model. ok is false when scraped
// content was requested but the slot is empty.
func (f *Forwarder) Prompt(req models.ChatRequest) (prompt string, ok bool) {
	if !req.WantsContent() {
		return req.UserPrompt, true
	}
	doc, ok := f.slot.Snapshot()
	if !ok {
		return "", false
	}
	return ComposePrompt(doc.URL, doc.Text, req.UserPrompt), true
}

func (f *Forwarder) Ask(ctx context.Context, req models.ChatRequest) models.ChatResponse {
	return f.Stream(ctx, req, nil)
}

// Stream behaves like Ask and additionally hands each generated chunk to
// onChunk when it is non-nil.
func (f *Forwarder) Stream(ctx context.Context, req models.ChatRequest, onChunk func(chunk string) error) models.ChatResponse {
	prompt, ok := f.Prompt(req)
	if !ok {
		return models.ChatResponse{Response: NoContentMessage, Status: models.ChatNoContent}
	}

	var (
		answer string
		err    error
	)
	if onChunk != nil {
		answer, err = f.completer.CompleteStream(ctx, prompt, onChunk)
	} else {
		answer, err = f.completer.Complete(ctx, prompt)
	}
	if err != nil {
		zap.L().Warn("llm: chat failed", zap.Error(err))
		return models.ChatResponse{
			Response: "Error generating response: " + err.Error(),
			Status:   models.ChatError,
			Error:    err.Error(),
		}
	}

	return models.ChatResponse{Response: answer, Status: models.ChatOK}
}
