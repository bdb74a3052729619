package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"go-terrawatch/types"
)

// Polisher optionally rewords a narrative summary through OpenAI for
// readability. It only ever replaces the summary sentence; the title,
// confidence label and evidence list are computed upstream and stay
// untouched, so the explanation remains fully backed by the trace.
type Polisher struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewPolisher returns nil when no API key is configured, which disables
// polishing entirely.
func NewPolisher(apiKey, model string, logger *zap.Logger) *Polisher {
	if apiKey == "" {
		return nil
	}
	return &Polisher{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger.With(zap.String("component", "narrative-polish")),
	}
}

// Polish rewrites story.Summary in place. Failures are logged and leave
// the deterministic summary as-is; a succeeded task never depends on the
// LLM being reachable.
func (p *Polisher) Polish(ctx context.Context, story *types.Narrative) {
	if p == nil || story == nil {
		return
	}

	prompt := fmt.Sprintf(
		"Reword the following automated environmental risk summary so it reads naturally. Keep every number and threshold exactly as given, do not add claims, answer with the reworded summary only:\n\n%s",
		story.Summary)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You rewrite automated geospatial analysis summaries concisely without changing their meaning or figures.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   120,
		N:           1,
		Temperature: 0.3,
	})
	if err != nil {
		p.logger.Warn("summary polish failed, keeping deterministic summary", zap.Error(err))
		return
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		p.logger.Warn("summary polish returned empty response")
		return
	}

	story.Summary = strings.TrimSpace(resp.Choices[0].Message.Content)
}
