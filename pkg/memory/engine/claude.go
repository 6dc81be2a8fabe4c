package engine

import (
	"context"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeClassifier labels language and sentiment through Anthropic's
// Messages API. Wire it into Options.Classifier when an API key is
// available; the engine falls back to heuristics on any error.
type ClaudeClassifier struct {
	Client    *anthropic.Client
	Model     string
	MaxTokens int
}

// NewClaudeClassifier reads ANTHROPIC_API_KEY from the environment.
func NewClaudeClassifier(model string) *ClaudeClassifier {
	cl := anthropic.NewClient(
		anthropicopt.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	return &ClaudeClassifier{Client: &cl, Model: model, MaxTokens: 16}
}

func (c *ClaudeClassifier) Language(ctx context.Context, content string) (string, error) {
	out, err := c.ask(ctx, "Reply with only the two-letter ISO 639-1 language code of this text:\n\n"+content)
	if err != nil {
		return "", err
	}
	return strings.ToLower(out), nil
}

func (c *ClaudeClassifier) Sentiment(ctx context.Context, content string) (string, error) {
	out, err := c.ask(ctx, "Reply with exactly one word, positive, negative or neutral, describing the sentiment of this text:\n\n"+content)
	if err != nil {
		return "", err
	}
	out = strings.ToLower(out)
	switch out {
	case "positive", "negative", "neutral":
		return out, nil
	}
	return "neutral", nil
}

func (c *ClaudeClassifier) ask(ctx context.Context, prompt string) (string, error) {
	msg, err := c.Client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.Model),
		MaxTokens: int64(c.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
