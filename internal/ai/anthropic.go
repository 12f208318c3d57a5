package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultModel is used when the user has not picked one in their AI settings.
const DefaultModel = "claude-sonnet-4-5"

const maxCompletionTokens = 1024

// Completer produces a single completion for a system+user prompt pair.
// The Claude-backed implementation is the only production one; tests
// substitute a canned fake.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ClaudeCompleter calls the Anthropic Messages API.
type ClaudeCompleter struct {
	client anthropic.Client
	model  string
}

// NewClaudeCompleter builds a completer for the given API key and model.
// An empty model falls back to DefaultModel.
func NewClaudeCompleter(apiKey, model string) *ClaudeCompleter {
	if model == "" {
		model = DefaultModel
	}
	return &ClaudeCompleter{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Complete sends one user message and returns the concatenated text blocks
// of the response.
func (c *ClaudeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxCompletionTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude completion: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("claude completion: response has no text content")
	}
	return sb.String(), nil
}
