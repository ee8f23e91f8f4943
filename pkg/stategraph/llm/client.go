// Package llm defines the language-model client interface consumed by
// graph nodes, plus deterministic offline clients for tests and demos.
// Concrete provider clients live outside this module.
package llm

import (
	"context"
	"strings"
)

// Client completes a conversation.
// Implementations must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

// Complete implements Client.
func (f ClientFunc) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return f(ctx, req)
}

// Echo is a Client that answers with the last user message.
type Echo struct {
	// Prefix is prepended to every answer.
	Prefix string
}

// Complete implements Client.
func (e Echo) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content := e.Prefix + req.LastUser()
	return &CompletionResponse{
		Content:      content,
		Model:        "echo",
		FinishReason: "stop",
		Usage:        estimateUsage(req, content),
	}, nil
}

// estimateUsage approximates token counts by whitespace-separated words.
func estimateUsage(req CompletionRequest, content string) TokenUsage {
	in := len(strings.Fields(req.SystemPrompt))
	for _, m := range req.Messages {
		in += len(strings.Fields(m.Content))
	}
	out := len(strings.Fields(content))
	if in == 0 {
		in = 1
	}
	if out == 0 {
		out = 1
	}
	return TokenUsage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
}
