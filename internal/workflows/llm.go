package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
	"github.com/randalmurphal/stategraph/pkg/stategraph/prompt"
	"github.com/randalmurphal/stategraph/pkg/stategraph/retry"
)

// ErrNoLLM is returned by nodes that need a language model when the
// context carries none.
var ErrNoLLM = errors.New("workflows: no llm client configured")

// System prompts. Offline keys its canned answers on them.
const (
	promptAssistant   = "You are a helpful assistant. Answer clearly."
	promptJoke        = "You are a comedian."
	promptEssayJudge  = `You grade UPSC essays. Reply only with JSON {"feedback": string, "score": integer 0-10}.`
	promptEssaySum    = "Summarize the essay feedback below into one paragraph."
	promptSentiment   = `Classify the review sentiment. Reply only with JSON {"sentiment": "Positive" | "Negative"}.`
	promptDiagnosis   = `Diagnose the negative review. Reply only with JSON {"issue_type": "UX" | "Performance" | "Bug" | "Support" | "Other", "tone": "angry" | "frustrated" | "disappointed" | "calm", "urgency": "low" | "medium" | "high"}.`
	promptSupport     = "You are a support assistant. Write an empathetic, helpful message."
	promptTweetWriter = "You are a funny and clever Twitter/X influencer. Max 250 characters, no question-answer format."
	promptTweetJudge  = `You are a ruthless Twitter critic. Reply only with JSON {"evaluation": "Approved" | "Needs_improvement", "feedback": string}.`
	promptTranslator  = "Translate the text. Keep it natural and clear. Do not add extra content."
)

// complete renders tmpl against data, sends it as a single-turn prompt
// and returns the answer text.
func complete(ctx stategraph.Context, system string, tmpl *prompt.Template, data any) (string, error) {
	text, err := tmpl.Render(data)
	if err != nil {
		return "", err
	}
	resp, err := chat(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: text}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// completeJSON sends a single-turn prompt and decodes the JSON answer.
func completeJSON[T any](ctx stategraph.Context, system string, tmpl *prompt.Template, data any) (T, error) {
	var out T
	text, err := complete(ctx, system, tmpl, data)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(stripFence(text)), &out); err != nil {
		return out, fmt.Errorf("decode model answer %q: %w", text, err)
	}
	return out, nil
}

func chat(ctx stategraph.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	client := ctx.LLM()
	if client == nil {
		return nil, ErrNoLLM
	}
	policy := retry.New(
		retry.WithBackoff(200*time.Millisecond, 5*time.Second),
		retry.WithOnRetry(func(attempt int, err error, wait time.Duration) {
			ctx.Logger().Warn("llm call failed, retrying",
				"attempt", attempt, "wait", wait, "error", err)
		}))
	resp, err := retry.Do(ctx, policy, func(c context.Context) (*llm.CompletionResponse, error) {
		return client.Complete(c, req)
	})
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	ctx.Logger().Debug("llm completion",
		"model", resp.Model,
		"total_tokens", resp.Usage.TotalTokens,
		"tool_calls", len(resp.ToolCalls))
	return resp, nil
}

// stripFence removes a surrounding markdown code fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func userMessage(content string) []llm.Message {
	return []llm.Message{{Role: llm.RoleUser, Content: content}}
}
