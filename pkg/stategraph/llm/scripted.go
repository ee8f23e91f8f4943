package llm

import (
	"context"
	"sync"
)

// ScriptedClient replays canned responses. It records every request so
// tests can assert on the prompts a node produced.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []CompletionResponse
	next      int
	err       error
	fn        ClientFunc

	// Calls holds every request received, in order.
	Calls []CompletionRequest
}

// NewScriptedClient returns a client that always answers content.
func NewScriptedClient(content string) *ScriptedClient {
	return &ScriptedClient{responses: []CompletionResponse{{Content: content}}}
}

// WithResponses replaces the canned answers. Calls cycle through them.
func (c *ScriptedClient) WithResponses(contents ...string) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = make([]CompletionResponse, len(contents))
	for i, content := range contents {
		c.responses[i] = CompletionResponse{Content: content}
	}
	c.next = 0
	return c
}

// WithToolCall queues a response requesting the given tool calls.
func (c *ScriptedClient) WithToolCall(calls ...ToolCall) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, CompletionResponse{ToolCalls: calls, FinishReason: "tool_use"})
	return c
}

// WithError makes every call fail with err.
func (c *ScriptedClient) WithError(err error) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
	return c
}

// WithCompleteFunc answers every call with fn.
func (c *ScriptedClient) WithCompleteFunc(fn ClientFunc) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fn = fn
	return c
}

// Complete implements Client.
func (c *ScriptedClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.Calls = append(c.Calls, req)
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	fn := c.fn
	var resp CompletionResponse
	if fn == nil && len(c.responses) > 0 {
		resp = c.responses[c.next%len(c.responses)]
		c.next++
	}
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if resp.FinishReason == "" {
		resp.FinishReason = "stop"
	}
	resp.Model = "scripted"
	resp.Usage = estimateUsage(req, resp.Content)
	return &resp, nil
}

// CallCount returns the number of calls received.
func (c *ScriptedClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// LastCall returns the most recent request, or nil if there was none.
func (c *ScriptedClient) LastCall() *CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Calls) == 0 {
		return nil
	}
	last := c.Calls[len(c.Calls)-1]
	return &last
}

// Reset clears recorded calls and rewinds the canned responses.
func (c *ScriptedClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = nil
	c.next = 0
}
