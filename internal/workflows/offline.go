package workflows

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
)

var negativeWords = []string{"bad", "terrible", "slow", "broken", "crash", "awful", "hate", "not"}

var operators = map[string]string{"+": "add", "-": "sub", "*": "mul", "x": "mul", "/": "div"}

// Offline returns a deterministic client that lets every workflow run
// without a model provider. Structured prompts get canned JSON, arithmetic
// chat turns go through the calculator tool, and anything else is echoed.
func Offline() llm.Client {
	echo := llm.Echo{}
	return llm.ClientFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		reply := func(content string) (*llm.CompletionResponse, error) {
			resp, err := echo.Complete(ctx, req)
			if err != nil {
				return nil, err
			}
			resp.Content = content
			resp.Model = "offline"
			return resp, nil
		}

		switch req.SystemPrompt {
		case promptEssayJudge:
			return reply(`{"feedback":"Clear structure and accurate content.","score":7}`)
		case promptSentiment:
			sentiment := "Positive"
			text := strings.ToLower(req.LastUser())
			for _, w := range negativeWords {
				if strings.Contains(text, w) {
					sentiment = "Negative"
					break
				}
			}
			return reply(`{"sentiment":"` + sentiment + `"}`)
		case promptDiagnosis:
			return reply(`{"issue_type":"Other","tone":"calm","urgency":"low"}`)
		case promptTweetJudge:
			return reply(`{"evaluation":"Approved","feedback":"Short and punchy."}`)
		}

		if len(req.Tools) > 0 && len(req.Messages) > 0 {
			last := req.Messages[len(req.Messages)-1]
			if last.Role == llm.RoleTool {
				var res CalculatorResult
				if err := json.Unmarshal([]byte(last.Content), &res); err == nil && res.Error == "" {
					return reply("The result is " + strconv.FormatFloat(res.Result, 'g', -1, 64))
				}
				return reply("The calculator could not answer: " + last.Content)
			}
			if args, ok := parseArithmetic(last.Content); ok && last.Role == llm.RoleUser {
				resp, err := reply("")
				if err != nil {
					return nil, err
				}
				raw, err := json.Marshal(args)
				if err != nil {
					return nil, err
				}
				resp.ToolCalls = []llm.ToolCall{{ID: uuid.NewString(), Name: CalculatorTool.Name, Arguments: raw}}
				resp.FinishReason = "tool_use"
				return resp, nil
			}
		}
		return echo.Complete(ctx, req)
	})
}

// parseArithmetic recognizes "<number> <op> <number>".
func parseArithmetic(s string) (CalculatorArgs, bool) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return CalculatorArgs{}, false
	}
	op, ok := operators[parts[1]]
	if !ok {
		return CalculatorArgs{}, false
	}
	a, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return CalculatorArgs{}, false
	}
	b, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return CalculatorArgs{}, false
	}
	return CalculatorArgs{FirstNum: a, SecondNum: b, Operation: op}, true
}
