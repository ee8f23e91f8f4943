package workflows

import (
	"encoding/json"
	"fmt"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
)

// ChatState is the state of the chat workflow. Messages accumulate across
// turns of the same thread.
type ChatState struct {
	Messages []llm.Message `json:"messages"`
}

// CalculatorArgs are the arguments of the calculator tool.
type CalculatorArgs struct {
	FirstNum  float64 `json:"first_num"`
	SecondNum float64 `json:"second_num"`
	Operation string  `json:"operation"`
}

// CalculatorResult is the calculator tool output.
type CalculatorResult struct {
	FirstNum  float64 `json:"first_num,omitempty"`
	SecondNum float64 `json:"second_num,omitempty"`
	Operation string  `json:"operation,omitempty"`
	Result    float64 `json:"result"`
	Error     string  `json:"error,omitempty"`
}

// CalculatorTool describes the calculator to the model.
var CalculatorTool = llm.Tool{
	Name:        "calculator",
	Description: "Perform a basic arithmetic operation on two numbers. Supported operations: add, sub, mul, div.",
	Parameters: json.RawMessage(`{"type":"object","properties":{` +
		`"first_num":{"type":"number"},"second_num":{"type":"number"},` +
		`"operation":{"type":"string","enum":["add","sub","mul","div"]}},` +
		`"required":["first_num","second_num","operation"]}`),
}

// Calculate evaluates a calculator call. Failures are reported in the
// result rather than as errors so the model can see them.
func Calculate(args CalculatorArgs) CalculatorResult {
	res := CalculatorResult{FirstNum: args.FirstNum, SecondNum: args.SecondNum, Operation: args.Operation}
	switch args.Operation {
	case "add":
		res.Result = args.FirstNum + args.SecondNum
	case "sub":
		res.Result = args.FirstNum - args.SecondNum
	case "mul":
		res.Result = args.FirstNum * args.SecondNum
	case "div":
		if args.SecondNum == 0 {
			return CalculatorResult{Error: "Division by zero is not allowed"}
		}
		res.Result = args.FirstNum / args.SecondNum
	default:
		return CalculatorResult{Error: fmt.Sprintf("Unsupported operation %s", args.Operation)}
	}
	return res
}

type chatRoute string

const routeTools chatRoute = "tools"

// NewChat builds chat_node, which loops through the tools node while the
// model keeps requesting tool calls.
func NewChat() (*stategraph.CompiledGraph[ChatState], error) {
	sc := stategraph.NewSchema[ChatState]()
	messages := stategraph.AppendField(sc, "messages", func(s *ChatState) *[]llm.Message { return &s.Messages }).Required()

	chatNode := func(ctx stategraph.Context, s ChatState) (stategraph.Update[ChatState], error) {
		resp, err := chat(ctx, llm.CompletionRequest{
			SystemPrompt: promptAssistant,
			Messages:     s.Messages,
			Tools:        []llm.Tool{CalculatorTool},
		})
		if err != nil {
			return stategraph.Update[ChatState]{}, err
		}
		return stategraph.Writes(messages.Add(resp.Message())), nil
	}

	tools := func(ctx stategraph.Context, s ChatState) (stategraph.Update[ChatState], error) {
		last := s.Messages[len(s.Messages)-1]
		out := make([]llm.Message, 0, len(last.ToolCalls))
		for _, call := range last.ToolCalls {
			var result any
			switch call.Name {
			case CalculatorTool.Name:
				var args CalculatorArgs
				if err := json.Unmarshal(call.Arguments, &args); err != nil {
					result = CalculatorResult{Error: "invalid arguments: " + err.Error()}
				} else {
					result = Calculate(args)
				}
			default:
				result = CalculatorResult{Error: fmt.Sprintf("unknown tool %s", call.Name)}
			}
			content, err := json.Marshal(result)
			if err != nil {
				return stategraph.Update[ChatState]{}, err
			}
			ctx.Logger().Debug("tool call", "tool", call.Name, "call_id", call.ID)
			out = append(out, llm.Message{Role: llm.RoleTool, Name: call.ID, Content: string(content)})
		}
		return stategraph.Writes(messages.Add(out...)), nil
	}

	route := func(_ stategraph.Context, s ChatState) chatRoute {
		if n := len(s.Messages); n > 0 && len(s.Messages[n-1].ToolCalls) > 0 {
			return routeTools
		}
		return stategraph.END
	}

	return stategraph.NewGraph(sc).
		AddNode("chat_node", chatNode).
		AddNode("tools", tools).
		SetEntry("chat_node").
		AddConditionalEdge("chat_node", stategraph.Route(route, routeTools, stategraph.END)).
		AddEdge("tools", "chat_node").
		Compile()
}
