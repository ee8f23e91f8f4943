package workflows

import (
	"strings"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
)

// ApprovalState is the state of the approval workflow.
type ApprovalState struct {
	Messages []llm.Message `json:"messages"`
}

// ApprovalRequest is the interrupt payload raised before answering.
type ApprovalRequest struct {
	Type        string `json:"type"`
	Reason      string `json:"reason"`
	Question    string `json:"question"`
	Instruction string `json:"instruction"`
}

// Decision is the resume value of an approval interrupt.
type Decision struct {
	Approved string `json:"approved"`
}

// NotApproved is the answer recorded when the question is rejected.
const NotApproved = "Not Approved"

// NewApproval builds a single chat_node that suspends for a yes/no
// decision before answering the latest user message.
func NewApproval() (*stategraph.CompiledGraph[ApprovalState], error) {
	sc := stategraph.NewSchema[ApprovalState]()
	messages := stategraph.AppendField(sc, "messages", func(s *ApprovalState) *[]llm.Message { return &s.Messages }).Required()

	chatNode := func(ctx stategraph.Context, s ApprovalState) (stategraph.Update[ApprovalState], error) {
		decision, ok, err := stategraph.ResumeValue[Decision](ctx)
		if err != nil {
			return stategraph.Update[ApprovalState]{}, err
		}
		if !ok {
			return stategraph.Suspend[ApprovalState](ApprovalRequest{
				Type:        "approval",
				Reason:      "Model is about to answer a user question.",
				Question:    s.Messages[len(s.Messages)-1].Content,
				Instruction: "Approve this question? yes/no",
			}), nil
		}
		switch strings.ToLower(strings.TrimSpace(decision.Approved)) {
		case "yes", "y":
		default:
			return stategraph.Writes(messages.Add(llm.Message{Role: llm.RoleAssistant, Content: NotApproved})), nil
		}

		resp, err := chat(ctx, llm.CompletionRequest{SystemPrompt: promptAssistant, Messages: s.Messages})
		if err != nil {
			return stategraph.Update[ApprovalState]{}, err
		}
		return stategraph.Writes(messages.Add(resp.Message())), nil
	}

	return stategraph.NewGraph(sc).
		AddNode("chat_node", chatNode).
		SetEntry("chat_node").
		AddEdge("chat_node", stategraph.END).
		Compile()
}
