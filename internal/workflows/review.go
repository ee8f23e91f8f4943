package workflows

import (
	"fmt"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/prompt"
)

var (
	reviewPrompt   = prompt.Must("${review}")
	thanksPrompt   = prompt.Must("Write a warm thank-you message in response to this review and ask the user to leave feedback on our website:\n${review}")
	recoveryPrompt = prompt.Must("The user had a ${issue_type} issue, sounded ${tone} and marked urgency as ${urgency}. Write a resolution message.")
)

// ReviewState is the state of the review workflow.
type ReviewState struct {
	Review    string    `json:"review"`
	Sentiment string    `json:"sentiment"`
	Diagnosis Diagnosis `json:"diagnosis"`
	Response  string    `json:"response"`
}

// Diagnosis classifies a negative review.
type Diagnosis struct {
	IssueType string `json:"issue_type"`
	Tone      string `json:"tone"`
	Urgency   string `json:"urgency"`
}

type reviewRoute string

const (
	positiveResponse reviewRoute = "positive_response"
	runDiagnosis     reviewRoute = "run_diagnosis"
)

// NewReview classifies a review and answers it, diagnosing negative
// reviews before writing the reply.
func NewReview() (*stategraph.CompiledGraph[ReviewState], error) {
	sc := stategraph.NewSchema[ReviewState]()
	stategraph.ReplaceField(sc, "review", func(s *ReviewState) *string { return &s.Review }).Required()
	sentiment := stategraph.ReplaceField(sc, "sentiment", func(s *ReviewState) *string { return &s.Sentiment })
	diagnosis := stategraph.ReplaceField(sc, "diagnosis", func(s *ReviewState) *Diagnosis { return &s.Diagnosis })
	response := stategraph.ReplaceField(sc, "response", func(s *ReviewState) *string { return &s.Response })

	findSentiment := func(ctx stategraph.Context, s ReviewState) (stategraph.Update[ReviewState], error) {
		out, err := completeJSON[struct {
			Sentiment string `json:"sentiment"`
		}](ctx, promptSentiment, reviewPrompt, s)
		if err != nil {
			return stategraph.Update[ReviewState]{}, err
		}
		if out.Sentiment != "Positive" && out.Sentiment != "Negative" {
			return stategraph.Update[ReviewState]{}, fmt.Errorf("unknown sentiment %q", out.Sentiment)
		}
		return stategraph.Writes(sentiment.Set(out.Sentiment)), nil
	}
	positive := func(ctx stategraph.Context, s ReviewState) (stategraph.Update[ReviewState], error) {
		reply, err := complete(ctx, promptSupport, thanksPrompt, s)
		if err != nil {
			return stategraph.Update[ReviewState]{}, err
		}
		return stategraph.Writes(response.Set(reply)), nil
	}
	diagnose := func(ctx stategraph.Context, s ReviewState) (stategraph.Update[ReviewState], error) {
		d, err := completeJSON[Diagnosis](ctx, promptDiagnosis, reviewPrompt, s)
		if err != nil {
			return stategraph.Update[ReviewState]{}, err
		}
		return stategraph.Writes(diagnosis.Set(d)), nil
	}
	negative := func(ctx stategraph.Context, s ReviewState) (stategraph.Update[ReviewState], error) {
		reply, err := complete(ctx, promptSupport, recoveryPrompt, s.Diagnosis)
		if err != nil {
			return stategraph.Update[ReviewState]{}, err
		}
		return stategraph.Writes(response.Set(reply)), nil
	}

	route := func(_ stategraph.Context, s ReviewState) reviewRoute {
		if s.Sentiment == "Positive" {
			return positiveResponse
		}
		return runDiagnosis
	}

	return stategraph.NewGraph(sc).
		AddNode("find_sentiment", findSentiment).
		AddNode(string(positiveResponse), positive).
		AddNode(string(runDiagnosis), diagnose).
		AddNode("negative_response", negative).
		SetEntry("find_sentiment").
		AddConditionalEdge("find_sentiment", stategraph.Route(route, positiveResponse, runDiagnosis)).
		AddEdge(string(positiveResponse), stategraph.END).
		AddEdge(string(runDiagnosis), "negative_response").
		AddEdge("negative_response", stategraph.END).
		Compile()
}
