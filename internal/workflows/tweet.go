package workflows

import (
	"fmt"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/prompt"
)

var (
	tweetPrompt    = prompt.Must("Write a short, original, hilarious tweet on the topic: ${topic}. This is version ${iteration}.")
	critiquePrompt = prompt.Must("Evaluate the following tweet:\n${tweet}")
	improvePrompt  = prompt.Must("Improve the tweet based on this feedback: ${feedback}\nTopic: ${topic}\nOriginal tweet: ${tweet}")
)

// TweetState is the state of the tweet workflow.
type TweetState struct {
	Topic        string   `json:"topic"`
	Tweet        string   `json:"tweet"`
	Evaluation   string   `json:"evaluation"`
	Feedback     string   `json:"feedback"`
	Iteration    int      `json:"iteration"`
	MaxIteration int      `json:"max_iteration"`
	Drafts       []string `json:"drafts"`
}

// Evaluation verdicts.
const (
	Approved         = "Approved"
	NeedsImprovement = "Needs_improvement"
)

type tweetRoute string

const (
	routeApproved tweetRoute = "approved"
	routeImprove  tweetRoute = "needs_improvement"
)

// NewTweet loops generate -> evaluate -> optimize until the evaluator
// approves or the iteration budget is spent.
func NewTweet() (*stategraph.CompiledGraph[TweetState], error) {
	sc := stategraph.NewSchema[TweetState]()
	stategraph.ReplaceField(sc, "topic", func(s *TweetState) *string { return &s.Topic }).Required()
	tweet := stategraph.ReplaceField(sc, "tweet", func(s *TweetState) *string { return &s.Tweet })
	verdict := stategraph.ReplaceField(sc, "evaluation", func(s *TweetState) *string { return &s.Evaluation })
	feedback := stategraph.ReplaceField(sc, "feedback", func(s *TweetState) *string { return &s.Feedback })
	iteration := stategraph.ReplaceField(sc, "iteration", func(s *TweetState) *int { return &s.Iteration }).Default(1)
	stategraph.ReplaceField(sc, "max_iteration", func(s *TweetState) *int { return &s.MaxIteration }).Default(5)
	drafts := stategraph.AppendField(sc, "drafts", func(s *TweetState) *[]string { return &s.Drafts })

	generate := func(ctx stategraph.Context, s TweetState) (stategraph.Update[TweetState], error) {
		text, err := complete(ctx, promptTweetWriter, tweetPrompt, s)
		if err != nil {
			return stategraph.Update[TweetState]{}, err
		}
		return stategraph.Writes(tweet.Set(text), drafts.Add(text)), nil
	}
	evaluate := func(ctx stategraph.Context, s TweetState) (stategraph.Update[TweetState], error) {
		out, err := completeJSON[struct {
			Evaluation string `json:"evaluation"`
			Feedback   string `json:"feedback"`
		}](ctx, promptTweetJudge, critiquePrompt, s)
		if err != nil {
			return stategraph.Update[TweetState]{}, err
		}
		if out.Evaluation != Approved && out.Evaluation != NeedsImprovement {
			return stategraph.Update[TweetState]{}, fmt.Errorf("unknown evaluation %q", out.Evaluation)
		}
		return stategraph.Writes(verdict.Set(out.Evaluation), feedback.Set(out.Feedback)), nil
	}
	optimize := func(ctx stategraph.Context, s TweetState) (stategraph.Update[TweetState], error) {
		text, err := complete(ctx, promptTweetWriter, improvePrompt, s)
		if err != nil {
			return stategraph.Update[TweetState]{}, err
		}
		return stategraph.Writes(tweet.Set(text), drafts.Add(text), iteration.Set(s.Iteration+1)), nil
	}

	route := func(_ stategraph.Context, s TweetState) tweetRoute {
		if s.Evaluation == Approved || s.Iteration >= s.MaxIteration {
			return routeApproved
		}
		return routeImprove
	}

	return stategraph.NewGraph(sc).
		AddNode("generate", generate).
		AddNode("evaluate", evaluate).
		AddNode("optimize", optimize).
		SetEntry("generate").
		AddEdge("generate", "evaluate").
		AddConditionalEdge("evaluate", stategraph.Route(route, routeApproved, routeImprove).
			To(routeApproved, stategraph.END).
			To(routeImprove, "optimize")).
		AddEdge("optimize", "evaluate").
		Compile()
}
