package workflows

import (
	"fmt"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/prompt"
)

// EssayState is the state of the essay workflow. Scores is an append
// field: each evaluator contributes one score.
type EssayState struct {
	Essay            string  `json:"essay"`
	LanguageFeedback string  `json:"language_feedback"`
	AnalysisFeedback string  `json:"analysis_feedback"`
	ClarityFeedback  string  `json:"clarity_feedback"`
	OverallFeedback  string  `json:"overall_feedback"`
	Scores           []int   `json:"individual_scores"`
	AvgScore         float64 `json:"avg_score"`
}

type evaluation struct {
	Feedback string `json:"feedback"`
	Score    int    `json:"score"`
}

var (
	evaluatePrompt = prompt.Must("Evaluate the ${aspect} of the following essay and assign a score out of 10.\n${essay}")
	summaryPrompt  = prompt.Must("Language feedback: ${language_feedback}\nDepth of analysis feedback: ${analysis_feedback}\nClarity of thought feedback: ${clarity_feedback}")
)

const sampleEssay = `A black hole forms when a massive star exhausts its fuel and collapses under its own gravity. ` +
	`Nothing, not even light, escapes past the event horizon. Scientists detect black holes through the radiation ` +
	`of their accretion disks and the motion of nearby stars, and their study keeps testing our understanding of gravity.`

// NewEssay runs three evaluators in parallel and averages their scores in
// final_evaluation.
func NewEssay() (*stategraph.CompiledGraph[EssayState], error) {
	sc := stategraph.NewSchema[EssayState]()
	stategraph.ReplaceField(sc, "essay", func(s *EssayState) *string { return &s.Essay }).Required()
	language := stategraph.ReplaceField(sc, "language_feedback", func(s *EssayState) *string { return &s.LanguageFeedback })
	analysis := stategraph.ReplaceField(sc, "analysis_feedback", func(s *EssayState) *string { return &s.AnalysisFeedback })
	clarity := stategraph.ReplaceField(sc, "clarity_feedback", func(s *EssayState) *string { return &s.ClarityFeedback })
	overall := stategraph.ReplaceField(sc, "overall_feedback", func(s *EssayState) *string { return &s.OverallFeedback })
	scores := stategraph.AppendField(sc, "individual_scores", func(s *EssayState) *[]int { return &s.Scores })
	avg := stategraph.ReplaceField(sc, "avg_score", func(s *EssayState) *float64 { return &s.AvgScore })

	evaluator := func(aspect string, feedback stategraph.Value[EssayState, string]) stategraph.NodeFunc[EssayState] {
		return func(ctx stategraph.Context, s EssayState) (stategraph.Update[EssayState], error) {
			vars, err := prompt.With(s, map[string]any{"aspect": aspect})
			if err != nil {
				return stategraph.Update[EssayState]{}, err
			}
			ev, err := completeJSON[evaluation](ctx, promptEssayJudge, evaluatePrompt, vars)
			if err != nil {
				return stategraph.Update[EssayState]{}, err
			}
			if ev.Score < 0 || ev.Score > 10 {
				return stategraph.Update[EssayState]{}, fmt.Errorf("%s score %d out of range 0-10", aspect, ev.Score)
			}
			return stategraph.Writes(feedback.Set(ev.Feedback), scores.Add(ev.Score)), nil
		}
	}

	final := func(ctx stategraph.Context, s EssayState) (stategraph.Update[EssayState], error) {
		summary, err := complete(ctx, promptEssaySum, summaryPrompt, s)
		if err != nil {
			return stategraph.Update[EssayState]{}, err
		}
		var mean float64
		if len(s.Scores) > 0 {
			total := 0
			for _, v := range s.Scores {
				total += v
			}
			mean = float64(total) / float64(len(s.Scores))
		}
		return stategraph.Writes(overall.Set(summary), avg.Set(mean)), nil
	}

	g := stategraph.NewGraph(sc).
		AddNode("evaluate_language", evaluator("language quality", language)).
		AddNode("evaluate_analysis", evaluator("depth of analysis", analysis)).
		AddNode("evaluate_thought", evaluator("clarity of thought", clarity)).
		AddNode("final_evaluation", final)
	for _, id := range []string{"evaluate_language", "evaluate_analysis", "evaluate_thought"} {
		g.SetEntry(id).AddEdge(id, "final_evaluation")
	}
	return g.AddEdge("final_evaluation", stategraph.END).Compile()
}
