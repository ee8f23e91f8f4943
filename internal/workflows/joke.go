package workflows

import (
	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/prompt"
)

var (
	jokePrompt        = prompt.Must("Generate a joke on the topic ${topic}")
	explanationPrompt = prompt.Must("Write an explanation for the joke - ${joke}")
)

// JokeState is the state of the joke workflow.
type JokeState struct {
	Topic       string `json:"topic"`
	Joke        string `json:"joke"`
	Explanation string `json:"explanation"`
}

// NewJoke builds generate_joke -> generate_explanation. Run it on a thread
// to inspect the checkpoint after every step.
func NewJoke() (*stategraph.CompiledGraph[JokeState], error) {
	sc := stategraph.NewSchema[JokeState]()
	stategraph.ReplaceField(sc, "topic", func(s *JokeState) *string { return &s.Topic }).Required()
	joke := stategraph.ReplaceField(sc, "joke", func(s *JokeState) *string { return &s.Joke })
	explanation := stategraph.ReplaceField(sc, "explanation", func(s *JokeState) *string { return &s.Explanation })

	generate := func(ctx stategraph.Context, s JokeState) (stategraph.Update[JokeState], error) {
		text, err := complete(ctx, promptJoke, jokePrompt, s)
		if err != nil {
			return stategraph.Update[JokeState]{}, err
		}
		return stategraph.Writes(joke.Set(text)), nil
	}
	explain := func(ctx stategraph.Context, s JokeState) (stategraph.Update[JokeState], error) {
		text, err := complete(ctx, promptJoke, explanationPrompt, s)
		if err != nil {
			return stategraph.Update[JokeState]{}, err
		}
		return stategraph.Writes(explanation.Set(text)), nil
	}

	return stategraph.NewGraph(sc).
		AddNode("generate_joke", generate).
		AddNode("generate_explanation", explain).
		SetEntry("generate_joke").
		AddEdge("generate_joke", "generate_explanation").
		AddEdge("generate_explanation", stategraph.END).
		Compile()
}
