package workflows

import (
	"fmt"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/prompt"
)

var (
	translatePrompt = prompt.Must("Translate into ${language}:\n${text}")
	questionPrompt  = prompt.Must("Question: ${question}")
)

// TranslateState is the parent state of the translate workflow.
type TranslateState struct {
	Question    string `json:"question"`
	Language    string `json:"language"`
	Answer      string `json:"answer"`
	Translation string `json:"translation"`
}

// TranslationState is the state of the child translation graph.
type TranslationState struct {
	Text       string `json:"text"`
	Language   string `json:"language"`
	Translated string `json:"translated"`
}

// NewTranslator builds the single-node translation graph.
func NewTranslator() (*stategraph.CompiledGraph[TranslationState], error) {
	sc := stategraph.NewSchema[TranslationState]()
	stategraph.ReplaceField(sc, "text", func(s *TranslationState) *string { return &s.Text }).Required()
	stategraph.ReplaceField(sc, "language", func(s *TranslationState) *string { return &s.Language }).Required()
	translated := stategraph.ReplaceField(sc, "translated", func(s *TranslationState) *string { return &s.Translated })

	translate := func(ctx stategraph.Context, s TranslationState) (stategraph.Update[TranslationState], error) {
		text, err := complete(ctx, promptTranslator, translatePrompt, s)
		if err != nil {
			return stategraph.Update[TranslationState]{}, err
		}
		return stategraph.Writes(translated.Set(text)), nil
	}

	return stategraph.NewGraph(sc).
		AddNode("translate_text", translate).
		SetEntry("translate_text").
		AddEdge("translate_text", stategraph.END).
		Compile()
}

// NewTranslate answers a question, then runs the translator graph as the
// translate_answer node.
func NewTranslate() (*stategraph.CompiledGraph[TranslateState], error) {
	child, err := NewTranslator()
	if err != nil {
		return nil, fmt.Errorf("translator: %w", err)
	}

	sc := stategraph.NewSchema[TranslateState]()
	stategraph.ReplaceField(sc, "question", func(s *TranslateState) *string { return &s.Question }).Required()
	stategraph.ReplaceField(sc, "language", func(s *TranslateState) *string { return &s.Language }).Default("Hindi")
	answer := stategraph.ReplaceField(sc, "answer", func(s *TranslateState) *string { return &s.Answer })
	translation := stategraph.ReplaceField(sc, "translation", func(s *TranslateState) *string { return &s.Translation })

	generate := func(ctx stategraph.Context, s TranslateState) (stategraph.Update[TranslateState], error) {
		text, err := complete(ctx, promptAssistant, questionPrompt, s)
		if err != nil {
			return stategraph.Update[TranslateState]{}, err
		}
		return stategraph.Writes(answer.Set(text)), nil
	}

	translateAnswer := stategraph.Subgraph(child,
		func(p TranslateState) TranslationState {
			return TranslationState{Text: p.Answer, Language: p.Language}
		},
		func(_ TranslateState, c TranslationState) stategraph.Update[TranslateState] {
			return stategraph.Writes(translation.Set(c.Translated))
		},
		stategraph.WithGraphName("translator"),
	)

	return stategraph.NewGraph(sc).
		AddNode("generate_answer", generate).
		AddNode("translate_answer", translateAnswer).
		SetEntry("generate_answer").
		AddEdge("generate_answer", "translate_answer").
		AddEdge("translate_answer", stategraph.END).
		Compile()
}
