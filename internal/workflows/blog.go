package workflows

import (
	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/prompt"
)

var (
	outlinePrompt = prompt.Must("Generate a detailed outline for a blog on the topic - ${title}")
	blogPrompt    = prompt.Must("Write a detailed blog on the title - ${title} using the following outline\n${outline}")
	qaPrompt      = prompt.Must("Answer the following question ${question}")
)

// BlogState is the state of the blog workflow.
type BlogState struct {
	Title   string `json:"title"`
	Outline string `json:"outline"`
	Content string `json:"content"`
}

// NewBlog builds create_outline -> create_blog. The second prompt is
// rendered from the first one's answer.
func NewBlog() (*stategraph.CompiledGraph[BlogState], error) {
	sc := stategraph.NewSchema[BlogState]()
	stategraph.ReplaceField(sc, "title", func(s *BlogState) *string { return &s.Title }).Required()
	outline := stategraph.ReplaceField(sc, "outline", func(s *BlogState) *string { return &s.Outline })
	content := stategraph.ReplaceField(sc, "content", func(s *BlogState) *string { return &s.Content })

	createOutline := func(ctx stategraph.Context, s BlogState) (stategraph.Update[BlogState], error) {
		text, err := complete(ctx, promptAssistant, outlinePrompt, s)
		if err != nil {
			return stategraph.Update[BlogState]{}, err
		}
		return stategraph.Writes(outline.Set(text)), nil
	}
	createBlog := func(ctx stategraph.Context, s BlogState) (stategraph.Update[BlogState], error) {
		text, err := complete(ctx, promptAssistant, blogPrompt, s)
		if err != nil {
			return stategraph.Update[BlogState]{}, err
		}
		return stategraph.Writes(content.Set(text)), nil
	}

	return stategraph.NewGraph(sc).
		AddNode("create_outline", createOutline).
		AddNode("create_blog", createBlog).
		SetEntry("create_outline").
		AddEdge("create_outline", "create_blog").
		AddEdge("create_blog", stategraph.END).
		Compile()
}

// QAState is the state of the qa workflow.
type QAState struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// NewQA builds a single llm_qa node.
func NewQA() (*stategraph.CompiledGraph[QAState], error) {
	sc := stategraph.NewSchema[QAState]()
	stategraph.ReplaceField(sc, "question", func(s *QAState) *string { return &s.Question }).Required()
	answer := stategraph.ReplaceField(sc, "answer", func(s *QAState) *string { return &s.Answer })

	return stategraph.NewGraph(sc).
		AddNode("llm_qa", func(ctx stategraph.Context, s QAState) (stategraph.Update[QAState], error) {
			text, err := complete(ctx, promptAssistant, qaPrompt, s)
			if err != nil {
				return stategraph.Update[QAState]{}, err
			}
			return stategraph.Writes(answer.Set(text)), nil
		}).
		SetEntry("llm_qa").
		AddEdge("llm_qa", stategraph.END).
		Compile()
}
