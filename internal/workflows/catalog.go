package workflows

import (
	"fmt"
	"slices"
	"sync"
)

// Catalog is a thread-safe set of workflows indexed by name.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Workflow
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]Workflow)}
}

// Register adds w. Panics if a workflow with the same name exists.
func (c *Catalog) Register(w Workflow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[w.Name()]; exists {
		panic(fmt.Sprintf("workflows: duplicate workflow %q", w.Name()))
	}
	c.entries[w.Name()] = w
}

// Get returns the workflow registered under name.
func (c *Catalog) Get(name string) (Workflow, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.entries[name]
	return w, ok
}

// Names returns the registered names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered workflows.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Builtin returns a catalog holding every example workflow.
func Builtin() *Catalog {
	c := NewCatalog()
	c.Register(define("qa", "Sequential: answer one question with a model",
		NewQA, QAState{Question: "Who is the prime minister of India?"}))
	c.Register(define("blog", "Prompt chaining: outline a blog post, then write it",
		NewBlog, BlogState{Title: "Black Hole"}))
	c.Register(define("bmi", "Sequential: compute a BMI and label its category",
		NewBMI, BMIState{Weight: 65, Height: 1.52}))
	c.Register(define("quadratic", "Conditional: solve a quadratic equation",
		NewQuadratic, QuadState{A: 4, B: -5, C: -4}))
	c.Register(define("cricket", "Parallel: batting statistics joined into a summary",
		NewCricket, Batsman{Runs: 100, Balls: 50, Fours: 6, Sixes: 5}))
	c.Register(define("essay", "Parallel append: three evaluators score an essay",
		NewEssay, EssayState{Essay: sampleEssay}))
	c.Register(define("review", "Conditional chain: answer a product review",
		NewReview, ReviewState{Review: "The product was really good"}))
	c.Register(define("tweet", "Loop: generate, evaluate and optimize a tweet",
		NewTweet, TweetState{Topic: "Black hole", Iteration: 1, MaxIteration: 5}))
	c.Register(define("joke", "Persistence: a joke and its explanation",
		NewJoke, JokeState{Topic: "Black hole"}))
	c.Register(define("crash", "Fault tolerance: interrupt step_2, then resume the thread",
		NewCrash, CrashState{Input: "start", HangMS: 30000}))
	c.Register(define("approval", "Human in the loop: approve a question before answering",
		NewApproval, ApprovalState{Messages: userMessage("Explain black hole in simple terms")}))
	c.Register(define("chat", "Chatbot with a calculator tool",
		NewChat, ChatState{Messages: userMessage("12 * 7")}))
	c.Register(define("translate", "Subgraph: answer a question, then translate it",
		NewTranslate, TranslateState{Question: "What is a black hole?"}))
	return c
}
