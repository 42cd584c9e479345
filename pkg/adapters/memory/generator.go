package memory

import (
	"context"
	"sync"

	"github.com/aretw0/plotforge/pkg/domain"
)

// Reply is one scripted Generator response.
type Reply struct {
	Text string
	Err  error
}

// Generator implements ports.Generator by replaying scripted replies in order.
// Once the script is exhausted the last reply repeats. An empty script fails
// every call. Prompts are recorded for assertions.
type Generator struct {
	mu      sync.Mutex
	replies []Reply
	next    int
	prompts []string
}

// NewGenerator creates a generator that returns texts in order.
func NewGenerator(texts ...string) *Generator {
	g := &Generator{}
	for _, t := range texts {
		g.replies = append(g.replies, Reply{Text: t})
	}
	return g
}

// NewFailingGenerator creates a generator whose every call fails with err.
func NewFailingGenerator(err error) *Generator {
	return &Generator{replies: []Reply{{Err: err}}}
}

// Script appends replies to the script.
func (g *Generator) Script(replies ...Reply) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, replies...)
	return g
}

// Generate returns the next scripted reply.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prompts = append(g.prompts, prompt)

	if err := ctx.Err(); err != nil {
		return "", domain.NewGenerationError("memory", "context done", err)
	}
	if len(g.replies) == 0 {
		return "", domain.NewGenerationError("memory", "no scripted reply", nil)
	}

	r := g.replies[g.next]
	if g.next < len(g.replies)-1 {
		g.next++
	}
	if r.Err != nil {
		return "", domain.NewGenerationError("memory", "scripted failure", r.Err)
	}
	if r.Text == "" {
		return "", domain.NewGenerationError("memory", "empty content", nil)
	}
	return r.Text, nil
}

// Prompts returns every prompt received so far.
func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// Calls returns the number of Generate calls.
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}
