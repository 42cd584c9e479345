package ports

import "context"

// Generator turns a prompt into narrative text.
// Implementations must fail (returning an error matching domain.ErrGeneration)
// on non-2xx responses, provider error payloads and empty content, and must
// honor ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f(ctx, prompt).
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
