package plotforge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/runner"
)

// Runner drives an Engine through a line-oriented play loop over the
// provided IO. Choices are taken by number or by choice ID.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer transforms scene content before it is written, e.g.
// markdown to ANSI. Errors fall back to the raw content.
type ContentRenderer func(string) (string, error)

// NewRunner creates a Runner over the given IO.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{Input: in, Output: out}
}

// Run plays until a terminal scene, EOF, a quit command or ctx cancellation.
// A started session is resumed; otherwise a new story begins.
func (r *Runner) Run(ctx context.Context, engine *Engine) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lines := bufio.NewReader(r.Input)
	w := r.Output

	scene, err := r.opening(ctx, engine)
	if err != nil {
		return err
	}

	show := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if show {
			r.printScene(scene)
			show = false
		}
		if scene.Terminal {
			if !r.Headless {
				fmt.Fprintln(w, "-- The End --")
			}
			return nil
		}

		fmt.Fprint(w, "> ")
		text, err := lines.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && text != "") {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		input, err := runner.SanitizeInput(text)
		if err != nil {
			fmt.Fprintf(w, "Input rejected: %v\n", err)
			continue
		}
		if input == "" {
			continue
		}
		if runner.IsQuit(input) {
			fmt.Fprintln(w, "Bye!")
			return nil
		}

		next, err := engine.Choose(ctx, input)
		if errors.Is(err, domain.ErrInvalidChoice) {
			fmt.Fprintf(w, "Unknown choice %q, pick 1-%d.\n", input, len(scene.Choices))
			continue
		}
		if err != nil {
			return fmt.Errorf("choose: %w", err)
		}
		scene, show = next, true
	}
}

func (r *Runner) opening(ctx context.Context, engine *Engine) (*domain.Scene, error) {
	if engine.Session().Started() {
		if scene := engine.LastScene(); scene != nil {
			return scene, nil
		}
		scene, err := engine.Resume(ctx)
		if err != nil {
			return nil, fmt.Errorf("resume: %w", err)
		}
		return scene, nil
	}

	if !r.Headless {
		if intro := strings.TrimSpace(engine.Introduction()); intro != "" {
			fmt.Fprintln(r.Output, r.render(intro))
			fmt.Fprintln(r.Output)
		}
	}
	return engine.StartNewStory(ctx), nil
}

func (r *Runner) printScene(scene *domain.Scene) {
	fmt.Fprintln(r.Output, r.render(scene.Content))
	for i, c := range scene.Choices {
		fmt.Fprintf(r.Output, "  %d. %s\n", i+1, c.Text)
	}
}

func (r *Runner) render(content string) string {
	out := content
	if r.Renderer != nil {
		if rendered, err := r.Renderer(content); err == nil {
			out = rendered
		}
	}
	return strings.TrimSpace(out)
}
