package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/parser"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// lookup resolves a node ID against the authored graph first and the
// session's synthetic nodes second.
func (e *Engine) lookup(id string) (domain.Node, error) {
	if id == "" {
		return domain.Node{}, fmt.Errorf("%w: empty node id", domain.ErrNodeNotFound)
	}
	node, err := e.nodes.Lookup(id)
	if err == nil {
		return node, nil
	}
	if n, ok := e.session.State.Synthetic[id]; ok {
		return n.Clone(), nil
	}
	return domain.Node{}, err
}

// resolvable reports whether id names a node this session can resolve.
func (e *Engine) resolvable(id string) bool {
	_, err := e.lookup(id)
	return err == nil
}

// ResolveNode produces the scene for a node, moves the cursor to it and
// records it in the history. Only domain.ErrNodeNotFound is returned; every
// other failure degrades to fallback content.
func (e *Engine) ResolveNode(ctx context.Context, nodeID string) (*domain.Scene, error) {
	node, err := e.lookup(nodeID)
	if err != nil {
		e.logger.DebugContext(ctx, "node not found", "node_id", nodeID)
		return nil, err
	}

	scene := &domain.Scene{NodeID: node.ID}
	content := node.Content
	choices := node.Choices

	if node.RequiresGeneration {
		var generated bool
		content, choices, generated = e.generate(ctx, node)
		scene.Generated = generated
	}

	if strings.TrimSpace(content) == "" {
		content = node.FallbackContent
	}
	if strings.TrimSpace(content) == "" {
		content = parser.DefaultContinuation
	}

	scene.Content = content
	scene.Choices = e.visibleChoices(ctx, node.ID, choices)
	scene.Terminal = len(scene.Choices) == 0

	e.appendHistory(node.ID, content)
	e.session.CurrentNodeID = node.ID
	e.lastScene = cloneScene(scene)

	e.logger.DebugContext(ctx, "node resolved",
		"node_id", node.ID,
		"generated", scene.Generated,
		"choices", len(scene.Choices),
		"terminal", scene.Terminal,
	)
	e.emitNodeResolved(ctx, scene)

	if e.autosave {
		e.persistScene(ctx, scene)
	}
	return cloneScene(scene), nil
}

// generate asks the Generator for the node's content. Failures fall back to
// the node's fallback content and authored choices.
func (e *Engine) generate(ctx context.Context, node domain.Node) (string, []domain.Choice, bool) {
	ctx, span := e.tracer.Start(ctx, "plotforge.generate", trace.WithAttributes(
		attribute.String("plotforge.session_id", e.session.ID),
		attribute.String("plotforge.node_id", node.ID),
	))
	defer span.End()

	start := time.Now()
	raw, err := e.callGenerator(ctx, e.buildPrompt(node))
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.WarnContext(ctx, "generation failed, using fallback content", "node_id", node.ID, "err", err)
		e.emitGeneration(ctx, node.ID, domain.GenerationFallback, elapsed, err)
		return node.FallbackContent, node.Choices, false
	}

	res := parser.Parse(parser.Sanitize(raw), node, parser.WithContinuationNodes(e.continuation...))
	outcome := domain.GenerationOK
	if !res.Confident {
		outcome = domain.GenerationUnparsed
		e.logger.DebugContext(ctx, "generator reply carried no choice markers", "node_id", node.ID)
	}
	span.SetAttributes(
		attribute.Int("plotforge.choices", len(res.Choices)),
		attribute.Bool("plotforge.confident", res.Confident),
	)
	e.emitGeneration(ctx, node.ID, outcome, elapsed, nil)
	return res.Content, res.Choices, true
}

func (e *Engine) callGenerator(ctx context.Context, prompt string) (string, error) {
	if e.generator == nil {
		return "", domain.NewGenerationError("engine", "no generator configured", nil)
	}
	raw, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, domain.ErrGeneration) {
			return "", err
		}
		return "", domain.NewGenerationError("generator", "call failed", err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", domain.NewGenerationError("generator", "empty content", nil)
	}
	return raw, nil
}

// appendHistory records an entry and evicts the oldest ones past the bound.
func (e *Engine) appendHistory(nodeID, content string) {
	st := &e.session.State
	st.History = append(st.History, domain.HistoryEntry{
		NodeID:    nodeID,
		Content:   content,
		Timestamp: e.now(),
	})
	if over := len(st.History) - e.maxHistory; over > 0 {
		st.History = append([]domain.HistoryEntry{}, st.History[over:]...)
	}
}
