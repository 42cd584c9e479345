package ports

import (
	"context"

	"github.com/aretw0/plotforge/pkg/domain"
)

// GraphSource supplies the authored story graph.
// Unreadable, malformed or empty sources must return an error matching
// domain.ErrConfig so the repository can fall back to the built-in graph.
type GraphSource interface {
	LoadGraph(ctx context.Context) (*domain.Graph, error)
}
