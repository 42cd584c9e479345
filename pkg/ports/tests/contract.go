package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/ports"
)

// GraphSourceContractTest is a reusable test suite that verifies if an adapter
// complies with ports.GraphSource. expected maps node IDs to their content.
func GraphSourceContractTest(t *testing.T, source ports.GraphSource, expected map[string]string) {
	t.Helper()

	graph, err := source.LoadGraph(context.Background())
	if err != nil {
		t.Fatalf("unexpected error loading graph: %v", err)
	}

	t.Run("Nodes", func(t *testing.T) {
		if len(graph.Nodes) != len(expected) {
			t.Errorf("expected %d nodes, got %d", len(expected), len(graph.Nodes))
		}
		for id, content := range expected {
			node, ok := graph.Nodes[id]
			if !ok {
				t.Errorf("node %s missing from graph", id)
				continue
			}
			if node.ID != id {
				t.Errorf("node keyed %s carries id %s", id, node.ID)
			}
			if node.Content != content {
				t.Errorf("content mismatch for %s. got %q, want %q", id, node.Content, content)
			}
		}
	})

	t.Run("Choices carry targets", func(t *testing.T) {
		for id, node := range graph.Nodes {
			for _, c := range node.Choices {
				if c.NextNode == "" {
					t.Errorf("node %s has choice %q without nextNode", id, c.ID)
				}
			}
		}
	})
}

// BrokenSourceContractTest verifies that a broken source reports a config error.
func BrokenSourceContractTest(t *testing.T, source ports.GraphSource) {
	t.Helper()
	_, err := source.LoadGraph(context.Background())
	if err == nil {
		t.Fatal("expected error for broken source, got nil")
	}
	if !errors.Is(err, domain.ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

