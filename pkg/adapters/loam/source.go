package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// WorldDocumentID names the document carrying framework, characters and the
// story introduction (its body).
const WorldDocumentID = "_world"

// GraphSource adapts a Loam repository to ports.GraphSource.
type GraphSource struct {
	Repo *loam.TypedRepository[NodeMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[NodeMetadata]) *GraphSource {
	return &GraphSource{
		Repo: repo,
	}
}

// Open initializes a read-only Loam repository at path.
// Strict mode keeps numeric front matter consistent (json.Number) across
// Markdown, YAML and JSON documents.
func Open(path string) (*GraphSource, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &domain.ConfigError{Source: path, Err: err}
	}

	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, &domain.ConfigError{Source: absPath, Err: fmt.Errorf("failed to initialize loam: %w", err)}
	}

	return New(loam.NewTypedRepository[NodeMetadata](repo)), nil
}

// LoadGraph lists every document and builds the story graph.
func (s *GraphSource) LoadGraph(ctx context.Context) (*domain.Graph, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, &domain.ConfigError{Source: "loam", Err: fmt.Errorf("loam list failed: %w", err)}
	}

	g := &domain.Graph{Nodes: make(map[string]domain.Node, len(docs))}
	seen := make(map[string]string, len(docs))

	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if id == WorldDocumentID {
			if err := applyWorld(g, doc.Data, doc.Content); err != nil {
				return nil, &domain.ConfigError{Source: doc.ID, Err: err}
			}
			continue
		}

		if existing, ok := seen[id]; ok {
			return nil, &domain.ConfigError{
				Source: doc.ID,
				Err:    fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existing, doc.ID),
			}
		}
		seen[id] = doc.ID

		node, err := buildNode(id, doc.Data, doc.Content)
		if err != nil {
			return nil, &domain.ConfigError{Source: doc.ID, Err: err}
		}
		g.Nodes[id] = node
	}

	if len(g.Nodes) == 0 {
		return nil, &domain.ConfigError{Source: "loam", Err: fmt.Errorf("repository has no story nodes")}
	}
	return g, nil
}

func buildNode(id string, meta NodeMetadata, content string) (domain.Node, error) {
	node := domain.Node{
		ID:                 id,
		Description:        meta.Description,
		Content:            strings.TrimSpace(content),
		RequiresGeneration: meta.RequiresGeneration || meta.RequiresAI,
		FallbackContent:    meta.Fallback,
		Choices:            make([]domain.Choice, 0, len(meta.Choices)),
	}
	if len(meta.Metadata) > 0 {
		node.Metadata = flattenMetadata(meta.Metadata)
	}

	for i, c := range meta.Choices {
		next := c.To
		if next == "" {
			next = c.NextNode
		}
		choice := domain.Choice{
			ID:        c.ID,
			Text:      c.Text,
			NextNode:  trimExtension(next),
			Condition: c.Condition,
		}
		if len(c.Effects) > 0 {
			choice.Effects = make(map[string]float64, len(c.Effects))
			for k, v := range c.Effects {
				f, err := toFloat(v)
				if err != nil {
					return domain.Node{}, fmt.Errorf("choice %d effect %q: %w", i+1, k, err)
				}
				choice.Effects[k] = f
			}
		}
		node.Choices = append(node.Choices, choice)
	}
	return node, nil
}

func applyWorld(g *domain.Graph, meta NodeMetadata, content string) error {
	if meta.Framework != nil {
		if err := mapstructure.Decode(meta.Framework, &g.Framework); err != nil {
			return fmt.Errorf("framework: %w", err)
		}
	}
	if meta.Characters != nil {
		if err := mapstructure.Decode(meta.Characters, &g.Characters); err != nil {
			return fmt.Errorf("characters: %w", err)
		}
	}
	g.Introduction = strings.TrimSpace(content)
	return nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// flattenMetadata converts nested metadata into a flat map using '-' joined keys.
func flattenMetadata(src map[string]any) map[string]string {
	res := make(map[string]string)
	var visit func(prefix string, v any)

	visit = func(prefix string, v any) {
		switch val := v.(type) {
		case map[string]any:
			for k, sub := range val {
				fullKey := k
				if prefix != "" {
					fullKey = prefix + "-" + k
				}
				visit(fullKey, sub)
			}
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprintf("%v", item))
			}
			res[prefix] = strings.Join(parts, " ")
		default:
			if prefix != "" {
				res[prefix] = fmt.Sprintf("%v", val)
			}
		}
	}

	for k, v := range src {
		visit(k, v)
	}
	return res
}
