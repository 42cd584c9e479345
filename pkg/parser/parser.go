package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/plotforge/pkg/domain"
)

// DefaultContinuation is used when markers were found but no prose remains.
const DefaultContinuation = "The story continues..."

var (
	markerRe = regexp.MustCompile(`(?i)\[\s*(?:option|选项)\s*(\d+)\s*\]`)

	// Lines that look like choices leaking into the prose.
	leakedLineRes = []*regexp.Regexp{
		regexp.MustCompile(`^\s*\d+\s*[.)、]`),
		regexp.MustCompile(`^\s*[-•·*]\s+`),
		regexp.MustCompile(`(?i)^\s*(?:option|choice|选项|选择)\s*\d+`),
	}
)

// Result is the structured form of a generator reply.
type Result struct {
	Content string
	Choices []domain.Choice

	// Confident is true when at least one valid marker was found.
	Confident bool

	// Markers counts every marker segment in the input, valid or not.
	Markers int
}

type config struct {
	continuation []string
	emptyContent string
}

// Option configures Parse.
type Option func(*config)

// WithContinuationNodes overrides the default next-node table used for
// generated options the node has no authored counterpart for.
func WithContinuationNodes(ids ...string) Option {
	return func(c *config) {
		if len(ids) > 0 {
			c.continuation = ids
		}
	}
}

// WithEmptyContent overrides the text used when markers leave no prose behind
// and the node has no fallback.
func WithEmptyContent(s string) Option {
	return func(c *config) {
		if s != "" {
			c.emptyContent = s
		}
	}
}

type segment struct {
	start, end int
	ordinal    int
	text       string
}

// Parse extracts up to three choices from raw and strips every marker from
// the prose.
func Parse(raw string, node domain.Node, opts ...Option) (res Result) {
	cfg := config{
		continuation: domain.DefaultContinuationNodes,
		emptyContent: DefaultContinuation,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result{Content: raw, Choices: domain.CloneChoices(node.Choices)}
		}
	}()

	segments := scan(raw)
	res.Markers = len(segments)

	var choices []domain.Choice
	seen := make(map[int]bool, domain.MaxGeneratedChoices)
	for _, seg := range segments {
		if len(choices) == domain.MaxGeneratedChoices {
			break
		}
		if seg.ordinal < 1 || seg.ordinal > domain.MaxGeneratedChoices || seg.text == "" {
			continue
		}
		// The first marker of an ordinal wins; choice IDs stay unique.
		if seen[seg.ordinal] {
			continue
		}
		seen[seg.ordinal] = true
		choices = append(choices, domain.Choice{
			ID:       fmt.Sprintf("option_%d", seg.ordinal),
			Text:     seg.text,
			NextNode: nextNodeFor(node, seg.ordinal, cfg.continuation),
		})
	}

	cleaned := clean(raw, segments)

	if len(choices) == 0 {
		res.Choices = domain.CloneChoices(node.Choices)
		if res.Choices == nil {
			res.Choices = []domain.Choice{}
		}
		res.Content = cleaned
		if res.Content == "" {
			res.Content = raw
		}
		return res
	}

	res.Confident = true
	res.Choices = choices
	res.Content = cleaned
	if res.Content == "" {
		res.Content = node.FallbackContent
	}
	if res.Content == "" {
		res.Content = cfg.emptyContent
	}
	return res
}

// scan finds every marker in document order. A marker's text runs to the end
// of its line or to the next marker, whichever comes first.
func scan(raw string) []segment {
	locs := markerRe.FindAllStringSubmatchIndex(raw, -1)
	segments := make([]segment, 0, len(locs))
	for i, loc := range locs {
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if nl := strings.IndexByte(raw[loc[1]:end], '\n'); nl >= 0 {
			end = loc[1] + nl
		}
		n, err := strconv.Atoi(raw[loc[2]:loc[3]])
		if err != nil {
			n = 0
		}
		segments = append(segments, segment{
			start:   loc[0],
			end:     end,
			ordinal: n,
			text:    strings.TrimSpace(raw[loc[1]:end]),
		})
	}
	return segments
}

// nextNodeFor maps a 1-based option ordinal to a target node.
func nextNodeFor(node domain.Node, ordinal int, table []string) string {
	if ordinal <= len(node.Choices) && node.Choices[ordinal-1].NextNode != "" {
		return node.Choices[ordinal-1].NextNode
	}
	if ordinal <= len(table) {
		return table[ordinal-1]
	}
	if len(table) > 0 {
		return table[0]
	}
	return domain.DefaultContinuationNodes[0]
}

func clean(raw string, segments []segment) string {
	var b strings.Builder
	b.Grow(len(raw))
	last := 0
	for _, seg := range segments {
		b.WriteString(raw[last:seg.start])
		last = seg.end
	}
	b.WriteString(raw[last:])

	lines := strings.Split(b.String(), "\n")
	kept := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		if isLeakedChoice(line) {
			continue
		}
		trimmed := strings.TrimRight(line, " \t")
		if strings.TrimSpace(trimmed) == "" {
			if blank {
				continue
			}
			blank = true
			kept = append(kept, "")
			continue
		}
		blank = false
		kept = append(kept, trimmed)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isLeakedChoice(line string) bool {
	for _, re := range leakedLineRes {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
