package repository

import (
	"fmt"
	"strings"
)

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single graph validation finding.
type Issue struct {
	Severity Severity `json:"severity"`
	NodeID   string   `json:"node_id"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.NodeID, i.Message)
}

// Report collects the findings of Validate.
type Report struct {
	Issues    []Issue  `json:"issues"`
	Reachable []string `json:"reachable"`
}

// OK reports whether the graph has no errors. Warnings are allowed.
func (r Report) OK() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Errors returns only the error-level issues.
func (r Report) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns only the warning-level issues.
func (r Report) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

func (r Report) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

func (r Report) String() string {
	lines := make([]string, 0, len(r.Issues))
	for _, i := range r.Issues {
		lines = append(lines, i.String())
	}
	return strings.Join(lines, "\n")
}

// Validate checks the graph for broken links and unreachable nodes starting
// from startID. Dangling choice targets are warnings since the engine recovers
// from them at runtime.
func Validate(set *NodeSet, startID string) Report {
	var report Report
	add := func(sev Severity, id, format string, args ...any) {
		report.Issues = append(report.Issues, Issue{Severity: sev, NodeID: id, Message: fmt.Sprintf(format, args...)})
	}

	for _, id := range set.IDs() {
		n := set.nodes[id]
		if !n.RequiresGeneration && strings.TrimSpace(n.Content) == "" {
			add(SeverityError, id, "static node has no content")
		}
		if strings.TrimSpace(n.FallbackContent) == "" {
			add(SeverityError, id, "node has no fallback content")
		}
	}

	if !set.Has(startID) {
		add(SeverityError, startID, "start node not found")
		return report
	}

	visited := map[string]bool{}
	queue := []string{startID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		report.Reachable = append(report.Reachable, current)

		for _, c := range set.nodes[current].Choices {
			switch {
			case c.NextNode == "":
				add(SeverityWarning, current, "choice %q has no target", c.ID)
			case !set.Has(c.NextNode):
				add(SeverityWarning, current, "choice %q points to missing node %q", c.ID, c.NextNode)
			case !visited[c.NextNode]:
				queue = append(queue, c.NextNode)
			}
		}
	}

	for _, id := range set.IDs() {
		if !visited[id] {
			add(SeverityWarning, id, "node is unreachable from %q", startID)
		}
	}
	return report
}
