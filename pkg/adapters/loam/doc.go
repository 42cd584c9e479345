// Package loam reads story graphs from a Loam repository: one Markdown, YAML
// or JSON document per node, plus an optional "_world" document.
package loam
