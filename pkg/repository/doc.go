// Package repository holds the authored story graph the engine resolves nodes from.
//
// A NodeSet is built once from a ports.GraphSource and is read-only afterwards;
// every lookup returns a deep copy. When the source is unusable, LoadOrDefault
// falls back to the built-in graph so the engine never runs with zero nodes.
package repository
