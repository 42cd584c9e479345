/*
Package plotforge is a branching interactive narrative engine.

A story is a directed graph of nodes connected by player choices. Node content
is either authored or generated on demand by an external text-generation
service. The engine resolves the current node, asks the generator for content
when needed, turns the reply into prose plus at most three choices, persists
progress and recovers from broken graphs without ever stalling the story.

# Concept

Plotforge follows a hexagonal layout: the narrative core (internal/runtime)
depends only on ports (pkg/ports). Graph sources, content stores and
generators are adapters, so the same engine runs behind a CLI, an HTTP API or
an MCP server.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/plotforge"
	)

	func main() {
		// Built-in graph, in-memory store, no generator (fallback content only).
		eng, err := plotforge.New("")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		scene := eng.StartNewStory(ctx)
		fmt.Println(scene.Content)

		scene, err = eng.Choose(ctx, "1")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(scene.Content)
	}

# Recovery

Choosing an option whose target does not exist never fails. The engine first
returns to the previously visited decision point; if that is not possible it
materializes a session-scoped "crossroads" node with three fixed choices.
*/
package plotforge
