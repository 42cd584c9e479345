// Package schema validates authored story resources against JSON Schema.
//
// The node document is a JSON object keyed by node ID:
//
//	{
//	  "start": {
//	    "id": "start",
//	    "content": "You wander into an old bookshop...",
//	    "choices": [{"id": "read_more", "text": "Keep reading", "nextNode": "strange_occurrence"}],
//	    "fallbackContent": "You find a strange book."
//	  }
//	}
//
// Validation is structural only. Graph-level checks (dangling references,
// reachability) live in the repository package.
package schema
