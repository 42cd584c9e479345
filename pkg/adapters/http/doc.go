// Package http serves story sessions over a JSON API.
//
// Routes:
//
//	POST   /sessions                   start a story (optional {"sessionId"})
//	GET    /sessions                   list persisted sessions
//	GET    /sessions/{id}              current scene
//	POST   /sessions/{id}/choices      take a choice ({"choice": id or ordinal})
//	GET    /sessions/{id}/nodes/{node} resolve a node directly
//	GET    /sessions/{id}/history      persisted snapshots
//	GET    /sessions/{id}/export       accumulated narrative as text
//	DELETE /sessions/{id}              wipe the session
//	GET    /graph                      loaded nodes
//	GET    /health                     liveness
package http
