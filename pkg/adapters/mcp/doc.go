// Package mcp exposes story sessions to MCP clients.
//
// Tools: start_story, choose, resolve_node and get_history. The loaded graph
// is published as the plotforge://graph resource.
package mcp
