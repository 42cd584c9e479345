// Package runner holds input hygiene shared by the interactive surfaces:
// the terminal play loop, the HTTP API and the MCP tools.
package runner
