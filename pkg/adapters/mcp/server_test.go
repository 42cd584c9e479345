package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/plotforge"
	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/repository"
	"github.com/aretw0/plotforge/pkg/runner"
	"github.com/aretw0/plotforge/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	set, err := repository.New(&domain.Graph{Nodes: map[string]domain.Node{
		"start": {ID: "start", Content: "A lantern flickers.", FallbackContent: "lantern", Choices: []domain.Choice{
			{ID: "follow", Text: "Follow the light", NextNode: "cave"},
		}},
		"cave": {ID: "cave", Content: "A cave mouth.", FallbackContent: "cave", Choices: []domain.Choice{}},
	}})
	require.NoError(t, err)
	eng, err := plotforge.New("", plotforge.WithNodeSet(set))
	require.NoError(t, err)
	return NewServer(session.NewManager(eng), nil)
}

func historyRequest(id string) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = "get_history"
	req.Params.Arguments = map[string]any{"session_id": id}
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestServer_StoryTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	started, err := s.handleStart(ctx, mcp.CallToolRequest{}, StartArgs{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "s1", started.SessionID)
	assert.Equal(t, "start", started.Scene.NodeID)

	chosen, err := s.handleChoose(ctx, mcp.CallToolRequest{}, ChooseArgs{SessionID: "s1", Choice: "follow"})
	require.NoError(t, err)
	assert.Equal(t, "cave", chosen.Scene.NodeID)
	assert.True(t, chosen.Scene.Terminal)

	res, err := s.handleHistory(ctx, historyRequest("s1"))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	var log []domain.Snapshot
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &log))
	require.Len(t, log, 2)
	assert.Equal(t, "cave", *log[1].CurrentNode)
}

func TestServer_StartGeneratesSessionID(t *testing.T) {
	s := newTestServer(t)

	started, err := s.handleStart(context.Background(), mcp.CallToolRequest{}, StartArgs{})
	require.NoError(t, err)
	assert.Len(t, started.SessionID, 36)
}

func TestServer_ChooseErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	_, err := s.handleStart(ctx, mcp.CallToolRequest{}, StartArgs{SessionID: "s1"})
	require.NoError(t, err)

	_, err = s.handleChoose(ctx, mcp.CallToolRequest{}, ChooseArgs{SessionID: "s1", Choice: "swim"})
	assert.ErrorIs(t, err, domain.ErrInvalidChoice)

	_, err = s.handleChoose(ctx, mcp.CallToolRequest{}, ChooseArgs{SessionID: "ghost", Choice: "1"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = s.handleChoose(ctx, mcp.CallToolRequest{}, ChooseArgs{SessionID: "s1", Choice: strings.Repeat("x", 5000)})
	assert.ErrorIs(t, err, runner.ErrInputTooLarge)
}

func TestServer_ResolveNode(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	resolved, err := s.handleResolve(ctx, mcp.CallToolRequest{}, ResolveArgs{SessionID: "s1", NodeID: "cave"})
	require.NoError(t, err)
	assert.Equal(t, "A cave mouth.", resolved.Scene.Content)

	_, err = s.handleResolve(ctx, mcp.CallToolRequest{}, ResolveArgs{SessionID: "s1", NodeID: "nowhere"})
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestServer_HistoryRequiresSession(t *testing.T) {
	s := newTestServer(t)

	var req mcp.CallToolRequest
	req.Params.Arguments = map[string]any{}
	res, err := s.handleHistory(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServer_GraphResource(t *testing.T) {
	s := newTestServer(t)

	contents, err := s.readGraph(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, GraphURI, text.URI)

	var graph struct {
		InitialNode string        `json:"initialNode"`
		Nodes       []domain.Node `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &graph))
	assert.Equal(t, "start", graph.InitialNode)
	assert.Len(t, graph.Nodes, 2)
}
