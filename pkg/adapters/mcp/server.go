package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/plotforge"
	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/runner"
	"github.com/aretw0/plotforge/pkg/session"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource exposing the loaded node graph.
const GraphURI = "plotforge://graph"

// SceneResponse is the structured result of scene-producing tools.
type SceneResponse struct {
	SessionID string        `json:"session_id" jsonschema_description:"The session the scene belongs to"`
	Scene     *domain.Scene `json:"scene" jsonschema_description:"The resolved scene with its choices"`
}

// StartArgs are the arguments of start_story.
type StartArgs struct {
	SessionID string `json:"session_id,omitempty"`
}

// ChooseArgs are the arguments of choose.
type ChooseArgs struct {
	SessionID string `json:"session_id"`
	Choice    string `json:"choice"`
}

// ResolveArgs are the arguments of resolve_node.
type ResolveArgs struct {
	SessionID string `json:"session_id"`
	NodeID    string `json:"node_id"`
}

// Server exposes story sessions as MCP tools.
type Server struct {
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		sessions:  sessions,
		logger:    logger,
		mcpServer: server.NewMCPServer("plotforge-mcp", plotforge.Version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP protocol over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_story",
		mcp.WithDescription("Start a new story, discarding previous progress of the session. A session id is generated when omitted."),
		mcp.WithString("session_id", mcp.Description("Session to start (optional)")),
		mcp.WithOutputSchema[SceneResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("choose",
		mcp.WithDescription("Take a choice of the current scene, by choice id or 1-based number."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("choice", mcp.Required(), mcp.Description("Choice id or number")),
		mcp.WithOutputSchema[SceneResponse](),
	), mcp.NewStructuredToolHandler(s.handleChoose))

	s.mcpServer.AddTool(mcp.NewTool("resolve_node",
		mcp.WithDescription("Move the session directly to a node and render it."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node to resolve")),
		mcp.WithOutputSchema[SceneResponse](),
	), mcp.NewStructuredToolHandler(s.handleResolve))

	s.mcpServer.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("Get the persisted history log of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	), s.handleHistory)
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args StartArgs) (SceneResponse, error) {
	id := args.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	scene, err := s.sessions.Start(ctx, id)
	if err != nil {
		return SceneResponse{}, fmt.Errorf("start failed: %w", err)
	}
	return SceneResponse{SessionID: id, Scene: scene}, nil
}

func (s *Server) handleChoose(ctx context.Context, _ mcp.CallToolRequest, args ChooseArgs) (SceneResponse, error) {
	choice, err := runner.SanitizeInput(args.Choice)
	if err != nil {
		s.logger.Warn("MCP choose: input rejected", "err", err, "size", len(args.Choice))
		return SceneResponse{}, fmt.Errorf("input rejected: %w", err)
	}
	scene, err := s.sessions.Choose(ctx, args.SessionID, choice)
	if err != nil {
		return SceneResponse{}, fmt.Errorf("choose failed: %w", err)
	}
	return SceneResponse{SessionID: args.SessionID, Scene: scene}, nil
}

func (s *Server) handleResolve(ctx context.Context, _ mcp.CallToolRequest, args ResolveArgs) (SceneResponse, error) {
	scene, err := s.sessions.Resolve(ctx, args.SessionID, args.NodeID)
	if err != nil {
		return SceneResponse{}, fmt.Errorf("resolve failed: %w", err)
	}
	return SceneResponse{SessionID: args.SessionID, Scene: scene}, nil
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	log, err := s.sessions.History(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown session %q", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}
	data, err := json.Marshal(log)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Story graph",
		mcp.WithResourceDescription("All nodes of the loaded story graph"),
		mcp.WithMIMEType("application/json"),
	), s.readGraph)
}

func (s *Server) readGraph(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	base := s.sessions.Base()
	data, err := json.Marshal(map[string]any{
		"initialNode": base.InitialNodeID(),
		"nodes":       base.Nodes().Nodes(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode graph: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GraphURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
