package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/sculpt"
	"github.com/aretw0/sculpt/internal/logging"
	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	slotsURI        = "sculpt://slots"
	slotURITemplate = "sculpt://slots/{id}"
)

// StateResponse is the result of get_state.
type StateResponse struct {
	SlotID string       `json:"slot_id" jsonschema_description:"The slot that was read"`
	State  domain.Value `json:"state" jsonschema_description:"The current state of the slot"`
}

// TransitionResponse aligns with the HTTP Transition schema.
type TransitionResponse struct {
	SlotID  string          `json:"slot_id" jsonschema_description:"The slot the action was applied to"`
	Action  string          `json:"action,omitempty" jsonschema_description:"The applied action, empty for a reset"`
	Changed bool            `json:"changed" jsonschema_description:"Whether the state changed"`
	State   domain.Value    `json:"state" jsonschema_description:"The state after the action"`
	Changes []domain.Change `json:"changes" jsonschema_description:"Path-addressed changes from the previous state"`
}

// Server wraps a SlotService and exposes it as an MCP Server.
type Server struct {
	slots     ports.SlotService
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger for tool failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(slots ports.SlotService, opts ...Option) *Server {
	s := &Server{
		slots:     slots,
		mcpServer: server.NewMCPServer("sculpt-mcp", sculpt.Version),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when ctx ends.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: list_actions
	s.mcpServer.AddTool(mcp.NewTool("list_actions",
		mcp.WithDescription("List the action types that can be dispatched to a slot."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		actions := s.slots.Actions()
		if actions == nil {
			actions = []string{}
		}
		jsonBytes, _ := json.Marshal(actions)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: get_state
	getTool := mcp.NewTool("get_state",
		mcp.WithDescription("Read the state of a slot. Unknown slots are created from the initial state."),
		mcp.WithString("slot_id", mcp.Required(), mcp.Description("The slot to read")),
		mcp.WithOutputSchema[StateResponse](),
	)
	s.mcpServer.AddTool(getTool, mcp.NewStructuredToolHandler(s.handleGetState))

	// TOOL: dispatch
	dispatchTool := mcp.NewTool("dispatch",
		mcp.WithDescription("Apply a named action to a slot and persist the result."),
		mcp.WithString("slot_id", mcp.Required(), mcp.Description("The slot to update")),
		mcp.WithString("action", mcp.Required(), mcp.Description("Action type, see list_actions")),
		mcp.WithString("payload", mcp.Description("JSON value passed to the action (optional)")),
		mcp.WithOutputSchema[TransitionResponse](),
	)
	s.mcpServer.AddTool(dispatchTool, mcp.NewStructuredToolHandler(s.handleDispatch))

	// TOOL: reset
	resetTool := mcp.NewTool("reset",
		mcp.WithDescription("Restore a slot to the initial state."),
		mcp.WithString("slot_id", mcp.Required(), mcp.Description("The slot to reset")),
		mcp.WithOutputSchema[TransitionResponse](),
	)
	s.mcpServer.AddTool(resetTool, mcp.NewStructuredToolHandler(s.handleReset))
}

func slotArg(args map[string]any) (string, error) {
	slotID, _ := args["slot_id"].(string)
	if slotID == "" {
		return "", errors.New("slot_id is required")
	}
	return slotID, nil
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (StateResponse, error) {
	slotID, err := slotArg(args)
	if err != nil {
		return StateResponse{}, err
	}
	state, err := s.slots.LoadOrInit(ctx, slotID)
	if err != nil {
		return StateResponse{}, fmt.Errorf("load failed: %w", err)
	}
	return StateResponse{SlotID: slotID, State: state}, nil
}

func (s *Server) handleDispatch(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (TransitionResponse, error) {
	slotID, err := slotArg(args)
	if err != nil {
		return TransitionResponse{}, err
	}
	action, _ := args["action"].(string)
	if action == "" {
		return TransitionResponse{}, errors.New("action is required")
	}

	var payload any
	if raw, ok := args["payload"].(string); ok && strings.TrimSpace(raw) != "" {
		v, err := domain.ParseJSON([]byte(raw))
		if err != nil {
			return TransitionResponse{}, fmt.Errorf("invalid payload: %w", err)
		}
		payload = v
	}

	t, err := s.slots.Dispatch(ctx, slotID, action, payload)
	if err != nil {
		s.logger.Warn("MCP Dispatch failed", "err", err, "slot_id", slotID, "action", action)
		return TransitionResponse{}, fmt.Errorf("dispatch failed: %w", err)
	}
	return transitionResponse(t), nil
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (TransitionResponse, error) {
	slotID, err := slotArg(args)
	if err != nil {
		return TransitionResponse{}, err
	}
	t, err := s.slots.Reset(ctx, slotID)
	if err != nil {
		return TransitionResponse{}, fmt.Errorf("reset failed: %w", err)
	}
	return transitionResponse(t), nil
}

func transitionResponse(t *domain.Transition) TransitionResponse {
	changes := t.Changes
	if changes == nil {
		changes = []domain.Change{}
	}
	return TransitionResponse{
		SlotID:  t.SlotID,
		Action:  t.Action,
		Changed: t.Changed(),
		State:   t.After,
		Changes: changes,
	}
}

func (s *Server) registerResources() {
	// EXPOSE: sculpt://slots
	s.mcpServer.AddResource(mcp.NewResource(slotsURI, "Stored Slots",
		mcp.WithResourceDescription("IDs of every stored slot"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		slots, err := s.slots.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list slots: %w", err)
		}
		if slots == nil {
			slots = []string{}
		}
		jsonBytes, _ := json.Marshal(slots)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      slotsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	// EXPOSE: sculpt://slots/{id}
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(slotURITemplate, "Slot State",
		mcp.WithTemplateDescription("Current state of one slot"),
		mcp.WithTemplateMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		uri := request.Params.URI
		slotID := strings.TrimPrefix(uri, slotsURI+"/")
		if slotID == "" || slotID == uri {
			return nil, fmt.Errorf("invalid slot uri %q", uri)
		}
		state, err := s.slots.LoadOrInit(ctx, slotID)
		if err != nil {
			return nil, fmt.Errorf("failed to load slot %s: %w", slotID, err)
		}
		jsonBytes, err := json.Marshal(state)
		if err != nil {
			return nil, err
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
