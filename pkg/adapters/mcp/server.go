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

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/paneltree"
	"github.com/aretw0/paneltree/internal/logging"
	httpAdapter "github.com/aretw0/paneltree/pkg/adapters/http"
	"github.com/aretw0/paneltree/pkg/document"
	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
	"github.com/aretw0/paneltree/pkg/registry"
	"github.com/aretw0/paneltree/pkg/types"
)

// HandlersURI is the resource listing the registered handlers.
const HandlersURI = "paneltree://handlers"

// StackResponse is the structured result of resolve_stack.
type StackResponse struct {
	Type     string                  `json:"type" jsonschema_description:"Canonical form of the resolved type"`
	ChosenID string                  `json:"chosen_id" jsonschema_description:"Handler chosen for the type, empty when nothing can render it"`
	Options  []paneltree.StackOption `json:"options" jsonschema_description:"Applicable handlers, most specific first"`
}

// NodeResponse is the structured result of the document tools.
type NodeResponse struct {
	Document map[string]any `json:"document" jsonschema_description:"The document as plain data"`
	Rule     string         `json:"rule,omitempty" jsonschema_description:"Input-update rule that applied"`
}

// Server exposes the engine and a document manager as an MCP server.
type Server struct {
	engine    *paneltree.Engine
	docs      *document.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine *paneltree.Engine, docs *document.Manager, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		docs:      docs,
		mcpServer: server.NewMCPServer("paneltree-mcp", strings.TrimSpace(paneltree.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
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

// ServeSSE starts the server on the given port using SSE and stops it when ctx is done.
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

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: resolve_stack
	stackTool := mcp.NewTool("resolve_stack",
		mcp.WithDescription("List the handlers able to render a type (or the type of an expression), most specific first."),
		mcp.WithString("type", mcp.Description("Type expression, e.g. '{name: string, loss: number}'")),
		mcp.WithString("input", mcp.Description("Expression whose type is resolved when type is omitted")),
		mcp.WithString("requested", mcp.Description("Preferred handler id (optional)")),
		mcp.WithString("allow", mcp.Description("JSON array of allowed handler ids (optional)")),
		mcp.WithOutputSchema[StackResponse](),
	)
	s.mcpServer.AddTool(stackTool, mcp.NewStructuredToolHandler(s.handleResolveStack))

	// TOOL: get_document
	getTool := mcp.NewTool("get_document",
		mcp.WithDescription("Return a stored configuration tree."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithOutputSchema[NodeResponse](),
	)
	s.mcpServer.AddTool(getTool, mcp.NewStructuredToolHandler(s.handleGetDocument))

	// TOOL: update_input
	inputTool := mcp.NewTool("update_input",
		mcp.WithDescription("Change the input expression of a node and re-resolve its handler if needed."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("path", mcp.Description("Dotted node path, empty for the root")),
		mcp.WithString("input", mcp.Required(), mcp.Description("New input expression")),
		mcp.WithOutputSchema[NodeResponse](),
	)
	s.mcpServer.AddTool(inputTool, mcp.NewStructuredToolHandler(s.handleUpdateInput))

	// TOOL: switch_handler
	switchTool := mcp.NewTool("switch_handler",
		mcp.WithDescription("Render a node with another handler of its stack."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("path", mcp.Description("Dotted node path, empty for the root")),
		mcp.WithString("handler", mcp.Required(), mcp.Description("Handler id")),
		mcp.WithOutputSchema[NodeResponse](),
	)
	s.mcpServer.AddTool(switchTool, mcp.NewStructuredToolHandler(s.handleSwitchHandler))

	// TOOL: list_handlers
	s.mcpServer.AddTool(mcp.NewTool("list_handlers",
		mcp.WithDescription("List the registered handlers in registration order."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(httpAdapter.DescribeHandlers(s.engine.Registry()))
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleResolveStack(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StackResponse, error) {
	typeSrc, _ := args["type"].(string)
	inputSrc, _ := args["input"].(string)
	requested, _ := args["requested"].(string)

	var t domain.Type
	switch {
	case typeSrc != "":
		parsed, err := types.ParseType(typeSrc)
		if err != nil {
			return StackResponse{}, err
		}
		t = parsed
	case inputSrc != "":
		e, err := s.engine.Parse(ctx, inputSrc, domain.Frame{})
		if err != nil {
			return StackResponse{}, err
		}
		t = e.Type()
	default:
		return StackResponse{}, errors.New("type or input is required")
	}

	var allow registry.Filter
	if allowStr, ok := args["allow"].(string); ok && allowStr != "" {
		var ids []string
		if err := json.Unmarshal([]byte(allowStr), &ids); err != nil {
			return StackResponse{}, fmt.Errorf("allow must be a JSON array of ids: %w", err)
		}
		allow = registry.AllowIDs(ids...)
	}

	res := s.engine.ResolveStack(ctx, t, requested, allow)
	return StackResponse{Type: t.String(), ChosenID: res.ChosenID, Options: res.Options()}, nil
}

func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (NodeResponse, error) {
	id, _ := args["id"].(string)
	doc, err := s.docs.Load(ctx, id)
	if err != nil {
		return NodeResponse{}, err
	}
	return s.nodeResponse(doc, "")
}

func (s *Server) handleUpdateInput(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (NodeResponse, error) {
	id, _ := args["id"].(string)
	pathStr, _ := args["path"].(string)
	inputSrc, _ := args["input"].(string)

	input, err := expr.Parse(inputSrc)
	if err != nil {
		return NodeResponse{}, err
	}

	var rule domain.Rule
	doc, err := s.docs.Update(ctx, id, domain.ParsePath(pathStr), func(ctx context.Context, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error) {
		next, applied, err := s.engine.UpdateInput(ctx, node, input, frame)
		rule = applied
		return next, err
	})
	if err != nil {
		s.logger.Warn("MCP update_input failed", "document_id", id, "err", err)
		return NodeResponse{}, err
	}
	return s.nodeResponse(doc, rule)
}

func (s *Server) handleSwitchHandler(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (NodeResponse, error) {
	id, _ := args["id"].(string)
	pathStr, _ := args["path"].(string)
	handlerID, _ := args["handler"].(string)

	doc, err := s.docs.Update(ctx, id, domain.ParsePath(pathStr), func(ctx context.Context, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error) {
		return s.engine.SwitchHandler(ctx, node, handlerID, frame)
	})
	if err != nil {
		s.logger.Warn("MCP switch_handler failed", "document_id", id, "err", err)
		return NodeResponse{}, err
	}
	return s.nodeResponse(doc, "")
}

func (s *Server) nodeResponse(doc *domain.Document, rule domain.Rule) (NodeResponse, error) {
	plain, err := doc.ToPlain(s.engine.Codec())
	if err != nil {
		return NodeResponse{}, err
	}
	return NodeResponse{Document: plain, Rule: string(rule)}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: paneltree://handlers
	s.mcpServer.AddResource(mcp.NewResource(HandlersURI, "Registered Handlers",
		mcp.WithMIMEType("application/json"),
	), s.readHandlers)
}

func (s *Server) readHandlers(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(httpAdapter.DescribeHandlers(s.engine.Registry()))
	if err != nil {
		return nil, fmt.Errorf("failed to describe handlers: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      HandlersURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
