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

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ModelsURI is the resource listing the library models.
const ModelsURI = "arbor://models"

// ModelList is the structured result of list_models.
type ModelList struct {
	Models []string `json:"models" jsonschema_description:"Model ids available in the library"`
}

// Server wraps an analyzer and exposes it as an MCP Server.
type Server struct {
	engine    ports.Analyzer
	loader    ports.ModelLoader
	parser    *compiler.Parser
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the MCP server.
type Option func(*Server)

// WithLoader enables model_id arguments, the list_models tool and the models resource.
func WithLoader(loader ports.ModelLoader) Option {
	return func(s *Server) {
		s.loader = loader
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine ports.Analyzer, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		parser:    compiler.NewParser(),
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("arbor-mcp", strings.TrimSpace(arbor.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	if s.loader != nil {
		s.registerResources()
	}
	return s
}

// MCPServer exposes the underlying server, mostly for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

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

		s.logger.Info("shutting down MCP server")
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	modelDesc := "Model JSON ({nodes, edges, variables?}). Required unless model_id is given."
	if s.loader == nil {
		modelDesc = "Model JSON ({nodes, edges, variables?})"
	}

	// TOOL: rollback
	rollbackTool := mcp.NewTool("rollback",
		mcp.WithDescription("Evaluate a decision model and return the expected cost, effectiveness and optimal strategy."),
		mcp.WithString("model", mcp.Description(modelDesc)),
		mcp.WithString("model_id", mcp.Description("Id of a model in the library (optional)")),
		mcp.WithString("variables", mcp.Description("JSON object of variable overrides (optional)")),
		mcp.WithOutputSchema[domain.Outcome](),
	)
	s.mcpServer.AddTool(rollbackTool, mcp.NewStructuredToolHandler(s.handleRollback))

	// TOOL: sensitivity_oneway
	sensitivityTool := mcp.NewTool("sensitivity_oneway",
		mcp.WithDescription("Run a one-way sensitivity analysis perturbing every variable by ±20% and return tornado bars."),
		mcp.WithString("model", mcp.Description(modelDesc)),
		mcp.WithString("model_id", mcp.Description("Id of a model in the library (optional)")),
		mcp.WithString("variables", mcp.Description("JSON object of variable overrides (optional)")),
		mcp.WithOutputSchema[domain.TornadoResult](),
	)
	s.mcpServer.AddTool(sensitivityTool, mcp.NewStructuredToolHandler(s.handleSensitivity))

	if s.loader == nil {
		return
	}

	// TOOL: list_models
	listTool := mcp.NewTool("list_models",
		mcp.WithDescription("List the models available in the library."),
		mcp.WithOutputSchema[ModelList](),
	)
	s.mcpServer.AddTool(listTool, mcp.NewStructuredToolHandler(s.handleListModels))
}

func (s *Server) handleRollback(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Outcome, error) {
	doc, vars, err := s.resolveModel(ctx, args)
	if err != nil {
		return domain.Outcome{}, err
	}
	out, err := s.engine.Rollback(ctx, doc.Graph, vars)
	if err != nil {
		s.logger.Warn("MCP rollback failed", "error", err)
		return domain.Outcome{}, fmt.Errorf("rollback failed: %w", err)
	}
	return out, nil
}

func (s *Server) handleSensitivity(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.TornadoResult, error) {
	doc, vars, err := s.resolveModel(ctx, args)
	if err != nil {
		return domain.TornadoResult{}, err
	}
	res, err := s.engine.SensitivityOneWay(ctx, doc.Graph, vars)
	if err != nil {
		s.logger.Warn("MCP sensitivity failed", "error", err)
		return domain.TornadoResult{}, fmt.Errorf("sensitivity failed: %w", err)
	}
	return res, nil
}

func (s *Server) handleListModels(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ModelList, error) {
	ids, err := s.loader.ListModels(ctx)
	if err != nil {
		return ModelList{}, fmt.Errorf("list models failed: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ModelList{Models: ids}, nil
}

// resolveModel compiles the inline model or loads model_id from the library,
// then merges the variable overrides over the model's own variables.
func (s *Server) resolveModel(ctx context.Context, args map[string]interface{}) (*compiler.Document, domain.Variables, error) {
	var overrides domain.Variables
	if raw, ok := args["variables"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
			return nil, nil, fmt.Errorf("invalid variables: %w", err)
		}
	}

	var data []byte
	inline, _ := args["model"].(string)
	modelID, _ := args["model_id"].(string)
	switch {
	case inline != "":
		data = []byte(inline)
	case modelID != "" && s.loader != nil:
		b, err := s.loader.GetModel(ctx, modelID)
		if err != nil {
			return nil, nil, err
		}
		data = b
	default:
		return nil, nil, errors.New("model is required")
	}

	doc, err := s.parser.Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidModel, err)
	}
	return doc, doc.Variables.Merge(overrides), nil
}

func (s *Server) registerResources() {
	// EXPOSE: arbor://models
	s.mcpServer.AddResource(mcp.NewResource(ModelsURI, "Model Library",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		list, err := s.handleListModels(ctx, mcp.CallToolRequest{}, nil)
		if err != nil {
			return nil, err
		}
		jsonBytes, _ := json.Marshal(list)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      ModelsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
