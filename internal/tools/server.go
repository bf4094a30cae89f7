package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "Expense Tracker"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"

	shutdownTimeout = 10 * time.Second
)

// TransportKind identifies the MCP transport implementation.
type TransportKind string

const (
	// TransportStdio uses standard input/output for MCP.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP serves the streamable HTTP transport.
	TransportHTTP TransportKind = "http"
)

// Config configures how the MCP server is exposed.
type Config struct {
	Transport TransportKind
	HTTPAddr  string // defaults to localhost:8081
	// RateLimit caps HTTP requests per client per minute; 0 disables it.
	RateLimit int
}

// Server hosts the expense tools and the categories resource.
type Server struct {
	mcpServer *mcp.Server
	logger    *applog.Logger
}

// New creates an MCP server exposing ops as tools and the file at
// categoriesPath as the categories resource.
func New(ops ExpenseOperations, categoriesPath string, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentMCP)

	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	mcpServer.AddReceivingMiddleware(applog.Middleware(logger))

	registerExpenseTools(mcpServer, ops)
	registerCategoryResources(mcpServer, categoriesPath)

	return &Server{mcpServer: mcpServer, logger: logger}
}

func registerExpenseTools(mcpServer *mcp.Server, ops ExpenseOperations) {
	mcp.AddTool(mcpServer, AddExpenseTool(), AddExpenseHandler(ops))
	mcp.AddTool(mcpServer, ListExpensesTool(), ListExpensesHandler(ops))
	mcp.AddTool(mcpServer, EditExpenseTool(), EditExpenseHandler(ops))
	mcp.AddTool(mcpServer, DeleteExpenseTool(), DeleteExpenseHandler(ops))
	mcp.AddTool(mcpServer, SummarizeTool(), SummarizeHandler(ops))
}

func registerCategoryResources(mcpServer *mcp.Server, categoriesPath string) {
	mcpServer.AddResource(CategoriesResource(), CategoriesResourceHandler(categoriesPath))
}

// Run serves the MCP server over the configured transport until ctx ends.
func (s *Server) Run(ctx context.Context, cfg Config) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}

	switch cfg.Transport {
	case TransportStdio:
		return s.serveWithTransport(ctx, &mcp.StdioTransport{})
	case TransportHTTP:
		return s.serveHTTP(ctx, cfg)
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
}

// Connect attaches a single session over transport without blocking.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, transport, nil)
}

// Handler returns the streamable HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	return otelhttp.NewHandler(handler, "mcp")
}

// serveWithTransport starts the MCP server using the provided transport.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	s.logger.InfoContext(ctx, "Serving MCP", "transport", fmt.Sprintf("%T", transport))

	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

func (s *Server) serveHTTP(ctx context.Context, cfg Config) error {
	// Default to localhost-only binding
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = "localhost:8081"
	}

	handler := s.Handler()
	if cfg.RateLimit > 0 {
		limiter := ratelimit.NewLimiter(ratelimit.Config{Requests: cfg.RateLimit, Window: time.Minute})
		handler = limiter.Middleware(handler)
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "Serving MCP over HTTP", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve MCP over HTTP: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown HTTP server: %w", err)
	}
	s.logger.Info("MCP HTTP server stopped")
	return nil
}
