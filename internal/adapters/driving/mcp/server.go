package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lexroute/internal/logger"
)

// DefaultVersion is reported to clients when no build version is set.
const DefaultVersion = "dev"

// shutdownGrace bounds how long open HTTP sessions may drain.
const shutdownGrace = 5 * time.Second

const instructions = `lexroute answers legal questions over a local case collection.
Use "ask" for questions: it splits a request into parts (case discovery,
legal aid, drafting) and answers each one. Use "search" to inspect the raw
passages the answers are grounded on.`

// Server exposes lexroute's query pipeline over MCP.
type Server struct {
	ports   *Ports
	version string
	server  *mcp.Server
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported during initialisation.
func WithVersion(v string) Option {
	return func(s *Server) {
		if v != "" {
			s.version = v
		}
	}
}

// NewServer registers the ask and search tools and the intent and index
// resources. Index may be nil; the stats resource is then empty.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{ports: ports, version: DefaultVersion}
	for _, opt := range opts {
		opt(s)
	}
	s.server = mcp.NewServer(
		&mcp.Implementation{Name: "lexroute", Version: s.version},
		&mcp.ServerOptions{Instructions: instructions},
	)

	s.registerTools()
	s.registerResources()
	return s, nil
}

// Version returns the version reported to clients.
func (s *Server) Version() string { return s.version }

// Run serves a single client over stdin/stdout until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler. Every session shares the
// same tools and index.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.server }, nil)
}

// RunHTTP listens on addr and serves until ctx is done.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts HTTP clients on ln until ctx is done, then drains open
// sessions for up to shutdownGrace. A clean shutdown returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpServer.Shutdown(drainCtx); err != nil {
			logger.Warn("MCP server shutdown: %v", err)
		}
	}()

	logger.Debug("MCP server listening on %s", ln.Addr())
	err := httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-stopped
		return nil
	}
	return err
}
