// Package mcp exposes medical question answering as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/0xcro3dile/medrag-go/internal/infrastructure/bootstrap"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ErrMissingBackend is returned when no backend is provided.
var ErrMissingBackend = errors.New("mcp: backend is required")

// Backend builds the query service on first use.
type Backend interface {
	Get(ctx context.Context) (*bootstrap.Services, error)
}

// Server is the medrag MCP server.
type Server struct {
	backend Backend
	server  *mcp.Server
}

// NewServer creates an MCP server with the medrag tools registered.
func NewServer(backend Backend) (*Server, error) {
	if backend == nil {
		return nil, ErrMissingBackend
	}

	s := &Server{
		backend: backend,
		server:  mcp.NewServer(&mcp.Implementation{Name: "medrag", Version: Version}, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
