package mcpTools

import (
	"context"
	"net/http"

	"github.com/akolanti/GroundedRAG/internal/rag"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "1.0.0"

// Server exposes the two retrieval tools over MCP.
type Server struct {
	service rag.Service
	server  *mcp.Server
	log     *logger_i.Logger
}

func NewServer(service rag.Service) *Server {
	impl := &mcp.Implementation{
		Name:    "grounded-rag",
		Version: Version,
	}
	s := &Server{
		service: service,
		server:  mcp.NewServer(impl, nil),
		log:     logger_i.NewLogger("MCP"),
	}
	s.registerTools()
	return s
}

// Handler serves the streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// Run serves over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect attaches the server to an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}
