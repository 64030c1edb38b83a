package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lexroute/internal/core/domain"
)

// uriScheme is the custom URI scheme for lexroute resources.
const uriScheme = "lexroute://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "intents",
		Name:        "intents",
		Description: "The request types queries are routed by",
		MIMEType:    "application/json",
	}, s.handleIntentsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "index/stats",
		Name:        "index-stats",
		Description: "Size and embedding model of the case index",
		MIMEType:    "application/json",
	}, s.handleStatsResource)
}

// handleIntentsResource lists the routable intents.
func (s *Server) handleIntentsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type intentInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	intents := domain.KnownIntents()
	infos := make([]intentInfo, len(intents))
	for i, intent := range intents {
		infos[i] = intentInfo{Name: intent.String(), Description: intent.Description()}
	}
	return jsonResource(req.Params.URI, infos)
}

// handleStatsResource reports index statistics.
func (s *Server) handleStatsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Index == nil {
		return jsonResource(req.Params.URI, struct{}{})
	}
	return jsonResource(req.Params.URI, s.ports.Index.Stats())
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
