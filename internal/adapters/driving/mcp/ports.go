package mcp

import (
	"github.com/custodia-labs/lexroute/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Assistant answers full queries.
	Assistant driving.Assistant

	// Retriever searches the index.
	Retriever driving.Retriever

	// Index reports index statistics. Optional.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Assistant == nil {
		return ErrMissingAssistant
	}
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}
