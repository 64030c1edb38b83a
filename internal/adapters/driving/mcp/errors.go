// Package mcp provides an MCP (Model Context Protocol) server adapter for lexroute.
// It lets AI assistants ask legal questions and search the case index.
package mcp

import "errors"

// ErrMissingAssistant is returned when the assistant is not provided.
var ErrMissingAssistant = errors.New("mcp: assistant is required")

// ErrMissingRetriever is returned when the retriever is not provided.
var ErrMissingRetriever = errors.New("mcp: retriever is required")
