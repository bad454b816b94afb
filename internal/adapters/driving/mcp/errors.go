// Package mcp provides an MCP (Model Context Protocol) server adapter for bidwright.
// It lets AI assistants parse RFP text and draft responses through the pipeline.
package mcp

import "errors"

// ErrMissingPipelineService is returned when the pipeline service is not provided.
var ErrMissingPipelineService = errors.New("mcp: pipeline service is required")

// ErrMissingExportService is returned when the export service is not provided.
var ErrMissingExportService = errors.New("mcp: export service is required")

// ErrMissingText is returned when a tool is called without document text.
var ErrMissingText = errors.New("mcp: text is required")
