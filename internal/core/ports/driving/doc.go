// Package driving holds the ports the web UI, CLI, TUI and MCP server call
// into: running the pipeline, exporting the result and managing settings.
// internal/core/services implements them.
package driving
