// Package logging provides file-based logging with rotation for raglite.
// The CLI logs to ~/.raglite/logs/server.log without writing to stderr
// (setupCLILogging in cmd/raglite/cmd); the MCP server logs to the same
// file and never to stdout or stderr (SetupMCPModeWithLevel).
package logging
