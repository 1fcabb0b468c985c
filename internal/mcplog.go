package internal

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
)

// MCP tool calls happen over stdio, so diagnostics go to a file instead of
// the transport.
var (
	mcpLogger     *log.Logger
	mcpLoggerOnce sync.Once
)

// InitMCPLogging opens the MCP log file when enabled in config. Failures
// leave logging disabled rather than breaking the server.
func InitMCPLogging(config *Config) {
	mcpLoggerOnce.Do(func() {
		if !config.MCPLogEnabled {
			return
		}
		mcpLogger = log.New(openMCPLogFile(), "", log.LstdFlags|log.Lmicroseconds)
	})
}

func openMCPLogFile() io.Writer {
	dir := filepath.Join(xdg.CacheHome, "bilidigest")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return io.Discard
	}
	f, err := os.OpenFile(filepath.Join(dir, "mcp.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return io.Discard
	}
	return f
}

func mcpLogf(level, format string, args ...any) {
	if mcpLogger == nil {
		return
	}
	mcpLogger.Printf("[MCP] [%s] "+format, append([]any{level}, args...)...)
}

// MCPLogInfo logs an info message
func MCPLogInfo(format string, args ...any) {
	mcpLogf("INFO", format, args...)
}

// MCPLogError logs an error message
func MCPLogError(format string, args ...any) {
	mcpLogf("ERROR", format, args...)
}
