package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer wraps the MCP server and application dependencies
type MCPServer struct {
	app       *App
	mcpServer *server.MCPServer
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(app *App) *MCPServer {
	mcpServer := server.NewMCPServer(
		"bilidigest-server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		app:       app,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s
}

// registerTools registers all available MCP tools
func (s *MCPServer) registerTools() {
	// list_videos tool
	s.mcpServer.AddTool(mcp.NewTool("list_videos",
		mcp.WithDescription("List the configured uploader's recent videos with their IDs, publish dates and whether each one has already been processed."),
		mcp.WithNumber("count",
			mcp.Description("How many recent videos to list (default 10)"),
		),
	), s.handleListVideos)

	// get_content tool
	s.mcpServer.AddTool(mcp.NewTool("get_content",
		mcp.WithDescription("Fetch the raw content for a video (subtitle, description, speech transcript or timeline comments depending on availability) without summarizing it. May take minutes when the speech fallback has to download and transcribe the video."),
		mcp.WithString("bvid",
			mcp.Description("Video ID (BV...)"),
			mcp.Required(),
		),
	), s.handleGetContent)

	// process_video tool
	s.mcpServer.AddTool(mcp.NewTool("process_video",
		mcp.WithDescription("Run the full pipeline for a video: gather content, generate the summary report and record it in the processed index. Requires OPENAI_API_KEY. Already processed videos return the existing report unless force is set."),
		mcp.WithString("bvid",
			mcp.Description("Video ID (BV...)"),
			mcp.Required(),
		),
		mcp.WithBoolean("force",
			mcp.Description("Reprocess even if the video was already handled"),
		),
	), s.handleProcessVideo)
}

// handleListVideos implements the list_videos tool
func (s *MCPServer) handleListVideos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count := request.GetInt("count", 10)

	MCPLogInfo("list_videos count=%d", count)
	videos, err := s.app.client.ListUserVideos(ctx, s.app.config.UploaderUID, count)
	if err != nil {
		MCPLogError("list_videos: %v", err)
		return mcp.NewToolResultErrorFromErr("listing videos", err), nil
	}

	var buf strings.Builder
	for _, v := range videos {
		status := "pending"
		if s.app.index.Contains(v.BVID) {
			status = "processed"
		}
		buf.WriteString(fmt.Sprintf("%s  %s  [%s]  %s\n", v.BVID, v.PublishedAt.Format("2006-01-02 15:04"), status, v.Title))
	}
	if buf.Len() == 0 {
		buf.WriteString("No videos found")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(buf.String())},
	}, nil
}

// handleGetContent implements the get_content tool
func (s *MCPServer) handleGetContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bvid, err := request.RequireString("bvid")
	if err != nil {
		return mcp.NewToolResultError("bvid parameter is required and must be a string"), nil
	}
	if !IsValidBVID(bvid) {
		return mcp.NewToolResultError(fmt.Sprintf("%q is not a valid video ID", bvid)), nil
	}

	MCPLogInfo("get_content bvid=%s", bvid)
	content, err := s.app.GetContent(ctx, bvid)
	if err != nil {
		MCPLogError("get_content %s: %v", bvid, err)
		return mcp.NewToolResultErrorFromErr("assembling content", err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(content)},
	}, nil
}

// handleProcessVideo implements the process_video tool
func (s *MCPServer) handleProcessVideo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bvid, err := request.RequireString("bvid")
	if err != nil {
		return mcp.NewToolResultError("bvid parameter is required and must be a string"), nil
	}
	if !IsValidBVID(bvid) {
		return mcp.NewToolResultError(fmt.Sprintf("%q is not a valid video ID", bvid)), nil
	}
	force := request.GetBool("force", false)

	MCPLogInfo("process_video bvid=%s force=%t", bvid, force)
	entry, err := s.app.orchestrator.ProcessVideo(ctx, bvid, force)
	if err != nil {
		MCPLogError("process_video %s: %v", bvid, err)
		return mcp.NewToolResultErrorFromErr("processing video", err), nil
	}

	text := fmt.Sprintf("Processed %s (%s) using %s\nReport: %s",
		entry.BVID, entry.Title, entry.Scenario, entry.ReportPath)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}, nil
}

// Start starts the MCP server using the specified transport
func (s *MCPServer) Start(ctx context.Context, transport string, port int) error {
	if transport == "http" {
		httpServer := server.NewStreamableHTTPServer(s.mcpServer)
		addr := fmt.Sprintf(":%d", port)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return httpServer.Start(addr)
	}

	// Default to stdio transport
	return server.ServeStdio(s.mcpServer)
}
