package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// MCPServer wraps the MCP server and application dependencies
type MCPServer struct {
	app       *App
	mcpServer *server.MCPServer
	logger    zerolog.Logger
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(app *App, logger zerolog.Logger) *MCPServer {
	mcpServer := server.NewMCPServer(
		"tldm-server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		app:       app,
		mcpServer: mcpServer,
		logger:    logger,
	}

	s.registerTools()

	return s
}

// registerTools registers all available MCP tools
func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_latest_recording",
		mcp.WithDescription("Show name, size and creation time of the newest meeting recording in the configured Drive folder. Does not download anything."),
	), s.handleLatestRecording)

	s.mcpServer.AddTool(mcp.NewTool("get_meeting_transcript",
		mcp.WithDescription("Return the transcript written by the last pipeline run (FREE, reads a local file)."),
	), s.handleGetTranscript)

	s.mcpServer.AddTool(mcp.NewTool("get_meeting_summary",
		mcp.WithDescription("Return the summary written by the last pipeline run (FREE, reads a local file)."),
	), s.handleGetSummary)

	s.mcpServer.AddTool(mcp.NewTool("summarize_latest_meeting",
		mcp.WithDescription("Run the full pipeline: download the newest recording, transcribe, summarize and email the summary. Slow and may incur API costs. Always ask the user for confirmation before calling this tool."),
		mcp.WithBoolean("send_email",
			mcp.Description("Mail the summary to the configured recipient (default true)"),
		),
	), s.handleSummarizeLatest)
}

func (s *MCPServer) handleLatestRecording(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, err := s.app.Latest(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("tool", "get_latest_recording").Msg("tool failed")
		return mcp.NewToolResultErrorFromErr("listing recordings", err), nil
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return mcp.NewToolResultErrorFromErr("encoding recording", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *MCPServer) handleGetTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transcript, err := s.app.LastTranscript()
	if err != nil {
		return mcp.NewToolResultErrorFromErr("no transcript available - call summarize_latest_meeting first", err), nil
	}
	return mcp.NewToolResultText(transcript), nil
}

func (s *MCPServer) handleGetSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.app.LastSummary()
	if err != nil {
		return mcp.NewToolResultErrorFromErr("no summary available - call summarize_latest_meeting first", err), nil
	}
	return mcp.NewToolResultText(summary), nil
}

func (s *MCPServer) handleSummarizeLatest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sendEmail := request.GetBool("send_email", true)

	app := s.app
	if !sendEmail {
		app = s.app.withoutMail()
	}

	report := app.Run(ctx)
	s.logger.Info().
		Str("run_id", report.RunID).
		Str("stage", report.Stage.String()).
		Bool("send_email", sendEmail).
		Msg("pipeline run from MCP")

	if report.Failed() {
		return mcp.NewToolResultErrorFromErr("pipeline failed", report.Err), nil
	}

	var buf strings.Builder
	if report.Recording != nil {
		buf.WriteString(fmt.Sprintf("Recording: %s\n", report.Recording))
	}
	switch {
	case !sendEmail:
		buf.WriteString("Email: skipped\n")
	case report.NotifyErr != nil:
		buf.WriteString(fmt.Sprintf("Email: failed (%v)\n", report.NotifyErr))
	default:
		buf.WriteString(fmt.Sprintf("Email: sent to %s\n", app.config.MailTo))
	}
	buf.WriteString("\n")
	buf.WriteString(report.Summary)

	return mcp.NewToolResultText(buf.String()), nil
}

// Start starts the MCP server using the specified transport
func (s *MCPServer) Start(ctx context.Context, transport string, port int) error {
	s.logger.Info().Str("transport", transport).Int("port", port).Msg("mcp server starting")

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
