package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/rtzll/tldm/internal"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run minimal MCP server for TL;DM",
	Long: `Run a Model Context Protocol (MCP) server that exposes TL;DM functionality as tools.

The MCP server provides four tools:
- get_latest_recording: Show the newest recording in the Drive folder
- get_meeting_transcript: Read the transcript of the last run
- get_meeting_summary: Read the summary of the last run
- summarize_latest_meeting: Run the whole pipeline

Logs go to mcp.log in the cache directory since stdout carries the protocol.

Transport options:
- stdio (default): Standard MCP transport via stdin/stdout
- http: HTTP transport on specified port (use --port to configure)`,
	Example: `  # Run MCP server with stdio transport
  tldm mcp

  # Run MCP server with HTTP transport on port 8080
  tldm mcp --transport=http --port=8080`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// MCP uses stdio protocol, so nothing may be printed
		config.Verbose = false
		config.Quiet = true
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		logger, closeLog := internal.NewMCPLogger(config)
		defer closeLog()

		app := internal.NewApp(config,
			internal.WithLogger(logger),
			internal.WithUI(internal.NewWriterUIManager(io.Discard, false, true)),
		)

		mcpServer := internal.NewMCPServer(app, logger)

		// Start the server (this will block until context is cancelled)
		return mcpServer.Start(cmd.Context(), transport, port)
	},
}

func init() {
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol (stdio or http)")
	mcpCmd.Flags().Int("port", 8080, "Port for HTTP transport (only used with --transport=http)")
	rootCmd.AddCommand(mcpCmd)
}
