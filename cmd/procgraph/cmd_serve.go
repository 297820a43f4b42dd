package main

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"procgraph/internal/journal"
	"procgraph/internal/logging"
	mcpserver "procgraph/internal/mcp"
)

var serveFlags struct {
	journalPath string
	parallel    int
	maxSteps    int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout with the tools list_samples,
render_process, resolve_event and run_sample.

Runs are journaled in memory unless --journal is set. The server exits when
its parent process goes away.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.journalPath, "journal", "", "Run journal path (default: in memory)")
	f.IntVar(&serveFlags.parallel, "parallel", 0, "Max concurrent step invocations per dispatch (default: host default)")
	f.IntVar(&serveFlags.maxSteps, "max-steps", 0, "Max step invocations per run (default: host default)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	var j journal.Journal
	if serveFlags.journalPath != "" {
		sj, err := journal.Open(serveFlags.journalPath)
		if err != nil {
			return err
		}
		j = sj
	} else {
		j = journal.NewMemJournal()
	}
	defer j.Close()

	srv := mcpserver.NewServer(version, j)
	srv.Parallel = serveFlags.parallel
	srv.MaxSteps = serveFlags.maxSteps

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting procgraph MCP server over stdio (parent watchdog active)")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
