package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/savente93/snakedown/internal/mcp"
	"github.com/savente93/snakedown/internal/pipeline"
	"github.com/savente93/snakedown/internal/render"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the package's API index over MCP on stdio",
	Long: `Index the package once and answer symbol lookups over the Model Context
Protocol. References are validated first, so a build that would fail also
fails to serve.`,
	Args: cobra.NoArgs,
	Run:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	b, err := pipeline.Prepare(cmd.Context(), cfg, pipeline.Options{Version: Version})
	if err != nil {
		exitOnBuildError(err)
	}

	rctx := render.Context{
		Version:     Version,
		PackageName: b.Index.PackageName(),
		APIPath:     cfg.APIContentPath,
	}
	server := mcp.NewServer(b, rctx, Version)
	if err := server.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
