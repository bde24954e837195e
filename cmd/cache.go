package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/savente93/snakedown/internal/config"
	"github.com/savente93/snakedown/internal/inventory"
)

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Remove downloaded inventories",
	Args:  cobra.NoArgs,
	Run:   runClearCache,
}

func runClearCache(cmd *cobra.Command, args []string) {
	n, err := inventory.ClearCache(config.CacheDir())
	if err != nil {
		slog.Error("failed to clear cache", "error", err)
		os.Exit(1)
	}
	fmt.Printf("removed %d cached inventories\n", n)
}
