package cmd

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/savente93/snakedown/internal/pipeline"
	"github.com/savente93/snakedown/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the pages whenever the package's sources change",
	Long: `Render once, then rebuild the whole site each time a .py file under the
package changes. Failed rebuilds are reported and watching continues.`,
	Args: cobra.NoArgs,
	Run:  runWatch,
}

var watchDebounce time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before rebuilding")
}

func runWatch(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	build := func(ctx context.Context) error {
		res, err := pipeline.Run(ctx, cfg, pipeline.Options{Version: Version})
		if err != nil {
			return err
		}
		printSummary(res, cfg.SkipWrite)
		return nil
	}

	if err := build(ctx); err != nil {
		slog.Error("initial build failed", "error", err)
	}

	w := watch.New(cfg.PkgPath, watchDebounce, build)
	if err := w.Run(ctx); err != nil {
		log.Fatalf("watch failed: %v", err)
	}
}
