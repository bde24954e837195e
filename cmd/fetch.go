package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/savente93/snakedown/internal/config"
	"github.com/savente93/snakedown/internal/inventory"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the Sphinx inventories of configured externals",
	Long: `Download objects.inv for every entry under [externals] into the cache.
Inventories already cached are kept unless --force is given.`,
	Example: `  snakedown fetch
  snakedown fetch --force`,
	Args: cobra.NoArgs,
	Run:  runFetch,
}

var fetchForce bool

func init() {
	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "re-download inventories that are already cached")
}

func runFetch(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	sources := cfg.Sources()
	if len(sources) == 0 {
		fmt.Println("no externals configured")
		return
	}

	cacheDir := config.CacheDir()
	if err := inventory.FillCache(cmd.Context(), sources, cacheDir, fetchForce); err != nil {
		log.Fatalf("failed to fetch inventories: %v", err)
	}

	for _, src := range sources {
		inv, err := inventory.DecodeFile(inventory.CachePath(cacheDir, src.Key))
		if err != nil {
			fmt.Printf("  %s: error: %v\n", src.Key, err)
			continue
		}
		fmt.Printf("  %s: %s %s, %d entries\n", src.Key, inv.Project, inv.Version, len(inv.Entries))
	}
}
