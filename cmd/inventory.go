package cmd

import (
	"fmt"
	"iter"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/savente93/snakedown/internal/config"
	"github.com/savente93/snakedown/internal/inventory"
	"github.com/savente93/snakedown/internal/suggest"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory <external>",
	Short: "List the names a cached inventory provides",
	Example: `  snakedown inventory python
  snakedown inventory numpy --query numpy.ndarry
  snakedown inventory python --all`,
	Args: cobra.ExactArgs(1),
	Run:  runInventory,
}

var (
	inventoryQuery string
	inventoryAll   bool
)

func init() {
	inventoryCmd.Flags().StringVar(&inventoryQuery, "query", "", "print the name closest to this one")
	inventoryCmd.Flags().BoolVar(&inventoryAll, "all", false, "include entries that cannot be referenced from docstrings")
}

func runInventory(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	key := strings.ToLower(args[0])
	if _, ok := cfg.Externals[key]; !ok {
		log.Fatalf("no external named %q in the configuration", args[0])
	}

	inv, err := inventory.DecodeFile(config.InventoryPath(key))
	if err != nil {
		log.Fatalf("failed to read inventory (run `snakedown fetch` first): %v", err)
	}

	if inventoryQuery != "" {
		s, ok := suggest.Closest(inventoryQuery, entryNames(inv, inventoryAll),
			cfg.Suggest.MaxLengthDelta, cfg.Suggest.MaxEditDistance)
		if !ok {
			fmt.Println("no close match")
			return
		}
		fmt.Printf("%s (distance %d)\n", s.Candidate, s.Distance)
		return
	}

	fmt.Printf("%s %s\n", inv.Project, inv.Version)
	for _, e := range inv.Entries {
		if !inventoryAll && !e.Kind.Importable() {
			continue
		}
		fmt.Printf("  %-50s %-16s %s\n", e.Name, e.Kind, e.Location)
	}
}

func entryNames(inv *inventory.Inventory, all bool) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, e := range inv.Entries {
			if !all && !e.Kind.Importable() {
				continue
			}
			if !yield(e.Name) {
				return
			}
		}
	}
}
