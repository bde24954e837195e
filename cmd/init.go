package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/savente93/snakedown/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a snakedown.toml with the effective configuration",
	Long: `Write snakedown.toml in the current directory. Values come from the
usual sources (defaults, pyproject.toml, environment and flags), so
flags given here end up in the file.`,
	Example: `  snakedown init -p src/mypkg --ssg zola
  snakedown init --force`,
	Args: cobra.NoArgs,
	Run:  runInit,
}

var initForce bool

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing snakedown.toml")
}

func runInit(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	if err := config.Write(config.FileName, cfg, initForce); err != nil {
		log.Fatalf("failed to write config: %v", err)
	}
	fmt.Printf("wrote %s\n", config.FileName)
}
