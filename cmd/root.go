package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/savente93/snakedown/internal/config"
	"github.com/savente93/snakedown/internal/index"
	"github.com/savente93/snakedown/internal/inventory"
	"github.com/savente93/snakedown/internal/pipeline"
)

// Version is stamped into generated pages. Release builds set it with
// -ldflags "-X github.com/savente93/snakedown/cmd.Version=...".
var Version = "dev"

var (
	configFile string
	verbosity  int
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "snakedown",
	Short: "Generate API reference pages for a Python package",
	Long: `Extract docstrings and signatures from a Python package, validate
[[target|text]] cross references against the package and any external
Sphinx inventories, and write one page per symbol for a static site
generator.`,
	Example: `  snakedown -p src/mypkg -s site --ssg zola
  snakedown --no-skip-private -e "mypkg/tests"
  snakedown --skip-write -vv`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	Run:               runRender,
}

func Execute() {
	inventory.UserAgent = "snakedown/" + Version
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("command failed: %v", err)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file (default: ./snakedown.toml, then the user config dir)")
	pf.CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	addConfigFlags(pf)
	for _, name := range toggles {
		rootCmd.MarkFlagsMutuallyExclusive(name, "no-"+name)
	}

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(clearCacheCmd)
	rootCmd.AddCommand(inventoryCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(watchCmd)
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	switch {
	case quiet:
		level = slog.LevelError
	case verbosity == 1:
		level = slog.LevelInfo
	case verbosity > 1:
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// toggles are boolean settings with a --no- counterpart.
var toggles = []string{"skip-undoc", "skip-private", "skip-write"}

func addConfigFlags(fs *pflag.FlagSet) {
	fs.StringP("pkg-path", "p", "", "path to the Python package to document")
	fs.StringP("site-root", "s", "", "root directory of the site")
	fs.StringP("api-content-path", "a", "", "directory for API pages, relative to the content root")
	fs.StringP("notebooks-path", "n", "", "directory of Jupyter notebooks to render")
	fs.String("notebooks-content-path", "", "directory for rendered notebooks, relative to the content root")
	fs.StringSliceP("exclude", "e", nil, "glob of paths to skip, starting with the package name (repeatable)")
	fs.String("ssg", "", "output format: markdown, zola, hugo or html")

	fs.Bool("skip-undoc", false, "skip objects without a docstring")
	fs.Bool("no-skip-undoc", false, "document objects without a docstring")
	fs.Bool("skip-private", false, "skip names starting with an underscore")
	fs.Bool("no-skip-private", false, "document private names")
	fs.Bool("skip-write", false, "validate references without writing pages")
	fs.Bool("no-skip-write", false, "write pages")
}

// flagKeys maps value flags to config keys.
var flagKeys = map[string]string{
	"pkg-path":               "pkg_path",
	"site-root":              "site_root",
	"api-content-path":       "api_content_path",
	"notebooks-path":         "notebooks_path",
	"notebooks-content-path": "notebooks_content_path",
	"exclude":                "exclude",
	"ssg":                    "ssg",
}

// overrides collects the flags set on the command line.
func overrides(flags *pflag.FlagSet) map[string]any {
	out := make(map[string]any)
	for flag, key := range flagKeys {
		if !flags.Changed(flag) {
			continue
		}
		if flag == "exclude" {
			out[key], _ = flags.GetStringSlice(flag)
		} else {
			out[key], _ = flags.GetString(flag)
		}
	}
	for _, name := range toggles {
		key := strings.ReplaceAll(name, "-", "_")
		if flags.Changed(name) {
			out[key] = true
		}
		if flags.Changed("no-" + name) {
			out[key] = false
		}
	}
	return out
}

func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: configFile,
		Overrides:  overrides(cmd.Flags()),
	})
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func runRender(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	res, err := pipeline.Run(cmd.Context(), cfg, pipeline.Options{Version: Version})
	if err != nil {
		exitOnBuildError(err)
	}
	printSummary(res, cfg.SkipWrite)
}

// exitOnBuildError prints every unresolved reference on its own line
// before exiting.
func exitOnBuildError(err error) {
	var verr *index.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintln(os.Stderr, verr.Error())
		os.Exit(1)
	}
	log.Fatalf("build failed: %v", err)
}

func printSummary(res *pipeline.Result, skipWrite bool) {
	if skipWrite {
		fmt.Printf("validated %s symbols against %s external names in %s\n",
			humanize.Comma(int64(res.Internal)), humanize.Comma(int64(res.External)),
			res.Duration.Round(time.Millisecond))
		return
	}
	fmt.Printf("wrote %d files (%s) to %s in %s\n",
		res.Files, humanize.Bytes(uint64(res.Bytes)), res.OutputDir, res.Duration.Round(time.Millisecond))
	if res.Unchanged > 0 {
		fmt.Printf("  %d pages unchanged\n", res.Unchanged)
	}
	fmt.Printf("  %s symbols, %s external names\n",
		humanize.Comma(int64(res.Internal)), humanize.Comma(int64(res.External)))
	if res.Notebooks > 0 {
		fmt.Printf("  %d notebooks\n", res.Notebooks)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
