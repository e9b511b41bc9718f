package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"dexharvest/internal/flags"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var (
	verbose    bool
	configPath string

	// osExit is replaced in tests.
	osExit = os.Exit
)

var rootCmd = &cobra.Command{
	Use:   "dexharvest",
	Short: "Harvest JSON data files from a GitHub repository into per-bucket aggregates",
	Long: `dexharvest lists a GitHub repository's tree, sorts its JSON data files into
buckets by path prefix, downloads them concurrently and writes one JSON array
per bucket (all_<bucket>.json).

Examples:
	# Show available commands and global flags
	dexharvest --help

	# Harvest the default buckets (pokedex, moves, abilities)
	dexharvest harvest --repo owner/pokedata

	# List the bucket rules that would be used
	dexharvest buckets list

	# Print build info
	dexharvest version

Environment:
	A .env file in the working directory is loaded on startup; variables already
	set in the environment take precedence.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is the common case.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, flags.FlagVerbose, false, "Enable verbose logging (prints every HTTP request and full error details)")
	rootCmd.PersistentFlags().StringVar(&configPath, flags.FlagConfig, "", "Path to a YAML config file (flags override file values)")
}

// SetBuildInfo records values injected through -ldflags. Empty values keep
// the defaults.
func SetBuildInfo(version, commit, date string) {
	for _, kv := range []struct {
		dst *string
		v   string
	}{{&buildVersion, version}, {&buildCommit, commit}, {&buildDate, date}} {
		if kv.v != "" {
			*kv.dst = kv.v
		}
	}
	rootCmd.Version = buildVersion
	rootCmd.SetVersionTemplate("dexharvest {{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

// Execute runs the CLI and returns the process exit code. Commands that fail
// fatally exit 3 themselves; cobra usage errors return 1.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
