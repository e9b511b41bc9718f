package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dexharvest/internal/catalog"
	"dexharvest/internal/config"
	"dexharvest/internal/flags"
	"dexharvest/internal/output"
)

var (
	bucketsListQuiet   bool
	bucketsListBuckets []string
)

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "Inspect bucket rules",
	Long: `Inspect the bucket rules used to classify repository files.

A file joins the first bucket (in the order listed) whose prefix its path
starts with. Rules come from --bucket flags, the --config file, or the built-in
defaults (pokedex, moves, abilities).

Examples:
  dexharvest buckets list
  dexharvest buckets list --bucket items=items/,berries=berries/
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var bucketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the effective bucket rules",
	Long: `List the effective bucket rules in match order.

Output:
  A vertical list of buckets:
    ----------------------------------------
    BUCKET: {NAME}
    ----------------------------------------
    Prefix: {PREFIX}
    Output: all_{NAME}.json
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := effectiveBucketRules(bucketsListBuckets)
		if err != nil {
			return err
		}
		for _, r := range rules {
			if bucketsListQuiet {
				fmt.Fprintln(cmd.OutOrStdout(), r.Bucket)
			} else {
				printBucket(cmd.OutOrStdout(), r)
			}
		}
		return nil
	},
}

func effectiveBucketRules(specs []string) ([]catalog.Rule, error) {
	cfg := config.New()
	if configPath != "" {
		if err := config.LoadFromFile(configPath, cfg); err != nil {
			return nil, err
		}
	}
	if len(specs) > 0 {
		return config.ParseBucketRules(specs)
	}
	return cfg.Buckets, nil
}

func printBucket(w io.Writer, r catalog.Rule) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w, "----------------------------------------")
	bold.Fprintf(w, "BUCKET: %s\n", r.Bucket)
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintf(w, "Prefix: %s\n", r.Prefix)
	fmt.Fprintf(w, "Output: %s\n", output.FileName(r.Bucket))
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(bucketsCmd)
	bucketsCmd.AddCommand(bucketsListCmd)
	bucketsListCmd.Flags().BoolVarP(&bucketsListQuiet, "quiet", "q", false, "Only print bucket names")
	bucketsListCmd.Flags().StringSliceVar(&bucketsListBuckets, flags.FlagBucket, nil, "Bucket rule as name=prefix (repeatable; comma-separated accepted)")
}
