package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dexharvest/internal/config"
	"dexharvest/internal/engine"
	"dexharvest/internal/flags"
	gh "dexharvest/internal/github"
	"dexharvest/internal/logx"
)

// harvestOptions holds raw flag values. Only flags the user actually set are
// applied on top of defaults, the config file and DEXHARVEST_* variables.
type harvestOptions struct {
	repo      string
	ref       string
	apiURL    string
	rawURL    string
	buckets   []string
	extension string

	out           string
	manifest      bool
	consoleFormat string
	noConsole     bool

	concurrency int
	sharedPool  bool
	itemTimeout time.Duration
	timeout     time.Duration
	metricsFile string
	dryRun      bool
}

var harvestOpts harvestOptions

const harvestHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
	dexharvest works without a GitHub token; a token only raises the API rate
	limit for the tree listing. It is never sent to the raw content host.

	Token sources (in order):
	1) GITHUB_TOKEN environment variable
	2) GH_TOKEN environment variable
	3) GitHub CLI (gh) authentication via gh auth token (if gh is installed and logged in)

	Settings may also come from DEXHARVEST_REPO, DEXHARVEST_REF, DEXHARVEST_OUT
	and DEXHARVEST_CONCURRENCY (flags take precedence).

  Examples:
    export GITHUB_TOKEN="<your_token>"
    dexharvest harvest --repo owner/pokedata
`

var harvestCmd = &cobra.Command{
	Use:   "harvest [OWNER/REPO]",
	Short: "Fetch and aggregate a repository's JSON data files",
	Long: `Fetch and aggregate a repository's JSON data files.

The repository tree is listed once (recursively). Every file ending in the
configured extension is assigned to the first bucket whose prefix it starts
with; everything else is ignored. Each bucket is downloaded by a fixed pool of
workers and written as a pretty-printed JSON array to all_<bucket>.json.

A file that fails to download or parse is logged as a warning and left out.
It is not retried and does not fail the run.

Output:
	--out accepts a directory (created if missing) or a bucket URL:
	file:///path, mem://, s3://bucket, gs://bucket.
	--manifest additionally writes manifest.json listing every failed file.
	Console output is controlled by --console-format (text|ndjson).

Exit codes:
	0 = run completed (even if some files failed)
	3 = fatal error (invalid config, catalog listing or output write failed)

Examples:
  dexharvest harvest owner/pokedata
  dexharvest harvest --repo https://github.com/owner/pokedata --ref v2 --out ./data
  dexharvest harvest --repo owner/pokedata --bucket items=items/ --bucket berries=berries/
  dexharvest harvest --repo owner/pokedata --out s3://my-bucket?region=us-east-1 --manifest
  dexharvest harvest --repo owner/pokedata --dry-run --verbose
`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && cmd.Flags().NFlag() == 0 && os.Getenv("DEXHARVEST_REPO") == "" {
			_ = cmd.Help()
			return
		}

		cfg, err := buildHarvestConfig(cmd, &harvestOpts, args)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			osExit(3)
			return
		}

		code := runHarvest(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if code != 0 {
			osExit(code)
		}
	},
}

// buildHarvestConfig layers defaults, the --config file, DEXHARVEST_* variables
// and explicitly set flags, in that order, then validates the result.
func buildHarvestConfig(cmd *cobra.Command, o *harvestOptions, args []string) (*config.Config, error) {
	cfg := config.New()
	if configPath != "" {
		if err := config.LoadFromFile(configPath, cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if len(args) > 0 {
		if f.Changed(flags.FlagRepo) {
			return nil, fmt.Errorf("repository given both as argument and --%s", flags.FlagRepo)
		}
		cfg.Source.Repo = args[0]
	}
	if f.Changed(flags.FlagRepo) {
		cfg.Source.Repo = o.repo
	}
	if f.Changed(flags.FlagRef) {
		cfg.Source.Ref = o.ref
	}
	if f.Changed(flags.FlagAPIURL) {
		cfg.Source.APIBaseURL = o.apiURL
	}
	if f.Changed(flags.FlagRawURL) {
		cfg.Source.RawBaseURL = o.rawURL
	}
	if f.Changed(flags.FlagBucket) {
		cfg.BucketSpecs = o.buckets
	}
	if f.Changed(flags.FlagExtension) {
		cfg.Extension = o.extension
	}
	if f.Changed(flags.FlagOut) {
		cfg.Output.Location = o.out
	}
	if f.Changed(flags.FlagManifest) {
		cfg.Output.Manifest = o.manifest
	}
	if f.Changed(flags.FlagConsoleFormat) {
		cfg.Output.ConsoleFormat = o.consoleFormat
	}
	if f.Changed(flags.FlagNoConsole) {
		cfg.Output.NoConsole = o.noConsole
	}
	if f.Changed(flags.FlagConcurrency) {
		cfg.Runtime.Concurrency = o.concurrency
	}
	if f.Changed(flags.FlagSharedPool) {
		cfg.Runtime.SharedPool = o.sharedPool
	}
	if f.Changed(flags.FlagItemTimeout) {
		cfg.Runtime.ItemTimeout = o.itemTimeout
	}
	if f.Changed(flags.FlagTimeout) {
		cfg.Runtime.Timeout = o.timeout
	}
	if f.Changed(flags.FlagMetricsFile) {
		cfg.Runtime.MetricsFile = o.metricsFile
	}
	if f.Changed(flags.FlagDryRun) {
		cfg.Runtime.DryRun = o.dryRun
	}
	if verbose {
		cfg.Runtime.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runHarvest(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) int {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logx.New(stderr, cfg.Runtime.Verbose)

	// The token only raises the rate ceiling, so a broken credential source
	// downgrades to an unauthenticated run.
	token, source, err := gh.ResolveAuthTokenForHost(ctx, "", gh.HostFromAPIURL(cfg.Source.APIBaseURL))
	if err != nil {
		log.Warnf("resolving GitHub auth token: %v; continuing unauthenticated", err)
		token = ""
	}
	if token == "" {
		log.Verbosef("auth: none (unauthenticated rate limits apply)")
	} else {
		log.Verbosef("auth: %s", source)
	}

	client, err := gh.NewClient(ctx, token,
		gh.WithVerbose(cfg.Runtime.Verbose, stderr),
		gh.WithAPIBaseURL(cfg.Source.APIBaseURL),
	)
	if err != nil {
		log.Errorf("creating GitHub client: %v", err)
		return 3
	}

	eng := engine.NewEngine(client)
	eng.Stdout = stdout
	eng.Stderr = stderr
	return eng.Run(ctx, cfg)
}

func init() {
	rootCmd.AddCommand(harvestCmd)
	harvestCmd.SetHelpTemplate(harvestHelpTemplate)
	addHarvestFlags(harvestCmd, &harvestOpts)
}

// addHarvestFlags registers harvest flags on cmd, bound to o.
// MAINTAINER NOTE: every flag here must be applied in buildHarvestConfig,
// otherwise it is silently ignored.
func addHarvestFlags(cmd *cobra.Command, o *harvestOptions) {
	defaults := config.New()
	fs := cmd.Flags()

	// Source
	fs.StringVar(&o.repo, flags.FlagRepo, "", "Repository to harvest as OWNER/REPO or GitHub URL (or pass as argument)")
	fs.StringVar(&o.ref, flags.FlagRef, defaults.Source.Ref, "Branch, tag or commit to list")
	fs.StringVar(&o.apiURL, flags.FlagAPIURL, "", "GitHub API base URL (GitHub Enterprise)")
	fs.StringVar(&o.rawURL, flags.FlagRawURL, "", "Raw content base URL that file paths are joined onto (default: raw.githubusercontent.com/OWNER/REPO/REF/)")

	// Classification
	fs.StringSliceVar(&o.buckets, flags.FlagBucket, nil, "Bucket rule as name=prefix (repeatable; comma-separated accepted; replaces the default buckets)")
	fs.StringVar(&o.extension, flags.FlagExtension, defaults.Extension, "Only files with this extension are harvested")

	// Output
	fs.StringVar(&o.out, flags.FlagOut, defaults.Output.Location, "Output directory or bucket URL")
	fs.BoolVar(&o.manifest, flags.FlagManifest, false, "Also write manifest.json with per-bucket counts and failed files")
	fs.StringVar(&o.consoleFormat, flags.FlagConsoleFormat, defaults.Output.ConsoleFormat, "Console output format: text|ndjson")
	fs.BoolVar(&o.noConsole, flags.FlagNoConsole, false, "Suppress console output")

	// Runtime
	fs.IntVar(&o.concurrency, flags.FlagConcurrency, defaults.Runtime.Concurrency, "Concurrent downloads per bucket")
	fs.BoolVar(&o.sharedPool, flags.FlagSharedPool, false, "Bound concurrent downloads across all buckets instead of per bucket")
	fs.DurationVar(&o.itemTimeout, flags.FlagItemTimeout, 0, "Timeout per file download (0 = none)")
	fs.DurationVar(&o.timeout, flags.FlagTimeout, defaults.Runtime.Timeout, "Timeout for listing the repository tree")
	fs.StringVar(&o.metricsFile, flags.FlagMetricsFile, "", "Write Prometheus textfile metrics to this path")
	fs.BoolVar(&o.dryRun, flags.FlagDryRun, false, "List and classify files, print the plan and download nothing")
}
