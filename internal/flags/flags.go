package flags

// Package flags defines canonical CLI flag names shared across the CLI and engine.
// Keeping these as constants avoids drift between Cobra flag wiring and code
// that reports flags back to the user (e.g. the dry-run plan).
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&opts.repo, flags.FlagRepo, "", "...")
//	arg := "--" + flags.FlagRepo
const (
	// Global
	FlagConfig  = "config"
	FlagVerbose = "verbose"

	// Source
	FlagRepo   = "repo"
	FlagRef    = "ref"
	FlagAPIURL = "api-url"
	FlagRawURL = "raw-url"

	// Classification
	FlagBucket    = "bucket"
	FlagExtension = "extension"

	// Output
	FlagOut           = "out"
	FlagManifest      = "manifest"
	FlagConsoleFormat = "console-format"
	FlagNoConsole     = "no-console"

	// Runtime
	FlagConcurrency = "concurrency"
	FlagSharedPool  = "shared-pool"
	FlagItemTimeout = "item-timeout"
	FlagTimeout     = "timeout"
	FlagMetricsFile = "metrics-file"
	FlagDryRun      = "dry-run"

	// Scrape
	FlagURL = "url"
)
