package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dexharvest/internal/catalog"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that affect harvest
	// behavior, keep these in sync:
	// - CLI flags in internal/cli/harvest.go (addHarvestFlags, buildHarvestConfig)
	// - DEXHARVEST_* handling in LoadFromEnv
	Source    Source         `yaml:"source"`
	Buckets   []catalog.Rule `yaml:"buckets"`
	Extension string         `yaml:"extension"`
	Output    Output         `yaml:"output"`
	Runtime   Runtime        `yaml:"runtime"`

	// BucketSpecs holds raw --bucket values (name=prefix, comma-separated accepted).
	// When non-empty, Validate replaces Buckets with the parsed rules.
	BucketSpecs []string `yaml:"-"`
}

type Source struct {
	// Repo is the repository to harvest as OWNER/REPO or a GitHub URL (see --repo).
	Repo string `yaml:"repo"`

	// Owner and Name are derived from Repo by Validate.
	Owner string `yaml:"-"`
	Name  string `yaml:"-"`

	// Ref is the branch, tag or commit whose tree is listed (see --ref).
	Ref string `yaml:"ref"`

	// APIBaseURL overrides the GitHub API endpoint (GitHub Enterprise; see --api-url).
	APIBaseURL string `yaml:"api_url"`

	// RawBaseURL overrides the raw-content base that entry paths are joined onto
	// (mirrors; see --raw-url). Empty means raw.githubusercontent.com/OWNER/REPO/REF/.
	RawBaseURL string `yaml:"raw_url"`
}

type Output struct {
	// Location is a directory path or a blob bucket URL (see --out).
	Location string `yaml:"location"`

	// Manifest writes manifest.json with per-bucket completeness (see --manifest).
	Manifest bool `yaml:"manifest"`

	// ConsoleFormat controls the console sink format (see --console-format).
	// Allowed values: text, ndjson.
	ConsoleFormat string `yaml:"console_format"`

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool `yaml:"no_console"`
}

type Runtime struct {
	// Concurrency is the worker count per bucket batch (see --concurrency).
	// Must be >= 1.
	Concurrency int `yaml:"concurrency"`

	// SharedPool bounds in-flight retrievals across all buckets by Concurrency
	// instead of per bucket (see --shared-pool).
	SharedPool bool `yaml:"shared_pool"`

	// ItemTimeout bounds a single retrieval; 0 means no per-item deadline (see --item-timeout).
	ItemTimeout time.Duration `yaml:"item_timeout"`

	// Timeout bounds catalog listing (see --timeout). Must be > 0.
	Timeout time.Duration `yaml:"timeout"`

	// Verbose enables request logging and full error chains (see --verbose).
	Verbose bool `yaml:"verbose"`

	// MetricsFile writes Prometheus textfile metrics to this path (see --metrics-file).
	MetricsFile string `yaml:"metrics_file"`

	// DryRun lists and classifies the catalog, prints the plan and fetches nothing (see --dry-run).
	DryRun bool `yaml:"dry_run"`
}

// DefaultBuckets are the bucket rules used when none are configured.
func DefaultBuckets() []catalog.Rule {
	return []catalog.Rule{
		{Bucket: "pokedex", Prefix: "pokedex/"},
		{Bucket: "moves", Prefix: "moves/"},
		{Bucket: "abilities", Prefix: "abilities/"},
	}
}

func New() *Config {
	return &Config{
		Source: Source{
			Ref: "main",
		},
		Buckets:   DefaultBuckets(),
		Extension: ".json",
		Output: Output{
			Location:      "data",
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency: 25,
			Timeout:     5 * time.Minute,
		},
	}
}

// LoadFromFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values; unknown keys are rejected.
func LoadFromFile(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv applies DEXHARVEST_* environment variables onto c.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("DEXHARVEST_REPO"); v != "" {
		c.Source.Repo = v
	}
	if v := os.Getenv("DEXHARVEST_REF"); v != "" {
		c.Source.Ref = v
	}
	if v := os.Getenv("DEXHARVEST_OUT"); v != "" {
		c.Output.Location = v
	}
	if v := os.Getenv("DEXHARVEST_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse DEXHARVEST_CONCURRENCY: %w", err)
		}
		c.Runtime.Concurrency = n
	}
	return nil
}

func (c *Config) Validate() error {
	// Source
	owner, name, err := ParseRepo(c.Source.Repo)
	if err != nil {
		return fmt.Errorf("invalid --repo value: %w", err)
	}
	c.Source.Owner, c.Source.Name = owner, name
	c.Source.Repo = owner + "/" + name

	c.Source.Ref = strings.Trim(strings.TrimSpace(c.Source.Ref), "/")
	if c.Source.Ref == "" {
		return errors.New("--ref must not be empty")
	}
	if c.Source.APIBaseURL != "" {
		if err := validateHTTPURL(c.Source.APIBaseURL); err != nil {
			return fmt.Errorf("invalid --api-url value: %w", err)
		}
	}
	if c.Source.RawBaseURL != "" {
		if err := validateHTTPURL(c.Source.RawBaseURL); err != nil {
			return fmt.Errorf("invalid --raw-url value: %w", err)
		}
	}

	// Buckets
	if len(c.BucketSpecs) > 0 {
		rules, err := ParseBucketRules(c.BucketSpecs)
		if err != nil {
			return err
		}
		c.Buckets = rules
	}
	if len(c.Buckets) == 0 {
		return errors.New("at least one bucket must be configured")
	}
	seen := make(map[string]bool, len(c.Buckets))
	for i, r := range c.Buckets {
		r.Bucket = strings.TrimSpace(r.Bucket)
		r.Prefix = strings.TrimSpace(r.Prefix)
		if r.Bucket == "" {
			return fmt.Errorf("bucket %d: name must not be empty", i+1)
		}
		if strings.ContainsAny(r.Bucket, `/\`) {
			return fmt.Errorf("bucket %q: name must not contain path separators", r.Bucket)
		}
		if r.Prefix == "" {
			return fmt.Errorf("bucket %q: prefix must not be empty", r.Bucket)
		}
		if seen[r.Bucket] {
			return fmt.Errorf("duplicate bucket name %q", r.Bucket)
		}
		seen[r.Bucket] = true
		c.Buckets[i] = r
	}

	c.Extension = strings.TrimSpace(c.Extension)
	if !strings.HasPrefix(c.Extension, ".") || len(c.Extension) < 2 {
		return fmt.Errorf("unsupported extension %q (must start with '.')", c.Extension)
	}

	// Output validation
	c.Output.Location = strings.TrimSpace(c.Output.Location)
	if c.Output.Location == "" {
		return errors.New("--out must not be empty")
	}
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, ndjson")
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, ndjson)", c.Output.ConsoleFormat)
	}

	// Runtime validation
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	if c.Runtime.ItemTimeout < 0 {
		return errors.New("--item-timeout must be >= 0")
	}

	return nil
}

// ParseRepo accepts OWNER/REPO or a GitHub URL such as
// https://github.com/OWNER/REPO(.git) and returns its owner and name.
func ParseRepo(raw string) (owner, name string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", errors.New("repository is required (OWNER/REPO)")
	}
	if strings.HasPrefix(raw, "github.com/") || strings.HasPrefix(raw, "www.github.com/") {
		raw = "https://" + raw
	}
	path := raw
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, perr := url.Parse(raw)
		if perr != nil {
			return "", "", fmt.Errorf("%q", raw)
		}
		host := strings.ToLower(u.Hostname())
		if host != "github.com" && host != "www.github.com" {
			return "", "", fmt.Errorf("%q: not a github.com URL", raw)
		}
		path = u.Path
	}

	parts := strings.FieldsFunc(strings.Trim(path, "/"), func(r rune) bool { return r == '/' })
	if len(parts) < 2 {
		return "", "", fmt.Errorf("%q: expected OWNER/REPO", raw)
	}
	// Bare OWNER/REPO must have exactly two segments; URLs may carry /tree/... suffixes.
	if path == raw && len(parts) != 2 {
		return "", "", fmt.Errorf("%q: expected OWNER/REPO", raw)
	}
	owner = parts[0]
	name = strings.TrimSuffix(parts[1], ".git")
	if owner == "" || name == "" {
		return "", "", fmt.Errorf("%q: expected OWNER/REPO", raw)
	}
	return owner, name, nil
}

// ParseBucketRules parses values of the form "name=prefix".
//
// Notes:
// - Entries may be provided via repeated flags and/or comma-delimited lists.
// - Order is preserved; it decides which rule wins when prefixes overlap.
func ParseBucketRules(values []string) ([]catalog.Rule, error) {
	var out []catalog.Rule
	for _, raw := range splitCommaList(values) {
		name, prefix, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --bucket entry %q: expected name=prefix", raw)
		}
		name = strings.TrimSpace(name)
		prefix = strings.TrimSpace(prefix)
		if name == "" || prefix == "" {
			return nil, fmt.Errorf("invalid --bucket entry %q: expected non-empty name and prefix", raw)
		}
		out = append(out, catalog.Rule{Bucket: name, Prefix: prefix})
	}
	return out, nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%q", raw)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q: expected an http(s) URL", raw)
	}
	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
