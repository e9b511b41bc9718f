package engine

import (
	"fmt"
	"io"

	"dexharvest/internal/catalog"
	"dexharvest/internal/config"
	gh "dexharvest/internal/github"
	"dexharvest/internal/output"
)

// Plan is the classified catalog: what a harvest would fetch, per bucket.
type Plan struct {
	Repository string
	Ref        string
	Base       string
	Listing    *catalog.Listing
	Rules      []catalog.Rule
	Buckets    []catalog.Bucket
}

// LocatorBase returns the prefix that catalog paths are joined onto.
func LocatorBase(cfg *config.Config) string {
	if cfg.Source.RawBaseURL != "" {
		return cfg.Source.RawBaseURL
	}
	return gh.RawBaseURL(cfg.Source.Owner, cfg.Source.Name, cfg.Source.Ref)
}

func NewPlan(cfg *config.Config, listing *catalog.Listing) (*Plan, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if listing == nil {
		return nil, fmt.Errorf("catalog listing is nil")
	}
	base := LocatorBase(cfg)
	return &Plan{
		Repository: cfg.Source.Repo,
		Ref:        cfg.Source.Ref,
		Base:       base,
		Listing:    listing,
		Rules:      cfg.Buckets,
		Buckets:    catalog.Classify(listing.Entries, cfg.Buckets, cfg.Extension, base),
	}, nil
}

// Total returns the number of locators the plan would fetch.
func (p *Plan) Total() int {
	return catalog.Total(p.Buckets)
}

// Print writes the plan in bucket order. Locators are listed only when verbose.
func (p *Plan) Print(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "Plan for %s@%s (%d entries, %d files):\n", p.Repository, p.Ref, len(p.Listing.Entries), p.Listing.Files())
	for i, b := range p.Buckets {
		fmt.Fprintf(w, "  %s (%s): %d files -> %s\n", b.Name, p.Rules[i].Prefix, len(b.Locators), output.FileName(b.Name))
		if verbose {
			for _, loc := range b.Locators {
				fmt.Fprintf(w, "    %s\n", loc)
			}
		}
	}
	fmt.Fprintf(w, "Total: %d files in %d buckets\n", p.Total(), len(p.Buckets))
}
