package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"dexharvest/internal/catalog"
)

// ErrNoTree is returned when the listing payload carries no tree field.
var ErrNoTree = errors.New("catalog: response has no tree listing")

// ListAll returns the recursive tree listing of owner/repo at ref.
//
// Any transport or HTTP failure, and a payload without a tree, is an error;
// without a catalog there is nothing to fetch.
func (c *Client) ListAll(ctx context.Context, owner, repo, ref string) (*catalog.Listing, error) {
	if ctx == nil {
		return nil, fmt.Errorf("catalog: ctx is nil")
	}
	if c == nil || c.Client == nil {
		return nil, fmt.Errorf("catalog: client is nil")
	}
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("catalog: owner/repo is required")
	}
	if ref == "" {
		return nil, fmt.Errorf("catalog: ref is required")
	}

	tree, _, err := c.Client.Git.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return nil, fmt.Errorf("catalog: list %s/%s@%s: %w", owner, repo, ref, err)
	}
	if tree == nil || tree.Entries == nil {
		return nil, fmt.Errorf("catalog: list %s/%s@%s: %w", owner, repo, ref, ErrNoTree)
	}

	listing := &catalog.Listing{
		Ref:       ref,
		SHA:       tree.GetSHA(),
		Entries:   make([]catalog.Entry, 0, len(tree.Entries)),
		Truncated: tree.GetTruncated(),
	}
	for _, e := range tree.Entries {
		if e == nil || e.GetPath() == "" {
			continue
		}
		listing.Entries = append(listing.Entries, catalog.Entry{
			Path: e.GetPath(),
			Kind: catalog.KindFromGitType(e.GetType()),
		})
	}
	return listing, nil
}

// RawBaseURL returns the raw-content base for owner/repo at ref, ending in a slash.
func RawBaseURL(owner, repo, ref string) string {
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/",
		url.PathEscape(owner), url.PathEscape(repo), strings.Trim(ref, "/"))
}
