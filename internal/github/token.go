package github

import (
	"context"
	"errors"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"
)

type AuthTokenSource string

const (
	AuthTokenSourceExplicit AuthTokenSource = "explicit"
	AuthTokenSourceEnv      AuthTokenSource = "env:GITHUB_TOKEN"
	AuthTokenSourceGHEnv    AuthTokenSource = "env:GH_TOKEN"
	AuthTokenSourceGitHubCL AuthTokenSource = "gh"
)

// DefaultHost is the host gh is asked for a token when no API URL is configured.
const DefaultHost = "github.com"

const ghTimeout = 5 * time.Second

// tokenLookup returns "" when its source has nothing to offer.
type tokenLookup struct {
	source AuthTokenSource
	lookup func(ctx context.Context) (string, error)
}

// ResolveAuthToken resolves an optional token for github.com.
// See ResolveAuthTokenForHost.
func ResolveAuthToken(ctx context.Context, provided string) (string, AuthTokenSource, error) {
	return ResolveAuthTokenForHost(ctx, provided, DefaultHost)
}

// ResolveAuthTokenForHost walks the token sources in order: provided, GITHUB_TOKEN,
// GH_TOKEN, then `gh auth token -h host`. The first non-empty value wins.
//
// Finding no token is not an error: the tree listing works unauthenticated,
// only with a lower rate ceiling.
func ResolveAuthTokenForHost(ctx context.Context, provided, host string) (string, AuthTokenSource, error) {
	if host == "" {
		host = DefaultHost
	}
	chain := []tokenLookup{
		{AuthTokenSourceExplicit, func(context.Context) (string, error) { return provided, nil }},
		{AuthTokenSourceEnv, envToken("GITHUB_TOKEN")},
		{AuthTokenSourceGHEnv, envToken("GH_TOKEN")},
		{AuthTokenSourceGitHubCL, func(ctx context.Context) (string, error) { return ghCLIToken(ctx, host) }},
	}
	for _, l := range chain {
		tok, err := l.lookup(ctx)
		if err != nil {
			return "", "", err
		}
		if tok = strings.TrimSpace(tok); tok != "" {
			return tok, l.source, nil
		}
	}
	return "", "", nil
}

// HostFromAPIURL maps an API base URL to the host gh knows credentials for.
// An empty or api.github.com URL maps to DefaultHost.
func HostFromAPIURL(apiURL string) string {
	if strings.TrimSpace(apiURL) == "" {
		return DefaultHost
	}
	u, err := url.Parse(apiURL)
	if err != nil || u.Hostname() == "" {
		return DefaultHost
	}
	host := u.Hostname()
	if host == "api.github.com" {
		return DefaultHost
	}
	return host
}

func envToken(key string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		return os.Getenv(key), nil
	}
}

func ghCLIToken(ctx context.Context, host string) (string, error) {
	if _, err := exec.LookPath("gh"); err != nil {
		return "", nil
	}

	// A broken credential helper must not hang the run.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ghTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "gh", "auth", "token", "-h", host)
	cmd.Env = append(withoutEnv(os.Environ(), "GH_PAGER"), "GH_PAGER=cat")
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Not logged in for host. gh's output is never surfaced.
		return "", nil
	}

	tok := strings.TrimSpace(string(out))
	if strings.ContainsAny(tok, " \t\n\r") {
		return "", errors.New("invalid token returned by gh: contains whitespace")
	}
	return tok, nil
}

func withoutEnv(env []string, key string) []string {
	prefix := key + "="
	out := make([]string, 0, len(env))
	for _, e := range env {
		if !strings.HasPrefix(e, prefix) {
			out = append(out, e)
		}
	}
	return out
}
