package github

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// fakeGH puts a gh stub running script on an otherwise empty PATH.
func fakeGH(t *testing.T, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test uses a shell script gh stub")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "gh"), []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("WriteFile gh stub failed: %v", err)
	}
	t.Setenv("PATH", dir)
}

func noGH(t *testing.T) {
	t.Helper()
	t.Setenv("PATH", t.TempDir())
}

func TestResolveAuthToken_Precedence(t *testing.T) {
	tests := []struct {
		name       string
		provided   string
		githubTok  string
		ghTok      string
		ghScript   string
		wantToken  string
		wantSource AuthTokenSource
	}{
		{name: "explicit wins", provided: " explicit ", githubTok: "env-token", ghScript: "echo gh-token", wantToken: "explicit", wantSource: AuthTokenSourceExplicit},
		{name: "GITHUB_TOKEN before GH_TOKEN", githubTok: "env-token", ghTok: "gh-env-token", wantToken: "env-token", wantSource: AuthTokenSourceEnv},
		{name: "GH_TOKEN when GITHUB_TOKEN empty", ghTok: " gh-env-token ", wantToken: "gh-env-token", wantSource: AuthTokenSourceGHEnv},
		{name: "gh CLI last", ghScript: "echo gh-token", wantToken: "gh-token", wantSource: AuthTokenSourceGitHubCL},
		{name: "gh not logged in", ghScript: "echo 'not logged in' >&2; exit 1"},
		{name: "nothing anywhere"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GITHUB_TOKEN", tt.githubTok)
			t.Setenv("GH_TOKEN", tt.ghTok)
			if tt.ghScript != "" {
				fakeGH(t, tt.ghScript)
			} else {
				noGH(t)
			}

			tok, src, err := ResolveAuthToken(context.Background(), tt.provided)
			if err != nil {
				t.Fatalf("ResolveAuthToken error: %v", err)
			}
			if tok != tt.wantToken {
				t.Fatalf("want token %q, got %q", tt.wantToken, tok)
			}
			if src != tt.wantSource {
				t.Fatalf("want source %q, got %q", tt.wantSource, src)
			}
		})
	}
}

func TestResolveAuthTokenForHost_AsksGHForHost(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "")
	// gh auth token -h HOST
	fakeGH(t, `echo "tok-for-$4"`)

	tok, _, err := ResolveAuthTokenForHost(context.Background(), "", "ghe.example.com")
	if err != nil {
		t.Fatalf("ResolveAuthTokenForHost error: %v", err)
	}
	if tok != "tok-for-ghe.example.com" {
		t.Fatalf("unexpected token %q", tok)
	}

	tok, _, err = ResolveAuthTokenForHost(context.Background(), "", "")
	if err != nil {
		t.Fatalf("ResolveAuthTokenForHost error: %v", err)
	}
	if tok != "tok-for-github.com" {
		t.Fatalf("expected default host, got %q", tok)
	}
}

func TestResolveAuthToken_GHWhitespaceOutputIsError(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "")
	fakeGH(t, `printf 'line1\nline2\n'`)

	if _, _, err := ResolveAuthToken(context.Background(), ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestResolveAuthToken_CanceledContext(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "")
	fakeGH(t, "echo gh-token")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := ResolveAuthToken(ctx, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHostFromAPIURL(t *testing.T) {
	tests := map[string]string{
		"":                                "github.com",
		"https://api.github.com/":         "github.com",
		"https://ghe.example.com/api/v3/": "ghe.example.com",
		"http://127.0.0.1:8080":           "127.0.0.1",
		"::not a url":                     "github.com",
	}
	for in, want := range tests {
		if got := HostFromAPIURL(in); got != want {
			t.Errorf("HostFromAPIURL(%q) = %q, want %q", in, got, want)
		}
	}
}
