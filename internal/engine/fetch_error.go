package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"dexharvest/internal/fetcher"
)

// describeFetchError renders a per-item failure for a warning line. Without
// verbose it avoids repeating the full request URL, which the caller already
// prints as the locator.
func describeFetchError(err error, verbose bool) string {
	if err == nil {
		return "unknown error"
	}
	if verbose {
		return err.Error()
	}

	var se *fetcher.StatusError
	if errors.As(err, &se) {
		msg := fmt.Sprintf("%d %s", se.StatusCode, http.StatusText(se.StatusCode))
		switch se.StatusCode {
		case http.StatusTooManyRequests, http.StatusForbidden:
			msg += " (possibly rate limited; set GITHUB_TOKEN)"
		}
		return msg
	}

	var pe *fetcher.ParseError
	if errors.As(err, &pe) {
		return pe.Error()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}

	var ue *url.Error
	if errors.As(err, &ue) {
		return strings.TrimSpace(ue.Err.Error())
	}
	return err.Error()
}
