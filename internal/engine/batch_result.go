package engine

import "dexharvest/internal/fetcher"

// BatchResult is the outcome of fetching one bucket's locators.
//
// Documents are in completion order. Failed is the additive completeness
// report; callers that only want the historical behavior ignore it.
type BatchResult struct {
	Bucket    string
	Attempted int
	Documents []fetcher.Document
	Failed    []FailedItem
}

// FailedItem records one locator whose single retrieval attempt failed.
type FailedItem struct {
	Locator string
	Err     error
}

func (r BatchResult) Succeeded() int {
	return len(r.Documents)
}

// FailedLocators returns the failing locators in the order they failed.
func (r BatchResult) FailedLocators() []string {
	if len(r.Failed) == 0 {
		return nil
	}
	out := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		out = append(out, f.Locator)
	}
	return out
}
