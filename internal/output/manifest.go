package output

import "time"

// ManifestName is the file name of the run manifest.
const ManifestName = "manifest.json"

// Manifest is an optional completeness report written next to the aggregates.
// Aggregate files alone do not say which items were dropped.
type Manifest struct {
	RunID      string           `json:"run_id"`
	Source     ManifestSource   `json:"source"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Buckets    []ManifestBucket `json:"buckets"`
}

type ManifestSource struct {
	Repository string `json:"repository"`
	Ref        string `json:"ref"`
	SHA        string `json:"sha,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`
}

type ManifestBucket struct {
	Name      string   `json:"name"`
	Prefix    string   `json:"prefix"`
	File      string   `json:"file"`
	Attempted int      `json:"attempted"`
	Succeeded int      `json:"succeeded"`
	Failed    []string `json:"failed"`
}
