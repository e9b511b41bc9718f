package output

// Event is a lifecycle record of a harvest run.
//
// Types:
// - run.started
// - catalog.listed
// - item.failed
// - batch.finished
// - output.written
// - run.finished
type Event struct {
	Type    string `json:"type"`
	RunID   string `json:"run_id,omitempty"`
	Bucket  string `json:"bucket,omitempty"`
	Locator string `json:"locator,omitempty"`
	Error   string `json:"error,omitempty"`
	File    string `json:"file,omitempty"`

	Repository string `json:"repository,omitempty"`
	Ref        string `json:"ref,omitempty"`
	Entries    int    `json:"entries,omitempty"`
	Files      int    `json:"files,omitempty"`
	Buckets    int    `json:"buckets,omitempty"`

	Attempted int `json:"attempted,omitempty"`
	Succeeded int `json:"succeeded,omitempty"`
	Failed    int `json:"failed,omitempty"`
	Documents int `json:"documents,omitempty"`

	ExitCode int `json:"exit_code,omitempty"`
}

const (
	EventRunStarted    = "run.started"
	EventCatalogListed = "catalog.listed"
	EventItemFailed    = "item.failed"
	EventBatchFinished = "batch.finished"
	EventOutputWritten = "output.written"
	EventRunFinished   = "run.finished"
)
