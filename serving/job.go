// Package serving runs page timing tests as jobs: an HTTP API accepts tests
// and reports their results, an rmq queue carries them to a worker, and
// results are kept in redis.
package serving

type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is a test request as it travels through the queue.
type Job struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Iterations  int    `json:"iterations"`
	Format      string `json:"format"`
	IncludeRuns bool   `json:"includeRuns"`
}

type Result struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
	// ContentType and Report are only set once the job is done.
	ContentType string `json:"contentType,omitempty"`
	Report      []byte `json:"report,omitempty"`
}
