package entity

import "encoding/json"

// JobHandle is the opaque task identifier returned by the remote job API.
type JobHandle string

// StatusKind is the status string reported by GET /results/{taskId}.
type StatusKind string

const (
	StatusPending StatusKind = "pending"
	StatusSuccess StatusKind = "success"
	StatusFailed  StatusKind = "failed"
)

// IsTerminal reports whether polling stops at this status.
// Unknown values are deliberately non-terminal.
func (k StatusKind) IsTerminal() bool {
	return k == StatusSuccess || k == StatusFailed
}

// JobStatus is one decoded results response.
type JobStatus struct {
	Status StatusKind
	Data   json.RawMessage
	Error  string
	Raw    json.RawMessage
}

// SubmitResult is what POST /scrape produced: either a handle to poll
// or, when the upstream answered without a task_id, the final result itself.
type SubmitResult struct {
	Handle JobHandle
	Direct json.RawMessage
}

func (r SubmitResult) NeedsPolling() bool {
	return r.Handle != ""
}
