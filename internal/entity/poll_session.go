package entity

import (
	"encoding/json"
	"time"
)

// PollState is the state of a poll session as seen by its caller.
type PollState string

const (
	PollPending           PollState = "pending"
	PollSuccess           PollState = "success"
	PollFailed            PollState = "failed"
	PollTimedOut          PollState = "timed_out"
	PollTransportError    PollState = "transport_error"
	PollMalformedResponse PollState = "malformed_response"
	PollRemoteError       PollState = "remote_error"
)

func (s PollState) IsTerminal() bool {
	return s != PollPending
}

// PollEvent is a single observable step of a poll session: the start
// (Attempt 0), each pending tick, and the terminal transition.
type PollEvent struct {
	SessionID   string
	JobID       JobHandle
	State       PollState
	Attempt     int
	MaxAttempts int
	Status      StatusKind // raw upstream status on pending ticks
	Elapsed     time.Duration
	Data        json.RawMessage
	Err         error
}

// PollResult is the payload of a session that ended in PollSuccess.
type PollResult struct {
	SessionID string
	JobID     JobHandle
	Attempts  int
	Data      json.RawMessage
}
