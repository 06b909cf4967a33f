package core

import "time"

// Event is published after an action reaches a terminal state.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// Event types.
const (
	EventActionDone     = "action.done"
	EventActionRejected = "action.rejected"
)
