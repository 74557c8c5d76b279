package models

import "time"

// RefreshStatus is the process-wide refresh job record served by /api/status.
type RefreshStatus struct {
	IsRunning       bool       `json:"isRunning"`
	LastCompletedAt *time.Time `json:"lastCompletedAt"`
	ProgressPercent int        `json:"progressPercent"`
	TotalCount      int        `json:"totalCount"`
	Message         string     `json:"message"`
	RunID           string     `json:"runId,omitempty"`
}

// RefreshEvent is published after a refresh persisted a new document.
type RefreshEvent struct {
	RunID       string    `json:"runId"`
	CompletedAt time.Time `json:"completedAt"`
	Resolved    int       `json:"resolved"`
	Failed      int       `json:"failed"`
	Path        string    `json:"path"`
}
