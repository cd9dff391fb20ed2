package model

import "time"

// RunSummary describes one completed scan run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Profile    string    `json:"profile"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Symbols    int       `json:"symbols"`
	Scanned    int       `json:"scanned"`
	Qualifying int       `json:"qualifying"`
	Errors     int       `json:"errors"`

	// ErrorSample holds at most ten per-symbol error messages.
	ErrorSample []string `json:"error_sample,omitempty"`

	// Stopped is set when the run was cancelled before every symbol was scanned.
	Stopped bool `json:"stopped"`
}

// Duration is the wall time of the run.
func (s RunSummary) Duration() time.Duration { return s.FinishedAt.Sub(s.StartedAt) }
