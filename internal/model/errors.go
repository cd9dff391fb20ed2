package model

import "errors"

// Error taxonomy shared by every stage of a scan. Callers wrap these with
// fmt.Errorf("...: %w") and test with errors.Is.
var (
	// ErrInsufficientData means a series is shorter than an indicator's minimum window.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrProviderUnavailable means a fetch failed after retries.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrNotEvaluable means a sub-analysis needs more history than is available.
	ErrNotEvaluable = errors.New("not evaluable")
	// ErrConfiguration means thresholds or profiles are misconfigured. Fatal.
	ErrConfiguration = errors.New("configuration error")
)
