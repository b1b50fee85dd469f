package labeling

import (
	"errors"
	"fmt"
)

var (
	ErrMissingImage  = errors.New("no image file provided")
	ErrMissingPrompt = errors.New("text_prompt is required")
	ErrUpstream      = errors.New("upstream labeling request failed")
)

// UpstreamError describes a failed call to an inference endpoint. It matches
// ErrUpstream under errors.Is.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("endpoint %s returned status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("endpoint %s: %v", e.Endpoint, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.Err}
}
