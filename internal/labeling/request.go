package labeling

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	DefaultBoxThreshold  = "0.35"
	DefaultTextThreshold = "0.25"

	// imageFilename is sent for every image part regardless of the client's
	// original file name.
	imageFilename = "image.jpg"

	genericContentType = "application/octet-stream"
)

// Request is one labeling call. Thresholds are kept as the strings the
// client sent and forwarded without range checks.
type Request struct {
	Image         []byte
	ContentType   string
	Prompt        string
	BoxThreshold  string
	TextThreshold string
}

// Validate reports the first client error in r.
func (r Request) Validate() error {
	if len(r.Image) == 0 {
		return ErrMissingImage
	}

	if strings.TrimSpace(r.Prompt) == "" {
		return ErrMissingPrompt
	}

	return nil
}

// withDefaults fills in absent thresholds and an unknown content type.
func (r Request) withDefaults() Request {
	if r.BoxThreshold == "" {
		r.BoxThreshold = DefaultBoxThreshold
	}

	if r.TextThreshold == "" {
		r.TextThreshold = DefaultTextThreshold
	}

	if r.ContentType == "" || r.ContentType == genericContentType {
		r.ContentType = mimetype.Detect(r.Image).String()
	}

	return r
}
