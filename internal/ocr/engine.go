package ocr

import (
	"context"
	"errors"
)

// ErrUnavailable signals that the recognition engine itself failed or is
// misconfigured, as opposed to a bad input image or a storage error.
var ErrUnavailable = errors.New("recognition engine unavailable")

// Result is the outcome of one recognition run. Text may be empty when the
// engine finds nothing; that is not an error. Confidence is the mean word
// confidence in [0,1], or 0 when the engine reports none.
type Result struct {
	Text       string
	Confidence float64
}

// Engine converts an encoded image into recognized text. Implementations are
// constructed once at startup and must be safe for concurrent use; tests
// substitute stubs.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img []byte) (Result, error)
}
