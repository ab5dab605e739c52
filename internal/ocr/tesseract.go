package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractOptions configures the Tesseract-backed engine. The options are
// passed straight through; their meaning belongs to Tesseract.
type TesseractOptions struct {
	// Language is the recognition language, e.g. "eng".
	Language string
	// PageSegMode selects the layout assumption (3 = full auto, 6 = assume a
	// single uniform block of text). Out-of-range values fall back to auto.
	PageSegMode int
	// TessdataPrefix overrides the trained-data directory when set.
	TessdataPrefix string
}

// TesseractEngine implements Engine using the gosseract client. A fresh
// client is created per invocation and closed after use; there are no
// retries, a transient engine failure is reported to the caller.
type TesseractEngine struct {
	opts          TesseractOptions
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine constructs a Tesseract-backed OCR engine.
func NewTesseractEngine(opts TesseractOptions) *TesseractEngine {
	if strings.TrimSpace(opts.Language) == "" {
		opts.Language = "eng"
	}
	opts.PageSegMode = normalizePageSegMode(opts.PageSegMode)
	return &TesseractEngine{opts: opts, clientFactory: gosseract.NewClient}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Options returns the effective engine configuration.
func (e *TesseractEngine) Options() TesseractOptions { return e.opts }

// Recognize performs a single OCR pass over the encoded image.
func (e *TesseractEngine) Recognize(ctx context.Context, img []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	c := e.clientFactory()
	defer c.Close()

	if e.opts.TessdataPrefix != "" {
		c.TessdataPrefix = e.opts.TessdataPrefix
	}
	if err := c.SetLanguage(e.opts.Language); err != nil {
		return Result{}, fmt.Errorf("%w: set language %q: %v", ErrUnavailable, e.opts.Language, err)
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(e.opts.PageSegMode)); err != nil {
		return Result{}, fmt.Errorf("%w: set page seg mode %d: %v", ErrUnavailable, e.opts.PageSegMode, err)
	}
	if err := c.SetImageFromBytes(img); err != nil {
		return Result{}, fmt.Errorf("%w: set image: %v", ErrUnavailable, err)
	}

	text, err := c.Text()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return Result{
		Text:       strings.TrimSpace(text),
		Confidence: meanWordConfidence(c),
	}, nil
}

// meanWordConfidence averages per-word confidences reported by the engine,
// normalized to [0,1]. Returns 0 when the engine reports nothing.
func meanWordConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}

func normalizePageSegMode(mode int) int {
	if mode < int(gosseract.PSM_OSD_ONLY) || mode > int(gosseract.PSM_COUNT)-1 {
		return int(gosseract.PSM_AUTO)
	}
	return mode
}
