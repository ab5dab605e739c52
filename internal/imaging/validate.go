package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	_ "golang.org/x/image/webp" // register WebP decoder
)

var (
	// ErrMissingFile signals an upload with no usable file name.
	ErrMissingFile = errors.New("no image uploaded")
	// ErrUnsupportedType signals a file extension outside the allow-list.
	ErrUnsupportedType = errors.New("invalid file type")
	// ErrInvalidImage signals bytes that do not decode as an image.
	ErrInvalidImage = errors.New("invalid image file")
)

// Validator gates uploads before any heavier processing. It holds no state
// beyond the configured extension allow-list.
type Validator struct {
	allowed map[string]struct{}
	list    []string
}

// NewValidator builds a validator for the given extension allow-list.
// Extensions are matched case-insensitively and without the leading dot.
func NewValidator(extensions []string) *Validator {
	v := &Validator{allowed: make(map[string]struct{}, len(extensions))}
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e == "" {
			continue
		}
		if _, dup := v.allowed[e]; dup {
			continue
		}
		v.allowed[e] = struct{}{}
		v.list = append(v.list, e)
	}
	return v
}

// Validate checks the declared file name and decodes the uploaded bytes.
// The structural check via DecodeConfig runs before the full decode so that
// obviously broken payloads fail without materializing pixel data.
func (v *Validator) Validate(fileName string, data []byte) (image.Image, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, ErrMissingFile
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if _, ok := v.allowed[ext]; !ok {
		return nil, fmt.Errorf("%w. Allowed: %s", ErrUnsupportedType, strings.Join(v.list, ", "))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image dimensions", ErrInvalidImage)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// Extensions returns the configured allow-list.
func (v *Validator) Extensions() []string {
	return append([]string(nil), v.list...)
}
