package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// Grayscale converts any decoded image to a single-channel grayscale matrix.
// Pure function: the input image is not modified.
func Grayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// OtsuThreshold picks a global binarization threshold by maximizing the
// between-class variance of the grayscale histogram.
func OtsuThreshold(gray *image.Gray) uint8 {
	var hist [256]float64
	bounds := gray.Bounds()
	total := float64(bounds.Dx() * bounds.Dy())
	if total == 0 {
		return 128
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[gray.GrayAt(x, y).Y]++
		}
	}

	var sum float64
	for i := range hist {
		sum += float64(i) * hist[i]
	}

	var sumB, wB float64
	var maxVariance float64
	threshold := uint8(128)
	for i := range hist {
		wB += hist[i]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * hist[i]
		meanB := sumB / wB
		meanF := (sum - sumB) / wF
		variance := wB * wF * (meanB - meanF) * (meanB - meanF)
		if variance > maxVariance {
			maxVariance = variance
			threshold = uint8(i)
		}
	}
	return threshold
}

// Binarize maps every pixel above the threshold to white and the rest to
// black, sharpening text/background separation for recognition.
func Binarize(gray *image.Gray, threshold uint8) *image.Gray {
	bounds := gray.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if gray.GrayAt(x, y).Y > threshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}

// EncodePNG serializes the image for the recognition engine, which consumes
// encoded bytes rather than pixel matrices.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
