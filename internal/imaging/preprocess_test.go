package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestGrayscaleIsDeterministic(t *testing.T) {
	img := testImage()

	first := Grayscale(img)
	second := Grayscale(img)

	if first.Bounds() != img.Bounds() {
		t.Fatalf("expected bounds %v, got %v", img.Bounds(), first.Bounds())
	}
	if !bytes.Equal(first.Pix, second.Pix) {
		t.Fatalf("expected identical output for identical input")
	}
}

func TestOtsuSeparatesBimodalImage(t *testing.T) {
	// Half dark, half light: the threshold must land between the two modes.
	gray := image.NewGray(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			v := uint8(30)
			if x >= 5 {
				v = 220
			}
			gray.SetGray(x, y, color.Gray{Y: v})
		}
	}

	th := OtsuThreshold(gray)
	if th < 30 || th >= 220 {
		t.Fatalf("expected threshold between modes, got %d", th)
	}

	bin := Binarize(gray, th)
	if bin.GrayAt(0, 0).Y != 0 {
		t.Fatalf("expected dark half to map to black, got %d", bin.GrayAt(0, 0).Y)
	}
	if bin.GrayAt(9, 0).Y != 255 {
		t.Fatalf("expected light half to map to white, got %d", bin.GrayAt(9, 0).Y)
	}
}

func TestBinarizeProducesOnlyBlackAndWhite(t *testing.T) {
	gray := Grayscale(testImage())
	bin := Binarize(gray, 128)
	for _, p := range bin.Pix {
		if p != 0 && p != 255 {
			t.Fatalf("expected binary output, found pixel value %d", p)
		}
	}
}

func TestEncodePNGRoundTrips(t *testing.T) {
	gray := Grayscale(testImage())
	data, err := EncodePNG(gray)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds() != gray.Bounds() {
		t.Fatalf("expected bounds %v, got %v", gray.Bounds(), decoded.Bounds())
	}
}

func TestOtsuEmptyImageFallsBack(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 0, 0))
	if th := OtsuThreshold(gray); th != 128 {
		t.Fatalf("expected fallback threshold 128, got %d", th)
	}
}
