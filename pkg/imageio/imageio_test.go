package imageio

import (
	"encoding/base64"
	"image"
	"image/color"
	"path/filepath"
	"testing"
)

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

func TestSaveLoadRoundTrip(t *testing.T) {
	img := createTestImage(64, 48)
	dir := t.TempDir()

	formats := []struct {
		format string
		ext    string
	}{
		{"jpg", "jpg"},
		{"png", "png"},
		{"webp", "webp"},
	}

	for _, f := range formats {
		path := filepath.Join(dir, "test."+f.ext)
		if err := Save(img, path, f.format, 90, false); err != nil {
			t.Errorf("Save %s failed: %v", f.format, err)
			continue
		}

		loaded, err := Load(path)
		if err != nil {
			t.Errorf("Load %s failed: %v", f.format, err)
			continue
		}

		bounds := loaded.Bounds()
		if bounds.Dx() != 64 || bounds.Dy() != 48 {
			t.Errorf("%s: expected 64x48, got %dx%d", f.format, bounds.Dx(), bounds.Dy())
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestDecode(t *testing.T) {
	data, err := EncodeJPEG(createTestImage(32, 32), 0, 90)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}

	img, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Dx() != 32 {
		t.Errorf("Expected width 32, got %d", img.Bounds().Dx())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not an image")); err == nil {
		t.Error("Expected error for non-image bytes")
	}
}

func TestEncodeJPEGCapsLongSide(t *testing.T) {
	data, err := EncodeJPEG(createTestImage(800, 400), 200, 85)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}

	img, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if img.Bounds().Dx() != 200 {
		t.Errorf("Expected long side capped to 200, got %d", img.Bounds().Dx())
	}
	if img.Bounds().Dy() != 100 {
		t.Errorf("Expected aspect ratio preserved (height 100), got %d", img.Bounds().Dy())
	}
}

func TestEncodeJPEGNoCapWhenSmall(t *testing.T) {
	data, err := EncodeJPEG(createTestImage(100, 80), 200, 85)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}

	img, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 80 {
		t.Errorf("Expected 100x80 unchanged, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestEncodeJPEGBase64(t *testing.T) {
	encoded, err := EncodeJPEGBase64(createTestImage(16, 16), 0, 90)
	if err != nil {
		t.Fatalf("EncodeJPEGBase64 failed: %v", err)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("Output is not valid base64: %v", err)
	}
	if _, err := Decode(data); err != nil {
		t.Errorf("Decoded payload is not a valid image: %v", err)
	}
}
