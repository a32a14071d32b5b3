// Package preprocess turns a source image and an optional region of
// interest into the executor's input image.
package preprocess

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-classifier/pkg/status"
	"github.com/menta2k/image-classifier/pkg/types"
)

// ValidateRegion checks that a bounding box has non-negative components, a
// non-empty area, and lies within the image bounds.
func ValidateRegion(img image.Image, box types.BoundingBox) error {
	if box.OriginX < 0 || box.OriginY < 0 || box.Width < 0 || box.Height < 0 {
		return status.InvalidArgumentf("bounding box (%d,%d %dx%d) has negative components",
			box.OriginX, box.OriginY, box.Width, box.Height)
	}
	if box.Width == 0 || box.Height == 0 {
		return status.InvalidArgumentf("bounding box (%d,%d %dx%d) has empty area",
			box.OriginX, box.OriginY, box.Width, box.Height)
	}
	b := img.Bounds()
	if box.OriginX+box.Width > b.Dx() || box.OriginY+box.Height > b.Dy() {
		return status.InvalidArgumentf("bounding box (%d,%d %dx%d) exceeds image bounds %dx%d",
			box.OriginX, box.OriginY, box.Width, box.Height, b.Dx(), b.Dy())
	}
	return nil
}

// Crop extracts the bounding box region from the image.
func Crop(img image.Image, box types.BoundingBox) (*image.NRGBA, error) {
	if err := ValidateRegion(img, box); err != nil {
		return nil, err
	}
	b := img.Bounds()
	rect := image.Rect(
		b.Min.X+box.OriginX,
		b.Min.Y+box.OriginY,
		b.Min.X+box.OriginX+box.Width,
		b.Min.Y+box.OriginY+box.Height,
	)
	return imaging.Crop(img, rect), nil
}

// Run produces the executor input: the image cropped to the bounding box
// when one is given (a nil box uses the whole image), resized to the
// requested width and height. Purely data transformation, no other side
// effects.
func Run(img image.Image, box *types.BoundingBox, width, height int) (*image.NRGBA, error) {
	src := img
	if box != nil {
		cropped, err := Crop(img, *box)
		if err != nil {
			return nil, err
		}
		src = cropped
	}
	return imaging.Resize(src, width, height, imaging.Lanczos), nil
}
