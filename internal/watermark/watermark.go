// internal/watermark/watermark.go
package watermark

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Options controls the protected-preview rendering.
type Options struct {
	Text       string  // watermark string stamped at every constellation point
	BoxSize    int     // square bounding box the image is resized to fit inside
	FontSize   float64 // stamp font size in points
	OffsetStep int     // pixel distance of one constellation unit
}

func DefaultOptions() Options {
	return Options{
		Text:       "Image Store",
		BoxSize:    600,
		FontSize:   16,
		OffsetStep: 100,
	}
}

// offsets is the stamp constellation in offset units relative to the image
// center. A single centered mark is trivially croppable; repeating it on a
// symmetric grid out to 3 units keeps every sub-region of the preview covered.
var offsets = [][2]int{
	{0, 0},
	{1, 1}, {-1, -1}, {-1, 1}, {1, -1},
	{2, 2}, {-2, -2}, {-2, 2}, {2, -2},
	{3, 3}, {-3, -3}, {-3, 3}, {3, -3},
	{2, 0}, {-2, 0}, {0, 2}, {0, -2},
	{3, 1}, {3, -1}, {-3, 1}, {-3, -1},
	{1, 3}, {1, -3}, {-1, 3}, {-1, -3},
}

// Offsets returns a copy of the stamp constellation.
func Offsets() [][2]int {
	out := make([][2]int, len(offsets))
	copy(out, offsets)
	return out
}

var (
	fontOnce   sync.Once
	parsedFont *opentype.Font
	fontErr    error
)

func loadFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		parsedFont, fontErr = opentype.Parse(goregular.TTF)
	})
	return parsedFont, fontErr
}

// FitWithin computes the dimensions of an image resized to fit inside a
// box-by-box square while preserving aspect ratio. The longer dimension
// always equals box.
func FitWithin(width, height, box int) (int, int) {
	ratio := float64(width) / float64(height)

	var newWidth, newHeight int
	if ratio >= 1 {
		// Landscape or square image
		newWidth = box
		newHeight = int(float64(box)/ratio + 0.5)
	} else {
		// Portrait image
		newWidth = int(float64(box)*ratio + 0.5)
		newHeight = box
	}

	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}
	return newWidth, newHeight
}

// Apply resizes src to fit inside the bounding box and stamps the watermark
// text at every constellation point, each stamp center-anchored at its offset
// from the image center.
func Apply(src image.Image, opts Options) (*image.NRGBA, error) {
	if opts.Text == "" || opts.BoxSize <= 0 {
		return nil, fmt.Errorf("invalid watermark options: text=%q box=%d", opts.Text, opts.BoxSize)
	}

	bounds := src.Bounds()
	newWidth, newHeight := FitWithin(bounds.Dx(), bounds.Dy(), opts.BoxSize)
	dst := imaging.Resize(src, newWidth, newHeight, imaging.Lanczos)

	ft, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("failed to load watermark font: %w", err)
	}

	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    opts.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	defer face.Close()

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 255}),
		Face: face,
	}

	advance := drawer.MeasureString(opts.Text)
	metrics := face.Metrics()

	centerX := newWidth / 2
	centerY := newHeight / 2

	for _, off := range offsets {
		x := centerX + off[0]*opts.OffsetStep
		y := centerY + off[1]*opts.OffsetStep

		// Center-anchor the stamp: shift left by half the advance, and place
		// the baseline so the glyph box is vertically centered on (x, y).
		drawer.Dot = fixed.Point26_6{
			X: fixed.I(x) - advance/2,
			Y: fixed.I(y) + (metrics.Ascent-metrics.Descent)/2,
		}
		drawer.DrawString(opts.Text)
	}

	return dst, nil
}
