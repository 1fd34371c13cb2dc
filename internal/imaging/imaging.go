// Package imaging is the decode boundary: uploaded file bytes in, a
// normalized luminance grid out.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"math"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/gonum/mat"

	"github.com/damienbose/line-draw/internal/models"
)

// DecodeLuminance decodes image bytes into a grid of luminance values in
// [0, 1], rows indexing y. Images larger than maxDim on either side are
// downscaled to fit, preserving aspect ratio; simulation cost scales
// with grid area and gains nothing from extra resolution once the blur
// pass has run. Undecodable bytes and degenerate dimensions are
// configuration errors.
func DecodeLuminance(data []byte, maxDim int) (*mat.Dense, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable image: %v", models.ErrConfiguration, err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 2 || h < 2 {
		return nil, fmt.Errorf("%w: degenerate %s image %dx%d", models.ErrConfiguration, format, w, h)
	}

	if maxDim > 0 && (w > maxDim || h > maxDim) {
		img = downscale(img, maxDim)
		b = img.Bounds()
		w, h = b.Dx(), b.Dy()
		if w < 2 || h < 2 {
			return nil, fmt.Errorf("%w: image %dx%d too narrow after downscale", models.ErrConfiguration, w, h)
		}
	}

	grid := mat.NewDense(h, w, nil)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// ITU-R 601 luma, matching common grayscale conversion.
			lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)) / 65535.0
			grid.Set(y, x, lum)
		}
	}
	return grid, nil
}

func downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
