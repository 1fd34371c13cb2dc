// Package field turns a luminance grid into a navigable height-field:
// darker pixels become higher elevation, a Gaussian pass removes noise
// that would trap the ball in tiny local optima, and a shallow paraboloid
// bias guarantees a nonzero gradient everywhere except the exact center.
package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/damienbose/line-draw/internal/models"
)

// Tunables control height-field construction. The reference values come
// from calibration against known-good output; both are deliberately small
// so the surface relief stays gentle and per-step motion stays sub-pixel.
type Tunables struct {
	// SurfaceScale multiplies the inverted luminance before blurring,
	// keeping slopes shallow.
	SurfaceScale float64
	// BiasStrength is the corner-to-center elevation span of the
	// paraboloid bias, independent of grid size.
	BiasStrength float64
}

// DefaultTunables returns the calibrated reference values.
func DefaultTunables() Tunables {
	return Tunables{
		SurfaceScale: 1.0 / 400.0,
		BiasStrength: 1.25e-3,
	}
}

// Field is an immutable elevation grid with precomputed gradients.
// Both elevation and gradient are sampled at continuous coordinates via
// bilinear interpolation, clamped at the grid edges.
type Field struct {
	w, h  int
	elev  *mat.Dense
	gradX *mat.Dense
	gradY *mat.Dense
}

// Build constructs a Field from a luminance grid with values in [0, 1].
// Rows index y, columns index x. Grids narrower or shorter than 2 pixels
// cannot support finite differences and are rejected.
func Build(lum *mat.Dense, blurSigma float64, t Tunables) (*Field, error) {
	h, w := lum.Dims()
	if w < 2 || h < 2 {
		return nil, fmt.Errorf("%w: degenerate image dimensions %dx%d", models.ErrConfiguration, w, h)
	}

	elev := mat.NewDense(h, w, nil)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			elev.Set(y, x, (1-lum.At(y, x))*t.SurfaceScale)
		}
	}

	if blurSigma > 0 {
		gaussianBlur(elev, blurSigma)
	}
	addParaboloid(elev, t.BiasStrength)

	f := &Field{w: w, h: h, elev: elev}
	f.gradX, f.gradY = gradients(elev)
	return f, nil
}

// Width returns the grid width in pixels.
func (f *Field) Width() int { return f.w }

// Height returns the grid height in pixels.
func (f *Field) Height() int { return f.h }

// ElevationAt samples the elevation at continuous pixel coordinates.
func (f *Field) ElevationAt(x, y float64) float64 {
	return bilinear(f.elev, x, y, f.w, f.h)
}

// GradientAt samples the gradient at continuous pixel coordinates.
func (f *Field) GradientAt(x, y float64) (gx, gy float64) {
	return bilinear(f.gradX, x, y, f.w, f.h), bilinear(f.gradY, x, y, f.w, f.h)
}

// addParaboloid adds a bowl centered on the grid. The division by
// cx^2+cy^2 normalises the span so strength means the same thing for a
// 64px thumbnail and a 512px field.
func addParaboloid(elev *mat.Dense, strength float64) {
	h, w := elev.Dims()
	cx := float64(w-1) / 2
	cy := float64(h-1) / 2
	norm := cx*cx + cy*cy
	if norm == 0 {
		return
	}
	for y := 0; y < h; y++ {
		dy := float64(y) - cy
		for x := 0; x < w; x++ {
			dx := float64(x) - cx
			elev.Set(y, x, elev.At(y, x)+strength*(dx*dx+dy*dy)/norm)
		}
	}
}

// gaussianBlur smooths the grid in place with a separable kernel of
// standard deviation sigma, clamping at the edges.
func gaussianBlur(m *mat.Dense, sigma float64) {
	h, w := m.Dims()
	kernel := gaussianKernel(sigma)
	r := (len(kernel) - 1) / 2

	tmp := mat.NewDense(h, w, nil)

	// Horizontal pass.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -r; k <= r; k++ {
				sx := clampInt(x+k, 0, w-1)
				sum += kernel[k+r] * m.At(y, sx)
			}
			tmp.Set(y, x, sum)
		}
	}

	// Vertical pass.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -r; k <= r; k++ {
				sy := clampInt(y+k, 0, h-1)
				sum += kernel[k+r] * tmp.At(sy, x)
			}
			m.Set(y, x, sum)
		}
	}
}

func gaussianKernel(sigma float64) []float64 {
	r := int(math.Ceil(3 * sigma))
	if r < 1 {
		r = 1
	}
	kernel := make([]float64, 2*r+1)
	var sum float64
	for i := -r; i <= r; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+r] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// gradients computes central finite differences, one-sided at the edges.
// Differences are scaled by the larger grid dimension so gradient values
// are per normalized field unit rather than per pixel, keeping the
// gravity constant meaningful across grid sizes.
func gradients(elev *mat.Dense) (gx, gy *mat.Dense) {
	h, w := elev.Dims()
	scale := float64(w)
	if h > w {
		scale = float64(h)
	}
	gx = mat.NewDense(h, w, nil)
	gy = mat.NewDense(h, w, nil)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, x1 := clampInt(x-1, 0, w-1), clampInt(x+1, 0, w-1)
			y0, y1 := clampInt(y-1, 0, h-1), clampInt(y+1, 0, h-1)
			gx.Set(y, x, (elev.At(y, x1)-elev.At(y, x0))/float64(x1-x0)*scale)
			gy.Set(y, x, (elev.At(y1, x)-elev.At(y0, x))/float64(y1-y0)*scale)
		}
	}
	return gx, gy
}

func bilinear(m *mat.Dense, x, y float64, w, h int) float64 {
	x = clampFloat(x, 0, float64(w-1))
	y = clampFloat(y, 0, float64(h-1))
	x0, y0 := int(x), int(y)
	x1, y1 := clampInt(x0+1, 0, w-1), clampInt(y0+1, 0, h-1)
	fx, fy := x-float64(x0), y-float64(y0)

	top := m.At(y0, x0)*(1-fx) + m.At(y0, x1)*fx
	bot := m.At(y1, x0)*(1-fx) + m.At(y1, x1)*fx
	return top*(1-fy) + bot*fy
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
