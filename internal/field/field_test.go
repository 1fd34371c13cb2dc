package field

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/damienbose/line-draw/internal/models"
)

func uniformGrid(w, h int, v float64) *mat.Dense {
	g := mat.NewDense(h, w, nil)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Set(y, x, v)
		}
	}
	return g
}

func TestBuildRejectsDegenerateDimensions(t *testing.T) {
	cases := []struct {
		name string
		w, h int
	}{
		{"one column", 1, 5},
		{"one row", 5, 1},
		{"single pixel", 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(uniformGrid(tc.w, tc.h, 0.5), 4, DefaultTunables())
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrConfiguration))
		})
	}
}

func TestBuildDarkMeansHigh(t *testing.T) {
	// Left half dark, right half bright; no blur, no bias, so elevation
	// is exactly the inverted luminance.
	grid := uniformGrid(8, 8, 0.9)
	for y := 0; y < 8; y++ {
		for x := 0; x < 4; x++ {
			grid.Set(y, x, 0.1)
		}
	}

	f, err := Build(grid, 0, Tunables{SurfaceScale: 1, BiasStrength: 0})
	require.NoError(t, err)

	assert.Greater(t, f.ElevationAt(1, 4), f.ElevationAt(6, 4))
	assert.InDelta(t, 0.9, f.ElevationAt(1, 4), 1e-12)
	assert.InDelta(t, 0.1, f.ElevationAt(6, 4), 1e-12)
}

func TestBilinearInterpolation(t *testing.T) {
	grid := uniformGrid(4, 4, 1)
	grid.Set(0, 0, 0) // elevation 1 at (0,0), 0 elsewhere

	f, err := Build(grid, 0, Tunables{SurfaceScale: 1, BiasStrength: 0})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, f.ElevationAt(0, 0), 1e-12)
	assert.InDelta(t, 0.5, f.ElevationAt(0.5, 0), 1e-12)
	assert.InDelta(t, 0.25, f.ElevationAt(0.5, 0.5), 1e-12)
	// Out-of-range coordinates clamp to the grid edge.
	assert.InDelta(t, 0.0, f.ElevationAt(100, 100), 1e-12)
}

func TestParaboloidGradientPointsOutward(t *testing.T) {
	// On a uniform image the only relief is the paraboloid bias, so the
	// gradient must point away from the center everywhere off-center.
	f, err := Build(uniformGrid(33, 33, 0.5), 4, DefaultTunables())
	require.NoError(t, err)

	cx, cy := 16.0, 16.0
	probes := [][2]float64{
		{4, 4}, {28, 4}, {4, 28}, {28, 28},
		{16, 4}, {4, 16}, {25, 16}, {16, 25},
	}
	for _, p := range probes {
		gx, gy := f.GradientAt(p[0], p[1])
		dot := gx*(p[0]-cx) + gy*(p[1]-cy)
		assert.Greater(t, dot, 0.0, "gradient at (%g, %g) should point outward", p[0], p[1])
	}

	gx, gy := f.GradientAt(cx, cy)
	assert.InDelta(t, 0, gx, 1e-9)
	assert.InDelta(t, 0, gy, 1e-9)
}

func TestBlurSmoothsRelief(t *testing.T) {
	// Checkerboard luminance is the worst case for local optima; the
	// Gaussian pass must shrink neighbor-to-neighbor differences.
	grid := mat.NewDense(32, 32, nil)
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			grid.Set(y, x, float64((x+y)%2))
		}
	}

	tun := Tunables{SurfaceScale: 1, BiasStrength: 0}
	sharp, err := Build(grid, 0, tun)
	require.NoError(t, err)
	smooth, err := Build(grid, 4, tun)
	require.NoError(t, err)

	assert.Less(t, maxNeighborDiff(smooth), maxNeighborDiff(sharp)/10)
}

func maxNeighborDiff(f *Field) float64 {
	var max float64
	for y := 0; y < f.Height(); y++ {
		for x := 1; x < f.Width(); x++ {
			d := math.Abs(f.ElevationAt(float64(x), float64(y)) - f.ElevationAt(float64(x-1), float64(y)))
			if d > max {
				max = d
			}
		}
	}
	return max
}

func TestBuildDeterministic(t *testing.T) {
	grid := mat.NewDense(16, 16, nil)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			grid.Set(y, x, float64(x*y)/225.0)
		}
	}

	a, err := Build(grid, 4, DefaultTunables())
	require.NoError(t, err)
	b, err := Build(grid, 4, DefaultTunables())
	require.NoError(t, err)

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			fx, fy := float64(x), float64(y)
			assert.Equal(t, a.ElevationAt(fx, fy), b.ElevationAt(fx, fy))
			agx, agy := a.GradientAt(fx, fy)
			bgx, bgy := b.GradientAt(fx, fy)
			assert.Equal(t, agx, bgx)
			assert.Equal(t, agy, bgy)
		}
	}
}

func TestGradientsFinite(t *testing.T) {
	grid := mat.NewDense(24, 24, nil)
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			grid.Set(y, x, float64((x*7+y*13)%11)/10.0)
		}
	}
	f, err := Build(grid, 2, DefaultTunables())
	require.NoError(t, err)

	for y := 0.0; y < 24; y += 0.37 {
		for x := 0.0; x < 24; x += 0.37 {
			gx, gy := f.GradientAt(x, y)
			require.False(t, math.IsNaN(gx) || math.IsInf(gx, 0))
			require.False(t, math.IsNaN(gy) || math.IsInf(gy, 0))
		}
	}
}
