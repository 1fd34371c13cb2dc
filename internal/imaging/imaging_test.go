package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damienbose/line-draw/internal/models"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func grayImage(w, h int, v uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestDecodeLuminanceRange(t *testing.T) {
	grid, err := DecodeLuminance(encodePNG(t, grayImage(10, 6, 128)), 512)
	require.NoError(t, err)

	h, w := grid.Dims()
	assert.Equal(t, 10, w)
	assert.Equal(t, 6, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			assert.InDelta(t, 128.0/255.0, grid.At(y, x), 0.01)
		}
	}
}

func TestDecodeLuminanceDarkVsBright(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			c := color.RGBA{A: 255}
			if x >= 2 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}

	grid, err := DecodeLuminance(encodePNG(t, img), 512)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, grid.At(0, 0), 0.01)
	assert.InDelta(t, 1.0, grid.At(0, 3), 0.01)
}

func TestDecodeLuminanceUndecodable(t *testing.T) {
	_, err := DecodeLuminance([]byte("not an image at all"), 512)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestDecodeLuminanceDegenerate(t *testing.T) {
	_, err := DecodeLuminance(encodePNG(t, grayImage(1, 1, 0)), 512)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestDecodeLuminanceDownscales(t *testing.T) {
	grid, err := DecodeLuminance(encodePNG(t, grayImage(100, 50, 200)), 40)
	require.NoError(t, err)

	h, w := grid.Dims()
	assert.Equal(t, 40, w, "longer side capped at maxDim")
	assert.Equal(t, 20, h, "aspect ratio preserved")
	assert.InDelta(t, 200.0/255.0, grid.At(10, 20), 0.02)
}
