// Package raster materializes a trajectory point stream into a drawable
// canvas, one line segment at a time. Memory stays bounded at one RGBA
// buffer regardless of iteration count, and the canvas only accumulates
// strokes, never resets mid-run.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/vector"
)

var strokeColor = color.RGBA{A: 255} // opaque black

// Canvas is an incremental anti-aliased polyline rasterizer. It is not
// safe for concurrent use; one run loop owns one canvas.
type Canvas struct {
	img    *image.RGBA
	ras    *vector.Rasterizer
	src    *image.Uniform
	scale  float64
	width  float64 // stroke width in canvas pixels
	maxSeg float64 // segments longer than this are boundary jumps
	w, h   int

	hasLast      bool
	lastX, lastY float64
}

// NewCanvas creates a white canvas for a field of the given dimensions,
// scaled so the larger side is maxDim canvas pixels.
func NewCanvas(fieldW, fieldH, maxDim int) *Canvas {
	long := fieldW
	if fieldH > long {
		long = fieldH
	}
	scale := float64(maxDim) / float64(long)
	w := int(math.Round(float64(fieldW) * scale))
	h := int(math.Round(float64(fieldH) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	diag := math.Hypot(float64(w), float64(h))
	return &Canvas{
		img:    img,
		ras:    vector.NewRasterizer(1, 1),
		src:    image.NewUniform(strokeColor),
		scale:  scale,
		width:  1.0,
		maxSeg: diag * 0.1,
		w:      w,
		h:      h,
	}
}

// Size returns the canvas dimensions in pixels.
func (c *Canvas) Size() (w, h int) { return c.w, c.h }

// Add appends a trajectory point in field coordinates and rasterizes the
// segment from the previous point. Segments spanning more than a tenth
// of the canvas diagonal are the artefact of a boundary bounce, not real
// ball motion, and are skipped.
func (c *Canvas) Add(x, y float64) {
	cx, cy := x*c.scale, y*c.scale
	if !c.hasLast {
		c.hasLast = true
		c.lastX, c.lastY = cx, cy
		return
	}

	dx, dy := cx-c.lastX, cy-c.lastY
	length := math.Hypot(dx, dy)
	if length > 0 && length <= c.maxSeg {
		c.strokeSegment(c.lastX, c.lastY, cx, cy, dx/length, dy/length)
	}
	c.lastX, c.lastY = cx, cy
}

// strokeSegment fills an anti-aliased quad around the segment, extended
// by half the stroke width at both ends so consecutive segments join
// without gaps. (ux, uy) is the unit direction of the segment.
func (c *Canvas) strokeSegment(x0, y0, x1, y1, ux, uy float64) {
	half := c.width / 2
	px, py := -uy*half, ux*half // perpendicular offset
	ex, ey := ux*half, uy*half  // cap extension

	qx := [4]float64{x0 - ex + px, x1 + ex + px, x1 + ex - px, x0 - ex - px}
	qy := [4]float64{y0 - ey + py, y1 + ey + py, y1 + ey - py, y0 - ey - py}

	minX, minY := qx[0], qy[0]
	maxX, maxY := qx[0], qy[0]
	for i := 1; i < 4; i++ {
		minX = math.Min(minX, qx[i])
		minY = math.Min(minY, qy[i])
		maxX = math.Max(maxX, qx[i])
		maxY = math.Max(maxY, qy[i])
	}

	bounds := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1,
	).Intersect(c.img.Bounds())
	if bounds.Empty() {
		return
	}

	// Rasterize only the segment's bounding box, in local coordinates.
	c.ras.Reset(bounds.Dx(), bounds.Dy())
	offX, offY := float64(bounds.Min.X), float64(bounds.Min.Y)
	c.ras.MoveTo(float32(qx[0]-offX), float32(qy[0]-offY))
	for i := 1; i < 4; i++ {
		c.ras.LineTo(float32(qx[i]-offX), float32(qy[i]-offY))
	}
	c.ras.ClosePath()
	c.ras.Draw(c.img, bounds, c.src, image.Point{})
}

// Finalize encodes the current canvas as PNG bytes. The canvas remains
// usable, so a partial preview is a Finalize call away.
func (c *Canvas) Finalize() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return nil, fmt.Errorf("encode canvas: %w", err)
	}
	return buf.Bytes(), nil
}

// Image exposes the backing image for inspection.
func (c *Canvas) Image() *image.RGBA { return c.img }
