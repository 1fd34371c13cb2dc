// Package simulation integrates the motion of a point mass over a
// height-field. Each step is a pure function of the previous state, so a
// run with the same field and parameters replays identically.
package simulation

import (
	"math"

	"github.com/damienbose/line-draw/internal/field"
)

// Tunables control the integrator. Gravity and Restitution are the two
// knobs left open by the design; both default to the calibrated
// reference values.
type Tunables struct {
	// Gravity is the small negative scalar multiplying the sampled
	// gradient. Its magnitude keeps per-step motion sub-pixel, trading
	// iteration count for trajectory smoothness.
	Gravity float64
	// Restitution scales the reflected velocity component on a boundary
	// bounce. 1 is perfectly elastic.
	Restitution float64
	// InitialVelocity is the starting speed per axis, as a fraction of
	// the larger grid dimension per step.
	InitialVelocity float64
	// MinEmitDistance is the minimal movement, in pixels, between two
	// recorded trajectory points.
	MinEmitDistance float64
}

// DefaultTunables returns the reference values.
func DefaultTunables() Tunables {
	return Tunables{
		Gravity:         -1e-6,
		Restitution:     1.0,
		InitialVelocity: 1e-5,
		MinEmitDistance: 0.5,
	}
}

// BallState is the ball's continuous position within
// [0, width) x [0, height) and its velocity in pixels per step.
type BallState struct {
	X, Y   float64
	VX, VY float64
}

// Finite reports whether all components are finite numbers.
func (s BallState) Finite() bool {
	for _, v := range [4]float64{s.X, s.Y, s.VX, s.VY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Engine steps a ball across one height-field. It holds no mutable
// state between steps; the caller owns the BallState.
type Engine struct {
	f   *field.Field
	tun Tunables
	w   float64
	h   float64
}

// New creates an engine for the given field.
func New(f *field.Field, tun Tunables) *Engine {
	return &Engine{
		f:   f,
		tun: tun,
		w:   float64(f.Width()),
		h:   float64(f.Height()),
	}
}

// InitialState maps a normalized [0,1]^2 start position onto the grid
// and applies the initial velocity along both axes.
func (e *Engine) InitialState(startX, startY float64) BallState {
	maxDim := e.w
	if e.h > maxDim {
		maxDim = e.h
	}
	v := e.tun.InitialVelocity * maxDim
	return BallState{
		X:  startX * (e.w - 1),
		Y:  startY * (e.h - 1),
		VX: v,
		VY: v,
	}
}

// Step advances the ball by one integration step: sample the gradient,
// accelerate down-slope, move, and bounce elastically off the frame.
func (e *Engine) Step(s BallState) BallState {
	gx, gy := e.f.GradientAt(s.X, s.Y)

	s.VX += e.tun.Gravity * gx
	s.VY += e.tun.Gravity * gy

	s.X += s.VX
	s.Y += s.VY

	// The ball never exits the frame: a crossing reflects the velocity
	// component on that axis and clamps the position back inside.
	const inset = 1e-9
	if s.X < 0 {
		s.X = 0
		s.VX = -s.VX * e.tun.Restitution
	} else if s.X >= e.w {
		s.X = e.w - inset
		s.VX = -s.VX * e.tun.Restitution
	}
	if s.Y < 0 {
		s.Y = 0
		s.VY = -s.VY * e.tun.Restitution
	} else if s.Y >= e.h {
		s.Y = e.h - inset
		s.VY = -s.VY * e.tun.Restitution
	}

	return s
}
