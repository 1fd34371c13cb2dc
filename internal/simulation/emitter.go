package simulation

// Emitter de-duplicates the raw position stream into trajectory points:
// a position is recorded only when it has moved at least minDist pixels
// from the last recorded point. This bounds trajectory growth
// independently of how many raw integration steps were taken, which
// matters at multi-million-step budgets where stalled oscillation would
// otherwise dominate.
type Emitter struct {
	minDistSq    float64
	hasLast      bool
	lastX, lastY float64
	count        int
}

// NewEmitter creates an emitter with the given minimal distance.
// A zero distance records every offered position.
func NewEmitter(minDist float64) *Emitter {
	return &Emitter{minDistSq: minDist * minDist}
}

// Offer proposes a position; it returns true when the position was
// recorded as a trajectory point.
func (em *Emitter) Offer(x, y float64) bool {
	if em.hasLast {
		dx, dy := x-em.lastX, y-em.lastY
		if dx*dx+dy*dy < em.minDistSq {
			return false
		}
	}
	em.hasLast = true
	em.lastX, em.lastY = x, y
	em.count++
	return true
}

// Count returns the number of recorded trajectory points.
func (em *Emitter) Count() int { return em.count }
