package models

import "fmt"

// JobStatus is the lifecycle state of a simulation job.
type JobStatus string

// Job lifecycle states. Transitions are one-way:
// pending -> processing -> completed or failed.
const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SimulationParams are the caller-supplied knobs for one run.
type SimulationParams struct {
	BlurSigma  float64 `json:"blur_sigma"`
	Iterations int     `json:"iterations"`
	StartX     float64 `json:"start_x"`
	StartY     float64 `json:"start_y"`
}

// Parameter ranges accepted by Validate.
const (
	MinBlurSigma  = 1.0
	MaxBlurSigma  = 20.0
	MinIterations = 100_000
	MaxIterations = 3_000_000
)

// DefaultParams returns the reference parameter set.
func DefaultParams() SimulationParams {
	return SimulationParams{
		BlurSigma:  4.0,
		Iterations: 1_500_000,
		StartX:     0.5,
		StartY:     0.5,
	}
}

// Validate range-checks the parameters. A job may only transition to
// processing with valid parameters.
func (p SimulationParams) Validate() error {
	if p.BlurSigma < MinBlurSigma || p.BlurSigma > MaxBlurSigma {
		return fmt.Errorf("%w: blur_sigma %g outside [%g, %g]",
			ErrValidation, p.BlurSigma, MinBlurSigma, MaxBlurSigma)
	}
	if p.Iterations < MinIterations || p.Iterations > MaxIterations {
		return fmt.Errorf("%w: iterations %d outside [%d, %d]",
			ErrValidation, p.Iterations, MinIterations, MaxIterations)
	}
	if p.StartX < 0 || p.StartX > 1 {
		return fmt.Errorf("%w: start_x %g outside [0, 1]", ErrValidation, p.StartX)
	}
	if p.StartY < 0 || p.StartY > 1 {
		return fmt.Errorf("%w: start_y %g outside [0, 1]", ErrValidation, p.StartY)
	}
	return nil
}

// Snapshot is an atomically published, consistent view of a job's state.
// The owning run loop is the only writer; any number of readers may hold
// a snapshot concurrently.
type Snapshot struct {
	JobID            string    `json:"job_id"`
	Status           JobStatus `json:"status"`
	Progress         float64   `json:"progress"`
	CurrentIteration int       `json:"current_iteration"`
	TotalIterations  int       `json:"total_iterations"`
	TrajectoryPoints int       `json:"trajectory_points"`
	Error            string    `json:"error,omitempty"`
}
