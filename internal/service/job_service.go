// Package service owns the job table and the per-job simulation run
// loop. Each running job is one goroutine; jobs share nothing mutable
// with each other. A job's mutable fields are written only by that job's
// own loop and read by any number of concurrent consumers through an
// atomically published snapshot.
package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/damienbose/line-draw/internal/field"
	"github.com/damienbose/line-draw/internal/metrics"
	"github.com/damienbose/line-draw/internal/models"
	"github.com/damienbose/line-draw/internal/raster"
	"github.com/damienbose/line-draw/internal/simulation"
)

// Options configure a Manager.
type Options struct {
	Field field.Tunables
	Sim   simulation.Tunables

	// CanvasSize is the longer side of the output raster in pixels.
	CanvasSize int

	// PublishStride is the number of steps between cancellation and
	// cadence checks. Per-step publication would dominate runtime at
	// million-step budgets.
	PublishStride int

	// PublishInterval is the minimum wall-clock gap between two
	// published progress snapshots. A snapshot goes out only when both
	// the stride and the interval have passed.
	PublishInterval time.Duration

	// Metrics is optional; a nil collector disables instrumentation.
	Metrics *metrics.Collector
}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		Field:           field.DefaultTunables(),
		Sim:             simulation.DefaultTunables(),
		CanvasSize:      800,
		PublishStride:   10_000,
		PublishInterval: 100 * time.Millisecond,
	}
}

// job is one request to process one image. The run loop is the sole
// writer of status and result after Start; readers go through the
// snapshot pointer.
type job struct {
	id   string
	grid *mat.Dense

	mu        sync.Mutex
	status    models.JobStatus
	params    models.SimulationParams
	result    []byte
	cancel    context.CancelFunc
	startedAt time.Time

	snapshot atomic.Pointer[models.Snapshot]
	bcast    *broadcaster
}

// Manager is the concurrency-safe job registry and controller.
type Manager struct {
	mu   sync.RWMutex
	jobs map[string]*job
	opts Options
}

// NewManager creates an empty job registry.
func NewManager(opts Options) *Manager {
	if opts.PublishStride <= 0 {
		opts.PublishStride = 10_000
	}
	return &Manager{jobs: make(map[string]*job), opts: opts}
}

// Create registers a new pending job holding the uploaded luminance
// grid and returns its id.
func (m *Manager) Create(grid *mat.Dense) string {
	j := &job{
		id:     uuid.New().String(),
		grid:   grid,
		status: models.StatusPending,
		bcast:  newBroadcaster(),
	}
	j.snapshot.Store(&models.Snapshot{JobID: j.id, Status: models.StatusPending})

	m.mu.Lock()
	m.jobs[j.id] = j
	m.mu.Unlock()

	if m.opts.Metrics != nil {
		m.opts.Metrics.JobsCreated.Inc()
	}
	return j.id
}

// Start validates the parameters and launches the simulation loop. On a
// validation error the job stays pending, untouched.
func (m *Manager) Start(id string, p models.SimulationParams) error {
	j, err := m.get(id)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	j.mu.Lock()
	if j.status != models.StatusPending {
		defer j.mu.Unlock()
		return fmt.Errorf("%w: job is %s", models.ErrJobState, j.status)
	}
	j.status = models.StatusProcessing
	j.params = p
	j.startedAt = time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.mu.Unlock()

	j.snapshot.Store(&models.Snapshot{
		JobID:           j.id,
		Status:          models.StatusProcessing,
		TotalIterations: p.Iterations,
	})

	if m.opts.Metrics != nil {
		m.opts.Metrics.JobsStarted.Inc()
		m.opts.Metrics.JobsProcessing.Inc()
	}

	log.Printf("[job %s] starting: sigma=%g iterations=%d start=(%g, %g)",
		j.id, p.BlurSigma, p.Iterations, p.StartX, p.StartY)
	go m.run(ctx, j)
	return nil
}

// Cancel requests cooperative cancellation of a running job. The loop
// notices at its next batch boundary and leaves the job failed with a
// cancellation-specific reason.
func (m *Manager) Cancel(id string) error {
	j, err := m.get(id)
	if err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != models.StatusProcessing {
		return fmt.Errorf("%w: job is %s, not processing", models.ErrJobState, j.status)
	}
	j.cancel()
	return nil
}

// Status returns the latest published snapshot. Safe to call
// concurrently with an in-flight run.
func (m *Manager) Status(id string) (models.Snapshot, error) {
	j, err := m.get(id)
	if err != nil {
		return models.Snapshot{}, err
	}
	return *j.snapshot.Load(), nil
}

// Result returns the final PNG bytes of a completed job.
func (m *Manager) Result(id string) ([]byte, error) {
	j, err := m.get(id)
	if err != nil {
		return nil, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: job is %s, not completed", models.ErrJobState, j.status)
	}
	return j.result, nil
}

// Delete removes a job from the registry, cancelling it first if it is
// still running.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	j, ok := m.jobs[id]
	if ok {
		delete(m.jobs, id)
	}
	m.mu.Unlock()
	if !ok {
		return models.ErrJobNotFound
	}

	j.mu.Lock()
	if j.cancel != nil {
		j.cancel()
	}
	j.mu.Unlock()
	return nil
}

// Subscribe attaches a listener to a job's push channel. The channel is
// closed when the job reaches a terminal state or the listener
// unsubscribes.
func (m *Manager) Subscribe(id string) (string, <-chan models.StreamMessage, error) {
	j, err := m.get(id)
	if err != nil {
		return "", nil, err
	}
	subID, ch := j.bcast.subscribe()
	return subID, ch, nil
}

// Unsubscribe detaches a listener. The job keeps running regardless.
func (m *Manager) Unsubscribe(id, subID string) {
	if j, err := m.get(id); err == nil {
		j.bcast.unsubscribe(subID)
	}
}

func (m *Manager) get(id string) (*job, error) {
	m.mu.RLock()
	j, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, models.ErrJobNotFound
	}
	return j, nil
}

// run is the step loop. It is the only writer of the job's state while
// the job is processing.
func (m *Manager) run(ctx context.Context, j *job) {
	defer func() {
		if r := recover(); r != nil {
			m.fail(j, fmt.Sprintf("runtime failure: %v", r), false)
		}
	}()

	p := j.params
	f, err := field.Build(j.grid, p.BlurSigma, m.opts.Field)
	if err != nil {
		m.fail(j, fmt.Sprintf("height-field build: %v", err), false)
		return
	}

	eng := simulation.New(f, m.opts.Sim)
	state := eng.InitialState(p.StartX, p.StartY)
	canvas := raster.NewCanvas(f.Width(), f.Height(), m.opts.CanvasSize)
	em := simulation.NewEmitter(m.opts.Sim.MinEmitDistance)
	if em.Offer(state.X, state.Y) {
		canvas.Add(state.X, state.Y)
	}

	stride := m.opts.PublishStride
	lastPublish := time.Now()
	for i := 1; i <= p.Iterations; i++ {
		state = eng.Step(state)
		if em.Offer(state.X, state.Y) {
			canvas.Add(state.X, state.Y)
		}
		if i%stride != 0 {
			continue
		}

		// Batch boundary: the loop's single cancellation point, numeric
		// health check, and publish cadence.
		if ctx.Err() != nil {
			m.fail(j, fmt.Sprintf("%v: requested by client", models.ErrCancelled), true)
			return
		}
		if !state.Finite() {
			m.fail(j, "runtime failure: numeric state diverged (NaN or Inf)", false)
			return
		}
		if m.opts.Metrics != nil {
			m.opts.Metrics.Iterations.Add(float64(stride))
		}
		if i < p.Iterations && time.Since(lastPublish) >= m.opts.PublishInterval {
			lastPublish = time.Now()
			m.publishProgress(j, i, p.Iterations, em.Count())
		}
	}

	png, err := canvas.Finalize()
	if err != nil {
		m.fail(j, fmt.Sprintf("finalize raster: %v", err), false)
		return
	}
	m.complete(j, png, p.Iterations, em.Count())
}

// publishProgress stores a consistent snapshot and broadcasts it.
// Successive snapshots carry strictly increasing iteration counts
// because only the run loop publishes.
func (m *Manager) publishProgress(j *job, iter, total, points int) {
	snap := models.Snapshot{
		JobID:            j.id,
		Status:           models.StatusProcessing,
		Progress:         float64(iter) / float64(total),
		CurrentIteration: iter,
		TotalIterations:  total,
		TrajectoryPoints: points,
	}
	j.snapshot.Store(&snap)
	j.bcast.publish(models.ProgressMessage(snap))
}

// complete finalizes the one-way transition processing -> completed.
func (m *Manager) complete(j *job, png []byte, total, points int) {
	j.mu.Lock()
	if j.status != models.StatusProcessing {
		j.mu.Unlock()
		return
	}
	j.status = models.StatusCompleted
	j.result = png
	startedAt := j.startedAt
	j.mu.Unlock()

	snap := models.Snapshot{
		JobID:            j.id,
		Status:           models.StatusCompleted,
		Progress:         1.0,
		CurrentIteration: total,
		TotalIterations:  total,
		TrajectoryPoints: points,
	}
	j.snapshot.Store(&snap)

	j.bcast.publish(models.ProgressMessage(snap))
	j.bcast.publish(models.StreamMessage{
		Type:        models.MessageComplete,
		Status:      models.StatusCompleted,
		Progress:    1.0,
		ImageBase64: EncodeResult(png),
	})
	j.bcast.close()

	if m.opts.Metrics != nil {
		m.opts.Metrics.JobsCompleted.Inc()
		m.opts.Metrics.JobsProcessing.Dec()
		m.opts.Metrics.JobDuration.Observe(time.Since(startedAt).Seconds())
	}
	log.Printf("[job %s] completed: %d iterations, %d trajectory points, %d byte result",
		j.id, total, points, len(png))
}

// fail finalizes the one-way transition processing -> failed. The
// hosting process keeps serving other jobs.
func (m *Manager) fail(j *job, msg string, cancelled bool) {
	j.mu.Lock()
	if j.status.Terminal() {
		j.mu.Unlock()
		return
	}
	j.status = models.StatusFailed
	startedAt := j.startedAt
	j.mu.Unlock()

	prev := j.snapshot.Load()
	snap := *prev
	snap.Status = models.StatusFailed
	snap.Error = msg
	j.snapshot.Store(&snap)

	j.bcast.publish(models.StreamMessage{
		Type:     models.MessageError,
		Status:   models.StatusFailed,
		Progress: snap.Progress,
		Error:    msg,
	})
	j.bcast.close()

	if m.opts.Metrics != nil {
		m.opts.Metrics.JobsFailed.Inc()
		m.opts.Metrics.JobsProcessing.Dec()
		if cancelled {
			m.opts.Metrics.JobsCancelled.Inc()
		}
		if !startedAt.IsZero() {
			m.opts.Metrics.JobDuration.Observe(time.Since(startedAt).Seconds())
		}
	}
	log.Printf("[job %s] failed: %s", j.id, msg)
}

// EncodeResult encodes result image bytes the way the push channel and
// the base64 result endpoint deliver them.
func EncodeResult(png []byte) string {
	return base64.StdEncoding.EncodeToString(png)
}
