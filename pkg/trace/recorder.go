// Package trace keeps an in-memory record of recent reasoning traces: the
// ordered chain-of-thought steps an agent emitted while producing a response
// stream. Recording is bounded by a ring buffer; nothing is persisted.
package trace

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentrelay/agentrelay/pkg/schema"
	"github.com/agentrelay/agentrelay/pkg/stream"
)

// DefaultCapacity bounds how many traces the recorder retains.
const DefaultCapacity = 500

var ErrTraceNotFound = errors.New("trace not found")

// ID uniquely identifies one reasoning trace.
type ID string

// Status indicates whether a trace is still accumulating steps.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
)

// Trace is one recorded reasoning chain.
type Trace struct {
	ID        ID               `json:"id"`
	Name      string           `json:"name"`
	Model     string           `json:"model"`
	Status    Status           `json:"status"`
	Steps     []schema.CotStep `json:"steps"`
	StartTime time.Time        `json:"start_time"`
	EndTime   *time.Time       `json:"end_time,omitempty"`
}

// Summary is a lightweight view for listing traces.
type Summary struct {
	ID        ID        `json:"id"`
	Name      string    `json:"name"`
	Model     string    `json:"model"`
	Status    Status    `json:"status"`
	StepCount int       `json:"step_count"`
	StartTime time.Time `json:"start_time"`
}

// Recorder gathers reasoning steps per trace. Thread-safe; operates as a ring
// buffer of recent traces. When a Bus is provided, every recorded step is also
// published on the trace's channel as a cot_step response.
type Recorder struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	bus      *stream.Bus // optional; nil disables publication
	capacity int

	traces map[ID]*Trace
	order  []ID // for eviction
}

// NewRecorder creates a recorder. bus may be nil; capacity <= 0 falls back to
// DefaultCapacity.
func NewRecorder(logger *slog.Logger, bus *stream.Bus, capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{
		logger:   logger,
		bus:      bus,
		capacity: capacity,
		traces:   make(map[ID]*Trace, capacity),
	}
}

// Begin starts a new trace for one response stream. model names the producing
// model and is stamped onto every published cot_step response.
func (r *Recorder) Begin(name, model string) ID {
	id := ID(uuid.New().String())

	r.mu.Lock()
	r.evictIfNeeded()
	r.traces[id] = &Trace{
		ID:        id,
		Name:      name,
		Model:     model,
		Status:    StatusRunning,
		StartTime: time.Now(),
	}
	r.order = append(r.order, id)
	r.mu.Unlock()

	r.logger.Debug("trace started", "trace_id", string(id), "name", name)
	return id
}

// Record appends a step to a running trace and, when a bus is attached,
// publishes it as a cot_step response on the trace's channel.
func (r *Recorder) Record(id ID, step schema.CotStep) error {
	r.mu.Lock()
	trace, ok := r.traces[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("record step: %w: %s", ErrTraceNotFound, id)
	}
	if trace.Status != StatusRunning {
		r.mu.Unlock()
		return fmt.Errorf("record step: trace %s already done", id)
	}
	trace.Steps = append(trace.Steps, step)
	model := trace.Model
	r.mu.Unlock()

	if r.bus != nil {
		resp, err := schema.NewCotStepResponse(step, model)
		if err != nil {
			r.logger.Warn("cannot publish step", "trace_id", string(id), "error", err)
			return nil
		}
		r.bus.Publish(string(id), resp)
	}
	return nil
}

// End marks a trace complete. Further Record calls on it fail.
func (r *Recorder) End(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	trace, ok := r.traces[id]
	if !ok || trace.Status != StatusRunning {
		return
	}
	now := time.Now()
	trace.Status = StatusDone
	trace.EndTime = &now
}

// Get returns a copy of one trace.
func (r *Recorder) Get(id ID) (Trace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trace, ok := r.traces[id]
	if !ok {
		return Trace{}, false
	}
	out := *trace
	out.Steps = append([]schema.CotStep(nil), trace.Steps...)
	return out, true
}

// List returns summaries of retained traces, oldest first.
func (r *Recorder) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Summary, 0, len(r.order))
	for _, id := range r.order {
		trace, ok := r.traces[id]
		if !ok {
			continue
		}
		out = append(out, Summary{
			ID:        trace.ID,
			Name:      trace.Name,
			Model:     trace.Model,
			Status:    trace.Status,
			StepCount: len(trace.Steps),
			StartTime: trace.StartTime,
		})
	}
	return out
}

// evictIfNeeded drops the oldest trace once capacity is reached.
// Caller must hold mu.
func (r *Recorder) evictIfNeeded() {
	for len(r.order) >= r.capacity {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.traces, oldest)
		r.logger.Debug("trace evicted", "trace_id", string(oldest))
	}
}
