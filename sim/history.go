package sim

import (
	"github.com/milosgajdos/go-msckf/state"
	"gonum.org/v1/gonum/mat"
)

// History records the evolution of the state uncertainty over a simulation:
// for every recorded step it keeps the timestamp, the trace of the joint
// covariance and the active state dimension.
type History struct {
	times  []float64
	traces []float64
	dims   []int
}

// NewHistory creates a new empty history.
func NewHistory() *History {
	return &History{}
}

// Record appends the current uncertainty of s to the history.
func (h *History) Record(s *state.State) {
	h.times = append(h.times, s.Timestamp())
	h.traces = append(h.traces, mat.Trace(s.FullCovariance()))
	h.dims = append(h.dims, s.Dim())
}

// Len returns the number of recorded steps.
func (h *History) Len() int {
	return len(h.times)
}

// Times returns the recorded timestamps.
func (h *History) Times() []float64 {
	times := make([]float64, len(h.times))
	copy(times, h.times)

	return times
}

// Traces returns the recorded covariance traces.
func (h *History) Traces() []float64 {
	traces := make([]float64, len(h.traces))
	copy(traces, h.traces)

	return traces
}

// Dims returns the recorded state dimensions.
func (h *History) Dims() []int {
	dims := make([]int, len(h.dims))
	copy(dims, h.dims)

	return dims
}
