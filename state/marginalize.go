package state

import (
	"fmt"
	"math"

	msckf "github.com/milosgajdos/go-msckf"
	"gonum.org/v1/gonum/mat"
)

// Marginalize removes v from the state: the covariance partitions before and
// after its block are concatenated, preserving all cross terms between them,
// every surviving variable with a higher offset is shifted down by its size
// and v itself is deactivated. The variable value stays readable afterwards,
// it is just no longer part of the filter.
// It returns error if v is not a top level active variable; marginalizing a
// component of a composite variable is unsupported.
func (s *State) Marginalize(v msckf.Variable) error {
	if !s.has(v) {
		return fmt.Errorf("marginalized variable is not a top level state variable")
	}

	margID := v.ID()
	margSize := v.Size()
	n := s.Dim()
	if n == margSize {
		return fmt.Errorf("cannot marginalize the last state variable")
	}
	tail := n - margID - margSize

	reduced := mat.NewDense(n-margSize, n-margSize, nil)
	if margID > 0 {
		reduced.Slice(0, margID, 0, margID).(*mat.Dense).
			Copy(s.cov.Slice(0, margID, 0, margID))
	}
	if margID > 0 && tail > 0 {
		reduced.Slice(0, margID, margID, margID+tail).(*mat.Dense).
			Copy(s.cov.Slice(0, margID, margID+margSize, n))
		reduced.Slice(margID, margID+tail, 0, margID).(*mat.Dense).
			Copy(s.cov.Slice(margID+margSize, n, 0, margID))
	}
	if tail > 0 {
		reduced.Slice(margID, margID+tail, margID, margID+tail).(*mat.Dense).
			Copy(s.cov.Slice(margID+margSize, n, margID+margSize, n))
	}
	s.cov = reduced

	remaining := make([]msckf.Variable, 0, len(s.variables)-1)
	for _, av := range s.variables {
		if av == v {
			continue
		}
		if av.ID() > margID {
			av.SetLocalID(av.ID() - margSize)
		}
		remaining = append(remaining, av)
	}
	s.variables = remaining
	v.SetLocalID(-1)

	return nil
}

// MarginalizeOldClone removes the oldest disposable pose clone once the
// sliding window exceeds its configured maximum. The clone map is mutated
// under its lock since reporting consumers may be reading it concurrently.
// It returns error if the marginalization policy yields no disposable clone
// or the chosen clone cannot be removed.
func (s *State) MarginalizeOldClone() error {
	if len(s.clones) <= s.opts.MaxClones {
		return nil
	}

	margTime := s.margPolicy(s)
	if math.IsInf(margTime, 0) {
		return fmt.Errorf("marginalization policy returned no disposable clone")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pose, ok := s.clones[margTime]
	if !ok {
		return fmt.Errorf("no clone at marginalization timestamp %.9f", margTime)
	}
	if err := s.Marginalize(pose); err != nil {
		return err
	}
	delete(s.clones, margTime)

	return nil
}

// MarginalizeSLAM sweeps the landmark map and removes every landmark flagged
// for marginalization, skipping the protected low id range reserved for
// ARuCo tag features. It returns the number of removed landmarks.
func (s *State) MarginalizeSLAM() (int, error) {
	protected := 4 * s.opts.MaxAruco

	removed := 0
	for id, lm := range s.features {
		if !lm.ShouldMarg || id <= protected {
			continue
		}
		if err := s.Marginalize(lm); err != nil {
			return removed, err
		}
		delete(s.features, id)
		removed++
	}

	return removed, nil
}
