package pca

import (
	"fmt"
	"sync"

	mousepca "github.com/seqlab/go-mousepca"
)

// State is the trainer lifecycle state
type State int

const (
	// StateEmpty means no observations have been folded in yet
	StateEmpty State = iota
	// StateAccumulating means observations are being folded in
	StateAccumulating
	// StateFinalized means the basis has been computed, the trainer is spent
	StateFinalized
)

// String returns the state name
func (s State) String() string {

	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateFinalized:
		return "finalized"
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// InvalidStateError reports an operation called out of the trainer's
// Empty/Accumulating/Finalized order.
type InvalidStateError struct {
	// Op is the operation attempted
	Op string
	// State the trainer was in
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: cannot %s trainer in state %s", e.Op, e.State)
}

// Trainer accumulates sufficient statistics across sessions and chunks and
// finalizes them into a Basis exactly once.  Observe and MergePartial are
// serialized behind a mutex so concurrent workers may fold in partial
// statistics directly, the finalized result does not depend on arrival
// order beyond floating point rounding.
type Trainer struct {
	mu    sync.Mutex
	state State
	stats *SuffStats
}

// NewTrainer returns an empty trainer.  The frame dimension is fixed by the
// first chunk observed.
func NewTrainer() *Trainer {
	return &Trainer{state: StateEmpty}
}

// State returns the current lifecycle state
func (t *Trainer) State() State {

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// Count returns the number of observations folded in so far
func (t *Trainer) Count() int {

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stats == nil {
		return 0
	}

	return t.stats.Count
}

// Dim returns the flattened frame dimension, or 0 before the first chunk
func (t *Trainer) Dim() int {

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stats == nil {
		return 0
	}

	return t.stats.Dim
}

// Observe folds a chunk of flattened, flip-corrected, valid frames into the
// running statistics.  The first call transitions Empty to Accumulating and
// fixes the frame dimension.  Calling Observe after Finalize fails with an
// InvalidStateError.
func (t *Trainer) Observe(frames []mousepca.Frame) error {

	if len(frames) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateFinalized {
		return &InvalidStateError{Op: "observe", State: t.state}
	}

	if t.state == StateEmpty {
		t.stats = NewSuffStats(len(frames[0]))
		t.state = StateAccumulating
	}

	return t.stats.Add(frames)
}

// MergePartial folds statistics accumulated independently by a worker into
// the trainer.  It follows the same state rules as Observe.
func (t *Trainer) MergePartial(partial *SuffStats) error {

	if partial == nil || partial.Count == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateFinalized {
		return &InvalidStateError{Op: "merge into", State: t.state}
	}

	if t.state == StateEmpty {
		t.stats = NewSuffStats(partial.Dim)
		t.state = StateAccumulating
	}

	return t.stats.Merge(partial)
}

// Finalize computes the top-k basis from the accumulated statistics and
// transitions the trainer to Finalized.  It is single shot, a second call
// fails with an InvalidStateError.  Fewer observations than k+1 fail with an
// InsufficientDataError.
func (t *Trainer) Finalize(k int) (*Basis, error) {

	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateEmpty:
		return nil, &InvalidStateError{Op: "finalize", State: t.state}
	case StateFinalized:
		return nil, &InvalidStateError{Op: "finalize", State: t.state}
	}

	if k < 1 {
		return nil, fmt.Errorf("component count must be positive, got %d", k)
	}

	if t.stats.Count <= k || k > t.stats.Dim {
		return nil, &mousepca.InsufficientDataError{
			Observations: t.stats.Count,
			Requested:    k,
		}
	}

	basis, err := finalizeBasis(t.stats, k)

	if err != nil {
		return nil, err
	}

	// the trainer only becomes observably finalized once the basis exists,
	// a failure above leaves it accumulating
	t.state = StateFinalized
	t.stats = nil

	return basis, nil
}
