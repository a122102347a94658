package pca

import (
	"errors"
	"sync"
	"testing"

	mousepca "github.com/seqlab/go-mousepca"
)

func TestTrainerStateMachine(t *testing.T) {

	tr := NewTrainer()

	if tr.State() != StateEmpty {
		t.Fatalf("new trainer state = %v, want empty", tr.State())
	}

	if _, err := tr.Finalize(2); err == nil {
		t.Fatal("finalize on empty trainer must fail")
	}

	if err := tr.Observe(synthFrames(10, 4, 7)); err != nil {
		t.Fatalf("observe failed: %v", err)
	}

	if tr.State() != StateAccumulating {
		t.Fatalf("state after observe = %v, want accumulating", tr.State())
	}

	basis, err := tr.Finalize(2)

	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if basis.K() != 2 || basis.Dim() != 4 {
		t.Fatalf("basis shape = %dx%d, want 2x4", basis.K(), basis.Dim())
	}

	if tr.State() != StateFinalized {
		t.Fatalf("state after finalize = %v, want finalized", tr.State())
	}

	// the trainer is single shot per basis
	err = tr.Observe(synthFrames(5, 4, 8))

	var stateErr *InvalidStateError

	if !errors.As(err, &stateErr) {
		t.Fatalf("observe after finalize: got %v, want InvalidStateError", err)
	}

	if _, err := tr.Finalize(2); !errors.As(err, &stateErr) {
		t.Fatal("second finalize must fail with InvalidStateError")
	}
}

func TestTrainerInsufficientData(t *testing.T) {

	tr := NewTrainer()

	// 5 frames cannot support 10 components
	if err := tr.Observe(synthFrames(5, 25, 9)); err != nil {
		t.Fatalf("observe failed: %v", err)
	}

	_, err := tr.Finalize(10)

	var dataErr *mousepca.InsufficientDataError

	if !errors.As(err, &dataErr) {
		t.Fatalf("got %v, want InsufficientDataError", err)
	}

	if dataErr.Observations != 5 || dataErr.Requested != 10 {
		t.Fatalf("unexpected counts in error: %v", dataErr)
	}

	// a failed finalize leaves the trainer accumulating so more data can be
	// folded in
	if tr.State() != StateAccumulating {
		t.Fatalf("state after failed finalize = %v, want accumulating", tr.State())
	}

	if err := tr.Observe(synthFrames(50, 25, 10)); err != nil {
		t.Fatalf("observe after failed finalize: %v", err)
	}

	if _, err := tr.Finalize(10); err != nil {
		t.Fatalf("finalize with enough data failed: %v", err)
	}
}

func TestTrainerThreeSessionScenario(t *testing.T) {

	// 3 sessions of 100 frames each, k=10
	tr := NewTrainer()

	for s := 0; s < 3; s++ {
		if err := tr.Observe(synthFrames(100, 36, int64(20+s))); err != nil {
			t.Fatalf("observe session %d failed: %v", s, err)
		}
	}

	if tr.Count() != 300 {
		t.Fatalf("count = %d, want 300", tr.Count())
	}

	basis, err := tr.Finalize(10)

	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	assertOrthonormal(t, basis, 1e-9)
}

func TestTrainerChunkingInvariance(t *testing.T) {

	frames := synthFrames(120, 16, 30)

	one := NewTrainer()

	if err := one.Observe(frames); err != nil {
		t.Fatalf("observe failed: %v", err)
	}

	many := NewTrainer()

	for i := 0; i < len(frames); i += 11 {
		end := i + 11

		if end > len(frames) {
			end = len(frames)
		}

		if err := many.Observe(frames[i:end]); err != nil {
			t.Fatalf("observe failed: %v", err)
		}
	}

	basisOne, err := one.Finalize(5)

	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	basisMany, err := many.Finalize(5)

	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	assertBasisEqual(t, basisOne, basisMany, 1e-7)
}

func TestTrainerParallelMerge(t *testing.T) {

	frames := synthFrames(200, 9, 40)

	// serial reference
	serial := NewTrainer()

	if err := serial.Observe(frames); err != nil {
		t.Fatalf("observe failed: %v", err)
	}

	want, err := serial.Finalize(4)

	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	// four workers accumulate partials independently and merge concurrently
	parallel := NewTrainer()

	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)

		go func(w int) {
			defer wg.Done()

			partial := NewSuffStats(9)

			if err := partial.Add(frames[w*50 : (w+1)*50]); err != nil {
				t.Errorf("worker %d add failed: %v", w, err)
				return
			}

			if err := parallel.MergePartial(partial); err != nil {
				t.Errorf("worker %d merge failed: %v", w, err)
			}
		}(w)
	}

	wg.Wait()

	got, err := parallel.Finalize(4)

	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	assertBasisEqual(t, want, got, 1e-7)
}

// assertOrthonormal checks every component has unit norm and distinct
// components are orthogonal
func assertOrthonormal(t *testing.T, b *Basis, epsilon float64) {

	t.Helper()

	for i := 0; i < b.K(); i++ {

		ri := b.Components.RawRowView(i)

		for j := i; j < b.K(); j++ {

			rj := b.Components.RawRowView(j)
			dot := 0.0

			for n := range ri {
				dot += ri[n] * rj[n]
			}

			want := 0.0

			if i == j {
				want = 1.0
			}

			if diff := dot - want; diff > epsilon || diff < -epsilon {
				t.Fatalf("component %d . component %d = %v, want %v", i, j, dot, want)
			}
		}
	}
}

// assertBasisEqual compares two bases elementwise.  The canonical sign
// convention means no sign freedom is left to account for.
func assertBasisEqual(t *testing.T, a, b *Basis, epsilon float64) {

	t.Helper()

	if a.K() != b.K() || a.Dim() != b.Dim() {
		t.Fatalf("basis shapes differ: %dx%d vs %dx%d",
			a.K(), a.Dim(), b.K(), b.Dim())
	}

	for i := range a.Mean {
		if diff := a.Mean[i] - b.Mean[i]; diff > epsilon || diff < -epsilon {
			t.Fatalf("mean[%d] differs: %v vs %v", i, a.Mean[i], b.Mean[i])
		}
	}

	for c := 0; c < a.K(); c++ {

		ra := a.Components.RawRowView(c)
		rb := b.Components.RawRowView(c)

		for i := range ra {
			if diff := ra[i] - rb[i]; diff > epsilon || diff < -epsilon {
				t.Fatalf("component %d entry %d differs: %v vs %v", c, i, ra[i], rb[i])
			}
		}

		if diff := a.ExplainedVariance[c] - b.ExplainedVariance[c]; diff > epsilon || diff < -epsilon {
			t.Fatalf("explained variance %d differs: %v vs %v",
				c, a.ExplainedVariance[c], b.ExplainedVariance[c])
		}
	}
}

func TestInvalidStateErrorMessage(t *testing.T) {

	err := &InvalidStateError{Op: "finalize", State: StateEmpty}

	want := "invalid state: cannot finalize trainer in state empty"

	if err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
}
