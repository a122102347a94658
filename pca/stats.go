package pca

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	mousepca "github.com/seqlab/go-mousepca"
)

// SuffStats are the sufficient statistics for PCA over a stream of flattened
// frames: the observation count, the per-pixel sum and the uncentered
// scatter matrix X'X.  Merging two SuffStats is elementwise addition, so the
// merge is commutative and associative and partial accumulations computed by
// independent workers reduce in any order.
type SuffStats struct {
	// Dim is the flattened frame dimension
	Dim int
	// Count is the number of observations folded in
	Count int
	// Sum holds per-pixel sums
	Sum []float64
	// Scatter is the uncentered second moment X'X
	Scatter *mat.SymDense
}

// NewSuffStats returns empty statistics for frames of the given flattened
// dimension
func NewSuffStats(dim int) *SuffStats {
	return &SuffStats{
		Dim:     dim,
		Sum:     make([]float64, dim),
		Scatter: mat.NewSymDense(dim, nil),
	}
}

// Add folds a chunk of flattened frames into the statistics.  Invalid frames
// must be excluded by the caller before this point.
func (s *SuffStats) Add(frames []mousepca.Frame) error {

	buf := make([]float64, s.Dim)
	vec := mat.NewVecDense(s.Dim, buf)

	for _, f := range frames {

		if len(f) != s.Dim {
			return &mousepca.ShapeMismatchError{Want: s.Dim, Got: len(f)}
		}

		for i, v := range f {
			buf[i] = float64(v)
			s.Sum[i] += buf[i]
		}

		s.Scatter.SymRankOne(s.Scatter, 1, vec)
		s.Count++
	}

	return nil
}

// Merge folds other into s.  Both sides must have the same dimension.
func (s *SuffStats) Merge(other *SuffStats) error {

	if other.Dim != s.Dim {
		return &mousepca.ShapeMismatchError{Want: s.Dim, Got: other.Dim}
	}

	s.Count += other.Count

	for i, v := range other.Sum {
		s.Sum[i] += v
	}

	s.Scatter.AddSym(s.Scatter, other.Scatter)

	return nil
}

// Mean returns the running mean vector.  It errors when nothing has been
// observed yet.
func (s *SuffStats) Mean() ([]float64, error) {

	if s.Count == 0 {
		return nil, fmt.Errorf("no observations accumulated")
	}

	mean := make([]float64, s.Dim)

	for i, v := range s.Sum {
		mean[i] = v / float64(s.Count)
	}

	return mean, nil
}

// Covariance recovers the sample covariance from the accumulated scatter.
// At least two observations are required for the ddof=1 estimate.
func (s *SuffStats) Covariance() (*mat.SymDense, error) {

	if s.Count < 2 {
		return nil, fmt.Errorf("covariance needs at least 2 observations, have %d",
			s.Count)
	}

	mean, err := s.Mean()

	if err != nil {
		return nil, err
	}

	cov := mat.NewSymDense(s.Dim, nil)
	cov.CopySym(s.Scatter)

	// X'X - n * mean mean' gives the centered scatter
	meanVec := mat.NewVecDense(s.Dim, mean)
	cov.SymRankOne(cov, -float64(s.Count), meanVec)

	cov.ScaleSym(1/float64(s.Count-1), cov)

	return cov, nil
}
