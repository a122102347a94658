package pca

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Basis is the trained PCA artifact: the corpus mean, k orthonormal
// components and their variance profile.  A Basis is immutable once built
// and safe to share read-only across any number of goroutines.
type Basis struct {
	// Mean of the training corpus, length Dim
	Mean []float64
	// Components holds one unit-norm component per row, k x Dim, ordered by
	// decreasing explained variance
	Components *mat.Dense
	// SingularValues of the centered training matrix
	SingularValues []float64
	// ExplainedVariance per component (the covariance eigenvalues)
	ExplainedVariance []float64
	// ExplainedVarianceRatio per component against the total variance
	ExplainedVarianceRatio []float64
	// TotalVariance of the training corpus
	TotalVariance float64
	// Observations folded into the training statistics
	Observations int
}

// K returns the number of components
func (b *Basis) K() int {
	r, _ := b.Components.Dims()
	return r
}

// Dim returns the flattened frame dimension
func (b *Basis) Dim() int {
	return len(b.Mean)
}

// finalizeBasis eigendecomposes the covariance recovered from the
// statistics and keeps the top-k components under the canonical sign
// convention.
func finalizeBasis(stats *SuffStats, k int) (*Basis, error) {

	cov, err := stats.Covariance()

	if err != nil {
		return nil, err
	}

	mean, err := stats.Mean()

	if err != nil {
		return nil, err
	}

	var eig mat.EigenSym

	if ok := eig.Factorize(cov, true); !ok {
		return nil, fmt.Errorf("eigendecomposition of covariance failed")
	}

	// eigenvalues arrive in ascending order with matching eigenvector columns
	vals := eig.Values(nil)

	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	dim := stats.Dim
	components := mat.NewDense(k, dim, nil)

	explained := make([]float64, k)
	singular := make([]float64, k)

	totalVar := 0.0

	for _, v := range vals {
		totalVar += v
	}

	for c := 0; c < k; c++ {

		col := dim - 1 - c

		// negative eigenvalues are numerical noise in a rank-deficient
		// covariance, clamp them
		ev := vals[col]

		if ev < 0 {
			ev = 0
		}

		explained[c] = ev
		singular[c] = math.Sqrt(ev * float64(stats.Count-1))

		row := components.RawRowView(c)

		for i := 0; i < dim; i++ {
			row[i] = vecs.At(i, col)
		}

		canonicalizeSign(row)
	}

	ratio := make([]float64, k)

	if totalVar > 0 {
		for c := range explained {
			ratio[c] = explained[c] / totalVar
		}
	}

	return &Basis{
		Mean:                   mean,
		Components:             components,
		SingularValues:         singular,
		ExplainedVariance:      explained,
		ExplainedVarianceRatio: ratio,
		TotalVariance:          totalVar,
		Observations:           stats.Count,
	}, nil
}

// canonicalizeSign flips a component so its largest-magnitude entry is
// positive.  Eigenvector sign is arbitrary, fixing it makes independent
// training runs agree exactly.
func canonicalizeSign(row []float64) {

	maxIdx := 0
	maxAbs := 0.0

	for i, v := range row {
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
			maxIdx = i
		}
	}

	if row[maxIdx] < 0 {
		for i := range row {
			row[i] = -row[i]
		}
	}
}
