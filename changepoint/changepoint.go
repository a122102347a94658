/*
Package changepoint derives model-free behavioral changepoints from PCA
scores.

Scores are pushed through seeded gaussian random projections, each
projection is smoothed and differentiated, and the per-frame derivative
energy is scanned for peaks.  Peak frames mark candidate transitions
between behavioral syllables.
*/
package changepoint

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	mousepca "github.com/seqlab/go-mousepca"
)

// Params configures changepoint detection
type Params struct {
	// NumProjections is the number of random projections
	NumProjections int
	// KLags is the derivative lag in frames
	KLags int
	// Sigma of the gaussian smoothing applied to each projection
	Sigma float64
	// PeakHeight is the minimum changepoint score for a peak
	PeakHeight float64
	// PeakNeighbors is the half-window a peak must dominate
	PeakNeighbors int
	// Seed for the projection matrix, fixed for reproducible runs
	Seed uint64
}

// DefaultParams mirror the standard analysis configuration
func DefaultParams() Params {
	return Params{
		NumProjections: 300,
		KLags:          6,
		Sigma:          3.5,
		PeakHeight:     0.5,
		PeakNeighbors:  1,
		Seed:           1,
	}
}

// Compute detects changepoints in one session's score matrix.  Sentinel
// rows are bridged by linear interpolation before projection so dropped
// frames never register as spurious transitions.  It returns the peak frame
// indices and the per-frame changepoint score trace.
func Compute(sm *mousepca.ScoreMatrix, p Params) ([]int, []float64, error) {

	if p.NumProjections < 1 || p.KLags < 1 {
		return nil, nil, fmt.Errorf("invalid changepoint parameters: %d projections, %d lags",
			p.NumProjections, p.KLags)
	}

	rows := interpolateSentinels(sm.Scores)

	if len(rows) <= 2*p.KLags {
		return nil, nil, fmt.Errorf("session %s has %d frames, need more than %d for lag %d",
			sm.Key, len(rows), 2*p.KLags, p.KLags)
	}

	rps := randomProjections(rows, p.NumProjections, p.Seed)

	trace := scoreTrace(rps, p.KLags, p.Sigma)

	peaks := detectPeaks(trace, p.PeakHeight, p.PeakNeighbors)

	return peaks, trace, nil
}

// interpolateSentinels replaces NaN sentinel rows with values interpolated
// linearly between the nearest valid rows.  Leading and trailing sentinels
// copy the nearest valid row.
func interpolateSentinels(scores [][]float64) [][]float64 {

	out := make([][]float64, len(scores))

	for i, row := range scores {

		if !mousepca.IsSentinel(row) {
			out[i] = row
			continue
		}

		prev, next := -1, -1

		for j := i - 1; j >= 0; j-- {
			if !mousepca.IsSentinel(scores[j]) {
				prev = j
				break
			}
		}

		for j := i + 1; j < len(scores); j++ {
			if !mousepca.IsSentinel(scores[j]) {
				next = j
				break
			}
		}

		filled := make([]float64, len(row))

		switch {

		case prev >= 0 && next >= 0:
			w := float64(i-prev) / float64(next-prev)

			for c := range filled {
				filled[c] = scores[prev][c]*(1-w) + scores[next][c]*w
			}

		case prev >= 0:
			copy(filled, scores[prev])

		case next >= 0:
			copy(filled, scores[next])
		}

		out[i] = filled
	}

	return out
}

// randomProjections projects score rows onto a seeded gaussian matrix and
// z-scores each projection
func randomProjections(rows [][]float64, n int, seed uint64) *mat.Dense {

	dim := len(rows[0])

	normal := distuv.Normal{
		Mu:    0,
		Sigma: 1,
		Src:   rand.NewSource(seed),
	}

	proj := mat.NewDense(dim, n, nil)

	for i := 0; i < dim; i++ {
		for j := 0; j < n; j++ {
			proj.Set(i, j, normal.Rand())
		}
	}

	data := mat.NewDense(len(rows), dim, nil)

	for i, row := range rows {
		data.SetRow(i, row)
	}

	var rps mat.Dense
	rps.Mul(data, proj)

	// z-score each projection so no direction dominates the energy
	frames, _ := rps.Dims()

	for j := 0; j < n; j++ {

		meanV := 0.0

		for i := 0; i < frames; i++ {
			meanV += rps.At(i, j)
		}

		meanV /= float64(frames)

		variance := 0.0

		for i := 0; i < frames; i++ {
			d := rps.At(i, j) - meanV
			variance += d * d
		}

		std := math.Sqrt(variance / float64(frames-1))

		if std == 0 {
			std = 1
		}

		for i := 0; i < frames; i++ {
			rps.Set(i, j, (rps.At(i, j)-meanV)/std)
		}
	}

	return &rps
}

// scoreTrace computes the per-frame changepoint score: each projection is
// gaussian smoothed and differentiated with the given lag, the score is the
// root mean squared derivative across projections.
func scoreTrace(rps *mat.Dense, klags int, sigma float64) []float64 {

	frames, n := rps.Dims()

	trace := make([]float64, frames)
	col := make([]float64, frames)

	for j := 0; j < n; j++ {

		mat.Col(col, j, rps)

		smoothed := gaussianSmooth(col, sigma)

		for t := range trace {

			lo := t - klags

			if lo < 0 {
				lo = 0
			}

			hi := t + klags

			if hi >= frames {
				hi = frames - 1
			}

			d := (smoothed[hi] - smoothed[lo]) / float64(hi-lo)
			trace[t] += d * d
		}
	}

	for t := range trace {
		trace[t] = math.Sqrt(trace[t] / float64(n))
	}

	return trace
}

// gaussianSmooth filters a series with a gaussian kernel truncated at three
// sigma and renormalized at the boundaries
func gaussianSmooth(series []float64, sigma float64) []float64 {

	if sigma <= 0 {
		out := make([]float64, len(series))
		copy(out, series)
		return out
	}

	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)

	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
	}

	out := make([]float64, len(series))

	for t := range series {

		lo := t - radius

		if lo < 0 {
			lo = 0
		}

		hi := t + radius + 1

		if hi > len(series) {
			hi = len(series)
		}

		acc, norm := 0.0, 0.0

		for m := lo; m < hi; m++ {
			w := kernel[m-t+radius]
			acc += w * series[m]
			norm += w
		}

		out[t] = acc / norm
	}

	return out
}

// detectPeaks returns indices whose score exceeds height and dominates the
// surrounding neighbor window
func detectPeaks(trace []float64, height float64, neighbors int) []int {

	if neighbors < 1 {
		neighbors = 1
	}

	var peaks []int

	for t := 0; t < len(trace); t++ {

		if trace[t] < height {
			continue
		}

		isPeak := true

		for d := -neighbors; d <= neighbors; d++ {

			m := t + d

			if d == 0 || m < 0 || m >= len(trace) {
				continue
			}

			if trace[m] > trace[t] {
				isPeak = false
				break
			}
		}

		if isPeak {
			peaks = append(peaks, t)

			// skip the rest of the dominated window
			t += neighbors
		}
	}

	return peaks
}
