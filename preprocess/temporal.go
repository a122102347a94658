package preprocess

import (
	"math"
	"sort"

	mousepca "github.com/seqlab/go-mousepca"
)

// TemporalMedian filters each pixel with a median over a sliding window of
// frames.  The window is clamped at the sequence boundaries.  The input
// frames are not modified.
func TemporalMedian(frames []mousepca.Frame, window int) []mousepca.Frame {

	if window < 2 || len(frames) < 2 {
		return frames
	}

	half := window / 2
	out := make([]mousepca.Frame, len(frames))
	buf := make([]float64, 0, window)

	for n := range frames {

		lo := n - half

		if lo < 0 {
			lo = 0
		}

		hi := n + half + 1

		if hi > len(frames) {
			hi = len(frames)
		}

		f := make(mousepca.Frame, len(frames[n]))

		for i := range f {

			buf = buf[:0]

			for m := lo; m < hi; m++ {
				buf = append(buf, float64(frames[m][i]))
			}

			sort.Float64s(buf)
			f[i] = float32(median(buf))
		}

		out[n] = f
	}

	return out
}

// median of a sorted slice
func median(sorted []float64) float64 {

	n := len(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// TemporalGaussian smooths each pixel across frames with a gaussian kernel
// of the given sigma, truncated at three sigma and renormalized at the
// boundaries.  The input frames are not modified.
func TemporalGaussian(frames []mousepca.Frame, sigma float64) []mousepca.Frame {

	if sigma <= 0 || len(frames) < 2 {
		return frames
	}

	radius := int(math.Ceil(3 * sigma))

	kernel := make([]float64, 2*radius+1)

	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
	}

	out := make([]mousepca.Frame, len(frames))

	for n := range frames {

		f := make(mousepca.Frame, len(frames[n]))

		lo := n - radius

		if lo < 0 {
			lo = 0
		}

		hi := n + radius + 1

		if hi > len(frames) {
			hi = len(frames)
		}

		norm := 0.0

		for m := lo; m < hi; m++ {
			norm += kernel[m-n+radius]
		}

		for i := range f {

			acc := 0.0

			for m := lo; m < hi; m++ {
				acc += kernel[m-n+radius] * float64(frames[m][i])
			}

			f[i] = float32(acc / norm)
		}

		out[n] = f
	}

	return out
}
