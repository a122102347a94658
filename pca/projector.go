package pca

import (
	mousepca "github.com/seqlab/go-mousepca"
)

// Project computes per-frame scores for a session against a trained basis.
// Each valid frame is centered on the basis mean and dotted against every
// component, invalid frames produce an all-NaN sentinel row so the score
// matrix stays aligned with the source recording.  Projection is stateless
// and safe to run concurrently across sessions.
func Project(s *mousepca.Session, b *Basis) (*mousepca.ScoreMatrix, error) {

	if s.Dim() != b.Dim() {
		return nil, &mousepca.ShapeMismatchError{
			Session: s.Key,
			Want:    b.Dim(),
			Got:     s.Dim(),
		}
	}

	k := b.K()
	dim := b.Dim()

	out := &mousepca.ScoreMatrix{
		Key:    s.Key,
		K:      k,
		Scores: make([][]float64, len(s.Frames)),
	}

	centered := make([]float64, dim)

	for idx, f := range s.Frames {

		if !s.Valid[idx] {
			out.Scores[idx] = mousepca.SentinelRow(k)
			continue
		}

		for i, v := range f {
			centered[i] = float64(v) - b.Mean[i]
		}

		row := make([]float64, k)

		for c := 0; c < k; c++ {

			comp := b.Components.RawRowView(c)
			dot := 0.0

			for i, v := range centered {
				dot += v * comp[i]
			}

			row[c] = dot
		}

		out.Scores[idx] = row
	}

	return out, nil
}

// Reconstruct maps a score row back to pixel space, mean + scores times
// components.  With k equal to the training rank the reconstruction matches
// the original frame up to floating point error.
func Reconstruct(scores []float64, b *Basis) []float64 {

	dim := b.Dim()
	frame := make([]float64, dim)

	copy(frame, b.Mean)

	for c, score := range scores {

		comp := b.Components.RawRowView(c)

		for i := range frame {
			frame[i] += score * comp[i]
		}
	}

	return frame
}
