package mousepca

import (
	"archive/zip"
	"fmt"

	"github.com/sbinet/npyio"
)

// FlipModel is a pre-trained logistic classifier over flattened raw frame
// pixels deciding whether a mouse faces the wrong way and the frame must be
// rotated 180 degrees before feature extraction.  The model is loaded once
// per run and shared read-only across all sessions.
type FlipModel struct {
	// Weights is one coefficient per pixel
	Weights []float64
	// Bias is the intercept term
	Bias float64
}

// flip model container entry names
const (
	flipCoefEntry      = "coef.npy"
	flipInterceptEntry = "intercept.npy"
)

// LoadFlipModel reads classifier weights from an npz container holding a
// "coef" vector of per-pixel coefficients and a single "intercept" value.
func LoadFlipModel(file string) (*FlipModel, error) {

	r, err := zip.OpenReader(file)

	if err != nil {
		return nil, fmt.Errorf("error opening flip model %s: %w", file, err)
	}

	defer r.Close()

	m := &FlipModel{}
	var haveCoef, haveBias bool

	for _, entry := range r.File {

		switch entry.Name {

		case flipCoefEntry:
			if err := readNpyFloats(entry, &m.Weights); err != nil {
				return nil, fmt.Errorf("error reading flip coefficients: %w", err)
			}
			haveCoef = true

		case flipInterceptEntry:
			var intercept []float64

			if err := readNpyFloats(entry, &intercept); err != nil {
				return nil, fmt.Errorf("error reading flip intercept: %w", err)
			}

			if len(intercept) != 1 {
				return nil, fmt.Errorf("flip intercept must hold a single value, got %d",
					len(intercept))
			}

			m.Bias = intercept[0]
			haveBias = true
		}
	}

	if !haveCoef || !haveBias {
		return nil, fmt.Errorf("flip model %s is missing coef or intercept entries",
			file)
	}

	return m, nil
}

// readNpyFloats decodes a single npy archive entry into a float64 slice
func readNpyFloats(entry *zip.File, dst *[]float64) error {

	f, err := entry.Open()

	if err != nil {
		return err
	}

	defer f.Close()

	return npyio.Read(f, dst)
}

// Dim returns the flattened frame dimension the model expects
func (m *FlipModel) Dim() int {
	return len(m.Weights)
}

// Predict reports whether the frame must be flipped to reach canonical
// orientation.  The decision is the sign of the logistic activation, frames
// already in canonical orientation predict keep.
func (m *FlipModel) Predict(f Frame) (bool, error) {

	if len(f) != len(m.Weights) {
		return false, &ShapeMismatchError{Want: len(m.Weights), Got: len(f)}
	}

	z := m.Bias

	for i, w := range m.Weights {
		z += w * float64(f[i])
	}

	return z > 0, nil
}

// Apply returns a copy of the session with every frame the classifier flags
// rotated 180 degrees.  Invalid frames are skipped and pass through as
// invalid.  A dimension mismatch between the session and the model fails the
// whole session with a ShapeMismatchError.
func (m *FlipModel) Apply(s *Session) (*Session, error) {

	if s.Dim() != len(m.Weights) {
		return nil, &ShapeMismatchError{
			Session: s.Key,
			Want:    len(m.Weights),
			Got:     s.Dim(),
		}
	}

	out := &Session{
		Key:    s.Key,
		Height: s.Height,
		Width:  s.Width,
		Frames: make([]Frame, len(s.Frames)),
		Valid:  make([]bool, len(s.Valid)),
	}

	copy(out.Valid, s.Valid)

	for i, f := range s.Frames {

		if !s.Valid[i] {
			out.Frames[i] = f
			continue
		}

		flip, err := m.Predict(f)

		if err != nil {
			return nil, &SessionError{Key: s.Key, Err: err}
		}

		if flip {
			out.Frames[i] = Rotate180(f)
		} else {
			out.Frames[i] = f
		}
	}

	return out, nil
}
