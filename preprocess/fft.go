package preprocess

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	mousepca "github.com/seqlab/go-mousepca"
)

// FFTMagnitude replaces each frame with the shifted magnitude of its 2D
// Fourier transform.  The magnitude spectrum is translation invariant, which
// removes residual centering jitter from the extraction step.
type FFTMagnitude struct {
	height  int
	width   int
	rowFFT  *fourier.CmplxFFT
	colFFT  *fourier.CmplxFFT
	rowBuf  []complex128
	colBuf  []complex128
	spectra []complex128
}

// NewFFTMagnitude returns a transform for frames of the given dimensions
func NewFFTMagnitude(height, width int) *FFTMagnitude {
	return &FFTMagnitude{
		height:  height,
		width:   width,
		rowFFT:  fourier.NewCmplxFFT(width),
		colFFT:  fourier.NewCmplxFFT(height),
		rowBuf:  make([]complex128, width),
		colBuf:  make([]complex128, height),
		spectra: make([]complex128, height*width),
	}
}

// Apply transforms a single frame, returning a new frame of the same
// dimensions holding the shifted magnitude spectrum
func (t *FFTMagnitude) Apply(f mousepca.Frame) mousepca.Frame {

	// row-wise transform
	for r := 0; r < t.height; r++ {

		for c := 0; c < t.width; c++ {
			t.rowBuf[c] = complex(float64(f[r*t.width+c]), 0)
		}

		coeff := t.rowFFT.Coefficients(nil, t.rowBuf)
		copy(t.spectra[r*t.width:(r+1)*t.width], coeff)
	}

	// column-wise transform completes the 2D FFT
	for c := 0; c < t.width; c++ {

		for r := 0; r < t.height; r++ {
			t.colBuf[r] = t.spectra[r*t.width+c]
		}

		coeff := t.colFFT.Coefficients(nil, t.colBuf)

		for r := 0; r < t.height; r++ {
			t.spectra[r*t.width+c] = coeff[r]
		}
	}

	out := make(mousepca.Frame, len(f))

	// magnitude with the zero frequency shifted to the center
	for r := 0; r < t.height; r++ {

		sr := (r + t.height/2) % t.height

		for c := 0; c < t.width; c++ {

			sc := (c + t.width/2) % t.width

			out[sr*t.width+sc] = float32(cmplx.Abs(t.spectra[r*t.width+c]))
		}
	}

	return out
}

// ApplySession transforms every valid frame of the session
func (t *FFTMagnitude) ApplySession(s *mousepca.Session) *mousepca.Session {

	out := &mousepca.Session{
		Key:    s.Key,
		Height: s.Height,
		Width:  s.Width,
		Frames: make([]mousepca.Frame, len(s.Frames)),
		Valid:  make([]bool, len(s.Valid)),
	}

	copy(out.Valid, s.Valid)

	for i, f := range s.Frames {

		if !s.Valid[i] {
			out.Frames[i] = f
			continue
		}

		out.Frames[i] = t.Apply(f)
	}

	return out
}
