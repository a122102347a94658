package pipeline

import (
	"fmt"
	"image"

	mousepca "github.com/seqlab/go-mousepca"
	"github.com/seqlab/go-mousepca/preprocess"
	"github.com/seqlab/go-mousepca/source"
)

// preparer turns a discovered session directory into cleaned frames ready
// for accumulation or projection.  One preparer is shared across workers,
// every method on it is read-only after construction.
type preparer struct {
	flip    *mousepca.FlipModel
	clean   preprocess.CleanParams
	polygon []image.Point
	margin  float64
	minH    float32
	maxH    float32
	useFFT  bool
}

func newPreparer(cfg Config) (*preparer, error) {

	p := &preparer{
		clean:  cfg.CleanParams(),
		margin: cfg.ROIMargin,
		minH:   float32(cfg.MinHeight),
		maxH:   float32(cfg.MaxHeight),
		useFFT: cfg.UseFFT,
	}

	if cfg.FlipModelFile != "" {

		model, err := mousepca.LoadFlipModel(cfg.FlipModelFile)

		if err != nil {
			return nil, fmt.Errorf("error loading flip model: %w", err)
		}

		p.flip = model
	}

	for i := 0; i+1 < len(cfg.ROIPolygon); i += 2 {
		p.polygon = append(p.polygon, image.Point{
			X: cfg.ROIPolygon[i],
			Y: cfg.ROIPolygon[i+1],
		})
	}

	return p, nil
}

// prepare loads one session and runs the full cleaning chain, orientation
// correction first, then arena masking, height banding, filtering, and
// optionally the spectral transform.
func (p *preparer) prepare(ref source.SessionRef) (*mousepca.Session, error) {

	s, err := source.Load(ref)

	if err != nil {
		return nil, err
	}

	if p.flip != nil {

		s, err = p.flip.Apply(s)

		if err != nil {
			return nil, err
		}
	}

	if len(p.polygon) > 0 {

		roi := preprocess.ROI{Polygon: p.polygon}
		mask := roi.Mask(s.Height, s.Width, p.margin)

		s, err = preprocess.ApplyMask(s, mask)

		if err != nil {
			return nil, err
		}
	}

	s = p.clampHeights(s)

	s, err = preprocess.CleanSession(s, p.clean)

	if err != nil {
		return nil, err
	}

	if p.useFFT {
		s = preprocess.NewFFTMagnitude(s.Height, s.Width).ApplySession(s)
	}

	return s, nil
}

// clampHeights returns a copy of the session with depth values outside the
// configured band zeroed.  Invalid frames pass through unchanged.
func (p *preparer) clampHeights(s *mousepca.Session) *mousepca.Session {

	out := &mousepca.Session{
		Key:    s.Key,
		Height: s.Height,
		Width:  s.Width,
		Frames: make([]mousepca.Frame, len(s.Frames)),
		Valid:  make([]bool, len(s.Valid)),
	}

	copy(out.Valid, s.Valid)

	for i, f := range s.Frames {

		if f == nil || !s.Valid[i] {
			out.Frames[i] = f
			continue
		}

		nf := make(mousepca.Frame, len(f))

		for j, v := range f {
			if v < p.minH || v > p.maxH {
				nf[j] = 0
			} else {
				nf[j] = v
			}
		}

		out.Frames[i] = nf
	}

	return out
}
