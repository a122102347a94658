package preprocess

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	mousepca "github.com/seqlab/go-mousepca"
)

// CleanParams holds the frame filtering configuration.  Zero values disable
// the corresponding filter.
type CleanParams struct {
	// GaussFilterSpace is the x, y sigma of the spatial gaussian filter
	GaussFilterSpace [2]float64
	// MedFilterSpace lists spatial median kernel sizes applied in order
	MedFilterSpace []int
	// GaussFilterTime is the sigma of the temporal gaussian filter
	GaussFilterTime float64
	// MedFilterTime lists temporal median window sizes applied in order
	MedFilterTime []int
	// TailFilterShape selects the structuring element, ellipse or rect
	TailFilterShape string
	// TailFilterSize is the structuring element size, zero disables
	TailFilterSize [2]int
}

// SpatialActive reports whether any per-frame filter is enabled
func (p CleanParams) SpatialActive() bool {

	if p.GaussFilterSpace[0] > 0 || p.GaussFilterSpace[1] > 0 {
		return true
	}

	for _, k := range p.MedFilterSpace {
		if k > 0 {
			return true
		}
	}

	return p.TailFilterSize[0] > 0 && p.TailFilterSize[1] > 0
}

// TemporalActive reports whether any cross-frame filter is enabled
func (p CleanParams) TemporalActive() bool {

	if p.GaussFilterTime > 0 {
		return true
	}

	for _, k := range p.MedFilterTime {
		if k > 0 {
			return true
		}
	}

	return false
}

// CleanSession returns a copy of the session with all enabled filters
// applied to its valid frames.  Temporal filters run first over the valid
// frame sequence, then each frame is filtered spatially.  Invalid frames
// pass through untouched.
func CleanSession(s *mousepca.Session, p CleanParams) (*mousepca.Session, error) {

	out := &mousepca.Session{
		Key:    s.Key,
		Height: s.Height,
		Width:  s.Width,
		Frames: make([]mousepca.Frame, len(s.Frames)),
		Valid:  make([]bool, len(s.Valid)),
	}

	copy(out.Valid, s.Valid)
	copy(out.Frames, s.Frames)

	if !p.SpatialActive() && !p.TemporalActive() {
		return out, nil
	}

	// collect valid frame indexes so temporal neighbors skip dropped frames
	validIdx := make([]int, 0, len(s.Frames))

	for i, v := range s.Valid {
		if v {
			validIdx = append(validIdx, i)
		}
	}

	frames := make([]mousepca.Frame, len(validIdx))

	for n, i := range validIdx {
		frames[n] = s.Frames[i]
	}

	for _, w := range p.MedFilterTime {
		if w > 0 {
			frames = TemporalMedian(frames, w)
		}
	}

	if p.GaussFilterTime > 0 {
		frames = TemporalGaussian(frames, p.GaussFilterTime)
	}

	if p.SpatialActive() {

		sf, err := newSpatialFilter(s.Height, s.Width, p)

		if err != nil {
			return nil, &mousepca.SessionError{Key: s.Key, Err: err}
		}

		defer sf.Close()

		for n := range frames {
			frames[n] = sf.Apply(frames[n])
		}
	}

	for n, i := range validIdx {
		out.Frames[i] = frames[n]
	}

	return out, nil
}

// spatialFilter applies the per-frame gocv filters reusing one pair of Mats
// for the whole session
type spatialFilter struct {
	height  int
	width   int
	params  CleanParams
	src     gocv.Mat
	dst     gocv.Mat
	kernel  gocv.Mat
	useTail bool
}

// newSpatialFilter allocates the Mats and structuring element for the
// enabled spatial filters
func newSpatialFilter(height, width int, p CleanParams) (*spatialFilter, error) {

	sf := &spatialFilter{
		height: height,
		width:  width,
		params: p,
		src:    gocv.NewMatWithSizes([]int{height, width}, gocv.MatTypeCV32F),
		dst:    gocv.NewMat(),
	}

	if p.TailFilterSize[0] > 0 && p.TailFilterSize[1] > 0 {

		var shape gocv.MorphShape

		switch p.TailFilterShape {
		case "", "ellipse":
			shape = gocv.MorphEllipse
		case "rect":
			shape = gocv.MorphRect
		default:
			sf.Close()
			return nil, fmt.Errorf("unknown tail filter shape %q", p.TailFilterShape)
		}

		sf.kernel = gocv.GetStructuringElement(shape,
			image.Pt(p.TailFilterSize[0], p.TailFilterSize[1]))
		sf.useTail = true
	}

	return sf, nil
}

// Close frees the Mats allocated for filtering
func (sf *spatialFilter) Close() {

	_ = sf.src.Close()
	_ = sf.dst.Close()

	if sf.useTail {
		_ = sf.kernel.Close()
	}
}

// Apply filters a single frame and returns the cleaned copy
func (sf *spatialFilter) Apply(f mousepca.Frame) mousepca.Frame {

	data, err := sf.src.DataPtrFloat32()

	if err != nil {
		// the Mat is allocated continuous by construction
		return f
	}

	copy(data, f)

	// tail filter removes the thin high-frequency tail pixels via
	// morphological opening
	if sf.useTail {
		gocv.MorphologyEx(sf.src, &sf.dst, gocv.MorphOpen, sf.kernel)
		sf.dst.CopyTo(&sf.src)
	}

	for _, k := range sf.params.MedFilterSpace {
		if k > 0 {
			gocv.MedianBlur(sf.src, &sf.dst, k)
			sf.dst.CopyTo(&sf.src)
		}
	}

	if sf.params.GaussFilterSpace[0] > 0 || sf.params.GaussFilterSpace[1] > 0 {
		gocv.GaussianBlur(sf.src, &sf.dst, image.Pt(0, 0),
			sf.params.GaussFilterSpace[0], sf.params.GaussFilterSpace[1],
			gocv.BorderReflect)
		sf.dst.CopyTo(&sf.src)
	}

	out := make(mousepca.Frame, len(f))
	copy(out, data)

	return out
}
