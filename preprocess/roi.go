package preprocess

import (
	"image"

	clipper "github.com/ctessum/go.clipper"

	mousepca "github.com/seqlab/go-mousepca"
)

// ROI is a closed polygon marking the usable arena region of each frame.
// Pixels outside the region are zeroed before accumulation so reflections
// off the arena walls never enter the basis.
type ROI struct {
	// Polygon vertices in pixel coordinates
	Polygon []image.Point
}

// Inset returns the polygon shrunk inward by margin pixels using a round
// join polygon offset.  A zero margin returns the polygon unchanged.
func (r ROI) Inset(margin float64) []image.Point {

	if margin <= 0 || len(r.Polygon) < 3 {
		return r.Polygon
	}

	var path clipper.Path

	for _, pt := range r.Polygon {
		path = append(path, &clipper.IntPoint{
			X: clipper.CInt(pt.X),
			Y: clipper.CInt(pt.Y),
		})
	}

	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtRound, clipper.EtClosedPolygon)

	// negative distance offsets inward
	solution := co.Execute(-margin)

	if len(solution) == 0 {
		return nil
	}

	points := make([]image.Point, 0, len(solution[0]))

	for _, pt := range solution[0] {
		points = append(points, image.Point{X: int(pt.X), Y: int(pt.Y)})
	}

	return points
}

// Mask rasterizes the polygon inset by margin into a per-pixel boolean mask
// of the given frame dimensions, true marks pixels inside the region.
func (r ROI) Mask(height, width int, margin float64) []bool {

	mask := make([]bool, height*width)
	poly := r.Inset(margin)

	if len(poly) < 3 {
		return mask
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			mask[y*width+x] = pointInPolygon(x, y, poly)
		}
	}

	return mask
}

// pointInPolygon is an even-odd ray cast against the polygon edges
func pointInPolygon(x, y int, poly []image.Point) bool {

	inside := false
	px := float64(x) + 0.5
	py := float64(y) + 0.5

	j := len(poly) - 1

	for i := 0; i < len(poly); i++ {

		xi := float64(poly[i].X)
		yi := float64(poly[i].Y)
		xj := float64(poly[j].X)
		yj := float64(poly[j].Y)

		if (yi > py) != (yj > py) &&
			px < (xj-xi)*(py-yi)/(yj-yi)+xi {
			inside = !inside
		}

		j = i
	}

	return inside
}

// ApplyMask zeroes every pixel outside the mask in each valid frame,
// returning a new session.  The mask length must match the frame dimension.
func ApplyMask(s *mousepca.Session, mask []bool) (*mousepca.Session, error) {

	if len(mask) != s.Dim() {
		return nil, &mousepca.ShapeMismatchError{
			Session: s.Key,
			Want:    s.Dim(),
			Got:     len(mask),
		}
	}

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

		masked := make(mousepca.Frame, len(f))

		for p, v := range f {
			if mask[p] {
				masked[p] = v
			}
		}

		out.Frames[i] = masked
	}

	return out, nil
}
