package preprocess

import (
	"image"
	"testing"

	mousepca "github.com/seqlab/go-mousepca"
)

func TestROIMask(t *testing.T) {

	// square region covering the middle of an 8x8 frame
	roi := ROI{Polygon: []image.Point{
		{2, 2}, {6, 2}, {6, 6}, {2, 6},
	}}

	mask := roi.Mask(8, 8, 0)

	if !mask[4*8+4] {
		t.Fatal("center pixel must be inside the region")
	}

	if mask[0] || mask[7*8+7] {
		t.Fatal("corner pixels must be outside the region")
	}
}

func TestROIInsetShrinks(t *testing.T) {

	roi := ROI{Polygon: []image.Point{
		{0, 0}, {100, 0}, {100, 100}, {0, 100},
	}}

	inset := ROI{Polygon: roi.Inset(10)}

	if len(inset.Polygon) < 3 {
		t.Fatalf("inset degenerated: %v", inset.Polygon)
	}

	for _, pt := range inset.Polygon {
		if pt.X < 9 || pt.X > 91 || pt.Y < 9 || pt.Y > 91 {
			t.Fatalf("inset vertex %v outside the shrunk square", pt)
		}
	}
}

func TestApplyMask(t *testing.T) {

	s := &mousepca.Session{
		Key:    "s",
		Height: 2,
		Width:  2,
		Frames: []mousepca.Frame{
			{5, 5, 5, 5},
			nil,
		},
		Valid: []bool{true, false},
	}

	mask := []bool{true, false, false, true}

	out, err := ApplyMask(s, mask)

	if err != nil {
		t.Fatalf("apply mask failed: %v", err)
	}

	want := mousepca.Frame{5, 0, 0, 5}

	for i := range want {
		if out.Frames[0][i] != want[i] {
			t.Fatalf("masked frame = %v, want %v", out.Frames[0], want)
		}
	}

	if out.Frames[1] != nil {
		t.Fatal("invalid frame must pass through")
	}

	// source frame untouched
	if s.Frames[0][1] != 5 {
		t.Fatal("apply mask mutated its input")
	}
}

func TestApplyMaskShapeMismatch(t *testing.T) {

	s := &mousepca.Session{
		Key:    "s",
		Height: 2,
		Width:  2,
		Frames: []mousepca.Frame{{1, 2, 3, 4}},
		Valid:  []bool{true},
	}

	if _, err := ApplyMask(s, []bool{true}); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}
