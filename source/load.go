package source

import (
	"fmt"
	"os"
	"path/filepath"

	mousepca "github.com/seqlab/go-mousepca"
)

// Load reads a discovered session's frames and validity mask into memory.
// All failures identify the session by key.
func Load(ref SessionRef) (*mousepca.Session, error) {

	meta := ref.Meta

	var frames []mousepca.Frame
	var err error

	framesPath := filepath.Join(ref.Dir, meta.FramesFile)

	switch meta.Format {
	case FormatF16Raw:
		frames, err = loadF16Stack(framesPath, meta.Height, meta.Width)
	case FormatTIFF:
		frames, err = loadTIFFStack(framesPath, meta.Height, meta.Width)
	default:
		err = fmt.Errorf("unknown format %q", meta.Format)
	}

	if err != nil {
		return nil, &mousepca.SessionError{Key: meta.UUID, Err: err}
	}

	valid, err := loadValidMask(ref, len(frames))

	if err != nil {
		return nil, &mousepca.SessionError{Key: meta.UUID, Err: err}
	}

	// dropped frames carry no pixel data
	for i, v := range valid {
		if !v {
			frames[i] = nil
		}
	}

	return &mousepca.Session{
		Key:    meta.UUID,
		Height: meta.Height,
		Width:  meta.Width,
		Frames: frames,
		Valid:  valid,
	}, nil
}

// loadValidMask reads the optional per-frame validity file.  Without one
// every frame is valid.
func loadValidMask(ref SessionRef, count int) ([]bool, error) {

	valid := make([]bool, count)

	if ref.Meta.ValidFile == "" {
		for i := range valid {
			valid[i] = true
		}
		return valid, nil
	}

	raw, err := os.ReadFile(filepath.Join(ref.Dir, ref.Meta.ValidFile))

	if err != nil {
		return nil, fmt.Errorf("error reading validity mask: %w", err)
	}

	if len(raw) != count {
		return nil, fmt.Errorf("validity mask holds %d entries for %d frames",
			len(raw), count)
	}

	for i, b := range raw {
		valid[i] = b != 0
	}

	return valid, nil
}
