package source

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// frame storage formats
const (
	// FormatF16Raw is a single raw stack of little-endian float16 frames
	FormatF16Raw = "f16raw"
	// FormatTIFF is one 16-bit grayscale TIFF file per frame
	FormatTIFF = "tiff"
)

// MetaFile is the session metadata file name looked for during discovery
const MetaFile = "session.toml"

// Meta describes one extracted session on disk
type Meta struct {
	// UUID is the stable session key, generated when absent
	UUID string `toml:"uuid"`
	// Height of each frame in pixels
	Height int `toml:"height"`
	// Width of each frame in pixels
	Width int `toml:"width"`
	// Format of the frame data, f16raw or tiff
	Format string `toml:"format"`
	// FramesFile is the stack file for f16raw, or a glob of frame files
	// for tiff, relative to the session directory
	FramesFile string `toml:"frames_file"`
	// ValidFile is an optional per-frame byte mask, zero marks a dropped
	// frame
	ValidFile string `toml:"valid_file"`
	// FPS is the recording frame rate
	FPS float64 `toml:"fps"`
}

// ReadMeta loads and validates session metadata, filling defaults for
// optional fields
func ReadMeta(path string) (*Meta, error) {

	raw, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("error reading session metadata: %w", err)
	}

	m := &Meta{}

	if err := toml.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("error parsing session metadata %s: %w", path, err)
	}

	if m.Height < 1 || m.Width < 1 {
		return nil, fmt.Errorf("session metadata %s has invalid dimensions %dx%d",
			path, m.Height, m.Width)
	}

	if m.UUID == "" {
		m.UUID = uuid.NewString()
	}

	if m.Format == "" {
		m.Format = FormatF16Raw
	}

	if m.FramesFile == "" {
		switch m.Format {
		case FormatF16Raw:
			m.FramesFile = "frames.f16"
		case FormatTIFF:
			m.FramesFile = "frame_*.tif"
		}
	}

	if m.FPS <= 0 {
		m.FPS = 30
	}

	switch m.Format {
	case FormatF16Raw, FormatTIFF:
	default:
		return nil, fmt.Errorf("session metadata %s has unknown format %q",
			path, m.Format)
	}

	return m, nil
}
