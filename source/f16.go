package source

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/x448/float16"

	mousepca "github.com/seqlab/go-mousepca"
)

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}

// loadF16Stack reads a raw stack of little-endian float16 frames of the
// given dimensions
func loadF16Stack(path string, height, width int) ([]mousepca.Frame, error) {

	raw, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("error reading frame stack: %w", err)
	}

	frameBytes := height * width * 2

	if frameBytes == 0 || len(raw)%frameBytes != 0 {
		return nil, fmt.Errorf("frame stack %s size %d is not a multiple of the %dx%d frame size",
			path, len(raw), height, width)
	}

	count := len(raw) / frameBytes
	frames := make([]mousepca.Frame, count)

	for n := 0; n < count; n++ {

		f := make(mousepca.Frame, height*width)
		base := n * frameBytes

		for i := range f {
			bits := binary.LittleEndian.Uint16(raw[base+i*2:])
			f[i] = f16LookupTable[bits]
		}

		frames[n] = f
	}

	return frames, nil
}
