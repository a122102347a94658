package source

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/image/tiff"

	mousepca "github.com/seqlab/go-mousepca"
)

// loadTIFFStack reads one 16-bit grayscale TIFF per frame, matched by glob
// pattern and ordered lexically by file name
func loadTIFFStack(pattern string, height, width int) ([]mousepca.Frame, error) {

	paths, err := filepath.Glob(pattern)

	if err != nil {
		return nil, fmt.Errorf("bad frame file pattern %s: %w", pattern, err)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no frame files match %s", pattern)
	}

	sort.Strings(paths)

	frames := make([]mousepca.Frame, len(paths))

	for n, path := range paths {

		f, err := loadTIFFFrame(path, height, width)

		if err != nil {
			return nil, err
		}

		frames[n] = f
	}

	return frames, nil
}

// loadTIFFFrame decodes a single frame file
func loadTIFFFrame(path string, height, width int) (mousepca.Frame, error) {

	r, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("error opening frame file: %w", err)
	}

	defer r.Close()

	img, err := tiff.Decode(r)

	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}

	bounds := img.Bounds()

	if bounds.Dx() != width || bounds.Dy() != height {
		return nil, &mousepca.ShapeMismatchError{
			Want: height * width,
			Got:  bounds.Dx() * bounds.Dy(),
		}
	}

	frame := make(mousepca.Frame, height*width)

	switch im := img.(type) {

	case *image.Gray16:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				frame[y*width+x] = float32(im.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}

	case *image.Gray:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				frame[y*width+x] = float32(im.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}

	default:
		return nil, fmt.Errorf("frame file %s is not grayscale", path)
	}

	return frame, nil
}
