package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"

	"github.com/seqlab/go-mousepca/changepoint"
	"github.com/seqlab/go-mousepca/output"
	"github.com/seqlab/go-mousepca/preprocess"
)

// Config holds the settings for a batch run.
type Config struct {
	// InputDir is scanned recursively for session directories
	InputDir string `toml:"input_dir"`
	// OutputDir receives the basis, score and changepoint containers
	OutputDir string `toml:"output_dir"`
	// Rank is the number of components kept in the basis
	Rank int `toml:"rank"`
	// ChunkSize bounds how many frames fold into the accumulator at once
	ChunkSize int `toml:"chunk_size"`
	// Workers is the number of sessions processed concurrently
	Workers int `toml:"workers"`

	// FlipModelFile points at a logistic flip classifier container,
	// empty disables orientation correction
	FlipModelFile string `toml:"flip_model_file"`

	// MinHeight and MaxHeight bound the depth values kept in a frame,
	// pixels outside the band are zeroed
	MinHeight float64 `toml:"min_height"`
	MaxHeight float64 `toml:"max_height"`

	// UseFFT projects the 2D spectral magnitude instead of raw pixels
	UseFFT bool `toml:"use_fft"`

	// GaussFilterSpace is the spatial gaussian kernel sigmas {x, y}
	GaussFilterSpace []float64 `toml:"gaussfilter_space"`
	// MedFilterSpace lists spatial median kernel sizes applied in order
	MedFilterSpace []int `toml:"medfilter_space"`
	// GaussFilterTime is the temporal gaussian sigma in frames
	GaussFilterTime float64 `toml:"gaussfilter_time"`
	// MedFilterTime lists temporal median window sizes applied in order
	MedFilterTime []int `toml:"medfilter_time"`
	// TailFilterShape is the structuring element shape, ellipse or rect
	TailFilterShape string `toml:"tailfilter_shape"`
	// TailFilterSize is the structuring element size {w, h}
	TailFilterSize []int `toml:"tailfilter_size"`

	// ROIPolygon is a flat list of x,y vertex pairs bounding the arena,
	// empty keeps the full frame
	ROIPolygon []int `toml:"roi_polygon"`
	// ROIMargin insets the polygon by this many pixels before masking
	ROIMargin float64 `toml:"roi_margin"`

	// Changepoints configures the block structure detector
	Changepoints ChangepointConfig `toml:"changepoints"`
}

// ChangepointConfig configures changepoint detection over score matrices.
type ChangepointConfig struct {
	NumProjections int     `toml:"num_projections"`
	KLags          int     `toml:"k_lags"`
	Sigma          float64 `toml:"sigma"`
	PeakHeight     float64 `toml:"peak_height"`
	PeakNeighbors  int     `toml:"peak_neighbors"`
	Seed           uint64  `toml:"seed"`
}

// DefaultConfig returns a Config with working defaults for everything
// except the input and output directories.
func DefaultConfig() Config {

	cps := changepoint.DefaultParams()

	return Config{
		Rank:      50,
		ChunkSize: 4000,
		Workers:   runtime.NumCPU(),
		MinHeight: 10,
		MaxHeight: 100,
		Changepoints: ChangepointConfig{
			NumProjections: cps.NumProjections,
			KLags:          cps.KLags,
			Sigma:          cps.Sigma,
			PeakHeight:     cps.PeakHeight,
			PeakNeighbors:  cps.PeakNeighbors,
			Seed:           cps.Seed,
		},
	}
}

// LoadConfig reads a TOML config file over the defaults.
func LoadConfig(path string) (Config, error) {

	cfg := DefaultConfig()

	buf, err := os.ReadFile(path)

	if err != nil {
		return cfg, fmt.Errorf("error reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the settings for contradictions before a run starts.
func (c *Config) Validate() error {

	if c.InputDir == "" {
		return fmt.Errorf("input_dir is required")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}

	if c.Rank < 1 {
		return fmt.Errorf("rank must be positive, got %d", c.Rank)
	}

	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}

	if c.MaxHeight <= c.MinHeight {
		return fmt.Errorf("max_height %v must exceed min_height %v",
			c.MaxHeight, c.MinHeight)
	}

	if len(c.GaussFilterSpace) != 0 && len(c.GaussFilterSpace) != 2 {
		return fmt.Errorf("gaussfilter_space needs two sigmas, got %d",
			len(c.GaussFilterSpace))
	}

	if len(c.TailFilterSize) != 0 && len(c.TailFilterSize) != 2 {
		return fmt.Errorf("tailfilter_size needs width and height, got %d",
			len(c.TailFilterSize))
	}

	if len(c.ROIPolygon) > 0 {
		if len(c.ROIPolygon)%2 != 0 {
			return fmt.Errorf("roi_polygon needs x,y pairs, got %d values",
				len(c.ROIPolygon))
		}

		if len(c.ROIPolygon) < 6 {
			return fmt.Errorf("roi_polygon needs at least three vertices")
		}
	}

	if c.Changepoints.NumProjections < 1 {
		return fmt.Errorf("changepoints.num_projections must be positive")
	}

	if c.Changepoints.KLags < 1 {
		return fmt.Errorf("changepoints.k_lags must be positive")
	}

	return nil
}

// CleanParams maps the filter settings onto the preprocessing layer.
func (c *Config) CleanParams() preprocess.CleanParams {

	p := preprocess.CleanParams{
		MedFilterSpace:  c.MedFilterSpace,
		GaussFilterTime: c.GaussFilterTime,
		MedFilterTime:   c.MedFilterTime,
		TailFilterShape: c.TailFilterShape,
	}

	if len(c.GaussFilterSpace) == 2 {
		p.GaussFilterSpace = [2]float64{c.GaussFilterSpace[0], c.GaussFilterSpace[1]}
	}

	if len(c.TailFilterSize) == 2 {
		p.TailFilterSize = [2]int{c.TailFilterSize[0], c.TailFilterSize[1]}
	}

	return p
}

// ChangepointParams maps the detector settings onto the changepoint layer.
func (c *Config) ChangepointParams() changepoint.Params {
	return changepoint.Params{
		NumProjections: c.Changepoints.NumProjections,
		KLags:          c.Changepoints.KLags,
		Sigma:          c.Changepoints.Sigma,
		PeakHeight:     c.Changepoints.PeakHeight,
		PeakNeighbors:  c.Changepoints.PeakNeighbors,
		Seed:           c.Changepoints.Seed,
	}
}

// BasisPath is the location of the trained basis container.
func (c *Config) BasisPath() string {
	return filepath.Join(c.OutputDir, output.BasisFileName)
}

// ScoresPath is the location of the projected scores container.
func (c *Config) ScoresPath() string {
	return filepath.Join(c.OutputDir, output.ScoresFileName)
}

// ChangepointsPath is the location of the changepoints container.
func (c *Config) ChangepointsPath() string {
	return filepath.Join(c.OutputDir, output.ChangepointsFileName)
}
