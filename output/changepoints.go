package output

import "fmt"

// ChangepointsFileName is the default changepoint container name.
const ChangepointsFileName = "changepoints.npz"

// ChangepointWriter appends per-session changepoint traces and peak
// indices to an npz container.
type ChangepointWriter struct {
	w *npzWriter
}

// NewChangepointWriter creates the container at path, writing through a
// temporary file in the same directory.
func NewChangepointWriter(path string) (*ChangepointWriter, error) {

	w, err := newNpzWriter(path)

	if err != nil {
		return nil, err
	}

	return &ChangepointWriter{w: w}, nil
}

// Add records one session's detected changepoint frames and the smoothed
// score trace behind them.
func (c *ChangepointWriter) Add(key string, trace []float64, peaks []int) error {

	idx := make([]float64, len(peaks))

	for i, p := range peaks {
		idx[i] = float64(p)
	}

	if err := c.w.write("cps/"+key, idx); err != nil {
		return fmt.Errorf("error writing changepoints for session %s: %w", key, err)
	}

	if err := c.w.write("cps_score/"+key, trace); err != nil {
		return fmt.Errorf("error writing score trace for session %s: %w", key, err)
	}

	return nil
}

// Close finalizes the container and moves it into place.
func (c *ChangepointWriter) Close() error {
	return c.w.Close()
}

// Abort discards the container without publishing it.
func (c *ChangepointWriter) Abort() {
	c.w.abort()
}
