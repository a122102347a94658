package output

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	mousepca "github.com/seqlab/go-mousepca"
)

// default container names within an output directory
const (
	BasisFileName  = "pca.npz"
	ScoresFileName = "pca_scores.npz"
)

// ScoreWriter persists one ScoreMatrix per session into a single scores
// container.  Add is safe to call from concurrent projection workers, the
// underlying archive is written serially behind a mutex.
type ScoreWriter struct {
	mu sync.Mutex
	w  *npzWriter
}

// NewScoreWriter starts a scores container destined for path
func NewScoreWriter(path string) (*ScoreWriter, error) {

	w, err := newNpzWriter(path)

	if err != nil {
		return nil, err
	}

	return &ScoreWriter{w: w}, nil
}

// Add writes one session's scores and their frame-index map.  The index
// entry carries the original frame position for valid rows and NaN for
// sentinel rows, mirroring the layout of the scores themselves.
func (sw *ScoreWriter) Add(sm *mousepca.ScoreMatrix) error {

	rows := len(sm.Scores)

	if rows == 0 {
		return fmt.Errorf("session %s produced no score rows", sm.Key)
	}

	flat := make([]float64, 0, rows*sm.K)
	idx := make([]float64, rows)

	for i, row := range sm.Scores {

		flat = append(flat, row...)

		if mousepca.IsSentinel(row) {
			idx[i] = math.NaN()
		} else {
			idx[i] = float64(i)
		}
	}

	scores := mat.NewDense(rows, sm.K, flat)

	sw.mu.Lock()
	defer sw.mu.Unlock()

	if err := sw.w.write("scores/"+sm.Key, scores); err != nil {
		return err
	}

	return sw.w.write("scores_idx/"+sm.Key, idx)
}

// Close finalizes and commits the container
func (sw *ScoreWriter) Close() error {

	sw.mu.Lock()
	defer sw.mu.Unlock()

	return sw.w.Close()
}

// Abort discards the partially written container
func (sw *ScoreWriter) Abort() {

	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.w.abort()
}
