package output

import (
	"archive/zip"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	mousepca "github.com/seqlab/go-mousepca"
)

// LoadScores reads every session's score matrix back from a scores
// container, keyed by session, in sorted key order.
func LoadScores(path string) ([]*mousepca.ScoreMatrix, error) {

	r, err := zip.OpenReader(path)

	if err != nil {
		return nil, fmt.Errorf("error opening scores container %s: %w", path, err)
	}

	defer r.Close()

	matrices := map[string]*mousepca.ScoreMatrix{}

	for _, entry := range r.File {

		name := strings.TrimSuffix(entry.Name, ".npy")

		if !strings.HasPrefix(name, "scores/") {
			continue
		}

		key := strings.TrimPrefix(name, "scores/")

		var m mat.Dense

		if err := readEntry(entry, &m); err != nil {
			return nil, err
		}

		rows, cols := m.Dims()

		sm := &mousepca.ScoreMatrix{
			Key:    key,
			K:      cols,
			Scores: make([][]float64, rows),
		}

		for i := 0; i < rows; i++ {
			sm.Scores[i] = mat.Row(nil, i, &m)
		}

		matrices[key] = sm
	}

	if len(matrices) == 0 {
		return nil, fmt.Errorf("scores container %s holds no sessions", path)
	}

	keys := make([]string, 0, len(matrices))

	for key := range matrices {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	out := make([]*mousepca.ScoreMatrix, 0, len(keys))

	for _, key := range keys {
		out = append(out, matrices[key])
	}

	return out, nil
}
