package output

import (
	"archive/zip"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ClipScores rewrites a scores container with n rows removed from the start
// of every session's score matrix, or from the end when fromEnd is set.
// Frame-index entries are clipped in step so alignment is preserved.
func ClipScores(path string, n int, fromEnd bool) error {

	if n < 1 {
		return fmt.Errorf("clip count must be positive, got %d", n)
	}

	r, err := zip.OpenReader(path)

	if err != nil {
		return fmt.Errorf("error opening scores container %s: %w", path, err)
	}

	w, err := newNpzWriter(path)

	if err != nil {
		r.Close()
		return err
	}

	for _, entry := range r.File {

		name := strings.TrimSuffix(entry.Name, ".npy")

		switch {

		case strings.HasPrefix(name, "scores/"):
			var m mat.Dense

			if err := readEntry(entry, &m); err != nil {
				w.abort()
				r.Close()
				return err
			}

			rows, cols := m.Dims()

			if rows <= n {
				w.abort()
				r.Close()
				return fmt.Errorf("entry %s has %d rows, cannot clip %d",
					name, rows, n)
			}

			var clipped mat.Dense

			if fromEnd {
				clipped.CloneFrom(m.Slice(0, rows-n, 0, cols))
			} else {
				clipped.CloneFrom(m.Slice(n, rows, 0, cols))
			}

			if err := w.write(name, &clipped); err != nil {
				w.abort()
				r.Close()
				return err
			}

		case strings.HasPrefix(name, "scores_idx/"):
			var idx []float64

			if err := readEntry(entry, &idx); err != nil {
				w.abort()
				r.Close()
				return err
			}

			if len(idx) <= n {
				w.abort()
				r.Close()
				return fmt.Errorf("entry %s has %d rows, cannot clip %d",
					name, len(idx), n)
			}

			if fromEnd {
				idx = idx[:len(idx)-n]
			} else {
				idx = idx[n:]
			}

			if err := w.write(name, idx); err != nil {
				w.abort()
				r.Close()
				return err
			}

		default:
			w.abort()
			r.Close()
			return fmt.Errorf("unexpected entry %s in scores container", entry.Name)
		}
	}

	r.Close()

	return w.Close()
}
