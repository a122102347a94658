package output

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
)

// npzWriter writes named npy entries into a zip container through a temp
// file, renaming into place on Close so readers never observe a partial
// container.
type npzWriter struct {
	path string
	tmp  *os.File
	zw   *zip.Writer
}

// newNpzWriter starts a container destined for path
func newNpzWriter(path string) (*npzWriter, error) {

	tmp, err := os.CreateTemp(filepath.Dir(path), ".npz-*")

	if err != nil {
		return nil, fmt.Errorf("error creating container temp file: %w", err)
	}

	return &npzWriter{
		path: path,
		tmp:  tmp,
		zw:   zip.NewWriter(tmp),
	}, nil
}

// write adds one named array entry.  val follows npyio.Write rules, a
// float64 slice writes a vector and a gonum matrix writes a 2D array.
func (w *npzWriter) write(name string, val interface{}) error {

	entry, err := w.zw.Create(name + ".npy")

	if err != nil {
		return fmt.Errorf("error creating container entry %s: %w", name, err)
	}

	if err := npyio.Write(entry, val); err != nil {
		return fmt.Errorf("error writing container entry %s: %w", name, err)
	}

	return nil
}

// Close finalizes the archive and atomically moves it into place
func (w *npzWriter) Close() error {

	if err := w.zw.Close(); err != nil {
		w.abort()
		return fmt.Errorf("error finalizing container: %w", err)
	}

	if err := w.tmp.Close(); err != nil {
		w.abort()
		return fmt.Errorf("error closing container: %w", err)
	}

	if err := os.Rename(w.tmp.Name(), w.path); err != nil {
		w.abort()
		return fmt.Errorf("error committing container %s: %w", w.path, err)
	}

	return nil
}

// abort removes the temp file after a failure
func (w *npzWriter) abort() {
	_ = w.tmp.Close()
	_ = os.Remove(w.tmp.Name())
}

// readEntry decodes one npy entry into dst, which follows npyio.Read rules
func readEntry(entry *zip.File, dst interface{}) error {

	r, err := entry.Open()

	if err != nil {
		return fmt.Errorf("error opening container entry %s: %w", entry.Name, err)
	}

	defer r.Close()

	if err := npyio.Read(r, dst); err != nil {
		return fmt.Errorf("error decoding container entry %s: %w", entry.Name, err)
	}

	return nil
}
