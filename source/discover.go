package source

import (
	"fmt"
	"io/fs"
	"path/filepath"
)

// SessionRef points at one discovered session directory
type SessionRef struct {
	// Dir is the session directory
	Dir string
	// Meta is the parsed session metadata
	Meta *Meta
}

// Key returns the stable session key
func (r SessionRef) Key() string {
	return r.Meta.UUID
}

// Discover walks the input directory for session.toml files and returns one
// reference per session, in lexical directory order so worklists are
// deterministic.
func Discover(dir string) ([]SessionRef, error) {

	var refs []SessionRef

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {

		if err != nil {
			return err
		}

		if d.IsDir() || d.Name() != MetaFile {
			return nil
		}

		meta, err := ReadMeta(path)

		if err != nil {
			return err
		}

		refs = append(refs, SessionRef{
			Dir:  filepath.Dir(path),
			Meta: meta,
		})

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("error discovering sessions in %s: %w", dir, err)
	}

	if len(refs) == 0 {
		return nil, fmt.Errorf("no sessions found in %s", dir)
	}

	return refs, nil
}
