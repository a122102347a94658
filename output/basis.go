package output

import (
	"archive/zip"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/seqlab/go-mousepca/pca"
)

// basis container entry names
const (
	meanEntry         = "mean"
	componentsEntry   = "components"
	singularEntry     = "singular_values"
	explainedEntry    = "explained_variance"
	explainedRatEntry = "explained_variance_ratio"
	observationsEntry = "num_observations"
)

// SaveBasis writes a trained basis to an npz container at path
func SaveBasis(path string, b *pca.Basis) error {

	w, err := newNpzWriter(path)

	if err != nil {
		return err
	}

	entries := []struct {
		name string
		val  interface{}
	}{
		{meanEntry, b.Mean},
		{componentsEntry, b.Components},
		{singularEntry, b.SingularValues},
		{explainedEntry, b.ExplainedVariance},
		{explainedRatEntry, b.ExplainedVarianceRatio},
		{observationsEntry, []float64{float64(b.Observations)}},
	}

	for _, e := range entries {
		if err := w.write(e.name, e.val); err != nil {
			w.abort()
			return err
		}
	}

	return w.Close()
}

// LoadBasis reads a basis container written by SaveBasis
func LoadBasis(path string) (*pca.Basis, error) {

	r, err := zip.OpenReader(path)

	if err != nil {
		return nil, fmt.Errorf("error opening basis container %s: %w", path, err)
	}

	defer r.Close()

	b := &pca.Basis{}
	var components mat.Dense
	var observations []float64

	seen := map[string]bool{}

	for _, entry := range r.File {

		switch entry.Name {

		case meanEntry + ".npy":
			err = readEntry(entry, &b.Mean)
		case componentsEntry + ".npy":
			err = readEntry(entry, &components)
		case singularEntry + ".npy":
			err = readEntry(entry, &b.SingularValues)
		case explainedEntry + ".npy":
			err = readEntry(entry, &b.ExplainedVariance)
		case explainedRatEntry + ".npy":
			err = readEntry(entry, &b.ExplainedVarianceRatio)
		case observationsEntry + ".npy":
			err = readEntry(entry, &observations)
		default:
			continue
		}

		if err != nil {
			return nil, err
		}

		seen[entry.Name] = true
	}

	for _, name := range []string{meanEntry, componentsEntry, explainedEntry} {
		if !seen[name+".npy"] {
			return nil, fmt.Errorf("basis container %s is missing the %s entry",
				path, name)
		}
	}

	b.Components = &components

	_, cols := components.Dims()

	if cols != len(b.Mean) {
		return nil, fmt.Errorf("basis container %s components width %d does not match mean length %d",
			path, cols, len(b.Mean))
	}

	if len(observations) == 1 {
		b.Observations = int(observations[0])
	}

	for _, v := range b.ExplainedVariance {
		b.TotalVariance += v
	}

	if b.ExplainedVarianceRatio != nil && b.ExplainedVarianceRatio[0] > 0 {
		// recover the corpus total from the leading component's ratio
		b.TotalVariance = b.ExplainedVariance[0] / b.ExplainedVarianceRatio[0]
	}

	return b, nil
}
