package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/seqlab/go-mousepca/output"
	"github.com/seqlab/go-mousepca/pca"
	"github.com/seqlab/go-mousepca/source"
)

// Apply projects every discovered session onto a previously trained basis
// and writes the scores container.  Session failures are recorded and the
// batch continues, the container is only published when at least one
// session projected.
func Apply(ctx context.Context, cfg Config, log *slog.Logger) (*Report, error) {

	basis, err := output.LoadBasis(cfg.BasisPath())

	if err != nil {
		return nil, err
	}

	refs, err := source.Discover(cfg.InputDir)

	if err != nil {
		return nil, err
	}

	prep, err := newPreparer(cfg)

	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating output directory: %w", err)
	}

	log.Info("projecting sessions", "sessions", len(refs),
		"rank", basis.K(), "workers", cfg.Workers)

	sw, err := output.NewScoreWriter(cfg.ScoresPath())

	if err != nil {
		return nil, err
	}

	report := NewReport()

	runSessions(ctx, cfg.Workers, refs, func(ref source.SessionRef) {

		if err := applyOne(prep, ref, basis, sw); err != nil {
			report.fail(ref.Key(), err)
			log.Error("session failed", "session", ref.Key(), "error", err)
			return
		}

		report.ok(ref.Key())
		log.Info("session projected", "session", ref.Key())
	})

	if err := ctx.Err(); err != nil {
		sw.Abort()
		return report, err
	}

	if report.Empty() {
		sw.Abort()
		return report, fmt.Errorf("no session could be projected")
	}

	if err := sw.Close(); err != nil {
		return report, err
	}

	log.Info("scores saved", "path", cfg.ScoresPath(),
		"sessions", len(report.Succeeded()))

	return report, nil
}

// applyOne projects one cleaned session and hands the scores to the writer
func applyOne(prep *preparer, ref source.SessionRef, basis *pca.Basis,
	sw *output.ScoreWriter) error {

	s, err := prep.prepare(ref)

	if err != nil {
		return err
	}

	sm, err := pca.Project(s, basis)

	if err != nil {
		return err
	}

	return sw.Add(sm)
}
