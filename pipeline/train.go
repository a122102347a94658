package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	mousepca "github.com/seqlab/go-mousepca"
	"github.com/seqlab/go-mousepca/output"
	"github.com/seqlab/go-mousepca/pca"
	"github.com/seqlab/go-mousepca/source"
)

// Train runs the training phase over every discovered session, folding
// cleaned frames into per-worker statistics, merging them, and saving the
// finalized basis.  Individual session failures are recorded in the
// report and the batch continues, an error is returned only when no basis
// could be produced at all.
func Train(ctx context.Context, cfg Config, log *slog.Logger) (*Report, error) {

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

	log.Info("training basis", "sessions", len(refs), "rank", cfg.Rank,
		"workers", cfg.Workers)

	// the corpus dimension is fixed before any worker starts so a session
	// of the wrong shape is skipped instead of poisoning a partial merge
	wantDim := corpusDim(prep, refs)

	report := NewReport()
	pool := NewPool(cfg.Workers)

	runSessions(ctx, cfg.Workers, refs, func(ref source.SessionRef) {

		acc := pool.Get()
		defer pool.Return(acc)

		if err := trainOne(prep, ref, acc, cfg.ChunkSize, wantDim); err != nil {
			report.fail(ref.Key(), err)
			log.Error("session failed", "session", ref.Key(), "error", err)
			return
		}

		report.ok(ref.Key())
		log.Info("session accumulated", "session", ref.Key())
	})

	if err := ctx.Err(); err != nil {
		return report, err
	}

	trainer := pca.NewTrainer()

	for _, stats := range pool.Drain() {
		if err := trainer.MergePartial(stats); err != nil {
			return report, fmt.Errorf("error merging partial statistics: %w", err)
		}
	}

	basis, err := trainer.Finalize(cfg.Rank)

	if err != nil {
		return report, fmt.Errorf("error finalizing basis: %w", err)
	}

	if err := output.SaveBasis(cfg.BasisPath(), basis); err != nil {
		return report, err
	}

	log.Info("basis saved", "path", cfg.BasisPath(),
		"observations", basis.Observations,
		"explained", totalRatio(basis))

	return report, nil
}

// corpusDim resolves the frame dimension every training session must match,
// the flip model's when one is configured, otherwise the first discovered
// session's
func corpusDim(prep *preparer, refs []source.SessionRef) int {

	if prep.flip != nil {
		return prep.flip.Dim()
	}

	return refs[0].Meta.Height * refs[0].Meta.Width
}

// trainOne folds one cleaned session into the worker's accumulator
func trainOne(prep *preparer, ref source.SessionRef, acc *accumulator,
	chunk, wantDim int) error {

	if dim := ref.Meta.Height * ref.Meta.Width; dim != wantDim {
		return &mousepca.ShapeMismatchError{
			Session: ref.Key(),
			Want:    wantDim,
			Got:     dim,
		}
	}

	s, err := prep.prepare(ref)

	if err != nil {
		return err
	}

	frames := s.ValidFrames()

	if len(frames) == 0 {
		return fmt.Errorf("session %s has no valid frames", ref.Key())
	}

	return acc.fold(frames, chunk)
}

// totalRatio sums the per-component explained variance ratios
func totalRatio(b *pca.Basis) float64 {

	var total float64

	for _, r := range b.ExplainedVarianceRatio {
		total += r
	}

	return total
}

// runSessions feeds refs through a bounded worker group, stopping the
// feed when ctx is cancelled
func runSessions(ctx context.Context, workers int, refs []source.SessionRef,
	fn func(source.SessionRef)) {

	jobs := make(chan source.SessionRef)

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for ref := range jobs {
				fn(ref)
			}
		}()
	}

feed:
	for _, ref := range refs {
		select {
		case jobs <- ref:
		case <-ctx.Done():
			break feed
		}
	}

	close(jobs)
	wg.Wait()
}
