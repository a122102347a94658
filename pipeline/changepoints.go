package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	mousepca "github.com/seqlab/go-mousepca"
	"github.com/seqlab/go-mousepca/changepoint"
	"github.com/seqlab/go-mousepca/output"
)

// Changepoints scores the block structure of every session in the scores
// container and writes a changepoints container next to it.
func Changepoints(ctx context.Context, cfg Config, log *slog.Logger) (*Report, error) {

	matrices, err := output.LoadScores(cfg.ScoresPath())

	if err != nil {
		return nil, err
	}

	params := cfg.ChangepointParams()

	log.Info("scoring changepoints", "sessions", len(matrices),
		"projections", params.NumProjections)

	type result struct {
		trace []float64
		peaks []int
	}

	report := NewReport()
	results := make(map[string]result, len(matrices))

	var mu sync.Mutex

	jobs := make(chan *mousepca.ScoreMatrix)

	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for sm := range jobs {

				peaks, trace, err := changepoint.Compute(sm, params)

				if err != nil {
					report.fail(sm.Key, err)
					log.Error("session failed", "session", sm.Key, "error", err)
					continue
				}

				mu.Lock()
				results[sm.Key] = result{trace: trace, peaks: peaks}
				mu.Unlock()

				report.ok(sm.Key)
				log.Info("session scored", "session", sm.Key,
					"changepoints", len(peaks))
			}
		}()
	}

feed:
	for _, sm := range matrices {
		select {
		case jobs <- sm:
		case <-ctx.Done():
			break feed
		}
	}

	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	if report.Empty() {
		return report, fmt.Errorf("no session could be scored")
	}

	w, err := output.NewChangepointWriter(cfg.ChangepointsPath())

	if err != nil {
		return report, err
	}

	for _, key := range report.Succeeded() {

		res := results[key]

		if err := w.Add(key, res.trace, res.peaks); err != nil {
			w.Abort()
			return report, err
		}
	}

	if err := w.Close(); err != nil {
		return report, err
	}

	log.Info("changepoints saved", "path", cfg.ChangepointsPath())

	return report, nil
}
