package pipeline

import (
	"sync"

	mousepca "github.com/seqlab/go-mousepca"
	"github.com/seqlab/go-mousepca/pca"
)

// accumulator folds frame chunks into a worker-local statistics block so
// concurrent sessions never contend on the shared trainer.
type accumulator struct {
	stats *pca.SuffStats
}

// fold adds frames in bounded chunks, sizing the statistics block off the
// first frame seen.
func (a *accumulator) fold(frames []mousepca.Frame, chunk int) error {

	if len(frames) == 0 {
		return nil
	}

	if a.stats == nil {
		a.stats = pca.NewSuffStats(len(frames[0]))
	}

	for lo := 0; lo < len(frames); lo += chunk {

		hi := lo + chunk

		if hi > len(frames) {
			hi = len(frames)
		}

		if err := a.stats.Add(frames[lo:hi]); err != nil {
			return err
		}
	}

	return nil
}

// Pool is a simple accumulator pool shared across the training workers
type Pool struct {
	// pool of accumulators
	accs chan *accumulator
	// size of pool
	size  int
	close sync.Once
}

// NewPool creates a new accumulator pool
func NewPool(size int) *Pool {
	p := &Pool{
		accs: make(chan *accumulator, size),
		size: size,
	}

	for i := 0; i < size; i++ {
		// attach to pool
		p.Return(&accumulator{})
	}

	return p
}

// Gets an accumulator from the pool
func (p *Pool) Get() *accumulator {
	return <-p.accs
}

// Return an accumulator to the pool
func (p *Pool) Return(acc *accumulator) {
	select {
	case p.accs <- acc:
	default:
		// pool is full or closed
	}
}

// Drain closes the pool and hands back every statistics block that saw
// data, ready to merge into a trainer
func (p *Pool) Drain() []*pca.SuffStats {

	var out []*pca.SuffStats

	p.close.Do(func() {
		// close channel
		close(p.accs)

		// collect all accumulators
		for next := range p.accs {
			if next.stats != nil {
				out = append(out, next.stats)
			}
		}
	})

	return out
}
