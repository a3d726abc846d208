package trainer

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/anthill/game"
)

// rolloutPool runs whole simulations on a fixed set of goroutines. Engines
// share no state, so each job owns its simulation for the whole rollout.
type rolloutPool struct {
	workers int
}

func newRolloutPool(workers int) *rolloutPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &rolloutPool{workers: workers}
}

// run steps every simulation ticks times and returns when all are done.
// A rollout is never interrupted once started.
func (p *rolloutPool) run(sims []*game.Simulation, ticks int) {
	workers := p.workers
	if workers > len(sims) {
		workers = len(sims)
	}

	jobs := make(chan *game.Simulation, len(sims))
	for _, s := range sims {
		jobs <- s
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				s.Run(ticks)
			}
		}()
	}
	wg.Wait()
}
