package game

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/anthill/components"
)

// antPhase selects the per-ant work a chunk performs.
type antPhase uint8

const (
	phaseInference antPhase = iota
	phaseSensing
)

// workerScratch holds per-worker reusable buffers.
type workerScratch struct {
	inputs []float32
	values []float32
	dirs   []components.Vec2
}

// workChunk represents a range of ants for a worker to process.
type workChunk struct {
	start, end int
	phase      antPhase
}

// parallelState holds the persistent worker pool of one simulation.
type parallelState struct {
	scratches  []workerScratch
	numWorkers int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState(numWorkers int) *parallelState {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	return &parallelState{
		numWorkers: numWorkers,
		scratches:  make([]workerScratch, numWorkers),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(s *Simulation) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(s, i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker processes chunks until stopped.
func (p *parallelState) worker(s *Simulation, workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			s.runChunk(chunk, scratch)
			p.doneChan <- struct{}{}
		}
	}
}

// forEachAnt runs a per-ant phase over all n ants, on the pool when it
// is configured and the colony is large enough. Every ant only writes its
// own slots, so chunks never overlap.
func (s *Simulation) forEachAnt(phase antPhase, n int) {
	if s.parallel == nil || n < s.cfg.Simulation.ParallelThreshold {
		s.runChunk(workChunk{start: 0, end: n, phase: phase}, &s.serial)
		return
	}

	p := s.parallel
	if !p.running {
		p.startWorkers(s)
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end, phase: phase}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}

// runChunk processes ants [start, end) for one phase.
func (s *Simulation) runChunk(c workChunk, scratch *workerScratch) {
	switch c.phase {
	case phaseInference:
		for i := c.start; i < c.end; i++ {
			s.infer(i, scratch)
		}
	case phaseSensing:
		for i := c.start; i < c.end; i++ {
			s.sense(i, scratch)
		}
	}
}
