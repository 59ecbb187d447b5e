package worker

import (
	"context"
	"log"
	"time"
)

// CycleFunc assembles and submits the jobs of one monitoring cycle.
type CycleFunc func(ctx context.Context, pool *WorkingPool) error

// JobScheduler runs one monitoring cycle on a fixed interval, submitting the
// cycle's per-farmer jobs to the pool.
type JobScheduler struct {
	Name   string
	Ticker *time.Ticker
	Pool   *WorkingPool
	cycle  CycleFunc
}

func NewJobScheduler(name string, interval time.Duration, pool *WorkingPool, cycle CycleFunc) *JobScheduler {
	return &JobScheduler{
		Name:   name,
		Ticker: time.NewTicker(interval),
		Pool:   pool,
		cycle:  cycle,
	}
}

func (s *JobScheduler) Run(ctx context.Context) {
	log.Printf("[Scheduler %s] Running.\n", s.Name)
	defer s.Ticker.Stop()

	for {
		select {
		case <-s.Ticker.C:
			if err := s.cycle(ctx, s.Pool); err != nil {
				log.Printf("[Scheduler %s] Cycle failed: %v\n", s.Name, err)
			}

		case <-ctx.Done():
			// The manager signaled a global shutdown
			log.Printf("[Scheduler %s] Shutting down.\n", s.Name)
			return
		}
	}
}
