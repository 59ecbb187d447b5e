package worker

import (
	"context"
	"log"
	"sync"
)

// Job is one unit of work executed by the pool.
type Job func(ctx context.Context) error

type WorkingPool struct {
	NumWorkers int
	jobChan    chan Job
}

func NewWorkingPool(numWorkers int, queueSize int) *WorkingPool {
	return &WorkingPool{
		NumWorkers: numWorkers,
		jobChan:    make(chan Job, queueSize),
	}
}

// SubmitJob enqueues a job, blocking while the queue is full.
func (p *WorkingPool) SubmitJob(ctx context.Context, job Job) error {
	select {
	case p.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *WorkingPool) Start(ctx context.Context, managerWg *sync.WaitGroup) {
	defer managerWg.Done() // Tell manager we are done

	var workerWg sync.WaitGroup

	for i := range p.NumWorkers {
		workerWg.Add(1)
		go p.worker(ctx, &workerWg, i+1)
	}

	// Wait for the manager to signal shutdown
	<-ctx.Done()

	log.Println("[WorkingPool] Shutdown signaled. Closing job channel.")
	close(p.jobChan)

	// Wait for all workers to finish their current job and exit
	workerWg.Wait()
	log.Println("[WorkingPool] All workers stopped.")
}

// worker is the internal goroutine for a single worker
func (p *WorkingPool) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()
	log.Printf("[WorkingPool-Worker %d] Started and waiting for jobs.\n", id)

	for {
		select {
		case job, ok := <-p.jobChan:
			if !ok {
				log.Printf("[WorkingPool-Worker %d] Job channel closed. Exiting.\n", id)
				return
			}

			p.safeExecution(ctx, job, id)

		case <-ctx.Done():
			log.Printf("[WorkingPool-Worker %d] Context canceled. Exiting.\n", id)
			return
		}
	}
}

func (p *WorkingPool) safeExecution(ctx context.Context, job Job, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WorkingPool-Worker %d] FATAL: Panic recovered in job: %v\n", workerID, r)
		}
	}()

	if err := job(ctx); err != nil {
		log.Printf("[WorkingPool-Worker %d] Error executing job: %s.\n", workerID, err)
	}
}
