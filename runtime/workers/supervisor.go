package workers

import (
	"chat-hub/contract"
	"chat-hub/errors"
	"chat-hub/observability"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const waitTimeBeforeRestart = 200 * time.Millisecond

// Supervisor owns the lifetime of the background workers of the hub
// Fanout, presence writes and idle detection each get one goroutine
// A panic or an error restarts the worker after a short delay
// Cancelling the parent context stops all of them
// Run returns once every goroutine is done (WaitGroup)
type Supervisor struct {
	Cancel  context.CancelFunc // Stops the supervised children only
	wg      *sync.WaitGroup    // One entry per running worker
	log     *slog.Logger
	workers []contract.Worker
}

func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{wg: &sync.WaitGroup{}, log: log}
}

// Run blocks until every worker returned.
// Stop only cancels the supervised children, not the parent context.
func (s *Supervisor) Run(ctx context.Context) {
	// 1. Derive the children context from the parent
	// Parent cancelled (server shutdown) => children cancelled
	// s.Cancel() => children cancelled, parent untouched
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	// Release the context once every worker returned
	defer s.Cancel()

	// 2. One supervised goroutine per registered worker

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs a worker under supervision.
// The worker gets its own goroutine. A panic is recovered and turned into
// ErrWorkerPanic, then handled like any other error: log, count, wait, restart.
// A worker returning nil is considered finished and is never restarted.
// Queued events of a restarted worker stay in its channel.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	workerName := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		for {
			if ctx.Err() != nil {
				s.log.Info(fmt.Sprintf("Stopping : %s", workerName))
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						s.log.Error("Worker panicked", "name", workerName, "panic", r)
						err = errors.ErrWorkerPanic
					}
				}()
				// Only this call is restarted after a crash,
				// the surrounding loop and its goroutine stay alive
				return worker.Run(ctx)
			}()

			if err == nil {
				// Finished on its own, never restart
				s.log.Info(fmt.Sprintf("Worker finished : %s", workerName))
				return
			}

			if ctx.Err() != nil {
				s.log.Info("Worker stopped (context canceled)", "name", workerName)
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", workerName, "error", err)
			observability.WorkerRestarts.WithLabelValues(workerName).Inc()
			select {
			case <-ctx.Done():
				// Shutdown wins over the restart delay
				return
			case <-time.After(waitTimeBeforeRestart):
				// Still running, loop and restart the worker
			}
		}
	}()
}

// Stop cancels the children context
// Run returns once every worker observed ctx.Done
func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}
