// Package schedule runs uniquely-keyed recurring maintenance jobs and
// supports administrator-triggered manual runs of the same job. Manual
// triggers take dispatch priority over queued recurring instances.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Task is a unit of reclamation-style work. It returns the number of
// items it processed.
type Task func(ctx context.Context) (int, error)

// Result is the outcome of a single job run.
type Result struct {
	JobID          string
	Success        bool
	ItemsReclaimed int
	DurationMs     int64
	Err            error
}

// ErrUnknownJob is returned when triggering an unregistered job ID.
var ErrUnknownJob = errors.New("unknown job")

// ErrClosed is returned when the scheduler has been shut down.
var ErrClosed = errors.New("scheduler closed")

type job struct {
	id     string
	every  time.Duration
	task   Task
	ticker *time.Ticker
}

type runRequest struct {
	job   *job
	reply chan Result
}

// Scheduler owns one worker goroutine; recurring and manual runs of the
// same job never overlap because the worker executes one run at a time.
type Scheduler struct {
	mu   sync.Mutex
	jobs map[string]*job

	recurring chan runRequest
	manual    chan runRequest
	done      chan struct{}
	wg        sync.WaitGroup
	closed    bool

	// OnResult, if set before the first registration, observes every
	// completed run, including recurring ones that have no caller.
	OnResult func(Result)
}

func New() *Scheduler {
	s := &Scheduler{
		jobs:      make(map[string]*job),
		recurring: make(chan runRequest, 16),
		manual:    make(chan runRequest, 4),
		done:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

// RegisterRecurring registers a job under a stable identifier and starts
// its cadence timer. Registering an already-registered ID is a no-op, so
// process restarts cannot create duplicate schedules.
func (s *Scheduler) RegisterRecurring(id string, every time.Duration, task Task) error {
	if id == "" || task == nil {
		return errors.New("job id and task are required")
	}
	if every <= 0 {
		return errors.New("cadence must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, exists := s.jobs[id]; exists {
		return nil
	}

	j := &job{
		id:     id,
		every:  every,
		task:   task,
		ticker: time.NewTicker(every),
	}
	s.jobs[id] = j

	s.wg.Add(1)
	go s.tickLoop(j)

	return nil
}

// TriggerNow queues a manual run of the job and returns a channel that
// receives the single Result. The call itself only acknowledges
// dispatch; it never blocks on the run.
func (s *Scheduler) TriggerNow(id string) (<-chan Result, error) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}

	reply := make(chan Result, 1)
	select {
	case s.manual <- runRequest{job: j, reply: reply}:
		return reply, nil
	case <-s.done:
		return nil, ErrClosed
	}
}

// Close stops all cadence timers and the worker. An in-flight run is
// allowed to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, j := range s.jobs {
		j.ticker.Stop()
	}
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) tickLoop(j *job) {
	defer s.wg.Done()
	for {
		select {
		case <-j.ticker.C:
			select {
			case s.recurring <- runRequest{job: j}:
			case <-s.done:
				return
			default:
				// A run for this cadence is already queued; skipping a
				// tick is preferable to piling up identical work.
			}
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			s.failPending()
			return
		default:
		}

		// Manual triggers drain before any queued recurring instance.
		select {
		case req := <-s.manual:
			s.execute(req)
			continue
		default:
		}

		select {
		case req := <-s.manual:
			s.execute(req)
		case req := <-s.recurring:
			s.execute(req)
		case <-s.done:
			s.failPending()
			return
		}
	}
}

// failPending answers manual triggers that were queued but never ran,
// so no caller stays blocked on a reply channel after shutdown.
func (s *Scheduler) failPending() {
	for {
		select {
		case req := <-s.manual:
			if req.reply != nil {
				req.reply <- Result{JobID: req.job.id, Success: false, Err: ErrClosed}
			}
		default:
			return
		}
	}
}

func (s *Scheduler) execute(req runRequest) {
	start := time.Now()
	items, err := req.job.task(context.Background())
	elapsed := time.Since(start).Milliseconds()

	res := Result{
		JobID:          req.job.id,
		Success:        err == nil,
		ItemsReclaimed: items,
		DurationMs:     elapsed,
		Err:            err,
	}
	if err != nil {
		log.Printf("authcore: job %s failed after %dms: %v", req.job.id, elapsed, err)
	}

	if s.OnResult != nil {
		s.OnResult(res)
	}
	if req.reply != nil {
		req.reply <- res
	}
}
