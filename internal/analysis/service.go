package analysis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	autherror "github.com/fgimenez/mythril-ci/internal/errors"
	"github.com/google/uuid"
)

const queueCapacity = 256

// Service queues submissions and serves status and issue polls. Jobs live
// in memory; the durable state of the system is the users and sessions, a
// lost queue only means resubmitting.
type Service struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	queue  chan string
	engine Engine
}

func NewService(engine Engine) *Service {
	return &Service{
		jobs:   make(map[string]*Job),
		queue:  make(chan string, queueCapacity),
		engine: engine,
	}
}

// Submit validates and enqueues one analysis. Types other than bytecode are
// rejected; the queue being full is a request-scoped failure, not a block.
func (s *Service) Submit(_ context.Context, jobType string, contracts []string) (*Job, error) {
	if jobType != "bytecode" {
		return nil, autherror.Validation("unsupported analysis type %q", jobType)
	}
	if len(contracts) == 0 {
		return nil, autherror.Validation("no contract data submitted")
	}
	for _, c := range contracts {
		if c == "" {
			return nil, autherror.Validation("empty contract data submitted")
		}
	}

	now := time.Now()
	job := &Job{
		UUID:        uuid.NewString(),
		Type:        jobType,
		Contracts:   contracts,
		Status:      StatusQueued,
		SubmittedAt: now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.jobs[job.UUID] = job
	s.mu.Unlock()

	// Snapshot before publishing the id: once it is on the queue the worker
	// may be mutating the job under its own lock.
	out := snapshot(job)

	select {
	case s.queue <- job.UUID:
	default:
		s.mu.Lock()
		delete(s.jobs, job.UUID)
		s.mu.Unlock()
		return nil, autherror.Validation("analysis queue is full, retry later")
	}

	return out, nil
}

// Get returns the current state of a job. Unknown ids are a client error.
func (s *Service) Get(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, autherror.Validation("analysis %s not found", id)
	}
	return snapshot(job), nil
}

// Issues returns the findings of a finished job.
func (s *Service) Issues(_ context.Context, id string) ([]Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, autherror.Validation("analysis %s not found", id)
	}
	if job.Status != StatusFinished {
		return nil, autherror.Validation("analysis %s has not finished", id)
	}

	issues := make([]Issue, len(job.Issues))
	copy(issues, job.Issues)
	return issues, nil
}

// Run drains the queue until the context is cancelled, one job at a time.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.queue:
			s.process(ctx, id)
		}
	}
}

func (s *Service) process(ctx context.Context, id string) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	job.Status = StatusInProgress
	job.UpdatedAt = time.Now()
	contracts := job.Contracts
	s.mu.Unlock()

	issues, err := s.engine.Analyze(ctx, contracts)

	s.mu.Lock()
	defer s.mu.Unlock()
	job.UpdatedAt = time.Now()
	if err != nil {
		job.Status = StatusError
		job.Error = err.Error()
		slog.Warn("analysis failed", "uuid", id, "error", err)
		return
	}
	job.Status = StatusFinished
	job.Issues = issues
}

func snapshot(job *Job) *Job {
	out := *job
	out.Contracts = nil
	out.Issues = nil
	return &out
}
