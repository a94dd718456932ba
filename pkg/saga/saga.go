package saga

import (
	"context"
	"sync"
	"time"
)

// State represents the lifecycle state of a saga transaction.
type State string

const (
	StatePending      State = "PENDING"
	StateRunning      State = "RUNNING"
	StateCompleted    State = "COMPLETED"
	StateCompensating State = "COMPENSATING"
	StateFailed       State = "FAILED"
)

// Step is a saga unit of work with an optional compensating action.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

type funcStep struct {
	name       string
	execute    func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// NewStep builds a Step from closures. A nil compensate means the step's
// effects are left in place when a later step fails.
func NewStep(name string, execute, compensate func(ctx context.Context) error) Step {
	return &funcStep{name: name, execute: execute, compensate: compensate}
}

func (s *funcStep) Name() string { return s.name }

func (s *funcStep) Execute(ctx context.Context) error {
	if s.execute == nil {
		return nil
	}
	return s.execute(ctx)
}

func (s *funcStep) Compensate(ctx context.Context) error {
	if s.compensate == nil {
		return nil
	}
	return s.compensate(ctx)
}

// Log is the persisted record of a saga execution.
type Log struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	State         State     `json:"state"`
	Steps         []string  `json:"steps"`
	CurrentStep   int       `json:"currentStep"`
	Error         string    `json:"error,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Store persists and loads saga logs for recovery/observability.
type Store interface {
	Save(ctx context.Context, log *Log) error
	Get(ctx context.Context, id string) (*Log, error)
	Update(ctx context.Context, log *Log) error
}

// MemoryStore keeps saga logs in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	logs map[string]Log
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string]Log)}
}

func (s *MemoryStore) Save(_ context.Context, log *Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[log.ID] = *log
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[id]
	if !ok {
		return nil, ErrLogNotFound
	}
	out := log
	return &out, nil
}

func (s *MemoryStore) Update(_ context.Context, log *Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[log.ID] = *log
	return nil
}
