package saga

import (
	"context"
	"errors"
	"testing"
)

type recordingStore struct {
	*MemoryStore
	states []State
	lastID string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: NewMemoryStore()}
}

func (s *recordingStore) Save(ctx context.Context, log *Log) error {
	s.states = append(s.states, log.State)
	s.lastID = log.ID
	return s.MemoryStore.Save(ctx, log)
}

func (s *recordingStore) Update(ctx context.Context, log *Log) error {
	s.states = append(s.states, log.State)
	return s.MemoryStore.Update(ctx, log)
}

func TestExecutorRun(t *testing.T) {
	store := NewMemoryStore()
	executor := NewExecutor(store)

	var executed []string
	steps := []Step{
		NewStep("first", func(context.Context) error {
			executed = append(executed, "first")
			return nil
		}, nil),
		NewStep("second", func(context.Context) error {
			executed = append(executed, "second")
			return nil
		}, nil),
	}

	if err := executor.Run(context.Background(), "test-saga", "corr-1", steps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(executed) != 2 || executed[0] != "first" || executed[1] != "second" {
		t.Fatalf("unexpected execution order: %v", executed)
	}
}

func TestExecutorRun_CompensatesInReverse(t *testing.T) {
	executor := NewExecutor(NewMemoryStore())

	var compensated []string
	steps := []Step{
		NewStep("one", func(context.Context) error { return nil },
			func(context.Context) error {
				compensated = append(compensated, "one")
				return nil
			}),
		NewStep("two", func(context.Context) error { return nil },
			func(context.Context) error {
				compensated = append(compensated, "two")
				return nil
			}),
		NewStep("boom", func(context.Context) error {
			return errors.New("step failed")
		}, func(context.Context) error {
			// 失败步骤自身不补偿
			compensated = append(compensated, "boom")
			return nil
		}),
	}

	err := executor.Run(context.Background(), "test-saga", "corr-1", steps)
	if err == nil || err.Error() != "step failed" {
		t.Fatalf("expected cause returned unchanged, got %v", err)
	}
	if len(compensated) != 2 || compensated[0] != "two" || compensated[1] != "one" {
		t.Fatalf("expected reverse compensation of completed steps, got %v", compensated)
	}
}

func TestExecutorRun_KeepsCauseWhenCompensationFails(t *testing.T) {
	executor := NewExecutor(NewMemoryStore())

	cause := errors.New("step failed")
	steps := []Step{
		NewStep("one", func(context.Context) error { return nil },
			func(context.Context) error { return errors.New("undo failed") }),
		NewStep("boom", func(context.Context) error { return cause }, nil),
	}

	err := executor.Run(context.Background(), "test-saga", "corr-1", steps)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause preserved for errors.Is, got %v", err)
	}
}

func TestExecutorRun_PersistsLog(t *testing.T) {
	store := newRecordingStore()
	executor := NewExecutor(store)

	steps := []Step{
		NewStep("only", func(context.Context) error { return nil }, nil),
	}
	if err := executor.Run(context.Background(), "test-saga", "corr-1", steps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log, err := store.Get(context.Background(), store.lastID)
	if err != nil {
		t.Fatalf("load log: %v", err)
	}
	if log.State != StateCompleted {
		t.Fatalf("expected COMPLETED, got %s", log.State)
	}
	if log.Name != "test-saga" || log.CorrelationID != "corr-1" {
		t.Fatalf("unexpected log: %+v", log)
	}
	if len(log.Steps) != 1 || log.Steps[0] != "only" {
		t.Fatalf("unexpected steps: %v", log.Steps)
	}
	if len(store.states) == 0 || store.states[0] != StateRunning {
		t.Fatalf("expected log saved as RUNNING first, got %v", store.states)
	}
	if store.states[len(store.states)-1] != StateCompleted {
		t.Fatalf("expected final state COMPLETED, got %v", store.states)
	}
}

func TestExecutorRun_MarksFailed(t *testing.T) {
	store := newRecordingStore()
	executor := NewExecutor(store)

	steps := []Step{
		NewStep("boom", func(context.Context) error { return errors.New("step failed") }, nil),
	}
	if err := executor.Run(context.Background(), "test-saga", "corr-1", steps); err == nil {
		t.Fatal("expected error")
	}

	log, err := store.Get(context.Background(), store.lastID)
	if err != nil {
		t.Fatalf("load log: %v", err)
	}
	if log.State != StateFailed {
		t.Fatalf("expected FAILED, got %s", log.State)
	}
	if log.Error != "step failed" {
		t.Fatalf("expected recorded cause, got %q", log.Error)
	}
}
