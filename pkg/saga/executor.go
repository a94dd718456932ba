package saga

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrLogNotFound 日志不存在
var ErrLogNotFound = errors.New("saga log not found")

type Executor struct {
	store Store
}

func NewExecutor(store Store) *Executor {
	return &Executor{store: store}
}

// Run 执行 saga，失败时按逆序补偿已完成的步骤
//
// The causing step error is returned unwrapped so callers can inspect its
// type. Compensation failures are folded into the returned error text.
func (e *Executor) Run(ctx context.Context, name, correlationID string, steps []Step) error {
	now := time.Now()
	log := &Log{
		ID:            newID(),
		Name:          name,
		State:         StateRunning,
		Steps:         make([]string, len(steps)),
		CorrelationID: correlationID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i, step := range steps {
		log.Steps[i] = step.Name()
	}
	if err := e.store.Save(ctx, log); err != nil {
		return err
	}

	for i, step := range steps {
		log.CurrentStep = i
		log.UpdatedAt = time.Now()
		if err := e.store.Update(ctx, log); err != nil {
			return e.fail(ctx, log, steps, i, fmt.Errorf("saga log update failed: %w", err))
		}
		if err := step.Execute(ctx); err != nil {
			return e.fail(ctx, log, steps, i, err)
		}
	}

	log.State = StateCompleted
	log.CurrentStep = len(steps)
	log.Error = ""
	log.UpdatedAt = time.Now()
	return e.store.Update(ctx, log)
}

func (e *Executor) fail(ctx context.Context, log *Log, steps []Step, failed int, cause error) error {
	log.Error = cause.Error()
	log.State = StateCompensating
	log.UpdatedAt = time.Now()
	_ = e.store.Update(ctx, log)

	var compErr error
	for j := failed - 1; j >= 0; j-- {
		if err := steps[j].Compensate(ctx); err != nil && compErr == nil {
			compErr = err
		}
	}

	log.State = StateFailed
	log.UpdatedAt = time.Now()
	_ = e.store.Update(ctx, log)

	if compErr != nil {
		return fmt.Errorf("%w; compensate failed: %v", cause, compErr)
	}
	return cause
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
