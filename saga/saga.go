// Package saga implements Component J, the saga orchestrator: an ordered
// step list executed sequentially against shared data, with state
// persisted between steps and reverse-order compensation of the
// already-completed steps when a later step fails.
//
// There is no direct precedent for this orchestration shape elsewhere in
// the codebase this package was modeled on; it follows the same plain,
// table-driven, explicit-error-return style as the rest of the messaging
// core (no reflection, no hidden state, context-first signatures) rather
// than any one borrowed file.
package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arc-self/messaging-core/result"
)

// Status is a SagaState's lifecycle state.
type Status string

const (
	StatusPending      Status = "Pending"
	StatusRunning      Status = "Running"
	StatusCompleted    Status = "Completed"
	StatusFailed       Status = "Failed"
	StatusCompensating Status = "Compensating"
	StatusCompensated  Status = "Compensated"
)

// State[T] is the persisted record of one saga execution.
type State[T any] struct {
	SagaID             string
	SagaType           string
	Status             Status
	CurrentStepIndex   int
	Data               T
	CompletedStepNames []string
	ErrorMessage       string
	CreatedAt          time.Time
	CompletedAt        *time.Time
}

// Step is one unit of saga work: Execute advances data; Compensate
// reverses the effect of a prior Execute using the data as it stood
// after that step succeeded.
type Step[T any] interface {
	Name() string
	Execute(ctx context.Context, data T) (T, error)
	Compensate(ctx context.Context, data T) (T, error)
}

// Definition is an ISaga<T>: a named, ordered step list.
type Definition[T any] struct {
	SagaType string
	Steps    []Step[T]
}

// StateStore persists SagaState between steps and at compensation
// boundaries. The KV-backed cache (Component K) satisfies this via
// JSON-encoded Save/Load against the key `saga:{sagaId}`.
type StateStore interface {
	Save(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
}

// Orchestrator runs Definition[T] executions against a StateStore.
type Orchestrator[T any] struct {
	store StateStore
	log   *zap.Logger
}

// NewOrchestrator builds an Orchestrator persisting through store.
func NewOrchestrator[T any](store StateStore, log *zap.Logger) *Orchestrator[T] {
	return &Orchestrator[T]{store: store, log: log}
}

func stateKey(sagaID string) string { return "saga:" + sagaID }

// Execute runs def against initialData: sequential Execute calls,
// persisting state after every step; on any step's failure, it runs
// Compensate on every already-completed step in reverse order (never the
// failed step itself) and finalizes at StatusCompensated, returning the
// saga's final data and a *result.Error wrapping the original failure.
// On full success, it returns the final data with no error.
func (o *Orchestrator[T]) Execute(ctx context.Context, def Definition[T], sagaID string, initialData T) (T, error) {
	if sagaID == "" {
		id, _ := uuid.NewV7()
		sagaID = id.String()
	}

	state := State[T]{
		SagaID:    sagaID,
		SagaType:  def.SagaType,
		Status:    StatusRunning,
		Data:      initialData,
		CreatedAt: time.Now().UTC(),
	}
	o.persist(ctx, state)

	data := initialData
	for i, step := range def.Steps {
		state.CurrentStepIndex = i

		next, err := step.Execute(ctx, data)
		if err != nil {
			state.ErrorMessage = err.Error()
			return o.compensate(ctx, def, state, data, err)
		}

		data = next
		state.Data = data
		state.CompletedStepNames = append(state.CompletedStepNames, step.Name())
		o.persist(ctx, state)
	}

	now := time.Now().UTC()
	state.Status = StatusCompleted
	state.CompletedAt = &now
	o.persist(ctx, state)

	return data, nil
}

func (o *Orchestrator[T]) compensate(ctx context.Context, def Definition[T], state State[T], data T, cause error) (T, error) {
	state.Status = StatusCompensating
	o.persist(ctx, state)

	for i := len(state.CompletedStepNames) - 1; i >= 0; i-- {
		step := def.Steps[i]
		reverted, err := step.Compensate(ctx, data)
		if err != nil {
			o.log.Error("saga compensation step failed, continuing",
				zap.String("sagaId", state.SagaID),
				zap.String("step", step.Name()),
				zap.Error(err),
			)
			continue
		}
		data = reverted
	}

	state.Data = data
	state.Status = StatusCompensated
	now := time.Now().UTC()
	state.CompletedAt = &now
	o.persist(ctx, state)

	return data, result.Unexpected("Saga.Failed", cause)
}

func (o *Orchestrator[T]) persist(ctx context.Context, state State[T]) {
	payload, err := json.Marshal(state)
	if err != nil {
		o.log.Error("saga state marshal failed", zap.String("sagaId", state.SagaID), zap.Error(err))
		return
	}
	if err := o.store.Save(ctx, stateKey(state.SagaID), payload); err != nil {
		o.log.Error("saga state persist failed", zap.String("sagaId", state.SagaID), zap.Error(err))
	}
}

// Load reads and decodes a persisted SagaState for sagaID, e.g. to
// inspect a crashed-mid-execution saga. Resuming it is left to the
// caller; this package does not resume executions on its own.
func (o *Orchestrator[T]) Load(ctx context.Context, sagaID string) (State[T], error) {
	var state State[T]
	raw, err := o.store.Load(ctx, stateKey(sagaID))
	if err != nil {
		return state, fmt.Errorf("load saga state %q: %w", sagaID, err)
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return state, fmt.Errorf("decode saga state %q: %w", sagaID, err)
	}
	return state, nil
}
