// Package errors provides structured error handling for the Recompose engine.
package errors

import (
	"fmt"
	"time"
)

// Kind identifies the category of an error.
type Kind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown Kind = iota
	// KindStateShape indicates an identity reused a state slot with an
	// incompatible value type.
	KindStateShape
	// KindEvaluation indicates a composable function failed during
	// evaluation.
	KindEvaluation
	// KindCollision indicates two siblings resolved to the same identity.
	KindCollision
	// KindMutation indicates the host rejected an entity mutation.
	KindMutation
)

func (k Kind) String() string {
	switch k {
	case KindStateShape:
		return "state-shape"
	case KindEvaluation:
		return "evaluation"
	case KindCollision:
		return "collision"
	case KindMutation:
		return "mutation"
	default:
		return "unknown"
	}
}

// StateShapeError reports a state slot re-initialized with a different
// value type than a previous composition of the same identity used.
// This is an author error and is not retried.
type StateShapeError struct {
	// Identity is the node identity owning the slot.
	Identity string
	// Slot is the slot name within the identity.
	Slot string
	// Want is the type name recorded when the cell was created.
	Want string
	// Got is the type name of the conflicting initializer.
	Got string
}

func (e *StateShapeError) Error() string {
	return fmt.Sprintf("state slot %q of %s holds %s, re-initialized as %s", e.Slot, e.Identity, e.Want, e.Got)
}

// EvaluationError reports a composable function that returned an error
// or panicked during evaluation. The tick that produced it is skipped
// and the previously committed tree stays authoritative.
type EvaluationError struct {
	// Identity is the composable whose evaluation failed.
	Identity string
	// Err is the underlying error (nil for panics).
	Err error
	// Recovered is the panic value (nil for regular errors).
	Recovered any
	// StackTrace contains the call stack at the time of the failure.
	StackTrace string
	// Timestamp is when the failure occurred.
	Timestamp time.Time
}

func (e *EvaluationError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("panic composing %s: %v", e.Identity, e.Recovered)
	}
	return fmt.Sprintf("error composing %s: %v", e.Identity, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// CollisionError reports two siblings resolving to the same identity.
// It is treated as an evaluation error: the tick is skipped.
type CollisionError struct {
	// Parent is the identity of the parent whose children collided.
	Parent string
	// Identity is the duplicated child identity.
	Identity string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("duplicate identity %s under %s", e.Identity, e.Parent)
}

// MutationError reports one effect rejected by the host. It is isolated
// to that effect; the remaining effects of the pass still apply.
type MutationError struct {
	// Op is the host primitive that failed (e.g. "host.CreateEntity").
	Op string
	// Identity is the node identity the effect targeted.
	Identity string
	// Err is the error returned by the host.
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Identity, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// Handler receives errors reported by the engine.
type Handler interface {
	// HandleStateShape is called when a state slot shape mismatch occurs.
	HandleStateShape(err *StateShapeError)
	// HandleEvaluation is called when a composable evaluation fails.
	HandleEvaluation(err *EvaluationError)
	// HandleCollision is called when sibling identities collide.
	HandleCollision(err *CollisionError)
	// HandleMutation is called when the host rejects an effect.
	HandleMutation(err *MutationError)
}
