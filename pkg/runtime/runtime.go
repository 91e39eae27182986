// Package runtime ties the engine together: it evaluates the root
// description into a tree, reconciles it against the committed
// baseline, applies the effects, and bridges state invalidation into
// tick scheduling.
package runtime

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/go-recompose/recompose/pkg/apply"
	"github.com/go-recompose/recompose/pkg/compose"
	"github.com/go-recompose/recompose/pkg/errors"
	"github.com/go-recompose/recompose/pkg/reconcile"
	"github.com/go-recompose/recompose/pkg/state"
)

// TickResult reports one tick's outcome to the host scheduling glue.
type TickResult struct {
	// Evaluated is false when the tick was skipped because nothing was
	// dirty, or because evaluation failed (see Err).
	Evaluated bool

	// Effects are the effects the host accepted this tick.
	Effects []reconcile.Effect

	// Failed lists effects the host rejected. Failures are isolated:
	// the new tree commits regardless.
	Failed []apply.Failure

	// Err is set when the tick was aborted before any mutation: an
	// evaluation failure, a state shape mismatch, or an identity
	// collision. The previously committed tree stays authoritative.
	Err error
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger used by the runtime and its applier.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runtime) { r.log = log }
}

// WithOnNeedsTick registers a callback fired when a queued state update
// makes a new tick necessary. Hosts with on-demand frame scheduling use
// it to resume their tick source; it fires once per coalesced batch.
func WithOnNeedsTick(fn func()) Option {
	return func(r *Runtime) { r.onNeedsTick = fn }
}

// Runtime drives one composable root against one host. It owns its
// store, registry and committed tree; independent runtimes never share
// state, so multiple roots can coexist.
//
// All methods except RequestUpdate must be called from the host's tick
// goroutine. RequestUpdate (and State setters reached from callbacks)
// may be called from anywhere; they only queue work.
type Runtime struct {
	root    compose.Node
	store   *state.Store
	applier *apply.Applier
	log     zerolog.Logger

	committed *compose.Tree
	version   uint64

	dirty       atomic.Bool
	signalled   atomic.Bool
	onNeedsTick func()
}

// New creates a runtime for the given root description and host.
func New(root compose.Node, host apply.Host, opts ...Option) *Runtime {
	r := &Runtime{
		root:  root,
		store: state.NewStore(),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.applier = apply.NewApplier(host, r.log)
	r.store.SetOnInvalidate(r.invalidate)
	return r
}

// Store exposes the runtime's state store.
func (r *Runtime) Store() *state.Store {
	return r.store
}

// Tree returns the committed tree, nil before the first tick.
func (r *Runtime) Tree() *compose.Tree {
	return r.committed
}

// Entity returns the entity bound to an identity, if any.
func (r *Runtime) Entity(id compose.Identity) (apply.EntityHandle, bool) {
	return r.applier.Entity(id)
}

// RequestUpdate queues a state mutation from outside the evaluation
// path (input handlers, timers). It is the only legal way for external
// code to mutate composable state.
func (r *Runtime) RequestUpdate(id compose.Identity, slot string, mutate func(any) any) {
	r.store.RequestUpdate(id, slot, mutate)
}

// invalidate marks the tree dirty and signals the host once per
// coalesced batch of updates.
func (r *Runtime) invalidate() {
	r.dirty.Store(true)
	if r.onNeedsTick != nil && r.signalled.CompareAndSwap(false, true) {
		r.onNeedsTick()
	}
}

// RunTick runs one evaluation+reconcile+apply cycle. Queued state
// updates are drained first, in submission order; when nothing is
// dirty and a tree is already committed the tick is a no-op.
func (r *Runtime) RunTick() TickResult {
	drained := r.store.Drain()
	wasDirty := r.dirty.Swap(false)
	r.signalled.Store(false)

	if r.committed != nil && drained == 0 && !wasDirty {
		return TickResult{}
	}

	tree, err := r.evaluate()
	if err != nil {
		r.report(err)
		return TickResult{Err: err}
	}

	effects, err := reconcile.Diff(r.committed, tree)
	if err != nil {
		r.report(err)
		return TickResult{Err: err}
	}

	applied, failed := r.applier.Apply(effects, tree, r.store)

	// The new tree commits even when some effects failed; retrying a
	// persistently broken node every tick would never converge.
	r.committed = tree

	return TickResult{Evaluated: true, Effects: applied, Failed: failed}
}

// report routes a tick-aborting error to the global handler.
func (r *Runtime) report(err error) {
	switch e := err.(type) {
	case *errors.StateShapeError:
		errors.ReportStateShape(e)
	case *errors.CollisionError:
		errors.ReportCollision(e)
	case *errors.EvaluationError:
		errors.ReportEvaluation(e)
	default:
		errors.ReportEvaluation(&errors.EvaluationError{Err: err})
	}
}
