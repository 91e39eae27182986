package apply

import (
	"github.com/rs/zerolog"

	"github.com/go-recompose/recompose/pkg/compose"
	"github.com/go-recompose/recompose/pkg/errors"
	"github.com/go-recompose/recompose/pkg/reconcile"
	"github.com/go-recompose/recompose/pkg/state"
)

// Failure records one effect the host rejected. A failed effect never
// aborts the pass; the remaining effects still apply.
type Failure struct {
	Effect reconcile.Effect
	Err    *errors.MutationError
}

// Applier owns the identity-to-entity registry and executes effect
// lists in the order the reconciler produced them.
type Applier struct {
	host     Host
	log      zerolog.Logger
	registry map[compose.Identity]EntityHandle
}

// NewApplier creates an applier for the given host. Pass zerolog.Nop()
// to disable failure logging.
func NewApplier(host Host, log zerolog.Logger) *Applier {
	return &Applier{
		host:     host,
		log:      log,
		registry: make(map[compose.Identity]EntityHandle),
	}
}

// Entity returns the entity bound to an identity, if any.
func (a *Applier) Entity(id compose.Identity) (EntityHandle, bool) {
	h, ok := a.registry[id]
	return h, ok
}

// Bound returns the number of identities with bound entities.
func (a *Applier) Bound() int {
	return len(a.registry)
}

// orderState tracks, per parent, where an appended entity naturally
// lands: after the reused children, in mount order. A mount targeting
// any other index disturbs the sibling order.
type orderState struct {
	reused  int
	mounted int
	dirty   bool
}

// Apply executes effects against the host, evicting state for
// unmounted identities through store. next is the tree being applied;
// it supplies the desired sibling order for coalesced reorders.
// Returns the applied effects and the isolated failures.
func (a *Applier) Apply(effects []reconcile.Effect, next *compose.Tree, store *state.Store) ([]reconcile.Effect, []Failure) {
	applied := make([]reconcile.Effect, 0, len(effects))
	var failures []Failure

	index := next.Index()

	// Snapshot of pre-pass bindings: a next-tree child bound here is a
	// reused child for order accounting.
	prePass := make(map[compose.Identity]bool, len(a.registry))
	for id := range a.registry {
		prePass[id] = true
	}

	orders := make(map[compose.Identity]*orderState)
	var dirtyParents []compose.Identity

	orderFor := func(parent compose.Identity) *orderState {
		if st, ok := orders[parent]; ok {
			return st
		}
		st := &orderState{}
		if inst, ok := index[parent]; ok {
			for _, child := range inst.Children {
				if prePass[child.ID] {
					st.reused++
				}
			}
		}
		orders[parent] = st
		return st
	}
	markDirty := func(parent compose.Identity) {
		st := orderFor(parent)
		if !st.dirty {
			st.dirty = true
			dirtyParents = append(dirtyParents, parent)
		}
	}
	fail := func(e reconcile.Effect, op string, err error) {
		merr := &errors.MutationError{Op: op, Identity: e.ID.String(), Err: err}
		failures = append(failures, Failure{Effect: e, Err: merr})
		errors.ReportMutation(merr)
		a.log.Warn().Str("op", op).Str("identity", e.ID.String()).Err(err).Msg("effect rejected")
	}

	for _, e := range effects {
		switch e.Kind {
		case reconcile.EffectMount:
			parentHandle := HandleNone
			if e.Parent != "" {
				h, ok := a.registry[e.Parent]
				if !ok {
					fail(e, "host.CreateEntity", ErrNotBound)
					continue
				}
				parentHandle = h
			}
			var components compose.Props
			if e.NodeKind == compose.KindElement || e.NodeKind == compose.KindBundle {
				components = e.NewProps
			}
			st := orderFor(e.Parent)
			handle, err := a.host.CreateEntity(parentHandle, components)
			if err != nil {
				fail(e, "host.CreateEntity", err)
				continue
			}
			a.registry[e.ID] = handle
			if e.Index != st.reused+st.mounted {
				markDirty(e.Parent)
			}
			st.mounted++
			applied = append(applied, e)

		case reconcile.EffectUpdate:
			handle, ok := a.registry[e.ID]
			if !ok {
				fail(e, "host.SetComponents", ErrNotBound)
				continue
			}
			diff := e.OldProps.Diff(e.NewProps)
			if err := a.host.SetComponents(handle, diff); err != nil {
				fail(e, "host.SetComponents", err)
				continue
			}
			applied = append(applied, e)

		case reconcile.EffectMove:
			// The host mutation is coalesced: one reorder per disturbed
			// parent, issued after the parent's other effects.
			markDirty(e.Parent)
			applied = append(applied, e)

		case reconcile.EffectUnmount:
			handle, ok := a.registry[e.ID]
			// The binding and the state cell are removed even when the
			// host rejects the destroy, so a broken entity cannot pin
			// its identity forever.
			delete(a.registry, e.ID)
			store.Evict(e.ID)
			if !ok {
				fail(e, "host.DestroyEntity", ErrNotBound)
				continue
			}
			if err := a.host.DestroyEntity(handle); err != nil {
				fail(e, "host.DestroyEntity", err)
				continue
			}
			applied = append(applied, e)
		}
	}

	failures = append(failures, a.flushReorders(dirtyParents, index)...)
	return applied, failures
}

// flushReorders issues one ReorderSiblings per disturbed parent, in the
// order the parents were first disturbed.
func (a *Applier) flushReorders(parents []compose.Identity, index map[compose.Identity]*compose.Instance) []Failure {
	var failures []Failure
	for _, parent := range parents {
		inst, ok := index[parent]
		if !ok {
			continue
		}
		parentHandle := HandleNone
		if parent != "" {
			h, bound := a.registry[parent]
			if !bound {
				continue
			}
			parentHandle = h
		}
		ordered := make([]EntityHandle, 0, len(inst.Children))
		for _, child := range inst.Children {
			if h, bound := a.registry[child.ID]; bound {
				ordered = append(ordered, h)
			}
		}
		if err := a.host.ReorderSiblings(parentHandle, ordered); err != nil {
			merr := &errors.MutationError{Op: "host.ReorderSiblings", Identity: parent.String(), Err: err}
			failures = append(failures, Failure{
				Effect: reconcile.Effect{Kind: reconcile.EffectMove, ID: parent},
				Err:    merr,
			})
			errors.ReportMutation(merr)
			a.log.Warn().Str("op", "host.ReorderSiblings").Str("identity", parent.String()).Err(err).Msg("effect rejected")
		}
	}
	return failures
}
