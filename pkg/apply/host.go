// Package apply executes effect lists against a host entity graph and
// maintains the identity-to-entity registry.
package apply

import (
	stderrors "errors"

	"github.com/go-recompose/recompose/pkg/compose"
)

// EntityHandle is an opaque reference to a host-owned entity. Each
// handle is exclusively owned by exactly one node identity for its
// lifetime.
type EntityHandle uint64

// HandleNone is the zero handle. The tree root mounts under it.
const HandleNone EntityHandle = 0

// ErrNotBound is reported when an effect references an identity with no
// entity bound in the registry, typically because an earlier effect for
// an ancestor failed.
var ErrNotBound = stderrors.New("identity has no bound entity")

// Host is the entity-graph collaborator the applier mutates. The four
// primitives are the only way the engine touches the host world.
type Host interface {
	// CreateEntity creates an entity with the given components as the
	// last child of parent (HandleNone for a root entity).
	CreateEntity(parent EntityHandle, components compose.Props) (EntityHandle, error)

	// DestroyEntity removes an entity. The applier destroys children
	// before parents, so implementations need not cascade.
	DestroyEntity(handle EntityHandle) error

	// SetComponents applies a component diff: non-nil values are set,
	// nil values removed.
	SetComponents(handle EntityHandle, diff compose.Props) error

	// ReorderSiblings re-parents nothing; it only imposes the given
	// order on parent's children.
	ReorderSiblings(parent EntityHandle, ordered []EntityHandle) error
}
