// Package reconcile diffs two tree versions and produces the ordered
// effect list that transforms the committed entity graph into the new
// description with minimal churn.
package reconcile

import (
	"fmt"

	"github.com/go-recompose/recompose/pkg/compose"
)

// EffectKind discriminates the four effect variants.
type EffectKind int

const (
	// EffectMount creates an entity and a state lifecycle for a new
	// identity. Parents mount before their children.
	EffectMount EffectKind = iota
	// EffectUpdate mutates the components of a reused identity's entity.
	// Emitted only when props differ by value.
	EffectUpdate
	// EffectMove repositions a reused identity among its siblings.
	EffectMove
	// EffectUnmount destroys an identity's entity and evicts its state.
	// Children unmount before their parent.
	EffectUnmount
)

func (k EffectKind) String() string {
	switch k {
	case EffectMount:
		return "mount"
	case EffectUpdate:
		return "update"
	case EffectMove:
		return "move"
	case EffectUnmount:
		return "unmount"
	default:
		return "unknown"
	}
}

// Effect is one mutation of the host entity graph.
type Effect struct {
	Kind EffectKind
	ID   compose.Identity

	// Parent is the identity owning the affected sibling list. Empty for
	// the tree root and for unmounts.
	Parent compose.Identity

	// NodeKind and Type describe the affected node for mounts.
	NodeKind compose.NodeKind
	Type     string

	// Index is the target sibling position for mounts and moves.
	Index int

	// OldProps and NewProps carry the value snapshots for updates;
	// mounts carry only NewProps.
	OldProps compose.Props
	NewProps compose.Props
}

func (e Effect) String() string {
	switch e.Kind {
	case EffectMount:
		return fmt.Sprintf("mount %s @%d", e.ID, e.Index)
	case EffectUpdate:
		return fmt.Sprintf("update %s", e.ID)
	case EffectMove:
		return fmt.Sprintf("move %s -> %d", e.ID, e.Index)
	case EffectUnmount:
		return fmt.Sprintf("unmount %s", e.ID)
	default:
		return fmt.Sprintf("unknown %s", e.ID)
	}
}
