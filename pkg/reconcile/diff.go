package reconcile

import (
	"github.com/go-recompose/recompose/pkg/compose"
	"github.com/go-recompose/recompose/pkg/errors"
)

// Diff computes the effect list transforming prev into next. prev may
// be nil (first pass: the whole tree mounts). The list honors the
// ordering guarantees: a parent mounts before its children, a subtree's
// unmounts run deepest-first before its ancestor's, and effects for a
// subtree are contiguous.
//
// Diffing identical trees yields an empty list.
func Diff(prev, next *compose.Tree) ([]Effect, error) {
	var effects []Effect

	var prevRoot, nextRoot *compose.Instance
	if prev != nil {
		prevRoot = prev.Root
	}
	if next != nil {
		nextRoot = next.Root
	}

	switch {
	case prevRoot == nil && nextRoot == nil:
		return nil, nil
	case prevRoot == nil:
		mountAll(nextRoot, "", 0, &effects)
		return effects, nil
	case nextRoot == nil:
		unmountAll(prevRoot, &effects)
		return effects, nil
	case prevRoot.ID != nextRoot.ID:
		unmountAll(prevRoot, &effects)
		mountAll(nextRoot, "", 0, &effects)
		return effects, nil
	}

	if !prevRoot.Props.Equal(nextRoot.Props) {
		effects = append(effects, Effect{
			Kind:     EffectUpdate,
			ID:       nextRoot.ID,
			NodeKind: nextRoot.Kind,
			Type:     nextRoot.Type,
			OldProps: prevRoot.Props,
			NewProps: nextRoot.Props,
		})
	}
	if err := diffChildren(nextRoot.ID, prevRoot.Children, nextRoot.Children, &effects); err != nil {
		return nil, err
	}
	return effects, nil
}

// diffChildren reconciles one sibling list. Order of emission: unmounts
// for removed children (deepest-first), then the new-order walk
// emitting mounts and updates with their subtree recursion inline, then
// the minimal move set.
func diffChildren(parent compose.Identity, old, new []*compose.Instance, out *[]Effect) error {
	oldIndex := make(map[compose.Identity]int, len(old))
	for i, inst := range old {
		if _, dup := oldIndex[inst.ID]; dup {
			return &errors.CollisionError{Parent: parent.String(), Identity: inst.ID.String()}
		}
		oldIndex[inst.ID] = i
	}
	newIndex := make(map[compose.Identity]int, len(new))
	for i, inst := range new {
		if _, dup := newIndex[inst.ID]; dup {
			return &errors.CollisionError{Parent: parent.String(), Identity: inst.ID.String()}
		}
		newIndex[inst.ID] = i
	}

	// Removed children go first so a replaced identity is torn down
	// before its successor mounts.
	for _, inst := range old {
		if _, kept := newIndex[inst.ID]; !kept {
			unmountAll(inst, out)
		}
	}

	// reused tracks, in new order, the old position of every matched
	// child; it feeds the move minimizer.
	type match struct {
		newPos int
		oldPos int
	}
	var reused []match

	for i, inst := range new {
		oldPos, ok := oldIndex[inst.ID]
		if !ok {
			mountAll(inst, parent, i, out)
			continue
		}
		prev := old[oldPos]
		if !prev.Props.Equal(inst.Props) {
			*out = append(*out, Effect{
				Kind:     EffectUpdate,
				ID:       inst.ID,
				Parent:   parent,
				NodeKind: inst.Kind,
				Type:     inst.Type,
				OldProps: prev.Props,
				NewProps: inst.Props,
			})
		}
		if err := diffChildren(inst.ID, prev.Children, inst.Children, out); err != nil {
			return err
		}
		reused = append(reused, match{newPos: i, oldPos: oldPos})
	}

	// Children whose old relative order already matches the new order
	// form a longest increasing subsequence of old positions; everything
	// outside it moves.
	if len(reused) > 1 {
		seq := make([]int, len(reused))
		for i, m := range reused {
			seq[i] = m.oldPos
		}
		keep := make(map[int]bool, len(reused))
		for _, i := range longestIncreasing(seq) {
			keep[i] = true
		}
		for i, m := range reused {
			if keep[i] {
				continue
			}
			inst := new[m.newPos]
			*out = append(*out, Effect{
				Kind:     EffectMove,
				ID:       inst.ID,
				Parent:   parent,
				NodeKind: inst.Kind,
				Type:     inst.Type,
				Index:    m.newPos,
			})
		}
	}
	return nil
}

// mountAll emits mounts for inst and its subtree, parent first.
func mountAll(inst *compose.Instance, parent compose.Identity, index int, out *[]Effect) {
	*out = append(*out, Effect{
		Kind:     EffectMount,
		ID:       inst.ID,
		Parent:   parent,
		NodeKind: inst.Kind,
		Type:     inst.Type,
		Index:    index,
		NewProps: inst.Props,
	})
	for i, child := range inst.Children {
		mountAll(child, inst.ID, i, out)
	}
}

// unmountAll emits unmounts for inst's subtree, children first.
func unmountAll(inst *compose.Instance, out *[]Effect) {
	for _, child := range inst.Children {
		unmountAll(child, out)
	}
	*out = append(*out, Effect{
		Kind:     EffectUnmount,
		ID:       inst.ID,
		NodeKind: inst.Kind,
		Type:     inst.Type,
		OldProps: inst.Props,
	})
}
