package runtime

import (
	"fmt"
	"time"

	"github.com/go-recompose/recompose/pkg/compose"
	"github.com/go-recompose/recompose/pkg/errors"
)

// evaluate expands the root description into a resolved tree. The pass
// observes the frozen state snapshot left by the preceding drain; any
// author failure aborts the pass with nothing mutated.
func (r *Runtime) evaluate() (*compose.Tree, error) {
	r.version++
	root, err := r.expand("", r.root, newSiblingCounter(), make(map[compose.Identity]bool))
	if err != nil {
		return nil, err
	}
	return &compose.Tree{Root: root, Version: r.version}, nil
}

// siblingCounter assigns positional indices among siblings of the same
// kind and type; the index is the identity fallback for unkeyed nodes.
type siblingCounter map[string]int

func newSiblingCounter() siblingCounter {
	return make(siblingCounter)
}

func (c siblingCounter) next(kind compose.NodeKind, typ string) int {
	k := kind.String() + ":" + typ
	n := c[k]
	c[k] = n + 1
	return n
}

// expand resolves one node and its subtree. seen is the parent's
// resolved-identity set, used to reject sibling collisions.
func (r *Runtime) expand(parent compose.Identity, n compose.Node, counter siblingCounter, seen map[compose.Identity]bool) (*compose.Instance, error) {
	if n.Kind == compose.KindEmpty {
		return nil, nil
	}

	index := counter.next(n.Kind, n.Type)
	id := compose.Child(parent, n.Kind, n.Type, n.Key, index)
	if seen[id] {
		return nil, &errors.CollisionError{Parent: parent.String(), Identity: id.String()}
	}
	seen[id] = true

	inst := &compose.Instance{
		ID:    id,
		Kind:  n.Kind,
		Type:  n.Type,
		Key:   n.Key,
		Props: n.Props.Clone(),
	}

	children := n.Children
	if n.Kind == compose.KindFunc {
		child, err := r.composeFunc(n, id)
		if err != nil {
			return nil, err
		}
		children = []compose.Node{child}
	}

	childCounter := newSiblingCounter()
	childSeen := make(map[compose.Identity]bool)
	for _, childNode := range children {
		childInst, err := r.expand(id, childNode, childCounter, childSeen)
		if err != nil {
			return nil, err
		}
		if childInst != nil {
			inst.Children = append(inst.Children, childInst)
		}
	}
	return inst, nil
}

// composeFunc runs a composable with panic recovery. A recovered shape
// mismatch keeps its own error type; everything else becomes an
// evaluation error attributed to the composable's identity.
func (r *Runtime) composeFunc(n compose.Node, id compose.Identity) (node compose.Node, err error) {
	if n.Fn == nil {
		return compose.Node{}, &errors.EvaluationError{
			Identity:  id.String(),
			Err:       fmt.Errorf("func node %q has no compose function", n.Type),
			Timestamp: time.Now(),
		}
	}
	// Each composition re-registers its cleanups from scratch; without
	// the reset a still-mounted identity would stack one copy per pass.
	r.store.ResetCleanups(id)
	defer func() {
		if rec := recover(); rec != nil {
			if shape, ok := rec.(*errors.StateShapeError); ok {
				err = shape
				return
			}
			err = &errors.EvaluationError{
				Identity:   id.String(),
				Recovered:  rec,
				StackTrace: errors.CaptureStack(),
				Timestamp:  time.Now(),
			}
		}
	}()
	node = n.Fn(&scope{rt: r, id: id})
	return node, nil
}
