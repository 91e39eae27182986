package composetest

import (
	"github.com/go-recompose/recompose/pkg/compose"
)

// Resolve expands a structural node tree (no Func nodes) into a
// resolved Tree, assigning identities exactly the way the runtime's
// evaluator does. It lets reconciler tests build tree versions without
// running a tick.
//
// Resolve panics on Func nodes; composables need state and belong in a
// Harness-driven test.
func Resolve(version uint64, root compose.Node) *compose.Tree {
	inst := resolve("", root, make(map[string]int))
	return &compose.Tree{Root: inst, Version: version}
}

func resolve(parent compose.Identity, n compose.Node, counter map[string]int) *compose.Instance {
	if n.Kind == compose.KindEmpty {
		return nil
	}
	if n.Kind == compose.KindFunc {
		panic("composetest: Resolve cannot expand Func nodes, use a Harness")
	}

	counterKey := n.Kind.String() + ":" + n.Type
	index := counter[counterKey]
	counter[counterKey] = index + 1

	id := compose.Child(parent, n.Kind, n.Type, n.Key, index)
	inst := &compose.Instance{
		ID:    id,
		Kind:  n.Kind,
		Type:  n.Type,
		Key:   n.Key,
		Props: n.Props.Clone(),
	}
	childCounter := make(map[string]int)
	for _, child := range n.Children {
		if childInst := resolve(id, child, childCounter); childInst != nil {
			inst.Children = append(inst.Children, childInst)
		}
	}
	return inst
}
