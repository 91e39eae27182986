package compose

// Instance is a node resolved during evaluation: Func nodes have been
// expanded, Empty nodes dropped, and every surviving node carries its
// Identity. Instances are immutable once the Tree is built.
type Instance struct {
	ID       Identity
	Kind     NodeKind
	Type     string
	Key      any
	Props    Props
	Children []*Instance
}

// Tree is a complete snapshot of one evaluation pass. The reconciler
// always operates on a pair of trees: the previously committed one and
// a freshly evaluated one.
type Tree struct {
	Root    *Instance
	Version uint64
}

// Index returns a lookup from identity to instance for the whole tree.
func (t *Tree) Index() map[Identity]*Instance {
	out := make(map[Identity]*Instance)
	if t == nil || t.Root == nil {
		return out
	}
	t.Walk(func(inst *Instance) bool {
		out[inst.ID] = inst
		return true
	})
	return out
}

// Walk visits instances depth-first in document order. Returning false
// from fn stops the walk.
func (t *Tree) Walk(fn func(*Instance) bool) {
	if t == nil || t.Root == nil {
		return
	}
	walk(t.Root, fn)
}

func walk(inst *Instance, fn func(*Instance) bool) bool {
	if !fn(inst) {
		return false
	}
	for _, child := range inst.Children {
		if !walk(child, fn) {
			return false
		}
	}
	return true
}

// Size returns the number of instances in the tree.
func (t *Tree) Size() int {
	n := 0
	t.Walk(func(*Instance) bool {
		n++
		return true
	})
	return n
}
