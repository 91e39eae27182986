package compose

// NodeKind discriminates the closed set of node variants. User-visible
// composable types are distinguished by Node.Type within a kind; the
// pair participates in identity, so changing either forces replacement.
type NodeKind int

const (
	// KindEmpty renders nothing and is dropped during evaluation.
	// It is the false arm of If.
	KindEmpty NodeKind = iota
	// KindElement is a host entity whose components derive from props.
	KindElement
	// KindBundle is a raw set of host components attached to one entity.
	KindBundle
	// KindGroup is a transparent container entity with no components.
	KindGroup
	// KindFunc is a user composable, expanded during evaluation.
	KindFunc
)

func (k NodeKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindElement:
		return "element"
	case KindBundle:
		return "bundle"
	case KindGroup:
		return "group"
	case KindFunc:
		return "func"
	default:
		return "unknown"
	}
}

// ComposeFunc produces a Func node's subtree from props-captured inputs
// and persistent state reached through the Context. It must not mutate
// state or entities directly; mutation goes through State setters and
// lands on the next tick.
type ComposeFunc func(cx Context) Node

// Node is a single composable instance in one tree version. Nodes are
// plain values; the engine never retains them across evaluations.
type Node struct {
	Kind     NodeKind
	Type     string
	Key      any
	Props    Props
	Children []Node

	// Fn is set only for KindFunc nodes.
	Fn ComposeFunc
}

// Element creates an element node of the given type.
func Element(typ string, key any, props Props, children ...Node) Node {
	return Node{Kind: KindElement, Type: typ, Key: key, Props: props, Children: children}
}

// Bundle creates a node carrying a raw component set.
func Bundle(typ string, key any, components Props) Node {
	return Node{Kind: KindBundle, Type: typ, Key: key, Props: components}
}

// Group creates a transparent container around the given children.
// Lists are ordinary child slices under a group; give list items
// explicit keys via Keyed or the key argument of their constructor.
func Group(children ...Node) Node {
	return Node{Kind: KindGroup, Children: children}
}

// Func creates a composable node evaluated by fn during expansion.
func Func(typ string, key any, fn ComposeFunc) Node {
	return Node{Kind: KindFunc, Type: typ, Key: key, Fn: fn}
}

// If returns node when cond holds and an empty node otherwise.
func If(cond bool, node Node) Node {
	if cond {
		return node
	}
	return Empty()
}

// Empty returns a node that renders nothing.
func Empty() Node {
	return Node{Kind: KindEmpty}
}

// Keyed returns a copy of node with the given identity key.
func Keyed(key any, node Node) Node {
	node.Key = key
	return node
}
