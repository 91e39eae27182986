package compose

import "reflect"

// State is a typed handle to one persistent state cell. The value read
// through Get is the frozen snapshot for the current pass; Set and
// Update queue mutations for the next tick.
//
// Example:
//
//	compose.Func("counter", nil, func(cx compose.Context) compose.Node {
//	    count := compose.UseState(cx, "count", 0)
//	    return compose.Element("label", nil, compose.Props{
//	        "text":  strconv.Itoa(count.Get()),
//	        "onTap": func() { count.Update(func(n int) int { return n + 1 }) },
//	    })
//	})
type State[T any] struct {
	cx    Context
	slot  string
	value T
}

// UseState resolves the named slot for the composable being evaluated,
// initializing it with initial on the identity's first composition.
//
// It panics with a shape error when the slot already holds a different
// type; the evaluator recovers the panic and fails the tick, per the
// store's mismatch contract.
func UseState[T any](cx Context, slot string, initial T) State[T] {
	return UseStateFunc(cx, slot, func() T { return initial })
}

// UseStateFunc is UseState with a lazy initializer, for initial values
// that are expensive to build.
func UseStateFunc[T any](cx Context, slot string, init func() T) State[T] {
	v, err := cx.StateCell(slot, reflect.TypeOf((*T)(nil)).Elem(), func() any { return init() })
	if err != nil {
		panic(err)
	}
	return State[T]{cx: cx, slot: slot, value: v.(T)}
}

// Get returns the slot value observed by the current pass.
func (s State[T]) Get() T {
	return s.value
}

// Set queues a replacement of the slot value for the next tick.
func (s State[T]) Set(value T) {
	s.cx.RequestUpdate(s.slot, func(any) any { return value })
}

// Update queues a transformation of the slot value for the next tick.
// Updates queued within one tick are applied in submission order.
func (s State[T]) Update(fn func(T) T) {
	s.cx.RequestUpdate(s.slot, func(old any) any { return fn(old.(T)) })
}

// OnMount runs fn during the identity's first composition only. It is
// implemented as a one-shot state cell in the reserved "__mounted"
// slot, so it follows the identity's lifecycle: a remounted identity
// runs fn again.
func OnMount(cx Context, fn func()) {
	_, err := cx.StateCell("__mounted", reflect.TypeOf((*bool)(nil)).Elem(), func() any {
		fn()
		return true
	})
	if err != nil {
		panic(err)
	}
}

// OnUnmount registers cleanup to run when the identity unmounts.
func OnUnmount(cx Context, cleanup func()) {
	cx.OnUnmount(cleanup)
}
