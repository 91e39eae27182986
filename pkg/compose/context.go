package compose

import "reflect"

// Context is handed to a ComposeFunc during evaluation. It is the only
// channel through which composables reach persistent state; direct
// mutation of entities or the store is not possible from here.
//
// The runtime implements Context; composables normally use the typed
// helpers UseState, OnMount and OnUnmount instead of calling these
// methods directly.
type Context interface {
	// ID returns the resolved identity of the composable being evaluated.
	ID() Identity

	// StateCell returns the value of the named slot for this identity,
	// creating it via init on first composition. typ is the slot's value
	// type; reusing a slot with a different type is a shape mismatch
	// error. Slot names beginning with "__" are reserved for engine
	// internals (OnMount uses "__mounted").
	StateCell(slot string, typ reflect.Type, init func() any) (any, error)

	// RequestUpdate queues a mutation of the named slot. The mutation is
	// applied before the next evaluation pass, never synchronously, so
	// the current pass observes a frozen snapshot.
	RequestUpdate(slot string, mutate func(any) any)

	// OnUnmount registers cleanup to run when this identity is evicted.
	// Cleanups run in reverse registration order.
	OnUnmount(cleanup func())
}
