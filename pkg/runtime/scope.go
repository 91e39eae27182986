package runtime

import (
	"reflect"

	"github.com/go-recompose/recompose/pkg/compose"
)

// scope is the compose.Context handed to a composable during
// evaluation. It binds the composable's resolved identity to the
// runtime's store; no state is global.
type scope struct {
	rt *Runtime
	id compose.Identity
}

var _ compose.Context = (*scope)(nil)

func (s *scope) ID() compose.Identity {
	return s.id
}

func (s *scope) StateCell(slot string, typ reflect.Type, init func() any) (any, error) {
	return s.rt.store.GetOrInit(s.id, slot, typ, init)
}

func (s *scope) RequestUpdate(slot string, mutate func(any) any) {
	s.rt.store.RequestUpdate(s.id, slot, mutate)
}

func (s *scope) OnUnmount(cleanup func()) {
	s.rt.store.AddCleanup(s.id, cleanup)
}
