package composetest

import (
	"github.com/go-recompose/recompose/pkg/compose"
	"github.com/go-recompose/recompose/pkg/runtime"
)

// Harness couples a runtime with a fake host for end-to-end tick tests.
type Harness struct {
	Runtime *runtime.Runtime
	Host    *Host
}

// NewHarness creates a runtime over a fresh fake host.
func NewHarness(root compose.Node, opts ...runtime.Option) *Harness {
	host := NewHost()
	return &Harness{
		Runtime: runtime.New(root, host, opts...),
		Host:    host,
	}
}

// Tick runs one tick and returns its result.
func (h *Harness) Tick() runtime.TickResult {
	return h.Runtime.RunTick()
}
