// Package composetest provides an in-memory Host implementation with an
// operation journal and failure injection, for testing the engine and
// code built on it.
package composetest

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/go-recompose/recompose/pkg/apply"
	"github.com/go-recompose/recompose/pkg/compose"
)

// Entity is one fake host entity.
type Entity struct {
	Handle     apply.EntityHandle
	Parent     apply.EntityHandle
	Components compose.Props
	Children   []apply.EntityHandle
}

// Host is a fake entity world. It records every primitive call in a
// journal and can be told to reject specific calls.
//
// Host is not safe for concurrent use; the engine's apply phase is
// single-threaded by contract.
type Host struct {
	next     apply.EntityHandle
	Entities map[apply.EntityHandle]*Entity

	// Journal records one line per primitive call, in order.
	Journal []string

	// Failure hooks. When non-nil and returning a non-nil error, the
	// corresponding primitive rejects the call without mutating the
	// world.
	FailCreate  func(parent apply.EntityHandle, components compose.Props) error
	FailDestroy func(handle apply.EntityHandle) error
	FailSet     func(handle apply.EntityHandle, diff compose.Props) error
	FailReorder func(parent apply.EntityHandle) error
}

var _ apply.Host = (*Host)(nil)

// NewHost creates an empty fake host.
func NewHost() *Host {
	return &Host{Entities: make(map[apply.EntityHandle]*Entity)}
}

// CreateEntity appends a new entity under parent.
func (h *Host) CreateEntity(parent apply.EntityHandle, components compose.Props) (apply.EntityHandle, error) {
	if h.FailCreate != nil {
		if err := h.FailCreate(parent, components); err != nil {
			h.record("create FAILED parent=%d: %v", parent, err)
			return apply.HandleNone, err
		}
	}
	h.next++
	handle := h.next
	h.Entities[handle] = &Entity{
		Handle:     handle,
		Parent:     parent,
		Components: components.Clone(),
	}
	if parentEnt, ok := h.Entities[parent]; ok {
		parentEnt.Children = append(parentEnt.Children, handle)
	}
	h.record("create %d parent=%d %s", handle, parent, formatComponents(components))
	return handle, nil
}

// DestroyEntity removes an entity and detaches it from its parent.
func (h *Host) DestroyEntity(handle apply.EntityHandle) error {
	if h.FailDestroy != nil {
		if err := h.FailDestroy(handle); err != nil {
			h.record("destroy FAILED %d: %v", handle, err)
			return err
		}
	}
	ent, ok := h.Entities[handle]
	if !ok {
		h.record("destroy FAILED %d: unknown entity", handle)
		return fmt.Errorf("destroy: unknown entity %d", handle)
	}
	if parentEnt, ok := h.Entities[ent.Parent]; ok {
		parentEnt.Children = slices.DeleteFunc(parentEnt.Children, func(c apply.EntityHandle) bool {
			return c == handle
		})
	}
	delete(h.Entities, handle)
	h.record("destroy %d", handle)
	return nil
}

// SetComponents applies a component diff: nil values remove the key.
func (h *Host) SetComponents(handle apply.EntityHandle, diff compose.Props) error {
	if h.FailSet != nil {
		if err := h.FailSet(handle, diff); err != nil {
			h.record("set FAILED %d: %v", handle, err)
			return err
		}
	}
	ent, ok := h.Entities[handle]
	if !ok {
		h.record("set FAILED %d: unknown entity", handle)
		return fmt.Errorf("set: unknown entity %d", handle)
	}
	if ent.Components == nil {
		ent.Components = compose.Props{}
	}
	for k, v := range diff {
		if v == nil {
			delete(ent.Components, k)
		} else {
			ent.Components[k] = v
		}
	}
	h.record("set %d %s", handle, formatComponents(diff))
	return nil
}

// ReorderSiblings imposes the given order on parent's children.
func (h *Host) ReorderSiblings(parent apply.EntityHandle, ordered []apply.EntityHandle) error {
	if h.FailReorder != nil {
		if err := h.FailReorder(parent); err != nil {
			h.record("reorder FAILED parent=%d: %v", parent, err)
			return err
		}
	}
	if parentEnt, ok := h.Entities[parent]; ok {
		parentEnt.Children = slices.Clone(ordered)
	}
	h.record("reorder parent=%d %v", parent, ordered)
	return nil
}

// Order returns the child order under parent. For HandleNone it returns
// the root entities in creation order.
func (h *Host) Order(parent apply.EntityHandle) []apply.EntityHandle {
	if ent, ok := h.Entities[parent]; ok {
		return slices.Clone(ent.Children)
	}
	var roots []apply.EntityHandle
	for handle, ent := range h.Entities {
		if ent.Parent == parent {
			roots = append(roots, handle)
		}
	}
	slices.Sort(roots)
	return roots
}

// ComponentsOf returns an entity's current components.
func (h *Host) ComponentsOf(handle apply.EntityHandle) compose.Props {
	if ent, ok := h.Entities[handle]; ok {
		return ent.Components.Clone()
	}
	return nil
}

// JournalOps returns the journal filtered to entries starting with op
// ("create", "destroy", "set", "reorder").
func (h *Host) JournalOps(op string) []string {
	var out []string
	for _, line := range h.Journal {
		if strings.HasPrefix(line, op) {
			out = append(out, line)
		}
	}
	return out
}

func (h *Host) record(format string, args ...any) {
	h.Journal = append(h.Journal, fmt.Sprintf(format, args...))
}

// formatComponents renders props with sorted keys so journal lines are
// deterministic.
func formatComponents(p compose.Props) string {
	if len(p) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%v", k, p[k])
	}
	sb.WriteByte('}')
	return sb.String()
}
