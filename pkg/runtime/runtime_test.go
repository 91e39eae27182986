package runtime_test

import (
	stderrors "errors"
	"testing"

	"github.com/go-recompose/recompose/pkg/apply"
	"github.com/go-recompose/recompose/pkg/compose"
	"github.com/go-recompose/recompose/pkg/composetest"
	"github.com/go-recompose/recompose/pkg/errors"
	"github.com/go-recompose/recompose/pkg/runtime"
)

// instanceByKey finds the committed instance carrying key.
func instanceByKey(t *testing.T, h *composetest.Harness, key any) *compose.Instance {
	t.Helper()
	var found *compose.Instance
	h.Runtime.Tree().Walk(func(inst *compose.Instance) bool {
		if inst.Key == key {
			found = inst
			return false
		}
		return true
	})
	if found == nil {
		t.Fatalf("no instance with key %v", key)
	}
	return found
}

func entityOf(t *testing.T, h *composetest.Harness, id compose.Identity) apply.EntityHandle {
	t.Helper()
	handle, ok := h.Runtime.Entity(id)
	if !ok {
		t.Fatalf("no entity bound for %s", id)
	}
	return handle
}

func TestRuntime_FirstTickMounts_SecondIsNoOp(t *testing.T) {
	root := compose.Func("counter", nil, func(cx compose.Context) compose.Node {
		count := compose.UseState(cx, "count", 0)
		return compose.Element("label", nil, compose.Props{"n": count.Get()})
	})
	h := composetest.NewHarness(root)

	res := h.Tick()
	if !res.Evaluated {
		t.Fatal("expected first tick to evaluate")
	}
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	// The func node and its label each bind an entity.
	if len(res.Effects) != 2 {
		t.Fatalf("expected 2 mounts, got %d", len(res.Effects))
	}

	res = h.Tick()
	if res.Evaluated {
		t.Error("expected clean second tick to be a no-op")
	}
	if len(res.Effects) != 0 {
		t.Errorf("expected no effects on no-op tick, got %d", len(res.Effects))
	}
}

func TestRuntime_CoalescedUpdates_ObservedTogether(t *testing.T) {
	var count compose.State[int]
	var observed []int
	root := compose.Func("counter", nil, func(cx compose.Context) compose.Node {
		count = compose.UseState(cx, "count", 0)
		observed = append(observed, count.Get())
		return compose.Element("label", nil, compose.Props{"n": count.Get()})
	})
	h := composetest.NewHarness(root)
	h.Tick()

	// Two increments queued before the next tick land in one pass: the
	// pass observes 2, never 1 twice.
	count.Update(func(n int) int { return n + 1 })
	count.Update(func(n int) int { return n + 1 })
	res := h.Tick()

	if !res.Evaluated {
		t.Fatal("expected dirty tick to evaluate")
	}
	if len(observed) != 2 || observed[0] != 0 || observed[1] != 2 {
		t.Errorf("expected observations [0 2], got %v", observed)
	}
}

func TestRuntime_SnapshotFrozenDuringPass(t *testing.T) {
	var reads []int
	root := compose.Func("counter", nil, func(cx compose.Context) compose.Node {
		count := compose.UseState(cx, "count", 0)
		reads = append(reads, count.Get())
		if count.Get() == 0 {
			count.Set(5) // queued, not visible within this pass
		}
		reads = append(reads, count.Get())
		return compose.Element("label", nil, compose.Props{"n": count.Get()})
	})
	h := composetest.NewHarness(root)

	h.Tick()
	if reads[0] != 0 || reads[1] != 0 {
		t.Errorf("expected the pass to read a frozen 0, got %v", reads)
	}

	h.Tick()
	if reads[2] != 5 || reads[3] != 5 {
		t.Errorf("expected the next pass to read 5, got %v", reads)
	}
}

func TestRuntime_KeyedReorder_PreservesStateAndEntity(t *testing.T) {
	states := map[string]compose.State[int]{}
	itemFn := func(k string) compose.ComposeFunc {
		return func(cx compose.Context) compose.Node {
			n := compose.UseState(cx, "n", 0)
			states[k] = n
			return compose.Element("label", nil, compose.Props{"n": n.Get()})
		}
	}
	var order compose.State[[]string]
	root := compose.Func("list", nil, func(cx compose.Context) compose.Node {
		order = compose.UseState(cx, "order", []string{"a", "b"})
		var items []compose.Node
		for _, k := range order.Get() {
			items = append(items, compose.Func("item", k, itemFn(k)))
		}
		return compose.Group(items...)
	})
	h := composetest.NewHarness(root)
	h.Tick()

	aLabel := instanceByKey(t, h, "a").Children[0].ID
	before := entityOf(t, h, aLabel)

	states["a"].Update(func(n int) int { return n + 1 })
	h.Tick()
	order.Set([]string{"b", "a"})
	res := h.Tick()

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	after := entityOf(t, h, instanceByKey(t, h, "a").Children[0].ID)
	if after != before {
		t.Errorf("expected reorder to reuse entity %d, got %d", before, after)
	}
	if got := h.Host.ComponentsOf(after)["n"]; got != 1 {
		t.Errorf("expected state 1 to travel with the key, got %v", got)
	}
}

func TestRuntime_TypeChange_ReplacesWithFreshState(t *testing.T) {
	var mode compose.State[string]
	var inner compose.State[int]
	var observed []int
	innerFn := func(cx compose.Context) compose.Node {
		inner = compose.UseState(cx, "n", 0)
		observed = append(observed, inner.Get())
		return compose.Element("label", nil, compose.Props{"n": inner.Get()})
	}
	root := compose.Func("shell", nil, func(cx compose.Context) compose.Node {
		mode = compose.UseState(cx, "mode", "alpha")
		return compose.Func(mode.Get(), nil, innerFn)
	})
	h := composetest.NewHarness(root)
	h.Tick()

	inner.Set(7)
	h.Tick()
	mode.Set("beta")
	res := h.Tick()

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(observed) != 3 || observed[1] != 7 || observed[2] != 0 {
		t.Errorf("expected observations [0 7 0], got %v", observed)
	}
	if got := h.Host.JournalOps("destroy"); len(got) != 2 {
		t.Errorf("expected old func+label destroyed, got %v", got)
	}
}

func TestRuntime_StateIsolation_AcrossKeys(t *testing.T) {
	states := map[string]compose.State[int]{}
	itemFn := func(k string) compose.ComposeFunc {
		return func(cx compose.Context) compose.Node {
			n := compose.UseState(cx, "n", 0)
			states[k] = n
			return compose.Element("label", nil, compose.Props{"n": n.Get()})
		}
	}
	root := compose.Func("list", nil, func(cx compose.Context) compose.Node {
		return compose.Group(
			compose.Func("item", "a", itemFn("a")),
			compose.Func("item", "b", itemFn("b")),
		)
	})
	h := composetest.NewHarness(root)
	h.Tick()

	states["a"].Set(9)
	h.Tick()

	a := entityOf(t, h, instanceByKey(t, h, "a").Children[0].ID)
	b := entityOf(t, h, instanceByKey(t, h, "b").Children[0].ID)
	if got := h.Host.ComponentsOf(a)["n"]; got != 9 {
		t.Errorf("expected a=9, got %v", got)
	}
	if got := h.Host.ComponentsOf(b)["n"]; got != 0 {
		t.Errorf("expected b untouched at 0, got %v", got)
	}
}

func TestRuntime_OnMount_OncePerLifecycle(t *testing.T) {
	mounts := 0
	var show compose.State[bool]
	root := compose.Func("shell", nil, func(cx compose.Context) compose.Node {
		show = compose.UseState(cx, "show", true)
		return compose.Group(
			compose.If(show.Get(), compose.Func("item", nil, func(cx compose.Context) compose.Node {
				compose.OnMount(cx, func() { mounts++ })
				return compose.Element("label", nil, nil)
			})),
		)
	})
	h := composetest.NewHarness(root)

	h.Tick()
	h.Tick()
	if mounts != 1 {
		t.Fatalf("expected one mount callback, got %d", mounts)
	}

	show.Set(false)
	h.Tick()
	show.Set(true)
	h.Tick()
	if mounts != 2 {
		t.Errorf("expected remount to rerun the callback, got %d", mounts)
	}
}

func TestRuntime_OnUnmount_RunsCleanup(t *testing.T) {
	cleanups := 0
	var show compose.State[bool]
	root := compose.Func("shell", nil, func(cx compose.Context) compose.Node {
		show = compose.UseState(cx, "show", true)
		return compose.Group(
			compose.If(show.Get(), compose.Func("item", nil, func(cx compose.Context) compose.Node {
				compose.OnUnmount(cx, func() { cleanups++ })
				return compose.Element("label", nil, nil)
			})),
		)
	})
	h := composetest.NewHarness(root)
	h.Tick()

	show.Set(false)
	h.Tick()

	if cleanups != 1 {
		t.Errorf("expected one cleanup, got %d", cleanups)
	}
}

func TestRuntime_OnUnmount_OnceAfterRecompositions(t *testing.T) {
	cleanups := 0
	var show compose.State[bool]
	var churn compose.State[int]
	root := compose.Func("shell", nil, func(cx compose.Context) compose.Node {
		show = compose.UseState(cx, "show", true)
		churn = compose.UseState(cx, "churn", 0)
		return compose.Group(
			compose.If(show.Get(), compose.Func("item", nil, func(cx compose.Context) compose.Node {
				compose.OnUnmount(cx, func() { cleanups++ })
				return compose.Element("label", nil, nil)
			})),
		)
	})
	h := composetest.NewHarness(root)
	h.Tick()

	// Unrelated state churn re-composes the item while it stays mounted;
	// its cleanup must not stack up across passes.
	churn.Update(func(n int) int { return n + 1 })
	h.Tick()
	churn.Update(func(n int) int { return n + 1 })
	h.Tick()

	show.Set(false)
	h.Tick()

	if cleanups != 1 {
		t.Errorf("expected cleanup to run once at unmount, ran %d times", cleanups)
	}
}

func TestRuntime_ShapeMismatch_AbortsTick(t *testing.T) {
	var flag compose.State[bool]
	root := compose.Func("shell", nil, func(cx compose.Context) compose.Node {
		flag = compose.UseState(cx, "flag", false)
		if flag.Get() {
			compose.UseState(cx, "v", "oops")
		} else {
			compose.UseState(cx, "v", 0)
		}
		return compose.Element("label", nil, nil)
	})
	h := composetest.NewHarness(root)
	h.Tick()
	committed := h.Runtime.Tree()
	journal := len(h.Host.Journal)

	flag.Set(true)
	res := h.Tick()

	if res.Evaluated {
		t.Error("expected failed tick not to evaluate")
	}
	shape, ok := res.Err.(*errors.StateShapeError)
	if !ok {
		t.Fatalf("expected *errors.StateShapeError, got %T", res.Err)
	}
	if shape.Slot != "v" {
		t.Errorf("expected slot v, got %s", shape.Slot)
	}
	if h.Runtime.Tree() != committed {
		t.Error("expected committed tree to stay authoritative")
	}
	if len(h.Host.Journal) != journal {
		t.Error("expected no host mutations on an aborted tick")
	}
}

func TestRuntime_IdentityCollision_AbortsTick(t *testing.T) {
	var dup compose.State[bool]
	root := compose.Func("shell", nil, func(cx compose.Context) compose.Node {
		dup = compose.UseState(cx, "dup", false)
		items := []compose.Node{compose.Element("item", "k", nil)}
		if dup.Get() {
			items = append(items, compose.Element("item", "k", nil))
		}
		return compose.Group(items...)
	})
	h := composetest.NewHarness(root)
	h.Tick()
	journal := len(h.Host.Journal)

	dup.Set(true)
	res := h.Tick()

	if _, ok := res.Err.(*errors.CollisionError); !ok {
		t.Fatalf("expected *errors.CollisionError, got %T", res.Err)
	}
	if len(h.Host.Journal) != journal {
		t.Error("expected no host mutations on an aborted tick")
	}
}

func TestRuntime_PanicInComposable_RecoveredAsError(t *testing.T) {
	var boom compose.State[bool]
	root := compose.Func("shell", nil, func(cx compose.Context) compose.Node {
		boom = compose.UseState(cx, "boom", false)
		if boom.Get() {
			panic("kaboom")
		}
		return compose.Element("label", nil, nil)
	})
	h := composetest.NewHarness(root)
	h.Tick()

	boom.Set(true)
	res := h.Tick()

	eval, ok := res.Err.(*errors.EvaluationError)
	if !ok {
		t.Fatalf("expected *errors.EvaluationError, got %T", res.Err)
	}
	if eval.Recovered != "kaboom" {
		t.Errorf("expected recovered value kaboom, got %v", eval.Recovered)
	}
	if eval.StackTrace == "" {
		t.Error("expected a captured stack trace")
	}
}

func TestRuntime_NilComposeFunc_Error(t *testing.T) {
	h := composetest.NewHarness(compose.Func("broken", nil, nil))

	res := h.Tick()
	if _, ok := res.Err.(*errors.EvaluationError); !ok {
		t.Fatalf("expected *errors.EvaluationError, got %T", res.Err)
	}
	if len(h.Host.Entities) != 0 {
		t.Error("expected no entities after a failed first tick")
	}
}

func TestRuntime_OnNeedsTick_OncePerBatch(t *testing.T) {
	var count compose.State[int]
	root := compose.Func("counter", nil, func(cx compose.Context) compose.Node {
		count = compose.UseState(cx, "count", 0)
		return compose.Element("label", nil, compose.Props{"n": count.Get()})
	})
	signals := 0
	host := composetest.NewHost()
	rt := runtime.New(root, host, runtime.WithOnNeedsTick(func() { signals++ }))
	rt.RunTick()

	count.Update(func(n int) int { return n + 1 })
	count.Update(func(n int) int { return n + 1 })
	if signals != 1 {
		t.Fatalf("expected one signal for a coalesced batch, got %d", signals)
	}

	rt.RunTick()
	count.Update(func(n int) int { return n + 1 })
	if signals != 2 {
		t.Errorf("expected the next batch to signal again, got %d", signals)
	}
}

func TestRuntime_PartialFailure_StillCommits(t *testing.T) {
	var count compose.State[int]
	root := compose.Func("counter", nil, func(cx compose.Context) compose.Node {
		count = compose.UseState(cx, "count", 0)
		return compose.Element("label", nil, compose.Props{"n": count.Get()})
	})
	h := composetest.NewHarness(root)
	h.Tick()
	version := h.Runtime.Tree().Version

	h.Host.FailSet = func(apply.EntityHandle, compose.Props) error {
		return stderrors.New("component store full")
	}
	count.Update(func(n int) int { return n + 1 })
	res := h.Tick()

	if !res.Evaluated {
		t.Fatal("expected the tick to evaluate")
	}
	if len(res.Failed) != 1 {
		t.Fatalf("expected one failed effect, got %d", len(res.Failed))
	}
	if h.Runtime.Tree().Version <= version {
		t.Error("expected the new tree to commit despite the failure")
	}

	// The failure is not retried on the next tick.
	res = h.Tick()
	if res.Evaluated {
		t.Error("expected no retry tick")
	}
}

func TestRuntime_EmptyNodes_Dropped(t *testing.T) {
	h := composetest.NewHarness(compose.Group(
		compose.Element("item", "a", nil),
		compose.If(false, compose.Element("item", "b", nil)),
	))
	h.Tick()

	// Group root plus item a only.
	if len(h.Host.Entities) != 2 {
		t.Errorf("expected 2 entities, got %d", len(h.Host.Entities))
	}
}

func TestRuntime_IndependentRuntimes_ShareNothing(t *testing.T) {
	build := func(states map[string]compose.State[int], tag string) compose.Node {
		return compose.Func("counter", nil, func(cx compose.Context) compose.Node {
			n := compose.UseState(cx, "n", 0)
			states[tag] = n
			return compose.Element("label", nil, compose.Props{"n": n.Get()})
		})
	}
	states := map[string]compose.State[int]{}
	h1 := composetest.NewHarness(build(states, "one"))
	h2 := composetest.NewHarness(build(states, "two"))
	h1.Tick()
	h2.Tick()

	states["one"].Set(3)
	h1.Tick()
	h2.Tick()

	one := h1.Runtime.Tree().Root.Children[0].ID
	two := h2.Runtime.Tree().Root.Children[0].ID
	e1 := entityOf(t, h1, one)
	e2 := entityOf(t, h2, two)
	if got := h1.Host.ComponentsOf(e1)["n"]; got != 3 {
		t.Errorf("expected runtime one at 3, got %v", got)
	}
	if got := h2.Host.ComponentsOf(e2)["n"]; got != 0 {
		t.Errorf("expected runtime two untouched, got %v", got)
	}
}
