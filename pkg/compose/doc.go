// Package compose defines the declarative tree model consumed by the
// reconciler: nodes with a closed kind variant, value-compared props,
// explicit or positional identity, and the hook-style Context used by
// composable functions to access persistent state.
//
// A Node is an ephemeral per-evaluation value. Evaluation expands Func
// nodes and resolves every node to an Instance carrying a stable
// Identity; the resulting Tree is the immutable snapshot the
// reconciler diffs against the previously committed one.
package compose
