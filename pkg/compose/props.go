package compose

import "reflect"

// Props is an immutable-by-convention snapshot of the inputs passed to
// a node at evaluation time. Values are compared with value equality;
// non-comparable values fall back to reflect.DeepEqual.
//
// A nil value is the removal marker in component diffs (see Diff), so
// props must not carry explicit nil values; omit the key instead.
type Props map[string]any

// Equal reports whether p and other hold the same keys and values.
func (p Props) Equal(other Props) bool {
	if len(p) != len(other) {
		return false
	}
	for k, v := range p {
		ov, ok := other[k]
		if !ok || !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy of p.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Diff returns the component diff turning p into next: changed and
// added keys carry their new value, removed keys are present with a
// nil value. An empty result means no component changed.
func (p Props) Diff(next Props) Props {
	diff := Props{}
	for k, v := range next {
		old, ok := p[k]
		if !ok || !reflect.DeepEqual(old, v) {
			diff[k] = v
		}
	}
	for k := range p {
		if _, ok := next[k]; !ok {
			diff[k] = nil
		}
	}
	return diff
}
