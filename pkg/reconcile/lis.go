package reconcile

// longestIncreasing returns the indices into seq of one longest
// strictly increasing subsequence. O(n log n) patience variant with
// predecessor links for reconstruction.
func longestIncreasing(seq []int) []int {
	if len(seq) == 0 {
		return nil
	}

	// tails[k] is the index in seq of the smallest tail of an increasing
	// subsequence of length k+1.
	tails := make([]int, 0, len(seq))
	prev := make([]int, len(seq))

	for i, v := range seq {
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if seq[tails[mid]] < v {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			prev[i] = tails[lo-1]
		} else {
			prev[i] = -1
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}

	out := make([]int, len(tails))
	k := tails[len(tails)-1]
	for i := len(tails) - 1; i >= 0; i-- {
		out[i] = k
		k = prev[k]
	}
	return out
}
