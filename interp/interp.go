// package interp provides helpers for interpolating between sample values.
package interp

import (
	"golang.org/x/exp/constraints"
)

// L does linear interpolation:
//
//	L(a, b, c) = (1-c)*a + c*b
//	           = a + c*(b-a)
//
// c is not clamped, callers that need to stay between a and b should keep it
// in [0, 1].
func L[T constraints.Float](a, b, c T) T {
	return a + c*(b-a)
}

// Pos returns where x sits between start and end as a fraction, 0 at start
// and 1 at end. A zero length span counts as already finished and returns 1.
func Pos[T constraints.Float](start, x, end T) T {
	if end <= start {
		return 1
	}
	return (x - start) / (end - start)
}
