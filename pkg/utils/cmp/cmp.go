package cmp

type BiPredicator[V any, U any] func(a V, b U) bool

// a == b as BiPredicator function
func EqEq[T comparable](a, b T) bool {
	return a == b
}

// *a == *b as BiPredicator function
func PEqEq[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func PEqualWith[T any](a, b *T, pred func(T, T) bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return pred(*a, *b)
}

func SliceEq[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for nth, va := range a {
		if va != b[nth] {
			return false
		}
	}
	return true
}

func SliceEqWith[T any, U any](a []T, b []U, pred func(a T, b U) bool) bool {
	if len(a) != len(b) {
		return false
	}

	for nth := range a {
		if !pred(a[nth], b[nth]) {
			return false
		}
	}

	return true
}

// check 2 slices have same content ignoring its ordering.
//
// In other words, this function answers equality of two bags (or multi-sets).
func SliceContentEq[T comparable](a, b []T) bool {
	return SliceContentEqWith(a, b, EqEq[T])
}

// check 2 slices have equivarent content ignoring its ordering.
//
// args:
//   - a []S, b []T: slices to be compaired
//   - equiv: predicator says that two instances are equivarent or not.
//
// return:
//
//	true when slices `a` and `b` are equivarent (as bag).
//	otherwise, false.
func SliceContentEqWith[S, T any](a []S, b []T, equiv BiPredicator[S, T]) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}

	bm := make(map[int]*T, len(b))
	for i := range b {
		bm[i] = &b[i]
	}

NEXT_A:
	for _, va := range a {
		for k, vb := range bm {
			if equiv(va, *vb) {
				delete(bm, k)
				continue NEXT_A
			}
		}
		return false
	}

	return len(bm) == 0
}

// check a == b
func MapEq[K comparable, V comparable](a map[K]V, b map[K]V) bool {
	if len(a) != len(b) {
		return false
	}
	return MapGeqWith(a, b, EqEq[V]) && MapLeqWith(a, b, EqEq[V])
}

// check a == b, in context of comparator
func MapEqWith[K comparable, V any, U any](a map[K]V, b map[K]U, comparator BiPredicator[V, U]) bool {
	if len(a) != len(b) {
		return false
	}
	return MapGeqWith(a, b, comparator) && MapLeqWith(a, b, comparator)
}

// check a ⊆ b, in context of comparator
func MapLeqWith[K comparable, V any, U any](a map[K]V, b map[K]U, comparator BiPredicator[V, U]) bool {
	for ka, va := range a {
		vb, ok := b[ka]
		if !ok || !comparator(va, vb) {
			return false
		}
	}

	return true
}

// check b ⊆ a, in context of comparator
func MapGeqWith[K comparable, V any, U any](a map[K]V, b map[K]U, comparator BiPredicator[V, U]) bool {
	for kb, vb := range b {
		va, ok := a[kb]
		if !ok || !comparator(va, vb) {
			return false
		}
	}
	return true
}
