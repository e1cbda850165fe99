package slices

import "sort"

// map each element in sli.
//
// args:
//   - sli : slice of `T`s
//   - mapper : mapping function from T to R
//
// return:
//
//	slice of `R`s.
//	each element indexed `N` is given with `mapper(sli[N])` .
func Map[T any, R any](sli []T, mapper func(v T) R) []R {
	ret := make([]R, len(sli))
	for nth, v := range sli {
		ret[nth] = mapper(v)
	}
	return ret
}

// Map over sli with mapper.
//
// If mapper causes error, return (nil, error).
//
// Otherwise, return (mapping result, nil).
func MapUntilError[T any, R any](sli []T, mapper func(v T) (R, error)) ([]R, error) {
	ret := make([]R, len(sli))
	for nth, v := range sli {
		r, err := mapper(v)
		if err != nil {
			return nil, err
		}
		ret[nth] = r
	}
	return ret, nil
}

// convert slice to map.
//
// If keys given with getkey collide, a value coming latter takes over previous.
func ToMap[T any, K comparable](sli []T, getkey func(v T) K) map[K]T {
	m := map[K]T{}
	for _, v := range sli {
		m[getkey(v)] = v
	}
	return m
}

// flatten map to slice of its keys.
func KeysOf[T any, K comparable](m map[K]T) []K {
	sli := make([]K, 0, len(m))
	for k := range m {
		sli = append(sli, k)
	}
	return sli
}

// flatten map to slice of its values.
func ValuesOf[T any, K comparable](m map[K]T) []T {
	sli := make([]T, 0, len(m))
	for _, value := range m {
		sli = append(sli, value)
	}
	return sli
}

// filter elements match with predicator.
func Filter[T any](vs []T, predicator func(T) bool) []T {
	ret := []T{}
	for _, v := range vs {
		if predicator(v) {
			ret = append(ret, v)
		}
	}
	return ret
}

// find first element match with predicator.
//
// returns:
//
//	(T, true) if found. otherwise, (zero value of T, false)
func First[T any](sli []T, predicator func(T) bool) (T, bool) {
	for _, v := range sli {
		if predicator(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// sort slice. this does non-stable sort and does not change the passed slice.
func Sorted[T any](sli []T, less func(a, b T) bool) []T {
	sorted := make([]T, len(sli))
	copy(sorted, sli)

	sort.Slice(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	return sorted
}

// concatenate slices.
func Concat[T any](sli ...[]T) []T {
	l := 0
	for _, s := range sli {
		l += len(s)
	}

	dest := make([]T, 0, l)
	for _, s := range sli {
		dest = append(dest, s...)
	}
	return dest
}
