package cmp_test

import (
	"testing"

	"github.com/cropbase/cropbase/pkg/utils/cmp"
)

func TestSliceContentEq(t *testing.T) {
	t.Run("it does not care ordering", func(t *testing.T) {
		if !cmp.SliceContentEq([]string{"a", "b", "c"}, []string{"c", "b", "a"}) {
			t.Error("same content should be equal")
		}
	})
	t.Run("it cares multiplicity", func(t *testing.T) {
		if cmp.SliceContentEq([]string{"a", "b", "c", "c"}, []string{"a", "b", "c"}) {
			t.Error("bags with different sizes should not be equal")
		}
		if cmp.SliceContentEq([]string{"a", "a", "b"}, []string{"a", "b", "b"}) {
			t.Error("bags with different multiplicities should not be equal")
		}
	})
}

func TestMapEqWith(t *testing.T) {
	comparator := func(a, b int) bool { return a == b }

	t.Run("equal maps", func(t *testing.T) {
		a := map[string]int{"x": 1, "y": 2}
		b := map[string]int{"y": 2, "x": 1}
		if !cmp.MapEqWith(a, b, comparator) {
			t.Error("maps with same entries should be equal")
		}
	})
	t.Run("different values", func(t *testing.T) {
		a := map[string]int{"x": 1, "y": 2}
		b := map[string]int{"x": 1, "y": 3}
		if cmp.MapEqWith(a, b, comparator) {
			t.Error("maps with different values should not be equal")
		}
	})
	t.Run("different key sets", func(t *testing.T) {
		a := map[string]int{"x": 1}
		b := map[string]int{"x": 1, "y": 2}
		if cmp.MapEqWith(a, b, comparator) {
			t.Error("maps with different keys should not be equal")
		}
	})
}

func TestPEqEq(t *testing.T) {
	one, anotherOne, two := 1, 1, 2

	if !cmp.PEqEq(&one, &anotherOne) {
		t.Error("pointers to equal values should be equal")
	}
	if cmp.PEqEq(&one, &two) {
		t.Error("pointers to different values should not be equal")
	}
	if cmp.PEqEq(&one, nil) {
		t.Error("nil and non-nil should not be equal")
	}
	if !cmp.PEqEq[int](nil, nil) {
		t.Error("nil and nil should be equal")
	}
}
