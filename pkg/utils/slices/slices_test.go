package slices_test

import (
	"errors"
	"testing"

	"github.com/cropbase/cropbase/pkg/utils/cmp"
	"github.com/cropbase/cropbase/pkg/utils/slices"
)

func TestSliceUtils(t *testing.T) {
	t.Run("Map maps slice to another", func(t *testing.T) {
		input := []int{3, 5, 7, 11}
		called := 0
		mapper := func(v int) int {
			called += 1
			return v * 2
		}
		output := slices.Map(input, mapper)

		if called != len(input) {
			t.Errorf("mapper has not been called enough. (actual, expected) = (%d, %d)", called, len(input))
		}

		expected := []int{6, 10, 14, 22}
		if !cmp.SliceEq(output, expected) {
			t.Errorf("mapped result is wrong. (actual, expected) = (%v, %v)", output, expected)
		}
	})

	t.Run("MapUntilError stops at the first error", func(t *testing.T) {
		input := []int{3, 5, 7, 11}
		expectedErr := errors.New("fake error")

		called := 0
		mapper := func(v int) (int, error) {
			called += 1
			if 5 < v {
				return 0, expectedErr
			}
			return v * 2, nil
		}

		output, err := slices.MapUntilError(input, mapper)
		if !errors.Is(err, expectedErr) {
			t.Errorf("unexpected error: %v", err)
		}
		if output != nil {
			t.Errorf("output should be nil on error: %v", output)
		}
		if called != 3 {
			t.Errorf("mapper should stop at the first error. called = %d", called)
		}
	})

	t.Run("ToMap converts slice to map", func(t *testing.T) {
		type T struct {
			key   string
			value int
		}
		values := []T{
			{key: "a", value: 3},
			{key: "b", value: 99},
			{key: "c", value: 100},
			{key: "d", value: 2},
		}

		result := slices.ToMap(values, func(v T) string { return v.key })

		expected := map[string]T{
			"a": {key: "a", value: 3},
			"b": {key: "b", value: 99},
			"c": {key: "c", value: 100},
			"d": {key: "d", value: 2},
		}

		if !cmp.MapEqWith(result, expected, func(a, b T) bool { return a == b }) {
			t.Errorf(
				"ToMap generates wrong map. (actual, expected) = (%v, %v)",
				result, expected,
			)
		}
	})

	t.Run("KeysOf and ValuesOf make slices from a map", func(t *testing.T) {
		input := map[string]int{"a": 3, "b": 99, "c": 100}

		keys := slices.KeysOf(input)
		if !cmp.SliceContentEq(keys, []string{"a", "b", "c"}) {
			t.Errorf("KeysOf is wrong: %v", keys)
		}

		values := slices.ValuesOf(input)
		if !cmp.SliceContentEq(values, []int{3, 99, 100}) {
			t.Errorf("ValuesOf is wrong: %v", values)
		}
	})

	t.Run("Filter picks matching elements", func(t *testing.T) {
		input := []int{1, 2, 3, 4, 5, 6}
		actual := slices.Filter(input, func(v int) bool { return v%2 == 0 })
		if !cmp.SliceEq(actual, []int{2, 4, 6}) {
			t.Errorf("Filter is wrong: %v", actual)
		}
	})

	t.Run("First finds the first matching element", func(t *testing.T) {
		input := []int{1, 2, 3, 4, 5, 6}

		actual, ok := slices.First(input, func(v int) bool { return 3 < v })
		if !ok || actual != 4 {
			t.Errorf("First is wrong: (%v, %v)", actual, ok)
		}

		_, ok = slices.First(input, func(v int) bool { return 100 < v })
		if ok {
			t.Error("First should not find anything")
		}
	})

	t.Run("Sorted does not break the passed slice", func(t *testing.T) {
		input := []int{5, 3, 1, 4, 2}
		actual := slices.Sorted(input, func(a, b int) bool { return a < b })

		if !cmp.SliceEq(actual, []int{1, 2, 3, 4, 5}) {
			t.Errorf("Sorted is wrong: %v", actual)
		}
		if !cmp.SliceEq(input, []int{5, 3, 1, 4, 2}) {
			t.Errorf("Sorted should not change the input: %v", input)
		}
	})

	t.Run("Concat joins slices in order", func(t *testing.T) {
		actual := slices.Concat([]int{1, 2}, []int{}, []int{3})
		if !cmp.SliceEq(actual, []int{1, 2, 3}) {
			t.Errorf("Concat is wrong: %v", actual)
		}
	})
}
