package worker

import "testing"

func TestCountiesEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b map[int]struct{}
		want bool
	}{
		{"both empty", map[int]struct{}{}, map[int]struct{}{}, true},
		{"same single", map[int]struct{}{1: {}}, map[int]struct{}{1: {}}, true},
		{"same multi, different insertion order", map[int]struct{}{1: {}, 4: {}}, map[int]struct{}{4: {}, 1: {}}, true},
		{"different size", map[int]struct{}{1: {}}, map[int]struct{}{1: {}, 4: {}}, false},
		{"same size, different members", map[int]struct{}{1: {}}, map[int]struct{}{4: {}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := countiesEqual(tc.a, tc.b); got != tc.want {
				t.Errorf("countiesEqual(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestCountiesSlice(t *testing.T) {
	set := map[int]struct{}{1: {}, 4: {}, 7: {}}
	got := countiesSlice(set)
	if len(got) != 3 {
		t.Fatalf("len(countiesSlice(set)) = %d, want 3", len(got))
	}
	seen := make(map[int]struct{}, 3)
	for _, c := range got {
		seen[c] = struct{}{}
	}
	if !countiesEqual(seen, set) {
		t.Errorf("countiesSlice(%v) = %v, lost or invented members", set, got)
	}
}

func TestCountiesSliceEmpty(t *testing.T) {
	if got := countiesSlice(map[int]struct{}{}); len(got) != 0 {
		t.Errorf("countiesSlice(empty) = %v, want empty slice", got)
	}
}
