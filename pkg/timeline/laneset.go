package timeline

import (
	"fmt"
	"slices"
	"strings"
)

// LaneSet is a set of lane ids. The zero value is an empty set.
type LaneSet map[int]struct{}

// NewLaneSet returns a set holding ids.
func NewLaneSet(ids ...int) LaneSet {
	s := make(LaneSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Span returns the set of every lane in the closed interval [lo, hi].
func Span(lo, hi int) LaneSet {
	s := make(LaneSet, max(hi-lo+1, 0))
	for id := lo; id <= hi; id++ {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s LaneSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}

// Minus returns the lanes of s that are not in other.
func (s LaneSet) Minus(other LaneSet) LaneSet {
	out := make(LaneSet)
	for id := range s {
		if !other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Union returns the lanes present in either set.
func (s LaneSet) Union(other LaneSet) LaneSet {
	out := make(LaneSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same lanes.
func (s LaneSet) Equal(other LaneSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s LaneSet) Clone() LaneSet {
	out := make(LaneSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the lane ids in ascending order.
func (s LaneSet) Sorted() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Bounds returns the smallest and largest lane id. ok is false for an empty set.
func (s LaneSet) Bounds() (lo, hi int, ok bool) {
	first := true
	for id := range s {
		if first {
			lo, hi, first = id, id, false
			continue
		}
		lo = min(lo, id)
		hi = max(hi, id)
	}
	return lo, hi, !first
}

// String formats the set as {a,b,c}.
func (s LaneSet) String() string {
	ids := s.Sorted()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
