package mev

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

func sortedSlice(s mapset.Set[string]) []string {
	out := s.ToSlice()
	sort.Strings(out)
	return out
}
