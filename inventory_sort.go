package savedata

import (
	"cmp"
	"fmt"
)

type SortBy int

const (
	SortByLevel SortBy = iota
	SortByRarity
	SortBySlot
)

var tieBreakOrder = [...]SortBy{SortByLevel, SortByRarity, SortBySlot}

func (s SortBy) String() string {
	switch s {
	case SortByLevel:
		return "level"
	case SortByRarity:
		return "rarity"
	case SortBySlot:
		return "slot"
	default:
		return fmt.Sprintf("sortby(%d)", int(s))
	}
}

// recordComparator orders equipped records first, then by the criterion,
// then by the two remaining criteria in tieBreakOrder. Level and rarity
// sort high to low, slot low to high.
func recordComparator[T Record](by SortBy) func(a, b T) int {
	return func(a, b T) int {
		if a.IsEquipped() != b.IsEquipped() {
			if a.IsEquipped() {
				return -1
			}
			return 1
		}
		if c := compareRecordsBy(by, a, b); c != 0 {
			return c
		}
		for _, k := range tieBreakOrder {
			if k == by {
				continue
			}
			if c := compareRecordsBy(k, a, b); c != 0 {
				return c
			}
		}
		return 0
	}
}

func compareRecordsBy[T Record](by SortBy, a, b T) int {
	switch by {
	case SortByLevel:
		return cmp.Compare(b.RecordLevel(), a.RecordLevel())
	case SortByRarity:
		return cmp.Compare(b.RecordRarity(), a.RecordRarity())
	case SortBySlot:
		return cmp.Compare(a.RecordSlot(), b.RecordSlot())
	default:
		return 0
	}
}
