package models

import (
	"fmt"
	"sort"
)

// SlotRange is an inclusive range of cluster hash slots
type SlotRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of slots covered by the range
func (r SlotRange) Len() int {
	return r.End - r.Start + 1
}

// Contains reports whether slot falls inside the range
func (r SlotRange) Contains(slot int) bool {
	return slot >= r.Start && slot <= r.End
}

func (r SlotRange) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// NormalizeSlots sorts and merges owned ranges, then carves out every slot
// listed in migrating. The result never contains a migrating slot.
func NormalizeSlots(owned []SlotRange, migrating []int) []SlotRange {
	if len(owned) == 0 {
		return nil
	}

	sorted := make([]SlotRange, len(owned))
	copy(sorted, owned)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})

	merged := make([]SlotRange, 0, len(sorted))
	for _, r := range sorted {
		if n := len(merged); n > 0 && r.Start <= merged[n-1].End+1 {
			if r.End > merged[n-1].End {
				merged[n-1].End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}

	if len(migrating) == 0 {
		return merged
	}

	result := make([]SlotRange, 0, len(merged))
	for _, r := range merged {
		pieces := []SlotRange{r}
		for _, slot := range migrating {
			next := pieces[:0:0]
			for _, p := range pieces {
				if !p.Contains(slot) {
					next = append(next, p)
					continue
				}
				if slot > p.Start {
					next = append(next, SlotRange{Start: p.Start, End: slot - 1})
				}
				if slot < p.End {
					next = append(next, SlotRange{Start: slot + 1, End: p.End})
				}
			}
			pieces = next
		}
		result = append(result, pieces...)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// UniqueSorted returns the distinct values of slots in ascending order
func UniqueSorted(slots []int) []int {
	if len(slots) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(slots))
	out := make([]int, 0, len(slots))
	for _, s := range slots {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

// SlotCount returns the total number of slots covered by ranges
func SlotCount(ranges []SlotRange) int {
	total := 0
	for _, r := range ranges {
		total += r.Len()
	}
	return total
}
