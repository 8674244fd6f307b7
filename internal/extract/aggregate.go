package extract

import "sort"

// ValueCount pairs a distinct value with its occurrence count across notes.
// Typ is set for indicator aggregation and empty for tags.
type ValueCount struct {
	Value string
	Count int
	Typ   Type
}

// CountTags aggregates stored tag lists, one list per note. Results are
// ordered by count descending, ties by value ascending.
func CountTags(lists ...[]string) []ValueCount {
	counts := make(map[string]int)
	for _, tags := range lists {
		for _, tag := range tags {
			counts[tag]++
		}
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sortCounts(out)
	return out
}

// CountIndicators aggregates stored IOC lists, one list per note. A value
// counts once per note appearance; the same value under two types counts as
// two distinct entries.
func CountIndicators(lists ...[]Indicator) []ValueCount {
	type key struct {
		typ   Type
		value string
	}
	counts := make(map[key]int)
	for _, iocs := range lists {
		for _, ioc := range iocs {
			counts[key{ioc.Type, ioc.Value}]++
		}
	}
	out := make([]ValueCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, ValueCount{Value: k.value, Count: n, Typ: k.typ})
	}
	sortCounts(out)
	return out
}

func sortCounts(out []ValueCount) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Value != out[j].Value {
			return out[i].Value < out[j].Value
		}
		return out[i].Typ < out[j].Typ
	})
}
