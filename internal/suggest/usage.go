package suggest

import "sort"

// usageCapacity and usageTrimTo implement §4.7's recordUsage cap: once the
// counter map exceeds usageCapacity keys, it is trimmed down to the
// usageTrimTo highest counts.
const (
	usageCapacity = 200
	usageTrimTo   = 100
)

// usageCounters tracks how often each suggestion label has been accepted,
// feeding the rank() boost. Unexported map access is always under the
// owning Engine's mutex.
type usageCounters struct {
	counts map[string]int
}

func newUsageCounters() *usageCounters {
	return &usageCounters{counts: make(map[string]int)}
}

func (u *usageCounters) record(label string) {
	u.counts[label]++
	if len(u.counts) > usageCapacity {
		u.trim()
	}
}

func (u *usageCounters) get(label string) int {
	return u.counts[label]
}

// trim keeps the usageTrimTo labels with the highest counts, dropping the
// long tail of one-off usages.
func (u *usageCounters) trim() {
	type labelCount struct {
		label string
		count int
	}
	all := make([]labelCount, 0, len(u.counts))
	for label, count := range u.counts {
		all = append(all, labelCount{label, count})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].count > all[j].count })
	if len(all) > usageTrimTo {
		all = all[:usageTrimTo]
	}
	kept := make(map[string]int, len(all))
	for _, lc := range all {
		kept[lc.label] = lc.count
	}
	u.counts = kept
}
