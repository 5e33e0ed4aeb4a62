// Package index builds a cross-entry index of the modifications used in a report.
package index

import (
	"sort"

	"github.com/phobologic/proforma/internal/model"
)

type usageKey struct {
	key   model.DescriptorKey
	value string
}

// BuildModificationIndex groups every descriptor in the valid entries by
// (key, value). Positional, terminal and unlocalized descriptors count, as
// does the founding descriptor of each tag group. Rows are sorted by count
// descending, then key, then value.
func BuildModificationIndex(entries []model.Entry) []model.ModUsage {
	counts := make(map[usageKey]int)
	seen := make(map[usageKey]map[string]struct{})
	order := make(map[usageKey][]string)

	add := func(d model.Descriptor, id string) {
		k := usageKey{d.Key, d.Value}
		counts[k]++
		if seen[k] == nil {
			seen[k] = make(map[string]struct{})
		}
		if _, dup := seen[k][id]; dup {
			return
		}
		seen[k][id] = struct{}{}
		order[k] = append(order[k], id)
	}

	for i := range entries {
		e := &entries[i]
		if !e.Valid() {
			continue
		}
		id := e.ID()
		forEachDescriptor(e.Term, func(d model.Descriptor) { add(d, id) })
	}

	usages := make([]model.ModUsage, 0, len(counts))
	for k, n := range counts {
		usages = append(usages, model.ModUsage{
			Key:     k.key,
			Value:   k.value,
			Count:   n,
			Entries: order[k],
		})
	}

	// Sort for deterministic output
	sort.Slice(usages, func(i, j int) bool {
		if usages[i].Count != usages[j].Count {
			return usages[i].Count > usages[j].Count
		}
		if usages[i].Key != usages[j].Key {
			return usages[i].Key < usages[j].Key
		}
		return usages[i].Value < usages[j].Value
	})

	return usages
}

// forEachDescriptor visits the descriptors of a term in a fixed order:
// N-terminal, positional, C-terminal, unlocalized, then group founders
// that carry a value.
func forEachDescriptor(t *model.Term, fn func(model.Descriptor)) {
	for _, d := range t.NTerminalDescriptors {
		fn(d)
	}
	for i := range t.Tags {
		for _, d := range t.Tags[i].Descriptors {
			fn(d)
		}
	}
	for _, d := range t.CTerminalDescriptors {
		fn(d)
	}
	for i := range t.UnlocalizedTags {
		for _, d := range t.UnlocalizedTags[i].Descriptors {
			fn(d)
		}
	}
	for i := range t.TagGroups {
		g := &t.TagGroups[i]
		// A group founded by a bare reference carries no modification.
		if g.Value == "" {
			continue
		}
		fn(model.Descriptor{Key: g.Key, Value: g.Value})
	}
}
