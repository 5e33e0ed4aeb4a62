// Package ranking implements report entry selection and filtering.
package ranking

import (
	"strings"

	"github.com/phobologic/proforma/internal/index"
	"github.com/phobologic/proforma/internal/model"
)

// SelectEntries returns a new Report with only the first maxEntries entries.
// If maxEntries is <= 0 or >= len(entries), the report is returned unchanged.
func SelectEntries(r *model.Report, maxEntries int) *model.Report {
	if maxEntries <= 0 || maxEntries >= len(r.Entries) {
		return r
	}
	return withEntries(r, r.Entries[:maxEntries])
}

// InvalidOnly returns a new Report containing only entries that failed to parse.
func InvalidOnly(r *model.Report) *model.Report {
	var kept []model.Entry
	for i := range r.Entries {
		if !r.Entries[i].Valid() {
			kept = append(kept, r.Entries[i])
		}
	}
	return withEntries(r, kept)
}

// FilterByModification returns a new Report containing only entries with a
// descriptor or tag group whose value contains substr (case-insensitive).
func FilterByModification(r *model.Report, substr string) *model.Report {
	lower := strings.ToLower(substr)

	var kept []model.Entry
	for i := range r.Entries {
		e := &r.Entries[i]
		if e.Valid() && termMentions(e.Term, lower) {
			kept = append(kept, *e)
		}
	}
	return withEntries(r, kept)
}

// FilterBySource returns a new Report containing only entries whose source
// path contains substr.
func FilterBySource(r *model.Report, substr string) *model.Report {
	var kept []model.Entry
	for i := range r.Entries {
		if strings.Contains(r.Entries[i].Source, substr) {
			kept = append(kept, r.Entries[i])
		}
	}
	return withEntries(r, kept)
}

// withEntries rebuilds the modification index so it only covers entries.
func withEntries(r *model.Report, entries []model.Entry) *model.Report {
	return &model.Report{
		Name:          r.Name,
		Entries:       entries,
		Modifications: index.BuildModificationIndex(entries),
	}
}

func termMentions(t *model.Term, lower string) bool {
	match := func(ds []model.Descriptor) bool {
		for _, d := range ds {
			if strings.Contains(strings.ToLower(d.Value), lower) {
				return true
			}
		}
		return false
	}

	if match(t.NTerminalDescriptors) || match(t.CTerminalDescriptors) {
		return true
	}
	for i := range t.Tags {
		if match(t.Tags[i].Descriptors) {
			return true
		}
	}
	for i := range t.UnlocalizedTags {
		if match(t.UnlocalizedTags[i].Descriptors) {
			return true
		}
	}
	for i := range t.TagGroups {
		if strings.Contains(strings.ToLower(t.TagGroups[i].Value), lower) {
			return true
		}
	}
	return false
}
