// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/proforma/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a Report into TOON format.
func Encode(r *model.Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("report: %s", encodeValue(r.Name)))

	var entryRows [][]string
	for i := range r.Entries {
		e := &r.Entries[i]
		status, sequence := "invalid", ""
		if e.Valid() {
			status, sequence = "ok", e.Term.Sequence
		}
		entryRows = append(entryRows, []string{
			e.Source,
			strconv.Itoa(e.Line),
			e.Text,
			sequence,
			status,
		})
	}
	parts = append(parts, formatTabular("entries", []string{"source", "line", "notation", "sequence", "status"}, entryRows))

	var descriptorRows, groupRows [][]string
	for i := range r.Entries {
		e := &r.Entries[i]
		if !e.Valid() {
			continue
		}
		prefix := []string{e.Source, strconv.Itoa(e.Line)}
		for _, row := range descriptorRowsFor(e.Term) {
			descriptorRows = append(descriptorRows, append(append([]string{}, prefix...), row...))
		}
		for _, row := range groupRowsFor(e.Term) {
			groupRows = append(groupRows, append(append([]string{}, prefix...), row...))
		}
	}
	parts = append(parts, formatTabular("descriptors", []string{"source", "line", "site", "index", "key", "value"}, descriptorRows))
	parts = append(parts, formatTabular("groups", []string{"source", "line", "name", "key", "value", "members"}, groupRows))

	var modRows [][]string
	for i := range r.Modifications {
		u := &r.Modifications[i]
		modRows = append(modRows, []string{
			string(u.Key),
			u.Value,
			strconv.Itoa(u.Count),
			strings.Join(u.Entries, " "),
		})
	}
	parts = append(parts, formatTabular("modifications", []string{"key", "value", "count", "entries"}, modRows))

	if r.Invalid() > 0 {
		var errRows [][]string
		for i := range r.Entries {
			e := &r.Entries[i]
			if e.Valid() {
				continue
			}
			errRows = append(errRows, []string{e.Source, strconv.Itoa(e.Line), e.Text, e.Err})
		}
		parts = append(parts, formatTabular("errors", []string{"source", "line", "notation", "error"}, errRows))
	}

	return strings.Join(parts, "\n")
}

// EncodeTerm converts a single Term into TOON format.
func EncodeTerm(t *model.Term) string {
	parts := []string{
		fmt.Sprintf("sequence: %s", encodeValue(t.Sequence)),
		formatTabular("descriptors", []string{"site", "index", "key", "value"}, descriptorRowsFor(t)),
	}
	if len(t.TagGroups) > 0 {
		parts = append(parts, formatTabular("groups", []string{"name", "key", "value", "members"}, groupRowsFor(t)))
	}
	return strings.Join(parts, "\n")
}

// Descriptor sites.
const (
	siteNTerm       = "n-term"
	siteResidue     = "residue"
	siteCTerm       = "c-term"
	siteUnlocalized = "unlocalized"
)

func descriptorRowsFor(t *model.Term) [][]string {
	var rows [][]string
	add := func(site string, index int, ds []model.Descriptor) {
		for _, d := range ds {
			rows = append(rows, []string{site, strconv.Itoa(index), string(d.Key), d.Value})
		}
	}

	for i := range t.UnlocalizedTags {
		add(siteUnlocalized, t.UnlocalizedTags[i].Index, t.UnlocalizedTags[i].Descriptors)
	}
	add(siteNTerm, model.Unanchored, t.NTerminalDescriptors)
	for i := range t.Tags {
		add(siteResidue, t.Tags[i].Index, t.Tags[i].Descriptors)
	}
	add(siteCTerm, model.Unanchored, t.CTerminalDescriptors)
	return rows
}

func groupRowsFor(t *model.Term) [][]string {
	var rows [][]string
	for i := range t.TagGroups {
		g := &t.TagGroups[i]
		members := make([]string, len(g.Members))
		for j, m := range g.Members {
			members[j] = strconv.Itoa(m.Index)
		}
		rows = append(rows, []string{g.Name, string(g.Key), g.Value, strings.Join(members, " ")})
	}
	return rows
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
