package parse

import (
	"testing"

	"github.com/phobologic/proforma/internal/lang"
	"github.com/phobologic/proforma/internal/model"
)

func setup(t *testing.T, formatName string) func(source string) []model.Notation {
	t.Helper()
	f := lang.Formats[formatName]
	if f == nil {
		t.Fatalf("format %q not registered", formatName)
	}
	q, err := f.GetNotationQuery()
	if err != nil {
		t.Fatalf("GetNotationQuery: %v", err)
	}
	ext := f.Extensions[0]
	return func(source string) []model.Notation {
		p := f.NewParser()
		return ExtractNotations(f, p, q, []byte(source), "test"+ext)
	}
}

func texts(ns []model.Notation) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Text
	}
	return out
}

// --- Text tests ---

func TestTextExtractLines(t *testing.T) {
	t.Parallel()
	extract := setup(t, "text")

	ns := extract("PEPTIDE\n\n# a comment\n  [Acetyl]-PEPTIDE  \nPEPS[Phospho]TIDE\n")
	if len(ns) != 3 {
		t.Fatalf("expected 3 notations, got %d: %v", len(ns), texts(ns))
	}

	want := []struct {
		text string
		line int
	}{
		{"PEPTIDE", 1},
		{"[Acetyl]-PEPTIDE", 4},
		{"PEPS[Phospho]TIDE", 5},
	}
	for i, w := range want {
		if ns[i].Text != w.text {
			t.Errorf("notation %d = %q, want %q", i, ns[i].Text, w.text)
		}
		if ns[i].Line != w.line {
			t.Errorf("notation %d line = %d, want %d", i, ns[i].Line, w.line)
		}
		if ns[i].Source != "test.proforma" {
			t.Errorf("notation %d source = %q", i, ns[i].Source)
		}
	}
}

func TestTextNoTrailingNewline(t *testing.T) {
	t.Parallel()
	extract := setup(t, "text")

	ns := extract("PEPTIDE")
	if len(ns) != 1 || ns[0].Text != "PEPTIDE" {
		t.Errorf("got %v", texts(ns))
	}
}

func TestEmptySource(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"text", "yaml"} {
		extract := setup(t, name)
		if ns := extract(""); ns != nil {
			t.Errorf("%s: expected nil for empty source, got %v", name, ns)
		}
	}
}

// --- YAML tests ---

func TestYAMLExtractListItems(t *testing.T) {
	t.Parallel()
	extract := setup(t, "yaml")

	source := `name: phospho panel
peptides:
  - PEPTIDE
  - "PEPS[Phospho]TIDE"
  - '[Acetyl]-PEPTIDE'
`
	ns := extract(source)
	if len(ns) != 3 {
		t.Fatalf("expected 3 notations, got %d: %v", len(ns), texts(ns))
	}

	got := make(map[string]int)
	for _, n := range ns {
		got[n.Text] = n.Line
	}
	for text, line := range map[string]int{
		"PEPTIDE":           3,
		"PEPS[Phospho]TIDE": 4,
		"[Acetyl]-PEPTIDE":  5,
	} {
		if got[text] != line {
			t.Errorf("%q: line = %d, want %d (all: %v)", text, got[text], line, got)
		}
	}
}

func TestYAMLIgnoresMappingValues(t *testing.T) {
	t.Parallel()
	extract := setup(t, "yaml")

	ns := extract("name: PEPTIDE\ndescription: not a list\n")
	if len(ns) != 0 {
		t.Errorf("expected no notations, got %v", texts(ns))
	}
}

func TestUnquote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		nodeType string
		in       string
		want     string
	}{
		{"double_quote_scalar", `"PEPTIDE"`, "PEPTIDE"},
		{"double_quote_scalar", `"PEP\tTIDE"`, "PEP\tTIDE"},
		{"single_quote_scalar", `'[info:it''s]PEPTIDE'`, "[info:it's]PEPTIDE"},
		{"string_scalar", " PEPTIDE ", "PEPTIDE"},
	}

	for _, tt := range tests {
		if got := unquote(tt.nodeType, tt.in); got != tt.want {
			t.Errorf("unquote(%q, %q) = %q, want %q", tt.nodeType, tt.in, got, tt.want)
		}
	}
}
