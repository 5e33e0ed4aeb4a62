package proforma

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/proforma/internal/model"
)

func parse(t *testing.T, s string) *model.Term {
	t.Helper()
	term, err := NewParser(false).Parse(s)
	require.NoError(t, err, s)
	require.NotNil(t, term)
	return term
}

func parseErr(t *testing.T, s string) *ParseError {
	t.Helper()
	term, err := NewParser(false).Parse(s)
	require.Error(t, err, s)
	assert.Nil(t, term)
	var pe *ParseError
	require.True(t, errors.As(err, &pe), "error %v is not a *ParseError", err)
	return pe
}

func name(v string) model.Descriptor {
	return model.Descriptor{Key: model.KnownModificationName, Value: v}
}

func TestParseBareSequence(t *testing.T) {
	for _, s := range []string{"PEPTIDE", "A", "ACDEFGHIKLMNPQRSTVWY", "BJOUZ"} {
		term := parse(t, s)
		assert.Equal(t, s, term.Sequence)
		assert.False(t, term.HasModifications(), s)
		assert.Nil(t, term.Tags)
		assert.Nil(t, term.NTerminalDescriptors)
		assert.Nil(t, term.CTerminalDescriptors)
		assert.Nil(t, term.UnlocalizedTags)
		assert.Nil(t, term.TagGroups)
	}
}

func TestParsePositionalTag(t *testing.T) {
	term := parse(t, "PEPTIDE[Phospho]")

	assert.Equal(t, "PEPTIDE", term.Sequence)
	require.Len(t, term.Tags, 1)
	assert.Equal(t, 6, term.Tags[0].Index)
	assert.Equal(t, []model.Descriptor{name("Phospho")}, term.Tags[0].Descriptors)
}

func TestParseInteriorTags(t *testing.T) {
	term := parse(t, "PEPS[Phospho]TIDE[U:21]")

	assert.Equal(t, "PEPSTIDE", term.Sequence)
	require.Len(t, term.Tags, 2)
	assert.Equal(t, model.Tag{Index: 3, Descriptors: []model.Descriptor{name("Phospho")}}, term.Tags[0])
	assert.Equal(t, model.Tag{Index: 7, Descriptors: []model.Descriptor{{Key: model.Unimod, Value: "21"}}}, term.Tags[1])
}

func TestParseNTerminal(t *testing.T) {
	term := parse(t, "[Acetyl]-PEPTIDE")

	assert.Equal(t, "PEPTIDE", term.Sequence)
	assert.Equal(t, []model.Descriptor{name("Acetyl")}, term.NTerminalDescriptors)
	assert.Nil(t, term.Tags)
}

func TestParseCTerminal(t *testing.T) {
	term := parse(t, "PEPTIDE-[Amidated]")

	assert.Equal(t, "PEPTIDE", term.Sequence)
	assert.Equal(t, []model.Descriptor{name("Amidated")}, term.CTerminalDescriptors)
	assert.Nil(t, term.Tags)
}

func TestParseBothTermini(t *testing.T) {
	term := parse(t, "[Acetyl]-PEPTIDE[Oxidation]-[Amidated][+1.0]")

	assert.Equal(t, []model.Descriptor{name("Acetyl")}, term.NTerminalDescriptors)
	assert.Equal(t, []model.Descriptor{name("Amidated"), {Key: model.Mass, Value: "+1.0"}}, term.CTerminalDescriptors)
	require.Len(t, term.Tags, 1)
	assert.Equal(t, 6, term.Tags[0].Index)
}

func TestParseUnlocalized(t *testing.T) {
	term := parse(t, "[Phospho]?[Acetyl]-PEPTIDE")

	require.Len(t, term.UnlocalizedTags, 1)
	assert.Equal(t, model.Unanchored, term.UnlocalizedTags[0].Index)
	assert.Equal(t, []model.Descriptor{name("Phospho")}, term.UnlocalizedTags[0].Descriptors)
	assert.Equal(t, []model.Descriptor{name("Acetyl")}, term.NTerminalDescriptors)
	assert.Equal(t, "PEPTIDE", term.Sequence)
}

func TestParseMultipleUnlocalized(t *testing.T) {
	term := parse(t, "[Phospho]?[Oxidation]?PEPTIDE")

	require.Len(t, term.UnlocalizedTags, 2)
	assert.Equal(t, name("Phospho"), term.UnlocalizedTags[0].Descriptors[0])
	assert.Equal(t, name("Oxidation"), term.UnlocalizedTags[1].Descriptors[0])
}

func TestParseTagGroup(t *testing.T) {
	term := parse(t, "[Phospho#g1]PEPT[#g1]IDE")

	assert.Equal(t, "PEPTIDE", term.Sequence)
	assert.Nil(t, term.Tags)
	require.Len(t, term.TagGroups, 1)

	g := term.TagGroups[0]
	assert.Equal(t, "g1", g.Name)
	assert.Equal(t, model.KnownModificationName, g.Key)
	assert.Equal(t, "Phospho", g.Value)
	assert.Equal(t, []model.Membership{{Index: model.Unanchored}, {Index: 3}}, g.Members)
}

func TestParseTagGroupFoundingValueFixed(t *testing.T) {
	term := parse(t, "PEPS[U:21#site]T[Oxidation#site]Y[#site]")

	g, ok := term.Group("site")
	require.True(t, ok)
	assert.Equal(t, model.Unimod, g.Key)
	assert.Equal(t, "21", g.Value)
	assert.Equal(t, []model.Membership{{Index: 3}, {Index: 4}, {Index: 5}}, g.Members)
}

func TestParseTagGroupsKeepOrder(t *testing.T) {
	term := parse(t, "P[#b]E[Phospho#a]P[#b]")

	require.Len(t, term.TagGroups, 2)
	assert.Equal(t, "b", term.TagGroups[0].Name)
	assert.Equal(t, "a", term.TagGroups[1].Name)
	assert.Equal(t, []model.Membership{{Index: 0}, {Index: 2}}, term.TagGroups[0].Members)
}

func TestParseGroupAlongsideDescriptor(t *testing.T) {
	term := parse(t, "PEPS[Phospho|#g1]TIDE")

	require.Len(t, term.Tags, 1)
	assert.Equal(t, []model.Descriptor{name("Phospho")}, term.Tags[0].Descriptors)
	g, ok := term.Group("g1")
	require.True(t, ok)
	assert.Equal(t, []model.Membership{{Index: 3}}, g.Members)
}

func TestParseStackedDescriptors(t *testing.T) {
	term := parse(t, "PEPS[Phospho| U:21 |MOD:00046|Formula:HPO3|info:maybe]TIDE")

	require.Len(t, term.Tags, 1)
	assert.Equal(t, []model.Descriptor{
		name("Phospho"),
		{Key: model.Unimod, Value: "21 "},
		{Key: model.PsiMod, Value: "MOD:00046"},
		{Key: model.Formula, Value: "HPO3"},
		{Key: model.Info, Value: "maybe"},
	}, term.Tags[0].Descriptors)
}

func TestParseNestedBracketsVerbatim(t *testing.T) {
	term := parse(t, "PEPTIDE[info:a[b]c]")

	require.Len(t, term.Tags, 1)
	assert.Equal(t, model.Descriptor{Key: model.Info, Value: "a[b]c"}, term.Tags[0].Descriptors[0])
}

func TestParseLeadingTagWithoutMarker(t *testing.T) {
	term := parse(t, "[Phospho]PEPTIDE")

	require.Len(t, term.Tags, 1)
	assert.Equal(t, model.Unanchored, term.Tags[0].Index)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		kind  error
		index int
		char  rune
	}{
		{"placeholder", "PEPTIXDE", ErrPlaceholderResidue, 5, 'X'},
		{"lower case", "PEPtIDE", ErrInvalidResidue, 3, 't'},
		{"digit", "PEP1", ErrInvalidResidue, 3, '1'},
		{"non ascii", "PEPÉ", ErrInvalidResidue, 3, 'É'},
		{"question mark", "PEP?TIDE", ErrInvalidResidue, 3, '?'},
		{"stray close", "PEP]TIDE", ErrUnbalancedBrackets, 3, ']'},
		{"second marker", "PEP-TIDE-[A]", ErrMisplacedTerminal, 4, 'T'},
		{"double marker", "PEPTIDE--[A]", ErrMisplacedTerminal, 8, '-'},
		{"leading marker", "-PEPTIDE", ErrMisplacedTerminal, 0, '-'},
		{"dangling marker", "PEPTIDE-", ErrMisplacedTerminal, 7, '-'},
		{"unlocalized after n-term", "[Acetyl]-[Phospho]?PEPTIDE", ErrUnlocalizedAfterNTerm, 18, '?'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := parseErr(t, tt.in)
			assert.ErrorIs(t, pe, tt.kind)
			assert.Equal(t, tt.index, pe.Index)
			assert.Equal(t, tt.char, pe.Char)
		})
	}
}

func TestParseEmptyInput(t *testing.T) {
	pe := parseErr(t, "")
	assert.ErrorIs(t, pe, ErrEmptyInput)
	assert.Equal(t, -1, pe.Index)
}

func TestPlaceholderIsInvalidResidue(t *testing.T) {
	pe := parseErr(t, "PEPTIXDE")
	assert.ErrorIs(t, pe, ErrInvalidResidue)
	assert.Contains(t, pe.Error(), "X at index 5")
}

func TestParseUnclosedBrackets(t *testing.T) {
	pe := parseErr(t, "PEPTIDE[Phospho")
	assert.ErrorIs(t, pe, ErrUnbalancedBrackets)
	assert.Equal(t, 1, pe.Open)
	assert.True(t, IsIncomplete(pe))

	pe = parseErr(t, "PEP[info:[[a]")
	assert.Equal(t, 2, pe.Open)
	assert.Contains(t, pe.Error(), "2 open brackets")
}

func TestParseEmptyDescriptor(t *testing.T) {
	for _, s := range []string{"PEP[]TIDE", "PEP[Phospho|]TIDE", "PEP[|Phospho]", "PEP[  ]"} {
		pe := parseErr(t, s)
		assert.ErrorIs(t, pe, ErrEmptyDescriptor, s)
		assert.False(t, IsIncomplete(pe))
	}
}

func TestParseEmptyGroupName(t *testing.T) {
	pe := parseErr(t, "PEP[Phospho#]TIDE")
	assert.ErrorIs(t, pe, ErrEmptyGroupName)
}

func TestParseFailsFast(t *testing.T) {
	// The placeholder comes first, so the unclosed bracket is never reported.
	pe := parseErr(t, "XPEP[Phospho")
	assert.ErrorIs(t, pe, ErrPlaceholderResidue)
}

func TestParseDeterministic(t *testing.T) {
	const s = "[Phospho]?[Acetyl]-PEPS[U:21#g1]T[#g1]IDE[+15.99|Oxidation]-[Amidated]"
	p := NewParser(false)

	first, err := p.Parse(s)
	require.NoError(t, err)
	for range 5 {
		again, err := p.Parse(s)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestParserConcurrentUse(t *testing.T) {
	p := NewParser(true)
	inputs := []string{"PEPTIDE", "PEPTIDE[Phospho]", "[Acetyl]-PEPTIDE", "[Phospho#g1]PEPT[#g1]IDE"}

	want := make([]*model.Term, len(inputs))
	for i, s := range inputs {
		term, err := p.Parse(s)
		require.NoError(t, err)
		want[i] = term
	}

	var wg sync.WaitGroup
	got := make([]*model.Term, len(inputs)*8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			term, err := p.Parse(inputs[i%len(inputs)])
			if err == nil {
				got[i] = term
			}
		}(i)
	}
	wg.Wait()

	for i, term := range got {
		assert.Equal(t, want[i%len(inputs)], term)
	}
}

func TestAllowLegacySyntax(t *testing.T) {
	assert.True(t, NewParser(true).AllowLegacySyntax())
	assert.False(t, NewParser(false).AllowLegacySyntax())

	legacy, err := NewParser(true).Parse("PEPTIDE[Phospho]")
	require.NoError(t, err)
	strict, err := NewParser(false).Parse("PEPTIDE[Phospho]")
	require.NoError(t, err)
	assert.Equal(t, strict, legacy)
}
