// Package proforma parses ProForma proteoform notation into a model.Term.
//
// A notation string is a sequence of upper case residues interleaved with
// bracketed tags:
//
//	[Phospho]?[Acetyl]-PEPT[U:21#g1]IDE[#g1]-[Amidated]
//
// A tag before a leading "-" is N-terminal, a tag after a trailing "-" is
// C-terminal, a leading tag followed by "?" is unlocalized, and any other tag
// modifies the residue just before it. Parsing is a single left-to-right scan
// and stops at the first error.
package proforma

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/phobologic/proforma/internal/model"
	"github.com/phobologic/proforma/internal/vocab"
)

const (
	tagOpen          = '['
	tagClose         = ']'
	terminalMarker   = '-'
	unlocalizedMark  = '?'
	descriptorSep    = "|"
	placeholderResid = 'X'
)

// Parser decodes notation strings. It holds no per-call state and is safe
// for concurrent use.
type Parser struct {
	allowLegacySyntax bool
}

// NewParser returns a parser. allowLegacySyntax is recorded for callers
// but does not currently relax any rule.
func NewParser(allowLegacySyntax bool) *Parser {
	return &Parser{allowLegacySyntax: allowLegacySyntax}
}

// AllowLegacySyntax reports whether the parser was built to accept legacy syntax.
func (p *Parser) AllowLegacySyntax() bool {
	return p.allowLegacySyntax
}

// Parse decodes s into a Term. Every error is a *ParseError.
func (p *Parser) Parse(s string) (*model.Term, error) {
	if s == "" {
		return nil, &ParseError{Kind: ErrEmptyInput, Index: -1}
	}

	b := newTermBuilder()

	var (
		tag         strings.Builder
		depth       int
		inTag       bool
		inCTerm     bool
		cTermAt     int
		cTermTagged bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c == tagOpen:
			depth++
			if depth == 1 {
				inTag = true
				continue
			}
			tag.WriteByte(c)

		case c == tagClose:
			if depth == 0 {
				return nil, charError(ErrUnbalancedBrackets, tagClose, i, "unexpected %c at index %d", tagClose, i)
			}
			depth--
			if depth > 0 {
				tag.WriteByte(c)
				continue
			}

			var next byte
			if i+1 < len(s) {
				next = s[i+1]
			}
			consumed, err := b.closeTag(tag.String(), inCTerm, next, i)
			if err != nil {
				return nil, err
			}
			if consumed {
				i++
			}
			if inCTerm {
				cTermTagged = true
			}
			inTag = false
			tag.Reset()

		case inTag:
			tag.WriteByte(c)

		case c == terminalMarker:
			if inCTerm {
				return nil, charError(ErrMisplacedTerminal, terminalMarker, i, "%c at index %d is not allowed", terminalMarker, i)
			}
			if b.seq.Len() == 0 {
				return nil, charError(ErrMisplacedTerminal, terminalMarker, i, "%c at index %d precedes every residue", terminalMarker, i)
			}
			inCTerm = true
			cTermAt = i

		default:
			if c < 'A' || c > 'Z' {
				r, _ := utf8.DecodeRuneInString(s[i:])
				return nil, charError(ErrInvalidResidue, r, i, "%q at index %d is not an upper case letter", r, i)
			}
			if c == placeholderResid {
				return nil, charError(ErrPlaceholderResidue, rune(c), i, "%c at index %d is not allowed", c, i)
			}
			if inCTerm {
				return nil, charError(ErrMisplacedTerminal, rune(c), i, "residue %c at index %d follows the C-terminal marker", c, i)
			}
			b.seq.WriteByte(c)
		}
	}

	if depth != 0 {
		return nil, unclosedError(depth, s)
	}
	if inCTerm && !cTermTagged {
		return nil, charError(ErrMisplacedTerminal, terminalMarker, cTermAt, "%c at index %d is not followed by a tag", terminalMarker, cTermAt)
	}

	return b.build(), nil
}

// termBuilder accumulates the collections of one Parse call. Optional
// collections stay nil until they receive content.
type termBuilder struct {
	seq         strings.Builder
	tags        []model.Tag
	nTerm       []model.Descriptor
	cTerm       []model.Descriptor
	unlocalized []model.Tag
	groups      []model.TagGroup
	groupIndex  map[string]int
}

func newTermBuilder() *termBuilder {
	return &termBuilder{}
}

// closeTag dispatches a completed tag by context. It reports whether the
// marker character after the tag was consumed. at is the index of the
// closing bracket.
func (b *termBuilder) closeTag(text string, cTerm bool, next byte, at int) (bool, error) {
	switch {
	case cTerm:
		ds, err := b.descriptors(text, model.Unanchored)
		if err != nil {
			return false, err
		}
		b.cTerm = append(b.cTerm, ds...)
		return false, nil

	case b.seq.Len() == 0 && next == terminalMarker:
		ds, err := b.descriptors(text, model.Unanchored)
		if err != nil {
			return false, err
		}
		b.nTerm = append(b.nTerm, ds...)
		return true, nil

	case b.seq.Len() == 0 && next == unlocalizedMark:
		if b.nTerm != nil {
			return false, charError(ErrUnlocalizedAfterNTerm, unlocalizedMark, at+1,
				"tag closing at index %d must come before the N-terminal modification", at)
		}
		if err := b.addTag(&b.unlocalized, text, model.Unanchored); err != nil {
			return false, err
		}
		return true, nil

	default:
		return false, b.addTag(&b.tags, text, b.seq.Len()-1)
	}
}

// addTag appends a tag to dst unless the text held only group references.
func (b *termBuilder) addTag(dst *[]model.Tag, text string, index int) error {
	ds, err := b.descriptors(text, index)
	if err != nil {
		return err
	}
	if ds != nil {
		*dst = append(*dst, model.Tag{Index: index, Descriptors: ds})
	}
	return nil
}

// descriptors splits tag text on the pipe and classifies every fragment.
// Group fragments are recorded as memberships and do not appear in the
// returned slice.
func (b *termBuilder) descriptors(text string, index int) ([]model.Descriptor, error) {
	var ds []model.Descriptor

	for _, part := range strings.Split(text, descriptorSep) {
		f, err := vocab.ParseDescriptor(strings.TrimLeftFunc(part, unicode.IsSpace))
		if err != nil {
			return nil, tagError(err, text)
		}

		switch {
		case f.Group != "":
			b.joinGroup(f, index)
		case f.Key != model.KeyNone:
			ds = append(ds, f.Descriptor())
		case f.Value != "":
			ds = append(ds, model.Descriptor{Key: model.KeyNone, Value: f.Value})
		default:
			return nil, tagError(ErrEmptyDescriptor, text)
		}
	}

	return ds, nil
}

// joinGroup adds a membership at index, founding the group on first sight.
// The founding key and value are never replaced.
func (b *termBuilder) joinGroup(f vocab.Fragment, index int) {
	if b.groupIndex == nil {
		b.groupIndex = make(map[string]int)
	}
	gi, ok := b.groupIndex[f.Group]
	if !ok {
		gi = len(b.groups)
		b.groupIndex[f.Group] = gi
		b.groups = append(b.groups, model.TagGroup{Name: f.Group, Key: f.Key, Value: f.Value})
	}
	b.groups[gi].Members = append(b.groups[gi].Members, model.Membership{Index: index})
}

func (b *termBuilder) build() *model.Term {
	return &model.Term{
		Sequence:             b.seq.String(),
		Tags:                 b.tags,
		NTerminalDescriptors: b.nTerm,
		CTerminalDescriptors: b.cTerm,
		UnlocalizedTags:      b.unlocalized,
		TagGroups:            b.groups,
	}
}
