// Package vocab classifies descriptor text found inside notation tags.
package vocab

import (
	"errors"
	"strings"

	"github.com/phobologic/proforma/internal/model"
)

var (
	ErrEmptyDescriptor = errors.New("empty descriptor")
	ErrEmptyGroupName  = errors.New("empty group name")
)

// valueMode selects how much of the fragment becomes the descriptor value.
type valueMode int

const (
	afterColon valueMode = iota
	wholeFragment
)

type keyword struct {
	Key  model.DescriptorKey
	Mode valueMode
}

// keywords maps lower-cased key text to its kind. Full ontology names keep
// the prefix in the value; single-letter forms and RESID do not.
var keywords = map[string]keyword{
	"formula": {model.Formula, afterColon},
	"info":    {model.Info, afterColon},

	"mod":    {model.PsiMod, wholeFragment},
	"unimod": {model.Unimod, wholeFragment},
	"xlmod":  {model.XlMod, wholeFragment},
	"gno":    {model.Gno, wholeFragment},

	"m": {model.PsiMod, afterColon},
	"u": {model.Unimod, afterColon},
	"x": {model.XlMod, afterColon},
	"g": {model.Gno, afterColon},

	"resid": {model.Resid, afterColon},
	"r":     {model.Resid, afterColon},
}

// Fragment is the classification of one pipe-delimited piece of tag text.
// Group is empty unless the fragment references a tag group.
type Fragment struct {
	Key   model.DescriptorKey
	Value string
	Group string
}

// Descriptor returns the fragment as a descriptor, dropping the group.
func (f Fragment) Descriptor() model.Descriptor {
	return model.Descriptor{Key: f.Key, Value: f.Value}
}

// LookupKey classifies raw key text (the part before a colon).
func LookupKey(keyText string) (model.DescriptorKey, bool) {
	kw, ok := keywords[strings.ToLower(strings.TrimSpace(keyText))]
	if !ok {
		return model.KnownModificationName, false
	}
	return kw.Key, true
}

// ParseDescriptor classifies a single descriptor fragment.
func ParseDescriptor(text string) (Fragment, error) {
	if text == "" {
		return Fragment{}, ErrEmptyDescriptor
	}

	// A signed value is a delta mass no matter what follows.
	if text[0] == '+' || text[0] == '-' {
		return Fragment{Key: model.Mass, Value: text}, nil
	}

	var group string
	if i := strings.IndexByte(text, '#'); i >= 0 {
		group = text[i+1:]
		text = text[:i]
		if group == "" {
			return Fragment{}, ErrEmptyGroupName
		}
	}

	colon := strings.IndexByte(text, ':')
	if colon < 0 {
		return Fragment{Key: model.KnownModificationName, Value: text, Group: group}, nil
	}

	kw, ok := keywords[strings.ToLower(strings.TrimSpace(text[:colon]))]
	if !ok {
		return Fragment{Key: model.KnownModificationName, Value: text, Group: group}, nil
	}

	value := text[colon+1:]
	if kw.Mode == wholeFragment {
		value = text
	}
	return Fragment{Key: kw.Key, Value: value, Group: group}, nil
}
