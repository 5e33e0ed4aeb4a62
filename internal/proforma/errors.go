package proforma

import (
	"errors"
	"fmt"

	"github.com/phobologic/proforma/internal/vocab"
)

var (
	ErrEmptyInput            = errors.New("empty notation")
	ErrInvalidResidue        = errors.New("invalid residue")
	ErrPlaceholderResidue    = fmt.Errorf("%w (placeholder)", ErrInvalidResidue)
	ErrUnlocalizedAfterNTerm = errors.New("unlocalized modification after N-terminal modification")
	ErrMisplacedTerminal     = errors.New("misplaced terminal marker")
	ErrUnbalancedBrackets    = errors.New("unbalanced brackets")
	ErrEmptyDescriptor       = vocab.ErrEmptyDescriptor
	ErrEmptyGroupName        = vocab.ErrEmptyGroupName
)

// ParseError describes the first violation found in a notation string.
// Index is the byte offset of the offending character, or -1 when the error
// is not tied to one position. Open is the number of brackets left unclosed.
type ParseError struct {
	Kind  error
	Msg   string
	Index int
	Char  rune
	Open  int
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Kind }

// IsIncomplete reports whether err means the notation ended inside a tag,
// so more input could complete it.
func IsIncomplete(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && errors.Is(pe.Kind, ErrUnbalancedBrackets) && pe.Open > 0
}

func charError(kind error, c rune, index int, format string, args ...any) error {
	return &ParseError{Kind: kind, Msg: fmt.Sprintf(format, args...), Index: index, Char: c}
}

func unclosedError(open int, s string) error {
	return &ParseError{
		Kind:  ErrUnbalancedBrackets,
		Msg:   fmt.Sprintf("%d open brackets in %q", open, s),
		Index: -1,
		Open:  open,
	}
}

func tagError(err error, tag string) error {
	return &ParseError{Kind: err, Msg: fmt.Sprintf("within tag %q", tag), Index: -1}
}
