package model

// Unanchored is the tag index used for terminal and unlocalized tags, and for
// tags that close before any residue has been read.
const Unanchored = -1

// DescriptorKey identifies the kind of annotation a descriptor carries.
type DescriptorKey string

const (
	// KeyNone marks a keyless descriptor: a bare value interpreted as a
	// direct ontology annotation.
	KeyNone DescriptorKey = "none"

	Mass                  DescriptorKey = "mass"
	Formula               DescriptorKey = "formula"
	Info                  DescriptorKey = "info"
	PsiMod                DescriptorKey = "psi-mod"
	Unimod                DescriptorKey = "unimod"
	XlMod                 DescriptorKey = "xl-mod"
	Gno                   DescriptorKey = "gno"
	Resid                 DescriptorKey = "resid"
	KnownModificationName DescriptorKey = "name"
)

// Descriptor is one classified annotation inside a tag.
type Descriptor struct {
	Key   DescriptorKey
	Value string
}

// Keyless reports whether the descriptor carries a bare value only.
func (d Descriptor) Keyless() bool {
	return d.Key == KeyNone
}

// Tag is a bracketed annotation unit anchored at a residue index, or at
// Unanchored. Descriptors holds the pipe-separated entries in source order
// and is never empty.
type Tag struct {
	Index       int
	Descriptors []Descriptor
}

// Membership records one place a tag group was referenced.
type Membership struct {
	Index int
}

// TagGroup is a named set of localizations sharing the descriptor of the
// group's first occurrence.
type TagGroup struct {
	Name    string
	Key     DescriptorKey
	Value   string
	Members []Membership
}

// GlobalModification applies its descriptors to every occurrence of the
// target residues.
type GlobalModification struct {
	TargetResidues string
	Descriptors    []Descriptor
}

// Term is a parsed notation string. It is built once by the parser and must
// not be mutated afterwards. Optional collections are nil when absent.
type Term struct {
	// Sequence holds the bare residues, modifications stripped.
	Sequence string

	Tags                 []Tag
	NTerminalDescriptors []Descriptor
	CTerminalDescriptors []Descriptor
	UnlocalizedTags      []Tag
	TagGroups            []TagGroup

	// Reserved for labile, global and ambiguous-range notation. The parser
	// does not populate these.
	LabileDescriptors      []Descriptor
	GlobalModifications    []GlobalModification
	AmbiguousResidueRanges []Tag
}

// Group returns the tag group with the given name.
func (t *Term) Group(name string) (*TagGroup, bool) {
	for i := range t.TagGroups {
		if t.TagGroups[i].Name == name {
			return &t.TagGroups[i], true
		}
	}
	return nil, false
}

// HasModifications reports whether any descriptor collection is non-empty.
func (t *Term) HasModifications() bool {
	return len(t.Tags) > 0 ||
		len(t.NTerminalDescriptors) > 0 ||
		len(t.CTerminalDescriptors) > 0 ||
		len(t.UnlocalizedTags) > 0 ||
		len(t.TagGroups) > 0 ||
		len(t.LabileDescriptors) > 0 ||
		len(t.GlobalModifications) > 0 ||
		len(t.AmbiguousResidueRanges) > 0
}
