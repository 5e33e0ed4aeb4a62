// Package lang provides a format registry mapping file extensions to
// notation file formats and, where needed, their tree-sitter grammars and
// embedded query files.
package lang

import (
	"embed"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

//go:embed queries/*.scm
var queryFS embed.FS

// Format holds the configuration for a notation file format. Line-oriented
// formats have no grammar and need neither a parser nor a query.
type Format struct {
	Name       string
	Extensions []string
	lang       *sitter.Language
	queryOnce  sync.Once
	query      *sitter.Query
	queryErr   error
}

// LineOriented reports whether the format keeps one notation per line.
func (f *Format) LineOriented() bool {
	return f.lang == nil
}

// GetLanguage returns the tree-sitter Language pointer, or nil for
// line-oriented formats.
func (f *Format) GetLanguage() *sitter.Language {
	return f.lang
}

// NewParser creates a fresh tree-sitter parser for this format.
// Each goroutine must use its own parser (not thread-safe).
func (f *Format) NewParser() *sitter.Parser {
	if f.lang == nil {
		return nil
	}
	p := sitter.NewParser()
	p.SetLanguage(f.lang)
	return p
}

// GetNotationQuery returns the compiled tree-sitter query (safe to share
// across goroutines). Line-oriented formats return nil.
func (f *Format) GetNotationQuery() (*sitter.Query, error) {
	if f.lang == nil {
		return nil, nil
	}
	f.queryOnce.Do(func() {
		data, err := queryFS.ReadFile(fmt.Sprintf("queries/%s.scm", f.Name))
		if err != nil {
			f.queryErr = fmt.Errorf("reading query file: %w", err)
			return
		}
		q, err := sitter.NewQuery(data, f.lang)
		if err != nil {
			f.queryErr = fmt.Errorf("compiling query: %w", err)
			return
		}
		f.query = q
	})
	return f.query, f.queryErr
}

// Formats maps format names to their configuration.
// Populated by init() functions in per-format files.
var Formats = map[string]*Format{}

var (
	extensionMu  sync.RWMutex
	extensionMap map[string]string
)

func getExtensionMap() map[string]string {
	extensionMu.Lock()
	defer extensionMu.Unlock()
	if extensionMap == nil {
		extensionMap = make(map[string]string)
		for _, f := range Formats {
			for _, ext := range f.Extensions {
				extensionMap[ext] = f.Name
			}
		}
	}
	return extensionMap
}

// ForExtension returns the format name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	m := getExtensionMap()
	extensionMu.RLock()
	defer extensionMu.RUnlock()
	return m[ext]
}

// Resolve returns the format of filename by extension, or "" when the
// extension is unknown or its format is not in allowed. An empty allowed
// list accepts every format.
func Resolve(filename string, allowed []string) string {
	name := ForExtension(filepath.Ext(filename))
	if name == "" || (len(allowed) > 0 && !slices.Contains(allowed, name)) {
		return ""
	}
	return name
}

// Extensions returns every extension mapped to the named format, including
// ones added with Register, in sorted order.
func Extensions(name string) []string {
	m := getExtensionMap()
	extensionMu.RLock()
	defer extensionMu.RUnlock()

	var exts []string
	for ext, format := range m {
		if format == name {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

// Register maps an additional extension to an existing format.
func Register(ext, name string) error {
	if _, ok := Formats[name]; !ok {
		return fmt.Errorf("unknown format %q", name)
	}
	m := getExtensionMap()
	extensionMu.Lock()
	defer extensionMu.Unlock()
	m[ext] = name
	return nil
}

// Names returns the registered format names in sorted order.
func Names() []string {
	names := make([]string, 0, len(Formats))
	for name := range Formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
