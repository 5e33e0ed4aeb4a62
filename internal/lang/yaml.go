package lang

import (
	"github.com/smacker/go-tree-sitter/yaml"
)

func init() {
	Formats["yaml"] = &Format{
		Name:       "yaml",
		Extensions: []string{".yaml", ".yml"},
		lang:       yaml.GetLanguage(),
	}
}
