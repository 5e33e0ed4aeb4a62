// Package parse extracts notation strings from notation files, using
// tree-sitter for structured formats.
package parse

import (
	"bufio"
	"bytes"
	"context"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/proforma/internal/lang"
	"github.com/phobologic/proforma/internal/model"
)

const notationCapture = "notation"

// ExtractNotations returns the notation strings found in source.
// For line-oriented formats parser and query are ignored and may be nil;
// otherwise the parser must be created for the correct format.
// filePath is used only for Notation.Source and should be the root-relative path.
func ExtractNotations(f *lang.Format, parser *sitter.Parser, query *sitter.Query, source []byte, filePath string) []model.Notation {
	if len(source) == 0 {
		return nil
	}
	if f.LineOriented() {
		return extractLines(source, filePath)
	}
	return extractTree(parser, query, source, filePath)
}

// extractLines treats each non-blank line as a notation. Lines starting
// with '#' are comments.
func extractLines(source []byte, filePath string) []model.Notation {
	var notations []model.Notation

	sc := bufio.NewScanner(bytes.NewReader(source))
	sc.Buffer(make([]byte, 0, 64*1024), len(source)+1)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		notations = append(notations, model.Notation{Text: text, Source: filePath, Line: line})
	}
	return notations
}

func extractTree(parser *sitter.Parser, query *sitter.Query, source []byte, filePath string) []model.Notation {
	if parser == nil || query == nil {
		return nil
	}

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	var notations []model.Notation

	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)

		for _, c := range match.Captures {
			if query.CaptureNameForId(c.Index) != notationCapture {
				continue
			}
			text := unquote(c.Node.Type(), nodeText(c.Node, source))
			if text == "" {
				continue
			}
			notations = append(notations, model.Notation{
				Text:   text,
				Source: filePath,
				Line:   int(c.Node.StartPoint().Row) + 1,
			})
		}
	}

	return notations
}

func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// unquote strips YAML quoting from a scalar node's text.
func unquote(nodeType, text string) string {
	switch nodeType {
	case "double_quote_scalar":
		if s, err := strconv.Unquote(text); err == nil {
			return strings.TrimSpace(s)
		}
		return strings.TrimSpace(strings.Trim(text, `"`))
	case "single_quote_scalar":
		text = strings.TrimSuffix(strings.TrimPrefix(text, "'"), "'")
		return strings.TrimSpace(strings.ReplaceAll(text, "''", "'"))
	default:
		return strings.TrimSpace(text)
	}
}
