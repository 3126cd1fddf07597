// Package syntax builds scanner syntax trees from Python source using the
// tree-sitter Python grammar.
package syntax

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/alexaandru/go-sitter-forest/python"
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/smellscan/pkg/safeconv"
	"github.com/Sumatoshi-tech/smellscan/pkg/syntax/node"
)

// Language is the name of the only grammar the builder understands.
const Language = "python"

// ErrSyntax is matched by every parse failure (errors.Is).
var ErrSyntax = errors.New("syntax error")

// Sentinel errors for builder internals.
var (
	errNoRootNode = errors.New("parser returned no root node")
	errPoolType   = errors.New("parser pool returned unexpected type")
)

// maxSnippetLen bounds the offending text quoted in a SyntaxError.
const maxSnippetLen = 24

// SyntaxError reports the first position at which the source fails to parse.
// Line and Column are 1-based; Column counts bytes.
type SyntaxError struct {
	Snippet string
	Reason  string
	Line    int
	Column  int
}

// Error implements error.
func (e *SyntaxError) Error() string {
	msg := "syntax error at line " + strconv.Itoa(e.Line) + ", column " + strconv.Itoa(e.Column)

	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	if e.Snippet != "" {
		msg += " near " + strconv.Quote(e.Snippet)
	}

	return msg
}

// Is makes errors.Is(err, ErrSyntax) hold for every SyntaxError.
func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

var (
	languageOnce sync.Once
	language     *sitter.Language
)

// pythonLanguage returns the shared tree-sitter Python language.
func pythonLanguage() *sitter.Language {
	languageOnce.Do(func() {
		language = sitter.NewLanguage(python.GetLanguage())
	})

	return language
}

// Builder converts Python source into node trees. It is safe for concurrent use.
type Builder struct {
	tsParserPool sync.Pool
}

// NewBuilder creates a Builder backed by a pool of tree-sitter parsers.
func NewBuilder() *Builder {
	lang := pythonLanguage()

	return &Builder{
		tsParserPool: sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		},
	}
}

// Parse parses content and returns the root Module node.
// Source that does not parse fails with a *SyntaxError and no tree.
func (b *Builder) Parse(ctx context.Context, content []byte) (*node.Node, error) {
	if !utf8.Valid(content) {
		return nil, invalidUTF8Error(content)
	}

	tsParser, ok := b.tsParserPool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer b.tsParserPool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	if root.HasError() {
		return nil, syntaxErrorAt(root, content)
	}

	conv := &converter{source: content}

	return conv.module(root), nil
}

// syntaxErrorAt locates the first ERROR or MISSING node below root.
func syntaxErrorAt(root sitter.Node, content []byte) *SyntaxError {
	bad := firstErrorNode(root)
	if bad.IsNull() {
		bad = root
	}

	line, column := position(bad)
	synErr := &SyntaxError{Line: line, Column: column, Reason: "unexpected input"}

	if bad.IsMissing() {
		synErr.Reason = "missing " + bad.Type()

		return synErr
	}

	synErr.Snippet = snippet(bad.Content(content))

	return synErr
}

func firstErrorNode(tsNode sitter.Node) sitter.Node {
	if tsNode.IsError() || tsNode.IsMissing() {
		return tsNode
	}

	for idx := range tsNode.ChildCount() {
		child := tsNode.Child(idx)
		if !child.HasError() && !child.IsMissing() {
			continue
		}

		if found := firstErrorNode(child); !found.IsNull() {
			return found
		}
	}

	return sitter.Node{}
}

func invalidUTF8Error(content []byte) *SyntaxError {
	line, column := 1, 1

	for len(content) > 0 {
		r, size := utf8.DecodeRune(content)
		if r == utf8.RuneError && size <= 1 {
			break
		}

		if r == '\n' {
			line++
			column = 1
		} else {
			column += size
		}

		content = content[size:]
	}

	return &SyntaxError{Line: line, Column: column, Reason: "invalid UTF-8 encoding"}
}

func snippet(text string) string {
	if len(text) <= maxSnippetLen {
		return text
	}

	cut := maxSnippetLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	return text[:cut] + "..."
}

// position returns the 1-based start line and byte column of a tree-sitter node.
func position(tsNode sitter.Node) (line, column int) {
	start := tsNode.StartPoint()

	return safeconv.MustUintToInt(start.Row) + 1, safeconv.MustUintToInt(start.Column) + 1
}

func endLine(tsNode sitter.Node) int {
	return safeconv.MustUintToInt(tsNode.EndPoint().Row) + 1
}
