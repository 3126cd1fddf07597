package syntax

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/smellscan/pkg/syntax/node"
)

// Grammar node types with dedicated handling.
const (
	tsModule           = "module"
	tsFor              = "for_statement"
	tsWhile            = "while_statement"
	tsForInClause      = "for_in_clause"
	tsImport           = "import_statement"
	tsImportFrom       = "import_from_statement"
	tsFutureImport     = "future_import_statement"
	tsFunction         = "function_definition"
	tsLambda           = "lambda"
	tsClass            = "class_definition"
	tsBlock            = "block"
	tsIdentifier       = "identifier"
	tsComment          = "comment"
	tsDottedName       = "dotted_name"
	tsAliasedImport    = "aliased_import"
	tsAttribute        = "attribute"
	tsKeywordArgument  = "keyword_argument"
	tsParameters       = "parameters"
	tsLambdaParameters = "lambda_parameters"
	tsDefaultParameter = "default_parameter"
	tsTypedDefaultParm = "typed_default_parameter"
	tsTypedParameter   = "typed_parameter"
	tsListSplatPattern = "list_splat_pattern"
	tsDictSplatPattern = "dictionary_splat_pattern"
	tsGlobal           = "global_statement"
	tsNonlocal         = "nonlocal_statement"
	tsExceptClause     = "except_clause"
	tsExceptGroup      = "except_group_clause"
	tsAsPattern        = "as_pattern"
)

// comprehensionTypes are the grammar nodes whose for_in_clauses form implicit loops.
var comprehensionTypes = map[string]bool{
	"list_comprehension":       true,
	"set_comprehension":        true,
	"dictionary_comprehension": true,
	"generator_expression":     true,
}

// converter walks a tree-sitter tree and emits node.Node values.
// One converter serves one parse.
type converter struct {
	source []byte
}

func (c *converter) module(root sitter.Node) *node.Node {
	mod := c.newNode(node.KindModule, root)
	mod.Children = c.children(root)

	return mod
}

func (c *converter) newNode(kind node.Kind, tsNode sitter.Node) *node.Node {
	line, column := position(tsNode)

	return &node.Node{
		Kind:    kind,
		Source:  tsNode.Type(),
		Line:    line,
		Column:  column,
		EndLine: endLine(tsNode),
	}
}

func (c *converter) text(tsNode sitter.Node) string {
	if tsNode.IsNull() {
		return ""
	}

	return tsNode.Content(c.source)
}

// children converts every named child of tsNode in order.
func (c *converter) children(tsNode sitter.Node) []*node.Node {
	var out []*node.Node

	for idx := range tsNode.NamedChildCount() {
		out = append(out, c.convert(tsNode.NamedChild(idx))...)
	}

	return out
}

// childrenExcept converts the named children of tsNode, skipping those for which skip is true.
func (c *converter) childrenExcept(tsNode sitter.Node, skip func(sitter.Node) bool) []*node.Node {
	var out []*node.Node

	for idx := range tsNode.NamedChildCount() {
		child := tsNode.NamedChild(idx)
		if skip(child) {
			continue
		}

		out = append(out, c.convert(child)...)
	}

	return out
}

// convert maps one grammar node to zero or more tree nodes.
func (c *converter) convert(tsNode sitter.Node) []*node.Node {
	nodeType := tsNode.Type()

	switch {
	case nodeType == tsComment:
		return nil
	case nodeType == tsIdentifier:
		ident := c.newNode(node.KindIdentifier, tsNode)
		ident.Token = c.text(tsNode)

		return []*node.Node{ident}
	case nodeType == tsFor || nodeType == tsWhile:
		return c.wrap(node.KindLoop, tsNode, c.children(tsNode))
	case nodeType == tsImport || nodeType == tsImportFrom:
		return []*node.Node{c.importNode(tsNode)}
	case nodeType == tsFutureImport:
		return c.wrap(node.KindOther, tsNode, nil)
	case nodeType == tsFunction || nodeType == tsClass:
		kind := node.KindFunction
		if nodeType == tsClass {
			kind = node.KindClass
		}

		return c.wrap(kind, tsNode, c.childrenExcept(tsNode, c.isField(tsNode, "name")))
	case nodeType == tsLambda:
		return c.wrap(node.KindFunction, tsNode, c.children(tsNode))
	case nodeType == tsBlock:
		return c.wrap(node.KindBlock, tsNode, c.children(tsNode))
	case comprehensionTypes[nodeType]:
		return []*node.Node{c.comprehension(tsNode)}
	case nodeType == tsAttribute:
		return c.wrap(node.KindOther, tsNode, c.childrenExcept(tsNode, c.isField(tsNode, "attribute")))
	case nodeType == tsKeywordArgument, nodeType == tsDefaultParameter, nodeType == tsTypedDefaultParm:
		return c.wrap(node.KindOther, tsNode, c.childrenExcept(tsNode, c.isField(tsNode, "name")))
	case nodeType == tsParameters, nodeType == tsLambdaParameters, nodeType == tsTypedParameter,
		nodeType == tsListSplatPattern, nodeType == tsDictSplatPattern:
		return c.wrap(node.KindOther, tsNode, c.childrenExcept(tsNode, isIdentifier))
	case nodeType == tsGlobal || nodeType == tsNonlocal:
		return c.wrap(node.KindOther, tsNode, c.childrenExcept(tsNode, isIdentifier))
	case nodeType == tsExceptClause || nodeType == tsExceptGroup:
		return c.wrap(node.KindOther, tsNode, c.exceptChildren(tsNode))
	default:
		return c.wrap(node.KindOther, tsNode, c.children(tsNode))
	}
}

// exceptChildren converts an except clause without the name it binds.
// The grammar stores that name either in the clause's alias field or in the
// alias of an as_pattern child.
func (c *converter) exceptChildren(tsNode sitter.Node) []*node.Node {
	isAlias := c.isField(tsNode, "alias")

	var out []*node.Node

	for idx := range tsNode.NamedChildCount() {
		child := tsNode.NamedChild(idx)

		switch {
		case isAlias(child):
			continue
		case child.Type() == tsAsPattern:
			out = append(out, c.wrap(node.KindOther, child, c.childrenExcept(child, c.isField(child, "alias")))...)
		default:
			out = append(out, c.convert(child)...)
		}
	}

	return out
}

func (c *converter) wrap(kind node.Kind, tsNode sitter.Node, children []*node.Node) []*node.Node {
	out := c.newNode(kind, tsNode)
	out.Children = children

	return []*node.Node{out}
}

// isField returns a predicate matching the child stored under field of parent.
func (c *converter) isField(parent sitter.Node, field string) func(sitter.Node) bool {
	fieldNode := parent.ChildByFieldName(field)

	return func(child sitter.Node) bool {
		return sameNode(child, fieldNode)
	}
}

func isIdentifier(child sitter.Node) bool {
	return child.Type() == tsIdentifier
}

// sameNode compares two nodes of one tree by type and byte span.
func sameNode(left, right sitter.Node) bool {
	if left.IsNull() || right.IsNull() {
		return false
	}

	return left.StartByte() == right.StartByte() &&
		left.EndByte() == right.EndByte() &&
		left.Type() == right.Type()
}

// comprehension turns the for_in_clauses of a comprehension into a chain of
// loops, each nested in the previous one, with the element expression and
// if_clauses inside the innermost loop.
func (c *converter) comprehension(tsNode sitter.Node) *node.Node {
	comp := c.newNode(node.KindComprehension, tsNode)

	var (
		clauses []sitter.Node
		rest    []*node.Node
	)

	for idx := range tsNode.NamedChildCount() {
		child := tsNode.NamedChild(idx)
		if child.Type() == tsForInClause {
			clauses = append(clauses, child)

			continue
		}

		rest = append(rest, c.convert(child)...)
	}

	if len(clauses) == 0 {
		comp.Children = rest

		return comp
	}

	loops := make([]*node.Node, len(clauses))
	for idx, clause := range clauses {
		loops[idx] = c.newNode(node.KindLoop, clause)
		loops[idx].Children = c.children(clause)
	}

	for idx := 0; idx < len(loops)-1; idx++ {
		loops[idx].AddChild(loops[idx+1])
	}

	loops[len(loops)-1].AddChild(rest...)
	comp.Children = []*node.Node{loops[0]}

	return comp
}

// importNode builds an Import node whose children are the names it binds.
func (c *converter) importNode(tsNode sitter.Node) *node.Node {
	imp := c.newNode(node.KindImport, tsNode)
	skipModule := func(sitter.Node) bool { return false }

	if tsNode.Type() == tsImportFrom {
		skipModule = c.isField(tsNode, "module_name")
	}

	for idx := range tsNode.NamedChildCount() {
		child := tsNode.NamedChild(idx)
		if skipModule(child) {
			continue
		}

		if binding := c.binding(tsNode.Type(), child); binding != nil {
			imp.AddChild(binding)
		}
	}

	return imp
}

// binding returns the ImportBinding for one imported item, or nil for
// wildcards and anything that binds no name.
func (c *converter) binding(stmtType string, item sitter.Node) *node.Node {
	var declared, bound string

	switch item.Type() {
	case tsDottedName:
		declared = c.text(item)
		bound = declared

		if stmtType == tsImport {
			// import a.b.c binds a.
			bound, _, _ = strings.Cut(declared, ".")
		}
	case tsAliasedImport:
		declared = c.text(item.ChildByFieldName("name"))
		bound = c.text(item.ChildByFieldName("alias"))
	default:
		return nil
	}

	if bound == "" {
		return nil
	}

	out := c.newNode(node.KindImportBinding, item)
	out.Token = bound
	out.Module = declared

	return out
}
