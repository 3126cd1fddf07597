// Package node provides the syntax tree produced by the Python tree builder:
// a closed set of node kinds, source positions and ordered children.
package node

import (
	"strconv"
	"strings"
)

// Kind tags a node with the structural role the scanner cares about.
type Kind uint8

// Kind constants. KindInvalid is the zero value and never appears in a tree
// produced by the builder.
const (
	KindInvalid Kind = iota
	KindModule
	KindLoop
	KindComprehension
	KindImport
	KindImportBinding
	KindIdentifier
	KindFunction
	KindClass
	KindBlock
	KindOther
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "Invalid"
	case KindModule:
		return "Module"
	case KindLoop:
		return "Loop"
	case KindComprehension:
		return "Comprehension"
	case KindImport:
		return "Import"
	case KindImportBinding:
		return "ImportBinding"
	case KindIdentifier:
		return "Identifier"
	case KindFunction:
		return "Function"
	case KindClass:
		return "Class"
	case KindBlock:
		return "Block"
	case KindOther:
		return "Other"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Valid reports whether k is one of the declared kinds other than KindInvalid.
func (k Kind) Valid() bool {
	return k > KindInvalid && k <= KindOther
}

// Node is a syntax tree node.
//
// Fields:
//
//	Kind: structural kind.
//	Source: grammar node type the node was built from (e.g. "for_statement").
//	Token: referenced name for identifiers, bound name for import bindings.
//	Module: declared module path for import bindings.
//	Line, Column, EndLine: 1-based source positions.
//	Children: child nodes (ordered).
type Node struct {
	Source   string  `json:"source,omitempty"`
	Token    string  `json:"token,omitempty"`
	Module   string  `json:"module,omitempty"`
	Children []*Node `json:"children,omitempty"`
	Line     int     `json:"line"`
	Column   int     `json:"column,omitempty"`
	EndLine  int     `json:"end_line,omitempty"`
	Kind     Kind    `json:"kind"`
}

// New creates a node of the given kind at the given line.
func New(kind Kind, line int) *Node {
	return &Node{Kind: kind, Line: line}
}

// NewWithToken creates a node of the given kind carrying a token.
func NewWithToken(kind Kind, token string, line int) *Node {
	return &Node{Kind: kind, Token: token, Line: line}
}

// AddChild appends a child node and returns the receiver for chaining.
func (n *Node) AddChild(children ...*Node) *Node {
	n.Children = append(n.Children, children...)

	return n
}

// Is reports whether the node has the given kind.
func (n *Node) Is(kind Kind) bool {
	return n != nil && n.Kind == kind
}

// VisitPreOrder visits all nodes in pre-order (root, then children left-to-right).
// Returning false from fn skips the node's subtree.
func (n *Node) VisitPreOrder(fn func(*Node) bool) {
	if n == nil {
		return
	}

	stack := make([]*Node, 1, initialStackCap)
	stack[0] = n

	for len(stack) > 0 {
		last := len(stack) - 1
		curr := stack[last]
		stack = stack[:last]

		if !fn(curr) {
			continue
		}

		stack = pushChildrenReversed(stack, curr.Children)
	}
}

// Descendants visits every node strictly below n in pre-order.
// Returning false from fn stops the walk.
func (n *Node) Descendants(fn func(*Node) bool) {
	if n == nil {
		return
	}

	stack := pushChildrenReversed(make([]*Node, 0, initialStackCap), n.Children)

	for len(stack) > 0 {
		last := len(stack) - 1
		curr := stack[last]
		stack = stack[:last]

		if !fn(curr) {
			return
		}

		stack = pushChildrenReversed(stack, curr.Children)
	}
}

// Find returns all nodes in the tree (including root) for which predicate is true,
// in pre-order. Returns nil if n is nil.
func (n *Node) Find(predicate func(*Node) bool) []*Node {
	var result []*Node

	n.VisitPreOrder(func(curr *Node) bool {
		if predicate(curr) {
			result = append(result, curr)
		}

		return true
	})

	return result
}

// Count returns the number of nodes in the tree rooted at n.
func (n *Node) Count() int {
	total := 0

	n.VisitPreOrder(func(*Node) bool {
		total++

		return true
	})

	return total
}

// String renders a compact single-line description of the subtree.
func (n *Node) String() string {
	var buf strings.Builder

	writeNode(&buf, n)

	return buf.String()
}

const initialStackCap = 64

// pushChildrenReversed appends children in reverse so the leftmost is popped first.
func pushChildrenReversed(stack, children []*Node) []*Node {
	for idx := len(children) - 1; idx >= 0; idx-- {
		stack = append(stack, children[idx])
	}

	return stack
}

func writeNode(buf *strings.Builder, n *Node) {
	if n == nil {
		buf.WriteString("<nil>")

		return
	}

	buf.WriteString(n.Kind.String())
	buf.WriteByte('@')
	buf.WriteString(strconv.Itoa(n.Line))

	if n.Token != "" {
		buf.WriteByte(' ')
		buf.WriteString(strconv.Quote(n.Token))
	}

	if len(n.Children) == 0 {
		return
	}

	buf.WriteString(" [")

	for idx, child := range n.Children {
		if idx > 0 {
			buf.WriteString(", ")
		}

		writeNode(buf, child)
	}

	buf.WriteByte(']')
}
