package smell

import "github.com/Sumatoshi-tech/smellscan/pkg/syntax/node"

// comprehensionClause is the grammar source of loops synthesized from comprehensions.
const comprehensionClause = "for_in_clause"

// nestedLoops reports every loop whose subtree, excluding the loop itself,
// contains another loop. Findings follow pre-order discovery of the outer loop.
func nestedLoops(root *node.Node, includeComprehensions bool) []Finding {
	isLoop := func(n *node.Node) bool {
		if n.Kind != node.KindLoop {
			return false
		}

		return includeComprehensions || n.Source != comprehensionClause
	}

	var findings []Finding

	root.VisitPreOrder(func(n *node.Node) bool {
		if isLoop(n) && containsLoop(n, isLoop) {
			findings = append(findings, nestedLoopFinding(n.Line))
		}

		return true
	})

	return findings
}

func containsLoop(loop *node.Node, isLoop func(*node.Node) bool) bool {
	found := false

	loop.Descendants(func(n *node.Node) bool {
		found = isLoop(n)

		return !found
	})

	return found
}
