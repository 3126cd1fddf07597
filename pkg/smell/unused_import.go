package smell

import "github.com/Sumatoshi-tech/smellscan/pkg/syntax/node"

// importedName is a name bound by a top-level import.
type importedName struct {
	name string
	line int
}

// unusedImports reports top-level imported names never referenced anywhere
// in the tree. Scope is ignored: any identifier occurrence counts as a use.
func unusedImports(root *node.Node, policy NamePolicy) []Finding {
	imported := topLevelImports(root, policy)
	if len(imported) == 0 {
		return nil
	}

	referenced := make(map[string]struct{})

	root.VisitPreOrder(func(n *node.Node) bool {
		if n.Kind == node.KindIdentifier {
			referenced[n.Token] = struct{}{}
		}

		return true
	})

	var findings []Finding

	for _, imp := range imported {
		if _, used := referenced[imp.name]; !used {
			findings = append(findings, unusedImportFinding(imp.name, imp.line))
		}
	}

	return findings
}

// topLevelImports collects the names bound by imports that are direct
// children of the module, deduplicated with the first declaration kept.
func topLevelImports(root *node.Node, policy NamePolicy) []importedName {
	var out []importedName

	seen := make(map[string]bool)

	for _, stmt := range root.Children {
		if stmt.Kind != node.KindImport {
			continue
		}

		for _, binding := range stmt.Children {
			if binding.Kind != node.KindImportBinding {
				continue
			}

			name := binding.Token
			if policy == NamesDeclared && binding.Module != "" {
				name = binding.Module
			}

			if seen[name] {
				continue
			}

			seen[name] = true

			out = append(out, importedName{name: name, line: binding.Line})
		}
	}

	return out
}
