package authz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/svnauthz/authz/pkg/authzspec"
)

// treeString renders the tree below n, one node per line, with the local
// access and the finalized subtree bounds of every node.
func (n *node) treeString() string {
	var sb strings.Builder
	n.buildString(&sb, "/", "", true, true)
	return sb.String()
}

type labeledChild struct {
	label string
	node  *node
}

func (n *node) buildString(sb *strings.Builder, label, prefix string, isLast bool, isRoot bool) {
	if !isRoot {
		marker := "└── "
		if !isLast {
			marker = "├── "
		}
		sb.WriteString(prefix)
		sb.WriteString(marker)
	}

	sb.WriteString(label)

	if n.rights.hasLocalRule() {
		sb.WriteString(fmt.Sprintf(" (#%d %s", n.rights.access.sequence, n.rights.access.rights))
	} else {
		sb.WriteString(" (-")
	}
	sb.WriteString(fmt.Sprintf(", min:%s, max:%s)", n.rights.minRights, n.rights.maxRights))
	sb.WriteString("\n")

	childPrefix := prefix
	if !isRoot {
		if isLast {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
	}

	children := n.labeledChildren()
	for i, child := range children {
		child.node.buildString(sb, child.label, childPrefix, i == len(children)-1, false)
	}
}

// labeledChildren collects all children in a stable order: sorted literals
// first, then the wildcard slots.
func (n *node) labeledChildren() []labeledChild {
	var children []labeledChild

	literals := make([]string, 0, len(n.subNodes))
	for segment := range n.subNodes {
		literals = append(literals, segment)
	}
	sort.Strings(literals)
	for _, segment := range literals {
		children = append(children, labeledChild{label: segment, node: n.subNodes[segment]})
	}

	if n.pattern == nil {
		return children
	}

	if n.pattern.any != nil {
		children = append(children, labeledChild{label: "*", node: n.pattern.any})
	}
	if n.pattern.anyVar != nil {
		children = append(children, labeledChild{label: "**", node: n.pattern.anyVar})
	}
	for _, child := range n.pattern.prefixes {
		children = append(children, labeledChild{label: child.segment + "*", node: child})
	}
	for _, child := range n.pattern.suffixes {
		// suffix nodes store the reversed literal
		children = append(children, labeledChild{label: "*" + authzspec.ReverseString(child.segment), node: child})
	}
	for _, child := range n.pattern.complex {
		children = append(children, labeledChild{label: child.segment, node: child})
	}

	return children
}
