package authz

import "sort"

// node is one segment of the filtered per-(user, repository) prefix tree.
// newNode starts every node with sequence noSequenceNumber (no local rule),
// not the zero value, which is the root default's sequence number.
type node struct {
	// segment is the interned pattern text this node matches at its depth.
	// Empty at the root. Suffix nodes store the reversed literal.
	segment string

	// rights at this node and the bounds over its subtree. The bounds are
	// only valid after finalization.
	rights limitedRights

	// subNodes maps literal child segments to their nodes. Nil until the
	// first literal child is inserted.
	subNodes map[string]*node

	// pattern holds the wildcard children, if any.
	pattern *patternSubNodes
}

// patternSubNodes carries the non-literal children of a node. It is kept
// out of node so that literal-only trees stay small and a single nil check
// skips all wildcard handling during lookup.
type patternSubNodes struct {
	// any is the "*" child, matching exactly one segment.
	any *node

	// anyVar is the "**" child, matching zero or more segments.
	anyVar *node

	// prefixes are the "lit*" children, sorted by their literal part.
	prefixes []*node

	// suffixes are the "*lit" children, sorted by their reversed literal
	// part. Matching reverses the path segment and reuses prefix logic.
	suffixes []*node

	// complex are the remaining glob children, sorted by pattern text so
	// that repeated patterns share one node.
	complex []*node

	// repeat is set on a "**" node itself: it re-applies at every depth
	// below the one it was inserted at.
	repeat bool
}

func newNode(segment string) *node {
	return &node{
		segment: segment,
		rights: limitedRights{
			access: ruleAccess{sequence: noSequenceNumber},
		},
	}
}

// ensurePattern allocates the wildcard substructure on demand.
func (n *node) ensurePattern() *patternSubNodes {
	if n.pattern == nil {
		n.pattern = &patternSubNodes{}
	}
	return n.pattern
}

// ensureLiteralChild returns the literal child for segment, creating it if
// needed.
func (n *node) ensureLiteralChild(segment string) *node {
	if n.subNodes == nil {
		n.subNodes = make(map[string]*node)
	}
	child, ok := n.subNodes[segment]
	if !ok {
		child = newNode(segment)
		n.subNodes[segment] = child
	}
	return child
}

// ensureChildSlot returns the node in *slot, creating it for segment first
// if the slot is empty.
func ensureChildSlot(slot **node, segment string) *node {
	if *slot == nil {
		*slot = newNode(segment)
	}
	return *slot
}

// ensureChildInArray returns the node for segment from the sorted *array,
// inserting a new one at its binary search position if missing.
func ensureChildInArray(array *[]*node, segment string) *node {
	nodes := *array
	idx := sort.Search(len(nodes), func(i int) bool {
		return nodes[i].segment >= segment
	})
	if idx < len(nodes) && nodes[idx].segment == segment {
		return nodes[idx]
	}

	child := newNode(segment)
	nodes = append(nodes, nil)
	copy(nodes[idx+1:], nodes[idx:])
	nodes[idx] = child
	*array = nodes
	return child
}
