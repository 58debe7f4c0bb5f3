package authz

import (
	"github.com/svnauthz/authz/pkg/authzspec"
)

// cursorStep pairs a processed rule segment with the tree node it produced.
type cursorStep struct {
	segment authzspec.Segment
	node    *node
}

// insertionCursor remembers the (segment, node) steps of the previous rule
// insertion. Authorization files tend to declare related rules next to each
// other, so the next rule usually shares a path prefix with the previous one
// and the shared part can be walked without any map or array lookups.
type insertionCursor struct {
	path []cursorStep
}

// buildTree filters the model down to the rules relevant for (user,
// repository) and folds them into a prefix tree, finalizing the subtree
// rights bounds afterwards.
func buildTree(model *authzspec.Model, repository, user string) *node {
	root := newNode("")
	cursor := &insertionCursor{path: make([]cursorStep, 0, 32)}

	for _, acl := range model.ACLs() {
		processACL(cursor, acl, root, repository, user)
	}

	// If no rule terminates at the root, the "no access" default applies.
	// Its sequence number never overrules a real rule.
	if !root.rights.hasLocalRule() {
		root.rights.access = ruleAccess{
			sequence: rootSequenceNumber,
			rights:   authzspec.AccessNone,
		}
	}

	finalizeUp(root, &root.rights.access, root)
	finalizeDown(root, limitedRights{
		access:    ruleAccess{sequence: noSequenceNumber},
		minRights: authzspec.AccessReadWrite,
		maxRights: authzspec.AccessNone,
	})

	return root
}

// processACL inserts one rule into the tree rooted at root if it is
// relevant for the given repository and user.
func processACL(cursor *insertionCursor, acl *authzspec.ACL, root *node, repository, user string) {
	if !acl.AppliesToRepository(repository) {
		return
	}
	rights, ok := acl.RightsFor(user)
	if !ok {
		return
	}

	access := ruleAccess{sequence: acl.Sequence, rights: rights}

	// Fast-forward along the cursor while the rule path matches the steps
	// of the previous insertion. Pattern strings are interned in the model,
	// so the equality check is effectively an identity comparison.
	current := root
	depth := 0
	for ; depth < len(cursor.path) && depth < len(acl.Path); depth++ {
		step := cursor.path[depth]
		if step.segment.Kind != acl.Path[depth].Kind ||
			step.segment.Pattern != acl.Path[depth].Pattern {
			break
		}
		current = step.node
	}
	cursor.path = cursor.path[:depth]

	insertPath(cursor, current, access, acl.Path[depth:])
}

// insertPath walks and extends the tree below start for the remaining rule
// segments, recording each step in the cursor, and attaches the access
// record to the terminal node.
func insertPath(cursor *insertionCursor, start *node, access ruleAccess, segments []authzspec.Segment) {
	current := start
	for _, segment := range segments {
		var child *node
		switch segment.Kind {
		case authzspec.SegmentAny:
			child = ensureChildSlot(&current.ensurePattern().any, segment.Pattern)
		case authzspec.SegmentAnyRecursive:
			child = ensureChildSlot(&current.ensurePattern().anyVar, segment.Pattern)
			child.ensurePattern().repeat = true
		case authzspec.SegmentPrefix:
			child = ensureChildInArray(&current.ensurePattern().prefixes, segment.Pattern)
		case authzspec.SegmentSuffix:
			child = ensureChildInArray(&current.ensurePattern().suffixes, segment.Pattern)
		case authzspec.SegmentFnmatch:
			child = ensureChildInArray(&current.ensurePattern().complex, segment.Pattern)
		default:
			child = current.ensureLiteralChild(segment.Pattern)
		}

		cursor.path = append(cursor.path, cursorStep{segment: segment, node: child})
		current = child
	}

	// Patterns that normalize to the same tree path collide here; the rule
	// declared later in the file wins.
	if current.rights.access.sequence < access.sequence {
		current.rights.access = access
	}
}
