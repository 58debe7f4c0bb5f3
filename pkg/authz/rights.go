package authz

import "github.com/svnauthz/authz/pkg/authzspec"

// noSequenceNumber marks the absence of a local rule on a node. It is less
// than every assigned sequence number, including the implicit root default 0.
const noSequenceNumber = -1

// rootSequenceNumber is reserved for the implicit "no access" default that
// gets installed at the root when no rule mentions it. User-defined rules
// start at 1.
const rootSequenceNumber = 0

// ruleAccess is the rights granted by one rule, tagged with the rule's
// sequence number. When several rules terminate on nodes matched by the same
// path, the highest sequence number wins.
type ruleAccess struct {
	sequence int
	rights   authzspec.Access
}

// limitedRights combines a node's immediate access with the rights bounds
// over its whole subtree.
type limitedRights struct {
	// access granted by the rule ending at this node, or sequence
	// noSequenceNumber when only deeper rules exist.
	access ruleAccess

	// minRights is granted everywhere in the subtree, maxRights somewhere
	// in it. Together they allow both recursive queries and early lookup
	// termination without visiting the subtree.
	minRights authzspec.Access
	maxRights authzspec.Access
}

// hasLocalRule reports whether a rule ends exactly at the owning node.
func (r *limitedRights) hasLocalRule() bool {
	return r.access.sequence != noSequenceNumber
}

// combineAccess folds other's access into r, keeping the one with the
// higher sequence number.
func (r *limitedRights) combineAccess(other *limitedRights) {
	if r.access.sequence < other.access.sequence {
		r.access = other.access
	}
}

// combineLimits widens r's subtree bounds by other's.
func (r *limitedRights) combineLimits(other *limitedRights) {
	r.maxRights |= other.maxRights
	r.minRights &= other.minRights
}
