// Package authzspec parses path-based authorization files into an immutable
// rule model: an ordered list of ACLs, a resolved group membership table and
// an interned pattern string pool. The query engine consumes the model as
// opaque data.
package authzspec

import (
	mapset "github.com/deckarep/golang-set/v2"
)

const (
	// AnyRepository is the repository sentinel for rules declared without a
	// repository qualifier. Such rules apply to every repository.
	AnyRepository = ""

	// Anonymous is the user value representing an unauthenticated principal.
	Anonymous = ""

	// TokenEveryone grants to every principal, authenticated or not.
	TokenEveryone = "*"
	// TokenAnonymous matches only unauthenticated principals.
	TokenAnonymous = "$anonymous"
	// TokenAuthenticated matches every principal except the anonymous one.
	TokenAuthenticated = "$authenticated"

	// GroupPrefix marks a group reference in rule lines and group values.
	GroupPrefix = "@"
)

// ACL is one parsed rule block: an ordered segment pattern path, the
// repository it is scoped to (or AnyRepository), a 1-based sequence number
// reflecting source order, and the per-principal rights of the block.
type ACL struct {
	// Sequence is the 1-based position of this ACL in the source file.
	// Higher sequence numbers take precedence when rules collide.
	Sequence int

	// Repository the rule applies to, or AnyRepository.
	Repository string

	// Path is the ordered segment pattern list. Empty for a rule on "/".
	Path []Segment

	entries map[string]Access
	model   *Model
}

// RightsFor resolves the rights this ACL grants to user. The second return
// value is false when the ACL says nothing about the user at all.
//
// Resolution order follows the classic authz precedence: an exact user entry
// wins over group entries, which win over the $authenticated / $anonymous
// pseudo-users, which win over the everyone token. Multiple group entries
// matching the same user are combined by union.
func (a *ACL) RightsFor(user string) (Access, bool) {
	if user != Anonymous {
		if rights, ok := a.entries[user]; ok {
			return rights, true
		}
	}

	groupRights := AccessNone
	groupMatched := false
	for entry, rights := range a.entries {
		if len(entry) == 0 || entry[0] != GroupPrefix[0] {
			continue
		}
		members, ok := a.model.groups[entry[1:]]
		if ok && user != Anonymous && members.Contains(user) {
			groupRights |= rights
			groupMatched = true
		}
	}
	if groupMatched {
		return groupRights, true
	}

	if user == Anonymous {
		if rights, ok := a.entries[TokenAnonymous]; ok {
			return rights, true
		}
	} else {
		if rights, ok := a.entries[TokenAuthenticated]; ok {
			return rights, true
		}
	}

	if rights, ok := a.entries[TokenEveryone]; ok {
		return rights, true
	}

	return AccessNone, false
}

// AppliesToRepository reports whether the ACL is in scope for the given
// repository name (or for the AnyRepository sentinel).
func (a *ACL) AppliesToRepository(repository string) bool {
	return a.Repository == AnyRepository || a.Repository == repository
}

// Model is the immutable in-memory authorization model: the ordered ACL list
// plus the resolved group table. It is safe for concurrent readers.
type Model struct {
	acls    []*ACL
	groups  map[string]mapset.Set[string]
	interns map[string]string
}

// ACLs returns the rules in source order.
func (m *Model) ACLs() []*ACL {
	return m.acls
}

// GroupMembers returns the fully expanded member set of a group, or nil if
// the group is not defined.
func (m *Model) GroupMembers(name string) mapset.Set[string] {
	members, ok := m.groups[name]
	if !ok {
		return nil
	}
	return members
}

// intern returns the canonical instance of s. All pattern strings inside a
// model are interned, so equal patterns share backing storage and string
// comparison between them is effectively a pointer check. The filtered-tree
// builder's insertion cursor relies on this.
func (m *Model) intern(s string) string {
	if canon, ok := m.interns[s]; ok {
		return canon
	}
	m.interns[s] = s
	return s
}

func newModel() *Model {
	return &Model{
		groups:  make(map[string]mapset.Set[string]),
		interns: make(map[string]string),
	}
}
