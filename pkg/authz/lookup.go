package authz

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/svnauthz/authz/pkg/authzspec"
)

// lookupState is the reusable walk state for one filtered tree. Recycling
// it between queries avoids per-query allocations and lets a query that
// shares a parent path with the previous one skip the common prefix.
type lookupState struct {
	// rights accumulated for the current depth.
	rights limitedRights

	// current holds the nodes reached at the current depth, next is the
	// scratch list being built for the depth below.
	current []*node
	next    []*node

	// scratch holds the bytes of the segment being processed.
	scratch []byte

	// parentPath is the already walked prefix after the previous query and
	// parentRights the rights snapshot taken at that prefix. Both are kept
	// in sync with current at the end of every segment step.
	parentPath   []byte
	parentRights limitedRights
}

func newLookupState() *lookupState {
	return &lookupState{
		current: make([]*node, 0, 4),
		next:    make([]*node, 0, 4),

		// Virtually all segments and paths fit these. Growing past them is
		// handled by append.
		scratch:    make([]byte, 0, 200),
		parentPath: make([]byte, 0, 200),
	}
}

// init prepares the state for a walk of path from root. When the previous
// query left a parent path that is a proper path prefix of this one, the
// node list at that depth is still valid and only the remainder of path has
// to be walked; the returned string is that remainder, or all of path after
// a full reset.
func (s *lookupState) init(root *node, path string) string {
	prefix := len(s.parentPath)
	if len(path) > prefix && prefix > 0 && path[prefix] == '/' &&
		path[:prefix] == string(s.parentPath) {
		s.rights = s.parentRights
		return path[prefix:]
	}

	s.rights = root.rights
	s.parentRights = root.rights

	s.next = s.next[:0]
	s.current = append(s.current[:0], root)

	// A "**" at the root matches the empty segment sequence, so it applies
	// to the root itself.
	if root.pattern != nil && root.pattern.anyVar != nil {
		anyVar := root.pattern.anyVar
		s.rights.combineAccess(&anyVar.rights)
		s.rights.combineLimits(&anyVar.rights)
		s.current = append(s.current, anyVar)
	}

	s.parentPath = s.parentPath[:0]
	s.scratch = s.scratch[:0]

	return path
}

// nextSegment copies the first segment of path into the scratch buffer.
// Runs of '/' count as a single separator and a trailing '/' yields one
// final empty segment. more is false once path held the last segment.
func (s *lookupState) nextSegment(path string) (rest string, more bool) {
	idx := strings.IndexByte(path, '/')
	if idx < 0 {
		s.scratch = append(s.scratch[:0], path...)
		return "", false
	}

	s.scratch = append(s.scratch[:0], path[:idx]...)
	for idx < len(path) && path[idx] == '/' {
		idx++
	}
	return path[idx:], true
}

// addNext folds a matched node into the accumulator for the next depth.
// A nil node is a no-op, which simplifies the callers.
func (s *lookupState) addNext(n *node) {
	if n == nil {
		return
	}

	// The rule with the highest sequence number applies; nodes without a
	// local rule never win this. The subtree bounds of every candidate
	// node combine, since any of them may still match deeper down.
	s.rights.combineAccess(&n.rights)
	s.rights.combineLimits(&n.rights)
	s.next = append(s.next, n)

	// A "**" child also matches zero segments, so it applies at the same
	// depth as its parent. This does not recurse: rule normalization
	// guarantees a "**" never directly follows another.
	if n.pattern != nil && n.pattern.anyVar != nil {
		anyVar := n.pattern.anyVar
		s.rights.combineAccess(&anyVar.rights)
		s.rights.combineLimits(&anyVar.rights)
		s.next = append(s.next, anyVar)
	}
}

// addPrefixMatches folds in every node of the sorted array whose stored
// literal is a byte prefix of segment. All candidates sort at or before the
// segment itself, so on arrays of more than 8 entries a binary search bounds
// the scan; shorter arrays are scanned whole.
func (s *lookupState) addPrefixMatches(segment []byte, nodes []*node) {
	end := len(nodes)
	if end > 8 {
		end = lowerBound(nodes, segment)
	}
	for _, n := range nodes[:end] {
		if len(n.segment) <= len(segment) && n.segment == string(segment[:len(n.segment)]) {
			s.addNext(n)
		}
	}
}

// lowerBound returns the index of the first node whose segment sorts
// strictly after segment.
func lowerBound(nodes []*node, segment []byte) int {
	low, high := 0, len(nodes)
	for low < high {
		mid := (low + high) / 2
		if compareToBytes(nodes[mid].segment, segment) > 0 {
			high = mid
		} else {
			low = mid + 1
		}
	}
	return low
}

// compareToBytes is strings.Compare for a string and a byte slice, without
// converting either.
func compareToBytes(a string, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// addComplexMatches folds in every general glob node matching segment.
func (s *lookupState) addComplexMatches(segment string, nodes []*node) {
	for _, n := range nodes {
		if matched, err := doublestar.Match(n.segment, segment); err == nil && matched {
			s.addNext(n)
		}
	}
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// lookup walks the filtered tree along path and reports whether the
// required access is granted. required must not contain AccessRecursive;
// recursive queries instead demand required on every potential sub-path.
// path may be the remainder returned by init and does not need to be
// normalized.
func lookup(state *lookupState, path string, required authzspec.Access, recursive bool) bool {
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}

	more := true
	for len(state.current) > 0 && more {
		// Nowhere below this depth can the subtree satisfy the query.
		if !state.rights.maxRights.Has(required) {
			return false
		}
		// Everywhere below this depth the query is satisfied.
		if state.rights.minRights.Has(required) {
			return true
		}

		path, more = state.nextSegment(path)

		// Neutral bounds: the first matched node's values pass through
		// unchanged. If no node matches, the access keeps sequence
		// noSequenceNumber and the parent's rights are inherited below.
		state.next = state.next[:0]
		state.rights.access = ruleAccess{sequence: noSequenceNumber, rights: authzspec.AccessNone}
		state.rights.minRights = authzspec.AccessReadWrite
		state.rights.maxRights = authzspec.AccessNone

		// Keep parentPath in sync with what current will hold after the
		// swap at the end of this step.
		if more {
			state.parentPath = append(state.parentPath, '/')
			state.parentPath = append(state.parentPath, state.scratch...)
		}

		for _, n := range state.current {
			if n.subNodes != nil {
				if child, ok := n.subNodes[string(state.scratch)]; ok {
					state.addNext(child)
				}
			}

			if n.pattern != nil {
				state.addNext(n.pattern.any)

				// A "**" node matches at every depth, so it stays a
				// candidate for the next one too.
				if n.pattern.repeat {
					state.addNext(n)
				}

				if len(n.pattern.prefixes) > 0 {
					state.addPrefixMatches(state.scratch, n.pattern.prefixes)
				}
				if len(n.pattern.complex) > 0 {
					state.addComplexMatches(string(state.scratch), n.pattern.complex)
				}
				if len(n.pattern.suffixes) > 0 {
					// Suffixes behave like reversed prefixes. Restore the
					// byte order afterwards for the remaining candidates.
					reverseBytes(state.scratch)
					state.addPrefixMatches(state.scratch, n.pattern.suffixes)
					reverseBytes(state.scratch)
				}
			}
		}

		// No rule applied to this segment directly, so the parent rights
		// cover at least the segment itself and possibly paths below it.
		if !state.rights.hasLocalRule() {
			state.rights.access = state.parentRights.access
			state.rights.minRights &= state.parentRights.access.rights
			state.rights.maxRights |= state.parentRights.access.rights
		}

		if more {
			state.current, state.next = state.next, state.current
			state.parentRights = state.rights
		}
	}

	// On recursive queries every potential sub-path needs the rights; we do
	// not check that those paths exist anywhere.
	if recursive {
		return state.rights.minRights.Has(required)
	}
	return state.rights.access.rights.Has(required)
}
