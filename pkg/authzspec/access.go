package authzspec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAccess is returned for rights values containing any character
// other than 'r' and 'w'.
var ErrInvalidAccess = errors.New("invalid access value")

// Access represents a permission bit flag for repository path operations.
type Access uint8

const (
	// AccessRead grants read access to a path.
	AccessRead Access = 1 << iota
	// AccessWrite grants write access to a path.
	AccessWrite
	// AccessRecursive is only meaningful on a query: it demands the
	// required rights on every potential path below the queried one.
	// It is never stored in a rule.
	AccessRecursive
)

const (
	// AccessNone is the empty rights set.
	AccessNone Access = 0
	// AccessReadWrite combines read and write.
	AccessReadWrite = AccessRead | AccessWrite
)

// Has reports whether all bits of required are present in a.
func (a Access) Has(required Access) bool {
	return a&required == required
}

func (a Access) String() string {
	if a == AccessNone {
		return "none"
	}

	var parts []string
	if a.Has(AccessRead) {
		parts = append(parts, "read")
	}
	if a.Has(AccessWrite) {
		parts = append(parts, "write")
	}
	if a.Has(AccessRecursive) {
		parts = append(parts, "recursive")
	}

	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "+")
}

// ParseAccess converts the rights value of a rule line ("", "r", "w", "rw")
// into an Access set. The empty string is the explicit "no access" value.
func ParseAccess(s string) (Access, error) {
	access := AccessNone
	for _, c := range s {
		switch c {
		case 'r':
			access |= AccessRead
		case 'w':
			access |= AccessWrite
		default:
			return AccessNone, fmt.Errorf("%w: unknown flag %q in %q", ErrInvalidAccess, c, s)
		}
	}
	return access, nil
}
