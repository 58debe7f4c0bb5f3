package authzspec

import "strings"

// SegmentKind tags the matching behavior of one path segment pattern.
type SegmentKind uint8

const (
	// SegmentLiteral matches the segment text verbatim.
	SegmentLiteral SegmentKind = iota
	// SegmentAny ("*") matches exactly one whole segment.
	SegmentAny
	// SegmentAnyRecursive ("**") matches zero or more whole segments.
	SegmentAnyRecursive
	// SegmentPrefix ("lit*") matches segments starting with the literal.
	SegmentPrefix
	// SegmentSuffix ("*lit") matches segments ending with the literal.
	SegmentSuffix
	// SegmentFnmatch is a general glob that fits none of the above.
	SegmentFnmatch
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentLiteral:
		return "literal"
	case SegmentAny:
		return "any"
	case SegmentAnyRecursive:
		return "any-recursive"
	case SegmentPrefix:
		return "prefix"
	case SegmentSuffix:
		return "suffix"
	case SegmentFnmatch:
		return "fnmatch"
	default:
		return "unknown"
	}
}

// Segment is one parsed component of a rule path.
//
// Pattern holds the matching-relevant text and is interned in the owning
// Model: for SegmentPrefix it is the literal part without the trailing "*",
// for SegmentSuffix it is the literal part without the leading "*" and
// stored reversed, so that suffix matching can reuse prefix matching on a
// reversed path segment. For all other kinds it is the full pattern text.
type Segment struct {
	Kind    SegmentKind
	Pattern string
}

const wildcardChars = "*?["

// classifySegment turns one raw rule path segment into a Segment.
// The intern function canonicalizes the pattern string.
func classifySegment(raw string, intern func(string) string) Segment {
	switch {
	case raw == "*":
		return Segment{Kind: SegmentAny, Pattern: intern(raw)}
	case raw == "**":
		return Segment{Kind: SegmentAnyRecursive, Pattern: intern(raw)}
	case !strings.ContainsAny(raw, wildcardChars):
		return Segment{Kind: SegmentLiteral, Pattern: intern(raw)}
	case strings.HasSuffix(raw, "*") && !strings.ContainsAny(raw[:len(raw)-1], wildcardChars):
		return Segment{Kind: SegmentPrefix, Pattern: intern(raw[:len(raw)-1])}
	case strings.HasPrefix(raw, "*") && !strings.ContainsAny(raw[1:], wildcardChars):
		return Segment{Kind: SegmentSuffix, Pattern: intern(ReverseString(raw[1:]))}
	default:
		return Segment{Kind: SegmentFnmatch, Pattern: intern(raw)}
	}
}

// ReverseString returns s with its bytes in reverse order.
func ReverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
