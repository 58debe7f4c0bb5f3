package authzspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySegment(t *testing.T) {
	intern := func(s string) string { return s }

	tests := []struct {
		raw     string
		kind    SegmentKind
		pattern string
	}{
		{"trunk", SegmentLiteral, "trunk"},
		{"*", SegmentAny, "*"},
		{"**", SegmentAnyRecursive, "**"},
		{"qx*", SegmentPrefix, "qx"},
		{"*.md", SegmentSuffix, "dm."},
		{"*~", SegmentSuffix, "~"},
		{"a*b", SegmentFnmatch, "a*b"},
		{"*a*", SegmentFnmatch, "*a*"},
		{"q?x", SegmentFnmatch, "q?x"},
		{"[ab]c", SegmentFnmatch, "[ab]c"},
		{"x[ab]*", SegmentFnmatch, "x[ab]*"},
		{"***", SegmentFnmatch, "***"},
	}

	for _, tc := range tests {
		segment := classifySegment(tc.raw, intern)
		assert.Equal(t, tc.kind, segment.Kind, "raw %q", tc.raw)
		assert.Equal(t, tc.pattern, segment.Pattern, "raw %q", tc.raw)
	}
}

func TestReverseString(t *testing.T) {
	assert.Equal(t, "", ReverseString(""))
	assert.Equal(t, "a", ReverseString("a"))
	assert.Equal(t, "dm.", ReverseString(".md"))
	assert.Equal(t, "cba", ReverseString("abc"))
}
