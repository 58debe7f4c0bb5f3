package authzspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAccess(t *testing.T) {
	tests := []struct {
		value string
		want  Access
	}{
		{"", AccessNone},
		{"r", AccessRead},
		{"w", AccessWrite},
		{"rw", AccessReadWrite},
		{"wr", AccessReadWrite},
	}

	for _, tc := range tests {
		got, err := ParseAccess(tc.value)
		assert.NoError(t, err, "value %q", tc.value)
		assert.Equal(t, tc.want, got, "value %q", tc.value)
	}
}

func TestParseAccessInvalid(t *testing.T) {
	for _, value := range []string{"x", "rx", "read", "R"} {
		_, err := ParseAccess(value)
		assert.ErrorIs(t, err, ErrInvalidAccess, "value %q", value)
	}
}

func TestAccessHas(t *testing.T) {
	assert.True(t, AccessReadWrite.Has(AccessRead))
	assert.True(t, AccessReadWrite.Has(AccessReadWrite))
	assert.True(t, AccessRead.Has(AccessNone))
	assert.False(t, AccessRead.Has(AccessWrite))
	assert.False(t, AccessNone.Has(AccessRead))
}

func TestAccessString(t *testing.T) {
	assert.Equal(t, "none", AccessNone.String())
	assert.Equal(t, "read", AccessRead.String())
	assert.Equal(t, "read+write", AccessReadWrite.String())
	assert.Equal(t, "read+recursive", (AccessRead | AccessRecursive).String())
}
