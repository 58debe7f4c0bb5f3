package authzspec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, content string) *Model {
	t.Helper()
	model, err := Parse(strings.NewReader(content))
	require.NoError(t, err)
	return model
}

func TestParseSections(t *testing.T) {
	model := parseString(t, `
# global default
[/]
* =

[/trunk]
alice = rw

[repoA:/tags]
bob = r
`)

	acls := model.ACLs()
	require.Len(t, acls, 3)

	assert.Equal(t, 1, acls[0].Sequence)
	assert.Equal(t, AnyRepository, acls[0].Repository)
	assert.Empty(t, acls[0].Path)

	assert.Equal(t, 2, acls[1].Sequence)
	require.Len(t, acls[1].Path, 1)
	assert.Equal(t, SegmentLiteral, acls[1].Path[0].Kind)
	assert.Equal(t, "trunk", acls[1].Path[0].Pattern)

	assert.Equal(t, 3, acls[2].Sequence)
	assert.Equal(t, "repoA", acls[2].Repository)
	require.Len(t, acls[2].Path, 1)
	assert.Equal(t, "tags", acls[2].Path[0].Pattern)
}

func TestParseRulePathNormalization(t *testing.T) {
	model := parseString(t, `
[/a//b]
alice = r

[/c/]
alice = r

[/d/**/**/e]
alice = r
`)

	acls := model.ACLs()
	require.Len(t, acls, 3)

	// runs of '/' collapse
	require.Len(t, acls[0].Path, 2)
	assert.Equal(t, "a", acls[0].Path[0].Pattern)
	assert.Equal(t, "b", acls[0].Path[1].Pattern)

	// a trailing '/' keeps its empty terminal segment
	require.Len(t, acls[1].Path, 2)
	assert.Equal(t, "c", acls[1].Path[0].Pattern)
	assert.Equal(t, SegmentLiteral, acls[1].Path[1].Kind)
	assert.Equal(t, "", acls[1].Path[1].Pattern)

	// consecutive "**" collapse to one
	require.Len(t, acls[2].Path, 3)
	assert.Equal(t, SegmentAnyRecursive, acls[2].Path[1].Kind)
	assert.Equal(t, "e", acls[2].Path[2].Pattern)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"unterminated section", "[/trunk\nalice = r\n", ErrInvalidSection},
		{"relative path", "[trunk]\nalice = r\n", ErrInvalidSection},
		{"relative repo path", "[repoA:trunk]\nalice = r\n", ErrInvalidSection},
		{"rule before section", "alice = r\n", ErrInvalidRule},
		{"missing equals", "[/]\nalice\n", ErrInvalidRule},
		{"bad rights", "[/]\nalice = rx\n", ErrInvalidAccess},
		{"undefined group", "[/]\n@ghosts = r\n", ErrUndefinedGroup},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.content))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseGroups(t *testing.T) {
	model := parseString(t, `
[groups]
ops = bob
team = alice, @ops

[/infra]
@team = rw
`)

	team := model.GroupMembers("team")
	require.NotNil(t, team)
	assert.True(t, team.Contains("alice"))
	assert.True(t, team.Contains("bob"))
	assert.Nil(t, model.GroupMembers("nosuch"))

	rights, ok := model.ACLs()[0].RightsFor("bob")
	assert.True(t, ok)
	assert.Equal(t, AccessReadWrite, rights)

	_, ok = model.ACLs()[0].RightsFor("carol")
	assert.False(t, ok)
}

func TestParseGroupCycle(t *testing.T) {
	_, err := Parse(strings.NewReader(`
[groups]
a = @b
b = @a
`))
	assert.ErrorIs(t, err, ErrGroupCycle)
}

func TestParseGroupUndefinedReference(t *testing.T) {
	_, err := Parse(strings.NewReader(`
[groups]
a = alice, @nosuch
`))
	assert.ErrorIs(t, err, ErrUndefinedGroup)
}

func TestRightsForPrecedence(t *testing.T) {
	model := parseString(t, `
[groups]
team = alice

[/p]
@team = rw
alice = r

[/q]
$authenticated = rw
* = r

[/r]
$anonymous = r
`)

	// an exact user entry wins over a matching group
	rights, ok := model.ACLs()[0].RightsFor("alice")
	require.True(t, ok)
	assert.Equal(t, AccessRead, rights)

	// $authenticated wins over the everyone token for named users
	rights, ok = model.ACLs()[1].RightsFor("alice")
	require.True(t, ok)
	assert.Equal(t, AccessReadWrite, rights)

	// the anonymous user falls through to the everyone token
	rights, ok = model.ACLs()[1].RightsFor(Anonymous)
	require.True(t, ok)
	assert.Equal(t, AccessRead, rights)

	// $anonymous never matches a named user
	rights, ok = model.ACLs()[2].RightsFor(Anonymous)
	require.True(t, ok)
	assert.Equal(t, AccessRead, rights)
	_, ok = model.ACLs()[2].RightsFor("alice")
	assert.False(t, ok)
}

func TestRightsForGroupUnion(t *testing.T) {
	model := parseString(t, `
[groups]
readers = alice
writers = alice

[/p]
@readers = r
@writers = w
`)

	rights, ok := model.ACLs()[0].RightsFor("alice")
	require.True(t, ok)
	assert.Equal(t, AccessReadWrite, rights)
}

func TestAppliesToRepository(t *testing.T) {
	model := parseString(t, `
[/x]
alice = r

[repoA:/y]
alice = r
`)

	anyRepo := model.ACLs()[0]
	assert.True(t, anyRepo.AppliesToRepository("repoA"))
	assert.True(t, anyRepo.AppliesToRepository(AnyRepository))

	scoped := model.ACLs()[1]
	assert.True(t, scoped.AppliesToRepository("repoA"))
	assert.False(t, scoped.AppliesToRepository("repoB"))
	assert.False(t, scoped.AppliesToRepository(AnyRepository))
}

func TestParseInternsPatterns(t *testing.T) {
	model := parseString(t, `
[/trunk/doc]
alice = r

[/trunk/src]
alice = r
`)

	first := model.ACLs()[0].Path[0].Pattern
	second := model.ACLs()[1].Path[0].Pattern
	assert.Equal(t, "trunk", first)
	assert.Equal(t, "trunk", second)

	// interning hands out the canonical instance
	assert.Equal(t, model.intern("trunk"), first)
}
