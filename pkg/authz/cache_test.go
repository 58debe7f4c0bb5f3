package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svnauthz/authz/pkg/authzspec"
)

func TestTreeCacheReusesEntries(t *testing.T) {
	engine := fixtureAuthorizer(t)

	first := engine.filteredTree(authzspec.AnyRepository, "alice")
	second := engine.filteredTree(authzspec.AnyRepository, "alice")
	assert.Same(t, first, second)
	assert.Equal(t, 1, engine.cache.len())

	other := engine.filteredTree(authzspec.AnyRepository, "bob")
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, engine.cache.len())
}

func TestTreeCacheKeyDistinguishesUserAndRepository(t *testing.T) {
	engine := fixtureAuthorizer(t)

	alice := engine.filteredTree("repoA", "alice")
	assert.NotSame(t, alice, engine.filteredTree("repoB", "alice"))
	assert.NotSame(t, alice, engine.filteredTree("repoA", authzspec.Anonymous))
	assert.Equal(t, 3, engine.cache.len())
}

func TestTreeCacheEvictsOldest(t *testing.T) {
	engine, err := NewWithCacheSize(parseModel(t, ruleFixture), 2)
	require.NoError(t, err)

	engine.filteredTree("repoA", "alice")
	engine.filteredTree("repoB", "alice")

	// touch repoA so repoB becomes the oldest entry
	engine.filteredTree("repoA", "alice")
	engine.filteredTree("repoC", "alice")

	assert.Equal(t, 2, engine.cache.len())
	_, ok := engine.cache.get(treeKey{user: "alice", repository: "repoA"})
	assert.True(t, ok)
	_, ok = engine.cache.get(treeKey{user: "alice", repository: "repoB"})
	assert.False(t, ok)
}

func TestTreeCacheRebuildAfterEviction(t *testing.T) {
	engine, err := NewWithCacheSize(parseModel(t, ruleFixture), 1)
	require.NoError(t, err)

	granted, err := engine.CheckAccess("repoA", "/trunk", "alice", authzspec.AccessRead)
	require.NoError(t, err)
	assert.True(t, granted)

	// evict alice's tree, then query it again
	_, err = engine.CheckAccess("repoA", "/trunk", "bob", authzspec.AccessRead)
	require.NoError(t, err)

	granted, err = engine.CheckAccess("repoA", "/trunk", "alice", authzspec.AccessRead)
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestNewWithCacheSizeRejectsNonPositive(t *testing.T) {
	_, err := NewWithCacheSize(parseModel(t, ruleFixture), 0)
	assert.Error(t, err)
}
