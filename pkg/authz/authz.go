// Package authz answers path-based access queries against a parsed
// authorization model. For every (user, repository) pair it lazily compiles
// the global rule list into a small prefix tree of path segments, finalizes
// per-subtree rights bounds on it, and walks it segment by segment per
// query. Trees are kept in a bounded LRU together with a reusable lookup
// state that lets sibling queries skip the shared path prefix.
//
// An Authorizer is not safe for concurrent use; the underlying model is.
package authz

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/svnauthz/authz/pkg/authzspec"
)

var (
	// ErrInvalidPath is returned when a non-empty query path does not start
	// with '/'. This is a contract violation, not a denial.
	ErrInvalidPath = errors.New("query path must start with '/'")
	// ErrNilModel is returned by New for a nil authorization model.
	ErrNilModel = errors.New("authorization model is nil")
)

// Authorizer evaluates access queries against one authorization model.
type Authorizer struct {
	model *authzspec.Model
	cache *treeCache
}

// New creates an Authorizer with the default filtered-tree cache size.
func New(model *authzspec.Model) (*Authorizer, error) {
	return NewWithCacheSize(model, DefaultCacheSize)
}

// NewWithCacheSize creates an Authorizer keeping up to size filtered trees.
func NewWithCacheSize(model *authzspec.Model, size int) (*Authorizer, error) {
	if model == nil {
		return nil, ErrNilModel
	}
	cache, err := newTreeCache(size)
	if err != nil {
		return nil, fmt.Errorf("tree cache: %w", err)
	}
	return &Authorizer{model: model, cache: cache}, nil
}

// CheckAccess reports whether the required access is granted to user on
// path of the given repository.
//
// An empty repository stands for "any repository": only rules without a
// repository qualifier apply. An empty user is the anonymous principal. An
// empty path asks whether the user has the required access anywhere in the
// repository at all. Every other path must start with '/'; interior runs of
// '/' collapse and a trailing '/' addresses the empty segment below the
// path, so "/a/" and "/a" are distinct queries.
//
// required may include AccessRecursive, which demands the operation bits on
// every potential path at and below the queried one.
func (a *Authorizer) CheckAccess(repository, path, user string, required authzspec.Access) (bool, error) {
	rules := a.filteredTree(repository, user)
	operations := required &^ authzspec.AccessRecursive

	if path == "" {
		return rules.root.rights.maxRights.Has(operations), nil
	}
	if path[0] != '/' {
		return false, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	remainder := rules.state.init(rules.root, path)
	recursive := required.Has(authzspec.AccessRecursive)
	return lookup(rules.state, remainder, operations, recursive), nil
}

// Dump renders the filtered tree for (user, repository) in a tree layout,
// for operators inspecting which rules reach a user.
func (a *Authorizer) Dump(repository, user string) string {
	return a.filteredTree(repository, user).root.treeString()
}

// filteredTree returns the cached tree for (user, repository), building and
// inserting it on a miss.
func (a *Authorizer) filteredTree(repository, user string) *userRules {
	key := treeKey{user: user, repository: repository}
	if rules, ok := a.cache.get(key); ok {
		return rules
	}

	start := time.Now()
	rules := &userRules{
		root:  buildTree(a.model, repository, user),
		state: newLookupState(),
	}
	a.cache.add(key, rules)
	slog.Debug("filtered tree built",
		"user", user,
		"repository", repository,
		"cached", a.cache.len(),
		"took", time.Since(start),
	)
	return rules
}
