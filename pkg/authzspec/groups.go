package authzspec

import (
	"errors"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

var (
	// ErrGroupCycle is returned when group definitions reference each other
	// in a cycle.
	ErrGroupCycle = errors.New("cyclic group definition")
	// ErrUndefinedGroup is returned when a group value or rule line
	// references a group that the [groups] section never defines.
	ErrUndefinedGroup = errors.New("undefined group")
)

// expandGroups resolves raw group definitions (member lists that may contain
// "@group" references) into flat user sets, following references
// transitively. Definitions forming a reference cycle are an error.
func expandGroups(raw map[string][]string) (map[string]mapset.Set[string], error) {
	expanded := make(map[string]mapset.Set[string], len(raw))
	visiting := mapset.NewThreadUnsafeSet[string]()

	var expand func(name string) (mapset.Set[string], error)
	expand = func(name string) (mapset.Set[string], error) {
		if members, ok := expanded[name]; ok {
			return members, nil
		}
		if visiting.Contains(name) {
			return nil, fmt.Errorf("%w: %s%s", ErrGroupCycle, GroupPrefix, name)
		}

		definition, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s%s", ErrUndefinedGroup, GroupPrefix, name)
		}

		visiting.Add(name)
		defer visiting.Remove(name)

		members := mapset.NewThreadUnsafeSet[string]()
		for _, member := range definition {
			if strings.HasPrefix(member, GroupPrefix) {
				nested, err := expand(strings.TrimPrefix(member, GroupPrefix))
				if err != nil {
					return nil, err
				}
				members = members.Union(nested)
			} else if member != "" {
				members.Add(member)
			}
		}

		expanded[name] = members
		return members, nil
	}

	for name := range raw {
		if _, err := expand(name); err != nil {
			return nil, err
		}
	}

	return expanded, nil
}
