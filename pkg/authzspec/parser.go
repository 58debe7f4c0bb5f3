package authzspec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrInvalidSection is returned for malformed section headers, including
	// rule paths that do not start with "/".
	ErrInvalidSection = errors.New("invalid section header")
	// ErrInvalidRule is returned for malformed rule lines.
	ErrInvalidRule = errors.New("invalid rule line")
)

const (
	groupsSection = "groups"
	commentPrefix = "#"
)

// LoadFile parses the authorization file at path into a Model.
func LoadFile(path string) (*Model, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	model, err := Parse(fd)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return model, nil
}

// Parse reads an authorization file from r and builds the immutable model.
//
// The format is the classic section based one: a [groups] section defining
// named user sets (group values may reference other groups), followed by
// rule sections. A rule section header is either [/path] for any repository
// or [repo:/path] to scope the rules to one repository. Section bodies are
// "principal = rights" lines where the principal is a user name, a @group
// reference, the everyone token "*" or one of the $anonymous and
// $authenticated pseudo-users, and rights are "", "r", "w" or "rw".
// Blank lines and lines starting with "#" are skipped.
func Parse(r io.Reader) (*Model, error) {
	model := newModel()
	rawGroups := make(map[string][]string)

	// section state for the current [header]
	inGroups := false
	var acl *ACL
	sequence := 0

	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, fmt.Errorf("%w: line %d: %q", ErrInvalidSection, lineno, line)
			}
			header := line[1 : len(line)-1]

			if header == groupsSection {
				inGroups = true
				acl = nil
				continue
			}

			inGroups = false
			sequence++
			next, err := parseRuleSection(model, header, sequence)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineno, err)
			}
			acl = next
			model.acls = append(model.acls, acl)
			continue
		}

		name, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("%w: line %d: %q", ErrInvalidRule, lineno, line)
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" {
			return nil, fmt.Errorf("%w: line %d: missing principal", ErrInvalidRule, lineno)
		}

		if inGroups {
			rawGroups[name] = splitMembers(value)
			continue
		}

		if acl == nil {
			return nil, fmt.Errorf("%w: line %d: rule outside a section", ErrInvalidRule, lineno)
		}
		rights, err := ParseAccess(value)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		acl.entries[name] = rights
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	groups, err := expandGroups(rawGroups)
	if err != nil {
		return nil, err
	}
	model.groups = groups

	// Group references in rule lines must resolve.
	for _, acl := range model.acls {
		for entry := range acl.entries {
			if strings.HasPrefix(entry, GroupPrefix) {
				if _, ok := groups[strings.TrimPrefix(entry, GroupPrefix)]; !ok {
					return nil, fmt.Errorf("%w: %s", ErrUndefinedGroup, entry)
				}
			}
		}
	}

	return model, nil
}

// parseRuleSection builds an empty ACL from a section header of the form
// "/path" or "repo:/path".
func parseRuleSection(model *Model, header string, sequence int) (*ACL, error) {
	repository := AnyRepository
	rulePath := header

	if !strings.HasPrefix(header, "/") {
		idx := strings.Index(header, ":")
		if idx <= 0 {
			return nil, fmt.Errorf("%w: [%s] is neither [/path] nor [repo:/path]", ErrInvalidSection, header)
		}
		repository = header[:idx]
		rulePath = header[idx+1:]
	}

	if !strings.HasPrefix(rulePath, "/") {
		return nil, fmt.Errorf("%w: rule path must start with '/' in [%s]", ErrInvalidSection, header)
	}

	return &ACL{
		Sequence:   sequence,
		Repository: repository,
		Path:       parseRulePath(model, rulePath),
		entries:    make(map[string]Access),
		model:      model,
	}, nil
}

// parseRulePath splits a rule path into classified segments. Runs of "/"
// collapse to one separator, a trailing "/" yields an empty literal trailing
// segment, and consecutive "**" segments collapse to a single one so that a
// variable segment never directly follows another.
func parseRulePath(model *Model, rulePath string) []Segment {
	trimmed := strings.TrimLeft(rulePath, "/")
	if trimmed == "" {
		// the rule terminates at the repository root
		return nil
	}

	parts := strings.Split(trimmed, "/")
	segments := make([]Segment, 0, len(parts))
	for i, part := range parts {
		if part == "" && i != len(parts)-1 {
			continue
		}
		segment := classifySegment(part, model.intern)
		if segment.Kind == SegmentAnyRecursive && len(segments) > 0 &&
			segments[len(segments)-1].Kind == SegmentAnyRecursive {
			continue
		}
		segments = append(segments, segment)
	}
	return segments
}

func splitMembers(value string) []string {
	fields := strings.Split(value, ",")
	members := make([]string, 0, len(fields))
	for _, field := range fields {
		if member := strings.TrimSpace(field); member != "" {
			members = append(members, member)
		}
	}
	return members
}
