// internal/resolver/expand.go
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/solatis/gridview/internal/types"
)

/*
 * Expand-state preservation across resolutions.
 *
 * Group values are rebuilt from scratch on every resolution, so UI state
 * survives by key identity (level + formatted value), never by position.
 * Capture walks the previous tree depth first, descending into children
 * whatever the parent's own state, and records every key it sees plus the
 * subset that was expanded. Apply writes collapsed flags onto a new tree.
 *
 * Policies for keys that were not expanded before:
 *   - ExpandPolicyReference: always collapsed, overriding the GroupSpec
 *     default on every resolution after the first.
 *   - ExpandPolicyGroupDefault: keys seen before stay collapsed; keys never
 *     seen take their GroupSpec default.
 *
 * With no previous state (first resolution) both policies use the GroupSpec
 * defaults already stamped by GroupBy.
 */

// ExpandPolicy selects how unseen or previously collapsed groups are flagged.
type ExpandPolicy int

const (
	ExpandPolicyReference ExpandPolicy = iota
	ExpandPolicyGroupDefault
)

// String returns the config spelling of the policy.
func (p ExpandPolicy) String() string {
	switch p {
	case ExpandPolicyGroupDefault:
		return "group-default"
	default:
		return "reference"
	}
}

// ParseExpandPolicy reads a policy name ("reference", "group-default").
func ParseExpandPolicy(s string) (ExpandPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reference":
		return ExpandPolicyReference, nil
	case "group-default", "group_default":
		return ExpandPolicyGroupDefault, nil
	default:
		return ExpandPolicyReference, fmt.Errorf("unknown expand policy %q (expected reference or group-default)", s)
	}
}

// Expansion is the carried-forward UI state of a group tree.
type Expansion struct {
	Expanded map[string]bool
	Seen     map[string]bool
}

// NewExpansion builds an Expansion from stored key lists.
// Expanded keys are implicitly seen.
func NewExpansion(expanded, seen []string) *Expansion {
	e := &Expansion{
		Expanded: make(map[string]bool, len(expanded)),
		Seen:     make(map[string]bool, len(seen)+len(expanded)),
	}
	for _, k := range seen {
		e.Seen[k] = true
	}
	for _, k := range expanded {
		e.Expanded[k] = true
		e.Seen[k] = true
	}
	return e
}

// Capture records the expanded and seen keys of groups, depth first.
func Capture(groups []types.Group) *Expansion {
	e := &Expansion{
		Expanded: make(map[string]bool),
		Seen:     make(map[string]bool),
	}
	e.capture(groups)
	return e
}

func (e *Expansion) capture(groups []types.Group) {
	for _, g := range groups {
		e.Seen[g.Key] = true
		if !g.Collapsed {
			e.Expanded[g.Key] = true
		}
		e.capture(g.Children)
	}
}

// ExpandedKeys returns the expanded keys in sorted order.
func (e *Expansion) ExpandedKeys() []string {
	return sortedKeys(e.Expanded)
}

// SeenKeys returns every captured key in sorted order.
func (e *Expansion) SeenKeys() []string {
	return sortedKeys(e.Seen)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ApplyExpansion returns a copy of groups with collapsed flags derived from
// prev under policy. A nil prev returns the groups unchanged.
func ApplyExpansion(groups []types.Group, prev *Expansion, policy ExpandPolicy) []types.Group {
	if prev == nil || groups == nil {
		return groups
	}
	out := make([]types.Group, len(groups))
	for i, g := range groups {
		switch {
		case prev.Expanded[g.Key]:
			g.Collapsed = false
		case policy == ExpandPolicyReference:
			g.Collapsed = true
		case prev.Seen[g.Key]:
			g.Collapsed = true
		}
		// ExpandPolicyGroupDefault + unseen key: keep the GroupSpec default from GroupBy
		g.Children = ApplyExpansion(g.Children, prev, policy)
		out[i] = g
	}
	return out
}

// SetCollapsed returns a copy of groups with the group identified by key set
// to collapsed. Reports whether the key was found.
func SetCollapsed(groups []types.Group, key string, collapsed bool) ([]types.Group, bool) {
	if groups == nil {
		return nil, false
	}
	out := make([]types.Group, len(groups))
	found := false
	for i, g := range groups {
		if g.Key == key {
			g.Collapsed = collapsed
			found = true
		}
		var childFound bool
		g.Children, childFound = SetCollapsed(g.Children, key, collapsed)
		found = found || childFound
		out[i] = g
	}
	return out, found
}
