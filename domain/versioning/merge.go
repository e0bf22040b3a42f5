package versioning

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"deepcae-backend/domain/core/valueobjects"
	pkgerrors "deepcae-backend/pkg/errors"
)

// MergeResolution states how a conflict is settled
type MergeResolution string

const (
	// ResolutionCurrent keeps the target branch value
	ResolutionCurrent MergeResolution = "current"
	// ResolutionIncoming takes the source branch value
	ResolutionIncoming MergeResolution = "incoming"
	// ResolutionMerge deep-merges both values, objects only
	ResolutionMerge MergeResolution = "merge"
	// ResolutionCustom substitutes a caller-supplied value
	ResolutionCustom MergeResolution = "custom"
)

// MergeConflict is a path whose value diverged on both branches
// relative to their common base. Resolution stays empty until a policy
// or a caller settles it.
type MergeConflict struct {
	Path          string          `json:"path"`
	CurrentValue  interface{}     `json:"current_value"`
	IncomingValue interface{}     `json:"incoming_value"`
	BaseValue     interface{}     `json:"base_value,omitempty"`
	Resolution    MergeResolution `json:"resolution,omitempty"`
	CustomValue   interface{}     `json:"custom_value,omitempty"`
}

// IsResolved reports whether the conflict carries a resolution.
func (c MergeConflict) IsResolved() bool {
	return c.Resolution != ""
}

// Merger performs three-way comparison and merge of document
// snapshots. It is pure data work; branch and store coordination live
// above it.
type Merger struct {
	diff *DiffEngine
}

// NewMerger creates a merger on top of a diff engine.
func NewMerger(diff *DiffEngine) *Merger {
	return &Merger{diff: diff}
}

// DetectConflicts compares both tips against the common base. A
// conflict arises where both sides changed the same path, or one
// side changed a path inside a region the other side replaced, and
// the resulting values differ. One-sided changes fast-forward and
// produce nothing.
func (m *Merger) DetectConflicts(base, current, incoming valueobjects.Document) []MergeConflict {
	currentChanges := changeKinds(m.diff.Compare(base, current))
	incomingChanges := changeKinds(m.diff.Compare(base, incoming))

	conflictPaths := map[string]struct{}{}
	for cur := range currentChanges {
		for inc := range incomingChanges {
			switch {
			case cur == inc:
				conflictPaths[cur] = struct{}{}
			case isPathAncestor(cur, inc):
				conflictPaths[cur] = struct{}{}
			case isPathAncestor(inc, cur):
				conflictPaths[inc] = struct{}{}
			}
		}
	}

	conflicts := []MergeConflict{}
	for _, path := range sortedPaths(conflictPaths) {
		currentValue, _ := current.ValueAt(path)
		incomingValue, _ := incoming.ValueAt(path)
		if reflect.DeepEqual(currentValue, incomingValue) {
			// both sides made the same change
			continue
		}
		baseValue, _ := base.ValueAt(path)
		conflicts = append(conflicts, MergeConflict{
			Path:          path,
			CurrentValue:  currentValue,
			IncomingValue: incomingValue,
			BaseValue:     baseValue,
		})
	}
	return conflicts
}

// AutoResolve settles every conflict whose two values share a kind,
// preferring the incoming side. It returns the updated conflicts and
// how many were settled here; conflicts across kinds stay open.
func (m *Merger) AutoResolve(conflicts []MergeConflict) ([]MergeConflict, int) {
	out := make([]MergeConflict, len(conflicts))
	copy(out, conflicts)

	resolved := 0
	for i := range out {
		if out[i].IsResolved() {
			continue
		}
		if kindOf(out[i].CurrentValue) == kindOf(out[i].IncomingValue) {
			out[i].Resolution = ResolutionIncoming
			resolved++
		}
	}
	return out, resolved
}

// UnresolvedCount returns how many conflicts still lack a resolution.
func UnresolvedCount(conflicts []MergeConflict) int {
	n := 0
	for _, c := range conflicts {
		if !c.IsResolved() {
			n++
		}
	}
	return n
}

// Merge builds the field-wise union of both tips: one-sided incoming
// changes are applied onto the current tip, conflicted paths take
// their resolved values. Every conflict must be resolved.
func (m *Merger) Merge(base, current, incoming valueobjects.Document, conflicts []MergeConflict) (valueobjects.Document, error) {
	if n := UnresolvedCount(conflicts); n > 0 {
		return valueobjects.Document{}, pkgerrors.NewConflictError(fmt.Sprintf("%d merge conflicts remain unresolved", n))
	}

	conflictPaths := make(map[string]struct{}, len(conflicts))
	for _, c := range conflicts {
		conflictPaths[c.Path] = struct{}{}
	}

	merged := current
	incomingChanges := changeKinds(m.diff.Compare(base, incoming))
	for _, path := range sortedKindPaths(incomingChanges) {
		if coveredByConflict(path, conflictPaths) {
			continue
		}
		var err error
		if incomingChanges[path] == changeRemoved {
			merged, err = merged.WithoutValueAt(path)
		} else {
			value, ok := incoming.ValueAt(path)
			if !ok {
				continue
			}
			merged, err = merged.WithValueAt(path, value)
		}
		if err != nil {
			return valueobjects.Document{}, pkgerrors.Wrap(err, fmt.Sprintf("applying incoming change at %q", path))
		}
	}

	for _, c := range conflicts {
		var err error
		merged, err = applyResolution(merged, incoming, c)
		if err != nil {
			return valueobjects.Document{}, err
		}
	}
	return merged, nil
}

func applyResolution(merged, incoming valueobjects.Document, c MergeConflict) (valueobjects.Document, error) {
	switch c.Resolution {
	case ResolutionCurrent:
		return merged, nil
	case ResolutionIncoming:
		value, ok := incoming.ValueAt(c.Path)
		if !ok {
			return merged.WithoutValueAt(c.Path)
		}
		return merged.WithValueAt(c.Path, value)
	case ResolutionCustom:
		return merged.WithValueAt(c.Path, c.CustomValue)
	case ResolutionMerge:
		currentMap, curOK := c.CurrentValue.(map[string]interface{})
		incomingMap, incOK := c.IncomingValue.(map[string]interface{})
		if !curOK || !incOK {
			return valueobjects.Document{}, pkgerrors.NewValidationError(fmt.Sprintf("merge resolution at %q requires object values on both sides", c.Path))
		}
		return merged.WithValueAt(c.Path, mergeObjects(currentMap, incomingMap))
	default:
		return valueobjects.Document{}, pkgerrors.NewConflictError(fmt.Sprintf("conflict at %q is unresolved", c.Path))
	}
}

// mergeObjects unions two objects recursively, incoming side winning
// on shared scalar keys.
func mergeObjects(current, incoming map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(current)+len(incoming))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range incoming {
		if curChild, ok := out[k].(map[string]interface{}); ok {
			if incChild, ok := v.(map[string]interface{}); ok {
				out[k] = mergeObjects(curChild, incChild)
				continue
			}
		}
		out[k] = v
	}
	return out
}

type changeKind int

const (
	changeAdded changeKind = iota
	changeRemoved
	changeModified
)

func changeKinds(d *Diff) map[string]changeKind {
	out := make(map[string]changeKind, d.Statistics.TotalChanges)
	for _, p := range d.Added {
		out[p] = changeAdded
	}
	for _, p := range d.Removed {
		out[p] = changeRemoved
	}
	for _, m := range d.Modified {
		out[m.Path] = changeModified
	}
	return out
}

func coveredByConflict(path string, conflictPaths map[string]struct{}) bool {
	if _, ok := conflictPaths[path]; ok {
		return true
	}
	for p := range conflictPaths {
		if isPathAncestor(p, path) {
			return true
		}
	}
	return false
}

func isPathAncestor(ancestor, descendant string) bool {
	return strings.HasPrefix(descendant, ancestor+".")
}

func sortedPaths(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func sortedKindPaths(set map[string]changeKind) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
