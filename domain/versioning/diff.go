package versioning

import (
	"math"
	"sort"
	"strconv"

	"deepcae-backend/domain/core/valueobjects"
)

// ChangeType classifies one modified path
type ChangeType string

const (
	// ChangeTypeValue is a same-kind scalar change
	ChangeTypeValue ChangeType = "value"
	// ChangeTypeType is a change of value kind, number to string for
	// example
	ChangeTypeType ChangeType = "type"
	// ChangeTypeStructure is a change of container shape, array to
	// object or a changed array length
	ChangeTypeStructure ChangeType = "structure"
)

// FieldChange is one modified leaf path
type FieldChange struct {
	Path       string      `json:"path"`
	OldValue   interface{} `json:"old_value"`
	NewValue   interface{} `json:"new_value"`
	ChangeType ChangeType  `json:"change_type"`
}

// DiffStatistics summarizes a comparison
type DiffStatistics struct {
	TotalChanges        int     `json:"total_changes"`
	SignificantChanges  int     `json:"significant_changes"`
	TotalFieldsCompared int     `json:"total_fields_compared"`
	CompatibilityScore  float64 `json:"compatibility_score"`
}

// Diff is the structural comparison of two snapshots. Paths use dot
// notation with numeric array segments ("stages.2.depth"); top-level
// fields are bare keys.
type Diff struct {
	Added      []string       `json:"added"`
	Removed    []string       `json:"removed"`
	Modified   []FieldChange  `json:"modified"`
	Statistics DiffStatistics `json:"statistics"`
}

// IsEmpty reports whether the two snapshots were identical.
func (d *Diff) IsEmpty() bool {
	return d.Statistics.TotalChanges == 0
}

// ChangedPaths returns every added, removed, and modified path.
func (d *Diff) ChangedPaths() []string {
	out := make([]string, 0, d.Statistics.TotalChanges)
	out = append(out, d.Added...)
	out = append(out, d.Removed...)
	for _, m := range d.Modified {
		out = append(out, m.Path)
	}
	return out
}

// DefaultSignificanceEpsilon is the relative magnitude below which a
// numeric change does not count against compatibility.
const DefaultSignificanceEpsilon = 0.01

// DiffEngine compares two snapshots key by key for mappings, index by
// index for sequences, and by value and kind for scalars. Comparison
// is deterministic and free of side effects.
type DiffEngine struct {
	epsilon float64
}

// NewDiffEngine creates a diff engine. A non-positive epsilon selects
// the default significance threshold.
func NewDiffEngine(epsilon float64) *DiffEngine {
	if epsilon <= 0 {
		epsilon = DefaultSignificanceEpsilon
	}
	return &DiffEngine{epsilon: epsilon}
}

// Compare diffs two documents. Documents are cycle-free by
// construction, so comparison cannot fail.
func (e *DiffEngine) Compare(a, b valueobjects.Document) *Diff {
	w := &diffWalker{
		diff: &Diff{
			Added:    []string{},
			Removed:  []string{},
			Modified: []FieldChange{},
		},
	}
	w.compareMaps("", a.Raw(), b.Raw())

	significant := len(w.diff.Added) + len(w.diff.Removed)
	for _, m := range w.diff.Modified {
		if e.isSignificant(m) {
			significant++
		}
	}

	total := len(w.diff.Added) + len(w.diff.Removed) + len(w.diff.Modified)
	compared := w.fields
	if compared < 1 {
		compared = 1
	}
	score := 1 - float64(significant)/float64(compared)
	score = math.Min(1, math.Max(0, score))

	w.diff.Statistics = DiffStatistics{
		TotalChanges:        total,
		SignificantChanges:  significant,
		TotalFieldsCompared: w.fields,
		CompatibilityScore:  score,
	}
	return w.diff
}

// CompareData diffs two raw payloads, validating both first. Cyclic or
// non-serializable input is rejected with a validation error.
func (e *DiffEngine) CompareData(a, b map[string]interface{}) (*Diff, error) {
	docA, err := valueobjects.NewDocument(a)
	if err != nil {
		return nil, err
	}
	docB, err := valueobjects.NewDocument(b)
	if err != nil {
		return nil, err
	}
	return e.Compare(docA, docB), nil
}

// isSignificant applies the significance threshold: any non-numeric
// change counts, a numeric change counts when it moves more than
// epsilon relative to the prior magnitude.
func (e *DiffEngine) isSignificant(c FieldChange) bool {
	if c.ChangeType != ChangeTypeValue {
		return true
	}
	oldNum, oldOK := c.OldValue.(float64)
	newNum, newOK := c.NewValue.(float64)
	if !oldOK || !newOK {
		return true
	}
	prior := math.Abs(oldNum)
	if prior == 0 {
		return true
	}
	return math.Abs(newNum-oldNum) > e.epsilon*prior
}

type diffWalker struct {
	diff   *Diff
	fields int
}

func (w *diffWalker) compareMaps(prefix string, a, b map[string]interface{}) {
	for _, key := range unionKeys(a, b) {
		path := joinPath(prefix, key)
		av, inA := a[key]
		bv, inB := b[key]
		switch {
		case !inA:
			w.fields++
			w.diff.Added = append(w.diff.Added, path)
		case !inB:
			w.fields++
			w.diff.Removed = append(w.diff.Removed, path)
		default:
			w.compareValues(path, av, bv)
		}
	}
}

func (w *diffWalker) compareValues(path string, a, b interface{}) {
	am, aIsMap := a.(map[string]interface{})
	bm, bIsMap := b.(map[string]interface{})
	as, aIsSlice := a.([]interface{})
	bs, bIsSlice := b.([]interface{})

	switch {
	case aIsMap && bIsMap:
		w.compareMaps(path, am, bm)
	case aIsSlice && bIsSlice:
		if len(as) != len(bs) {
			w.record(path, a, b, ChangeTypeStructure)
			return
		}
		for i := range as {
			w.compareValues(joinPath(path, strconv.Itoa(i)), as[i], bs[i])
		}
	case (aIsMap || aIsSlice) && (bIsMap || bIsSlice):
		// array on one side, object on the other
		w.record(path, a, b, ChangeTypeStructure)
	case aIsMap || aIsSlice || bIsMap || bIsSlice:
		// container on one side, scalar on the other
		w.record(path, a, b, ChangeTypeType)
	default:
		w.fields++
		if kindOf(a) != kindOf(b) {
			w.diff.Modified = append(w.diff.Modified, FieldChange{Path: path, OldValue: a, NewValue: b, ChangeType: ChangeTypeType})
			return
		}
		if a != b {
			w.diff.Modified = append(w.diff.Modified, FieldChange{Path: path, OldValue: a, NewValue: b, ChangeType: ChangeTypeValue})
		}
	}
}

func (w *diffWalker) record(path string, oldValue, newValue interface{}, changeType ChangeType) {
	w.fields++
	w.diff.Modified = append(w.diff.Modified, FieldChange{
		Path:       path,
		OldValue:   oldValue,
		NewValue:   newValue,
		ChangeType: changeType,
	})
}

func unionKeys(a, b map[string]interface{}) []string {
	keys := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
		seen[k] = struct{}{}
	}
	for k := range b {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}

// kindOf reports the JSON kind of a normalized scalar value.
func kindOf(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	default:
		return "unknown"
	}
}
