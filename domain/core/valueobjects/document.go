package valueobjects

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	pkgerrors "deepcae-backend/pkg/errors"
)

// Document is the immutable JSON payload of one node version: mesh
// parameters, soil layers, support structures, analysis settings.
// Construction normalizes the data through its canonical JSON form,
// so all numbers are float64 and map keys are sorted in the encoded
// bytes. Accessors hand out deep copies; a Document never aliases
// caller-visible state.
type Document struct {
	data      map[string]interface{}
	canonical []byte
	size      int
	checksum  string
}

// NewDocument builds a Document from raw node data. Data that cannot
// be serialized (cyclic references, unsupported value kinds) is
// rejected with a validation error.
func NewDocument(data map[string]interface{}) (Document, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Document{}, pkgerrors.NewValidationError(fmt.Sprintf("node data is not serializable: %v", err))
	}
	var normalized map[string]interface{}
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return Document{}, pkgerrors.NewValidationError(fmt.Sprintf("node data is not a JSON object: %v", err))
	}
	sum := sha256.Sum256(raw)
	return Document{
		data:      normalized,
		canonical: raw,
		size:      len(raw),
		checksum:  hex.EncodeToString(sum[:]),
	}, nil
}

// DocumentFromJSON rebuilds a Document from its canonical JSON bytes,
// as stored by persistence adapters.
func DocumentFromJSON(raw []byte) (Document, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return Document{}, pkgerrors.NewValidationError(fmt.Sprintf("stored node data is corrupt: %v", err))
	}
	return NewDocument(data)
}

// EmptyDocument returns a Document holding an empty object.
func EmptyDocument() Document {
	doc, _ := NewDocument(map[string]interface{}{})
	return doc
}

// Raw returns a deep copy of the document data.
func (d Document) Raw() map[string]interface{} {
	if d.data == nil {
		return map[string]interface{}{}
	}
	return deepCopyValue(d.data).(map[string]interface{})
}

// CanonicalJSON returns the canonical encoded form.
func (d Document) CanonicalJSON() []byte {
	if d.canonical == nil {
		return []byte("{}")
	}
	out := make([]byte, len(d.canonical))
	copy(out, d.canonical)
	return out
}

// SizeBytes returns the size of the canonical encoding.
func (d Document) SizeBytes() int {
	return d.size
}

// Checksum returns the SHA-256 of the canonical encoding.
func (d Document) Checksum() string {
	return d.checksum
}

// Equal reports whether two documents hold identical data.
func (d Document) Equal(other Document) bool {
	return d.checksum == other.checksum
}

// IsZero checks if the Document is the zero value
func (d Document) IsZero() bool {
	return d.data == nil
}

// ValueAt resolves a dot path ("stages.2.depth") and returns a deep
// copy of the value there, or false when the path does not resolve.
func (d Document) ValueAt(path string) (interface{}, bool) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, false
	}
	var cur interface{} = d.data
	for _, seg := range segs {
		switch c := cur.(type) {
		case map[string]interface{}:
			next, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, false
			}
			cur = c[idx]
		default:
			return nil, false
		}
	}
	return deepCopyValue(cur), true
}

// WithValueAt returns a new Document with the value at the dot path
// replaced. Missing intermediate objects are created; array segments
// must resolve to an existing index.
func (d Document) WithValueAt(path string, value interface{}) (Document, error) {
	segs, err := splitPath(path)
	if err != nil {
		return Document{}, err
	}
	root := d.Raw()
	parent, last, err := walkToParent(root, segs, true)
	if err != nil {
		return Document{}, err
	}
	switch c := parent.(type) {
	case map[string]interface{}:
		c[last] = value
	case []interface{}:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(c) {
			return Document{}, pkgerrors.NewValidationError(fmt.Sprintf("path %q addresses an array index out of range", path))
		}
		c[idx] = value
	default:
		return Document{}, pkgerrors.NewValidationError(fmt.Sprintf("path %q traverses a scalar value", path))
	}
	return NewDocument(root)
}

// WithoutValueAt returns a new Document with the field at the dot
// path removed. Removing array elements is not supported; arrays
// change shape as whole values.
func (d Document) WithoutValueAt(path string) (Document, error) {
	segs, err := splitPath(path)
	if err != nil {
		return Document{}, err
	}
	root := d.Raw()
	parent, last, err := walkToParent(root, segs, false)
	if err != nil {
		return Document{}, err
	}
	switch c := parent.(type) {
	case map[string]interface{}:
		delete(c, last)
	case []interface{}:
		return Document{}, pkgerrors.NewValidationError(fmt.Sprintf("path %q addresses an array element, which cannot be removed", path))
	default:
		return Document{}, pkgerrors.NewValidationError(fmt.Sprintf("path %q traverses a scalar value", path))
	}
	return NewDocument(root)
}

// MarshalJSON implements json.Marshaler
func (d Document) MarshalJSON() ([]byte, error) {
	return d.CanonicalJSON(), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Document) UnmarshalJSON(raw []byte) error {
	doc, err := DocumentFromJSON(raw)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

func splitPath(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, pkgerrors.NewValidationError("field path cannot be empty")
	}
	segs := strings.Split(path, ".")
	for _, seg := range segs {
		if seg == "" {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("malformed field path %q", path))
		}
	}
	return segs, nil
}

// walkToParent descends to the container holding the final path
// segment. With createMissing set, absent object levels are created
// along the way.
func walkToParent(root map[string]interface{}, segs []string, createMissing bool) (interface{}, string, error) {
	var cur interface{} = root
	for _, seg := range segs[:len(segs)-1] {
		switch c := cur.(type) {
		case map[string]interface{}:
			next, ok := c[seg]
			if !ok {
				if !createMissing {
					return nil, "", pkgerrors.NewNotFoundError(fmt.Sprintf("field path segment %q", seg))
				}
				child := map[string]interface{}{}
				c[seg] = child
				next = child
			}
			cur = next
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, "", pkgerrors.NewValidationError(fmt.Sprintf("path segment %q addresses an array index out of range", seg))
			}
			cur = c[idx]
		default:
			return nil, "", pkgerrors.NewValidationError(fmt.Sprintf("path segment %q traverses a scalar value", seg))
		}
	}
	return cur, segs[len(segs)-1], nil
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, vv := range t {
			out[k] = deepCopyValue(vv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, vv := range t {
			out[i] = deepCopyValue(vv)
		}
		return out
	default:
		return v
	}
}
