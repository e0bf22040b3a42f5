package valueobjects

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "deepcae-backend/pkg/errors"
)

// NodeID identifies a data node (a mesh, a material set, an analysis
// configuration) inside the model store. Node ids are caller-assigned
// and stable across versions.
type NodeID struct {
	value string
}

const maxNodeIDLength = 128

// NewNodeID creates a NodeID from a caller-supplied identifier.
func NewNodeID(id string) (NodeID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return NodeID{}, pkgerrors.NewValidationError("node id cannot be empty")
	}
	if len(id) > maxNodeIDLength {
		return NodeID{}, pkgerrors.NewValidationError(fmt.Sprintf("node id exceeds %d characters", maxNodeIDLength))
	}
	// The colon separates node from sequence in version ids.
	if strings.ContainsAny(id, ": \t\n") {
		return NodeID{}, pkgerrors.NewValidationError("node id must not contain whitespace or ':'")
	}
	return NodeID{value: id}, nil
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return id.value
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id NodeID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *NodeID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return pkgerrors.NewValidationError("node id must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// VersionID identifies one immutable version of one node. The id is
// globally unique and per-node monotonic: "<node>:v<seq>". Sequence
// numbers start at 1 and never repeat within a node.
type VersionID struct {
	node NodeID
	seq  int
}

// NewVersionID builds the version id for the given node and sequence.
func NewVersionID(node NodeID, seq int) (VersionID, error) {
	if node.IsZero() {
		return VersionID{}, pkgerrors.NewValidationError("version id requires a node id")
	}
	if seq < 1 {
		return VersionID{}, pkgerrors.NewValidationError("version sequence must be positive")
	}
	return VersionID{node: node, seq: seq}, nil
}

// ParseVersionID parses "<node>:v<seq>".
func ParseVersionID(s string) (VersionID, error) {
	idx := strings.LastIndex(s, ":v")
	if idx <= 0 || idx+2 >= len(s) {
		return VersionID{}, pkgerrors.NewValidationError(fmt.Sprintf("malformed version id %q", s))
	}
	node, err := NewNodeID(s[:idx])
	if err != nil {
		return VersionID{}, err
	}
	seq, err := strconv.Atoi(s[idx+2:])
	if err != nil || seq < 1 {
		return VersionID{}, pkgerrors.NewValidationError(fmt.Sprintf("malformed version sequence in %q", s))
	}
	return VersionID{node: node, seq: seq}, nil
}

// String returns "<node>:v<seq>".
func (id VersionID) String() string {
	if id.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s:v%d", id.node.String(), id.seq)
}

// NodeID returns the owning node.
func (id VersionID) NodeID() NodeID {
	return id.node
}

// Sequence returns the per-node sequence number.
func (id VersionID) Sequence() int {
	return id.seq
}

// Equals checks if two VersionIDs are equal
func (id VersionID) Equals(other VersionID) bool {
	return id.node.Equals(other.node) && id.seq == other.seq
}

// IsZero checks if the VersionID is the zero value
func (id VersionID) IsZero() bool {
	return id.node.IsZero()
}

// Follows reports whether id causally follows other: same node,
// strictly greater sequence.
func (id VersionID) Follows(other VersionID) bool {
	return id.node.Equals(other.node) && id.seq > other.seq
}

// MarshalJSON implements json.Marshaler
func (id VersionID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *VersionID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return pkgerrors.NewValidationError("version id must be a string")
	}
	raw := string(data[1 : len(data)-1])
	if raw == "" {
		*id = VersionID{}
		return nil
	}
	parsed, err := ParseVersionID(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// BranchID identifies a branch. Branch ids are caller-assigned; the
// bootstrap branch is "main".
type BranchID struct {
	value string
}

// MainBranchID is the id of the bootstrap branch, active at creation.
var MainBranchID = BranchID{value: "main"}

const maxBranchIDLength = 64

// NewBranchID creates a BranchID from a caller-supplied identifier.
func NewBranchID(id string) (BranchID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return BranchID{}, pkgerrors.NewValidationError("branch id cannot be empty")
	}
	if len(id) > maxBranchIDLength {
		return BranchID{}, pkgerrors.NewValidationError(fmt.Sprintf("branch id exceeds %d characters", maxBranchIDLength))
	}
	return BranchID{value: id}, nil
}

// String returns the string representation of the BranchID
func (id BranchID) String() string {
	return id.value
}

// Equals checks if two BranchIDs are equal
func (id BranchID) Equals(other BranchID) bool {
	return id.value == other.value
}

// IsZero checks if the BranchID is the zero value
func (id BranchID) IsZero() bool {
	return id.value == ""
}

// IsMain reports whether this is the bootstrap branch.
func (id BranchID) IsMain() bool {
	return id.value == "main"
}

// MarshalJSON implements json.Marshaler
func (id BranchID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *BranchID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return pkgerrors.NewValidationError("branch id must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// TagID identifies a tag. Tag ids are engine-assigned UUIDs.
type TagID struct {
	value string
}

// NewTagID creates a new random TagID
func NewTagID() TagID {
	return TagID{value: uuid.New().String()}
}

// NewTagIDFromString creates a TagID from an existing string
func NewTagIDFromString(id string) (TagID, error) {
	if _, err := uuid.Parse(id); err != nil {
		return TagID{}, pkgerrors.NewValidationError("tag id must be a valid UUID")
	}
	return TagID{value: id}, nil
}

// String returns the string representation of the TagID
func (id TagID) String() string {
	return id.value
}

// Equals checks if two TagIDs are equal
func (id TagID) Equals(other TagID) bool {
	return id.value == other.value
}

// IsZero checks if the TagID is the zero value
func (id TagID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id TagID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *TagID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return pkgerrors.NewValidationError("tag id must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
