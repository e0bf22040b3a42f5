// Package fixtures provides builders for versioning test data.
package fixtures

import (
	"fmt"
	"time"

	"deepcae-backend/domain/core/entities"
	"deepcae-backend/domain/core/valueobjects"
)

// fixtureEpoch anchors deterministic timestamps; successive versions
// advance from it in whole minutes.
var fixtureEpoch = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

// ExcavationData returns a working-data payload shaped like a deep
// excavation model: wall definition, strut levels and a target depth.
func ExcavationData(depth float64) map[string]interface{} {
	return map[string]interface{}{
		"depth": depth,
		"wall": map[string]interface{}{
			"type":      "diaphragm",
			"thickness": 0.8,
			"toe_level": -(depth + 4),
		},
		"struts": []interface{}{
			map[string]interface{}{"level": -1.5, "preload": 300.0},
		},
	}
}

// VersionBuilder assembles immutable versions with deterministic
// defaults.
type VersionBuilder struct {
	node        string
	sequence    int
	data        map[string]interface{}
	description string
	createdBy   string
	timestamp   time.Time
}

func NewVersionBuilder() *VersionBuilder {
	return &VersionBuilder{
		node:        "meshA",
		sequence:    1,
		data:        ExcavationData(10),
		description: "fixture version",
		createdBy:   "test-engineer",
		timestamp:   fixtureEpoch,
	}
}

func (b *VersionBuilder) WithNode(node string) *VersionBuilder {
	b.node = node
	return b
}

func (b *VersionBuilder) WithSequence(seq int) *VersionBuilder {
	b.sequence = seq
	return b
}

func (b *VersionBuilder) WithData(data map[string]interface{}) *VersionBuilder {
	b.data = data
	return b
}

func (b *VersionBuilder) WithValue(key string, value interface{}) *VersionBuilder {
	copied := make(map[string]interface{}, len(b.data)+1)
	for k, v := range b.data {
		copied[k] = v
	}
	copied[key] = value
	b.data = copied
	return b
}

func (b *VersionBuilder) WithDescription(description string) *VersionBuilder {
	b.description = description
	return b
}

func (b *VersionBuilder) WithCreatedBy(createdBy string) *VersionBuilder {
	b.createdBy = createdBy
	return b
}

func (b *VersionBuilder) WithTimestamp(ts time.Time) *VersionBuilder {
	b.timestamp = ts
	return b
}

func (b *VersionBuilder) Build() (*entities.Version, error) {
	nodeID, err := valueobjects.NewNodeID(b.node)
	if err != nil {
		return nil, err
	}
	versionID, err := valueobjects.NewVersionID(nodeID, b.sequence)
	if err != nil {
		return nil, err
	}
	doc, err := valueobjects.NewDocument(b.data)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructVersion(versionID, doc, b.description, b.createdBy, b.timestamp)
}

func (b *VersionBuilder) MustBuild() *entities.Version {
	v, err := b.Build()
	if err != nil {
		panic(err)
	}
	return v
}

// NodeRecordBuilder assembles a node with a version chain, one version
// per payload, a minute apart.
type NodeRecordBuilder struct {
	node     string
	payloads []map[string]interface{}
}

func NewNodeRecordBuilder() *NodeRecordBuilder {
	return &NodeRecordBuilder{node: "meshA"}
}

func (b *NodeRecordBuilder) WithNode(node string) *NodeRecordBuilder {
	b.node = node
	return b
}

func (b *NodeRecordBuilder) WithVersions(payloads ...map[string]interface{}) *NodeRecordBuilder {
	b.payloads = append(b.payloads, payloads...)
	return b
}

// WithDepthProgression appends one version per depth, modelling an
// excavation advancing stage by stage.
func (b *NodeRecordBuilder) WithDepthProgression(depths ...float64) *NodeRecordBuilder {
	for _, depth := range depths {
		b.payloads = append(b.payloads, ExcavationData(depth))
	}
	return b
}

func (b *NodeRecordBuilder) Build() (*entities.NodeRecord, error) {
	nodeID, err := valueobjects.NewNodeID(b.node)
	if err != nil {
		return nil, err
	}
	if len(b.payloads) == 0 {
		return entities.NewNodeRecord(nodeID)
	}

	versions := make([]*entities.Version, 0, len(b.payloads))
	for i, payload := range b.payloads {
		v, err := NewVersionBuilder().
			WithNode(b.node).
			WithSequence(i + 1).
			WithData(payload).
			WithDescription(fmt.Sprintf("fixture version %d", i+1)).
			WithTimestamp(fixtureEpoch.Add(time.Duration(i) * time.Minute)).
			Build()
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return entities.ReconstructNodeRecord(nodeID, versions)
}

func (b *NodeRecordBuilder) MustBuild() *entities.NodeRecord {
	record, err := b.Build()
	if err != nil {
		panic(err)
	}
	return record
}

// BranchBuilder assembles branches off a base version.
type BranchBuilder struct {
	id          string
	description string
	baseID      valueobjects.VersionID
	createdBy   string
	active      bool
}

func NewBranchBuilder() *BranchBuilder {
	return &BranchBuilder{
		id:          "steel-struts",
		description: "fixture branch",
		createdBy:   "test-engineer",
	}
}

func (b *BranchBuilder) WithID(id string) *BranchBuilder {
	b.id = id
	return b
}

func (b *BranchBuilder) WithDescription(description string) *BranchBuilder {
	b.description = description
	return b
}

func (b *BranchBuilder) WithBase(base *entities.Version) *BranchBuilder {
	b.baseID = base.ID()
	return b
}

func (b *BranchBuilder) WithBaseVersionID(id valueobjects.VersionID) *BranchBuilder {
	b.baseID = id
	return b
}

func (b *BranchBuilder) WithCreatedBy(createdBy string) *BranchBuilder {
	b.createdBy = createdBy
	return b
}

func (b *BranchBuilder) Active() *BranchBuilder {
	b.active = true
	return b
}

func (b *BranchBuilder) Build() (*entities.Branch, error) {
	branchID, err := valueobjects.NewBranchID(b.id)
	if err != nil {
		return nil, err
	}
	branch, err := entities.NewBranch(branchID, b.description, b.baseID, b.createdBy)
	if err != nil {
		return nil, err
	}
	if b.active {
		branch.Activate()
	}
	return branch, nil
}

func (b *BranchBuilder) MustBuild() *entities.Branch {
	branch, err := b.Build()
	if err != nil {
		panic(err)
	}
	return branch
}

// TagBuilder assembles tags on a version.
type TagBuilder struct {
	versionID   valueobjects.VersionID
	name        string
	tagType     valueobjects.TagType
	description string
	createdBy   string
}

func NewTagBuilder() *TagBuilder {
	return &TagBuilder{
		name:      "design-freeze",
		tagType:   valueobjects.TagTypeMilestone,
		createdBy: "test-engineer",
	}
}

func (b *TagBuilder) WithVersion(v *entities.Version) *TagBuilder {
	b.versionID = v.ID()
	return b
}

func (b *TagBuilder) WithVersionID(id valueobjects.VersionID) *TagBuilder {
	b.versionID = id
	return b
}

func (b *TagBuilder) WithName(name string) *TagBuilder {
	b.name = name
	return b
}

func (b *TagBuilder) WithType(tagType valueobjects.TagType) *TagBuilder {
	b.tagType = tagType
	return b
}

func (b *TagBuilder) WithDescription(description string) *TagBuilder {
	b.description = description
	return b
}

func (b *TagBuilder) WithCreatedBy(createdBy string) *TagBuilder {
	b.createdBy = createdBy
	return b
}

func (b *TagBuilder) Build() (*entities.Tag, error) {
	if b.versionID.IsZero() {
		seed := NewVersionBuilder().MustBuild()
		b.versionID = seed.ID()
	}
	return entities.NewTag(b.versionID, b.name, b.tagType, b.description, b.createdBy)
}

func (b *TagBuilder) MustBuild() *entities.Tag {
	tag, err := b.Build()
	if err != nil {
		panic(err)
	}
	return tag
}
