package valueobjects

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "simple identifier",
			input:   "meshA",
			wantErr: false,
		},
		{
			name:    "identifier with separators",
			input:   "excavation-stage_3",
			wantErr: false,
		},
		{
			name:    "surrounding whitespace is trimmed",
			input:   "  meshA  ",
			wantErr: false,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
			errMsg:  "node id cannot be empty",
		},
		{
			name:    "whitespace only",
			input:   "   ",
			wantErr: true,
			errMsg:  "node id cannot be empty",
		},
		{
			name:    "embedded space",
			input:   "mesh A",
			wantErr: true,
			errMsg:  "must not contain whitespace",
		},
		{
			name:    "reserved colon",
			input:   "mesh:A",
			wantErr: true,
			errMsg:  "must not contain whitespace or ':'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewNodeID(tt.input)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				assert.True(t, id.IsZero())
			} else {
				assert.NoError(t, err)
				assert.False(t, id.IsZero())
				assert.NotEmpty(t, id.String())
			}
		})
	}
}

func TestNodeID_Equals(t *testing.T) {
	a := mustNodeID(t, "meshA")
	aCopy := mustNodeID(t, "meshA")
	b := mustNodeID(t, "meshB")

	assert.True(t, a.Equals(aCopy))
	assert.True(t, a.Equals(a))
	assert.False(t, a.Equals(b))
	assert.True(t, NodeID{}.Equals(NodeID{}))
	assert.False(t, a.Equals(NodeID{}))
}

func TestVersionID_Format(t *testing.T) {
	node := mustNodeID(t, "meshA")

	id, err := NewVersionID(node, 3)
	require.NoError(t, err)

	assert.Equal(t, "meshA:v3", id.String())
	assert.Equal(t, node, id.NodeID())
	assert.Equal(t, 3, id.Sequence())
}

func TestNewVersionID_Validation(t *testing.T) {
	node := mustNodeID(t, "meshA")

	_, err := NewVersionID(NodeID{}, 1)
	assert.Error(t, err)

	_, err = NewVersionID(node, 0)
	assert.Error(t, err)

	_, err = NewVersionID(node, -5)
	assert.Error(t, err)
}

func TestParseVersionID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  bool
		wantNode string
		wantSeq  int
	}{
		{
			name:     "well formed id",
			input:    "meshA:v12",
			wantNode: "meshA",
			wantSeq:  12,
		},
		{
			name:     "node id containing dashes",
			input:    "support-wall:v1",
			wantNode: "support-wall",
			wantSeq:  1,
		},
		{
			name:    "missing separator",
			input:   "meshA-v1",
			wantErr: true,
		},
		{
			name:    "missing sequence",
			input:   "meshA:v",
			wantErr: true,
		},
		{
			name:    "non numeric sequence",
			input:   "meshA:vx",
			wantErr: true,
		},
		{
			name:    "zero sequence",
			input:   "meshA:v0",
			wantErr: true,
		},
		{
			name:    "empty node",
			input:   ":v1",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseVersionID(tt.input)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNode, id.NodeID().String())
			assert.Equal(t, tt.wantSeq, id.Sequence())
			assert.Equal(t, tt.input, id.String())
		})
	}
}

func TestVersionID_Follows(t *testing.T) {
	node := mustNodeID(t, "meshA")
	other := mustNodeID(t, "meshB")

	v1 := mustVersionID(t, node, 1)
	v2 := mustVersionID(t, node, 2)
	v2other := mustVersionID(t, other, 2)

	assert.True(t, v2.Follows(v1))
	assert.False(t, v1.Follows(v2))
	assert.False(t, v1.Follows(v1))
	assert.False(t, v2other.Follows(v1), "versions of different nodes are causally unrelated")
}

func TestVersionID_JSONRoundTrip(t *testing.T) {
	id := mustVersionID(t, mustNodeID(t, "meshA"), 7)

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"meshA:v7"`, string(data))

	var decoded VersionID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, id.Equals(decoded))
}

func TestBranchID(t *testing.T) {
	main, err := NewBranchID("main")
	require.NoError(t, err)
	assert.True(t, main.IsMain())
	assert.True(t, main.Equals(MainBranchID))

	feature, err := NewBranchID("feature-deeper-wall")
	require.NoError(t, err)
	assert.False(t, feature.IsMain())

	_, err = NewBranchID("")
	assert.Error(t, err)

	_, err = NewBranchID("   ")
	assert.Error(t, err)
}

func TestNewTagID(t *testing.T) {
	id := NewTagID()

	assert.False(t, id.IsZero())
	_, err := uuid.Parse(id.String())
	assert.NoError(t, err)
}

func TestNewTagIDFromString(t *testing.T) {
	valid := uuid.New().String()

	id, err := NewTagIDFromString(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, id.String())

	_, err = NewTagIDFromString("not-a-uuid")
	assert.Error(t, err)
}

// Test helpers

func mustNodeID(t *testing.T, s string) NodeID {
	t.Helper()
	id, err := NewNodeID(s)
	require.NoError(t, err)
	return id
}

func mustVersionID(t *testing.T, node NodeID, seq int) VersionID {
	t.Helper()
	id, err := NewVersionID(node, seq)
	require.NoError(t, err)
	return id
}

// Benchmarks

func BenchmarkParseVersionID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = ParseVersionID("meshA:v42")
	}
}

func BenchmarkVersionID_String(b *testing.B) {
	node, _ := NewNodeID("meshA")
	id, _ := NewVersionID(node, 42)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = id.String()
	}
}
