package codec

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

type project struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	UserID   string `json:"userId"`
	Progress int64  `json:"progress"`
	Flags    uint32 `json:"flags"`
}

func TestEncodeDecode(t *testing.T) {
	in := project{ID: "prj_1", Name: "Core", UserID: "u_1", Progress: 1 << 53, Flags: 5}

	doc, err := Encode(in)
	require.NoError(t, err)
	assert.Equal(t, "prj_1", doc.ID())
	assert.Equal(t, json.Number("9007199254740992"), doc["progress"])

	out, err := Decode[project](doc)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestUnmarshalRejectsNonObjects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"array", `[1,2]`},
		{"null", `null`},
		{"garbage", `{"id":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrInvalidDocument))
		})
	}
}

func TestDecodeAllPreservesOrder(t *testing.T) {
	docs := []types.Document{{"id": "b"}, {"id": "a"}}
	out, err := DecodeAll[project](docs)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ID)
	assert.Equal(t, "a", out[1].ID)
}

func TestMerge(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	current := types.Document{"id": "prj_1", "name": "Core", "progress": json.Number("10")}

	merged := Merge(current, types.Patch{"name": "Renamed", "id": "hijack"}, now)

	assert.Equal(t, "prj_1", merged["id"])
	assert.Equal(t, "Renamed", merged["name"])
	assert.Equal(t, json.Number("10"), merged["progress"])
	assert.Equal(t, "2024-03-15T00:00:00Z", merged[types.FieldUpdatedAt])
	assert.Equal(t, "Core", current["name"], "merge must not mutate the stored document")
}

func TestCloneIsIndependent(t *testing.T) {
	orig := types.Document{"id": "a"}
	cp := Clone(orig)
	cp["id"] = "b"
	assert.Equal(t, "a", orig["id"])
	assert.Nil(t, Clone(nil))
}

func TestCloneCopiesNestedValues(t *testing.T) {
	orig := types.Document{
		"id":    "a",
		"meta":  map[string]any{"k": "v", "deep": map[string]any{"n": json.Number("1")}},
		"tags":  []any{"x", map[string]any{"label": "y"}},
		"links": []map[string]any{{"href": "/a"}},
		"names": []string{"n1"},
	}
	cp := Clone(orig)
	require.Equal(t, orig, cp)

	cp["meta"].(map[string]any)["k"] = "changed"
	cp["meta"].(map[string]any)["deep"].(map[string]any)["n"] = json.Number("2")
	cp["tags"].([]any)[0] = "changed"
	cp["tags"].([]any)[1].(map[string]any)["label"] = "changed"
	cp["links"].([]map[string]any)[0]["href"] = "changed"
	cp["names"].([]string)[0] = "changed"

	assert.Equal(t, "v", orig["meta"].(map[string]any)["k"])
	assert.Equal(t, json.Number("1"), orig["meta"].(map[string]any)["deep"].(map[string]any)["n"])
	assert.Equal(t, "x", orig["tags"].([]any)[0])
	assert.Equal(t, "y", orig["tags"].([]any)[1].(map[string]any)["label"])
	assert.Equal(t, "/a", orig["links"].([]map[string]any)[0]["href"])
	assert.Equal(t, "n1", orig["names"].([]string)[0])
}

func TestMergeDoesNotShareNestedValues(t *testing.T) {
	current := types.Document{"id": "p1", "meta": map[string]any{"k": "v"}}
	patch := types.Patch{"tags": []any{"a"}}
	merged := Merge(current, patch, time.Now())

	merged["meta"].(map[string]any)["k"] = "changed"
	merged["tags"].([]any)[0] = "changed"
	assert.Equal(t, "v", current["meta"].(map[string]any)["k"])
	assert.Equal(t, "a", patch["tags"].([]any)[0])
}

func TestCheckSeed(t *testing.T) {
	tests := []struct {
		name    string
		docs    []types.Document
		wantErr bool
	}{
		{"empty", nil, false},
		{"unique ids", []types.Document{{"id": "1"}, {"id": "2"}}, false},
		{"numeric id", []types.Document{{"id": json.Number("7")}}, false},
		{"missing id", []types.Document{{"id": "1"}, {"name": "x"}}, true},
		{"empty id", []types.Document{{"id": ""}}, true},
		{"duplicate id", []types.Document{{"id": "1"}, {"id": "2"}, {"id": "1"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSeed(tt.docs)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidDocument)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPatchOf(t *testing.T) {
	p, err := PatchOf(struct {
		Name string `json:"name,omitempty"`
		Note string `json:"note,omitempty"`
	}{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, types.Patch{"name": "x"}, p)
}
