package patch_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/declarest/go-client/pkg/patch"
)

func TestDocument_Empty(t *testing.T) {
	t.Parallel()
	doc := patch.NewDocument()
	assert.Equal(t, 0, doc.Len())
	assert.Equal(t, "[]", doc.String())
}

func TestDocument_Immutability(t *testing.T) {
	t.Parallel()
	base := patch.NewDocument().Test("/name", "old")
	doc1 := base.Replace("/name", "new")
	doc2 := base.Remove("/name")

	// Base document is not modified by the derived documents
	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, doc1.Len())
	assert.Equal(t, 2, doc2.Len())
	assert.Equal(t, patch.OpReplace, doc1.Ops()[1].Op)
	assert.Equal(t, patch.OpRemove, doc2.Ops()[1].Op)
}

func TestDocument_MarshalJSON(t *testing.T) {
	t.Parallel()
	doc := patch.NewDocument().
		Test("/a/b/c", "foo").
		Remove("/a/b/c").
		Add("/a/b/c", []any{"foo", "bar"}).
		Replace("/a/b/c", 42).
		Move("/a/b/c", "/a/b/d").
		Copy("/a/b/d", "/a/b/e")

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"op": "test", "path": "/a/b/c", "value": "foo"},
		{"op": "remove", "path": "/a/b/c"},
		{"op": "add", "path": "/a/b/c", "value": ["foo", "bar"]},
		{"op": "replace", "path": "/a/b/c", "value": 42},
		{"op": "move", "from": "/a/b/c", "path": "/a/b/d"},
		{"op": "copy", "from": "/a/b/d", "path": "/a/b/e"}
	]`, string(out))
}

func TestDocument_MarshalJSON_NullValue(t *testing.T) {
	t.Parallel()
	// The "value" member must be kept even if it is null
	doc := patch.NewDocument().Replace("/a", nil).Test("/b", false)
	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"op": "replace", "path": "/a", "value": null},
		{"op": "test", "path": "/b", "value": false}
	]`, string(out))
}

func TestDocument_Operations(t *testing.T) {
	t.Parallel()
	doc := patch.NewDocument().Add("/tags/-", "new-tag")
	ops := doc.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, patch.Operation{Op: patch.OpAdd, Path: "/tags/-", Value: "new-tag"}, ops[0])
	assert.Equal(t, "application/json-patch+json", doc.ContentType())
}
