// Package patch provides a fluent builder for JSON Patch (RFC 6902) documents.
//
// The Document is immutable, each method returns a modified clone:
//
//	doc := patch.NewDocument().
//		Test("/name", "old").
//		Replace("/name", "new").
//		Remove("/description")
//	request.NewHTTPRequest(sender).WithPatch("/v2/branch/{branchId}").WithPatchBody(doc)
package patch

import (
	jsoniter "github.com/json-iterator/go"
)

// ContentType of a JSON Patch request body.
const ContentType = "application/json-patch+json"

// Operation types defined by RFC 6902.
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
	OpMove    = "move"
	OpCopy    = "copy"
	OpTest    = "test"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Operation is one JSON Patch operation record.
type Operation struct {
	// Op is the operation type, one of the Op* constants.
	Op string `json:"op"`
	// From is the source location of the "move" and "copy" operations.
	From string `json:"from,omitempty"`
	// Path is the target location, a JSON Pointer (RFC 6901).
	Path string `json:"path"`
	// Value carried by the "add", "replace" and "test" operations.
	Value any `json:"value,omitempty"`
}

// MarshalJSON keeps the "value" member for operations that require it, even if it is null.
func (o Operation) MarshalJSON() ([]byte, error) {
	if o.Value == nil && !opTakesValue(o.Op) {
		return json.Marshal(struct {
			Op   string `json:"op"`
			From string `json:"from,omitempty"`
			Path string `json:"path"`
		}{o.Op, o.From, o.Path})
	}
	return json.Marshal(struct {
		Op    string `json:"op"`
		From  string `json:"from,omitempty"`
		Path  string `json:"path"`
		Value any    `json:"value"`
	}{o.Op, o.From, o.Path, o.Value})
}

// Document is an ordered JSON Patch operations list.
// It marshals to the JSON Patch array and can be sent by request.HTTPRequest.WithPatchBody.
type Document struct {
	ops []Operation
}

// NewDocument creates an empty JSON Patch document.
func NewDocument() *Document {
	return &Document{}
}

// Add returns a clone of the document with an "add" operation appended.
func (d *Document) Add(path string, value any) *Document {
	return d.andOp(Operation{Op: OpAdd, Path: path, Value: value})
}

// Remove returns a clone of the document with a "remove" operation appended.
func (d *Document) Remove(path string) *Document {
	return d.andOp(Operation{Op: OpRemove, Path: path})
}

// Replace returns a clone of the document with a "replace" operation appended.
func (d *Document) Replace(path string, value any) *Document {
	return d.andOp(Operation{Op: OpReplace, Path: path, Value: value})
}

// Move returns a clone of the document with a "move" operation appended.
func (d *Document) Move(from, path string) *Document {
	return d.andOp(Operation{Op: OpMove, From: from, Path: path})
}

// Copy returns a clone of the document with a "copy" operation appended.
func (d *Document) Copy(from, path string) *Document {
	return d.andOp(Operation{Op: OpCopy, From: from, Path: path})
}

// Test returns a clone of the document with a "test" operation appended.
func (d *Document) Test(path string, value any) *Document {
	return d.andOp(Operation{Op: OpTest, Path: path, Value: value})
}

// Len method returns the number of operations.
func (d *Document) Len() int {
	return len(d.ops)
}

// Ops method returns the ordered operation records.
func (d *Document) Ops() []Operation {
	return d.ops
}

// Operations method returns the ordered operation records, see request.PatchDocument.
func (d *Document) Operations() []any {
	out := make([]any, len(d.ops))
	for i, op := range d.ops {
		out[i] = op
	}
	return out
}

// ContentType method returns the JSON Patch content type.
func (d *Document) ContentType() string {
	return ContentType
}

// MarshalJSON encodes the document as the JSON Patch array.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d.ops == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d.ops)
}

// String method returns the document encoded as JSON, for logs and errors.
func (d *Document) String() string {
	out, err := d.MarshalJSON()
	if err != nil {
		return err.Error()
	}
	return string(out)
}

func (d *Document) andOp(op Operation) *Document {
	clone := *d
	clone.ops = append(d.ops[:len(d.ops):len(d.ops)], op)
	return &clone
}

func opTakesValue(op string) bool {
	switch op {
	case OpAdd, OpReplace, OpTest:
		return true
	default:
		return false
	}
}
