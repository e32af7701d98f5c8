// Package jsonstream incrementally decodes JSON values from a stream.
//
// Unlike a plain unmarshal, the input is read chunk by chunk,
// so a large response body doesn't have to be buffered in memory at once.
// Array elements can be consumed one by one, see Decoder.EachElement and Each.
//
// A result type may implement the Unmarshaler interface
// to take over decoding of its own response body.
package jsonstream

import (
	"errors"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// DefaultBufferSize is the chunk size used by NewDecoder.
const DefaultBufferSize = 4096

// Unmarshaler consumes a JSON stream on its own.
type Unmarshaler interface {
	UnmarshalJSONStream(d *Decoder) error
}

// Decoder reads JSON values from an input stream.
type Decoder struct {
	iter *jsoniter.Iterator
}

// NewDecoder creates a Decoder reading from r in DefaultBufferSize chunks.
func NewDecoder(r io.Reader) *Decoder {
	return NewDecoderSize(r, DefaultBufferSize)
}

// NewDecoderSize creates a Decoder reading from r in bufferSize chunks.
func NewDecoderSize(r io.Reader, bufferSize int) *Decoder {
	return &Decoder{iter: jsoniter.Parse(jsoniter.ConfigCompatibleWithStandardLibrary, r, bufferSize)}
}

// Decode reads the next JSON value from the stream and stores it in v.
func (d *Decoder) Decode(v any) error {
	d.iter.ReadVal(v)
	return d.err()
}

// More reports whether there is another value in the stream.
func (d *Decoder) More() bool {
	if d.iter.Error != nil {
		return false
	}
	return d.iter.WhatIsNext() != jsoniter.InvalidValue
}

// EachElement reads a JSON array, invoking fn for each element.
// The callback must consume the element, usually by the Decode method.
// Reading stops at the first error.
func (d *Decoder) EachElement(fn func(d *Decoder) error) error {
	var fnErr error
	d.iter.ReadArrayCB(func(*jsoniter.Iterator) bool {
		if err := fn(d); err != nil {
			fnErr = err
			return false
		}
		return true
	})
	if fnErr != nil {
		return fnErr
	}
	return d.err()
}

// Each reads a JSON array of T elements, invoking fn for each decoded element.
// Reading stops at the first error.
func Each[T any](d *Decoder, fn func(item T) error) error {
	return d.EachElement(func(d *Decoder) error {
		var item T
		if err := d.Decode(&item); err != nil {
			return err
		}
		return fn(item)
	})
}

func (d *Decoder) err() error {
	if err := d.iter.Error; err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
