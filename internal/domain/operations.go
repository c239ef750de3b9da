package domain

import (
	"encoding/json"
	"fmt"
	"iter"
)

// Operations is the ordered result of one retrieval call.
type Operations struct {
	items []*Operation
}

// NewOperations wraps ops in server order. The slice is copied.
func NewOperations(ops []*Operation) *Operations {
	return &Operations{items: append([]*Operation(nil), ops...)}
}

// Len returns the number of operations.
func (o *Operations) Len() int {
	if o == nil {
		return 0
	}
	return len(o.items)
}

// At returns the i-th operation.
func (o *Operations) At(i int) *Operation {
	return o.items[i]
}

// All iterates over the operations in server order. Each call starts over.
func (o *Operations) All() iter.Seq2[int, *Operation] {
	return func(yield func(int, *Operation) bool) {
		if o == nil {
			return
		}
		for i, op := range o.items {
			if !yield(i, op) {
				return
			}
		}
	}
}

// Slice returns a copy of the operations.
func (o *Operations) Slice() []*Operation {
	if o == nil {
		return nil
	}
	return append([]*Operation(nil), o.items...)
}

// MarshalJSON emits the original entries as a JSON array.
func (o *Operations) MarshalJSON() ([]byte, error) {
	raws := make([]json.RawMessage, 0, o.Len())
	if o != nil {
		for _, op := range o.items {
			raws = append(raws, op.raw)
		}
	}
	return json.Marshal(raws)
}

// JSON returns the original entries as JSON text.
func (o *Operations) JSON() (string, error) {
	b, err := o.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("Operations.JSON: %w", err)
	}
	return string(b), nil
}

// DecodeOperations builds operations from a JSON array of entries, such as
// the output of Operations.JSON or a fixture file.
func DecodeOperations(data []byte) (*Operations, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("DecodeOperations: %w", err)
	}
	ops := make([]*Operation, 0, len(raws))
	for i, raw := range raws {
		op, err := NewOperation(raw)
		if err != nil {
			return nil, fmt.Errorf("DecodeOperations: entry %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return &Operations{items: ops}, nil
}
