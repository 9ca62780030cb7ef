package protocol

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeBinary marshals a snapshot as msgpack using the same field names as
// the JSON form.
func EncodeBinary(s *Snapshot) ([]byte, error) {
	s.stamp(s.Type())
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBinary is the inverse of EncodeBinary.
func DecodeBinary(data []byte) (*Snapshot, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	var s Snapshot
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if s.Kind != MsgSnapshot {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, s.Kind)
	}
	return &s, nil
}
