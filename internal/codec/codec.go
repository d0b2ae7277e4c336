// Package codec converts records to and from their bounded durable byte form.
//
// Records are written as canonical MessagePack: structs become maps keyed by
// their `codec` tag names and map keys are sorted, so the same value always
// yields the same bytes.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	msgpack "github.com/ugorji/go/codec"
)

// DefaultMaxSize is the encoded size bound applied when none is configured.
// The largest valid expense or vote fits in it.
const DefaultMaxSize = 1024

// Ceiling caps every configured bound. Decode checks stored bytes against it
// rather than the configured bound, so lowering the bound never hides
// records written under a larger one.
const Ceiling = 1 << 20

// Uint64Size is the encoded length of counters and record keys.
const Uint64Size = 8

var (
	ErrTooLarge  = errors.New("encoded record exceeds maximum size")
	ErrCorrupted = errors.New("corrupted stored bytes")
)

// Codec encodes values of type T with a declared maximum encoded size.
// It is safe for concurrent use.
type Codec[T any] struct {
	handle  *msgpack.MsgpackHandle
	maxSize int
}

func New[T any](maxSize int) *Codec[T] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if maxSize > Ceiling {
		maxSize = Ceiling
	}

	mh := &msgpack.MsgpackHandle{}
	mh.Canonical = true
	mh.WriteExt = true

	return &Codec[T]{handle: mh, maxSize: maxSize}
}

// MaxSize returns the encoded size bound
func (c *Codec[T]) MaxSize() int {
	return c.maxSize
}

// Encode returns the bytes of v, or ErrTooLarge when they exceed the bound.
func (c *Codec[T]) Encode(v T) ([]byte, error) {
	var b []byte
	if err := msgpack.NewEncoderBytes(&b, c.handle).Encode(v); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	if len(b) > c.maxSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(b), c.maxSize)
	}
	return b, nil
}

// Decode parses bytes produced by Encode under any bound up to Ceiling.
// Anything else is ErrCorrupted.
func (c *Codec[T]) Decode(b []byte) (T, error) {
	var v T
	if len(b) == 0 || len(b) > Ceiling {
		return v, fmt.Errorf("%w: length %d", ErrCorrupted, len(b))
	}
	if err := msgpack.NewDecoderBytes(b, c.handle).Decode(&v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return v, nil
}

// PutUint64 encodes v big-endian, so byte order equals numeric order.
func PutUint64(v uint64) []byte {
	b := make([]byte, Uint64Size)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// Uint64 decodes bytes written by PutUint64.
func Uint64(b []byte) (uint64, error) {
	if len(b) != Uint64Size {
		return 0, fmt.Errorf("%w: uint64 cell of %d bytes", ErrCorrupted, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
