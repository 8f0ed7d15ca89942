package entity

import (
	"bytes"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Canonical is implemented by every stored entity. Projection returns the
// field set used for signing and equality; it must only contain strings,
// int64 and bool values so that the encoding is stable.
type Canonical interface {
	Kind() string
	Key() uuid.UUID
	Projection() map[string]any
}

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2): map keys are
// sorted, so the same projection always yields identical bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("entity: CBOR encoder initialization failed: " + err.Error())
	}
}

// CanonicalBytes encodes the kind and projection of c.
func CanonicalBytes(c Canonical) ([]byte, error) {
	return encMode.Marshal(map[string]any{
		"kind":  c.Kind(),
		"state": c.Projection(),
	})
}

// Equal reports whether a and b have the same canonical projection.
func Equal(a, b Canonical) bool {
	ab, err := CanonicalBytes(a)
	if err != nil {
		return false
	}
	bb, err := CanonicalBytes(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
