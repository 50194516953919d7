package core

import "encoding/hex"

// Blob is an opaque byte value.
type Blob []byte

func (b Blob) Bytes() []byte {
	return []byte(b)
}

func (b Blob) Len() int {
	return len(b)
}

// String returns the CQL blob literal, e.g. 0xcafe.
func (b Blob) String() string {
	return "0x" + hex.EncodeToString(b)
}
