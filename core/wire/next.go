// Package wire iterates over the element frames of CQL collection and tuple
// values without decoding the elements themselves.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrNoNext = errors.New("no next element")

// ShortFrameError is returned when a frame ends before its declared content.
type ShortFrameError struct {
	Need int
	Have int
}

func (e *ShortFrameError) Error() string {
	return fmt.Sprintf("malformed frame: need %d bytes, have %d", e.Need, e.Have)
}

type frameReader struct {
	data []byte
	off  int
	// protocol v1 and v2 encode collection sizes as unsigned shorts
	short bool
}

func (r *frameReader) readSize() (int, error) {
	if r.short {
		if len(r.data)-r.off < 2 {
			return 0, &ShortFrameError{Need: 2, Have: len(r.data) - r.off}
		}
		n := int(binary.BigEndian.Uint16(r.data[r.off:]))
		r.off += 2
		return n, nil
	}

	if len(r.data)-r.off < 4 {
		return 0, &ShortFrameError{Need: 4, Have: len(r.data) - r.off}
	}
	n := int(int32(binary.BigEndian.Uint32(r.data[r.off:])))
	r.off += 4
	return n, nil
}

// readElement returns the element bytes, nil for a null element.
func (r *frameReader) readElement() ([]byte, error) {
	size, err := r.readSize()
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, nil
	}
	if len(r.data)-r.off < size {
		return nil, &ShortFrameError{Need: size, Have: len(r.data) - r.off}
	}

	elem := r.data[r.off : r.off+size : r.off+size]
	r.off += size
	return elem, nil
}

// NextCollection creates next and hasNext functions over the elements of a
// list, set or map frame. Map frames hold keys and values alternately, so
// perElement should be 2 for maps and 1 otherwise.
// The returned count is the number of entries declared in the frame header.
func NextCollection(data []byte, protoVersion byte, perElement int) (next func() ([]byte, error), hasNext func() bool, count int, err error) {
	r := &frameReader{
		data:  data,
		short: protoVersion > 0 && protoVersion < 3,
	}

	count, err = r.readSize()
	if err != nil {
		return nil, nil, 0, err
	}
	if count < 0 {
		return nil, nil, 0, fmt.Errorf("malformed frame: negative element count %d", count)
	}

	remaining := count * perElement

	hasNext = func() bool {
		return remaining > 0
	}

	next = func() ([]byte, error) {
		if !hasNext() {
			return nil, ErrNoNext
		}
		remaining--
		return r.readElement()
	}

	return next, hasNext, count, nil
}

// NextTuple creates next and hasNext functions over the elements of a tuple
// or udt frame with the given arity. Elements missing at the end of the frame
// are returned as null.
func NextTuple(data []byte, arity int) (next func() ([]byte, error), hasNext func() bool) {
	r := &frameReader{data: data}
	index := 0

	hasNext = func() bool {
		return index < arity
	}

	next = func() ([]byte, error) {
		if !hasNext() {
			return nil, ErrNoNext
		}
		index++
		if r.off >= len(r.data) {
			return nil, nil
		}
		return r.readElement()
	}

	return next, hasNext
}
