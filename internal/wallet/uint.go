package wallet

import (
	"encoding/binary"
	"errors"
)

var (
	ErrNotUint        = errors.New("cbor: not an unsigned integer")
	ErrTruncated      = errors.New("cbor: truncated integer")
	ErrUnsupportedLen = errors.New("cbor: unsupported integer length")
)

// DecodeUint reads one CBOR major type 0 item from the start of b and
// returns its value and encoded length.  Only the definite forms are
// accepted: 0-23 inline, then 1, 2, 4 or 8 following bytes.
func DecodeUint(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, ErrTruncated
	}
	if b[0]>>5 != 0 {
		return 0, 0, ErrNotUint
	}
	info := b[0] & 0x1f
	var n int
	switch {
	case info <= 23:
		return uint64(info), 1, nil
	case info == 24:
		n = 1
	case info == 25:
		n = 2
	case info == 26:
		n = 4
	case info == 27:
		n = 8
	default:
		return 0, 0, ErrUnsupportedLen
	}
	if len(b) < 1+n {
		return 0, 0, ErrTruncated
	}
	p := b[1 : 1+n]
	switch n {
	case 1:
		return uint64(p[0]), 2, nil
	case 2:
		return uint64(binary.BigEndian.Uint16(p)), 3, nil
	case 4:
		return uint64(binary.BigEndian.Uint32(p)), 5, nil
	}
	return binary.BigEndian.Uint64(p), 9, nil
}
