package vbe

import (
	"encoding/binary"
	"fmt"
)

// EncodeE4 serializes tokens as explicit fixed 2-byte little-endian
// IDs: no continuation logic at all, at the cost of capping the
// dictionary at 65536 entries and spending 2 bytes on every token
// regardless of how small its ID is.
func EncodeE4(tokens []uint32) ([]byte, error) {
	out := make([]byte, 0, len(tokens)*2)
	for _, v := range tokens {
		if v > 0xFFFF {
			return nil, fmt.Errorf("vbe: token ID %d exceeds the E4 16-bit range", v)
		}
		out = binary.LittleEndian.AppendUint16(out, uint16(v))
	}
	return out, nil
}

// DecodeE4 is the inverse of EncodeE4.
func DecodeE4(payload []byte) ([]uint32, error) {
	if len(payload)%2 != 0 {
		return nil, fmt.Errorf("vbe: E4 payload length %d is not a multiple of 2", len(payload))
	}
	tokens := make([]uint32, 0, len(payload)/2)
	for i := 0; i < len(payload); i += 2 {
		tokens = append(tokens, uint32(binary.LittleEndian.Uint16(payload[i:i+2])))
	}
	return tokens, nil
}
