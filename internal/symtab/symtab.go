// Package symtab implements the OnPair symbol table: the byte-sequence
// to token-ID mapping used during training and at parse time, with
// support for exact lookup and greedy longest-prefix match.
//
// Table is the unbounded-entry-length variant. Table16 (symtab16.go)
// is the 16-byte-capped variant used by OnPair16, which additionally
// finalizes into a read-only structure backed by a minimal perfect
// hash once training stops.
package symtab

import (
	"bytes"
	"encoding/binary"
	"unsafe"
)

// masks extracts little-endian prefixes of 0..8 bytes.
var masks = [9]uint64{
	0x0000000000000000,
	0x00000000000000FF,
	0x000000000000FFFF,
	0x0000000000FFFFFF,
	0x00000000FFFFFFFF,
	0x000000FFFFFFFFFF,
	0x0000FFFFFFFFFFFF,
	0x00FFFFFFFFFFFFFF,
	0xFFFFFFFFFFFFFFFF,
}

// minMatch is the prefix length, in bytes, at which an entry moves from
// the direct short-match table into the long-match buckets.
const minMatch = 8

// Table is a hybrid longest-prefix matcher for entries of unbounded
// length. Short entries (<=8 bytes) sit in a direct hash table keyed by
// their packed bytes; longer entries are bucketed by their first 8
// bytes, with the remaining suffix bytes held in a flat dictionary
// buffer and buckets kept sorted longest-first.
//
// Table is mutable during training via Insert and is never serialized:
// a Container only persists id->bytes (values + separators), which is
// sufficient for decode-only use per the container's reconstruction
// contract.
type Table struct {
	longBuckets  map[uint64][]uint32  // 8-byte prefix -> candidate token IDs, longest first
	shortLookup  [9]map[uint64]uint32 // length -> packed bytes -> token ID
	suffixes     []byte               // suffix storage for long entries (bytes beyond the 8-byte prefix)
	suffixBounds []uint32             // per-ID bounds into suffixes, parallel to insertion order
	count        int
}

// NewTable creates an empty table seeded with nothing; callers are
// responsible for inserting the 256 single-byte literals before using
// it for longest-prefix match, per the trainer's bootstrap step.
func NewTable() *Table {
	return &Table{suffixBounds: []uint32{0}}
}

// Len reports the number of entries inserted so far.
func (t *Table) Len() int { return t.count }

// Insert adds entry under the given token ID. IDs must be assigned
// densely starting at 0, since suffix bounds are tracked parallel to
// insertion order. Insert does not check for duplicates: a pattern
// already present verbatim is stored again under the new ID (callers
// are expected to de-duplicate via LPM before ever proposing a merge
// that would collide).
func (t *Table) Insert(entry []byte, id uint32) {
	if len(entry) > minMatch {
		prefix := bytesToU64LE(entry, minMatch)
		if t.longBuckets == nil {
			t.longBuckets = make(map[uint64][]uint32)
		}
		bucket := t.longBuckets[prefix]

		t.suffixes = append(t.suffixes, entry[minMatch:]...)
		t.suffixBounds = append(t.suffixBounds, uint32(len(t.suffixes)))
		bucket = append(bucket, id)

		for i := len(bucket) - 1; i > 0; i-- {
			a, b := bucket[i], bucket[i-1]
			lenA := t.suffixLen(a)
			lenB := t.suffixLen(b)
			if lenA > lenB {
				bucket[i], bucket[i-1] = bucket[i-1], bucket[i]
			} else {
				break
			}
		}
		t.longBuckets[prefix] = bucket
	} else {
		if len(entry) <= 1 {
			t.suffixBounds = append(t.suffixBounds, uint32(len(t.suffixes)))
		} else {
			prefix := bytesToU64LE(entry, len(entry))
			lookup := t.shortLookup[len(entry)]
			if lookup == nil {
				lookup = make(map[uint64]uint32)
				t.shortLookup[len(entry)] = lookup
			}
			lookup[prefix] = id
			t.suffixBounds = append(t.suffixBounds, uint32(len(t.suffixes)))
		}
	}
	t.count++
}

func (t *Table) suffixLen(id uint32) int {
	return int(t.suffixBounds[id+1]) - int(t.suffixBounds[id])
}

// LongestPrefix returns the token ID and length of the dictionary
// entry of maximal length that is a prefix of data. Since single-byte
// literals are assumed present for every byte value, callers that have
// seeded those 256 entries always get a match of length >= 1 for any
// non-empty data.
func (t *Table) LongestPrefix(data []byte) (id uint32, length int, ok bool) {
	if len(data) > minMatch {
		prefix := bytesToU64LE(data, minMatch)
		suffix := data[minMatch:]

		if bucket, found := t.longBuckets[prefix]; found {
			for _, cand := range bucket {
				start := int(t.suffixBounds[cand])
				end := int(t.suffixBounds[cand+1])
				candLen := end - start
				if len(suffix) >= candLen && bytes.HasPrefix(suffix, t.suffixes[start:end]) {
					return cand, minMatch + candLen, true
				}
			}
		}
	}

	maxLen := minMatch
	if len(data) < maxLen {
		maxLen = len(data)
	}
	prefix := bytesToU64LE(data, maxLen)
	for l := maxLen; l >= 2; l-- {
		if id, found := t.shortLookup[l][prefix&masks[l]]; found {
			return id, l, true
		}
	}
	if len(data) > 0 {
		return uint32(data[0]), 1, true
	}
	return 0, 0, false
}

func bytesToU64LE(b []byte, length int) uint64 {
	if length > 8 {
		length = 8
	}
	if length < 0 {
		length = 0
	}
	if len(b) < 8 {
		var buf [8]byte
		copy(buf[:], b)
		return binary.LittleEndian.Uint64(buf[:]) & masks[length]
	}
	ptr := unsafe.Pointer(&b[0])
	value := *(*uint64)(ptr)
	return value & masks[length]
}
