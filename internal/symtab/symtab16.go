package symtab

import (
	"math/bits"
)

const (
	inlineSuffixes = 4
	bucketCapacity = 128
)

// shortKey16 is the lookup key for entries of length <= 8 in Table16.
type shortKey16 struct {
	prefix uint64
	length uint8
}

type bucketEntry16 struct {
	suffix uint64
	length uint8
	id     uint32
}

// Table16 is the dynamic, insert-as-you-train symbol table for the
// OnPair16 variant, where every entry is capped at 16 bytes. Training
// inserts into Table16 directly; once training stops, Finalize builds
// a read-only StaticTable16 backed by a minimal perfect hash, used for
// parsing at compress time.
type Table16 struct {
	short   map[shortKey16]uint32
	buckets map[uint64][]bucketEntry16
}

// NewTable16 returns an empty dynamic OnPair16 table.
func NewTable16() *Table16 {
	return &Table16{
		short:   make(map[shortKey16]uint32),
		buckets: make(map[uint64][]bucketEntry16),
	}
}

// Insert adds entry (len(entry) <= 16) under id. Returns false when the
// entry's 8-byte-prefix bucket is already at capacity, signalling the
// trainer to treat this merge as rejected rather than stalling on an
// unbounded bucket.
func (t *Table16) Insert(entry []byte, id uint32) bool {
	length := len(entry)
	if length <= 8 {
		key := shortKey16{prefix: bytesToU64LE(entry, length), length: uint8(length)}
		t.short[key] = id
		return true
	}

	prefix := bytesToU64LE(entry, 8)
	bucket := t.buckets[prefix]
	if len(bucket) >= bucketCapacity {
		return false
	}

	suffixLen := length - 8
	suffix := bytesToU64LE(entry[8:], suffixLen)
	bucket = append(bucket, bucketEntry16{suffix: suffix, length: uint8(suffixLen), id: id})

	for i := len(bucket) - 1; i > 0; i-- {
		if bucket[i].length > bucket[i-1].length {
			bucket[i], bucket[i-1] = bucket[i-1], bucket[i]
		} else {
			break
		}
	}
	t.buckets[prefix] = bucket
	return true
}

// LongestPrefix mirrors Table.LongestPrefix for the 16-byte-capped
// dynamic table.
func (t *Table16) LongestPrefix(data []byte) (id uint32, length int, ok bool) {
	if len(data) > 8 {
		suffixLen := min(len(data), 16) - 8
		prefix := bytesToU64LE(data, 8)
		suffix := bytesToU64LE(data[8:], suffixLen)

		if bucket, found := t.buckets[prefix]; found {
			for _, entry := range bucket {
				if isPrefix(suffix, entry.suffix, suffixLen, int(entry.length)) {
					return entry.id, 8 + int(entry.length), true
				}
			}
		}
	}

	maxLen := min(8, len(data))
	prefix := bytesToU64LE(data, maxLen)
	for l := maxLen; l >= 1; l-- {
		key := shortKey16{prefix: prefix & masks[l], length: uint8(l)}
		if id, found := t.short[key]; found {
			return id, l, true
		}
	}
	return 0, 0, false
}

// Finalize builds a read-only StaticTable16 over the current contents,
// replacing per-bucket slice scans with a minimal perfect hash over
// long-entry prefixes so lookup cost is two fixed hash probes plus a
// handful of inline suffix comparisons.
func (t *Table16) Finalize() *StaticTable16 {
	type longInfoBuild struct {
		prefix       uint64
		answerID     uint32
		answerLength uint8
		suffixes     []bucketEntry16
	}

	longByPrefix := make(map[uint64]*longInfoBuild)

	for prefix, bucket := range t.buckets {
		answerID, answerLen, _ := t.LongestPrefix(uint64ToBytes(prefix))
		longByPrefix[prefix] = &longInfoBuild{
			prefix:       prefix,
			answerID:     answerID,
			answerLength: uint8(answerLen),
			suffixes:     bucket,
		}
	}

	shortDict := make(map[shortKey16]uint32)
	for key, id := range t.short {
		if key.length == 8 {
			if _, exists := longByPrefix[key.prefix]; exists {
				continue
			}
			longByPrefix[key.prefix] = &longInfoBuild{prefix: key.prefix, answerID: id, answerLength: key.length}
			continue
		}
		shortDict[key] = id
	}

	prefixes := make([]uint64, 0, len(longByPrefix))
	for prefix := range longByPrefix {
		prefixes = append(prefixes, prefix)
	}
	mph := newMinimalPerfectHash(prefixes)

	longInfo := make([]*longMatchInfo, mph.tableSize)
	var overflow []bucketEntry16

	for prefix, build := range longByPrefix {
		info := &longMatchInfo{
			prefix:       build.prefix,
			answerID:     build.answerID,
			answerLength: build.answerLength,
		}
		for i := 0; i < inlineSuffixes && i < len(build.suffixes); i++ {
			info.inlineSuffixes[i] = build.suffixes[i].suffix
			info.inlineLengths[i] = build.suffixes[i].length
			info.inlineIDs[i] = build.suffixes[i].id
			info.nSuffixes++
		}
		if len(build.suffixes) > inlineSuffixes {
			info.offset = uint16(len(overflow))
			overflow = append(overflow, build.suffixes[inlineSuffixes:]...)
			info.nSuffixes = uint16(len(build.suffixes))
		}
		longInfo[mph.hash(prefix)] = info
	}

	return &StaticTable16{
		short:    shortDict,
		mph:      mph,
		longInfo: longInfo,
		overflow: overflow,
	}
}

type longMatchInfo struct {
	prefix         uint64
	inlineSuffixes [inlineSuffixes]uint64
	inlineLengths  [inlineSuffixes]uint8
	inlineIDs      [inlineSuffixes]uint32
	nSuffixes      uint16
	offset         uint16
	answerID       uint32
	answerLength   uint8
}

// StaticTable16 is the finalized, read-only OnPair16 symbol table used
// during encode-time parsing. It performs no allocation on lookup.
type StaticTable16 struct {
	short    map[shortKey16]uint32
	mph      *minimalPerfectHash
	longInfo []*longMatchInfo
	overflow []bucketEntry16
}

// LongestPrefix implements the same contract as Table16.LongestPrefix.
func (s *StaticTable16) LongestPrefix(data []byte) (id uint32, length int, ok bool) {
	if len(data) >= 8 {
		suffixLen := min(len(data), 16) - 8
		prefix := bytesToU64LE(data, 8)
		suffix := bytesToU64LE(data[8:], suffixLen)
		if id, length, ok := s.longAnswer(prefix, suffix, suffixLen); ok {
			return id, length, true
		}
	}

	maxLen := min(7, len(data))
	prefix := bytesToU64LE(data, maxLen)
	for l := maxLen; l >= 1; l-- {
		key := shortKey16{prefix: prefix & masks[l], length: uint8(l)}
		if id, found := s.short[key]; found {
			return id, l, true
		}
	}
	return 0, 0, false
}

func (s *StaticTable16) longAnswer(prefix, suffix uint64, suffixLen int) (uint32, int, bool) {
	index := s.mph.hash(prefix)
	if index >= len(s.longInfo) || s.longInfo[index] == nil || s.longInfo[index].prefix != prefix {
		return 0, 0, false
	}
	info := s.longInfo[index]

	inlineCount := min(int(info.nSuffixes), inlineSuffixes)
	for i := 0; i < inlineCount; i++ {
		if isPrefix(suffix, info.inlineSuffixes[i], suffixLen, int(info.inlineLengths[i])) {
			return info.inlineIDs[i], 8 + int(info.inlineLengths[i]), true
		}
	}

	if int(info.nSuffixes) > inlineSuffixes {
		start := int(info.offset)
		end := start + int(info.nSuffixes) - inlineSuffixes
		for i := start; i < end; i++ {
			entry := s.overflow[i]
			if isPrefix(suffix, entry.suffix, suffixLen, int(entry.length)) {
				return entry.id, 8 + int(entry.length), true
			}
		}
	}

	return info.answerID, int(info.answerLength), true
}

func isPrefix(text, prefix uint64, textLen, prefixLen int) bool {
	return prefixLen <= textLen && sharedPrefixLen(text, prefix) >= prefixLen
}

func sharedPrefixLen(a, b uint64) int {
	return bits.TrailingZeros64(a^b) >> 3
}
