// Package onpair implements OnPair: a dictionary-based string
// compressor that trains a frequency-sensitive token dictionary over a
// corpus, then encodes each string independently against the frozen
// dictionary so any single string can be decompressed without touching
// any other.
package onpair

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/seiflotfy/onpair-codec/internal/parser"
	"github.com/seiflotfy/onpair-codec/internal/symtab"
	"github.com/seiflotfy/onpair-codec/internal/train"
	"github.com/seiflotfy/onpair-codec/internal/vbe"
)

var dictionaryMagic = [4]byte{'O', 'n', 'P', 'd'}

// Dictionary is a frozen, trained OnPair dictionary: the concatenated
// entry bytes, their separators, and the matcher used to parse new
// strings against it.
type Dictionary struct {
	values     []byte
	separators []uint32
	table      parser.Matcher
	maxLen     int
}

// Train derives a Dictionary from a corpus of strings, running to
// completion with no cancellation path. See TrainContext for a
// cancellable form.
func Train(strings []string, opts ...Option) (*Dictionary, error) {
	return TrainContext(context.Background(), strings, opts...)
}

// TrainContext derives a Dictionary from a corpus of strings. ctx is
// checked once per trainer outer-loop iteration (one re-parse plus at
// most one merge); if cancelled between merges, the dictionary as of
// the last completed merge is returned alongside the wrapped context
// error.
func TrainContext(ctx context.Context, strings []string, opts ...Option) (*Dictionary, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	data, ends := parser.FlattenStrings(strings)
	d, err := train.Train(ctx, data, ends, cfg.toParams())
	if d == nil {
		return nil, fmt.Errorf("onpair: train: %w", err)
	}
	dict := &Dictionary{values: d.Values, separators: d.Separators, table: d.Table, maxLen: cfg.MaxLen}
	if err != nil {
		return dict, fmt.Errorf("onpair: train: %w", err)
	}
	return dict, nil
}

// EntryCount reports the number of entries in the dictionary,
// including the 256 single-byte literals.
func (d *Dictionary) EntryCount() int {
	return len(d.separators) - 1
}

func (d *Dictionary) tokenize(s []byte) []uint32 {
	res := parser.Parse(s, []int{0, len(s)}, d.table)
	return res.Tokens
}

// Compress encodes a single string under the given variant and returns
// its encoded bytes. For VariantE3, whose wire form splits the payload
// across two streams, the returned slice is self-contained: a u32
// payload byte count (one continuation bit per payload byte), a u32
// continuation word count, the packed continuation words, then the
// payload bytes. Batch
// callers that need the container-level split streams (and the
// O(1)-random-access contract across many strings) should use
// CompressAll instead.
func (d *Dictionary) Compress(s []byte, variant Variant) []byte {
	tokens := d.tokenize(s)
	switch variant {
	case VariantE1, VariantE2:
		return vbe.EncodeVBE(tokens)
	case VariantE4:
		payload, err := vbe.EncodeE4(tokens)
		if err != nil {
			// A dictionary trained with MaxLen <= 16 and MaxEntries <=
			// 65536 never produces a token ID outside E4's range; this
			// only fires when the caller mismatches variant and
			// dictionary shape.
			return nil
		}
		return payload
	case VariantE3:
		payload, bits := vbe.EncodeE3(tokens)
		out := make([]byte, 8+len(bits)*8+len(payload))
		putU32(out, uint32(len(payload)))
		putU32(out[4:], uint32(len(bits)))
		for i, w := range bits {
			putU64(out[8+i*8:], w)
		}
		copy(out[8+len(bits)*8:], payload)
		return out
	default:
		return nil
	}
}

// WriteTo serializes the dictionary: magic, a one-byte entry-length-cap
// marker (0 for unbounded, 16 for OnPair16), dict_count, the
// dict_count+1 separators, and the concatenated entry values. The
// matcher used for parsing is never serialized — ReadDictionaryFrom
// rebuilds it by re-inserting every entry, same as a decode-only
// Container load never reconstructs a prefix-lookup structure it
// doesn't need.
func (d *Dictionary) WriteTo(w io.Writer) (int64, error) {
	var buf []byte
	buf = append(buf, dictionaryMagic[:]...)
	buf = append(buf, byte(d.maxLen))

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(d.separators)-1))
	buf = append(buf, u32[:]...)
	for _, sep := range d.separators {
		binary.LittleEndian.PutUint32(u32[:], sep)
		buf = append(buf, u32[:]...)
	}
	buf = append(buf, d.values...)

	n, err := w.Write(buf)
	return int64(n), err
}

// ReadDictionaryFrom deserializes a dictionary previously written by
// Dictionary.WriteTo, rebuilding the matcher needed to parse new
// strings against it.
func ReadDictionaryFrom(r io.Reader) (*Dictionary, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("onpair: read dictionary magic: %w", err)
	}
	if magic != dictionaryMagic {
		return nil, fmt.Errorf("onpair: read dictionary: %w", ErrCorruptContainer)
	}

	var maxLenByte byte
	if err := binary.Read(r, binary.LittleEndian, &maxLenByte); err != nil {
		return nil, fmt.Errorf("onpair: read dictionary max-length marker: %w", err)
	}
	maxLen := int(maxLenByte)

	var dictCount uint32
	if err := binary.Read(r, binary.LittleEndian, &dictCount); err != nil {
		return nil, fmt.Errorf("onpair: read dictionary entry count: %w", err)
	}

	separators := make([]uint32, dictCount+1)
	if err := binary.Read(r, binary.LittleEndian, separators); err != nil {
		return nil, fmt.Errorf("onpair: read dictionary separators: %w", err)
	}
	if !monotonicU32(separators) {
		return nil, fmt.Errorf("onpair: dictionary separators non-monotonic: %w", ErrCorruptContainer)
	}

	values := make([]byte, separators[len(separators)-1])
	if _, err := io.ReadFull(r, values); err != nil {
		return nil, fmt.Errorf("onpair: read dictionary values: %w", err)
	}

	table, err := rebuildMatcher(values, separators, maxLen)
	if err != nil {
		return nil, err
	}
	return &Dictionary{values: values, separators: separators, table: table, maxLen: maxLen}, nil
}

func rebuildMatcher(values []byte, separators []uint32, maxLen int) (parser.Matcher, error) {
	if maxLen == 16 {
		dyn := symtab.NewTable16()
		for id := 0; id+1 < len(separators); id++ {
			entry := values[separators[id]:separators[id+1]]
			if !dyn.Insert(entry, uint32(id)) {
				return nil, fmt.Errorf("onpair: rebuild matcher: entry %d overflowed its bucket: %w", id, ErrCorruptContainer)
			}
		}
		return dyn.Finalize(), nil
	}

	tab := symtab.NewTable()
	for id := 0; id+1 < len(separators); id++ {
		tab.Insert(values[separators[id]:separators[id+1]], uint32(id))
	}
	return tab, nil
}
