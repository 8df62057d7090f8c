package onpair

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unsafe"

	"github.com/klauspost/compress/flate"

	"github.com/seiflotfy/onpair-codec/internal/vbe"
)

var containerMagic = [4]byte{'O', 'n', 'P', 'r'}

// fixedEntryWidth is the EMIT copy width for the OnPair16 variants
// (E2/E4): every token always copies this many bytes regardless of
// its real entry length, removing the per-token length branch from
// the decode hot path.
const fixedEntryWidth = 16

// Container is an immutable, compressed collection of strings encoded
// against a frozen Dictionary. It is safe to share by reference across
// goroutines: every query reads only immutable buffers.
type Container struct {
	variant    Variant
	values     []byte
	separators []uint32
	offsets    []uint64 // n+1 offsets into payload
	payload    []byte

	// E2/E4 only: values padded with fixedEntryWidth trailing zero
	// bytes, so emitFixedWidth's unconditional 16-byte load for the
	// last entry in values never reads past the backing array.
	fixedValues []byte

	// E3 only: the parallel continuation-bit stream. bitOffsets is in
	// units of uint64 words, not bits — each string's packed
	// continuation bits start on a word boundary since EncodeE3 packs
	// every string's flags independently.
	bitOffsets []uint64 // n+1 offsets into bits, in words
	bits       []uint64
}

// padForFixedWidth returns a copy of values with fixedEntryWidth
// trailing zero bytes, giving emitFixedWidth's unconditional 16-byte
// load room to run past the final entry's real length.
func padForFixedWidth(values []byte) []byte {
	padded := make([]byte, len(values)+fixedEntryWidth)
	copy(padded, values)
	return padded
}

// CompressAll encodes every string against the dictionary under the
// given variant and assembles a Container whose per-string slices
// support O(1) random-access decompression.
func (d *Dictionary) CompressAll(strings []string, variant Variant) (*Container, error) {
	c := &Container{
		variant:    variant,
		values:     d.values,
		separators: d.separators,
		offsets:    make([]uint64, 1, len(strings)+1),
	}
	if variant == VariantE3 {
		c.bitOffsets = make([]uint64, 1, len(strings)+1)
	}
	if variant == VariantE2 || variant == VariantE4 {
		c.fixedValues = padForFixedWidth(d.values)
	}

	for _, s := range strings {
		tokens := d.tokenize([]byte(s))
		switch variant {
		case VariantE1, VariantE2:
			c.payload = append(c.payload, vbe.EncodeVBE(tokens)...)
		case VariantE4:
			enc, err := vbe.EncodeE4(tokens)
			if err != nil {
				return nil, fmt.Errorf("onpair: compress: %w: %w", ErrInputTooLarge, err)
			}
			c.payload = append(c.payload, enc...)
		case VariantE3:
			payload, bits := vbe.EncodeE3(tokens)
			c.payload = append(c.payload, payload...)
			c.bits = append(c.bits, bits...)
			c.bitOffsets = append(c.bitOffsets, uint64(len(c.bits)))
		default:
			return nil, fmt.Errorf("onpair: compress: unknown variant %v", variant)
		}
		c.offsets = append(c.offsets, uint64(len(c.payload)))
	}
	return c, nil
}

// Len reports the number of strings held by the container.
func (c *Container) Len() int {
	return len(c.offsets) - 1
}

// DecompressOne decodes string i into buf, returning the number of
// bytes written. For variants E2/E4, buf must have at least
// fixedEntryWidth (16) bytes of tail slack beyond the decoded length,
// since emitFixedWidth always stores a full 16-byte word per token;
// callers unsure of the decoded length should size buf generously and
// rely on the returned count.
func (c *Container) DecompressOne(i int, buf []byte) (int, error) {
	if i < 0 || i >= c.Len() {
		return 0, fmt.Errorf("onpair: decompress string %d: %w", i, ErrIndexOutOfRange)
	}

	start, end := c.offsets[i], c.offsets[i+1]
	slice := c.payload[start:end]

	var tokens []uint32
	var err error
	switch c.variant {
	case VariantE1, VariantE2:
		tokens, err = vbe.DecodeVBE(slice)
	case VariantE4:
		tokens, err = vbe.DecodeE4(slice)
	case VariantE3:
		wordStart := c.bitOffsets[i]
		tokens, err = vbe.DecodeE3(slice, c.bits[wordStart:])
	default:
		return 0, fmt.Errorf("onpair: decompress string %d: %w", i, ErrCorruptContainer)
	}
	if err != nil {
		return 0, fmt.Errorf("onpair: decompress string %d: %w: %v", i, ErrCorruptContainer, err)
	}

	if c.variant == VariantE2 || c.variant == VariantE4 {
		return c.emitFixedWidth(i, tokens, buf)
	}

	n := 0
	for _, id := range tokens {
		if int(id)+1 >= len(c.separators) {
			return 0, fmt.Errorf("onpair: decompress string %d: token id %d: %w", i, id, ErrCorruptContainer)
		}
		entry := c.values[c.separators[id]:c.separators[id+1]]
		if n+len(entry) > len(buf) {
			return 0, fmt.Errorf("onpair: decompress string %d: %w", i, io.ErrShortBuffer)
		}
		n += copy(buf[n:], entry)
	}
	return n, nil
}

// emitFixedWidth implements the OnPair16 EMIT policy (spec.md §4.6): a
// single unaligned 16-byte load/store per token regardless of the
// entry's real length, so the hot loop never branches on length. The
// bytes past the real entry length are overwritten by the next
// token's store (or left as harmless tail slack for the last one);
// only the returned byte count is authoritative.
func (c *Container) emitFixedWidth(i int, tokens []uint32, buf []byte) (int, error) {
	n := 0
	for _, id := range tokens {
		if int(id)+1 >= len(c.separators) {
			return 0, fmt.Errorf("onpair: decompress string %d: token id %d: %w", i, id, ErrCorruptContainer)
		}
		if n+fixedEntryWidth > len(buf) {
			return 0, fmt.Errorf("onpair: decompress string %d: %w", i, io.ErrShortBuffer)
		}
		entryStart, entryEnd := c.separators[id], c.separators[id+1]
		src := unsafe.Pointer(&c.fixedValues[entryStart])
		dst := unsafe.Pointer(&buf[n])
		*(*[fixedEntryWidth]byte)(dst) = *(*[fixedEntryWidth]byte)(src)
		n += int(entryEnd - entryStart)
	}
	return n, nil
}

// DecompressAll decodes every string in the container. Its scratch
// buffer starts at a modest guess and doubles on ErrShortBuffer: a
// per-token 16-byte cap only holds for the OnPair16 variants (E2/E4).
// The unbounded variant's entries are bounded only by the longest
// string seen at training time, so a fixed multiple of the encoded
// byte count can't be trusted as an upper bound here.
func (c *Container) DecompressAll() ([]string, error) {
	out := make([]string, c.Len())
	buf := make([]byte, 256)
	for i := 0; i < c.Len(); i++ {
		for {
			n, err := c.DecompressOne(i, buf)
			if err == nil {
				out[i] = string(buf[:n])
				break
			}
			if errors.Is(err, io.ErrShortBuffer) {
				buf = make([]byte, len(buf)*2)
				continue
			}
			return nil, err
		}
	}
	return out, nil
}

// WriteTo serializes the container per the OnPair wire format: magic +
// variant tag + secondary-compression flag, n, dict_count, dictionary
// separators and values, string offsets, encoded payload (optionally
// flate-compressed), and for E3 the continuation-bit offsets and
// packed bitstream.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.Write(containerMagic[:])
	buf.WriteByte(byte(c.variant))

	payload, flateApplied := maybeFlate(c.payload)
	if flateApplied {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	var u32 [4]byte
	var u64 [8]byte

	binary.LittleEndian.PutUint32(u32[:], uint32(c.Len()))
	buf.Write(u32[:])
	binary.LittleEndian.PutUint32(u32[:], uint32(len(c.separators)-1))
	buf.Write(u32[:])
	for _, sep := range c.separators {
		binary.LittleEndian.PutUint32(u32[:], sep)
		buf.Write(u32[:])
	}
	buf.Write(c.values)

	for _, off := range c.offsets {
		binary.LittleEndian.PutUint64(u64[:], off)
		buf.Write(u64[:])
	}

	if flateApplied {
		binary.LittleEndian.PutUint64(u64[:], uint64(len(c.payload)))
		buf.Write(u64[:])
		binary.LittleEndian.PutUint64(u64[:], uint64(len(payload)))
		buf.Write(u64[:])
	}
	buf.Write(payload)

	if c.variant == VariantE3 {
		for _, off := range c.bitOffsets {
			binary.LittleEndian.PutUint64(u64[:], off)
			buf.Write(u64[:])
		}
		for _, word := range c.bits {
			binary.LittleEndian.PutUint64(u64[:], word)
			buf.Write(u64[:])
		}
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// ReadFrom deserializes a container previously written by WriteTo,
// inflating the payload once (if the secondary pass was applied) so
// that subsequent DecompressOne calls are O(1) per string and never
// pay an inflate cost.
func ReadFrom(r io.Reader) (*Container, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("onpair: read container magic: %w", err)
	}
	if magic != containerMagic {
		return nil, fmt.Errorf("onpair: read container: %w", ErrCorruptContainer)
	}

	var variantByte, flateByte byte
	if err := binary.Read(r, binary.LittleEndian, &variantByte); err != nil {
		return nil, fmt.Errorf("onpair: read variant: %w", err)
	}
	variant := Variant(variantByte)
	if err := binary.Read(r, binary.LittleEndian, &flateByte); err != nil {
		return nil, fmt.Errorf("onpair: read flate flag: %w", err)
	}

	var n, dictCount uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("onpair: read string count: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &dictCount); err != nil {
		return nil, fmt.Errorf("onpair: read dict count: %w", err)
	}
	if dictCount < 256 {
		return nil, fmt.Errorf("onpair: dict_count %d below 256: %w", dictCount, ErrCorruptContainer)
	}

	separators := make([]uint32, dictCount+1)
	if err := binary.Read(r, binary.LittleEndian, separators); err != nil {
		return nil, fmt.Errorf("onpair: read separators: %w", err)
	}
	if !monotonicU32(separators) {
		return nil, fmt.Errorf("onpair: separators non-monotonic: %w", ErrCorruptContainer)
	}

	values := make([]byte, separators[len(separators)-1])
	if _, err := io.ReadFull(r, values); err != nil {
		return nil, fmt.Errorf("onpair: read dictionary values: %w", err)
	}

	offsets := make([]uint64, n+1)
	if err := binary.Read(r, binary.LittleEndian, offsets); err != nil {
		return nil, fmt.Errorf("onpair: read string offsets: %w", err)
	}
	if !monotonicU64(offsets) {
		return nil, fmt.Errorf("onpair: string offsets non-monotonic: %w", ErrCorruptContainer)
	}

	var payload []byte
	if flateByte == 1 {
		var inflatedLen, compressedLen uint64
		if err := binary.Read(r, binary.LittleEndian, &inflatedLen); err != nil {
			return nil, fmt.Errorf("onpair: read inflated length: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &compressedLen); err != nil {
			return nil, fmt.Errorf("onpair: read compressed length: %w", err)
		}
		compressed := make([]byte, compressedLen)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return nil, fmt.Errorf("onpair: read compressed payload: %w", err)
		}
		inflated, err := inflate(compressed, int(inflatedLen))
		if err != nil {
			return nil, fmt.Errorf("onpair: inflate payload: %w", err)
		}
		if uint64(len(inflated)) != offsets[len(offsets)-1] {
			return nil, fmt.Errorf("onpair: inflated payload length mismatch: %w", ErrCorruptContainer)
		}
		payload = inflated
	} else {
		payload = make([]byte, offsets[len(offsets)-1])
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("onpair: read payload: %w", err)
		}
	}

	c := &Container{
		variant:    variant,
		values:     values,
		separators: separators,
		offsets:    offsets,
		payload:    payload,
	}
	if variant == VariantE2 || variant == VariantE4 {
		c.fixedValues = padForFixedWidth(values)
	}

	if variant == VariantE3 {
		bitOffsets := make([]uint64, n+1)
		if err := binary.Read(r, binary.LittleEndian, bitOffsets); err != nil {
			return nil, fmt.Errorf("onpair: read bit offsets: %w", err)
		}
		if !monotonicU64(bitOffsets) {
			return nil, fmt.Errorf("onpair: bit offsets non-monotonic: %w", ErrCorruptContainer)
		}
		nWords := bitOffsets[len(bitOffsets)-1]
		bits := make([]uint64, nWords)
		if err := binary.Read(r, binary.LittleEndian, bits); err != nil {
			return nil, fmt.Errorf("onpair: read continuation words: %w", err)
		}
		c.bitOffsets = bitOffsets
		c.bits = bits
	}

	return c, nil
}

func putU32(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) }
func putU64(dst []byte, v uint64) { binary.LittleEndian.PutUint64(dst, v) }

func monotonicU32(xs []uint32) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] < xs[i-1] {
			return false
		}
	}
	return true
}

func monotonicU64(xs []uint64) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] < xs[i-1] {
			return false
		}
	}
	return true
}

// maybeFlate applies the secondary flate pass only when it shrinks the
// payload, so a Container built from already-dense data never pays a
// decode-side inflate cost.
func maybeFlate(payload []byte) ([]byte, bool) {
	if len(payload) == 0 {
		return payload, false
	}
	var buf bytes.Buffer
	zw, _ := flate.NewWriter(&buf, flate.BestCompression)
	_, _ = zw.Write(payload)
	_ = zw.Close()
	if buf.Len() < len(payload) {
		return buf.Bytes(), true
	}
	return payload, false
}

func inflate(compressed []byte, inflatedLen int) ([]byte, error) {
	zr := flate.NewReader(bytes.NewReader(compressed))
	defer zr.Close()
	out := make([]byte, inflatedLen)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}
