package onpair

import "errors"

// Sentinel errors, checked with errors.Is, wrapped at call boundaries
// with fmt.Errorf("...: %w", err).
var (
	// ErrInputTooLarge means an encoded stream or its offsets would
	// exceed the wire format's offset-type range.
	ErrInputTooLarge = errors.New("onpair: input too large for wire offset range")

	// ErrCorruptContainer means a container failed structural
	// validation: a token ID beyond dictionary size, non-monotonic
	// offsets, or inconsistent lengths.
	ErrCorruptContainer = errors.New("onpair: corrupt container")

	// ErrIndexOutOfRange means DecompressOne was asked for a string
	// index ≥ the container's string count.
	ErrIndexOutOfRange = errors.New("onpair: string index out of range")
)

// Dictionary capacity reached during training is not one of the
// sentinels above: it is a normal internal stop condition handled
// inside internal/train, exactly like "count below threshold" or
// "length cap exceeded" — it never surfaces as a returned error.
