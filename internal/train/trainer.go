// Package train implements the OnPair trainer: the loop that derives a
// frequency-sensitive token dictionary from a corpus by alternating
// full re-parse passes under greedy longest-prefix match with
// pair-merge steps, stopping once no remaining pair clears the
// frequency threshold, the dictionary is full, or the length cap would
// be exceeded.
package train

import (
	"context"
	"fmt"
	"math"

	"github.com/seiflotfy/onpair-codec/internal/pairfreq"
	"github.com/seiflotfy/onpair-codec/internal/parser"
	"github.com/seiflotfy/onpair-codec/internal/symtab"
)

const (
	literalCount  = 256
	maxTokenCount = 1 << 16
)

// Params bundles the trainer's tuning knobs. MaxLen == 0 means
// unbounded entry length; a positive value (16 for OnPair16) caps
// every learned entry's byte length.
type Params struct {
	Threshold     int  // minimum pair count to justify a merge; spec.md's reference default is 10
	AutoThreshold bool // derive Threshold from corpus size instead of using the fixed value above
	MaxLen        int
	MaxEntries    int // 0 selects the maximum addressable token count
	Sample        SampleParams
	Subsample     bool // restrict the re-parse loop to a deterministic subset of strings
}

// Dictionary is the frozen output of training: the concatenated entry
// bytes, the separators delimiting them, and the symbol table used to
// parse against it (an unbounded symtab.Table, or a finalized
// symtab.StaticTable16 for the capped variant).
type Dictionary struct {
	Values     []byte
	Separators []uint32
	Table      parser.Matcher
}

// Train runs the trainer to completion over a flattened corpus (data,
// ends as produced by parser.FlattenStrings) and returns the frozen
// dictionary. ctx is checked once per outer-loop iteration (one
// re-parse + at most one merge); a cancellation between merges returns
// the dictionary state as of the last completed merge along with the
// wrapped context error.
func Train(ctx context.Context, data []byte, ends []int, p Params) (*Dictionary, error) {
	threshold := p.Threshold
	if p.AutoThreshold {
		threshold = autoThreshold(len(data))
	} else if threshold <= 0 {
		threshold = 10
	}
	maxEntries := p.MaxEntries
	if maxEntries <= 0 || maxEntries > maxTokenCount {
		maxEntries = maxTokenCount
	}

	trainData, trainEnds := data, ends
	if p.Subsample {
		order := ShuffledIndices(len(ends) - 1)
		selected, _ := Sample(data, ends, order, p.Sample)
		trainData, trainEnds = subCorpus(data, ends, selected)
	}

	if p.MaxLen == 16 {
		return train16(ctx, trainData, trainEnds, threshold, maxEntries)
	}
	return trainUnbounded(ctx, trainData, trainEnds, threshold, maxEntries, p.MaxLen)
}

// subCorpus builds a standalone flattened (data, ends) pair containing
// only the selected strings, so the trainer's re-parse loop runs over
// the subsample without the rest of the corpus influencing pair
// counts. Every string in the original corpus, selected or not, is
// still compressible against the resulting dictionary: training only
// decides which byte sequences get merged, never which strings exist.
func subCorpus(data []byte, ends []int, selected []int) ([]byte, []int) {
	total := 0
	for _, idx := range selected {
		total += ends[idx+1] - ends[idx]
	}
	sub := make([]byte, 0, total)
	subEnds := make([]int, 1, len(selected)+1)
	for _, idx := range selected {
		sub = append(sub, data[ends[idx]:ends[idx+1]]...)
		subEnds = append(subEnds, len(sub))
	}
	return sub, subEnds
}

func trainUnbounded(ctx context.Context, data []byte, ends []int, threshold, maxEntries, maxLen int) (*Dictionary, error) {
	values := make([]byte, 0, literalCount)
	seps := make([]uint32, 1, literalCount+1)
	tab := symtab.NewTable()

	for b := 0; b < literalCount; b++ {
		tab.Insert([]byte{byte(b)}, uint32(b))
		values = append(values, byte(b))
		seps = append(seps, uint32(len(values)))
	}
	nextID := uint32(literalCount)

	for {
		if err := ctx.Err(); err != nil {
			return &Dictionary{Values: values, Separators: seps, Table: tab}, fmt.Errorf("onpair: training cancelled: %w", err)
		}

		res := parser.Parse(data, ends, tab)
		counter := pairfreq.Rebuild(res.Tokens, res.StringStart)

		a, b, count, ok := counter.Argmax()
		if !ok || count < threshold {
			break
		}
		if int(nextID) >= maxEntries {
			break
		}

		entryA := entryBytes(values, seps, a)
		entryB := entryBytes(values, seps, b)
		if maxLen > 0 && len(entryA)+len(entryB) > maxLen {
			break
		}

		merged := append(append([]byte{}, entryA...), entryB...)
		tab.Insert(merged, nextID)
		values = append(values, merged...)
		seps = append(seps, uint32(len(values)))
		nextID++
	}

	return &Dictionary{Values: values, Separators: seps, Table: tab}, nil
}

func train16(ctx context.Context, data []byte, ends []int, threshold, maxEntries int) (*Dictionary, error) {
	values := make([]byte, 0, literalCount)
	seps := make([]uint32, 1, literalCount+1)
	dyn := symtab.NewTable16()

	for b := 0; b < literalCount; b++ {
		dyn.Insert([]byte{byte(b)}, uint32(b))
		values = append(values, byte(b))
		seps = append(seps, uint32(len(values)))
	}
	nextID := uint32(literalCount)

	for {
		if err := ctx.Err(); err != nil {
			return &Dictionary{Values: values, Separators: seps, Table: dyn.Finalize()}, fmt.Errorf("onpair: training cancelled: %w", err)
		}

		res := parser.Parse(data, ends, dyn)
		counter := pairfreq.Rebuild(res.Tokens, res.StringStart)

		a, b, count, ok := counter.Argmax()
		if !ok || count < threshold {
			break
		}
		if int(nextID) >= maxEntries {
			break
		}

		entryA := entryBytes(values, seps, a)
		entryB := entryBytes(values, seps, b)
		if len(entryA)+len(entryB) > 16 {
			break
		}

		merged := append(append([]byte{}, entryA...), entryB...)
		if !dyn.Insert(merged, nextID) {
			// Bucket at capacity for this prefix: this particular merge
			// cannot be realized in the 16-byte matcher's fixed bucket
			// budget. Training stops rather than silently skipping to
			// the next-best pair, keeping the merge sequence a simple
			// prefix of the unbounded variant's decisions.
			break
		}
		values = append(values, merged...)
		seps = append(seps, uint32(len(values)))
		nextID++
	}

	return &Dictionary{Values: values, Separators: seps, Table: dyn.Finalize()}, nil
}

func entryBytes(values []byte, seps []uint32, id uint32) []byte {
	return values[seps[id]:seps[id+1]]
}

// autoThreshold derives a default minimum-frequency threshold from the
// corpus size when the caller does not pin one explicitly, so that
// small corpora don't starve at a fixed high threshold and large
// corpora don't over-merge at a fixed low one. Clamped to a floor of 2.
func autoThreshold(dataLen int) int {
	mib := float64(dataLen) / (1024.0 * 1024.0)
	return int(math.Max(2.0, math.Log2(mib)))
}
