package train

import (
	"context"
	"testing"

	"github.com/seiflotfy/onpair-codec/internal/parser"
)

func TestTrainMergesFrequentPair(t *testing.T) {
	strings := make([]string, 10)
	for i := range strings {
		strings[i] = "abc"
	}
	data, ends := parser.FlattenStrings(strings)

	dict, err := Train(context.Background(), data, ends, Params{Threshold: 3})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(dict.Separators) <= 257 {
		t.Fatalf("expected at least one learned entry beyond the 256 literals, got %d entries", len(dict.Separators)-1)
	}

	for _, s := range strings {
		res := parser.Parse([]byte(s), []int{0, len(s)}, dict.Table)
		var out []byte
		for _, id := range res.Tokens {
			start, end := dict.Separators[id], dict.Separators[id+1]
			out = append(out, dict.Values[start:end]...)
		}
		if string(out) != s {
			t.Fatalf("round-trip mismatch: got %q want %q", out, s)
		}
	}
}

func TestTrainEmptyAndShortStrings(t *testing.T) {
	strings := []string{"", "a", "ab", "abc"}
	data, ends := parser.FlattenStrings(strings)

	dict, err := Train(context.Background(), data, ends, Params{Threshold: 1, MaxLen: 16})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	res := parser.Parse(data, ends, dict.Table)
	if res.Boundaries[0] != res.Boundaries[1] {
		t.Fatalf("expected empty string to produce zero tokens")
	}
	for i := range res.Boundaries {
		if i == 0 {
			continue
		}
		if res.Boundaries[i] < res.Boundaries[i-1] {
			t.Fatalf("boundaries must be monotonic, got %v", res.Boundaries)
		}
	}
}

func TestTrainHighThresholdLearnsNothing(t *testing.T) {
	strings := make([]string, 16)
	for i := range strings {
		strings[i] = string(rune('a'+i%26)) + "string-of-twenty-ch"
	}
	data, ends := parser.FlattenStrings(strings)

	dict, err := Train(context.Background(), data, ends, Params{Threshold: 100, MaxLen: 16})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(dict.Separators) != 257 {
		t.Fatalf("expected exactly the 256 literals (257 separators), got %d", len(dict.Separators))
	}
}

func TestTrain16NeverExceedsLengthCap(t *testing.T) {
	strings := []string{"aaaaaaaa", "aaaaaaaa"}
	data, ends := parser.FlattenStrings(strings)

	dict, err := Train(context.Background(), data, ends, Params{Threshold: 1, MaxLen: 16})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	for id := 0; id+1 < len(dict.Separators); id++ {
		length := dict.Separators[id+1] - dict.Separators[id]
		if length > 16 {
			t.Fatalf("entry %d has length %d, exceeding the 16-byte cap", id, length)
		}
	}
}
