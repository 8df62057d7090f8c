// Package parser implements the encode-time greedy longest-prefix-match
// parse: given a frozen symbol table, it turns a string into the
// unique token-ID stream where every step consumes the longest
// dictionary entry matching the current suffix, never crossing a
// string boundary.
package parser

// Matcher is the longest-prefix-match contract parser depends on. Both
// symtab.Table and symtab.Table16/StaticTable16 satisfy it.
type Matcher interface {
	LongestPrefix(data []byte) (id uint32, length int, ok bool)
}

// Result holds the concatenated token stream for a whole corpus plus
// the per-string boundaries into it (boundaries[i]..boundaries[i+1] is
// string i's tokens) and a parallel marker of which token positions
// begin a new string, used by the trainer to exclude cross-string
// pairs from its frequency counts.
type Result struct {
	Tokens      []uint32
	Boundaries  []int // len(strings)+1, prefix sum over token counts
	StringStart []bool
}

// Parse runs greedy LPM over data, where data is the concatenation of
// every input string and ends marks each string's end offset (ends[0]
// == 0, a prefix-sum array of length len(strings)+1). A pair spanning
// the last token of one string and the first token of the next is
// never formed, since each string is parsed independently.
func Parse(data []byte, ends []int, m Matcher) Result {
	res := Result{Boundaries: make([]int, 1, len(ends))}

	for i := 0; i+1 < len(ends); i++ {
		start, end := ends[i], ends[i+1]
		pos := start
		first := true
		for pos < end {
			id, length, ok := m.LongestPrefix(data[pos:end])
			if !ok {
				break
			}
			res.Tokens = append(res.Tokens, id)
			res.StringStart = append(res.StringStart, first)
			first = false
			pos += length
		}
		res.Boundaries = append(res.Boundaries, len(res.Tokens))
	}

	return res
}

// FlattenStrings concatenates strings into one byte buffer alongside a
// prefix-sum array of string end offsets (length len(strings)+1,
// starting at 0), the shape every parser/trainer entry point consumes.
func FlattenStrings(strings []string) ([]byte, []int) {
	total := 0
	for _, s := range strings {
		total += len(s)
	}

	data := make([]byte, 0, total)
	ends := make([]int, 1, len(strings)+1)
	for _, s := range strings {
		data = append(data, s...)
		ends = append(ends, len(data))
	}
	return data, ends
}
