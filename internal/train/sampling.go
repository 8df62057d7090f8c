package train

import (
	"sort"

	"github.com/seiflotfy/onpair-codec/internal/xrand"
)

const (
	defaultTrainingSampleBytes = 1024 * 1024
	defaultShapeMaxClusters    = 2048
	shapeMaxRuns               = 16
	shapeOverflowKey           = "\x00overflow"
	shuffleSeed                = 42
)

// SampleParams configures corpus subsampling ahead of training.
// Whether subsampling runs at all is decided by Params.Subsample; a
// zero SampleParams samples plainly by bytes under the default budget.
type SampleParams struct {
	MaxBytes            int  // 0 selects defaultTrainingSampleBytes
	TemplateStratified  bool // bucket by structural shape before sampling
	TemplateMaxClusters int  // 0 selects defaultShapeMaxClusters
}

// ShuffledIndices returns a deterministic (seed-fixed) permutation of
// [0, n), used both as the training visitation order and as the pool
// subsampling draws from.
func ShuffledIndices(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	xrand.New(shuffleSeed).Shuffle(indices)
	return indices
}

// Sample selects which strings (by index into ends, a prefix-sum array
// over string lengths) participate in training, bounding total
// training bytes to roughly the budget (p.MaxBytes, or the 1 MiB
// default when it is 0). A corpus already within the budget returns
// every index.
func Sample(data []byte, ends []int, order []int, p SampleParams) (indices []int, bytesUsed int) {
	limit := p.MaxBytes
	if limit <= 0 {
		limit = defaultTrainingSampleBytes
	}
	if len(data) <= limit {
		total := 0
		for _, idx := range order {
			total += ends[idx+1] - ends[idx]
		}
		return order, total
	}

	if p.TemplateStratified {
		maxClusters := p.TemplateMaxClusters
		if maxClusters <= 0 {
			maxClusters = defaultShapeMaxClusters
		}
		return shapeStratifiedSample(data, ends, order, limit, maxClusters)
	}
	return sampleByBytes(order, ends, limit)
}

func sampleByBytes(order []int, ends []int, limit int) ([]int, int) {
	if limit <= 0 || len(order) == 0 {
		return order, 0
	}
	total := 0
	for i, idx := range order {
		total += ends[idx+1] - ends[idx]
		if total >= limit {
			return order[:i+1], total
		}
	}
	return order, total
}

// shapeStratifiedSample buckets strings by a coarse byte-class shape
// fingerprint (so "user_000123" and "user_000987" land in the same
// bucket while "admin_001" does not), then draws from every bucket
// under a water-filling allocation: buckets below their max-min fair
// share keep everything, buckets above it are trimmed down, so a rare
// shape never gets crowded out by a dominant one when the corpus is
// far larger than the sample budget.
func shapeStratifiedSample(data []byte, ends []int, order []int, limit, maxClusters int) ([]int, int) {
	groups := make(map[string][]int, 256)
	var groupKeys []string

	for _, idx := range order {
		start, end := ends[idx], ends[idx+1]
		key := shapeSignature(data[start:end])

		if _, exists := groups[key]; !exists {
			if maxClusters > 0 && len(groups) >= maxClusters {
				key = shapeOverflowKey
				if _, has := groups[key]; !has {
					groups[key] = nil
					groupKeys = append(groupKeys, key)
				}
			} else {
				groups[key] = nil
				groupKeys = append(groupKeys, key)
			}
		}
		groups[key] = append(groups[key], idx)
	}

	if len(groupKeys) == 0 {
		return sampleByBytes(order, ends, limit)
	}

	totalRows := len(order)
	totalBytes := 0
	for _, idx := range order {
		totalBytes += ends[idx+1] - ends[idx]
	}
	avgLen := float64(totalBytes) / float64(totalRows)
	targetRows := int(float64(limit) / avgLen)
	if targetRows < 1 {
		targetRows = 1
	}
	if targetRows > totalRows {
		targetRows = totalRows
	}

	quota := waterFillQuotas(groups, groupKeys, targetRows)

	var selected []int
	usedBytes := 0
	for _, key := range groupKeys {
		group := groups[key]
		n := quota[key]
		if n <= 0 {
			continue
		}
		for _, idx := range evenlySpacedPick(group, n) {
			selected = append(selected, idx)
			usedBytes += ends[idx+1] - ends[idx]
		}
	}

	if len(selected) == 0 {
		return sampleByBytes(order, ends, limit)
	}
	return selected, usedBytes
}

// waterFillQuotas distributes target across the named groups under a
// max-min fair share: in each round every group still below the
// current per-group share absorbs as much of it as its remaining size
// allows, and groups that saturate drop out of the next round. Each
// round visits groups smallest-remaining-capacity first; when the
// budget left is smaller than the number of groups, the leftover units
// go to the groups visited first, and the order among groups of equal
// remaining capacity is not defined.
func waterFillQuotas(groups map[string][]int, keys []string, target int) map[string]int {
	quota := make(map[string]int, len(keys))
	remaining := make([]string, len(keys))
	copy(remaining, keys)
	budget := target

	for budget > 0 && len(remaining) > 0 {
		sort.Slice(remaining, func(i, j int) bool {
			return len(groups[remaining[i]])-quota[remaining[i]] < len(groups[remaining[j]])-quota[remaining[j]]
		})

		share := budget / len(remaining)
		if share < 1 {
			share = 1
		}

		progressed := false
		var next []string
		for _, key := range remaining {
			capacity := len(groups[key]) - quota[key]
			if capacity <= 0 {
				continue
			}
			give := share
			if give > capacity {
				give = capacity
			}
			if give > budget {
				give = budget
			}
			if give <= 0 {
				next = append(next, key)
				continue
			}
			quota[key] += give
			budget -= give
			progressed = true
			if quota[key] < len(groups[key]) {
				next = append(next, key)
			}
			if budget <= 0 {
				break
			}
		}
		if !progressed {
			break
		}
		remaining = next
	}
	return quota
}

// evenlySpacedPick draws n indices from group at a fixed stride rather
// than taking its first n entries, so a long bucket contributes
// examples from across its whole span instead of only its earliest
// occurrences in visitation order.
func evenlySpacedPick(group []int, n int) []int {
	if n >= len(group) {
		return group
	}
	if n <= 0 {
		return nil
	}
	picked := make([]int, 0, n)
	stride := float64(len(group)) / float64(n)
	for i := 0; i < n; i++ {
		pos := int(float64(i) * stride)
		if pos >= len(group) {
			pos = len(group) - 1
		}
		picked = append(picked, group[pos])
	}
	return picked
}

// shapeSignature reduces a string to a run-length-encoded byte-class
// fingerprint: consecutive digits, letters, and separator punctuation
// collapse into one symbol each, with run lengths bucketed so
// "user_001" and "user_999" share a signature while "user_1" does not.
// The fingerprint is capped at shapeMaxRuns symbols so pathologically
// long strings don't each mint their own singleton bucket.
func shapeSignature(s []byte) string {
	if len(s) == 0 {
		return ""
	}
	sig := make([]byte, 0, shapeMaxRuns*2)
	runs := 0
	i := 0
	for i < len(s) && runs < shapeMaxRuns {
		class := byteClass(s[i])
		runStart := i
		for i < len(s) && byteClass(s[i]) == class {
			i++
		}
		sig = append(sig, class, runLengthBucket(i-runStart))
		runs++
	}
	if i < len(s) {
		sig = append(sig, '+')
	}
	return string(sig)
}

func runLengthBucket(n int) byte {
	switch {
	case n <= 1:
		return '1'
	case n <= 2:
		return '2'
	case n <= 4:
		return '4'
	case n <= 8:
		return '8'
	default:
		return '9'
	}
}

func byteClass(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return 'd'
	case (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z'):
		return 'a'
	case b == '-' || b == '_' || b == '.' || b == ':' || b == '/':
		return 's'
	default:
		return 'o'
	}
}
