package onpair

import "github.com/seiflotfy/onpair-codec/internal/train"

// Config holds configuration for Train.
type Config struct {
	Threshold           int  // minimum pair frequency to justify a merge (0 = spec default, 10)
	AutoThreshold       bool // derive the threshold from corpus size instead of using Threshold
	MaxLen              int  // maximum learned-entry byte length (0 = unbounded, 16 = OnPair16)
	MaxEntries          int  // dictionary capacity (0 = default, 65536)
	TrainingSampleBytes int  // maximum sampled training bytes when Subsample is set (0 = default 1 MiB)
	Subsample           bool // restrict training to a deterministic subsample of the corpus
	TemplateStratified  bool // bucket strings by structural template before subsampling
	TemplateMaxClusters int  // maximum number of template clusters (0 = default)
}

// Option is a functional option for configuring Train.
type Option func(*Config)

// WithThreshold sets a fixed minimum pair frequency for merges.
func WithThreshold(tau int) Option {
	return func(c *Config) { c.Threshold = tau }
}

// WithAutoThreshold derives the threshold from corpus size rather than
// using a fixed value.
func WithAutoThreshold() Option {
	return func(c *Config) { c.AutoThreshold = true }
}

// WithMaxLen caps every learned dictionary entry's byte length. Passing
// 16 selects the OnPair16 matcher and its length-capped wire variants.
func WithMaxLen(n int) Option {
	return func(c *Config) { c.MaxLen = n }
}

// WithMaxEntries caps the dictionary's entry count.
func WithMaxEntries(n int) Option {
	return func(c *Config) { c.MaxEntries = n }
}

// WithSubsample restricts training to a deterministic byte-budgeted
// subsample of the corpus. maxBytes <= 0 selects the default budget.
func WithSubsample(maxBytes int) Option {
	return func(c *Config) {
		c.Subsample = true
		c.TrainingSampleBytes = maxBytes
	}
}

// WithTemplateStratifiedSampling enables template-normalized stratified
// subsampling (implies WithSubsample). maxClusters <= 0 uses the
// default cluster cap.
func WithTemplateStratifiedSampling(maxClusters int) Option {
	return func(c *Config) {
		c.Subsample = true
		c.TemplateStratified = true
		c.TemplateMaxClusters = maxClusters
	}
}

func (c Config) toParams() train.Params {
	return train.Params{
		Threshold:     c.Threshold,
		AutoThreshold: c.AutoThreshold,
		MaxLen:        c.MaxLen,
		MaxEntries:    c.MaxEntries,
		Subsample:     c.Subsample,
		Sample: train.SampleParams{
			MaxBytes:            c.TrainingSampleBytes,
			TemplateStratified:  c.TemplateStratified,
			TemplateMaxClusters: c.TemplateMaxClusters,
		},
	}
}

// Variant selects one of the four wire encodings used by Compress and
// CompressAll.
type Variant uint8

const (
	VariantE1 Variant = iota // VBE, unlimited entry length
	VariantE2                // VBE, entries capped at 16 bytes
	VariantE3                // VBE with bitvector-separated continuation bits
	VariantE4                // explicit 2-byte IDs, entries capped at 16 bytes
)

func (v Variant) String() string {
	switch v {
	case VariantE1:
		return "onpair"
	case VariantE2:
		return "onpair16"
	case VariantE3:
		return "onpair_bv"
	case VariantE4:
		return "onpair16_explicit"
	default:
		return "unknown"
	}
}
