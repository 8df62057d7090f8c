// Command onpair-bench trains OnPair dictionaries, compresses JSON
// string datasets, and reports compression/decompression benchmarks.
//
// Usage:
//
//	onpair-bench train [-tau N] [-maxlen N] [-variant onpair|onpair16] -out <dict.bin> <dataset.json>
//	onpair-bench compress [-variant {onpair,onpair_bv,onpair16}] -out <container.bin> <dataset.json> <dict.bin>
//	onpair-bench bench [-variant {onpair,onpair_bv,onpair16}] -out <report.json> <dataset.json>
//
// Flags must come before the positional arguments: flag parsing stops
// at the first positional argument.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	onpair "github.com/seiflotfy/onpair-codec"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "train":
		err = runTrain(os.Args[2:])
	case "compress":
		err = runCompress(os.Args[2:])
	case "bench":
		err = runBench(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "onpair-bench: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: onpair-bench {train,compress,bench} ...")
}

func variantFromFlag(s string) (onpair.Variant, error) {
	switch s {
	case "onpair":
		return onpair.VariantE1, nil
	case "onpair16":
		return onpair.VariantE2, nil
	case "onpair_bv":
		return onpair.VariantE3, nil
	default:
		return 0, fmt.Errorf("unknown variant %q", s)
	}
}

func loadDataset(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var rows []string
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	return rows, nil
}

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	tau := fs.Int("tau", 0, "minimum pair frequency to merge (0 = spec default)")
	maxLen := fs.Int("maxlen", 0, "maximum entry length (0 = unbounded, 16 = OnPair16)")
	variant := fs.String("variant", "onpair", "onpair or onpair16")
	out := fs.String("out", "", "output dictionary path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || *out == "" {
		return fmt.Errorf("usage: onpair-bench train [-tau N] [-maxlen N] [-variant onpair|onpair16] -out <dict.bin> <dataset.json>")
	}
	if *variant != "onpair" && *variant != "onpair16" {
		return fmt.Errorf("unknown variant %q", *variant)
	}

	rows, err := loadDataset(fs.Arg(0))
	if err != nil {
		return err
	}

	resolvedMaxLen := *maxLen
	if *variant == "onpair16" {
		resolvedMaxLen = 16
	}

	var opts []onpair.Option
	if *tau > 0 {
		opts = append(opts, onpair.WithThreshold(*tau))
	}
	if resolvedMaxLen > 0 {
		opts = append(opts, onpair.WithMaxLen(resolvedMaxLen))
	}

	dict, err := onpair.Train(rows, opts...)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create dictionary file: %w", err)
	}
	defer f.Close()
	if _, err := dict.WriteTo(f); err != nil {
		return fmt.Errorf("write dictionary: %w", err)
	}
	fmt.Printf("trained %d entries into %s\n", dict.EntryCount(), *out)
	return nil
}

func runCompress(args []string) error {
	fs := flag.NewFlagSet("compress", flag.ExitOnError)
	variantFlag := fs.String("variant", "onpair", "onpair, onpair_bv, or onpair16")
	out := fs.String("out", "", "output container path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 || *out == "" {
		return fmt.Errorf("usage: onpair-bench compress [-variant {onpair,onpair_bv,onpair16}] -out <container.bin> <dataset.json> <dict.bin>")
	}

	rows, err := loadDataset(fs.Arg(0))
	if err != nil {
		return err
	}
	variant, err := variantFromFlag(*variantFlag)
	if err != nil {
		return err
	}

	dictBytes, err := os.ReadFile(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("read dictionary file: %w", err)
	}
	dict, err := onpair.ReadDictionaryFrom(bytes.NewReader(dictBytes))
	if err != nil {
		return fmt.Errorf("decode dictionary: %w", err)
	}

	container, err := dict.CompressAll(rows, variant)
	if err != nil {
		return fmt.Errorf("compress: %w", err)
	}

	containerFile, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create container file: %w", err)
	}
	defer containerFile.Close()
	if _, err := container.WriteTo(containerFile); err != nil {
		return fmt.Errorf("write container: %w", err)
	}
	fmt.Printf("compressed %d strings into %s\n", container.Len(), *out)
	return nil
}

// Report is the JSON document emitted by the bench subcommand, matching
// spec.md's reported-metrics list exactly.
type Report struct {
	Variant                     string  `json:"variant"`
	Strings                     int     `json:"strings"`
	OriginalBytes               int     `json:"original_bytes"`
	CompressedBytes             int     `json:"compressed_bytes"`
	CompressionRatio            float64 `json:"compression_ratio"`
	CompressionThroughputMiBs   float64 `json:"compression_throughput_mib_s"`
	DecompressionThroughputMiBs float64 `json:"decompression_throughput_mib_s"`
	AvgRandomAccessLatencyNs    float64 `json:"avg_random_access_latency_ns"`
}

func runBench(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	variantFlag := fs.String("variant", "onpair", "onpair, onpair_bv, or onpair16")
	out := fs.String("out", "", "output report.json path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || *out == "" {
		return fmt.Errorf("usage: onpair-bench bench [-variant {onpair,onpair_bv,onpair16}] -out <report.json> <dataset.json>")
	}

	rows, err := loadDataset(fs.Arg(0))
	if err != nil {
		return err
	}
	variant, err := variantFromFlag(*variantFlag)
	if err != nil {
		return err
	}

	originalBytes := 0
	for _, s := range rows {
		originalBytes += len(s)
	}

	var trainOpts []onpair.Option
	if variant == onpair.VariantE2 {
		trainOpts = append(trainOpts, onpair.WithMaxLen(16))
	}

	dict, err := onpair.Train(rows, trainOpts...)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	compressStart := time.Now()
	container, err := dict.CompressAll(rows, variant)
	if err != nil {
		return fmt.Errorf("compress: %w", err)
	}
	compressElapsed := time.Since(compressStart)

	var wireBuf bytes.Buffer
	if _, err := container.WriteTo(&wireBuf); err != nil {
		return fmt.Errorf("measure wire size: %w", err)
	}
	wireSize := wireBuf.Len()

	decompressStart := time.Now()
	decoded, err := container.DecompressAll()
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	decompressElapsed := time.Since(decompressStart)

	decodedBytes := 0
	for _, s := range decoded {
		decodedBytes += len(s)
	}

	randomAccessStart := time.Now()
	buf := make([]byte, 4096)
	for i := 0; i < container.Len(); i++ {
		if _, err := container.DecompressOne(i, buf); err != nil {
			return fmt.Errorf("random access string %d: %w", i, err)
		}
	}
	randomAccessElapsed := time.Since(randomAccessStart)

	var avgLatencyNs float64
	if container.Len() > 0 {
		avgLatencyNs = float64(randomAccessElapsed.Nanoseconds()) / float64(container.Len())
	}

	var ratio float64
	if wireSize > 0 {
		ratio = float64(originalBytes) / float64(wireSize)
	}

	report := Report{
		Variant:                     *variantFlag,
		Strings:                     len(rows),
		OriginalBytes:               originalBytes,
		CompressedBytes:             wireSize,
		CompressionRatio:            ratio,
		CompressionThroughputMiBs:   throughputMiBs(originalBytes, compressElapsed),
		DecompressionThroughputMiBs: throughputMiBs(decodedBytes, decompressElapsed),
		AvgRandomAccessLatencyNs:    avgLatencyNs,
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func throughputMiBs(n int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	mib := float64(n) / (1024.0 * 1024.0)
	return mib / elapsed.Seconds()
}
