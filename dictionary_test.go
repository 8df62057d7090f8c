package onpair

import (
	"bytes"
	"testing"
)

func sampleStrings() []string {
	return []string{
		"user_000001",
		"user_000002",
		"user_000003",
		"admin_001",
		"user_000004",
	}
}

func TestTrainAndCompressAllVariants(t *testing.T) {
	strings := sampleStrings()

	dict, err := Train(strings, WithThreshold(1))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	for _, variant := range []Variant{VariantE1, VariantE3} {
		container, err := dict.CompressAll(strings, variant)
		if err != nil {
			t.Fatalf("CompressAll(%v): %v", variant, err)
		}
		buffer := make([]byte, 256)
		for i, expected := range strings {
			n, err := container.DecompressOne(i, buffer)
			if err != nil {
				t.Fatalf("DecompressOne(%v, %d): %v", variant, i, err)
			}
			if got := string(buffer[:n]); got != expected {
				t.Errorf("variant %v, string %d: got %q, want %q", variant, i, got, expected)
			}
		}
	}
}

func TestOnPair16BasicCompression(t *testing.T) {
	strings := sampleStrings()

	dict, err := Train(strings, WithThreshold(1), WithMaxLen(16))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	for _, variant := range []Variant{VariantE2, VariantE4} {
		container, err := dict.CompressAll(strings, variant)
		if err != nil {
			t.Fatalf("CompressAll(%v): %v", variant, err)
		}
		buffer := make([]byte, 256)
		for i, expected := range strings {
			n, err := container.DecompressOne(i, buffer)
			if err != nil {
				t.Fatalf("DecompressOne(%v, %d): %v", variant, i, err)
			}
			if got := string(buffer[:n]); got != expected {
				t.Errorf("variant %v, string %d: got %q, want %q", variant, i, got, expected)
			}
		}
	}
}

func TestEmptyStrings(t *testing.T) {
	strings := []string{"", "test", "", "data"}

	dict, err := Train(strings, WithThreshold(1))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	container, err := dict.CompressAll(strings, VariantE1)
	if err != nil {
		t.Fatalf("CompressAll: %v", err)
	}

	buffer := make([]byte, 64)
	for i, expected := range strings {
		n, err := container.DecompressOne(i, buffer)
		if err != nil {
			t.Fatalf("DecompressOne(%d): %v", i, err)
		}
		if got := string(buffer[:n]); got != expected {
			t.Errorf("string %d: got %q, want %q", i, got, expected)
		}
	}
}

func TestDecompressAll(t *testing.T) {
	strings := sampleStrings()

	dict, err := Train(strings, WithThreshold(1))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	container, err := dict.CompressAll(strings, VariantE1)
	if err != nil {
		t.Fatalf("CompressAll: %v", err)
	}

	decoded, err := container.DecompressAll()
	if err != nil {
		t.Fatalf("DecompressAll: %v", err)
	}
	if len(decoded) != len(strings) {
		t.Fatalf("got %d strings, want %d", len(decoded), len(strings))
	}
	for i, expected := range strings {
		if decoded[i] != expected {
			t.Errorf("string %d: got %q, want %q", i, decoded[i], expected)
		}
	}
}

func TestDecompressOneIndexOutOfRange(t *testing.T) {
	strings := sampleStrings()
	dict, err := Train(strings, WithThreshold(1))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	container, err := dict.CompressAll(strings, VariantE1)
	if err != nil {
		t.Fatalf("CompressAll: %v", err)
	}

	buffer := make([]byte, 64)
	if _, err := container.DecompressOne(len(strings), buffer); err == nil {
		t.Fatalf("expected an error decompressing an out-of-range index")
	}
}

func TestContainerWireRoundTrip(t *testing.T) {
	strings := sampleStrings()
	dict, err := Train(strings, WithThreshold(1))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	container, err := dict.CompressAll(strings, VariantE1)
	if err != nil {
		t.Fatalf("CompressAll: %v", err)
	}

	var buf bytes.Buffer
	if _, err := container.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	loaded, err := ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	decoded, err := loaded.DecompressAll()
	if err != nil {
		t.Fatalf("DecompressAll: %v", err)
	}
	for i, expected := range strings {
		if decoded[i] != expected {
			t.Errorf("string %d: got %q, want %q", i, decoded[i], expected)
		}
	}
}

func TestContainerWireRoundTripE3(t *testing.T) {
	strings := sampleStrings()
	dict, err := Train(strings, WithThreshold(1))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	container, err := dict.CompressAll(strings, VariantE3)
	if err != nil {
		t.Fatalf("CompressAll: %v", err)
	}

	var buf bytes.Buffer
	if _, err := container.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	loaded, err := ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	decoded, err := loaded.DecompressAll()
	if err != nil {
		t.Fatalf("DecompressAll: %v", err)
	}
	for i, expected := range strings {
		if decoded[i] != expected {
			t.Errorf("string %d: got %q, want %q", i, decoded[i], expected)
		}
	}
}

func TestDictionaryWireRoundTrip(t *testing.T) {
	strings := sampleStrings()
	dict, err := Train(strings, WithThreshold(1), WithMaxLen(16))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	var buf bytes.Buffer
	if _, err := dict.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	loaded, err := ReadDictionaryFrom(&buf)
	if err != nil {
		t.Fatalf("ReadDictionaryFrom: %v", err)
	}
	if loaded.EntryCount() != dict.EntryCount() {
		t.Fatalf("entry count = %d, want %d", loaded.EntryCount(), dict.EntryCount())
	}

	container, err := loaded.CompressAll(strings, VariantE2)
	if err != nil {
		t.Fatalf("CompressAll: %v", err)
	}
	buffer := make([]byte, 256)
	for i, expected := range strings {
		n, err := container.DecompressOne(i, buffer)
		if err != nil {
			t.Fatalf("DecompressOne(%d): %v", i, err)
		}
		if got := string(buffer[:n]); got != expected {
			t.Errorf("string %d: got %q, want %q", i, got, expected)
		}
	}
}

func TestCompressSingleStringE1(t *testing.T) {
	strings := sampleStrings()
	dict, err := Train(strings, WithThreshold(1))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	for _, s := range strings {
		encoded := dict.Compress([]byte(s), VariantE1)
		container, err := dict.CompressAll([]string{s}, VariantE1)
		if err != nil {
			t.Fatalf("CompressAll: %v", err)
		}
		buffer := make([]byte, 64)
		n, err := container.DecompressOne(0, buffer)
		if err != nil {
			t.Fatalf("DecompressOne: %v", err)
		}
		if string(buffer[:n]) != s {
			t.Fatalf("round trip mismatch for %q", s)
		}
		if len(encoded) == 0 && len(s) > 0 {
			t.Fatalf("Compress returned an empty payload for non-empty string %q", s)
		}
	}
}
