package vbe

import "testing"

func TestVBERoundTrip(t *testing.T) {
	tokens := []uint32{0, 1, 127, 128, 16383, 16384, 65535}
	payload := EncodeVBE(tokens)
	got, err := DecodeVBE(payload)
	if err != nil {
		t.Fatalf("DecodeVBE: %v", err)
	}
	if len(got) != len(tokens) {
		t.Fatalf("got %v, want %v", got, tokens)
	}
	for i := range tokens {
		if got[i] != tokens[i] {
			t.Fatalf("token %d: got %d, want %d", i, got[i], tokens[i])
		}
	}
}

func TestVBECostPerSpecBreakpoints(t *testing.T) {
	cases := []struct {
		id       uint32
		wantCost int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{65535, 3},
	}
	for _, c := range cases {
		if got := len(EncodeVBE([]uint32{c.id})); got != c.wantCost {
			t.Errorf("id %d: cost = %d, want %d", c.id, got, c.wantCost)
		}
	}
}

func TestDecodeVBETruncated(t *testing.T) {
	if _, err := DecodeVBE([]byte{0x80}); err == nil {
		t.Fatalf("expected error decoding a truncated continuation byte")
	}
}

func TestE3RoundTrip(t *testing.T) {
	tokens := []uint32{0, 1, 127, 128, 16383, 16384, 65535, 42}
	payload, cont := EncodeE3(tokens)
	got, err := DecodeE3(payload, cont)
	if err != nil {
		t.Fatalf("DecodeE3: %v", err)
	}
	if len(got) != len(tokens) {
		t.Fatalf("got %v, want %v", got, tokens)
	}
	for i := range tokens {
		if got[i] != tokens[i] {
			t.Fatalf("token %d: got %d, want %d", i, got[i], tokens[i])
		}
	}
}

func TestE3MatchesVBEPayloadBytesMinusHighBit(t *testing.T) {
	tokens := []uint32{300, 70000 & 0xFFFF}
	vbePayload := EncodeVBE(tokens)
	e3Payload, _ := EncodeE3(tokens)
	if len(vbePayload) != len(e3Payload) {
		t.Fatalf("E1 and E3 payload lengths differ: %d vs %d", len(vbePayload), len(e3Payload))
	}
	for i := range vbePayload {
		if vbePayload[i]&0x7F != e3Payload[i] {
			t.Fatalf("byte %d: E1 payload bits %x, E3 payload byte %x", i, vbePayload[i]&0x7F, e3Payload[i])
		}
	}
}

func TestE4RoundTrip(t *testing.T) {
	tokens := []uint32{0, 1, 255, 256, 65535}
	payload, err := EncodeE4(tokens)
	if err != nil {
		t.Fatalf("EncodeE4: %v", err)
	}
	if len(payload) != len(tokens)*2 {
		t.Fatalf("payload length = %d, want %d", len(payload), len(tokens)*2)
	}
	got, err := DecodeE4(payload)
	if err != nil {
		t.Fatalf("DecodeE4: %v", err)
	}
	for i := range tokens {
		if got[i] != tokens[i] {
			t.Fatalf("token %d: got %d, want %d", i, got[i], tokens[i])
		}
	}
}

func TestE4RejectsOutOfRangeID(t *testing.T) {
	if _, err := EncodeE4([]uint32{0x10000}); err == nil {
		t.Fatalf("expected error encoding a token ID beyond the E4 16-bit range")
	}
}

func TestE4RejectsOddLengthPayload(t *testing.T) {
	if _, err := DecodeE4([]byte{0x01}); err == nil {
		t.Fatalf("expected error decoding an odd-length E4 payload")
	}
}
