package parser

import (
	"reflect"
	"testing"

	"github.com/seiflotfy/onpair-codec/internal/symtab"
)

func literalTable() *symtab.Table {
	t := symtab.NewTable()
	for b := 0; b < 256; b++ {
		t.Insert([]byte{byte(b)}, uint32(b))
	}
	return t
}

func TestParseLiteralsOnly(t *testing.T) {
	data, ends := FlattenStrings([]string{"ab", "c"})
	res := Parse(data, ends, literalTable())

	want := []uint32{'a', 'b', 'c'}
	if !reflect.DeepEqual(res.Tokens, want) {
		t.Fatalf("tokens = %v, want %v", res.Tokens, want)
	}
	if !reflect.DeepEqual(res.Boundaries, []int{0, 2, 3}) {
		t.Fatalf("boundaries = %v", res.Boundaries)
	}
	if !reflect.DeepEqual(res.StringStart, []bool{true, false, true}) {
		t.Fatalf("stringStart = %v", res.StringStart)
	}
}

func TestParseEmptyStringContributesNoTokens(t *testing.T) {
	data, ends := FlattenStrings([]string{"", "a", ""})
	res := Parse(data, ends, literalTable())

	if len(res.Tokens) != 1 {
		t.Fatalf("expected 1 token total, got %d", len(res.Tokens))
	}
	if !reflect.DeepEqual(res.Boundaries, []int{0, 0, 1, 1}) {
		t.Fatalf("boundaries = %v", res.Boundaries)
	}
}

func TestParseUsesLearnedEntry(t *testing.T) {
	tab := literalTable()
	tab.Insert([]byte("ab"), 256)

	data, ends := FlattenStrings([]string{"abc"})
	res := Parse(data, ends, tab)

	want := []uint32{256, 'c'}
	if !reflect.DeepEqual(res.Tokens, want) {
		t.Fatalf("tokens = %v, want %v", res.Tokens, want)
	}
}
