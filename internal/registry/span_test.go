package registry

import (
	"errors"
	"reflect"
	"testing"

	"asebalink/internal/protocol"
)

func spanNode(t *testing.T) *Node {
	t.Helper()
	n := newNode(7, 5)
	n.ApplyDescription(protocol.Description{NumNamedVars: 5})
	for _, v := range []struct {
		name string
		size uint16
	}{
		{"a", 4},  // [0,4)
		{"b", 2},  // [4,6)
		{"c", 10}, // [6,16)
		{"d", 1},  // [16,17)
		{"e", 5},  // [17,22)
	} {
		if err := n.AddVariable(v.name, v.size); err != nil {
			t.Fatalf("add variable: %v", err)
		}
	}
	return n
}

func names(list ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, s := range list {
		set[s] = struct{}{}
	}
	return set
}

func TestSpanRangesFullCoverage(t *testing.T) {
	n := spanNode(t)
	got, err := n.SpanRanges(nil)
	if err != nil {
		t.Fatalf("span: %v", err)
	}
	if !reflect.DeepEqual(got, []Range{{Offset: 0, Count: 22}}) {
		t.Fatalf("full coverage mismatch: %v", got)
	}
}

func TestSpanRangesSingleVariable(t *testing.T) {
	n := spanNode(t)
	got, err := n.SpanRanges(names("c"))
	if err != nil {
		t.Fatalf("span: %v", err)
	}
	if !reflect.DeepEqual(got, []Range{{Offset: 6, Count: 10}}) {
		t.Fatalf("single variable mismatch: %v", got)
	}
}

func TestSpanRangesMergesAdjacent(t *testing.T) {
	n := spanNode(t)
	got, err := n.SpanRanges(names("a", "b"))
	if err != nil {
		t.Fatalf("span: %v", err)
	}
	if !reflect.DeepEqual(got, []Range{{Offset: 0, Count: 6}}) {
		t.Fatalf("adjacent merge mismatch: %v", got)
	}
}

func TestSpanRangesKeepsGapsSeparate(t *testing.T) {
	n := spanNode(t)
	got, err := n.SpanRanges(names("a", "d"))
	if err != nil {
		t.Fatalf("span: %v", err)
	}
	want := []Range{{Offset: 0, Count: 4}, {Offset: 16, Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("gap handling mismatch: got=%v want=%v", got, want)
	}
}

func TestSpanRangesMergesAcrossAdjacency(t *testing.T) {
	n := spanNode(t)
	got, err := n.SpanRanges(names("d", "e"))
	if err != nil {
		t.Fatalf("span: %v", err)
	}
	if !reflect.DeepEqual(got, []Range{{Offset: 16, Count: 6}}) {
		t.Fatalf("merge mismatch: %v", got)
	}
}

func TestSubtractSpanSplitsOverlap(t *testing.T) {
	got := subtractSpan([]Range{{Offset: 0, Count: 10}}, Range{Offset: 3, Count: 4})
	want := []Range{{Offset: 0, Count: 3}, {Offset: 7, Count: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("split mismatch: got=%v want=%v", got, want)
	}
	if rest := subtractSpan(got, Range{Offset: 0, Count: 10}); rest != nil {
		t.Fatalf("covering subtraction must empty the list: %v", rest)
	}
}

func TestSpanRangesUnknownName(t *testing.T) {
	n := spanNode(t)
	if _, err := n.SpanRanges(names("a", "zz")); !errors.Is(err, ErrUnknownVariable) {
		t.Fatalf("expected ErrUnknownVariable, got %v", err)
	}
}
