package registry

import (
	"fmt"
	"sort"
)

// Range is one contiguous run of variable memory, in words.
type Range struct {
	Offset uint16
	Count  uint16
}

// SpanRanges translates a set of variable names into the minimal list of
// contiguous ranges covering exactly those variables. Adjacent and
// overlapping descriptors coalesce into a single range, so sparse
// coverage never drags unrelated memory into a refresh request.
// A nil or empty set means the whole variable memory.
func (n *Node) SpanRanges(coverage map[string]struct{}) ([]Range, error) {
	if len(coverage) == 0 {
		if n.totalSize == 0 {
			return nil, nil
		}
		return []Range{{Offset: 0, Count: n.totalSize}}, nil
	}

	spans := make([]Range, 0, len(coverage))
	for name := range coverage {
		i, ok := n.byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, name)
		}
		d := n.descriptors[i]
		spans = append(spans, Range{Offset: d.Offset, Count: d.Size})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Offset < spans[j].Offset })

	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.Offset <= last.Offset+last.Count {
			if end := s.Offset + s.Count; end > last.Offset+last.Count {
				last.Count = end - last.Offset
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged, nil
}

// subtractSpan removes s from every range in the list, splitting ranges
// it lands inside.
func subtractSpan(ranges []Range, s Range) []Range {
	sEnd := s.Offset + s.Count
	var out []Range
	for _, r := range ranges {
		rEnd := r.Offset + r.Count
		if sEnd <= r.Offset || s.Offset >= rEnd {
			out = append(out, r)
			continue
		}
		if r.Offset < s.Offset {
			out = append(out, Range{Offset: r.Offset, Count: s.Offset - r.Offset})
		}
		if rEnd > sEnd {
			out = append(out, Range{Offset: sEnd, Count: rEnd - sEnd})
		}
	}
	return out
}
