package registry

import (
	"errors"
	"reflect"
	"testing"

	"asebalink/internal/protocol"
)

func describedNode(t *testing.T) *Node {
	t.Helper()
	n := newNode(7, 5)
	n.ApplyDescription(protocol.Description{
		NodeName:     "thymio-II",
		NumNamedVars: 3,
	})
	for _, v := range []struct {
		name string
		size uint16
	}{
		{"event.args", 10},
		{"prox.horizontal", 7},
		{"leds.top", 3},
	} {
		if err := n.AddVariable(v.name, v.size); err != nil {
			t.Fatalf("add variable %s: %v", v.name, err)
		}
	}
	return n
}

func TestDescriptorOffsetsFollowArrivalOrder(t *testing.T) {
	n := describedNode(t)
	d, err := n.Descriptor("prox.horizontal")
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	if d.Offset != 10 || d.Size != 7 {
		t.Fatalf("descriptor mismatch: %+v", d)
	}
	if n.TotalSize() != 20 {
		t.Fatalf("total size: got %d want 20", n.TotalSize())
	}
	if n.State() != Described {
		t.Fatalf("expected Described after last descriptor, got %s", n.State())
	}
}

func TestAddVariableRejectsDuplicateName(t *testing.T) {
	n := newNode(7, 5)
	n.ApplyDescription(protocol.Description{NumNamedVars: 2})
	if err := n.AddVariable("speed", 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := n.AddVariable("speed", 2); !errors.Is(err, ErrDuplicateVariable) {
		t.Fatalf("expected ErrDuplicateVariable, got %v", err)
	}
}

func TestValuesBeforeDescriptionFails(t *testing.T) {
	n := newNode(7, 5)
	if _, err := n.Values("speed"); !errors.Is(err, ErrNotDescribed) {
		t.Fatalf("expected ErrNotDescribed, got %v", err)
	}
}

func TestValuesUnknownVariable(t *testing.T) {
	n := describedNode(t)
	if _, err := n.Values("no.such"); !errors.Is(err, ErrUnknownVariable) {
		t.Fatalf("expected ErrUnknownVariable, got %v", err)
	}
}

func TestSetValuesLengthMismatch(t *testing.T) {
	n := describedNode(t)
	if _, err := n.SetValues("leds.top", []int16{1, 2}); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestSetValuesVisibleImmediately(t *testing.T) {
	n := describedNode(t)
	if _, err := n.SetValues("leds.top", []int16{0, 0, 32}); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := n.Values("leds.top")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got, []int16{0, 0, 32}) {
		t.Fatalf("read-after-write mismatch: %v", got)
	}
}

func TestApplyVariablesAtomicCommitAndCompletion(t *testing.T) {
	n := describedNode(t)
	n.ExpectRefresh([]Range{{Offset: 10, Count: 7}})

	done, err := n.ApplyVariables(10, []int16{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if done {
		t.Fatalf("partial span must not complete the cycle")
	}
	done, err = n.ApplyVariables(14, []int16{5, 6, 7})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !done {
		t.Fatalf("span reaching expected end must complete the cycle")
	}
	got, err := n.Values("prox.horizontal")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got, []int16{1, 2, 3, 4, 5, 6, 7}) {
		t.Fatalf("values mismatch: %v", got)
	}
}

func TestApplyVariablesOutOfOrderAnswers(t *testing.T) {
	n := describedNode(t)
	n.ExpectRefresh([]Range{{Offset: 0, Count: 10}, {Offset: 17, Count: 3}})

	// Answers may land in any order; only full coverage completes.
	done, err := n.ApplyVariables(17, []int16{1, 2, 3})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if done {
		t.Fatalf("later span alone must not complete the cycle")
	}
	done, err = n.ApplyVariables(0, make([]int16, 10))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !done {
		t.Fatalf("covering every requested span must complete the cycle")
	}
}

func TestApplyVariablesUnsolicitedNeverCompletes(t *testing.T) {
	n := describedNode(t)
	done, err := n.ApplyVariables(0, []int16{1, 2})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if done {
		t.Fatalf("a push outside any refresh cycle must not complete one")
	}
}

func TestApplyVariablesOutOfRange(t *testing.T) {
	n := describedNode(t)
	if _, err := n.ApplyVariables(18, []int16{1, 2, 3}); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	// A rejected run must not be partially applied.
	got, err := n.Values("leds.top")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got, []int16{0, 0, 0}) {
		t.Fatalf("rejected apply leaked into cache: %v", got)
	}
}

func TestValuesReturnsCopy(t *testing.T) {
	n := describedNode(t)
	got, err := n.Values("leds.top")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got[0] = 99
	again, _ := n.Values("leds.top")
	if again[0] != 0 {
		t.Fatalf("Values must copy out of the cache")
	}
}

func TestRegistryRediscoveryReplacesLostNode(t *testing.T) {
	r := New()
	n, fresh := r.Register(7, 5)
	if !fresh {
		t.Fatalf("first register must create the node")
	}
	if _, again := r.Register(7, 5); again {
		t.Fatalf("register of a live node must not replace it")
	}
	n.MarkLost()
	replacement, fresh := r.Register(7, 6)
	if !fresh || replacement == n {
		t.Fatalf("rediscovery of a lost node must replace it")
	}
	if replacement.Version != 6 {
		t.Fatalf("replacement keeps new version, got %d", replacement.Version)
	}
}

func TestRegistryLookupUnknownNode(t *testing.T) {
	r := New()
	if _, err := r.Lookup(9); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
}
