package registry

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"asebalink/internal/protocol"
)

// State is the node lifecycle within one connection.
type State int

const (
	// Discovered: NODE_PRESENT seen, description not complete.
	Discovered State = iota
	// Described: all variable descriptors received, memory allocated.
	Described
	// Active: full handshake done, refresh traffic flowing.
	Active
	// Lost: too many refresh cycles went unanswered. The node stays
	// queryable with stale values until rediscovered.
	Lost
)

func (s State) String() string {
	switch s {
	case Discovered:
		return "discovered"
	case Described:
		return "described"
	case Active:
		return "active"
	case Lost:
		return "lost"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// VariableDescriptor locates one named variable in a node's flat
// variable memory.
type VariableDescriptor struct {
	Name   string
	Offset uint16
	Size   uint16
}

// DeviceInfo is the optional identity block reported by protocol v6+
// robots.
type DeviceInfo struct {
	Name        string
	UUID        uuid.UUID
	HasUUID     bool
	RFNetworkID uint16
	RFNodeID    uint16
	RFChannel   uint16
	HasRF       bool
}

// Node mirrors one remote robot: its descriptor table and the last known
// values of its variable memory.
type Node struct {
	ID      uint16
	Version uint16
	Name    string
	Device  DeviceInfo

	BytecodeSize uint16
	StackSize    uint16
	MaxVarSize   uint16

	state State

	expectedVars int
	expectedFuns int

	descriptors []VariableDescriptor
	byName      map[string]int
	totalSize   uint16
	memory      []int16

	localEvents    []string
	nativeFuns     []string
	nativeFunSizes map[string][]uint16

	// Refresh bookkeeping, owned by the scheduler.
	LastRefresh    time.Time
	PendingRefresh bool
	Misses         int
	outstanding    []Range
}

func newNode(id, version uint16) *Node {
	return &Node{
		ID:             id,
		Version:        version,
		byName:         make(map[string]int),
		nativeFunSizes: make(map[string][]uint16),
	}
}

// State returns the node lifecycle state.
func (n *Node) State() State { return n.state }

// MarkActive records a completed handshake.
func (n *Node) MarkActive() { n.state = Active }

// MarkLost records a node that stopped answering refreshes.
func (n *Node) MarkLost() { n.state = Lost }

// ApplyDescription records the DESCRIPTION header and the expected count
// of per-item description messages still to come. A node declaring zero
// variables is Described right away.
func (n *Node) ApplyDescription(d protocol.Description) {
	n.Name = d.NodeName
	n.BytecodeSize = d.BytecodeSize
	n.StackSize = d.StackSize
	n.MaxVarSize = d.MaxVarSize
	n.expectedVars = int(d.NumNamedVars)
	n.expectedFuns = int(d.NumNativeFuns)
	if n.state == Discovered && n.expectedVars == 0 {
		n.state = Described
		n.ResetValues()
	}
}

// AddVariable appends one descriptor. Offsets are assigned in arrival
// order, so descriptors can never overlap. Once the declared count is
// reached the node becomes Described and its memory is reset to zero.
func (n *Node) AddVariable(name string, size uint16) error {
	if _, dup := n.byName[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateVariable, name)
	}
	n.byName[name] = len(n.descriptors)
	n.descriptors = append(n.descriptors, VariableDescriptor{
		Name:   name,
		Offset: n.totalSize,
		Size:   size,
	})
	n.totalSize += size
	if n.state == Discovered && n.expectedVars > 0 && len(n.descriptors) >= n.expectedVars {
		n.state = Described
		n.ResetValues()
	}
	return nil
}

// AddLocalEvent records one robot-local event name.
func (n *Node) AddLocalEvent(name string) {
	n.localEvents = append(n.localEvents, name)
}

// AddNativeFunction records one native function.
func (n *Node) AddNativeFunction(name string, paramSizes []uint16) {
	n.nativeFuns = append(n.nativeFuns, name)
	n.nativeFunSizes[name] = paramSizes
}

// HandshakeComplete reports whether every declared native function
// description has arrived; together with the Described state this ends
// the description handshake.
func (n *Node) HandshakeComplete() bool {
	return len(n.nativeFuns) >= n.expectedFuns
}

// ResetValues zeroes the whole variable memory.
func (n *Node) ResetValues() {
	n.memory = make([]int16, n.totalSize)
}

// Descriptors returns the descriptor table in declaration order.
func (n *Node) Descriptors() []VariableDescriptor {
	out := make([]VariableDescriptor, len(n.descriptors))
	copy(out, n.descriptors)
	return out
}

// VariableNames returns variable names in declaration order.
func (n *Node) VariableNames() []string {
	names := make([]string, len(n.descriptors))
	for i, d := range n.descriptors {
		names[i] = d.Name
	}
	return names
}

// LocalEvents returns local event names in declaration order.
func (n *Node) LocalEvents() []string {
	return append([]string(nil), n.localEvents...)
}

// NativeFunctions returns native function names and their parameter sizes.
func (n *Node) NativeFunctions() ([]string, map[string][]uint16) {
	names := append([]string(nil), n.nativeFuns...)
	sizes := make(map[string][]uint16, len(n.nativeFunSizes))
	for k, v := range n.nativeFunSizes {
		sizes[k] = append([]uint16(nil), v...)
	}
	return names, sizes
}

// Descriptor looks a variable up by name.
func (n *Node) Descriptor(name string) (VariableDescriptor, error) {
	i, ok := n.byName[name]
	if !ok {
		return VariableDescriptor{}, fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	return n.descriptors[i], nil
}

// TotalSize is the variable memory size in words.
func (n *Node) TotalSize() uint16 { return n.totalSize }

// Values returns a copy of the cached value of one variable.
func (n *Node) Values(name string) ([]int16, error) {
	if n.memory == nil {
		return nil, fmt.Errorf("%w: node %d", ErrNotDescribed, n.ID)
	}
	d, err := n.Descriptor(name)
	if err != nil {
		return nil, err
	}
	out := make([]int16, d.Size)
	copy(out, n.memory[d.Offset:d.Offset+d.Size])
	return out, nil
}

// SetValues writes a full variable value into the local cache. The write
// is optimistic: the next refresh response from the robot overwrites it,
// which is the accepted last-committed-wins behavior.
func (n *Node) SetValues(name string, values []int16) (VariableDescriptor, error) {
	if n.memory == nil {
		return VariableDescriptor{}, fmt.Errorf("%w: node %d", ErrNotDescribed, n.ID)
	}
	d, err := n.Descriptor(name)
	if err != nil {
		return VariableDescriptor{}, err
	}
	if len(values) != int(d.Size) {
		return VariableDescriptor{}, fmt.Errorf("%w: %s has %d words, got %d",
			ErrLengthMismatch, name, d.Size, len(values))
	}
	copy(n.memory[d.Offset:], values)
	return d, nil
}

// ApplyVariables commits a contiguous run of variable memory, as carried
// by one VARIABLES frame. The whole run is committed or none of it.
// Returns true when every span requested by the last refresh has been
// answered, whatever order the answering frames arrive in.
func (n *Node) ApplyVariables(offset uint16, data []int16) (bool, error) {
	if n.memory == nil {
		return false, fmt.Errorf("%w: node %d", ErrNotDescribed, n.ID)
	}
	end := int(offset) + len(data)
	if end > len(n.memory) {
		return false, fmt.Errorf("%w: [%d,%d) exceeds %d words",
			ErrOutOfRange, offset, end, len(n.memory))
	}
	copy(n.memory[offset:], data)
	if len(n.outstanding) == 0 {
		return false, nil
	}
	n.outstanding = subtractSpan(n.outstanding, Range{Offset: offset, Count: uint16(len(data))})
	return len(n.outstanding) == 0, nil
}

// ExpectRefresh records the spans requested by a refresh cycle so the
// answering VARIABLES frames can be recognized as cycle completion.
func (n *Node) ExpectRefresh(ranges []Range) {
	n.outstanding = append(n.outstanding[:0], ranges...)
}
