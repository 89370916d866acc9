package registry

import (
	"fmt"
	"sort"
)

// Registry maps node ids to their mirrored state for one connection.
type Registry struct {
	nodes map[uint16]*Node
}

func New() *Registry {
	return &Registry{nodes: make(map[uint16]*Node)}
}

// Register creates the node for an unseen id, or rediscovers a Lost node:
// rediscovery replaces the node wholesale so stale descriptors can never
// mix with a fresh description.
func (r *Registry) Register(id, version uint16) (*Node, bool) {
	if n, ok := r.nodes[id]; ok {
		if n.state != Lost {
			return n, false
		}
	}
	n := newNode(id, version)
	r.nodes[id] = n
	return n, true
}

// Lookup returns the node for id.
func (r *Registry) Lookup(id uint16) (*Node, error) {
	n, ok := r.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	return n, nil
}

// IDs returns known node ids in ascending order.
func (r *Registry) IDs() []uint16 {
	ids := make([]uint16, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of known nodes.
func (r *Registry) Len() int { return len(r.nodes) }

// Each calls fn for every known node, in ascending id order.
func (r *Registry) Each(fn func(*Node)) {
	for _, id := range r.IDs() {
		fn(r.nodes[id])
	}
}
