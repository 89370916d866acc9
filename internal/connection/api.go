package connection

import (
	"time"

	"asebalink/internal/protocol"
	"asebalink/internal/registry"
)

// NodeInfo is a point-in-time snapshot of one mirrored node.
type NodeInfo struct {
	ID              uint16
	Version         uint16
	Name            string
	State           registry.State
	Device          registry.DeviceInfo
	Variables       []registry.VariableDescriptor
	LocalEvents     []string
	NativeFunctions []string
	LastRefresh     time.Time
}

// WaitForNode blocks until any node completes its handshake, returning
// its id. Immediate if one already has.
func (c *Connection) WaitForNode(timeout time.Duration) (uint16, error) {
	ch := make(chan nodeResult, 1)
	err := c.post(func() {
		if c.state == Disconnected {
			ch <- nodeResult{err: c.closedErr()}
			return
		}
		var found *registry.Node
		c.reg.Each(func(n *registry.Node) {
			if found == nil && n.State() == registry.Active {
				found = n
			}
		})
		if found != nil {
			ch <- nodeResult{id: found.ID}
			return
		}
		c.waiters.addNodeWaiter(ch)
	})
	if err != nil {
		return 0, err
	}
	timer := c.clk.Timer(timeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res.id, res.err
	case <-timer.C:
		return 0, ErrTimeout
	case <-c.runDone:
		return 0, ErrClosed
	}
}

// Get returns the cached value of one variable. Immediate once the node
// is described; a node still in description parks the caller until the
// descriptor table lands, bounded by timeout. The caller's goroutine
// blocks, never the run loop.
func (c *Connection) Get(nodeID uint16, name string, timeout time.Duration) ([]int16, error) {
	ch := make(chan valueResult, 1)
	err := c.post(func() {
		node, err := c.reg.Lookup(nodeID)
		if err != nil {
			ch <- valueResult{err: err}
			return
		}
		if node.State() == registry.Discovered {
			if c.state == Disconnected {
				ch <- valueResult{err: c.closedErr()}
				return
			}
			c.waiters.addDescribedWaiter(nodeID, describedWaiter{
				ch: ch,
				resolve: func() valueResult {
					n, err := c.reg.Lookup(nodeID)
					if err != nil {
						return valueResult{err: err}
					}
					v, err := n.Values(name)
					return valueResult{values: v, err: err}
				},
			})
			return
		}
		v, err := node.Values(name)
		ch <- valueResult{values: v, err: err}
	})
	if err != nil {
		return nil, err
	}
	timer := c.clk.Timer(timeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res.values, res.err
	case <-timer.C:
		return nil, ErrTimeout
	case <-c.runDone:
		return nil, ErrClosed
	}
}

// Set validates values against the descriptor, commits them to the
// local cache and sends the SET_VARIABLES frame. It returns once the
// frame has been written; the robot sends no acknowledgment. The next
// refresh response overwrites the cache — the robot stays authoritative.
func (c *Connection) Set(nodeID uint16, name string, values []int16) error {
	errCh := make(chan error, 1)
	if err := c.post(func() {
		node, err := c.reg.Lookup(nodeID)
		if err != nil {
			errCh <- err
			return
		}
		d, err := node.SetValues(name, values)
		if err != nil {
			errCh <- err
			return
		}
		errCh <- c.send(protocol.NewSetVariables(c.cfg.HostNode, nodeID, d.Offset, values))
	}); err != nil {
		return err
	}
	select {
	case err := <-errCh:
		return err
	case <-c.runDone:
		return ErrClosed
	}
}

// Nodes returns the known node ids.
func (c *Connection) Nodes() ([]uint16, error) {
	var ids []uint16
	err := c.call(func() { ids = c.reg.IDs() })
	return ids, err
}

// NodeInfo returns a snapshot of one node.
func (c *Connection) NodeInfo(nodeID uint16) (NodeInfo, error) {
	var (
		info    NodeInfo
		infoErr error
	)
	err := c.call(func() {
		node, err := c.reg.Lookup(nodeID)
		if err != nil {
			infoErr = err
			return
		}
		funs, _ := node.NativeFunctions()
		info = NodeInfo{
			ID:              node.ID,
			Version:         node.Version,
			Name:            node.Name,
			State:           node.State(),
			Device:          node.Device,
			Variables:       node.Descriptors(),
			LocalEvents:     node.LocalEvents(),
			NativeFunctions: funs,
			LastRefresh:     node.LastRefresh,
		}
	})
	if err != nil {
		return NodeInfo{}, err
	}
	return info, infoErr
}

// State returns the connection lifecycle state.
func (c *Connection) State() (State, error) {
	var s State
	err := c.call(func() { s = c.state })
	return s, err
}

// SetVariableObserver installs fn as the per-refresh-cycle notification
// for one node; nil removes it. The observer fires exactly once per
// completed refresh cycle or unsolicited push, on the dispatch
// goroutine.
func (c *Connection) SetVariableObserver(nodeID uint16, fn func(nodeID uint16)) error {
	return c.call(func() {
		if fn == nil {
			delete(c.observers, nodeID)
			return
		}
		c.observers[nodeID] = fn
	})
}

// SetEventListener installs fn for user events emitted by one node; nil
// removes it.
func (c *Connection) SetEventListener(nodeID uint16, fn func(nodeID uint16, event uint16, args []int16)) error {
	return c.call(func() {
		if fn == nil {
			delete(c.listeners, nodeID)
			return
		}
		c.listeners[nodeID] = fn
	})
}

// SendBytecode uploads an opaque program blob (16-bit words, low byte
// first) in SET_BYTECODE chunks. The blob's content, including its event
// table, is produced by an external assembler; the engine only frames
// it.
func (c *Connection) SendBytecode(nodeID uint16, blob []byte) error {
	words, err := protocol.BytesToWords(blob)
	if err != nil {
		return ErrOddBytecode
	}
	errCh := make(chan error, 1)
	if err := c.post(func() {
		for i := 0; i < len(words); i += protocol.MaxBytecodeChunkWords {
			end := i + protocol.MaxBytecodeChunkWords
			if end > len(words) {
				end = len(words)
			}
			msg := protocol.NewSetBytecode(c.cfg.HostNode, nodeID, uint16(i), words[i:end])
			if err := c.send(msg); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- nil
	}); err != nil {
		return err
	}
	select {
	case err := <-errCh:
		return err
	case <-c.runDone:
		return ErrClosed
	}
}

// Run starts the uploaded program on one node.
func (c *Connection) Run(nodeID uint16) error {
	return c.control(protocol.IDRun, nodeID)
}

// Stop halts the running program on one node.
func (c *Connection) Stop(nodeID uint16) error {
	return c.control(protocol.IDStop, nodeID)
}

// Reset resets one node's VM.
func (c *Connection) Reset(nodeID uint16) error {
	return c.control(protocol.IDReset, nodeID)
}

// Pause suspends the running program on one node.
func (c *Connection) Pause(nodeID uint16) error {
	return c.control(protocol.IDPause, nodeID)
}

// Step executes a single step of a paused program.
func (c *Connection) Step(nodeID uint16) error {
	return c.control(protocol.IDStep, nodeID)
}

func (c *Connection) control(id protocol.MessageID, nodeID uint16) error {
	errCh := make(chan error, 1)
	if err := c.post(func() {
		errCh <- c.send(protocol.NewControl(id, c.cfg.HostNode, nodeID))
	}); err != nil {
		return err
	}
	select {
	case err := <-errCh:
		return err
	case <-c.runDone:
		return ErrClosed
	}
}

// closedErr distinguishes a transport failure from a deliberate close.
func (c *Connection) closedErr() error {
	if c.failure != nil {
		return c.failure
	}
	return ErrClosed
}
