package connection

import (
	"asebalink/internal/protocol"
	"asebalink/internal/registry"
)

// handleMessage applies one inbound frame. Run-loop only. A payload that
// fails to decode is a malformed frame: logged, dropped, never partially
// applied.
func (c *Connection) handleMessage(msg protocol.Message) {
	if c.state == Disconnected {
		return
	}
	switch {
	case msg.ID == protocol.IDNodePresent:
		c.handleNodePresent(msg)
	case msg.ID == protocol.IDDescription:
		c.handleDescription(msg)
	case msg.ID == protocol.IDNamedVariableDescription:
		c.handleNamedVariable(msg)
	case msg.ID == protocol.IDLocalEventDescription:
		c.handleLocalEvent(msg)
	case msg.ID == protocol.IDNativeFunctionDescription:
		c.handleNativeFunction(msg)
	case msg.ID == protocol.IDVariables:
		c.handleVariables(msg)
	case msg.ID == protocol.IDDeviceInfo:
		c.handleDeviceInfo(msg)
	case msg.ID == protocol.IDExecutionStateChanged:
		c.handleExecutionState(msg)
	case msg.ID.IsUserEvent():
		c.handleUserEvent(msg)
	default:
		c.log.Debug().Stringer("msg", msg.ID).Uint16("source", msg.SourceNode).
			Msg("ignoring frame")
	}
}

func (c *Connection) dropMalformed(msg protocol.Message, err error) {
	c.log.Warn().Err(err).Stringer("msg", msg.ID).Uint16("source", msg.SourceNode).
		Msg("dropped malformed frame")
}

func (c *Connection) handleNodePresent(msg protocol.Message) {
	np, err := msg.DecodeNodePresent()
	if err != nil {
		c.dropMalformed(msg, err)
		return
	}
	node, fresh := c.reg.Register(msg.SourceNode, np.Version)
	if !fresh {
		return
	}
	c.log.Info().Uint16("node", node.ID).Uint16("version", node.Version).
		Msg("node discovered")
	if node.Version >= 6 {
		for _, kind := range []uint8{
			protocol.DeviceInfoName,
			protocol.DeviceInfoUUID,
			protocol.DeviceInfoThymio2RFSetting,
		} {
			if c.send(protocol.NewGetDeviceInfo(c.cfg.HostNode, node.ID, kind)) != nil {
				return
			}
		}
	}
	c.send(protocol.NewGetNodeDescription(c.cfg.HostNode, node.ID))
}

func (c *Connection) handleDescription(msg protocol.Message) {
	d, err := msg.DecodeDescription()
	if err != nil {
		c.dropMalformed(msg, err)
		return
	}
	node, err := c.reg.Lookup(msg.SourceNode)
	if err != nil {
		c.dropMalformed(msg, err)
		return
	}
	before := node.State()
	node.ApplyDescription(d)
	c.afterDescriptionProgress(node, before)
}

func (c *Connection) handleNamedVariable(msg protocol.Message) {
	d, err := msg.DecodeNamedVariableDescription()
	if err != nil {
		c.dropMalformed(msg, err)
		return
	}
	node, err := c.reg.Lookup(msg.SourceNode)
	if err != nil {
		c.dropMalformed(msg, err)
		return
	}
	before := node.State()
	if err := node.AddVariable(d.Name, d.Size); err != nil {
		c.dropMalformed(msg, err)
		return
	}
	c.afterDescriptionProgress(node, before)
}

func (c *Connection) handleLocalEvent(msg protocol.Message) {
	d, err := msg.DecodeLocalEventDescription()
	if err != nil {
		c.dropMalformed(msg, err)
		return
	}
	node, err := c.reg.Lookup(msg.SourceNode)
	if err != nil {
		c.dropMalformed(msg, err)
		return
	}
	node.AddLocalEvent(d.Name)
}

func (c *Connection) handleNativeFunction(msg protocol.Message) {
	d, err := msg.DecodeNativeFunctionDescription()
	if err != nil {
		c.dropMalformed(msg, err)
		return
	}
	node, err := c.reg.Lookup(msg.SourceNode)
	if err != nil {
		c.dropMalformed(msg, err)
		return
	}
	node.AddNativeFunction(d.Name, d.ParamSizes)
	c.maybeActivate(node)
}

// afterDescriptionProgress reacts to the Discovered -> Described
// transition: parked reads resolve against the fresh descriptor table,
// and nodes without native functions finish their handshake here.
func (c *Connection) afterDescriptionProgress(node *registry.Node, before registry.State) {
	if before == registry.Discovered && node.State() == registry.Described {
		c.waiters.resolveDescribedWaiters(node.ID)
		c.maybeActivate(node)
	}
}

func (c *Connection) maybeActivate(node *registry.Node) {
	if node.State() != registry.Described || !node.HandshakeComplete() {
		return
	}
	node.MarkActive()
	if c.state == Connecting {
		c.state = Ready
	}
	c.log.Info().Uint16("node", node.ID).Str("name", node.Name).
		Msg("node handshake complete")
	c.waiters.resolveNodeWaiters(node.ID)
	if cb := c.callbacks.OnConnect; cb != nil {
		id := node.ID
		c.dispatch(func() { cb(id) })
	}
}

func (c *Connection) handleVariables(msg protocol.Message) {
	v, err := msg.DecodeVariables()
	if err != nil {
		c.dropMalformed(msg, err)
		return
	}
	node, err := c.reg.Lookup(msg.SourceNode)
	if err != nil {
		c.dropMalformed(msg, err)
		return
	}
	complete, err := node.ApplyVariables(v.Offset, v.Data)
	if err != nil {
		c.dropMalformed(msg, err)
		return
	}
	if !node.PendingRefresh {
		// Unilateral push by the robot: one notification per frame.
		c.notifyVariables(node.ID)
		return
	}
	if !complete {
		return
	}
	node.PendingRefresh = false
	node.Misses = 0
	node.LastRefresh = c.clk.Now()
	if node.State() == registry.Lost {
		// The node answered again; treat it as recovered.
		node.MarkActive()
		c.log.Info().Uint16("node", node.ID).Msg("lost node answering again")
	}
	c.notifyVariables(node.ID)
}

func (c *Connection) handleDeviceInfo(msg protocol.Message) {
	info, err := msg.DecodeDeviceInfo()
	if err != nil {
		c.dropMalformed(msg, err)
		return
	}
	node, err := c.reg.Lookup(msg.SourceNode)
	if err != nil {
		c.dropMalformed(msg, err)
		return
	}
	switch info.Kind {
	case protocol.DeviceInfoName:
		node.Device.Name = info.Name
	case protocol.DeviceInfoUUID:
		node.Device.UUID = info.UUID
		node.Device.HasUUID = info.HasUUID
	case protocol.DeviceInfoThymio2RFSetting:
		if info.HasRF {
			node.Device.RFNetworkID = info.RFNetworkID
			node.Device.RFNodeID = info.RFNodeID
			node.Device.RFChannel = info.RFChannel
			node.Device.HasRF = true
		}
	}
}

func (c *Connection) handleExecutionState(msg protocol.Message) {
	s, err := msg.DecodeExecutionStateChanged()
	if err != nil {
		c.dropMalformed(msg, err)
		return
	}
	if cb := c.callbacks.OnExecutionStateChanged; cb != nil {
		id := msg.SourceNode
		c.dispatch(func() { cb(id, s) })
	}
}

func (c *Connection) handleUserEvent(msg protocol.Message) {
	ev, err := msg.DecodeUserEvent()
	if err != nil {
		c.dropMalformed(msg, err)
		return
	}
	if fn := c.listeners[msg.SourceNode]; fn != nil {
		id := msg.SourceNode
		c.dispatch(func() { fn(id, ev.Event, ev.Args) })
	}
}
