package protocol

import (
	"fmt"

	"github.com/google/uuid"
)

// Typed views over inbound payloads. Each view decodes the positional
// word/string layout fixed by the Aseba protocol; a view never partially
// applies — on any error the caller drops the whole frame.

// Description is the first handshake reply: node identity plus the counts
// of the per-item description messages that follow.
type Description struct {
	NodeName        string
	ProtocolVersion uint16
	BytecodeSize    uint16
	StackSize       uint16
	MaxVarSize      uint16
	NumNamedVars    uint16
	NumLocalEvents  uint16
	NumNativeFuns   uint16
}

// NamedVariableDescription declares one variable: its element count and
// name. Offsets are implicit in arrival order.
type NamedVariableDescription struct {
	Size uint16
	Name string
}

// LocalEventDescription declares one robot-local event.
type LocalEventDescription struct {
	Name        string
	Description string
}

// NativeFunctionDescription declares one native function and its
// parameter sizes.
type NativeFunctionDescription struct {
	Name        string
	Description string
	ParamNames  []string
	ParamSizes  []uint16
}

// Variables carries a contiguous run of variable memory, either pushed by
// the robot or answering GET_VARIABLES.
type Variables struct {
	Offset uint16
	Data   []int16
}

// NodePresent announces a node and its protocol version.
type NodePresent struct {
	Version uint16
}

// ExecutionStateChanged reports the program counter and execution flags.
type ExecutionStateChanged struct {
	PC           uint16
	Flags        uint16
	EventActive  bool
	StepByStep   bool
	EventRunning bool
}

// Device info keys (protocol v6+).
const (
	DeviceInfoUUID             uint8 = 1
	DeviceInfoName             uint8 = 2
	DeviceInfoThymio2RFSetting uint8 = 3
)

// DeviceInfo is one GET_DEVICE_INFO reply; exactly one of the value
// fields is meaningful depending on Kind.
type DeviceInfo struct {
	Kind        uint8
	Name        string
	UUID        uuid.UUID
	HasUUID     bool
	RFNetworkID uint16
	RFNodeID    uint16
	RFChannel   uint16
	HasRF       bool
}

// UserEvent is an event emitted by the robot program; the message id below
// FirstAsebaID is the event number.
type UserEvent struct {
	Event uint16
	Args  []int16
}

func (m Message) DecodeDescription() (Description, error) {
	c := payloadCursor{data: m.Payload}
	var d Description
	var err error
	if d.NodeName, err = c.string(); err != nil {
		return Description{}, err
	}
	for _, dst := range []*uint16{
		&d.ProtocolVersion, &d.BytecodeSize, &d.StackSize, &d.MaxVarSize,
		&d.NumNamedVars, &d.NumLocalEvents, &d.NumNativeFuns,
	} {
		if *dst, err = c.uint16(); err != nil {
			return Description{}, err
		}
	}
	return d, nil
}

func (m Message) DecodeNamedVariableDescription() (NamedVariableDescription, error) {
	c := payloadCursor{data: m.Payload}
	var d NamedVariableDescription
	var err error
	if d.Size, err = c.uint16(); err != nil {
		return NamedVariableDescription{}, err
	}
	if d.Name, err = c.string(); err != nil {
		return NamedVariableDescription{}, err
	}
	return d, nil
}

func (m Message) DecodeLocalEventDescription() (LocalEventDescription, error) {
	c := payloadCursor{data: m.Payload}
	var d LocalEventDescription
	var err error
	if d.Name, err = c.string(); err != nil {
		return LocalEventDescription{}, err
	}
	if d.Description, err = c.string(); err != nil {
		return LocalEventDescription{}, err
	}
	return d, nil
}

func (m Message) DecodeNativeFunctionDescription() (NativeFunctionDescription, error) {
	c := payloadCursor{data: m.Payload}
	var d NativeFunctionDescription
	var err error
	if d.Name, err = c.string(); err != nil {
		return NativeFunctionDescription{}, err
	}
	if d.Description, err = c.string(); err != nil {
		return NativeFunctionDescription{}, err
	}
	numParams, err := c.uint16()
	if err != nil {
		return NativeFunctionDescription{}, err
	}
	for i := 0; i < int(numParams); i++ {
		size, err := c.uint16()
		if err != nil {
			return NativeFunctionDescription{}, err
		}
		name, err := c.string()
		if err != nil {
			return NativeFunctionDescription{}, err
		}
		d.ParamSizes = append(d.ParamSizes, size)
		d.ParamNames = append(d.ParamNames, name)
	}
	return d, nil
}

func (m Message) DecodeVariables() (Variables, error) {
	c := payloadCursor{data: m.Payload}
	offset, err := c.uint16()
	if err != nil {
		return Variables{}, err
	}
	words, err := c.remainingWords()
	if err != nil {
		return Variables{}, err
	}
	return Variables{Offset: offset, Data: WordsToValues(words)}, nil
}

func (m Message) DecodeNodePresent() (NodePresent, error) {
	c := payloadCursor{data: m.Payload}
	version, err := c.uint16()
	if err != nil {
		return NodePresent{}, err
	}
	return NodePresent{Version: version}, nil
}

func (m Message) DecodeExecutionStateChanged() (ExecutionStateChanged, error) {
	c := payloadCursor{data: m.Payload}
	var s ExecutionStateChanged
	var err error
	if s.PC, err = c.uint16(); err != nil {
		return ExecutionStateChanged{}, err
	}
	if s.Flags, err = c.uint16(); err != nil {
		return ExecutionStateChanged{}, err
	}
	s.EventActive = s.Flags&1 != 0
	s.StepByStep = s.Flags&2 != 0
	s.EventRunning = s.Flags&4 != 0
	return s, nil
}

func (m Message) DecodeDeviceInfo() (DeviceInfo, error) {
	c := payloadCursor{data: m.Payload}
	kind, err := c.uint8()
	if err != nil {
		return DeviceInfo{}, err
	}
	info := DeviceInfo{Kind: kind}
	switch kind {
	case DeviceInfoName:
		if info.Name, err = c.string(); err != nil {
			return DeviceInfo{}, err
		}
	case DeviceInfoUUID:
		n, err := c.uint8()
		if err != nil {
			return DeviceInfo{}, err
		}
		raw, err := c.take(int(n))
		if err != nil {
			return DeviceInfo{}, err
		}
		id, err := uuid.FromBytes(raw)
		if err != nil {
			return DeviceInfo{}, fmt.Errorf("%w: %v", ErrBadDeviceInfo, err)
		}
		info.UUID = id
		info.HasUUID = true
	case DeviceInfoThymio2RFSetting:
		n, err := c.uint8()
		if err != nil {
			return DeviceInfo{}, err
		}
		if n == 6 {
			if info.RFNetworkID, err = c.uint16(); err != nil {
				return DeviceInfo{}, err
			}
			if info.RFNodeID, err = c.uint16(); err != nil {
				return DeviceInfo{}, err
			}
			if info.RFChannel, err = c.uint16(); err != nil {
				return DeviceInfo{}, err
			}
			info.HasRF = true
		}
	default:
		return DeviceInfo{}, ErrBadDeviceInfo
	}
	return info, nil
}

func (m Message) DecodeUserEvent() (UserEvent, error) {
	if !m.ID.IsUserEvent() {
		return UserEvent{}, ErrUnknownMessageID
	}
	words, err := BytesToWords(m.Payload)
	if err != nil {
		return UserEvent{}, err
	}
	return UserEvent{Event: uint16(m.ID), Args: WordsToValues(words)}, nil
}
