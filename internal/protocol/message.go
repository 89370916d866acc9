package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MessageID identifies one Aseba message kind. IDs below FirstAsebaID are
// user events emitted by robot programs; the rest are protocol messages.
type MessageID uint16

const (
	FirstAsebaID MessageID = 0x8000

	// Bootloader (robot -> host unless noted).
	IDBootloaderReset         MessageID = 0x8000
	IDBootloaderReadPage      MessageID = 0x8001
	IDBootloaderWritePage     MessageID = 0x8002
	IDBootloaderPageDataWrite MessageID = 0x8003
	IDBootloaderDescription   MessageID = 0x8004
	IDBootloaderPageDataRead  MessageID = 0x8005
	IDBootloaderAck           MessageID = 0x8006

	// Robot -> host.
	IDDescription               MessageID = 0x9000
	IDNamedVariableDescription  MessageID = 0x9001
	IDLocalEventDescription     MessageID = 0x9002
	IDNativeFunctionDescription MessageID = 0x9003
	IDVariables                 MessageID = 0x9005
	IDExecutionStateChanged     MessageID = 0x900a
	IDNodePresent               MessageID = 0x900c
	IDDeviceInfo                MessageID = 0x900d
	IDChangedVariables          MessageID = 0x900e

	// Host -> robot.
	IDGetDescription             MessageID = 0xa000
	IDSetBytecode                MessageID = 0xa001
	IDReset                      MessageID = 0xa002
	IDRun                        MessageID = 0xa003
	IDPause                      MessageID = 0xa004
	IDStep                       MessageID = 0xa005
	IDStop                       MessageID = 0xa006
	IDGetExecutionState          MessageID = 0xa007
	IDBreakpointSet              MessageID = 0xa008
	IDBreakpointClear            MessageID = 0xa009
	IDBreakpointClearAll         MessageID = 0xa00a
	IDGetVariables               MessageID = 0xa00b
	IDSetVariables               MessageID = 0xa00c
	IDGetNodeDescription         MessageID = 0xa010
	IDListNodes                  MessageID = 0xa011
	IDGetDeviceInfo              MessageID = 0xa012
	IDSetDeviceInfo              MessageID = 0xa013
	IDGetChangedVariables        MessageID = 0xa014
	IDGetNodeDescriptionFragment MessageID = 0xa015
)

// ProtocolVersion is the Aseba protocol version this engine speaks.
const ProtocolVersion uint16 = 5

// HeaderSize is the fixed frame header: payload length, source node,
// message id, one 16-bit word each.
const HeaderSize = 6

// MaxPayloadBytes is the largest payload a frame can declare; the length
// field is a single 16-bit word.
const MaxPayloadBytes = 0xffff

var idNames = map[MessageID]string{
	IDDescription:                "DESCRIPTION",
	IDNamedVariableDescription:   "NAMED_VARIABLE_DESCRIPTION",
	IDLocalEventDescription:      "LOCAL_EVENT_DESCRIPTION",
	IDNativeFunctionDescription:  "NATIVE_FUNCTION_DESCRIPTION",
	IDVariables:                  "VARIABLES",
	IDExecutionStateChanged:      "EXECUTION_STATE_CHANGED",
	IDNodePresent:                "NODE_PRESENT",
	IDDeviceInfo:                 "DEVICE_INFO",
	IDChangedVariables:           "CHANGED_VARIABLES",
	IDGetDescription:             "GET_DESCRIPTION",
	IDSetBytecode:                "SET_BYTECODE",
	IDReset:                      "RESET",
	IDRun:                        "RUN",
	IDPause:                      "PAUSE",
	IDStep:                       "STEP",
	IDStop:                       "STOP",
	IDGetExecutionState:          "GET_EXECUTION_STATE",
	IDBreakpointSet:              "BREAKPOINT_SET",
	IDBreakpointClear:            "BREAKPOINT_CLEAR",
	IDBreakpointClearAll:         "BREAKPOINT_CLEAR_ALL",
	IDGetVariables:               "GET_VARIABLES",
	IDSetVariables:               "SET_VARIABLES",
	IDGetNodeDescription:         "GET_NODE_DESCRIPTION",
	IDListNodes:                  "LIST_NODES",
	IDGetDeviceInfo:              "GET_DEVICE_INFO",
	IDSetDeviceInfo:              "SET_DEVICE_INFO",
	IDGetChangedVariables:        "GET_CHANGED_VARIABLES",
	IDGetNodeDescriptionFragment: "GET_NODE_DESCRIPTION_FRAGMENT",
}

// Known reports whether id belongs to the protocol enumeration or the
// user-event range.
func (id MessageID) Known() bool {
	if id < FirstAsebaID {
		return true
	}
	if id >= IDBootloaderReset && id <= IDBootloaderAck {
		return true
	}
	_, ok := idNames[id]
	return ok
}

// IsUserEvent reports whether id is an event emitted by a robot program.
func (id MessageID) IsUserEvent() bool {
	return id < FirstAsebaID
}

func (id MessageID) String() string {
	if name, ok := idNames[id]; ok {
		return name
	}
	if id.IsUserEvent() {
		return fmt.Sprintf("USER_EVENT(%d)", uint16(id))
	}
	return fmt.Sprintf("ID(0x%04x)", uint16(id))
}

// Message is one complete wire message.
type Message struct {
	ID         MessageID
	SourceNode uint16
	Payload    []byte
}

// ReadMessage reads exactly one frame from r. A clean EOF before the first
// header byte returns io.EOF; any other short read returns ErrTruncated.
func ReadMessage(r io.Reader) (Message, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Message{}, ErrTruncated
		}
		return Message{}, err
	}

	payloadLen := binary.LittleEndian.Uint16(header[0:2])
	msg := Message{
		SourceNode: binary.LittleEndian.Uint16(header[2:4]),
		ID:         MessageID(binary.LittleEndian.Uint16(header[4:6])),
	}
	if !msg.ID.Known() {
		// Skip the declared payload so the stream stays aligned.
		if _, err := io.CopyN(io.Discard, r, int64(payloadLen)); err != nil {
			return Message{}, ErrTruncated
		}
		return msg, ErrUnknownMessageID
	}

	if payloadLen > 0 {
		msg.Payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, msg.Payload); err != nil {
			return Message{}, ErrTruncated
		}
	}
	return msg, nil
}

// WriteMessage writes msg to w in wire format.
func WriteMessage(w io.Writer, msg Message) error {
	buf, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// MarshalBinary serializes msg to its exact wire layout.
func (m Message) MarshalBinary() ([]byte, error) {
	if len(m.Payload) > MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderSize+len(m.Payload))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(m.Payload)))
	binary.LittleEndian.PutUint16(buf[2:4], m.SourceNode)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(m.ID))
	copy(buf[HeaderSize:], m.Payload)
	return buf, nil
}

// UnmarshalBinary decodes one frame from a byte buffer. The declared
// payload length must match the available bytes exactly.
func (m *Message) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return ErrTruncated
	}
	payloadLen := int(binary.LittleEndian.Uint16(data[0:2]))
	if len(data) != HeaderSize+payloadLen {
		return ErrTruncated
	}
	id := MessageID(binary.LittleEndian.Uint16(data[4:6]))
	if !id.Known() {
		return ErrUnknownMessageID
	}
	m.SourceNode = binary.LittleEndian.Uint16(data[2:4])
	m.ID = id
	m.Payload = append([]byte(nil), data[HeaderSize:]...)
	return nil
}

func (m Message) String() string {
	return fmt.Sprintf("Message id=%s src=%d len=%d", m.ID, m.SourceNode, len(m.Payload))
}
