// Package botsim plays the robot end of a link over an in-memory pipe.
// It answers discovery and description requests from a fixed script,
// records every frame the engine sends, and lets tests push unsolicited
// frames.
package botsim

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"asebalink/internal/protocol"
)

// Robot is one scripted node. Fields are read by the robot loop after
// Start; mutate only the atomics once the loop is running.
type Robot struct {
	NodeID  uint16
	Version uint16
	Vars    []protocol.NamedVariableDescription
	Events  []string
	Funs    []string
	Memory  []int16

	AnswerRefresh atomic.Bool
	SplitRefresh  atomic.Bool
	// DescGate, when non-nil, delays the description reply until closed.
	DescGate chan struct{}

	conn     net.Conn
	requests chan protocol.Message
	done     chan struct{}
}

// New returns a robot with a Thymio-like descriptor table: motor.target
// at offset 0 and prox.horizontal at offset 2, nine words of memory.
func New(nodeID uint16) *Robot {
	return &Robot{
		NodeID:  nodeID,
		Version: protocol.ProtocolVersion,
		Vars: []protocol.NamedVariableDescription{
			{Name: "motor.target", Size: 2},
			{Name: "prox.horizontal", Size: 7},
		},
		Events:   []string{"button.backward"},
		Funs:     []string{"math.dot"},
		Memory:   make([]int16, 9),
		requests: make(chan protocol.Message, 64),
		done:     make(chan struct{}),
	}
}

// Start returns the host end of the pipe and launches the robot loop.
func (r *Robot) Start() net.Conn {
	host, robot := net.Pipe()
	r.conn = robot
	go r.loop()
	return host
}

func (r *Robot) loop() {
	defer close(r.done)
	for {
		msg, err := protocol.ReadMessage(r.conn)
		if err != nil {
			return
		}
		select {
		case r.requests <- msg:
		default:
		}
		r.handle(msg)
	}
}

func (r *Robot) handle(msg protocol.Message) {
	switch msg.ID {
	case protocol.IDListNodes:
		r.Push(protocol.NodePresent{Version: r.Version}.Encode(r.NodeID))
	case protocol.IDGetDeviceInfo:
		r.handleDeviceInfo(msg)
	case protocol.IDGetNodeDescription:
		if r.DescGate != nil {
			<-r.DescGate
		}
		r.Push(protocol.Description{
			NodeName:        "thymio-II",
			ProtocolVersion: r.Version,
			BytecodeSize:    1534,
			StackSize:       32,
			MaxVarSize:      620,
			NumNamedVars:    uint16(len(r.Vars)),
			NumLocalEvents:  uint16(len(r.Events)),
			NumNativeFuns:   uint16(len(r.Funs)),
		}.Encode(r.NodeID))
		for _, v := range r.Vars {
			r.Push(v.Encode(r.NodeID))
		}
		for _, name := range r.Events {
			r.Push(protocol.LocalEventDescription{Name: name}.Encode(r.NodeID))
		}
		for _, name := range r.Funs {
			r.Push(protocol.NativeFunctionDescription{
				Name:       name,
				ParamNames: []string{"a", "b"},
				ParamSizes: []uint16{3, 3},
			}.Encode(r.NodeID))
		}
	case protocol.IDGetVariables:
		if !r.AnswerRefresh.Load() {
			return
		}
		words, err := protocol.BytesToWords(msg.Payload)
		if err != nil || len(words) != 3 {
			return
		}
		offset, count := words[1], words[2]
		data := r.Memory[offset : offset+count]
		if r.SplitRefresh.Load() && count > 1 {
			r.Push(protocol.Variables{Offset: offset, Data: data[:1]}.Encode(r.NodeID))
			r.Push(protocol.Variables{Offset: offset + 1, Data: data[1:]}.Encode(r.NodeID))
			return
		}
		r.Push(protocol.Variables{Offset: offset, Data: data}.Encode(r.NodeID))
	}
}

func (r *Robot) handleDeviceInfo(msg protocol.Message) {
	words, err := protocol.BytesToWords(msg.Payload)
	if err != nil || len(words) != 2 {
		return
	}
	switch uint8(words[1]) {
	case protocol.DeviceInfoName:
		r.Push(protocol.DeviceInfo{Kind: protocol.DeviceInfoName, Name: "thymio-II"}.Encode(r.NodeID))
	case protocol.DeviceInfoUUID:
		id := uuid.MustParse("f2e1b2a0-0d5c-4c6e-9a3b-2f1d0c9b8a70")
		r.Push(protocol.DeviceInfo{Kind: protocol.DeviceInfoUUID, UUID: id, HasUUID: true}.Encode(r.NodeID))
	case protocol.DeviceInfoThymio2RFSetting:
		r.Push(protocol.DeviceInfo{
			Kind:        protocol.DeviceInfoThymio2RFSetting,
			RFNetworkID: 0x1234,
			RFNodeID:    2,
			RFChannel:   1,
			HasRF:       true,
		}.Encode(r.NodeID))
	}
}

// Push writes one frame to the host. Safe from the loop and from test
// goroutines; the pipe serializes whole writes.
func (r *Robot) Push(msg protocol.Message) {
	_ = protocol.WriteMessage(r.conn, msg)
}

// PushRaw writes raw bytes, for frames the codec refuses to build.
func (r *Robot) PushRaw(b []byte) {
	_, _ = r.conn.Write(b)
}

// Close drops the robot end of the pipe and waits for the loop to exit.
func (r *Robot) Close() {
	r.conn.Close()
	<-r.done
}

// ExpectRequest drains recorded frames until one matches id.
func (r *Robot) ExpectRequest(t *testing.T, id protocol.MessageID) protocol.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-r.requests:
			if msg.ID == id {
				return msg
			}
		case <-deadline:
			t.Fatalf("robot never received %v", id)
		}
	}
}

// ExpectNoRequest asserts no frame with id arrives within wait.
func (r *Robot) ExpectNoRequest(t *testing.T, id protocol.MessageID, wait time.Duration) {
	t.Helper()
	deadline := time.After(wait)
	for {
		select {
		case msg := <-r.requests:
			if msg.ID == id {
				t.Fatalf("robot received unexpected %v", id)
			}
		case <-deadline:
			return
		}
	}
}
