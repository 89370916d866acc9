package protocol

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func TestDescriptionRoundTrip(t *testing.T) {
	in := Description{
		NodeName:        "thymio-II",
		ProtocolVersion: 5,
		BytecodeSize:    1534,
		StackSize:       32,
		MaxVarSize:      620,
		NumNamedVars:    3,
		NumLocalEvents:  2,
		NumNativeFuns:   1,
	}
	out, err := in.Encode(7).DecodeDescription()
	if err != nil {
		t.Fatalf("decode description: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", out, in)
	}
}

func TestNamedVariableDescriptionRoundTrip(t *testing.T) {
	in := NamedVariableDescription{Size: 7, Name: "prox.horizontal"}
	out, err := in.Encode(7).DecodeNamedVariableDescription()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", out, in)
	}
}

func TestNativeFunctionDescriptionRoundTrip(t *testing.T) {
	in := NativeFunctionDescription{
		Name:        "math.dot",
		Description: "dot product",
		ParamNames:  []string{"a", "b", "shift"},
		ParamSizes:  []uint16{0xffff, 0xffff, 1},
	}
	out, err := in.Encode(7).DecodeNativeFunctionDescription()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", out, in)
	}
}

func TestVariablesRoundTripPreservesSign(t *testing.T) {
	in := Variables{Offset: 10, Data: []int16{-500, 0, 32767, -32768}}
	out, err := in.Encode(7).DecodeVariables()
	if err != nil {
		t.Fatalf("decode variables: %v", err)
	}
	if out.Offset != 10 || !reflect.DeepEqual(out.Data, in.Data) {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", out, in)
	}
}

func TestDecodeVariablesOddPayload(t *testing.T) {
	msg := Message{ID: IDVariables, SourceNode: 7, Payload: []byte{10, 0, 1}}
	if _, err := msg.DecodeVariables(); !errors.Is(err, ErrOddPayload) {
		t.Fatalf("expected ErrOddPayload, got %v", err)
	}
}

func TestDecodeDescriptionShortString(t *testing.T) {
	// Length byte claims 20 characters, 3 available.
	msg := Message{ID: IDDescription, SourceNode: 7, Payload: []byte{20, 'a', 'b', 'c'}}
	if _, err := msg.DecodeDescription(); !errors.Is(err, ErrShortString) {
		t.Fatalf("expected ErrShortString, got %v", err)
	}
}

func TestDeviceInfoUUIDRoundTrip(t *testing.T) {
	id := uuid.MustParse("bb67a0dc-2c2b-4c8c-a80e-6b90ad75f7f1")
	in := DeviceInfo{Kind: DeviceInfoUUID, UUID: id, HasUUID: true}
	out, err := in.Encode(7).DecodeDeviceInfo()
	if err != nil {
		t.Fatalf("decode device info: %v", err)
	}
	if !out.HasUUID || out.UUID != id {
		t.Fatalf("uuid mismatch: got=%+v", out)
	}
}

func TestDeviceInfoRFSettingsRoundTrip(t *testing.T) {
	in := DeviceInfo{Kind: DeviceInfoThymio2RFSetting, RFNetworkID: 0x1234, RFNodeID: 2, RFChannel: 1, HasRF: true}
	out, err := in.Encode(7).DecodeDeviceInfo()
	if err != nil {
		t.Fatalf("decode device info: %v", err)
	}
	if out != in {
		t.Fatalf("rf settings mismatch: got=%+v want=%+v", out, in)
	}
}

func TestDeviceInfoUnknownKind(t *testing.T) {
	msg := Message{ID: IDDeviceInfo, SourceNode: 7, Payload: []byte{9}}
	if _, err := msg.DecodeDeviceInfo(); !errors.Is(err, ErrBadDeviceInfo) {
		t.Fatalf("expected ErrBadDeviceInfo, got %v", err)
	}
}

func TestUserEventRoundTrip(t *testing.T) {
	in := UserEvent{Event: 2, Args: []int16{-7, 99}}
	msg := in.Encode(7)
	if !msg.ID.IsUserEvent() {
		t.Fatalf("expected user event id, got %s", msg.ID)
	}
	out, err := msg.DecodeUserEvent()
	if err != nil {
		t.Fatalf("decode user event: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", out, in)
	}
}

func TestDecodeUserEventRejectsProtocolID(t *testing.T) {
	msg := NewListNodes(1)
	if _, err := msg.DecodeUserEvent(); !errors.Is(err, ErrUnknownMessageID) {
		t.Fatalf("expected ErrUnknownMessageID, got %v", err)
	}
}

func TestExecutionStateFlags(t *testing.T) {
	in := ExecutionStateChanged{PC: 12, Flags: 5}
	out, err := in.Encode(7).DecodeExecutionStateChanged()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.EventActive || out.StepByStep || !out.EventRunning {
		t.Fatalf("flag decode mismatch: %+v", out)
	}
}
