package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestMessageWireRoundTrip(t *testing.T) {
	in := NewSetVariables(1, 7, 10, []int16{-1, 0, 32})
	buf, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := ReadMessage(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	if out.ID != IDSetVariables || out.SourceNode != 1 {
		t.Fatalf("header mismatch: %+v", out)
	}
	if !bytes.Equal(out.Payload, in.Payload) {
		t.Fatalf("payload mismatch: got=%v want=%v", out.Payload, in.Payload)
	}
}

func TestMessageWireLayout(t *testing.T) {
	msg := Message{ID: IDGetVariables, SourceNode: 0x0102, Payload: []byte{0xaa, 0xbb}}
	buf, err := msg.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// [len][source][id] low byte first, then payload.
	want := []byte{0x02, 0x00, 0x02, 0x01, 0x0b, 0xa0, 0xaa, 0xbb}
	if !bytes.Equal(buf, want) {
		t.Fatalf("layout mismatch: got=%v want=%v", buf, want)
	}
}

func TestReadMessageTruncatedPayload(t *testing.T) {
	msg := Message{ID: IDVariables, SourceNode: 7, Payload: WordsToBytes([]uint16{10, 1, 2})}
	buf, err := msg.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	_, err = ReadMessage(bytes.NewReader(buf[:len(buf)-3]))
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestReadMessageCleanEOF(t *testing.T) {
	_, err := ReadMessage(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadMessageShortHeader(t *testing.T) {
	_, err := ReadMessage(bytes.NewReader([]byte{1, 0, 2}))
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestReadMessageUnknownIDSkipsDeclaredPayload(t *testing.T) {
	var stream bytes.Buffer
	unknown := Message{ID: MessageID(0x9fff), SourceNode: 3, Payload: []byte{1, 2, 3, 4}}
	raw, err := unknown.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	stream.Write(raw)
	if err := WriteMessage(&stream, NewListNodes(1)); err != nil {
		t.Fatalf("write message: %v", err)
	}

	_, err = ReadMessage(&stream)
	if !errors.Is(err, ErrUnknownMessageID) {
		t.Fatalf("expected ErrUnknownMessageID, got %v", err)
	}
	// The next well-formed frame is still readable.
	next, err := ReadMessage(&stream)
	if err != nil {
		t.Fatalf("read next frame: %v", err)
	}
	if next.ID != IDListNodes {
		t.Fatalf("expected LIST_NODES, got %s", next.ID)
	}
}

func TestUnmarshalBinaryLengthMismatch(t *testing.T) {
	msg := Message{ID: IDVariables, SourceNode: 7, Payload: WordsToBytes([]uint16{10, 1})}
	buf, err := msg.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// Declared length exceeds available bytes.
	var out Message
	if err := out.UnmarshalBinary(buf[:len(buf)-2]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestMarshalBinaryPayloadTooLarge(t *testing.T) {
	msg := Message{ID: IDSetBytecode, SourceNode: 1, Payload: make([]byte, MaxPayloadBytes+1)}
	if _, err := msg.MarshalBinary(); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestMessageIDClassification(t *testing.T) {
	if !MessageID(0x0003).IsUserEvent() {
		t.Fatalf("id below 0x8000 must be a user event")
	}
	if IDVariables.IsUserEvent() {
		t.Fatalf("VARIABLES is not a user event")
	}
	if MessageID(0x9fff).Known() {
		t.Fatalf("0x9fff is not a known id")
	}
	if !IDBootloaderAck.Known() {
		t.Fatalf("bootloader ids are known")
	}
}
