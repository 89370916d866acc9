package transport

import (
	"net"
	"testing"
)

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()

	tr, err := Dial(ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer tr.Close()

	server := <-accepted
	defer server.Close()
	if _, err := tr.Write([]byte{1, 2, 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 3)
	if _, err := server.Read(buf); err != nil {
		t.Fatalf("server read: %v", err)
	}
}

func TestIsTCPSpec(t *testing.T) {
	for spec, want := range map[string]bool{
		"127.0.0.1:33333": true,
		"localhost:33333": true,
		"/dev/ttyACM0":    false,
		"COM4":            false,
	} {
		if got := isTCPSpec(spec); got != want {
			t.Fatalf("isTCPSpec(%q)=%v want %v", spec, got, want)
		}
	}
}
