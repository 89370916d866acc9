// Package transport opens the raw byte stream to the robot: a TCP
// connection to a simulator or switch, or a serial CDC device.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"runtime"
	"strings"

	"go.bug.st/serial"
)

// Transport is the duplex byte stream the engine speaks over. Reads
// block; Close must unblock a pending Read with an error.
type Transport = io.ReadWriteCloser

var ErrNoSerialPort = errors.New("transport: no candidate serial port found")

// Mode used for serial devices. Thymio-class robots expose a USB CDC
// port, so the baud rate is nominal.
var serialMode = &serial.Mode{BaudRate: 115200}

// Dial opens the transport for a port spec: "host:port" dials TCP,
// anything else is treated as a serial device path.
func Dial(port string) (Transport, error) {
	if isTCPSpec(port) {
		conn, err := net.Dial("tcp", port)
		if err != nil {
			return nil, fmt.Errorf("transport: dial %s: %w", port, err)
		}
		return conn, nil
	}
	p, err := serial.Open(port, serialMode)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", port, err)
	}
	return p, nil
}

func isTCPSpec(port string) bool {
	host, _, err := net.SplitHostPort(port)
	return err == nil && host != ""
}

// CandidatePorts lists serial devices that look like a connected robot,
// most likely first.
func CandidatePorts() ([]string, error) {
	all, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("transport: list serial ports: %w", err)
	}
	var out []string
	for _, name := range all {
		if looksLikeRobotPort(name) {
			out = append(out, name)
		}
	}
	return out, nil
}

// DefaultPort returns the first candidate serial device.
func DefaultPort() (string, error) {
	ports, err := CandidatePorts()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", ErrNoSerialPort
	}
	if runtime.GOOS == "windows" {
		// Later COM ports tend to be the most recently attached device.
		return ports[len(ports)-1], nil
	}
	return ports[0], nil
}

func looksLikeRobotPort(name string) bool {
	switch runtime.GOOS {
	case "linux":
		return strings.HasPrefix(name, "/dev/ttyACM")
	case "darwin":
		return strings.Contains(name, "cu.usb")
	case "windows":
		return strings.HasPrefix(name, "COM")
	default:
		return true
	}
}
