package config

import (
	"fmt"
	"os"
)

func Template() string {
	return linkTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(linkTemplate), 0o600)
}

const linkTemplate = `# Robot link configuration.
# port: serial device path ("/dev/ttyACM0", "COM4") or TCP spec
# ("127.0.0.1:33333"). Leave empty to autodetect the serial port.
port = ""

# Variable refresh interval (10 Hz default).
refreshing_rate_ms = 100

# Restrict refresh cycles to these variables; empty means all.
refreshing_coverage = []

connect_timeout_ms = 5000
get_timeout_ms = 3000

# Consecutive unanswered refresh cycles before a node is marked lost.
lost_after_misses = 30
`
