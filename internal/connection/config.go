package connection

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Config defines one link's engine behavior.
type Config struct {
	// HostNode is the node id this engine stamps on outgoing frames.
	HostNode uint16

	// RefreshingRate is the interval between variable refresh cycles.
	// Zero means the default; negative disables periodic refresh.
	RefreshingRate time.Duration

	// RefreshingCoverage restricts refresh cycles to these variable
	// names; nil means all known variables.
	RefreshingCoverage map[string]struct{}

	// LostAfterMisses is the number of consecutive refresh cycles a node
	// may leave unanswered before it is marked lost.
	LostAfterMisses int

	// Clock drives the refresh ticker and timestamps; tests install a
	// mock.
	Clock clock.Clock

	// TaskQueueDepth bounds the hand-off channel into the run loop.
	TaskQueueDepth int
}

// DefaultConfig returns the engine defaults: 10 Hz refresh, full
// coverage, loss after ~3 s of silence at that rate.
func DefaultConfig() Config {
	return Config{
		HostNode:        1,
		RefreshingRate:  100 * time.Millisecond,
		LostAfterMisses: 30,
		TaskQueueDepth:  64,
	}
}

func (cfg *Config) fillDefaults() {
	def := DefaultConfig()
	if cfg.HostNode == 0 {
		cfg.HostNode = def.HostNode
	}
	if cfg.RefreshingRate == 0 {
		cfg.RefreshingRate = def.RefreshingRate
	}
	if cfg.LostAfterMisses == 0 {
		cfg.LostAfterMisses = def.LostAfterMisses
	}
	if cfg.TaskQueueDepth == 0 {
		cfg.TaskQueueDepth = def.TaskQueueDepth
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
}
