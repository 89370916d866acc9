package connection

import (
	"time"

	"asebalink/internal/protocol"
	"asebalink/internal/registry"
)

// refreshTick issues one refresh cycle. Run-loop only. A node whose
// previous cycle has not completed is skipped, never queued behind — at
// most one refresh request chain is in flight per node. A node that was
// already lost at tick time triggers another LIST_NODES so it can be
// rediscovered through a fresh NODE_PRESENT.
func (c *Connection) refreshTick() {
	if c.state != Ready {
		return
	}
	rediscover := false
	c.reg.Each(func(n *registry.Node) {
		switch n.State() {
		case registry.Discovered:
			return
		case registry.Lost:
			rediscover = true
			return
		}
		if n.PendingRefresh {
			n.Misses++
			if n.Misses >= c.cfg.LostAfterMisses {
				n.MarkLost()
				c.log.Warn().Uint16("node", n.ID).Int("misses", n.Misses).
					Msg("node stopped answering refreshes")
				if cb := c.callbacks.OnDisconnect; cb != nil {
					id := n.ID
					c.dispatch(func() { cb(id) })
				}
			}
			return
		}
		ranges := c.coverageRanges(n)
		if len(ranges) == 0 {
			return
		}
		n.ExpectRefresh(ranges)
		n.PendingRefresh = true
		for _, r := range ranges {
			if c.send(protocol.NewGetVariables(c.cfg.HostNode, n.ID, r.Offset, r.Count)) != nil {
				return
			}
		}
	})
	if rediscover {
		c.send(protocol.NewListNodes(c.cfg.HostNode))
	}
}

// coverageRanges translates the current coverage into request ranges for
// one node, ignoring coverage names the node does not expose.
func (c *Connection) coverageRanges(n *registry.Node) []registry.Range {
	if c.coverage == nil {
		ranges, err := n.SpanRanges(nil)
		if err != nil {
			return nil
		}
		return ranges
	}
	subset := make(map[string]struct{}, len(c.coverage))
	for name := range c.coverage {
		if _, err := n.Descriptor(name); err == nil {
			subset[name] = struct{}{}
		}
	}
	if len(subset) == 0 {
		return nil
	}
	ranges, err := n.SpanRanges(subset)
	if err != nil {
		return nil
	}
	return ranges
}

// SetRefreshingRate changes the refresh interval; zero or negative
// disables periodic refresh. Takes effect immediately.
func (c *Connection) SetRefreshingRate(rate time.Duration) error {
	return c.call(func() {
		c.rate = rate
		c.stopTicker()
		if rate > 0 && c.state != Disconnected {
			c.ticker = c.clk.Ticker(rate)
		}
	})
}

// SetRefreshingCoverage restricts refresh cycles to the given variable
// names; nil means all. The new coverage applies from the next tick.
func (c *Connection) SetRefreshingCoverage(coverage map[string]struct{}) error {
	return c.call(func() {
		c.coverage = coverage
	})
}
