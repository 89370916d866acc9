package connection

import (
	"errors"

	"asebalink/internal/protocol"
)

// receiveLoop is the only reader of the transport. It blocks on one
// frame at a time, drops malformed frames, and posts everything else to
// the run loop. A read error is terminal: the loop posts the failure and
// exits without retrying.
func (c *Connection) receiveLoop() {
	defer close(c.receiverDone)
	for {
		msg, err := protocol.ReadMessage(c.tr)
		switch {
		case err == nil:
			if c.post(func() { c.handleMessage(msg) }) != nil {
				return
			}
		case errors.Is(err, protocol.ErrUnknownMessageID):
			c.log.Warn().Stringer("msg", msg.ID).Uint16("source", msg.SourceNode).
				Msg("dropped frame with unknown message id")
		default:
			c.post(func() { c.transportFailed(err) })
			return
		}
	}
}
