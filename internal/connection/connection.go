package connection

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"asebalink/internal/logging"
	"asebalink/internal/protocol"
	"asebalink/internal/registry"
	"asebalink/internal/transport"
)

// State is the connection lifecycle.
type State int

const (
	Disconnected State = iota
	Connecting
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Callbacks are the lifecycle hooks surfaced to the controller. They run
// on the dispatch goroutine, never on the run loop.
type Callbacks struct {
	OnConnect               func(nodeID uint16)
	OnDisconnect            func(nodeID uint16)
	OnCommunicationError    func(err error)
	OnExecutionStateChanged func(nodeID uint16, state protocol.ExecutionStateChanged)
}

// Connection is the protocol engine for one robot link.
type Connection struct {
	cfg       Config
	tr        transport.Transport
	clk       clock.Clock
	log       zerolog.Logger
	callbacks Callbacks

	tasks chan func()
	quit  chan struct{}

	// Everything below is owned by the run loop.
	reg      *registry.Registry
	waiters  *waiterTables
	state    State
	failure  error
	coverage map[string]struct{}
	rate     time.Duration
	ticker   *clock.Ticker

	observers map[uint16]func(nodeID uint16)
	listeners map[uint16]func(nodeID uint16, event uint16, args []int16)

	notify chan func()

	receiverDone chan struct{}
	runDone      chan struct{}
	dispatchDone chan struct{}
	closeOnce    sync.Once
}

// New wraps an open transport. The engine owns the transport from here
// on and closes it on teardown.
func New(tr transport.Transport, cfg Config, cb Callbacks) *Connection {
	cfg.fillDefaults()
	return &Connection{
		cfg:          cfg,
		tr:           tr,
		clk:          cfg.Clock,
		log:          logging.Component("connection"),
		callbacks:    cb,
		tasks:        make(chan func(), cfg.TaskQueueDepth),
		quit:         make(chan struct{}),
		reg:          registry.New(),
		waiters:      newWaiterTables(),
		coverage:     cfg.RefreshingCoverage,
		rate:         cfg.RefreshingRate,
		observers:    make(map[uint16]func(uint16)),
		listeners:    make(map[uint16]func(uint16, uint16, []int16)),
		notify:       make(chan func(), 128),
		receiverDone: make(chan struct{}),
		runDone:      make(chan struct{}),
		dispatchDone: make(chan struct{}),
	}
}

// Start launches the run loop, the receiver and the callback dispatcher,
// then asks the link for its nodes.
func (c *Connection) Start() error {
	go c.run()
	go c.dispatchLoop()
	var listErr error
	err := c.call(func() {
		c.state = Connecting
		if c.rate > 0 {
			c.ticker = c.clk.Ticker(c.rate)
		}
		listErr = c.send(protocol.NewListNodes(c.cfg.HostNode))
	})
	// The receiver starts only after LIST_NODES is out so the first
	// inbound frame can never race the Connecting transition. On a dead
	// transport it exits immediately, keeping Close's goroutine
	// accounting intact.
	go c.receiveLoop()
	if err != nil {
		return err
	}
	return listErr
}

// Close tears the connection down: refresh stops, the transport closes
// (unblocking the receiver), the run loop drains, parked waiters fail
// with ErrClosed. Close returns only after all three goroutines have
// terminated. Safe to call more than once.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		close(c.quit)
		c.tr.Close()
		<-c.receiverDone
		<-c.runDone
		close(c.notify)
		<-c.dispatchDone
	})
	return nil
}

// post hands a task to the run loop; it fails once teardown has begun.
func (c *Connection) post(fn func()) error {
	select {
	case <-c.quit:
		return ErrClosed
	default:
	}
	select {
	case c.tasks <- fn:
		return nil
	case <-c.quit:
		return ErrClosed
	}
}

// call posts fn and waits for it to run.
func (c *Connection) call(fn func()) error {
	done := make(chan struct{})
	if err := c.post(func() {
		fn()
		close(done)
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-c.runDone:
		return ErrClosed
	}
}

func (c *Connection) run() {
	defer close(c.runDone)
	for {
		var tickC <-chan time.Time
		if c.ticker != nil {
			tickC = c.ticker.C
		}
		select {
		case fn := <-c.tasks:
			fn()
		case <-tickC:
			c.refreshTick()
		case <-c.quit:
			c.shutdown()
			return
		}
	}
}

// shutdown runs on the loop after quit: it executes whatever tasks made
// it into the queue before teardown, then fails every parked waiter.
func (c *Connection) shutdown() {
	for {
		select {
		case fn := <-c.tasks:
			fn()
		default:
			c.stopTicker()
			c.state = Disconnected
			c.waiters.failAll(ErrClosed)
			return
		}
	}
}

func (c *Connection) stopTicker() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}

// send encodes and writes one frame; a write error is a fatal transport
// failure. Run-loop only.
func (c *Connection) send(msg protocol.Message) error {
	if c.state == Disconnected {
		if c.failure != nil {
			return c.failure
		}
		return ErrClosed
	}
	if err := protocol.WriteMessage(c.tr, msg); err != nil {
		c.transportFailed(err)
		return c.failure
	}
	c.log.Trace().Stringer("msg", msg.ID).Uint16("target", msg.SourceNode).Msg("frame sent")
	return nil
}

// transportFailed moves the connection to Disconnected, exactly once.
// Nothing is retried; reconnect policy belongs to the controller.
func (c *Connection) transportFailed(err error) {
	if c.state == Disconnected {
		return
	}
	c.state = Disconnected
	c.failure = fmt.Errorf("%w: %v", ErrTransportFailed, err)
	c.stopTicker()
	c.waiters.failAll(c.failure)
	c.tr.Close()
	c.log.Error().Err(err).Msg("transport failed")
	if cb := c.callbacks.OnCommunicationError; cb != nil {
		failure := c.failure
		c.dispatch(func() { cb(failure) })
	}
}

// dispatch queues a user callback for the dispatch goroutine.
func (c *Connection) dispatch(fn func()) {
	select {
	case c.notify <- fn:
	case <-c.quit:
	}
}

func (c *Connection) dispatchLoop() {
	defer close(c.dispatchDone)
	for fn := range c.notify {
		fn()
	}
}

func (c *Connection) notifyVariables(nodeID uint16) {
	if fn := c.observers[nodeID]; fn != nil {
		c.dispatch(func() { fn(nodeID) })
	}
}
