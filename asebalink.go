// Package asebalink drives small Aseba robots over a serial or TCP
// link: it speaks the binary message protocol, mirrors each node's
// variable memory in a local cache, keeps the cache fresh on a periodic
// schedule, and exposes the whole thing behind a synchronous API.
//
// A Robot wraps one link. Reads come from the cache and are immediate
// once a node is described; writes go to the cache and the wire in one
// step. The robot remains the authority: the next refresh answer
// overwrites any local write.
package asebalink

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"asebalink/internal/connection"
	"asebalink/internal/logging"
	"asebalink/internal/registry"
	"asebalink/internal/transport"
)

var (
	ErrNotConnected    = errors.New("asebalink: not connected")
	ErrConnected       = errors.New("asebalink: already connected")
	ErrClosed          = connection.ErrClosed
	ErrTimeout         = connection.ErrTimeout
	ErrTransportFailed = connection.ErrTransportFailed
	ErrUnknownNode     = registry.ErrUnknownNode
	ErrUnknownVariable = registry.ErrUnknownVariable
	ErrLengthMismatch  = registry.ErrLengthMismatch
	ErrNoSerialPort    = transport.ErrNoSerialPort
)

// VariableInfo locates one named variable in a node's memory.
type VariableInfo struct {
	Name   string
	Offset uint16
	Size   uint16
}

// NodeInfo is a point-in-time snapshot of one node.
type NodeInfo struct {
	ID              uint16
	Version         uint16
	Name            string
	State           string
	DeviceName      string
	Variables       []VariableInfo
	LocalEvents     []string
	NativeFunctions []string
	LastRefresh     time.Time
}

// Robot is one robot link. New configures it, Connect opens it, and the
// remaining methods require a connected link. A Robot is not reusable
// after Close.
type Robot struct {
	port            string
	tr              io.ReadWriteCloser
	rate            time.Duration
	coverage        map[string]struct{}
	connectTimeout  time.Duration
	getTimeout      time.Duration
	lostAfterMisses int
	onConnect       func(nodeID uint16)
	onDisconnect    func(nodeID uint16)
	onCommError     func(err error)

	log       zerolog.Logger
	conn      *connection.Connection
	firstNode uint16
}

// Option configures a Robot before Connect.
type Option func(*Robot)

// WithPort sets the link endpoint: a serial device path or a host:port
// TCP spec. Unset means autodetect the serial port.
func WithPort(port string) Option {
	return func(r *Robot) { r.port = port }
}

// WithTransport injects an already open byte stream instead of dialing.
// The Robot owns it from Connect on.
func WithTransport(tr io.ReadWriteCloser) Option {
	return func(r *Robot) { r.tr = tr }
}

// WithRefreshingRate sets the interval between variable refresh cycles;
// zero disables periodic refresh.
func WithRefreshingRate(d time.Duration) Option {
	return func(r *Robot) { r.rate = d }
}

// WithRefreshingCoverage restricts refresh cycles to the named
// variables; none means all.
func WithRefreshingCoverage(names ...string) Option {
	return func(r *Robot) { r.coverage = coverageSet(names) }
}

// WithConnectTimeout bounds the wait for the first node handshake.
func WithConnectTimeout(d time.Duration) Option {
	return func(r *Robot) { r.connectTimeout = d }
}

// WithGetTimeout bounds blocking variable reads.
func WithGetTimeout(d time.Duration) Option {
	return func(r *Robot) { r.getTimeout = d }
}

// WithLostAfterMisses sets how many consecutive unanswered refresh
// cycles mark a node lost.
func WithLostAfterMisses(n int) Option {
	return func(r *Robot) { r.lostAfterMisses = n }
}

// OnConnect registers a hook fired whenever a node completes its
// handshake. It runs on the link's dispatch goroutine.
func OnConnect(fn func(nodeID uint16)) Option {
	return func(r *Robot) { r.onConnect = fn }
}

// OnDisconnect registers a hook fired when a node stops answering
// refresh cycles and is marked lost. It runs on the link's dispatch
// goroutine.
func OnDisconnect(fn func(nodeID uint16)) Option {
	return func(r *Robot) { r.onDisconnect = fn }
}

// OnCommunicationError registers a hook fired once when the link dies.
// It runs on the link's dispatch goroutine.
func OnCommunicationError(fn func(err error)) Option {
	return func(r *Robot) { r.onCommError = fn }
}

// New returns an unconnected Robot. Defaults: autodetected serial port,
// 10 Hz refresh over all variables, 5 s connect and 3 s read bounds.
func New(opts ...Option) *Robot {
	r := &Robot{
		rate:            100 * time.Millisecond,
		connectTimeout:  5 * time.Second,
		getTimeout:      3 * time.Second,
		lostAfterMisses: 30,
		log:             logging.Component("robot"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect opens the transport, starts the protocol engine and blocks
// until the first node has completed its handshake.
func (r *Robot) Connect() error {
	if r.conn != nil {
		return ErrConnected
	}
	tr := r.tr
	if tr == nil {
		port := r.port
		if port == "" {
			detected, err := transport.DefaultPort()
			if err != nil {
				return err
			}
			port = detected
			r.log.Info().Str("port", port).Msg("autodetected serial port")
		}
		dialed, err := transport.Dial(port)
		if err != nil {
			return err
		}
		tr = dialed
	}

	rate := r.rate
	if rate <= 0 {
		// Zero disables at this level; the engine reads zero as its default.
		rate = -1
	}
	conn := connection.New(tr, connection.Config{
		RefreshingRate:     rate,
		RefreshingCoverage: r.coverage,
		LostAfterMisses:    r.lostAfterMisses,
	}, connection.Callbacks{
		OnConnect:            r.onConnect,
		OnDisconnect:         r.onDisconnect,
		OnCommunicationError: r.onCommError,
	})
	if err := conn.Start(); err != nil {
		conn.Close()
		return fmt.Errorf("asebalink: connect: %w", err)
	}
	id, err := conn.WaitForNode(r.connectTimeout)
	if err != nil {
		conn.Close()
		return fmt.Errorf("asebalink: no node answered: %w", err)
	}
	r.conn = conn
	r.firstNode = id
	r.log.Info().Uint16("node", id).Msg("connected")
	return nil
}

// Close tears the link down and waits for the engine to stop. Safe to
// call more than once.
func (r *Robot) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

// FirstNode returns the node that completed its handshake during
// Connect.
func (r *Robot) FirstNode() (uint16, error) {
	if r.conn == nil {
		return 0, ErrNotConnected
	}
	return r.firstNode, nil
}

// Nodes returns the known node ids.
func (r *Robot) Nodes() ([]uint16, error) {
	if r.conn == nil {
		return nil, ErrNotConnected
	}
	return r.conn.Nodes()
}

// Node returns a snapshot of one node.
func (r *Robot) Node(nodeID uint16) (NodeInfo, error) {
	if r.conn == nil {
		return NodeInfo{}, ErrNotConnected
	}
	info, err := r.conn.NodeInfo(nodeID)
	if err != nil {
		return NodeInfo{}, err
	}
	out := NodeInfo{
		ID:              info.ID,
		Version:         info.Version,
		Name:            info.Name,
		State:           info.State.String(),
		DeviceName:      info.Device.Name,
		LocalEvents:     info.LocalEvents,
		NativeFunctions: info.NativeFunctions,
		LastRefresh:     info.LastRefresh,
	}
	for _, d := range info.Variables {
		out.Variables = append(out.Variables, VariableInfo{Name: d.Name, Offset: d.Offset, Size: d.Size})
	}
	return out, nil
}

// VariableNames returns one node's variable names in declaration order.
func (r *Robot) VariableNames(nodeID uint16) ([]string, error) {
	info, err := r.Node(nodeID)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(info.Variables))
	for i, v := range info.Variables {
		names[i] = v.Name
	}
	return names, nil
}

// Get returns the cached value of one variable, waiting for the node's
// description if it has not landed yet.
func (r *Robot) Get(nodeID uint16, name string) ([]int16, error) {
	if r.conn == nil {
		return nil, ErrNotConnected
	}
	return r.conn.Get(nodeID, name, r.getTimeout)
}

// Set writes one variable to the cache and the robot. It returns once
// the frame is on the wire; there is no acknowledgment.
func (r *Robot) Set(nodeID uint16, name string, values []int16) error {
	if r.conn == nil {
		return ErrNotConnected
	}
	return r.conn.Set(nodeID, name, values)
}

// SetVariableObserver installs fn as the per-refresh-cycle notification
// for one node; nil removes it.
func (r *Robot) SetVariableObserver(nodeID uint16, fn func(nodeID uint16)) error {
	if r.conn == nil {
		return ErrNotConnected
	}
	return r.conn.SetVariableObserver(nodeID, fn)
}

// SetEventListener installs fn for user events emitted by one node; nil
// removes it.
func (r *Robot) SetEventListener(nodeID uint16, fn func(nodeID uint16, event uint16, args []int16)) error {
	if r.conn == nil {
		return ErrNotConnected
	}
	return r.conn.SetEventListener(nodeID, fn)
}

// RunProgram uploads an assembled bytecode blob and starts it.
func (r *Robot) RunProgram(nodeID uint16, blob []byte) error {
	if r.conn == nil {
		return ErrNotConnected
	}
	if err := r.conn.SendBytecode(nodeID, blob); err != nil {
		return err
	}
	return r.conn.Run(nodeID)
}

// StopProgram halts the running program on one node.
func (r *Robot) StopProgram(nodeID uint16) error {
	if r.conn == nil {
		return ErrNotConnected
	}
	return r.conn.Stop(nodeID)
}

// SetRefreshingRate changes the refresh interval; zero disables
// periodic refresh.
func (r *Robot) SetRefreshingRate(d time.Duration) error {
	if r.conn == nil {
		r.rate = d
		return nil
	}
	return r.conn.SetRefreshingRate(d)
}

// SetRefreshingCoverage restricts refresh cycles to the named
// variables; none restores full coverage.
func (r *Robot) SetRefreshingCoverage(names ...string) error {
	set := coverageSet(names)
	if r.conn == nil {
		r.coverage = set
		return nil
	}
	return r.conn.SetRefreshingCoverage(set)
}

func coverageSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}
