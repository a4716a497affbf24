// internal/link/session.go
package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tamzrod/renogy-bridge/internal/modbus"
)

var (
	ErrNotConnected = errors.New("link: not connected")
	ErrTimeout      = errors.New("link: timeout waiting for reply")
	ErrShortReply   = errors.New("link: short reply")
)

// State is the connection state of a Session.
type State int32

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
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Timing holds the connect and exchange timeouts.
type Timing struct {
	Attempts       int
	Backoff        time.Duration
	FindTimeout    time.Duration
	ScanTimeout    time.Duration
	ConnectTimeout time.Duration
	NotifyTimeout  time.Duration
	Grace          time.Duration
}

// DefaultTiming returns the timings Renogy modules are known to tolerate.
func DefaultTiming() Timing {
	return Timing{
		Attempts:       3,
		Backoff:        5 * time.Second,
		FindTimeout:    30 * time.Second,
		ScanTimeout:    10 * time.Second,
		ConnectTimeout: 30 * time.Second,
		NotifyTimeout:  5 * time.Second,
		Grace:          300 * time.Millisecond,
	}
}

// Options configures a Session. Zero values take defaults.
type Options struct {
	Address    string
	WriteUUID  string
	NotifyUUID string
	Timing     *Timing
	Logger     *slog.Logger
}

// Session owns one connection to one radio module. Every device behind the
// module shares it, so exchanges are serialized: mu is held across
// reconnect, write and the whole notification wait.
type Session struct {
	addr       string
	tr         Transport
	timing     Timing
	wantWrite  string
	wantNotify string
	log        *slog.Logger

	mu         sync.Mutex
	conn       Conn
	writeChar  string
	notifyChar string

	state atomic.Int32
	gen   atomic.Uint64

	bufMu   sync.Mutex
	buf     []byte
	arrived chan struct{}
}

// NewSession creates a disconnected session.
func NewSession(tr Transport, opts Options) (*Session, error) {
	if tr == nil {
		return nil, errors.New("link: transport required")
	}
	if opts.Address == "" {
		return nil, errors.New("link: address required")
	}

	s := &Session{
		addr:       opts.Address,
		tr:         tr,
		timing:     DefaultTiming(),
		wantWrite:  opts.WriteUUID,
		wantNotify: opts.NotifyUUID,
		log:        opts.Logger,
		arrived:    make(chan struct{}, 1),
	}
	if opts.Timing != nil {
		s.timing = *opts.Timing
	}
	if s.timing.Attempts < 1 {
		s.timing.Attempts = 1
	}
	if s.wantWrite == "" {
		s.wantWrite = DefaultWriteUUID
	}
	if s.wantNotify == "" {
		s.wantNotify = DefaultNotifyUUID
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("mac", s.addr)
	return s, nil
}

func (s *Session) Address() string { return s.addr }

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// Connect brings the session to Ready. It returns true when already Ready.
func (s *Session) Connect(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connect(ctx)
}

// Close unsubscribes and drops the connection.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setState(Disconnected)
	if s.conn == nil {
		return nil
	}
	_ = s.conn.Unsubscribe(s.notifyChar)
	err := s.conn.Disconnect()
	s.conn = nil
	s.log.Info("disconnected")
	return err
}

// ReadRegisters reads count holding registers of deviceID and returns the
// raw reply frame.
func (s *Session) ReadRegisters(deviceID byte, register, count uint16) ([]byte, error) {
	return s.Send(modbus.BuildReadRequest(deviceID, modbus.FuncReadHolding, register, count))
}

// Send writes one request frame and waits for the reply. It satisfies the
// goburrow modbus.Transporter interface.
func (s *Session) Send(adu []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != Ready {
		s.log.Warn("not connected, reconnecting")
		if !s.connect(context.Background()) {
			return nil, ErrNotConnected
		}
	}

	s.reset()

	s.log.Debug("write", "frame", fmt.Sprintf("% x", adu))
	if err := s.conn.Write(s.writeChar, adu); err != nil {
		s.setState(Disconnected)
		s.log.Error("write failed", "err", err)
		return nil, fmt.Errorf("link: write %s: %w", s.writeChar, err)
	}

	t := time.NewTimer(s.timing.NotifyTimeout)
	defer t.Stop()
	select {
	case <-s.arrived:
	case <-t.C:
		return nil, ErrTimeout
	}

	// one reply may span several notifications
	time.Sleep(s.timing.Grace)

	reply := s.take()
	if len(reply) < modbus.MinFrameLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortReply, len(reply))
	}
	s.log.Debug("reply", "bytes", len(reply), "frame", fmt.Sprintf("% x", reply))
	return reply, nil
}

// ---- connect ----

func (s *Session) connect(ctx context.Context) bool {
	if s.State() == Ready {
		return true
	}

	for attempt := 1; attempt <= s.timing.Attempts; attempt++ {
		if attempt > 1 {
			s.log.Info("retrying connect", "attempt", attempt, "of", s.timing.Attempts)
			if !sleep(ctx, s.timing.Backoff) {
				break
			}
		}

		err := s.connectOnce(ctx)
		if err == nil {
			s.log.Info("connected", "write", s.writeChar, "notify", s.notifyChar)
			return true
		}
		s.log.Warn("connect attempt failed", "attempt", attempt, "err", err)
	}

	s.setState(Disconnected)
	s.log.Error("connect failed", "attempts", s.timing.Attempts)
	return false
}

func (s *Session) connectOnce(ctx context.Context) error {
	s.dropConn()
	s.setState(Connecting)

	p, err := s.resolve(ctx)
	if err != nil {
		s.setState(Disconnected)
		return err
	}

	gen := s.gen.Add(1)
	conn, err := s.tr.Connect(ctx, p, s.timing.ConnectTimeout, func() { s.onDisconnect(gen) })
	if err != nil {
		s.setState(Disconnected)
		return fmt.Errorf("connect: %w", err)
	}

	if err := s.setup(conn); err != nil {
		_ = conn.Disconnect()
		s.setState(Disconnected)
		return err
	}

	s.conn = conn
	s.setState(Ready)
	return nil
}

// resolve tries a direct lookup first and falls back to a full scan.
func (s *Session) resolve(ctx context.Context) (Peripheral, error) {
	p, err := s.tr.FindByAddress(ctx, s.addr, s.timing.FindTimeout)
	if err == nil {
		return p, nil
	}
	s.log.Debug("lookup failed, scanning", "err", err)

	found, err := s.tr.Scan(ctx, s.timing.ScanTimeout)
	if err != nil {
		return Peripheral{}, fmt.Errorf("scan: %w", err)
	}
	for _, p := range found {
		if strings.EqualFold(p.Address, s.addr) {
			return p, nil
		}
	}
	return Peripheral{}, ErrNotFound
}

func (s *Session) setup(conn Conn) error {
	services, err := conn.DiscoverServices()
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}

	var write, notify string
	for _, svc := range services {
		s.log.Debug("service", "uuid", svc.UUID)
		for _, c := range svc.Characteristics {
			s.log.Debug("characteristic", "uuid", c)
			switch {
			case strings.EqualFold(c, s.wantWrite):
				write = c
			case strings.EqualFold(c, s.wantNotify):
				notify = c
			}
		}
	}

	if write == "" {
		write = DefaultWriteUUID
		s.log.Warn("write characteristic not found, using default", "uuid", write)
	}
	if notify == "" {
		notify = DefaultNotifyUUID
		s.log.Warn("notify characteristic not found, using default", "uuid", notify)
	}

	if err := conn.Subscribe(notify, s.onNotify); err != nil {
		return fmt.Errorf("subscribe %s: %w", notify, err)
	}

	s.writeChar, s.notifyChar = write, notify
	return nil
}

// dropConn releases a connection left behind by a remote disconnect.
func (s *Session) dropConn() {
	if s.conn == nil {
		return
	}
	_ = s.conn.Disconnect()
	s.conn = nil
}

// onDisconnect ignores callbacks from connections already replaced.
func (s *Session) onDisconnect(gen uint64) {
	if s.gen.Load() != gen {
		return
	}
	s.setState(Disconnected)
	s.log.Warn("link dropped")
}

// ---- notification buffer ----

func (s *Session) onNotify(b []byte) {
	s.bufMu.Lock()
	s.buf = append(s.buf, b...)
	s.bufMu.Unlock()

	select {
	case s.arrived <- struct{}{}:
	default:
	}
}

func (s *Session) reset() {
	s.bufMu.Lock()
	s.buf = s.buf[:0]
	s.bufMu.Unlock()

	select {
	case <-s.arrived:
	default:
	}
}

func (s *Session) take() []byte {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	return append([]byte(nil), s.buf...)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
