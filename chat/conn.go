// Package chat
package chat

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/elsanobooking/chatlink/codec"
	"github.com/elsanobooking/chatlink/transport"
)

const (
	initialBackoff       = time.Second
	maxBackoff           = 10 * time.Second
	maxReconnectAttempts = 5

	writeBufferSize = 64
)

// connManager owns the socket and drives the connection state
// machine. Every method is invoked on the coordinator's run loop; the
// read and write pumps run on their own goroutines and post their
// results back through schedule. A generation counter guards against
// callbacks from connections that have already been torn down.
type connManager struct {
	base     string
	identity Identity
	opts     *Options
	metrics  *metrics
	log      *log.Entry

	schedule func(func())
	spawn    func(func())
	onFrame  func(codec.Frame)
	onActive func()
	onState  func(State)

	state          State
	t              transport.Transport
	writeCh        chan []byte
	gen            int
	attempts       int
	rememberedPath string
	lastInbound    time.Time
	retryStop      func()
	closed         bool

	now          func() time.Time
	afterFunc    func(time.Duration, func()) func()
	watchdogStop chan struct{}
}

func newConnManager(base string, identity Identity, opts *Options, m *metrics, schedule func(func())) *connManager {
	c := &connManager{
		base:         base,
		identity:     identity,
		opts:         opts,
		metrics:      m,
		schedule:     schedule,
		spawn:        func(f func()) { go f() },
		state:        Disconnected,
		now:          time.Now,
		watchdogStop: make(chan struct{}),
	}
	c.afterFunc = func(d time.Duration, f func()) func() {
		timer := time.AfterFunc(d, f)
		return func() { timer.Stop() }
	}
	c.log = log.WithFields(log.Fields{
		"Name": "ConnManager",
		"User": identity.UserID(),
	})
	return c
}

func (m *connManager) start() {
	m.spawn(m.watchdog)
	m.schedule(m.connect)
}

func (m *connManager) setState(s State) {
	if m.state == s {
		return
	}
	m.state = s
	if m.onState != nil {
		m.onState(s)
	}
}

func (m *connManager) connect() {
	if m.closed || m.state != Disconnected {
		return
	}
	m.setState(Connecting)
	m.gen++
	gen := m.gen
	path := m.opts.HubPath
	if m.rememberedPath != "" {
		path = m.rememberedPath
	}
	endpoint := m.hubURL(path)
	m.log.WithField("URL", endpoint).Info("connecting")

	m.spawn(func() {
		t, err := m.opts.Dialer.Dial(endpoint, nil)
		m.schedule(func() { m.onDialResult(gen, path, t, err) })
	})
}

func (m *connManager) hubURL(path string) string {
	base := m.base
	if strings.HasPrefix(base, "http") {
		base = "ws" + strings.TrimPrefix(base, "http")
	}
	endpoint := fmt.Sprintf("%s%s?userId=%d", base, path, m.identity.UserID())
	if token := m.identity.Token(); token != "" {
		endpoint += "&access_token=" + url.QueryEscape(token)
	}
	return endpoint
}

func (m *connManager) onDialResult(gen int, path string, t transport.Transport, err error) {
	if m.closed || gen != m.gen {
		if t != nil {
			_ = t.Close(false)
		}
		return
	}
	if err != nil {
		m.log.WithError(err).Warn("dial failed")
		m.metrics.dialFailures.Inc()
		if path == m.rememberedPath {
			m.rememberedPath = ""
		}
		m.setState(Disconnected)
		m.scheduleRetry()
		return
	}

	m.t = t
	m.writeCh = make(chan []byte, writeBufferSize)
	m.setState(HandshakeSent)

	// The server's handshake ack is not waited for; the channel is
	// treated as usable as soon as the negotiation record is written.
	m.writeCh <- codec.EncodeHandshake()

	m.rememberedPath = path
	m.attempts = 0
	m.lastInbound = m.now()
	m.spawn(func() { m.readPump(gen, t) })
	m.spawn(func() { m.writePump(gen, t, m.writeCh) })
	m.setState(Active)
	m.log.Info("connected")
	if m.onActive != nil {
		m.onActive()
	}
}

func (m *connManager) readPump(gen int, t transport.Transport) {
	for {
		data, err := t.Read()
		if err != nil {
			m.schedule(func() { m.onTransportError(gen, err) })
			return
		}
		payload := data
		m.schedule(func() { m.onInbound(gen, payload) })
	}
}

func (m *connManager) writePump(gen int, t transport.Transport, ch chan []byte) {
	for data := range ch {
		if err := t.Write(data); err != nil {
			m.schedule(func() { m.onTransportError(gen, err) })
			return
		}
	}
}

// onInbound drains every record of one transport message; a single
// message may carry several concatenated frames.
func (m *connManager) onInbound(gen int, data []byte) {
	if m.closed || gen != m.gen {
		return
	}
	m.lastInbound = m.now()
	for _, f := range codec.Decode(data) {
		if f.Kind == codec.Unknown {
			m.metrics.framesDropped.Inc()
			m.log.Debug("dropped unrecognized frame")
			continue
		}
		m.metrics.framesDecoded.Inc()
		if m.onFrame != nil {
			m.onFrame(f)
		}
	}
}

func (m *connManager) onTransportError(gen int, err error) {
	if m.closed || gen != m.gen {
		return
	}
	m.log.WithError(err).Warn("transport failure")
	m.teardown()
	m.setState(Disconnected)
	m.scheduleRetry()
}

// transmit queues data for the write pump. Never blocks the run loop;
// when the buffer is full the frame is dropped and left to the
// delivery queue replay.
func (m *connManager) transmit(data []byte) {
	if m.state != Active || m.writeCh == nil {
		return
	}
	select {
	case m.writeCh <- data:
	default:
		m.log.Warn("write buffer full, frame dropped")
	}
}

func (m *connManager) scheduleRetry() {
	if m.closed {
		return
	}
	if m.attempts >= maxReconnectAttempts {
		m.log.Warn("reconnect attempts exhausted, waiting for explicit reconnect")
		return
	}
	m.attempts++
	delay := backoffDelay(m.attempts)
	m.metrics.reconnects.Inc()
	m.log.WithFields(log.Fields{
		"Attempt": m.attempts,
		"Delay":   delay,
	}).Info("reconnect scheduled")
	m.retryStop = m.afterFunc(delay, func() {
		m.schedule(func() {
			m.retryStop = nil
			m.connect()
		})
	})
}

// backoffDelay doubles from one second per attempt, capped at ten.
func backoffDelay(attempt int) time.Duration {
	d := initialBackoff << uint(attempt-1)
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// requestReconnect restarts the backoff cycle. Idempotent while a
// connection is being established or already up.
func (m *connManager) requestReconnect() {
	if m.closed {
		return
	}
	switch m.state {
	case Connecting, HandshakeSent, Active:
		return
	}
	if m.retryStop != nil {
		m.retryStop()
		m.retryStop = nil
	}
	m.attempts = 0
	m.connect()
}

// forceReconnect tears the current connection down and dials again
// immediately. Used by the watchdog when the connection went silent.
func (m *connManager) forceReconnect() {
	if m.closed {
		return
	}
	m.teardown()
	m.setState(Disconnected)
	m.attempts = 0
	m.connect()
}

func (m *connManager) watchdog() {
	ticker := time.NewTicker(m.opts.WatchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.watchdogStop:
			return
		case <-ticker.C:
			m.schedule(m.onWatchdogTick)
		}
	}
}

func (m *connManager) onWatchdogTick() {
	if m.closed {
		return
	}
	switch {
	case m.state == Active && m.now().Sub(m.lastInbound) > m.opts.SilenceThreshold:
		m.log.Warn("connection silent past threshold, reconnecting")
		m.forceReconnect()
	case m.state == Active:
		m.transmit(codec.EncodePing())
	case m.state == Disconnected && m.retryStop == nil && m.attempts < maxReconnectAttempts:
		m.connect()
	}
}

func (m *connManager) teardown() {
	if m.writeCh != nil {
		close(m.writeCh)
		m.writeCh = nil
	}
	if m.t != nil {
		_ = m.t.Close(false)
		m.t = nil
	}
	m.gen++
}

func (m *connManager) close() {
	if m.closed {
		return
	}
	m.closed = true
	close(m.watchdogStop)
	if m.retryStop != nil {
		m.retryStop()
		m.retryStop = nil
	}
	if m.writeCh != nil {
		close(m.writeCh)
		m.writeCh = nil
	}
	if m.t != nil {
		_ = m.t.Close(true)
		m.t = nil
	}
	m.setState(Closing)
	m.log.Info("closed")
}
