// Package chat
package chat

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/elsanobooking/chatlink/rest"
	"github.com/elsanobooking/chatlink/transport"
)

type staticIdentity struct {
	id    int
	token string
}

func (s staticIdentity) UserID() int   { return s.id }
func (s staticIdentity) Token() string { return s.token }

type fakeTransport struct {
	inbound chan []byte
	writes  chan []byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound: make(chan []byte, 16),
		writes:  make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (t *fakeTransport) Read() ([]byte, error) {
	select {
	case data := <-t.inbound:
		return data, nil
	case <-t.closed:
		return nil, errors.New("transport closed")
	}
}

func (t *fakeTransport) Write(data []byte) error {
	select {
	case <-t.closed:
		return errors.New("transport closed")
	default:
	}
	t.writes <- data
	return nil
}

func (t *fakeTransport) Close(bool) error {
	t.once.Do(func() { close(t.closed) })
	return nil
}

func (t *fakeTransport) feed(data []byte) {
	t.inbound <- data
}

// fail simulates a transport-level failure observed by the read pump.
func (t *fakeTransport) fail() {
	t.Close(false)
}

type fakeDialer struct {
	mu     sync.Mutex
	fail   bool
	dialed []string
	last   *fakeTransport
}

func (d *fakeDialer) Dial(url string, _ http.Header) (transport.Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialed = append(d.dialed, url)
	if d.fail {
		return nil, errors.New("dial refused")
	}
	t := newFakeTransport()
	d.last = t
	return t, nil
}

func (d *fakeDialer) setFail(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = fail
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dialed)
}

func (d *fakeDialer) dialedURL(i int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dialed[i]
}

func (d *fakeDialer) lastTransport() *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

type fakeAfter struct {
	mu      sync.Mutex
	delays  []time.Duration
	pending []func()
}

func (a *fakeAfter) afterFunc(d time.Duration, f func()) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.delays = append(a.delays, d)
	a.pending = append(a.pending, f)
	return func() {}
}

func (a *fakeAfter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.delays)
}

func (a *fakeAfter) fire(i int) {
	a.mu.Lock()
	f := a.pending[i]
	a.mu.Unlock()
	f()
}

func (a *fakeAfter) allDelays() []time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]time.Duration, len(a.delays))
	copy(out, a.delays)
	return out
}

type fakeAPI struct {
	mu            sync.Mutex
	sent          []rest.ChatPayload
	sentCh        chan rest.ChatPayload
	history       *rest.History
	historyErr    error
	historyGate   chan struct{}
	conversations []rest.Conversation
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{sentCh: make(chan rest.ChatPayload, 16)}
}

func (a *fakeAPI) SendMessage(_ context.Context, p rest.ChatPayload) error {
	a.mu.Lock()
	a.sent = append(a.sent, p)
	a.mu.Unlock()
	a.sentCh <- p
	return nil
}

func (a *fakeAPI) Conversations(context.Context, int) ([]rest.Conversation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conversations, nil
}

// Messages blocks on historyGate when one is set, letting tests hold
// the fetch open while other events land.
func (a *fakeAPI) Messages(context.Context, int, int) (*rest.History, error) {
	a.mu.Lock()
	gate := a.historyGate
	err := a.historyErr
	history := a.history
	a.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return history, nil
}

// serial is a miniature run loop standing in for the coordinator's in
// connection manager tests.
type serial struct {
	tasks chan func()
	done  chan struct{}
}

func newSerial() *serial {
	s := &serial{tasks: make(chan func(), 128), done: make(chan struct{})}
	go func() {
		for {
			select {
			case f := <-s.tasks:
				f()
			case <-s.done:
				return
			}
		}
	}()
	return s
}

func (s *serial) schedule(f func()) {
	select {
	case s.tasks <- f:
	case <-s.done:
	}
}

// sync runs f on the loop and waits for it.
func (s *serial) sync(f func()) {
	doneCh := make(chan struct{})
	s.schedule(func() {
		f()
		close(doneCh)
	})
	<-doneCh
}

func (s *serial) stop() {
	close(s.done)
}
