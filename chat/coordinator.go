// Package chat
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/elsanobooking/chatlink/codec"
	"github.com/elsanobooking/chatlink/rest"
)

// ErrBlankMessage is returned by Send for whitespace-only text.
var ErrBlankMessage = errors.New("blank message")

const (
	restSendTimeout    = 10 * time.Second
	historyTimeout     = 10 * time.Second
	snapshotBufferSize = 16
)

// Identity supplies the local user id and current bearer token.
type Identity interface {
	UserID() int
	Token() string
}

// MessageAPI is the REST fallback channel: durable but higher latency
// than the socket, used both as the secondary delivery path and for
// history retrieval.
type MessageAPI interface {
	SendMessage(ctx context.Context, p rest.ChatPayload) error
	Conversations(ctx context.Context, userID int) ([]rest.Conversation, error)
	Messages(ctx context.Context, userID, contactID int) (*rest.History, error)
}

// Coordinator is the façade of the realtime delivery core. It accepts
// send and inbound events, orchestrates the connection manager,
// delivery queue and reconciliation cache, and publishes read-only
// snapshots to the UI layer.
//
// All state is mutated on a single run loop goroutine; transport
// callbacks and timers are serialized onto it. Network writes are
// fire-and-forget, with completions observed back on the loop.
type Coordinator struct {
	identity Identity
	api      MessageAPI
	opts     *Options
	metrics  *metrics
	log      *log.Entry

	conn  *connManager
	queue *deliveryQueue
	cache *reconcileCache

	messages   []ChatMessage
	peerID     int
	peerName   string
	lastErr    string
	historyGen int

	subMu    sync.Mutex
	subs     []chan Snapshot
	subsDone bool

	tasks  chan func()
	done   chan struct{}
	closed bool
	now    func() time.Time
}

// New creates a coordinator and starts connecting immediately. base
// is the platform origin, e.g. "https://api.example.com"; the
// realtime URL is derived from it.
func New(base string, identity Identity, api MessageAPI, options ...Option) *Coordinator {
	opts := defaultOptions()
	opts.Apply(options)

	c := &Coordinator{
		identity: identity,
		api:      api,
		opts:     opts,
		metrics:  newMetrics(opts.Registry),
		queue:    newDeliveryQueue(),
		tasks:    make(chan func(), 128),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	c.log = log.WithFields(log.Fields{
		"Name": "Coordinator",
		"User": identity.UserID(),
	})
	c.cache = newReconcileCache(func() time.Time { return c.now() })

	c.conn = newConnManager(base, identity, opts, c.metrics, c.schedule)
	c.conn.onFrame = c.onFrame
	c.conn.onActive = c.flushQueue
	c.conn.onState = func(State) { c.publish() }

	go c.run()
	c.conn.start()
	return c
}

func (c *Coordinator) run() {
	for {
		select {
		case f := <-c.tasks:
			f()
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) schedule(f func()) {
	select {
	case c.tasks <- f:
	case <-c.done:
	}
}

// Send records the message optimistically and hands it to both
// delivery paths. It never blocks on network I/O.
func (c *Coordinator) Send(text, receiverName string) error {
	if strings.TrimSpace(text) == "" {
		return ErrBlankMessage
	}
	c.schedule(func() { c.send(text, receiverName) })
	return nil
}

func (c *Coordinator) send(text, receiverName string) {
	if c.closed {
		return
	}
	if c.peerID <= 0 {
		c.log.Warn("send dropped, no conversation selected")
		return
	}
	if receiverName != "" && c.peerName == "" {
		c.peerName = receiverName
	}

	now := c.now()
	correlationID := uuid.NewString()

	c.messages = append(c.messages, ChatMessage{
		Sender:    c.opts.SelfLabel,
		Text:      text,
		FromSelf:  true,
		Timestamp: now.Format(clockTimeLayout),
	})
	c.cache.insert(text, correlationID)

	out := &OutboundMessage{
		ReceiverID:    c.peerID,
		Content:       text,
		CreatedAt:     now,
		CorrelationID: correlationID,
	}
	c.queue.enqueue(out)

	// dual-path delivery: latency-optimized socket plus the durable
	// REST channel, since the protocol has no delivery ack
	if c.conn.state == Active {
		c.transmitSocket(out)
	}
	c.postFallback(out)

	c.publish()
}

func (c *Coordinator) transmitSocket(m *OutboundMessage) {
	c.conn.transmit(codec.EncodeInvocation(
		codec.TargetSendMessage,
		c.identity.UserID(),
		m.ReceiverID,
		m.Content,
	))
	m.Attempt = SocketSent
	c.metrics.socketSends.Inc()
}

func (c *Coordinator) postFallback(m *OutboundMessage) {
	payload := rest.ChatPayload{
		SenderID:   c.identity.UserID(),
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Timestamp:  m.CreatedAt.Format(wireTimeLayout),
	}
	c.metrics.restSends.Inc()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), restSendTimeout)
		defer cancel()
		err := c.api.SendMessage(ctx, payload)
		c.schedule(func() {
			if err != nil {
				c.metrics.restSendErrors.Inc()
				c.log.WithError(err).Debug("fallback post failed")
			}
		})
	}()
}

// flushQueue replays every unconfirmed message over the socket in
// enqueue order. Runs on each transition to Active.
func (c *Coordinator) flushQueue() {
	pending := c.queue.pending()
	if len(pending) == 0 {
		return
	}
	c.log.WithField("Count", len(pending)).Info("replaying unconfirmed messages")
	for _, m := range pending {
		c.transmitSocket(m)
	}
}

func (c *Coordinator) onFrame(f codec.Frame) {
	switch f.Kind {
	case codec.Invocation:
		if rm, ok := f.Received(); ok {
			c.onReceived(rm)
		}
	case codec.Ping, codec.Handshake:
		// inbound activity only; nothing to do
	}
}

func (c *Coordinator) onReceived(rm codec.Received) {
	if rm.SentByCaller {
		c.reconcileEcho(rm)
	} else {
		c.messages = append(c.messages, ChatMessage{
			Sender:          c.senderLabel(rm.SenderID),
			Text:            rm.Content,
			FromSelf:        false,
			Timestamp:       rm.Time,
			ServerMessageID: rm.MessageID,
			Confirmed:       true,
		})
	}
	c.publish()
}

// reconcileEcho matches a self echo to its optimistic entry. A missed
// match appends a second copy on purpose: duplication over loss.
func (c *Coordinator) reconcileEcho(rm codec.Received) {
	if e, ok := c.cache.match(rm.Content); ok {
		c.queue.confirm(e.correlationID)
		// the optimistic entry may have moved or been displaced by a
		// history reload since the send, so locate it by content in the
		// live sequence rather than by a stored position
		if i := c.findUnconfirmed(rm.Content); i >= 0 {
			c.messages[i].ServerMessageID = rm.MessageID
			c.messages[i].Confirmed = true
			c.metrics.reconciled.Inc()
			return
		}
	}
	c.metrics.duplicateEchoes.Inc()
	c.messages = append(c.messages, ChatMessage{
		Sender:          c.opts.SelfLabel,
		Text:            rm.Content,
		FromSelf:        true,
		Timestamp:       rm.Time,
		ServerMessageID: rm.MessageID,
		Confirmed:       true,
	})
}

// findUnconfirmed returns the position of the first optimistic self
// entry with the given text, or -1.
func (c *Coordinator) findUnconfirmed(text string) int {
	for i, m := range c.messages {
		if m.FromSelf && !m.Confirmed && m.Text == text {
			return i
		}
	}
	return -1
}

func (c *Coordinator) senderLabel(senderID int) string {
	if c.peerName != "" {
		return c.peerName
	}
	return fmt.Sprintf("User #%d", senderID)
}

// SelectConversation switches the active peer, resets the message
// sequence and fetches the conversation history over REST. Fetch
// failures surface as a retryable error on the snapshot.
func (c *Coordinator) SelectConversation(peerID int) {
	c.schedule(func() {
		if c.closed || peerID <= 0 {
			return
		}
		c.peerID = peerID
		c.peerName = ""
		c.messages = nil
		c.lastErr = ""
		c.cache.reset()
		c.historyGen++
		c.publish()
		c.fetchHistory(peerID, c.historyGen)
	})
}

func (c *Coordinator) fetchHistory(peerID, gen int) {
	userID := c.identity.UserID()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()
		history, err := c.api.Messages(ctx, userID, peerID)
		c.schedule(func() { c.onHistory(peerID, gen, history, err) })
	}()
}

func (c *Coordinator) onHistory(peerID, gen int, history *rest.History, err error) {
	if c.closed || gen != c.historyGen || peerID != c.peerID {
		return
	}
	if err != nil {
		c.log.WithError(err).Warn("history fetch failed")
		c.lastErr = fmt.Sprintf("could not load messages: %v", err)
		c.publish()
		return
	}

	c.peerName = history.Contact.DisplayName()
	c.messages = make([]ChatMessage, 0, len(history.Messages))
	for _, m := range history.Messages {
		sender := c.peerName
		if m.SentByMe {
			sender = c.opts.SelfLabel
		}
		c.messages = append(c.messages, ChatMessage{
			Sender:          sender,
			Text:            m.Content,
			FromSelf:        m.SentByMe,
			Timestamp:       clockTime(m.Timestamp),
			ServerMessageID: m.ID,
			Confirmed:       true,
		})
	}
	c.lastErr = ""
	c.publish()
}

func clockTime(wire string) string {
	t, err := time.Parse(wireTimeLayout, wire)
	if err != nil {
		return "N/A"
	}
	return t.Format(clockTimeLayout)
}

// Conversations fetches the conversation list with last-message
// previews. User-initiated and retryable; errors are returned
// directly.
func (c *Coordinator) Conversations(ctx context.Context) ([]rest.Conversation, error) {
	return c.api.Conversations(ctx, c.identity.UserID())
}

// RequestReconnect restarts the connection cycle. Idempotent while
// connecting or active.
func (c *Coordinator) RequestReconnect() {
	c.schedule(c.conn.requestReconnect)
}

// Snapshots subscribes to state changes. The channel carries
// immutable snapshots; when the subscriber lags, the oldest snapshot
// is dropped. After Close the returned channel is already closed.
func (c *Coordinator) Snapshots() <-chan Snapshot {
	ch := make(chan Snapshot, snapshotBufferSize)
	c.subMu.Lock()
	if c.subsDone {
		c.subMu.Unlock()
		close(ch)
		return ch
	}
	c.subs = append(c.subs, ch)
	c.subMu.Unlock()

	c.schedule(func() {
		c.subMu.Lock()
		done := c.subsDone
		c.subMu.Unlock()
		if !done {
			offer(ch, c.snapshot())
		}
	})
	return ch
}

func (c *Coordinator) publish() {
	snap := c.snapshot()
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		offer(ch, snap)
	}
}

func offer(ch chan Snapshot, snap Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (c *Coordinator) snapshot() Snapshot {
	messages := make([]ChatMessage, len(c.messages))
	copy(messages, c.messages)
	return Snapshot{
		State:     c.conn.state,
		Messages:  messages,
		PeerID:    c.peerID,
		PeerName:  c.peerName,
		LastError: c.lastErr,
	}
}

// State reports the current connection state.
func (c *Coordinator) State() State {
	res := make(chan State, 1)
	c.schedule(func() { res <- c.conn.state })
	select {
	case s := <-res:
		return s
	case <-c.done:
		return Closing
	}
}

// Messages returns a copy of the current message sequence.
func (c *Coordinator) Messages() []ChatMessage {
	res := make(chan []ChatMessage, 1)
	c.schedule(func() {
		messages := make([]ChatMessage, len(c.messages))
		copy(messages, c.messages)
		res <- messages
	})
	select {
	case m := <-res:
		return m
	case <-c.done:
		return nil
	}
}

// Close tears down the conversation session: stops the watchdog and
// any reconnect cycle and closes the socket with a normal closure.
// In-flight REST sends are left to finish.
func (c *Coordinator) Close() {
	c.schedule(func() {
		if c.closed {
			return
		}
		c.closed = true
		c.conn.close()
		c.publish()
		c.subMu.Lock()
		c.subsDone = true
		subs := c.subs
		c.subs = nil
		c.subMu.Unlock()
		for _, ch := range subs {
			close(ch)
		}
		close(c.done)
	})
}
