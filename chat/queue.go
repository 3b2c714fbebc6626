// Package chat
package chat

// deliveryQueue holds outbound messages that have not been confirmed
// yet. Entries are replayed in enqueue order whenever the connection
// becomes active and are never dropped for age. The queue is owned by
// the coordinator's run loop and needs no locking.
type deliveryQueue struct {
	entries []*OutboundMessage
}

func newDeliveryQueue() *deliveryQueue {
	return &deliveryQueue{}
}

func (q *deliveryQueue) enqueue(m *OutboundMessage) {
	q.entries = append(q.entries, m)
}

// pending returns the unconfirmed entries in enqueue order.
func (q *deliveryQueue) pending() []*OutboundMessage {
	out := make([]*OutboundMessage, 0, len(q.entries))
	for _, m := range q.entries {
		if m.Attempt != Confirmed {
			out = append(out, m)
		}
	}
	return out
}

// confirm marks the entry with the given correlation id delivered and
// releases it.
func (q *deliveryQueue) confirm(correlationID string) bool {
	for i, m := range q.entries {
		if m.CorrelationID == correlationID {
			m.Attempt = Confirmed
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (q *deliveryQueue) size() int {
	return len(q.entries)
}
