// Package chat
package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "chatlink"

type metrics struct {
	reconnects      prometheus.Counter
	dialFailures    prometheus.Counter
	framesDecoded   prometheus.Counter
	framesDropped   prometheus.Counter
	socketSends     prometheus.Counter
	restSends       prometheus.Counter
	restSendErrors  prometheus.Counter
	reconciled      prometheus.Counter
	duplicateEchoes prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      name,
			Help:      help,
		})
	}
	return &metrics{
		reconnects:      counter("reconnect_attempts_total", "Reconnect attempts scheduled after a failure."),
		dialFailures:    counter("dial_failures_total", "Websocket dial or handshake failures."),
		framesDecoded:   counter("frames_decoded_total", "Inbound frames decoded from the transport."),
		framesDropped:   counter("frames_dropped_total", "Inbound fragments dropped as unknown or malformed."),
		socketSends:     counter("socket_sends_total", "Messages written to the realtime socket, replays included."),
		restSends:       counter("rest_sends_total", "Messages posted to the REST fallback channel."),
		restSendErrors:  counter("rest_send_errors_total", "Failed REST fallback posts."),
		reconciled:      counter("echoes_reconciled_total", "Server echoes matched to an optimistic entry."),
		duplicateEchoes: counter("echoes_unmatched_total", "Self echoes appended as duplicates after a missed match."),
	}
}
