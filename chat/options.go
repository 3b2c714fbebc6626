// Package chat
package chat

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/elsanobooking/chatlink/transport"
)

// DefaultHubPath is the well-known realtime endpoint path, used until
// a different path has been proven to work.
const DefaultHubPath = "/mobileChatHub"

const (
	defaultWatchdogInterval = 30 * time.Second
	defaultSilenceThreshold = 60 * time.Second
	defaultSelfLabel        = "Me"
)

type Option = func(*Options)

// WithDialer overrides the websocket dialer, mainly for tests.
func WithDialer(d transport.Dialer) Option {
	return func(op *Options) {
		op.Dialer = d
	}
}

// WithHubPath overrides the default realtime endpoint path.
func WithHubPath(path string) Option {
	return func(op *Options) {
		op.HubPath = path
	}
}

// WithWatchdogInterval sets how often connection health is checked.
func WithWatchdogInterval(d time.Duration) Option {
	return func(op *Options) {
		op.WatchdogInterval = d
	}
}

// WithSilenceThreshold sets how long the connection may stay silent
// before the watchdog forces a reconnect.
func WithSilenceThreshold(d time.Duration) Option {
	return func(op *Options) {
		op.SilenceThreshold = d
	}
}

// WithRegistry registers the coordinator's metrics with the given
// Prometheus registerer. Metrics are unregistered by default.
func WithRegistry(r prometheus.Registerer) Option {
	return func(op *Options) {
		op.Registry = r
	}
}

// WithSelfLabel sets the sender label used for the user's own
// messages.
func WithSelfLabel(label string) Option {
	return func(op *Options) {
		op.SelfLabel = label
	}
}

type Options struct {
	Dialer           transport.Dialer
	HubPath          string
	WatchdogInterval time.Duration
	SilenceThreshold time.Duration
	Registry         prometheus.Registerer
	SelfLabel        string
}

func (op *Options) Apply(options []Option) {
	for _, f := range options {
		f(op)
	}
}

func defaultOptions() *Options {
	return &Options{
		Dialer:           transport.NewWebSocketDialer(),
		HubPath:          DefaultHubPath,
		WatchdogInterval: defaultWatchdogInterval,
		SilenceThreshold: defaultSilenceThreshold,
		SelfLabel:        defaultSelfLabel,
	}
}
