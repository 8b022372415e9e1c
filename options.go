package assist

import "time"

// RefusalPolicy decides what happens to a trigger that arrives while a scan
// or a listen is in flight. Refused triggers are never queued.
type RefusalPolicy int

const (
	// RefuseSilently drops the trigger, logs it and emits trigger.refused.
	RefuseSilently RefusalPolicy = iota
	// RefuseAnnounce also shows MsgPleaseWait through the Announcer. It is
	// never spoken, so the busy operation is not interleaved with audio.
	RefuseAnnounce
)

const (
	defaultScanTimeout   = 10 * time.Second
	defaultListenTimeout = 20 * time.Second
	defaultEventBuffer   = 64
)

type options struct {
	announcer     Announcer
	greeting      string
	scanTimeout   time.Duration
	listenTimeout time.Duration
	refusal       RefusalPolicy
	eventBuffer   int
}

func defaultOptions() options {
	return options{
		announcer:     nopAnnouncer{},
		scanTimeout:   defaultScanTimeout,
		listenTimeout: defaultListenTimeout,
		refusal:       RefuseSilently,
		eventBuffer:   defaultEventBuffer,
	}
}

type Option func(*options)

// WithAnnouncer sets the visible fallback used when speech output is
// unavailable or fails.
func WithAnnouncer(a Announcer) Option {
	return func(o *options) {
		if a != nil {
			o.announcer = a
		}
	}
}

// WithGreeting speaks text once when Run starts.
func WithGreeting(text string) Option {
	return func(o *options) { o.greeting = text }
}

func WithScanTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.scanTimeout = d
		}
	}
}

func WithListenTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.listenTimeout = d
		}
	}
}

func WithRefusalPolicy(p RefusalPolicy) Option {
	return func(o *options) { o.refusal = p }
}

// WithEventBuffer sizes each subscriber channel. Events for a full channel
// are dropped.
func WithEventBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.eventBuffer = n
		}
	}
}
