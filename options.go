package redis

import (
	"net"
	"time"
)

// Options configures a Client. Zero values select sensible defaults.
type Options struct {
	// ParserName selects a resp.Parser implementation by name ("default"
	// or "zerocopy"); empty uses the default.
	ParserName string

	// ReturnBuffers keeps bulk replies as []byte instead of converting to
	// string, unconditionally.
	ReturnBuffers bool

	// DetectBuffers keeps bulk replies as []byte only for commands that
	// were themselves called with at least one byte-typed argument.
	DetectBuffers bool

	// SocketNoDelay disables Nagle's algorithm on TCP connections.
	SocketNoDelay bool

	// SocketKeepAlive enables TCP keepalive probes.
	SocketKeepAlive bool

	// CommandQueueHighWater is the pending-queue length at or above which
	// should_buffer is set.
	CommandQueueHighWater int

	// CommandQueueLowWater is the pending-queue length at or below which
	// should_buffer clears when a reply is dispatched. Writes block until
	// the transport accepts them, so there is no separate transport-drain
	// condition.
	CommandQueueLowWater int

	// MaxAttempts caps the total number of connection attempts, the
	// initial connect included; zero means unbounded (subject only to
	// ConnectTimeout).
	MaxAttempts int

	// ConnectTimeout bounds cumulative reconnect delay before a terminal
	// error is emitted.
	ConnectTimeout time.Duration

	// RetryMaxDelay caps the exponential backoff delay between reconnect
	// attempts; zero means uncapped.
	RetryMaxDelay time.Duration

	// EnableOfflineQueue buffers commands submitted before the connection
	// is ready instead of failing them immediately.
	EnableOfflineQueue bool

	// AuthPass, when set, is sent via AUTH immediately after connecting.
	AuthPass string

	// NoReadyCheck skips the INFO probe and transitions straight to
	// READY once (optionally) authenticated.
	NoReadyCheck bool

	// SelectDB, when non-nil, is sent via SELECT on every (re)connect,
	// before the offline queue is drained.
	SelectDB *int64

	// Family restricts TCP dialing to 4 or 6; zero means unspecified.
	Family int

	// DialTimeout bounds a single connection attempt.
	DialTimeout time.Duration

	// DialFunc, when set, replaces the default net.DialTimeout call for
	// every (re)connect attempt. Tests substitute an in-memory transport
	// through this hook instead of binding a real listener.
	DialFunc func(network, address string, timeout time.Duration) (net.Conn, error)

	// Handlers registers the event callbacks for this client.
	Handlers Handlers
}

// Handlers holds the event callbacks a Client invokes as its connection
// state changes. Any field left nil is simply not invoked. Handlers are
// called synchronously from the connection's owning goroutine: they must
// not block or call back into the Client re-entrantly. The one exception
// is OnError for a submission that fails argument validation, which runs
// on the goroutine that called SendCommand.
type Handlers struct {
	OnConnect      func()
	OnReady        func()
	OnError        func(err error)
	OnEnd          func()
	OnReconnecting func(delay time.Duration, attempt int)
	OnDrain        func()
	OnIdle         func()
	OnMessage      func(channel string, payload []byte)
	OnPMessage     func(pattern, channel string, payload []byte)
	OnSubscribe    func(channel string, count int64)
	OnUnsubscribe  func(channel string, count int64)
	OnPSubscribe   func(pattern string, count int64)
	OnPUnsubscribe func(pattern string, count int64)
	OnMonitor      func(timestamp string, args []string)
}

// Option mutates an Options value; NewClient applies defaults first, then
// each Option in order.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		SocketNoDelay:          true,
		SocketKeepAlive:        true,
		CommandQueueHighWater:  1000,
		CommandQueueLowWater:   0,
		ConnectTimeout:         24 * time.Hour,
		EnableOfflineQueue:     true,
		DialTimeout:            5 * time.Second,
	}
}

// WithParser selects the named resp.Parser implementation.
func WithParser(name string) Option { return func(o *Options) { o.ParserName = name } }

// WithReturnBuffers sets ReturnBuffers.
func WithReturnBuffers(v bool) Option { return func(o *Options) { o.ReturnBuffers = v } }

// WithDetectBuffers sets DetectBuffers.
func WithDetectBuffers(v bool) Option { return func(o *Options) { o.DetectBuffers = v } }

// WithAuth sets AuthPass.
func WithAuth(pass string) Option { return func(o *Options) { o.AuthPass = pass } }

// WithNoReadyCheck disables the INFO readiness probe.
func WithNoReadyCheck() Option { return func(o *Options) { o.NoReadyCheck = true } }

// WithSelectDB sets the database index to SELECT on every connect.
func WithSelectDB(db int64) Option { return func(o *Options) { o.SelectDB = &db } }

// WithCommandQueueWaterMarks overrides the high/low water marks.
func WithCommandQueueWaterMarks(high, low int) Option {
	return func(o *Options) {
		o.CommandQueueHighWater = high
		o.CommandQueueLowWater = low
	}
}

// WithMaxAttempts caps the total number of connection attempts, the
// initial connect included.
func WithMaxAttempts(n int) Option { return func(o *Options) { o.MaxAttempts = n } }

// WithConnectTimeout overrides the cumulative reconnect deadline.
func WithConnectTimeout(d time.Duration) Option { return func(o *Options) { o.ConnectTimeout = d } }

// WithRetryMaxDelay caps the backoff delay between reconnects.
func WithRetryMaxDelay(d time.Duration) Option { return func(o *Options) { o.RetryMaxDelay = d } }

// WithoutOfflineQueue disables offline queueing; submissions made before
// the connection is ready fail immediately with ErrNotReady.
func WithoutOfflineQueue() Option { return func(o *Options) { o.EnableOfflineQueue = false } }

// WithFamily restricts TCP dialing to IPv4 (4) or IPv6 (6).
func WithFamily(family int) Option { return func(o *Options) { o.Family = family } }

// WithHandlers registers the event callbacks.
func WithHandlers(h Handlers) Option { return func(o *Options) { o.Handlers = h } }

// WithDialFunc overrides how the connection engine dials the endpoint on
// every (re)connect attempt, for tests that substitute a fake transport.
func WithDialFunc(f func(network, address string, timeout time.Duration) (net.Conn, error)) Option {
	return func(o *Options) { o.DialFunc = f }
}
