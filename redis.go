// Package redis provides access to Redis nodes.
// See <https://redis.io/topics/introduction> for the concept.
package redis

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xenking/redis/internal/pubsub"
	"github.com/xenking/redis/internal/queue"
	"github.com/xenking/redis/internal/resp"
)

// connState is the discrete lifecycle state of a Client's connection.
type connState uint8

const (
	stateDisconnected connState = iota
	stateConnecting
	stateAuthenticating
	stateReadyCheck
	stateReady
	stateReconnectWait
	stateClosing
)

func (s connState) String() string {
	switch s {
	case stateDisconnected:
		return "disconnected"
	case stateConnecting:
		return "connecting"
	case stateAuthenticating:
		return "authenticating"
	case stateReadyCheck:
		return "ready_check"
	case stateReady:
		return "ready"
	case stateReconnectWait:
		return "reconnect_wait"
	case stateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// snapshot captures {monitoring, pub_sub_mode, selected_db} at disconnect.
// enterReady restores monitoring and selected_db from it; pub/sub mode is
// not read back from pubSubActive but comes back when the tracked
// subscriptions are re-issued.
type snapshot struct {
	monitoring   bool
	pubSubActive bool
	selectedDB   *int64
}

// globalConnID is an atomic counter scoped to this package only — used
// purely for the conn_id log field, never for behavior.
var globalConnID int64

// Client is the connection engine. All lifecycle state is owned
// exclusively by the goroutine running loop; every external call crosses
// in over msgCh, so no mutex guards client state — a single-threaded,
// cooperatively scheduled model realized with channel ownership instead
// of locks.
type Client struct {
	opts Options
	ep   endpoint
	log  *logrus.Entry

	msgCh    chan any
	closedCh chan struct{}

	// --- everything below is owned exclusively by loop() ---
	st           connState
	conn         net.Conn
	gen          uint64
	parser       resp.Parser
	pending      *queue.Queue[*command]
	offline      *queue.Queue[*command]
	subs         *pubsub.Tracker
	shouldBuffer bool
	monitoring   bool
	closingUser  bool
	disposed     bool
	selectedDB   *int64
	old          *snapshot
	attempts     int
	retryDelay   time.Duration
	retryTotal   time.Duration
	commandsSent int64
	serverInfo   map[string]string
	resubPending int

	// readyForSubmit is distinct from st == stateReady: it only flips true
	// once finishReady runs, after every resubscribe confirmation has
	// arrived and the offline queue has drained. Ordinary user submissions
	// must wait on this, not on st, or a command can jump ahead of
	// resubscribe confirmations and the offline queue's own backlog.
	readyForSubmit bool
}

// NewClient constructs a Client for endpoint addr (a "host:port", a
// "redis://[:pass@]host:port" URL, or a Unix socket path) and immediately
// starts connecting. It never blocks: the returned Client queues commands
// (offline queue permitting) until the connection becomes ready.
func NewClient(addr string, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ep := parseEndpoint(addr)
	if ep.authPass != "" && o.AuthPass == "" {
		o.AuthPass = ep.authPass
	}

	parser, err := resp.ByName(o.ParserName)
	if err != nil {
		return nil, err
	}

	id := atomic.AddInt64(&globalConnID, 1)
	c := &Client{
		opts:       o,
		ep:         ep,
		log:        logrus.WithFields(logrus.Fields{"component": "redis.Client", "conn_id": id, "addr": ep.address}),
		msgCh:      make(chan any, 64),
		closedCh:   make(chan struct{}),
		parser:     parser,
		pending:    queue.New[*command](),
		offline:    queue.New[*command](),
		subs:       pubsub.NewTracker(),
		selectedDB: o.SelectDB,

		retryDelay: 200 * time.Millisecond,
		attempts:   1,
	}

	go c.loop()
	return c, nil
}

// Addr returns the normalized endpoint this client dials.
func (c *Client) Addr() string { return c.ep.address }

// ServerInfo returns the most recent INFO key/value snapshot obtained
// during readiness checking. Returns nil before the first successful
// check.
func (c *Client) ServerInfo() map[string]string { return c.serverInfo }

// ---- message types crossing into the owning goroutine ----

type msgSubmit struct {
	cmd    *command
	result chan bool
}

type msgClose struct{ done chan error }

type msgConnected struct {
	conn net.Conn
	gen  uint64
}

type msgDialErr struct {
	err error
	gen uint64
}

type msgData struct {
	chunk []byte
	gen   uint64
}

type msgConnGone struct {
	err error
	gen uint64
}

type msgStartDial struct{ gen uint64 }

type msgAuthRetry struct{ gen uint64 }

type msgInfoRetry struct{ gen uint64 }

type msgQuerySubs struct {
	pattern bool
	result  chan []string
}

type msgSetSelectedDB struct{ db int64 }

// loop is the single owning goroutine for this Client's entire lifecycle.
func (c *Client) loop() {
	c.st = stateDisconnected
	c.startDial(c.gen)

	for raw := range c.msgCh {
		switch msg := raw.(type) {
		case msgSubmit:
			msg.result <- c.gateSubmit(msg.cmd)
		case msgQuerySubs:
			var out []string
			for _, e := range c.subs.Entries() {
				if e.Pattern == msg.pattern {
					out = append(out, e.Target)
				}
			}
			msg.result <- out
		case msgSetSelectedDB:
			db := msg.db
			c.selectedDB = &db
		case msgClose:
			c.handleClose(msg)
			return
		case msgConnected:
			if msg.gen != c.gen {
				msg.conn.Close()
				continue
			}
			c.onConnected(msg.conn)
		case msgDialErr:
			if msg.gen != c.gen {
				continue
			}
			c.handleConnGone(msg.err)
		case msgData:
			if msg.gen != c.gen {
				continue
			}
			c.onData(msg.chunk)
		case msgConnGone:
			if msg.gen != c.gen {
				continue
			}
			c.handleConnGone(msg.err)
		case msgStartDial:
			if msg.gen != c.gen {
				continue
			}
			c.startDial(msg.gen)
		case msgAuthRetry:
			if msg.gen != c.gen {
				continue
			}
			c.sendAuth()
		case msgInfoRetry:
			if msg.gen != c.gen {
				continue
			}
			c.sendInfo()
		}
	}
}

// ---- dialing ----

func (c *Client) startDial(gen uint64) {
	c.st = stateConnecting
	network := c.ep.network
	address := c.ep.address
	timeout := c.opts.DialTimeout

	dial := c.opts.DialFunc
	if dial == nil {
		dial = net.DialTimeout
	}

	go func() {
		var (
			conn net.Conn
			err  error
		)
		if network == "tcp" && c.opts.Family != 0 {
			netw := "tcp4"
			if c.opts.Family == 6 {
				netw = "tcp6"
			}
			conn, err = dial(netw, address, timeout)
		} else {
			conn, err = dial(network, address, timeout)
		}
		if err != nil {
			c.post(msgDialErr{err: err, gen: gen})
			return
		}
		c.post(msgConnected{conn: conn, gen: gen})
	}()
}

// post delivers a message to the owning goroutine, dropping it silently
// once the client is closed.
func (c *Client) post(msg any) {
	select {
	case c.msgCh <- msg:
	case <-c.closedCh:
	}
}

func (c *Client) onConnected(conn net.Conn) {
	c.conn = conn
	c.parser.Reset()

	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(c.opts.SocketNoDelay)
		tcp.SetKeepAlive(c.opts.SocketKeepAlive)
	}

	c.log.WithField("state", "connecting").Debug("redis: transport connected")
	if c.opts.Handlers.OnConnect != nil {
		c.opts.Handlers.OnConnect()
	}

	go c.readLoop(conn, c.gen)

	switch {
	case c.opts.AuthPass != "":
		c.st = stateAuthenticating
		c.sendAuth()
	case !c.opts.NoReadyCheck:
		c.st = stateReadyCheck
		c.sendInfo()
	default:
		c.enterReady()
	}
}

func (c *Client) readLoop(conn net.Conn, gen uint64) {
	buf := make([]byte, 16*1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			c.post(msgData{chunk: chunk, gen: gen})
		}
		if err != nil {
			c.post(msgConnGone{err: err, gen: gen})
			return
		}
	}
}

// ---- authentication & readiness ----

func (c *Client) sendAuth() {
	c.sendInternal("auth", [][]byte{[]byte(c.opts.AuthPass)}, func(_ resp.Reply, err error) {
		if err == nil {
			c.onAuthDone()
			return
		}
		var serr ServerError
		if errors.As(err, &serr) {
			switch {
			case strings.Contains(serr.Message, "LOADING"):
				gen := c.gen
				time.AfterFunc(2*time.Second, func() { c.post(msgAuthRetry{gen: gen}) })
				return
			case strings.Contains(serr.Message, "no password is set"):
				c.onAuthDone()
				return
			}
		}
		if c.opts.Handlers.OnError != nil {
			c.opts.Handlers.OnError(err)
		}
	})
}

func (c *Client) onAuthDone() {
	c.attempts = 1
	c.retryDelay = 200 * time.Millisecond
	c.retryTotal = 0
	if !c.opts.NoReadyCheck {
		c.st = stateReadyCheck
		c.sendInfo()
		return
	}
	c.enterReady()
}

func (c *Client) sendInfo() {
	c.sendInternal("info", nil, func(r resp.Reply, err error) {
		if err != nil {
			if c.opts.Handlers.OnError != nil {
				c.opts.Handlers.OnError(err)
			}
			return
		}
		info := parseInfo(r.Bulk)
		c.serverInfo = info
		if loading := info["loading"]; loading != "" && loading != "0" {
			etaSec, _ := strconv.ParseFloat(info["loading_eta_seconds"], 64)
			delay := time.Duration(etaSec * float64(time.Second))
			if delay > time.Second || delay <= 0 {
				delay = time.Second
			}
			gen := c.gen
			time.AfterFunc(delay, func() { c.post(msgInfoRetry{gen: gen}) })
			return
		}
		c.enterReady()
	})
}

// parseInfo decodes the CRLF-separated "key:value" lines of an INFO reply.
func parseInfo(b []byte) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(string(b), "\r\n") {
		if line == "" || line[0] == '#' {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		out[line[:idx]] = line[idx+1:]
	}
	return out
}

func (c *Client) enterReady() {
	c.st = stateReady

	if c.old != nil {
		c.monitoring = c.old.monitoring
		c.selectedDB = c.old.selectedDB
		c.old = nil
	}

	if c.selectedDB != nil {
		db := *c.selectedDB
		c.sendInternal("select", [][]byte{formatDB(db)}, nil)
	}

	if c.subs.Len() > 0 {
		c.resubPending = 0
		for _, e := range c.subs.Entries() {
			name := "subscribe"
			if e.Pattern {
				name = "psubscribe"
			}
			c.resubPending++
			c.sendResubscribe(name, e.Target)
		}
		return // finishReady() fires once every resubscribe confirms
	}

	c.drainOffline()
	c.finishReady()
}

func (c *Client) sendResubscribe(name, target string) {
	cmd := &command{name: name, args: [][]byte{[]byte(target)}, subCommand: true, sendAnyway: true}
	c.dispatchAndWrite(cmd)
}

func (c *Client) drainOffline() {
	for {
		cmd, ok := c.offline.Shift()
		if !ok {
			break
		}
		c.dispatchAndWrite(cmd)
	}
	c.shouldBuffer = c.pending.Len() >= c.opts.CommandQueueHighWater
}

func (c *Client) finishReady() {
	c.readyForSubmit = true
	c.log.WithField("state", "ready").Debug("redis: connection ready")
	if c.opts.Handlers.OnReady != nil {
		c.opts.Handlers.OnReady()
	}
	if c.pending.Len() == 0 {
		if c.opts.Handlers.OnDrain != nil {
			c.opts.Handlers.OnDrain()
		}
	}
}

// ---- submission gating ----

// SendCommand is the sole submission path. It normalizes args, applies
// the SADD/SREM/SET/SETEX rules, and either enqueues the command (offline
// or pending) or rejects it immediately. The returned bool is the
// negation of should_buffer: true iff the caller may submit more without
// backpressure.
func (c *Client) SendCommand(name string, args []interface{}, cb Callback) (bool, error) {
	cmd, err := normalizeCommand(name, args, cb)
	if err != nil {
		if cb != nil {
			cb(resp.Reply{}, err)
		} else if c.opts.Handlers.OnError != nil {
			c.opts.Handlers.OnError(err)
		}
		return false, err
	}

	select {
	case <-c.closedCh:
		return false, ErrClosed
	default:
	}

	result := make(chan bool, 1)
	select {
	case c.msgCh <- msgSubmit{cmd: cmd, result: result}:
	case <-c.closedCh:
		return false, ErrClosed
	}
	return <-result, nil
}

// sendInternal is send_command's "send_anyway" bypass path, used by the
// engine itself for AUTH, INFO and SELECT — these must reach the transport
// even before the connection is READY. Subscription replay builds its own
// send-anyway command in sendResubscribe.
func (c *Client) sendInternal(name string, args [][]byte, cb Callback) {
	cmd := &command{name: name, args: args, cb: cb, sendAnyway: true}
	c.dispatchAndWrite(cmd)
}

func (c *Client) writable() bool {
	return c.conn != nil && c.st != stateClosing
}

func (c *Client) gateSubmit(cmd *command) bool {
	if !cmd.sendAnyway && (!c.readyForSubmit || !c.writable()) {
		if c.opts.EnableOfflineQueue {
			c.offline.Push(cmd)
			c.shouldBuffer = true
			return false
		}
		c.failCommand(cmd, ErrNotReady)
		return false
	}
	return c.dispatchAndWrite(cmd)
}

var subscribeFamily = map[string]bool{
	"subscribe": true, "psubscribe": true, "unsubscribe": true, "punsubscribe": true,
}

// dispatchAndWrite performs modal routing, pending-queue enqueue, and the
// transport write.
func (c *Client) dispatchAndWrite(cmd *command) bool {
	name := lower(cmd.name)

	if c.subs.Active() && !subscribeFamily[name] && !cmd.subCommand {
		c.failCommand(cmd, ErrPubSubMode)
		return !c.shouldBuffer
	}

	switch name {
	case "subscribe", "psubscribe":
		cmd.subCommand = true
		pattern := name == "psubscribe"
		for _, a := range cmd.args {
			c.subs.Add(pattern, string(a))
		}
	case "unsubscribe", "punsubscribe":
		cmd.subCommand = true
		pattern := name == "punsubscribe"
		for _, a := range cmd.args {
			c.subs.Remove(pattern, string(a))
		}
	case "monitor":
		c.monitoring = true
	case "quit":
		c.closingUser = true
	}

	c.pending.Push(cmd)
	c.commandsSent++

	var err error
	if cmd.bufferArgs {
		err = resp.EncodeStreamed(c.conn, cmd.name, cmd.args)
	} else {
		_, err = c.conn.Write(resp.EncodeBuffered(cmd.name, cmd.args))
	}
	if err != nil {
		c.handleConnGone(err)
		return false
	}

	if c.pending.Len() >= c.opts.CommandQueueHighWater {
		c.shouldBuffer = true
	}
	return !c.shouldBuffer
}

func (c *Client) failCommand(cmd *command, err error) {
	if cmd.cb != nil {
		cmd.cb(resp.Reply{}, err)
		return
	}
	if c.opts.Handlers.OnError != nil {
		c.opts.Handlers.OnError(err)
	}
}

// ---- reply dispatch ----

func (c *Client) onData(chunk []byte) {
	replies, err := c.parser.Feed(chunk)
	for _, r := range replies {
		c.dispatchReply(r)
	}
	if err != nil {
		c.handleConnGone(fmt.Errorf("%w: %v", ErrProtocol, err))
	}
}

func (c *Client) dispatchReply(r resp.Reply) {
	if c.monitoring && c.pending.Len() == 0 && r.Type == resp.TypeStatus {
		ts, args := parseMonitorLine(r.Str)
		if c.opts.Handlers.OnMonitor != nil {
			c.opts.Handlers.OnMonitor(ts, args)
		}
		return
	}

	if c.subs.Active() && isPushReply(r) {
		c.handlePush(r)
		return
	}

	cmd, ok := c.pending.Shift()
	if !ok {
		c.log.Warn("redis: reply received with no pending command")
		return
	}

	if c.pending.Len() == 0 && !c.subs.Active() {
		if c.opts.Handlers.OnIdle != nil {
			c.opts.Handlers.OnIdle()
		}
	}
	if c.shouldBuffer && c.pending.Len() <= c.opts.CommandQueueLowWater {
		c.shouldBuffer = false
		if c.opts.Handlers.OnDrain != nil {
			c.opts.Handlers.OnDrain()
		}
	}

	c.dispatchCommand(cmd, r)
}

func isPushReply(r resp.Reply) bool {
	if r.Type != resp.TypeArray || len(r.Array) == 0 {
		return false
	}
	head := r.Array[0]
	if head.Type != resp.TypeBulk {
		return false
	}
	return pubsub.IsPushVerb(lower(string(head.Bulk)))
}

func (c *Client) handlePush(r resp.Reply) {
	verb := lower(string(r.Array[0].Bulk))
	switch verb {
	case "message":
		if len(r.Array) < 3 {
			return
		}
		if c.opts.Handlers.OnMessage != nil {
			c.opts.Handlers.OnMessage(string(r.Array[1].Bulk), r.Array[2].Bulk)
		}
	case "pmessage":
		if len(r.Array) < 4 {
			return
		}
		if c.opts.Handlers.OnPMessage != nil {
			c.opts.Handlers.OnPMessage(string(r.Array[1].Bulk), string(r.Array[2].Bulk), r.Array[3].Bulk)
		}
	}
}

func (c *Client) dispatchCommand(cmd *command, r resp.Reply) {
	if r.Type == resp.TypeError {
		err := ServerError{Message: r.Err, CommandUsed: strings.ToUpper(cmd.name)}
		c.failCommand(cmd, err)
		return
	}

	if cmd.subCommand {
		c.dispatchSubControl(cmd, r)
		return
	}

	name := lower(cmd.name)
	keepBytes := c.opts.ReturnBuffers || (c.opts.DetectBuffers && cmd.hadBytesArg)
	if name != "exec" {
		r = resp.MarkText(r, !keepBytes)
	}

	if name == "hgetall" {
		r = resp.ToHGetAllMap(r)
	}

	if cmd.cb != nil {
		cmd.cb(r, nil)
	}
}

// dispatchSubControl handles a control-reply: a [verb, target-or-null,
// remaining] array confirming a subscribe/unsubscribe/psubscribe/
// punsubscribe. A failed subscribe leaves pub_sub_mode as the server's own
// confirmations dictate; the client never forces it false itself.
func (c *Client) dispatchSubControl(cmd *command, r resp.Reply) {
	if r.Type != resp.TypeArray || len(r.Array) < 3 {
		c.failCommand(cmd, pubsub.ErrNotPushShaped)
		return
	}

	verb := lower(string(r.Array[0].Bulk))
	var target string
	if !r.Array[1].IsNil() {
		target = string(r.Array[1].Bulk)
	}
	remaining := r.Array[2].Int

	c.subs.Confirm(remaining)

	if cmd.cb != nil {
		cmd.cb(resp.Status(target), nil)
	}

	switch verb {
	case "subscribe":
		if c.opts.Handlers.OnSubscribe != nil {
			c.opts.Handlers.OnSubscribe(target, remaining)
		}
	case "unsubscribe":
		if c.opts.Handlers.OnUnsubscribe != nil {
			c.opts.Handlers.OnUnsubscribe(target, remaining)
		}
	case "psubscribe":
		if c.opts.Handlers.OnPSubscribe != nil {
			c.opts.Handlers.OnPSubscribe(target, remaining)
		}
	case "punsubscribe":
		if c.opts.Handlers.OnPUnsubscribe != nil {
			c.opts.Handlers.OnPUnsubscribe(target, remaining)
		}
	}

	if c.resubPending > 0 {
		c.resubPending--
		if c.resubPending == 0 {
			c.drainOffline()
			c.finishReady()
		}
	}
}

// ---- connection loss & reconnection ----

func (c *Client) handleConnGone(cause error) {
	if c.conn == nil && c.st != stateConnecting {
		return // already torn down for this generation
	}

	// A failed dial arrives here with no conn; it still schedules a retry.
	hadConn := c.conn != nil
	if hadConn {
		c.conn.Close()
		c.conn = nil
	}
	c.readyForSubmit = false

	if c.old == nil {
		c.old = &snapshot{monitoring: c.monitoring, pubSubActive: c.subs.Active(), selectedDB: c.selectedDB}
		c.monitoring = false
		c.subs.Deactivate()
		c.selectedDB = nil
	}

	c.log.WithField("state", "disconnected").WithError(cause).Warn("redis: connection gone")
	if hadConn && c.opts.Handlers.OnEnd != nil {
		c.opts.Handlers.OnEnd()
	}

	failErr := fmt.Errorf("%w: %v", ErrConnLost, cause)
	for _, cmd := range c.pending.Drain() {
		c.failCommand(cmd, failErr)
	}
	for _, cmd := range c.offline.Drain() {
		c.failCommand(cmd, failErr)
	}
	c.shouldBuffer = false

	if c.closingUser {
		c.st = stateClosing
		return
	}

	usedDelay := c.retryDelay
	c.retryTotal += usedDelay
	c.attempts++

	if c.opts.MaxAttempts > 0 && c.attempts > c.opts.MaxAttempts {
		c.st = stateClosing
		if c.opts.Handlers.OnError != nil {
			c.opts.Handlers.OnError(ErrRetryExhausted)
		}
		return
	}
	if c.retryTotal >= c.opts.ConnectTimeout {
		c.st = stateClosing
		if c.opts.Handlers.OnError != nil {
			c.opts.Handlers.OnError(ErrRetryExhausted)
		}
		return
	}

	if c.opts.Handlers.OnReconnecting != nil {
		c.opts.Handlers.OnReconnecting(usedDelay, c.attempts)
	}

	next := time.Duration(float64(c.retryDelay) * 1.7)
	if c.opts.RetryMaxDelay > 0 && next > c.opts.RetryMaxDelay {
		next = c.opts.RetryMaxDelay
	}
	c.retryDelay = next

	c.st = stateReconnectWait
	c.gen++
	gen := c.gen
	time.AfterFunc(usedDelay, func() { c.post(msgStartDial{gen: gen}) })
}

// ---- closing ----

// Close stops command submission with ErrClosed, fails every queued
// command exactly once, and tears down the transport. Calling Close more
// than once has no effect.
func (c *Client) Close() error {
	done := make(chan error, 1)
	select {
	case c.msgCh <- msgClose{done: done}:
	case <-c.closedCh:
		return nil
	}
	select {
	case err := <-done:
		return err
	case <-c.closedCh:
		return nil
	}
}

func (c *Client) handleClose(msg msgClose) {
	if c.disposed {
		msg.done <- nil
		return
	}
	c.disposed = true
	c.closingUser = true
	c.st = stateClosing

	for _, cmd := range c.pending.Drain() {
		c.failCommand(cmd, ErrClosed)
	}
	for _, cmd := range c.offline.Drain() {
		c.failCommand(cmd, ErrClosed)
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.gen++ // orphan any in-flight dial/reader goroutines
	close(c.closedCh)
	msg.done <- nil
}
