package redis

import (
	"github.com/xenking/redis/internal/resp"
)

// cmdMeta carries the per-command metadata a caller (or cmd/rdcli) needs to
// reason about routing without hardcoding a command-name switch.
type cmdMeta struct {
	ReadOnly      bool
	FirstKeyIndex int // 0 means "no key argument"
}

// catalog is a static table, not a reflection-generated one: one entry per
// command name this module carries metadata for. Most entries have no
// hand-written wrapper and are sent through Do.
var catalog = map[string]cmdMeta{
	"get": {ReadOnly: true, FirstKeyIndex: 1}, "set": {FirstKeyIndex: 1},
	"setex": {FirstKeyIndex: 1}, "psetex": {FirstKeyIndex: 1},
	"setnx": {FirstKeyIndex: 1}, "getset": {FirstKeyIndex: 1},
	"append": {FirstKeyIndex: 1}, "strlen": {ReadOnly: true, FirstKeyIndex: 1},
	"del": {FirstKeyIndex: 1}, "exists": {ReadOnly: true, FirstKeyIndex: 1},
	"expire": {FirstKeyIndex: 1}, "pexpire": {FirstKeyIndex: 1},
	"ttl": {ReadOnly: true, FirstKeyIndex: 1}, "pttl": {ReadOnly: true, FirstKeyIndex: 1},
	"persist": {FirstKeyIndex: 1}, "type": {ReadOnly: true, FirstKeyIndex: 1},
	"rename": {FirstKeyIndex: 1}, "renamenx": {FirstKeyIndex: 1},
	"incr": {FirstKeyIndex: 1}, "decr": {FirstKeyIndex: 1},
	"incrby": {FirstKeyIndex: 1}, "decrby": {FirstKeyIndex: 1},
	"mget": {ReadOnly: true, FirstKeyIndex: 1}, "mset": {FirstKeyIndex: 1},
	"msetnx": {FirstKeyIndex: 1},
	"hset": {FirstKeyIndex: 1}, "hget": {ReadOnly: true, FirstKeyIndex: 1},
	"hdel": {FirstKeyIndex: 1}, "hexists": {ReadOnly: true, FirstKeyIndex: 1},
	"hgetall": {ReadOnly: true, FirstKeyIndex: 1}, "hkeys": {ReadOnly: true, FirstKeyIndex: 1},
	"hvals": {ReadOnly: true, FirstKeyIndex: 1}, "hlen": {ReadOnly: true, FirstKeyIndex: 1},
	"hincrby": {FirstKeyIndex: 1}, "hmset": {FirstKeyIndex: 1}, "hmget": {ReadOnly: true, FirstKeyIndex: 1},
	"sadd": {FirstKeyIndex: 1}, "srem": {FirstKeyIndex: 1},
	"sismember": {ReadOnly: true, FirstKeyIndex: 1}, "smembers": {ReadOnly: true, FirstKeyIndex: 1},
	"scard": {ReadOnly: true, FirstKeyIndex: 1}, "spop": {FirstKeyIndex: 1},
	"lpush": {FirstKeyIndex: 1}, "rpush": {FirstKeyIndex: 1},
	"lpop": {FirstKeyIndex: 1}, "rpop": {FirstKeyIndex: 1},
	"llen": {ReadOnly: true, FirstKeyIndex: 1}, "lrange": {ReadOnly: true, FirstKeyIndex: 1},
	"lindex": {ReadOnly: true, FirstKeyIndex: 1}, "lset": {FirstKeyIndex: 1},
	"zadd": {FirstKeyIndex: 1}, "zrem": {FirstKeyIndex: 1},
	"zscore": {ReadOnly: true, FirstKeyIndex: 1}, "zrange": {ReadOnly: true, FirstKeyIndex: 1},
	"zrevrange": {ReadOnly: true, FirstKeyIndex: 1}, "zrank": {ReadOnly: true, FirstKeyIndex: 1},
	"zcard": {ReadOnly: true, FirstKeyIndex: 1}, "zincrby": {FirstKeyIndex: 1},
	"ping": {ReadOnly: true}, "echo": {ReadOnly: true}, "select": {},
	"auth": {}, "info": {ReadOnly: true}, "monitor": {}, "quit": {},
	"flushdb": {}, "flushall": {}, "dbsize": {ReadOnly: true}, "keys": {ReadOnly: true},
	"eval": {}, "evalsha": {}, "publish": {FirstKeyIndex: 1},
	"subscribe": {}, "unsubscribe": {}, "psubscribe": {}, "punsubscribe": {},
}

// Meta looks up a command's catalog metadata. The second return is false
// for a name outside the static catalog (still a perfectly valid command
// to send via SendCommand — the catalog is advisory, not a whitelist).
func Meta(name string) (cmdMeta, bool) {
	m, ok := catalog[lower(name)]
	return m, ok
}

// do submits name/args and blocks for the paired reply, the synchronous
// convenience every typed wrapper below builds on.
func (c *Client) do(name string, args ...interface{}) (resp.Reply, error) {
	replyCh := make(chan resp.Reply, 1)
	errCh := make(chan error, 1)
	_, err := c.SendCommand(name, args, func(r resp.Reply, err error) {
		if err != nil {
			errCh <- err
			return
		}
		replyCh <- r
	})
	if err != nil {
		return resp.Reply{}, err
	}
	select {
	case r := <-replyCh:
		return r, nil
	case err := <-errCh:
		return resp.Reply{}, err
	}
}

// Do is the exported form of do, for callers (cmd/rdcli) that want to
// issue an arbitrary command by name without a hand-written wrapper.
func (c *Client) Do(name string, args ...interface{}) (resp.Reply, error) {
	return c.do(name, args...)
}

// ---- string commands ----

// Get returns a key's value. ok is false for a null bulk reply (no key).
func (c *Client) Get(key string) (string, bool, error) {
	r, err := c.do("get", key)
	if err != nil {
		return "", false, err
	}
	if r.IsNil() {
		return "", false, nil
	}
	return string(r.Bulk), true, nil
}

// Set stores key=value unconditionally; a nil value fails validation
// before reaching the wire.
func (c *Client) Set(key string, value interface{}) error {
	_, err := c.do("set", key, value)
	return err
}

// SetEX stores key=value with a TTL in seconds.
func (c *Client) SetEX(key string, seconds int64, value interface{}) error {
	_, err := c.do("setex", key, seconds, value)
	return err
}

// Del removes one or more keys, returning the number actually removed.
func (c *Client) Del(keys ...string) (int64, error) {
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	r, err := c.do("del", args...)
	if err != nil {
		return 0, err
	}
	return r.Int, nil
}

// Incr atomically increments key by one.
func (c *Client) Incr(key string) (int64, error) {
	r, err := c.do("incr", key)
	if err != nil {
		return 0, err
	}
	return r.Int, nil
}

// ---- hash commands ----

// HSet sets one field on a hash.
func (c *Client) HSet(key, field string, value interface{}) error {
	_, err := c.do("hset", key, field, value)
	return err
}

// HGet returns one hash field's value.
func (c *Client) HGet(key, field string) (string, bool, error) {
	r, err := c.do("hget", key, field)
	if err != nil {
		return "", false, err
	}
	if r.IsNil() {
		return "", false, nil
	}
	return string(r.Bulk), true, nil
}

// HMSet sets multiple hash fields in one round trip: a hand-written entry
// since it takes field/value pairs rather than a uniform argument list.
func (c *Client) HMSet(key string, fields map[string]interface{}) error {
	args := make([]interface{}, 0, 1+2*len(fields))
	args = append(args, key)
	for f, v := range fields {
		args = append(args, f, v)
	}
	_, err := c.do("hmset", args...)
	return err
}

// HGetAll returns every field/value pair of a hash. The map is nil for a
// missing or empty key, matching the HGETALL-specific conversion rule
// (resp.ToHGetAllMap, applied inside dispatchCommand).
func (c *Client) HGetAll(key string) (map[string]string, error) {
	r, err := c.do("hgetall", key)
	if err != nil {
		return nil, err
	}
	if r.Type != resp.TypeMap || r.Map == nil {
		return nil, nil
	}
	out := make(map[string]string, len(r.Map))
	for k, v := range r.Map {
		out[k] = string(v)
	}
	return out, nil
}

// ---- set commands ----

// SAdd adds members to a set, sending each member as its own argument.
func (c *Client) SAdd(key string, members ...string) (int64, error) {
	args := make([]interface{}, 0, 1+len(members))
	args = append(args, key)
	for _, m := range members {
		args = append(args, m)
	}
	r, err := c.do("sadd", args...)
	if err != nil {
		return 0, err
	}
	return r.Int, nil
}

// SMembers returns every member of a set.
func (c *Client) SMembers(key string) ([]string, error) {
	r, err := c.do("smembers", key)
	if err != nil {
		return nil, err
	}
	return bulkStrings(r), nil
}

func bulkStrings(r resp.Reply) []string {
	if r.Type != resp.TypeArray || r.Array == nil {
		return nil
	}
	out := make([]string, len(r.Array))
	for i, v := range r.Array {
		out[i] = string(v.Bulk)
	}
	return out
}

// ---- list commands ----

// LPush pushes values onto the head of a list.
func (c *Client) LPush(key string, values ...interface{}) (int64, error) {
	args := append([]interface{}{key}, values...)
	r, err := c.do("lpush", args...)
	if err != nil {
		return 0, err
	}
	return r.Int, nil
}

// LRange returns list elements in [start, stop] (inclusive, Redis
// indexing).
func (c *Client) LRange(key string, start, stop int64) ([]string, error) {
	r, err := c.do("lrange", key, start, stop)
	if err != nil {
		return nil, err
	}
	return bulkStrings(r), nil
}

// ---- connection-scoped commands (irregular shapes, hand-written per
// connection-scoped, hand-written per their irregular shapes) ----

// Select switches the connection's active database. It also updates the
// remembered selected_db so a later reconnect replays it.
func (c *Client) Select(db int64) error {
	_, err := c.do("select", db)
	if err == nil {
		c.post(msgSetSelectedDB{db: db})
	}
	return err
}

// Auth re-authenticates an already-connected client (distinct from the
// connect-time AUTH the engine sends itself when Options.AuthPass is
// set).
func (c *Client) Auth(password string) error {
	_, err := c.do("auth", password)
	return err
}

// Ping round-trips a liveness check, optionally echoing msg.
func (c *Client) Ping(msg string) (string, error) {
	var r resp.Reply
	var err error
	if msg == "" {
		r, err = c.do("ping")
	} else {
		r, err = c.do("ping", msg)
	}
	if err != nil {
		return "", err
	}
	if r.Type == resp.TypeBulk {
		return string(r.Bulk), nil
	}
	return r.Str, nil
}

// Eval runs a Lua script with the given keys and args: a hand-written
// entry since keys and args are distinct argument groups, not a flat list.
func (c *Client) Eval(script string, keys []string, args ...interface{}) (resp.Reply, error) {
	full := make([]interface{}, 0, 2+len(keys)+len(args))
	full = append(full, script, int64(len(keys)))
	for _, k := range keys {
		full = append(full, k)
	}
	full = append(full, args...)
	return c.do("eval", full...)
}

// ---- subscribe family (irregular: split per-target so each wire command
// pairs with exactly one reply frame, keeping the pending queue's strict
// one-command-one-reply pairing intact even for a multi-channel call) ----

// Subscribe subscribes to one or more channels. cb is invoked once per
// channel confirmation — satisfied here because each channel is split into
// its own command, so each gets exactly one paired reply.
func (c *Client) Subscribe(cb Callback, channels ...string) error {
	return c.subscribeEach("subscribe", cb, channels)
}

// PSubscribe subscribes to one or more glob patterns.
func (c *Client) PSubscribe(cb Callback, patterns ...string) error {
	return c.subscribeEach("psubscribe", cb, patterns)
}

// Unsubscribe unsubscribes from the given channels, or every subscribed
// channel if none are given.
func (c *Client) Unsubscribe(cb Callback, channels ...string) error {
	if len(channels) == 0 {
		channels = c.subscribedTargets(false)
	}
	return c.subscribeEach("unsubscribe", cb, channels)
}

// PUnsubscribe unsubscribes from the given patterns, or every subscribed
// pattern if none are given.
func (c *Client) PUnsubscribe(cb Callback, patterns ...string) error {
	if len(patterns) == 0 {
		patterns = c.subscribedTargets(true)
	}
	return c.subscribeEach("punsubscribe", cb, patterns)
}

func (c *Client) subscribeEach(name string, cb Callback, targets []string) error {
	for _, t := range targets {
		if _, err := c.SendCommand(name, []interface{}{t}, cb); err != nil {
			return err
		}
	}
	return nil
}

// subscribedTargets asks the owning goroutine for a snapshot of currently
// tracked channels (pattern=false) or patterns (pattern=true), used by
// bare Unsubscribe()/PUnsubscribe() to expand "unsubscribe from
// everything" client-side before splitting into one wire command per
// target (see subscribeEach).
func (c *Client) subscribedTargets(pattern bool) []string {
	result := make(chan []string, 1)
	select {
	case c.msgCh <- msgQuerySubs{pattern: pattern, result: result}:
	case <-c.closedCh:
		return nil
	}
	return <-result
}
