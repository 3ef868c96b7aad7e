// Package pubsub tracks the subscription overlay: the set of active
// channel/pattern subscriptions and the modal flag that reroutes reply
// dispatch away from the pending queue while a connection is subscribed.
package pubsub

import "fmt"

const (
	kindSub  = "sub"
	kindPSub = "psub"
)

// Tracker owns the set of tracked subscriptions and the pub/sub mode flag.
type Tracker struct {
	set    map[string]struct{}
	active bool
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{set: make(map[string]struct{})}
}

// Active reports pub_sub_mode.
func (t *Tracker) Active() bool { return t.active }

// Add marks an entry subscribed and flips pub/sub mode on.
func (t *Tracker) Add(pattern bool, target string) {
	t.set[key(pattern, target)] = struct{}{}
	t.active = true
}

// Remove un-marks an entry. It does not by itself clear pub/sub mode:
// that only happens via Confirm with remaining==0, once the server
// confirms the last unsubscribe.
func (t *Tracker) Remove(pattern bool, target string) {
	delete(t.set, key(pattern, target))
}

// Confirm applies a pub/sub control reply (subscribe/unsubscribe/
// psubscribe/punsubscribe): remaining==0 clears pub/sub mode, anything
// else sets it.
func (t *Tracker) Confirm(remaining int64) {
	t.active = remaining != 0
}

// Entries returns every tracked (pattern, target) pair, used to replay
// subscriptions after a reconnect.
func (t *Tracker) Entries() []Entry {
	out := make([]Entry, 0, len(t.set))
	for k := range t.set {
		out = append(out, parseKey(k))
	}
	return out
}

// Len reports how many channels/patterns are currently tracked.
func (t *Tracker) Len() int { return len(t.set) }

// Deactivate clears pub/sub mode without dropping tracked entries: the
// subscription set survives a disconnect so it can be replayed on
// reconnect, but the live mode flag stops being true while nothing is
// actually flowing over the (gone) transport.
func (t *Tracker) Deactivate() { t.active = false }

// Entry is one tracked channel or pattern subscription.
type Entry struct {
	Pattern bool
	Target  string
}

func key(pattern bool, target string) string {
	if pattern {
		return kindPSub + " " + target
	}
	return kindSub + " " + target
}

func parseKey(k string) Entry {
	if len(k) > len(kindPSub) && k[:len(kindPSub)] == kindPSub {
		return Entry{Pattern: true, Target: k[len(kindPSub)+1:]}
	}
	return Entry{Pattern: false, Target: k[len(kindSub)+1:]}
}

// IsPushVerb reports whether a lowercased first array element names an
// asynchronous pub/sub push (a message delivery, not a control reply).
func IsPushVerb(verb string) bool {
	return verb == "message" || verb == "pmessage"
}

// IsControlVerb reports whether a lowercased first array element names a
// subscribe/unsubscribe control reply.
func IsControlVerb(verb string) bool {
	switch verb {
	case "subscribe", "unsubscribe", "psubscribe", "punsubscribe":
		return true
	default:
		return false
	}
}

// ErrNotPushShaped is returned when the engine is in pub/sub mode and
// receives a reply that is neither a control reply nor a message push —
// a protocol-level bug.
var ErrNotPushShaped = fmt.Errorf("pubsub: reply received in pub/sub mode is not array-shaped")
