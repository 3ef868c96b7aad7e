package pubsub

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/match"
)

func TestAddActivatesAndTracks(t *testing.T) {
	tr := NewTracker()
	require.False(t, tr.Active())

	tr.Add(false, "news")
	tr.Add(true, "chat.*")
	require.True(t, tr.Active())
	require.Equal(t, 2, tr.Len())

	entries := tr.Entries()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Target < entries[j].Target })
	require.Equal(t, []Entry{{Pattern: true, Target: "chat.*"}, {Pattern: false, Target: "news"}}, entries)
}

func TestRemoveDoesNotClearActiveByItself(t *testing.T) {
	tr := NewTracker()
	tr.Add(false, "news")
	tr.Remove(false, "news")
	require.Equal(t, 0, tr.Len())
	require.True(t, tr.Active(), "active only flips off via Confirm(0) or Deactivate")
}

func TestConfirmTracksRemainingCount(t *testing.T) {
	tr := NewTracker()
	tr.Add(false, "news")
	tr.Confirm(1)
	require.True(t, tr.Active())
	tr.Confirm(0)
	require.False(t, tr.Active())
}

func TestDeactivateKeepsEntries(t *testing.T) {
	tr := NewTracker()
	tr.Add(true, "chat.*")
	tr.Deactivate()
	require.False(t, tr.Active())
	require.Equal(t, 1, tr.Len())
}

// TestEntriesMatchIntendedChannels sanity-checks that a tracked pattern
// entry actually matches the channel names it is meant to, using the same
// glob matcher redcon's publish dispatch uses (tidwall/match), so a typo'd
// pattern stored by the engine would show up here rather than only at
// replay time against a live server.
func TestEntriesMatchIntendedChannels(t *testing.T) {
	tr := NewTracker()
	tr.Add(true, "chat.*")
	tr.Add(false, "news")

	for _, e := range tr.Entries() {
		switch e.Target {
		case "chat.*":
			require.True(t, match.Match("chat.general", e.Target))
			require.False(t, match.Match("news", e.Target))
		case "news":
			require.True(t, match.Match("news", e.Target))
		}
	}
}

func TestIsPushVerbAndControlVerb(t *testing.T) {
	require.True(t, IsPushVerb("message"))
	require.True(t, IsPushVerb("pmessage"))
	require.False(t, IsPushVerb("subscribe"))

	require.True(t, IsControlVerb("subscribe"))
	require.True(t, IsControlVerb("punsubscribe"))
	require.False(t, IsControlVerb("message"))
}
