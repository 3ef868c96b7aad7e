package redis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEndpoint(t *testing.T) {
	golden := []struct {
		addr    string
		network string
		address string
		auth    string
	}{
		{"", "tcp", "127.0.0.1:6379", ""},
		{":", "tcp", "127.0.0.1:6379", ""},
		{"test.host", "tcp", "test.host:6379", ""},
		{"test.host:", "tcp", "test.host:6379", ""},
		{":99", "tcp", "127.0.0.1:99", ""},
		{"/var/redis/../run/redis.sock", "unix", "/var/run/redis.sock", ""},
		{"redis://:secret@example.com:6380", "tcp", "example.com:6380", "secret"},
		{"redis://example.com", "tcp", "example.com:6379", ""},
	}
	for _, gold := range golden {
		ep := parseEndpoint(gold.addr)
		require.Equal(t, gold.network, ep.network, gold.addr)
		require.Equal(t, gold.address, ep.address, gold.addr)
		require.Equal(t, gold.auth, ep.authPass, gold.addr)
	}
}

func TestLower(t *testing.T) {
	require.Equal(t, "hgetall", lower("HGETALL"))
	require.Equal(t, "hgetall", lower("HgetAll"))
	require.Equal(t, "", lower(""))
}

func TestParseMonitorLine(t *testing.T) {
	ts, args := parseMonitorLine(`1339518083.107412 [0 127.0.0.1:60866] "set" "foo" "bar"`)
	require.Equal(t, "1339518083.107412", ts)
	require.Equal(t, []string{"set", "foo", "bar"}, args)

	ts, args = parseMonitorLine(`1339518083.107412 "ping"`)
	require.Equal(t, "1339518083.107412", ts)
	require.Equal(t, []string{"ping"}, args)

	_, args = parseMonitorLine(`1339518083.107412 "set" "a\"b"`)
	require.Equal(t, []string{"set", "a\"b"}, args)
}
