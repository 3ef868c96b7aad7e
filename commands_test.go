package redis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xenking/redis/internal/resp"
)

func TestMetaLooksUpKnownAndUnknownCommands(t *testing.T) {
	m, ok := Meta("GET")
	require.True(t, ok)
	require.True(t, m.ReadOnly)
	require.Equal(t, 1, m.FirstKeyIndex)

	m, ok = Meta("set")
	require.True(t, ok)
	require.False(t, m.ReadOnly)

	_, ok = Meta("notacommand")
	require.False(t, ok)
}

func TestBulkStringsHandlesNonArrayAndNullArray(t *testing.T) {
	require.Nil(t, bulkStrings(resp.Status("OK")))
	require.Nil(t, bulkStrings(resp.NilArray()))
}

func TestBulkStringsExtractsEachElement(t *testing.T) {
	r := resp.Array([]resp.Reply{resp.Bulk([]byte("a")), resp.Bulk([]byte("b"))})
	require.Equal(t, []string{"a", "b"}, bulkStrings(r))
}
