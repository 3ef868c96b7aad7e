package resp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeBufferedMatchesWireFormat(t *testing.T) {
	buf := EncodeBuffered("set", [][]byte{[]byte("foo"), []byte("bar")})
	require.Equal(t, "*3\r\n$3\r\nset\r\n$3\r\nfoo\r\n$3\r\nbar\r\n", string(buf))
}

func TestEncodeBufferedNoArgs(t *testing.T) {
	buf := EncodeBuffered("ping", nil)
	require.Equal(t, "*1\r\n$4\r\nping\r\n", string(buf))
}

func TestEncodeStreamedMatchesEncodeBuffered(t *testing.T) {
	var w bytes.Buffer
	err := EncodeStreamed(&w, "mset", [][]byte{[]byte("a"), []byte("1"), []byte("b"), []byte("2")})
	require.NoError(t, err)
	require.Equal(t, EncodeBuffered("mset", [][]byte{[]byte("a"), []byte("1"), []byte("b"), []byte("2")}), w.Bytes())
}

func TestEncodeStreamedEmptyArgPayload(t *testing.T) {
	var w bytes.Buffer
	err := EncodeStreamed(&w, "set", [][]byte{[]byte("k"), []byte("")})
	require.NoError(t, err)
	require.Equal(t, "*3\r\n$3\r\nset\r\n$1\r\nk\r\n$0\r\n\r\n", w.String())
}

func TestEncodeStreamedRoundTripsThroughParser(t *testing.T) {
	var w bytes.Buffer
	require.NoError(t, EncodeStreamed(&w, "set", [][]byte{[]byte("key"), []byte("value")}))

	p := NewDefaultParser()
	replies, err := p.Feed(w.Bytes())
	require.NoError(t, err)
	require.Len(t, replies, 1)
	require.Equal(t, Array([]Reply{Bulk([]byte("set")), Bulk([]byte("key")), Bulk([]byte("value"))}), replies[0])
}

func TestArgBytesScalarKinds(t *testing.T) {
	require.Equal(t, []byte("hi"), ArgBytes("hi"))
	require.Equal(t, []byte("hi"), ArgBytes([]byte("hi")))
	require.Equal(t, []byte("42"), ArgBytes(42))
	require.Equal(t, []byte("42"), ArgBytes(int64(42)))
	require.Equal(t, []byte("42"), ArgBytes(uint64(42)))
	require.Equal(t, []byte("1"), ArgBytes(true))
	require.Equal(t, []byte("0"), ArgBytes(false))
	require.Nil(t, ArgBytes(nil))
}
