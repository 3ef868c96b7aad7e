package resp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsesEachScalarType(t *testing.T) {
	p := NewDefaultParser()
	replies, err := p.Feed([]byte("+OK\r\n-ERR bad\r\n:42\r\n$3\r\nfoo\r\n$-1\r\n*-1\r\n"))
	require.NoError(t, err)
	require.Len(t, replies, 6)
	require.Equal(t, Status("OK"), replies[0])
	require.Equal(t, Err("ERR bad"), replies[1])
	require.Equal(t, Int(42), replies[2])
	require.Equal(t, Bulk([]byte("foo")), replies[3])
	require.True(t, replies[4].IsNil())
	require.Equal(t, TypeBulk, replies[4].Type)
	require.True(t, replies[5].IsNil())
	require.Equal(t, TypeArray, replies[5].Type)
}

func TestParsesNestedArray(t *testing.T) {
	p := NewDefaultParser()
	replies, err := p.Feed([]byte("*2\r\n$5\r\nhello\r\n*2\r\n:1\r\n:2\r\n"))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	require.Equal(t, TypeArray, replies[0].Type)
	require.Len(t, replies[0].Array, 2)
	require.Equal(t, Bulk([]byte("hello")), replies[0].Array[0])
	require.Equal(t, Array([]Reply{Int(1), Int(2)}), replies[0].Array[1])
}

func TestZeroLengthArrayYieldsEmptySlice(t *testing.T) {
	p := NewDefaultParser()
	replies, err := p.Feed([]byte("*0\r\n"))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	require.Equal(t, TypeArray, replies[0].Type)
	require.NotNil(t, replies[0].Array)
	require.Len(t, replies[0].Array, 0)
}

// TestFeedAcrossFragmentedChunks verifies the round-trip invariant that
// splitting one input arbitrarily across multiple Feed calls never changes
// the replies produced, compared to feeding it whole.
func TestFeedAcrossFragmentedChunks(t *testing.T) {
	whole := []byte("*3\r\n$3\r\nfoo\r\n:7\r\n$-1\r\n+OK\r\n")

	full := NewDefaultParser()
	wantReplies, err := full.Feed(whole)
	require.NoError(t, err)
	require.Len(t, wantReplies, 2)

	for split := 1; split < len(whole); split++ {
		p := NewDefaultParser()
		var got []Reply
		first, err := p.Feed(whole[:split])
		require.NoError(t, err)
		got = append(got, first...)
		second, err := p.Feed(whole[split:])
		require.NoError(t, err)
		got = append(got, second...)
		require.Equal(t, wantReplies, got, "split at %d", split)
	}
}

func TestResetDiscardsPartialState(t *testing.T) {
	p := NewDefaultParser()
	_, err := p.Feed([]byte("*2\r\n$3\r\nfoo\r\n"))
	require.NoError(t, err)
	p.Reset()
	replies, err := p.Feed([]byte("+OK\r\n"))
	require.NoError(t, err)
	require.Equal(t, []Reply{Status("OK")}, replies)
}

func TestProtocolViolationIsFatal(t *testing.T) {
	p := NewDefaultParser()
	_, err := p.Feed([]byte("!nope\r\n"))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrProtocol)
}

func TestZeroCopyParserByteForByteMatchesDefault(t *testing.T) {
	input := []byte("*2\r\n$3\r\nfoo\r\n$3\r\nbar\r\n")

	d := NewDefaultParser()
	dReplies, err := d.Feed(input)
	require.NoError(t, err)

	z := NewZeroCopyParser()
	zReplies, err := z.Feed(input)
	require.NoError(t, err)

	require.Equal(t, dReplies, zReplies)
}

func TestByNameSelectsImplementation(t *testing.T) {
	p, err := ByName("")
	require.NoError(t, err)
	require.IsType(t, &DefaultParser{}, p)

	p, err = ByName("zerocopy")
	require.NoError(t, err)
	require.IsType(t, &ZeroCopyParser{}, p)

	_, err = ByName("nonsense")
	require.Error(t, err)
}
