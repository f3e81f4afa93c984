package worker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReverseText(t *testing.T) {
	require.Equal(t, "cba", reverseText("abc"))
}

func TestUpperText(t *testing.T) {
	require.Equal(t, "ABC", upperText("abc"))
}

func TestFibonacci(t *testing.T) {
	v, ok := fibonacci(10)
	require.True(t, ok)
	require.Equal(t, uint64(55), v)
}

func TestFibonacciOverflow(t *testing.T) {
	_, ok := fibonacci(math.MaxUint64)
	require.False(t, ok)
}

func TestRandomIntsRange(t *testing.T) {
	vals, err := randomInts(20, 5, 10)
	require.NoError(t, err)
	require.Len(t, vals, 20)
	for _, v := range vals {
		require.GreaterOrEqual(t, v, int32(5))
		require.LessOrEqual(t, v, int32(10))
	}
}

func TestRandomIntsInvalidRange(t *testing.T) {
	_, err := randomInts(1, 10, 5)
	require.Error(t, err)
}
