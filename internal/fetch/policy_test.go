package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffSequence(t *testing.T) {
	backoff := DefaultPolicy().Backoff()

	var delays []time.Duration
	for {
		d, ok := backoff.Next()
		if !ok {
			break
		}
		delays = append(delays, d)
	}

	require.Equal(t, []time.Duration{
		60 * time.Second,
		120 * time.Second,
		240 * time.Second,
		480 * time.Second,
		960 * time.Second,
	}, delays)
	require.Equal(t, 5, backoff.Retries())

	_, ok := backoff.Next()
	require.False(t, ok)
}

func TestBackoffNoRetries(t *testing.T) {
	backoff := Policy{InitialDelay: time.Second}.Backoff()
	_, ok := backoff.Next()
	require.False(t, ok)
}

func TestUniform(t *testing.T) {
	lo := 500 * time.Millisecond
	hi := 1500 * time.Millisecond
	for range 1000 {
		d := Uniform(lo, hi)
		require.GreaterOrEqual(t, d, lo)
		require.LessOrEqual(t, d, hi)
	}
	require.Equal(t, lo, Uniform(lo, lo))
	require.Equal(t, hi, Uniform(hi, lo))
}
