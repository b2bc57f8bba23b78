package monotime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lc-may/udp-toolkit/internal/monotime"
)

func TestSecondsIsMonotonic(t *testing.T) {
	a := monotime.Seconds()
	time.Sleep(10 * time.Millisecond)
	b := monotime.Seconds()
	require.Greater(t, b, a)
	require.InDelta(t, 0.01, b-a, 0.5)
}
