package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SleepContext(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepContextElapses(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), 5*time.Millisecond))
	require.NoError(t, SleepContext(context.Background(), 0))
}

func TestRecordingSleeper(t *testing.T) {
	s := &RecordingSleeper{}
	ctx := context.Background()
	_ = s.Sleep(ctx, time.Second)
	_ = s.Sleep(ctx, 200*time.Millisecond)
	_ = s.Sleep(ctx, time.Second)

	assert.Equal(t, []time.Duration{time.Second, 200 * time.Millisecond, time.Second}, s.Calls())
	assert.Equal(t, 2, s.Count(time.Second))
}
