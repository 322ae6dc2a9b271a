package graph

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppingClock returns start, start+steps[0], start+steps[0]+steps[1], ...
func steppingClock(steps ...time.Duration) func() time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	i := 0
	return func() time.Time {
		if i > 0 && i <= len(steps) {
			now = now.Add(steps[i-1])
		}
		i++
		return now
	}
}

func TestTimingRunner_RecordsStats(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	f := &fakeRunner{}
	f.fail("boom", stderrors.New("syntax error"))
	r := newTimingRunner(f, logger)
	r.now = steppingClock(time.Second, 0, 3*time.Second, 0, time.Second)

	ctx := context.Background()
	_, err := r.Run(ctx, opRead, "MATCH (n) RETURN n", nil)
	require.NoError(t, err)
	_, err = r.Run(ctx, opRead, "MATCH (m) RETURN m", nil)
	require.NoError(t, err)
	_, err = r.Run(ctx, opWrite, "boom", nil)
	require.Error(t, err)

	stats := r.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, OperationStats{
		Operation:       opRead,
		Executions:      2,
		AverageDuration: 2 * time.Second,
		MaxDuration:     3 * time.Second,
	}, stats[0])
	assert.Equal(t, opWrite, stats[1].Operation)
	assert.Equal(t, 1, stats[1].Failures)
	assert.Equal(t, 0, stats[1].Timeouts)
}

func TestTimingRunner_WarnsNearTimeout(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	r := newTimingRunner(&fakeRunner{}, logger)
	// health checks time out after 5s; 4.5s is past the warning ratio
	r.now = steppingClock(4500 * time.Millisecond)

	_, err := r.Run(context.Background(), opHealthCheck, "RETURN 10", nil)
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "query approaching timeout", entry.Message)
	assert.InDelta(t, 90.0, entry.Data["percent_used"], 0.001)
}

func TestTimingRunner_TimeoutCounted(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	f := &fakeRunner{}
	f.fail("", context.DeadlineExceeded)
	r := newTimingRunner(f, logger)
	r.now = steppingClock(6 * time.Second)

	_, err := r.Run(context.Background(), opHealthCheck, "RETURN 10", nil)
	require.Error(t, err)

	assert.Equal(t, 1, r.Stats()[0].Timeouts)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestTimingRunner_CloseClosesInner(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	f := &fakeRunner{}
	r := newTimingRunner(f, logger)
	require.NoError(t, r.Close(context.Background()))
	assert.True(t, f.closed)
}

func TestClient_QueryStatsBeforeConnect(t *testing.T) {
	c, _ := testClient(Options{})
	assert.Nil(t, c.QueryStats())
}
