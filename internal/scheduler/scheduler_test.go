package scheduler_test

import (
	"testing"
	"time"

	"github.com/doismellburning/samoyed/internal/dedupe"
	"github.com/doismellburning/samoyed/internal/scheduler"
	"github.com/stretchr/testify/require"
)

func TestScheduleDedupeSweepRunsAndRemovesExpired(t *testing.T) {
	sched, err := scheduler.New()
	require.NoError(t, err)

	cache := dedupe.New(time.Millisecond, 0)
	cache.Insert(dedupe.Key{Chan: 0, CRC: 1})
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, scheduler.ScheduleDedupeSweep(sched, "radio0", cache, 10*time.Millisecond, nil))
	sched.Start()
	defer func() { _ = sched.Shutdown() }()

	require.Eventually(t, func() bool {
		return cache.Len() == 0
	}, time.Second, 10*time.Millisecond)
}
