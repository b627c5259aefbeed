package services

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestScheduler_RunsJob(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	s := NewScheduler("@every 1s", func() { runs.Add(1) }, nil)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestScheduler_SkipsWhileRunning(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler("@every 1m", func() { runs.Add(1) }, nil)
	s.running.Store(true)

	s.triggerSync()

	assert.Zero(t, runs.Load())
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := NewScheduler("whenever", func() {}, nil)

	assert.Error(t, s.Start())
}
