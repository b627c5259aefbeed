package connectivity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeChecker struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeChecker) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeChecker) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeChecker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestMonitor_ReachableProbesOnce(t *testing.T) {
	// ARRANGE
	checker := &fakeChecker{}
	m := NewMonitor(checker, time.Second, nil)
	ctx := context.Background()

	// ACT
	first := m.Reachable(ctx)
	second := m.Reachable(ctx)

	// ASSERT
	assert.True(t, first)
	assert.True(t, second)
	assert.Equal(t, 1, checker.callCount(), "known state should not be re-probed")
}

func TestMonitor_UnreachableWhenPingFails(t *testing.T) {
	m := NewMonitor(&fakeChecker{err: errors.New("dial tcp: refused")}, time.Second, nil)

	assert.False(t, m.Reachable(context.Background()))
}

func TestMonitor_NotifiesOnlyOnTransitions(t *testing.T) {
	// ARRANGE
	m := NewMonitor(&fakeChecker{}, time.Second, nil)
	var events []bool
	unsubscribe := m.Subscribe(func(reachable bool) { events = append(events, reachable) })

	// ACT
	m.Set(false)
	m.Set(false)
	m.Set(true)
	m.Set(true)
	m.Set(false)
	unsubscribe()
	m.Set(true)

	// ASSERT
	assert.Equal(t, []bool{false, true, false}, events)
}

func TestMonitor_SubscribersCanResubscribeFromCallback(t *testing.T) {
	m := NewMonitor(&fakeChecker{}, time.Second, nil)
	var inner atomic.Int32

	m.Subscribe(func(bool) {
		m.Subscribe(func(bool) { inner.Add(1) })
	})

	m.Set(true)
	m.Set(false)

	assert.Equal(t, int32(1), inner.Load())
}

func TestMonitor_RunTracksCheckerAndStops(t *testing.T) {
	// ARRANGE
	checker := &fakeChecker{err: errors.New("offline")}
	m := NewMonitor(checker, 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())

	changes := make(chan bool, 8)
	m.Subscribe(func(reachable bool) { changes <- reachable })

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	// ACT + ASSERT
	require.False(t, waitFor(t, changes))
	checker.setErr(nil)
	require.True(t, waitFor(t, changes))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func waitFor(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connectivity change")
		return false
	}
}
