package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCollect/internal/domain/models"
	"FinCollect/internal/service/calendar"
)

var (
	hkOpen   = time.Date(2024, 1, 3, 2, 0, 0, 0, time.UTC) // Wed 10:00 HKT
	hkClosed = time.Date(2024, 1, 6, 2, 0, 0, 0, time.UTC) // Sat 10:00 HKT
)

type fakeFetcher struct {
	calls   atomic.Int64
	err     atomic.Value // error
	block   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{entered: make(chan struct{}, 16), release: make(chan struct{})}
}

func (f *fakeFetcher) Fetch(ctx context.Context, symbol string, _ models.MarketKind) (json.RawMessage, error) {
	n := f.calls.Add(1)
	if f.block.Load() {
		f.entered <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, _ := f.err.Load().(error); err != nil {
		return nil, err
	}
	return json.RawMessage(`{"symbol":"` + symbol + `","n":` + itoa(n) + `}`), nil
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func newTestScheduler(t *testing.T, fc clockwork.FakeClock, f *fakeFetcher, opts ...SchedulerOption) (*CollectionScheduler, *LedgerStore) {
	t.Helper()
	store := NewLedgerStore(WithCapacity(100))
	base := []SchedulerOption{
		WithClock(fc),
		WithCadence(time.Minute),
		WithAutoCheckInterval(time.Minute),
		WithTarget("700.HK", models.MarketEquity),
	}
	s, err := NewCollectionScheduler(f, store, calendar.MustDefault(), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if f.block.Load() {
			f.block.Store(false)
			close(f.release)
		}
		_ = s.Close()
	})
	return s, store
}

var tencent = models.LedgerKey{Market: models.MarketEquity, Symbol: "700.HK"}

func TestSchedulerStartRunsImmediately(t *testing.T) {
	fc := clockwork.NewFakeClockAt(hkOpen)
	s, store := newTestScheduler(t, fc, newFakeFetcher())

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, models.StateRunning, s.State())

	stats := s.Statistics()
	assert.Equal(t, uint64(1), stats.TotalRuns)
	assert.Equal(t, uint64(1), stats.SuccessfulRuns)
	require.NotNil(t, stats.LastRunAt)
	assert.True(t, stats.LastRunAt.Equal(hkOpen))
	assert.Equal(t, 1, store.Count(tencent))
}

func TestSchedulerStartTwice(t *testing.T) {
	fc := clockwork.NewFakeClockAt(hkOpen)
	f := newFakeFetcher()
	s, _ := newTestScheduler(t, fc, f)

	require.NoError(t, s.Start(context.Background()))
	err := s.Start(context.Background())
	assert.True(t, errors.Is(err, models.ErrAlreadyRunning))
	assert.Equal(t, int64(1), f.calls.Load())
}

func TestSchedulerStartWithoutSymbol(t *testing.T) {
	fc := clockwork.NewFakeClockAt(hkOpen)
	s, err := NewCollectionScheduler(newFakeFetcher(), NewLedgerStore(), calendar.MustDefault(), WithClock(fc))
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, errors.Is(s.Start(context.Background()), models.ErrNoSymbol))
	assert.Equal(t, models.StateIdle, s.State())
}

func TestSchedulerRejectsUnknownMarket(t *testing.T) {
	_, err := NewCollectionScheduler(newFakeFetcher(), NewLedgerStore(), calendar.MustDefault(),
		WithTarget("X", models.MarketKind("forex")))
	assert.True(t, errors.Is(err, models.ErrUnknownMarket))
}

func TestSchedulerCadenceTicks(t *testing.T) {
	fc := clockwork.NewFakeClockAt(hkOpen)
	s, store := newTestScheduler(t, fc, newFakeFetcher())

	require.NoError(t, s.Start(context.Background()))
	fc.BlockUntil(1)

	for want := uint64(2); want <= 4; want++ {
		fc.Advance(time.Minute)
		require.Eventually(t, func() bool { return s.Statistics().TotalRuns == want }, time.Second, time.Millisecond)
	}
	assert.Equal(t, 4, store.Count(tencent))
	assert.Equal(t, 3*time.Minute, store.TimeSpan(tencent))
}

func TestSchedulerStop(t *testing.T) {
	fc := clockwork.NewFakeClockAt(hkOpen)
	s, _ := newTestScheduler(t, fc, newFakeFetcher())

	s.Stop()
	assert.Equal(t, models.StateIdle, s.State())

	require.NoError(t, s.Start(context.Background()))
	fc.BlockUntil(1)
	s.Stop()
	s.Stop()
	assert.Equal(t, models.StateIdle, s.State())

	fc.Advance(5 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, uint64(1), s.Statistics().TotalRuns)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, uint64(2), s.Statistics().TotalRuns)
}

func TestSchedulerDropsTicksWhileBusy(t *testing.T) {
	fc := clockwork.NewFakeClockAt(hkOpen)
	f := newFakeFetcher()
	s, _ := newTestScheduler(t, fc, f)

	require.NoError(t, s.Start(context.Background()))
	fc.BlockUntil(1)

	f.block.Store(true)
	fc.Advance(time.Minute)
	<-f.entered

	fc.Advance(time.Minute)
	require.Eventually(t, func() bool { return s.Statistics().DroppedTicks == 1 }, time.Second, time.Millisecond)
	fc.Advance(time.Minute)
	require.Eventually(t, func() bool { return s.Statistics().DroppedTicks == 2 }, time.Second, time.Millisecond)

	f.block.Store(false)
	f.release <- struct{}{}
	require.Eventually(t, func() bool { return s.Statistics().TotalRuns == 2 }, time.Second, time.Millisecond)

	stats := s.Statistics()
	assert.Equal(t, uint64(2), stats.SuccessfulRuns)
	assert.Equal(t, int64(2), f.calls.Load())
}

func TestSchedulerFailuresKeepFiveRecentErrors(t *testing.T) {
	fc := clockwork.NewFakeClockAt(hkOpen)
	f := newFakeFetcher()
	f.err.Store(errors.New("upstream 503"))
	s, store := newTestScheduler(t, fc, f)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, models.StateRunning, s.State())
	fc.BlockUntil(1)

	for want := uint64(2); want <= 7; want++ {
		fc.Advance(time.Minute)
		require.Eventually(t, func() bool { return s.Statistics().TotalRuns == want }, time.Second, time.Millisecond)
	}

	stats := s.Statistics()
	assert.Equal(t, uint64(7), stats.FailedRuns)
	assert.Zero(t, stats.SuccessfulRuns)
	require.Len(t, stats.RecentErrors, 5)
	assert.Contains(t, stats.RecentErrors[4], "upstream 503")
	assert.Contains(t, stats.RecentErrors[4], "fetch failed")
	assert.Zero(t, store.Count(tencent))

	s.ResetStatistics()
	assert.Zero(t, s.Statistics().TotalRuns)
	assert.Empty(t, s.Statistics().RecentErrors)
}

func TestSchedulerStoreFailureCountsAsFailedRun(t *testing.T) {
	fc := clockwork.NewFakeClockAt(hkOpen)
	b := newMemBackend()
	b.failNext = errors.New("redis down")
	store := NewLedgerStore(WithBackend(b))
	s, err := NewCollectionScheduler(newFakeFetcher(), store, calendar.MustDefault(),
		WithClock(fc), WithTarget("700.HK", models.MarketEquity))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Start(context.Background()))
	stats := s.Statistics()
	assert.Equal(t, uint64(1), stats.FailedRuns)
	require.Len(t, stats.RecentErrors, 1)
	assert.Contains(t, stats.RecentErrors[0], "redis down")
}

func TestSchedulerSetSymbol(t *testing.T) {
	fc := clockwork.NewFakeClockAt(hkOpen)
	s, _ := newTestScheduler(t, fc, newFakeFetcher())

	assert.True(t, errors.Is(s.SetSymbol("  ", models.MarketCrypto), models.ErrNoSymbol))
	assert.True(t, errors.Is(s.SetSymbol("EURUSD", models.MarketKind("forex")), models.ErrUnknownMarket))
	require.NoError(t, s.SetSymbol("BTCUSDT", models.MarketCrypto))
	assert.Equal(t, "BTCUSDT", s.Status().Symbol)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, errors.Is(s.SetSymbol("ETHUSDT", models.MarketCrypto), models.ErrSymbolLocked))
	assert.Equal(t, "BTCUSDT", s.Status().Symbol)
}

func TestSchedulerAutoTick(t *testing.T) {
	t.Run("open market starts idle scheduler", func(t *testing.T) {
		fc := clockwork.NewFakeClockAt(hkOpen)
		s, _ := newTestScheduler(t, fc, newFakeFetcher())

		require.NoError(t, s.AutoTick(context.Background()))
		assert.Equal(t, models.StateRunning, s.State())
		assert.Equal(t, uint64(1), s.Statistics().TotalRuns)
	})

	t.Run("closed market stops running scheduler", func(t *testing.T) {
		fc := clockwork.NewFakeClockAt(hkOpen)
		s, _ := newTestScheduler(t, fc, newFakeFetcher())

		require.NoError(t, s.Start(context.Background()))
		fc.BlockUntil(1)
		fc.Advance(hkClosed.Sub(hkOpen))
		require.Eventually(t, func() bool { return s.Statistics().TotalRuns >= 2 }, time.Second, time.Millisecond)

		require.NoError(t, s.AutoTick(context.Background()))
		assert.Equal(t, models.StateIdle, s.State())
	})

	t.Run("closed market leaves idle scheduler alone", func(t *testing.T) {
		fc := clockwork.NewFakeClockAt(hkClosed)
		f := newFakeFetcher()
		s, _ := newTestScheduler(t, fc, f)

		require.NoError(t, s.AutoTick(context.Background()))
		assert.Equal(t, models.StateIdle, s.State())
		assert.Zero(t, f.calls.Load())
	})

	t.Run("crypto is always open", func(t *testing.T) {
		fc := clockwork.NewFakeClockAt(hkClosed)
		s, _ := newTestScheduler(t, fc, newFakeFetcher(), WithTarget("BTCUSDT", models.MarketCrypto))

		require.NoError(t, s.AutoTick(context.Background()))
		assert.Equal(t, models.StateRunning, s.State())
	})
}

func TestSchedulerAutoModeFollowsCalendar(t *testing.T) {
	// 11:59 HKT: morning session closes one minute later.
	fc := clockwork.NewFakeClockAt(time.Date(2024, 1, 3, 3, 59, 0, 0, time.UTC))
	s, _ := newTestScheduler(t, fc, newFakeFetcher(), WithCadence(time.Hour))

	s.SetAutoMode(true)
	assert.True(t, s.AutoMode())
	require.Eventually(t, func() bool { return s.State() == models.StateRunning }, time.Second, time.Millisecond)

	// cadence ticker and auto ticker
	fc.BlockUntil(2)
	fc.Advance(time.Minute)
	require.Eventually(t, func() bool { return s.State() == models.StateIdle }, time.Second, time.Millisecond)

	// 13:00 HKT afternoon session
	fc.Advance(time.Hour)
	require.Eventually(t, func() bool { return s.State() == models.StateRunning }, time.Second, time.Millisecond)

	s.SetAutoMode(false)
	assert.False(t, s.AutoMode())
	assert.Equal(t, models.StateRunning, s.State())
}

func TestSchedulerObserverAndStatus(t *testing.T) {
	fc := clockwork.NewFakeClockAt(hkOpen)
	var (
		mu      sync.Mutex
		results []models.AttemptResult
	)
	s, _ := newTestScheduler(t, fc, newFakeFetcher(), WithAttemptObserver(func(r models.AttemptResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}))

	require.NoError(t, s.Start(context.Background()))

	mu.Lock()
	require.Len(t, results, 1)
	assert.True(t, results[0].OK)
	assert.Equal(t, "700.HK", results[0].Symbol)
	assert.Equal(t, uint64(1), results[0].Stats.TotalRuns)
	mu.Unlock()

	st := s.Status()
	assert.Equal(t, models.StateRunning, st.State)
	assert.Equal(t, time.Minute, st.Cadence)
	require.NotNil(t, st.Session)
	assert.True(t, st.Session.IsOpen)
	assert.Equal(t, models.SessionMorning, st.Session.Kind)
}

func TestSchedulerSetAutoModeDoesNotWaitForFetch(t *testing.T) {
	fc := clockwork.NewFakeClockAt(hkOpen)
	f := newFakeFetcher()
	f.block.Store(true)
	s, _ := newTestScheduler(t, fc, f)

	returned := make(chan struct{})
	go func() {
		s.SetAutoMode(true)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("SetAutoMode waited for the first fetch")
	}
	assert.True(t, s.AutoMode())

	// the first check still runs and starts collection
	select {
	case <-f.entered:
	case <-time.After(time.Second):
		t.Fatal("auto check never started collection")
	}
	assert.Equal(t, models.StateRunning, s.State())
}

func TestSchedulerStartAfterClose(t *testing.T) {
	fc := clockwork.NewFakeClockAt(hkOpen)
	f := newFakeFetcher()
	s, _ := newTestScheduler(t, fc, f)

	require.NoError(t, s.Close())
	assert.True(t, errors.Is(s.Start(context.Background()), models.ErrClosed))
	assert.True(t, errors.Is(s.AutoTick(context.Background()), models.ErrClosed))

	s.SetAutoMode(true)
	assert.False(t, s.AutoMode())
	assert.Equal(t, models.StateIdle, s.State())
	assert.Zero(t, f.calls.Load())
}

func TestSchedulerCloseDuringAutoStartLeavesNoLoop(t *testing.T) {
	fc := clockwork.NewFakeClockAt(hkOpen)
	f := newFakeFetcher()
	f.block.Store(true)
	s, _ := newTestScheduler(t, fc, f)

	s.SetAutoMode(true)
	<-f.entered

	closed := make(chan error, 1)
	go func() { closed <- s.Close() }()
	require.Eventually(t, func() bool { return !s.AutoMode() }, time.Second, time.Millisecond)

	f.block.Store(false)
	f.release <- struct{}{}
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	assert.Equal(t, models.StateIdle, s.State())
	runs := s.Statistics().TotalRuns
	assert.Equal(t, uint64(1), runs)

	for i := 0; i < 3; i++ {
		fc.Advance(time.Minute)
	}
	assert.Never(t, func() bool { return f.calls.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, runs, s.Statistics().TotalRuns)
}

func TestSchedulerNonJSONFetchCountsAsFailedRun(t *testing.T) {
	fc := clockwork.NewFakeClockAt(hkOpen)
	store := NewLedgerStore()
	s, err := NewCollectionScheduler(rawFetcher("a"), store, calendar.MustDefault(),
		WithClock(fc), WithTarget("700.HK", models.MarketEquity))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Start(context.Background()))
	stats := s.Statistics()
	assert.Equal(t, uint64(1), stats.FailedRuns)
	require.Len(t, stats.RecentErrors, 1)
	assert.Contains(t, stats.RecentErrors[0], models.ErrInvalidPayload.Error())
	assert.Zero(t, store.Count(tencent))
}

type rawFetcher string

func (f rawFetcher) Fetch(context.Context, string, models.MarketKind) (json.RawMessage, error) {
	return json.RawMessage(f), nil
}
