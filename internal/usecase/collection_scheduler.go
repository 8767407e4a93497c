package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"FinCollect/internal/domain/models"
	drepo "FinCollect/internal/domain/repository"
	dservice "FinCollect/internal/domain/service"
	applogger "FinCollect/pkg/logger"
	"FinCollect/pkg/metrics"
)

const (
	DefaultCadence           = 60 * time.Second
	DefaultAutoCheckInterval = 60 * time.Second
	maxRecentErrors          = 5
)

// CollectionScheduler periodically fetches one symbol and appends each payload
// to the ledger store. In auto mode a separate calendar check starts and stops
// collection as the symbol's market opens and closes.
type CollectionScheduler struct {
	fetcher  drepo.Fetcher
	store    *LedgerStore
	calendar dservice.MarketCalendar
	clock    clockwork.Clock
	metrics  drepo.Metrics
	l        *applogger.Logger
	observer func(models.AttemptResult)

	cadence      time.Duration
	autoInterval time.Duration
	baseCtx      context.Context
	cancelBase   context.CancelFunc
	busy         atomic.Bool
	inflight     sync.WaitGroup

	mu       sync.Mutex
	state    models.SchedulerState
	symbol   string
	market   models.MarketKind
	gen      uint64
	stopLoop chan struct{}
	closed   bool

	autoMu   sync.Mutex
	autoMode bool
	stopAuto chan struct{}
	autoDone sync.WaitGroup

	statsMu sync.Mutex
	stats   models.RunStatistics
}

type SchedulerOption func(*CollectionScheduler)

// WithTarget sets the initial symbol and market.
func WithTarget(symbol string, market models.MarketKind) SchedulerOption {
	return func(s *CollectionScheduler) {
		s.symbol = strings.TrimSpace(symbol)
		if market != "" {
			s.market = market
		}
	}
}

func WithCadence(d time.Duration) SchedulerOption {
	return func(s *CollectionScheduler) {
		if d > 0 {
			s.cadence = d
		}
	}
}

func WithAutoCheckInterval(d time.Duration) SchedulerOption {
	return func(s *CollectionScheduler) {
		if d > 0 {
			s.autoInterval = d
		}
	}
}

func WithClock(c clockwork.Clock) SchedulerOption {
	return func(s *CollectionScheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithSchedulerMetrics(m drepo.Metrics) SchedulerOption {
	return func(s *CollectionScheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithSchedulerLogger(l *applogger.Logger) SchedulerOption {
	return func(s *CollectionScheduler) {
		if l != nil {
			s.l = l
		}
	}
}

// WithAttemptObserver registers fn to receive every finished attempt. fn runs
// on the attempt goroutine and must not block.
func WithAttemptObserver(fn func(models.AttemptResult)) SchedulerOption {
	return func(s *CollectionScheduler) {
		s.observer = fn
	}
}

// NewCollectionScheduler returns an idle scheduler. An initial market the
// calendar does not know is rejected here.
func NewCollectionScheduler(
	fetcher drepo.Fetcher,
	store *LedgerStore,
	cal dservice.MarketCalendar,
	opts ...SchedulerOption,
) (*CollectionScheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &CollectionScheduler{
		fetcher:      fetcher,
		store:        store,
		calendar:     cal,
		clock:        clockwork.NewRealClock(),
		metrics:      metrics.Nop{},
		l:            applogger.Nop(),
		cadence:      DefaultCadence,
		autoInterval: DefaultAutoCheckInterval,
		baseCtx:      ctx,
		cancelBase:   cancel,
		state:        models.StateIdle,
		market:       models.MarketEquity,
		stats:        models.RunStatistics{RecentErrors: []string{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := cal.Validate(s.market); err != nil {
		cancel()
		return nil, fmt.Errorf("collection scheduler: %w", err)
	}
	return s, nil
}

// Start runs one attempt immediately and then arms the cadence timer. The
// first attempt's failure is recorded but does not prevent arming.
func (s *CollectionScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.ErrClosed
	}
	if s.state == models.StateRunning {
		s.mu.Unlock()
		return models.ErrAlreadyRunning
	}
	if s.symbol == "" {
		s.mu.Unlock()
		return models.ErrNoSymbol
	}
	s.state = models.StateRunning
	s.gen++
	gen, symbol, market := s.gen, s.symbol, s.market
	first := s.busy.CompareAndSwap(false, true)
	if first {
		s.inflight.Add(1)
	}
	s.mu.Unlock()

	s.l.Info("collection started",
		applogger.String("symbol", symbol),
		applogger.String("market", string(market)),
		applogger.Duration("cadence", s.cadence),
	)

	if first {
		s.attempt(ctx, symbol, market)
	} else {
		s.recordDropped(symbol)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != models.StateRunning || s.gen != gen {
		// stopped while the first attempt was in flight
		return nil
	}
	stop := make(chan struct{})
	s.stopLoop = stop
	ticker := s.clock.NewTicker(s.cadence)
	go s.loop(ticker, stop, gen)
	return nil
}

// Stop disarms the cadence timer. No attempt starts after Stop returns; one
// already in flight may still commit its record. Stopping an idle scheduler is a no-op.
func (s *CollectionScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == models.StateIdle {
		return
	}
	s.state = models.StateIdle
	if s.stopLoop != nil {
		close(s.stopLoop)
		s.stopLoop = nil
	}
	s.l.Info("collection stopped", applogger.String("symbol", s.symbol))
}

func (s *CollectionScheduler) loop(ticker clockwork.Ticker, stop <-chan struct{}, gen uint64) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			s.mu.Lock()
			if s.state != models.StateRunning || s.gen != gen {
				s.mu.Unlock()
				return
			}
			symbol, market := s.symbol, s.market
			if !s.busy.CompareAndSwap(false, true) {
				s.mu.Unlock()
				s.recordDropped(symbol)
				continue
			}
			s.inflight.Add(1)
			s.mu.Unlock()
			go s.attempt(s.baseCtx, symbol, market)
		}
	}
}

// attempt expects the busy flag to be held and releases it.
func (s *CollectionScheduler) attempt(ctx context.Context, symbol string, market models.MarketKind) {
	defer s.inflight.Done()
	defer s.busy.Store(false)

	start := s.clock.Now()
	err := s.collect(ctx, symbol, market)
	elapsed := s.clock.Since(start)
	at := s.clock.Now()

	s.statsMu.Lock()
	s.stats.TotalRuns++
	s.stats.LastRunAt = &at
	if err != nil {
		s.stats.FailedRuns++
		s.stats.RecentErrors = append(s.stats.RecentErrors, fmt.Sprintf("%s: %v", at.UTC().Format(time.RFC3339), err))
		if n := len(s.stats.RecentErrors); n > maxRecentErrors {
			s.stats.RecentErrors = append([]string(nil), s.stats.RecentErrors[n-maxRecentErrors:]...)
		}
	} else {
		s.stats.SuccessfulRuns++
	}
	stats := s.copyStatsLocked()
	s.statsMu.Unlock()

	s.metrics.RecordLatency("attempt", elapsed.Seconds())
	result := models.AttemptResult{Symbol: symbol, Market: market, At: at, OK: err == nil, Elapsed: elapsed, Stats: stats}
	if err != nil {
		result.Error = err.Error()
		s.metrics.RecordAttempt(symbol, "failure")
		s.l.Warn("collection attempt failed",
			applogger.String("symbol", symbol),
			applogger.Duration("elapsed", elapsed),
			applogger.Error(err),
		)
	} else {
		s.metrics.RecordAttempt(symbol, "success")
		s.l.Debug("collection attempt ok",
			applogger.String("symbol", symbol),
			applogger.Duration("elapsed", elapsed),
		)
	}
	if s.observer != nil {
		s.observer(result)
	}
}

func (s *CollectionScheduler) collect(ctx context.Context, symbol string, market models.MarketKind) error {
	payload, err := s.fetcher.Fetch(ctx, symbol, market)
	if err != nil {
		s.metrics.RecordError("fetch")
		return fmt.Errorf("%w: %v", models.ErrFetch, err)
	}
	return s.store.Append(ctx, models.CollectedRecord{
		Symbol:      symbol,
		Market:      market,
		CollectedAt: s.clock.Now(),
		Payload:     payload,
	})
}

func (s *CollectionScheduler) recordDropped(symbol string) {
	s.statsMu.Lock()
	s.stats.DroppedTicks++
	s.statsMu.Unlock()
	s.metrics.RecordDroppedTick(symbol)
	s.l.Debug("tick dropped, attempt in flight", applogger.String("symbol", symbol))
}

// SetSymbol changes the collection target. It is refused while running.
func (s *CollectionScheduler) SetSymbol(symbol string, market models.MarketKind) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return models.ErrNoSymbol
	}
	if err := s.calendar.Validate(market); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == models.StateRunning {
		return models.ErrSymbolLocked
	}
	s.symbol, s.market = symbol, market
	s.l.Info("collection target set", applogger.String("symbol", symbol), applogger.String("market", string(market)))
	return nil
}

// SetAutoMode toggles the calendar-driven start/stop. Enabling schedules one
// check right away on the auto goroutine; disabling leaves the current run
// state as is. Enabling a closed scheduler is a no-op.
func (s *CollectionScheduler) SetAutoMode(enabled bool) {
	s.autoMu.Lock()
	if enabled == s.autoMode {
		s.autoMu.Unlock()
		return
	}
	if enabled && s.isClosed() {
		s.autoMu.Unlock()
		s.l.Warn("auto mode not enabled, scheduler closed")
		return
	}
	s.autoMode = enabled
	if !enabled {
		close(s.stopAuto)
		s.stopAuto = nil
		s.autoMu.Unlock()
		s.l.Info("auto mode disabled")
		return
	}
	stop := make(chan struct{})
	s.stopAuto = stop
	ticker := s.clock.NewTicker(s.autoInterval)
	s.autoDone.Add(1)
	s.autoMu.Unlock()

	s.l.Info("auto mode enabled", applogger.Duration("interval", s.autoInterval))
	go s.autoLoop(ticker, stop)
}

func (s *CollectionScheduler) autoLoop(ticker clockwork.Ticker, stop <-chan struct{}) {
	defer s.autoDone.Done()
	defer ticker.Stop()
	s.autoCheck()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			s.autoCheck()
		}
	}
}

func (s *CollectionScheduler) autoCheck() {
	if err := s.AutoTick(s.baseCtx); err != nil && !errors.Is(err, models.ErrClosed) {
		s.l.Warn("auto check failed", applogger.Error(err))
	}
}

// AutoTick performs one calendar check: an open market starts an idle
// scheduler and a closed one stops a running scheduler.
func (s *CollectionScheduler) AutoTick(ctx context.Context) error {
	s.mu.Lock()
	state, symbol, market := s.state, s.symbol, s.market
	s.mu.Unlock()

	session, err := s.calendar.SessionAt(market, s.clock.Now())
	if err != nil {
		return err
	}
	switch {
	case session.IsOpen && state == models.StateIdle:
		if symbol == "" {
			return models.ErrNoSymbol
		}
		s.l.Info("market open, starting collection", applogger.String("session", string(session.Kind)))
		if err := s.Start(ctx); err != nil && !errors.Is(err, models.ErrAlreadyRunning) {
			return err
		}
	case !session.IsOpen && state == models.StateRunning:
		s.l.Info("market closed, stopping collection", applogger.String("session", string(session.Kind)))
		s.Stop()
	}
	return nil
}

func (s *CollectionScheduler) AutoMode() bool {
	s.autoMu.Lock()
	defer s.autoMu.Unlock()
	return s.autoMode
}

func (s *CollectionScheduler) State() models.SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status reports run state, target and the target market's current session.
func (s *CollectionScheduler) Status() models.SchedulerStatus {
	s.mu.Lock()
	st := models.SchedulerStatus{State: s.state, Symbol: s.symbol, Market: s.market, Cadence: s.cadence}
	s.mu.Unlock()
	st.AutoMode = s.AutoMode()
	if session, err := s.calendar.SessionAt(st.Market, s.clock.Now()); err == nil {
		st.Session = &session
	}
	return st
}

// Statistics returns a copy of the run counters.
func (s *CollectionScheduler) Statistics() models.RunStatistics {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.copyStatsLocked()
}

func (s *CollectionScheduler) ResetStatistics() {
	s.statsMu.Lock()
	s.stats = models.RunStatistics{RecentErrors: []string{}}
	s.statsMu.Unlock()
}

func (s *CollectionScheduler) copyStatsLocked() models.RunStatistics {
	out := s.stats
	out.RecentErrors = append([]string{}, s.stats.RecentErrors...)
	if s.stats.LastRunAt != nil {
		t := *s.stats.LastRunAt
		out.LastRunAt = &t
	}
	return out
}

func (s *CollectionScheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close disables auto mode, stops collection and waits for an in-flight
// attempt. Start fails with ErrClosed afterwards.
func (s *CollectionScheduler) Close() error {
	s.autoMu.Lock()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.autoMu.Unlock()

	s.SetAutoMode(false)
	s.autoDone.Wait()
	s.Stop()
	s.inflight.Wait()
	s.cancelBase()
	return nil
}
