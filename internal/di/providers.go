package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"FinCollect/internal/domain/models"
	drepo "FinCollect/internal/domain/repository"
	dservice "FinCollect/internal/domain/service"
	"FinCollect/internal/handler/api"
	"FinCollect/internal/handler/ws"
	internalrepo "FinCollect/internal/repository"
	"FinCollect/internal/service/calendar"
	"FinCollect/internal/service/upstream"
	"FinCollect/internal/usecase"
	"FinCollect/pkg/cache"
	pkgch "FinCollect/pkg/clickhouse"
	"FinCollect/pkg/config"
	xhttp "FinCollect/pkg/http"
	pkgkafka "FinCollect/pkg/kafka"
	applogger "FinCollect/pkg/logger"
	"FinCollect/pkg/metrics"
	"FinCollect/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stdout",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) drepo.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New()
}

func ProvideClock() clockwork.Clock {
	return clockwork.NewRealClock()
}

// ProvideCalendar builds the market calendar from the calendar section.
func ProvideCalendar(cfg *config.Config) (*calendar.Calendar, error) {
	cal, err := calendar.New(calendar.Config{
		UTCOffset:      cfg.Calendar.UTCOffset,
		PreOpen:        cfg.Calendar.PreOpen,
		MorningOpen:    cfg.Calendar.MorningOpen,
		MorningClose:   cfg.Calendar.MorningClose,
		AfternoonOpen:  cfg.Calendar.AfternoonOpen,
		AfternoonClose: cfg.Calendar.AfternoonClose,
		Weekend:        cfg.Calendar.Weekend,
		Holidays:       cfg.Calendar.Holidays,
	})
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	return cal, nil
}

// ProvideRedisClient connects to Redis when the store backend needs it;
// otherwise it returns nil.
func ProvideRedisClient(cfg *config.Config) (*cache.RedisClient, func(), error) {
	if cfg.Store.Backend != "redis" {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisClient(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisURL(cfg.Redis.URL),
		cache.WithRedisPoolSize(cfg.Redis.PoolSize),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis client: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideLedgerBackend returns the Redis mirror, or nil for memory-only ledgers.
func ProvideLedgerBackend(cfg *config.Config, rc *cache.RedisClient) drepo.LedgerBackend {
	if cfg.Store.Backend != "redis" || rc == nil {
		return nil
	}
	return internalrepo.NewRedisLedgerBackend(rc)
}

// ProvideLedgerStore creates the bounded per-symbol store.
func ProvideLedgerStore(cfg *config.Config, backend drepo.LedgerBackend, m drepo.Metrics, l *applogger.Logger) *usecase.LedgerStore {
	return usecase.NewLedgerStore(
		usecase.WithCapacity(cfg.Store.Capacity),
		usecase.WithHealthThresholds(cfg.Store.WarnRatio, cfg.Store.CriticalRatio),
		usecase.WithBackend(backend),
		usecase.WithStoreMetrics(m),
		usecase.WithStoreLogger(l.Component("store")),
	)
}

// ProvideFetcher creates the upstream HTTP fetcher.
func ProvideFetcher(cfg *config.Config, l *applogger.Logger) (drepo.Fetcher, error) {
	f, err := upstream.New(upstream.Config{
		BaseURL:          cfg.Upstream.BaseURL,
		Path:             cfg.Upstream.Path,
		SymbolParam:      cfg.Upstream.SymbolParam,
		MarketParam:      cfg.Upstream.MarketParam,
		Headers:          cfg.Upstream.Headers,
		Timeout:          cfg.Upstream.Timeout,
		RatePerSecond:    cfg.Upstream.RatePerSecond,
		Burst:            cfg.Upstream.Burst,
		BreakerFailures:  cfg.Upstream.BreakerFailures,
		BreakerOpenDelay: cfg.Upstream.BreakerOpenDelay,
	}, l.Component("upstream"))
	if err != nil {
		return nil, fmt.Errorf("upstream fetcher: %w", err)
	}
	return f, nil
}

// ProvideHub creates the websocket status hub.
func ProvideHub(l *applogger.Logger) *ws.Hub {
	return ws.NewHub(l.Component("ws"))
}

// ProvideScheduler creates the collection scheduler and wires attempt results to the hub.
func ProvideScheduler(
	cfg *config.Config,
	fetcher drepo.Fetcher,
	store *usecase.LedgerStore,
	cal dservice.MarketCalendar,
	clock clockwork.Clock,
	m drepo.Metrics,
	l *applogger.Logger,
	hub *ws.Hub,
) (*usecase.CollectionScheduler, func(), error) {
	market, err := models.ParseMarketKind(cfg.Collector.Market)
	if err != nil {
		return nil, nil, err
	}
	s, err := usecase.NewCollectionScheduler(fetcher, store, cal,
		usecase.WithTarget(strings.TrimSpace(cfg.Collector.Symbol), market),
		usecase.WithCadence(cfg.Collector.Cadence),
		usecase.WithAutoCheckInterval(cfg.Collector.AutoCheckInterval),
		usecase.WithClock(clock),
		usecase.WithSchedulerMetrics(m),
		usecase.WithSchedulerLogger(l.Component("scheduler")),
		usecase.WithAttemptObserver(hub.Publish),
	)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { _ = s.Close() }, nil
}

// ProvideExportSink selects the artifact destination named by export.sink.
func ProvideExportSink(cfg *config.Config) (drepo.ExportSink, func(), error) {
	switch cfg.Export.Sink {
	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
			pkgkafka.WithMaxMessageBytes(cfg.Kafka.MaxMessageBytes),
			pkgkafka.WithClientID(cfg.Kafka.ClientID),
			pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka producer: %w", err)
		}
		sink := internalrepo.NewKafkaSink(producer, cfg.Kafka.Topic)
		return sink, func() { _ = sink.Close() }, nil

	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithProtocol(cfg.ClickHouse.UseHTTP, cfg.ClickHouse.Secure),
			pkgch.WithCompression(cfg.ClickHouse.Compress),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.InitSchema(ctx, internalrepo.ExportTableSchema(cfg.ClickHouse.Table)); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		sink := internalrepo.NewClickHouseExportSink(client.DB(), cfg.ClickHouse.Table)
		return sink, func() { _ = client.Close() }, nil

	default:
		sink, err := internalrepo.NewFileSink(cfg.Export.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("file sink: %w", err)
		}
		return sink, func() {}, nil
	}
}

// ProvideExporter creates the ledger exporter.
func ProvideExporter(
	cfg *config.Config,
	store *usecase.LedgerStore,
	sink drepo.ExportSink,
	clock clockwork.Clock,
	m drepo.Metrics,
	l *applogger.Logger,
) *usecase.Exporter {
	return usecase.NewExporter(store,
		usecase.NewExportPlanner(cfg.Export.SizeBudgetBytes, cfg.Export.ChunkSize),
		sink,
		usecase.WithExportClock(clock),
		usecase.WithExportMetrics(m),
		usecase.WithExportLogger(l.Component("exporter")),
	)
}

// ProvideHandlers collects every HTTP route group.
func ProvideHandlers(
	l *applogger.Logger,
	sched *usecase.CollectionScheduler,
	store *usecase.LedgerStore,
	exporter *usecase.Exporter,
	cal dservice.MarketCalendar,
	clock clockwork.Clock,
	hub *ws.Hub,
) []xhttp.Handler {
	return []xhttp.Handler{
		api.NewCollectorHandler(l, sched),
		api.NewStoreHandler(l, store, exporter),
		api.NewCalendarHandler(cal, clock),
		hub,
	}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	sched *usecase.CollectionScheduler,
	store *usecase.LedgerStore,
	hub *ws.Hub,
	handlers []xhttp.Handler,
) *server.App {
	return server.New(cfg, l, sched, store, hub, handlers)
}

// ExportTool is the offline export path used by the CLI: it restores persisted
// ledgers and writes them to the configured sink.
type ExportTool struct {
	Store    *usecase.LedgerStore
	Exporter *usecase.Exporter
}

// Export restores ledgers from the backend and exports key.
func (t *ExportTool) Export(ctx context.Context, key models.LedgerKey) (*models.ExportResult, error) {
	if err := t.Store.Restore(ctx); err != nil {
		return nil, err
	}
	return t.Exporter.ExportAll(ctx, key)
}

func ProvideExportTool(store *usecase.LedgerStore, exporter *usecase.Exporter) *ExportTool {
	return &ExportTool{Store: store, Exporter: exporter}
}
