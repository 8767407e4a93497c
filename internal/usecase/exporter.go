package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"FinCollect/internal/domain/models"
	drepo "FinCollect/internal/domain/repository"
	applogger "FinCollect/pkg/logger"
	"FinCollect/pkg/metrics"
)

const artifactTimeLayout = "2006-01-02T15:04:05.000Z"

// Exporter materializes a ledger snapshot into artifacts on an ExportSink.
type Exporter struct {
	store   *LedgerStore
	planner ExportPlanner
	sink    drepo.ExportSink
	clock   clockwork.Clock
	metrics drepo.Metrics
	l       *applogger.Logger
}

type ExporterOption func(*Exporter)

func WithExportClock(c clockwork.Clock) ExporterOption {
	return func(e *Exporter) {
		if c != nil {
			e.clock = c
		}
	}
}

func WithExportMetrics(m drepo.Metrics) ExporterOption {
	return func(e *Exporter) {
		if m != nil {
			e.metrics = m
		}
	}
}

func WithExportLogger(l *applogger.Logger) ExporterOption {
	return func(e *Exporter) {
		if l != nil {
			e.l = l
		}
	}
}

func NewExporter(store *LedgerStore, planner ExportPlanner, sink drepo.ExportSink, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		store:   store,
		planner: planner,
		sink:    sink,
		clock:   clockwork.NewRealClock(),
		metrics: metrics.Nop{},
		l:       applogger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportAll writes every record of key's ledger. The first failing artifact
// aborts the export; the result still lists artifacts already written.
func (e *Exporter) ExportAll(ctx context.Context, key models.LedgerKey) (*models.ExportResult, error) {
	start := e.clock.Now()
	records := e.store.Snapshot(key)
	if len(records) == 0 {
		return nil, fmt.Errorf("export %s: %w", key, models.ErrEmptyLedger)
	}

	plan, err := e.planner.Plan(records)
	if err != nil {
		e.metrics.RecordError("export_serialization")
		return nil, fmt.Errorf("export %s: %w", key, err)
	}

	ts := ArtifactTimestamp(start)
	res := &models.ExportResult{Key: key, Kind: plan.Kind, Records: plan.RecordCount, At: start}

	for _, chunk := range plan.Chunks {
		var name string
		if plan.Kind == models.ExportSingle {
			name = SingleArtifactName(key.Symbol, ts, len(chunk.Records))
		} else {
			name = ChunkArtifactName(key.Symbol, chunk.Index, chunk.Total, ts)
		}

		data, err := json.Marshal(chunk.Records)
		if err != nil {
			e.metrics.RecordError("export_serialization")
			return res, fmt.Errorf("export %s: %w: %v", name, models.ErrSerialization, err)
		}
		if len(data) == 0 {
			e.metrics.RecordError("export_serialization")
			return res, fmt.Errorf("export %s: %w: empty artifact", name, models.ErrSerialization)
		}
		if err := e.sink.Write(ctx, name, data); err != nil {
			e.metrics.RecordError("export_sink")
			e.l.Error("export artifact failed",
				applogger.String("artifact", name),
				applogger.Error(err),
			)
			return res, fmt.Errorf("export %s: %w: %v", name, models.ErrSink, err)
		}
		res.Artifacts = append(res.Artifacts, name)
		res.Bytes += int64(len(data))
	}

	e.metrics.RecordExport(key.Symbol, string(plan.Kind), len(res.Artifacts))
	e.metrics.RecordLatency("export", e.clock.Since(start).Seconds())
	e.l.Info("ledger exported",
		applogger.String("symbol", key.Symbol),
		applogger.String("kind", string(plan.Kind)),
		applogger.Int("records", res.Records),
		applogger.Int("artifacts", len(res.Artifacts)),
	)
	return res, nil
}

// ArtifactTimestamp renders t in UTC with milliseconds, filename-safe.
func ArtifactTimestamp(t time.Time) string {
	s := t.UTC().Format(artifactTimeLayout)
	return strings.NewReplacer(":", "-", ".", "-").Replace(s)
}

func SingleArtifactName(symbol, ts string, n int) string {
	return fmt.Sprintf("%s_collection_%s_%drecords.json", symbol, ts, n)
}

func ChunkArtifactName(symbol string, index, total int, ts string) string {
	return fmt.Sprintf("%s_chunk_%d_of_%d_%s.json", symbol, index, total, ts)
}
