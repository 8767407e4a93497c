package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Writer is the subset of *kafka.Writer the producer needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ErrMessageTooLarge is returned when a value exceeds MaxMessageBytes.
var ErrMessageTooLarge = errors.New("kafka message too large")

// Producer wraps a synchronous Kafka writer.
type Producer struct {
	writer   Writer
	comp     string
	maxBytes int
}

// Message is one record to publish. Headers become Kafka record headers.
type Message struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// NewProducer creates a producer that hashes keys onto partitions, so
// messages with the same key keep their order.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := defaultProducerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  parseCompression(cfg.Compression),
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		BatchSize:    1,
		BatchBytes:   int64(cfg.MaxMessageBytes) + 1<<10,
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
	}

	p := NewProducerWithWriter(writer, cfg.Compression)
	p.maxBytes = cfg.MaxMessageBytes
	return p, nil
}

// NewProducerWithWriter wraps an existing writer with no size cap; tests pass a fake.
func NewProducerWithWriter(w Writer, compression string) *Producer {
	initProducerMetricsOnce()
	return &Producer{writer: w, comp: compression}
}

// Publish sends m to topic and waits for the broker acknowledgement.
func (p *Producer) Publish(ctx context.Context, topic string, m Message) error {
	if p.maxBytes > 0 && len(m.Value) > p.maxBytes {
		producerErrsTotal.WithLabelValues(topic).Inc()
		return fmt.Errorf("kafka publish to %s: %w: %d > %d bytes", topic, ErrMessageTooLarge, len(m.Value), p.maxBytes)
	}

	start := time.Now()
	km := kafka.Message{
		Topic: topic,
		Key:   m.Key,
		Value: m.Value,
		Time:  start,
	}
	for k, v := range m.Headers {
		km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	sort.Slice(km.Headers, func(i, j int) bool { return km.Headers[i].Key < km.Headers[j].Key })

	err := p.writer.WriteMessages(ctx, km)
	observeProducerMetrics(topic, p.comp, int64(len(m.Value)), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("kafka publish to %s: %w", topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Gzip
	}
}

var (
	producerMsgsTotal   *prometheus.CounterVec
	producerErrsTotal   *prometheus.CounterVec
	producerBytesTotal  *prometheus.CounterVec
	producerLatencyHist *prometheus.HistogramVec
	producerOnce        sync.Once
)

func initProducerMetricsOnce() {
	producerOnce.Do(func() {
		producerMsgsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincollect_kafka_producer_messages_total",
				Help: "Total messages published to Kafka",
			},
			[]string{"topic", "compression", "result"},
		)
		producerErrsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincollect_kafka_producer_errors_total",
				Help: "Total producer errors",
			},
			[]string{"topic"},
		)
		producerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincollect_kafka_producer_bytes_total",
				Help: "Total payload bytes published",
			},
			[]string{"topic", "compression"},
		)
		producerLatencyHist = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincollect_kafka_producer_publish_seconds",
				Help:    "Publish latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		)
	})
}

func observeProducerMetrics(topic, comp string, bytes int64, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		producerErrsTotal.WithLabelValues(topic).Inc()
	}
	producerMsgsTotal.WithLabelValues(topic, comp, result).Inc()
	producerBytesTotal.WithLabelValues(topic, comp).Add(float64(bytes))
	producerLatencyHist.WithLabelValues(topic).Observe(dur.Seconds())
}
