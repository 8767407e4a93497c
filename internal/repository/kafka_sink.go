package repository

import (
	"context"
	"strconv"
	"time"

	"FinCollect/internal/domain/repository"
	pkgkafka "FinCollect/pkg/kafka"
)

// ArtifactPublisher is satisfied by *pkgkafka.Producer.
type ArtifactPublisher interface {
	Publish(ctx context.Context, topic string, m pkgkafka.Message) error
	Close() error
}

// KafkaSink publishes each artifact as one message keyed by artifact name.
type KafkaSink struct {
	pub   ArtifactPublisher
	topic string
	now   func() time.Time
}

func NewKafkaSink(pub ArtifactPublisher, topic string) repository.ExportSink {
	return &KafkaSink{pub: pub, topic: topic, now: time.Now}
}

func (s *KafkaSink) Write(ctx context.Context, artifactName string, data []byte) error {
	return s.pub.Publish(ctx, s.topic, pkgkafka.Message{
		Key:   []byte(artifactName),
		Value: data,
		Headers: map[string]string{
			"artifact":     artifactName,
			"content-type": "application/json",
			"size":         strconv.Itoa(len(data)),
			"written-at":   s.now().UTC().Format(time.RFC3339Nano),
		},
	})
}

func (s *KafkaSink) Close() error {
	return s.pub.Close()
}
