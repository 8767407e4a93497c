package kafka

import "time"

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig holds producer configuration. Messages are written one at a
// time and acknowledged before Publish returns.
type ProducerConfig struct {
	Brokers         []string
	ClientID        string
	RequiredAcks    int
	Compression     string
	MaxAttempts     int
	MaxMessageBytes int
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
}

func defaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		ClientID:        "fincollect",
		RequiredAcks:    -1,
		Compression:     "gzip",
		MaxAttempts:     3,
		MaxMessageBytes: 16 << 20,
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     10 * time.Second,
	}
}

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Brokers = brokers
	}
}

func WithClientID(id string) ProducerOption {
	return func(c *ProducerConfig) {
		if id != "" {
			c.ClientID = id
		}
	}
}

// WithCompression sets gzip, snappy, lz4 or zstd.
func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Compression = compression
	}
}

// WithRequiredAcks sets required acknowledgements (-1 = all in-sync replicas).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = acks
	}
}

func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) {
		c.MaxAttempts = n
	}
}

// WithMaxMessageBytes rejects larger values before they reach the broker.
// Keep it at or below the topic's max.message.bytes.
func WithMaxMessageBytes(n int) ProducerOption {
	return func(c *ProducerConfig) {
		if n > 0 {
			c.MaxMessageBytes = n
		}
	}
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.WriteTimeout = write
		c.ReadTimeout = read
	}
}
