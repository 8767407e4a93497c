package clickhouse

import "time"

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds ClickHouse connection settings.
type ClientConfig struct {
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	UseHTTP      bool
	Secure       bool
	Compress     bool
	MaxOpenConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
}

func defaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Port:         9000,
		Database:     "default",
		User:         "default",
		Compress:     true,
		MaxOpenConns: 4,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  30 * time.Second,
	}
}

// WithAddr sets host and port; a zero port keeps the default.
func WithAddr(host string, port int) ClientOption {
	return func(c *ClientConfig) {
		c.Host = host
		if port > 0 {
			c.Port = port
		}
	}
}

func WithDatabase(database string) ClientOption {
	return func(c *ClientConfig) {
		if database != "" {
			c.Database = database
		}
	}
}

func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) {
		if user != "" {
			c.User = user
		}
		c.Password = password
	}
}

// WithProtocol selects HTTP instead of the native protocol and optionally TLS.
func WithProtocol(useHTTP, secure bool) ClientOption {
	return func(c *ClientConfig) {
		c.UseHTTP = useHTTP
		c.Secure = secure
	}
}

// WithCompression toggles lz4 block compression; artifact bodies compress well.
func WithCompression(on bool) ClientOption {
	return func(c *ClientConfig) {
		c.Compress = on
	}
}

func WithTimeouts(dial, read time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.DialTimeout = dial
		c.ReadTimeout = read
	}
}
