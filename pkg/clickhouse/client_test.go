package clickhouse

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:        "ch.local",
		Port:        9000,
		Database:    "collect",
		User:        "writer",
		Password:    "p@ss",
		DialTimeout: 2 * time.Second,
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", u.Scheme)
	assert.Equal(t, "ch.local:9000", u.Host)
	assert.Equal(t, "/collect", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss", pw)
	assert.Equal(t, "2s", u.Query().Get("dial_timeout"))
	assert.Empty(t, u.Query().Get("read_timeout"))
	assert.Empty(t, u.Query().Get("compress"))
}

func TestBuildDSNFromOptions(t *testing.T) {
	cfg := defaultClientConfig()
	for _, opt := range []ClientOption{
		WithAddr("ch.local", 0),
		WithDatabase(""),
		WithCredentials("", "x"),
		WithProtocol(false, true),
	} {
		opt(cfg)
	}
	u, err := url.Parse(buildDSN(*cfg))
	require.NoError(t, err)
	assert.Equal(t, "ch.local:9000", u.Host)
	assert.Equal(t, "/default", u.Path)
	assert.Equal(t, "default", u.User.Username())
	assert.Equal(t, "true", u.Query().Get("secure"))
	assert.Equal(t, "lz4", u.Query().Get("compress"))
}

func TestBuildDSNHTTP(t *testing.T) {
	dsn := buildDSN(ClientConfig{Host: "h", Port: 8123, Database: "d", UseHTTP: true})
	assert.Contains(t, dsn, "http://")

	dsn = buildDSN(ClientConfig{Host: "h", Port: 8443, Database: "d", UseHTTP: true, Secure: true})
	assert.Contains(t, dsn, "https://")
	assert.NotContains(t, dsn, "secure=")
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}
