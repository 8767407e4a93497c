package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fincollect-test", r.Header.Get("User-Agent"))
		assert.Equal(t, []string{"700.HK"}, r.URL.Query()["symbol"])
		_, _ = w.Write([]byte(`{"price":312.4}`))
	}))
	defer srv.Close()

	c := NewClient(WithUserAgent("fincollect-test"))
	opts := &RequestOptions{Method: MethodGet, URL: srv.URL, QueryParams: map[string][]string{"symbol": {"700.HK"}}}

	var raw []byte
	require.NoError(t, c.SendAndParse(context.Background(), opts, &raw))
	assert.JSONEq(t, `{"price":312.4}`, string(raw))

	var decoded struct{ Price float64 }
	require.NoError(t, c.SendAndParse(context.Background(), opts, &decoded))
	assert.Equal(t, 312.4, decoded.Price)
}

func TestClientBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`0123456789`))
	}))
	defer srv.Close()

	var raw []byte
	err := NewClient(WithMaxBodyBytes(4)).SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, &raw)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(raw))
}

func TestClientStatusError(t *testing.T) {
	for _, tc := range []struct {
		status    int
		temporary bool
	}{
		{http.StatusBadGateway, true},
		{http.StatusTooManyRequests, true},
		{http.StatusNotFound, false},
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte("nope"))
		}))

		err := NewClient().SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil)
		srv.Close()

		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, tc.status, se.StatusCode)
		assert.Equal(t, "nope", se.Body)
		assert.Equal(t, tc.temporary, IsTemporary(err))
	}
	assert.True(t, IsTemporary(errors.New("connection refused")))
	assert.False(t, IsTemporary(nil))
}
