package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProvider_KeyedMapShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"EURUSD": {"bid": 1.1000, "ask": 1.1002, "timestamp": 1700000000},
			"USDJPY": {"bid": 151.20, "ask": 151.23}
		}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL)
	require.NoError(t, p.Refresh(context.Background()))

	q, ok := p.Quote("EURUSD")
	require.True(t, ok)
	assert.Equal(t, "EURUSD", q.Symbol)
	assert.Equal(t, 1.1000, q.Bid)
	assert.Equal(t, 1.1002, q.Ask)
	assert.Equal(t, int64(1700000000), q.ObservedAt.Unix())

	_, ok = p.Quote("USDJPY")
	assert.True(t, ok)
}

func TestHTTPProvider_DataWrapperShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"symbol": "BTCUSD", "bid": 64000.5, "ask": 64010.0}]}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL)
	require.NoError(t, p.Refresh(context.Background()))

	q, ok := p.Quote("BTCUSD")
	require.True(t, ok)
	assert.Equal(t, 64000.5, q.Bid)
	assert.Equal(t, 64010.0, q.Ask)
}

func TestHTTPProvider_FlatArrayShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"symbol": "GBPUSD", "bid": 1.2650, "ask": 1.2653}]`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL)
	require.NoError(t, p.Refresh(context.Background()))

	_, ok := p.Quote("GBPUSD")
	assert.True(t, ok)
}

func TestHTTPProvider_FailureKeepsLastGoodQuotes(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"EURUSD": {"bid": 1.10, "ask": 1.1002}}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL)
	require.NoError(t, p.Refresh(context.Background()))

	fail.Store(true)
	err := p.Refresh(context.Background())
	require.Error(t, err)

	q, ok := p.Quote("EURUSD")
	assert.True(t, ok, "cache must keep serving the last good snapshot")
	assert.Equal(t, 1.10, q.Bid)
}

func TestHTTPProvider_NeverSynthesizesQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"EURUSD": {"bid": 1.10, "ask": 1.1002},
			"BROKEN": {"bid": 0, "ask": 1.0}
		}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL)
	require.NoError(t, p.Refresh(context.Background()))

	_, ok := p.Quote("BROKEN")
	assert.False(t, ok, "non-positive bid must not enter the cache")

	_, ok = p.Quote("NEVERQUOTED")
	assert.False(t, ok)
}

func TestHTTPProvider_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL)
	assert.Error(t, p.Refresh(context.Background()))
}
