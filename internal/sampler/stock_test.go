package sampler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuoteServer(t *testing.T, quotes map[string]string) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quote", r.URL.Path)
		symbol := r.URL.Query().Get("symbol")
		body, ok := quotes[symbol]
		if !ok {
			http.Error(w, `{"error": "unknown symbol"}`, http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)

	return ts
}

func TestStockSamplerComputesChangePercent(t *testing.T) {
	ts := newQuoteServer(t, map[string]string{
		"AAPL": `{"c": 150.0, "pc": 100.0}`,
	})

	s := NewStockSampler(ts.URL, "token", []string{"AAPL"}, time.Millisecond)
	payload, ok := s.Collect(context.Background())
	require.True(t, ok)

	quotes, isBatch := payload.([]StockQuote)
	require.True(t, isBatch)
	require.Len(t, quotes, 1)
	assert.Equal(t, "AAPL", quotes[0].Symbol)
	assert.InDelta(t, 150.0, quotes[0].Price, 0.001)
	assert.InDelta(t, 50.0, quotes[0].ChangePercent, 0.001)
	assert.NotEmpty(t, quotes[0].Timestamp)
}

func TestStockSamplerZeroPreviousClose(t *testing.T) {
	ts := newQuoteServer(t, map[string]string{
		"NEWIPO": `{"c": 25.0, "pc": 0}`,
	})

	s := NewStockSampler(ts.URL, "token", []string{"NEWIPO"}, time.Millisecond)
	payload, ok := s.Collect(context.Background())
	require.True(t, ok)

	quotes := payload.([]StockQuote)
	require.Len(t, quotes, 1)
	assert.Zero(t, quotes[0].ChangePercent)
}

func TestStockSamplerRoundsChangePercent(t *testing.T) {
	ts := newQuoteServer(t, map[string]string{
		"AAPL": `{"c": 100.333, "pc": 100.0}`,
	})

	s := NewStockSampler(ts.URL, "token", []string{"AAPL"}, time.Millisecond)
	payload, ok := s.Collect(context.Background())
	require.True(t, ok)

	quotes := payload.([]StockQuote)
	assert.InDelta(t, 0.33, quotes[0].ChangePercent, 0.0001)
}

func TestStockSamplerSkipsFailedSymbols(t *testing.T) {
	ts := newQuoteServer(t, map[string]string{
		"GOOD":    `{"c": 10.0, "pc": 8.0}`,
		"NOPRICE": `{"c": 0, "pc": 0}`,
	})

	s := NewStockSampler(ts.URL, "token", []string{"GOOD", "NOPRICE", "MISSING"}, time.Millisecond)
	payload, ok := s.Collect(context.Background())
	require.True(t, ok, "partial failure keeps the batch")

	quotes := payload.([]StockQuote)
	require.Len(t, quotes, 1)
	assert.Equal(t, "GOOD", quotes[0].Symbol)
}

func TestStockSamplerAllSymbolsFailed(t *testing.T) {
	ts := newQuoteServer(t, map[string]string{})

	s := NewStockSampler(ts.URL, "token", []string{"A", "B"}, time.Millisecond)
	payload, ok := s.Collect(context.Background())
	assert.False(t, ok)
	assert.Nil(t, payload)
}

func TestStockSamplerProviderUnreachable(t *testing.T) {
	s := NewStockSampler("http://127.0.0.1:1", "token", []string{"AAPL"}, time.Millisecond)
	_, ok := s.Collect(context.Background())
	assert.False(t, ok)
}

func TestStockSamplerInvalidResponseBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>rate limited</html>")
	}))
	defer ts.Close()

	s := NewStockSampler(ts.URL, "token", []string{"AAPL"}, time.Millisecond)
	_, ok := s.Collect(context.Background())
	assert.False(t, ok)
}
