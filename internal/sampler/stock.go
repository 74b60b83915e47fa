package sampler

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"codeberg.org/mutker/metricshub/internal/logger"
)

const quoteRequestTimeout = 10 * time.Second

type StockSampler struct {
	baseURL string
	apiKey  string
	symbols []string
	limiter *rate.Limiter
	client  *http.Client
}

// NewStockSampler builds a quote-batch source for the configured symbols.
// delay paces consecutive provider requests to stay under its rate limit.
func NewStockSampler(baseURL, apiKey string, symbols []string, delay time.Duration) *StockSampler {
	if delay <= 0 {
		delay = time.Second
	}

	return &StockSampler{
		baseURL: baseURL,
		apiKey:  apiKey,
		symbols: symbols,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		client:  &http.Client{Timeout: quoteRequestTimeout},
	}
}

func (s *StockSampler) Name() string {
	return "stock"
}

// Collect fetches a quote per configured symbol. A symbol whose fetch
// fails or returns an unusable price is skipped; the batch is only absent
// when every symbol failed.
func (s *StockSampler) Collect(ctx context.Context) (any, bool) {
	quotes := make([]StockQuote, 0, len(s.symbols))

	for _, symbol := range s.symbols {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, false
		}

		quote, err := s.fetchQuote(ctx, symbol)
		if err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to fetch quote")
			continue
		}

		logger.Info().
			Str("symbol", quote.Symbol).
			Float64("price", quote.Price).
			Float64("change_percent", quote.ChangePercent).
			Msg("Fetched quote")

		quotes = append(quotes, quote)
	}

	if len(quotes) == 0 {
		return nil, false
	}

	return quotes, true
}

func (s *StockSampler) fetchQuote(ctx context.Context, symbol string) (StockQuote, error) {
	endpoint := fmt.Sprintf("%s/quote?symbol=%s&token=%s",
		s.baseURL, url.QueryEscape(symbol), url.QueryEscape(s.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return StockQuote{}, errFactory.Wrap(ErrQuoteFetch, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return StockQuote{}, errFactory.Wrap(ErrQuoteFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return StockQuote{}, errFactory.Wrap(ErrQuoteFetch, err)
	}

	if !gjson.ValidBytes(body) {
		return StockQuote{}, errFactory.WithData(ErrQuoteInvalid, string(body))
	}

	data := gjson.ParseBytes(body)
	current := data.Get("c").Float()
	if current <= 0 {
		return StockQuote{}, errFactory.WithData(ErrQuoteInvalid, data.Raw)
	}

	previousClose := data.Get("pc").Float()
	changePercent := 0.0
	if previousClose > 0 {
		changePercent = (current - previousClose) / previousClose * 100
	}

	return StockQuote{
		Symbol:        symbol,
		Price:         current,
		ChangePercent: math.Round(changePercent*100) / 100,
		Timestamp:     time.Now().Format(timeLayout),
	}, nil
}
