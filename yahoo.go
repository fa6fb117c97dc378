package portsim

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/planwise/portsim/date"
	"github.com/rs/zerolog"
)

// This file implements the Yahoo Finance chart API as a MarketDataProvider.
// Yahoo quotes FX pairs under "BASETARGET=X", e.g. "USDJPY=X".

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// diskCache is a simple disk cache for HTTP responses with daily expiry:
// the cache key embeds today's date, so entries go stale at midnight.
type diskCache struct {
	base http.RoundTripper
}

func (c *diskCache) RoundTrip(req *http.Request) (*http.Response, error) {
	key := fmt.Sprintf("%s %s %s", date.Today(), req.Method, req.URL.String())
	key = fmt.Sprintf("portsim-%x", sha1.Sum([]byte(key)))

	if cached, err := c.get(key, req); err == nil {
		return cached, nil
	}

	resp, err := c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	if err := c.put(key, resp); err != nil {
		// A failed cache write only costs a refetch tomorrow.
		return resp, nil
	}
	// Re-read the dumped response so the body is still consumable.
	return c.get(key, req)
}

func (c *diskCache) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(filepath.Join(os.TempDir(), key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewBuffer(content)), req)
}

func (c *diskCache) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(os.TempDir(), key), content, 0644)
}

// jwget performs an HTTP GET and unmarshals the JSON response into data.
func jwget(client *http.Client, addr string, data any) error {
	resp, err := client.Get(addr)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v/%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return err
	}
	return json.Unmarshal(buf.Bytes(), data)
}

// YahooProvider fetches daily bars and exchange rates from the Yahoo
// Finance chart API.
type YahooProvider struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewYahooProvider returns a provider with a daily-expiring disk cache on
// its HTTP transport.
func NewYahooProvider(log zerolog.Logger) *YahooProvider {
	return &YahooProvider{
		baseURL: yahooChartURL,
		client:  &http.Client{Transport: &diskCache{http.DefaultTransport}, Timeout: 30 * time.Second},
		log:     log.With().Str("component", "yahoo").Logger(),
	}
}

// NewYahooProviderAt is like NewYahooProvider but targets a custom chart
// endpoint, without caching. For tests.
func NewYahooProviderAt(baseURL string, log zerolog.Logger) *YahooProvider {
	return &YahooProvider{baseURL: baseURL, client: new(http.Client), log: log}
}

// path extracts a jsonpath value from an already parsed JSON document,
// unwrapping the single-element list jsonpath sometimes returns.
func path(doc any, expr string) (any, error) {
	v, err := jsonpath.Get(expr, doc)
	if err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok && len(list) == 1 {
		v = list[0]
	}
	return v, nil
}

// chart fetches and parses one chart document: the daily bars and the quote
// currency for a symbol. A nil range requests the entire history.
func (y *YahooProvider) chart(symbol string, r *date.Range) (*date.History[Bar], string, error) {
	addr := y.baseURL + url.PathEscape(symbol) + "?interval=1d&events=history"
	if r == nil {
		addr += "&range=max"
	} else {
		// period2 is exclusive.
		period1 := time.Date(r.From.Year(), r.From.Month(), r.From.Day(), 0, 0, 0, 0, time.UTC).Unix()
		period2 := time.Date(r.To.Year(), r.To.Month(), r.To.Day()+1, 0, 0, 0, 0, time.UTC).Unix()
		addr += fmt.Sprintf("&period1=%d&period2=%d", period1, period2)
	}
	y.log.Debug().Str("symbol", symbol).Str("url", addr).Msg("fetching chart")

	var doc any
	if err := jwget(y.client, addr, &doc); err != nil {
		return nil, "", DataUnavailableError{Ticker: symbol, Err: err}
	}
	if desc, err := path(doc, "$.chart.error.description"); err == nil && desc != nil {
		return nil, "", DataUnavailableError{Ticker: symbol, Err: fmt.Errorf("%v", desc)}
	}

	currency := ""
	if v, err := path(doc, "$.chart.result[0].meta.currency"); err == nil {
		currency, _ = v.(string)
	}

	timestamps, err := jsonpath.Get("$.chart.result[0].timestamp", doc)
	if err != nil {
		return nil, "", DataUnavailableError{Ticker: symbol, Err: fmt.Errorf("no timestamps in chart response")}
	}
	stamps, ok := timestamps.([]any)
	if !ok || len(stamps) == 0 {
		return nil, "", DataUnavailableError{Ticker: symbol, Err: fmt.Errorf("empty chart response")}
	}

	quote := func(field string) []any {
		v, err := jsonpath.Get("$.chart.result[0].indicators.quote[0]."+field, doc)
		if err != nil {
			return nil
		}
		list, _ := v.([]any)
		return list
	}
	opens, highs, lows, closes, volumes := quote("open"), quote("high"), quote("low"), quote("close"), quote("volume")

	number := func(list []any, i int) (float64, bool) {
		if i >= len(list) {
			return 0, false
		}
		f, ok := list[i].(float64)
		return f, ok
	}

	bars := &date.History[Bar]{}
	for i, s := range stamps {
		ts, ok := s.(float64)
		if !ok {
			continue
		}
		c, ok := number(closes, i)
		if !ok {
			continue // null close, not a tradable day
		}
		var bar Bar
		bar.Close = c
		bar.Open, _ = number(opens, i)
		bar.High, _ = number(highs, i)
		bar.Low, _ = number(lows, i)
		if v, ok := number(volumes, i); ok {
			bar.Volume = int64(v)
		}
		bars.Append(date.FromTime(time.Unix(int64(ts), 0).UTC()), bar)
	}
	if bars.Len() == 0 {
		return nil, "", DataUnavailableError{Ticker: symbol, Err: fmt.Errorf("no rows in chart response")}
	}
	return bars, currency, nil
}

// PriceHistory implements MarketDataProvider.
func (y *YahooProvider) PriceHistory(ticker string, r *date.Range) (*date.History[Bar], string, error) {
	return y.chart(ticker, r)
}

// InceptionRange implements MarketDataProvider by fetching the entire
// history and reporting its span.
func (y *YahooProvider) InceptionRange(ticker string) (date.Range, error) {
	bars, _, err := y.chart(ticker, nil)
	if err != nil {
		return date.Range{}, err
	}
	return bars.Span(), nil
}

// ExchangeRate implements MarketDataProvider using Yahoo's "=X" FX symbols.
func (y *YahooProvider) ExchangeRate(base, target string, r date.Range) (*date.History[float64], error) {
	bars, _, err := y.chart(RatePair(base, target)+"=X", &r)
	if err != nil {
		return nil, err
	}
	rates := &date.History[float64]{}
	for on, bar := range bars.Values() {
		rates.Append(on, bar.Close)
	}
	return rates, nil
}

var _ MarketDataProvider = (*YahooProvider)(nil)
