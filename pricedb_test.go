package portsim

import (
	"path/filepath"
	"testing"

	"github.com/planwise/portsim/date"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider counts upstream calls so tests can assert cache hits.
type countingProvider struct {
	MarketDataProvider
	priceCalls     int
	inceptionCalls int
	rateCalls      int
}

func (c *countingProvider) PriceHistory(ticker string, r *date.Range) (*date.History[Bar], string, error) {
	c.priceCalls++
	return c.MarketDataProvider.PriceHistory(ticker, r)
}

func (c *countingProvider) InceptionRange(ticker string) (date.Range, error) {
	c.inceptionCalls++
	return c.MarketDataProvider.InceptionRange(ticker)
}

func (c *countingProvider) ExchangeRate(base, target string, r date.Range) (*date.History[float64], error) {
	c.rateCalls++
	return c.MarketDataProvider.ExchangeRate(base, target, r)
}

func newTestCache(t *testing.T) (*CachedProvider, *countingProvider) {
	t.Helper()
	static := NewStaticProvider()
	static.AddClosePrices("AAPL", "USD", histF(map[string]float64{
		"2024-01-01": 100,
		"2024-01-02": 101,
		"2024-01-03": 102,
	}))
	static.AddRate("USDJPY", histF(map[string]float64{
		"2024-01-01": 140,
		"2024-01-03": 141,
	}))

	counting := &countingProvider{MarketDataProvider: static}
	cache, err := OpenCache(filepath.Join(t.TempDir(), "prices.db"), counting, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache, counting
}

func TestCachedProviderPriceHistory(t *testing.T) {
	cache, counting := newTestCache(t)
	r := date.NewRange(date.MustParse("2024-01-01"), date.MustParse("2024-01-03"))

	bars, currency, err := cache.PriceHistory("AAPL", &r)
	require.NoError(t, err)
	assert.Equal(t, "USD", currency)
	assert.Equal(t, 3, bars.Len())
	assert.Equal(t, 1, counting.priceCalls)

	// Second covered request is served from SQLite.
	bars, currency, err = cache.PriceHistory("AAPL", &r)
	require.NoError(t, err)
	assert.Equal(t, "USD", currency)
	assert.Equal(t, 3, bars.Len())
	assert.Equal(t, 1, counting.priceCalls)

	bar, ok := bars.Get(date.MustParse("2024-01-02"))
	require.True(t, ok)
	assert.Equal(t, 101.0, bar.Close)
}

func TestCachedProviderNarrowedRangeIsCovered(t *testing.T) {
	cache, counting := newTestCache(t)
	full := date.NewRange(date.MustParse("2024-01-01"), date.MustParse("2024-01-03"))

	_, _, err := cache.PriceHistory("AAPL", &full)
	require.NoError(t, err)

	// Reconciliation narrows the range; the narrowed span stays covered.
	narrow := date.NewRange(date.MustParse("2024-01-02"), date.MustParse("2024-01-03"))
	bars, _, err := cache.PriceHistory("AAPL", &narrow)
	require.NoError(t, err)
	assert.Equal(t, 2, bars.Len())
	assert.Equal(t, 1, counting.priceCalls)
}

func TestCachedProviderFullHistoryBypassesCoverage(t *testing.T) {
	cache, counting := newTestCache(t)

	// A nil range has no coverage check and always goes upstream.
	for i := 0; i < 2; i++ {
		bars, _, err := cache.PriceHistory("AAPL", nil)
		require.NoError(t, err)
		assert.Equal(t, 3, bars.Len())
	}
	assert.Equal(t, 2, counting.priceCalls)
}

func TestCachedProviderInceptionRange(t *testing.T) {
	cache, counting := newTestCache(t)
	want := date.NewRange(date.MustParse("2024-01-01"), date.MustParse("2024-01-03"))

	for i := 0; i < 2; i++ {
		r, err := cache.InceptionRange("AAPL")
		require.NoError(t, err)
		assert.Equal(t, want, r)
	}
	assert.Equal(t, 1, counting.inceptionCalls)
}

func TestCachedProviderExchangeRate(t *testing.T) {
	cache, counting := newTestCache(t)
	r := date.NewRange(date.MustParse("2024-01-01"), date.MustParse("2024-01-03"))

	for i := 0; i < 2; i++ {
		rates, err := cache.ExchangeRate("USD", "JPY", r)
		require.NoError(t, err)
		assert.Equal(t, 2, rates.Len())
	}
	assert.Equal(t, 1, counting.rateCalls)

	rates, err := cache.ExchangeRate("USD", "JPY", r)
	require.NoError(t, err)
	rate, ok := rates.Get(date.MustParse("2024-01-03"))
	require.True(t, ok)
	assert.Equal(t, 141.0, rate)
}

func TestCachedProviderUnknownTicker(t *testing.T) {
	cache, _ := newTestCache(t)

	_, _, err := cache.PriceHistory("NOPE", nil)
	var unavailable DataUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}
