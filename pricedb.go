package portsim

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/planwise/portsim/date"
	"github.com/rs/zerolog"
)

// CachedProvider wraps a MarketDataProvider with a SQLite price database.
//
// Reconciliation refetches every asset once per round over a narrowing
// range; the cache serves any request covered by the span of the last
// upstream fetch, so a whole reconciliation costs one network fetch per
// asset in the common case.
type CachedProvider struct {
	source MarketDataProvider
	db     *sql.DB
	log    zerolog.Logger
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS bars (
	ticker TEXT NOT NULL,
	day    TEXT NOT NULL,
	open   REAL NOT NULL,
	high   REAL NOT NULL,
	low    REAL NOT NULL,
	close  REAL NOT NULL,
	volume INTEGER NOT NULL,
	PRIMARY KEY (ticker, day)
);
CREATE TABLE IF NOT EXISTS series (
	ticker         TEXT PRIMARY KEY,
	currency       TEXT NOT NULL,
	span_from      TEXT NOT NULL,
	span_to        TEXT NOT NULL,
	inception_from TEXT,
	inception_to   TEXT
);
CREATE TABLE IF NOT EXISTS rates (
	pair TEXT NOT NULL,
	day  TEXT NOT NULL,
	rate REAL NOT NULL,
	PRIMARY KEY (pair, day)
);
CREATE TABLE IF NOT EXISTS rate_series (
	pair      TEXT PRIMARY KEY,
	span_from TEXT NOT NULL,
	span_to   TEXT NOT NULL
);`

// OpenCache opens (creating if needed) the price database at path and
// returns a provider that serves from it, falling back to source.
func OpenCache(path string, source MarketDataProvider, log zerolog.Logger) (*CachedProvider, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("cannot open price cache %q: %w", path, err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot migrate price cache %q: %w", path, err)
	}
	return &CachedProvider{
		source: source,
		db:     db,
		log:    log.With().Str("component", "pricedb").Logger(),
	}, nil
}

// Close closes the underlying database.
func (c *CachedProvider) Close() error { return c.db.Close() }

// covered reports whether the cached span for ticker covers r.
func (c *CachedProvider) covered(ticker string, r date.Range) (bool, string) {
	var currency, from, to string
	err := c.db.QueryRow(`SELECT currency, span_from, span_to FROM series WHERE ticker = ?`, ticker).
		Scan(&currency, &from, &to)
	if err != nil {
		return false, ""
	}
	span := date.NewRange(date.MustParse(from), date.MustParse(to))
	return !r.From.Before(span.From) && !r.To.After(span.To), currency
}

// readBars returns the cached bars for ticker within r.
func (c *CachedProvider) readBars(ticker string, r date.Range) (*date.History[Bar], error) {
	rows, err := c.db.Query(`
		SELECT day, open, high, low, close, volume
		FROM bars
		WHERE ticker = ? AND day BETWEEN ? AND ?
		ORDER BY day`, ticker, r.From.String(), r.To.String())
	if err != nil {
		return nil, fmt.Errorf("cannot query bars for %q: %w", ticker, err)
	}
	defer rows.Close()

	bars := &date.History[Bar]{}
	for rows.Next() {
		var day string
		var b Bar
		if err := rows.Scan(&day, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("cannot scan bar for %q: %w", ticker, err)
		}
		on, err := date.Parse(day)
		if err != nil {
			return nil, fmt.Errorf("corrupt day in cache for %q: %w", ticker, err)
		}
		bars.Append(on, b)
	}
	return bars, rows.Err()
}

// storeBars replaces the cached rows within the fetched span and records
// that span as the current coverage.
func (c *CachedProvider) storeBars(ticker, currency string, bars *date.History[Bar]) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	span := bars.Span()
	if _, err := tx.Exec(`DELETE FROM bars WHERE ticker = ? AND day BETWEEN ? AND ?`,
		ticker, span.From.String(), span.To.String()); err != nil {
		return err
	}
	for on, b := range bars.Values() {
		if _, err := tx.Exec(`
			INSERT INTO bars (ticker, day, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ticker, on.String(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`
		INSERT INTO series (ticker, currency, span_from, span_to)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (ticker) DO UPDATE SET
			currency = excluded.currency,
			span_from = excluded.span_from,
			span_to = excluded.span_to`,
		ticker, currency, span.From.String(), span.To.String()); err != nil {
		return err
	}
	return tx.Commit()
}

// PriceHistory implements MarketDataProvider, serving covered ranges from
// the cache and everything else from the source.
func (c *CachedProvider) PriceHistory(ticker string, r *date.Range) (*date.History[Bar], string, error) {
	if r != nil {
		if ok, currency := c.covered(ticker, *r); ok {
			bars, err := c.readBars(ticker, *r)
			if err == nil && bars.Len() > 0 {
				c.log.Debug().Str("ticker", ticker).Stringer("range", *r).Msg("cache hit")
				return bars, currency, nil
			}
			if err == nil {
				return nil, "", DataUnavailableError{Ticker: ticker, Err: fmt.Errorf("no rows in %s", *r)}
			}
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("cache read failed, refetching")
		}
	}
	bars, currency, err := c.source.PriceHistory(ticker, r)
	if err != nil {
		return nil, "", err
	}
	if err := c.storeBars(ticker, currency, bars); err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("cache write failed")
	}
	return bars, currency, nil
}

// InceptionRange implements MarketDataProvider.
func (c *CachedProvider) InceptionRange(ticker string) (date.Range, error) {
	var from, to sql.NullString
	err := c.db.QueryRow(`SELECT inception_from, inception_to FROM series WHERE ticker = ?`, ticker).
		Scan(&from, &to)
	if err == nil && from.Valid && to.Valid {
		return date.NewRange(date.MustParse(from.String), date.MustParse(to.String)), nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return date.Range{}, fmt.Errorf("cannot query inception for %q: %w", ticker, err)
	}

	r, err := c.source.InceptionRange(ticker)
	if err != nil {
		return date.Range{}, err
	}
	if _, err := c.db.Exec(`
		INSERT INTO series (ticker, currency, span_from, span_to, inception_from, inception_to)
		VALUES (?, '', ?, ?, ?, ?)
		ON CONFLICT (ticker) DO UPDATE SET
			inception_from = excluded.inception_from,
			inception_to = excluded.inception_to`,
		ticker, r.From.String(), r.To.String(), r.From.String(), r.To.String()); err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("cache write failed")
	}
	return r, nil
}

// ExchangeRate implements MarketDataProvider.
func (c *CachedProvider) ExchangeRate(base, target string, r date.Range) (*date.History[float64], error) {
	pair := RatePair(base, target)

	var from, to string
	err := c.db.QueryRow(`SELECT span_from, span_to FROM rate_series WHERE pair = ?`, pair).Scan(&from, &to)
	if err == nil {
		span := date.NewRange(date.MustParse(from), date.MustParse(to))
		if !r.From.Before(span.From) && !r.To.After(span.To) {
			rates, err := c.readRates(pair, r)
			if err == nil && rates.Len() > 0 {
				return rates, nil
			}
		}
	}

	rates, err := c.source.ExchangeRate(base, target, r)
	if err != nil {
		return nil, err
	}
	if err := c.storeRates(pair, rates); err != nil {
		c.log.Warn().Err(err).Str("pair", pair).Msg("cache write failed")
	}
	return rates, nil
}

func (c *CachedProvider) readRates(pair string, r date.Range) (*date.History[float64], error) {
	rows, err := c.db.Query(`
		SELECT day, rate FROM rates
		WHERE pair = ? AND day BETWEEN ? AND ?
		ORDER BY day`, pair, r.From.String(), r.To.String())
	if err != nil {
		return nil, fmt.Errorf("cannot query rates for %q: %w", pair, err)
	}
	defer rows.Close()

	rates := &date.History[float64]{}
	for rows.Next() {
		var day string
		var rate float64
		if err := rows.Scan(&day, &rate); err != nil {
			return nil, fmt.Errorf("cannot scan rate for %q: %w", pair, err)
		}
		on, err := date.Parse(day)
		if err != nil {
			return nil, fmt.Errorf("corrupt day in cache for %q: %w", pair, err)
		}
		rates.Append(on, rate)
	}
	return rates, rows.Err()
}

func (c *CachedProvider) storeRates(pair string, rates *date.History[float64]) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	span := rates.Span()
	if _, err := tx.Exec(`DELETE FROM rates WHERE pair = ? AND day BETWEEN ? AND ?`,
		pair, span.From.String(), span.To.String()); err != nil {
		return err
	}
	for on, rate := range rates.Values() {
		if _, err := tx.Exec(`INSERT INTO rates (pair, day, rate) VALUES (?, ?, ?)`,
			pair, on.String(), rate); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`
		INSERT INTO rate_series (pair, span_from, span_to)
		VALUES (?, ?, ?)
		ON CONFLICT (pair) DO UPDATE SET
			span_from = excluded.span_from,
			span_to = excluded.span_to`,
		pair, span.From.String(), span.To.String()); err != nil {
		return err
	}
	return tx.Commit()
}

var _ MarketDataProvider = (*CachedProvider)(nil)
