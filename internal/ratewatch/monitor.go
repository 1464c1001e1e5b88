// Package ratewatch cross-checks the compiled-in VAT rate table against a
// public rate feed. The table is authoritative and only changes by redeploy,
// so the monitor never mutates it; it reports divergences so operators know
// a new build with updated table entries is due.
package ratewatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vatworks/api/internal/config"
	"github.com/vatworks/api/internal/vat"
)

var hundred = decimal.NewFromInt(100)

// Divergence is one country whose feed rate disagrees with the table.
type Divergence struct {
	Country   vat.CountryCode
	TableRate decimal.Decimal
	FeedRate  decimal.Decimal
}

// CheckResult is the outcome of one monitor run.
type CheckResult struct {
	CountriesChecked int
	Divergences      []Divergence
	RanAt            time.Time
}

// Monitor fetches the external feed and compares standard rates against the
// engine's table as of the run date. Results are optionally persisted.
type Monitor struct {
	pool   *pgxpool.Pool // nil disables persistence
	cfg    config.RateWatchConfig
	logger *slog.Logger
	client *http.Client
}

// NewMonitor creates a rate-table drift monitor. pool may be nil.
func NewMonitor(pool *pgxpool.Pool, cfg config.RateWatchConfig, logger *slog.Logger) *Monitor {
	return &Monitor{
		pool:   pool,
		cfg:    cfg,
		logger: logger,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Check runs one comparison pass: fetch the feed, diff the standard rates,
// persist a snapshot, and log every divergence.
func (m *Monitor) Check(ctx context.Context) (CheckResult, error) {
	now := time.Now().UTC()

	feedRates, err := m.fetchFeed(ctx)
	if err != nil {
		return CheckResult{}, fmt.Errorf("fetching rate feed: %w", err)
	}

	result := CheckResult{RanAt: now}

	for country, feedRate := range feedRates {
		tableRate, err := vat.StandardRateOn(country, now)
		if err != nil {
			// Feed covers countries outside our 30-jurisdiction set.
			continue
		}
		result.CountriesChecked++

		if !tableRate.Equal(feedRate) {
			result.Divergences = append(result.Divergences, Divergence{
				Country:   country,
				TableRate: tableRate,
				FeedRate:  feedRate,
			})
		}
	}

	for _, div := range result.Divergences {
		m.logger.Warn("rate table diverges from feed, redeploy with updated table",
			"country", string(div.Country),
			"table_rate", div.TableRate.String(),
			"feed_rate", div.FeedRate.String(),
		)
	}
	m.logger.Info("rate table check complete",
		"countries_checked", result.CountriesChecked,
		"divergences", len(result.Divergences),
	)

	if err := m.saveResult(ctx, result); err != nil {
		m.logger.Warn("failed to persist rate check snapshot", "error", err)
	}

	return result, nil
}

// feedResponse mirrors the euvatrates.com JSON shape. The feed publishes
// percentages; the monitor converts them to the engine's fraction convention.
type feedResponse struct {
	Rates map[string]struct {
		Country      string  `json:"country"`
		StandardRate float64 `json:"standard_rate"`
	} `json:"rates"`
}

func (m *Monitor) fetchFeed(ctx context.Context) (map[vat.CountryCode]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "vatworks/1.0 (rate table check)")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading feed body: %w", err)
	}

	var data feedResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("parsing feed JSON: %w", err)
	}
	if len(data.Rates) == 0 {
		return nil, fmt.Errorf("feed returned no rates")
	}

	rates := make(map[vat.CountryCode]decimal.Decimal, len(data.Rates))
	for code, entry := range data.Rates {
		if len(code) != 2 || entry.StandardRate <= 0 {
			continue
		}
		rates[vat.CountryCode(code)] = decimal.NewFromFloat(entry.StandardRate).Div(hundred)
	}

	if len(rates) == 0 {
		return nil, fmt.Errorf("no usable rates in feed")
	}

	return rates, nil
}

// saveResult writes a run row plus one finding row per divergence.
// A nil pool makes this a no-op.
func (m *Monitor) saveResult(ctx context.Context, result CheckResult) error {
	if m.pool == nil {
		return nil
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	runID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO rate_check_runs (id, feed_url, countries_checked, divergences, ran_at)
		VALUES ($1, $2, $3, $4, $5)
	`, runID, m.cfg.FeedURL, result.CountriesChecked, len(result.Divergences), result.RanAt)
	if err != nil {
		return fmt.Errorf("inserting rate_check_runs row: %w", err)
	}

	for _, div := range result.Divergences {
		_, err = tx.Exec(ctx, `
			INSERT INTO rate_check_findings (id, run_id, country_code, table_rate, feed_rate)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New(), runID, string(div.Country), div.TableRate, div.FeedRate)
		if err != nil {
			return fmt.Errorf("inserting finding for %s: %w", div.Country, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing rate check snapshot: %w", err)
	}

	return nil
}
