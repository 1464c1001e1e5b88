// Package audit persists a log of VAT calculations served by the API so
// operators can reconstruct what the engine returned for any past request.
// The engine itself stays pure; handlers call the audit service after the
// calculation succeeds, and a write failure never fails the request.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vatworks/api/internal/vat"
)

// Direction says which way a calculation ran.
const (
	DirectionNetFromGross = "net_from_gross"
	DirectionVATFromNet   = "vat_from_net"
)

// Record is one audited calculation.
type Record struct {
	ID              uuid.UUID
	Direction       string
	Country         vat.CountryCode // empty when the caller supplied an explicit rate
	VATRate         decimal.Decimal
	InputPrice      decimal.Decimal
	NetPrice        decimal.Decimal
	VATAmount       decimal.Decimal
	GrossPrice      decimal.Decimal
	AsOf            *time.Time
	RuleDescription string
	CreatedAt       time.Time
}

// Service writes calculation records to PostgreSQL. A nil pool disables the
// service: every method becomes a no-op, so handlers never need to care
// whether a database is configured.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates an audit service. pool may be nil to disable persistence.
func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{pool: pool, logger: logger}
}

// Enabled reports whether records are actually persisted.
func (s *Service) Enabled() bool {
	return s.pool != nil
}

// RecordCalculation inserts one calculation record. The ID and CreatedAt
// fields are filled in here if unset.
func (s *Service) RecordCalculation(ctx context.Context, rec Record) error {
	if s.pool == nil {
		return nil
	}

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var country *string
	if rec.Country != "" {
		c := string(rec.Country)
		country = &c
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO vat_calculations
			(id, direction, country_code, vat_rate, input_price, net_price,
			 vat_amount, gross_price, as_of_date, rule_description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rec.ID, rec.Direction, country, rec.VATRate, rec.InputPrice, rec.NetPrice,
		rec.VATAmount, rec.GrossPrice, rec.AsOf, nilIfEmpty(rec.RuleDescription), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting vat_calculations row: %w", err)
	}

	return nil
}

// RecentCalculations returns the most recent records, newest first.
func (s *Service) RecentCalculations(ctx context.Context, limit int) ([]Record, error) {
	if s.pool == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, direction, country_code, vat_rate, input_price, net_price,
		       vat_amount, gross_price, as_of_date, rule_description, created_at
		FROM vat_calculations
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying vat_calculations: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var country, ruleDesc *string
		if err := rows.Scan(
			&rec.ID, &rec.Direction, &country, &rec.VATRate, &rec.InputPrice,
			&rec.NetPrice, &rec.VATAmount, &rec.GrossPrice, &rec.AsOf, &ruleDesc, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning vat_calculations row: %w", err)
		}
		if country != nil {
			rec.Country = vat.CountryCode(*country)
		}
		if ruleDesc != nil {
			rec.RuleDescription = *ruleDesc
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vat_calculations rows: %w", err)
	}

	return records, nil
}

// RecordAsync persists a record on a background goroutine with its own
// timeout, logging failures instead of surfacing them. Handlers use this so
// audit writes never block or fail a response.
func (s *Service) RecordAsync(rec Record) {
	if s.pool == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.RecordCalculation(ctx, rec); err != nil {
			s.logger.Warn("failed to write calculation audit record",
				"direction", rec.Direction,
				"country", string(rec.Country),
				"error", err,
			)
		}
	}()
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
