package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ShrimpCast/internal/domain/models"
	domrepo "ShrimpCast/internal/domain/repository"
	pkgch "ShrimpCast/pkg/clickhouse"
	applogger "ShrimpCast/pkg/logger"
)

const historyColumns = "id, computed_at, request_hash, source, days, total_shrimp, price_per_kg, exchange_rate, currency, final_revenue, final_biomass_kg, parameters"

// CHHistory stores forecast runs in a ClickHouse MergeTree table.
type CHHistory struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHHistory(ch *pkgch.Client, table string) *CHHistory {
	return &CHHistory{
		ch:    ch,
		db:    ch.DB(),
		table: fmt.Sprintf("%s.%s", ch.Database(), table),
		l:     applogger.Nop(),
	}
}

// SetLogger injects a structured logger.
func (s *CHHistory) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

// Schema returns the DDL for the history table.
func Schema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            id               String,
            computed_at      DateTime64(3, 'UTC'),
            request_hash     String,
            source           LowCardinality(String),
            days             UInt16,
            total_shrimp     Float64,
            price_per_kg     Float64,
            exchange_rate    Float64,
            currency         LowCardinality(String),
            final_revenue    Float64,
            final_biomass_kg Float64,
            parameters       String
        )
        ENGINE = MergeTree
        PARTITION BY toYYYYMM(computed_at)
        ORDER BY (computed_at, id)
    `, table)}
}

func (s *CHHistory) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, Schema(s.table))
}

func (s *CHHistory) Store(ctx context.Context, run models.ForecastRun) error {
	return s.StoreBatch(ctx, []models.ForecastRun{run})
}

// StoreBatch inserts runs with multi-row VALUES, 500 rows per statement.
func (s *CHHistory) StoreBatch(ctx context.Context, runs []models.ForecastRun) error {
	const chunkSize = 500
	for start := 0; start < len(runs); start += chunkSize {
		end := min(start+chunkSize, len(runs))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*12)
		for _, r := range runs[start:end] {
			row, err := runArgs(r)
			if err != nil {
				return err
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, row...)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, historyColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse history insert error",
				applogger.String("table", s.table),
				applogger.Int("rows", end-start),
				applogger.Error(err),
			)
			return fmt.Errorf("insert forecast runs: %w", err)
		}
	}
	return nil
}

func runArgs(r models.ForecastRun) ([]interface{}, error) {
	params, err := json.Marshal(r.Parameters)
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	return []interface{}{
		r.ID,
		r.ComputedAt.UTC(),
		r.RequestHash,
		r.Source,
		uint16(r.Days),
		r.TotalShrimp,
		r.PricePerKg,
		r.ExchangeRate,
		r.Currency,
		r.FinalRevenue,
		r.FinalBiomassKg,
		string(params),
	}, nil
}

// Recent returns runs computed at or after since, newest first.
func (s *CHHistory) Recent(ctx context.Context, since time.Time, limit int) ([]models.ForecastRun, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT %s
        FROM %s
        WHERE computed_at >= ?
        ORDER BY computed_at DESC
        LIMIT ?
    `, historyColumns, s.table)
	rows, err := s.db.QueryContext(ctx, q, since.UTC(), limit)
	if err != nil {
		s.l.Error("clickhouse history query error", applogger.String("table", s.table), applogger.Error(err))
		return nil, fmt.Errorf("query forecast runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.ForecastRun, 0, limit)
	for rows.Next() {
		var (
			r      models.ForecastRun
			days   uint16
			params string
		)
		if err := rows.Scan(&r.ID, &r.ComputedAt, &r.RequestHash, &r.Source, &days,
			&r.TotalShrimp, &r.PricePerKg, &r.ExchangeRate, &r.Currency,
			&r.FinalRevenue, &r.FinalBiomassKg, &params); err != nil {
			return nil, fmt.Errorf("scan forecast run: %w", err)
		}
		r.Days = int(days)
		if err := json.Unmarshal([]byte(params), &r.Parameters); err != nil {
			return nil, fmt.Errorf("decode parameters of %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse history recent ok",
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHHistory) Health(ctx context.Context) error { return s.ch.Health(ctx) }

func (s *CHHistory) Close() error { return s.ch.Close() }

var _ domrepo.ForecastHistory = (*CHHistory)(nil)
