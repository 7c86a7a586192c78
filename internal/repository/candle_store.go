package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"AnchorFolio/internal/domain/models"
	domrepo "AnchorFolio/internal/domain/repository"
	pkgch "AnchorFolio/pkg/clickhouse"
	applogger "AnchorFolio/pkg/logger"
	xutil "AnchorFolio/pkg/util"
)

// CandleStore implements PriceHistory and CandleWriter backed by ClickHouse.
type CandleStore struct {
	db *sql.DB
	l  *applogger.Logger
}

var (
	_ domrepo.PriceHistory = (*CandleStore)(nil)
	_ domrepo.CandleWriter = (*CandleStore)(nil)
)

func NewCandleStore(ch *pkgch.Client) *CandleStore {
	return &CandleStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CandleStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	start := time.Now()
	table, err := tableForTF(tf)
	if err != nil {
		return nil, err
	}
	const qtpl = `
        SELECT bucket, symbol, open, high, low, close, vol
        FROM %s
        WHERE symbol = ? AND bucket >= ? AND bucket <= ?
        ORDER BY bucket ASC
    `
	from, to = xutil.AlignFromTo(from, to, string(tf))
	q := fmt.Sprintf(qtpl, table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		s.logError("candles query error", table, symbol, tf, err)
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 1024)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.logError("candles scan error", table, symbol, tf, err)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.logError("candles rows error", table, symbol, tf, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("candles read",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	table, err := tableForTF(tf)
	if err != nil {
		return nil, err
	}
	const qtpl = `
        SELECT bucket, symbol, open, high, low, close, vol
        FROM %s
        WHERE symbol = ?
        ORDER BY bucket DESC
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, table)
	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		s.logError("latest candles query error", table, symbol, tf, err)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Candle, 0, n)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.logError("latest candles scan error", table, symbol, tf, err)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		tmp = append(tmp, c)
	}
	if err := rows.Err(); err != nil {
		s.logError("latest candles rows error", table, symbol, tf, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	return tmp, nil
}

// StoreBatch inserts candles in chunks, routed per-timeframe by bucket
// spacing being the caller's concern; everything lands in the default table.
func (s *CandleStore) StoreBatch(ctx context.Context, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	table, err := tableForTF(domrepo.DefaultTimeframe())
	if err != nil {
		return err
	}
	const chunkSize = 2000
	for start := 0; start < len(candles); start += chunkSize {
		end := start + chunkSize
		if end > len(candles) {
			end = len(candles)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, c := range candles[start:end] {
			if c.Symbol == "" || c.Bucket.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, c.Bucket, c.Symbol, c.Open, c.High, c.Low, c.Close, c.Volume)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (bucket, symbol, open, high, low, close, vol) VALUES %s",
			table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store candles: %w", err)
		}
	}
	return nil
}

func (s *CandleStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CandleStore) Close() error {
	return nil // pool is owned by the clickhouse client
}

func (s *CandleStore) logError(msg, table, symbol string, tf domrepo.Timeframe, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", table),
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Error(err),
	)
}

func tableForTF(tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1h:
		return "anchorfolio.candles_1h", nil
	case domrepo.TF1d:
		return "anchorfolio.candles_1d", nil
	case domrepo.TF1w:
		return "anchorfolio.candles_1w", nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
}

// Schema returns the idempotent DDL for the candle tables.
func Schema() []string {
	tables := []string{"candles_1h", "candles_1d", "candles_1w"}
	stmts := []string{"CREATE DATABASE IF NOT EXISTS anchorfolio"}
	for _, t := range tables {
		stmts = append(stmts, fmt.Sprintf(`
            CREATE TABLE IF NOT EXISTS anchorfolio.%s (
                bucket DateTime,
                symbol LowCardinality(String),
                open   Float64,
                high   Float64,
                low    Float64,
                close  Float64,
                vol    Float64
            )
            ENGINE = ReplacingMergeTree
            PARTITION BY toYYYYMM(bucket)
            ORDER BY (symbol, bucket)
        `, t))
	}
	return stmts
}
