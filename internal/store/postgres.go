// Package store fetches registry records from Postgres and caches them.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"sigmine-dashboard/internal/types"
)

// Source supplies a full record table. Callers must not modify the returned
// slice.
type Source interface {
	Records(ctx context.Context) ([]types.Record, error)
}

// RecordsQuery joins each process with its phase/state rows. A process listed
// under several states yields one row per state.
const RecordsQuery = `
	SELECT p.numero, p.ano, p.nome, f.fase, f.uf, p.area_ha,
	       p.arrecadado, p.ultima_arrecadacao, f.dia, f.mes
	FROM processos p
	JOIN fases f ON f.numero = p.numero AND f.ano = p.ano
	ORDER BY p.ano, p.numero, f.uf, f.fase`

// Postgres reads records with a pgx pool.
type Postgres struct {
	Pool  *pgxpool.Pool
	Query string
}

// OpenPostgres connects and pings the database.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{Pool: pool, Query: RecordsQuery}, nil
}

func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

// processRow mirrors one line of RecordsQuery.
type processRow struct {
	Number, Year   pgtype.Text
	Company        pgtype.Text
	Phase, State   pgtype.Text
	AreaHa         pgtype.Float8
	Amount         pgtype.Float8
	LastCollection pgtype.Date
	Day, Month     pgtype.Int4
}

func (p *Postgres) Records(ctx context.Context) ([]types.Record, error) {
	q := p.Query
	if q == "" {
		q = RecordsQuery
	}
	rows, err := p.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []types.Record
	for rows.Next() {
		var r processRow
		if err := rows.Scan(
			&r.Number, &r.Year, &r.Company, &r.Phase, &r.State, &r.AreaHa,
			&r.Amount, &r.LastCollection, &r.Day, &r.Month,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r.record())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (r processRow) record() types.Record {
	phase := types.Phase(strings.ToUpper(strings.TrimSpace(r.Phase.String)))
	rec := types.Record{
		ID:              types.ProcessID(r.Number.String, r.Year.String),
		Company:         strings.TrimSpace(r.Company.String),
		Phase:           phase,
		State:           types.State(strings.ToUpper(strings.TrimSpace(r.State.String))),
		AreaHa:          nullableFloat64(r.AreaHa),
		AmountCollected: nullableFloat64(r.Amount),
		Titleholder:     types.IsTitleholderPhase(phase),
	}
	if r.LastCollection.Valid {
		rec.LastCollection = r.LastCollection.Time
	}
	if r.Day.Valid && r.Month.Valid {
		var year int
		if _, err := fmt.Sscanf(strings.TrimSpace(r.Year.String), "%d", &year); err == nil {
			d := time.Date(year, time.Month(r.Month.Int32), int(r.Day.Int32), 0, 0, 0, 0, time.UTC)
			if d.Day() == int(r.Day.Int32) && d.Month() == time.Month(r.Month.Int32) {
				rec.Date = d
			}
		}
	}
	return rec
}

// nullableFloat64 extracts a float64 from a pgtype.Float8, returning 0 if not valid.
func nullableFloat64(v pgtype.Float8) float64 {
	if v.Valid {
		return v.Float64
	}
	return 0
}

// permanent reports errors a retry cannot fix: SQL errors other than
// connection and resource classes.
func permanent(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || len(pgErr.Code) < 2 {
		return false
	}
	switch pgErr.Code[:2] {
	case "08", "53", "57": // connection, insufficient resources, operator intervention
		return false
	}
	return true
}
