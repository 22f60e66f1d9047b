// Package postgres loads the question catalogue from Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-quiz-service/internal/catalogue"
)

// CatalogueLoader reads question records stored as JSONB rows.
type CatalogueLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogueLoader(pool *pgxpool.Pool) *CatalogueLoader {
	return &CatalogueLoader{pool: pool}
}

func (l *CatalogueLoader) LoadAll(ctx context.Context) ([]catalogue.Record, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM questions ORDER BY vnum`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var records []catalogue.Record
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var record catalogue.Record
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return records, nil
}
