package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const BatchRunsSchema = `
	CREATE TABLE IF NOT EXISTS batch_runs (
		id VARCHAR PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		host VARCHAR NOT NULL,
		profile VARCHAR,
		success BOOLEAN NOT NULL,
		total_rows INTEGER NOT NULL,
		error VARCHAR NULL
	);
`
const RequestRunsSchema = `
	CREATE TABLE IF NOT EXISTS request_runs (
		run_id VARCHAR NOT NULL,
		seq INTEGER NOT NULL,
		owner_id VARCHAR NOT NULL,
		owner_label VARCHAR,
		file_name VARCHAR NOT NULL,
		start_date DATE,
		end_date DATE,
		success BOOLEAN NOT NULL,
		days INTEGER NOT NULL,
		successful_days INTEGER NOT NULL,
		total_rows INTEGER NOT NULL,
		bytes BIGINT NOT NULL,
		artifact_name VARCHAR,
		artifact_location VARCHAR NULL,
		error VARCHAR NULL,
		PRIMARY KEY (run_id, seq)
	);
`
const DayOutcomesSchema = `
	CREATE TABLE IF NOT EXISTS day_outcomes (
		run_id VARCHAR NOT NULL,
		seq INTEGER NOT NULL,
		day_key VARCHAR NOT NULL,
		attempted_path VARCHAR NOT NULL,
		success BOOLEAN NOT NULL,
		listed_size BIGINT NULL,
		byte_size BIGINT NOT NULL,
		size_mismatch BOOLEAN NOT NULL,
		rows_added INTEGER NOT NULL,
		error_kind VARCHAR NULL,
		detail VARCHAR NULL,
		PRIMARY KEY (run_id, seq, day_key)
	);
`

var bootQueries = []string{
	BatchRunsSchema,
	RequestRunsSchema,
	DayOutcomesSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return fmt.Errorf("bootstrap schema: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sql.OpenDB(c), nil
}
