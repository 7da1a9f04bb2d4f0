package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/de-tools/export-consolidator/pkg/models/store"
	"github.com/de-tools/export-consolidator/pkg/store/duckdb"
	"github.com/google/uuid"
)

// Store is the audit ledger of batch runs.
type Store interface {
	// Record writes the run with all its requests and day outcomes atomically.
	// An empty run ID is replaced by a new one, which is returned.
	Record(ctx context.Context, run *store.BatchRun) (string, error)
	List(ctx context.Context, limit int) ([]store.BatchRun, error)
	GetRun(ctx context.Context, id string) (*store.BatchRun, error)
}

type runStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &runStore{db: db}, nil
}

func (s *runStore) Record(ctx context.Context, run *store.BatchRun) (string, error) {
	id := run.ID
	if id == "" {
		id = uuid.NewString()
	}

	err := duckdb.InTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO batch_runs (id, started_at, finished_at, host, profile, success, total_rows, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, run.StartedAt, run.FinishedAt, run.Host, run.Profile, run.Success, run.Rows, value(run.Error))
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for _, req := range run.Requests {
			if err := insertRequest(ctx, tx, id, req); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func insertRequest(ctx context.Context, tx *sql.Tx, runID string, req store.RequestRun) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO request_runs (
			run_id, seq, owner_id, owner_label, file_name, start_date, end_date, success,
			days, successful_days, total_rows, bytes, artifact_name, artifact_location, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, req.Seq, req.OwnerID, req.OwnerLabel, req.FileName, req.StartDate, req.EndDate, req.Success,
		req.DayCount, req.SuccessfulDays, req.Rows, req.Bytes, req.ArtifactName, value(req.ArtifactLocation), value(req.Error))
	if err != nil {
		return fmt.Errorf("insert request %d: %w", req.Seq, err)
	}
	if len(req.Outcomes) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO day_outcomes (
			run_id, seq, day_key, attempted_path, success, listed_size, byte_size,
			size_mismatch, rows_added, error_kind, detail
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, day := range req.Outcomes {
		_, err := stmt.ExecContext(ctx,
			runID, req.Seq, day.DayKey, day.AttemptedPath, day.Success, value(day.ListedSize), day.ByteSize,
			day.SizeMismatch, day.RowsAdded, value(day.ErrorKind), value(day.Detail))
		if err != nil {
			return fmt.Errorf("insert day %s: %w", day.DayKey, err)
		}
	}
	return nil
}

// List returns the most recent runs first, without their requests.
func (s *runStore) List(ctx context.Context, limit int) ([]store.BatchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, host, profile, success, total_rows, error
		FROM batch_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]store.BatchRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns one run with its requests and day outcomes, or nil when unknown.
func (s *runStore) GetRun(ctx context.Context, id string) (*store.BatchRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, host, profile, success, total_rows, error
		FROM batch_runs
		WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	requests, err := s.requests(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Requests = requests
	return run, nil
}

func (s *runStore) requests(ctx context.Context, runID string) ([]store.RequestRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, owner_id, owner_label, file_name, start_date, end_date, success,
			days, successful_days, total_rows, bytes, artifact_name, artifact_location, error
		FROM request_runs
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	requests := make([]store.RequestRun, 0)
	for rows.Next() {
		var (
			req                store.RequestRun
			label, artifact    sql.NullString
			location, reqErr   sql.NullString
			startDate, endDate sql.NullTime
		)
		if err := rows.Scan(&req.Seq, &req.OwnerID, &label, &req.FileName, &startDate, &endDate, &req.Success,
			&req.DayCount, &req.SuccessfulDays, &req.Rows, &req.Bytes, &artifact, &location, &reqErr); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		req.OwnerLabel = label.String
		req.ArtifactName = artifact.String
		req.StartDate = startDate.Time
		req.EndDate = endDate.Time
		req.ArtifactLocation = nullable(location)
		req.Error = nullable(reqErr)
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range requests {
		days, err := s.days(ctx, runID, requests[i].Seq)
		if err != nil {
			return nil, err
		}
		requests[i].Outcomes = days
	}
	return requests, nil
}

func (s *runStore) days(ctx context.Context, runID string, seq int) ([]store.DayRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day_key, attempted_path, success, listed_size, byte_size, size_mismatch, rows_added, error_kind, detail
		FROM day_outcomes
		WHERE run_id = ? AND seq = ?
		ORDER BY day_key`, runID, seq)
	if err != nil {
		return nil, fmt.Errorf("query day outcomes: %w", err)
	}
	defer rows.Close()

	days := make([]store.DayRecord, 0)
	for rows.Next() {
		var (
			day          store.DayRecord
			listed       sql.NullInt64
			kind, detail sql.NullString
		)
		if err := rows.Scan(&day.DayKey, &day.AttemptedPath, &day.Success, &listed, &day.ByteSize,
			&day.SizeMismatch, &day.RowsAdded, &kind, &detail); err != nil {
			return nil, fmt.Errorf("scan day outcome: %w", err)
		}
		if listed.Valid {
			v := listed.Int64
			day.ListedSize = &v
		}
		day.ErrorKind = nullable(kind)
		day.Detail = nullable(detail)
		days = append(days, day)
	}
	return days, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*store.BatchRun, error) {
	var (
		run     store.BatchRun
		profile sql.NullString
		runErr  sql.NullString
	)
	if err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Host, &profile, &run.Success, &run.Rows, &runErr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.Profile = profile.String
	run.Error = nullable(runErr)
	return &run, nil
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// value turns a nil pointer into a NULL argument.
func value[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
