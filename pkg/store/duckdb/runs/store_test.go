package runs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/export-consolidator/pkg/models/store"
	"github.com/de-tools/export-consolidator/pkg/store/duckdb"
	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) Store {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	s, err := NewStore(db)
	require.NoError(t, err)
	return s
}

func ptr[T any](v T) *T { return &v }

func sampleRun(started time.Time) *store.BatchRun {
	return &store.BatchRun{
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Second),
		Host:       "sftp.example.com:22",
		Profile:    "legacy",
		Success:    true,
		Rows:       6,
		Requests: []store.RequestRun{
			{
				Seq:              0,
				OwnerID:          "56571",
				OwnerLabel:       "Pier 32",
				FileName:         "OrderDetails.csv",
				StartDate:        time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC),
				EndDate:          time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC),
				Success:          true,
				DayCount:         2,
				SuccessfulDays:   1,
				Rows:             6,
				Bytes:            120,
				ArtifactName:     "Pier_32_OrderDetails_2025-06-23_to_2025-06-24.csv",
				ArtifactLocation: ptr("reports/Pier_32_OrderDetails_2025-06-23_to_2025-06-24.csv"),
				Outcomes: []store.DayRecord{
					{DayKey: "20250623", AttemptedPath: "/56571/20250623/OrderDetails.csv", Success: true, ListedSize: ptr(int64(130)), ByteSize: 120, SizeMismatch: true, RowsAdded: 6},
					{DayKey: "20250624", AttemptedPath: "/56571/20250624/OrderDetails.csv", ErrorKind: ptr("not_found"), Detail: ptr("file not found")},
				},
			},
			{
				Seq:          1,
				OwnerID:      "99999",
				FileName:     "OrderDetails.csv",
				ArtifactName: "99999_OrderDetails_2025-06-23_to_2025-06-24.csv",
				Error:        ptr("no data found"),
			},
		},
	}
}

func TestRunStore_RecordAndGet(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	started := time.Date(2025, 6, 30, 9, 0, 0, 0, time.UTC)

	// Given a recorded run
	id, err := s.Record(ctx, sampleRun(started))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// When reading it back
	run, err := s.GetRun(ctx, id)

	// Then every request and day outcome is restored in order
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, id, run.ID)
	assert.True(t, run.StartedAt.Equal(started))
	assert.Equal(t, "legacy", run.Profile)
	assert.Nil(t, run.Error)

	require.Len(t, run.Requests, 2)
	first := run.Requests[0]
	assert.Equal(t, "Pier 32", first.OwnerLabel)
	assert.Equal(t, 6, first.Rows)
	assert.Equal(t, int64(120), first.Bytes)
	require.NotNil(t, first.ArtifactLocation)
	assert.Contains(t, *first.ArtifactLocation, "Pier_32")
	require.Len(t, first.Outcomes, 2)
	require.NotNil(t, first.Outcomes[0].ListedSize)
	assert.Equal(t, int64(130), *first.Outcomes[0].ListedSize)
	assert.True(t, first.Outcomes[0].SizeMismatch)
	assert.Nil(t, first.Outcomes[0].ErrorKind)
	assert.Nil(t, first.Outcomes[1].ListedSize)
	assert.Equal(t, "not_found", *first.Outcomes[1].ErrorKind)

	second := run.Requests[1]
	assert.False(t, second.Success)
	assert.Equal(t, "no data found", *second.Error)
	assert.Empty(t, second.Outcomes)
}

func TestRunStore_List(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 30, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		run := sampleRun(base.Add(time.Duration(i) * time.Hour))
		run.ID = []string{"run-a", "run-b", "run-c"}[i]
		_, err := s.Record(ctx, run)
		require.NoError(t, err)
	}

	runs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
	assert.Empty(t, runs[0].Requests)

	t.Run("duplicate id is rejected and nothing partial is kept", func(t *testing.T) {
		dup := sampleRun(base)
		dup.ID = "run-a"
		_, err := s.Record(ctx, dup)
		assert.Error(t, err)

		runs, err := s.List(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, runs, 3)
	})
}

func TestRunStore_GetUnknownRun(t *testing.T) {
	run, err := setupStore(t).GetRun(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestRunStore_RecordRollsBackOnFailure(t *testing.T) {
	// Given: a database that rejects the request insert
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO batch_runs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO request_runs").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	s, err := NewStore(db)
	require.NoError(t, err)

	// When
	run := sampleRun(time.Date(2025, 6, 30, 9, 0, 0, 0, time.UTC))
	run.ID = "run-x"
	_, err = s.Record(context.Background(), run)

	// Then
	assert.ErrorContains(t, err, "insert request 0: disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewStore_NilDB(t *testing.T) {
	_, err := NewStore(nil)
	assert.Error(t, err)
}
