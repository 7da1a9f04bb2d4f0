package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
	"github.com/de-tools/export-consolidator/pkg/remote"
	"github.com/de-tools/export-consolidator/pkg/remote/remotetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var desc = domain.ConnectionDescriptor{Host: "sftp.example.com", User: "export-user", PrivateKey: []byte("key")}

func week(t *testing.T) domain.DateRange {
	t.Helper()
	r, err := domain.ParseDateRange("2025-06-23", "2025-06-29")
	require.NoError(t, err)
	return r
}

// seedWeek puts one OrderDetails.csv with a single row into each day of the week.
func seedWeek(store *remotetest.Store, owner string) {
	for i := 23; i <= 29; i++ {
		store.Put(fmt.Sprintf("/%s/202506%d/OrderDetails.csv", owner, i), fmt.Sprintf("Order,Total\n%d,1.00\n", i))
	}
}

func TestRun_TimedOutDayDoesNotSinkTheRequest(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		t.Run(fmt.Sprintf("concurrency %d", concurrency), func(t *testing.T) {
			defer goleak.VerifyNone(t)

			// Given seven days of data where day three hangs
			store := remotetest.NewStore()
			seedWeek(store, "56571")
			store.Delay("/56571/20250625/OrderDetails.csv", time.Minute)
			dialer := &remotetest.Dialer{Store: store}
			e := New(dialer, Options{Timeout: 20 * time.Millisecond, Concurrency: concurrency})

			// When the batch runs
			req := domain.FetchRequest{OwnerID: "56571", Range: week(t), FileName: "OrderDetails.csv"}
			report, err := e.Run(context.Background(), desc, []domain.FetchRequest{req})

			// Then six days contribute rows in day order and the session is released once
			require.NoError(t, err)
			require.Len(t, report.Requests, 1)
			rr := report.Requests[0]
			assert.True(t, rr.Success)
			assert.Equal(t, 7, rr.Totals.Days)
			assert.Equal(t, 6, rr.Totals.SuccessfulDays)
			assert.Equal(t, 1, rr.Totals.FailedDays)
			assert.Equal(t, 6, rr.Totals.Rows)

			require.Len(t, rr.Outcomes, 7)
			assert.Equal(t, domain.ErrorKindTransport, rr.Outcomes[2].ErrorKind)
			assert.Contains(t, rr.Outcomes[2].Detail, "deadline exceeded")

			assert.Equal(t, `"Date",Order,Total`, rr.Dataset.Header)
			assert.Equal(t, []string{
				`"2025-06-23",23,1.00`,
				`"2025-06-24",24,1.00`,
				`"2025-06-26",26,1.00`,
				`"2025-06-27",27,1.00`,
				`"2025-06-28",28,1.00`,
				`"2025-06-29",29,1.00`,
			}, rr.Dataset.Rows)

			assert.EqualValues(t, 1, store.Opened())
			assert.EqualValues(t, 1, store.Closed())
		})
	}
}

func TestRun_NoDataRequestDoesNotFailTheBatch(t *testing.T) {
	store := remotetest.NewStore()
	seedWeek(store, "56571")
	store.Put("/99999/20250623/OrderDetails.csv", "\n\n")
	e := New(&remotetest.Dialer{Store: store}, Options{})

	report, err := e.Run(context.Background(), desc, []domain.FetchRequest{
		{OwnerID: "99999", OwnerLabel: "Closed Site", Range: week(t), FileName: "OrderDetails.csv"},
		{OwnerID: "56571", OwnerLabel: "Pier 32", Range: week(t), FileName: "OrderDetails.csv"},
	})
	require.NoError(t, err)

	assert.True(t, report.Success())
	require.Len(t, report.Requests, 2)

	empty := report.Requests[0]
	assert.False(t, empty.Success)
	assert.Equal(t, domain.NoDataArtifact, empty.Artifact)
	assert.Equal(t, domain.ErrorKindEmpty, empty.Outcomes[0].ErrorKind)
	for _, o := range empty.Outcomes[1:] {
		assert.Equal(t, domain.ErrorKindNotFound, o.ErrorKind)
	}

	var noData *domain.NoDataError
	require.ErrorAs(t, empty.Err, &noData)
	assert.Len(t, noData.Outcomes, 7)
	assert.Zero(t, noData.TransientFailures())

	full := report.Requests[1]
	assert.True(t, full.Success)
	assert.Equal(t, 7, full.Totals.Rows)
	assert.Contains(t, full.Artifact, `"2025-06-23",23,1.00`)
}

func TestRun_InvalidRequestIsRecorded(t *testing.T) {
	store := remotetest.NewStore()
	seedWeek(store, "56571")
	e := New(&remotetest.Dialer{Store: store}, Options{})

	report, err := e.Run(context.Background(), desc, []domain.FetchRequest{
		{OwnerID: "", Range: week(t), FileName: "OrderDetails.csv"},
		{OwnerID: "56571", Range: week(t), FileName: "OrderDetails.csv"},
	})
	require.NoError(t, err)
	require.Len(t, report.Requests, 2)

	assert.False(t, report.Requests[0].Success)
	assert.ErrorContains(t, report.Requests[0].Err, "owner id is required")
	assert.Empty(t, report.Requests[0].Outcomes)
	assert.True(t, report.Requests[1].Success)
}

func TestRun_FallbackProfileReleasesEveryAttempt(t *testing.T) {
	store := remotetest.NewStore()
	seedWeek(store, "56571")
	dialer := &remotetest.Dialer{
		Store:   store,
		Refuse:  map[string]error{"modern": errors.New("no common algorithm for key exchange")},
		Partial: true,
	}
	e := New(dialer, Options{})

	report, err := e.Run(context.Background(), desc, []domain.FetchRequest{
		{OwnerID: "56571", Range: week(t), FileName: "OrderDetails.csv"},
	})
	require.NoError(t, err)

	assert.Equal(t, "legacy", report.Profile)
	assert.Equal(t, []string{"modern", "legacy"}, dialer.Tried)
	assert.EqualValues(t, 2, store.Opened())
	assert.EqualValues(t, 2, store.Closed())
	assert.True(t, report.Success())
}

func TestRun_ConnectionError(t *testing.T) {
	store := remotetest.NewStore()
	last := errors.New("handshake failed")
	dialer := &remotetest.Dialer{
		Store:   store,
		Refuse:  map[string]error{"modern": errors.New("kex failed"), "legacy": last},
		Partial: true,
	}
	e := New(dialer, Options{})

	report, err := e.Run(context.Background(), desc, []domain.FetchRequest{
		{OwnerID: "56571", Range: week(t), FileName: "OrderDetails.csv"},
	})

	var connErr *domain.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, last)
	assert.Len(t, connErr.Attempts, 2)

	require.NotNil(t, report)
	assert.Empty(t, report.Requests)
	assert.False(t, report.Success())
	assert.EqualValues(t, store.Opened(), store.Closed())
}

type panickingSession struct {
	closes atomic.Int64
}

func (s *panickingSession) ReadDir(context.Context, string) ([]remote.FileEntry, error) {
	panic("listing exploded")
}

func (s *panickingSession) ReadFile(context.Context, string) ([]byte, error) {
	return nil, nil
}

func (s *panickingSession) Close() error {
	s.closes.Add(1)
	return errors.New("already closed")
}

func TestRun_ReleasesSessionWhenDayPanics(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		t.Run(fmt.Sprintf("concurrency %d", concurrency), func(t *testing.T) {
			defer goleak.VerifyNone(t)

			// Given a session whose listing panics
			session := &panickingSession{}
			dialer := remote.DialerFunc(func(context.Context, domain.ConnectionDescriptor, domain.ConnectionProfile) (remote.Session, error) {
				return session, nil
			})
			e := New(dialer, Options{Concurrency: concurrency})

			// Then the panic reaches the caller and the session is released once
			assert.PanicsWithValue(t, "listing exploded", func() {
				_, _ = e.Run(context.Background(), desc, []domain.FetchRequest{
					{OwnerID: "56571", Range: week(t), FileName: "OrderDetails.csv"},
				})
			})
			assert.Equal(t, int64(1), session.closes.Load())
		})
	}
}

func TestRun_CancelledContext(t *testing.T) {
	store := remotetest.NewStore()
	seedWeek(store, "56571")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(&remotetest.Dialer{Store: store}, Options{}).Run(ctx, desc, []domain.FetchRequest{
		{OwnerID: "56571", Range: week(t), FileName: "OrderDetails.csv"},
	})

	var connErr *domain.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.Opened())
}

func TestRun_LogDescribesEveryDay(t *testing.T) {
	store := remotetest.NewStore()
	store.Put("/56571/20250623/OrderDetails.csv", "Order\n1\n2\n").
		ListSize("/56571/20250623/OrderDetails.csv", 99)
	r, err := domain.ParseDateRange("2025-06-23", "2025-06-24")
	require.NoError(t, err)

	report, err := New(&remotetest.Dialer{Store: store}, Options{}).Run(context.Background(), desc, []domain.FetchRequest{
		{OwnerID: "56571", OwnerLabel: "Pier 32", Range: r, FileName: "OrderDetails.csv"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"connecting to sftp.example.com",
		"connected with profile modern after 1 attempt(s)",
		"[Pier 32] processing OrderDetails.csv for 2 days: 20250623, 20250624",
		"[Pier 32] 20250623: 2 rows (10 bytes, listing reported 99)",
		"[Pier 32] 20250624: no file at /56571/20250624/OrderDetails.csv",
		"[Pier 32] OrderDetails.csv: 2 rows from 1 of 2 days",
		"connection closed",
	}, report.Lines())
}
