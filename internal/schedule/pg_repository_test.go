package schedule

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

// The count query must exclude exactly the stored cancellation value.
// Postgres compares TEXT case sensitively, so passing anything else would
// leave canceled appointments counting against capacity forever.
func TestBookedCountExcludesStoredCanceledValue(t *testing.T) {
	mock := mockPool(t)
	repo := NewPgRepository(mock)

	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("Dr. Chen", date, "09:00", "12:00", CanceledStatus, "").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.BookedCount(context.Background(), "Dr. Chen", date, "09:00", "12:00", "")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookedCountPassesExcludedBooking(t *testing.T) {
	mock := mockPool(t)
	repo := NewPgRepository(mock)

	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("Dr. Chen", date, "13:00", "17:00", CanceledStatus, "BK-123").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	count, err := repo.BookedCount(context.Background(), "Dr. Chen", date, "13:00", "17:00", "BK-123")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}
