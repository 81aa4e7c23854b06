package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evbilling/backend/services/billing-service/internal/models"
)

var columnNames = []string{
	"id", "session_id", "user_id", "pile_id", "charging_capacity", "charging_duration",
	"start_time", "stop_time", "unit_price", "service_fee_rate", "price_type",
	"charging_fee", "service_fee", "total_fee", "generated_at",
}

func newMockRepo(t *testing.T) (*BillingRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewBillingRepository(db), mock
}

func sampleBill() models.BillingDetail {
	start := time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC)
	return models.BillingDetail{
		ID:               uuid.MustParse("6f1c1f0e-3a55-4c36-9a1b-1f3b1c0d2e4f"),
		SessionID:        42,
		UserID:           7,
		PileID:           "P-01",
		ChargingCapacity: 10,
		ChargingDuration: 1,
		StartTime:        start,
		EndTime:          start.Add(time.Hour),
		UnitPrice:        1.0,
		ServiceFeeRate:   0.8,
		PriceType:        "peak",
		ChargingFee:      10,
		ServiceFee:       8,
		TotalFee:         18,
		GeneratedAt:      start.Add(2 * time.Hour),
	}
}

func billRows(bills ...models.BillingDetail) *sqlmock.Rows {
	rows := sqlmock.NewRows(columnNames)
	for _, b := range bills {
		rows.AddRow(b.ID.String(), b.SessionID, b.UserID, b.PileID, b.ChargingCapacity, b.ChargingDuration,
			b.StartTime, b.EndTime, b.UnitPrice, b.ServiceFeeRate, b.PriceType,
			b.ChargingFee, b.ServiceFee, b.TotalFee, b.GeneratedAt)
	}
	return rows
}

func TestCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	bill := sampleBill()
	generated := bill.GeneratedAt
	bill.GeneratedAt = time.Time{}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO billing_details (`)).
		WithArgs(bill.ID, bill.SessionID, bill.UserID, bill.PileID, bill.ChargingCapacity, bill.ChargingDuration,
			bill.StartTime, bill.EndTime, bill.UnitPrice, bill.ServiceFeeRate, bill.PriceType,
			bill.ChargingFee, bill.ServiceFee, bill.TotalFee).
		WillReturnRows(sqlmock.NewRows([]string{"generated_at"}).AddRow(generated))

	require.NoError(t, repo.Create(context.Background(), &bill))
	assert.Equal(t, generated, bill.GeneratedAt)
}

func TestGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	bill := sampleBill()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM billing_details WHERE id = $1`)).
		WithArgs(bill.ID).
		WillReturnRows(billRows(bill))

	got, err := repo.GetByID(context.Background(), bill.ID)
	require.NoError(t, err)
	assert.Equal(t, bill, *got)
}

func TestGetBySessionIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM billing_details WHERE session_id = $1 LIMIT 1`)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(columnNames))

	_, err := repo.GetBySessionID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrBillNotFound)
}

func TestGetBySessionIDPassesThroughErrors(t *testing.T) {
	repo, mock := newMockRepo(t)
	dbErr := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE session_id = $1`)).
		WithArgs(int64(42)).
		WillReturnError(dbErr)

	_, err := repo.GetBySessionID(context.Background(), 42)
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrBillNotFound)
}

func TestListByUserPlaceholders(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    models.BillingFilter
		where     string
		countArgs []driver.Value
		page      string
	}{
		{
			name:      "no range",
			filter:    models.BillingFilter{UserID: 7, Page: 1, PageSize: 10},
			where:     `WHERE user_id = $1`,
			countArgs: []driver.Value{int64(7)},
			page:      `ORDER BY start_time DESC LIMIT $2 OFFSET $3`,
		},
		{
			name:      "from only",
			filter:    models.BillingFilter{UserID: 7, From: &from, Page: 1, PageSize: 10},
			where:     `WHERE user_id = $1 AND start_time >= $2`,
			countArgs: []driver.Value{int64(7), from},
			page:      `ORDER BY start_time DESC LIMIT $3 OFFSET $4`,
		},
		{
			name:      "to only",
			filter:    models.BillingFilter{UserID: 7, To: &to, Page: 1, PageSize: 10},
			where:     `WHERE user_id = $1 AND start_time < $2`,
			countArgs: []driver.Value{int64(7), to},
			page:      `ORDER BY start_time DESC LIMIT $3 OFFSET $4`,
		},
		{
			name:      "both bounds",
			filter:    models.BillingFilter{UserID: 7, From: &from, To: &to, Page: 3, PageSize: 10},
			where:     `WHERE user_id = $1 AND start_time >= $2 AND start_time < $3`,
			countArgs: []driver.Value{int64(7), from, to},
			page:      `ORDER BY start_time DESC LIMIT $4 OFFSET $5`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			bill := sampleBill()

			listArgs := append(append([]driver.Value{}, tt.countArgs...), tt.filter.PageSize, tt.filter.Offset())

			mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM billing_details `+tt.where) + `$`).
				WithArgs(tt.countArgs...).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
			mock.ExpectQuery(regexp.QuoteMeta(`FROM billing_details ` + tt.where + ` ` + tt.page)).
				WithArgs(listArgs...).
				WillReturnRows(billRows(bill))

			bills, total, err := repo.ListByUser(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, 21, total)
			require.Len(t, bills, 1)
			assert.Equal(t, bill.ID, bills[0].ID)
		})
	}
}

func TestListByUserCountError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*)`)).WillReturnError(sql.ErrConnDone)

	_, _, err := repo.ListByUser(context.Background(), models.BillingFilter{UserID: 1, Page: 1, PageSize: 10})
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestStatistics(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)
	statsCols := []string{"count", "duration", "capacity", "charging_fee", "service_fee", "total_fee"}

	t.Run("all piles", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE start_time >= $1 AND stop_time <= $2`)+`\s*$`).
			WithArgs(from, to).
			WillReturnRows(sqlmock.NewRows(statsCols).AddRow(3, 4.5, 30.0, 21.0, 24.0, 45.0))

		stats, err := repo.Statistics(context.Background(), from, to, "")
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Count)
		assert.Equal(t, 45.0, stats.TotalFee)
		assert.Equal(t, from, stats.StartTime)
		assert.Empty(t, stats.PileID)
	})

	t.Run("one pile", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE start_time >= $1 AND stop_time <= $2`)+`\s+`+regexp.QuoteMeta(`AND pile_id = $3`)).
			WithArgs(from, to, "P-01").
			WillReturnRows(sqlmock.NewRows(statsCols).AddRow(0, 0.0, 0.0, 0.0, 0.0, 0.0))

		stats, err := repo.Statistics(context.Background(), from, to, "P-01")
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Count)
		assert.Equal(t, "P-01", stats.PileID)
	})
}
