package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"evbilling/backend/services/billing-service/internal/models"
)

// ErrBillNotFound represents missing billing_details rows.
var ErrBillNotFound = errors.New("billing detail not found")

const billingColumns = `
	id, session_id, user_id, pile_id, charging_capacity, charging_duration,
	start_time, stop_time, unit_price, service_fee_rate, price_type,
	charging_fee, service_fee, total_fee, generated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

// BillingRepository persists billing details.
type BillingRepository struct {
	db *sql.DB
}

// NewBillingRepository returns repository.
func NewBillingRepository(db *sql.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// Create inserts a billing detail and fills its generated_at.
func (r *BillingRepository) Create(ctx context.Context, bill *models.BillingDetail) error {
	query := `
		INSERT INTO billing_details (` + billingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		RETURNING generated_at
	`
	return r.db.QueryRowContext(ctx, query,
		bill.ID,
		bill.SessionID,
		bill.UserID,
		bill.PileID,
		bill.ChargingCapacity,
		bill.ChargingDuration,
		bill.StartTime,
		bill.EndTime,
		bill.UnitPrice,
		bill.ServiceFeeRate,
		bill.PriceType,
		bill.ChargingFee,
		bill.ServiceFee,
		bill.TotalFee,
	).Scan(&bill.GeneratedAt)
}

// GetByID fetches one billing detail.
func (r *BillingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BillingDetail, error) {
	query := `SELECT ` + billingColumns + ` FROM billing_details WHERE id = $1`
	return scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetBySessionID fetches the bill of a charging session.
func (r *BillingRepository) GetBySessionID(ctx context.Context, sessionID int64) (*models.BillingDetail, error) {
	query := `SELECT ` + billingColumns + ` FROM billing_details WHERE session_id = $1 LIMIT 1`
	return scanOne(r.db.QueryRowContext(ctx, query, sessionID))
}

// ListByUser returns a page of user's bills (newest first) and the total matching count.
func (r *BillingRepository) ListByUser(ctx context.Context, filter models.BillingFilter) ([]models.BillingDetail, int, error) {
	conditions := []string{"user_id = $1"}
	args := []any{filter.UserID}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("start_time < $%d", len(args)))
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM billing_details `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM billing_details %s ORDER BY start_time DESC LIMIT $%d OFFSET $%d`,
		billingColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.PageSize, filter.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bills []models.BillingDetail
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		bills = append(bills, *bill)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return bills, total, nil
}

// Statistics sums bills whose session lies inside [from, to], optionally for one pile.
func (r *BillingRepository) Statistics(ctx context.Context, from, to time.Time, pileID string) (*models.BillingStatistics, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(charging_duration), 0),
			COALESCE(SUM(charging_capacity), 0),
			COALESCE(SUM(charging_fee), 0),
			COALESCE(SUM(service_fee), 0),
			COALESCE(SUM(total_fee), 0)
		FROM billing_details
		WHERE start_time >= $1 AND stop_time <= $2
	`
	args := []any{from, to}
	if pileID != "" {
		query += ` AND pile_id = $3`
		args = append(args, pileID)
	}

	stats := models.BillingStatistics{StartTime: from, EndTime: to, PileID: pileID}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.Count,
		&stats.TotalDuration,
		&stats.TotalCapacity,
		&stats.TotalChargingFee,
		&stats.TotalServiceFee,
		&stats.TotalFee,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}

func scanOne(row *sql.Row) (*models.BillingDetail, error) {
	bill, err := scanBill(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return bill, nil
}

func scanBill(row rowScanner) (*models.BillingDetail, error) {
	var bill models.BillingDetail
	if err := row.Scan(
		&bill.ID,
		&bill.SessionID,
		&bill.UserID,
		&bill.PileID,
		&bill.ChargingCapacity,
		&bill.ChargingDuration,
		&bill.StartTime,
		&bill.EndTime,
		&bill.UnitPrice,
		&bill.ServiceFeeRate,
		&bill.PriceType,
		&bill.ChargingFee,
		&bill.ServiceFee,
		&bill.TotalFee,
		&bill.GeneratedAt,
	); err != nil {
		return nil, err
	}
	return &bill, nil
}
