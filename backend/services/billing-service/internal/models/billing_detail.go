package models

import (
	"time"

	"github.com/google/uuid"
)

// BillingDetail is the persisted bill of one completed charging session.
type BillingDetail struct {
	ID               uuid.UUID `db:"id" json:"detailId"`
	SessionID        int64     `db:"session_id" json:"sessionId"`
	UserID           int64     `db:"user_id" json:"userId"`
	PileID           string    `db:"pile_id" json:"pileId"`
	ChargingCapacity float64   `db:"charging_capacity" json:"chargingCapacity"`
	ChargingDuration float64   `db:"charging_duration" json:"chargingDuration"` // hours
	StartTime        time.Time `db:"start_time" json:"startTime"`
	EndTime          time.Time `db:"stop_time" json:"endTime"`
	UnitPrice        float64   `db:"unit_price" json:"unitPrice"`
	ServiceFeeRate   float64   `db:"service_fee_rate" json:"serviceFeeRate"`
	PriceType        string    `db:"price_type" json:"priceType"`
	ChargingFee      float64   `db:"charging_fee" json:"chargingFee"`
	ServiceFee       float64   `db:"service_fee" json:"serviceFee"`
	TotalFee         float64   `db:"total_fee" json:"totalFee"`
	GeneratedAt      time.Time `db:"generated_at" json:"generatedAt"`
}

// BillingFilter narrows a user's bill listing.
type BillingFilter struct {
	UserID   int64
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// Offset returns the row offset for the requested page.
func (f BillingFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
