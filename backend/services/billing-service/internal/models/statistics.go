package models

import "time"

// BillingStatistics aggregates bills generated inside a time window.
type BillingStatistics struct {
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime"`
	PileID           string    `json:"pileId,omitempty"`
	Count            int       `json:"count"`
	TotalDuration    float64   `json:"totalDuration"`
	TotalCapacity    float64   `json:"totalCapacity"`
	TotalChargingFee float64   `json:"totalChargingFee"`
	TotalServiceFee  float64   `json:"totalServiceFee"`
	TotalFee         float64   `json:"totalFee"`
}
