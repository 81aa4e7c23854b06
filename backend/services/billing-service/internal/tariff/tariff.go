package tariff

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Tier is a time-of-day price category.
type Tier string

// Price tiers.
const (
	Peak   Tier = "peak"
	Normal Tier = "normal"
	Valley Tier = "valley"
)

// ServiceFeeRate is charged per kWh on top of the energy price, regardless of tier.
const ServiceFeeRate = 0.8

// ErrInvalidCapacity is returned for negative or non-finite capacities.
var ErrInvalidCapacity = errors.New("tariff: invalid capacity")

type rule struct {
	tier      Tier
	startHour int
	endHour   int
}

// Rules are evaluated top to bottom; hours matching none of them are valley.
var rules = []rule{
	{Peak, 10, 15},
	{Peak, 18, 21},
	{Normal, 7, 10},
	{Normal, 15, 18},
	{Normal, 21, 23},
}

var prices = map[Tier]float64{
	Peak:   1.0,
	Normal: 0.7,
	Valley: 0.4,
}

// byHour is built once from rules and never written afterwards.
var byHour = buildHourTable()

func buildHourTable() [24]Tier {
	var table [24]Tier
	for h := range table {
		table[h] = Valley
		for _, r := range rules {
			if h >= r.startHour && h < r.endHour {
				table[h] = r.tier
				break
			}
		}
	}
	return table
}

// Classify returns the tier for the hour of t, read in t's own location.
// Callers are expected to normalise t to the tariff location first.
func Classify(t time.Time) Tier {
	return byHour[t.Hour()]
}

// UnitPrice returns the energy price per kWh for tier. Unknown tiers price as valley.
func UnitPrice(tier Tier) float64 {
	if p, ok := prices[tier]; ok {
		return p
	}
	return prices[Valley]
}

// Quote is the fee breakdown for a capacity starting at a given time.
type Quote struct {
	Capacity       float64 `json:"capacity"`
	Tier           Tier    `json:"priceType"`
	UnitPrice      float64 `json:"unitPrice"`
	ServiceFeeRate float64 `json:"serviceFeeRate"`
	ChargingFee    float64 `json:"chargingFee"`
	ServiceFee     float64 `json:"serviceFee"`
	TotalFee       float64 `json:"totalFee"`
}

// NewQuote prices capacity kWh at the tier of start. Zero capacity yields a zero quote.
func NewQuote(capacity float64, start time.Time) (Quote, error) {
	if math.IsNaN(capacity) || math.IsInf(capacity, 0) || capacity < 0 {
		return Quote{}, fmt.Errorf("%w: %v", ErrInvalidCapacity, capacity)
	}

	tier := Classify(start)
	price := UnitPrice(tier)
	// Each product is rounded on its own; no fused multiply-add into the total.
	chargingFee := float64(capacity * price)
	serviceFee := float64(capacity * ServiceFeeRate)

	return Quote{
		Capacity:       capacity,
		Tier:           tier,
		UnitPrice:      price,
		ServiceFeeRate: ServiceFeeRate,
		ChargingFee:    chargingFee,
		ServiceFee:     serviceFee,
		TotalFee:       chargingFee + serviceFee,
	}, nil
}

// Period is a contiguous run of hours sharing one tier.
type Period struct {
	Tier           Tier    `json:"priceType"`
	StartHour      int     `json:"startHour"`
	EndHour        int     `json:"endHour"`
	UnitPrice      float64 `json:"unitPrice"`
	ServiceFeeRate float64 `json:"serviceFeeRate"`
}

// Schedule returns the daily schedule as ordered, non-overlapping periods covering 0-24.
func Schedule() []Period {
	var periods []Period
	start := 0
	for h := 1; h <= len(byHour); h++ {
		if h < len(byHour) && byHour[h] == byHour[start] {
			continue
		}
		tier := byHour[start]
		periods = append(periods, Period{
			Tier:           tier,
			StartHour:      start,
			EndHour:        h,
			UnitPrice:      UnitPrice(tier),
			ServiceFeeRate: ServiceFeeRate,
		})
		start = h
	}
	return periods
}
