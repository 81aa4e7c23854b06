package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"evbilling/backend/services/billing-service/internal/models"
	"evbilling/backend/services/billing-service/internal/repository"
	"evbilling/backend/services/billing-service/internal/tariff"
)

var (
	// ErrBillNotFound is returned when a bill does not exist.
	ErrBillNotFound = errors.New("billing: bill not found")
	// ErrBillInProgress is returned when another worker is generating the same session's bill.
	ErrBillInProgress = errors.New("billing: bill generation already in progress")
	// ErrInvalidRange is returned when a time window starts after it ends.
	ErrInvalidRange = errors.New("billing: start time after end time")
	// ErrInvalidChargingMode is returned for modes other than fast and slow.
	ErrInvalidChargingMode = errors.New("billing: invalid charging mode")
	// ErrInvalidSession is returned for session payloads that cannot be billed.
	ErrInvalidSession = errors.New("billing: invalid session")
)

// Charging modes accepted by Estimate.
const (
	ModeFast = "fast"
	ModeSlow = "slow"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

// BillingRepository defines storage contract used by the service.
type BillingRepository interface {
	Create(ctx context.Context, bill *models.BillingDetail) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BillingDetail, error)
	GetBySessionID(ctx context.Context, sessionID int64) (*models.BillingDetail, error)
	ListByUser(ctx context.Context, filter models.BillingFilter) ([]models.BillingDetail, int, error)
	Statistics(ctx context.Context, from, to time.Time, pileID string) (*models.BillingStatistics, error)
}

// SessionLock guards bill generation for a single session.
type SessionLock interface {
	Acquire(ctx context.Context, sessionID int64) (release func(context.Context) error, acquired bool, err error)
}

// Options tune pricing context.
type Options struct {
	// Location is the zone whose wall-clock hour selects the tariff tier.
	Location    *time.Location
	FastPowerKW float64
	SlowPowerKW float64
	// Now is the service clock; defaults to time.Now.
	Now func() time.Time
}

// BillingService generates and queries charging bills.
type BillingService struct {
	repo     BillingRepository
	lock     SessionLock
	location *time.Location
	power    map[string]float64
	logger   *zap.Logger
	now      func() time.Time
}

// NewBillingService builds service. lock may be nil.
func NewBillingService(repo BillingRepository, lock SessionLock, opts Options, logger *zap.Logger) *BillingService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.FastPowerKW <= 0 {
		opts.FastPowerKW = 30
	}
	if opts.SlowPowerKW <= 0 {
		opts.SlowPowerKW = 7
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &BillingService{
		repo:     repo,
		lock:     lock,
		location: opts.Location,
		power: map[string]float64{
			ModeFast: opts.FastPowerKW,
			ModeSlow: opts.SlowPowerKW,
		},
		logger: logger,
		now:    opts.Now,
	}
}

// Quote prices capacity at the tariff tier of start, read in the configured location.
func (s *BillingService) Quote(capacity float64, start time.Time) (tariff.Quote, error) {
	return tariff.NewQuote(capacity, start.In(s.location))
}

// Schedule returns the daily tariff periods.
func (s *BillingService) Schedule() []tariff.Period {
	return tariff.Schedule()
}

// GenerateBillInput is the completed session reported by the charging side.
type GenerateBillInput struct {
	SessionID int64
	UserID    int64
	PileID    string
	StartTime time.Time
	EndTime   time.Time
	Capacity  float64
}

// GenerateBill creates the session's bill, or returns the existing one with created=false.
func (s *BillingService) GenerateBill(ctx context.Context, input GenerateBillInput) (*models.BillingDetail, bool, error) {
	if input.SessionID == 0 {
		return nil, false, fmt.Errorf("%w: session id required", ErrInvalidSession)
	}
	if input.StartTime.IsZero() {
		return nil, false, fmt.Errorf("%w: start time required", ErrInvalidSession)
	}
	if input.EndTime.IsZero() {
		input.EndTime = s.now().UTC()
	}
	if input.EndTime.Before(input.StartTime) {
		return nil, false, fmt.Errorf("%w: end time before start time", ErrInvalidSession)
	}

	existing, err := s.repo.GetBySessionID(ctx, input.SessionID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrBillNotFound) {
		return nil, false, err
	}

	quote, err := s.Quote(input.Capacity, input.StartTime)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	if s.lock != nil {
		release, acquired, err := s.lock.Acquire(ctx, input.SessionID)
		if err != nil {
			return nil, false, err
		}
		if !acquired {
			return nil, false, ErrBillInProgress
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to release bill lock", zap.Int64("session_id", input.SessionID), zap.Error(err))
			}
		}()

		// A concurrent holder may have stored the bill between the lookup above and the lock.
		existing, err := s.repo.GetBySessionID(ctx, input.SessionID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, repository.ErrBillNotFound) {
			return nil, false, err
		}
	}

	chargingFee := round2(quote.ChargingFee)
	serviceFee := round2(quote.ServiceFee)
	bill := &models.BillingDetail{
		ID:               uuid.New(),
		SessionID:        input.SessionID,
		UserID:           input.UserID,
		PileID:           input.PileID,
		ChargingCapacity: round2(input.Capacity).InexactFloat64(),
		ChargingDuration: round2(input.EndTime.Sub(input.StartTime).Hours()).InexactFloat64(),
		StartTime:        input.StartTime.UTC(),
		EndTime:          input.EndTime.UTC(),
		UnitPrice:        quote.UnitPrice,
		ServiceFeeRate:   quote.ServiceFeeRate,
		PriceType:        string(quote.Tier),
		ChargingFee:      chargingFee.InexactFloat64(),
		ServiceFee:       serviceFee.InexactFloat64(),
		TotalFee:         chargingFee.Add(serviceFee).InexactFloat64(),
	}

	if err := s.repo.Create(ctx, bill); err != nil {
		return nil, false, err
	}

	s.logger.Info("billing detail created",
		zap.Int64("session_id", bill.SessionID),
		zap.String("detail_id", bill.ID.String()),
		zap.String("price_type", bill.PriceType),
		zap.Float64("capacity", bill.ChargingCapacity),
		zap.Float64("total_fee", bill.TotalFee),
	)
	return bill, true, nil
}

// EstimateInput is a pre-session fee request.
type EstimateInput struct {
	Capacity     float64
	ChargingMode string
	StartTime    time.Time
}

// Estimate is a fee quote plus expected charging time.
type Estimate struct {
	tariff.Quote
	ChargingMode      string    `json:"chargingMode"`
	PowerKW           float64   `json:"power"`
	EstimatedDuration float64   `json:"estimatedDuration"` // hours
	StartTime         time.Time `json:"startTime"`
}

// Estimate quotes a session that has not started yet. A zero StartTime means now.
func (s *BillingService) Estimate(input EstimateInput) (*Estimate, error) {
	if !(input.Capacity > 0) {
		return nil, fmt.Errorf("%w: capacity must be positive", tariff.ErrInvalidCapacity)
	}
	power, ok := s.power[input.ChargingMode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChargingMode, input.ChargingMode)
	}

	if input.StartTime.IsZero() {
		input.StartTime = s.now()
	}

	quote, err := s.Quote(input.Capacity, input.StartTime)
	if err != nil {
		return nil, err
	}

	return &Estimate{
		Quote:             quote,
		ChargingMode:      input.ChargingMode,
		PowerKW:           power,
		EstimatedDuration: round2(input.Capacity / power).InexactFloat64(),
		StartTime:         input.StartTime,
	}, nil
}

// BillByID returns one bill.
func (s *BillingService) BillByID(ctx context.Context, id uuid.UUID) (*models.BillingDetail, error) {
	bill, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBillNotFound) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return bill, nil
}

// BillPage is one page of a user's bills.
type BillPage struct {
	Items    []models.BillingDetail `json:"items"`
	Total    int                    `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"pageSize"`
}

// BillsForUser returns a page of the user's bills, newest first.
func (s *BillingService) BillsForUser(ctx context.Context, filter models.BillingFilter) (*BillPage, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, ErrInvalidRange
	}
	if filter.Page <= 0 {
		filter.Page = defaultPage
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}

	items, total, err := s.repo.ListByUser(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.BillingDetail{}
	}
	return &BillPage{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// Statistics aggregates bills in [from, to], optionally for one pile.
func (s *BillingService) Statistics(ctx context.Context, from, to time.Time, pileID string) (*models.BillingStatistics, error) {
	if from.After(to) {
		return nil, ErrInvalidRange
	}
	return s.repo.Statistics(ctx, from, to, pileID)
}

// round2 rounds money and energy figures to cents before they are stored or shown.
func round2(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
