package auction

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/freightbid/backend/internal/domain/auction"
	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/freightbid/backend/internal/infrastructure/logger"
	"github.com/freightbid/backend/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const serviceName = "bidding"

// Config tunes the bidding coordinator
type Config struct {
	// MaxBidRetries bounds load-mutate-save attempts on version conflicts
	MaxBidRetries int
	// RetryBackoff is the base delay between attempts; jitter is added on top
	RetryBackoff             time.Duration
	DefaultAutoExtendMinutes int
	DutchPriceStep           time.Duration
	EndingSoonWindow         time.Duration
}

// DefaultConfig returns the coordinator defaults
func DefaultConfig() Config {
	return Config{
		MaxBidRetries:            5,
		RetryBackoff:             10 * time.Millisecond,
		DefaultAutoExtendMinutes: 5,
		DutchPriceStep:           time.Minute,
		EndingSoonWindow:         15 * time.Minute,
	}
}

// BiddingService coordinates every state change of an auction. Each mutation
// runs as one optimistic load-mutate-save cycle against the aggregate version
// and is retried on conflict. Domain events are written to the outbox by the
// repository inside the same transaction.
type BiddingService struct {
	auctions  auction.AuctionRepository
	watchers  auction.WatcherRepository
	ownership auction.ResourceOwnershipChecker
	validate  *validator.Validate
	config    Config
	logger    *zap.Logger
	metrics   *telemetry.AuctionMetrics
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewBiddingService creates a new BiddingService
func NewBiddingService(
	auctions auction.AuctionRepository,
	watchers auction.WatcherRepository,
	ownership auction.ResourceOwnershipChecker,
	cfg Config,
	log *zap.Logger,
) *BiddingService {
	defaults := DefaultConfig()
	if cfg.MaxBidRetries < 1 {
		cfg.MaxBidRetries = defaults.MaxBidRetries
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}
	if cfg.DutchPriceStep <= 0 {
		cfg.DutchPriceStep = defaults.DutchPriceStep
	}
	if cfg.EndingSoonWindow <= 0 {
		cfg.EndingSoonWindow = defaults.EndingSoonWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BiddingService{
		auctions:  auctions,
		watchers:  watchers,
		ownership: ownership,
		validate:  newValidator(),
		config:    cfg,
		logger:    log.Named(serviceName),
		now:       func() time.Time { return time.Now().UTC() },
		sleep:     sleepContext,
	}
}

// SetMetrics sets the auction metrics collector
func (s *BiddingService) SetMetrics(m *telemetry.AuctionMetrics) {
	s.metrics = m
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// backoff grows linearly with the attempt and adds up to one base unit of jitter
// so that colliding writers spread out.
func (s *BiddingService) backoff(attempt int) time.Duration {
	base := s.config.RetryBackoff
	if base <= 0 {
		return 0
	}
	return time.Duration(attempt)*base + rand.N(base)
}

// mutation applies one state change to a freshly loaded aggregate
type mutation func(a *auction.Auction, now time.Time) error

// mutate runs fn under optimistic concurrency. Domain errors from fn are
// returned at once; only version conflicts are retried.
func (s *BiddingService) mutate(ctx context.Context, auctionID uuid.UUID, fn mutation) (*auction.Auction, int, error) {
	log := logger.Scoped(ctx, s.logger)
	for attempt := 1; ; attempt++ {
		a, err := s.auctions.GetByID(ctx, auctionID)
		if err != nil {
			return nil, attempt, err
		}
		now := s.now()
		if err := fn(a, now); err != nil {
			return a, attempt, err
		}

		err = s.auctions.Save(ctx, a)
		if err == nil {
			a.ClearDomainEvents()
			return a, attempt, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return a, attempt, err
		}

		if s.metrics != nil {
			s.metrics.RecordVersionConflict(ctx, string(a.Type))
		}
		if attempt >= s.config.MaxBidRetries {
			log.Warn("Version conflict retries exhausted",
				zap.String("auction_id", auctionID.String()),
				zap.Int("attempts", attempt),
			)
			return a, attempt, shared.NewDomainError(shared.CodeConcurrencyConflict,
				"Auction was modified concurrently, please retry")
		}
		log.Debug("Version conflict, retrying",
			zap.String("auction_id", auctionID.String()),
			zap.Int("attempt", attempt),
		)
		if err := s.sleep(ctx, s.backoff(attempt)); err != nil {
			return a, attempt, err
		}
	}
}

// run wraps a lifecycle mutation in a span and logs its outcome
func (s *BiddingService) run(ctx context.Context, method string, auctionID uuid.UUID, fn mutation) (*auction.Auction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, method,
		attribute.String(telemetry.SpanAttrAuctionID, auctionID.String()))
	defer span.End()

	a, attempts, err := s.mutate(ctx, auctionID, fn)
	span.SetAttributes(attribute.Int(telemetry.SpanAttrAttempt, attempts))
	if a != nil {
		span.SetAttributes(attribute.String(telemetry.SpanAttrAuctionType, string(a.Type)))
	}
	if err != nil {
		telemetry.RecordError(span, err)
		s.logFailure(ctx, method, auctionID, err)
		return nil, err
	}
	logger.Scoped(ctx, s.logger).Info("Auction "+method,
		zap.String("auction_id", auctionID.String()),
		zap.String("status", string(a.Status)),
	)
	return a, nil
}

// logFailure logs domain rejections at info and anything else at error
func (s *BiddingService) logFailure(ctx context.Context, method string, auctionID uuid.UUID, err error) {
	fields := []zap.Field{zap.String("operation", method), zap.String("auction_id", auctionID.String()), zap.Error(err)}
	var de *shared.DomainError
	if errors.As(err, &de) {
		logger.Scoped(ctx, s.logger).Info("Auction operation rejected", append(fields, zap.String("code", de.Code))...)
		return
	}
	logger.Scoped(ctx, s.logger).Error("Auction operation failed", fields...)
}

// CreateAuction validates the request, checks vehicle ownership and
// uniqueness, and persists a new auction in DRAFT (or PUBLISHED when
// req.Publish is set).
func (s *BiddingService) CreateAuction(ctx context.Context, req CreateAuctionRequest) (*AuctionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "create_auction",
		attribute.String(telemetry.SpanAttrAuctionType, req.Type))
	defer span.End()

	a, err := s.createAuction(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logFailure(ctx, "create_auction", uuid.Nil, err)
		return nil, err
	}
	span.SetAttributes(attribute.String(telemetry.SpanAttrAuctionID, a.ID.String()))
	logger.Scoped(ctx, s.logger).Info("Auction created",
		zap.String("auction_id", a.ID.String()),
		zap.String("seller_id", a.SellerID.String()),
		zap.String("type", string(a.Type)),
		zap.String("status", string(a.Status)),
	)
	resp := ToAuctionResponse(a, s.now())
	return &resp, nil
}

func (s *BiddingService) createAuction(ctx context.Context, req CreateAuctionRequest) (*auction.Auction, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	if s.ownership != nil {
		if err := s.ownership.VerifyOwnership(ctx, req.VehicleID, req.SellerID); err != nil {
			return nil, err
		}
	}
	exists, err := s.auctions.ExistsOpenForVehicle(ctx, req.VehicleID, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewValidationError("Vehicle already has an open auction")
	}

	params := auction.NewAuctionParams{
		Title:             req.Title,
		Description:       req.Description,
		SellerID:          req.SellerID,
		VehicleID:         req.VehicleID,
		Type:              auction.AuctionType(req.Type),
		StartingPrice:     req.StartingPrice,
		ReservePrice:      req.ReservePrice,
		StartTime:         req.StartTime.UTC(),
		EndTime:           req.EndTime.UTC(),
		AutoExtendMinutes: s.config.DefaultAutoExtendMinutes,
		BidIncrement:      req.BidIncrement,
		PriceStepInterval: time.Duration(req.PriceStepSeconds) * time.Second,
		Shipment: auction.ShipmentDetails{
			WeightKg:     req.Shipment.WeightKg,
			VolumeM3:     req.Shipment.VolumeM3,
			Origin:       req.Shipment.Origin,
			Destination:  req.Shipment.Destination,
			PickupDate:   req.Shipment.PickupDate.UTC(),
			DeliveryDate: req.Shipment.DeliveryDate.UTC(),
		},
		Publish: req.Publish,
	}
	if req.AutoExtendMinutes != nil {
		params.AutoExtendMinutes = *req.AutoExtendMinutes
	}
	if params.Type == auction.AuctionTypeDutch && params.PriceStepInterval == 0 {
		params.PriceStepInterval = s.config.DutchPriceStep
	}
	if req.Requirements != nil {
		params.Requirements = &auction.Requirements{
			MinCapacityKg:  req.Requirements.MinCapacityKg,
			Certifications: req.Requirements.Certifications,
		}
	}

	a, err := auction.NewAuction(params, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.auctions.Save(ctx, a); err != nil {
		return nil, err
	}
	a.ClearDomainEvents()
	return a, nil
}

// UpdateAuction patches the terms of a DRAFT or PUBLISHED auction
func (s *BiddingService) UpdateAuction(ctx context.Context, auctionID, actorID uuid.UUID, req UpdateAuctionRequest) (*AuctionResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	a, err := s.run(ctx, "update_auction", auctionID, func(a *auction.Auction, now time.Time) error {
		terms := a.Terms()
		if req.Title != nil {
			terms.Title = *req.Title
		}
		if req.Description != nil {
			terms.Description = *req.Description
		}
		if req.ClearReserve {
			terms.ReservePrice = nil
		} else if req.ReservePrice != nil {
			reserve := *req.ReservePrice
			terms.ReservePrice = &reserve
		}
		if req.StartTime != nil {
			terms.StartTime = req.StartTime.UTC()
		}
		if req.EndTime != nil {
			terms.EndTime = req.EndTime.UTC()
		}
		if req.BidIncrement != nil {
			terms.BidIncrement = *req.BidIncrement
		}
		if req.AutoExtendMinutes != nil {
			terms.AutoExtendMinutes = *req.AutoExtendMinutes
		}
		return a.Update(actorID, terms, now)
	})
	return s.respond(a, err)
}

// PublishAuction moves a DRAFT auction to PUBLISHED. The vehicle must not be
// referenced by another open auction.
func (s *BiddingService) PublishAuction(ctx context.Context, auctionID, actorID uuid.UUID) (*AuctionResponse, error) {
	a, err := s.run(ctx, "publish_auction", auctionID, func(a *auction.Auction, now time.Time) error {
		exists, err := s.auctions.ExistsOpenForVehicle(ctx, a.VehicleID, a.ID)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewValidationError("Vehicle already has an open auction")
		}
		return a.Publish(actorID, now)
	})
	return s.respond(a, err)
}

// StartAuction opens bidding on a PUBLISHED auction whose start time has come
func (s *BiddingService) StartAuction(ctx context.Context, auctionID uuid.UUID) (*AuctionResponse, error) {
	a, err := s.run(ctx, "start_auction", auctionID, func(a *auction.Auction, now time.Time) error {
		return a.Start(now)
	})
	return s.respond(a, err)
}

// PauseAuction suspends bidding. Seller only.
func (s *BiddingService) PauseAuction(ctx context.Context, auctionID, actorID uuid.UUID) (*AuctionResponse, error) {
	a, err := s.run(ctx, "pause_auction", auctionID, func(a *auction.Auction, now time.Time) error {
		return a.Pause(actorID, now)
	})
	return s.respond(a, err)
}

// ResumeAuction reopens bidding on a paused auction. Seller only.
func (s *BiddingService) ResumeAuction(ctx context.Context, auctionID, actorID uuid.UUID) (*AuctionResponse, error) {
	a, err := s.run(ctx, "resume_auction", auctionID, func(a *auction.Auction, now time.Time) error {
		return a.Resume(actorID, now)
	})
	return s.respond(a, err)
}

// CancelAuction cancels a non-terminal auction. Seller only.
func (s *BiddingService) CancelAuction(ctx context.Context, auctionID, actorID uuid.UUID, reason string) (*AuctionResponse, error) {
	a, err := s.run(ctx, "cancel_auction", auctionID, func(a *auction.Auction, now time.Time) error {
		if actorID != a.SellerID {
			return shared.NewValidationError("Only the seller can cancel this auction")
		}
		return a.Cancel(reason, now)
	})
	if err == nil && s.metrics != nil {
		s.metrics.RecordAuctionClosed(ctx, string(a.Type), telemetry.CloseOutcomeCancelled)
	}
	return s.respond(a, err)
}

// EndAuction closes an ACTIVE auction and settles the winner. Calling it on
// an auction that is already closed returns INVALID_STATE.
func (s *BiddingService) EndAuction(ctx context.Context, auctionID uuid.UUID) (*AuctionResponse, error) {
	a, err := s.run(ctx, "end_auction", auctionID, func(a *auction.Auction, now time.Time) error {
		return a.End(now)
	})
	if err == nil {
		s.recordClose(ctx, a)
	}
	return s.respond(a, err)
}

// EndDueAuction is the sweeper's close: the end time is re-read from the
// version being saved, so a bid that extended the auction after the due list
// was read leaves it open with INVALID_STATE.
func (s *BiddingService) EndDueAuction(ctx context.Context, auctionID uuid.UUID) (*AuctionResponse, error) {
	a, err := s.run(ctx, "end_due_auction", auctionID, func(a *auction.Auction, now time.Time) error {
		if now.Before(a.EndTime) {
			return shared.NewInvalidStateError(fmt.Sprintf("Auction runs until %s", a.EndTime.Format(time.RFC3339)))
		}
		return a.End(now)
	})
	if err == nil {
		s.recordClose(ctx, a)
	}
	return s.respond(a, err)
}

func (s *BiddingService) recordClose(ctx context.Context, a *auction.Auction) {
	if s.metrics == nil {
		return
	}
	outcome := telemetry.CloseOutcomeFailed
	if a.Status == auction.AuctionStatusCompleted {
		outcome = telemetry.CloseOutcomeWon
	}
	s.metrics.RecordAuctionClosed(ctx, string(a.Type), outcome)
}

func (s *BiddingService) respond(a *auction.Auction, err error) (*AuctionResponse, error) {
	if err != nil {
		return nil, err
	}
	resp := ToAuctionResponse(a, s.now())
	return &resp, nil
}

// PlaceBid submits a bid. The whole check-and-apply step runs against one
// aggregate version; a concurrent writer forces a reload and a fresh
// evaluation, so a bid is never accepted against a stale price.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID uuid.UUID, req PlaceBidRequest) (*BidResponse, error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "place_bid",
		attribute.String(telemetry.SpanAttrAuctionID, auctionID.String()),
		attribute.String(telemetry.SpanAttrBidderID, req.BidderID.String()),
		attribute.String(telemetry.SpanAttrAmount, req.Amount.String()),
	)
	defer span.End()

	var (
		bid       *auction.Bid
		a         *auction.Auction
		attempts  int
		err       error
		labelType string
	)
	if err = validateRequest(s.validate, req); err == nil {
		telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(serviceName, "place_bid", ""), func(ctx context.Context) {
			a, attempts, err = s.mutate(ctx, auctionID, func(a *auction.Auction, now time.Time) error {
				b, err := auction.NewBid(a.ID, req.BidderID, req.Amount, now, req.IsAutomatic, req.Notes)
				if err != nil {
					return err
				}
				if err := a.PlaceBid(b, now); err != nil {
					return err
				}
				bid = a.FindBid(b.ID)
				return nil
			})
		})
	}
	if a != nil {
		labelType = string(a.Type)
		span.SetAttributes(attribute.String(telemetry.SpanAttrAuctionType, labelType))
	}
	span.SetAttributes(attribute.Int(telemetry.SpanAttrAttempt, attempts))

	if err != nil {
		s.recordBidFailure(ctx, span, labelType, attempts, start, auctionID, req, err)
		return nil, err
	}

	span.SetAttributes(attribute.String(telemetry.SpanAttrBidID, bid.ID.String()))
	if s.metrics != nil {
		s.metrics.RecordBid(ctx, labelType, telemetry.BidOutcomeAccepted, "", attempts, time.Since(start))
		if a.Status.IsTerminal() {
			s.recordClose(ctx, a)
		}
	}
	logger.Scoped(ctx, s.logger).Info("Bid placed",
		zap.String("auction_id", auctionID.String()),
		zap.String("bid_id", bid.ID.String()),
		zap.String("bidder_id", req.BidderID.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("bid_status", string(bid.Status)),
		zap.Int("attempt", attempts),
	)
	resp := ToBidResponse(bid, false)
	return &resp, nil
}

func (s *BiddingService) recordBidFailure(ctx context.Context, span trace.Span, auctionType string, attempts int, start time.Time,
	auctionID uuid.UUID, req PlaceBidRequest, err error) {
	telemetry.RecordError(span, err)

	outcome, reason := telemetry.BidOutcomeError, ""
	var de *shared.DomainError
	if errors.As(err, &de) {
		reason = de.Code
		outcome = telemetry.BidOutcomeRejected
		if de.Code == shared.CodeConcurrencyConflict {
			outcome = telemetry.BidOutcomeConflict
		}
	}
	if s.metrics != nil {
		s.metrics.RecordBid(ctx, auctionType, outcome, reason, attempts, time.Since(start))
	}

	fields := []zap.Field{
		zap.String("auction_id", auctionID.String()),
		zap.String("bidder_id", req.BidderID.String()),
		zap.String("amount", req.Amount.String()),
		zap.Int("attempt", attempts),
		zap.Error(err),
	}
	if outcome == telemetry.BidOutcomeError {
		logger.Scoped(ctx, s.logger).Error("Bid failed", fields...)
		return
	}
	logger.Scoped(ctx, s.logger).Info("Bid rejected", append(fields, zap.String("code", reason))...)
}
