// Package underwriting provides the HTTP handlers and business logic for
// underwriting offers: reference data, retro configurations, and the
// share/retrocession analysis.
//
// All monetary values use shopspring/decimal, never float64.
package underwriting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tanre/retro-engine/internal/events"
	"github.com/tanre/retro-engine/internal/metrics"
	"github.com/tanre/retro-engine/internal/model"
	"github.com/tanre/retro-engine/internal/share"
	"github.com/tanre/retro-engine/internal/store"
)

// Service handles underwriting operations. A mutex serializes configuration
// state transitions (single-instance); the calculation itself runs outside
// the lock.
type Service struct {
	store     store.Store
	policy    share.Policy
	publisher events.Publisher // optional
	mu        sync.Mutex
	now       func() time.Time
}

// NewService creates a new underwriting service.
// Pass nil for pub if WebSocket broadcasting is not needed.
func NewService(st store.Store, policy share.Policy, pub events.Publisher) *Service {
	return &Service{
		store:     st,
		policy:    policy,
		publisher: pub,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) publish(ev events.Event) {
	if s.publisher != nil {
		s.publisher.Publish(ev)
	}
}

// Analyze runs the stateless analysis for a request. Unknown reference data
// yields an ERROR result; only store failures are returned as errors.
func (s *Service) Analyze(ctx context.Context, req model.AnalysisRequest) (model.CalculationResult, error) {
	start := time.Now()

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = model.BaseCurrency
	}

	var in model.OfferInput
	if req.RetroTypeID != 0 {
		rt, program, failure, err := s.reference(ctx, req.RetroTypeID, req.Year)
		if err != nil {
			return model.CalculationResult{}, err
		}
		if failure != "" {
			result := share.ErrorResult(failure)
			s.observe("unknown", result, start)
			return result, nil
		}
		in = share.OfferInputFor(*rt, *program, currency, req.SumInsuredOs, req.PremiumOs, req.ShareOfferedPct, req.ShareAcceptedPct)
	} else {
		// No retro type selected: the calculator reports it.
		in = model.OfferInput{
			SumInsured:       model.MonetaryAmount{Value: req.SumInsuredOs, CurrencyCode: currency},
			Premium:          model.MonetaryAmount{Value: req.PremiumOs, CurrencyCode: currency},
			ShareOfferedPct:  req.ShareOfferedPct,
			ShareAcceptedPct: req.ShareAcceptedPct,
		}
	}

	rate := model.ExchangeRate{FromCurrency: currency, ToCurrency: model.BaseCurrency, Rate: req.ExchangeRate}
	if !rate.Valid() {
		stored, err := s.lookupRate(ctx, currency)
		if err != nil {
			return model.CalculationResult{}, err
		}
		rate = stored
	}

	result := share.Calculate(in, rate, s.policy)
	s.observe(variant(in.Kind), result, start)
	return result, nil
}

// CalculateConfiguration recalculates one configuration of an offer and
// persists the outcome. It returns model.ErrCalculationInProgress when the
// configuration is already calculating and a wrapped store.ErrNotFound when
// the offer or configuration does not exist.
func (s *Service) CalculateConfiguration(ctx context.Context, offerID, configID string) (*model.RetroConfiguration, error) {
	start := time.Now()

	offer, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.begin(ctx, offerID, configID)
	if err != nil {
		return nil, err
	}

	result, kind, err := s.calculate(ctx, offer, cfg)
	if err != nil {
		s.abort(ctx, cfg, "Calculation failed: reference data unavailable")
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := *cfg
	cfg.CompleteCalculation(result, s.now())
	if err := s.store.UpdateConfiguration(ctx, cfg); err != nil {
		// The stored row is still CALCULATING with the previous numbers.
		s.release(ctx, &prev, "Calculation failed: result could not be saved")
		return nil, fmt.Errorf("save configuration %s: %w", cfg.ID, err)
	}

	s.observe(variant(kind), result, start)
	slog.Info("configuration calculated",
		"offer", offerID,
		"configuration", configID,
		"status", string(result.Status),
		"total_exposure", result.TotalExposure.String(),
		"total_premium", result.TotalPremium.String(),
	)
	s.publish(events.Event{
		Type:            events.TypeConfigurationCalculated,
		OfferID:         offerID,
		ConfigurationID: configID,
		Status:          string(result.Status),
		Message:         result.Message,
	})
	return cfg, nil
}

// begin moves the configuration into CALCULATING under the service lock.
func (s *Service) begin(ctx context.Context, offerID, configID string) (*model.RetroConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.store.GetConfiguration(ctx, configID)
	if err != nil {
		return nil, err
	}
	if cfg.OfferID != offerID {
		return nil, fmt.Errorf("configuration %s of offer %s: %w", configID, offerID, store.ErrNotFound)
	}
	if err := cfg.BeginCalculation(); err != nil {
		metrics.CalculationConflicts.Inc()
		return nil, err
	}
	if err := s.store.UpdateConfiguration(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save configuration %s: %w", cfg.ID, err)
	}
	return cfg, nil
}

// abort releases a configuration left in CALCULATING by a failed run.
func (s *Service) abort(ctx context.Context, cfg *model.RetroConfiguration, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release(ctx, cfg, message)
}

// release moves cfg to ERROR and saves it even when ctx is already
// cancelled. The caller holds s.mu.
func (s *Service) release(ctx context.Context, cfg *model.RetroConfiguration, message string) {
	cfg.AbortCalculation(message)
	if err := s.store.UpdateConfiguration(context.WithoutCancel(ctx), cfg); err != nil {
		slog.Error("failed to release configuration", "configuration", cfg.ID, "err", err)
	}
}

func (s *Service) calculate(ctx context.Context, offer *model.Offer, cfg *model.RetroConfiguration) (model.CalculationResult, model.RetroKind, error) {
	rt, program, failure, err := s.reference(ctx, cfg.RetroTypeID, cfg.Year)
	if err != nil {
		return model.CalculationResult{}, "", err
	}
	if failure != "" {
		return share.ErrorResult(failure), "", nil
	}

	rate := offer.Rate()
	if strings.EqualFold(offer.Currency, model.BaseCurrency) {
		rate = model.IdentityRate()
	}

	in := share.OfferInputFor(*rt, *program, offer.Currency, cfg.SumInsured, cfg.Premium, cfg.ShareOfferedPct, cfg.ShareAcceptedPct)
	if in.LineOfBusiness == "" {
		in.LineOfBusiness = offer.LineOfBusiness
	}
	return share.Calculate(in, rate, s.policy), rt.Kind, nil
}

// reference loads the retro type and its program for year. Missing records
// are reported as a failure message rather than an error.
func (s *Service) reference(ctx context.Context, retroTypeID, year int) (*model.RetroType, *model.RetroProgram, string, error) {
	rt, err := s.store.GetRetroType(ctx, retroTypeID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, fmt.Sprintf("Retro type %d not found", retroTypeID), nil
	}
	if err != nil {
		return nil, nil, "", err
	}

	program, err := s.store.GetRetroProgram(ctx, retroTypeID, year)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, fmt.Sprintf("No retro program for %s in %d", rt.Name, year), nil
	}
	if err != nil {
		return nil, nil, "", err
	}
	return rt, program, "", nil
}

// lookupRate returns the stored rate for currency, the identity rate for
// the base currency, or a zero rate when none is stored.
func (s *Service) lookupRate(ctx context.Context, currency string) (model.ExchangeRate, error) {
	if strings.EqualFold(currency, model.BaseCurrency) {
		return model.IdentityRate(), nil
	}
	rate, err := s.store.GetExchangeRate(ctx, currency)
	if errors.Is(err, store.ErrNotFound) {
		return model.ExchangeRate{FromCurrency: currency, ToCurrency: model.BaseCurrency}, nil
	}
	if err != nil {
		return model.ExchangeRate{}, err
	}
	return *rate, nil
}

func (s *Service) observe(v string, result model.CalculationResult, start time.Time) {
	metrics.CalculationsTotal.WithLabelValues(v, string(result.Status)).Inc()
	metrics.CalculationLatency.WithLabelValues(v).Observe(time.Since(start).Seconds())
}

func variant(kind model.RetroKind) string {
	if kind == "" {
		return "unknown"
	}
	return strings.ToLower(string(kind))
}
