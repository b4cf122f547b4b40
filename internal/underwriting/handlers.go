package underwriting

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tanre/retro-engine/internal/events"
	"github.com/tanre/retro-engine/internal/model"
	"github.com/tanre/retro-engine/internal/numeric"
	"github.com/tanre/retro-engine/internal/store"
)

// Routes registers the underwriting endpoints on r (mounted at /api/v1).
func (s *Service) Routes(r chi.Router) {
	// Reference data.
	r.Get("/retro-types", s.ListRetroTypes)
	r.Post("/retro-types", s.UpsertRetroType)
	r.Get("/retro-types/{retroTypeID}/programs/{year}", s.GetRetroProgram)
	r.Put("/retro-types/{retroTypeID}/programs/{year}", s.PutRetroProgram)
	r.Get("/exchange-rates", s.ListExchangeRates)
	r.Get("/exchange-rates/{currency}", s.GetExchangeRate)
	r.Put("/exchange-rates/{currency}", s.PutExchangeRate)

	// Stateless analysis.
	r.Post("/underwriting/analysis", s.AnalyzeOffer)

	// Offers and their retro configurations.
	r.Get("/offers", s.ListOffers)
	r.Post("/offers", s.CreateOffer)
	r.Get("/offers/{offerID}", s.GetOffer)
	r.Put("/offers/{offerID}/exchange-rate", s.UpdateOfferRate)
	r.Post("/offers/{offerID}/configurations", s.CreateConfiguration)
	r.Put("/offers/{offerID}/configurations/{configID}", s.UpdateConfiguration)
	r.Delete("/offers/{offerID}/configurations/{configID}", s.DeleteConfiguration)
	r.Post("/offers/{offerID}/configurations/{configID}/calculate", s.CalculateConfigurationHandler)
}

// --- Request/Response types ---

// ExchangeRateRequest is the JSON body for PUT /exchange-rates/{currency}.
type ExchangeRateRequest struct {
	Rate decimal.Decimal `json:"rate"`
}

// CreateOfferRequest is the JSON body for offer creation. A zero exchange
// rate takes the stored rate of the currency.
type CreateOfferRequest struct {
	Reference      string          `json:"reference"`
	Insured        string          `json:"insured"`
	LineOfBusiness string          `json:"lineOfBusiness"`
	Currency       string          `json:"currency"`
	ExchangeRate   decimal.Decimal `json:"exchangeRate"`
}

// UpdateOfferRateRequest is the JSON body for PUT /offers/{offerID}/exchange-rate.
type UpdateOfferRateRequest struct {
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
}

// ConfigurationRequest is the JSON body for creating or editing a retro
// configuration. Amounts and percentages are parsed leniently.
type ConfigurationRequest struct {
	RetroTypeID      int             `json:"retroTypeId"`
	Year             int             `json:"year"`
	SumInsuredOs     numeric.Lenient `json:"sumInsuredOs"`
	PremiumOs        numeric.Lenient `json:"premiumOs"`
	ShareOfferedPct  numeric.Lenient `json:"shareOfferedPct"`
	ShareAcceptedPct numeric.Lenient `json:"shareAcceptedPct"`
}

// ConfigurationView is a configuration with its staleness against the offer.
type ConfigurationView struct {
	model.RetroConfiguration
	Stale bool `json:"stale"`
}

// OfferView is an offer with its configurations.
type OfferView struct {
	model.Offer
	Configurations []ConfigurationView `json:"configurations"`
}

// --- Reference data handlers ---

// ListRetroTypes handles GET /api/v1/retro-types
func (s *Service) ListRetroTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.store.ListRetroTypes(r.Context())
	if err != nil {
		writeError(w, "failed to list retro types", http.StatusInternalServerError)
		return
	}
	if types == nil {
		types = []model.RetroType{}
	}
	writeJSON(w, http.StatusOK, types)
}

// UpsertRetroType handles POST /api/v1/retro-types
func (s *Service) UpsertRetroType(w http.ResponseWriter, r *http.Request) {
	var rt model.RetroType
	if err := json.NewDecoder(r.Body).Decode(&rt); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	rt.Kind = model.RetroKind(strings.ToUpper(string(rt.Kind)))
	switch {
	case rt.ID <= 0:
		writeError(w, "id must be positive", http.StatusBadRequest)
		return
	case strings.TrimSpace(rt.Name) == "":
		writeError(w, "name is required", http.StatusBadRequest)
		return
	case !rt.Kind.Valid():
		writeError(w, "kind must be FACULTATIVE or POLICY_CESSION", http.StatusBadRequest)
		return
	}

	if err := s.store.UpsertRetroType(r.Context(), &rt); err != nil {
		s.fail(w, err, "retro type")
		return
	}
	slog.Info("retro type saved", "id", rt.ID, "name", rt.Name, "kind", string(rt.Kind))
	writeJSON(w, http.StatusCreated, rt)
}

// GetRetroProgram handles GET /api/v1/retro-types/{retroTypeID}/programs/{year}
func (s *Service) GetRetroProgram(w http.ResponseWriter, r *http.Request) {
	id, year, ok := programPath(w, r)
	if !ok {
		return
	}
	p, err := s.store.GetRetroProgram(r.Context(), id, year)
	if err != nil {
		s.fail(w, err, "retro program")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PutRetroProgram handles PUT /api/v1/retro-types/{retroTypeID}/programs/{year}
func (s *Service) PutRetroProgram(w http.ResponseWriter, r *http.Request) {
	id, year, ok := programPath(w, r)
	if !ok {
		return
	}
	var p model.RetroProgram
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !inRange(w, p.RetentionPct, p.SurplusPct, p.FacRetroPct, p.FirstSurplusPct, p.SecondSurplusPct, p.AutoFacRetroPct) {
		return
	}
	p.RetroTypeID, p.Year = id, year

	ctx := r.Context()
	if _, err := s.store.GetRetroType(ctx, id); err != nil {
		s.fail(w, err, "retro type")
		return
	}
	if err := s.store.UpsertRetroProgram(ctx, &p); err != nil {
		s.fail(w, err, "retro type")
		return
	}
	slog.Info("retro program saved", "retro_type", id, "year", year, "retention", p.RetentionPct.String())
	writeJSON(w, http.StatusOK, p)
}

// ListExchangeRates handles GET /api/v1/exchange-rates
func (s *Service) ListExchangeRates(w http.ResponseWriter, r *http.Request) {
	rates, err := s.store.ListExchangeRates(r.Context())
	if err != nil {
		writeError(w, "failed to list exchange rates", http.StatusInternalServerError)
		return
	}
	if rates == nil {
		rates = []model.ExchangeRate{}
	}
	writeJSON(w, http.StatusOK, rates)
}

// GetExchangeRate handles GET /api/v1/exchange-rates/{currency}
func (s *Service) GetExchangeRate(w http.ResponseWriter, r *http.Request) {
	currency := strings.ToUpper(chi.URLParam(r, "currency"))
	if currency == model.BaseCurrency {
		writeJSON(w, http.StatusOK, model.IdentityRate())
		return
	}
	rate, err := s.store.GetExchangeRate(r.Context(), currency)
	if err != nil {
		s.fail(w, err, "exchange rate")
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

// PutExchangeRate handles PUT /api/v1/exchange-rates/{currency}
func (s *Service) PutExchangeRate(w http.ResponseWriter, r *http.Request) {
	currency := strings.ToUpper(chi.URLParam(r, "currency"))
	if len(currency) != 3 {
		writeError(w, "currency must be a 3-letter code", http.StatusBadRequest)
		return
	}
	if currency == model.BaseCurrency {
		writeError(w, "the TZS rate is fixed at 1", http.StatusBadRequest)
		return
	}

	var req ExchangeRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !inRange(w, req.Rate) {
		return
	}
	if !req.Rate.IsPositive() {
		writeError(w, "rate must be positive", http.StatusBadRequest)
		return
	}

	rate := &model.ExchangeRate{
		FromCurrency: currency,
		ToCurrency:   model.BaseCurrency,
		Rate:         req.Rate,
		UpdatedAt:    s.now(),
	}
	if err := s.store.SetExchangeRate(r.Context(), rate); err != nil {
		s.fail(w, err, "exchange rate")
		return
	}

	slog.Info("exchange rate updated", "currency", currency, "rate", req.Rate.String())
	s.publish(events.Event{Type: events.TypeExchangeRateUpdated, Currency: currency, Rate: req.Rate.String()})
	writeJSON(w, http.StatusOK, rate)
}

// --- Analysis ---

// AnalyzeOffer handles POST /api/v1/underwriting/analysis
// Business failures come back as an ERROR result with status 200.
func (s *Service) AnalyzeOffer(w http.ResponseWriter, r *http.Request) {
	var req model.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !inRange(w, req.ExchangeRate, req.SumInsuredOs, req.PremiumOs, req.ShareOfferedPct, req.ShareAcceptedPct) {
		return
	}
	if req.SumInsuredOs.IsNegative() || req.PremiumOs.IsNegative() {
		writeError(w, "sum insured and premium must not be negative", http.StatusBadRequest)
		return
	}
	if req.Year == 0 {
		req.Year = s.now().Year()
	}

	result, err := s.Analyze(r.Context(), req)
	if err != nil {
		slog.Error("analysis failed", "retro_type", req.RetroTypeID, "err", err)
		writeError(w, "failed to load reference data", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, model.NewAnalysisResponse(result))
}

// --- Offers ---

// ListOffers handles GET /api/v1/offers
func (s *Service) ListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := s.store.ListOffers(r.Context())
	if err != nil {
		writeError(w, "failed to list offers", http.StatusInternalServerError)
		return
	}
	if offers == nil {
		offers = []model.Offer{}
	}
	writeJSON(w, http.StatusOK, offers)
}

// CreateOffer handles POST /api/v1/offers
func (s *Service) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var req CreateOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		writeError(w, "currency must be a 3-letter code", http.StatusBadRequest)
		return
	}
	if !inRange(w, req.ExchangeRate) {
		return
	}
	if req.ExchangeRate.IsNegative() {
		writeError(w, "exchangeRate must not be negative", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	now := s.now()
	rate := req.ExchangeRate
	if !rate.IsPositive() {
		stored, err := s.lookupRate(ctx, currency)
		if err != nil {
			writeError(w, "failed to load exchange rate", http.StatusInternalServerError)
			return
		}
		if !stored.Valid() {
			writeError(w, "no exchange rate available for "+currency, http.StatusBadRequest)
			return
		}
		rate = stored.Rate
	}

	offer := &model.Offer{
		ID:             uuid.New().String(),
		Reference:      req.Reference,
		Insured:        req.Insured,
		LineOfBusiness: req.LineOfBusiness,
		Currency:       currency,
		ExchangeRate:   rate,
		RateUpdatedAt:  now,
		CreatedAt:      now,
	}
	if err := s.store.CreateOffer(ctx, offer); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	slog.Info("offer created",
		"id", offer.ID,
		"reference", offer.Reference,
		"currency", currency,
		"rate", rate.String(),
	)
	writeJSON(w, http.StatusCreated, offer)
}

// GetOffer handles GET /api/v1/offers/{offerID}
// Returns the offer with its configurations and their staleness.
func (s *Service) GetOffer(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")
	ctx := r.Context()

	offer, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		s.fail(w, err, "offer")
		return
	}
	configs, err := s.store.ListConfigurations(ctx, offerID)
	if err != nil {
		writeError(w, "failed to list configurations", http.StatusInternalServerError)
		return
	}

	view := OfferView{Offer: *offer, Configurations: make([]ConfigurationView, 0, len(configs))}
	for _, c := range configs {
		view.Configurations = append(view.Configurations, ConfigurationView{RetroConfiguration: c, Stale: c.Stale(*offer)})
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateOfferRate handles PUT /api/v1/offers/{offerID}/exchange-rate
// Existing results are kept and reported stale until recalculated.
func (s *Service) UpdateOfferRate(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")

	var req UpdateOfferRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !inRange(w, req.ExchangeRate) {
		return
	}
	if !req.ExchangeRate.IsPositive() {
		writeError(w, "exchangeRate must be positive", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if err := s.store.UpdateOfferRate(ctx, offerID, req.ExchangeRate, s.now()); err != nil {
		s.fail(w, err, "offer")
		return
	}
	offer, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		s.fail(w, err, "offer")
		return
	}

	slog.Info("offer exchange rate updated", "offer", offerID, "rate", req.ExchangeRate.String())
	s.publish(events.Event{
		Type:     events.TypeExchangeRateUpdated,
		OfferID:  offerID,
		Currency: offer.Currency,
		Rate:     req.ExchangeRate.String(),
	})
	writeJSON(w, http.StatusOK, offer)
}

// --- Configurations ---

// CreateConfiguration handles POST /api/v1/offers/{offerID}/configurations
func (s *Service) CreateConfiguration(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")

	req, ok := s.decodeConfiguration(w, r)
	if !ok {
		return
	}

	now := s.now()
	cfg := &model.RetroConfiguration{
		ID:               uuid.New().String(),
		OfferID:          offerID,
		RetroTypeID:      req.RetroTypeID,
		Year:             req.Year,
		SumInsured:       req.SumInsuredOs.Decimal,
		Premium:          req.PremiumOs.Decimal,
		ShareOfferedPct:  req.ShareOfferedPct.Decimal,
		ShareAcceptedPct: req.ShareAcceptedPct.Decimal,
		State:            model.StateNotCalculated,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateConfiguration(r.Context(), cfg); err != nil {
		s.fail(w, err, "offer")
		return
	}

	slog.Info("configuration created", "offer", offerID, "configuration", cfg.ID, "retro_type", cfg.RetroTypeID)
	writeJSON(w, http.StatusCreated, cfg)
}

// UpdateConfiguration handles PUT /api/v1/offers/{offerID}/configurations/{configID}
// The previous result stays visible and is reported stale.
func (s *Service) UpdateConfiguration(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")
	configID := chi.URLParam(r, "configID")

	req, ok := s.decodeConfiguration(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.store.GetConfiguration(ctx, configID)
	if err == nil && cfg.OfferID != offerID {
		err = store.ErrNotFound
	}
	if err != nil {
		s.fail(w, err, "configuration")
		return
	}
	if cfg.State == model.StateCalculating {
		s.fail(w, model.ErrCalculationInProgress, "configuration")
		return
	}

	cfg.RetroTypeID = req.RetroTypeID
	cfg.Year = req.Year
	cfg.SumInsured = req.SumInsuredOs.Decimal
	cfg.Premium = req.PremiumOs.Decimal
	cfg.ShareOfferedPct = req.ShareOfferedPct.Decimal
	cfg.ShareAcceptedPct = req.ShareAcceptedPct.Decimal
	cfg.UpdatedAt = s.now()

	if err := s.store.UpdateConfiguration(ctx, cfg); err != nil {
		s.fail(w, err, "configuration")
		return
	}
	offer, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		s.fail(w, err, "offer")
		return
	}
	writeJSON(w, http.StatusOK, ConfigurationView{RetroConfiguration: *cfg, Stale: cfg.Stale(*offer)})
}

// DeleteConfiguration handles DELETE /api/v1/offers/{offerID}/configurations/{configID}
func (s *Service) DeleteConfiguration(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")
	configID := chi.URLParam(r, "configID")
	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.store.GetConfiguration(ctx, configID)
	if err == nil && cfg.OfferID != offerID {
		err = store.ErrNotFound
	}
	if err != nil {
		s.fail(w, err, "configuration")
		return
	}
	if cfg.State == model.StateCalculating {
		s.fail(w, model.ErrCalculationInProgress, "configuration")
		return
	}
	if err := s.store.DeleteConfiguration(ctx, configID); err != nil {
		s.fail(w, err, "configuration")
		return
	}

	slog.Info("configuration deleted", "offer", offerID, "configuration", configID)
	w.WriteHeader(http.StatusNoContent)
}

// CalculateConfigurationHandler handles
// POST /api/v1/offers/{offerID}/configurations/{configID}/calculate
func (s *Service) CalculateConfigurationHandler(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")
	configID := chi.URLParam(r, "configID")

	cfg, err := s.CalculateConfiguration(r.Context(), offerID, configID)
	if err != nil {
		s.fail(w, err, "configuration")
		return
	}
	writeJSON(w, http.StatusOK, ConfigurationView{RetroConfiguration: *cfg})
}

// --- Helpers ---

func (s *Service) decodeConfiguration(w http.ResponseWriter, r *http.Request) (ConfigurationRequest, bool) {
	var req ConfigurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return req, false
	}
	if req.SumInsuredOs.IsNegative() || req.PremiumOs.IsNegative() {
		writeError(w, "sum insured and premium must not be negative", http.StatusBadRequest)
		return req, false
	}
	if req.Year == 0 {
		req.Year = s.now().Year()
	}
	return req, true
}

func programPath(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "retroTypeID"))
	if err != nil {
		writeError(w, "invalid retro type id", http.StatusBadRequest)
		return 0, 0, false
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, "invalid year", http.StatusBadRequest)
		return 0, 0, false
	}
	return id, year, true
}

// inRange writes a 400 and returns false when any of vals is too large or
// too precise to store.
func inRange(w http.ResponseWriter, vals ...decimal.Decimal) bool {
	for _, v := range vals {
		if !numeric.InRange(v) {
			writeError(w, "amount out of range", http.StatusBadRequest)
			return false
		}
	}
	return true
}

// fail maps store and state errors onto HTTP statuses.
func (s *Service) fail(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, what+" not found", http.StatusNotFound)
	case errors.Is(err, model.ErrCalculationInProgress):
		writeError(w, "calculation already in progress", http.StatusConflict)
	default:
		slog.Error("underwriting request failed", "what", what, "err", err)
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
