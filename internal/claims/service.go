// Package claims provides the HTTP handlers for claim registration: the
// net/retention preview, registration under a CLM reference, and the claims
// register reports and dashboard.
package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tanre/retro-engine/internal/claimref"
	"github.com/tanre/retro-engine/internal/events"
	"github.com/tanre/retro-engine/internal/metrics"
	"github.com/tanre/retro-engine/internal/model"
	"github.com/tanre/retro-engine/internal/numeric"
	"github.com/tanre/retro-engine/internal/report"
	"github.com/tanre/retro-engine/internal/share"
	"github.com/tanre/retro-engine/internal/store"
)

// ErrInvalidClaim is returned (wrapped) when a registration fails validation.
var ErrInvalidClaim = errors.New("claims: invalid claim")

// Service handles claim operations.
type Service struct {
	store     store.Store
	publisher events.Publisher // optional
	now       func() time.Time
}

// NewService creates a new claims service.
// Pass nil for pub if WebSocket broadcasting is not needed.
func NewService(st store.Store, pub events.Publisher) *Service {
	return &Service{
		store:     st,
		publisher: pub,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Routes registers the claims endpoints on r (mounted at /api/v1).
func (s *Service) Routes(r chi.Router) {
	r.Post("/claims/preview", s.Preview)
	r.Post("/claims", s.RegisterClaim)
	r.Get("/claims", s.ListClaims)
	r.Get("/claims/summary", s.Summary)
	r.Get("/claims/report.csv", s.ReportCSV)
	r.Get("/claims/report.xlsx", s.ReportXLSX)
	r.Get("/claims/{claimID}", s.GetClaim)
}

// --- Request types ---

// ContractRequest is a selected contract as typed on the registration form.
type ContractRequest struct {
	ContractID     string          `json:"contractId"`
	ContractNumber string          `json:"contractNumber"`
	ShareSigned    numeric.Lenient `json:"shareSigned"`
	Retro          numeric.Lenient `json:"retro"`
}

// PreviewRequest is the JSON body for POST /claims/preview.
type PreviewRequest struct {
	CurrentReserve    numeric.Lenient   `json:"currentReserve"`
	Salvage           numeric.Lenient   `json:"salvage"`
	SelectedContracts []ContractRequest `json:"selectedContracts"`
}

// RegisterRequest is the JSON body for POST /claims. Dates are YYYY-MM-DD
// or DD/MM/YYYY.
type RegisterRequest struct {
	PreviewRequest
	DateOfLoss      string `json:"dateOfLoss"`
	DateReceived    string `json:"dateReceived"`
	OriginalInsured string `json:"originalInsured"`
	CauseOfLoss     string `json:"causeOfLoss"`
}

// Input converts the form values into the calculator input.
func (p PreviewRequest) Input() model.ClaimInput {
	in := model.ClaimInput{
		CurrentReserve:    model.MonetaryAmount{Value: p.CurrentReserve.Decimal, CurrencyCode: model.BaseCurrency},
		Salvage:           model.MonetaryAmount{Value: p.Salvage.Decimal, CurrencyCode: model.BaseCurrency},
		SelectedContracts: make([]model.ContractShare, 0, len(p.SelectedContracts)),
	}
	for _, c := range p.SelectedContracts {
		in.SelectedContracts = append(in.SelectedContracts, model.ContractShare{
			ContractID:     c.ContractID,
			ContractNumber: c.ContractNumber,
			ShareSignedPct: c.ShareSigned.Decimal,
			RetroPct:       c.Retro.Decimal,
		})
	}
	return in
}

// --- Operations ---

// Register validates a registration, assigns the next claim id of the
// current year, computes the summary and stores the claim.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*model.RegisteredClaim, error) {
	in := req.Input()
	dateOfLoss, dateReceived, err := validate(req, in)
	if err != nil {
		return nil, err
	}

	now := s.now()
	seq, err := s.store.NextClaimSequence(ctx, now.Year())
	if err != nil {
		return nil, fmt.Errorf("reserve claim number: %w", err)
	}
	id, err := claimref.New(now.Year(), seq)
	if err != nil {
		return nil, err
	}

	claim := &model.RegisteredClaim{
		ClaimID:         id,
		DateRegistered:  now,
		DateOfLoss:      dateOfLoss,
		DateReceived:    dateReceived,
		OriginalInsured: strings.TrimSpace(req.OriginalInsured),
		CauseOfLoss:     strings.TrimSpace(req.CauseOfLoss),
		CurrentReserve:  in.CurrentReserve.Value,
		Salvage:         in.Salvage.Value,
		Summary:         share.CalculateClaim(in),
		Contracts:       in.SelectedContracts,
	}
	if err := s.store.InsertClaim(ctx, claim); err != nil {
		return nil, fmt.Errorf("store claim %s: %w", id, err)
	}

	metrics.ClaimsRegistered.Inc()
	metrics.CalculationsTotal.WithLabelValues("claim", string(model.StatusSuccess)).Inc()
	slog.Info("claim registered",
		"claim_id", id,
		"insured", claim.OriginalInsured,
		"net", claim.Summary.NetAmount.String(),
		"tanre_tzs", claim.Summary.CedantShareAmount.String(),
		"retention", claim.Summary.Retention.String(),
		"contracts", len(claim.Contracts),
	)
	if s.publisher != nil {
		s.publisher.Publish(events.Event{
			Type:    events.TypeClaimRegistered,
			ClaimID: id,
			Amount:  claim.Summary.Retention.String(),
		})
	}
	return claim, nil
}

func validate(req RegisterRequest, in model.ClaimInput) (time.Time, time.Time, error) {
	var zero time.Time
	if strings.TrimSpace(req.OriginalInsured) == "" {
		return zero, zero, fmt.Errorf("%w: original insured is required", ErrInvalidClaim)
	}
	if len(in.SelectedContracts) == 0 {
		return zero, zero, fmt.Errorf("%w: at least one contract must be selected", ErrInvalidClaim)
	}
	if in.CurrentReserve.Value.IsNegative() || in.Salvage.Value.IsNegative() {
		return zero, zero, fmt.Errorf("%w: reserve and salvage must not be negative", ErrInvalidClaim)
	}
	if strings.TrimSpace(req.DateOfLoss) == "" {
		return zero, zero, fmt.Errorf("%w: date of loss is required", ErrInvalidClaim)
	}
	dateOfLoss, err := parseDate(req.DateOfLoss)
	if err != nil {
		return zero, zero, err
	}
	var dateReceived time.Time
	if strings.TrimSpace(req.DateReceived) != "" {
		if dateReceived, err = parseDate(req.DateReceived); err != nil {
			return zero, zero, err
		}
		if dateOfLoss.After(dateReceived) {
			return zero, zero, fmt.Errorf("%w: date of loss is after date received", ErrInvalidClaim)
		}
	}
	return dateOfLoss, dateReceived, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD or DD/MM/YYYY", ErrInvalidClaim, s)
}

// --- HTTP Handlers ---

// Preview handles POST /api/v1/claims/preview
// Nothing is stored.
func (s *Service) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	summary := share.CalculateClaim(req.Input())
	metrics.CalculationsTotal.WithLabelValues("claim_preview", string(model.StatusSuccess)).Inc()
	writeJSON(w, http.StatusOK, summary)
}

// RegisterClaim handles POST /api/v1/claims
func (s *Service) RegisterClaim(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	claim, err := s.Register(r.Context(), req)
	if errors.Is(err, ErrInvalidClaim) {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("claim registration failed", "err", err)
		writeError(w, "failed to register claim", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, claim)
}

// ListClaims handles GET /api/v1/claims
func (s *Service) ListClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := s.store.ListClaims(r.Context())
	if err != nil {
		writeError(w, "failed to list claims", http.StatusInternalServerError)
		return
	}
	if claims == nil {
		claims = []model.RegisteredClaim{}
	}
	writeJSON(w, http.StatusOK, claims)
}

// GetClaim handles GET /api/v1/claims/{claimID}
func (s *Service) GetClaim(w http.ResponseWriter, r *http.Request) {
	ref, err := claimref.Parse(chi.URLParam(r, "claimID"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	claim, err := s.store.GetClaim(r.Context(), ref.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, "claim not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, "failed to load claim", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

// Summary handles GET /api/v1/claims/summary
func (s *Service) Summary(w http.ResponseWriter, r *http.Request) {
	claims, err := s.store.ListClaims(r.Context())
	if err != nil {
		writeError(w, "failed to list claims", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report.Summarize(claims))
}

// ReportCSV handles GET /api/v1/claims/report.csv
func (s *Service) ReportCSV(w http.ResponseWriter, r *http.Request) {
	claims, err := s.store.ListClaims(r.Context())
	if err != nil {
		writeError(w, "failed to list claims", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+s.reportName("csv")+`"`)
	if err := report.WriteClaimsCSV(w, claims); err != nil {
		slog.Error("claims csv export failed", "err", err)
	}
}

// ReportXLSX handles GET /api/v1/claims/report.xlsx
func (s *Service) ReportXLSX(w http.ResponseWriter, r *http.Request) {
	claims, err := s.store.ListClaims(r.Context())
	if err != nil {
		writeError(w, "failed to list claims", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+s.reportName("xlsx")+`"`)
	if err := report.WriteClaimsXLSX(w, claims, report.Summarize(claims)); err != nil {
		slog.Error("claims xlsx export failed", "err", err)
	}
}

func (s *Service) reportName(ext string) string {
	return "claims-register-" + s.now().Format("2006-01-02") + "." + ext
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
