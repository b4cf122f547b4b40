package underwriting_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tanre/retro-engine/internal/model"
	"github.com/tanre/retro-engine/internal/share"
	"github.com/tanre/retro-engine/internal/store"
	"github.com/tanre/retro-engine/internal/underwriting"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTestEnv creates a test Service with in-memory store and chi router.
func newTestEnv(t *testing.T) (*underwriting.Service, *store.MemoryStore, chi.Router) {
	t.Helper()
	ms := store.NewMemoryStore()
	seedReferenceData(t, ms)
	svc := underwriting.NewService(ms, share.DefaultPolicy(), nil)

	r := chi.NewRouter()
	r.Route("/api/v1", svc.Routes)
	return svc, ms, r
}

// seedReferenceData stores a facultative fire type (60/40/0 in 2024), a
// policy-cession engineering type (50/20/20/10 in 2024) and a USD rate.
func seedReferenceData(t *testing.T, ms *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	must := func(err error) {
		if err != nil {
			t.Fatalf("failed to seed reference data: %v", err)
		}
	}
	must(ms.UpsertRetroType(ctx, &model.RetroType{ID: 1, Name: "Fire Facultative", Kind: model.KindFacultative, LineOfBusiness: "FIRE"}))
	must(ms.UpsertRetroType(ctx, &model.RetroType{ID: 2, Name: "Engineering Cession", Kind: model.KindPolicyCession, LineOfBusiness: "ENGINEERING"}))
	must(ms.UpsertRetroProgram(ctx, &model.RetroProgram{
		RetroTypeID: 1, Year: 2024,
		RetentionPct: d("60"), SurplusPct: d("40"), FacRetroPct: d("0"),
	}))
	must(ms.UpsertRetroProgram(ctx, &model.RetroProgram{
		RetroTypeID: 2, Year: 2024,
		RetentionPct: d("50"), FirstSurplusPct: d("20"), SecondSurplusPct: d("20"), AutoFacRetroPct: d("10"),
	}))
	must(ms.SetExchangeRate(ctx, &model.ExchangeRate{
		FromCurrency: "USD", ToCurrency: "TZS", Rate: d("2500"), UpdatedAt: time.Now().UTC(),
	}))
}

func do(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return v
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Errorf("%s: expected %s, got %s", field, want, got.String())
	}
}

func facultativeRequest() model.AnalysisRequest {
	return model.AnalysisRequest{
		RetroTypeID:      1,
		Year:             2024,
		Currency:         "USD",
		ExchangeRate:     d("2500"),
		SumInsuredOs:     d("5000000"),
		PremiumOs:        d("100000"),
		ShareOfferedPct:  d("50"),
		ShareAcceptedPct: d("50"),
	}
}

// --- Analysis tests ---

func TestAnalyze_Facultative(t *testing.T) {
	_, _, router := newTestEnv(t)

	w := do(t, router, "POST", "/api/v1/underwriting/analysis", facultativeRequest())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode[model.AnalysisResponse](t, w)
	if resp.CalculationStatus != model.StatusSuccess {
		t.Fatalf("expected SUCCESS, got %s (%s)", resp.CalculationStatus, resp.Message)
	}
	assertDecimal(t, "12500000000", resp.SumInsuredTzs, "sumInsuredTzs")
	assertDecimal(t, "250000000", resp.PremiumTzs, "premiumTzs")
	assertDecimal(t, "6250000000", resp.ExposureOffered, "exposureOffered")
	assertDecimal(t, "6250000000", resp.ExposureAccepted, "exposureAccepted")
	assertDecimal(t, "3750000000", resp.RetentionExposure, "retentionExposure")
	assertDecimal(t, "6250000000", resp.TotalExposure, "totalExposure")

	if resp.SurplusExposure == nil || resp.FacRetroExposure == nil {
		t.Fatal("expected surplus and facRetro fields for a facultative type")
	}
	assertDecimal(t, "2500000000", *resp.SurplusExposure, "surplusExposure")
	assertDecimal(t, "50000000", *resp.SurplusPremium, "surplusPremium")
	assertDecimal(t, "0", *resp.FacRetroExposure, "facRetroExposure")
	if resp.FirstSurplusExposure != nil {
		t.Error("policy-cession fields must be absent for a facultative type")
	}
}

func TestAnalyze_PolicyCessionLayers(t *testing.T) {
	_, _, router := newTestEnv(t)

	req := facultativeRequest()
	req.RetroTypeID = 2
	w := do(t, router, "POST", "/api/v1/underwriting/analysis", req)
	resp := decode[model.AnalysisResponse](t, w)

	if resp.CalculationStatus != model.StatusSuccess {
		t.Fatalf("expected SUCCESS, got %s (%s)", resp.CalculationStatus, resp.Message)
	}
	if resp.FirstSurplusExposure == nil || resp.SecondSurplusExposure == nil || resp.AutoFacRetroExposure == nil {
		t.Fatal("expected all policy-cession layer fields")
	}
	assertDecimal(t, "1250000000", *resp.FirstSurplusExposure, "firstSurplusExposure")
	assertDecimal(t, "1250000000", *resp.SecondSurplusExposure, "secondSurplusExposure")
	assertDecimal(t, "625000000", *resp.AutoFacRetroExposure, "autoFacRetroExposure")
	assertDecimal(t, "3125000000", resp.RetentionExposure, "retentionExposure")
	if resp.SurplusExposure != nil {
		t.Error("facultative fields must be absent for a policy-cession type")
	}
}

func TestAnalyze_FallsBackToStoredRate(t *testing.T) {
	_, _, router := newTestEnv(t)

	req := facultativeRequest()
	req.ExchangeRate = decimal.Zero
	resp := decode[model.AnalysisResponse](t, do(t, router, "POST", "/api/v1/underwriting/analysis", req))

	assertDecimal(t, "12500000000", resp.SumInsuredTzs, "sumInsuredTzs")
}

func TestAnalyze_MissingRateIsErrorResult(t *testing.T) {
	_, _, router := newTestEnv(t)

	req := facultativeRequest()
	req.Currency = "EUR"
	req.ExchangeRate = decimal.Zero
	w := do(t, router, "POST", "/api/v1/underwriting/analysis", req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode[model.AnalysisResponse](t, w)
	if resp.CalculationStatus != model.StatusError {
		t.Fatalf("expected ERROR, got %s", resp.CalculationStatus)
	}
	assertDecimal(t, "0", resp.TotalExposure, "totalExposure")
}

func TestAnalyze_UnknownRetroTypeIsErrorResult(t *testing.T) {
	_, _, router := newTestEnv(t)

	req := facultativeRequest()
	req.RetroTypeID = 99
	w := do(t, router, "POST", "/api/v1/underwriting/analysis", req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode[model.AnalysisResponse](t, w)
	if resp.CalculationStatus != model.StatusError {
		t.Fatalf("expected ERROR, got %s", resp.CalculationStatus)
	}
	if resp.Message != "Retro type 99 not found" {
		t.Errorf("unexpected message %q", resp.Message)
	}
}

func TestAnalyze_MissingRetroTypeIsErrorResult(t *testing.T) {
	_, _, router := newTestEnv(t)

	req := facultativeRequest()
	req.RetroTypeID = 0
	resp := decode[model.AnalysisResponse](t, do(t, router, "POST", "/api/v1/underwriting/analysis", req))
	if resp.CalculationStatus != model.StatusError || resp.Message != "Retro type is required" {
		t.Fatalf("expected retro type required error, got %s %q", resp.CalculationStatus, resp.Message)
	}
}

func TestAnalyze_RejectsNegativeAmounts(t *testing.T) {
	_, _, router := newTestEnv(t)

	req := facultativeRequest()
	req.PremiumOs = d("-1")
	w := do(t, router, "POST", "/api/v1/underwriting/analysis", req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAnalyze_RejectsOutOfRangeAmounts(t *testing.T) {
	_, _, router := newTestEnv(t)

	for _, body := range []string{
		`{"retroTypeId": 1, "year": 2024, "currency": "TZS", "sumInsuredOs": 1e50000000}`,
		`{"retroTypeId": 1, "year": 2024, "currency": "TZS", "premiumOs": "1e-50000000"}`,
		`{"retroTypeId": 1, "year": 2024, "currency": "TZS", "shareOfferedPct": 1e21}`,
	} {
		w := do(t, router, "POST", "/api/v1/underwriting/analysis", json.RawMessage(body))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
			continue
		}
		if e := decode[map[string]string](t, w); e["error"] != "amount out of range" {
			t.Errorf("%s: error = %q", body, e["error"])
		}
	}

	if w := do(t, router, "PUT", "/api/v1/exchange-rates/EUR", json.RawMessage(`{"rate": 1e50000000}`)); w.Code != http.StatusBadRequest {
		t.Errorf("exchange rate: expected 400, got %d", w.Code)
	}
	if w := do(t, router, "PUT", "/api/v1/retro-types/1/programs/2026", json.RawMessage(`{"retentionPct": "1e50000000"}`)); w.Code != http.StatusBadRequest {
		t.Errorf("retro program: expected 400, got %d", w.Code)
	}
	if w := do(t, router, "POST", "/api/v1/offers", json.RawMessage(`{"currency": "USD", "exchangeRate": 1e50000000}`)); w.Code != http.StatusBadRequest {
		t.Errorf("offer: expected 400, got %d", w.Code)
	}
}

// --- Offer and configuration tests ---

func createOffer(t *testing.T, router chi.Router) model.Offer {
	t.Helper()
	w := do(t, router, "POST", "/api/v1/offers", underwriting.CreateOfferRequest{
		Reference:      "UW/2024/0042",
		Insured:        "Kilimanjaro Textiles Ltd",
		LineOfBusiness: "FIRE",
		Currency:       "usd",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create offer: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decode[model.Offer](t, w)
}

func createConfiguration(t *testing.T, router chi.Router, offerID string, retroTypeID int) model.RetroConfiguration {
	t.Helper()
	body := map[string]any{
		"retroTypeId":      retroTypeID,
		"year":             2024,
		"sumInsuredOs":     "5,000,000",
		"premiumOs":        100000,
		"shareOfferedPct":  "50",
		"shareAcceptedPct": "50%",
	}
	w := do(t, router, "POST", "/api/v1/offers/"+offerID+"/configurations", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create configuration: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decode[model.RetroConfiguration](t, w)
}

func TestCreateOffer_UsesStoredRate(t *testing.T) {
	_, _, router := newTestEnv(t)

	offer := createOffer(t, router)
	if offer.Currency != "USD" {
		t.Errorf("expected currency normalized to USD, got %s", offer.Currency)
	}
	assertDecimal(t, "2500", offer.ExchangeRate, "exchangeRate")
}

func TestCreateOffer_UnknownCurrencyWithoutRate(t *testing.T) {
	_, _, router := newTestEnv(t)

	w := do(t, router, "POST", "/api/v1/offers", underwriting.CreateOfferRequest{Currency: "KES"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestConfiguration_LenientInputs(t *testing.T) {
	_, _, router := newTestEnv(t)
	offer := createOffer(t, router)

	cfg := createConfiguration(t, router, offer.ID, 1)
	// "5,000,000" stops at the comma and "50%" at the percent sign.
	assertDecimal(t, "5", cfg.SumInsured, "sumInsured")
	assertDecimal(t, "100000", cfg.Premium, "premium")
	assertDecimal(t, "50", cfg.ShareAcceptedPct, "shareAccepted")
	if cfg.State != model.StateNotCalculated {
		t.Errorf("expected NOT_CALCULATED, got %s", cfg.State)
	}
}

func TestCalculateConfiguration_Lifecycle(t *testing.T) {
	_, _, router := newTestEnv(t)
	offer := createOffer(t, router)
	cfg := createConfiguration(t, router, offer.ID, 1)

	base := "/api/v1/offers/" + offer.ID + "/configurations/" + cfg.ID

	// Fix the sum insured typed with separators.
	w := do(t, router, "PUT", base, map[string]any{
		"retroTypeId": 1, "year": 2024,
		"sumInsuredOs": "5000000", "premiumOs": "100000",
		"shareOfferedPct": "50", "shareAcceptedPct": "50",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update configuration: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, router, "POST", base+"/calculate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("calculate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decode[underwriting.ConfigurationView](t, w)
	if got.State != model.StateSuccess {
		t.Fatalf("expected SUCCESS, got %s (%s)", got.State, got.Message)
	}
	if got.Result == nil {
		t.Fatal("expected a result")
	}
	assertDecimal(t, "6250000000", got.Result.TotalExposure, "totalExposure")
	assertDecimal(t, "3750000000", got.Result.RetentionExposure, "retentionExposure")

	// Fresh result is not stale.
	view := decode[underwriting.OfferView](t, do(t, router, "GET", "/api/v1/offers/"+offer.ID, nil))
	if len(view.Configurations) != 1 || view.Configurations[0].Stale {
		t.Fatalf("expected one fresh configuration, got %+v", view.Configurations)
	}

	// A rate change keeps the old result and marks it stale.
	time.Sleep(2 * time.Millisecond)
	w = do(t, router, "PUT", "/api/v1/offers/"+offer.ID+"/exchange-rate", underwriting.UpdateOfferRateRequest{ExchangeRate: d("2600")})
	if w.Code != http.StatusOK {
		t.Fatalf("update rate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	view = decode[underwriting.OfferView](t, do(t, router, "GET", "/api/v1/offers/"+offer.ID, nil))
	if !view.Configurations[0].Stale {
		t.Error("expected configuration to be stale after rate change")
	}
	assertDecimal(t, "6250000000", view.Configurations[0].Result.TotalExposure, "kept totalExposure")

	// Recalculating picks up the new rate.
	got = decode[underwriting.ConfigurationView](t, do(t, router, "POST", base+"/calculate", nil))
	assertDecimal(t, "6500000000", got.Result.TotalExposure, "recalculated totalExposure")
}

func TestCalculateConfiguration_ErrorKeepsPreviousResult(t *testing.T) {
	_, _, router := newTestEnv(t)
	offer := createOffer(t, router)
	cfg := createConfiguration(t, router, offer.ID, 1)
	base := "/api/v1/offers/" + offer.ID + "/configurations/" + cfg.ID

	first := decode[underwriting.ConfigurationView](t, do(t, router, "POST", base+"/calculate", nil))
	if first.Result == nil {
		t.Fatal("expected a result from the first calculation")
	}

	// Point the configuration at a year without a program.
	do(t, router, "PUT", base, map[string]any{
		"retroTypeId": 1, "year": 2019,
		"sumInsuredOs": "5", "premiumOs": "100000",
		"shareOfferedPct": "50", "shareAcceptedPct": "50",
	})

	second := decode[underwriting.ConfigurationView](t, do(t, router, "POST", base+"/calculate", nil))
	if second.State != model.StateError {
		t.Fatalf("expected ERROR, got %s", second.State)
	}
	if second.Message != "No retro program for Fire Facultative in 2019" {
		t.Errorf("unexpected message %q", second.Message)
	}
	if second.Result == nil || !second.Result.TotalExposure.Equal(first.Result.TotalExposure) {
		t.Error("expected previous result to be kept on ERROR")
	}
}

func TestCalculateConfiguration_InProgressConflict(t *testing.T) {
	_, ms, router := newTestEnv(t)
	offer := createOffer(t, router)
	cfg := createConfiguration(t, router, offer.ID, 1)

	stored, err := ms.GetConfiguration(context.Background(), cfg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := stored.BeginCalculation(); err != nil {
		t.Fatal(err)
	}
	if err := ms.UpdateConfiguration(context.Background(), stored); err != nil {
		t.Fatal(err)
	}

	base := "/api/v1/offers/" + offer.ID + "/configurations/" + cfg.ID
	if w := do(t, router, "POST", base+"/calculate", nil); w.Code != http.StatusConflict {
		t.Errorf("calculate: expected 409, got %d", w.Code)
	}
	if w := do(t, router, "DELETE", base, nil); w.Code != http.StatusConflict {
		t.Errorf("delete: expected 409, got %d", w.Code)
	}
}

func TestCalculateConfiguration_ConcurrentCalls(t *testing.T) {
	svc, _, router := newTestEnv(t)
	offer := createOffer(t, router)
	cfg := createConfiguration(t, router, offer.ID, 2)

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := svc.CalculateConfiguration(context.Background(), offer.ID, cfg.ID)
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-errs; err != nil && err != model.ErrCalculationInProgress {
			t.Errorf("unexpected error: %v", err)
		}
	}

	view := decode[underwriting.OfferView](t, do(t, router, "GET", "/api/v1/offers/"+offer.ID, nil))
	if view.Configurations[0].State == model.StateCalculating {
		t.Error("configuration left in CALCULATING")
	}
}

// failingSaveStore fails the n-th UpdateConfiguration call after arm.
type failingSaveStore struct {
	*store.MemoryStore
	mu     sync.Mutex
	failOn int
	calls  int
}

func (s *failingSaveStore) arm(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn, s.calls = n, 0
}

func (s *failingSaveStore) UpdateConfiguration(ctx context.Context, cfg *model.RetroConfiguration) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls == s.failOn
	s.mu.Unlock()
	if fail {
		return errors.New("connection reset by peer")
	}
	return s.MemoryStore.UpdateConfiguration(ctx, cfg)
}

func TestCalculateConfiguration_FailedSaveReleasesConfiguration(t *testing.T) {
	ms := store.NewMemoryStore()
	seedReferenceData(t, ms)
	fs := &failingSaveStore{MemoryStore: ms}
	svc := underwriting.NewService(fs, share.DefaultPolicy(), nil)
	router := chi.NewRouter()
	router.Route("/api/v1", svc.Routes)

	offer := createOffer(t, router)
	cfg := createConfiguration(t, router, offer.ID, 1)
	base := "/api/v1/offers/" + offer.ID + "/configurations/" + cfg.ID

	// The CALCULATING save succeeds, the result save fails.
	fs.arm(2)
	if w := do(t, router, "POST", base+"/calculate", nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("calculate: expected 500, got %d: %s", w.Code, w.Body.String())
	}

	stored, err := ms.GetConfiguration(context.Background(), cfg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.State != model.StateError {
		t.Errorf("expected ERROR after failed save, got %s", stored.State)
	}
	if stored.Result != nil {
		t.Error("result of the unsaved calculation was stored")
	}

	fs.arm(0)
	w := do(t, router, "POST", base+"/calculate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("retry calculate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode[underwriting.ConfigurationView](t, w); got.State != model.StateSuccess {
		t.Errorf("retry: expected SUCCESS, got %s", got.State)
	}
	if w := do(t, router, "DELETE", base, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", w.Code)
	}
}

func TestDeleteConfiguration(t *testing.T) {
	_, _, router := newTestEnv(t)
	offer := createOffer(t, router)
	cfg := createConfiguration(t, router, offer.ID, 1)
	base := "/api/v1/offers/" + offer.ID + "/configurations/" + cfg.ID

	if w := do(t, router, "DELETE", base, nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w := do(t, router, "POST", base+"/calculate", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestConfiguration_WrongOffer(t *testing.T) {
	_, _, router := newTestEnv(t)
	offer := createOffer(t, router)
	other := createOffer(t, router)
	cfg := createConfiguration(t, router, offer.ID, 1)

	w := do(t, router, "POST", "/api/v1/offers/"+other.ID+"/configurations/"+cfg.ID+"/calculate", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// --- Reference data tests ---

func TestExchangeRates(t *testing.T) {
	_, _, router := newTestEnv(t)

	if w := do(t, router, "PUT", "/api/v1/exchange-rates/TZS", underwriting.ExchangeRateRequest{Rate: d("2")}); w.Code != http.StatusBadRequest {
		t.Errorf("TZS rate: expected 400, got %d", w.Code)
	}
	if w := do(t, router, "PUT", "/api/v1/exchange-rates/eur", underwriting.ExchangeRateRequest{Rate: d("0")}); w.Code != http.StatusBadRequest {
		t.Errorf("zero rate: expected 400, got %d", w.Code)
	}
	if w := do(t, router, "PUT", "/api/v1/exchange-rates/eur", underwriting.ExchangeRateRequest{Rate: d("2750.5")}); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	rate := decode[model.ExchangeRate](t, do(t, router, "GET", "/api/v1/exchange-rates/EUR", nil))
	assertDecimal(t, "2750.5", rate.Rate, "EUR rate")

	tzs := decode[model.ExchangeRate](t, do(t, router, "GET", "/api/v1/exchange-rates/tzs", nil))
	assertDecimal(t, "1", tzs.Rate, "TZS rate")

	rates := decode[[]model.ExchangeRate](t, do(t, router, "GET", "/api/v1/exchange-rates", nil))
	if len(rates) != 2 {
		t.Errorf("expected 2 stored rates, got %d", len(rates))
	}

	if w := do(t, router, "GET", "/api/v1/exchange-rates/GBP", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown rate: expected 404, got %d", w.Code)
	}
}

func TestRetroTypesAndPrograms(t *testing.T) {
	_, _, router := newTestEnv(t)

	w := do(t, router, "POST", "/api/v1/retro-types", model.RetroType{ID: 3, Name: "Marine", Kind: "facultative", LineOfBusiness: "MARINE"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, router, "POST", "/api/v1/retro-types", model.RetroType{ID: 4, Name: "Bad", Kind: "QUOTA"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown kind: expected 400, got %d", w.Code)
	}

	types := decode[[]model.RetroType](t, do(t, router, "GET", "/api/v1/retro-types", nil))
	if len(types) != 3 || types[2].Kind != model.KindFacultative {
		t.Fatalf("unexpected retro types %+v", types)
	}

	w = do(t, router, "PUT", "/api/v1/retro-types/3/programs/2025", model.RetroProgram{RetentionPct: d("70"), SurplusPct: d("30")})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	p := decode[model.RetroProgram](t, do(t, router, "GET", "/api/v1/retro-types/3/programs/2025", nil))
	if p.RetroTypeID != 3 || p.Year != 2025 {
		t.Errorf("program keyed wrongly: %+v", p)
	}
	assertDecimal(t, "70", p.RetentionPct, "retention")

	if w := do(t, router, "PUT", "/api/v1/retro-types/42/programs/2025", model.RetroProgram{}); w.Code != http.StatusNotFound {
		t.Errorf("unknown type: expected 404, got %d", w.Code)
	}
	if w := do(t, router, "GET", "/api/v1/retro-types/x/programs/2025", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", w.Code)
	}
}
