package model

import "github.com/shopspring/decimal"

// AnalysisRequest is the body of POST /api/v1/underwriting/analysis.
type AnalysisRequest struct {
	RetroTypeID      int             `json:"retroTypeId"`
	Year             int             `json:"year"`
	Currency         string          `json:"currency"`
	ExchangeRate     decimal.Decimal `json:"exchangeRate"`
	SumInsuredOs     decimal.Decimal `json:"sumInsuredOs"`
	PremiumOs        decimal.Decimal `json:"premiumOs"`
	ShareOfferedPct  decimal.Decimal `json:"shareOfferedPct"`
	ShareAcceptedPct decimal.Decimal `json:"shareAcceptedPct"`
}

// AnalysisResponse is the flat response of the analysis endpoint. Layer
// fields are present only for the layers of the retro type's kind.
type AnalysisResponse struct {
	CalculationStatus     CalculationStatus `json:"calculationStatus"`
	Message               string            `json:"message"`
	SumInsuredOs          decimal.Decimal   `json:"sumInsuredOs"`
	PremiumOs             decimal.Decimal   `json:"premiumOs"`
	SumInsuredTzs         decimal.Decimal   `json:"sumInsuredTzs"`
	PremiumTzs            decimal.Decimal   `json:"premiumTzs"`
	ExposureOffered       decimal.Decimal   `json:"exposureOffered"`
	PremiumOffered        decimal.Decimal   `json:"premiumOffered"`
	ExposureAccepted      decimal.Decimal   `json:"exposureAccepted"`
	PremiumAccepted       decimal.Decimal   `json:"premiumAccepted"`
	RetentionExposure     decimal.Decimal   `json:"retentionExposure"`
	RetentionPremium      decimal.Decimal   `json:"retentionPremium"`
	SurplusExposure       *decimal.Decimal  `json:"surplusExposure,omitempty"`
	SurplusPremium        *decimal.Decimal  `json:"surplusPremium,omitempty"`
	FacRetroExposure      *decimal.Decimal  `json:"facRetroExposure,omitempty"`
	FacRetroPremium       *decimal.Decimal  `json:"facRetroPremium,omitempty"`
	FirstSurplusExposure  *decimal.Decimal  `json:"firstSurplusExposure,omitempty"`
	FirstSurplusPremium   *decimal.Decimal  `json:"firstSurplusPremium,omitempty"`
	SecondSurplusExposure *decimal.Decimal  `json:"secondSurplusExposure,omitempty"`
	SecondSurplusPremium  *decimal.Decimal  `json:"secondSurplusPremium,omitempty"`
	AutoFacRetroExposure  *decimal.Decimal  `json:"autoFacRetroExposure,omitempty"`
	AutoFacRetroPremium   *decimal.Decimal  `json:"autoFacRetroPremium,omitempty"`
	LayerBreakdown        []LayerResult     `json:"layerBreakdown"`
	TotalExposure         decimal.Decimal   `json:"totalExposure"`
	TotalPremium          decimal.Decimal   `json:"totalPremium"`
}

// NewAnalysisResponse flattens a calculation result into the analysis wire
// shape.
func NewAnalysisResponse(r CalculationResult) AnalysisResponse {
	resp := AnalysisResponse{
		CalculationStatus: r.Status,
		Message:           r.Message,
		SumInsuredOs:      r.SumInsuredOs,
		PremiumOs:         r.PremiumOs,
		SumInsuredTzs:     r.SumInsuredTzs,
		PremiumTzs:        r.PremiumTzs,
		ExposureOffered:   r.ExposureOffered,
		PremiumOffered:    r.PremiumOffered,
		ExposureAccepted:  r.ExposureAccepted,
		PremiumAccepted:   r.PremiumAccepted,
		RetentionExposure: r.RetentionExposure,
		RetentionPremium:  r.RetentionPremium,
		LayerBreakdown:    r.LayerBreakdown,
		TotalExposure:     r.TotalExposure,
		TotalPremium:      r.TotalPremium,
	}
	if resp.LayerBreakdown == nil {
		resp.LayerBreakdown = []LayerResult{}
	}
	flat := []struct {
		name              string
		exposure, premium **decimal.Decimal
	}{
		{LayerSurplus, &resp.SurplusExposure, &resp.SurplusPremium},
		{LayerFacRetro, &resp.FacRetroExposure, &resp.FacRetroPremium},
		{LayerFirstSurplus, &resp.FirstSurplusExposure, &resp.FirstSurplusPremium},
		{LayerSecondSurplus, &resp.SecondSurplusExposure, &resp.SecondSurplusPremium},
		{LayerAutoFacRetro, &resp.AutoFacRetroExposure, &resp.AutoFacRetroPremium},
	}
	for _, f := range flat {
		if l, ok := r.Layer(f.name); ok {
			*f.exposure, *f.premium = &l.Exposure, &l.Premium
		}
	}
	return resp
}
