// Package model defines the core domain types shared across the retro engine.
// All monetary values use shopspring/decimal, never float64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the currency every exposure and premium is reported in.
const BaseCurrency = "TZS"

// MonetaryAmount is a value in a given currency.
type MonetaryAmount struct {
	Value        decimal.Decimal `json:"value"`
	CurrencyCode string          `json:"currencyCode"`
}

// ExchangeRate converts one unit of FromCurrency into BaseCurrency.
type ExchangeRate struct {
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
	Rate         decimal.Decimal `json:"rate"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Valid reports whether the rate can be used for conversion.
func (r ExchangeRate) Valid() bool {
	return r.Rate.IsPositive()
}

// Convert returns the base-currency equivalent of value.
func (r ExchangeRate) Convert(value decimal.Decimal) decimal.Decimal {
	return value.Mul(r.Rate)
}

// IdentityRate is the rate for amounts already held in the base currency.
func IdentityRate() ExchangeRate {
	return ExchangeRate{FromCurrency: BaseCurrency, ToCurrency: BaseCurrency, Rate: decimal.NewFromInt(1)}
}

// RetroKind selects which retrocession layers a retro type cedes into.
type RetroKind string

const (
	KindFacultative   RetroKind = "FACULTATIVE"
	KindPolicyCession RetroKind = "POLICY_CESSION"
)

// Valid reports whether k is a known retro kind.
func (k RetroKind) Valid() bool {
	return k == KindFacultative || k == KindPolicyCession
}

// Layer names as they appear in calculation results.
const (
	LayerSurplus       = "surplus"
	LayerFacRetro      = "facRetro"
	LayerFirstSurplus  = "firstSurplus"
	LayerSecondSurplus = "secondSurplus"
	LayerAutoFacRetro  = "autoFacRetro"
)

// RetroType is the reference-data entry selected on an underwriting offer.
type RetroType struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Kind           RetroKind `json:"kind"`
	LineOfBusiness string    `json:"lineOfBusiness"`
}

// RetroProgram holds the contractual retention and retro percentages of a
// retro type for one underwriting year. Only the fields matching the retro
// type's kind are used.
type RetroProgram struct {
	RetroTypeID      int             `json:"retroTypeId"`
	Year             int             `json:"year"`
	RetentionPct     decimal.Decimal `json:"retentionPct"`
	SurplusPct       decimal.Decimal `json:"surplusPct"`
	FacRetroPct      decimal.Decimal `json:"facRetroPct"`
	FirstSurplusPct  decimal.Decimal `json:"firstSurplusPct"`
	SecondSurplusPct decimal.Decimal `json:"secondSurplusPct"`
	AutoFacRetroPct  decimal.Decimal `json:"autoFacRetroPct"`
}

// Layers returns the retro layers the program cedes into for kind, in
// display order.
func (p RetroProgram) Layers(kind RetroKind) []LayerShare {
	switch kind {
	case KindFacultative:
		return []LayerShare{
			{Name: LayerSurplus, Pct: p.SurplusPct},
			{Name: LayerFacRetro, Pct: p.FacRetroPct},
		}
	case KindPolicyCession:
		return []LayerShare{
			{Name: LayerFirstSurplus, Pct: p.FirstSurplusPct},
			{Name: LayerSecondSurplus, Pct: p.SecondSurplusPct},
			{Name: LayerAutoFacRetro, Pct: p.AutoFacRetroPct},
		}
	}
	return nil
}

// LayerShare is one retro layer percentage applied to the accepted base.
type LayerShare struct {
	Name string          `json:"name"`
	Pct  decimal.Decimal `json:"pct"`
}

// OfferInput is everything the underwriting calculation reads.
type OfferInput struct {
	Kind             RetroKind       `json:"kind"`
	LineOfBusiness   string          `json:"lineOfBusiness"`
	SumInsured       MonetaryAmount  `json:"sumInsured"`
	Premium          MonetaryAmount  `json:"premium"`
	ShareOfferedPct  decimal.Decimal `json:"shareOfferedPct"`
	ShareAcceptedPct decimal.Decimal `json:"shareAcceptedPct"`
	RetentionPct     decimal.Decimal `json:"retentionPct"`
	Layers           []LayerShare    `json:"layers"`
}

// CalculationStatus is the business outcome of a calculation.
type CalculationStatus string

const (
	StatusSuccess CalculationStatus = "SUCCESS"
	StatusWarning CalculationStatus = "WARNING"
	StatusError   CalculationStatus = "ERROR"
)

// LayerResult is the exposure and premium ceded into one retro layer.
type LayerResult struct {
	Name     string          `json:"name"`
	Pct      decimal.Decimal `json:"pct"`
	Exposure decimal.Decimal `json:"exposure"`
	Premium  decimal.Decimal `json:"premium"`
}

// CalculationResult is produced wholesale by one calculation and never
// partially updated. All monetary fields except the *Os ones are in
// BaseCurrency.
type CalculationResult struct {
	Status            CalculationStatus `json:"calculationStatus"`
	Message           string            `json:"message"`
	SumInsuredOs      decimal.Decimal   `json:"sumInsuredOs"`
	PremiumOs         decimal.Decimal   `json:"premiumOs"`
	SumInsuredTzs     decimal.Decimal   `json:"sumInsuredTzs"`
	PremiumTzs        decimal.Decimal   `json:"premiumTzs"`
	ExposureOffered   decimal.Decimal   `json:"exposureOffered"`
	PremiumOffered    decimal.Decimal   `json:"premiumOffered"`
	ExposureAccepted  decimal.Decimal   `json:"exposureAccepted"`
	PremiumAccepted   decimal.Decimal   `json:"premiumAccepted"`
	RetentionExposure decimal.Decimal   `json:"retentionExposure"`
	RetentionPremium  decimal.Decimal   `json:"retentionPremium"`
	LayerBreakdown    []LayerResult     `json:"layerBreakdown"`
	TotalExposure     decimal.Decimal   `json:"totalExposure"`
	TotalPremium      decimal.Decimal   `json:"totalPremium"`
}

// Layer returns the named layer and whether the result has one.
func (r CalculationResult) Layer(name string) (LayerResult, bool) {
	for _, l := range r.LayerBreakdown {
		if l.Name == name {
			return l, true
		}
	}
	return LayerResult{Name: name}, false
}

// Offer is an underwriting offer. It owns its retro configurations and the
// currency/exchange-rate pair they are calculated with.
type Offer struct {
	ID             string          `json:"id"`
	Reference      string          `json:"reference"`
	Insured        string          `json:"insured"`
	LineOfBusiness string          `json:"lineOfBusiness"`
	Currency       string          `json:"currency"`
	ExchangeRate   decimal.Decimal `json:"exchangeRate"`
	RateUpdatedAt  time.Time       `json:"rateUpdatedAt"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Rate returns the offer's exchange rate into BaseCurrency.
func (o Offer) Rate() ExchangeRate {
	return ExchangeRate{
		FromCurrency: o.Currency,
		ToCurrency:   BaseCurrency,
		Rate:         o.ExchangeRate,
		UpdatedAt:    o.RateUpdatedAt,
	}
}
