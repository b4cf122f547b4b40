package share

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tanre/retro-engine/internal/model"
)

var hundred = decimal.NewFromInt(100)

// PartitionMode decides what happens when retention and retro layer
// percentages do not add up to 100.
type PartitionMode string

const (
	// PartitionIgnore accepts any partition silently.
	PartitionIgnore PartitionMode = "ignore"
	// PartitionWarn calculates and reports a WARNING.
	PartitionWarn PartitionMode = "warn"
	// PartitionReject refuses to calculate and reports an ERROR.
	PartitionReject PartitionMode = "reject"
)

// ParsePartitionMode maps a configuration string onto a PartitionMode.
func ParsePartitionMode(s string) (PartitionMode, error) {
	switch m := PartitionMode(strings.ToLower(strings.TrimSpace(s))); m {
	case PartitionIgnore, PartitionWarn, PartitionReject:
		return m, nil
	case "":
		return PartitionWarn, nil
	}
	return "", fmt.Errorf("share: unknown partition mode %q", s)
}

// Policy holds the validation knobs of the underwriting calculation.
type Policy struct {
	Partition PartitionMode
	// StrictPercentages rejects percentages outside [0, 100].
	StrictPercentages bool
}

// DefaultPolicy warns on partitions that do not sum to 100 and otherwise
// accepts inputs as given.
func DefaultPolicy() Policy {
	return Policy{Partition: PartitionWarn}
}

// Calculate runs the underwriting share and retrocession calculation for one
// retro configuration.
//
// Offered and accepted shares are independent percentages of the same
// base-currency exposure. Retention and every retro layer are sibling
// percentages of the accepted share, not successive peel-offs, and the
// totals are the accepted share by definition. Missing reference data yields
// an ERROR result with all amounts zero; the calculation is not run.
func Calculate(in model.OfferInput, rate model.ExchangeRate, policy Policy) model.CalculationResult {
	if msg := missingReference(in, rate); msg != "" {
		return ErrorResult(msg)
	}
	if policy.StrictPercentages {
		if msg := outOfRange(in); msg != "" {
			return ErrorResult(msg)
		}
	}

	status := model.StatusSuccess
	message := "Calculation completed successfully"
	if sum := partitionSum(in); !sum.Equal(hundred) {
		switch policy.Partition {
		case PartitionReject:
			return ErrorResult(partitionMessage(sum))
		case PartitionWarn:
			status = model.StatusWarning
			message = partitionMessage(sum)
		}
	}

	exposureTZS := rate.Convert(in.SumInsured.Value)
	premiumTZS := rate.Convert(in.Premium.Value)

	offered := pct(in.ShareOfferedPct)
	accepted := pct(in.ShareAcceptedPct)
	exposureAccepted := exposureTZS.Mul(accepted)
	premiumAccepted := premiumTZS.Mul(accepted)

	retention := pct(in.RetentionPct)

	layers := make([]model.LayerResult, 0, len(in.Layers))
	for _, l := range in.Layers {
		frac := pct(l.Pct)
		layers = append(layers, model.LayerResult{
			Name:     l.Name,
			Pct:      l.Pct,
			Exposure: exposureAccepted.Mul(frac),
			Premium:  premiumAccepted.Mul(frac),
		})
	}

	return model.CalculationResult{
		Status:            status,
		Message:           message,
		SumInsuredOs:      in.SumInsured.Value,
		PremiumOs:         in.Premium.Value,
		SumInsuredTzs:     exposureTZS,
		PremiumTzs:        premiumTZS,
		ExposureOffered:   exposureTZS.Mul(offered),
		PremiumOffered:    premiumTZS.Mul(offered),
		ExposureAccepted:  exposureAccepted,
		PremiumAccepted:   premiumAccepted,
		RetentionExposure: exposureAccepted.Mul(retention),
		RetentionPremium:  premiumAccepted.Mul(retention),
		LayerBreakdown:    layers,
		TotalExposure:     exposureAccepted,
		TotalPremium:      premiumAccepted,
	}
}

// OfferInputFor assembles the calculation input of a configuration from the
// selected retro type and its program for the configuration's year.
func OfferInputFor(rt model.RetroType, program model.RetroProgram, currency string, sumInsured, premium, shareOffered, shareAccepted decimal.Decimal) model.OfferInput {
	return model.OfferInput{
		Kind:             rt.Kind,
		LineOfBusiness:   rt.LineOfBusiness,
		SumInsured:       model.MonetaryAmount{Value: sumInsured, CurrencyCode: currency},
		Premium:          model.MonetaryAmount{Value: premium, CurrencyCode: currency},
		ShareOfferedPct:  shareOffered,
		ShareAcceptedPct: shareAccepted,
		RetentionPct:     program.RetentionPct,
		Layers:           program.Layers(rt.Kind),
	}
}

func missingReference(in model.OfferInput, rate model.ExchangeRate) string {
	switch {
	case in.Kind == "":
		return "Retro type is required"
	case !in.Kind.Valid():
		return fmt.Sprintf("Unknown retro type kind %q", in.Kind)
	case strings.TrimSpace(in.LineOfBusiness) == "":
		return "Line of business is required"
	case !rate.Valid():
		currency := rate.FromCurrency
		if currency == "" {
			currency = in.SumInsured.CurrencyCode
		}
		return fmt.Sprintf("Exchange rate for %s is not available", currency)
	}
	return ""
}

func outOfRange(in model.OfferInput) string {
	check := []model.LayerShare{
		{Name: "shareOffered", Pct: in.ShareOfferedPct},
		{Name: "shareAccepted", Pct: in.ShareAcceptedPct},
		{Name: "retention", Pct: in.RetentionPct},
	}
	check = append(check, in.Layers...)
	for _, c := range check {
		if c.Pct.IsNegative() || c.Pct.GreaterThan(hundred) {
			return fmt.Sprintf("%s percentage %s is outside 0-100", c.Name, c.Pct.String())
		}
	}
	return ""
}

func partitionSum(in model.OfferInput) decimal.Decimal {
	sum := in.RetentionPct
	for _, l := range in.Layers {
		sum = sum.Add(l.Pct)
	}
	return sum
}

func partitionMessage(sum decimal.Decimal) string {
	return fmt.Sprintf("Retention and retro shares sum to %s%%, expected 100%%", sum.StringFixed(2))
}

// ErrorResult is a calculation that was not run. All amounts are zero.
func ErrorResult(message string) model.CalculationResult {
	return model.CalculationResult{
		Status:         model.StatusError,
		Message:        message,
		LayerBreakdown: []model.LayerResult{},
	}
}
