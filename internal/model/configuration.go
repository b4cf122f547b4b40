package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ConfigurationState tracks where a retro configuration is in its
// calculation lifecycle.
type ConfigurationState string

const (
	StateNotCalculated ConfigurationState = "NOT_CALCULATED"
	StateCalculating   ConfigurationState = "CALCULATING"
	StateSuccess       ConfigurationState = ConfigurationState(StatusSuccess)
	StateWarning       ConfigurationState = ConfigurationState(StatusWarning)
	StateError         ConfigurationState = ConfigurationState(StatusError)
)

// ErrCalculationInProgress is returned when a calculation is requested for a
// configuration that is already calculating.
var ErrCalculationInProgress = errors.New("model: configuration calculation already in progress")

// RetroConfiguration is one retro set-up attached to an offer. Each
// configuration owns its own calculation result.
type RetroConfiguration struct {
	ID               string             `json:"id"`
	OfferID          string             `json:"offerId"`
	RetroTypeID      int                `json:"retroTypeId"`
	Year             int                `json:"year"`
	SumInsured       decimal.Decimal    `json:"sumInsuredOs"`
	Premium          decimal.Decimal    `json:"premiumOs"`
	ShareOfferedPct  decimal.Decimal    `json:"shareOfferedPct"`
	ShareAcceptedPct decimal.Decimal    `json:"shareAcceptedPct"`
	State            ConfigurationState `json:"state"`
	Message          string             `json:"message,omitempty"`
	Result           *CalculationResult `json:"result,omitempty"`
	CalculatedAt     time.Time          `json:"calculatedAt,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// BeginCalculation moves the configuration into CALCULATING. Every state
// except CALCULATING itself may (re)enter it.
func (c *RetroConfiguration) BeginCalculation() error {
	if c.State == StateCalculating {
		return ErrCalculationInProgress
	}
	c.State = StateCalculating
	return nil
}

// CompleteCalculation records the outcome of a calculation. An ERROR result
// leaves the previous numbers in place and only updates state and message.
func (c *RetroConfiguration) CompleteCalculation(result CalculationResult, at time.Time) {
	c.State = ConfigurationState(result.Status)
	c.Message = result.Message
	if result.Status == StatusError {
		return
	}
	r := result
	c.Result = &r
	c.CalculatedAt = at
}

// AbortCalculation returns a configuration stuck in CALCULATING to an error
// state, e.g. when persisting the result failed.
func (c *RetroConfiguration) AbortCalculation(message string) {
	c.State = StateError
	c.Message = message
}

// Stale reports whether the displayed result predates an edit of the
// configuration or a change of the offer's exchange rate.
func (c RetroConfiguration) Stale(offer Offer) bool {
	if c.CalculatedAt.IsZero() {
		return false
	}
	return c.UpdatedAt.After(c.CalculatedAt) || offer.RateUpdatedAt.After(c.CalculatedAt)
}
