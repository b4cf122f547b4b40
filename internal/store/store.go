// Package store defines the persistence interface for the retro engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tanre/retro-engine/internal/model"
)

// ErrNotFound is returned (wrapped) when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Reference data ---

	// UpsertRetroType creates or replaces a retro type.
	UpsertRetroType(ctx context.Context, rt *model.RetroType) error

	// GetRetroType retrieves a retro type by id.
	GetRetroType(ctx context.Context, id int) (*model.RetroType, error)

	// ListRetroTypes returns all retro types ordered by id.
	ListRetroTypes(ctx context.Context) ([]model.RetroType, error)

	// UpsertRetroProgram creates or replaces the program of a retro type for a year.
	UpsertRetroProgram(ctx context.Context, p *model.RetroProgram) error

	// GetRetroProgram retrieves the program of a retro type for a year.
	GetRetroProgram(ctx context.Context, retroTypeID, year int) (*model.RetroProgram, error)

	// SetExchangeRate creates or replaces the rate of a currency into TZS.
	SetExchangeRate(ctx context.Context, rate *model.ExchangeRate) error

	// GetExchangeRate retrieves the current rate of a currency into TZS.
	GetExchangeRate(ctx context.Context, currency string) (*model.ExchangeRate, error)

	// ListExchangeRates returns all stored rates ordered by currency.
	ListExchangeRates(ctx context.Context) ([]model.ExchangeRate, error)

	// --- Offers ---

	// CreateOffer persists a new offer.
	CreateOffer(ctx context.Context, offer *model.Offer) error

	// GetOffer retrieves an offer by id.
	GetOffer(ctx context.Context, id string) (*model.Offer, error)

	// ListOffers returns all offers, newest first.
	ListOffers(ctx context.Context) ([]model.Offer, error)

	// UpdateOfferRate replaces the offer's exchange rate.
	UpdateOfferRate(ctx context.Context, id string, rate decimal.Decimal, at time.Time) error

	// --- Retro configurations ---

	// CreateConfiguration persists a new configuration under its offer.
	CreateConfiguration(ctx context.Context, cfg *model.RetroConfiguration) error

	// GetConfiguration retrieves a configuration by id.
	GetConfiguration(ctx context.Context, id string) (*model.RetroConfiguration, error)

	// ListConfigurations returns the configurations of an offer in creation order.
	ListConfigurations(ctx context.Context, offerID string) ([]model.RetroConfiguration, error)

	// UpdateConfiguration replaces a configuration, including its state and result.
	UpdateConfiguration(ctx context.Context, cfg *model.RetroConfiguration) error

	// DeleteConfiguration removes a configuration.
	DeleteConfiguration(ctx context.Context, id string) error

	// --- Claims ---

	// NextClaimSequence reserves the next registration number for a year.
	NextClaimSequence(ctx context.Context, year int) (int, error)

	// InsertClaim persists a registered claim. Claims are never modified.
	InsertClaim(ctx context.Context, claim *model.RegisteredClaim) error

	// GetClaim retrieves a claim by its CLM id.
	GetClaim(ctx context.Context, id string) (*model.RegisteredClaim, error)

	// ListClaims returns all claims ordered by year, then registration sequence.
	ListClaims(ctx context.Context) ([]model.RegisteredClaim, error)
}
