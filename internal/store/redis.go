package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/tanre/retro-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) UpsertRetroType(ctx context.Context, rt *model.RetroType) error {
	if err := s.primary.UpsertRetroType(ctx, rt); err != nil {
		return err
	}
	s.set(ctx, retroTypeKey(rt.ID), rt)
	return nil
}

func (s *CachedStore) UpsertRetroProgram(ctx context.Context, p *model.RetroProgram) error {
	if err := s.primary.UpsertRetroProgram(ctx, p); err != nil {
		return err
	}
	s.set(ctx, programKeyFor(p.RetroTypeID, p.Year), p)
	return nil
}

func (s *CachedStore) SetExchangeRate(ctx context.Context, rate *model.ExchangeRate) error {
	if err := s.primary.SetExchangeRate(ctx, rate); err != nil {
		return err
	}
	s.rdb.Del(ctx, rateKey(rate.FromCurrency))
	return nil
}

func (s *CachedStore) CreateOffer(ctx context.Context, o *model.Offer) error {
	if err := s.primary.CreateOffer(ctx, o); err != nil {
		return err
	}
	s.set(ctx, offerKey(o.ID), o)
	return nil
}

func (s *CachedStore) UpdateOfferRate(ctx context.Context, id string, rate decimal.Decimal, at time.Time) error {
	if err := s.primary.UpdateOfferRate(ctx, id, rate, at); err != nil {
		return err
	}
	// Invalidate cache; next read will re-populate.
	s.rdb.Del(ctx, offerKey(id))
	return nil
}

func (s *CachedStore) CreateConfiguration(ctx context.Context, cfg *model.RetroConfiguration) error {
	if err := s.primary.CreateConfiguration(ctx, cfg); err != nil {
		return err
	}
	s.set(ctx, configurationKey(cfg.ID), cfg)
	return nil
}

func (s *CachedStore) UpdateConfiguration(ctx context.Context, cfg *model.RetroConfiguration) error {
	if err := s.primary.UpdateConfiguration(ctx, cfg); err != nil {
		return err
	}
	s.rdb.Del(ctx, configurationKey(cfg.ID))
	return nil
}

func (s *CachedStore) DeleteConfiguration(ctx context.Context, id string) error {
	if err := s.primary.DeleteConfiguration(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, configurationKey(id))
	return nil
}

func (s *CachedStore) InsertClaim(ctx context.Context, c *model.RegisteredClaim) error {
	if err := s.primary.InsertClaim(ctx, c); err != nil {
		return err
	}
	s.set(ctx, claimKey(c.ClaimID), c)
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetRetroType(ctx context.Context, id int) (*model.RetroType, error) {
	var rt model.RetroType
	if s.get(ctx, retroTypeKey(id), &rt) {
		return &rt, nil
	}

	got, err := s.primary.GetRetroType(ctx, id)
	if err != nil {
		return nil, err
	}
	s.set(ctx, retroTypeKey(id), got)
	return got, nil
}

func (s *CachedStore) GetRetroProgram(ctx context.Context, retroTypeID, year int) (*model.RetroProgram, error) {
	var p model.RetroProgram
	if s.get(ctx, programKeyFor(retroTypeID, year), &p) {
		return &p, nil
	}

	got, err := s.primary.GetRetroProgram(ctx, retroTypeID, year)
	if err != nil {
		return nil, err
	}
	s.set(ctx, programKeyFor(retroTypeID, year), got)
	return got, nil
}

func (s *CachedStore) GetExchangeRate(ctx context.Context, currency string) (*model.ExchangeRate, error) {
	var r model.ExchangeRate
	if s.get(ctx, rateKey(currency), &r) {
		return &r, nil
	}

	got, err := s.primary.GetExchangeRate(ctx, currency)
	if err != nil {
		return nil, err
	}
	s.set(ctx, rateKey(currency), got)
	return got, nil
}

func (s *CachedStore) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	var o model.Offer
	if s.get(ctx, offerKey(id), &o) {
		return &o, nil
	}

	got, err := s.primary.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	s.set(ctx, offerKey(id), got)
	return got, nil
}

func (s *CachedStore) GetConfiguration(ctx context.Context, id string) (*model.RetroConfiguration, error) {
	var cfg model.RetroConfiguration
	if s.get(ctx, configurationKey(id), &cfg) {
		return &cfg, nil
	}

	got, err := s.primary.GetConfiguration(ctx, id)
	if err != nil {
		return nil, err
	}
	s.set(ctx, configurationKey(id), got)
	return got, nil
}

func (s *CachedStore) GetClaim(ctx context.Context, id string) (*model.RegisteredClaim, error) {
	var c model.RegisteredClaim
	if s.get(ctx, claimKey(id), &c) {
		return &c, nil
	}

	got, err := s.primary.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	s.set(ctx, claimKey(id), got)
	return got, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListRetroTypes(ctx context.Context) ([]model.RetroType, error) {
	return s.primary.ListRetroTypes(ctx)
}

func (s *CachedStore) ListExchangeRates(ctx context.Context) ([]model.ExchangeRate, error) {
	return s.primary.ListExchangeRates(ctx)
}

func (s *CachedStore) ListOffers(ctx context.Context) ([]model.Offer, error) {
	return s.primary.ListOffers(ctx)
}

func (s *CachedStore) ListConfigurations(ctx context.Context, offerID string) ([]model.RetroConfiguration, error) {
	return s.primary.ListConfigurations(ctx, offerID)
}

func (s *CachedStore) NextClaimSequence(ctx context.Context, year int) (int, error) {
	return s.primary.NextClaimSequence(ctx, year)
}

func (s *CachedStore) ListClaims(ctx context.Context) ([]model.RegisteredClaim, error) {
	return s.primary.ListClaims(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) get(ctx context.Context, key string, dst any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *CachedStore) set(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func retroTypeKey(id int) string        { return fmt.Sprintf("retro-type:%d", id) }
func programKeyFor(id, year int) string { return fmt.Sprintf("retro-program:%d:%d", id, year) }
func rateKey(currency string) string    { return fmt.Sprintf("fx:%s", strings.ToUpper(currency)) }
func offerKey(id string) string         { return fmt.Sprintf("offer:%s", id) }
func configurationKey(id string) string { return fmt.Sprintf("configuration:%s", id) }
func claimKey(id string) string         { return fmt.Sprintf("claim:%s", id) }

