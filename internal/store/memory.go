package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tanre/retro-engine/internal/claimref"
	"github.com/tanre/retro-engine/internal/model"
)

type programKey struct {
	retroTypeID int
	year        int
}

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu             sync.RWMutex
	retroTypes     map[int]*model.RetroType
	programs       map[programKey]*model.RetroProgram
	rates          map[string]*model.ExchangeRate
	offers         map[string]*model.Offer
	configurations map[string]*model.RetroConfiguration
	configOrder    []string
	claims         map[string]*model.RegisteredClaim
	claimSeq       map[int]int
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		retroTypes:     make(map[int]*model.RetroType),
		programs:       make(map[programKey]*model.RetroProgram),
		rates:          make(map[string]*model.ExchangeRate),
		offers:         make(map[string]*model.Offer),
		configurations: make(map[string]*model.RetroConfiguration),
		claims:         make(map[string]*model.RegisteredClaim),
		claimSeq:       make(map[int]int),
	}
}

// --- Reference data ---

func (s *MemoryStore) UpsertRetroType(_ context.Context, rt *model.RetroType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *rt
	s.retroTypes[rt.ID] = &copy
	return nil
}

func (s *MemoryStore) GetRetroType(_ context.Context, id int) (*model.RetroType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rt, ok := s.retroTypes[id]
	if !ok {
		return nil, fmt.Errorf("retro type %d: %w", id, ErrNotFound)
	}
	copy := *rt
	return &copy, nil
}

func (s *MemoryStore) ListRetroTypes(_ context.Context) ([]model.RetroType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]model.RetroType, 0, len(s.retroTypes))
	for _, rt := range s.retroTypes {
		types = append(types, *rt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })
	return types, nil
}

func (s *MemoryStore) UpsertRetroProgram(_ context.Context, p *model.RetroProgram) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.retroTypes[p.RetroTypeID]; !ok {
		return fmt.Errorf("retro type %d: %w", p.RetroTypeID, ErrNotFound)
	}
	copy := *p
	s.programs[programKey{p.RetroTypeID, p.Year}] = &copy
	return nil
}

func (s *MemoryStore) GetRetroProgram(_ context.Context, retroTypeID, year int) (*model.RetroProgram, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.programs[programKey{retroTypeID, year}]
	if !ok {
		return nil, fmt.Errorf("retro program %d/%d: %w", retroTypeID, year, ErrNotFound)
	}
	copy := *p
	return &copy, nil
}

func (s *MemoryStore) SetExchangeRate(_ context.Context, rate *model.ExchangeRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *rate
	copy.FromCurrency = strings.ToUpper(rate.FromCurrency)
	s.rates[copy.FromCurrency] = &copy
	return nil
}

func (s *MemoryStore) GetExchangeRate(_ context.Context, currency string) (*model.ExchangeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rates[strings.ToUpper(currency)]
	if !ok {
		return nil, fmt.Errorf("exchange rate %s: %w", currency, ErrNotFound)
	}
	copy := *r
	return &copy, nil
}

func (s *MemoryStore) ListExchangeRates(_ context.Context) ([]model.ExchangeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rates := make([]model.ExchangeRate, 0, len(s.rates))
	for _, r := range s.rates {
		rates = append(rates, *r)
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].FromCurrency < rates[j].FromCurrency })
	return rates, nil
}

// --- Offers ---

func (s *MemoryStore) CreateOffer(_ context.Context, o *model.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.offers[o.ID]; exists {
		return fmt.Errorf("offer %s already exists", o.ID)
	}
	// Store a copy to avoid external mutation.
	copy := *o
	s.offers[o.ID] = &copy
	return nil
}

func (s *MemoryStore) GetOffer(_ context.Context, id string) (*model.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.offers[id]
	if !ok {
		return nil, fmt.Errorf("offer %s: %w", id, ErrNotFound)
	}
	copy := *o
	return &copy, nil
}

func (s *MemoryStore) ListOffers(_ context.Context) ([]model.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	offers := make([]model.Offer, 0, len(s.offers))
	for _, o := range s.offers {
		offers = append(offers, *o)
	}
	sort.Slice(offers, func(i, j int) bool { return offers[i].CreatedAt.After(offers[j].CreatedAt) })
	return offers, nil
}

func (s *MemoryStore) UpdateOfferRate(_ context.Context, id string, rate decimal.Decimal, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.offers[id]
	if !ok {
		return fmt.Errorf("offer %s: %w", id, ErrNotFound)
	}
	o.ExchangeRate = rate
	o.RateUpdatedAt = at
	return nil
}

// --- Retro configurations ---

func (s *MemoryStore) CreateConfiguration(_ context.Context, cfg *model.RetroConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.offers[cfg.OfferID]; !ok {
		return fmt.Errorf("offer %s: %w", cfg.OfferID, ErrNotFound)
	}
	s.configurations[cfg.ID] = cloneConfiguration(cfg)
	s.configOrder = append(s.configOrder, cfg.ID)
	return nil
}

func (s *MemoryStore) GetConfiguration(_ context.Context, id string) (*model.RetroConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configurations[id]
	if !ok {
		return nil, fmt.Errorf("configuration %s: %w", id, ErrNotFound)
	}
	return cloneConfiguration(cfg), nil
}

func (s *MemoryStore) ListConfigurations(_ context.Context, offerID string) ([]model.RetroConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.RetroConfiguration
	for _, id := range s.configOrder {
		if cfg, ok := s.configurations[id]; ok && cfg.OfferID == offerID {
			result = append(result, *cloneConfiguration(cfg))
		}
	}
	return result, nil
}

func (s *MemoryStore) UpdateConfiguration(_ context.Context, cfg *model.RetroConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.configurations[cfg.ID]; !ok {
		return fmt.Errorf("configuration %s: %w", cfg.ID, ErrNotFound)
	}
	s.configurations[cfg.ID] = cloneConfiguration(cfg)
	return nil
}

func (s *MemoryStore) DeleteConfiguration(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.configurations[id]; !ok {
		return fmt.Errorf("configuration %s: %w", id, ErrNotFound)
	}
	delete(s.configurations, id)
	for i, cid := range s.configOrder {
		if cid == id {
			s.configOrder = append(s.configOrder[:i], s.configOrder[i+1:]...)
			break
		}
	}
	return nil
}

// --- Claims ---

func (s *MemoryStore) NextClaimSequence(_ context.Context, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.claimSeq[year]++
	return s.claimSeq[year], nil
}

func (s *MemoryStore) InsertClaim(_ context.Context, c *model.RegisteredClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.claims[c.ClaimID]; exists {
		return fmt.Errorf("claim %s already exists", c.ClaimID)
	}
	s.claims[c.ClaimID] = cloneClaim(c)
	return nil
}

func (s *MemoryStore) GetClaim(_ context.Context, id string) (*model.RegisteredClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.claims[id]
	if !ok {
		return nil, fmt.Errorf("claim %s: %w", id, ErrNotFound)
	}
	return cloneClaim(c), nil
}

func (s *MemoryStore) ListClaims(_ context.Context) ([]model.RegisteredClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	claims := make([]model.RegisteredClaim, 0, len(s.claims))
	for _, c := range s.claims {
		claims = append(claims, *cloneClaim(c))
	}
	sort.Slice(claims, func(i, j int) bool { return claimref.Less(claims[i].ClaimID, claims[j].ClaimID) })
	return claims, nil
}

func cloneConfiguration(cfg *model.RetroConfiguration) *model.RetroConfiguration {
	copy := *cfg
	if cfg.Result != nil {
		r := *cfg.Result
		r.LayerBreakdown = append([]model.LayerResult(nil), cfg.Result.LayerBreakdown...)
		copy.Result = &r
	}
	return &copy
}

func cloneClaim(c *model.RegisteredClaim) *model.RegisteredClaim {
	copy := *c
	copy.Contracts = append([]model.ContractShare(nil), c.Contracts...)
	return &copy
}
