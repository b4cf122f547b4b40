package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/tanre/retro-engine/internal/model"
	"github.com/tanre/retro-engine/internal/numeric"
	"github.com/tanre/retro-engine/internal/store"
)

// ReferenceData is the YAML seed of retro types, their yearly programs and
// exchange rates. Percentages and rates are written as strings so they are
// read exactly.
type ReferenceData struct {
	RetroTypes    []RetroTypeSeed    `yaml:"retro_types"`
	ExchangeRates []ExchangeRateSeed `yaml:"exchange_rates"`
}

// RetroTypeSeed is one retro type with its programs.
type RetroTypeSeed struct {
	ID             int           `yaml:"id"`
	Name           string        `yaml:"name"`
	Kind           string        `yaml:"kind"`
	LineOfBusiness string        `yaml:"line_of_business"`
	Programs       []ProgramSeed `yaml:"programs"`
}

// ProgramSeed holds the percentages of one underwriting year.
type ProgramSeed struct {
	Year          int    `yaml:"year"`
	Retention     string `yaml:"retention"`
	Surplus       string `yaml:"surplus"`
	FacRetro      string `yaml:"fac_retro"`
	FirstSurplus  string `yaml:"first_surplus"`
	SecondSurplus string `yaml:"second_surplus"`
	AutoFacRetro  string `yaml:"auto_fac_retro"`
}

// ExchangeRateSeed is the rate of one currency into TZS.
type ExchangeRateSeed struct {
	Currency string `yaml:"currency"`
	Rate     string `yaml:"rate"`
}

// LoadReferenceData reads and validates a YAML seed file.
func LoadReferenceData(path string) (*ReferenceData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read reference data: %w", err)
	}
	var ref ReferenceData
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("config: parse reference data %s: %w", path, err)
	}
	return &ref, nil
}

// Seed upserts the reference data into st.
func (ref *ReferenceData) Seed(ctx context.Context, st store.Store, now time.Time) error {
	for _, rt := range ref.RetroTypes {
		kind := model.RetroKind(strings.ToUpper(rt.Kind))
		if !kind.Valid() {
			return fmt.Errorf("config: retro type %d: unknown kind %q", rt.ID, rt.Kind)
		}
		if err := st.UpsertRetroType(ctx, &model.RetroType{
			ID:             rt.ID,
			Name:           rt.Name,
			Kind:           kind,
			LineOfBusiness: rt.LineOfBusiness,
		}); err != nil {
			return fmt.Errorf("config: seed retro type %d: %w", rt.ID, err)
		}

		for _, p := range rt.Programs {
			program, err := p.program(rt.ID)
			if err != nil {
				return err
			}
			if err := st.UpsertRetroProgram(ctx, program); err != nil {
				return fmt.Errorf("config: seed program %d/%d: %w", rt.ID, p.Year, err)
			}
		}
	}

	for _, r := range ref.ExchangeRates {
		rate, err := parsePct(r.Rate, "rate of "+r.Currency)
		if err != nil {
			return err
		}
		if !rate.IsPositive() {
			return fmt.Errorf("config: rate of %s must be positive", r.Currency)
		}
		if err := st.SetExchangeRate(ctx, &model.ExchangeRate{
			FromCurrency: strings.ToUpper(r.Currency),
			ToCurrency:   model.BaseCurrency,
			Rate:         rate,
			UpdatedAt:    now,
		}); err != nil {
			return fmt.Errorf("config: seed rate %s: %w", r.Currency, err)
		}
	}
	return nil
}

func (p ProgramSeed) program(retroTypeID int) (*model.RetroProgram, error) {
	out := &model.RetroProgram{RetroTypeID: retroTypeID, Year: p.Year}
	fields := []struct {
		dst  *decimal.Decimal
		src  string
		name string
	}{
		{&out.RetentionPct, p.Retention, "retention"},
		{&out.SurplusPct, p.Surplus, "surplus"},
		{&out.FacRetroPct, p.FacRetro, "fac_retro"},
		{&out.FirstSurplusPct, p.FirstSurplus, "first_surplus"},
		{&out.SecondSurplusPct, p.SecondSurplus, "second_surplus"},
		{&out.AutoFacRetroPct, p.AutoFacRetro, "auto_fac_retro"},
	}
	for _, f := range fields {
		v, err := parsePct(f.src, fmt.Sprintf("program %d/%d %s", retroTypeID, p.Year, f.name))
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return out, nil
}

// parsePct reads a seed number; empty means zero.
func parsePct(s, what string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: %s: %w", what, err)
	}
	if !numeric.InRange(v) {
		return decimal.Zero, fmt.Errorf("config: %s: %s out of range", what, s)
	}
	return v, nil
}
