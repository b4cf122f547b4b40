package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tanre/retro-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values and percentages are stored as NUMERIC for exact
// decimal precision and read back as TEXT.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// foreignKeyViolation is the SQLSTATE of an insert whose parent row is missing.
const foreignKeyViolation = "23503"

// notFound maps a missing row, or a missing parent row on insert, onto
// ErrNotFound.
func notFound(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// --- Reference data ---

func (s *PostgresStore) UpsertRetroType(ctx context.Context, rt *model.RetroType) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO retro_types (id, name, kind, line_of_business)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, kind = EXCLUDED.kind, line_of_business = EXCLUDED.line_of_business`,
		rt.ID, rt.Name, string(rt.Kind), rt.LineOfBusiness,
	)
	return err
}

func (s *PostgresStore) GetRetroType(ctx context.Context, id int) (*model.RetroType, error) {
	var rt model.RetroType
	var kind string
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, kind, line_of_business FROM retro_types WHERE id = $1`, id).
		Scan(&rt.ID, &rt.Name, &kind, &rt.LineOfBusiness)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("get retro type %d", id))
	}
	rt.Kind = model.RetroKind(kind)
	return &rt, nil
}

func (s *PostgresStore) ListRetroTypes(ctx context.Context) ([]model.RetroType, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, kind, line_of_business FROM retro_types ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []model.RetroType
	for rows.Next() {
		var rt model.RetroType
		var kind string
		if err := rows.Scan(&rt.ID, &rt.Name, &kind, &rt.LineOfBusiness); err != nil {
			return nil, err
		}
		rt.Kind = model.RetroKind(kind)
		types = append(types, rt)
	}
	return types, rows.Err()
}

func (s *PostgresStore) UpsertRetroProgram(ctx context.Context, p *model.RetroProgram) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO retro_programs (retro_type_id, year, retention_pct, surplus_pct, fac_retro_pct,
		                             first_surplus_pct, second_surplus_pct, auto_fac_retro_pct)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC)
		 ON CONFLICT (retro_type_id, year) DO UPDATE
		 SET retention_pct = EXCLUDED.retention_pct, surplus_pct = EXCLUDED.surplus_pct,
		     fac_retro_pct = EXCLUDED.fac_retro_pct, first_surplus_pct = EXCLUDED.first_surplus_pct,
		     second_surplus_pct = EXCLUDED.second_surplus_pct, auto_fac_retro_pct = EXCLUDED.auto_fac_retro_pct`,
		p.RetroTypeID, p.Year,
		p.RetentionPct.String(), p.SurplusPct.String(), p.FacRetroPct.String(),
		p.FirstSurplusPct.String(), p.SecondSurplusPct.String(), p.AutoFacRetroPct.String(),
	)
	if err != nil {
		return notFound(err, fmt.Sprintf("upsert program %d/%d", p.RetroTypeID, p.Year))
	}
	return nil
}

func (s *PostgresStore) GetRetroProgram(ctx context.Context, retroTypeID, year int) (*model.RetroProgram, error) {
	p := model.RetroProgram{RetroTypeID: retroTypeID, Year: year}
	var retention, surplus, facRetro, first, second, autoFac string

	err := s.pool.QueryRow(ctx,
		`SELECT retention_pct::TEXT, surplus_pct::TEXT, fac_retro_pct::TEXT,
		        first_surplus_pct::TEXT, second_surplus_pct::TEXT, auto_fac_retro_pct::TEXT
		 FROM retro_programs WHERE retro_type_id = $1 AND year = $2`, retroTypeID, year).
		Scan(&retention, &surplus, &facRetro, &first, &second, &autoFac)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("get retro program %d/%d", retroTypeID, year))
	}

	p.RetentionPct = dec(retention)
	p.SurplusPct = dec(surplus)
	p.FacRetroPct = dec(facRetro)
	p.FirstSurplusPct = dec(first)
	p.SecondSurplusPct = dec(second)
	p.AutoFacRetroPct = dec(autoFac)
	return &p, nil
}

func (s *PostgresStore) SetExchangeRate(ctx context.Context, rate *model.ExchangeRate) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO exchange_rates (from_currency, to_currency, rate, updated_at)
		 VALUES ($1, $2, $3::NUMERIC, $4)
		 ON CONFLICT (from_currency) DO UPDATE
		 SET to_currency = EXCLUDED.to_currency, rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at`,
		strings.ToUpper(rate.FromCurrency), rate.ToCurrency, rate.Rate.String(), rate.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetExchangeRate(ctx context.Context, currency string) (*model.ExchangeRate, error) {
	var r model.ExchangeRate
	var rate string
	err := s.pool.QueryRow(ctx,
		`SELECT from_currency, to_currency, rate::TEXT, updated_at
		 FROM exchange_rates WHERE from_currency = $1`, strings.ToUpper(currency)).
		Scan(&r.FromCurrency, &r.ToCurrency, &rate, &r.UpdatedAt)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("get exchange rate %s", currency))
	}
	r.Rate = dec(rate)
	return &r, nil
}

func (s *PostgresStore) ListExchangeRates(ctx context.Context) ([]model.ExchangeRate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT from_currency, to_currency, rate::TEXT, updated_at
		 FROM exchange_rates ORDER BY from_currency`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []model.ExchangeRate
	for rows.Next() {
		var r model.ExchangeRate
		var rate string
		if err := rows.Scan(&r.FromCurrency, &r.ToCurrency, &rate, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Rate = dec(rate)
		rates = append(rates, r)
	}
	return rates, rows.Err()
}

// --- Offers ---

const offerColumns = `id, reference, insured, line_of_business, currency, exchange_rate::TEXT, rate_updated_at, created_at`

func scanOffer(row pgx.Row) (*model.Offer, error) {
	var o model.Offer
	var rate string
	if err := row.Scan(&o.ID, &o.Reference, &o.Insured, &o.LineOfBusiness,
		&o.Currency, &rate, &o.RateUpdatedAt, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.ExchangeRate = dec(rate)
	return &o, nil
}

func (s *PostgresStore) CreateOffer(ctx context.Context, o *model.Offer) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO offers (id, reference, insured, line_of_business, currency, exchange_rate, rate_updated_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7, $8)`,
		o.ID, o.Reference, o.Insured, o.LineOfBusiness, o.Currency,
		o.ExchangeRate.String(), o.RateUpdatedAt, o.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	o, err := scanOffer(s.pool.QueryRow(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("get offer %s", id))
	}
	return o, nil
}

func (s *PostgresStore) ListOffers(ctx context.Context) ([]model.Offer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+offerColumns+` FROM offers ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []model.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *o)
	}
	return offers, rows.Err()
}

func (s *PostgresStore) UpdateOfferRate(ctx context.Context, id string, rate decimal.Decimal, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE offers SET exchange_rate = $2::NUMERIC, rate_updated_at = $3 WHERE id = $1`,
		id, rate.String(), at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("offer %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- Retro configurations ---

const configurationColumns = `id, offer_id, retro_type_id, year,
	sum_insured::TEXT, premium::TEXT, share_offered_pct::TEXT, share_accepted_pct::TEXT,
	state, message, result, calculated_at, created_at, updated_at`

func scanConfiguration(row pgx.Row) (*model.RetroConfiguration, error) {
	var c model.RetroConfiguration
	var sumInsured, premium, offered, accepted, state string
	var result []byte
	var calculatedAt *time.Time

	if err := row.Scan(&c.ID, &c.OfferID, &c.RetroTypeID, &c.Year,
		&sumInsured, &premium, &offered, &accepted,
		&state, &c.Message, &result, &calculatedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}

	c.SumInsured = dec(sumInsured)
	c.Premium = dec(premium)
	c.ShareOfferedPct = dec(offered)
	c.ShareAcceptedPct = dec(accepted)
	c.State = model.ConfigurationState(state)
	if calculatedAt != nil {
		c.CalculatedAt = *calculatedAt
	}
	if len(result) > 0 {
		var r model.CalculationResult
		if err := json.Unmarshal(result, &r); err != nil {
			return nil, fmt.Errorf("decode result of configuration %s: %w", c.ID, err)
		}
		c.Result = &r
	}
	return &c, nil
}

func encodeResult(r *model.CalculationResult) (*string, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func (s *PostgresStore) CreateConfiguration(ctx context.Context, c *model.RetroConfiguration) error {
	result, err := encodeResult(c.Result)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO retro_configurations (id, offer_id, retro_type_id, year,
		        sum_insured, premium, share_offered_pct, share_accepted_pct,
		        state, message, result, calculated_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC,
		         $9, $10, $11::JSONB, $12, $13, $14)`,
		c.ID, c.OfferID, c.RetroTypeID, c.Year,
		c.SumInsured.String(), c.Premium.String(), c.ShareOfferedPct.String(), c.ShareAcceptedPct.String(),
		string(c.State), c.Message, result, nullTime(c.CalculatedAt), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return notFound(err, fmt.Sprintf("create configuration %s for offer %s", c.ID, c.OfferID))
	}
	return nil
}

func (s *PostgresStore) GetConfiguration(ctx context.Context, id string) (*model.RetroConfiguration, error) {
	c, err := scanConfiguration(s.pool.QueryRow(ctx,
		`SELECT `+configurationColumns+` FROM retro_configurations WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("get configuration %s", id))
	}
	return c, nil
}

func (s *PostgresStore) ListConfigurations(ctx context.Context, offerID string) ([]model.RetroConfiguration, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+configurationColumns+` FROM retro_configurations
		 WHERE offer_id = $1 ORDER BY created_at, id`, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []model.RetroConfiguration
	for rows.Next() {
		c, err := scanConfiguration(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *c)
	}
	return configs, rows.Err()
}

func (s *PostgresStore) UpdateConfiguration(ctx context.Context, c *model.RetroConfiguration) error {
	result, err := encodeResult(c.Result)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE retro_configurations
		 SET retro_type_id = $2, year = $3,
		     sum_insured = $4::NUMERIC, premium = $5::NUMERIC,
		     share_offered_pct = $6::NUMERIC, share_accepted_pct = $7::NUMERIC,
		     state = $8, message = $9, result = $10::JSONB, calculated_at = $11, updated_at = $12
		 WHERE id = $1`,
		c.ID, c.RetroTypeID, c.Year,
		c.SumInsured.String(), c.Premium.String(), c.ShareOfferedPct.String(), c.ShareAcceptedPct.String(),
		string(c.State), c.Message, result, nullTime(c.CalculatedAt), c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("configuration %s: %w", c.ID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteConfiguration(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM retro_configurations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("configuration %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- Claims ---

func (s *PostgresStore) NextClaimSequence(ctx context.Context, year int) (int, error) {
	var seq int
	err := s.pool.QueryRow(ctx,
		`INSERT INTO claim_sequences (year, last_seq) VALUES ($1, 1)
		 ON CONFLICT (year) DO UPDATE SET last_seq = claim_sequences.last_seq + 1
		 RETURNING last_seq`, year).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next claim sequence %d: %w", year, err)
	}
	return seq, nil
}

const claimColumns = `claim_id, date_registered, date_of_loss, date_received,
	original_insured, cause_of_loss, current_reserve::TEXT, salvage::TEXT,
	net_amount::TEXT, total_share_signed_pct::TEXT, retro_pct::TEXT,
	tanre_tzs::TEXT, retro_amount::TEXT, tanre_retention::TEXT, contracts`

func scanClaim(row pgx.Row) (*model.RegisteredClaim, error) {
	var c model.RegisteredClaim
	var reserve, salvage, net, share, retroPct, tanre, retro, retention string
	var dateOfLoss, dateReceived *time.Time
	var contracts []byte

	if err := row.Scan(&c.ClaimID, &c.DateRegistered, &dateOfLoss, &dateReceived,
		&c.OriginalInsured, &c.CauseOfLoss, &reserve, &salvage,
		&net, &share, &retroPct, &tanre, &retro, &retention, &contracts); err != nil {
		return nil, err
	}

	if dateOfLoss != nil {
		c.DateOfLoss = *dateOfLoss
	}
	if dateReceived != nil {
		c.DateReceived = *dateReceived
	}
	c.CurrentReserve = dec(reserve)
	c.Salvage = dec(salvage)
	c.Summary = model.ClaimFinancialSummary{
		NetAmount:           dec(net),
		TotalShareSignedPct: dec(share),
		RetroPct:            dec(retroPct),
		CedantShareAmount:   dec(tanre),
		RetroAmount:         dec(retro),
		Retention:           dec(retention),
	}
	if len(contracts) > 0 {
		if err := json.Unmarshal(contracts, &c.Contracts); err != nil {
			return nil, fmt.Errorf("decode contracts of claim %s: %w", c.ClaimID, err)
		}
	}
	return &c, nil
}

func (s *PostgresStore) InsertClaim(ctx context.Context, c *model.RegisteredClaim) error {
	contracts, err := json.Marshal(c.Contracts)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO claims (claim_id, date_registered, date_of_loss, date_received,
		        original_insured, cause_of_loss, current_reserve, salvage,
		        net_amount, total_share_signed_pct, retro_pct,
		        tanre_tzs, retro_amount, tanre_retention, contracts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::NUMERIC, $8::NUMERIC,
		         $9::NUMERIC, $10::NUMERIC, $11::NUMERIC, $12::NUMERIC, $13::NUMERIC, $14::NUMERIC, $15::JSONB)`,
		c.ClaimID, c.DateRegistered, nullTime(c.DateOfLoss), nullTime(c.DateReceived),
		c.OriginalInsured, c.CauseOfLoss, c.CurrentReserve.String(), c.Salvage.String(),
		c.Summary.NetAmount.String(), c.Summary.TotalShareSignedPct.String(), c.Summary.RetroPct.String(),
		c.Summary.CedantShareAmount.String(), c.Summary.RetroAmount.String(), c.Summary.Retention.String(),
		string(contracts),
	)
	return err
}

func (s *PostgresStore) GetClaim(ctx context.Context, id string) (*model.RegisteredClaim, error) {
	c, err := scanClaim(s.pool.QueryRow(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE claim_id = $1`, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("get claim %s", id))
	}
	return c, nil
}

func (s *PostgresStore) ListClaims(ctx context.Context) ([]model.RegisteredClaim, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+claimColumns+` FROM claims
		 ORDER BY split_part(claim_id, '-', 2), length(claim_id), claim_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []model.RegisteredClaim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}
