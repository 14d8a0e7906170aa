// Package postgres provides a PostgreSQL implementation of the autrust Store
// interface. Event-driven writes use single-statement upserts (ON CONFLICT)
// so webhook replay converges without explicit locking; the KYC upsert spans
// two tables and runs in a transaction.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
)

//go:embed schema.sql
var schemaSQL string

// Storage implements autrust.Store using PostgreSQL.
type Storage struct {
	pool   *pgxpool.Pool
	config Config
}

var _ autrust.Store = (*Storage)(nil)
var _ autrust.TimeSource = (*Storage)(nil)

// Config holds PostgreSQL storage configuration
type Config struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string

	// Pool configuration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// New creates a new PostgreSQL storage adapter
func New(ctx context.Context, config Config) (*Storage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.MaxConnLifetime
	}
	if config.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Storage{pool: pool, config: config}, nil
}

// Close closes the connection pool.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies the database connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the tables if they do not exist. Intended for tests
// and small deployments; production setups should run schema.sql through
// their migration tooling.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Now implements autrust.TimeSource using the database clock, so sponsorship
// windows computed on different application servers agree.
func (s *Storage) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := s.pool.QueryRow(ctx, `SELECT now()`).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("failed to read database clock: %w", err)
	}
	return now.UTC(), nil
}

// GetSeller implements autrust.Store
func (s *Storage) GetSeller(ctx context.Context, sellerID string) (*autrust.Seller, error) {
	var seller autrust.Seller

	err := s.pool.QueryRow(ctx,
		`SELECT id, account_created_at, email_verified, phone_verified, kyc_status
			FROM sellers WHERE id = $1`,
		sellerID).Scan(
		&seller.ID,
		&seller.AccountCreatedAt,
		&seller.EmailVerified,
		&seller.PhoneVerified,
		&seller.KycStatus,
	)

	if err == pgx.ErrNoRows {
		return nil, autrust.ErrSellerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seller: %w", err)
	}

	return &seller, nil
}

// GetSellerStats implements autrust.Store. A seller with no stats row has
// zero counters; that is not an error.
func (s *Storage) GetSellerStats(ctx context.Context, sellerID string) (autrust.SellerStats, error) {
	var stats autrust.SellerStats

	err := s.pool.QueryRow(ctx,
		`SELECT listings_count, ratings_average, ratings_count
			FROM seller_stats WHERE seller_id = $1`,
		sellerID).Scan(
		&stats.ListingsCount,
		&stats.RatingsAverage,
		&stats.RatingsCount,
	)

	if err == pgx.ErrNoRows {
		return autrust.SellerStats{}, nil
	}
	if err != nil {
		return autrust.SellerStats{}, fmt.Errorf("failed to get seller stats: %w", err)
	}

	return stats, nil
}

// GetReport implements autrust.Store
func (s *Storage) GetReport(ctx context.Context, reportID string) (*autrust.Report, error) {
	return s.getReport(ctx, `WHERE id = $1`, reportID)
}

// GetReportBySession implements autrust.Store
func (s *Storage) GetReportBySession(ctx context.Context, sessionID string) (*autrust.Report, error) {
	return s.getReport(ctx, `WHERE session_id = $1`, sessionID)
}

func (s *Storage) getReport(ctx context.Context, where, arg string) (*autrust.Report, error) {
	var report autrust.Report
	var sessionID *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, listing_id, session_id, status, updated_at FROM reports `+where,
		arg).Scan(
		&report.ID,
		&report.ListingID,
		&sessionID,
		&report.Status,
		&report.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, autrust.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	if sessionID != nil {
		report.SessionID = *sessionID
	}
	return &report, nil
}

// MarkReportPaid implements autrust.Store. The status predicate makes the
// transition replay-safe: a second delivery matches zero rows and the report
// is left as-is.
func (s *Storage) MarkReportPaid(ctx context.Context, reportID, sessionID string, now time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE reports
			SET status = $2, session_id = $3, updated_at = $4
			WHERE id = $1 AND status = $5`,
		reportID, autrust.ReportPaidAwaitingUpload, sessionID, now, autrust.ReportPendingPayment,
	)
	if err != nil {
		return fmt.Errorf("failed to mark report paid: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows: either a replay (report already transitioned) or an unknown
	// report id. Distinguish the two.
	var exists bool
	err = s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reports WHERE id = $1)`,
		reportID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check report: %w", err)
	}
	if !exists {
		return autrust.ErrReportNotFound
	}
	return nil
}

// UpsertOrder implements autrust.Store
func (s *Storage) UpsertOrder(ctx context.Context, order *autrust.Order) error {
	if order == nil || order.SessionID == "" {
		return fmt.Errorf("invalid order")
	}

	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO orders (session_id, amount_cents, currency, buyer_email, buyer_name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			ON CONFLICT (session_id) DO UPDATE SET
				buyer_email = EXCLUDED.buyer_email,
				buyer_name = EXCLUDED.buyer_name,
				updated_at = EXCLUDED.updated_at`,
		order.SessionID, order.AmountCents, order.Currency, order.BuyerEmail, order.BuyerName, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}
	return nil
}

// GetOrder implements autrust.Store
func (s *Storage) GetOrder(ctx context.Context, sessionID string) (*autrust.Order, error) {
	var order autrust.Order

	err := s.pool.QueryRow(ctx,
		`SELECT session_id, amount_cents, currency, buyer_email, buyer_name, created_at, updated_at
			FROM orders WHERE session_id = $1`,
		sessionID).Scan(
		&order.SessionID,
		&order.AmountCents,
		&order.Currency,
		&order.BuyerEmail,
		&order.BuyerName,
		&order.CreatedAt,
		&order.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// GetSponsorship implements autrust.Store
func (s *Storage) GetSponsorship(ctx context.Context, listingID string) (*autrust.Sponsorship, error) {
	var sp autrust.Sponsorship

	err := s.pool.QueryRow(ctx,
		`SELECT listing_id, is_sponsored, sponsored_until, updated_at
			FROM sponsorships WHERE listing_id = $1`,
		listingID).Scan(
		&sp.ListingID,
		&sp.IsSponsored,
		&sp.SponsoredUntil,
		&sp.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sponsorship: %w", err)
	}
	return &sp, nil
}

// ActivateSponsorship implements autrust.Store
func (s *Storage) ActivateSponsorship(ctx context.Context, listingID string, until, now time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sponsorships (listing_id, is_sponsored, sponsored_until, updated_at)
			VALUES ($1, TRUE, $2, $3)
			ON CONFLICT (listing_id) DO UPDATE SET
				is_sponsored = TRUE,
				sponsored_until = EXCLUDED.sponsored_until,
				updated_at = EXCLUDED.updated_at`,
		listingID, until, now,
	)
	if err != nil {
		return fmt.Errorf("failed to activate sponsorship: %w", err)
	}
	return nil
}

// GetSponsorPayment implements autrust.Store
func (s *Storage) GetSponsorPayment(ctx context.Context, sessionID string) (*autrust.SponsorPayment, error) {
	var payment autrust.SponsorPayment

	err := s.pool.QueryRow(ctx,
		`SELECT session_id, listing_id, duration_days, amount_cents, currency, created_at
			FROM sponsor_payments WHERE session_id = $1`,
		sessionID).Scan(
		&payment.SessionID,
		&payment.ListingID,
		&payment.DurationDays,
		&payment.AmountCents,
		&payment.Currency,
		&payment.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sponsor payment: %w", err)
	}
	return &payment, nil
}

// RecordSponsorPayment implements autrust.Store
func (s *Storage) RecordSponsorPayment(ctx context.Context, payment *autrust.SponsorPayment) error {
	if payment == nil || payment.SessionID == "" {
		return fmt.Errorf("invalid sponsor payment")
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO sponsor_payments (session_id, listing_id, duration_days, amount_cents, currency, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (session_id) DO NOTHING`,
		payment.SessionID, payment.ListingID, payment.DurationDays,
		payment.AmountCents, payment.Currency, payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record sponsor payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autrust.ErrSponsorPaymentExists
	}
	return nil
}

// CreateDeposit implements autrust.Store
func (s *Storage) CreateDeposit(ctx context.Context, deposit *autrust.Deposit) error {
	if deposit == nil || deposit.SessionID == "" {
		return fmt.Errorf("invalid deposit")
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO deposits (session_id, listing_id, buyer_id, seller_id, amount_cents, currency, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (session_id) DO NOTHING`,
		deposit.SessionID, deposit.ListingID, deposit.BuyerID, deposit.SellerID,
		deposit.AmountCents, deposit.Currency, deposit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create deposit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autrust.ErrDepositExists
	}
	return nil
}

// GetDeposit implements autrust.Store
func (s *Storage) GetDeposit(ctx context.Context, sessionID string) (*autrust.Deposit, error) {
	var deposit autrust.Deposit

	err := s.pool.QueryRow(ctx,
		`SELECT session_id, listing_id, buyer_id, seller_id, amount_cents, currency, created_at
			FROM deposits WHERE session_id = $1`,
		sessionID).Scan(
		&deposit.SessionID,
		&deposit.ListingID,
		&deposit.BuyerID,
		&deposit.SellerID,
		&deposit.AmountCents,
		&deposit.Currency,
		&deposit.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	return &deposit, nil
}

// GetPlanState implements autrust.Store
func (s *Storage) GetPlanState(ctx context.Context, userID string) (*autrust.PlanState, error) {
	var state autrust.PlanState
	var pendingRaw []byte

	err := s.pool.QueryRow(ctx,
		`SELECT user_id, selected_plan, max_listings, pending_change, updated_at
			FROM plan_states WHERE user_id = $1`,
		userID).Scan(
		&state.UserID,
		&state.SelectedPlan,
		&state.MaxListings,
		&pendingRaw,
		&state.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, autrust.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan state: %w", err)
	}

	if len(pendingRaw) > 0 {
		var pending autrust.PendingPlanChange
		if err := json.Unmarshal(pendingRaw, &pending); err != nil {
			return nil, fmt.Errorf("failed to decode pending plan change: %w", err)
		}
		state.PendingPlanChange = &pending
	}
	return &state, nil
}

// ApplyPlanChange implements autrust.Store. MaxListings 0 keeps the current
// value; the pending change is always cleared.
func (s *Storage) ApplyPlanChange(ctx context.Context, req *autrust.PlanChangeRequest) error {
	if req == nil || req.UserID == "" {
		return fmt.Errorf("invalid plan change request")
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO plan_states (user_id, selected_plan, max_listings, pending_change, updated_at)
			VALUES ($1, $2, $3, NULL, $4)
			ON CONFLICT (user_id) DO UPDATE SET
				selected_plan = EXCLUDED.selected_plan,
				max_listings = CASE WHEN EXCLUDED.max_listings = 0
					THEN plan_states.max_listings ELSE EXCLUDED.max_listings END,
				pending_change = NULL,
				updated_at = EXCLUDED.updated_at`,
		req.UserID, req.NewPlan, req.MaxListings, now,
	)
	if err != nil {
		return fmt.Errorf("failed to apply plan change: %w", err)
	}
	return nil
}

// SetPendingPlanChange implements autrust.Store
func (s *Storage) SetPendingPlanChange(
	ctx context.Context, userID string, change *autrust.PendingPlanChange,
) error {
	if change == nil {
		return fmt.Errorf("invalid pending plan change")
	}

	raw, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to encode pending plan change: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO plan_states (user_id, selected_plan, max_listings, pending_change, updated_at)
			VALUES ($1, '', 0, $2, $3)
			ON CONFLICT (user_id) DO UPDATE SET
				pending_change = EXCLUDED.pending_change,
				updated_at = EXCLUDED.updated_at`,
		userID, raw, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set pending plan change: %w", err)
	}
	return nil
}

// ListPendingPlanChanges implements autrust.Store
func (s *Storage) ListPendingPlanChanges(ctx context.Context) ([]*autrust.PlanState, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, selected_plan, max_listings, pending_change, updated_at
			FROM plan_states WHERE pending_change IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending plan changes: %w", err)
	}
	defer rows.Close()

	var states []*autrust.PlanState
	for rows.Next() {
		var state autrust.PlanState
		var pendingRaw []byte
		err := rows.Scan(
			&state.UserID,
			&state.SelectedPlan,
			&state.MaxListings,
			&pendingRaw,
			&state.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan state: %w", err)
		}
		var pending autrust.PendingPlanChange
		if err := json.Unmarshal(pendingRaw, &pending); err != nil {
			return nil, fmt.Errorf("failed to decode pending plan change: %w", err)
		}
		state.PendingPlanChange = &pending
		states = append(states, &state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plan states: %w", err)
	}
	return states, nil
}

// UpsertKycVerified implements autrust.Store. The record and the seller's
// snapshot flag change together or not at all.
func (s *Storage) UpsertKycVerified(ctx context.Context, req *autrust.KycVerification) error {
	if req == nil || req.UserID == "" {
		return fmt.Errorf("invalid kyc verification")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Latest verification wins; an out-of-order older event must not move
	// verified_at backwards or change the winning session id.
	_, err = tx.Exec(ctx,
		`INSERT INTO kyc_records (user_id, session_id, status, verified_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id) DO UPDATE SET
				session_id = CASE WHEN EXCLUDED.verified_at > kyc_records.verified_at
					THEN EXCLUDED.session_id ELSE kyc_records.session_id END,
				verified_at = GREATEST(kyc_records.verified_at, EXCLUDED.verified_at),
				status = EXCLUDED.status`,
		req.UserID, req.SessionID, autrust.KycVerified, req.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert kyc record: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE sellers SET kyc_status = $2 WHERE id = $1`,
		req.UserID, autrust.KycVerified,
	)
	if err != nil {
		return fmt.Errorf("failed to update seller kyc status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit kyc verification: %w", err)
	}
	return nil
}

// GetKycRecord implements autrust.Store
func (s *Storage) GetKycRecord(ctx context.Context, userID string) (*autrust.KycRecord, error) {
	var record autrust.KycRecord

	err := s.pool.QueryRow(ctx,
		`SELECT user_id, session_id, status, verified_at
			FROM kyc_records WHERE user_id = $1`,
		userID).Scan(
		&record.UserID,
		&record.SessionID,
		&record.Status,
		&record.VerifiedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kyc record: %w", err)
	}
	return &record, nil
}

// UpdatePayoutAccount implements autrust.Store
func (s *Storage) UpdatePayoutAccount(ctx context.Context, account *autrust.PayoutAccount) error {
	if account == nil || account.AccountID == "" {
		return fmt.Errorf("invalid payout account")
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO payout_accounts (account_id, charges_enabled, payouts_enabled, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (account_id) DO UPDATE SET
				charges_enabled = EXCLUDED.charges_enabled,
				payouts_enabled = EXCLUDED.payouts_enabled,
				updated_at = EXCLUDED.updated_at`,
		account.AccountID, account.ChargesEnabled, account.PayoutsEnabled, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update payout account: %w", err)
	}
	return nil
}
