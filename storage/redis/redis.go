// Package redis provides a Redis implementation of the autrust Store
// interface. Insert-once writes use SETNX; read-modify-write transitions run
// inside WATCH transactions so concurrent webhook deliveries cannot clobber
// each other.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
)

// Storage implements autrust.Store using Redis.
type Storage struct {
	client redis.UniversalClient
	config Config
}

var _ autrust.Store = (*Storage)(nil)

// Config holds Redis storage configuration
type Config struct {
	// KeyPrefix is prepended to all Redis keys (default: "autrust:")
	KeyPrefix string

	// MaxRetries is the maximum number of WATCH retry attempts when a
	// transaction races with a concurrent writer (default: 3)
	MaxRetries int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		KeyPrefix:  "autrust:",
		MaxRetries: 3,
	}
}

// New creates a new Redis storage adapter
// The client can be *redis.Client, *redis.ClusterClient, or *redis.Ring
func New(client redis.UniversalClient, config Config) (*Storage, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if config.KeyPrefix == "" {
		config.KeyPrefix = "autrust:"
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}

	return &Storage{client: client, config: config}, nil
}

func (s *Storage) key(parts ...string) string {
	key := s.config.KeyPrefix
	for i, part := range parts {
		if i > 0 {
			key += ":"
		}
		key += part
	}
	return key
}

func (s *Storage) sellerKey(id string) string        { return s.key("seller", id) }
func (s *Storage) statsKey(id string) string         { return s.key("stats", id) }
func (s *Storage) reportKey(id string) string        { return s.key("report", id) }
func (s *Storage) reportSessionKey(id string) string { return s.key("report_session", id) }
func (s *Storage) orderKey(id string) string         { return s.key("order", id) }
func (s *Storage) sponsorshipKey(id string) string   { return s.key("sponsorship", id) }
func (s *Storage) sponsorPayKey(id string) string    { return s.key("sponsor_payment", id) }
func (s *Storage) depositKey(id string) string       { return s.key("deposit", id) }
func (s *Storage) planKey(id string) string          { return s.key("plan", id) }
func (s *Storage) pendingPlansKey() string           { return s.key("plans_pending") }
func (s *Storage) kycKey(id string) string           { return s.key("kyc", id) }
func (s *Storage) payoutKey(id string) string        { return s.key("payout", id) }

func (s *Storage) getJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Storage) setJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// setJSONNX stores v only when the key is absent. Returns false on replay.
func (s *Storage) setJSONNX(ctx context.Context, key string, v interface{}) (bool, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("failed to encode %s: %w", key, err)
	}
	ok, err := s.client.SetNX(ctx, key, raw, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set %s: %w", key, err)
	}
	return ok, nil
}

// withWatch runs fn under WATCH on the given keys, retrying when a concurrent
// writer invalidates the transaction.
func (s *Storage) withWatch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	var err error
	for i := 0; i < s.config.MaxRetries; i++ {
		err = s.client.Watch(ctx, fn, keys...)
		if err != redis.TxFailedErr {
			return err
		}
	}
	return err
}

// PutSeller inserts or replaces a seller snapshot.
func (s *Storage) PutSeller(ctx context.Context, seller *autrust.Seller) error {
	return s.setJSON(ctx, s.sellerKey(seller.ID), seller)
}

// SetSellerStats sets the aggregate counters for a seller.
func (s *Storage) SetSellerStats(ctx context.Context, sellerID string, stats autrust.SellerStats) error {
	return s.setJSON(ctx, s.statsKey(sellerID), stats)
}

// PutReport inserts or replaces a report and its session index.
func (s *Storage) PutReport(ctx context.Context, report *autrust.Report) error {
	if err := s.setJSON(ctx, s.reportKey(report.ID), report); err != nil {
		return err
	}
	if report.SessionID != "" {
		if err := s.client.Set(ctx, s.reportSessionKey(report.SessionID), report.ID, 0).Err(); err != nil {
			return fmt.Errorf("failed to index report session: %w", err)
		}
	}
	return nil
}

// GetSeller implements autrust.Store
func (s *Storage) GetSeller(ctx context.Context, sellerID string) (*autrust.Seller, error) {
	var seller autrust.Seller
	found, err := s.getJSON(ctx, s.sellerKey(sellerID), &seller)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, autrust.ErrSellerNotFound
	}
	return &seller, nil
}

// GetSellerStats implements autrust.Store
func (s *Storage) GetSellerStats(ctx context.Context, sellerID string) (autrust.SellerStats, error) {
	var stats autrust.SellerStats
	if _, err := s.getJSON(ctx, s.statsKey(sellerID), &stats); err != nil {
		return autrust.SellerStats{}, err
	}
	return stats, nil
}

// GetReport implements autrust.Store
func (s *Storage) GetReport(ctx context.Context, reportID string) (*autrust.Report, error) {
	var report autrust.Report
	found, err := s.getJSON(ctx, s.reportKey(reportID), &report)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, autrust.ErrReportNotFound
	}
	return &report, nil
}

// GetReportBySession implements autrust.Store
func (s *Storage) GetReportBySession(ctx context.Context, sessionID string) (*autrust.Report, error) {
	reportID, err := s.client.Get(ctx, s.reportSessionKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, autrust.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve report session: %w", err)
	}
	return s.GetReport(ctx, reportID)
}

// MarkReportPaid implements autrust.Store
func (s *Storage) MarkReportPaid(ctx context.Context, reportID, sessionID string, now time.Time) error {
	key := s.reportKey(reportID)

	return s.withWatch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return autrust.ErrReportNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get report: %w", err)
		}

		var report autrust.Report
		if err := json.Unmarshal(raw, &report); err != nil {
			return fmt.Errorf("failed to decode report: %w", err)
		}
		// Already past PendingPayment: replay, leave untouched.
		if report.Status != autrust.ReportPendingPayment {
			return nil
		}

		report.Status = autrust.ReportPaidAwaitingUpload
		report.SessionID = sessionID
		report.UpdatedAt = now

		updated, err := json.Marshal(&report)
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			pipe.Set(ctx, s.reportSessionKey(sessionID), reportID, 0)
			return nil
		})
		return err
	}, key)
}

// UpsertOrder implements autrust.Store
func (s *Storage) UpsertOrder(ctx context.Context, order *autrust.Order) error {
	if order == nil || order.SessionID == "" {
		return fmt.Errorf("invalid order")
	}
	key := s.orderKey(order.SessionID)

	return s.withWatch(ctx, func(tx *redis.Tx) error {
		now := time.Now().UTC()
		stored := *order

		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to get order: %w", err)
		}
		if err == nil {
			// Existing row keeps its amount; only contact fields refresh.
			var existing autrust.Order
			if err := json.Unmarshal(raw, &existing); err != nil {
				return fmt.Errorf("failed to decode order: %w", err)
			}
			existing.BuyerEmail = order.BuyerEmail
			existing.BuyerName = order.BuyerName
			existing.UpdatedAt = now
			stored = existing
		} else {
			stored.CreatedAt = now
			stored.UpdatedAt = now
		}

		updated, err := json.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("failed to encode order: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}, key)
}

// GetOrder implements autrust.Store
func (s *Storage) GetOrder(ctx context.Context, sessionID string) (*autrust.Order, error) {
	var order autrust.Order
	found, err := s.getJSON(ctx, s.orderKey(sessionID), &order)
	if err != nil || !found {
		return nil, err
	}
	return &order, nil
}

// GetSponsorship implements autrust.Store
func (s *Storage) GetSponsorship(ctx context.Context, listingID string) (*autrust.Sponsorship, error) {
	var sp autrust.Sponsorship
	found, err := s.getJSON(ctx, s.sponsorshipKey(listingID), &sp)
	if err != nil || !found {
		return nil, err
	}
	return &sp, nil
}

// ActivateSponsorship implements autrust.Store
func (s *Storage) ActivateSponsorship(ctx context.Context, listingID string, until, now time.Time) error {
	return s.setJSON(ctx, s.sponsorshipKey(listingID), &autrust.Sponsorship{
		ListingID:      listingID,
		IsSponsored:    true,
		SponsoredUntil: until,
		UpdatedAt:      now,
	})
}

// GetSponsorPayment implements autrust.Store
func (s *Storage) GetSponsorPayment(ctx context.Context, sessionID string) (*autrust.SponsorPayment, error) {
	var payment autrust.SponsorPayment
	found, err := s.getJSON(ctx, s.sponsorPayKey(sessionID), &payment)
	if err != nil || !found {
		return nil, err
	}
	return &payment, nil
}

// RecordSponsorPayment implements autrust.Store
func (s *Storage) RecordSponsorPayment(ctx context.Context, payment *autrust.SponsorPayment) error {
	if payment == nil || payment.SessionID == "" {
		return fmt.Errorf("invalid sponsor payment")
	}
	ok, err := s.setJSONNX(ctx, s.sponsorPayKey(payment.SessionID), payment)
	if err != nil {
		return err
	}
	if !ok {
		return autrust.ErrSponsorPaymentExists
	}
	return nil
}

// CreateDeposit implements autrust.Store
func (s *Storage) CreateDeposit(ctx context.Context, deposit *autrust.Deposit) error {
	if deposit == nil || deposit.SessionID == "" {
		return fmt.Errorf("invalid deposit")
	}
	ok, err := s.setJSONNX(ctx, s.depositKey(deposit.SessionID), deposit)
	if err != nil {
		return err
	}
	if !ok {
		return autrust.ErrDepositExists
	}
	return nil
}

// GetDeposit implements autrust.Store
func (s *Storage) GetDeposit(ctx context.Context, sessionID string) (*autrust.Deposit, error) {
	var deposit autrust.Deposit
	found, err := s.getJSON(ctx, s.depositKey(sessionID), &deposit)
	if err != nil || !found {
		return nil, err
	}
	return &deposit, nil
}

// GetPlanState implements autrust.Store
func (s *Storage) GetPlanState(ctx context.Context, userID string) (*autrust.PlanState, error) {
	var state autrust.PlanState
	found, err := s.getJSON(ctx, s.planKey(userID), &state)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, autrust.ErrPlanNotFound
	}
	return &state, nil
}

// ApplyPlanChange implements autrust.Store
func (s *Storage) ApplyPlanChange(ctx context.Context, req *autrust.PlanChangeRequest) error {
	if req == nil || req.UserID == "" {
		return fmt.Errorf("invalid plan change request")
	}
	key := s.planKey(req.UserID)

	return s.withWatch(ctx, func(tx *redis.Tx) error {
		now := req.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}

		state := autrust.PlanState{UserID: req.UserID}
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to get plan state: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(raw, &state); err != nil {
				return fmt.Errorf("failed to decode plan state: %w", err)
			}
		}

		state.SelectedPlan = req.NewPlan
		if req.MaxListings != 0 {
			state.MaxListings = req.MaxListings
		}
		state.PendingPlanChange = nil
		state.UpdatedAt = now

		updated, err := json.Marshal(&state)
		if err != nil {
			return fmt.Errorf("failed to encode plan state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			pipe.SRem(ctx, s.pendingPlansKey(), req.UserID)
			return nil
		})
		return err
	}, key)
}

// SetPendingPlanChange implements autrust.Store
func (s *Storage) SetPendingPlanChange(
	ctx context.Context, userID string, change *autrust.PendingPlanChange,
) error {
	if change == nil {
		return fmt.Errorf("invalid pending plan change")
	}
	key := s.planKey(userID)

	return s.withWatch(ctx, func(tx *redis.Tx) error {
		state := autrust.PlanState{UserID: userID}
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to get plan state: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(raw, &state); err != nil {
				return fmt.Errorf("failed to decode plan state: %w", err)
			}
		}

		copied := *change
		state.PendingPlanChange = &copied
		state.UpdatedAt = time.Now().UTC()

		updated, err := json.Marshal(&state)
		if err != nil {
			return fmt.Errorf("failed to encode plan state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			pipe.SAdd(ctx, s.pendingPlansKey(), userID)
			return nil
		})
		return err
	}, key)
}

// ListPendingPlanChanges implements autrust.Store
func (s *Storage) ListPendingPlanChanges(ctx context.Context) ([]*autrust.PlanState, error) {
	userIDs, err := s.client.SMembers(ctx, s.pendingPlansKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending plan changes: %w", err)
	}

	var states []*autrust.PlanState
	for _, userID := range userIDs {
		state, err := s.GetPlanState(ctx, userID)
		if err == autrust.ErrPlanNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		if state.PendingPlanChange != nil {
			states = append(states, state)
		}
	}
	return states, nil
}

// UpsertKycVerified implements autrust.Store
func (s *Storage) UpsertKycVerified(ctx context.Context, req *autrust.KycVerification) error {
	if req == nil || req.UserID == "" {
		return fmt.Errorf("invalid kyc verification")
	}
	kycKey := s.kycKey(req.UserID)
	sellerKey := s.sellerKey(req.UserID)

	return s.withWatch(ctx, func(tx *redis.Tx) error {
		record := autrust.KycRecord{UserID: req.UserID}
		raw, err := tx.Get(ctx, kycKey).Bytes()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to get kyc record: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(raw, &record); err != nil {
				return fmt.Errorf("failed to decode kyc record: %w", err)
			}
		}

		// Latest verification wins; the status never regresses from Verified.
		if req.VerifiedAt.After(record.VerifiedAt) {
			record.SessionID = req.SessionID
			record.VerifiedAt = req.VerifiedAt
		}
		record.Status = autrust.KycVerified

		var seller *autrust.Seller
		sellerRaw, err := tx.Get(ctx, sellerKey).Bytes()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to get seller: %w", err)
		}
		if err == nil {
			seller = &autrust.Seller{}
			if err := json.Unmarshal(sellerRaw, seller); err != nil {
				return fmt.Errorf("failed to decode seller: %w", err)
			}
			seller.KycStatus = autrust.KycVerified
		}

		updatedRecord, err := json.Marshal(&record)
		if err != nil {
			return fmt.Errorf("failed to encode kyc record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, kycKey, updatedRecord, 0)
			if seller != nil {
				updatedSeller, err := json.Marshal(seller)
				if err != nil {
					return err
				}
				pipe.Set(ctx, sellerKey, updatedSeller, 0)
			}
			return nil
		})
		return err
	}, kycKey, sellerKey)
}

// GetKycRecord implements autrust.Store
func (s *Storage) GetKycRecord(ctx context.Context, userID string) (*autrust.KycRecord, error) {
	var record autrust.KycRecord
	found, err := s.getJSON(ctx, s.kycKey(userID), &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

// UpdatePayoutAccount implements autrust.Store
func (s *Storage) UpdatePayoutAccount(ctx context.Context, account *autrust.PayoutAccount) error {
	if account == nil || account.AccountID == "" {
		return fmt.Errorf("invalid payout account")
	}
	stored := *account
	stored.UpdatedAt = time.Now().UTC()
	return s.setJSON(ctx, s.payoutKey(account.AccountID), &stored)
}

// GetPayoutAccount retrieves the payout-capability flags for a provider
// account id. Returns nil, nil when absent.
func (s *Storage) GetPayoutAccount(ctx context.Context, accountID string) (*autrust.PayoutAccount, error) {
	var account autrust.PayoutAccount
	found, err := s.getJSON(ctx, s.payoutKey(accountID), &account)
	if err != nil || !found {
		return nil, err
	}
	return &account, nil
}

// Ping verifies the Redis connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
