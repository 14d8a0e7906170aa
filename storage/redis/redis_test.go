package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
)

// setupTestRedis creates a Redis client for testing
// Requires Redis running on localhost:6379
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use DB 15 for testing
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	// Clear test database
	require.NoError(t, client.FlushDB(ctx).Err())

	return client
}

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	storage, err := New(setupTestRedis(t), DefaultConfig())
	require.NoError(t, err)
	return storage
}

func TestNew(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.Error(t, err, "nil client must be rejected")

	storage, err := New(redis.NewClient(&redis.Options{Addr: "localhost:6379"}), Config{})
	require.NoError(t, err)
	assert.Equal(t, "autrust:", storage.config.KeyPrefix)
	assert.Equal(t, 3, storage.config.MaxRetries)
}

func TestStorage_Sellers(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	_, err := storage.GetSeller(ctx, "seller_1")
	assert.ErrorIs(t, err, autrust.ErrSellerNotFound)

	seller := &autrust.Seller{
		ID:               "seller_1",
		AccountCreatedAt: time.Now().UTC().Add(-90 * 24 * time.Hour),
		EmailVerified:    true,
		PhoneVerified:    true,
		KycStatus:        autrust.KycNone,
	}
	require.NoError(t, storage.PutSeller(ctx, seller))

	got, err := storage.GetSeller(ctx, "seller_1")
	require.NoError(t, err)
	assert.Equal(t, "seller_1", got.ID)
	assert.True(t, got.EmailVerified)

	require.NoError(t, storage.SetSellerStats(ctx, "seller_1", autrust.SellerStats{ListingsCount: 3}))
	stats, err := storage.GetSellerStats(ctx, "seller_1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.ListingsCount)
}

func TestStorage_MarkReportPaid(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC()

	err := storage.MarkReportPaid(ctx, "rpt_missing", "cs_1", now)
	assert.ErrorIs(t, err, autrust.ErrReportNotFound)

	require.NoError(t, storage.PutReport(ctx, &autrust.Report{
		ID:        "rpt_1",
		ListingID: "lst_1",
		Status:    autrust.ReportPendingPayment,
		UpdatedAt: now.Add(-time.Hour),
	}))

	require.NoError(t, storage.MarkReportPaid(ctx, "rpt_1", "cs_1", now))

	got, err := storage.GetReport(ctx, "rpt_1")
	require.NoError(t, err)
	assert.Equal(t, autrust.ReportPaidAwaitingUpload, got.Status)
	assert.Equal(t, "cs_1", got.SessionID)

	// Replay with another session id leaves the report as-is.
	require.NoError(t, storage.MarkReportPaid(ctx, "rpt_1", "cs_other", now.Add(time.Hour)))
	got, err = storage.GetReport(ctx, "rpt_1")
	require.NoError(t, err)
	assert.Equal(t, "cs_1", got.SessionID, "replay must not overwrite the session id")

	bySession, err := storage.GetReportBySession(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "rpt_1", bySession.ID)
}

func TestStorage_UpsertOrder_Replay(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	first := &autrust.Order{SessionID: "cs_ord", AmountCents: 4900, Currency: "eur", BuyerEmail: "a@example.com"}
	require.NoError(t, storage.UpsertOrder(ctx, first))

	replay := &autrust.Order{SessionID: "cs_ord", AmountCents: 9999, Currency: "eur", BuyerEmail: "b@example.com"}
	require.NoError(t, storage.UpsertOrder(ctx, replay))

	got, err := storage.GetOrder(ctx, "cs_ord")
	require.NoError(t, err)
	assert.Equal(t, int64(4900), got.AmountCents, "stored amount must win on replay")
	assert.Equal(t, "b@example.com", got.BuyerEmail, "contact fields refresh on replay")
}

func TestStorage_SponsorPayments(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, storage.ActivateSponsorship(ctx, "lst_1", now.Add(7*24*time.Hour), now))
	sp, err := storage.GetSponsorship(ctx, "lst_1")
	require.NoError(t, err)
	require.NotNil(t, sp)
	assert.True(t, sp.IsSponsored)

	payment := &autrust.SponsorPayment{SessionID: "cs_sp", ListingID: "lst_1", DurationDays: 7, CreatedAt: now}
	require.NoError(t, storage.RecordSponsorPayment(ctx, payment))
	assert.ErrorIs(t, storage.RecordSponsorPayment(ctx, payment), autrust.ErrSponsorPaymentExists)
}

func TestStorage_Deposits(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	deposit := &autrust.Deposit{
		SessionID: "cs_dep", ListingID: "lst_1", BuyerID: "buyer_1", SellerID: "seller_1",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, storage.CreateDeposit(ctx, deposit))
	assert.ErrorIs(t, storage.CreateDeposit(ctx, deposit), autrust.ErrDepositExists)

	got, err := storage.GetDeposit(ctx, "cs_dep")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "buyer_1", got.BuyerID)
}

func TestStorage_PlanChanges(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	_, err := storage.GetPlanState(ctx, "user_1")
	assert.ErrorIs(t, err, autrust.ErrPlanNotFound)

	require.NoError(t, storage.ApplyPlanChange(ctx, &autrust.PlanChangeRequest{
		UserID: "user_1", NewPlan: autrust.PlanPro, MaxListings: 20,
	}))

	require.NoError(t, storage.SetPendingPlanChange(ctx, "user_1", &autrust.PendingPlanChange{
		NewPlan: autrust.PlanStart, RequestedAt: time.Now().UTC(),
	}))

	pending, err := storage.ListPendingPlanChanges(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, autrust.PlanStart, pending[0].PendingPlanChange.NewPlan)

	// MaxListings 0 keeps the current limit; the pending change clears.
	require.NoError(t, storage.ApplyPlanChange(ctx, &autrust.PlanChangeRequest{
		UserID: "user_1", NewPlan: autrust.PlanStart, MaxListings: 0,
	}))

	state, err := storage.GetPlanState(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, autrust.PlanStart, state.SelectedPlan)
	assert.Equal(t, 20, state.MaxListings)
	assert.Nil(t, state.PendingPlanChange)

	pending, err = storage.ListPendingPlanChanges(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestStorage_UpsertKycVerified_OutOfOrder(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	newer := time.Now().UTC()
	older := newer.Add(-time.Hour)

	require.NoError(t, storage.PutSeller(ctx, &autrust.Seller{
		ID: "seller_1", AccountCreatedAt: newer.Add(-30 * 24 * time.Hour),
	}))

	require.NoError(t, storage.UpsertKycVerified(ctx, &autrust.KycVerification{
		UserID: "seller_1", SessionID: "vs_new", VerifiedAt: newer,
	}))

	// An older redelivered event must not move verified_at backwards.
	require.NoError(t, storage.UpsertKycVerified(ctx, &autrust.KycVerification{
		UserID: "seller_1", SessionID: "vs_old", VerifiedAt: older,
	}))

	record, err := storage.GetKycRecord(ctx, "seller_1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "vs_new", record.SessionID)
	assert.True(t, record.VerifiedAt.Equal(newer))

	got, err := storage.GetSeller(ctx, "seller_1")
	require.NoError(t, err)
	assert.Equal(t, autrust.KycVerified, got.KycStatus)
}

func TestStorage_PayoutAccounts(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.UpdatePayoutAccount(ctx, &autrust.PayoutAccount{AccountID: "acct_1"}))
	require.NoError(t, storage.UpdatePayoutAccount(ctx, &autrust.PayoutAccount{
		AccountID: "acct_1", ChargesEnabled: true, PayoutsEnabled: true,
	}))

	got, err := storage.GetPayoutAccount(ctx, "acct_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.ChargesEnabled)
	assert.True(t, got.PayoutsEnabled)
}
