// Package memory provides an in-memory implementation of the autrust Store
// interface. Suitable for testing and single-instance deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
)

// Storage is an in-memory Store. All methods return copies, so callers can
// never mutate internal state through a returned pointer.
type Storage struct {
	mu              sync.RWMutex
	sellers         map[string]*autrust.Seller
	stats           map[string]autrust.SellerStats
	reports         map[string]*autrust.Report
	orders          map[string]*autrust.Order
	sponsorships    map[string]*autrust.Sponsorship
	sponsorPayments map[string]*autrust.SponsorPayment
	deposits        map[string]*autrust.Deposit
	plans           map[string]*autrust.PlanState
	kycRecords      map[string]*autrust.KycRecord
	payoutAccounts  map[string]*autrust.PayoutAccount

	clock func() time.Time
}

var _ autrust.Store = (*Storage)(nil)
var _ autrust.TimeSource = (*Storage)(nil)

// New creates an empty in-memory store.
func New() *Storage {
	return &Storage{
		sellers:         make(map[string]*autrust.Seller),
		stats:           make(map[string]autrust.SellerStats),
		reports:         make(map[string]*autrust.Report),
		orders:          make(map[string]*autrust.Order),
		sponsorships:    make(map[string]*autrust.Sponsorship),
		sponsorPayments: make(map[string]*autrust.SponsorPayment),
		deposits:        make(map[string]*autrust.Deposit),
		plans:           make(map[string]*autrust.PlanState),
		kycRecords:      make(map[string]*autrust.KycRecord),
		payoutAccounts:  make(map[string]*autrust.PayoutAccount),
		clock:           func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the store's clock. Intended for tests.
func (s *Storage) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// Now implements autrust.TimeSource.
func (s *Storage) Now(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clock(), nil
}

// PutSeller inserts or replaces a seller snapshot.
func (s *Storage) PutSeller(seller *autrust.Seller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *seller
	s.sellers[seller.ID] = &copied
}

// SetSellerStats sets the aggregate counters for a seller.
func (s *Storage) SetSellerStats(sellerID string, stats autrust.SellerStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[sellerID] = stats
}

// PutReport inserts or replaces a report.
func (s *Storage) PutReport(report *autrust.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *report
	s.reports[report.ID] = &copied
}

func (s *Storage) GetSeller(_ context.Context, sellerID string) (*autrust.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seller, ok := s.sellers[sellerID]
	if !ok {
		return nil, autrust.ErrSellerNotFound
	}
	copied := *seller
	return &copied, nil
}

func (s *Storage) GetSellerStats(_ context.Context, sellerID string) (autrust.SellerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats[sellerID], nil
}

func (s *Storage) GetReport(_ context.Context, reportID string) (*autrust.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[reportID]
	if !ok {
		return nil, autrust.ErrReportNotFound
	}
	copied := *report
	return &copied, nil
}

func (s *Storage) GetReportBySession(_ context.Context, sessionID string) (*autrust.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, report := range s.reports {
		if report.SessionID == sessionID {
			copied := *report
			return &copied, nil
		}
	}
	return nil, autrust.ErrReportNotFound
}

func (s *Storage) MarkReportPaid(_ context.Context, reportID, sessionID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[reportID]
	if !ok {
		return autrust.ErrReportNotFound
	}
	// Already past PendingPayment: replay, leave untouched.
	if report.Status != autrust.ReportPendingPayment {
		return nil
	}
	report.Status = autrust.ReportPaidAwaitingUpload
	report.SessionID = sessionID
	report.UpdatedAt = now
	return nil
}

func (s *Storage) UpsertOrder(_ context.Context, order *autrust.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	existing, ok := s.orders[order.SessionID]
	if !ok {
		copied := *order
		copied.CreatedAt = now
		copied.UpdatedAt = now
		s.orders[order.SessionID] = &copied
		return nil
	}
	existing.BuyerEmail = order.BuyerEmail
	existing.BuyerName = order.BuyerName
	existing.UpdatedAt = now
	return nil
}

func (s *Storage) GetOrder(_ context.Context, sessionID string) (*autrust.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *order
	return &copied, nil
}

func (s *Storage) GetSponsorship(_ context.Context, listingID string) (*autrust.Sponsorship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sponsorship, ok := s.sponsorships[listingID]
	if !ok {
		return nil, nil
	}
	copied := *sponsorship
	return &copied, nil
}

func (s *Storage) ActivateSponsorship(_ context.Context, listingID string, until, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sponsorships[listingID] = &autrust.Sponsorship{
		ListingID:      listingID,
		IsSponsored:    true,
		SponsoredUntil: until,
		UpdatedAt:      now,
	}
	return nil
}

func (s *Storage) GetSponsorPayment(_ context.Context, sessionID string) (*autrust.SponsorPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payment, ok := s.sponsorPayments[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *payment
	return &copied, nil
}

func (s *Storage) RecordSponsorPayment(_ context.Context, payment *autrust.SponsorPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sponsorPayments[payment.SessionID]; ok {
		return autrust.ErrSponsorPaymentExists
	}
	copied := *payment
	s.sponsorPayments[payment.SessionID] = &copied
	return nil
}

func (s *Storage) CreateDeposit(_ context.Context, deposit *autrust.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deposits[deposit.SessionID]; ok {
		return autrust.ErrDepositExists
	}
	copied := *deposit
	s.deposits[deposit.SessionID] = &copied
	return nil
}

func (s *Storage) GetDeposit(_ context.Context, sessionID string) (*autrust.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deposit, ok := s.deposits[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *deposit
	return &copied, nil
}

func (s *Storage) GetPlanState(_ context.Context, userID string) (*autrust.PlanState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.plans[userID]
	if !ok {
		return nil, autrust.ErrPlanNotFound
	}
	return copyPlanState(state), nil
}

func (s *Storage) ApplyPlanChange(_ context.Context, req *autrust.PlanChangeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := req.Now
	if now.IsZero() {
		now = s.clock()
	}

	state, ok := s.plans[req.UserID]
	if !ok {
		state = &autrust.PlanState{UserID: req.UserID}
		s.plans[req.UserID] = state
	}
	state.SelectedPlan = req.NewPlan
	if req.MaxListings != 0 {
		state.MaxListings = req.MaxListings
	}
	state.PendingPlanChange = nil
	state.UpdatedAt = now
	return nil
}

func (s *Storage) SetPendingPlanChange(
	_ context.Context, userID string, change *autrust.PendingPlanChange,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.plans[userID]
	if !ok {
		state = &autrust.PlanState{UserID: userID}
		s.plans[userID] = state
	}
	copied := *change
	state.PendingPlanChange = &copied
	state.UpdatedAt = s.clock()
	return nil
}

func (s *Storage) ListPendingPlanChanges(_ context.Context) ([]*autrust.PlanState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var states []*autrust.PlanState
	for _, state := range s.plans {
		if state.PendingPlanChange != nil {
			states = append(states, copyPlanState(state))
		}
	}
	return states, nil
}

func (s *Storage) UpsertKycVerified(_ context.Context, req *autrust.KycVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.kycRecords[req.UserID]
	if !ok {
		record = &autrust.KycRecord{UserID: req.UserID}
		s.kycRecords[req.UserID] = record
	}
	// Latest verification wins; the status never regresses from Verified.
	if req.VerifiedAt.After(record.VerifiedAt) {
		record.SessionID = req.SessionID
		record.VerifiedAt = req.VerifiedAt
	}
	record.Status = autrust.KycVerified

	if seller, ok := s.sellers[req.UserID]; ok {
		seller.KycStatus = autrust.KycVerified
	}
	return nil
}

func (s *Storage) GetKycRecord(_ context.Context, userID string) (*autrust.KycRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.kycRecords[userID]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (s *Storage) UpdatePayoutAccount(_ context.Context, account *autrust.PayoutAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *account
	copied.UpdatedAt = s.clock()
	s.payoutAccounts[account.AccountID] = &copied
	return nil
}

// GetPayoutAccount retrieves the payout-capability flags for a provider
// account id. Returns nil, nil when absent.
func (s *Storage) GetPayoutAccount(_ context.Context, accountID string) (*autrust.PayoutAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.payoutAccounts[accountID]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func copyPlanState(state *autrust.PlanState) *autrust.PlanState {
	copied := *state
	if state.PendingPlanChange != nil {
		pending := *state.PendingPlanChange
		copied.PendingPlanChange = &pending
	}
	return &copied
}
