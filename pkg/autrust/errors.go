package autrust

import "errors"

var (
	// ErrSellerNotFound is returned when a seller snapshot does not exist
	ErrSellerNotFound = errors.New("seller not found")

	// ErrReportNotFound is returned when no report matches the given key
	ErrReportNotFound = errors.New("report not found")

	// ErrDepositExists is returned when a deposit for the session id already exists
	ErrDepositExists = errors.New("deposit already recorded for session")

	// ErrSponsorPaymentExists is returned when a sponsor payment for the session id already exists
	ErrSponsorPaymentExists = errors.New("sponsor payment already recorded for session")

	// ErrPlanNotFound is returned when a user has no plan state
	ErrPlanNotFound = errors.New("plan state not found")

	// ErrUnknownPlan is returned for a plan name outside the fixed table
	ErrUnknownPlan = errors.New("unknown plan")

	// ErrMaxListingsOutOfRange is returned when a requested maxListings falls
	// outside the target plan's bounds
	ErrMaxListingsOutOfRange = errors.New("max listings out of range for plan")

	// ErrStorageUnavailable is returned when storage is unavailable
	ErrStorageUnavailable = errors.New("storage unavailable")
)
