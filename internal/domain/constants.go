package domain

// Plans a caller may pay for.
const (
	PlanFreePosting   = "Free Posting"
	PlanStandardBoost = "Standard Boost"
	PlanPremiumBoost  = "Premium Boost"
)

var Plans = []string{PlanFreePosting, PlanStandardBoost, PlanPremiumBoost}

func IsValidPlan(name string) bool {
	for _, p := range Plans {
		if p == name {
			return true
		}
	}
	return false
}

// Outcome statuses written to the payment_outcomes table.
const (
	OutcomePending   = "pending"
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// MinOrderIDLength is the shortest order id accepted by the status lookup.
const MinOrderIDLength = 5

// GuestUserID is reported to the gateway when the caller carries no token.
const GuestUserID = "guest"
