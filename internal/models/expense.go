package models

import "github.com/splitledger/splitledger/internal/money"

// SplitPolicy is the rule used to turn an expense amount into shares.
type SplitPolicy string

const (
	// PolicySinglePayer records a purchase the creator made for themselves
	// alone. No participants, no shares.
	PolicySinglePayer SplitPolicy = "single_payer"

	// PolicyPayerCoversOthers records that the payer covered the full amount
	// on behalf of each participant independently: every participant owes the
	// payer the ENTIRE expense amount, not a fraction of it. "I paid this
	// bill, and separately you owe me an equivalent bill."
	PolicyPayerCoversOthers SplitPolicy = "payer_covers_others"

	// PolicyEqual divides the amount evenly across participants plus the
	// creator. The creator's own portion is implicit and never becomes a
	// share against themselves.
	PolicyEqual SplitPolicy = "equal"

	// PolicyPercentage divides the amount by caller-supplied percentages over
	// participants plus the creator; the percentages must sum to 100.
	PolicyPercentage SplitPolicy = "percentage"
)

// Valid reports whether p is one of the four supported policies.
func (p SplitPolicy) Valid() bool {
	switch p {
	case PolicySinglePayer, PolicyPayerCoversOthers, PolicyEqual, PolicyPercentage:
		return true
	}
	return false
}

// Expense represents a recorded group purchase. An expense always has exactly
// one payer and one creator; they are usually the same member but may differ
// when someone records a purchase on the payer's behalf.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Payer is the member who put up the money.
	Payer MemberRef

	// Creator is the member who recorded the expense. The creator is never
	// liable for a share it created on others' behalf unless the policy
	// assigns it one explicitly.
	Creator MemberRef

	// Amount is the full expense amount.
	Amount money.Money

	// Policy is how Amount was turned into Shares.
	Policy SplitPolicy

	// Description and Category are optional free-form metadata.
	Description string
	Category    string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64

	// Shares are the obligations computed from Amount under Policy.
	Shares []Share
}

// Share is one debtor's obligation arising from an expense. The creditor is
// always the owning expense's payer.
type Share struct {
	// ID is the unique identifier for the share (UUID format).
	ID string

	// ExpenseID is the owning expense.
	ExpenseID string

	// Debtor is the member who owes Amount to the expense payer.
	Debtor MemberRef

	// Amount is the owed amount. Non-negative.
	Amount money.Money

	// Percentage is the debtor's slice under the percentage policy.
	// Zero under every other policy.
	Percentage float64

	// Settled marks the obligation as paid. SettledAt and SettledBy are only
	// meaningful while Settled is true.
	Settled   bool
	SettledAt int64
	SettledBy MemberRef
}

// Obligation is the unsettled view of a share the optimizer consumes: the
// share joined with its creditor and the expense creation time. Derived, not
// persisted.
type Obligation struct {
	ShareID   string
	ExpenseID string
	GroupID   string
	Debtor    MemberRef
	Creditor  MemberRef
	Amount    money.Money
	CreatedAt int64
}
