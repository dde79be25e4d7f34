// Package split turns an expense amount into per-member shares under one of
// four splitting policies. It is pure computation; persisting the result is
// the ledger's job.
package split

import (
	"errors"
	"fmt"
	"math"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

var (
	// ErrInvalidInput covers malformed policy input: non-positive amounts,
	// missing percentages, a creator or payer listed as their own debtor.
	ErrInvalidInput = errors.New("invalid policy input")

	// ErrPercentageSum is returned when the supplied percentages do not sum
	// to 100 within tolerance.
	ErrPercentageSum = errors.New("percentages must sum to 100")
)

// percentTolerance is how far the percentage sum may deviate from 100.
const percentTolerance = 0.01

// Input is everything needed to compute the shares of one expense.
type Input struct {
	Amount       money.Money
	Payer        models.MemberRef
	Creator      models.MemberRef
	Participants []models.MemberRef
	Policy       models.SplitPolicy

	// Percentages is parallel to Participants and required under the
	// percentage policy. CreatorPercentage is the creator's own slice;
	// it defaults to zero, meaning the participants carry the whole amount.
	Percentages       []float64
	CreatorPercentage float64
}

// ComputeShares computes the share set for the input. The second return is
// the implicit portion attributed to the creator (or to the payer listed as a
// participant) that never becomes a share record; the ledger uses it to
// reconcile share sums against the expense amount.
//
// Policy semantics worth calling out: under payer_covers_others every
// participant owes the ENTIRE amount, so the share total is a multiple of the
// expense amount rather than equal to it.
func ComputeShares(in Input) ([]models.Share, money.Money, error) {
	if err := validate(in); err != nil {
		return nil, money.Money{}, err
	}

	switch in.Policy {
	case models.PolicySinglePayer:
		// The full amount is the creator's own; nothing is owed.
		return nil, in.Amount, nil
	case models.PolicyPayerCoversOthers:
		return coverShares(in), money.Money{}, nil
	case models.PolicyEqual:
		return equalShares(in)
	case models.PolicyPercentage:
		return percentageShares(in)
	}
	return nil, money.Money{}, fmt.Errorf("%w: unknown policy %q", ErrInvalidInput, in.Policy)
}

func validate(in Input) error {
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	if !in.Policy.Valid() {
		return fmt.Errorf("%w: unknown policy %q", ErrInvalidInput, in.Policy)
	}
	if in.Payer.IsZero() || in.Creator.IsZero() {
		return fmt.Errorf("%w: payer and creator are required", ErrInvalidInput)
	}

	seen := make(map[string]bool, len(in.Participants))
	for _, p := range in.Participants {
		if p.IsZero() {
			return fmt.Errorf("%w: empty participant reference", ErrInvalidInput)
		}
		if p.Equal(in.Creator) {
			return fmt.Errorf("%w: creator %s cannot be made liable to itself", ErrInvalidInput, in.Creator)
		}
		if p.Equal(in.Payer) {
			return fmt.Errorf("%w: payer %s cannot owe themselves", ErrInvalidInput, in.Payer)
		}
		if seen[p.Key()] {
			return fmt.Errorf("%w: duplicate participant %s", ErrInvalidInput, p)
		}
		seen[p.Key()] = true
	}

	switch in.Policy {
	case models.PolicySinglePayer:
		if len(in.Participants) > 0 {
			return fmt.Errorf("%w: single_payer takes no participants", ErrInvalidInput)
		}
	case models.PolicyPercentage:
		if len(in.Percentages) != len(in.Participants) {
			return fmt.Errorf("%w: need one percentage per participant", ErrInvalidInput)
		}
		fallthrough
	default:
		if len(in.Participants) == 0 {
			return fmt.Errorf("%w: policy %s requires at least one participant", ErrInvalidInput, in.Policy)
		}
	}
	return nil
}

// coverShares gives every participant a share of the full expense amount.
func coverShares(in Input) []models.Share {
	shares := make([]models.Share, len(in.Participants))
	for i, p := range in.Participants {
		shares[i] = models.Share{Debtor: p, Amount: in.Amount}
	}
	return shares
}

// equalShares divides the amount across participants plus the creator. The
// rounding remainder from integer division always lands on the last
// participant, never on the creator, so results are deterministic and the
// recorded shares plus the creator's portion reconcile exactly to the amount.
func equalShares(in Input) ([]models.Share, money.Money, error) {
	parts := in.Amount.SplitEven(len(in.Participants) + 1)
	creatorPart := parts[0]
	shares := make([]models.Share, len(in.Participants))
	for i, p := range in.Participants {
		shares[i] = models.Share{Debtor: p, Amount: parts[i+1]}
	}
	return withCreatorShare(in, shares, creatorPart, 0)
}

// percentageShares divides the amount by the supplied percentages. As with
// equalShares the residual cent lands on the last participant.
func percentageShares(in Input) ([]models.Share, money.Money, error) {
	sum := in.CreatorPercentage
	for _, pct := range in.Percentages {
		if pct < 0 {
			return nil, money.Money{}, fmt.Errorf("%w: negative percentage", ErrInvalidInput)
		}
		sum += pct
	}
	if in.CreatorPercentage < 0 {
		return nil, money.Money{}, fmt.Errorf("%w: negative percentage", ErrInvalidInput)
	}
	if math.Abs(sum-100) > percentTolerance {
		return nil, money.Money{}, fmt.Errorf("%w: got %.2f", ErrPercentageSum, sum)
	}

	// Creator first so the Allocate residual falls on the last participant.
	percents := make([]float64, 0, len(in.Percentages)+1)
	percents = append(percents, in.CreatorPercentage)
	percents = append(percents, in.Percentages...)
	parts := in.Amount.Allocate(percents)

	creatorPart := parts[0]
	shares := make([]models.Share, len(in.Participants))
	for i, p := range in.Participants {
		shares[i] = models.Share{Debtor: p, Amount: parts[i+1], Percentage: in.Percentages[i]}
	}
	return withCreatorShare(in, shares, creatorPart, in.CreatorPercentage)
}

// withCreatorShare decides what happens to the creator's own portion. When
// the creator is also the payer the portion stays implicit: it is money the
// payer owes themselves. When someone else paid, the creator genuinely owes
// the payer and the portion becomes a real share.
func withCreatorShare(in Input, shares []models.Share, creatorPart money.Money, creatorPct float64) ([]models.Share, money.Money, error) {
	if in.Creator.Equal(in.Payer) {
		return shares, creatorPart, nil
	}
	shares = append(shares, models.Share{Debtor: in.Creator, Amount: creatorPart, Percentage: creatorPct})
	return shares, money.Money{}, nil
}

// VerifyShares checks the sum-of-shares invariant for a computed share set:
// under equal and percentage policies, recorded shares plus the implicit
// portion must equal the amount exactly; under payer_covers_others every
// share equals the full amount; under single_payer there are no shares. A
// failure here is a programming error in this package, not bad user input.
func VerifyShares(policy models.SplitPolicy, amount money.Money, shares []models.Share, implicit money.Money) error {
	switch policy {
	case models.PolicySinglePayer:
		if len(shares) != 0 {
			return fmt.Errorf("single_payer produced %d shares", len(shares))
		}
	case models.PolicyPayerCoversOthers:
		for _, s := range shares {
			if s.Amount != amount {
				return fmt.Errorf("cover share %s != amount %s", s.Amount, amount)
			}
		}
	case models.PolicyEqual, models.PolicyPercentage:
		total := implicit
		for _, s := range shares {
			if s.Amount.IsNegative() {
				return fmt.Errorf("negative share %s for %s", s.Amount, s.Debtor)
			}
			total = total.Add(s.Amount)
		}
		if total != amount {
			return fmt.Errorf("share total %s != amount %s", total, amount)
		}
	}
	return nil
}
