// Package settle computes net balances and who-pays-whom transfer plans
// from the ledger's unsettled-obligation view. Pure computation; applying a
// plan is the ledger's job.
package settle

import (
	"sort"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

// Balances folds a group's unsettled obligations into one net balance per
// member: credit for every share owed to them, debit for every share they
// owe. Members with a zero balance are dropped. The result is sorted by
// member key, and the balances always sum to zero.
func Balances(obligations []models.Obligation) []models.NetBalance {
	totals := make(map[string]money.Money)
	refs := make(map[string]models.MemberRef)

	for _, o := range obligations {
		ck, dk := o.Creditor.Key(), o.Debtor.Key()
		totals[ck] = totals[ck].Add(o.Amount)
		totals[dk] = totals[dk].Sub(o.Amount)
		refs[ck] = o.Creditor
		refs[dk] = o.Debtor
	}

	balances := make([]models.NetBalance, 0, len(totals))
	for key, amount := range totals {
		if amount.IsZero() {
			continue
		}
		balances = append(balances, models.NetBalance{Member: refs[key], Amount: amount})
	}
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].Member.Key() < balances[j].Member.Key()
	})
	return balances
}

// Plan computes a transfer plan that clears all outstanding obligations in
// the group by greedily matching the largest-magnitude debtor against the
// largest-magnitude creditor. Ties break toward the smaller member key, so
// identical input always yields an identical plan.
//
// The greedy heuristic does not guarantee the theoretical minimum number of
// transactions (that problem is NP-hard in general), but it is simple,
// deterministic, and always terminates with at most N-1 transfers for N
// members with a nonzero balance. An empty plan means there is nothing to
// settle; that is a valid result, not an error.
func Plan(groupID string, obligations []models.Obligation) models.TransferPlan {
	balances := Balances(obligations)

	var debtors, creditors []models.NetBalance
	for _, b := range balances {
		if b.Amount.IsNegative() {
			debtors = append(debtors, models.NetBalance{Member: b.Member, Amount: b.Amount.Neg()})
		} else {
			creditors = append(creditors, b)
		}
	}

	plan := models.TransferPlan{GroupID: groupID}
	for len(debtors) > 0 && len(creditors) > 0 {
		di := largest(debtors)
		ci := largest(creditors)
		transfer := money.Min(debtors[di].Amount, creditors[ci].Amount)

		plan.Entries = append(plan.Entries, models.TransferEntry{
			From:   debtors[di].Member,
			To:     creditors[ci].Member,
			Amount: transfer,
		})

		debtors[di].Amount = debtors[di].Amount.Sub(transfer)
		creditors[ci].Amount = creditors[ci].Amount.Sub(transfer)
		if debtors[di].Amount.IsZero() {
			debtors = append(debtors[:di], debtors[di+1:]...)
		}
		if creditors[ci].Amount.IsZero() {
			creditors = append(creditors[:ci], creditors[ci+1:]...)
		}
	}
	return plan
}

// largest returns the index of the largest balance, breaking ties toward
// the smaller member key. The slices are key-sorted, so scanning with a
// strict greater-than comparison is enough.
func largest(balances []models.NetBalance) int {
	best := 0
	for i := 1; i < len(balances); i++ {
		if balances[best].Amount.LessThan(balances[i].Amount) {
			best = i
		}
	}
	return best
}
