package models

import "github.com/splitledger/splitledger/internal/money"

// NetBalance is a member's aggregate position within a group: the sum of
// unsettled shares where the member is the creditor minus the sum where the
// member is the debtor. Positive means the member is owed money. The balances
// of all members in a group always sum to zero.
type NetBalance struct {
	Member MemberRef
	Amount money.Money
}

// TransferEntry is one proposed payment in a transfer plan.
type TransferEntry struct {
	From   MemberRef
	To     MemberRef
	Amount money.Money
}

// TransferPlan is an ordered list of payments that, once applied, drives
// every member's net balance to zero. Computed on demand, never persisted;
// accepting a plan is translated into share settlements.
type TransferPlan struct {
	GroupID string
	Entries []TransferEntry
}

// Empty reports whether there is nothing to settle.
func (p TransferPlan) Empty() bool {
	return len(p.Entries) == 0
}
