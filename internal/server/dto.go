package server

import (
	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/models"
)

// shareView is the wire shape of one share.
type shareView struct {
	ID         string            `json:"id"`
	Debtor     models.MemberRef  `json:"debtor"`
	Amount     decimal.Decimal   `json:"amount"`
	Percentage float64           `json:"percentage,omitempty"`
	Settled    bool              `json:"settled"`
	SettledAt  int64             `json:"settled_at,omitempty"`
	SettledBy  *models.MemberRef `json:"settled_by,omitempty"`
}

// expenseView is the wire shape of an expense with its shares.
type expenseView struct {
	ID          string           `json:"id"`
	GroupID     string           `json:"group_id"`
	Payer       models.MemberRef `json:"payer"`
	Creator     models.MemberRef `json:"creator"`
	Amount      decimal.Decimal  `json:"amount"`
	Policy      string           `json:"policy"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category,omitempty"`
	CreatedAt   int64            `json:"created_at"`
	Shares      []shareView      `json:"shares"`
}

func toShareView(s models.Share) shareView {
	v := shareView{
		ID:         s.ID,
		Debtor:     s.Debtor,
		Amount:     s.Amount.Decimal(),
		Percentage: s.Percentage,
		Settled:    s.Settled,
	}
	if s.Settled {
		v.SettledAt = s.SettledAt
		settledBy := s.SettledBy
		v.SettledBy = &settledBy
	}
	return v
}

func toExpenseView(e *models.Expense) expenseView {
	v := expenseView{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Payer:       e.Payer,
		Creator:     e.Creator,
		Amount:      e.Amount.Decimal(),
		Policy:      string(e.Policy),
		Description: e.Description,
		Category:    e.Category,
		CreatedAt:   e.CreatedAt,
		Shares:      make([]shareView, 0, len(e.Shares)),
	}
	for _, s := range e.Shares {
		v.Shares = append(v.Shares, toShareView(s))
	}
	return v
}

// transferView is the wire shape of one transfer plan entry.
type transferView struct {
	From   models.MemberRef `json:"from"`
	To     models.MemberRef `json:"to"`
	Amount decimal.Decimal  `json:"amount"`
}

// planView is the wire shape of a transfer plan.
type planView struct {
	GroupID   string         `json:"group_id"`
	Entries   []transferView `json:"entries"`
	Transfers int            `json:"transfers"`
}

func toPlanView(p models.TransferPlan) planView {
	v := planView{
		GroupID: p.GroupID,
		Entries: make([]transferView, 0, len(p.Entries)),
	}
	for _, e := range p.Entries {
		v.Entries = append(v.Entries, transferView{From: e.From, To: e.To, Amount: e.Amount.Decimal()})
	}
	v.Transfers = len(v.Entries)
	return v
}

// groupView is the wire shape of a group.
type groupView struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Members   []models.MemberRef `json:"members"`
	CreatedBy models.MemberRef   `json:"created_by"`
	CreatedAt int64              `json:"created_at"`
}

func toGroupView(g *models.Group) groupView {
	return groupView{
		ID:        g.ID,
		Name:      g.Name,
		Members:   g.Members,
		CreatedBy: g.CreatedBy,
		CreatedAt: g.CreatedAt,
	}
}

// balanceView is the wire shape of one member's net balance.
type balanceView struct {
	Member models.MemberRef `json:"member"`
	Amount decimal.Decimal  `json:"amount"`
}
