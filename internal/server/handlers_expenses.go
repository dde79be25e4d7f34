package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/ledger"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

// expenseRequest is the creation/edit payload. Amount is a decimal with at
// most two fractional digits; the core works in cents.
type expenseRequest struct {
	GroupID           string             `json:"group_id,omitempty"`
	Amount            decimal.Decimal    `json:"amount"`
	Payer             *models.MemberRef  `json:"payer,omitempty"`
	Policy            string             `json:"policy"`
	Participants      []models.MemberRef `json:"participants"`
	Percentages       []float64          `json:"percentages,omitempty"`
	CreatorPercentage float64            `json:"creator_percentage,omitempty"`
	Description       string             `json:"description,omitempty"`
	Category          string             `json:"category,omitempty"`
}

func (req *expenseRequest) toInput() (ledger.ExpenseInput, error) {
	amount, err := money.FromDecimal(req.Amount)
	if err != nil {
		return ledger.ExpenseInput{}, err
	}
	in := ledger.ExpenseInput{
		GroupID:           req.GroupID,
		Amount:            amount,
		Policy:            models.SplitPolicy(req.Policy),
		Participants:      req.Participants,
		Percentages:       req.Percentages,
		CreatorPercentage: req.CreatorPercentage,
		Description:       req.Description,
		Category:          req.Category,
	}
	if req.Payer != nil {
		in.Payer = *req.Payer
	}
	return in, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	expense, err := s.ledger.CreateExpense(r.Context(), actor, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseView(expense))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.ledger.GetExpense(r.Context(), chi.URLParam(r, "expenseID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	group, err := s.store.GetGroup(r.Context(), expense.GroupID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !group.HasMember(actorFromContext(r.Context())) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "you are not a member of this group"})
		return
	}
	writeJSON(w, http.StatusOK, toExpenseView(expense))
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	expense, err := s.ledger.EditExpense(r.Context(), actor, chi.URLParam(r, "expenseID"), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseView(expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	if err := s.ledger.DeleteExpense(r.Context(), actor, chi.URLParam(r, "expenseID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type settleRequest struct {
	Debtor models.MemberRef `json:"debtor"`
}

func (s *Server) handleSettleShare(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	var req settleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	share, err := s.ledger.SettleShare(r.Context(), actor, chi.URLParam(r, "expenseID"), req.Debtor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShareView(*share))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	group, err := s.memberGroup(w, r)
	if group == nil || err != nil {
		return
	}

	expenses, err := s.ledger.ListExpenses(r.Context(), group.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	views := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		views = append(views, toExpenseView(e))
	}
	writeJSON(w, http.StatusOK, views)
}
