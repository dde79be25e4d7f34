package server

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/settle"
)

// handleListUnsettled returns the group's net balances alongside the raw
// unsettled share count, mostly for debugging and UIs.
func (s *Server) handleListUnsettled(w http.ResponseWriter, r *http.Request) {
	group, err := s.memberGroup(w, r)
	if group == nil || err != nil {
		return
	}

	obligations, err := s.ledger.ListUnsettled(r.Context(), group.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	balances := settle.Balances(obligations)
	views := make([]balanceView, 0, len(balances))
	for _, b := range balances {
		views = append(views, balanceView{Member: b.Member, Amount: b.Amount.Decimal()})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"unsettled_shares": len(obligations),
		"balances":         views,
	})
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	group, err := s.memberGroup(w, r)
	if group == nil || err != nil {
		return
	}

	obligations, err := s.ledger.ListUnsettled(r.Context(), group.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanView(settle.Plan(group.ID, obligations)))
}

type acceptPlanRequest struct {
	Entries []struct {
		From   models.MemberRef `json:"from"`
		To     models.MemberRef `json:"to"`
		Amount decimal.Decimal  `json:"amount"`
	} `json:"entries"`
}

func (s *Server) handleAcceptPlan(w http.ResponseWriter, r *http.Request) {
	group, err := s.memberGroup(w, r)
	if group == nil || err != nil {
		return
	}

	var req acceptPlanRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	entries := make([]models.TransferEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		amount, err := money.FromDecimal(e.Amount)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		entries = append(entries, models.TransferEntry{From: e.From, To: e.To, Amount: amount})
	}

	actor := actorFromContext(r.Context())
	if err := s.ledger.AcceptPlan(r.Context(), actor, group.ID, entries); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
