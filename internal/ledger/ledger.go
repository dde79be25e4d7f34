// Package ledger is the durable record of expenses, their computed shares,
// and each share's settlement state. Every mutation is all-or-nothing and
// keeps the sum-of-shares invariant.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/splitledger/splitledger/internal/metrics"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/split"
	"github.com/splitledger/splitledger/internal/storage"
)

// Service implements the obligation ledger over a storage backend.
//
// Mutations are serialized per group: two concurrent edits to the same
// expense, or a settlement racing an edit, cannot interleave. Reads go
// straight to the store, which serves consistent snapshots.
type Service struct {
	store storage.Store
	locks sync.Map // group ID -> *sync.Mutex
}

// New creates a ledger service backed by the given store.
func New(store storage.Store) *Service {
	return &Service{store: store}
}

// lockGroup acquires the group's mutation lock and returns the unlock func.
func (s *Service) lockGroup(groupID string) func() {
	v, _ := s.locks.LoadOrStore(groupID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ResolveMember canonicalizes a member reference: an email belonging to a
// registered account resolves to that account's ID form, so both forms name
// the same ledger identity. An email nobody has registered stays in email
// form; registration later claims it via the store.
func (s *Service) ResolveMember(ctx context.Context, ref models.MemberRef) (models.MemberRef, error) {
	if ref.ID != "" || ref.IsZero() {
		return ref, nil
	}
	user, err := s.store.GetUserByEmail(ctx, ref.Email)
	if err != nil {
		return models.MemberRef{}, fmt.Errorf("failed to resolve member %s: %w", ref, err)
	}
	if user == nil {
		return ref, nil
	}
	return user.Ref(), nil
}

// ResolveMembers resolves every reference in the slice.
func (s *Service) ResolveMembers(ctx context.Context, refs []models.MemberRef) ([]models.MemberRef, error) {
	if len(refs) == 0 {
		return refs, nil
	}
	resolved := make([]models.MemberRef, len(refs))
	for i, ref := range refs {
		r, err := s.ResolveMember(ctx, ref)
		if err != nil {
			return nil, err
		}
		resolved[i] = r
	}
	return resolved, nil
}

// ExpenseInput is the creation/edit payload for an expense. The creator is
// the acting member and is passed separately.
type ExpenseInput struct {
	GroupID string
	Amount  money.Money

	// Payer defaults to the creator when zero.
	Payer models.MemberRef

	Policy       models.SplitPolicy
	Participants []models.MemberRef

	// Percentages is parallel to Participants; only used under the
	// percentage policy. CreatorPercentage is the creator's own slice.
	Percentages       []float64
	CreatorPercentage float64

	Description string
	Category    string
}

// CreateExpense computes shares for the input and persists the expense and
// its shares atomically. The creator must be a member of the group; payer
// and participants not yet in the group are added to it.
func (s *Service) CreateExpense(ctx context.Context, creator models.MemberRef, in ExpenseInput) (*models.Expense, error) {
	group, err := s.store.GetGroup(ctx, in.GroupID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if !group.HasMember(creator) {
		return nil, fmt.Errorf("%w: %s is not a member of group %s", ErrForbidden, creator, in.GroupID)
	}

	payer := in.Payer
	if payer.IsZero() {
		payer = creator
	}
	if payer, err = s.ResolveMember(ctx, payer); err != nil {
		return nil, err
	}
	if in.Participants, err = s.ResolveMembers(ctx, in.Participants); err != nil {
		return nil, err
	}

	shares, implicit, err := s.computeShares(creator, payer, in)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		GroupID:     in.GroupID,
		Payer:       payer,
		Creator:     creator,
		Amount:      in.Amount,
		Policy:      in.Policy,
		Description: in.Description,
		Category:    in.Category,
		Shares:      shares,
	}

	unlock := s.lockGroup(in.GroupID)
	defer unlock()

	if err := s.addNewMembers(ctx, group, payer, in.Participants); err != nil {
		return nil, err
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to persist expense: %w", err)
	}

	metrics.ExpensesCreated.WithLabelValues(string(in.Policy)).Inc()
	slog.Info("expense created",
		"expense_id", expense.ID,
		"group_id", expense.GroupID,
		"policy", expense.Policy,
		"amount", expense.Amount,
		"shares", len(expense.Shares),
		"implicit", implicit,
	)
	return expense, nil
}

// EditExpense re-resolves policy, participants and amount, discards the old
// share set and recomputes a new one. Settled status is carried over for
// debtors who remain participants; debtors dropped from the new
// configuration lose their shares entirely. Only the expense creator may
// edit. The group of an expense never changes.
func (s *Service) EditExpense(ctx context.Context, actor models.MemberRef, expenseID string, in ExpenseInput) (*models.Expense, error) {
	existing, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	unlock := s.lockGroup(existing.GroupID)
	defer unlock()

	// Re-read under the lock; a concurrent edit may have landed in between.
	existing, err = s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if !existing.Creator.Equal(actor) {
		return nil, fmt.Errorf("%w: only the creator may edit expense %s", ErrForbidden, expenseID)
	}

	payer := in.Payer
	if payer.IsZero() {
		payer = existing.Payer
	}
	if payer, err = s.ResolveMember(ctx, payer); err != nil {
		return nil, err
	}
	if in.Participants, err = s.ResolveMembers(ctx, in.Participants); err != nil {
		return nil, err
	}
	shares, _, err := s.computeShares(existing.Creator, payer, in)
	if err != nil {
		return nil, err
	}
	carryOverSettled(existing.Shares, shares)

	updated := &models.Expense{
		ID:          existing.ID,
		GroupID:     existing.GroupID,
		Payer:       payer,
		Creator:     existing.Creator,
		Amount:      in.Amount,
		Policy:      in.Policy,
		Description: in.Description,
		Category:    in.Category,
		CreatedAt:   existing.CreatedAt,
		Shares:      shares,
	}

	group, err := s.store.GetGroup(ctx, existing.GroupID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if err := s.addNewMembers(ctx, group, payer, in.Participants); err != nil {
		return nil, err
	}
	if err := s.store.ReplaceExpense(ctx, updated); err != nil {
		return nil, mapStoreErr(err)
	}

	slog.Info("expense edited",
		"expense_id", updated.ID,
		"group_id", updated.GroupID,
		"policy", updated.Policy,
		"amount", updated.Amount,
	)
	return updated, nil
}

// DeleteExpense removes the expense and all its shares. Only the creator
// may delete.
func (s *Service) DeleteExpense(ctx context.Context, actor models.MemberRef, expenseID string) error {
	existing, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return mapStoreErr(err)
	}

	unlock := s.lockGroup(existing.GroupID)
	defer unlock()

	existing, err = s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return mapStoreErr(err)
	}
	if !existing.Creator.Equal(actor) {
		return fmt.Errorf("%w: only the creator may delete expense %s", ErrForbidden, expenseID)
	}

	if err := s.store.DeleteExpense(ctx, expenseID); err != nil {
		return mapStoreErr(err)
	}
	slog.Info("expense deleted", "expense_id", expenseID, "group_id", existing.GroupID)
	return nil
}

// SettleShare marks the share matching (expenseID, debtor) as settled.
// Either the debtor settles their own share ("I paid") or the expense payer
// settles it on the debtor's behalf ("I received payment"). Re-settling an
// already settled share is an idempotent success: the original settlement
// timestamp is kept and nothing changes.
func (s *Service) SettleShare(ctx context.Context, actor models.MemberRef, expenseID string, debtor models.MemberRef) (*models.Share, error) {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	unlock := s.lockGroup(expense.GroupID)
	defer unlock()

	expense, err = s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if debtor, err = s.ResolveMember(ctx, debtor); err != nil {
		return nil, err
	}

	var settled, open []models.Share
	for _, share := range expense.Shares {
		if !share.Debtor.Equal(debtor) {
			continue
		}
		if share.Settled {
			settled = append(settled, share)
		} else {
			open = append(open, share)
		}
	}
	if len(settled) == 0 && len(open) == 0 {
		return nil, fmt.Errorf("%w: no share for debtor %s on expense %s", ErrNotFound, debtor, expenseID)
	}

	if !actor.Equal(debtor) && !actor.Equal(expense.Payer) {
		return nil, fmt.Errorf("%w: only the debtor or the payer may settle this share", ErrForbidden)
	}
	if len(open) == 0 {
		// Duplicate request from an authorized caller; report the prior
		// settlement unchanged.
		return &settled[0], nil
	}

	now := time.Now().Unix()
	ops := make([]storage.ShareSettlement, len(open))
	for i, share := range open {
		ops[i] = storage.ShareSettlement{
			ShareID:   share.ID,
			Amount:    share.Amount,
			SettledBy: actor,
			SettledAt: now,
		}
	}
	if err := s.store.ApplySettlements(ctx, ops); err != nil {
		return nil, mapStoreErr(err)
	}

	metrics.SharesSettled.WithLabelValues("direct").Add(float64(len(ops)))
	slog.Info("share settled",
		"expense_id", expenseID,
		"debtor", debtor,
		"actor", actor,
	)
	result := open[0]
	result.Settled = true
	result.SettledAt = now
	result.SettledBy = actor
	return &result, nil
}

// AcceptPlan applies a transfer plan: each entry settles the debtor's
// unsettled shares toward that creditor oldest-first, splitting the last
// touched share if the transfer amount does not exactly exhaust it. The
// whole plan is one transactional unit; a failing entry rolls back
// everything. Any group member may accept a plan.
func (s *Service) AcceptPlan(ctx context.Context, actor models.MemberRef, groupID string, entries []models.TransferEntry) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return mapStoreErr(err)
	}
	if !group.HasMember(actor) {
		return fmt.Errorf("%w: %s is not a member of group %s", ErrForbidden, actor, groupID)
	}

	resolved := make([]models.TransferEntry, len(entries))
	for i, entry := range entries {
		if entry.From, err = s.ResolveMember(ctx, entry.From); err != nil {
			return err
		}
		if entry.To, err = s.ResolveMember(ctx, entry.To); err != nil {
			return err
		}
		resolved[i] = entry
	}

	unlock := s.lockGroup(groupID)
	defer unlock()

	obligations, err := s.store.ListUnsettledShares(ctx, groupID)
	if err != nil {
		return err
	}

	// Bucket obligations by (debtor, creditor); the store returns them
	// oldest expense first, which is the order entries consume them in.
	buckets := make(map[[2]string][]*models.Obligation)
	for i := range obligations {
		o := &obligations[i]
		key := [2]string{o.Debtor.Key(), o.Creditor.Key()}
		buckets[key] = append(buckets[key], o)
	}

	now := time.Now().Unix()
	var ops []storage.ShareSettlement
	for _, entry := range resolved {
		if !entry.Amount.IsPositive() {
			return fmt.Errorf("%w: transfer from %s to %s must be positive", ErrValidation, entry.From, entry.To)
		}
		remaining := entry.Amount
		for _, o := range buckets[[2]string{entry.From.Key(), entry.To.Key()}] {
			if remaining.IsZero() {
				break
			}
			if o.Amount.IsZero() {
				continue
			}
			take := money.Min(remaining, o.Amount)
			ops = append(ops, storage.ShareSettlement{
				ShareID:   o.ShareID,
				Amount:    take,
				SettledBy: actor,
				SettledAt: now,
			})
			o.Amount = o.Amount.Sub(take)
			remaining = remaining.Sub(take)
		}
		if !remaining.IsZero() {
			return fmt.Errorf("%w: transfer of %s from %s to %s exceeds outstanding debt by %s",
				ErrValidation, entry.Amount, entry.From, entry.To, remaining)
		}
	}

	if err := s.store.ApplySettlements(ctx, ops); err != nil {
		return mapStoreErr(err)
	}

	metrics.PlansAccepted.Inc()
	metrics.SharesSettled.WithLabelValues("plan").Add(float64(len(ops)))
	slog.Info("transfer plan accepted",
		"group_id", groupID,
		"entries", len(entries),
		"settlements", len(ops),
		"actor", actor,
	)
	return nil
}

// ListUnsettled returns all unsettled obligations for a group, oldest
// expense first. This is the view the settlement optimizer consumes.
func (s *Service) ListUnsettled(ctx context.Context, groupID string) ([]models.Obligation, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, mapStoreErr(err)
	}
	return s.store.ListUnsettledShares(ctx, groupID)
}

// GetExpense retrieves an expense with its shares.
func (s *Service) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return expense, nil
}

// ListExpenses retrieves a group's expenses, newest first.
func (s *Service) ListExpenses(ctx context.Context, groupID string) ([]*models.Expense, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, mapStoreErr(err)
	}
	return s.store.ListExpensesByGroup(ctx, groupID)
}

// computeShares runs the split engine and enforces the sum-of-shares
// post-condition. A post-condition failure is a split engine bug: it is
// logged, counted, and nothing is persisted.
func (s *Service) computeShares(creator, payer models.MemberRef, in ExpenseInput) ([]models.Share, money.Money, error) {
	shares, implicit, err := split.ComputeShares(split.Input{
		Amount:            in.Amount,
		Payer:             payer,
		Creator:           creator,
		Participants:      in.Participants,
		Policy:            in.Policy,
		Percentages:       in.Percentages,
		CreatorPercentage: in.CreatorPercentage,
	})
	if err != nil {
		return nil, money.Money{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := split.VerifyShares(in.Policy, in.Amount, shares, implicit); err != nil {
		metrics.InvariantViolations.Inc()
		slog.Error("share-sum invariant violated, mutation rejected",
			"group_id", in.GroupID,
			"policy", in.Policy,
			"amount", in.Amount,
			"error", err,
		)
		return nil, money.Money{}, fmt.Errorf("%w: %v", ErrInvariant, err)
	}
	return shares, implicit, nil
}

// carryOverSettled preserves settlement state across an edit, best-effort:
// a debtor keeps their settled flag only if every one of their previous
// shares was settled (a partially settled debtor starts over as unsettled).
func carryOverSettled(old, fresh []models.Share) {
	type state struct {
		settled   bool
		settledAt int64
		settledBy models.MemberRef
	}
	prior := make(map[string]state)
	for _, share := range old {
		st, seen := prior[share.Debtor.Key()]
		if !seen {
			prior[share.Debtor.Key()] = state{share.Settled, share.SettledAt, share.SettledBy}
			continue
		}
		if !share.Settled {
			st.settled = false
			prior[share.Debtor.Key()] = st
		}
	}
	for i := range fresh {
		if st, ok := prior[fresh[i].Debtor.Key()]; ok && st.settled {
			fresh[i].Settled = true
			fresh[i].SettledAt = st.settledAt
			fresh[i].SettledBy = st.settledBy
		}
	}
}

// addNewMembers adds the payer and any unknown participants to the group,
// so recording an expense with a new email participant just works.
func (s *Service) addNewMembers(ctx context.Context, group *models.Group, payer models.MemberRef, participants []models.MemberRef) error {
	var missing []models.MemberRef
	if !group.HasMember(payer) {
		missing = append(missing, payer)
	}
	for _, p := range participants {
		if !group.HasMember(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if err := s.store.AddGroupMembers(ctx, group.ID, missing); err != nil {
		return fmt.Errorf("failed to add members to group %s: %w", group.ID, err)
	}
	slog.Info("auto-added members to group", "group_id", group.ID, "members", len(missing))
	return nil
}

// mapStoreErr translates storage sentinels into ledger domain errors.
func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return err
}
