package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/storage"
)

// ListUnsettledShares returns the unsettled obligations of a group joined
// with their creditor (the expense payer), oldest expense first. The single
// query gives the optimizer a consistent snapshot.
func (s *SQLiteStore) ListUnsettledShares(ctx context.Context, groupID string) ([]models.Obligation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.expense_id, e.group_id, s.debtor_key, e.payer_key, s.amount_cents, e.created_at
		 FROM shares s JOIN expenses e ON e.id = s.expense_id
		 WHERE e.group_id = ? AND s.settled = 0
		 ORDER BY e.created_at, s.id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled shares: %w", err)
	}
	defer rows.Close()

	var obligations []models.Obligation
	for rows.Next() {
		var o models.Obligation
		var debtorKey, payerKey string
		var cents int64
		if err := rows.Scan(&o.ShareID, &o.ExpenseID, &o.GroupID, &debtorKey, &payerKey, &cents, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan obligation: %w", err)
		}
		o.Amount = money.FromCents(cents)
		if o.Debtor, err = models.ParseMemberKey(debtorKey); err != nil {
			return nil, fmt.Errorf("failed to parse debtor: %w", err)
		}
		if o.Creditor, err = models.ParseMemberKey(payerKey); err != nil {
			return nil, fmt.Errorf("failed to parse creditor: %w", err)
		}
		obligations = append(obligations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate obligations: %w", err)
	}
	return obligations, nil
}

// ApplySettlements applies a batch of share settlements in one transaction.
// A settlement for less than the share's owed amount splits the share: the
// settled portion becomes a new settled row and the original keeps the
// unsettled remainder.
func (s *SQLiteStore) ApplySettlements(ctx context.Context, ops []storage.ShareSettlement) error {
	if len(ops) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		if err := applySettlement(ctx, tx, op); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func applySettlement(ctx context.Context, tx *sql.Tx, op storage.ShareSettlement) error {
	var expenseID, debtorKey string
	var cents int64
	var percentage float64
	var settled bool
	err := tx.QueryRowContext(ctx,
		"SELECT expense_id, debtor_key, amount_cents, percentage, settled FROM shares WHERE id = ?",
		op.ShareID,
	).Scan(&expenseID, &debtorKey, &cents, &percentage, &settled)
	if err == sql.ErrNoRows {
		return fmt.Errorf("share %s: %w", op.ShareID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read share: %w", err)
	}
	if settled {
		return fmt.Errorf("share %s already settled: %w", op.ShareID, storage.ErrConflict)
	}
	if !op.Amount.IsPositive() || op.Amount.Cents > cents {
		return fmt.Errorf("settlement of %s against share %s owing %s: %w",
			op.Amount, op.ShareID, money.FromCents(cents), storage.ErrConflict)
	}

	if op.Amount.Cents == cents {
		_, err := tx.ExecContext(ctx,
			"UPDATE shares SET settled = 1, settled_at = ?, settled_by_key = ? WHERE id = ?",
			op.SettledAt, op.SettledBy.Key(), op.ShareID)
		if err != nil {
			return fmt.Errorf("failed to settle share: %w", err)
		}
		return nil
	}

	// Partial settlement: shrink the original, record the settled slice.
	// The percentage stays on the unsettled remainder; the split row is an
	// accounting artifact, not a policy outcome.
	_, err = tx.ExecContext(ctx,
		"UPDATE shares SET amount_cents = ? WHERE id = ?",
		cents-op.Amount.Cents, op.ShareID)
	if err != nil {
		return fmt.Errorf("failed to shrink share: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO shares (id, expense_id, debtor_key, amount_cents, percentage, settled, settled_at, settled_by_key)
		 VALUES (?, ?, ?, ?, 0, 1, ?, ?)`,
		uuid.New().String(), expenseID, debtorKey, op.Amount.Cents, op.SettledAt, op.SettledBy.Key())
	if err != nil {
		return fmt.Errorf("failed to insert settled slice: %w", err)
	}
	return nil
}
