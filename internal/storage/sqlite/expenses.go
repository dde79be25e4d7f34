package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/storage"
)

// CreateExpense persists an expense and its shares in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, payer_key, creator_key, amount_cents, policy, description, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.Payer.Key(), expense.Creator.Key(),
		expense.Amount.Cents, string(expense.Policy), expense.Description, expense.Category, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertShares(ctx, tx, expense); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertShares writes expense.Shares, assigning IDs as needed.
func insertShares(ctx context.Context, tx *sql.Tx, expense *models.Expense) error {
	for i := range expense.Shares {
		share := &expense.Shares[i]
		if share.ID == "" {
			share.ID = uuid.New().String()
		}
		share.ExpenseID = expense.ID

		var settledAt, settledBy interface{}
		if share.Settled {
			settledAt = share.SettledAt
			settledBy = share.SettledBy.Key()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO shares (id, expense_id, debtor_key, amount_cents, percentage, settled, settled_at, settled_by_key)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			share.ID, share.ExpenseID, share.Debtor.Key(), share.Amount.Cents,
			share.Percentage, share.Settled, settledAt, settledBy,
		)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}
	return nil
}

// GetExpense retrieves an expense by ID, including all its shares.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense, err := scanExpense(s.db.QueryRowContext(ctx,
		`SELECT id, group_id, payer_key, creator_key, amount_cents, policy, description, category, created_at
		 FROM expenses WHERE id = ?`, expenseID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, expense_id, debtor_key, amount_cents, percentage, settled, settled_at, settled_by_key
		 FROM shares WHERE expense_id = ? ORDER BY id`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		expense.Shares = append(expense.Shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shares: %w", err)
	}

	return expense, nil
}

// ReplaceExpense updates the expense row and swaps its whole share set in
// one transaction. The ledger recomputes shares on every edit, so the old
// set is simply dropped.
func (s *SQLiteStore) ReplaceExpense(ctx context.Context, expense *models.Expense) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET payer_key = ?, amount_cents = ?, policy = ?, description = ?, category = ?
		 WHERE id = ?`,
		expense.Payer.Key(), expense.Amount.Cents, string(expense.Policy),
		expense.Description, expense.Category, expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense %s: %w", expense.ID, storage.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM shares WHERE expense_id = ?", expense.ID); err != nil {
		return fmt.Errorf("failed to delete old shares: %w", err)
	}
	for i := range expense.Shares {
		// Reset IDs so replacement shares never collide with dropped ones.
		expense.Shares[i].ID = ""
	}
	if err := insertShares(ctx, tx, expense); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteExpense removes an expense; its shares go with it via cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	return nil
}

// ListExpensesByGroup retrieves all expenses in a group, newest first,
// including their shares.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, payer_key, creator_key, amount_cents, policy, description, category, created_at
		 FROM expenses WHERE group_id = ? ORDER BY created_at DESC, id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	byID := make(map[string]*models.Expense)
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
		byID[expense.ID] = expense
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	if len(expenses) == 0 {
		return nil, nil
	}

	shareRows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.expense_id, s.debtor_key, s.amount_cents, s.percentage, s.settled, s.settled_at, s.settled_by_key
		 FROM shares s JOIN expenses e ON e.id = s.expense_id
		 WHERE e.group_id = ? ORDER BY s.id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	defer shareRows.Close()

	for shareRows.Next() {
		share, err := scanShare(shareRows)
		if err != nil {
			return nil, err
		}
		if expense, ok := byID[share.ExpenseID]; ok {
			expense.Shares = append(expense.Shares, share)
		}
	}
	if err := shareRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shares: %w", err)
	}

	return expenses, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(row scanner) (*models.Expense, error) {
	expense := &models.Expense{}
	var payerKey, creatorKey, policy string
	var cents int64
	err := row.Scan(&expense.ID, &expense.GroupID, &payerKey, &creatorKey,
		&cents, &policy, &expense.Description, &expense.Category, &expense.CreatedAt)
	if err != nil {
		return nil, err
	}
	expense.Amount = money.FromCents(cents)
	expense.Policy = models.SplitPolicy(policy)
	if expense.Payer, err = models.ParseMemberKey(payerKey); err != nil {
		return nil, fmt.Errorf("failed to parse payer: %w", err)
	}
	if expense.Creator, err = models.ParseMemberKey(creatorKey); err != nil {
		return nil, fmt.Errorf("failed to parse creator: %w", err)
	}
	return expense, nil
}

func scanShare(row scanner) (models.Share, error) {
	var share models.Share
	var debtorKey string
	var cents int64
	var settledAt sql.NullInt64
	var settledBy sql.NullString
	err := row.Scan(&share.ID, &share.ExpenseID, &debtorKey, &cents,
		&share.Percentage, &share.Settled, &settledAt, &settledBy)
	if err != nil {
		return models.Share{}, fmt.Errorf("failed to scan share: %w", err)
	}
	share.Amount = money.FromCents(cents)
	if share.Debtor, err = models.ParseMemberKey(debtorKey); err != nil {
		return models.Share{}, fmt.Errorf("failed to parse debtor: %w", err)
	}
	if settledAt.Valid {
		share.SettledAt = settledAt.Int64
	}
	if settledBy.Valid {
		if share.SettledBy, err = models.ParseMemberKey(settledBy.String); err != nil {
			return models.Share{}, fmt.Errorf("failed to parse settled-by: %w", err)
		}
	}
	return share, nil
}
