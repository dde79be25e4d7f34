package sqlite

import (
	"context"
	"fmt"

	"github.com/splitledger/splitledger/internal/models"
)

// ClaimMember rewrites every stored reference to from into to. The member
// may already appear in a group under both forms; the ID row wins and the
// duplicate is dropped.
func (s *SQLiteStore) ClaimMember(ctx context.Context, from, to models.MemberRef) error {
	if from.Equal(to) {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE OR IGNORE group_members SET member_key = ? WHERE member_key = ?",
		to.Key(), from.Key()); err != nil {
		return fmt.Errorf("failed to claim group memberships: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM group_members WHERE member_key = ?", from.Key()); err != nil {
		return fmt.Errorf("failed to drop duplicate memberships: %w", err)
	}

	for _, stmt := range []string{
		"UPDATE groups SET created_by = ? WHERE created_by = ?",
		"UPDATE expenses SET payer_key = ? WHERE payer_key = ?",
		"UPDATE expenses SET creator_key = ? WHERE creator_key = ?",
		"UPDATE shares SET debtor_key = ? WHERE debtor_key = ?",
		"UPDATE shares SET settled_by_key = ? WHERE settled_by_key = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, to.Key(), from.Key()); err != nil {
			return fmt.Errorf("failed to claim member references: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
