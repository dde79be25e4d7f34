package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "splitledger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testExpense(groupID string) *models.Expense {
	return &models.Expense{
		GroupID:     groupID,
		Payer:       models.MemberByID("alice"),
		Creator:     models.MemberByID("alice"),
		Amount:      money.FromCents(9000),
		Policy:      models.PolicyEqual,
		Description: "Groceries",
		Category:    "food",
		Shares: []models.Share{
			{Debtor: models.MemberByID("bob"), Amount: money.FromCents(3000)},
			{Debtor: models.MemberByEmail("carol@example.com"), Amount: money.FromCents(3000)},
		},
	}
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{
		Name:      "Roommates",
		CreatedBy: models.MemberByID("alice"),
		Members: []models.MemberRef{
			models.MemberByID("alice"),
			models.MemberByID("bob"),
			models.MemberByEmail("carol@example.com"),
		},
	}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if group.ID == "" {
		t.Fatal("Expected group ID to be generated")
	}

	t.Run("GetGroup retrieves complete group", func(t *testing.T) {
		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got.Name != "Roommates" {
			t.Errorf("Name = %q, want Roommates", got.Name)
		}
		if len(got.Members) != 3 {
			t.Errorf("got %d members, want 3", len(got.Members))
		}
		if !got.HasMember(models.MemberByEmail("Carol@Example.COM")) {
			t.Error("email member lookup should be case-insensitive")
		}
	})

	t.Run("GetGroup returns ErrNotFound for missing group", func(t *testing.T) {
		if _, err := store.GetGroup(ctx, "no-such-group"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("AddGroupMembers skips existing members", func(t *testing.T) {
		members := []models.MemberRef{
			models.MemberByID("bob"),
			models.MemberByID("dave"),
		}
		if err := store.AddGroupMembers(ctx, group.ID, members); err != nil {
			t.Fatalf("AddGroupMembers failed: %v", err)
		}
		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if len(got.Members) != 4 {
			t.Errorf("got %d members, want 4", len(got.Members))
		}
	})

	t.Run("ListGroupsByMember finds membership", func(t *testing.T) {
		groups, err := store.ListGroupsByMember(ctx, models.MemberByID("dave"))
		if err != nil {
			t.Fatalf("ListGroupsByMember failed: %v", err)
		}
		if len(groups) != 1 || groups[0].ID != group.ID {
			t.Errorf("got %d groups, want the one dave was added to", len(groups))
		}
	})

	t.Run("CreateExpense generates IDs and round-trips", func(t *testing.T) {
		expense := testExpense(group.ID)
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if expense.ID == "" || expense.CreatedAt == 0 {
			t.Fatal("Expected expense ID and CreatedAt to be set")
		}

		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.Amount.Cents != 9000 || got.Policy != models.PolicyEqual {
			t.Errorf("got amount=%d policy=%s, want 9000 equal", got.Amount.Cents, got.Policy)
		}
		if len(got.Shares) != 2 {
			t.Fatalf("got %d shares, want 2", len(got.Shares))
		}
		for _, s := range got.Shares {
			if s.Settled {
				t.Errorf("share %s should start unsettled", s.ID)
			}
			if s.ExpenseID != expense.ID {
				t.Errorf("share expense ID = %s, want %s", s.ExpenseID, expense.ID)
			}
		}
	})

	t.Run("ReplaceExpense swaps the share set", func(t *testing.T) {
		expense := testExpense(group.ID)
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		expense.Amount = money.FromCents(12000)
		expense.Shares = []models.Share{
			{Debtor: models.MemberByID("bob"), Amount: money.FromCents(6000)},
		}
		if err := store.ReplaceExpense(ctx, expense); err != nil {
			t.Fatalf("ReplaceExpense failed: %v", err)
		}

		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.Amount.Cents != 12000 {
			t.Errorf("amount = %d, want 12000", got.Amount.Cents)
		}
		if len(got.Shares) != 1 || got.Shares[0].Amount.Cents != 6000 {
			t.Errorf("shares = %+v, want single 6000 share", got.Shares)
		}
	})

	t.Run("ReplaceExpense returns ErrNotFound for missing expense", func(t *testing.T) {
		missing := testExpense(group.ID)
		missing.ID = "no-such-expense"
		if err := store.ReplaceExpense(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("DeleteExpense cascades to shares", func(t *testing.T) {
		expense := testExpense(group.ID)
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if err := store.DeleteExpense(ctx, expense.ID); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		if _, err := store.GetExpense(ctx, expense.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
		if err := store.DeleteExpense(ctx, expense.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second delete error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteStoreSettlements(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{
		Name:      "Trip",
		CreatedBy: models.MemberByID("alice"),
		Members: []models.MemberRef{
			models.MemberByID("alice"),
			models.MemberByID("bob"),
		},
	}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	expense := &models.Expense{
		GroupID: group.ID,
		Payer:   models.MemberByID("alice"),
		Creator: models.MemberByID("alice"),
		Amount:  money.FromCents(5000),
		Policy:  models.PolicyPayerCoversOthers,
		Shares: []models.Share{
			{Debtor: models.MemberByID("bob"), Amount: money.FromCents(5000)},
		},
	}
	if err := store.CreateExpense(ctx, expense); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	shareID := expense.Shares[0].ID

	t.Run("ListUnsettledShares exposes the obligation", func(t *testing.T) {
		obligations, err := store.ListUnsettledShares(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListUnsettledShares failed: %v", err)
		}
		if len(obligations) != 1 {
			t.Fatalf("got %d obligations, want 1", len(obligations))
		}
		o := obligations[0]
		if o.ShareID != shareID || o.Debtor.Key() != "id:bob" || o.Creditor.Key() != "id:alice" || o.Amount.Cents != 5000 {
			t.Errorf("obligation = %+v, want bob owes alice 5000 on share %s", o, shareID)
		}
	})

	t.Run("partial settlement splits the share", func(t *testing.T) {
		op := storage.ShareSettlement{
			ShareID:   shareID,
			Amount:    money.FromCents(2000),
			SettledBy: models.MemberByID("bob"),
			SettledAt: 1700000000,
		}
		if err := store.ApplySettlements(ctx, []storage.ShareSettlement{op}); err != nil {
			t.Fatalf("ApplySettlements failed: %v", err)
		}

		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if len(got.Shares) != 2 {
			t.Fatalf("got %d shares after split, want 2", len(got.Shares))
		}
		var openCents, settledCents int64
		for _, s := range got.Shares {
			if s.Settled {
				settledCents += s.Amount.Cents
				if s.SettledAt != 1700000000 || s.SettledBy.Key() != "id:bob" {
					t.Errorf("settled slice = %+v, want settled by bob at 1700000000", s)
				}
			} else {
				openCents += s.Amount.Cents
			}
		}
		if openCents != 3000 || settledCents != 2000 {
			t.Errorf("open=%d settled=%d, want 3000/2000", openCents, settledCents)
		}

		obligations, err := store.ListUnsettledShares(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListUnsettledShares failed: %v", err)
		}
		if len(obligations) != 1 || obligations[0].Amount.Cents != 3000 {
			t.Errorf("obligations = %+v, want single 3000 remainder", obligations)
		}
	})

	t.Run("full settlement marks the share settled", func(t *testing.T) {
		op := storage.ShareSettlement{
			ShareID:   shareID,
			Amount:    money.FromCents(3000),
			SettledBy: models.MemberByID("alice"),
			SettledAt: 1700000100,
		}
		if err := store.ApplySettlements(ctx, []storage.ShareSettlement{op}); err != nil {
			t.Fatalf("ApplySettlements failed: %v", err)
		}
		obligations, err := store.ListUnsettledShares(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListUnsettledShares failed: %v", err)
		}
		if len(obligations) != 0 {
			t.Errorf("obligations = %+v, want none", obligations)
		}
	})

	t.Run("settling a settled share conflicts and rolls back the batch", func(t *testing.T) {
		fresh := &models.Expense{
			GroupID: group.ID,
			Payer:   models.MemberByID("alice"),
			Creator: models.MemberByID("alice"),
			Amount:  money.FromCents(1000),
			Policy:  models.PolicyPayerCoversOthers,
			Shares: []models.Share{
				{Debtor: models.MemberByID("bob"), Amount: money.FromCents(1000)},
			},
		}
		if err := store.CreateExpense(ctx, fresh); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		ops := []storage.ShareSettlement{
			{ShareID: fresh.Shares[0].ID, Amount: money.FromCents(1000), SettledBy: models.MemberByID("bob"), SettledAt: 1700000200},
			{ShareID: shareID, Amount: money.FromCents(3000), SettledBy: models.MemberByID("bob"), SettledAt: 1700000200},
		}
		if err := store.ApplySettlements(ctx, ops); !errors.Is(err, storage.ErrConflict) {
			t.Fatalf("error = %v, want ErrConflict", err)
		}

		// First op in the batch must have been rolled back.
		obligations, err := store.ListUnsettledShares(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListUnsettledShares failed: %v", err)
		}
		if len(obligations) != 1 || obligations[0].ShareID != fresh.Shares[0].ID {
			t.Errorf("obligations = %+v, want the fresh share still unsettled", obligations)
		}
	})

	t.Run("overpayment conflicts", func(t *testing.T) {
		obligations, err := store.ListUnsettledShares(ctx, group.ID)
		if err != nil || len(obligations) == 0 {
			t.Fatalf("ListUnsettledShares = %v, %v", obligations, err)
		}
		op := storage.ShareSettlement{
			ShareID:   obligations[0].ShareID,
			Amount:    obligations[0].Amount.Add(money.FromCents(1)),
			SettledBy: models.MemberByID("bob"),
			SettledAt: 1700000300,
		}
		if err := store.ApplySettlements(ctx, []storage.ShareSettlement{op}); !errors.Is(err, storage.ErrConflict) {
			t.Errorf("error = %v, want ErrConflict", err)
		}
	})
}

func TestSQLiteStoreClaimMember(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bobEmail := models.MemberByEmail("bob@example.com")
	bobID := models.MemberByID("bob-account")

	group := &models.Group{
		Name:      "Flat",
		CreatedBy: models.MemberByID("alice"),
		Members:   []models.MemberRef{models.MemberByID("alice"), bobEmail},
	}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	// The account is already a member under its ID form too; the claim must
	// collapse the two rows into one.
	if err := store.AddGroupMembers(ctx, group.ID, []models.MemberRef{bobID}); err != nil {
		t.Fatalf("AddGroupMembers failed: %v", err)
	}

	paidByBob := &models.Expense{
		GroupID: group.ID,
		Payer:   bobEmail,
		Creator: models.MemberByID("alice"),
		Amount:  money.FromCents(2000),
		Policy:  models.PolicyPayerCoversOthers,
		Shares: []models.Share{
			{Debtor: models.MemberByID("alice"), Amount: money.FromCents(2000), Settled: true, SettledAt: 1700000000, SettledBy: bobEmail},
		},
	}
	owedByBob := &models.Expense{
		GroupID: group.ID,
		Payer:   models.MemberByID("alice"),
		Creator: models.MemberByID("alice"),
		Amount:  money.FromCents(1500),
		Policy:  models.PolicyPayerCoversOthers,
		Shares: []models.Share{
			{Debtor: bobEmail, Amount: money.FromCents(1500)},
		},
	}
	for _, e := range []*models.Expense{paidByBob, owedByBob} {
		if err := store.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
	}

	if err := store.ClaimMember(ctx, bobEmail, bobID); err != nil {
		t.Fatalf("ClaimMember failed: %v", err)
	}

	got, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if len(got.Members) != 2 {
		t.Errorf("got %d members, want the two forms collapsed into 2", len(got.Members))
	}
	if !got.HasMember(bobID) || got.HasMember(bobEmail) {
		t.Errorf("members = %v, want id form only", got.Members)
	}

	claimed, err := store.GetExpense(ctx, paidByBob.ID)
	if err != nil {
		t.Fatalf("GetExpense failed: %v", err)
	}
	if !claimed.Payer.Equal(bobID) {
		t.Errorf("payer = %s, want %s", claimed.Payer, bobID)
	}
	if !claimed.Shares[0].SettledBy.Equal(bobID) {
		t.Errorf("settled by = %s, want %s", claimed.Shares[0].SettledBy, bobID)
	}

	obligations, err := store.ListUnsettledShares(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListUnsettledShares failed: %v", err)
	}
	if len(obligations) != 1 || !obligations[0].Debtor.Equal(bobID) {
		t.Errorf("obligations = %+v, want bob's debt under the id form", obligations)
	}

	groups, err := store.ListGroupsByMember(ctx, bobID)
	if err != nil {
		t.Fatalf("ListGroupsByMember failed: %v", err)
	}
	if len(groups) != 1 {
		t.Errorf("got %d groups for the claimed id, want 1", len(groups))
	}
}

func TestSQLiteStoreUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := &models.User{
		Email:        "Alice@Example.com",
		DisplayName:  "Alice",
		PasswordHash: "hash",
	}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.ID == "" {
		t.Fatal("Expected user ID to be generated")
	}

	t.Run("GetUserByEmail is case-insensitive", func(t *testing.T) {
		got, err := store.GetUserByEmail(ctx, "alice@example.COM")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if got == nil || got.ID != user.ID {
			t.Fatalf("got %+v, want user %s", got, user.ID)
		}
	})

	t.Run("GetUserByEmail returns nil for unknown email", func(t *testing.T) {
		got, err := store.GetUserByEmail(ctx, "nobody@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if got != nil {
			t.Errorf("got %+v, want nil", got)
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		dup := &models.User{Email: "alice@example.com", DisplayName: "Impostor", PasswordHash: "hash"}
		if err := store.CreateUser(ctx, dup); !errors.Is(err, storage.ErrConflict) {
			t.Errorf("error = %v, want ErrConflict", err)
		}
	})

	t.Run("GetUserByID returns ErrNotFound for unknown ID", func(t *testing.T) {
		if _, err := store.GetUserByID(ctx, "no-such-user"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}
