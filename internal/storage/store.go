// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write collides with existing state,
	// e.g. settling a share that is already settled or a duplicate email.
	ErrConflict = errors.New("conflicting state")
)

// ShareSettlement marks all or part of one share as settled. When Amount is
// less than the share's owed amount the store splits the share, leaving the
// remainder unsettled.
type ShareSettlement struct {
	ShareID   string
	Amount    money.Money
	SettledBy models.MemberRef
	SettledAt int64
}

// Store defines the interface for ledger storage operations. This abstraction
// allows swapping storage backends (SQLite, PostgreSQL, etc.) without
// changing the service layer.
//
// Multi-record mutations (expense plus shares, settlement batches) are
// atomic: they either apply fully or not at all.
type Store interface {
	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email, or nil if none exists.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// CreateGroup persists a new group. The group.ID field is populated
	// by the store.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its members.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// AddGroupMembers adds members to a group, skipping ones already present.
	AddGroupMembers(ctx context.Context, groupID string, members []models.MemberRef) error

	// ListGroupsByMember retrieves the groups a member belongs to.
	ListGroupsByMember(ctx context.Context, member models.MemberRef) ([]*models.Group, error)

	// ClaimMember rewrites every stored reference to from into to, in one
	// transaction. Used when a registered account claims the email-form
	// references recorded before the account existed.
	ClaimMember(ctx context.Context, from, to models.MemberRef) error

	// CreateExpense persists an expense together with its shares.
	// ID fields are populated by the store.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its shares.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ReplaceExpense updates an expense row and swaps its entire share set
	// for expense.Shares in one transaction.
	ReplaceExpense(ctx context.Context, expense *models.Expense) error

	// DeleteExpense removes an expense and all its shares.
	DeleteExpense(ctx context.Context, expenseID string) error

	// ListExpensesByGroup retrieves all expenses in a group, newest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// ListUnsettledShares returns the unsettled obligations of a group,
	// oldest expense first, as a consistent snapshot.
	ListUnsettledShares(ctx context.Context, groupID string) ([]models.Obligation, error)

	// ApplySettlements applies a batch of share settlements in a single
	// transaction. Any failure rolls back the whole batch.
	ApplySettlements(ctx context.Context, ops []ShareSettlement) error

	// Close releases any resources held by the store.
	Close() error
}
