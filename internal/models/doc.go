// Package models defines the core domain models for the shared-expense ledger.
//
// # Models
//
//   - MemberRef: a reference to a group member, by user ID or by email
//   - Expense: a recorded group purchase with one payer and a split policy
//   - Share: one debtor's obligation arising from an Expense
//   - Group: a named set of members who split expenses together
//   - User: a registered account (authentication collaborator)
//
// Derived, never persisted:
//
//   - Obligation: the unsettled view of a Share joined with its creditor
//   - NetBalance: a member's aggregate creditor-minus-debtor position
//   - TransferPlan: proposed payments that zero all net balances
//
// # Design Principles
//
//  1. Members are referenced through MemberRef everywhere so that account
//     holders and email-only participants are interchangeable
//  2. All monetary values use minor-unit integers (money.Money); decimal
//     amounts exist only at the transport boundary
//  3. Relationships use ID strings instead of pointers to avoid circular
//     references
package models
