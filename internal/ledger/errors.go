package ledger

import "errors"

// Domain errors returned by ledger operations. The transport layer maps
// these to status codes with errors.Is; nothing here is ever a panic.
var (
	// ErrValidation covers malformed or out-of-range input. Nothing is
	// applied when it is returned.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means a referenced expense, share, group or member does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the actor is not authorized for the mutation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvariant is the fatal post-condition failure on the sum-of-shares
	// rule. It indicates a bug in the split engine, not bad user input; the
	// triggering mutation is rolled back entirely.
	ErrInvariant = errors.New("share-sum invariant violated")
)
