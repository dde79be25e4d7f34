package models

// User represents a registered account. Authentication is a collaborator of
// the ledger core: the core only ever sees MemberRefs, which a user supplies
// through their ID.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique). Used for login and for
	// matching email-form member references.
	Email string

	// DisplayName is the name shown to other members.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// Ref returns the identity-form member reference for the user.
func (u *User) Ref() MemberRef {
	return MemberByID(u.ID)
}
