package models

// Group represents a set of members who split expenses together.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string

	// Members are the group participants. References to registered emails
	// resolve to the account's ID form before they are stored; an
	// unregistered email is claimed by the matching account on registration.
	// Every comparison goes through MemberRef.Key.
	Members []MemberRef

	// CreatedBy is the member who created the group.
	CreatedBy MemberRef

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// HasMember reports whether ref resolves to one of the group's members.
func (g *Group) HasMember(ref MemberRef) bool {
	for _, m := range g.Members {
		if m.Equal(ref) {
			return true
		}
	}
	return false
}
