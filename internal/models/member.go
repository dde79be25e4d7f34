package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MemberRef identifies a group member either by a stable user ID or by an
// email address when no account exists yet. Exactly one field is set; when
// both are present the ID wins.
//
// Two references to the same member must compare equal regardless of which
// form is used, so all comparisons go through Key.
type MemberRef struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

// MemberByID returns a reference to a registered user.
func MemberByID(id string) MemberRef {
	return MemberRef{ID: id}
}

// MemberByEmail returns a reference to a member known only by email.
func MemberByEmail(email string) MemberRef {
	return MemberRef{Email: email}
}

// Key returns the canonical comparison key for the reference.
// Emails are compared case-insensitively.
func (m MemberRef) Key() string {
	if m.ID != "" {
		return "id:" + m.ID
	}
	return "email:" + strings.ToLower(strings.TrimSpace(m.Email))
}

// Equal reports whether two references resolve to the same member.
func (m MemberRef) Equal(other MemberRef) bool {
	return m.Key() == other.Key()
}

// IsZero reports whether the reference is empty.
func (m MemberRef) IsZero() bool {
	return m.ID == "" && m.Email == ""
}

func (m MemberRef) String() string {
	return m.Key()
}

// ParseMemberKey reconstructs a MemberRef from a canonical key produced by
// Key. Storage persists references in this form.
func ParseMemberKey(key string) (MemberRef, error) {
	form, value, ok := strings.Cut(key, ":")
	if !ok || value == "" {
		return MemberRef{}, fmt.Errorf("malformed member key: %q", key)
	}
	switch form {
	case "id":
		return MemberRef{ID: value}, nil
	case "email":
		return MemberRef{Email: value}, nil
	default:
		return MemberRef{}, fmt.Errorf("unknown member key form: %q", key)
	}
}

// UnmarshalJSON accepts either {"id": "..."} or {"email": "..."}.
func (m *MemberRef) UnmarshalJSON(data []byte) error {
	type plain MemberRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.ID == "" && p.Email == "" {
		return fmt.Errorf("member reference requires an id or an email")
	}
	*m = MemberRef(p)
	return nil
}
