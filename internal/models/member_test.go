package models

import (
	"encoding/json"
	"testing"
)

func TestMemberRefKey(t *testing.T) {
	tests := []struct {
		name string
		ref  MemberRef
		want string
	}{
		{name: "id form", ref: MemberByID("u1"), want: "id:u1"},
		{name: "email form lowercased", ref: MemberByEmail("Bob@Example.COM"), want: "email:bob@example.com"},
		{name: "email form trimmed", ref: MemberByEmail(" bob@example.com "), want: "email:bob@example.com"},
		{name: "id wins when both set", ref: MemberRef{ID: "u1", Email: "bob@example.com"}, want: "id:u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ref.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMemberRefEqual(t *testing.T) {
	if !MemberByEmail("Bob@Example.com").Equal(MemberByEmail("bob@example.COM")) {
		t.Error("email references should compare case-insensitively")
	}
	if MemberByID("bob").Equal(MemberByEmail("bob")) {
		t.Error("id and email forms never compare equal")
	}
}

func TestParseMemberKey(t *testing.T) {
	for _, ref := range []MemberRef{MemberByID("u1"), MemberByEmail("bob@example.com")} {
		parsed, err := ParseMemberKey(ref.Key())
		if err != nil {
			t.Fatalf("ParseMemberKey(%q) failed: %v", ref.Key(), err)
		}
		if !parsed.Equal(ref) {
			t.Errorf("ParseMemberKey(%q) = %v, want %v", ref.Key(), parsed, ref)
		}
	}
	for _, bad := range []string{"", "u1", "id:", "uuid:u1"} {
		if _, err := ParseMemberKey(bad); err == nil {
			t.Errorf("ParseMemberKey(%q) succeeded, want error", bad)
		}
	}
}

func TestMemberRefUnmarshalJSON(t *testing.T) {
	var ref MemberRef
	if err := json.Unmarshal([]byte(`{"email":"bob@example.com"}`), &ref); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if ref.Key() != "email:bob@example.com" {
		t.Errorf("Key() = %q, want email:bob@example.com", ref.Key())
	}
	if err := json.Unmarshal([]byte(`{}`), &ref); err == nil {
		t.Error("empty reference should be rejected")
	}
}
