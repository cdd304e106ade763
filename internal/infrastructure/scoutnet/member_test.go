package scoutnet

import (
	"testing"
)

func TestConvertToE164(t *testing.T) {
	tests := []struct {
		name     string
		phone    string
		prefix   string
		expected string
	}{
		{
			name:     "national number with separators",
			phone:    "070-123 45 67",
			expected: "+46701234567",
		},
		{
			name:     "already international",
			phone:    "+46 70 123 45 67",
			expected: "+46701234567",
		},
		{
			name:     "empty phone stays empty",
			phone:    "",
			expected: "",
		},
		{
			name:     "custom country prefix",
			phone:    "040-12345678",
			prefix:   "+45",
			expected: "+454012345678",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConvertToE164(tt.phone, tt.prefix); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

const memberlistJSON = `{
	"data": {
		"1001": {
			"member_no": {"value": 1001},
			"first_name": {"value": "Alice"},
			"last_name": {"value": "Andersson"},
			"contact_mobile_phone": {"value": "070-123 45 67"},
			"roles": {"value": {
				"group": {"77": {"5": {"role_id": 5, "role_key": "leader"}}},
				"troop": {"12": {"9": {"role_id": 9, "role_key": "assistant_leader"}}}
			}}
		},
		"1002": {
			"member_no": {"value": "1002"},
			"first_name": {"value": "Bob"},
			"last_name": {"value": "Berg"},
			"roles": {"value": []}
		},
		"broken": {
			"first_name": {"value": "Nobody"}
		}
	}
}`

func TestParseMemberlist(t *testing.T) {
	members, skipped, err := parseMemberlist([]byte(memberlistJSON), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	alice, ok := members[1001]
	if !ok {
		t.Fatal("expected member 1001")
	}
	if alice.FirstName != "Alice" || alice.LastName != "Andersson" {
		t.Errorf("unexpected name: %s %s", alice.FirstName, alice.LastName)
	}
	if alice.Phone != "+46701234567" {
		t.Errorf("expected normalized phone, got %q", alice.Phone)
	}
	if !alice.Roles.HasAny() {
		t.Error("expected alice to have roles")
	}
	if len(alice.Roles.RoleKeys) != 2 {
		t.Errorf("expected 2 role keys, got %v", alice.Roles.RoleKeys)
	}
	if len(alice.Roles.Groups[77]) != 1 || alice.Roles.Groups[77][0].RoleKey != "leader" {
		t.Errorf("unexpected group roles: %v", alice.Roles.Groups)
	}

	// Member number may arrive as a string; empty role arrays mean no roles.
	bob, ok := members[1002]
	if !ok {
		t.Fatal("expected member 1002")
	}
	if bob.Roles.HasAny() {
		t.Error("expected bob to have no roles")
	}
	if bob.Phone != "" {
		t.Errorf("expected empty phone, got %q", bob.Phone)
	}

	if len(skipped) != 1 {
		t.Fatalf("expected 1 skipped record, got %d", len(skipped))
	}
	if skipped[0].Key != "broken" || skipped[0].System != "scoutnet" {
		t.Errorf("unexpected skipped record: %+v", skipped[0])
	}
}

func TestParseMemberlistInvalidJSON(t *testing.T) {
	if _, _, err := parseMemberlist([]byte("not json"), ""); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestMemberRolesMatching(t *testing.T) {
	roles := MemberRoles{
		RoleKeys: []string{"assistant_leader", "leader", "webmaster"},
	}

	keyRoles := map[string]struct{}{
		"leader":    {},
		"treasurer": {},
	}

	matching := roles.Matching(keyRoles)
	if len(matching) != 1 || matching[0] != "leader" {
		t.Errorf("expected [leader], got %v", matching)
	}

	if got := roles.Matching(map[string]struct{}{}); len(got) != 0 {
		t.Errorf("expected no matches against empty set, got %v", got)
	}
}
