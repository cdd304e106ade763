// Package scoutnet reads the desired keyholder state from the Scoutnet
// membership registry.
package scoutnet

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/jschlyter/scoutnet2airkey/internal/domain/model"
)

// DefaultCountryPrefix replaces a leading zero when normalizing phone
// numbers to E.164. Scoutnet is Swedish, so +46 unless configured otherwise.
const DefaultCountryPrefix = "+46"

var phoneSeparators = regexp.MustCompile(`[-\s]`)

// Role is one role assignment inside a group or troop.
type Role struct {
	RoleID  int64  `json:"role_id"`
	RoleKey string `json:"role_key"`
}

// MemberRoles holds a member's role assignments per organization unit,
// plus the flattened set of role keys across all of them.
type MemberRoles struct {
	Groups   map[int][]Role
	Troops   map[int][]Role
	RoleKeys []string
}

// HasAny reports whether the member has at least one role in any unit.
func (r MemberRoles) HasAny() bool {
	return len(r.Groups) > 0 || len(r.Troops) > 0
}

// Matching returns the sorted intersection of the member's role keys with
// the given set.
func (r MemberRoles) Matching(keys map[string]struct{}) []string {
	var matching []string
	for _, roleKey := range r.RoleKeys {
		if _, ok := keys[roleKey]; ok {
			matching = append(matching, roleKey)
		}
	}
	slices.Sort(matching)
	return slices.Compact(matching)
}

// Member is one raw Scoutnet member as returned by the memberlist endpoint.
type Member struct {
	MemberNo  int
	FirstName string
	LastName  string
	Phone     string
	Roles     MemberRoles
}

// The memberlist response wraps every member attribute in a {"value": ...}
// envelope, keyed by member number:
//
//	{"data": {"12345": {"member_no": {"value": 12345}, ...}}}
type memberlistResponse struct {
	Data map[string]memberAttributes `json:"data"`
}

type memberAttributes map[string]attributeValue

type attributeValue struct {
	Value json.RawMessage `json:"value"`
}

// stringValue extracts an attribute as a string, tolerating both string
// and numeric JSON values.
func (a memberAttributes) stringValue(field string) string {
	attribute, ok := a[field]
	if !ok || len(attribute.Value) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(attribute.Value, &asString); err == nil {
		return asString
	}

	var asNumber json.Number
	if err := json.Unmarshal(attribute.Value, &asNumber); err == nil {
		return asNumber.String()
	}

	return ""
}

// rolesValue is the nested role structure inside the roles attribute.
// Scoutnet returns an empty JSON array instead of an object when the
// member has no roles, so decoding is lenient.
type rolesValue struct {
	Group map[string]map[string]Role `json:"group"`
	Troop map[string]map[string]Role `json:"troop"`
}

func (a memberAttributes) rolesValue() MemberRoles {
	attribute, ok := a["roles"]
	if !ok || len(attribute.Value) == 0 {
		return MemberRoles{}
	}

	var raw rolesValue
	if err := json.Unmarshal(attribute.Value, &raw); err != nil {
		return MemberRoles{}
	}

	roles := MemberRoles{
		Groups: make(map[int][]Role),
		Troops: make(map[int][]Role),
	}

	keys := make(map[string]struct{})
	for orgID, assignments := range raw.Group {
		id, err := strconv.Atoi(orgID)
		if err != nil {
			continue
		}
		for _, role := range assignments {
			roles.Groups[id] = append(roles.Groups[id], role)
			keys[role.RoleKey] = struct{}{}
		}
	}
	for troopID, assignments := range raw.Troop {
		id, err := strconv.Atoi(troopID)
		if err != nil {
			continue
		}
		for _, role := range assignments {
			roles.Troops[id] = append(roles.Troops[id], role)
			keys[role.RoleKey] = struct{}{}
		}
	}

	if len(roles.Groups) == 0 {
		roles.Groups = nil
	}
	if len(roles.Troops) == 0 {
		roles.Troops = nil
	}

	for key := range keys {
		roles.RoleKeys = append(roles.RoleKeys, key)
	}
	slices.Sort(roles.RoleKeys)

	return roles
}

// ConvertToE164 normalizes a phone number: separators are stripped and a
// leading zero is replaced with the country prefix.
func ConvertToE164(phone, countryPrefix string) string {
	if phone == "" {
		return ""
	}
	if countryPrefix == "" {
		countryPrefix = DefaultCountryPrefix
	}

	phone = phoneSeparators.ReplaceAllString(phone, "")
	if strings.HasPrefix(phone, "0") {
		phone = countryPrefix + phone[1:]
	}
	return phone
}

// parseMemberlist decodes a raw memberlist response into members keyed by
// member number. Entries with a missing or unparseable member number are
// returned as skipped records rather than failing the whole response.
func parseMemberlist(data []byte, countryPrefix string) (map[int]Member, []model.SkippedRecord, error) {
	var response memberlistResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, nil, fmt.Errorf("failed to parse memberlist: %w", err)
	}

	members := make(map[int]Member, len(response.Data))
	var skipped []model.SkippedRecord

	for key, attributes := range response.Data {
		memberNo, err := strconv.Atoi(attributes.stringValue("member_no"))
		if err != nil || memberNo <= 0 {
			skipped = append(skipped, model.SkippedRecord{
				System: "scoutnet",
				Key:    key,
				Reason: "missing or invalid member number",
			})
			continue
		}

		members[memberNo] = Member{
			MemberNo:  memberNo,
			FirstName: attributes.stringValue("first_name"),
			LastName:  attributes.stringValue("last_name"),
			Phone:     ConvertToE164(attributes.stringValue("contact_mobile_phone"), countryPrefix),
			Roles:     attributes.rolesValue(),
		}
	}

	return members, skipped, nil
}
