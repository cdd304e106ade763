package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jschlyter/scoutnet2airkey/pkg/errors"
)

// Keyholder is one person who should hold (or currently holds) a key.
// The Scoutnet member number is the identity key joining both systems.
// A Keyholder is a snapshot taken at fetch time and is not mutated after
// reconciliation starts.
type Keyholder struct {
	MemberNo  int      `json:"member_no" yaml:"member_no"`
	FirstName string   `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	Phone     string   `json:"phone,omitempty" yaml:"phone,omitempty"`
	Roles     []string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// Delta is a field-level difference between a desired and an observed
// keyholder, keyed by field name.
type Delta map[string]FieldChange

// FieldChange holds the observed and desired value of one field.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// SkippedRecord notes a record that failed validation and was excluded
// from its state set before planning.
type SkippedRecord struct {
	System string `json:"system"`
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// Validate validates the keyholder data and returns an error if validation fails
func (k *Keyholder) Validate() error {
	if k.MemberNo <= 0 {
		return errors.NewValidation("member number is required")
	}
	if strings.TrimSpace(k.Phone) == "" {
		return errors.NewValidation(fmt.Sprintf("member %d has no mobile phone", k.MemberNo))
	}
	return nil
}

// Sanitize cleans up string fields and sorts roles so that equivalence
// checks are order-independent.
func (k *Keyholder) Sanitize() {
	k.FirstName = strings.TrimSpace(k.FirstName)
	k.LastName = strings.TrimSpace(k.LastName)
	k.Phone = strings.TrimSpace(k.Phone)

	for i := range k.Roles {
		k.Roles[i] = strings.TrimSpace(k.Roles[i])
	}
	slices.Sort(k.Roles)
	k.Roles = slices.Compact(k.Roles)
}

// FullName returns the display name of the keyholder.
func (k *Keyholder) FullName() string {
	return strings.TrimSpace(k.FirstName + " " + k.LastName)
}

// rolesKey is the canonical string form of the role set, used for
// comparison and deltas.
func (k *Keyholder) rolesKey() string {
	return strings.Join(k.Roles, ",")
}

// Equivalent reports whether two keyholders match on all access-relevant
// fields. Both sides are expected to be sanitized.
func (k *Keyholder) Equivalent(other *Keyholder) bool {
	if other == nil {
		return false
	}
	return k.MemberNo == other.MemberNo &&
		k.FirstName == other.FirstName &&
		k.LastName == other.LastName &&
		k.Phone == other.Phone &&
		k.rolesKey() == other.rolesKey()
}

// Diff computes the field-level delta that would change observed into k.
// An empty delta means the records are equivalent.
func (k *Keyholder) Diff(observed *Keyholder) Delta {
	delta := Delta{}
	if observed == nil {
		return delta
	}

	if k.FirstName != observed.FirstName {
		delta["first_name"] = FieldChange{Old: observed.FirstName, New: k.FirstName}
	}
	if k.LastName != observed.LastName {
		delta["last_name"] = FieldChange{Old: observed.LastName, New: k.LastName}
	}
	if k.Phone != observed.Phone {
		delta["phone"] = FieldChange{Old: observed.Phone, New: k.Phone}
	}
	if k.rolesKey() != observed.rolesKey() {
		delta["roles"] = FieldChange{Old: observed.rolesKey(), New: k.rolesKey()}
	}

	return delta
}

// NewKeyholder builds a sanitized, validated keyholder.
func NewKeyholder(memberNo int, firstName, lastName, phone string, roles []string) (*Keyholder, error) {
	keyholder := &Keyholder{
		MemberNo:  memberNo,
		FirstName: firstName,
		LastName:  lastName,
		Phone:     phone,
		Roles:     slices.Clone(roles),
	}
	keyholder.Sanitize()

	if err := keyholder.Validate(); err != nil {
		return nil, err
	}

	return keyholder, nil
}
