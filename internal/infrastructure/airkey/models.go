package airkey

import (
	"strconv"
	"strings"

	"github.com/jschlyter/scoutnet2airkey/internal/domain/model"
)

// Person is one person record in the Airkey cloud. The Scoutnet member
// number is carried in secondaryIdentification and is the join key; the
// key-granting roles are kept as a comma-separated list in the comment.
type Person struct {
	ID                      int64  `json:"id,omitempty"`
	FirstName               string `json:"firstName"`
	LastName                string `json:"lastName"`
	SecondaryIdentification string `json:"secondaryIdentification,omitempty"`
	PhoneNumber             string `json:"phoneNumber,omitempty"`
	Comment                 string `json:"comment,omitempty"`
}

// personList is one page of the persons listing.
type personList struct {
	Persons    []Person `json:"personList"`
	Offset     int      `json:"offset"`
	Limit      int      `json:"limit"`
	TotalCount int      `json:"totalCount"`
}

// memberNo extracts the Scoutnet member number from the person, or 0 when
// it is missing or unparseable.
func (p *Person) memberNo() int {
	memberNo, err := strconv.Atoi(strings.TrimSpace(p.SecondaryIdentification))
	if err != nil || memberNo <= 0 {
		return 0
	}
	return memberNo
}

// roles splits the comment back into role keys.
func (p *Person) roles() []string {
	comment := strings.TrimSpace(p.Comment)
	if comment == "" {
		return nil
	}
	return strings.Split(comment, ",")
}

// personFromKeyholder maps a desired keyholder onto an Airkey person.
func personFromKeyholder(keyholder *model.Keyholder) Person {
	return Person{
		FirstName:               keyholder.FirstName,
		LastName:                keyholder.LastName,
		SecondaryIdentification: strconv.Itoa(keyholder.MemberNo),
		PhoneNumber:             keyholder.Phone,
		Comment:                 strings.Join(keyholder.Roles, ","),
	}
}

// applyDelta writes the changed fields of a reconciliation delta onto the
// person record.
func (p *Person) applyDelta(delta model.Delta) {
	if change, ok := delta["first_name"]; ok {
		p.FirstName = change.New
	}
	if change, ok := delta["last_name"]; ok {
		p.LastName = change.New
	}
	if change, ok := delta["phone"]; ok {
		p.PhoneNumber = change.New
	}
	if change, ok := delta["roles"]; ok {
		p.Comment = change.New
	}
}
