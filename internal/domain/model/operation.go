package model

import "fmt"

// OperationKind is the class of a reconciliation operation.
type OperationKind string

// Operation kinds, in apply order.
const (
	OperationCreate OperationKind = "create"
	OperationUpdate OperationKind = "update"
	OperationRevoke OperationKind = "revoke"
)

// Operation is one step of a reconciliation plan. Keyholder is set for
// creates, Delta for updates; revokes carry only the member number.
type Operation struct {
	Kind      OperationKind `json:"kind"`
	MemberNo  int           `json:"member_no"`
	Keyholder *Keyholder    `json:"keyholder,omitempty"`
	Delta     Delta         `json:"delta,omitempty"`
}

func (o Operation) String() string {
	switch o.Kind {
	case OperationCreate:
		if o.Keyholder != nil {
			return fmt.Sprintf("create %d (%s)", o.MemberNo, o.Keyholder.FullName())
		}
		return fmt.Sprintf("create %d", o.MemberNo)
	case OperationUpdate:
		return fmt.Sprintf("update %d (%d fields)", o.MemberNo, len(o.Delta))
	default:
		return fmt.Sprintf("%s %d", o.Kind, o.MemberNo)
	}
}

// Outcome is the result of applying one operation.
type Outcome string

// Operation outcomes.
const (
	OutcomeApplied Outcome = "applied"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// OperationResult pairs an operation with its apply outcome.
type OperationResult struct {
	Operation Operation `json:"operation"`
	Outcome   Outcome   `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
}

// Report is the outcome of one reconciliation pass. It is read-only once
// returned by the reconciler.
type Report struct {
	Results []OperationResult `json:"results"`
	Skipped []SkippedRecord   `json:"skipped,omitempty"`
}

// Counts summarizes a report for the end-of-pass summary line.
type Counts struct {
	Created int
	Updated int
	Revoked int
	Failed  int
	Skipped int
}

// Counts tallies the report by outcome and operation class.
func (r *Report) Counts() Counts {
	var counts Counts
	for _, result := range r.Results {
		switch result.Outcome {
		case OutcomeApplied:
			switch result.Operation.Kind {
			case OperationCreate:
				counts.Created++
			case OperationUpdate:
				counts.Updated++
			case OperationRevoke:
				counts.Revoked++
			}
		case OutcomeFailed:
			counts.Failed++
		case OutcomeSkipped:
			counts.Skipped++
		}
	}
	counts.Skipped += len(r.Skipped)
	return counts
}
