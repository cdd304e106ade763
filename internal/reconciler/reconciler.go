// Package reconciler computes and applies the minimal set of operations
// converging the access-control system toward the membership registry.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jschlyter/scoutnet2airkey/internal/domain/model"
	"github.com/jschlyter/scoutnet2airkey/internal/domain/port"
	"github.com/jschlyter/scoutnet2airkey/pkg/concurrent"
	"github.com/jschlyter/scoutnet2airkey/pkg/errors"
)

const defaultRevokeFailureLimit = 3

// Options configures one reconciler.
type Options struct {
	// RevokeThreshold is the maximum fraction of observed credentials a
	// single pass may revoke. A plan revoking more than this fraction has
	// all its revokes skipped; 1.0 disables the guard. A roster outage
	// must not read as "everyone left".
	RevokeThreshold float64

	// Workers bounds concurrent creates and updates. Revokes always run
	// sequentially so the failure limit below can stop them early.
	Workers int

	// RevokeFailureLimit stops remaining revokes after this many
	// consecutive revoke failures. Zero means the default of 3.
	RevokeFailureLimit int
}

// Reconciler plans and applies reconciliation passes.
type Reconciler struct {
	options Options
}

// New creates a new Reconciler
func New(options Options) *Reconciler {
	if options.Workers < 1 {
		options.Workers = 1
	}
	if options.RevokeFailureLimit < 1 {
		options.RevokeFailureLimit = defaultRevokeFailureLimit
	}
	return &Reconciler{options: options}
}

// Plan diffs desired against observed state. Member numbers present only
// in desired become creates, present in both but not equivalent become
// updates, present only in observed become revokes. The plan is ordered
// creates, updates, revokes, each class sorted by member number, so
// identical inputs always yield identical plans.
func (r *Reconciler) Plan(desired, observed map[int]*model.Keyholder) []model.Operation {

	var creates, updates, revokes []model.Operation

	for memberNo, want := range desired {
		have, exists := observed[memberNo]
		if !exists {
			creates = append(creates, model.Operation{
				Kind:      model.OperationCreate,
				MemberNo:  memberNo,
				Keyholder: want,
			})
			continue
		}
		if !want.Equivalent(have) {
			updates = append(updates, model.Operation{
				Kind:     model.OperationUpdate,
				MemberNo: memberNo,
				Delta:    want.Diff(have),
			})
		}
	}

	for memberNo := range observed {
		if _, exists := desired[memberNo]; !exists {
			revokes = append(revokes, model.Operation{
				Kind:     model.OperationRevoke,
				MemberNo: memberNo,
			})
		}
	}

	byMemberNo := func(a, b model.Operation) int {
		return a.MemberNo - b.MemberNo
	}
	slices.SortFunc(creates, byMemberNo)
	slices.SortFunc(updates, byMemberNo)
	slices.SortFunc(revokes, byMemberNo)

	plan := make([]model.Operation, 0, len(creates)+len(updates)+len(revokes))
	plan = append(plan, creates...)
	plan = append(plan, updates...)
	plan = append(plan, revokes...)

	return plan
}

// Apply executes the plan against the credential writer. Failures are
// isolated per operation and recorded in the report; the pass itself only
// fails earlier, at fetch time. observedCount is the size of the observed
// state the plan was computed from and drives the revoke threshold.
// Results are reported in plan order regardless of completion order.
func (r *Reconciler) Apply(ctx context.Context, plan []model.Operation, writer port.CredentialWriter, observedCount int) *model.Report {

	report := &model.Report{
		Results: make([]model.OperationResult, len(plan)),
	}

	revokesBlocked, blockReason := r.checkRevokeThreshold(ctx, plan, observedCount)

	// Creates and updates commute across disjoint member numbers, so they
	// may run concurrently. Each task records its own outcome and never
	// returns an error to the pool.
	var (
		tasks      []func() error
		revokes    []int // plan indexes
		resultsMux sync.Mutex
	)

	for index, operation := range plan {
		if operation.Kind == model.OperationRevoke {
			revokes = append(revokes, index)
			continue
		}

		tasks = append(tasks, func() error {
			outcome := r.applyOne(ctx, writer, operation)
			resultsMux.Lock()
			report.Results[index] = outcome
			resultsMux.Unlock()
			return nil
		})
	}

	// The pool never reports an error since tasks swallow their own.
	_ = concurrent.NewWorkerPool(r.options.Workers).Run(ctx, tasks...)

	consecutiveFailures := 0
	for _, index := range revokes {
		operation := plan[index]

		if revokesBlocked {
			report.Results[index] = model.OperationResult{
				Operation: operation,
				Outcome:   model.OutcomeSkipped,
				Reason:    blockReason,
			}
			continue
		}

		if consecutiveFailures >= r.options.RevokeFailureLimit {
			report.Results[index] = model.OperationResult{
				Operation: operation,
				Outcome:   model.OutcomeSkipped,
				Reason:    fmt.Sprintf("stopped after %d consecutive revoke failures", consecutiveFailures),
			}
			continue
		}

		outcome := r.applyOne(ctx, writer, operation)
		report.Results[index] = outcome

		if outcome.Outcome == model.OutcomeFailed {
			consecutiveFailures++
		} else {
			consecutiveFailures = 0
		}
	}

	return report
}

// checkRevokeThreshold decides whether the plan's revokes exceed the
// configured safety fraction of observed state.
func (r *Reconciler) checkRevokeThreshold(ctx context.Context, plan []model.Operation, observedCount int) (bool, string) {
	if observedCount == 0 {
		return false, ""
	}

	revokeCount := 0
	for _, operation := range plan {
		if operation.Kind == model.OperationRevoke {
			revokeCount++
		}
	}
	if revokeCount == 0 {
		return false, ""
	}

	ratio := float64(revokeCount) / float64(observedCount)
	if ratio <= r.options.RevokeThreshold {
		return false, ""
	}

	err := errors.NewThresholdExceeded(fmt.Sprintf(
		"plan revokes %d of %d observed credentials (%.0f%%), above the %.0f%% threshold",
		revokeCount, observedCount, ratio*100, r.options.RevokeThreshold*100))

	slog.WarnContext(ctx, "revoke threshold exceeded, skipping all revokes",
		"revokes", revokeCount,
		"observed", observedCount,
		"threshold", r.options.RevokeThreshold,
	)

	return true, err.Error()
}

func (r *Reconciler) applyOne(ctx context.Context, writer port.CredentialWriter, operation model.Operation) model.OperationResult {

	var err error
	switch operation.Kind {
	case model.OperationCreate:
		err = writer.CreateCredential(ctx, operation.Keyholder)
	case model.OperationUpdate:
		err = writer.UpdateCredential(ctx, operation.MemberNo, operation.Delta)
	case model.OperationRevoke:
		err = writer.RevokeCredential(ctx, operation.MemberNo)
	default:
		err = errors.NewUnexpected("unknown operation kind: " + string(operation.Kind))
	}

	if err != nil {
		slog.ErrorContext(ctx, "operation failed",
			"operation", operation.String(),
			"error", err,
		)
		return model.OperationResult{
			Operation: operation,
			Outcome:   model.OutcomeFailed,
			Reason:    err.Error(),
		}
	}

	slog.DebugContext(ctx, "operation applied", "operation", operation.String())
	return model.OperationResult{
		Operation: operation,
		Outcome:   model.OutcomeApplied,
	}
}
