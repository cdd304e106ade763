// Package service orchestrates one reconciliation pass end to end.
package service

import (
	"context"
	"log/slog"

	"github.com/jschlyter/scoutnet2airkey/internal/domain/model"
	"github.com/jschlyter/scoutnet2airkey/internal/domain/port"
	"github.com/jschlyter/scoutnet2airkey/internal/reconciler"
	"github.com/jschlyter/scoutnet2airkey/pkg/concurrent"
)

// Syncer runs reconciliation passes: fetch both states, plan, apply.
type Syncer struct {
	roster      port.RosterReader
	credentials port.CredentialReaderWriter
	reconciler  *reconciler.Reconciler
}

// NewSyncer creates a new Syncer
func NewSyncer(roster port.RosterReader, credentials port.CredentialReaderWriter, rec *reconciler.Reconciler) *Syncer {
	return &Syncer{
		roster:      roster,
		credentials: credentials,
		reconciler:  rec,
	}
}

// Run executes one pass. A failed fetch of either state aborts before any
// operation is applied; per-operation failures end up in the report.
func (s *Syncer) Run(ctx context.Context) (*model.Report, error) {

	var (
		desired, observed             map[int]*model.Keyholder
		skippedRoster, skippedAirside []model.SkippedRecord
	)

	functions := []func() error{
		func() error {
			keyholders, skipped, errFetch := s.roster.FetchKeyholders(ctx)
			if errFetch != nil {
				slog.ErrorContext(ctx, "failed to fetch desired state", "error", errFetch)
				return errFetch
			}
			desired = keyholders
			skippedRoster = skipped
			return nil
		},
		func() error {
			credentials, skipped, errFetch := s.credentials.FetchCredentials(ctx)
			if errFetch != nil {
				slog.ErrorContext(ctx, "failed to fetch observed state", "error", errFetch)
				return errFetch
			}
			observed = credentials
			skippedAirside = skipped
			return nil
		},
	}

	if err := concurrent.NewWorkerPool(len(functions)).Run(ctx, functions...); err != nil {
		return nil, err
	}

	plan := s.reconciler.Plan(desired, observed)
	slog.InfoContext(ctx, "computed reconciliation plan",
		"desired", len(desired),
		"observed", len(observed),
		"operations", len(plan),
	)

	report := s.reconciler.Apply(ctx, plan, s.credentials, len(observed))
	report.Skipped = append(skippedRoster, skippedAirside...)

	return report, nil
}
