package reconciler

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/jschlyter/scoutnet2airkey/internal/domain/model"
	"github.com/jschlyter/scoutnet2airkey/pkg/errors"
)

// mockCredentialWriter is a mock implementation of port.CredentialWriter
type mockCredentialWriter struct {
	createFunc func(ctx context.Context, keyholder *model.Keyholder) error
	updateFunc func(ctx context.Context, memberNo int, delta model.Delta) error
	revokeFunc func(ctx context.Context, memberNo int) error
}

func (m *mockCredentialWriter) CreateCredential(ctx context.Context, keyholder *model.Keyholder) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, keyholder)
	}
	return nil
}

func (m *mockCredentialWriter) UpdateCredential(ctx context.Context, memberNo int, delta model.Delta) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, memberNo, delta)
	}
	return nil
}

func (m *mockCredentialWriter) RevokeCredential(ctx context.Context, memberNo int) error {
	if m.revokeFunc != nil {
		return m.revokeFunc(ctx, memberNo)
	}
	return nil
}

func keyholder(memberNo int, firstName, phone string, roles ...string) *model.Keyholder {
	k := &model.Keyholder{
		MemberNo:  memberNo,
		FirstName: firstName,
		Phone:     phone,
		Roles:     roles,
	}
	k.Sanitize()
	return k
}

func planKinds(plan []model.Operation) []model.OperationKind {
	kinds := make([]model.OperationKind, len(plan))
	for i, op := range plan {
		kinds[i] = op.Kind
	}
	return kinds
}

func TestPlan(t *testing.T) {
	r := New(Options{RevokeThreshold: 1.0})

	tests := []struct {
		name     string
		desired  map[int]*model.Keyholder
		observed map[int]*model.Keyholder
		validate func(t *testing.T, plan []model.Operation)
	}{
		{
			name: "empty observed yields full-create plan",
			desired: map[int]*model.Keyholder{
				2: keyholder(2, "Bob", "+46702"),
				1: keyholder(1, "Alice", "+46701"),
			},
			observed: map[int]*model.Keyholder{},
			validate: func(t *testing.T, plan []model.Operation) {
				if len(plan) != 2 {
					t.Fatalf("expected 2 operations, got %d", len(plan))
				}
				if plan[0].Kind != model.OperationCreate || plan[0].MemberNo != 1 {
					t.Errorf("expected create 1 first, got %v", plan[0])
				}
				if plan[1].Kind != model.OperationCreate || plan[1].MemberNo != 2 {
					t.Errorf("expected create 2 second, got %v", plan[1])
				}
			},
		},
		{
			name: "changed field yields update with delta",
			desired: map[int]*model.Keyholder{
				1: keyholder(1, "Alice", "+46701", "leader"),
			},
			observed: map[int]*model.Keyholder{
				1: keyholder(1, "Alice", "+46701", "treasurer"),
			},
			validate: func(t *testing.T, plan []model.Operation) {
				if len(plan) != 1 {
					t.Fatalf("expected 1 operation, got %d", len(plan))
				}
				if plan[0].Kind != model.OperationUpdate {
					t.Fatalf("expected update, got %v", plan[0].Kind)
				}
				change, ok := plan[0].Delta["roles"]
				if !ok || change.New != "leader" || change.Old != "treasurer" {
					t.Errorf("unexpected roles delta: %+v", plan[0].Delta)
				}
			},
		},
		{
			name:    "empty desired yields full-revoke plan",
			desired: map[int]*model.Keyholder{},
			observed: map[int]*model.Keyholder{
				1: keyholder(1, "Alice", "+46701"),
			},
			validate: func(t *testing.T, plan []model.Operation) {
				if len(plan) != 1 || plan[0].Kind != model.OperationRevoke || plan[0].MemberNo != 1 {
					t.Errorf("expected [revoke 1], got %v", plan)
				}
			},
		},
		{
			name: "identical sets yield empty plan",
			desired: map[int]*model.Keyholder{
				1: keyholder(1, "Alice", "+46701", "leader"),
			},
			observed: map[int]*model.Keyholder{
				1: keyholder(1, "Alice", "+46701", "leader"),
			},
			validate: func(t *testing.T, plan []model.Operation) {
				if len(plan) != 0 {
					t.Errorf("expected empty plan, got %v", plan)
				}
			},
		},
		{
			name: "creates before updates before revokes",
			desired: map[int]*model.Keyholder{
				1: keyholder(1, "Alice", "+46701"),
				2: keyholder(2, "Bob", "+46702", "leader"),
			},
			observed: map[int]*model.Keyholder{
				2: keyholder(2, "Bob", "+46702"),
				3: keyholder(3, "Carol", "+46703"),
			},
			validate: func(t *testing.T, plan []model.Operation) {
				expected := []model.OperationKind{
					model.OperationCreate,
					model.OperationUpdate,
					model.OperationRevoke,
				}
				if !reflect.DeepEqual(planKinds(plan), expected) {
					t.Errorf("unexpected plan order: %v", planKinds(plan))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, r.Plan(tt.desired, tt.observed))
		})
	}
}

func TestPlanDeterministic(t *testing.T) {
	r := New(Options{RevokeThreshold: 1.0})

	desired := map[int]*model.Keyholder{}
	observed := map[int]*model.Keyholder{}
	for i := 1; i <= 50; i++ {
		desired[i] = keyholder(i, "Member", "+4670", "leader")
	}
	for i := 40; i <= 90; i++ {
		observed[i] = keyholder(i, "Member", "+4670", "leader")
	}

	first := r.Plan(desired, observed)
	for range 10 {
		if !reflect.DeepEqual(first, r.Plan(desired, observed)) {
			t.Fatal("expected identical plans for identical inputs")
		}
	}
}

func TestApplyConvergesToEmptyPlan(t *testing.T) {
	ctx := context.Background()
	// Single worker so the unsynchronized target map below is safe.
	r := New(Options{RevokeThreshold: 1.0, Workers: 1})

	desired := map[int]*model.Keyholder{
		1: keyholder(1, "Alice", "+46701", "leader"),
		2: keyholder(2, "Bob", "+46702", "leader"),
	}
	observed := map[int]*model.Keyholder{
		2: keyholder(2, "Bob", "+46799"),
		3: keyholder(3, "Carol", "+46703"),
	}

	// Simulated target that actually applies operations
	target := map[int]*model.Keyholder{}
	for memberNo, k := range observed {
		target[memberNo] = k
	}
	writer := &mockCredentialWriter{
		createFunc: func(_ context.Context, k *model.Keyholder) error {
			target[k.MemberNo] = k
			return nil
		},
		updateFunc: func(_ context.Context, memberNo int, _ model.Delta) error {
			target[memberNo] = desired[memberNo]
			return nil
		},
		revokeFunc: func(_ context.Context, memberNo int) error {
			delete(target, memberNo)
			return nil
		},
	}

	plan := r.Plan(desired, observed)
	report := r.Apply(ctx, plan, writer, len(observed))

	counts := report.Counts()
	if counts.Created != 1 || counts.Updated != 1 || counts.Revoked != 1 || counts.Failed != 0 {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	// A second pass against the converged target plans nothing.
	if replan := r.Plan(desired, target); len(replan) != 0 {
		t.Errorf("expected empty plan after convergence, got %v", replan)
	}
}

func TestApplyIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	r := New(Options{RevokeThreshold: 1.0, Workers: 1})

	desired := map[int]*model.Keyholder{
		1: keyholder(1, "Alice", "+46701"),
		2: keyholder(2, "Bob", "+46702"),
		3: keyholder(3, "Carol", "+46703"),
	}

	writer := &mockCredentialWriter{
		createFunc: func(_ context.Context, k *model.Keyholder) error {
			if k.MemberNo == 2 {
				return errors.NewUnexpected("airkey rejected the person")
			}
			return nil
		},
	}

	plan := r.Plan(desired, map[int]*model.Keyholder{})
	report := r.Apply(ctx, plan, writer, 0)

	counts := report.Counts()
	if counts.Created != 2 {
		t.Errorf("expected 2 applied creates, got %d", counts.Created)
	}
	if counts.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", counts.Failed)
	}

	// Report stays in plan order.
	for i, result := range report.Results {
		if result.Operation.MemberNo != i+1 {
			t.Errorf("expected member %d at position %d, got %d", i+1, i, result.Operation.MemberNo)
		}
	}
}

func TestApplyRevokeThreshold(t *testing.T) {
	ctx := context.Background()

	observed := map[int]*model.Keyholder{
		1: keyholder(1, "Alice", "+46701"),
	}

	t.Run("zero threshold blocks full revoke", func(t *testing.T) {
		r := New(Options{RevokeThreshold: 0.0})

		revoked := false
		writer := &mockCredentialWriter{
			revokeFunc: func(_ context.Context, _ int) error {
				revoked = true
				return nil
			},
		}

		plan := r.Plan(map[int]*model.Keyholder{}, observed)
		report := r.Apply(ctx, plan, writer, len(observed))

		if revoked {
			t.Error("expected no revoke to reach the writer")
		}
		if len(report.Results) != 1 || report.Results[0].Outcome != model.OutcomeSkipped {
			t.Fatalf("expected one skipped result, got %+v", report.Results)
		}
		if !strings.Contains(report.Results[0].Reason, "threshold") {
			t.Errorf("expected threshold reason, got %q", report.Results[0].Reason)
		}
	})

	t.Run("threshold does not gate creates", func(t *testing.T) {
		r := New(Options{RevokeThreshold: 0.0})

		created := false
		writer := &mockCredentialWriter{
			createFunc: func(_ context.Context, _ *model.Keyholder) error {
				created = true
				return nil
			},
		}

		desired := map[int]*model.Keyholder{
			2: keyholder(2, "Bob", "+46702"),
		}
		plan := r.Plan(desired, observed)
		report := r.Apply(ctx, plan, writer, len(observed))

		if !created {
			t.Error("expected create to be applied")
		}
		counts := report.Counts()
		if counts.Created != 1 || counts.Skipped != 1 {
			t.Errorf("unexpected counts: %+v", counts)
		}
	})

	t.Run("threshold of one disables the guard", func(t *testing.T) {
		r := New(Options{RevokeThreshold: 1.0})

		revoked := 0
		writer := &mockCredentialWriter{
			revokeFunc: func(_ context.Context, _ int) error {
				revoked++
				return nil
			},
		}

		plan := r.Plan(map[int]*model.Keyholder{}, observed)
		r.Apply(ctx, plan, writer, len(observed))

		if revoked != 1 {
			t.Errorf("expected 1 revoke, got %d", revoked)
		}
	})
}

func TestApplyRevokeFailureLimit(t *testing.T) {
	ctx := context.Background()
	r := New(Options{RevokeThreshold: 1.0, RevokeFailureLimit: 2})

	observed := map[int]*model.Keyholder{}
	for i := 1; i <= 5; i++ {
		observed[i] = keyholder(i, "Member", "+4670")
	}

	attempts := 0
	writer := &mockCredentialWriter{
		revokeFunc: func(_ context.Context, _ int) error {
			attempts++
			return errors.NewServiceUnavailable("airkey is down")
		},
	}

	plan := r.Plan(map[int]*model.Keyholder{}, observed)
	report := r.Apply(ctx, plan, writer, len(observed))

	if attempts != 2 {
		t.Errorf("expected revokes to stop after 2 failures, got %d attempts", attempts)
	}

	counts := report.Counts()
	if counts.Failed != 2 {
		t.Errorf("expected 2 failures, got %d", counts.Failed)
	}
	if counts.Skipped != 3 {
		t.Errorf("expected 3 skipped, got %d", counts.Skipped)
	}
}

func TestApplyConcurrentDeterministicReport(t *testing.T) {
	ctx := context.Background()
	r := New(Options{RevokeThreshold: 1.0, Workers: 8})

	desired := map[int]*model.Keyholder{}
	for i := 1; i <= 40; i++ {
		desired[i] = keyholder(i, "Member", "+4670")
	}

	plan := r.Plan(desired, map[int]*model.Keyholder{})
	report := r.Apply(ctx, plan, &mockCredentialWriter{}, 0)

	if len(report.Results) != 40 {
		t.Fatalf("expected 40 results, got %d", len(report.Results))
	}
	for i, result := range report.Results {
		if result.Operation.MemberNo != i+1 {
			t.Fatalf("report out of order at %d: member %d", i, result.Operation.MemberNo)
		}
		if result.Outcome != model.OutcomeApplied {
			t.Errorf("expected applied, got %v", result.Outcome)
		}
	}
}
