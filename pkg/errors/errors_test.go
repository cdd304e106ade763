package errors

import (
	stderrors "errors"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "message only",
			err:      NewValidation("member number is required"),
			expected: "member number is required",
		},
		{
			name:     "message with wrapped cause",
			err:      NewUnexpected("fetch failed", stderrors.New("connection refused")),
			expected: "fetch failed: connection refused",
		},
		{
			name:     "empty message with cause",
			err:      NewServiceUnavailable("", stderrors.New("timeout")),
			expected: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestErrorKinds(t *testing.T) {
	cause := stderrors.New("boom")

	if !IsValidation(NewValidation("bad record")) {
		t.Error("expected IsValidation to match a Validation error")
	}
	if IsValidation(NewUnexpected("bad record")) {
		t.Error("expected IsValidation to reject an Unexpected error")
	}
	if !IsNotFound(NewNotFound("person not found")) {
		t.Error("expected IsNotFound to match a NotFound error")
	}
	if !IsThresholdExceeded(NewThresholdExceeded("revoke threshold exceeded")) {
		t.Error("expected IsThresholdExceeded to match a ThresholdExceeded error")
	}

	var sua ServiceUnavailable
	if !stderrors.As(NewServiceUnavailable("down", cause), &sua) {
		t.Error("expected errors.As to match ServiceUnavailable")
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := NewUnexpected("wrapper", cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}
