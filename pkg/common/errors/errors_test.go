package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestCommonErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrClosed", ErrClosed, "resource is closed"},
		{"ErrTimeout", ErrTimeout, "operation timed out"},
		{"ErrShutdown", ErrShutdown, "fabric is shut down"},
		{"ErrInvalidConfiguration", ErrInvalidConfiguration, "invalid configuration"},
		{"ErrFreed", ErrFreed, "resource has been freed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "without hint",
			err: &ValidationError{
				Module: "fabric",
				Field:  "WorkerCount",
				Value:  -1,
				Reason: "must be positive",
			},
			want: "fabric: invalid WorkerCount=-1 (must be positive)",
		},
		{
			name: "with hint",
			err: &ValidationError{
				Module: "compute",
				Field:  "tile[0]",
				Value:  0,
				Reason: "must be positive",
				Hint:   "use a value greater than 0",
			},
			want: "compute: invalid tile[0]=0 (must be positive) - use a value greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	verr := NewValidationError("test", "field", 0, "test")
	if !errors.Is(verr, ErrInvalidConfiguration) {
		t.Error("ValidationError should wrap ErrInvalidConfiguration")
	}

	result := verr.WithHint("hint")
	if result != verr {
		t.Error("WithHint should return the same instance")
	}
}

func TestOperationError(t *testing.T) {
	err := NewOperationError("fabric", "Submit", ErrShutdown).WithContext("worker 3")

	want := "fabric.Submit failed: fabric is shut down (worker 3)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrShutdown) {
		t.Error("OperationError should unwrap to its cause")
	}
}

func TestMisuse(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		if !IsMisuse(r) {
			t.Fatalf("expected MisuseError, got %T", r)
		}
		msg := r.(error).Error()
		for _, part := range []string{"channel", "Send", "resource is closed"} {
			if !strings.Contains(msg, part) {
				t.Errorf("message %q should contain %q", msg, part)
			}
		}
	}()

	Misuse("channel", "Send", ErrClosed)
}

func TestIsMisuse(t *testing.T) {
	tests := []struct {
		name string
		v    interface{}
		want bool
	}{
		{"misuse", &MisuseError{Cause: ErrClosed}, true},
		{"wrapped misuse", &OperationError{Cause: &MisuseError{Cause: ErrClosed}}, true},
		{"plain error", errors.New("boom"), false},
		{"string panic", "boom", false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMisuse(tt.v); got != tt.want {
				t.Errorf("IsMisuse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"validation error", &ValidationError{Module: "test"}, true},
		{"wrapped validation error", &OperationError{Cause: &ValidationError{Module: "test"}}, true},
		{"operation error", &OperationError{Cause: errors.New("test")}, false},
		{"timeout error", ErrTimeout, false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidationError(tt.err); got != tt.want {
				t.Errorf("IsValidationError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTemporary(t *testing.T) {
	if !IsTemporary(&OperationError{Cause: ErrTimeout}) {
		t.Error("wrapped timeout should be temporary")
	}
	if IsTemporary(ErrClosed) {
		t.Error("closed should not be temporary")
	}
}
