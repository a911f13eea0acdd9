package app

import (
	"errors"
	"testing"
)

func TestOperationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *OperationError
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "op only",
			err:      &OperationError{Op: "reload config"},
			expected: "reload config",
		},
		{
			name:     "op and target",
			err:      &OperationError{Op: "run script", Target: "replay.lua"},
			expected: "run script replay.lua",
		},
		{
			name:     "full error chain",
			err:      &OperationError{Op: "run script", Target: "replay.lua", Err: errors.New("syntax error")},
			expected: "run script replay.lua: syntax error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			if result != tt.expected {
				t.Errorf("Error() = '%s', expected '%s'", result, tt.expected)
			}
		})
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	inner := errors.New("inner error")
	err := NewOperationError("run script", "x.lua", inner)

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the inner error")
	}

	var nilErr *OperationError
	if nilErr.Unwrap() != nil {
		t.Error("expected nil from Unwrap() on nil receiver")
	}
}

func TestInitError(t *testing.T) {
	inner := errors.New("bad level")
	err := &InitError{Component: "config", Err: inner}

	if err.Error() != "init config: bad level" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the inner error")
	}
}

func TestErrorList(t *testing.T) {
	var list ErrorList
	if list.AsError() != nil {
		t.Error("empty list should be nil error")
	}

	list.Add(nil)
	if list.Len() != 0 {
		t.Errorf("Len() = %d after adding nil", list.Len())
	}

	first := errors.New("first")
	list.Add(first)
	if list.Error() != "first" {
		t.Errorf("Error() = %q", list.Error())
	}

	list.Add(ErrNoTerminal)
	if list.Error() != "2 errors: first: first" {
		t.Errorf("Error() = %q", list.Error())
	}
	err := list.AsError()
	if !errors.Is(err, first) || !errors.Is(err, ErrNoTerminal) {
		t.Error("errors.Is should see every collected error")
	}
}
