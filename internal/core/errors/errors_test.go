package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "crate root not found")
		if err.Error() != "[NOT_FOUND] crate root not found" {
			t.Errorf("expected [NOT_FOUND] crate root not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("disk full")
		err := Wrap(original, CodeInternal, "history write failed")
		expected := "[INTERNAL_ERROR] history write failed: disk full"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected Wrap to keep the cause in the chain")
		}
	})

	t.Run("WrapCanceled", func(t *testing.T) {
		err := Wrap(fmt.Errorf("pass 3: %w", context.Canceled), CodeInternal, "resolve failed")
		if !IsCode(err, CodeCanceled) {
			t.Errorf("expected CANCELED, got %s", CodeOf(err))
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid edition")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
		if IsCode(errors.New("plain"), CodeInternal) {
			t.Error("expected IsCode to return false for a plain error")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		err := fmt.Errorf("loading: %w", New(CodeParse, "syntax error"))
		if !IsCode(err, CodeParse) {
			t.Error("expected IsCode to see through fmt wrapping")
		}
	})
}

func TestAddContext(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
		wantMsg  string
	}{
		{
			name:     "domain error keeps code",
			err:      New(CodeNotFound, "missing module file"),
			wantCode: CodeNotFound,
			wantMsg:  "[NOT_FOUND] missing module file (path=src/a.rs)",
		},
		{
			name:     "plain error becomes internal",
			err:      errors.New("boom"),
			wantCode: CodeInternal,
			wantMsg:  "[INTERNAL_ERROR] wrapped error: boom (path=src/a.rs)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AddContext(tt.err, CtxPath, "src/a.rs")
			if CodeOf(err) != tt.wantCode {
				t.Errorf("code = %s, want %s", CodeOf(err), tt.wantCode)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}

	if AddContext(nil, CtxPath, "x") != nil {
		t.Error("expected AddContext(nil) to stay nil")
	}
}

func TestErrorContextIsSorted(t *testing.T) {
	de := &DomainError{Code: CodeConflict, Message: "run exists"}
	de.WithContext(CtxRunID, "r1").WithContext(CtxCrate, "app")
	want := "[CONFLICT] run exists (crate=app run_id=r1)"
	if de.Error() != want {
		t.Errorf("got %q, want %q", de.Error(), want)
	}
}
