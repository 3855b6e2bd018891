package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "resource not found")
		if err.Error() != "[NOT_FOUND] resource not found" {
			t.Errorf("expected [NOT_FOUND] resource not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		expected := "[INTERNAL_ERROR] internal failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to the original")
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeMalformedProvenance, "bad entry")
		if !IsCode(err, CodeMalformedProvenance) {
			t.Error("expected IsCode to return true for CodeMalformedProvenance")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeThroughFmtWrap", func(t *testing.T) {
		err := fmt.Errorf("restore: %w", New(CodeInvariant, "collision"))
		if !IsCode(err, CodeInvariant) {
			t.Error("expected IsCode to see through fmt wrapping")
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := AddContext(Newf(CodeParse, "parse %s", "a.py"), CtxPath, "a.py")
		if err.Error() != "[PARSE_ERROR] parse a.py map[path:a.py]" {
			t.Errorf("unexpected message %q", err.Error())
		}

		foreign := AddContext(errors.New("boom"), CtxNode, 4)
		if !IsCode(foreign, CodeInternal) {
			t.Error("expected foreign errors to become internal domain errors")
		}
	})
}
