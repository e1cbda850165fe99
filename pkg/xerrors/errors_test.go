package xerrors_test

import (
	"errors"
	"strings"
	"testing"

	xe "github.com/cropbase/cropbase/pkg/xerrors"
)

func TestWrap(t *testing.T) {
	base := errors.New("boom")
	wrapped := xe.Wrap(base)

	if !errors.Is(wrapped, base) {
		t.Error("wrapped error loses its cause")
	}
	if !strings.Contains(wrapped.Error(), "boom") {
		t.Errorf("message lacks the cause: %s", wrapped.Error())
	}
	if !strings.Contains(wrapped.Error(), "errors_test.go") {
		t.Errorf("message lacks the caller: %s", wrapped.Error())
	}
}

func TestWrapWithNote(t *testing.T) {
	base := errors.New("not found")
	wrapped := xe.WrapWithNote(base, "version %s (%s)", "gbt-1", "model.json")

	if !errors.Is(wrapped, base) {
		t.Error("wrapped error loses its cause")
	}
	message := wrapped.Error()
	if !strings.Contains(message, "version gbt-1 (model.json)") {
		t.Errorf("note is not formatted into the message: %s", message)
	}
	if !strings.Contains(message, "not found") {
		t.Errorf("message lacks the cause: %s", message)
	}
}
