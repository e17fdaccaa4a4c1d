package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := WrapWithCode(cause, CodeUnavailable, "pipeline.render", "render engine failed")

	got := err.Error()
	want := "pipeline.render: [UNAVAILABLE] render engine failed: connection refused"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorStringWithoutOp(t *testing.T) {
	err := New(CodeValidation, "name is required")
	if got := err.Error(); got != "[VALIDATION_ERROR] name is required" {
		t.Errorf("Error() = %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(cause, "contentstore.ingest", "upload failed")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match its cause with errors.Is")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "op", "msg") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if WrapWithCode(nil, CodeTimeout, "op", "msg") != nil {
		t.Error("WrapWithCode(nil) should be nil")
	}
}

func TestWrapKeepsCode(t *testing.T) {
	inner := New(CodeNotFound, "record not found")
	outer := Wrap(inner, "pipeline.load", "loading record")

	if outer.Code != CodeNotFound {
		t.Errorf("Code = %s, want %s", outer.Code, CodeNotFound)
	}
}

func TestWrapWithCodeOverrides(t *testing.T) {
	inner := New(CodeNotFound, "gone")
	outer := WrapWithCode(inner, CodeTimeout, "pipeline.publish", "poll budget exhausted")

	if outer.Code != CodeTimeout {
		t.Errorf("Code = %s, want %s", outer.Code, CodeTimeout)
	}
}

func TestIsMatchesByCode(t *testing.T) {
	a := New(CodeConflict, "duplicate asset")
	b := New(CodeConflict, "different message")

	if !stderrors.Is(a, b) {
		t.Error("errors with the same code should match")
	}
	if stderrors.Is(a, New(CodeTimeout, "x")) {
		t.Error("errors with different codes should not match")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(CodeValidation, "bad")); got != CodeValidation {
		t.Errorf("CodeOf = %s", got)
	}
	if got := CodeOf(stderrors.New("plain")); got != CodeInternal {
		t.Errorf("CodeOf(plain) = %s, want %s", got, CodeInternal)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:  400,
		CodeNotFound:    404,
		CodeConflict:    409,
		CodeUnavailable: 503,
		CodeTimeout:     504,
		CodeInternal:    500,
	}
	for code, want := range cases {
		if got := New(code, "x").HTTPStatus(); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", code, got, want)
		}
	}

	if got := StatusOf(stderrors.New("plain")); got != 500 {
		t.Errorf("StatusOf(plain) = %d", got)
	}
}

func TestWithField(t *testing.T) {
	err := New(CodeValidation, "bad input").
		WithField("field", "name").
		WithField("record_id", "rec_1")

	if err.Fields["field"] != "name" || err.Fields["record_id"] != "rec_1" {
		t.Errorf("Fields = %v", err.Fields)
	}
}

func TestStackCaptured(t *testing.T) {
	err := New(CodeInternal, "boom")

	if len(err.Stack) == 0 {
		t.Fatal("expected a captured stack")
	}
	if !strings.Contains(err.Stack[0].Function, "TestStackCaptured") {
		t.Errorf("top frame = %s, want this test", err.Stack[0].Function)
	}
	if err.StackTrace() == "" {
		t.Error("StackTrace() should not be empty")
	}
}
