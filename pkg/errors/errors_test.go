package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  New(ErrCodePackageNotFound, "no releases for %s", "leftpad"),
			want: "PACKAGE_NOT_FOUND: no releases for leftpad",
		},
		{
			name: "with cause",
			err:  Wrap(ErrCodeTransport, stderrors.New("dial tcp: timeout"), "fetch %s", "foo-1.0.tar.gz"),
			want: "TRANSPORT: fetch foo-1.0.tar.gz: dial tcp: timeout",
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

func TestIs(t *testing.T) {
	err := New(ErrCodeHashMismatch, "sha256 mismatch")
	wrapped := fmt.Errorf("materialize: %w", err)

	if !Is(wrapped, ErrCodeHashMismatch) {
		t.Error("Is() = false for wrapped error with matching code")
	}
	if Is(wrapped, ErrCodeTransport) {
		t.Error("Is() = true for non-matching code")
	}
	if Is(stderrors.New("plain"), ErrCodeHashMismatch) {
		t.Error("Is() = true for plain error")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeExtraction, "truncated")); got != ErrCodeExtraction {
		t.Errorf("GetCode() = %q, want %q", got, ErrCodeExtraction)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode() = %q for plain error, want empty", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrap(ErrCodeTransport, cause, "fetch failed")
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is() does not find the cause through Unwrap")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeConfig, "bad cache dir")); got != "bad cache dir" {
		t.Errorf("UserMessage() = %q, want %q", got, "bad cache dir")
	}
	if got := UserMessage(stderrors.New("plain")); got != "plain" {
		t.Errorf("UserMessage() = %q, want %q", got, "plain")
	}
}
