package error

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestStoreError_IsMatchesByCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"not found", NotFound("Read", "id=0x1"), ErrNotFound, true},
		{"invalid id", InvalidIdentifier("Write", "id=0x2"), ErrInvalidIdentifier, true},
		{"inconsistent", Inconsistent("ActivePage", "both active"), ErrInconsistent, true},
		{"config", InvalidConfig("empty schema"), ErrInvalidConfig, true},
		{"device", Device(io.ErrUnexpectedEOF, "Program", "Flash"), ErrDevice, true},
		{"mismatch", NotFound("Read", ""), ErrDevice, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is = %v, want %v (err: %v)", got, tt.want, tt.err)
			}
		})
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	err := Device(io.ErrShortWrite, "Append", "RecordLog")
	if !errors.Is(err, io.ErrShortWrite) {
		t.Fatal("expected wrapped error to unwrap to its cause")
	}
	if err.Category != ErrCategorySystem {
		t.Errorf("expected system category, got %v", err.Category)
	}
}

func TestWrap_EnrichesExistingStoreError(t *testing.T) {
	inner := NotFound("", "id=0x1")
	wrapped := Wrap(inner, CodeDevice, "Transfer", "PageTransfer")

	if wrapped != inner {
		t.Fatal("expected Wrap to return the same StoreError")
	}
	if wrapped.Code != CodeNotFound {
		t.Errorf("expected code to stay %s, got %s", CodeNotFound, wrapped.Code)
	}
	if wrapped.Operation != "Transfer" || wrapped.Component != "PageTransfer" {
		t.Errorf("expected context to be filled in, got %s/%s", wrapped.Operation, wrapped.Component)
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil, CodeDevice, "op", "comp") != nil {
		t.Error("expected nil for nil input")
	}
}

func TestStoreError_ErrorFormat(t *testing.T) {
	err := Device(io.ErrUnexpectedEOF, "Erase", "Flash")
	err.Detail = "page0"

	msg := err.Error()
	for _, want := range []string{"[DEVICE_ERROR]", ": page0", "operation: Erase", "component: Flash", "caused by"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}

	if !strings.Contains(err.FormatStack(), "Stack trace:") {
		t.Error("expected a captured stack trace")
	}
}
