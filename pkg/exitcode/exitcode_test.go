package exitcode

import (
	"testing"
)

func TestExitCodeConstants(t *testing.T) {
	if Success != 0 {
		t.Errorf("Success = %v, expected 0", Success)
	}
	if Failure != 1 {
		t.Errorf("Failure = %v, expected 1", Failure)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{Success, "Success"},
		{Failure, "Failure"},
		{999, "Unknown exit code"},
	}

	for _, tt := range tests {
		if got := String(tt.code); got != tt.expected {
			t.Errorf("String(%d) = %q, expected %q", tt.code, got, tt.expected)
		}
	}
}

func TestFromBool(t *testing.T) {
	if FromBool(true) != Success {
		t.Error("FromBool(true) should be Success")
	}
	if FromBool(false) != Failure {
		t.Error("FromBool(false) should be Failure")
	}
}
