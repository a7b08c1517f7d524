package testfixtures

import "testing"

func TestIDGenerator_Sequence(t *testing.T) {
	gen := NewIDGenerator("booking")

	if got := gen.Next(); got != "booking-1" {
		t.Fatalf("first id = %q", got)
	}
	if got := gen.Next(); got != "booking-2" {
		t.Fatalf("second id = %q", got)
	}

	gen.Reset()
	if got := gen.Next(); got != "booking-1" {
		t.Fatalf("id after reset = %q", got)
	}
}

func TestIDGenerator_DefaultPrefix(t *testing.T) {
	gen := NewIDGenerator("")
	if got := gen.Next(); got != "id-1" {
		t.Fatalf("id = %q", got)
	}
}
