package pointers

import "testing"

func TestNonEmpty(t *testing.T) {
	if NonEmpty("") != nil {
		t.Fatalf("empty string should map to nil")
	}
	if p := NonEmpty("hi"); p == nil || *p != "hi" {
		t.Fatalf("got %v", p)
	}
}

func TestValue(t *testing.T) {
	if Value[int64](nil) != 0 {
		t.Fatalf("nil should give zero")
	}
	if Value(Ptr("x")) != "x" {
		t.Fatalf("round trip failed")
	}
}
