package ids

import "testing"

func TestNew(t *testing.T) {
	a := New()
	b := New()

	if len(a) != 26 || len(b) != 26 {
		t.Fatalf("lengths = %d, %d, want 26", len(a), len(b))
	}
	if a == b {
		t.Fatal("ids must be unique")
	}
	if !(a < b) {
		t.Fatalf("ids must be monotonic: %s >= %s", a, b)
	}
}
