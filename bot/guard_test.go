package bot

import "testing"

func TestCallbackGuard_FirstTime(t *testing.T) {
	g := newCallbackGuard()

	if !g.firstTime("cb-1") {
		t.Fatalf("first activation rejected")
	}
	if g.firstTime("cb-1") {
		t.Fatalf("duplicate activation accepted")
	}
	if !g.firstTime("cb-2") {
		t.Fatalf("distinct activation rejected")
	}
}

func TestCallbackGuard_EmptyIDAlwaysPasses(t *testing.T) {
	g := newCallbackGuard()

	if !g.firstTime("") {
		t.Fatalf("empty id rejected")
	}
	if !g.firstTime("") {
		t.Fatalf("empty id rejected on repeat")
	}
}
