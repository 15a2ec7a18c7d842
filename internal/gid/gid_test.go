package gid

import "testing"

func TestNotDiscoveredSentinel(t *testing.T) {
	if NotDiscovered.IsDiscovered() {
		t.Fatalf("NotDiscovered must report IsDiscovered() == false")
	}
	var zero Gid
	if !zero.IsDiscovered() {
		t.Fatalf("the zero Gid is a real (discovered) value, distinct from the sentinel")
	}
}

func TestParseRoundTrip(t *testing.T) {
	g := Gid{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	parsed, err := Parse(g.String())
	if err != nil {
		t.Fatalf("Parse(%q): %v", g.String(), err)
	}
	if parsed != g {
		t.Fatalf("round trip mismatch: got %v want %v", parsed, g)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse("not-hex"); err == nil {
		t.Fatal("expected error for non-hex input")
	}
	if _, err := Parse("aabb"); err == nil {
		t.Fatal("expected error for short input")
	}
}

func TestLess(t *testing.T) {
	a := Gid{0x01}
	b := Gid{0x02}
	if !a.Less(b) {
		t.Fatalf("expected %v < %v", a, b)
	}
	if b.Less(a) == false && a.Less(b) == false {
		t.Fatalf("exactly one ordering must hold for distinct Gids")
	}
	if a.Less(a) {
		t.Fatalf("a Gid must not be Less than itself")
	}
}
