package qos

import "testing"

func reliabilityEqual(a, b *Reliability) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return a.Kind == b.Kind
}

func durabilityEqual(a, b *Durability) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return a.Kind == b.Kind
}

func historyEqual(a, b *History) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return a.Kind == b.Kind && a.Depth == b.Depth
}

func TestDigestRoundTripDefault(t *testing.T) {
	q := Qos{}

	if got := Serialize(false, q); got != ":::" {
		t.Fatalf("Serialize(keyless, default) = %q, want %q", got, ":::")
	}
	if got := Serialize(true, q); got != "K:::" {
		t.Fatalf("Serialize(keyed, default) = %q, want %q", got, "K:::")
	}

	keyed, parsed, err := Parse(Serialize(true, q))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !keyed {
		t.Fatal("expected keyed == true")
	}
	if !reliabilityEqual(parsed.Reliability, q.Reliability) {
		t.Fatalf("reliability mismatch: %+v vs %+v", parsed.Reliability, q.Reliability)
	}
}

func TestDigestRoundTripFields(t *testing.T) {
	cases := []Qos{
		{Reliability: &Reliability{Kind: ReliabilityReliable}},
		{Durability: &Durability{Kind: DurabilityTransientLocal}},
		{History: &History{Kind: HistoryKeepLast, Depth: 3}},
		{
			Reliability: &Reliability{Kind: ReliabilityReliable},
			Durability:  &Durability{Kind: DurabilityTransientLocal},
			History:     &History{Kind: HistoryKeepLast, Depth: 7},
		},
	}

	for _, keyed := range []bool{true, false} {
		for _, q := range cases {
			digest := Serialize(keyed, q)
			gotKeyed, parsed, err := Parse(digest)
			if err != nil {
				t.Fatalf("Parse(%q): %v", digest, err)
			}
			if gotKeyed != keyed {
				t.Fatalf("Parse(%q) keyed = %v, want %v", digest, gotKeyed, keyed)
			}
			if !reliabilityEqual(parsed.Reliability, q.Reliability) {
				t.Fatalf("Parse(%q) reliability = %+v, want %+v", digest, parsed.Reliability, q.Reliability)
			}
			if !durabilityEqual(parsed.Durability, q.Durability) {
				t.Fatalf("Parse(%q) durability = %+v, want %+v", digest, parsed.Durability, q.Durability)
			}
			if !historyEqual(parsed.History, q.History) {
				t.Fatalf("Parse(%q) history = %+v, want %+v", digest, parsed.History, q.History)
			}
		}
	}
}

func TestParseMalformed(t *testing.T) {
	badInputs := []string{
		"",
		"::",
		":::;",
		"X:::",
		":abc::",
		"::xyz:",
		":::abc",
		":::1",
	}
	for _, in := range badInputs {
		if _, _, err := Parse(in); err == nil {
			t.Fatalf("Parse(%q): expected error, got nil", in)
		}
	}
}
