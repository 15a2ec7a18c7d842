package admin

import "testing"

func ref(v any) Ref {
	return Ref{Kind: "test", Resolve: func() (any, bool) { return v, true }}
}

func TestQueryPointLookup(t *testing.T) {
	s := NewSpace()
	s.Put("dds/aa", ref("participant"))
	entries := s.Query("dds/aa")
	if len(entries) != 1 || entries[0].Key != "dds/aa" {
		t.Fatalf("expected single point match, got %+v", entries)
	}
	if len(s.Query("dds/bb")) != 0 {
		t.Fatal("expected no match for absent key")
	}
}

func TestQueryWildSingleSegment(t *testing.T) {
	s := NewSpace()
	s.Put("dds/aa", ref(1))
	s.Put("dds/bb", ref(2))
	s.Put("dds/aa/writer/w1/foo", ref(3))

	entries := s.Query("dds/*")
	if len(entries) != 2 {
		t.Fatalf("expected 2 matches for single-segment wildcard, got %d: %+v", len(entries), entries)
	}
}

func TestQueryWildMultiSegment(t *testing.T) {
	s := NewSpace()
	s.Put("dds/aa/writer/w1/foo/bar", ref(1))
	s.Put("dds/aa/reader/r1/baz", ref(2))
	s.Put("dds/bb", ref(3))

	entries := s.Query("dds/aa/**")
	if len(entries) != 2 {
		t.Fatalf("expected 2 matches under dds/aa/**, got %d: %+v", len(entries), entries)
	}

	all := s.Query("**")
	if len(all) != 3 {
		t.Fatalf("expected ** to match every key, got %d", len(all))
	}
}

func TestTreatQuerySkipsDangling(t *testing.T) {
	s := NewSpace()
	s.Put("dds/aa", Ref{Kind: "gone", Resolve: func() (any, bool) { return nil, false }})
	s.Put("dds/bb", ref(map[string]string{"x": "y"}))

	replies, err := TreatQuery(s, "dds", "dds/*")
	if err != nil {
		t.Fatalf("TreatQuery: %v", err)
	}
	if len(replies) != 1 || replies[0].Key != "dds/bb" {
		t.Fatalf("expected only the live entry to be replied, got %+v", replies)
	}
}

func TestTreatQueryRejectsWrongPrefix(t *testing.T) {
	s := NewSpace()
	if _, err := TreatQuery(s, "dds", "node/aa"); err == nil {
		t.Fatal("expected error for selector not matching prefix")
	}
}
