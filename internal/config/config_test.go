package config

import "testing"

func TestLoadAllowanceAllowVariant(t *testing.T) {
	t.Setenv("ZENOH_BRIDGE_ROS2_ALLOW_PUBLISHERS", "foo/.*")

	p, err := loadAllowance()
	if err != nil {
		t.Fatalf("loadAllowance: %v", err)
	}
	if p == nil || !p.Allow {
		t.Fatal("expected an allow-variant policy")
	}
	if !p.Publishers.MatchString("foo/bar") {
		t.Fatal("expected publishers regex to match foo/bar")
	}
	if p.Publishers.MatchString("xfoo/bar") {
		t.Fatal("expected the pattern to be anchored")
	}
	if p.Subscribers != nil {
		t.Fatal("expected subscribers field to remain unset")
	}
}

func TestLoadAllowanceRejectsBothVariants(t *testing.T) {
	t.Setenv("ZENOH_BRIDGE_ROS2_ALLOW_PUBLISHERS", "foo")
	t.Setenv("ZENOH_BRIDGE_ROS2_DENY_SUBSCRIBERS", "bar")

	if _, err := loadAllowance(); err == nil {
		t.Fatal("expected an error when both allow and deny are configured")
	}
}

func TestLoadAllowanceAbsentIsPermissive(t *testing.T) {
	p, err := loadAllowance()
	if err != nil {
		t.Fatalf("loadAllowance: %v", err)
	}
	if p != nil {
		t.Fatalf("expected no policy when no allowance variables are set, got %+v", p)
	}
}
