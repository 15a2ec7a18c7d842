package routes

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/ZettaScaleLabs/zplugin-ros2/internal/admin"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/qos"
	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/native"
	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/overlay"
)

func newTestManager(policy *Policy) (*Manager, *native.Fake, *overlay.Fake) {
	nf := native.NewFake()
	of := overlay.NewFake()
	m := New(Config{
		Policy:                 policy,
		AdminSpace:             admin.NewSpace(),
		Native:                 nf,
		Overlay:                of,
		CachePrefix:            "@ros2_cache",
		QueriesTimeout:         time.Second,
		ReliableRoutesBlocking: true,
	})
	return m, nf, of
}

func TestRouteReferenceCounting(t *testing.T) {
	m, _, _ := newTestManager(nil)
	ctx := context.Background()

	if err := m.DiscoveredPublisher(ctx, "/a", KindPublisher, "foo", "foo", "rt/foo", "pkg::dds_::Foo_", false, qos.Qos{}); err != nil {
		t.Fatalf("DiscoveredPublisher(/a): %v", err)
	}
	if err := m.DiscoveredPublisher(ctx, "/b", KindPublisher, "foo", "foo", "rt/foo", "pkg::dds_::Foo_", false, qos.Qos{}); err != nil {
		t.Fatalf("DiscoveredPublisher(/b): %v", err)
	}

	m.mu.Lock()
	entry := m.pubRoutes["foo"]
	m.mu.Unlock()
	if entry == nil || len(entry.localNodes) != 2 {
		t.Fatalf("expected a single route with 2 local nodes, got %+v", entry)
	}

	m.UndiscoveredPublisher(ctx, "/a", "foo")
	m.mu.Lock()
	entry = m.pubRoutes["foo"]
	m.mu.Unlock()
	if entry == nil || len(entry.localNodes) != 1 {
		t.Fatalf("expected route to persist with 1 local node, got %+v", entry)
	}

	m.UndiscoveredPublisher(ctx, "/b", "foo")
	m.mu.Lock()
	_, stillThere := m.pubRoutes["foo"]
	m.mu.Unlock()
	if stillThere {
		t.Fatal("expected route to be dropped once both local nodes left")
	}
}

func TestTransientLocalHistoryDepth(t *testing.T) {
	m, nf, _ := newTestManager(nil)
	ctx := context.Background()

	keylessQos := qos.Qos{
		Durability: &qos.Durability{Kind: qos.DurabilityTransientLocal},
		History:    &qos.History{Kind: qos.HistoryKeepLast, Depth: 5},
	}
	if err := m.DiscoveredPublisher(ctx, "/a", KindPublisher, "foo", "foo", "rt/foo", "pkg::dds_::Foo_", true, keylessQos); err != nil {
		t.Fatalf("DiscoveredPublisher: %v", err)
	}
	created := nf.Created()
	if len(created) != 1 {
		t.Fatalf("expected one native reader created, got %d", len(created))
	}

	m2, _, _ := newTestManager(nil)
	keyedQos := qos.Qos{
		Durability:        &qos.Durability{Kind: qos.DurabilityTransientLocal},
		History:           &qos.History{Kind: qos.HistoryKeepLast, Depth: 5},
		DurabilityService: &qos.DurabilityService{MaxInstances: 10},
	}
	if err := m2.DiscoveredPublisher(ctx, "/a", KindPublisher, "bar", "bar", "rt/bar", "pkg::dds_::Bar_", false, keyedQos); err != nil {
		t.Fatalf("DiscoveredPublisher (keyed): %v", err)
	}

	if depth := publicationCacheDepth(keylessQos, true); depth != 5 {
		t.Fatalf("expected keyless depth 5, got %d", depth)
	}
	if depth := publicationCacheDepth(keyedQos, false); depth != 50 {
		t.Fatalf("expected keyed depth 50, got %d", depth)
	}
}

func TestAllowPolicyGatesRouteCreation(t *testing.T) {
	policy := &Policy{Allow: true, Publishers: regexp.MustCompile("^foo/.*$")}
	m, nf, _ := newTestManager(policy)
	ctx := context.Background()

	if err := m.DiscoveredPublisher(ctx, "/a", KindPublisher, "foo/bar", "foo/bar", "rt/foo/bar", "pkg::dds_::Foo_", false, qos.Qos{}); err != nil {
		t.Fatalf("DiscoveredPublisher(foo/bar): %v", err)
	}
	if err := m.DiscoveredPublisher(ctx, "/a", KindPublisher, "bar/baz", "bar/baz", "rt/bar/baz", "pkg::dds_::Baz_", false, qos.Qos{}); err != nil {
		t.Fatalf("DiscoveredPublisher(bar/baz): %v", err)
	}

	created := nf.Created()
	if len(created) != 1 || created[0].Topic != "rt/foo/bar" {
		t.Fatalf("expected only the allowed interface to create a route, got %+v", created)
	}

	m.mu.Lock()
	_, hasBar := m.pubRoutes["bar/baz"]
	_, hasFoo := m.pubRoutes["foo/bar"]
	m.mu.Unlock()
	if hasBar {
		t.Fatal("denied interface must not have a route")
	}
	if !hasFoo {
		t.Fatal("allowed interface must have a route")
	}
}

func TestRouteDroppedIffBothRefcountsEmpty(t *testing.T) {
	m, _, _ := newTestManager(nil)
	ctx := context.Background()

	if err := m.DiscoveredSubscriber(ctx, "/a", KindSubscriber, "foo", "foo", "rt/foo", "pkg::dds_::Foo_", false, qos.Qos{}, "announce/foo"); err != nil {
		t.Fatalf("DiscoveredSubscriber: %v", err)
	}
	m.RemoteRouteAnnounced(false, "foo", "peer1")

	m.UndiscoveredSubscriber(ctx, "/a", "foo")
	m.mu.Lock()
	_, stillThere := m.subRoutes["foo"]
	m.mu.Unlock()
	if !stillThere {
		t.Fatal("route must persist while a remote route reference remains")
	}

	m.RemoteRouteWithdrawn(ctx, false, "foo", "peer1")
	m.mu.Lock()
	_, stillThere = m.subRoutes["foo"]
	m.mu.Unlock()
	if stillThere {
		t.Fatal("route must be dropped once both refcount sets are empty")
	}
}
