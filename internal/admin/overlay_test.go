package admin

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/overlay"
)

func TestDeclareOverlayQueryableAnswersEntitiesAndRoutes(t *testing.T) {
	entitiesSpace := NewSpace()
	entitiesSpace.Put("dds/participant1", ref(map[string]string{"name": "p1"}))
	routesSpace := NewSpace()
	routesSpace.Put("route/foo", ref(map[string]string{"ke": "rt/foo"}))

	f := overlay.NewFake()
	ctx := context.Background()

	q, err := DeclareOverlayQueryable(ctx, f, "@ros2_admin", Router{Entities: entitiesSpace, Routes: routesSpace, Version: "test"})
	if err != nil {
		t.Fatalf("DeclareOverlayQueryable: %v", err)
	}
	defer q.Close(ctx)

	var replies []overlay.Sample
	if err := f.Get(ctx, "@ros2_admin/dds/participant1", func(s overlay.Sample) { replies = append(replies, s) }); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(replies) != 1 || replies[0].KeyExpr != "@ros2_admin/dds/participant1" {
		t.Fatalf("expected one reply under the admin dds key, got %+v", replies)
	}
	var got map[string]string
	if err := json.Unmarshal(replies[0].Payload, &got); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if got["name"] != "p1" {
		t.Fatalf("expected the resolved entity value, got %+v", got)
	}

	replies = nil
	if err := f.Get(ctx, "@ros2_admin/route/foo", func(s overlay.Sample) { replies = append(replies, s) }); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(replies) != 1 || replies[0].KeyExpr != "@ros2_admin/route/foo" {
		t.Fatalf("expected one reply under the admin route key, got %+v", replies)
	}
}

func TestDeclareOverlayQueryableIgnoresUnrelatedSelector(t *testing.T) {
	f := overlay.NewFake()
	ctx := context.Background()

	q, err := DeclareOverlayQueryable(ctx, f, "@ros2_admin", Router{Entities: NewSpace(), Routes: NewSpace(), Version: "test"})
	if err != nil {
		t.Fatalf("DeclareOverlayQueryable: %v", err)
	}
	defer q.Close(ctx)

	var replies []overlay.Sample
	if err := f.Get(ctx, "rt/unrelated", func(s overlay.Sample) { replies = append(replies, s) }); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(replies) != 0 {
		t.Fatalf("expected no reply for a selector outside the admin prefix, got %+v", replies)
	}
}
