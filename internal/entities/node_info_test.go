package entities

import (
	"testing"

	"github.com/ZettaScaleLabs/zplugin-ros2/internal/gid"
)

func g(b byte) gid.Gid {
	var x gid.Gid
	x[0] = b
	return x
}

func TestPublisherDiscoveryFiresOnlyOnCompletion(t *testing.T) {
	n := New(g(1), "/n")
	ev := n.UpdateWithWriter(Endpoint{Key: g(2), TopicName: "rt/foo", TypeName: "pkg::dds_::Foo_"})
	if ev == nil || ev.Kind != DiscoveredTopicPub {
		t.Fatalf("expected DiscoveredTopicPub, got %+v", ev)
	}
	if ev.Publisher.Name != "foo" || ev.Publisher.Type != "pkg/Foo" || ev.Publisher.WriterGid != g(2) {
		t.Fatalf("unexpected publisher payload: %+v", ev.Publisher)
	}
}

func TestServiceServerRequiresBothEndpoints(t *testing.T) {
	n := New(g(1), "/n")
	if ev := n.UpdateWithReader(Endpoint{Key: g(2), TopicName: "rq/svcRequest", TypeName: "pkg::dds_::Svc_Request_"}); ev != nil {
		t.Fatalf("expected no event with only request reader present, got %+v", ev)
	}
	if srv := n.ServiceServers["svc"]; srv.IsComplete() {
		t.Fatal("service server should not be complete yet")
	}
	ev := n.UpdateWithWriter(Endpoint{Key: g(3), TopicName: "rr/svcReply", TypeName: "pkg::dds_::Svc_Response_"})
	if ev == nil || ev.Kind != DiscoveredServiceSrv {
		t.Fatalf("expected DiscoveredServiceSrv once both endpoints present, got %+v", ev)
	}
}

func TestActionServerCompletesOnEightGids(t *testing.T) {
	n := New(g(1), "/n")
	add := func(readerTopic, writerTopic, typ string, readerKey, writerKey gid.Gid) {
		if readerTopic != "" {
			n.UpdateWithReader(Endpoint{Key: readerKey, TopicName: readerTopic, TypeName: typ})
		}
		if writerTopic != "" {
			n.UpdateWithWriter(Endpoint{Key: writerKey, TopicName: writerTopic, TypeName: typ})
		}
	}

	add("rq/turtle/_action/send_goalRequest", "", "pkg::dds_::Turtle_SendGoal_Request_", g(2), gid.NotDiscovered)
	add("", "rr/turtle/_action/send_goalReply", "pkg::dds_::Turtle_SendGoal_Response_", gid.NotDiscovered, g(3))
	add("rq/turtle/_action/cancel_goalRequest", "", "whatever", g(4), gid.NotDiscovered)
	lastEvent := n.UpdateWithWriter(Endpoint{Key: g(5), TopicName: "rr/turtle/_action/cancel_goalReply", TypeName: "whatever"})
	if lastEvent != nil {
		t.Fatalf("expected no completion yet, got %+v", lastEvent)
	}
	n.UpdateWithReader(Endpoint{Key: g(6), TopicName: "rq/turtle/_action/get_resultRequest", TypeName: "pkg::dds_::Turtle_GetResult_Request_"})
	sixthGid := n.UpdateWithWriter(Endpoint{Key: g(7), TopicName: "rr/turtle/_action/get_resultReply", TypeName: "pkg::dds_::Turtle_GetResult_Response_"})
	if sixthGid != nil {
		t.Fatalf("expected no completion until status/feedback writers also resolve, got %+v", sixthGid)
	}
	n.UpdateWithWriter(Endpoint{Key: g(8), TopicName: "rt/turtle/_action/status", TypeName: "whatever"})
	final := n.UpdateWithWriter(Endpoint{Key: g(9), TopicName: "rt/turtle/_action/feedback", TypeName: "pkg::dds_::Turtle_FeedbackMessage_"})
	if final == nil || final.Kind != DiscoveredActionSrv {
		t.Fatalf("expected DiscoveredActionSrv on eighth Gid, got %+v", final)
	}
	if final.ActionServer.Type != "pkg/Turtle" {
		t.Fatalf("expected type learned from send_goal/get_result, got %q", final.ActionServer.Type)
	}
}

func TestCancelAndStatusNeverOverwriteTypeWithEmpty(t *testing.T) {
	n := New(g(1), "/n")
	n.UpdateWithReader(Endpoint{Key: g(2), TopicName: "rq/turtle/_action/send_goalRequest", TypeName: "pkg::dds_::Turtle_SendGoal_Request_"})
	if got := n.ActionServers["turtle"].Type; got != "pkg/Turtle" {
		t.Fatalf("expected type set from send_goal, got %q", got)
	}
	n.UpdateWithReader(Endpoint{Key: g(4), TopicName: "rq/turtle/_action/cancel_goalRequest", TypeName: ""})
	if got := n.ActionServers["turtle"].Type; got != "pkg/Turtle" {
		t.Fatalf("cancel-goal must not blank out the recorded type, got %q", got)
	}
}

func TestRemoveReaderEmitsUndiscoveredOnlyWhenWasComplete(t *testing.T) {
	n := New(g(1), "/n")
	n.UpdateWithReader(Endpoint{Key: g(2), TopicName: "rt/foo", TypeName: "pkg::dds_::Foo_"})
	ev := n.RemoveReader(g(2))
	if ev == nil || ev.Kind != UndiscoveredTopicSub {
		t.Fatalf("expected UndiscoveredTopicSub, got %+v", ev)
	}
	if ev.Subscriber.Name != "foo" {
		t.Fatalf("expected cloned subscriber in event, got %+v", ev.Subscriber)
	}
	if _, present := n.Subscribers["foo"]; present {
		t.Fatal("subscriber should have been removed from the map")
	}
}

func TestRemoveAllEntitiesEmitsForEveryComplete(t *testing.T) {
	n := New(g(1), "/n")
	n.UpdateWithWriter(Endpoint{Key: g(2), TopicName: "rt/foo", TypeName: "pkg::dds_::Foo_"})
	n.UpdateWithReader(Endpoint{Key: g(3), TopicName: "rt/bar", TypeName: "pkg::dds_::Bar_"})
	events := n.RemoveAllEntities()
	if len(events) != 2 {
		t.Fatalf("expected 2 undiscovery events, got %d: %+v", len(events), events)
	}
	if len(n.Publishers) != 0 || len(n.Subscribers) != 0 {
		t.Fatal("all interfaces should be cleared")
	}
}
