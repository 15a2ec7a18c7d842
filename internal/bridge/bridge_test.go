package bridge

import (
	"context"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/ZettaScaleLabs/zplugin-ros2/internal/config"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/entities"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/gid"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/topicname"
	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/native"
	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/overlay"
)

func testGid(seed byte) gid.Gid {
	h := sha256.Sum256([]byte{seed})
	var g gid.Gid
	copy(g[:], h[:16])
	return g
}

func waitForCreated(t *testing.T, nf *native.Fake, n int) []native.FakeEndpoint {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if created := nf.Created(); len(created) >= n {
			return created
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d created endpoints, got %d", n, len(nf.Created()))
	return nil
}

func TestBridgeWiresDiscoveryIntoRouteCreation(t *testing.T) {
	nf := native.NewFake()
	of := overlay.NewFake()

	cfg := &config.Config{NodeName: "zenoh-bridge-ros2", QueriesTimeout: time.Second, ReliableRoutesBlocking: true}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	br, err := NewWithConfig(ctx, cfg, Collaborators{Stream: nf, Poller: nf, Native: nf, Overlay: of})
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	br.Run(ctx)
	defer br.Shutdown(context.Background())

	pgid := testGid(1)
	wgid := testGid(2)

	nf.Push(native.DiscoveryEvent{Kind: native.DiscoveredParticipant, ParticipantGid: pgid})
	nf.Push(native.DiscoveryEvent{Kind: native.DiscoveredPublication, Endpoint: entities.Endpoint{
		Key: wgid, ParticipantKey: pgid, TopicName: "rt/foo", TypeName: "pkg::dds_::Foo_", Keyless: false,
	}})
	nf.SetManifests([]native.Manifest{{
		ParticipantGid: pgid,
		Nodes: map[string]native.NodeEntitiesInfo{
			"/my_node": {Namespace: "/", NodeName: "my_node", WriterGids: []gid.Gid{wgid}},
		},
	}})

	created := waitForCreated(t, nf, 1)
	if created[0].Topic != "rt/foo" {
		t.Fatalf("expected a native reader created for rt/foo, got %+v", created)
	}

	br.Routes.UndiscoveredPublisher(context.Background(), "/my_node", keyExprFor("", "foo", topicname.TopicPub))
}

func TestKeyExprForNamespaceAndSubStreamSuffix(t *testing.T) {
	if got := keyExprFor("", "foo", topicname.TopicPub); got != "foo" {
		t.Fatalf("plain topic ke: got %q", got)
	}
	if got := keyExprFor("/ns", "foo", topicname.TopicPub); got != "/ns/foo" {
		t.Fatalf("namespaced plain topic ke: got %q", got)
	}
	if got := keyExprFor("", "svc", topicname.ServiceReq); got != "svc/ServiceReq" {
		t.Fatalf("service sub-stream ke: got %q", got)
	}
}
