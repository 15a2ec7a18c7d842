package overlay

import (
	"context"
	"testing"
)

func TestDeclareSubscriberLocalityRemoteAvoidsSelfLoop(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	var received []Sample
	sub, err := f.DeclareSubscriber(ctx, "rt/foo", LocalityRemote, func(s Sample) { received = append(received, s) })
	if err != nil {
		t.Fatalf("DeclareSubscriber: %v", err)
	}
	defer sub.Close(ctx)

	pub, err := f.DeclarePublisher(ctx, "rt/foo", CongestionDrop)
	if err != nil {
		t.Fatalf("DeclarePublisher: %v", err)
	}
	defer pub.Delete(ctx)

	if err := pub.Put(ctx, []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if len(received) != 0 {
		t.Fatalf("expected no delivery from a same-session LocalityRemote publish, got %+v", received)
	}

	peer := f.NewPeer()
	peerPub, err := peer.DeclarePublisher(ctx, "rt/foo", CongestionDrop)
	if err != nil {
		t.Fatalf("DeclarePublisher on peer: %v", err)
	}
	defer peerPub.Delete(ctx)

	if err := peerPub.Put(ctx, []byte("world")); err != nil {
		t.Fatalf("Put on peer: %v", err)
	}
	if len(received) != 1 || string(received[0].Payload) != "world" {
		t.Fatalf("expected one delivery from the remote peer's publish, got %+v", received)
	}
}

func TestDeclarePublicationCacheLocalityRemoteAnswersOnlyPeers(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	cache, err := f.DeclarePublicationCache(ctx, "rt/bar", 10, CongestionDrop, LocalityRemote)
	if err != nil {
		t.Fatalf("DeclarePublicationCache: %v", err)
	}
	defer cache.Delete(ctx)
	if err := cache.Put(ctx, []byte("retained")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var own []Sample
	if err := f.Get(ctx, "rt/bar", func(s Sample) { own = append(own, s) }); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(own) != 0 {
		t.Fatalf("expected no historical reply to a same-session fetch, got %+v", own)
	}

	peer := f.NewPeer()
	var remote []Sample
	if err := peer.Get(ctx, "rt/bar", func(s Sample) { remote = append(remote, s) }); err != nil {
		t.Fatalf("Get from peer: %v", err)
	}
	if len(remote) != 1 || string(remote[0].Payload) != "retained" {
		t.Fatalf("expected the peer to recover the retained sample, got %+v", remote)
	}
}
