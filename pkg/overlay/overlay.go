// Package overlay declares the surface the bridge core consumes from the
// key-expression pub/sub fabric: publishers, publication caches,
// subscribers, fetching subscribers, queryables and liveliness tokens.
// Session setup, wire transport and query-reply encoding are explicitly
// out of scope (see SPEC_FULL.md §1); this package specifies only the
// contract, plus an in-memory fake for tests.
package overlay

import (
	"context"
	"time"
)

// Sample is one received message on a subscriber or queryable reply.
type Sample struct {
	KeyExpr string
	Payload []byte
}

// Query is one incoming request on a queryable (the admin-space queryable).
type Query struct {
	KeyExpr  string
	Selector string
	Payload  []byte
}

// Replier lets a queryable handler answer a single Query, possibly more
// than once before Finish.
type Replier interface {
	Reply(keyExpr string, payload []byte) error
	Finish()
}

// CongestionControl selects what a Publisher does when the fabric applies
// backpressure: Block waits for room, Drop discards the sample.
type CongestionControl int

const (
	CongestionDrop CongestionControl = iota
	CongestionBlock
)

// Locality restricts a declaration to traffic originating from a
// particular kind of session relative to the declaring one.
// LocalityRemote is the loop-avoidance filter: a SubscriberRoute declares
// its subscriber LocalityRemote so it never receives the sample its own
// PublisherRoute just relayed out, and a publication cache declares its
// queryable LocalityRemote so it never answers a fetching subscriber in
// the same process, which would otherwise feed a sample right back into
// the bridge that cached it.
type Locality int

const (
	LocalityAny Locality = iota
	LocalityRemote
)

// Publisher is a declared write side of a key expression.
type Publisher interface {
	Put(ctx context.Context, payload []byte) error
	Delete(ctx context.Context) error
}

// Subscriber is a declared read side of a key expression, delivering
// samples to a callback on an implementation-owned goroutine until Close.
type Subscriber interface {
	Close(ctx context.Context) error
}

// FetchingSubscriber is a Subscriber that additionally issues a get() over
// the matching publication caches before, or interleaved with, live
// delivery, so a late-joining reader can recover retained history.
type FetchingSubscriber interface {
	Subscriber
}

// Queryable answers Query values arriving on a declared key expression;
// used to expose the admin space over the fabric (see internal/admin).
type Queryable interface {
	Close(ctx context.Context) error
}

// LivelinessToken announces presence under a key expression for as long as
// it is held; dropping it (Undeclare) signals departure to subscribers of
// the matching liveliness key expression.
type LivelinessToken interface {
	Undeclare(ctx context.Context) error
}

// Session is the full overlay collaborator surface a route or the admin
// plane needs.
type Session interface {
	DeclarePublisher(ctx context.Context, keyExpr string, congestion CongestionControl) (Publisher, error)

	// DeclarePublicationCache additionally retains the configured history
	// depth of prior puts so late subscribers can recover them via Get.
	// queryableOrigin restricts who its internal queryable answers:
	// LocalityRemote means it never answers a fetching subscriber in the
	// same process (spec §4.6: answer only remote historical queries).
	DeclarePublicationCache(ctx context.Context, keyExpr string, historyDepth int, congestion CongestionControl, queryableOrigin Locality) (Publisher, error)

	// DeclareSubscriber's allowedOrigin restricts which publications it
	// accepts: LocalityRemote means it never receives a sample put by a
	// publisher declared on the same session (spec §4.6 loop avoidance).
	DeclareSubscriber(ctx context.Context, keyExpr string, allowedOrigin Locality, onSample func(Sample)) (Subscriber, error)

	// DeclareFetchingSubscriber additionally performs a Get against
	// fetchSelector (typically a publication-cache selector) with the
	// given timeout on declaration, merging historical replies with live
	// samples delivered on keyExpr. allowedOrigin has the same meaning as
	// on DeclareSubscriber.
	DeclareFetchingSubscriber(ctx context.Context, keyExpr, fetchSelector string, timeout time.Duration, allowedOrigin Locality, onSample func(Sample)) (FetchingSubscriber, error)

	DeclareQueryable(ctx context.Context, keyExpr string, onQuery func(Query, Replier)) (Queryable, error)

	DeclareLivelinessToken(ctx context.Context, keyExpr string) (LivelinessToken, error)

	// Get issues a one-shot query and blocks until timeout elapses or the
	// queryable(s) matching keyExpr finish replying.
	Get(ctx context.Context, keyExpr string, onReply func(Sample)) error
}
