// Package native declares the small surface the bridge core consumes from
// the native middleware bindings. No production implementation lives
// here — creating participants, creating reader/writer endpoints, and
// serializing/forwarding samples are explicitly out of scope (see
// SPEC_FULL.md §1); this package specifies only the contract, plus an
// in-memory fake used by the bridge's own tests.
package native

import (
	"context"

	"github.com/ZettaScaleLabs/zplugin-ros2/internal/entities"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/gid"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/qos"
)

// DiscoveryEventKind classifies a raw native discovery event.
type DiscoveryEventKind int

const (
	DiscoveredParticipant DiscoveryEventKind = iota
	UndiscoveredParticipant
	DiscoveredPublication
	UndiscoveredPublication
	DiscoveredSubscription
	UndiscoveredSubscription
)

// DiscoveryEvent is one raw event off the native discovery stream.
type DiscoveryEvent struct {
	Kind DiscoveryEventKind

	ParticipantGid gid.Gid // valid for *Participant kinds
	Endpoint       entities.Endpoint // valid for *Publication/*Subscription kinds
	EndpointGid    gid.Gid           // valid for UndiscoveredPublication/UndiscoveredSubscription
}

// DiscoveryStream delivers raw participant/reader/writer join and leave
// events as they occur on the native side.
type DiscoveryStream interface {
	// Next blocks until the next event is available or ctx is done.
	Next(ctx context.Context) (DiscoveryEvent, error)
}

// ManifestPoller returns the current list of per-participant manifests
// each time it is invoked; the Discovery Coordinator calls it on a timer.
type ManifestPoller interface {
	PollManifests(ctx context.Context) ([]Manifest, error)
}

// Manifest mirrors registry.ParticipantManifest at the collaborator
// boundary, decoupling the native polling contract from the registry's
// internal representation.
type Manifest struct {
	ParticipantGid gid.Gid
	Nodes          map[string]NodeEntitiesInfo
}

// NodeEntitiesInfo is the manifest-side view of one node's claimed Gids.
type NodeEntitiesInfo struct {
	Namespace  string
	NodeName   string
	ReaderGids []gid.Gid
	WriterGids []gid.Gid
}

// ForwardFunc hands a sample's payload onward. For a reader it is invoked
// by the native side whenever a new native sample is received, so the
// PublisherRoute can republish it to the overlay; for a writer it is the
// value returned by CreateWriter, invoked by the SubscriberRoute whenever
// an overlay sample arrives so it can be pushed into native serialization.
// Implementations must never block more than a micro-task and must treat
// the buffer as borrowed for the call only.
type ForwardFunc func(payload []byte) error

// EndpointHandle is an opaque handle to a created native reader or writer,
// supporting deletion.
type EndpointHandle interface {
	Delete(ctx context.Context) error
}

// EndpointFactory creates native reader/writer endpoints on demand for
// route primitives.
type EndpointFactory interface {
	// CreateReader creates a native reader and invokes forward for every
	// native sample it receives, for as long as the returned handle is
	// not deleted.
	CreateReader(ctx context.Context, topic, typeName string, keyless bool, q qos.Qos, forward ForwardFunc) (EndpointHandle, error)

	// CreateWriter creates a native writer and returns a handle plus a
	// ForwardFunc the caller invokes to push a received overlay sample
	// into the writer's serialization path.
	CreateWriter(ctx context.Context, topic, typeName string, keyless bool, q qos.Qos) (EndpointHandle, ForwardFunc, error)
}
