// Package bridge is the composition root: it wires the Entity Registry,
// Discovery Coordinator, Route Manager and Admin Plane together behind the
// native and overlay collaborator contracts, and exposes the resulting
// admin HTTP surface and lifecycle to cmd/zenoh-bridge-ros2.
package bridge

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ZettaScaleLabs/zplugin-ros2/internal/admin"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/config"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/discovery"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/entities"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/gid"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/registry"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/routes"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/telemetry"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/topicname"
	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/native"
	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/overlay"
)

// Version is reported on the admin /version endpoint.
const Version = "0.1.0"

var tracer = otel.Tracer("zplugin-ros2/bridge")

// defaultCachePrefix namespaces every publication-cache's queryable so a
// fetching subscriber's selector ("<cache-prefix>/*/<ke>") only ever
// matches publication caches, never the admin space or service queryables.
const defaultCachePrefix = "@ros2_cache"

// livelinessPrefix namespaces the liveliness tokens route creation
// declares, keeping them out of the data key-expression space entirely.
const livelinessPrefix = "@ros2_lv"

// adminQueryablePrefix namespaces the overlay queryable exposing the admin
// space to peer bridges, mirroring the local HTTP admin surface.
const adminQueryablePrefix = "@ros2_admin"

// Collaborators holds everything the native middleware bindings and the
// overlay fabric session must supply. Production wiring of the actual
// bindings is out of scope here (SPEC_FULL.md §1); the bridge only ever
// consumes these through their contract interfaces.
type Collaborators struct {
	Stream  native.DiscoveryStream
	Poller  native.ManifestPoller
	Native  native.EndpointFactory
	Overlay overlay.Session
}

// Bridge is the fully wired, running composition of every core component.
type Bridge struct {
	Config    *config.Config
	Registry  *registry.Registry
	Routes    *routes.Manager
	Discovery *discovery.Coordinator
	AdminHTTP http.Handler

	adminQueryable overlay.Queryable

	events chan entities.DiscoveryEvent

	shutdownTelemetry func(context.Context) error

	runCancel context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// New loads configuration from the environment and builds a Bridge.
func New(ctx context.Context, collab Collaborators) (*Bridge, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(ctx, cfg, collab)
}

// NewWithConfig builds a Bridge from an already-loaded Config, so tests and
// alternative entry points can supply one directly instead of reading the
// environment.
func NewWithConfig(ctx context.Context, cfg *config.Config, collab Collaborators) (*Bridge, error) {
	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	entitiesSpace := admin.NewSpace()
	routesSpace := admin.NewSpace()

	reg := registry.New(entitiesSpace)
	events := make(chan entities.DiscoveryEvent, 256)

	coord := discovery.New(discovery.Config{
		Stream:   collab.Stream,
		Poller:   collab.Poller,
		Registry: reg,
		Events:   events,
	})

	mgr := routes.New(routes.Config{
		Policy:                 cfg.Allowance,
		AdminSpace:             routesSpace,
		Native:                 collab.Native,
		Overlay:                collab.Overlay,
		CachePrefix:            defaultCachePrefix,
		QueriesTimeout:         cfg.QueriesTimeout,
		ReliableRoutesBlocking: cfg.ReliableRoutesBlocking,
	})

	adminRouter := admin.Router{
		Entities: entitiesSpace,
		Routes:   routesSpace,
		Version:  Version,
	}
	adminHTTP := admin.NewHTTPHandler(adminRouter)

	adminQueryable, err := admin.DeclareOverlayQueryable(ctx, collab.Overlay, adminQueryablePrefix, adminRouter)
	if err != nil {
		return nil, fmt.Errorf("declare admin overlay queryable: %w", err)
	}

	return &Bridge{
		Config:            cfg,
		Registry:          reg,
		Routes:            mgr,
		Discovery:         coord,
		AdminHTTP:         adminHTTP,
		adminQueryable:    adminQueryable,
		events:            events,
		shutdownTelemetry: shutdownTelemetry,
	}, nil
}

// Run starts the Discovery Coordinator and the dispatcher that turns its
// typed events into route creation/teardown. It returns immediately; both
// loops run in their own goroutines until ctx is cancelled or Shutdown is
// called.
func (b *Bridge) Run(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	b.runCancel = cancel

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		b.Discovery.Run(runCtx)
	}()
	go func() {
		defer b.wg.Done()
		b.dispatchLoop(runCtx)
	}()
}

// Shutdown stops the coordinator and dispatcher, waits for both to exit,
// and flushes telemetry.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.stopOnce.Do(func() {
		b.Discovery.Stop()
		if b.runCancel != nil {
			b.runCancel()
		}
		b.wg.Wait()
		if b.adminQueryable != nil {
			if err := b.adminQueryable.Close(ctx); err != nil {
				log.Warn().Err(err).Msg("admin overlay queryable teardown failed")
			}
		}
	})
	return b.shutdownTelemetry(ctx)
}

// dispatchLoop drains Discovery Coordinator events and feeds each one into
// the Route Manager, translating the entity-level completion event into the
// topic/type/QoS triple the manager needs via a registry lookup on the
// Gid the event carries.
func (b *Bridge) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-b.events:
			if !ok {
				return
			}
			b.applyEvent(ctx, ev)
		}
	}
}

func (b *Bridge) applyEvent(ctx context.Context, ev entities.DiscoveryEvent) {
	ctx, span := tracer.Start(ctx, "bridge.applyEvent",
		trace.WithAttributes(
			attribute.String("event.kind", ev.Kind.String()),
			attribute.String("event.node", ev.NodeFullName),
		),
	)
	defer span.End()

	ns := b.Config.Namespace
	switch ev.Kind {
	case entities.DiscoveredTopicPub:
		b.createPublisherSide(ctx, ev.NodeFullName, routes.KindPublisher, ev.Publisher.Name, topicname.TopicPub, ev.Publisher.WriterGid)
	case entities.UndiscoveredTopicPub:
		b.Routes.UndiscoveredPublisher(ctx, ev.NodeFullName, keyExprFor(ns, ev.Publisher.Name, topicname.TopicPub))

	case entities.DiscoveredTopicSub:
		b.createSubscriberSide(ctx, ev.NodeFullName, routes.KindSubscriber, ev.Subscriber.Name, topicname.TopicSub, ev.Subscriber.ReaderGid)
	case entities.UndiscoveredTopicSub:
		b.Routes.UndiscoveredSubscriber(ctx, ev.NodeFullName, keyExprFor(ns, ev.Subscriber.Name, topicname.TopicSub))

	case entities.DiscoveredServiceSrv:
		// A local request reader means remote requests must be injected
		// into the native bus: overlay subscribe -> native writer.
		b.createSubscriberSide(ctx, ev.NodeFullName, routes.KindServiceServer, ev.ServiceServer.Name, topicname.ServiceReq, ev.ServiceServer.Entities.ReqReader)
		// A local reply writer means the local reply must be relayed out:
		// native reader -> overlay publish.
		b.createPublisherSide(ctx, ev.NodeFullName, routes.KindServiceServer, ev.ServiceServer.Name, topicname.ServiceRep, ev.ServiceServer.Entities.RepWriter)
	case entities.UndiscoveredServiceSrv:
		b.Routes.UndiscoveredSubscriber(ctx, ev.NodeFullName, keyExprFor(ns, ev.ServiceServer.Name, topicname.ServiceReq))
		b.Routes.UndiscoveredPublisher(ctx, ev.NodeFullName, keyExprFor(ns, ev.ServiceServer.Name, topicname.ServiceRep))

	case entities.DiscoveredServiceCli:
		b.createSubscriberSide(ctx, ev.NodeFullName, routes.KindServiceClient, ev.ServiceClient.Name, topicname.ServiceRep, ev.ServiceClient.Entities.RepReader)
		b.createPublisherSide(ctx, ev.NodeFullName, routes.KindServiceClient, ev.ServiceClient.Name, topicname.ServiceReq, ev.ServiceClient.Entities.ReqWriter)
	case entities.UndiscoveredServiceCli:
		b.Routes.UndiscoveredSubscriber(ctx, ev.NodeFullName, keyExprFor(ns, ev.ServiceClient.Name, topicname.ServiceRep))
		b.Routes.UndiscoveredPublisher(ctx, ev.NodeFullName, keyExprFor(ns, ev.ServiceClient.Name, topicname.ServiceReq))

	case entities.DiscoveredActionSrv:
		e := ev.ActionServer.Entities
		name := ev.ActionServer.Name
		b.createSubscriberSide(ctx, ev.NodeFullName, routes.KindActionServer, name, topicname.ActionSendReq, e.SendGoal.ReqReader)
		b.createPublisherSide(ctx, ev.NodeFullName, routes.KindActionServer, name, topicname.ActionSendRep, e.SendGoal.RepWriter)
		b.createSubscriberSide(ctx, ev.NodeFullName, routes.KindActionServer, name, topicname.ActionCancelReq, e.CancelGoal.ReqReader)
		b.createPublisherSide(ctx, ev.NodeFullName, routes.KindActionServer, name, topicname.ActionCancelRep, e.CancelGoal.RepWriter)
		b.createSubscriberSide(ctx, ev.NodeFullName, routes.KindActionServer, name, topicname.ActionResultReq, e.GetResult.ReqReader)
		b.createPublisherSide(ctx, ev.NodeFullName, routes.KindActionServer, name, topicname.ActionResultRep, e.GetResult.RepWriter)
		// Status and feedback are one-way streams the server publishes;
		// ActionServerEntities.IsComplete gates on them too, so both Gids
		// are guaranteed discovered by the time this event fires.
		b.createPublisherSide(ctx, ev.NodeFullName, routes.KindActionServer, name, topicname.ActionStatus, e.StatusWriter)
		b.createPublisherSide(ctx, ev.NodeFullName, routes.KindActionServer, name, topicname.ActionFeedback, e.FeedbackWriter)
	case entities.UndiscoveredActionSrv:
		name := ev.ActionServer.Name
		for _, tag := range []topicname.Tag{topicname.ActionSendReq, topicname.ActionCancelReq, topicname.ActionResultReq} {
			b.Routes.UndiscoveredSubscriber(ctx, ev.NodeFullName, keyExprFor(ns, name, tag))
		}
		for _, tag := range []topicname.Tag{topicname.ActionSendRep, topicname.ActionCancelRep, topicname.ActionResultRep, topicname.ActionStatus, topicname.ActionFeedback} {
			b.Routes.UndiscoveredPublisher(ctx, ev.NodeFullName, keyExprFor(ns, name, tag))
		}

	case entities.DiscoveredActionCli:
		e := ev.ActionClient.Entities
		name := ev.ActionClient.Name
		b.createSubscriberSide(ctx, ev.NodeFullName, routes.KindActionClient, name, topicname.ActionSendRep, e.SendGoal.RepReader)
		b.createPublisherSide(ctx, ev.NodeFullName, routes.KindActionClient, name, topicname.ActionSendReq, e.SendGoal.ReqWriter)
		b.createSubscriberSide(ctx, ev.NodeFullName, routes.KindActionClient, name, topicname.ActionCancelRep, e.CancelGoal.RepReader)
		b.createPublisherSide(ctx, ev.NodeFullName, routes.KindActionClient, name, topicname.ActionCancelReq, e.CancelGoal.ReqWriter)
		b.createSubscriberSide(ctx, ev.NodeFullName, routes.KindActionClient, name, topicname.ActionResultRep, e.GetResult.RepReader)
		b.createPublisherSide(ctx, ev.NodeFullName, routes.KindActionClient, name, topicname.ActionResultReq, e.GetResult.ReqWriter)
		// Status and feedback are one-way streams the client subscribes
		// to; ActionClientEntities.IsComplete gates on them too, so both
		// Gids are guaranteed discovered by the time this event fires.
		b.createSubscriberSide(ctx, ev.NodeFullName, routes.KindActionClient, name, topicname.ActionStatus, e.StatusReader)
		b.createSubscriberSide(ctx, ev.NodeFullName, routes.KindActionClient, name, topicname.ActionFeedback, e.FeedbackReader)
	case entities.UndiscoveredActionCli:
		name := ev.ActionClient.Name
		for _, tag := range []topicname.Tag{topicname.ActionSendRep, topicname.ActionCancelRep, topicname.ActionResultRep, topicname.ActionStatus, topicname.ActionFeedback} {
			b.Routes.UndiscoveredSubscriber(ctx, ev.NodeFullName, keyExprFor(ns, name, tag))
		}
		for _, tag := range []topicname.Tag{topicname.ActionSendReq, topicname.ActionCancelReq, topicname.ActionResultReq} {
			b.Routes.UndiscoveredPublisher(ctx, ev.NodeFullName, keyExprFor(ns, name, tag))
		}

	default:
		log.Warn().Str("kind", ev.Kind.String()).Msg("unhandled discovery event kind")
	}
}

// createPublisherSide resolves the writer endpoint backing one sub-stream
// (a plain publisher's writer, or a request/reply-origin writer on a
// composite interface) and asks the Route Manager for a PublisherRoute
// (native reader -> overlay publish side).
func (b *Bridge) createPublisherSide(ctx context.Context, node string, kind routes.InterfaceKind, name string, tag topicname.Tag, writerGid gid.Gid) {
	ep, ok := b.Registry.Writer(writerGid)
	if !ok {
		log.Warn().Str("iface", name).Str("kind", tag.String()).Msg("publisher-side writer endpoint not found in registry")
		return
	}
	ns := b.Config.Namespace
	ke := keyExprFor(ns, name, tag)
	if err := b.Routes.DiscoveredPublisher(ctx, node, kind, name, ke, ep.TopicName, ep.TypeName, ep.Keyless, ep.Qos); err != nil {
		log.Warn().Err(err).Str("ke", ke).Msg("failed to create publisher route")
	}
}

// createSubscriberSide is the reader-endpoint mirror of createPublisherSide,
// asking the Route Manager for a SubscriberRoute (overlay subscribe/fetch ->
// native writer).
func (b *Bridge) createSubscriberSide(ctx context.Context, node string, kind routes.InterfaceKind, name string, tag topicname.Tag, readerGid gid.Gid) {
	ep, ok := b.Registry.Reader(readerGid)
	if !ok {
		log.Warn().Str("iface", name).Str("kind", tag.String()).Msg("subscriber-side reader endpoint not found in registry")
		return
	}
	ns := b.Config.Namespace
	ke := keyExprFor(ns, name, tag)
	if err := b.Routes.DiscoveredSubscriber(ctx, node, kind, name, ke, ep.TopicName, ep.TypeName, ep.Keyless, ep.Qos, livelinessKeyExprFor(ke)); err != nil {
		log.Warn().Err(err).Str("ke", ke).Msg("failed to create subscriber route")
	}
}

func keyExprFor(namespace, name string, tag topicname.Tag) string {
	suffix := tag.String()
	ke := name
	switch tag {
	case topicname.TopicPub, topicname.TopicSub:
		// Plain pub/sub interfaces use the bare interface name.
	default:
		ke = name + "/" + suffix
	}
	if namespace != "" {
		ke = namespace + "/" + ke
	}
	return ke
}

func livelinessKeyExprFor(ke string) string {
	return livelinessPrefix + "/" + ke
}
