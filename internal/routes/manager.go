// Package routes implements the Route Manager and Route Primitives: the
// tables of active publisher/subscriber routes, their allow/deny policy
// gate, and the two-set reference counting that decides when a route is
// torn down.
package routes

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/ZettaScaleLabs/zplugin-ros2/internal/admin"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/qos"
	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/native"
	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/overlay"
)

// InterfaceKind identifies which of the six interface families a route
// belongs to; it governs both the allow/deny policy field consulted and the
// admin key prefix used to index the route.
type InterfaceKind int

const (
	KindPublisher InterfaceKind = iota
	KindSubscriber
	KindServiceServer
	KindServiceClient
	KindActionServer
	KindActionClient
)

func (k InterfaceKind) adminPrefix() string {
	switch k {
	case KindPublisher:
		return "route/topic/pub"
	case KindSubscriber:
		return "route/topic/sub"
	case KindServiceServer:
		return "route/service/srv"
	case KindServiceClient:
		return "route/service/cli"
	case KindActionServer:
		return "route/action/srv"
	case KindActionClient:
		return "route/action/cli"
	default:
		return "route/unknown"
	}
}

// policyField selects the allow/deny regex that governs this interface
// kind. An interface whose local endpoint is a writer routes like a
// Publisher route (native reader -> overlay); one whose local endpoint is a
// reader, request readers included, routes like a Subscriber route
// (overlay -> native writer); the
// Manager's Discovered*/Undiscovered* entry points already select the right
// table, so Kind here only ever drives policy lookup and admin naming.
func (k InterfaceKind) policyField(p *Policy) *regexp.Regexp {
	switch k {
	case KindPublisher:
		return p.Publishers
	case KindSubscriber:
		return p.Subscribers
	case KindServiceServer:
		return p.ServiceServers
	case KindServiceClient:
		return p.ServiceClients
	case KindActionServer:
		return p.ActionServers
	case KindActionClient:
		return p.ActionClients
	default:
		return nil
	}
}

// Policy is the allow/deny interface-name gate (spec §6 `allowance`).
type Policy struct {
	Allow bool // true: allow-list semantics; false: deny-list semantics

	Publishers     *regexp.Regexp
	Subscribers    *regexp.Regexp
	ServiceServers *regexp.Regexp
	ServiceClients *regexp.Regexp
	ActionServers  *regexp.Regexp
	ActionClients  *regexp.Regexp
}

// Permits evaluates the policy for one interface name of the given kind.
// Allow variant permits iff the matching regex is present AND matches; deny
// variant forbids iff present AND matches, else permits. A nil Policy
// permits everything.
func (p *Policy) Permits(kind InterfaceKind, name string) bool {
	if p == nil {
		return true
	}
	re := kind.policyField(p)
	matches := re != nil && re.MatchString(name)
	if p.Allow {
		return matches
	}
	return !matches
}

// routeEntry is the shared refcounted shape for both route tables:
// local_nodes tracks nodes on this bridge using the route, remote_routes
// tracks peer bridges observed (via liveliness) to have created the
// matching route. A route is alive iff either set is non-empty.
type routeEntry struct {
	localNodes   map[string]struct{}
	remoteRoutes map[string]struct{}
	pub          *PublisherRoute
	sub          *SubscriberRoute
}

func (e *routeEntry) empty() bool {
	return len(e.localNodes) == 0 && len(e.remoteRoutes) == 0
}

// Manager owns every active route and the policy gate. All methods assume
// single-writer access from the bridge's event-dispatch goroutine; admin reads
// go through the Space supplied at construction and take their own lock.
type Manager struct {
	mu sync.Mutex

	policy  *Policy
	admin   *admin.Space
	native  native.EndpointFactory
	overlay overlay.Session

	cachePrefix            string
	queriesTimeout         time.Duration
	reliableRoutesBlocking bool
	retry                  backoff.BackOff

	pubRoutes map[string]*routeEntry // keyed by key expression
	subRoutes map[string]*routeEntry
}

// Config configures a Manager.
type Config struct {
	Policy                 *Policy
	AdminSpace             *admin.Space
	Native                 native.EndpointFactory
	Overlay                overlay.Session
	CachePrefix            string
	QueriesTimeout         time.Duration
	ReliableRoutesBlocking bool
}

// New constructs an empty Manager.
func New(cfg Config) *Manager {
	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = 2 * time.Second
	return &Manager{
		policy:                 cfg.Policy,
		admin:                  cfg.AdminSpace,
		native:                 cfg.Native,
		overlay:                cfg.Overlay,
		cachePrefix:            cfg.CachePrefix,
		queriesTimeout:         cfg.QueriesTimeout,
		reliableRoutesBlocking: cfg.ReliableRoutesBlocking,
		retry:                  retry,
		pubRoutes:              make(map[string]*routeEntry),
		subRoutes:              make(map[string]*routeEntry),
	}
}

func adminRouteKey(kind InterfaceKind, ke string) string {
	return fmt.Sprintf("%s/%s", kind.adminPrefix(), ke)
}

// DiscoveredPublisher handles a node beginning to publish an interface: it
// evaluates policy, joins an existing route or creates a new PublisherRoute
// (native reader -> overlay publish/cache) adapting the writer's QoS for
// the paired overlay reader side.
func (m *Manager) DiscoveredPublisher(ctx context.Context, node string, kind InterfaceKind, name, ke, topic, typeName string, keyless bool, writerQos qos.Qos) error {
	if !m.policy.Permits(kind, name) {
		log.Info().Str("iface", name).Msg("route not created: denied by policy")
		return nil
	}

	m.mu.Lock()
	if entry, ok := m.pubRoutes[ke]; ok {
		entry.localNodes[node] = struct{}{}
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	readerSideQos := qos.AdaptWriterForReader(writerQos)
	congestion := overlay.CongestionDrop
	if m.reliableRoutesBlocking && qos.IsReliable(writerQos) {
		congestion = overlay.CongestionBlock
	}
	route, err := m.createPublisherRouteWithRetry(ctx, topic, typeName, keyless, readerSideQos, ke, congestion)
	if err != nil {
		return wrapf(RouteCreationFailure, err, "publisher route for %s", ke)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.pubRoutes[ke]; ok {
		// lost the race while unlocked: another caller already created it.
		entry.localNodes[node] = struct{}{}
		route.Close(ctx)
		return nil
	}
	entry := &routeEntry{localNodes: map[string]struct{}{node: {}}, remoteRoutes: map[string]struct{}{}, pub: route}
	m.pubRoutes[ke] = entry
	m.indexPubRoute(kind, ke, entry)
	return nil
}

func (m *Manager) createPublisherRouteWithRetry(ctx context.Context, topic, typeName string, keyless bool, readerQos qos.Qos, ke string, congestion overlay.CongestionControl) (*PublisherRoute, error) {
	var route *PublisherRoute
	op := func() error {
		r, err := NewPublisherRoute(ctx, m.native, m.overlay, topic, typeName, keyless, readerQos, ke, congestion)
		if err != nil {
			log.Warn().Err(err).Str("ke", ke).Msg("route creation attempt failed, retrying")
			return err
		}
		route = r
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(m.retry, ctx)); err != nil {
		return nil, err
	}
	return route, nil
}

// UndiscoveredPublisher removes node from the route's local_nodes set; if
// both reference sets are then empty the route is torn down.
func (m *Manager) UndiscoveredPublisher(ctx context.Context, node, ke string) {
	m.mu.Lock()
	entry, ok := m.pubRoutes[ke]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(entry.localNodes, node)
	drop := entry.empty()
	if drop {
		delete(m.pubRoutes, ke)
	}
	m.mu.Unlock()

	if drop {
		entry.pub.Close(ctx)
		m.admin.Delete(adminRouteKey(KindPublisher, ke))
	}
}

// DiscoveredSubscriber is the subscriber-side mirror of DiscoveredPublisher:
// it creates a SubscriberRoute (overlay subscribe/fetch -> native writer)
// adapting the reader's QoS for the paired overlay writer side.
func (m *Manager) DiscoveredSubscriber(ctx context.Context, node string, kind InterfaceKind, name, ke, topic, typeName string, keyless bool, readerQos qos.Qos, livelinessKeyExpr string) error {
	if !m.policy.Permits(kind, name) {
		log.Info().Str("iface", name).Msg("route not created: denied by policy")
		return nil
	}

	m.mu.Lock()
	if entry, ok := m.subRoutes[ke]; ok {
		entry.localNodes[node] = struct{}{}
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	writerSideQos := qos.AdaptReaderForWriter(readerQos)
	route, err := m.createSubscriberRouteWithRetry(ctx, topic, typeName, keyless, writerSideQos, ke, livelinessKeyExpr)
	if err != nil {
		return wrapf(RouteCreationFailure, err, "subscriber route for %s", ke)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.subRoutes[ke]; ok {
		entry.localNodes[node] = struct{}{}
		route.Close(ctx)
		return nil
	}
	entry := &routeEntry{localNodes: map[string]struct{}{node: {}}, remoteRoutes: map[string]struct{}{}, sub: route}
	m.subRoutes[ke] = entry
	m.indexSubRoute(kind, ke, entry)
	return nil
}

func (m *Manager) createSubscriberRouteWithRetry(ctx context.Context, topic, typeName string, keyless bool, writerQos qos.Qos, ke, livelinessKeyExpr string) (*SubscriberRoute, error) {
	var route *SubscriberRoute
	op := func() error {
		r, err := NewSubscriberRoute(ctx, m.native, m.overlay, topic, typeName, keyless, writerQos, ke, m.cachePrefix, m.queriesTimeout, livelinessKeyExpr)
		if err != nil {
			log.Warn().Err(err).Str("ke", ke).Msg("route creation attempt failed, retrying")
			return err
		}
		route = r
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(m.retry, ctx)); err != nil {
		return nil, err
	}
	return route, nil
}

// UndiscoveredSubscriber is the subscriber-side mirror of
// UndiscoveredPublisher.
func (m *Manager) UndiscoveredSubscriber(ctx context.Context, node, ke string) {
	m.mu.Lock()
	entry, ok := m.subRoutes[ke]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(entry.localNodes, node)
	drop := entry.empty()
	if drop {
		delete(m.subRoutes, ke)
	}
	m.mu.Unlock()

	if drop {
		entry.sub.Close(ctx)
		m.admin.Delete(adminRouteKey(KindSubscriber, ke))
	}
}

// RemoteRouteAnnounced records a peer bridge's liveliness token for ke in
// the matching table's remote_routes set, creating no local route (a
// remote announcement alone never fabricates local endpoints).
func (m *Manager) RemoteRouteAnnounced(isPublisherSide bool, ke, peerKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := m.subRoutes
	if isPublisherSide {
		table = m.pubRoutes
	}
	if entry, ok := table[ke]; ok {
		entry.remoteRoutes[peerKey] = struct{}{}
	}
}

// RemoteRouteWithdrawn is the mirror of RemoteRouteAnnounced, dropping the
// route when both reference sets empty out.
func (m *Manager) RemoteRouteWithdrawn(ctx context.Context, isPublisherSide bool, ke, peerKey string) {
	m.mu.Lock()
	table := m.subRoutes
	kind := KindSubscriber
	if isPublisherSide {
		table = m.pubRoutes
		kind = KindPublisher
	}
	entry, ok := table[ke]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(entry.remoteRoutes, peerKey)
	drop := entry.empty()
	if drop {
		delete(table, ke)
	}
	m.mu.Unlock()

	if !drop {
		return
	}
	if isPublisherSide {
		entry.pub.Close(ctx)
	} else {
		entry.sub.Close(ctx)
	}
	m.admin.Delete(adminRouteKey(kind, ke))
}

func (m *Manager) indexPubRoute(kind InterfaceKind, ke string, entry *routeEntry) {
	m.admin.Put(adminRouteKey(kind, ke), admin.Ref{
		Kind: "publisher_route",
		Resolve: func() (any, bool) {
			m.mu.Lock()
			defer m.mu.Unlock()
			e, ok := m.pubRoutes[ke]
			if !ok {
				return nil, false
			}
			return newRouteView(e), true
		},
	})
}

func (m *Manager) indexSubRoute(kind InterfaceKind, ke string, entry *routeEntry) {
	m.admin.Put(adminRouteKey(kind, ke), admin.Ref{
		Kind: "subscriber_route",
		Resolve: func() (any, bool) {
			m.mu.Lock()
			defer m.mu.Unlock()
			e, ok := m.subRoutes[ke]
			if !ok {
				return nil, false
			}
			return newRouteView(e), true
		},
	})
}

// RouteView is the JSON-serializable admin rendering of a route entry.
type RouteView struct {
	LocalNodes   []string `json:"local_nodes"`
	RemoteRoutes []string `json:"remote_routes"`
}

func newRouteView(e *routeEntry) RouteView {
	v := RouteView{}
	for n := range e.localNodes {
		v.LocalNodes = append(v.LocalNodes, n)
	}
	for r := range e.remoteRoutes {
		v.RemoteRoutes = append(v.RemoteRoutes, r)
	}
	return v
}
