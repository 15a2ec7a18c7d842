package routes

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ZettaScaleLabs/zplugin-ros2/internal/qos"
	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/native"
	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/overlay"
)

var tracer = otel.Tracer("zplugin-ros2/routes")

// HistoryUnlimited marks an unbounded publication-cache depth (KEEP_ALL, or
// a KEEP_LAST/max_instances combination that saturates).
const HistoryUnlimited = math.MaxInt32

// publicationCacheDepth computes the cache depth H: KEEP_ALL is unlimited;
// KEEP_LAST(n) on a keyless topic is just n; on a keyed topic it's
// n * durability_service.max_instances, saturating to HistoryUnlimited on
// overflow or when max_instances is Unlimited. Any other non-positive
// max_instances gives n alone.
func publicationCacheDepth(readerQos qos.Qos, keyless bool) int {
	h := qos.HistoryOrDefault(readerQos)
	if h.Kind == qos.HistoryKeepAll {
		return HistoryUnlimited
	}
	n := int(h.Depth)
	if keyless {
		return n
	}

	maxInstances := int(qos.DurabilityServiceOrDefault(readerQos).MaxInstances)
	if maxInstances == qos.Unlimited {
		return HistoryUnlimited
	}
	if maxInstances <= 0 {
		return n
	}
	product := n * maxInstances
	if maxInstances != 0 && product/maxInstances != n {
		return HistoryUnlimited // overflow
	}
	if product > HistoryUnlimited {
		return HistoryUnlimited
	}
	return product
}

// PublisherRoute owns a native reader consuming samples from the native
// side and republishes them on the overlay, either as a plain publisher or,
// for a transient-local source, a publication cache answering remote
// historical queries only.
type PublisherRoute struct {
	KeyExpr string
	IsCache bool

	reader  native.EndpointHandle
	publish overlay.Publisher
}

// NewPublisherRoute creates the overlay publish side first (a plain
// publisher or a publication cache depending on readerQos), then the native
// reader whose samples it republishes. congestion governs what the publish
// side does under backpressure (§4.5: Block when the source is reliable and
// the bridge is configured for blocking routes, else Drop).
func NewPublisherRoute(ctx context.Context, factory native.EndpointFactory, session overlay.Session, topic, typeName string, keyless bool, readerQos qos.Qos, ke string, congestion overlay.CongestionControl) (*PublisherRoute, error) {
	ctx, span := tracer.Start(ctx, "routes.NewPublisherRoute", trace.WithAttributes(attribute.String("ke", ke), attribute.String("topic", topic)))
	defer span.End()

	isCache := qos.IsTransientLocal(readerQos)

	var pub overlay.Publisher
	var err error
	if isCache {
		depth := publicationCacheDepth(readerQos, keyless)
		// LocalityRemote: the cache's queryable answers only remote
		// historical queries, never a fetching subscriber in this process.
		pub, err = session.DeclarePublicationCache(ctx, ke, depth, congestion, overlay.LocalityRemote)
	} else {
		pub, err = session.DeclarePublisher(ctx, ke, congestion)
	}
	if err != nil {
		return nil, wrapf(OverlayDeclarationFailure, err, "declare publish side for %s", ke)
	}

	r := &PublisherRoute{KeyExpr: ke, IsCache: isCache, publish: pub}
	forward := func(payload []byte) error {
		if perr := pub.Put(ctx, payload); perr != nil {
			log.Warn().Err(perr).Str("ke", ke).Msg("dropping sample: overlay publish failed")
		}
		return nil
	}

	reader, err := factory.CreateReader(ctx, topic, typeName, keyless, readerQos, forward)
	if err != nil {
		_ = pub.Delete(ctx)
		return nil, wrapf(NativeCreationFailure, err, "create native reader for %s", topic)
	}
	r.reader = reader
	return r, nil
}

// Close tears down the native reader and overlay publish side. Errors are
// logged and swallowed per the teardown-errors policy.
func (r *PublisherRoute) Close(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "routes.PublisherRoute.Close", trace.WithAttributes(attribute.String("ke", r.KeyExpr)))
	defer span.End()

	if err := r.reader.Delete(ctx); err != nil {
		log.Warn().Err(err).Str("ke", r.KeyExpr).Msg("native reader teardown failed")
	}
	if err := r.publish.Delete(ctx); err != nil {
		log.Warn().Err(err).Str("ke", r.KeyExpr).Msg("overlay publish-side teardown failed")
	}
}
