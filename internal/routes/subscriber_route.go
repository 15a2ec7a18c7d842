package routes

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ZettaScaleLabs/zplugin-ros2/internal/qos"
	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/native"
	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/overlay"
)

// SubscriberRoute owns a native writer and an overlay subscriber (or
// fetching subscriber, for a transient-local destination) that drives it,
// plus the liveliness token announcing its existence to peer bridges.
type SubscriberRoute struct {
	KeyExpr   string
	IsFetching bool

	writer native.EndpointHandle
	sub    overlay.Subscriber
	token  overlay.LivelinessToken
}

// cacheSelector builds the "<cache-prefix>/*/<route-ke>" selector used to
// query every peer's publication cache for historical data on ke.
func cacheSelector(cachePrefix, ke string) string {
	return fmt.Sprintf("%s/*/%s", cachePrefix, ke)
}

// NewSubscriberRoute declares the native writer, then the overlay read side
// that forwards samples into it, and finally the announcing liveliness
// token. forward pushes a received overlay payload into native
// serialization; failures are logged per-sample and never torn the route
// down.
func NewSubscriberRoute(ctx context.Context, factory native.EndpointFactory, session overlay.Session, topic, typeName string, keyless bool, writerQos qos.Qos, ke, cachePrefix string, queriesTimeout time.Duration, livelinessKeyExpr string) (*SubscriberRoute, error) {
	ctx, span := tracer.Start(ctx, "routes.NewSubscriberRoute", trace.WithAttributes(attribute.String("ke", ke), attribute.String("topic", topic)))
	defer span.End()

	writer, forward, err := factory.CreateWriter(ctx, topic, typeName, keyless, writerQos)
	if err != nil {
		return nil, wrapf(NativeCreationFailure, err, "create native writer for %s", topic)
	}

	onSample := func(s overlay.Sample) error {
		if len(s.Payload) == 0 {
			return nil
		}
		if err := forward(s.Payload); err != nil {
			log.Warn().Err(err).Str("ke", ke).Msg("dropping sample: native forward failed")
		}
		return nil
	}

	// LocalityRemote: accept only remote-origin publications, so this
	// route never re-consumes the sample its own PublisherRoute just put.
	isFetching := qos.IsTransientLocal(writerQos)
	var sub overlay.Subscriber
	if isFetching {
		sub, err = session.DeclareFetchingSubscriber(ctx, ke, cacheSelector(cachePrefix, ke), queriesTimeout, overlay.LocalityRemote, func(s overlay.Sample) { _ = onSample(s) })
	} else {
		sub, err = session.DeclareSubscriber(ctx, ke, overlay.LocalityRemote, func(s overlay.Sample) { _ = onSample(s) })
	}
	if err != nil {
		_ = writer.Delete(ctx)
		return nil, wrapf(OverlayDeclarationFailure, err, "declare read side for %s", ke)
	}

	token, err := session.DeclareLivelinessToken(ctx, livelinessKeyExpr)
	if err != nil {
		log.Warn().Err(err).Str("ke", ke).Msg("failed to declare liveliness token")
	}

	return &SubscriberRoute{
		KeyExpr:    ke,
		IsFetching: isFetching,
		writer:     writer,
		sub:        sub,
		token:      token,
	}, nil
}

// Close tears down the read side, the native writer and the liveliness
// token. Errors are logged and swallowed per the teardown-errors policy.
func (r *SubscriberRoute) Close(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "routes.SubscriberRoute.Close", trace.WithAttributes(attribute.String("ke", r.KeyExpr)))
	defer span.End()

	if err := r.sub.Close(ctx); err != nil {
		log.Warn().Err(err).Str("ke", r.KeyExpr).Msg("overlay read-side teardown failed")
	}
	if err := r.writer.Delete(ctx); err != nil {
		log.Warn().Err(err).Str("ke", r.KeyExpr).Msg("native writer teardown failed")
	}
	if r.token != nil {
		if err := r.token.Undeclare(ctx); err != nil {
			log.Warn().Err(err).Str("ke", r.KeyExpr).Msg("liveliness token teardown failed")
		}
	}
}
