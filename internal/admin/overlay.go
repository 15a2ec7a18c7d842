package admin

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/overlay"
)

// DeclareOverlayQueryable exposes the same admin space the HTTP surface
// serves locally as an overlay queryable under prefix, so a peer bridge can
// introspect this one directly over the fabric rather than only over local
// HTTP. The key-expression layout under prefix mirrors the HTTP paths:
// "<prefix>/dds/...", "<prefix>/node/..." resolve against r.Entities,
// "<prefix>/route/..." against r.Routes.
func DeclareOverlayQueryable(ctx context.Context, session overlay.Session, prefix string, r Router) (overlay.Queryable, error) {
	root := prefix + "/"
	onQuery := func(q overlay.Query, reply overlay.Replier) {
		defer reply.Finish()

		selector := q.Selector
		if selector == "" {
			selector = q.KeyExpr
		}
		sub := strings.TrimPrefix(selector, root)
		if sub == selector {
			return
		}

		var space *Space
		var subPrefix string
		switch {
		case sub == "dds" || strings.HasPrefix(sub, "dds/"):
			space, subPrefix = r.Entities, "dds"
		case sub == "node" || strings.HasPrefix(sub, "node/"):
			space, subPrefix = r.Entities, "node"
		case sub == "route" || strings.HasPrefix(sub, "route/"):
			space, subPrefix = r.Routes, "route"
		default:
			return
		}

		replies, err := TreatQuery(space, subPrefix, sub)
		if err != nil {
			log.Warn().Err(err).Str("selector", selector).Msg("admin overlay query failed")
			return
		}
		for _, rep := range replies {
			payload, err := RemoveNullQoSValues(rep.Value)
			if err != nil {
				log.Warn().Err(err).Str("key", rep.Key).Msg("admin overlay reply encoding failed")
				continue
			}
			if err := reply.Reply(root+rep.Key, payload); err != nil {
				log.Warn().Err(err).Str("key", rep.Key).Msg("admin overlay reply failed")
			}
		}
	}

	return session.DeclareQueryable(ctx, prefix+"/**", onQuery)
}
