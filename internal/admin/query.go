package admin

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Reply is one resolved admin query result: the matched entry's full key
// and its JSON view.
type Reply struct {
	Key   string
	Value any
}

// TreatQuery resolves every entry in space matching selector and returns
// one Reply per resolved Ref, keyed by the entry's own full key (space
// entries are stored under their full admin key, prefix included, not a
// bare suffix). prefix is only a sanity check that selector is rooted
// where the caller expects. A Ref whose Resolve reports ok=false is a
// dangling reference: it is logged as an internal error and excluded from
// the results, never replied to.
func TreatQuery(space *Space, prefix, selector string) ([]Reply, error) {
	if prefix != "" && !strings.HasPrefix(selector, prefix) {
		return nil, fmt.Errorf("admin: selector %q is not prefixed by %q", selector, prefix)
	}

	var replies []Reply
	for _, entry := range space.Query(selector) {
		value, ok := entry.Ref.Resolve()
		if !ok {
			log.Error().Str("key", entry.Key).Str("kind", entry.Ref.Kind).Msg("dangling admin reference")
			continue
		}
		replies = append(replies, Reply{Key: entry.Key, Value: value})
	}
	return replies, nil
}
