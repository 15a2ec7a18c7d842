package qos

import (
	"fmt"
	"strconv"
	"strings"
)

// Serialize renders a QoS descriptor as the tight announcement-key digest
// "[K]:<rel>:<dur>:<hist>,<depth>", where the leading K is present iff the
// topic is keyed, and each of the three QoS segments is empty when the
// corresponding field is unset (meaning "default").
func Serialize(keyed bool, q Qos) string {
	var b strings.Builder
	if keyed {
		b.WriteByte('K')
	}
	b.WriteByte(':')
	if q.Reliability != nil {
		b.WriteString(strconv.Itoa(int(q.Reliability.Kind)))
	}
	b.WriteByte(':')
	if q.Durability != nil {
		b.WriteString(strconv.Itoa(int(q.Durability.Kind)))
	}
	b.WriteByte(':')
	if q.History != nil {
		fmt.Fprintf(&b, "%d,%d", int(q.History.Kind), q.History.Depth)
	}
	return b.String()
}

// Parse is the inverse of Serialize. It reports whether the digest
// represents a keyed topic and the QoS fields it encodes, or a descriptive
// error (QosParseFailure territory) on malformed input.
func Parse(digest string) (keyed bool, q Qos, err error) {
	elts := strings.Split(digest, ":")
	if len(elts) != 4 {
		return false, Qos{}, fmt.Errorf("qos: malformed digest %q: expected 4 colon-separated segments, got %d", digest, len(elts))
	}

	keyed = elts[0] == "K"
	if elts[0] != "" && !keyed {
		return false, Qos{}, fmt.Errorf("qos: malformed digest %q: first segment must be empty or %q", digest, "K")
	}

	if elts[1] != "" {
		v, parseErr := strconv.Atoi(elts[1])
		if parseErr != nil {
			return false, Qos{}, fmt.Errorf("qos: malformed digest %q: failed to parse reliability: %w", digest, parseErr)
		}
		q.Reliability = &Reliability{Kind: ReliabilityKind(v), MaxBlockingTime: DefaultMaxBlockingTime}
	}

	if elts[2] != "" {
		v, parseErr := strconv.Atoi(elts[2])
		if parseErr != nil {
			return false, Qos{}, fmt.Errorf("qos: malformed digest %q: failed to parse durability: %w", digest, parseErr)
		}
		q.Durability = &Durability{Kind: DurabilityKind(v)}
	}

	if elts[3] != "" {
		kindStr, depthStr, ok := strings.Cut(elts[3], ",")
		if !ok {
			return false, Qos{}, fmt.Errorf("qos: malformed digest %q: history segment must be '<kind>,<depth>'", digest)
		}
		kind, parseErr := strconv.Atoi(kindStr)
		if parseErr != nil {
			return false, Qos{}, fmt.Errorf("qos: malformed digest %q: failed to parse history kind: %w", digest, parseErr)
		}
		depth, parseErr := strconv.Atoi(depthStr)
		if parseErr != nil {
			return false, Qos{}, fmt.Errorf("qos: malformed digest %q: failed to parse history depth: %w", digest, parseErr)
		}
		q.History = &History{Kind: HistoryKind(kind), Depth: int32(depth)}
	}

	return keyed, q, nil
}
