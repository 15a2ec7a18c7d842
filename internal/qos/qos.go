// Package qos models the subset of DDS-style Quality-of-Service policies
// the bridge core needs to read, adapt and serialize. Only the fields that
// affect route creation, QoS adaptation or the announcement digest are
// represented; everything else on a real QoS profile is treated as opaque
// by the core and is not modeled here.
package qos

import "time"

// ReliabilityKind selects best-effort or reliable delivery.
type ReliabilityKind int

const (
	ReliabilityBestEffort ReliabilityKind = 0
	ReliabilityReliable   ReliabilityKind = 1
)

// DurabilityKind selects how long a writer's samples remain available to
// late-joining readers.
type DurabilityKind int

const (
	DurabilityVolatile       DurabilityKind = 0
	DurabilityTransientLocal DurabilityKind = 1
	DurabilityTransient      DurabilityKind = 2
	DurabilityPersistent     DurabilityKind = 3
)

// HistoryKind selects whether a writer/reader keeps all samples or only the
// last N per instance.
type HistoryKind int

const (
	HistoryKeepLast HistoryKind = 0
	HistoryKeepAll  HistoryKind = 1
)

// IgnoreLocalKind selects which local entities a reader/writer should not
// match against.
type IgnoreLocalKind int

const (
	IgnoreLocalNone        IgnoreLocalKind = 0
	IgnoreLocalParticipant IgnoreLocalKind = 1
)

// DefaultMaxBlockingTime is the max-blocking-time installed on a default
// reliability policy, matching the native middleware's 100ms default.
const DefaultMaxBlockingTime = 100 * time.Millisecond

// DurabilityServiceCleanupDelay is installed on the durability_service QoS
// synthesized for a writer paired to a transient-local reader.
const DurabilityServiceCleanupDelay = 60 * time.Second

// Unlimited marks max_samples/max_instances/max_samples_per_instance as
// having no configured bound.
const Unlimited = -1

type Reliability struct {
	Kind            ReliabilityKind
	MaxBlockingTime time.Duration
}

type Durability struct {
	Kind DurabilityKind
}

type History struct {
	Kind  HistoryKind
	Depth int32
}

type DurabilityService struct {
	ServiceCleanupDelay   time.Duration
	HistoryKind           HistoryKind
	HistoryDepth          int32
	MaxSamples            int32
	MaxInstances          int32
	MaxSamplesPerInstance int32
}

type IgnoreLocal struct {
	Kind IgnoreLocalKind
}

// Qos is the subset of a DDS QoS profile that the bridge core reasons
// about directly. Pointer fields model "unset" the way the native profile
// does, and are preserved verbatim through JSON/admin serialization.
type Qos struct {
	Reliability        *Reliability       `json:"reliability,omitempty"`
	Durability         *Durability        `json:"durability,omitempty"`
	DurabilityService  *DurabilityService `json:"durability_service,omitempty"`
	History            *History           `json:"history,omitempty"`
	OwnershipStrength  *int32             `json:"ownership_strength,omitempty"`
	TransportPriority  *int32             `json:"transport_priority,omitempty"`
	Lifespan           *time.Duration     `json:"lifespan,omitempty"`
	WriterDataLifecycle *bool             `json:"writer_data_lifecycle,omitempty"`
	WriterBatching     *bool              `json:"writer_batching,omitempty"`
	TimeBasedFilter    *time.Duration     `json:"time_based_filter,omitempty"`
	ReaderDataLifecycle *bool             `json:"reader_data_lifecycle,omitempty"`
	Properties         map[string]string  `json:"properties,omitempty"`
	EntityName         *string            `json:"entity_name,omitempty"`
	IgnoreLocal        *IgnoreLocal       `json:"ignore_local,omitempty"`
}

// Clone returns a deep-enough copy of qos for independent mutation by the
// adaptation functions; map/pointer fields are not shared with the source.
func (q Qos) Clone() Qos {
	out := q
	if q.Reliability != nil {
		r := *q.Reliability
		out.Reliability = &r
	}
	if q.Durability != nil {
		d := *q.Durability
		out.Durability = &d
	}
	if q.DurabilityService != nil {
		ds := *q.DurabilityService
		out.DurabilityService = &ds
	}
	if q.History != nil {
		h := *q.History
		out.History = &h
	}
	if q.OwnershipStrength != nil {
		v := *q.OwnershipStrength
		out.OwnershipStrength = &v
	}
	if q.TransportPriority != nil {
		v := *q.TransportPriority
		out.TransportPriority = &v
	}
	if q.Lifespan != nil {
		v := *q.Lifespan
		out.Lifespan = &v
	}
	if q.WriterDataLifecycle != nil {
		v := *q.WriterDataLifecycle
		out.WriterDataLifecycle = &v
	}
	if q.WriterBatching != nil {
		v := *q.WriterBatching
		out.WriterBatching = &v
	}
	if q.TimeBasedFilter != nil {
		v := *q.TimeBasedFilter
		out.TimeBasedFilter = &v
	}
	if q.ReaderDataLifecycle != nil {
		v := *q.ReaderDataLifecycle
		out.ReaderDataLifecycle = &v
	}
	if q.EntityName != nil {
		v := *q.EntityName
		out.EntityName = &v
	}
	if q.IgnoreLocal != nil {
		v := *q.IgnoreLocal
		out.IgnoreLocal = &v
	}
	if q.Properties != nil {
		out.Properties = make(map[string]string, len(q.Properties))
		for k, v := range q.Properties {
			out.Properties[k] = v
		}
	}
	return out
}

// IsTransientLocal reports whether qos.Durability is set to TRANSIENT_LOCAL.
func IsTransientLocal(q Qos) bool {
	return q.Durability != nil && q.Durability.Kind == DurabilityTransientLocal
}

// IsReliable reports whether qos.Reliability is explicitly RELIABLE.
func IsReliable(q Qos) bool {
	return q.Reliability != nil && q.Reliability.Kind == ReliabilityReliable
}

// HistoryOrDefault returns qos.History, or the zero-value default
// (KEEP_LAST, depth 0) if unset.
func HistoryOrDefault(q Qos) History {
	if q.History == nil {
		return History{}
	}
	return *q.History
}

// DurabilityServiceOrDefault returns qos.DurabilityService, or its
// zero-value default if unset.
func DurabilityServiceOrDefault(q Qos) DurabilityService {
	if q.DurabilityService == nil {
		return DurabilityService{}
	}
	return *q.DurabilityService
}
