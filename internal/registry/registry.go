// Package registry implements the Entity Registry: the authoritative store
// of discovered participants, readers and writers, and the per-participant
// node sets built from periodic manifests. It is the diff engine that
// turns raw discovery into typed DiscoveryEvent values.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ZettaScaleLabs/zplugin-ros2/internal/admin"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/entities"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/gid"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/qos"
)

// Participant is a native-middleware process identity, retained for admin
// serialization.
type Participant struct {
	Gid gid.Gid    `json:"gid"`
	Qos qos.Qos    `json:"qos"`
}

// NodeEntitiesInfo is one node's entry in a participant manifest: the
// Gids of the readers and writers it claims.
type NodeEntitiesInfo struct {
	Namespace   string
	NodeName    string
	ReaderGids  []gid.Gid
	WriterGids  []gid.Gid
}

// ParticipantManifest is a full, periodically-polled snapshot of the nodes
// a participant currently hosts.
type ParticipantManifest struct {
	Gid   gid.Gid
	Nodes map[string]NodeEntitiesInfo // keyed by node fullname
}

// Registry is the authoritative, mutex-guarded store of discovered
// entities. All mutation happens from the Discovery Coordinator's single
// task; admin queries and route creation only ever read.
type Registry struct {
	mu sync.RWMutex

	participants map[gid.Gid]Participant
	writers      map[gid.Gid]entities.Endpoint
	readers      map[gid.Gid]entities.Endpoint

	// nodes[participantGid][fullname] is the NodeInfo for that node.
	nodes map[gid.Gid]map[string]*entities.NodeInfo

	// manifests holds the last-applied manifest per participant, so a
	// later manifest can be diffed against it.
	manifests map[gid.Gid]ParticipantManifest

	adminSpace *admin.Space
}

// New constructs an empty registry backed by the given admin key space.
func New(adminSpace *admin.Space) *Registry {
	return &Registry{
		participants: make(map[gid.Gid]Participant),
		writers:      make(map[gid.Gid]entities.Endpoint),
		readers:      make(map[gid.Gid]entities.Endpoint),
		nodes:        make(map[gid.Gid]map[string]*entities.NodeInfo),
		manifests:    make(map[gid.Gid]ParticipantManifest),
		adminSpace:   adminSpace,
	}
}

func adminParticipantKey(pgid gid.Gid) string {
	return fmt.Sprintf("dds/%s", pgid)
}

func adminWriterKey(pgid, wgid gid.Gid, topic string) string {
	return fmt.Sprintf("dds/%s/writer/%s/%s", pgid, wgid, topic)
}

func adminReaderKey(pgid, rgid gid.Gid, topic string) string {
	return fmt.Sprintf("dds/%s/reader/%s/%s", pgid, rgid, topic)
}

func adminNodeKey(pgid gid.Gid, fullname string) string {
	return fmt.Sprintf("node/%s/%s", pgid, fullname)
}

// AddParticipant records a newly discovered participant.
func (r *Registry) AddParticipant(p Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.participants[p.Gid] = p
	r.nodes[p.Gid] = make(map[string]*entities.NodeInfo)
	pgid := p.Gid
	r.adminSpace.Put(adminParticipantKey(pgid), admin.Ref{
		Kind: "participant",
		Resolve: func() (any, bool) {
			r.mu.RLock()
			defer r.mu.RUnlock()
			v, ok := r.participants[pgid]
			return v, ok
		},
	})
}

// RemoveParticipant drops the participant, every NodeInfo it owns
// (emitting Undiscovered* for each complete interface), and every
// associated admin entry.
func (r *Registry) RemoveParticipant(key gid.Gid) []entities.DiscoveryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []entities.DiscoveryEvent
	for fullname, node := range r.nodes[key] {
		events = append(events, node.RemoveAllEntities()...)
		r.adminSpace.Delete(adminNodeKey(key, fullname))
	}
	for wkey, ep := range r.writers {
		if ep.ParticipantKey == key {
			delete(r.writers, wkey)
			r.adminSpace.Delete(adminWriterKey(key, wkey, ep.TopicName))
		}
	}
	for rkey, ep := range r.readers {
		if ep.ParticipantKey == key {
			delete(r.readers, rkey)
			r.adminSpace.Delete(adminReaderKey(key, rkey, ep.TopicName))
		}
	}
	delete(r.nodes, key)
	delete(r.participants, key)
	delete(r.manifests, key)
	r.adminSpace.Delete(adminParticipantKey(key))
	return events
}

// AddWriter records a newly discovered writer endpoint, then scans every
// node's pending-writer queue across the owning participant for a match:
// on a hit, the Gid is popped and fed into the owning NodeInfo.
func (r *Registry) AddWriter(ep entities.Endpoint) *entities.DiscoveryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.writers[ep.Key] = ep
	wkey := ep.Key
	r.adminSpace.Put(adminWriterKey(ep.ParticipantKey, ep.Key, ep.TopicName), admin.Ref{
		Kind: "writer",
		Resolve: func() (any, bool) {
			r.mu.RLock()
			defer r.mu.RUnlock()
			v, ok := r.writers[wkey]
			return v, ok
		},
	})

	for _, node := range r.nodes[ep.ParticipantKey] {
		if _, pending := node.UndiscoveredWriters[ep.Key]; pending {
			delete(node.UndiscoveredWriters, ep.Key)
			return node.UpdateWithWriter(ep)
		}
	}
	return nil
}

// AddReader is the reader-side mirror of AddWriter.
func (r *Registry) AddReader(ep entities.Endpoint) *entities.DiscoveryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.readers[ep.Key] = ep
	rkey := ep.Key
	r.adminSpace.Put(adminReaderKey(ep.ParticipantKey, ep.Key, ep.TopicName), admin.Ref{
		Kind: "reader",
		Resolve: func() (any, bool) {
			r.mu.RLock()
			defer r.mu.RUnlock()
			v, ok := r.readers[rkey]
			return v, ok
		},
	})

	for _, node := range r.nodes[ep.ParticipantKey] {
		if _, pending := node.UndiscoveredReaders[ep.Key]; pending {
			delete(node.UndiscoveredReaders, ep.Key)
			return node.UpdateWithReader(ep)
		}
	}
	return nil
}

// RemoveWriter drops the writer endpoint and scans owning NodeInfos for
// the single one referencing it.
func (r *Registry) RemoveWriter(key gid.Gid) *entities.DiscoveryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep, had := r.writers[key]
	if !had {
		return nil
	}
	delete(r.writers, key)
	r.adminSpace.Delete(adminWriterKey(ep.ParticipantKey, key, ep.TopicName))

	for _, node := range r.nodes[ep.ParticipantKey] {
		if ev := node.RemoveWriter(key); ev != nil {
			return ev
		}
	}
	return nil
}

// RemoveReader is the reader-side mirror of RemoveWriter.
func (r *Registry) RemoveReader(key gid.Gid) *entities.DiscoveryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep, had := r.readers[key]
	if !had {
		return nil
	}
	delete(r.readers, key)
	r.adminSpace.Delete(adminReaderKey(ep.ParticipantKey, key, ep.TopicName))

	for _, node := range r.nodes[ep.ParticipantKey] {
		if ev := node.RemoveReader(key); ev != nil {
			return ev
		}
	}
	return nil
}

// UpdateParticipantInfo diffs a freshly-polled manifest against the
// previously stored one for this participant: nodes dropped from the
// manifest are torn down (emitting Undiscovered* for every complete
// interface), and nodes present in the manifest are created/updated,
// feeding each referenced Gid into the owning NodeInfo if already known,
// or enqueuing it for later.
func (r *Registry) UpdateParticipantInfo(manifest ParticipantManifest) []entities.DiscoveryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []entities.DiscoveryEvent

	nodeMap, ok := r.nodes[manifest.Gid]
	if !ok {
		nodeMap = make(map[string]*entities.NodeInfo)
		r.nodes[manifest.Gid] = nodeMap
	}

	for fullname := range nodeMap {
		if _, stillPresent := manifest.Nodes[fullname]; !stillPresent {
			events = append(events, nodeMap[fullname].RemoveAllEntities()...)
			delete(nodeMap, fullname)
			r.adminSpace.Delete(adminNodeKey(manifest.Gid, fullname))
		}
	}

	for fullname, info := range manifest.Nodes {
		node, exists := nodeMap[fullname]
		if !exists {
			node = entities.New(manifest.Gid, fullname)
			nodeMap[fullname] = node
			pgid, fn := manifest.Gid, fullname
			r.adminSpace.Put(adminNodeKey(pgid, fullname), admin.Ref{
				Kind: "node",
				Resolve: func() (any, bool) {
					r.mu.RLock()
					defer r.mu.RUnlock()
					m, ok := r.nodes[pgid]
					if !ok {
						return nil, false
					}
					n, ok := m[fn]
					return n, ok
				},
			})
		}

		for _, wg := range info.WriterGids {
			if ep, known := r.writers[wg]; known {
				if ev := node.UpdateWithWriter(ep); ev != nil {
					events = append(events, *ev)
				}
			} else {
				node.UndiscoveredWriters[wg] = struct{}{}
			}
		}
		for _, rg := range info.ReaderGids {
			if ep, known := r.readers[rg]; known {
				if ev := node.UpdateWithReader(ep); ev != nil {
					events = append(events, *ev)
				}
			} else {
				node.UndiscoveredReaders[rg] = struct{}{}
			}
		}
	}

	r.manifests[manifest.Gid] = manifest
	log.Debug().
		Str("participant", manifest.Gid.String()).
		Int("nodes", len(manifest.Nodes)).
		Int("events", len(events)).
		Msg("applied participant manifest")
	return events
}

// Writer looks up a known writer endpoint by Gid.
func (r *Registry) Writer(key gid.Gid) (entities.Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.writers[key]
	return ep, ok
}

// Reader looks up a known reader endpoint by Gid.
func (r *Registry) Reader(key gid.Gid) (entities.Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.readers[key]
	return ep, ok
}

// ParticipantGids returns every currently known participant Gid, sorted
// for deterministic iteration (used by admin snapshot views and tests).
func (r *Registry) ParticipantGids() []gid.Gid {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]gid.Gid, 0, len(r.participants))
	for k := range r.participants {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
