package entities

import (
	"github.com/rs/zerolog/log"

	"github.com/ZettaScaleLabs/zplugin-ros2/internal/gid"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/qos"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/topicname"
)

// Endpoint is the flat reader/writer record the native middleware exposes,
// independent of any node.
type Endpoint struct {
	Key            gid.Gid
	ParticipantKey gid.Gid
	TopicName      string
	TypeName       string
	Keyless        bool
	Qos            qos.Qos
}

// NodeInfo is the per (participant, fullname) aggregate of logical
// interfaces, plus the pending-Gid queues for endpoints a manifest
// referenced that the registry has not yet materialized.
type NodeInfo struct {
	ParticipantGid gid.Gid
	FullName       string

	Publishers     map[string]Publisher
	Subscribers    map[string]Subscriber
	ServiceServers map[string]ServiceServer
	ServiceClients map[string]ServiceClient
	ActionServers  map[string]ActionServer
	ActionClients  map[string]ActionClient

	UndiscoveredReaders map[gid.Gid]struct{}
	UndiscoveredWriters map[gid.Gid]struct{}
}

// New creates an empty NodeInfo for the given participant and fullname.
func New(participant gid.Gid, fullName string) *NodeInfo {
	return &NodeInfo{
		ParticipantGid:      participant,
		FullName:            fullName,
		Publishers:          make(map[string]Publisher),
		Subscribers:         make(map[string]Subscriber),
		ServiceServers:      make(map[string]ServiceServer),
		ServiceClients:      make(map[string]ServiceClient),
		ActionServers:       make(map[string]ActionServer),
		ActionClients:       make(map[string]ActionClient),
		UndiscoveredReaders: make(map[gid.Gid]struct{}),
		UndiscoveredWriters: make(map[gid.Gid]struct{}),
	}
}

// resolveType applies the type-conflict policy: an empty incoming type
// never overwrites a recorded one (cancel-goal/status never blank out a
// type learned elsewhere); a non-empty incoming type that differs from a
// non-empty recorded type overwrites it with a warning; any other case is
// a silent accept (including filling in an empty recorded type).
func resolveType(nodeFullName, ifaceName, recorded, incoming string) string {
	if incoming == "" {
		return recorded
	}
	if recorded != "" && recorded != incoming {
		log.Warn().
			Str("node", nodeFullName).
			Str("interface", ifaceName).
			Str("recorded_type", recorded).
			Str("incoming_type", incoming).
			Msg("overwriting interface type on conflicting discovery")
	}
	return incoming
}

// UpdateWithReader classifies a reader endpoint, locates or creates the
// owning interface, and applies the Gid/type update. It returns a
// Discovered* event iff the interface became complete, or was already
// complete and a tracked field changed.
func (n *NodeInfo) UpdateWithReader(ep Endpoint) *DiscoveryEvent {
	d := topicname.Decode(ep.TopicName, ep.TypeName, false)

	switch d.Tag {
	case topicname.TopicSub:
		existing, had := n.Subscribers[d.Name]
		wasComplete := had && existing.IsComplete()
		changed := existing.ReaderGid != ep.Key
		existing.Name = d.Name
		existing.Type = resolveType(n.FullName, d.Name, existing.Type, d.Type)
		existing.ReaderGid = ep.Key
		n.Subscribers[d.Name] = existing
		if fires(wasComplete, existing.IsComplete(), changed) {
			return &DiscoveryEvent{Kind: DiscoveredTopicSub, NodeFullName: n.FullName, Subscriber: cloneSub(existing)}
		}
		return nil

	case topicname.ServiceReq:
		existing, had := n.ServiceServers[d.Name]
		wasComplete := had && existing.IsComplete()
		changed := existing.Entities.ReqReader != ep.Key
		existing.Name = d.Name
		existing.Type = resolveType(n.FullName, d.Name, existing.Type, d.Type)
		existing.Entities.ReqReader = ep.Key
		n.ServiceServers[d.Name] = existing
		if fires(wasComplete, existing.IsComplete(), changed) {
			return &DiscoveryEvent{Kind: DiscoveredServiceSrv, NodeFullName: n.FullName, ServiceServer: cloneSrv(existing)}
		}
		return nil

	case topicname.ServiceRep:
		existing, had := n.ServiceClients[d.Name]
		wasComplete := had && existing.IsComplete()
		changed := existing.Entities.RepReader != ep.Key
		existing.Name = d.Name
		existing.Type = resolveType(n.FullName, d.Name, existing.Type, d.Type)
		existing.Entities.RepReader = ep.Key
		n.ServiceClients[d.Name] = existing
		if fires(wasComplete, existing.IsComplete(), changed) {
			return &DiscoveryEvent{Kind: DiscoveredServiceCli, NodeFullName: n.FullName, ServiceClient: cloneCli(existing)}
		}
		return nil

	case topicname.ActionSendReq:
		return n.updateActionServer(d.Name, d.Type, func(e *ActionServerEntities) *gid.Gid { return &e.SendGoal.ReqReader }, ep.Key)
	case topicname.ActionCancelReq:
		return n.updateActionServer(d.Name, d.Type, func(e *ActionServerEntities) *gid.Gid { return &e.CancelGoal.ReqReader }, ep.Key)
	case topicname.ActionResultReq:
		return n.updateActionServer(d.Name, d.Type, func(e *ActionServerEntities) *gid.Gid { return &e.GetResult.ReqReader }, ep.Key)
	case topicname.ActionSendRep:
		return n.updateActionClient(d.Name, d.Type, func(e *ActionClientEntities) *gid.Gid { return &e.SendGoal.RepReader }, ep.Key)
	case topicname.ActionCancelRep:
		return n.updateActionClient(d.Name, d.Type, func(e *ActionClientEntities) *gid.Gid { return &e.CancelGoal.RepReader }, ep.Key)
	case topicname.ActionResultRep:
		return n.updateActionClient(d.Name, d.Type, func(e *ActionClientEntities) *gid.Gid { return &e.GetResult.RepReader }, ep.Key)
	case topicname.ActionStatus:
		return n.updateActionClient(d.Name, d.Type, func(e *ActionClientEntities) *gid.Gid { return &e.StatusReader }, ep.Key)
	case topicname.ActionFeedback:
		return n.updateActionClient(d.Name, d.Type, func(e *ActionClientEntities) *gid.Gid { return &e.FeedbackReader }, ep.Key)

	default:
		return nil
	}
}

// UpdateWithWriter is the writer-side mirror of UpdateWithReader.
func (n *NodeInfo) UpdateWithWriter(ep Endpoint) *DiscoveryEvent {
	d := topicname.Decode(ep.TopicName, ep.TypeName, true)

	switch d.Tag {
	case topicname.TopicPub:
		existing, had := n.Publishers[d.Name]
		wasComplete := had && existing.IsComplete()
		changed := existing.WriterGid != ep.Key
		existing.Name = d.Name
		existing.Type = resolveType(n.FullName, d.Name, existing.Type, d.Type)
		existing.WriterGid = ep.Key
		n.Publishers[d.Name] = existing
		if fires(wasComplete, existing.IsComplete(), changed) {
			return &DiscoveryEvent{Kind: DiscoveredTopicPub, NodeFullName: n.FullName, Publisher: clonePub(existing)}
		}
		return nil

	case topicname.ServiceReq:
		existing, had := n.ServiceClients[d.Name]
		wasComplete := had && existing.IsComplete()
		changed := existing.Entities.ReqWriter != ep.Key
		existing.Name = d.Name
		existing.Type = resolveType(n.FullName, d.Name, existing.Type, d.Type)
		existing.Entities.ReqWriter = ep.Key
		n.ServiceClients[d.Name] = existing
		if fires(wasComplete, existing.IsComplete(), changed) {
			return &DiscoveryEvent{Kind: DiscoveredServiceCli, NodeFullName: n.FullName, ServiceClient: cloneCli(existing)}
		}
		return nil

	case topicname.ServiceRep:
		existing, had := n.ServiceServers[d.Name]
		wasComplete := had && existing.IsComplete()
		changed := existing.Entities.RepWriter != ep.Key
		existing.Name = d.Name
		existing.Type = resolveType(n.FullName, d.Name, existing.Type, d.Type)
		existing.Entities.RepWriter = ep.Key
		n.ServiceServers[d.Name] = existing
		if fires(wasComplete, existing.IsComplete(), changed) {
			return &DiscoveryEvent{Kind: DiscoveredServiceSrv, NodeFullName: n.FullName, ServiceServer: cloneSrv(existing)}
		}
		return nil

	case topicname.ActionSendReq:
		return n.updateActionClient(d.Name, d.Type, func(e *ActionClientEntities) *gid.Gid { return &e.SendGoal.ReqWriter }, ep.Key)
	case topicname.ActionCancelReq:
		return n.updateActionClient(d.Name, d.Type, func(e *ActionClientEntities) *gid.Gid { return &e.CancelGoal.ReqWriter }, ep.Key)
	case topicname.ActionResultReq:
		return n.updateActionClient(d.Name, d.Type, func(e *ActionClientEntities) *gid.Gid { return &e.GetResult.ReqWriter }, ep.Key)
	case topicname.ActionSendRep:
		return n.updateActionServer(d.Name, d.Type, func(e *ActionServerEntities) *gid.Gid { return &e.SendGoal.RepWriter }, ep.Key)
	case topicname.ActionCancelRep:
		return n.updateActionServer(d.Name, d.Type, func(e *ActionServerEntities) *gid.Gid { return &e.CancelGoal.RepWriter }, ep.Key)
	case topicname.ActionResultRep:
		return n.updateActionServer(d.Name, d.Type, func(e *ActionServerEntities) *gid.Gid { return &e.GetResult.RepWriter }, ep.Key)
	case topicname.ActionStatus:
		return n.updateActionServer(d.Name, d.Type, func(e *ActionServerEntities) *gid.Gid { return &e.StatusWriter }, ep.Key)
	case topicname.ActionFeedback:
		return n.updateActionServer(d.Name, d.Type, func(e *ActionServerEntities) *gid.Gid { return &e.FeedbackWriter }, ep.Key)

	default:
		return nil
	}
}

func (n *NodeInfo) updateActionServer(name, typ string, field func(*ActionServerEntities) *gid.Gid, key gid.Gid) *DiscoveryEvent {
	existing, had := n.ActionServers[name]
	wasComplete := had && existing.IsComplete()
	slot := field(&existing.Entities)
	changed := *slot != key
	existing.Name = name
	existing.Type = resolveType(n.FullName, name, existing.Type, typ)
	*field(&existing.Entities) = key
	n.ActionServers[name] = existing
	if fires(wasComplete, existing.IsComplete(), changed) {
		return &DiscoveryEvent{Kind: DiscoveredActionSrv, NodeFullName: n.FullName, ActionServer: cloneActionSrv(existing)}
	}
	return nil
}

func (n *NodeInfo) updateActionClient(name, typ string, field func(*ActionClientEntities) *gid.Gid, key gid.Gid) *DiscoveryEvent {
	existing, had := n.ActionClients[name]
	wasComplete := had && existing.IsComplete()
	slot := field(&existing.Entities)
	changed := *slot != key
	existing.Name = name
	existing.Type = resolveType(n.FullName, name, existing.Type, typ)
	*field(&existing.Entities) = key
	n.ActionClients[name] = existing
	if fires(wasComplete, existing.IsComplete(), changed) {
		return &DiscoveryEvent{Kind: DiscoveredActionCli, NodeFullName: n.FullName, ActionClient: cloneActionCli(existing)}
	}
	return nil
}

// fires implements the Discovered* firing rule: the interface either just
// became complete, or was already complete and a tracked field changed.
func fires(wasComplete, isComplete, changed bool) bool {
	if !wasComplete && isComplete {
		return true
	}
	return wasComplete && isComplete && changed
}

// RemoveReader finds the interface (if any) whose stored reader Gid equals
// key and, if that interface was complete, returns the Undiscovered* event
// carrying a clone of it. A subscriber is deleted from its map; a service or
// action interface stays in its map with the matching slot reset to
// NotDiscovered. By invariant (1), at most one interface matches.
func (n *NodeInfo) RemoveReader(key gid.Gid) *DiscoveryEvent {
	for name, s := range n.Subscribers {
		if s.ReaderGid == key {
			wasComplete := s.IsComplete()
			delete(n.Subscribers, name)
			if wasComplete {
				return &DiscoveryEvent{Kind: UndiscoveredTopicSub, NodeFullName: n.FullName, Subscriber: cloneSub(s)}
			}
			return nil
		}
	}
	for name, s := range n.ServiceServers {
		if s.Entities.ReqReader == key {
			wasComplete := s.IsComplete()
			s.Entities.ReqReader = gid.NotDiscovered
			n.ServiceServers[name] = s
			if wasComplete {
				return &DiscoveryEvent{Kind: UndiscoveredServiceSrv, NodeFullName: n.FullName, ServiceServer: cloneSrv(s)}
			}
			return nil
		}
	}
	for name, c := range n.ServiceClients {
		if c.Entities.RepReader == key {
			wasComplete := c.IsComplete()
			c.Entities.RepReader = gid.NotDiscovered
			n.ServiceClients[name] = c
			if wasComplete {
				return &DiscoveryEvent{Kind: UndiscoveredServiceCli, NodeFullName: n.FullName, ServiceClient: cloneCli(c)}
			}
			return nil
		}
	}
	for name, a := range n.ActionClients {
		if readerKeyPresent(a, key) {
			wasComplete := a.IsComplete()
			clearActionClientReaderField(&a, key)
			nowComplete := a.IsComplete()
			n.ActionClients[name] = a
			if wasComplete && !nowComplete {
				return &DiscoveryEvent{Kind: UndiscoveredActionCli, NodeFullName: n.FullName, ActionClient: cloneActionCli(a)}
			}
			return nil
		}
	}
	for name, a := range n.ActionServers {
		e := &a.Entities
		for _, slot := range []*gid.Gid{&e.SendGoal.ReqReader, &e.CancelGoal.ReqReader, &e.GetResult.ReqReader} {
			if *slot != key {
				continue
			}
			wasComplete := a.IsComplete()
			*slot = gid.NotDiscovered
			n.ActionServers[name] = a
			if wasComplete {
				return &DiscoveryEvent{Kind: UndiscoveredActionSrv, NodeFullName: n.FullName, ActionServer: cloneActionSrv(a)}
			}
			return nil
		}
	}
	return nil
}

// RemoveWriter is the writer-side mirror of RemoveReader.
func (n *NodeInfo) RemoveWriter(key gid.Gid) *DiscoveryEvent {
	for name, p := range n.Publishers {
		if p.WriterGid == key {
			wasComplete := p.IsComplete()
			delete(n.Publishers, name)
			if wasComplete {
				return &DiscoveryEvent{Kind: UndiscoveredTopicPub, NodeFullName: n.FullName, Publisher: clonePub(p)}
			}
			return nil
		}
	}
	for name, s := range n.ServiceServers {
		if s.Entities.RepWriter == key {
			wasComplete := s.IsComplete()
			s.Entities.RepWriter = gid.NotDiscovered
			n.ServiceServers[name] = s
			if wasComplete {
				return &DiscoveryEvent{Kind: UndiscoveredServiceSrv, NodeFullName: n.FullName, ServiceServer: cloneSrv(s)}
			}
			return nil
		}
	}
	for name, c := range n.ServiceClients {
		if c.Entities.ReqWriter == key {
			wasComplete := c.IsComplete()
			c.Entities.ReqWriter = gid.NotDiscovered
			n.ServiceClients[name] = c
			if wasComplete {
				return &DiscoveryEvent{Kind: UndiscoveredServiceCli, NodeFullName: n.FullName, ServiceClient: cloneCli(c)}
			}
			return nil
		}
	}
	for name, a := range n.ActionServers {
		if writerKeyPresent(a, key) {
			wasComplete := a.IsComplete()
			clearActionServerWriterField(&a, key)
			nowComplete := a.IsComplete()
			n.ActionServers[name] = a
			if wasComplete && !nowComplete {
				return &DiscoveryEvent{Kind: UndiscoveredActionSrv, NodeFullName: n.FullName, ActionServer: cloneActionSrv(a)}
			}
			return nil
		}
	}
	for name, a := range n.ActionClients {
		e := &a.Entities
		for _, slot := range []*gid.Gid{&e.SendGoal.ReqWriter, &e.CancelGoal.ReqWriter, &e.GetResult.ReqWriter} {
			if *slot != key {
				continue
			}
			wasComplete := a.IsComplete()
			*slot = gid.NotDiscovered
			n.ActionClients[name] = a
			if wasComplete {
				return &DiscoveryEvent{Kind: UndiscoveredActionCli, NodeFullName: n.FullName, ActionClient: cloneActionCli(a)}
			}
			return nil
		}
	}
	return nil
}

// RemoveAllEntities tears down every interface on this NodeInfo, returning
// an Undiscovered* event for each one that was complete.
func (n *NodeInfo) RemoveAllEntities() []DiscoveryEvent {
	var events []DiscoveryEvent
	for _, p := range n.Publishers {
		if p.IsComplete() {
			events = append(events, DiscoveryEvent{Kind: UndiscoveredTopicPub, NodeFullName: n.FullName, Publisher: clonePub(p)})
		}
	}
	for _, s := range n.Subscribers {
		if s.IsComplete() {
			events = append(events, DiscoveryEvent{Kind: UndiscoveredTopicSub, NodeFullName: n.FullName, Subscriber: cloneSub(s)})
		}
	}
	for _, s := range n.ServiceServers {
		if s.IsComplete() {
			events = append(events, DiscoveryEvent{Kind: UndiscoveredServiceSrv, NodeFullName: n.FullName, ServiceServer: cloneSrv(s)})
		}
	}
	for _, c := range n.ServiceClients {
		if c.IsComplete() {
			events = append(events, DiscoveryEvent{Kind: UndiscoveredServiceCli, NodeFullName: n.FullName, ServiceClient: cloneCli(c)})
		}
	}
	for _, a := range n.ActionServers {
		if a.IsComplete() {
			events = append(events, DiscoveryEvent{Kind: UndiscoveredActionSrv, NodeFullName: n.FullName, ActionServer: cloneActionSrv(a)})
		}
	}
	for _, a := range n.ActionClients {
		if a.IsComplete() {
			events = append(events, DiscoveryEvent{Kind: UndiscoveredActionCli, NodeFullName: n.FullName, ActionClient: cloneActionCli(a)})
		}
	}
	n.Publishers = make(map[string]Publisher)
	n.Subscribers = make(map[string]Subscriber)
	n.ServiceServers = make(map[string]ServiceServer)
	n.ServiceClients = make(map[string]ServiceClient)
	n.ActionServers = make(map[string]ActionServer)
	n.ActionClients = make(map[string]ActionClient)
	return events
}

func writerKeyPresent(a ActionServer, key gid.Gid) bool {
	e := a.Entities
	return e.SendGoal.RepWriter == key || e.CancelGoal.RepWriter == key || e.GetResult.RepWriter == key ||
		e.StatusWriter == key || e.FeedbackWriter == key
}

func clearActionServerWriterField(a *ActionServer, key gid.Gid) {
	e := &a.Entities
	switch key {
	case e.SendGoal.RepWriter:
		e.SendGoal.RepWriter = gid.NotDiscovered
	case e.CancelGoal.RepWriter:
		e.CancelGoal.RepWriter = gid.NotDiscovered
	case e.GetResult.RepWriter:
		e.GetResult.RepWriter = gid.NotDiscovered
	case e.StatusWriter:
		e.StatusWriter = gid.NotDiscovered
	case e.FeedbackWriter:
		e.FeedbackWriter = gid.NotDiscovered
	}
}

func readerKeyPresent(a ActionClient, key gid.Gid) bool {
	e := a.Entities
	return e.SendGoal.RepReader == key || e.CancelGoal.RepReader == key || e.GetResult.RepReader == key ||
		e.StatusReader == key || e.FeedbackReader == key
}

func clearActionClientReaderField(a *ActionClient, key gid.Gid) bool {
	e := &a.Entities
	switch key {
	case e.SendGoal.RepReader:
		e.SendGoal.RepReader = gid.NotDiscovered
	case e.CancelGoal.RepReader:
		e.CancelGoal.RepReader = gid.NotDiscovered
	case e.GetResult.RepReader:
		e.GetResult.RepReader = gid.NotDiscovered
	case e.StatusReader:
		e.StatusReader = gid.NotDiscovered
	case e.FeedbackReader:
		e.FeedbackReader = gid.NotDiscovered
	default:
		return false
	}
	return true
}

func clonePub(p Publisher) *Publisher             { c := p; return &c }
func cloneSub(s Subscriber) *Subscriber           { c := s; return &c }
func cloneSrv(s ServiceServer) *ServiceServer     { c := s; return &c }
func cloneCli(c ServiceClient) *ServiceClient     { d := c; return &d }
func cloneActionSrv(a ActionServer) *ActionServer { c := a; return &c }
func cloneActionCli(a ActionClient) *ActionClient { c := a; return &c }
