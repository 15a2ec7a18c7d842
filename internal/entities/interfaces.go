// Package entities models the per-node aggregate of logical interfaces
// (publishers, subscribers, service endpoints, action endpoints) built on
// top of the flat reader/writer endpoints the native middleware exposes.
package entities

import "github.com/ZettaScaleLabs/zplugin-ros2/internal/gid"

// resolved reports whether an endpoint slot holds a discovered Gid. A slot
// that was never filled in holds the zero Gid, which IsDiscovered accepts,
// so the zero Gid is excluded here too.
func resolved(g gid.Gid) bool { return g.IsDiscovered() && g != gid.Gid{} }

// Publisher is complete once its writer endpoint has been discovered.
type Publisher struct {
	Name      string
	Type      string
	WriterGid gid.Gid
}

func (p Publisher) IsComplete() bool { return resolved(p.WriterGid) }

// Subscriber is complete once its reader endpoint has been discovered.
type Subscriber struct {
	Name      string
	Type      string
	ReaderGid gid.Gid
}

func (s Subscriber) IsComplete() bool { return resolved(s.ReaderGid) }

// ServiceServerEntities holds the two endpoints backing a service server:
// the request reader and the reply writer.
type ServiceServerEntities struct {
	ReqReader gid.Gid
	RepWriter gid.Gid
}

func (e ServiceServerEntities) IsComplete() bool {
	return resolved(e.ReqReader) && resolved(e.RepWriter)
}

type ServiceServer struct {
	Name     string
	Type     string
	Entities ServiceServerEntities
}

func (s ServiceServer) IsComplete() bool { return s.Entities.IsComplete() }

// ServiceClientEntities holds the two endpoints backing a service client:
// the request writer and the reply reader.
type ServiceClientEntities struct {
	ReqWriter gid.Gid
	RepReader gid.Gid
}

func (e ServiceClientEntities) IsComplete() bool {
	return resolved(e.ReqWriter) && resolved(e.RepReader)
}

type ServiceClient struct {
	Name     string
	Type     string
	Entities ServiceClientEntities
}

func (s ServiceClient) IsComplete() bool { return s.Entities.IsComplete() }

// ActionServerEntities holds the three constituent services plus the two
// standalone writer endpoints (status, feedback) of an action server.
// Completeness gates on all five: the three services and both standalone
// writers (eight Gids total) must be discovered.
type ActionServerEntities struct {
	SendGoal       ServiceServerEntities
	CancelGoal     ServiceServerEntities
	GetResult      ServiceServerEntities
	StatusWriter   gid.Gid
	FeedbackWriter gid.Gid
}

func (e ActionServerEntities) IsComplete() bool {
	return e.SendGoal.IsComplete() && e.CancelGoal.IsComplete() && e.GetResult.IsComplete() &&
		resolved(e.StatusWriter) && resolved(e.FeedbackWriter)
}

type ActionServer struct {
	Name     string
	Type     string
	Entities ActionServerEntities
}

func (a ActionServer) IsComplete() bool { return a.Entities.IsComplete() }

// ActionClientEntities is the client-side mirror of ActionServerEntities:
// three constituent services plus two standalone reader endpoints. All
// eight Gids must be discovered for the action client to be complete.
type ActionClientEntities struct {
	SendGoal       ServiceClientEntities
	CancelGoal     ServiceClientEntities
	GetResult      ServiceClientEntities
	StatusReader   gid.Gid
	FeedbackReader gid.Gid
}

func (e ActionClientEntities) IsComplete() bool {
	return e.SendGoal.IsComplete() && e.CancelGoal.IsComplete() && e.GetResult.IsComplete() &&
		resolved(e.StatusReader) && resolved(e.FeedbackReader)
}

type ActionClient struct {
	Name     string
	Type     string
	Entities ActionClientEntities
}

func (a ActionClient) IsComplete() bool { return a.Entities.IsComplete() }
