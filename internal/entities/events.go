package entities

// EventKind enumerates every Discovered*/Undiscovered* event the NodeInfo
// update protocol can emit.
type EventKind int

const (
	DiscoveredTopicPub EventKind = iota
	UndiscoveredTopicPub
	DiscoveredTopicSub
	UndiscoveredTopicSub
	DiscoveredServiceSrv
	UndiscoveredServiceSrv
	DiscoveredServiceCli
	UndiscoveredServiceCli
	DiscoveredActionSrv
	UndiscoveredActionSrv
	DiscoveredActionCli
	UndiscoveredActionCli
)

func (k EventKind) String() string {
	switch k {
	case DiscoveredTopicPub:
		return "DiscoveredTopicPub"
	case UndiscoveredTopicPub:
		return "UndiscoveredTopicPub"
	case DiscoveredTopicSub:
		return "DiscoveredTopicSub"
	case UndiscoveredTopicSub:
		return "UndiscoveredTopicSub"
	case DiscoveredServiceSrv:
		return "DiscoveredServiceSrv"
	case UndiscoveredServiceSrv:
		return "UndiscoveredServiceSrv"
	case DiscoveredServiceCli:
		return "DiscoveredServiceCli"
	case UndiscoveredServiceCli:
		return "UndiscoveredServiceCli"
	case DiscoveredActionSrv:
		return "DiscoveredActionSrv"
	case UndiscoveredActionSrv:
		return "UndiscoveredActionSrv"
	case DiscoveredActionCli:
		return "DiscoveredActionCli"
	case UndiscoveredActionCli:
		return "UndiscoveredActionCli"
	default:
		return "Unknown"
	}
}

// DiscoveryEvent is emitted by the NodeInfo update protocol whenever an
// interface transitions into or out of completeness. Exactly one payload
// field is populated, matching Kind.
type DiscoveryEvent struct {
	Kind         EventKind
	NodeFullName string

	Publisher     *Publisher
	Subscriber    *Subscriber
	ServiceServer *ServiceServer
	ServiceClient *ServiceClient
	ActionServer  *ActionServer
	ActionClient  *ActionClient
}

// InterfaceName returns the logical interface name carried by the event,
// used to key route tables and allow/deny policy evaluation.
func (e DiscoveryEvent) InterfaceName() string {
	switch {
	case e.Publisher != nil:
		return e.Publisher.Name
	case e.Subscriber != nil:
		return e.Subscriber.Name
	case e.ServiceServer != nil:
		return e.ServiceServer.Name
	case e.ServiceClient != nil:
		return e.ServiceClient.Name
	case e.ActionServer != nil:
		return e.ActionServer.Name
	case e.ActionClient != nil:
		return e.ActionClient.Name
	default:
		return ""
	}
}
