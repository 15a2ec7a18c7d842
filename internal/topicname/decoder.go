// Package topicname decodes the flat topic names and type names the native
// middleware exposes into the interface-side name and tag the rest of the
// bridge reasons about. The decoder is pure and stateless.
package topicname

import "strings"

// Tag classifies a decoded topic/type name pair.
type Tag int

const (
	NonRos Tag = iota
	TopicPub
	TopicSub
	ServiceReq
	ServiceRep
	ActionSendReq
	ActionSendRep
	ActionCancelReq
	ActionCancelRep
	ActionResultReq
	ActionResultRep
	ActionStatus
	ActionFeedback
)

func (t Tag) String() string {
	switch t {
	case TopicPub:
		return "TopicPub"
	case TopicSub:
		return "TopicSub"
	case ServiceReq:
		return "ServiceReq"
	case ServiceRep:
		return "ServiceRep"
	case ActionSendReq:
		return "ActionSendReq"
	case ActionSendRep:
		return "ActionSendRep"
	case ActionCancelReq:
		return "ActionCancelReq"
	case ActionCancelRep:
		return "ActionCancelRep"
	case ActionResultReq:
		return "ActionResultReq"
	case ActionResultRep:
		return "ActionResultRep"
	case ActionStatus:
		return "ActionStatus"
	case ActionFeedback:
		return "ActionFeedback"
	default:
		return "NonRos"
	}
}

const (
	prefixTopic   = "rt/"
	prefixRequest = "rq/"
	prefixReply   = "rr/"

	suffixActionStatus   = "/_action/status"
	suffixActionFeedback = "/_action/feedback"

	suffixActionSendGoalRequest   = "/_action/send_goalRequest"
	suffixActionCancelGoalRequest = "/_action/cancel_goalRequest"
	suffixActionGetResultRequest  = "/_action/get_resultRequest"

	suffixActionSendGoalReply   = "/_action/send_goalReply"
	suffixActionCancelGoalReply = "/_action/cancel_goalReply"
	suffixActionGetResultReply  = "/_action/get_resultReply"

	suffixRequest = "Request"
	suffixReply   = "Reply"
)

// Decoded holds the result of decoding a flat topic/type name pair.
type Decoded struct {
	Name string
	Type string
	Tag  Tag
}

// Decode classifies a flat middleware topic name (and its paired type name)
// into an interface-side name and tag. isWriter distinguishes a plain
// "rt/…" stream as a publisher (writer endpoint) or a subscriber (reader
// endpoint); every other stream's tag is unambiguous from the name alone.
func Decode(topicName, typeName string, isWriter bool) Decoded {
	switch {
	case strings.HasPrefix(topicName, prefixTopic):
		return decodeTopicStream(topicName[len(prefixTopic):], typeName, isWriter)
	case strings.HasPrefix(topicName, prefixRequest):
		return decodeRequestStream(topicName[len(prefixRequest):], typeName)
	case strings.HasPrefix(topicName, prefixReply):
		return decodeReplyStream(topicName[len(prefixReply):], typeName)
	default:
		return Decoded{Name: topicName, Type: typeName, Tag: NonRos}
	}
}

func decodeTopicStream(rest, typeName string, isWriter bool) Decoded {
	switch {
	case strings.HasSuffix(rest, suffixActionStatus):
		name := strings.TrimSuffix(rest, suffixActionStatus)
		return Decoded{Name: name, Type: "", Tag: ActionStatus}
	case strings.HasSuffix(rest, suffixActionFeedback):
		name := strings.TrimSuffix(rest, suffixActionFeedback)
		return Decoded{Name: name, Type: normalizeFeedbackType(typeName), Tag: ActionFeedback}
	case isWriter:
		return Decoded{Name: rest, Type: normalizeType(typeName), Tag: TopicPub}
	default:
		return Decoded{Name: rest, Type: normalizeType(typeName), Tag: TopicSub}
	}
}

func decodeRequestStream(rest, typeName string) Decoded {
	switch {
	case strings.HasSuffix(rest, suffixActionSendGoalRequest):
		name := strings.TrimSuffix(rest, suffixActionSendGoalRequest)
		return Decoded{Name: name, Type: normalizeSendGoalRequestType(typeName), Tag: ActionSendReq}
	case strings.HasSuffix(rest, suffixActionCancelGoalRequest):
		name := strings.TrimSuffix(rest, suffixActionCancelGoalRequest)
		return Decoded{Name: name, Type: "", Tag: ActionCancelReq}
	case strings.HasSuffix(rest, suffixActionGetResultRequest):
		name := strings.TrimSuffix(rest, suffixActionGetResultRequest)
		return Decoded{Name: name, Type: normalizeRequestType(typeName), Tag: ActionResultReq}
	case strings.HasSuffix(rest, suffixRequest):
		name := strings.TrimSuffix(rest, suffixRequest)
		return Decoded{Name: name, Type: normalizeRequestType(typeName), Tag: ServiceReq}
	default:
		return Decoded{Name: rest, Type: normalizeType(typeName), Tag: NonRos}
	}
}

func decodeReplyStream(rest, typeName string) Decoded {
	switch {
	case strings.HasSuffix(rest, suffixActionSendGoalReply):
		name := strings.TrimSuffix(rest, suffixActionSendGoalReply)
		return Decoded{Name: name, Type: normalizeReplyType(typeName), Tag: ActionSendRep}
	case strings.HasSuffix(rest, suffixActionCancelGoalReply):
		name := strings.TrimSuffix(rest, suffixActionCancelGoalReply)
		return Decoded{Name: name, Type: "", Tag: ActionCancelRep}
	case strings.HasSuffix(rest, suffixActionGetResultReply):
		name := strings.TrimSuffix(rest, suffixActionGetResultReply)
		return Decoded{Name: name, Type: normalizeReplyType(typeName), Tag: ActionResultRep}
	case strings.HasSuffix(rest, suffixReply):
		name := strings.TrimSuffix(rest, suffixReply)
		return Decoded{Name: name, Type: normalizeReplyType(typeName), Tag: ServiceRep}
	default:
		return Decoded{Name: rest, Type: normalizeType(typeName), Tag: NonRos}
	}
}

// Encode is the inverse of Decode for the tags it supports, used by the
// decoder round-trip property test. It reconstructs the flat topic name
// from an interface-side name and tag; the type name is not reconstructed
// (it is not recoverable from the decoded name+tag alone for every tag).
func Encode(name string, tag Tag) string {
	switch tag {
	case TopicPub, TopicSub:
		return prefixTopic + name
	case ActionStatus:
		return prefixTopic + name + suffixActionStatus
	case ActionFeedback:
		return prefixTopic + name + suffixActionFeedback
	case ServiceReq:
		return prefixRequest + name + suffixRequest
	case ServiceRep:
		return prefixReply + name + suffixReply
	case ActionSendReq:
		return prefixRequest + name + suffixActionSendGoalRequest
	case ActionSendRep:
		return prefixReply + name + suffixActionSendGoalReply
	case ActionCancelReq:
		return prefixRequest + name + suffixActionCancelGoalRequest
	case ActionCancelRep:
		return prefixReply + name + suffixActionCancelGoalReply
	case ActionResultReq:
		return prefixRequest + name + suffixActionGetResultRequest
	case ActionResultRep:
		return prefixReply + name + suffixActionGetResultReply
	default:
		return name
	}
}

// normalizeType strips the "::dds_::" infix, collapses "::" to "/", and
// strips a trailing "_", e.g. "pkg::dds_::Foo_" -> "pkg/Foo".
func normalizeType(typeName string) string {
	if typeName == "" {
		return ""
	}
	t := strings.ReplaceAll(typeName, "::dds_::", "::")
	t = strings.ReplaceAll(t, "::", "/")
	t = strings.TrimSuffix(t, "_")
	return t
}

// normalizeRequestType strips the "_Request_" service/action sub-stream
// suffix (or its action variants) before normalizing.
func normalizeRequestType(typeName string) string {
	for _, infix := range []string{"_SendGoal_Request_", "_GetResult_Request_", "_Request_"} {
		if idx := strings.Index(typeName, infix); idx >= 0 {
			return normalizeType(typeName[:idx])
		}
	}
	return normalizeType(typeName)
}

// normalizeReplyType strips the "_Response_" service/action sub-stream
// suffix (or its action variants) before normalizing.
func normalizeReplyType(typeName string) string {
	for _, infix := range []string{"_SendGoal_Response_", "_GetResult_Response_", "_Response_"} {
		if idx := strings.Index(typeName, infix); idx >= 0 {
			return normalizeType(typeName[:idx])
		}
	}
	return normalizeType(typeName)
}

// normalizeSendGoalRequestType strips the send-goal request sub-stream
// suffix before normalizing.
func normalizeSendGoalRequestType(typeName string) string {
	if idx := strings.Index(typeName, "_SendGoal_Request_"); idx >= 0 {
		return normalizeType(typeName[:idx])
	}
	return normalizeRequestType(typeName)
}

// normalizeFeedbackType strips the "_FeedbackMessage_" sub-stream suffix
// before normalizing.
func normalizeFeedbackType(typeName string) string {
	if idx := strings.Index(typeName, "_FeedbackMessage_"); idx >= 0 {
		return normalizeType(typeName[:idx])
	}
	return normalizeType(typeName)
}
