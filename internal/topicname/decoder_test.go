package topicname

import "testing"

func TestDecodePlainPubSub(t *testing.T) {
	pub := Decode("rt/foo", "pkg::dds_::Foo_", true)
	if pub.Tag != TopicPub || pub.Name != "foo" || pub.Type != "pkg/Foo" {
		t.Fatalf("unexpected decode: %+v", pub)
	}

	sub := Decode("rt/foo", "pkg::dds_::Foo_", false)
	if sub.Tag != TopicSub || sub.Name != "foo" {
		t.Fatalf("unexpected decode: %+v", sub)
	}
}

func TestDecodeActionStatusAndFeedback(t *testing.T) {
	status := Decode("rt/turtle/_action/status", "whatever_", true)
	if status.Tag != ActionStatus || status.Name != "turtle" || status.Type != "" {
		t.Fatalf("unexpected decode: %+v", status)
	}

	feedback := Decode("rt/turtle/_action/feedback", "pkg::dds_::Turtle_FeedbackMessage_", true)
	if feedback.Tag != ActionFeedback || feedback.Name != "turtle" || feedback.Type != "pkg/Turtle" {
		t.Fatalf("unexpected decode: %+v", feedback)
	}
}

func TestDecodeServiceRequestReply(t *testing.T) {
	req := Decode("rq/svcRequest", "pkg::dds_::Svc_Request_", true)
	if req.Tag != ServiceReq || req.Name != "svc" || req.Type != "pkg/Svc" {
		t.Fatalf("unexpected decode: %+v", req)
	}

	rep := Decode("rr/svcReply", "pkg::dds_::Svc_Response_", false)
	if rep.Tag != ServiceRep || rep.Name != "svc" || rep.Type != "pkg/Svc" {
		t.Fatalf("unexpected decode: %+v", rep)
	}
}

func TestDecodeActionSubStreams(t *testing.T) {
	sendReq := Decode("rq/turtle/_action/send_goalRequest", "pkg::dds_::Turtle_SendGoal_Request_", true)
	if sendReq.Tag != ActionSendReq || sendReq.Name != "turtle" {
		t.Fatalf("unexpected decode: %+v", sendReq)
	}

	cancelReq := Decode("rq/turtle/_action/cancel_goalRequest", "anything", true)
	if cancelReq.Tag != ActionCancelReq || cancelReq.Name != "turtle" || cancelReq.Type != "" {
		t.Fatalf("unexpected decode: %+v", cancelReq)
	}

	resultReq := Decode("rq/turtle/_action/get_resultRequest", "pkg::dds_::Turtle_GetResult_Request_", true)
	if resultReq.Tag != ActionResultReq || resultReq.Name != "turtle" {
		t.Fatalf("unexpected decode: %+v", resultReq)
	}

	cancelRep := Decode("rr/turtle/_action/cancel_goalReply", "anything", false)
	if cancelRep.Tag != ActionCancelRep || cancelRep.Name != "turtle" || cancelRep.Type != "" {
		t.Fatalf("unexpected decode: %+v", cancelRep)
	}
}

func TestDecodeNonRos(t *testing.T) {
	d := Decode("some/other/topic", "whatever", true)
	if d.Tag != NonRos {
		t.Fatalf("expected NonRos, got %+v", d)
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		tag  Tag
	}{
		{"foo", TopicPub},
		{"foo", TopicSub},
		{"turtle", ActionStatus},
		{"turtle", ActionFeedback},
		{"svc", ServiceReq},
		{"svc", ServiceRep},
		{"turtle", ActionSendReq},
		{"turtle", ActionSendRep},
		{"turtle", ActionCancelReq},
		{"turtle", ActionCancelRep},
		{"turtle", ActionResultReq},
		{"turtle", ActionResultRep},
	}

	for _, c := range cases {
		encoded := Encode(c.name, c.tag)
		isWriter := c.tag == TopicPub
		decoded := Decode(encoded, "", isWriter)
		if decoded.Tag != c.tag || decoded.Name != c.name {
			t.Fatalf("round trip failed for %+v: got name=%q tag=%v from %q", c, decoded.Name, decoded.Tag, encoded)
		}
	}
}
