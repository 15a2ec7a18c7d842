package overlay

import (
	"context"
	"strings"
	"sync"
	"time"
)

// keyExprMatchesSelector does a minimal "*" single-segment / "**"
// zero-or-more-segment match, sufficient for the fake's test usage; it does
// not aim to be a complete key-expression matcher.
func keyExprMatchesSelector(ke, selector string) bool {
	if ke == selector {
		return true
	}
	keSegs := strings.Split(ke, "/")
	selSegs := strings.Split(selector, "/")
	var match func(a, b []string) bool
	match = func(a, b []string) bool {
		if len(b) == 0 {
			return len(a) == 0
		}
		if b[0] == "**" {
			if match(a, b[1:]) {
				return true
			}
			if len(a) == 0 {
				return false
			}
			return match(a[1:], b)
		}
		if len(a) == 0 {
			return false
		}
		if b[0] != "*" && b[0] != a[0] {
			return false
		}
		return match(a[1:], b[1:])
	}
	return match(keSegs, selSegs)
}

// fabric is the shared in-memory overlay medium behind one or more Fake
// session handles. Two Fake handles built over the same fabric (via
// NewPeer) behave like two independent bridge processes sharing one
// overlay, with distinct session ids so Locality filtering is meaningful;
// a single Fake used on its own behaves like one session talking only to
// itself, where LocalityRemote declarations never see their own traffic.
type fabric struct {
	mu sync.Mutex

	publishers map[string]*fakePublisher
	subs       map[string][]fakeSubEntry
	queryables map[string]fakeQueryableEntry
	live       map[string]int
	nextSid    uint64
	nextSubID  uint64
}

type fakeSubEntry struct {
	id     uint64
	sid    uint64
	origin Locality
	cb     func(Sample)
}

type fakeQueryableEntry struct {
	sid     uint64
	origin  Locality
	handler func(Query, Replier)
}

// Fake is an in-memory Session used by route and bridge tests. Publication
// caches retain their configured history depth so DeclareFetchingSubscriber
// and Get can recover it, mirroring the real fabric's retained-history
// behavior closely enough to exercise the route logic that depends on it.
type Fake struct {
	fab *fabric
	sid uint64
}

// NewFake constructs an empty fake overlay session.
func NewFake() *Fake {
	fab := &fabric{
		publishers: make(map[string]*fakePublisher),
		subs:       make(map[string][]fakeSubEntry),
		queryables: make(map[string]fakeQueryableEntry),
		live:       make(map[string]int),
		nextSid:    2,
	}
	return &Fake{fab: fab, sid: 1}
}

// NewPeer returns a second session handle sharing this Fake's underlying
// medium but with a distinct session id, for tests that simulate two
// bridge processes on one overlay and assert on LocalityRemote filtering.
func (f *Fake) NewPeer() *Fake {
	f.fab.mu.Lock()
	defer f.fab.mu.Unlock()
	sid := f.fab.nextSid
	f.fab.nextSid++
	return &Fake{fab: f.fab, sid: sid}
}

type fakePublisher struct {
	fab             *fabric
	sid             uint64
	keyExpr         string
	historyDepth    int
	congestion      CongestionControl
	queryableOrigin Locality
	history         []Sample
	deleted         bool
}

func (p *fakePublisher) Put(ctx context.Context, payload []byte) error {
	p.fab.mu.Lock()
	if p.historyDepth > 0 {
		p.history = append(p.history, Sample{KeyExpr: p.keyExpr, Payload: payload})
		if len(p.history) > p.historyDepth {
			p.history = p.history[len(p.history)-p.historyDepth:]
		}
	}
	var subs []fakeSubEntry
	subs = append(subs, p.fab.subs[p.keyExpr]...)
	p.fab.mu.Unlock()

	for _, s := range subs {
		if s.origin == LocalityRemote && s.sid == p.sid {
			continue
		}
		s.cb(Sample{KeyExpr: p.keyExpr, Payload: payload})
	}
	return nil
}

func (p *fakePublisher) Delete(ctx context.Context) error {
	p.fab.mu.Lock()
	defer p.fab.mu.Unlock()
	p.deleted = true
	delete(p.fab.publishers, p.keyExpr)
	return nil
}

func (f *Fake) DeclarePublisher(ctx context.Context, keyExpr string, congestion CongestionControl) (Publisher, error) {
	f.fab.mu.Lock()
	defer f.fab.mu.Unlock()
	p := &fakePublisher{fab: f.fab, sid: f.sid, keyExpr: keyExpr, congestion: congestion}
	f.fab.publishers[keyExpr] = p
	return p, nil
}

func (f *Fake) DeclarePublicationCache(ctx context.Context, keyExpr string, historyDepth int, congestion CongestionControl, queryableOrigin Locality) (Publisher, error) {
	f.fab.mu.Lock()
	defer f.fab.mu.Unlock()
	p := &fakePublisher{fab: f.fab, sid: f.sid, keyExpr: keyExpr, historyDepth: historyDepth, congestion: congestion, queryableOrigin: queryableOrigin}
	f.fab.publishers[keyExpr] = p
	return p, nil
}

type fakeSubscriber struct {
	fab     *fabric
	keyExpr string
	id      uint64
}

func (s *fakeSubscriber) Close(ctx context.Context) error {
	s.fab.mu.Lock()
	defer s.fab.mu.Unlock()
	entries := s.fab.subs[s.keyExpr]
	for i, e := range entries {
		if e.id == s.id {
			s.fab.subs[s.keyExpr] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	return nil
}

func (f *Fake) DeclareSubscriber(ctx context.Context, keyExpr string, allowedOrigin Locality, onSample func(Sample)) (Subscriber, error) {
	f.fab.mu.Lock()
	defer f.fab.mu.Unlock()
	id := f.fab.nextSubID
	f.fab.nextSubID++
	f.fab.subs[keyExpr] = append(f.fab.subs[keyExpr], fakeSubEntry{id: id, sid: f.sid, origin: allowedOrigin, cb: onSample})
	return &fakeSubscriber{fab: f.fab, keyExpr: keyExpr, id: id}, nil
}

func (f *Fake) DeclareFetchingSubscriber(ctx context.Context, keyExpr, fetchSelector string, timeout time.Duration, allowedOrigin Locality, onSample func(Sample)) (FetchingSubscriber, error) {
	f.fab.mu.Lock()
	var history []Sample
	for ke, pub := range f.fab.publishers {
		if !keyExprMatchesSelector(ke, fetchSelector) {
			continue
		}
		if pub.queryableOrigin == LocalityRemote && pub.sid == f.sid {
			continue
		}
		history = append(history, pub.history...)
	}
	id := f.fab.nextSubID
	f.fab.nextSubID++
	f.fab.subs[keyExpr] = append(f.fab.subs[keyExpr], fakeSubEntry{id: id, sid: f.sid, origin: allowedOrigin, cb: onSample})
	f.fab.mu.Unlock()

	for _, s := range history {
		onSample(s)
	}
	return &fakeSubscriber{fab: f.fab, keyExpr: keyExpr, id: id}, nil
}

type fakeQueryable struct {
	fab     *fabric
	keyExpr string
}

func (q *fakeQueryable) Close(ctx context.Context) error {
	q.fab.mu.Lock()
	defer q.fab.mu.Unlock()
	delete(q.fab.queryables, q.keyExpr)
	return nil
}

func (f *Fake) DeclareQueryable(ctx context.Context, keyExpr string, onQuery func(Query, Replier)) (Queryable, error) {
	f.fab.mu.Lock()
	defer f.fab.mu.Unlock()
	f.fab.queryables[keyExpr] = fakeQueryableEntry{sid: f.sid, origin: LocalityAny, handler: onQuery}
	return &fakeQueryable{fab: f.fab, keyExpr: keyExpr}, nil
}

type fakeToken struct {
	fab     *fabric
	keyExpr string
}

func (t *fakeToken) Undeclare(ctx context.Context) error {
	t.fab.mu.Lock()
	defer t.fab.mu.Unlock()
	t.fab.live[t.keyExpr]--
	return nil
}

func (f *Fake) DeclareLivelinessToken(ctx context.Context, keyExpr string) (LivelinessToken, error) {
	f.fab.mu.Lock()
	defer f.fab.mu.Unlock()
	f.fab.live[keyExpr]++
	return &fakeToken{fab: f.fab, keyExpr: keyExpr}, nil
}

type fakeReplier struct {
	onReply func(Sample)
}

func (r *fakeReplier) Reply(keyExpr string, payload []byte) error {
	r.onReply(Sample{KeyExpr: keyExpr, Payload: payload})
	return nil
}

func (r *fakeReplier) Finish() {}

func (f *Fake) Get(ctx context.Context, keyExpr string, onReply func(Sample)) error {
	f.fab.mu.Lock()
	var history []Sample
	if pub, ok := f.fab.publishers[keyExpr]; ok {
		if pub.queryableOrigin != LocalityRemote || pub.sid != f.sid {
			history = append(history, pub.history...)
		}
	}
	var matched []func(Query, Replier)
	for pattern, q := range f.fab.queryables {
		if !keyExprMatchesSelector(keyExpr, pattern) {
			continue
		}
		if q.origin == LocalityRemote && q.sid == f.sid {
			continue
		}
		matched = append(matched, q.handler)
	}
	f.fab.mu.Unlock()

	for _, s := range history {
		onReply(s)
	}
	for _, handler := range matched {
		handler(Query{KeyExpr: keyExpr, Selector: keyExpr}, &fakeReplier{onReply: onReply})
	}
	return nil
}

// LivelinessCount reports how many tokens are currently held under keyExpr,
// for test assertions.
func (f *Fake) LivelinessCount(keyExpr string) int {
	f.fab.mu.Lock()
	defer f.fab.mu.Unlock()
	return f.fab.live[keyExpr]
}
