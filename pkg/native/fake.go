package native

import (
	"context"
	"sync"

	"github.com/ZettaScaleLabs/zplugin-ros2/internal/qos"
)

// Fake is an in-memory DiscoveryStream + ManifestPoller + EndpointFactory
// used by the bridge's own tests in place of real native bindings.
type Fake struct {
	mu sync.Mutex

	events    []DiscoveryEvent
	cond      *sync.Cond
	closed    bool
	manifests []Manifest

	created        []FakeEndpoint
	readerForwards []ForwardFunc
}

// FakeEndpoint records one CreateReader/CreateWriter call for assertions.
type FakeEndpoint struct {
	Topic    string
	TypeName string
	Keyless  bool
	Qos      qos.Qos
	IsWriter bool
	Deleted  bool
}

// NewFake constructs an empty fake.
func NewFake() *Fake {
	f := &Fake{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Push enqueues a raw discovery event for a subsequent Next call to
// deliver. Safe to call concurrently with Next.
func (f *Fake) Push(ev DiscoveryEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	f.cond.Signal()
}

// Close unblocks any pending Next with context.Canceled-equivalent
// behavior by marking the stream closed.
func (f *Fake) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}

func (f *Fake) Next(ctx context.Context) (DiscoveryEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.events) == 0 && !f.closed {
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				f.cond.Broadcast()
			case <-done:
			}
		}()
		f.cond.Wait()
		close(done)
		if err := ctx.Err(); err != nil {
			return DiscoveryEvent{}, err
		}
	}
	if len(f.events) == 0 {
		return DiscoveryEvent{}, context.Canceled
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return ev, nil
}

// SetManifests replaces what PollManifests returns on its next call.
func (f *Fake) SetManifests(m []Manifest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manifests = m
}

func (f *Fake) PollManifests(ctx context.Context) ([]Manifest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Manifest, len(f.manifests))
	copy(out, f.manifests)
	return out, nil
}

func (f *Fake) CreateReader(ctx context.Context, topic, typeName string, keyless bool, q qos.Qos, forward ForwardFunc) (EndpointHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := &fakeHandle{f: f, idx: len(f.created)}
	f.created = append(f.created, FakeEndpoint{Topic: topic, TypeName: typeName, Keyless: keyless, Qos: q})
	f.readerForwards = append(f.readerForwards, forward)
	return h, nil
}

// DeliverToReader invokes the forward callback registered by the idx-th
// CreateReader call, simulating a native sample arriving on that reader.
func (f *Fake) DeliverToReader(idx int, payload []byte) error {
	f.mu.Lock()
	fwd := f.readerForwards[idx]
	f.mu.Unlock()
	return fwd(payload)
}

func (f *Fake) CreateWriter(ctx context.Context, topic, typeName string, keyless bool, q qos.Qos) (EndpointHandle, ForwardFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := &fakeHandle{f: f, idx: len(f.created)}
	f.created = append(f.created, FakeEndpoint{Topic: topic, TypeName: typeName, Keyless: keyless, Qos: q, IsWriter: true})
	return h, func(payload []byte) error { return nil }, nil
}

// Created returns a snapshot of every endpoint created so far.
func (f *Fake) Created() []FakeEndpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeEndpoint, len(f.created))
	copy(out, f.created)
	return out
}

type fakeHandle struct {
	f   *Fake
	idx int
}

func (h *fakeHandle) Delete(ctx context.Context) error {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	h.f.created[h.idx].Deleted = true
	return nil
}
