// Package discovery implements the Discovery Coordinator: the single
// goroutine that owns all registry mutation, draining the raw native
// discovery stream and periodically polling participant manifests, then
// forwarding every typed DiscoveryEvent the registry emits.
package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ZettaScaleLabs/zplugin-ros2/internal/entities"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/gid"
	"github.com/ZettaScaleLabs/zplugin-ros2/internal/registry"
	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/native"
)

// DefaultPollInterval is how often manifests are re-fetched absent an
// explicit Config.PollInterval.
const DefaultPollInterval = 100 * time.Millisecond

// Config configures a Coordinator.
type Config struct {
	Stream       native.DiscoveryStream
	Poller       native.ManifestPoller
	Registry     *registry.Registry
	PollInterval time.Duration

	// Events receives every DiscoveryEvent the registry emits, in the
	// order it was produced. The coordinator blocks sending to it, so
	// callers must keep it drained (buffer it or fan it out promptly).
	Events chan<- entities.DiscoveryEvent
}

// Coordinator owns the registry's only writer goroutine: discovery
// notifications and manifest polls are serialized through a single select
// loop, so the registry itself needs no lock discipline beyond what it
// already has for concurrent admin/route reads.
type Coordinator struct {
	cfg    Config
	stopCh chan struct{}
	doneCh chan struct{}

	once sync.Once
}

// New constructs a Coordinator. Call Run to start it.
func New(cfg Config) *Coordinator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Coordinator{
		cfg:    cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Run drives the select loop until ctx is done or Stop is called. It
// blocks; callers typically invoke it in its own goroutine.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	eventCh := make(chan native.DiscoveryEvent)
	errCh := make(chan error, 1)
	go c.pumpStream(ctx, eventCh, errCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case err := <-errCh:
			if err != nil {
				log.Warn().Err(err).Msg("discovery stream ended")
			}
			return
		case ev := <-eventCh:
			c.applyRaw(ev)
		case <-ticker.C:
			c.poll(ctx)
		}
	}
}

// Stop requests the loop to exit and blocks until it has.
func (c *Coordinator) Stop() {
	c.once.Do(func() { close(c.stopCh) })
	<-c.doneCh
}

func (c *Coordinator) pumpStream(ctx context.Context, out chan<- native.DiscoveryEvent, errCh chan<- error) {
	for {
		ev, err := c.cfg.Stream.Next(ctx)
		if err != nil {
			errCh <- err
			return
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Coordinator) applyRaw(ev native.DiscoveryEvent) {
	switch ev.Kind {
	case native.DiscoveredParticipant:
		c.cfg.Registry.AddParticipant(registry.Participant{Gid: ev.ParticipantGid})
	case native.UndiscoveredParticipant:
		c.emitAll(c.cfg.Registry.RemoveParticipant(ev.ParticipantGid))
	case native.DiscoveredPublication:
		c.emitOne(c.cfg.Registry.AddWriter(ev.Endpoint))
	case native.UndiscoveredPublication:
		c.emitOne(c.cfg.Registry.RemoveWriter(ev.EndpointGid))
	case native.DiscoveredSubscription:
		c.emitOne(c.cfg.Registry.AddReader(ev.Endpoint))
	case native.UndiscoveredSubscription:
		c.emitOne(c.cfg.Registry.RemoveReader(ev.EndpointGid))
	default:
		log.Warn().Int("kind", int(ev.Kind)).Msg("unknown discovery event kind")
	}
}

func (c *Coordinator) poll(ctx context.Context) {
	manifests, err := c.cfg.Poller.PollManifests(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("manifest poll failed")
		return
	}
	for _, m := range manifests {
		c.emitAll(c.cfg.Registry.UpdateParticipantInfo(toRegistryManifest(m)))
	}
}

func toRegistryManifest(m native.Manifest) registry.ParticipantManifest {
	nodes := make(map[string]registry.NodeEntitiesInfo, len(m.Nodes))
	for name, n := range m.Nodes {
		nodes[name] = registry.NodeEntitiesInfo{
			Namespace:  n.Namespace,
			NodeName:   n.NodeName,
			ReaderGids: append([]gid.Gid(nil), n.ReaderGids...),
			WriterGids: append([]gid.Gid(nil), n.WriterGids...),
		}
	}
	return registry.ParticipantManifest{Gid: m.ParticipantGid, Nodes: nodes}
}

func (c *Coordinator) emitOne(ev *entities.DiscoveryEvent) {
	if ev == nil || c.cfg.Events == nil {
		return
	}
	c.cfg.Events <- *ev
}

func (c *Coordinator) emitAll(evs []entities.DiscoveryEvent) {
	if c.cfg.Events == nil {
		return
	}
	for _, ev := range evs {
		c.cfg.Events <- ev
	}
}
