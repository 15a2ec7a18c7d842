package qos

import "time"

// AdaptWriterForReader copies and adapts a writer's QoS for the creation of
// a matching reader: fields meaningful only to producers are cleared, and
// unset reliability defaults to BEST_EFFORT with the standard max blocking
// time.
func AdaptWriterForReader(writerQos Qos) Qos {
	reader := writerQos.Clone()

	reader.DurabilityService = nil
	reader.OwnershipStrength = nil
	reader.TransportPriority = nil
	reader.Lifespan = nil
	reader.WriterDataLifecycle = nil
	reader.WriterBatching = nil

	reader.Properties = nil
	reader.EntityName = nil
	reader.IgnoreLocal = nil

	if reader.Reliability == nil {
		reader.Reliability = &Reliability{
			Kind:            ReliabilityBestEffort,
			MaxBlockingTime: DefaultMaxBlockingTime,
		}
	}

	return reader
}

// AdaptReaderForWriter copies and adapts a reader's QoS for the creation of
// a matching writer: fields meaningful only to consumers are cleared,
// ignore_local is forced to PARTICIPANT so the writer never matches a
// sibling reader on the same native participant, a transient-local reader
// gets a synthesized durability_service mirroring its history, and the
// reliability max-blocking-time is bumped by one tick as a workaround for a
// well-known peer matching quirk.
func AdaptReaderForWriter(readerQos Qos) Qos {
	writer := readerQos.Clone()

	writer.TimeBasedFilter = nil
	writer.ReaderDataLifecycle = nil
	writer.Properties = nil
	writer.EntityName = nil

	writer.IgnoreLocal = &IgnoreLocal{Kind: IgnoreLocalParticipant}

	if IsTransientLocal(readerQos) {
		h := HistoryOrDefault(readerQos)
		writer.DurabilityService = &DurabilityService{
			ServiceCleanupDelay:   DurabilityServiceCleanupDelay,
			HistoryKind:           h.Kind,
			HistoryDepth:          h.Depth,
			MaxSamples:            Unlimited,
			MaxInstances:          Unlimited,
			MaxSamplesPerInstance: Unlimited,
		}
	}

	if writer.Reliability != nil {
		r := *writer.Reliability
		r.MaxBlockingTime = saturatingAddTick(r.MaxBlockingTime)
		writer.Reliability = &r
	} else {
		writer.Reliability = &Reliability{
			MaxBlockingTime: saturatingAddTick(0),
		}
	}

	return writer
}

// oneTick is the smallest increment applied to a max-blocking-time as the
// FastRTPS-matching workaround; mirrors the native middleware's duration
// tick granularity.
const oneTick = time.Duration(1)

func saturatingAddTick(d time.Duration) time.Duration {
	sum := d + oneTick
	if sum < d {
		// overflow would wrap around; saturate instead.
		return d
	}
	return sum
}
