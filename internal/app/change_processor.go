package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/raunaksarawgi/dexflow-realtime/internal/app/dto"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/model"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/service"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/useCases"
)

// EventSink receives a copy of every emitted event batch. The optional
// Kafka publisher satisfies it.
type EventSink interface {
	Publish(ctx context.Context, eventType string, data any, at time.Time) error
}

// ChangeProcessor drives the broadcast loop: on a fixed cadence it fetches
// the top tokens through the aggregator, diffs them against the previous
// snapshot, and fans the classified events out to subscribers. Cycles are
// serialized: a slow cycle delays the next tick, it never overlaps it.
type ChangeProcessor struct {
	aggregator  useCases.TokenAggregator
	detector    *service.ChangeDetector
	broadcaster useCases.Broadcaster
	sink        EventSink // may be nil
	interval    time.Duration
	topN        int
	log         *slog.Logger
}

func NewChangeProcessor(aggregator useCases.TokenAggregator, detector *service.ChangeDetector, broadcaster useCases.Broadcaster, sink EventSink, interval time.Duration, topN int, log *slog.Logger) *ChangeProcessor {
	return &ChangeProcessor{
		aggregator:  aggregator,
		detector:    detector,
		broadcaster: broadcaster,
		sink:        sink,
		interval:    interval,
		topN:        topN,
		log:         log,
	}
}

// Run ticks until ctx is cancelled. Stopping is cooperative: an in-flight
// cycle finishes, it is never aborted mid-way.
func (p *ChangeProcessor) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.RunCycle(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				// Cycle failures are transient; keep polling.
				p.log.Error("broadcast cycle failed", "error", err)
			}
		}
	}
}

// RunCycle executes one fetch → diff → emit pass.
func (p *ChangeProcessor) RunCycle(ctx context.Context) error {
	res, err := p.aggregator.ListFiltered(ctx, model.ListQuery{
		Limit:  p.topN,
		SortBy: model.SortByVolume,
		Order:  model.OrderDesc,
	})
	if err != nil {
		return err
	}

	cs := p.detector.Diff(res.Tokens)
	if cs.Empty() {
		return nil
	}

	// One push per event type per cycle, each carrying the whole batch and
	// the cycle's single timestamp.
	if len(cs.Updated) > 0 {
		p.emit(ctx, model.EventTokensUpdated, dto.FromTokens(cs.Updated), cs.At)
	}
	if len(cs.PriceUpdates) > 0 {
		p.emit(ctx, model.EventPriceUpdate, dto.FromPriceUpdates(cs.PriceUpdates), cs.At)
	}
	if len(cs.VolumeSpikes) > 0 {
		p.emit(ctx, model.EventVolumeSpike, dto.FromVolumeSpikes(cs.VolumeSpikes), cs.At)
	}
	if len(cs.NewTokens) > 0 {
		p.emit(ctx, model.EventNewToken, dto.FromTokens(cs.NewTokens), cs.At)
	}

	p.log.Debug("broadcast cycle complete",
		"updated", len(cs.Updated),
		"price_updates", len(cs.PriceUpdates),
		"volume_spikes", len(cs.VolumeSpikes),
		"new_tokens", len(cs.NewTokens),
		"snapshots", p.detector.SnapshotCount())
	return nil
}

func (p *ChangeProcessor) emit(ctx context.Context, eventType string, data any, at time.Time) {
	p.broadcaster.Broadcast(eventType, data, at)
	if p.sink != nil {
		if err := p.sink.Publish(ctx, eventType, data, at); err != nil {
			p.log.Warn("event feed publish failed", "type", eventType, "error", err)
		}
	}
}
