package service

import (
	"log/slog"
	"math"
	"time"

	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/model"
)

// Comparison thresholds. Absolute-difference checks keep floating-point
// noise from registering as market movement.
const (
	priceEpsilon      = 1e-9
	volumeEpsilon     = 1e-6
	spikeThresholdPct = 20.0
)

// ChangeDetector holds the last-known snapshot per token address and
// classifies what changed between consecutive aggregate fetches. It is not
// safe for concurrent use; the single broadcast cycle is its only caller.
// Snapshots are never evicted; cardinality is bounded by the distinct
// tokens ever seen, which is small relative to the memory budget.
type ChangeDetector struct {
	snapshots map[string]model.Token
	log       *slog.Logger
}

func NewChangeDetector(log *slog.Logger) *ChangeDetector {
	if log == nil {
		log = slog.Default()
	}
	return &ChangeDetector{
		snapshots: make(map[string]model.Token),
		log:       log,
	}
}

// Diff compares tokens against the stored snapshots, classifies every
// change, and replaces each snapshot with the current reading. Tokens
// without an address are skipped.
func (d *ChangeDetector) Diff(tokens []model.Token) model.ChangeSet {
	cs := model.ChangeSet{At: time.Now().UTC()}

	for _, t := range tokens {
		addr := t.NormalizedAddress()
		if addr == "" {
			continue
		}

		prev, seen := d.snapshots[addr]
		if !seen {
			cs.NewTokens = append(cs.NewTokens, t)
			cs.Updated = append(cs.Updated, t)
			d.snapshots[addr] = t
			continue
		}

		changed := false

		if math.Abs(t.Price-prev.Price) > priceEpsilon {
			cs.PriceUpdates = append(cs.PriceUpdates, model.PriceUpdate{
				Address:       t.Address,
				Ticker:        t.Ticker,
				OldPrice:      prev.Price,
				NewPrice:      t.Price,
				ChangePercent: percentChange(prev.Price, t.Price),
			})
			changed = true
		}

		if math.Abs(t.Volume-prev.Volume) > volumeEpsilon {
			// Any volume movement joins the updated batch; only a >20%
			// increase qualifies as a spike event.
			if pct := percentChange(prev.Volume, t.Volume); pct > spikeThresholdPct {
				cs.VolumeSpikes = append(cs.VolumeSpikes, model.VolumeSpike{
					Address:      t.Address,
					Ticker:       t.Ticker,
					OldVolume:    prev.Volume,
					NewVolume:    t.Volume,
					SpikePercent: pct,
				})
			}
			changed = true
		}

		if changed {
			cs.Updated = append(cs.Updated, t)
		}

		// Full replace: the stored snapshot is always the latest reading,
		// changed or not.
		d.snapshots[addr] = t
	}

	return cs
}

// SnapshotCount returns the number of distinct tokens seen so far.
func (d *ChangeDetector) SnapshotCount() int {
	return len(d.snapshots)
}

func percentChange(old, new float64) float64 {
	if old == 0 {
		return 0
	}
	return (new - old) / old * 100
}
