package model

import "time"

// Event types pushed over the websocket channel and the optional queue feed.
const (
	EventInitialData   = "initial_data"
	EventTokensUpdated = "tokens_updated"
	EventPriceUpdate   = "price_update"
	EventVolumeSpike   = "volume_spike"
	EventNewToken      = "new_token"
	EventSubscribed    = "subscribed"
	EventUnsubscribed  = "unsubscribed"
)

// PriceUpdate describes one token whose price moved beyond the detection
// threshold between two broadcast cycles.
type PriceUpdate struct {
	Address       string
	Ticker        string
	OldPrice      float64
	NewPrice      float64
	ChangePercent float64
}

// VolumeSpike describes one token whose volume increased more than the
// spike threshold between two broadcast cycles.
type VolumeSpike struct {
	Address      string
	Ticker       string
	OldVolume    float64
	NewVolume    float64
	SpikePercent float64
}

// ChangeSet is the classified outcome of diffing one aggregate snapshot
// against the previous one.
type ChangeSet struct {
	Updated      []Token
	NewTokens    []Token
	PriceUpdates []PriceUpdate
	VolumeSpikes []VolumeSpike
	At           time.Time
}

// Empty reports whether the cycle produced no changes at all.
func (c ChangeSet) Empty() bool {
	return len(c.Updated) == 0 && len(c.NewTokens) == 0 &&
		len(c.PriceUpdates) == 0 && len(c.VolumeSpikes) == 0
}
