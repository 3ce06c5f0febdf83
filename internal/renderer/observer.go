package renderer

import "time"

// Observer receives rendering events, typically to feed metrics
type Observer interface {
	TierUsed(spec string, tier Tier)
	TierFailed(spec string, tier Tier, err error)
	Composed(spec string, labels int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) TierUsed(string, Tier)               {}
func (nopObserver) TierFailed(string, Tier, error)      {}
func (nopObserver) Composed(string, int, time.Duration) {}
