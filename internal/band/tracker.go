package band

import (
	"fmt"
	"time"
)

// Tracker maintains the EMA center the band is drawn around.
// It is purely in-memory; persisting the center between runs is the
// caller's responsibility (see internal/state).
type Tracker struct {
	alpha       float64
	center      float64
	initialized bool
	updatedAt   time.Time
}

// Bounds is the symmetric percentage envelope derived from a center.
// It is recomputed every tick and never stored.
type Bounds struct {
	Lower float64
	Upper float64
}

// NewTracker creates a tracker with the given smoothing factor.
// Alpha outside (0, 1] is a configuration error: the EMA recurrence
// center = alpha*price + (1-alpha)*center diverges or freezes otherwise.
func NewTracker(alpha float64) (*Tracker, error) {
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("ema alpha must be in (0, 1], got %v", alpha)
	}
	return &Tracker{alpha: alpha}, nil
}

// Update folds one observed mid price into the center and returns the
// new center. The first observation seeds the center exactly.
func (t *Tracker) Update(price float64, now time.Time) float64 {
	if !t.initialized {
		t.center = price
		t.initialized = true
	} else {
		t.center = t.alpha*price + (1-t.alpha)*t.center
	}
	t.updatedAt = now
	return t.center
}

// Seed restores a previously persisted center so a restarted process
// resumes near its prior level instead of re-seeding from one sample.
func (t *Tracker) Seed(center float64, updatedAt time.Time) {
	if center <= 0 {
		return
	}
	t.center = center
	t.initialized = true
	t.updatedAt = updatedAt
}

// Center returns the current center and whether it has been seeded.
func (t *Tracker) Center() (float64, bool) {
	return t.center, t.initialized
}

// UpdatedAt returns the timestamp of the last center mutation.
func (t *Tracker) UpdatedAt() time.Time {
	return t.updatedAt
}

// Alpha returns the configured smoothing factor.
func (t *Tracker) Alpha() float64 {
	return t.alpha
}

// BoundsFor derives the band around a center. bandBps is the half-width
// in basis points (1 bps = 0.01%).
func BoundsFor(center, bandBps float64) Bounds {
	halfWidth := center * bandBps / 10000
	return Bounds{
		Lower: center - halfWidth,
		Upper: center + halfWidth,
	}
}

// Bps returns the distance from a to b expressed in basis points of a.
// Positive when b is above a.
func Bps(a, b float64) float64 {
	if a == 0 {
		return 0
	}
	return (b - a) / a * 10000
}
