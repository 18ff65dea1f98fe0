/*
Package geo
File: locator.go
Description:
    The Locator feeds device fixes into the engine. A missing fix switches to
    the fallback sector. Once a zone is entered its name is looked up once,
    outside the engine lock, and applied with RenameZone.
*/

package geo

import (
	"context"
	"sync"

	"github.com/everforgeworks/ecosnap-engine/internal/game"
	"github.com/everforgeworks/ecosnap-engine/internal/logger"
)

// Tracker is the slice of the engine the Locator drives.
type Tracker interface {
	UpdateLocation(loc game.Location, fallback bool) game.Zone
	RenameZone(id, name string) error
}

type Locator struct {
	tracker  Tracker
	geocoder Geocoder
	log      *logger.Logger

	mu      sync.Mutex
	named   map[string]bool // zone ids already resolved
	address string
}

// NewLocator wires t to g. A nil geocoder disables naming.
func NewLocator(t Tracker, g Geocoder, log *logger.Logger) *Locator {
	if log == nil {
		log = logger.Nop()
	}
	return &Locator{tracker: t, geocoder: g, log: log.With("component", "locator"), named: map[string]bool{}}
}

// Report records a fix; nil means no signal. The returned zone reflects the
// rename when the lookup succeeded.
func (l *Locator) Report(ctx context.Context, fix *game.Location) game.Zone {
	if fix == nil {
		return l.tracker.UpdateLocation(game.FallbackLocation, true)
	}
	z := l.tracker.UpdateLocation(*fix, false)
	if l.geocoder == nil || !l.claim(z.ID) {
		return z
	}

	place, err := l.geocoder.Reverse(ctx, fix.Lat, fix.Lng)
	if err != nil {
		l.release(z.ID)
		l.log.Debug("reverse geocode failed", "zone_id", z.ID, "err", err)
		return z
	}
	l.mu.Lock()
	l.address = place.Address()
	l.mu.Unlock()

	if name := place.ZoneName(); name != "" {
		if err := l.tracker.RenameZone(z.ID, name); err != nil {
			l.log.Warn("zone rename failed", "zone_id", z.ID, "err", err)
			return z
		}
		z.Name = name
	}
	return z
}

// Address is the last resolved street address, empty until one succeeds.
func (l *Locator) Address() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.address
}

func (l *Locator) claim(zoneID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.named[zoneID] {
		return false
	}
	l.named[zoneID] = true
	return true
}

func (l *Locator) release(zoneID string) {
	l.mu.Lock()
	delete(l.named, zoneID)
	l.mu.Unlock()
}
