/*
Package game
File: ledger.go
Description:
    The action/reward ledger. Each action validates completely against the
    current balances and zones before touching anything, then mutates,
    recalculates all zones and persists, all under the engine's write lock.

    Actions:
    - ClaimScan / ClaimScoutBatch: turn a classification into points.
    - Plant: spend credits to plant trees in a zone.
    - Maintain: water or fertilize a tree.
    - ClaimUpcycleBonus: one-off bonus for a reuse project.
*/

package game

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/everforgeworks/ecosnap-engine/internal/notify"
)

// ClaimScan converts a completed classification into a receipt and rewards.
// loc is where the item was found; nil falls back to the current location.
func (e *Engine) ClaimScan(analysis Classification, claim ClaimType, loc *Location) (ScanRecord, error) {
	e.mu.Lock()
	now := e.clock()

	if claim != ClaimScout && claim != ClaimCleanup {
		e.mu.Unlock()
		return ScanRecord{}, e.reject("claim", fmt.Errorf("%w: claim type %q", ErrInvalidAction, claim), "UNKNOWN CLAIM TYPE")
	}
	if err := e.checkDebounceLocked(now); err != nil {
		e.mu.Unlock()
		return ScanRecord{}, e.reject("claim", err, "CALIBRATING SENSORS...")
	}

	rec := e.applyClaimLocked(analysis, claim, loc, now)
	credits := e.balance.Ledger.CleanupCredits
	e.lastScan = now
	e.recalculateLocked(now)
	e.persistLocked()
	e.mu.Unlock()

	e.log.Info("scan claimed", "scan_id", rec.ID, "claim", string(claim), "points", rec.Points, "zone_id", ScanZoneID(rec))
	if claim == ClaimCleanup {
		e.emit(notify.TypeSuccess, "PROTOCOL COMPLETE: +%d XP | +%d Cr", rec.Points, credits)
	} else {
		e.emit(notify.TypeSuccess, "INTEL LOGGED: +%d XP", rec.Points)
	}
	return rec, nil
}

// ScoutItem is one entry of a passive batch upload.
type ScoutItem struct {
	Analysis Classification `json:"analysis"`
	Location *Location      `json:"location,omitempty"`
}

// ClaimScoutBatch logs several scout sightings at once. The debounce applies
// to the batch as a whole.
func (e *Engine) ClaimScoutBatch(items []ScoutItem) ([]ScanRecord, error) {
	if len(items) == 0 {
		return nil, e.reject("batch", fmt.Errorf("%w: empty batch", ErrInvalidAction), "NOTHING TO UPLOAD")
	}
	e.mu.Lock()
	now := e.clock()
	if err := e.checkDebounceLocked(now); err != nil {
		e.mu.Unlock()
		return nil, e.reject("batch", err, "CALIBRATING SENSORS...")
	}

	out := make([]ScanRecord, 0, len(items))
	total := 0
	for _, it := range items {
		rec := e.applyClaimLocked(it.Analysis, ClaimScout, it.Location, now)
		total += rec.Points
		out = append(out, rec)
	}
	e.lastScan = now
	e.recalculateLocked(now)
	e.persistLocked()
	e.mu.Unlock()

	e.log.Info("scout batch claimed", "items", len(out), "points", total)
	e.emit(notify.TypeSuccess, "BATCH UPLOAD: +%d XP", total)
	return out, nil
}

func (e *Engine) checkDebounceLocked(now time.Time) error {
	window := e.balance.Ledger.ScanDebounce
	if e.lastScan.IsZero() || window <= 0 {
		return nil
	}
	if since := now.Sub(e.lastScan); since < window {
		return fmt.Errorf("%w: wait %s", ErrRateLimited, (window - since).Round(time.Millisecond))
	}
	return nil
}

// ScanPoints splits a claim's award into base, cleanup bonus and fitness bonus.
// The cleanup bonus equals the base; the activity multiplier applies on top of
// both.
func ScanPoints(base int, claim ClaimType, multiplier float64) (cleanupBonus, fitnessBonus, total int) {
	if base < 0 {
		base = 0
	}
	if claim == ClaimCleanup {
		cleanupBonus = base
	}
	combined := base + cleanupBonus
	fitnessBonus = int(math.Round(float64(combined) * (multiplier - 1)))
	if fitnessBonus < 0 {
		fitnessBonus = 0
	}
	return cleanupBonus, fitnessBonus, combined + fitnessBonus
}

func (e *Engine) activityMultiplierLocked() float64 {
	if m, ok := e.balance.Ledger.ActivityMultipliers[e.state.Activity]; ok {
		return m
	}
	return 1.0
}

// applyClaimLocked records the receipt and credits the balances. No validation.
func (e *Engine) applyClaimLocked(analysis Classification, claim ClaimType, loc *Location, now time.Time) ScanRecord {
	cleanupBonus, fitnessBonus, total := ScanPoints(analysis.Points, claim, e.activityMultiplierLocked())

	var where *Location
	switch {
	case loc != nil:
		where = &Location{Lat: loc.Lat, Lng: loc.Lng}
	case e.state.Location != nil:
		where = &Location{Lat: e.state.Location.Lat, Lng: e.state.Location.Lng}
	}
	if where != nil {
		e.ensureZoneLocked(where.Lat, where.Lng, now)
	}

	rec := ScanRecord{
		Analysis:     analysis,
		ID:           e.newID(),
		Timestamp:    now,
		ActivityMode: e.state.Activity,
		ClaimType:    claim,
		BasePoints:   max(0, analysis.Points),
		FitnessBonus: fitnessBonus,
		CleanupBonus: cleanupBonus,
		Points:       total,
		Location:     where,
	}
	// Newest first.
	e.state.History = append([]ScanRecord{rec}, e.state.History...)

	b := &e.state.Balances
	b.TotalPoints += total
	if claim == ClaimCleanup {
		b.TotalWasteWeight += math.Max(0, analysis.EstimatedWeight)
		b.GreenCredits += e.balance.Ledger.CleanupCredits
	}
	advanceStreak(b, now)
	return rec
}

// advanceStreak counts consecutive active days in the clock's time zone.
func advanceStreak(b *Balances, now time.Time) {
	today := dayOf(now)
	switch {
	case b.LastActiveDay.IsZero():
		b.StreakDays = 1
	case dayOf(b.LastActiveDay).Equal(today):
		if b.StreakDays < 1 {
			b.StreakDays = 1
		}
	case dayOf(b.LastActiveDay).AddDate(0, 0, 1).Equal(today):
		b.StreakDays++
	default:
		b.StreakDays = 1
	}
	b.LastActiveDay = today
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ---------------------------------------------------------------------------
// Planting

// PlantRequest describes a planting order.
type PlantRequest struct {
	ZoneID       string         `json:"zoneId"`
	Species      string         `json:"species"`
	Mode         PlantationMode `json:"mode"`
	Quantity     int            `json:"quantity"`
	UserLocation *Location      `json:"userLocation,omitempty"` // required for self mode
}

// PlantingCost is base cost x quantity with community bulk discounts, floored.
func PlantingCost(mode PlantationMode, quantity int, b LedgerBalance) int {
	cost := float64(b.PlantingCosts[mode] * quantity)
	if mode == ModeCommunity {
		for _, d := range b.CommunityDiscounts {
			if quantity >= d.MinQuantity {
				cost *= d.Factor
				break
			}
		}
	}
	return int(math.Floor(cost))
}

// PlantingReward is the XP granted for planting quantity trees in mode.
func PlantingReward(mode PlantationMode, quantity int, b LedgerBalance) int {
	xp := b.PlantingXP[mode]
	return xp.Flat + xp.PerTree*quantity
}

// SponsoredUnlocked reports whether the player may plant sponsored trees.
func SponsoredUnlocked(bal Balances, b LedgerBalance) bool {
	return bal.StreakDays >= b.SponsoredStreakDays || bal.TotalPoints >= b.SponsoredMinPoints
}

// Plant validates and applies a planting order. Checks run in a fixed order:
// sponsored unlock, credits, zone capacity, GPS for self planting.
func (e *Engine) Plant(req PlantRequest) ([]Tree, error) {
	e.mu.Lock()
	now := e.clock()
	lb := e.balance.Ledger

	species := strings.TrimSpace(req.Species)
	if species == "" {
		e.mu.Unlock()
		return nil, e.reject("plant", fmt.Errorf("%w: species required", ErrInvalidAction), "SELECT A SPECIES")
	}
	if _, ok := lb.PlantingCosts[req.Mode]; !ok {
		e.mu.Unlock()
		return nil, e.reject("plant", fmt.Errorf("%w: mode %q", ErrInvalidAction, req.Mode), "UNKNOWN PLANTATION MODE")
	}
	zi := e.zoneIndexLocked(req.ZoneID)
	if zi < 0 {
		e.mu.Unlock()
		return nil, e.reject("plant", fmt.Errorf("%w: zone %s", ErrNotFound, req.ZoneID), "UNKNOWN SECTOR")
	}
	zone := e.state.Zones[zi]

	qty := req.Quantity
	if qty < 1 || req.Mode == ModeSelf {
		qty = 1
	}
	cost := PlantingCost(req.Mode, qty, lb)
	if req.Mode == ModeSponsored {
		cost = 0
	}

	// (a) sponsored unlock
	if req.Mode == ModeSponsored && !SponsoredUnlocked(e.state.Balances, lb) {
		e.mu.Unlock()
		err := fmt.Errorf("%w: need %d-day streak or %d XP", ErrIneligible, lb.SponsoredStreakDays, lb.SponsoredMinPoints)
		return nil, e.reject("plant", err, fmt.Sprintf("LOCKED: Require %d-day streak or %d XP", lb.SponsoredStreakDays, lb.SponsoredMinPoints))
	}
	// (b) credits
	if e.state.Balances.GreenCredits < cost {
		e.mu.Unlock()
		err := fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, cost, e.state.Balances.GreenCredits)
		return nil, e.reject("plant", err, fmt.Sprintf("INSUFFICIENT CREDITS: Need %d", cost))
	}
	// (c) capacity, counted from the tree list rather than the cached layer
	spots := e.balance.Zone.TreeCapacity - e.treeCountLocked(zone.ID)
	if spots < qty {
		e.mu.Unlock()
		err := fmt.Errorf("%w: %d spots left, %d requested", ErrCapacityExceeded, max(0, spots), qty)
		return nil, e.reject("plant", err, fmt.Sprintf("DENSITY LIMIT: Only %d spots left", max(0, spots)))
	}
	// (d) GPS for self planting
	if req.Mode == ModeSelf && req.UserLocation == nil {
		e.mu.Unlock()
		return nil, e.reject("plant", fmt.Errorf("%w: self planting", ErrLocationRequired), "GPS REQUIRED for Self-Planting.")
	}

	xp := PlantingReward(req.Mode, qty, lb)
	planted := make([]Tree, 0, qty)
	for i := 0; i < qty; i++ {
		loc := e.scatterLocked(zone)
		if req.Mode == ModeSelf {
			loc = *req.UserLocation
		}
		t := NewTree(e.newID(), zone.ID, species, req.Mode, loc, e.state.Username, e.balance.Trees, now)
		t = AdvanceTree(t, now, e.balance.Trees)
		planted = append(planted, t)
	}

	b := &e.state.Balances
	b.GreenCredits -= cost
	b.TotalPoints += xp
	if req.Mode == ModeSelf {
		b.GreenCredits += lb.SelfPlantRefund
	}
	e.state.Trees = append(e.state.Trees, planted...)
	e.recalculateLocked(now)
	e.persistLocked()
	e.mu.Unlock()

	e.log.Info("trees planted", "zone_id", zone.ID, "mode", string(req.Mode), "species", species, "quantity", qty, "cost", cost, "xp", xp)
	if req.Mode == ModeSelf {
		e.emit(notify.TypeSuccess, "SUCCESS: Verified & Planted! (+%d XP, +%d Credits)", xp, lb.SelfPlantRefund)
	} else {
		e.emit(notify.TypeSuccess, "SUCCESS: %d %s Planted (+%d XP)", qty, species, xp)
	}
	return planted, nil
}

func (e *Engine) treeCountLocked(zoneID string) int {
	n := 0
	for _, t := range e.state.Trees {
		if t.ZoneID == zoneID {
			n++
		}
	}
	return n
}

// scatterLocked places a non-self tree randomly around the zone centre.
func (e *Engine) scatterLocked(z Zone) Location {
	j := e.balance.Ledger.JitterDegrees
	return Location{
		Lat: z.Lat + (e.random()*2*j - j),
		Lng: z.Lng + (e.random()*2*j - j),
	}
}

// ---------------------------------------------------------------------------
// Maintenance

// Maintain waters or fertilizes a tree. Inside the cooldown the tree is left
// untouched and ErrCooldownActive is returned.
func (e *Engine) Maintain(treeID string, action MaintenanceAction) (Tree, error) {
	e.mu.Lock()
	now := e.clock()
	i := e.treeIndexLocked(treeID)
	if i < 0 {
		e.mu.Unlock()
		return Tree{}, e.reject("maintain", fmt.Errorf("%w: tree %s", ErrNotFound, treeID), "UNKNOWN TREE")
	}

	// Bring the tree up to date first so the bump lands on current health.
	current := AdvanceTree(e.state.Trees[i], now, e.balance.Trees)
	updated, reward, err := MaintainTree(current, action, now, e.balance.Trees)
	if err != nil {
		unchanged := e.state.Trees[i]
		e.mu.Unlock()
		text := "TOO SOON: Wait for cooldown"
		if errors.Is(err, ErrInvalidAction) {
			text = "UNKNOWN MAINTENANCE ACTION"
		}
		return unchanged, e.reject("maintain", err, text)
	}

	e.state.Trees[i] = updated
	e.state.Balances.TotalPoints += reward.XP
	e.state.Balances.GreenCredits += reward.Credits
	e.recalculateLocked(now)
	e.persistLocked()
	e.mu.Unlock()

	e.log.Info("tree maintained", "tree_id", treeID, "action", string(action), "health", updated.Health)
	e.emit(notify.TypeSuccess, "%s COMPLETE (+%d XP)", strings.ToUpper(string(action)), reward.XP)
	return updated, nil
}

// ---------------------------------------------------------------------------
// Upcycling

// ClaimUpcycleBonus grants the reuse-project bonus once per scan.
func (e *Engine) ClaimUpcycleBonus(scanID string) (ScanRecord, error) {
	e.mu.Lock()
	i := e.scanIndexLocked(scanID)
	if i < 0 {
		e.mu.Unlock()
		return ScanRecord{}, e.reject("upcycle", fmt.Errorf("%w: scan %s", ErrNotFound, scanID), "UNKNOWN SCAN")
	}
	if e.state.History[i].UpcycleBonusClaimed {
		rec := e.state.History[i]
		e.mu.Unlock()
		return rec, e.reject("upcycle", fmt.Errorf("%w: scan %s", ErrAlreadyClaimed, scanID), "BONUS ALREADY CLAIMED")
	}

	bonus := e.balance.Ledger.UpcycleBonus
	e.state.History[i].UpcycleBonusClaimed = true
	e.state.Balances.TotalPoints += bonus
	rec := e.state.History[i]
	e.persistLocked()
	e.mu.Unlock()

	e.log.Info("upcycle bonus claimed", "scan_id", scanID, "points", bonus)
	e.emit(notify.TypeSuccess, "PROJECT COMPLETED: +%d XP", bonus)
	return rec, nil
}
