/*
Package game
File: zones.go
Description:
    The zone health model. A zone's state is never updated incrementally:
    RecalculateAll derives every zone from the full scan history, the tree
    list and the current time. Running it twice with the same inputs yields
    identical zones, so the heartbeat and user actions can both call it freely.

    Formula per zone:
        projected = baseline + netImpact(scans) + treeBuff(trees)
        decay     = hoursSinceLastInteraction * rate(projected, trees)
        health    = clamp(projected - decay - neglectPenalty, 0, 100)
*/

package game

import (
	"hash/fnv"
	"math"
	"strconv"
	"time"
)

// StatusFor maps health to its tier. Lower bounds are inclusive.
func StatusFor(health float64, th StatusThresholds) ZoneStatus {
	switch {
	case health >= th.Pristine:
		return StatusPristine
	case health >= th.Clean:
		return StatusClean
	case health >= th.Moderate:
		return StatusModerate
	case health >= th.Dirty:
		return StatusDirty
	default:
		return StatusCritical
	}
}

// ZoneLevel is 1 plus the number of thresholds the contribution count exceeds.
func ZoneLevel(contributions int, thresholds []int) int {
	level := 1
	for _, t := range thresholds {
		if contributions > t {
			level++
		}
	}
	return level
}

// DecayRate is the hourly health loss for a zone with the given projected
// health and tree count. Trees cut decay but never below MaxTreeProtection.
func DecayRate(projected float64, treeCount int, b ZoneBalance) float64 {
	rate := b.DefaultDecay
	if projected < b.LowHealthThreshold {
		rate = b.LowHealthDecay
	} else if projected > b.HighHealthThreshold {
		rate = b.HighHealthDecay
	}
	protection := math.Min(b.MaxTreeProtection, float64(treeCount)*b.TreeProtection)
	return rate * (1 - protection)
}

// NeglectPenalty is a one-off deduction for long gaps, not compounded hourly.
func NeglectPenalty(hoursSince float64, b ZoneBalance) float64 {
	switch {
	case hoursSince > b.NeglectMajorHours:
		return b.NeglectMajorPenalty
	case hoursSince > b.NeglectMinorHours:
		return b.NeglectMinorPenalty
	default:
		return 0
	}
}

// ScanZoneID resolves the zone a scan belongs to, or "" when it has no location.
func ScanZoneID(s ScanRecord) string {
	if s.Location == nil {
		return ""
	}
	return ZoneIDOf(s.Location.Lat, s.Location.Lng)
}

// RecalculateAll rebuilds every zone. The input slices are not modified.
func RecalculateAll(zones []Zone, scans []ScanRecord, trees []Tree, user string, now time.Time, b ZoneBalance) []Zone {
	scansByZone := make(map[string][]ScanRecord, len(zones))
	for _, s := range scans {
		if id := ScanZoneID(s); id != "" {
			scansByZone[id] = append(scansByZone[id], s)
		}
	}
	treesByZone := make(map[string][]Tree, len(zones))
	for _, t := range trees {
		treesByZone[t.ZoneID] = append(treesByZone[t.ZoneID], t)
	}

	out := make([]Zone, len(zones))
	for i, z := range zones {
		out[i] = RecalculateZone(z, scansByZone[z.ID], treesByZone[z.ID], user, now, b)
	}
	return out
}

// RecalculateZone derives one zone from the scans and trees already filtered
// to it. user becomes the owner when the zone is healthy enough.
func RecalculateZone(z Zone, scans []ScanRecord, trees []Tree, user string, now time.Time, b ZoneBalance) Zone {
	// 1. Lifetime impact of claims
	netImpact := 0.0
	var latestScan, latestCleanup time.Time
	for _, s := range scans {
		if s.ClaimType == ClaimCleanup {
			netImpact += b.CleanupImpact
			if s.Timestamp.After(latestCleanup) {
				latestCleanup = s.Timestamp
			}
		} else {
			netImpact += b.ScoutImpact
		}
		if s.Timestamp.After(latestScan) {
			latestScan = s.Timestamp
		}
	}

	// 2. Vegetation buff and projection
	treeCount := len(trees)
	projected := b.BaselineHealth + netImpact + float64(treeCount)*b.TreeBuff

	// 3. Time since the last interaction, anchored on creation when untouched
	anchor := latestScan
	if anchor.IsZero() {
		anchor = interactionAnchor(z, now)
	}
	hoursSince := math.Max(0, now.Sub(anchor).Hours())

	// 4. Decay and neglect
	rate := DecayRate(projected, treeCount, b)
	totalDecay := hoursSince * rate
	penalty := NeglectPenalty(hoursSince, b)
	health := clamp(projected-totalDecay-penalty, 0, 100)

	// 5. Trend
	trend := TrendStable
	if netImpact > totalDecay && penalty == 0 {
		trend = TrendImproving
	} else if totalDecay+penalty > b.DecayingTrendLoss {
		trend = TrendDecaying
	}

	// 6. Ownership with hysteresis between the claim and loss thresholds
	owner := z.Gamification.OwnerName
	if health > b.OwnershipClaimHealth && len(scans) > 0 {
		owner = user
	} else if health < b.OwnershipLossHealth {
		owner = ""
	}
	team := ""
	if owner != "" {
		team = b.TeamName
	}

	co2 := 0.0
	for _, t := range trees {
		co2 += t.CO2Offset
	}

	out := z
	out.Health = health
	out.Status = StatusFor(health, b.Status)
	out.PredictionTrend = trend
	out.GreenLayer = GreenLayer{
		TreeCount:      treeCount,
		PlantableSpots: max(0, b.TreeCapacity-treeCount),
		CO2Offset:      co2,
		ForestCoverage: math.Min(100, float64(treeCount)*b.CoveragePerTree),
	}
	out.WasteLayer = WasteLayer{
		DecayRate:         rate,
		LastCleaned:       timePtr(latestCleanup),
		LastDecay:         now,
		ContributionCount: len(scans),
		IsBossActive:      bossActive(z.ID, now, b.BossChance),
	}
	out.Gamification = ZoneGamification{
		OwnerName:     owner,
		TeamTerritory: team,
		ZoneLevel:     ZoneLevel(len(scans), b.LevelThresholds),
	}
	return out
}

// interactionAnchor is the creation time of an untouched zone. Zones persisted
// before CreatedAt existed fall back to their last recalculation, then to a
// day ago.
func interactionAnchor(z Zone, now time.Time) time.Time {
	switch {
	case !z.CreatedAt.IsZero():
		return z.CreatedAt
	case !z.WasteLayer.LastDecay.IsZero():
		return z.WasteLayer.LastDecay
	default:
		return now.Add(-24 * time.Hour)
	}
}

// bossActive is a cosmetic roll, stable within an hour for a given zone so
// recalculation stays deterministic.
func bossActive(zoneID string, now time.Time, chance float64) bool {
	if chance <= 0 {
		return false
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(zoneID))
	_, _ = h.Write([]byte(strconv.FormatInt(now.Unix()/3600, 10)))
	return float64(h.Sum64()%10000)/10000 < chance
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
