/*
Package game
File: trees.go
Description:
    The tree lifecycle model: growth stage, health and cumulative CO2 offset
    as pure functions of elapsed time, species and maintenance.

    AdvanceTree is safe to call at any cadence. It never moves a tree
    backwards (stage and CO2 are monotonic) and calling it twice with the
    same time yields the same snapshot.
*/

package game

import (
	"fmt"
	"math"
	"time"
)

const day = 24 * time.Hour

// NewTree initialises a freshly planted tree.
func NewTree(id string, zoneID string, species string, mode PlantationMode, loc Location, owner string, b TreeBalance, now time.Time) Tree {
	return Tree{
		ID:             id,
		Species:        species,
		PlantedAt:      now,
		Location:       loc,
		OwnerName:      owner,
		ZoneID:         zoneID,
		Mode:           mode,
		Stage:          b.Stages[0].Stage,
		Health:         100,
		LastWatered:    now,
		MaintenanceLog: []MaintenanceLog{},
		CO2Offset:      0,
	}
}

// StageFor returns the highest rung whose threshold ageDays exceeds.
// Stages must be sorted ascending by AfterDays (Balance.Validate does that).
func StageFor(ageDays float64, b TreeBalance) StageConfig {
	current := b.Stages[0]
	for _, st := range b.Stages[1:] {
		if ageDays > st.AfterDays {
			current = st
		}
	}
	return current
}

// SpeciesMultiplier scales the baseline CO2 rate by the species' annual
// offset. Unknown species fall back to the default rate.
func SpeciesMultiplier(species string, b TreeBalance) float64 {
	rate, ok := b.SpeciesRates[species]
	if !ok || rate <= 0 {
		rate = b.DefaultSpeciesRate
	}
	return rate / b.BaselineRate
}

// MetricsFor converts a CO2 offset into display equivalents.
func MetricsFor(co2 float64, b TreeBalance) TreeMetrics {
	return TreeMetrics{
		CarFreeDays:    safeDiv(co2, b.CarFreeDayKg),
		ACHours:        safeDiv(co2, b.ACHourKg),
		PlasticBottles: safeDiv(co2, b.PlasticBottleKg),
	}
}

// AdvanceTree produces the tree's snapshot at now.
func AdvanceTree(t Tree, now time.Time, b TreeBalance) Tree {
	ageDays := math.Max(0, now.Sub(t.PlantedAt).Hours()/24)

	// 1. Growth stage, never regressing
	stage := StageFor(ageDays, b)
	if stageOrder[stage.Stage] < stageOrder[t.Stage] {
		stage = stageConfig(t.Stage, b)
	}

	// 2. Health
	health := treeHealthAt(t, now, b)

	// 3. CO2: age x stage rate x species, damped by health. Never decreases.
	healthFactor := 1.0
	if t.Mode == ModeSelf {
		healthFactor = health / 100
	}
	co2 := ageDays * stage.CO2PerDay * SpeciesMultiplier(t.Species, b) * healthFactor
	co2 = math.Max(t.CO2Offset, co2)

	out := t
	out.Stage = stage.Stage
	out.Health = health
	out.CO2Offset = co2
	out.Metrics = MetricsFor(co2, b)
	return out
}

// treeHealthAt applies neglect. Auto-maintained trees stay at 100. Self-planted
// trees keep their health through the grace window, then ramp linearly to 0
// at the cutoff. Neglect only ever lowers health.
func treeHealthAt(t Tree, now time.Time, b TreeBalance) float64 {
	if t.Mode != ModeSelf {
		return 100
	}
	sinceWater := now.Sub(t.LastWatered).Hours() / 24
	if sinceWater <= b.WaterGraceDays {
		return clamp(t.Health, 0, 100)
	}
	ramp := 100 * (b.NeglectCutoffDays - sinceWater) / (b.NeglectCutoffDays - b.WaterGraceDays)
	return clamp(math.Min(t.Health, ramp), 0, 100)
}

// MaintainTree applies a water/fertilize action. A call inside the action's
// cooldown returns ErrCooldownActive and the tree unchanged.
func MaintainTree(t Tree, action MaintenanceAction, now time.Time, b TreeBalance) (Tree, MaintenanceReward, error) {
	reward, ok := b.Maintenance[action]
	if !ok {
		return t, MaintenanceReward{}, fmt.Errorf("%w: unknown maintenance %q", ErrInvalidAction, action)
	}

	var last time.Time
	switch action {
	case ActionWater:
		last = t.LastWatered
	case ActionFertilize:
		if t.LastFertilized != nil {
			last = *t.LastFertilized
		}
	}
	if !last.IsZero() {
		if wait := reward.Cooldown - now.Sub(last); wait > 0 {
			return t, MaintenanceReward{}, fmt.Errorf("%w: %s available in %s", ErrCooldownActive, action, wait.Round(time.Minute))
		}
	}

	out := t
	out.Health = math.Min(100, t.Health+reward.Health)
	switch action {
	case ActionWater:
		out.LastWatered = now
	case ActionFertilize:
		at := now
		out.LastFertilized = &at
	}
	out.MaintenanceLog = append(append([]MaintenanceLog(nil), t.MaintenanceLog...), MaintenanceLog{
		Date:         now,
		Action:       action,
		HealthImpact: reward.Health,
	})
	return out, reward, nil
}

func stageConfig(stage TreeStage, b TreeBalance) StageConfig {
	for _, st := range b.Stages {
		if st.Stage == stage {
			return st
		}
	}
	return b.Stages[0]
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
