/*
Package game
File: balance.go
Description:
    Global tuning variables for the simulation. DefaultBalance carries the
    reference numbers; an optional YAML file can override any subset of them
    (LoadBalance fills everything it does not mention from the defaults).
*/

package game

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Balance is the root tuning struct, mapping to the whole balance YAML file.
type Balance struct {
	Zone   ZoneBalance   `yaml:"zone"`
	Trees  TreeBalance   `yaml:"trees"`
	Ledger LedgerBalance `yaml:"ledger"`
}

// StatusThresholds are inclusive lower bounds of each tier.
type StatusThresholds struct {
	Pristine float64 `yaml:"pristine"`
	Clean    float64 `yaml:"clean"`
	Moderate float64 `yaml:"moderate"`
	Dirty    float64 `yaml:"dirty"`
}

type ZoneBalance struct {
	BaselineHealth float64 `yaml:"baseline_health"` // health of an untouched zone before decay
	CleanupImpact  float64 `yaml:"cleanup_impact"`  // per cleanup claim, lifetime
	ScoutImpact    float64 `yaml:"scout_impact"`    // per scout claim, lifetime
	TreeBuff       float64 `yaml:"tree_buff"`       // per tree in the zone
	TreeCapacity   int     `yaml:"tree_capacity"`

	LowHealthThreshold  float64 `yaml:"low_health_threshold"`  // projected health below this decays fast
	HighHealthThreshold float64 `yaml:"high_health_threshold"` // projected health above this decays slowly
	LowHealthDecay      float64 `yaml:"low_health_decay"`      // per hour
	HighHealthDecay     float64 `yaml:"high_health_decay"`
	DefaultDecay        float64 `yaml:"default_decay"`
	TreeProtection      float64 `yaml:"tree_protection"`     // decay reduction per tree
	MaxTreeProtection   float64 `yaml:"max_tree_protection"` // trees never stop decay entirely

	NeglectMinorHours   float64 `yaml:"neglect_minor_hours"`
	NeglectMinorPenalty float64 `yaml:"neglect_minor_penalty"`
	NeglectMajorHours   float64 `yaml:"neglect_major_hours"`
	NeglectMajorPenalty float64 `yaml:"neglect_major_penalty"`

	OwnershipClaimHealth float64 `yaml:"ownership_claim_health"` // owner assigned above this
	OwnershipLossHealth  float64 `yaml:"ownership_loss_health"`  // owner cleared below this
	DecayingTrendLoss    float64 `yaml:"decaying_trend_loss"`

	CoveragePerTree float64          `yaml:"coverage_per_tree"`
	BossChance      float64          `yaml:"boss_chance"`
	TeamName        string           `yaml:"team_name"`
	Status          StatusThresholds `yaml:"status"`
	LevelThresholds []int            `yaml:"level_thresholds"` // contributions needed to exceed for levels 2..n
}

// StageConfig is one rung of the growth ladder. A tree reaches Stage once its
// age in days exceeds AfterDays.
type StageConfig struct {
	Stage     TreeStage `yaml:"stage"`
	AfterDays float64   `yaml:"after_days"`
	CO2PerDay float64   `yaml:"co2_per_day"` // kg/day for a baseline species
}

type MaintenanceReward struct {
	Cooldown time.Duration `yaml:"cooldown"`
	Health   float64       `yaml:"health"`
	XP       int           `yaml:"xp"`
	Credits  int           `yaml:"credits"`
}

type TreeBalance struct {
	Stages             []StageConfig                           `yaml:"stages"`
	SpeciesRates       map[string]float64                      `yaml:"species_rates"` // kg CO2/year
	DefaultSpeciesRate float64                                 `yaml:"default_species_rate"`
	BaselineRate       float64                                 `yaml:"baseline_rate"` // species rate that maps to a 1.0 multiplier
	WaterGraceDays     float64                                 `yaml:"water_grace_days"`
	NeglectCutoffDays  float64                                 `yaml:"neglect_cutoff_days"`
	Maintenance        map[MaintenanceAction]MaintenanceReward `yaml:"maintenance"`

	CarFreeDayKg    float64 `yaml:"car_free_day_kg"`
	ACHourKg        float64 `yaml:"ac_hour_kg"`
	PlasticBottleKg float64 `yaml:"plastic_bottle_kg"`
}

type BulkDiscount struct {
	MinQuantity int     `yaml:"min_quantity"`
	Factor      float64 `yaml:"factor"`
}

type PlantingXP struct {
	Flat    int `yaml:"flat"`     // awarded once regardless of quantity
	PerTree int `yaml:"per_tree"` // awarded per planted tree
}

type LedgerBalance struct {
	StartingCredits     int                           `yaml:"starting_credits"`
	ScanDebounce        time.Duration                 `yaml:"scan_debounce"`
	ActivityMultipliers map[ActivityType]float64      `yaml:"activity_multipliers"`
	CleanupCredits      int                           `yaml:"cleanup_credits"`
	UpcycleBonus        int                           `yaml:"upcycle_bonus"`
	PlantingCosts       map[PlantationMode]int        `yaml:"planting_costs"`
	CommunityDiscounts  []BulkDiscount                `yaml:"community_discounts"`
	PlantingXP          map[PlantationMode]PlantingXP `yaml:"planting_xp"`
	SelfPlantRefund     int                           `yaml:"self_plant_refund"`
	SponsoredStreakDays int                           `yaml:"sponsored_streak_days"`
	SponsoredMinPoints  int                           `yaml:"sponsored_min_points"`
	JitterDegrees       float64                       `yaml:"jitter_degrees"` // half-width of the non-self planting scatter
}

// DefaultBalance returns the reference tuning. Each call returns fresh maps.
func DefaultBalance() Balance {
	return Balance{
		Zone: ZoneBalance{
			BaselineHealth:       50,
			CleanupImpact:        15,
			ScoutImpact:          -2,
			TreeBuff:             8,
			TreeCapacity:         5,
			LowHealthThreshold:   40,
			HighHealthThreshold:  80,
			LowHealthDecay:       1.0,
			HighHealthDecay:      0.05,
			DefaultDecay:         0.2,
			TreeProtection:       0.1,
			MaxTreeProtection:    0.5,
			NeglectMinorHours:    24,
			NeglectMinorPenalty:  5,
			NeglectMajorHours:    72,
			NeglectMajorPenalty:  20,
			OwnershipClaimHealth: 80,
			OwnershipLossHealth:  40,
			DecayingTrendLoss:    5,
			CoveragePerTree:      20,
			BossChance:           0.05,
			TeamName:             "Rangers",
			Status:               StatusThresholds{Pristine: 86, Clean: 61, Moderate: 41, Dirty: 21},
			LevelThresholds:      []int{10, 25, 50, 100},
		},
		Trees: TreeBalance{
			Stages: []StageConfig{
				{Stage: StageSapling, AfterDays: 0, CO2PerDay: 0.5},
				{Stage: StageYoung, AfterDays: 90, CO2PerDay: 2.0},
				{Stage: StageGrowing, AfterDays: 365, CO2PerDay: 5.0},
				{Stage: StageMature, AfterDays: 730, CO2PerDay: 10.0},
			},
			SpeciesRates: map[string]float64{
				"Neem": 22, "Banyan": 45, "Peepal": 35, "Mango": 28, "Eucalyptus": 25, "Bamboo": 30,
			},
			DefaultSpeciesRate: 20,
			BaselineRate:       20,
			WaterGraceDays:     7,
			NeglectCutoffDays:  30,
			Maintenance: map[MaintenanceAction]MaintenanceReward{
				ActionWater:     {Cooldown: 12 * time.Hour, Health: 10, XP: 50, Credits: 10},
				ActionFertilize: {Cooldown: 7 * 24 * time.Hour, Health: 15, XP: 100, Credits: 25},
			},
			CarFreeDayKg:    4.6,
			ACHourKg:        1.5,
			PlasticBottleKg: 0.08,
		},
		Ledger: LedgerBalance{
			StartingCredits: 500,
			ScanDebounce:    2 * time.Second,
			ActivityMultipliers: map[ActivityType]float64{
				ActivityWalking: 1.0, ActivityRunning: 1.5, ActivityCycling: 1.2,
			},
			CleanupCredits: 15,
			UpcycleBonus:   50,
			PlantingCosts: map[PlantationMode]int{
				ModeSelf: 50, ModeCommunity: 100, ModeSponsored: 0,
			},
			CommunityDiscounts: []BulkDiscount{
				{MinQuantity: 10, Factor: 0.85},
				{MinQuantity: 5, Factor: 0.9},
			},
			PlantingXP: map[PlantationMode]PlantingXP{
				ModeSelf:      {Flat: 500},
				ModeCommunity: {PerTree: 200},
				ModeSponsored: {PerTree: 300},
			},
			SelfPlantRefund:     50,
			SponsoredStreakDays: 30,
			SponsoredMinPoints:  1000,
			JitterDegrees:       0.00025,
		},
	}
}

// LoadBalance reads a YAML override file on top of the defaults.
// A missing file is not an error: the defaults are returned unchanged.
func LoadBalance(path string) (Balance, error) {
	b := DefaultBalance()
	if path == "" {
		return b, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return b, nil
	}
	if err != nil {
		return Balance{}, err
	}
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return Balance{}, fmt.Errorf("parse balance %s: %w", path, err)
	}
	if err := b.Validate(); err != nil {
		return Balance{}, fmt.Errorf("balance %s: %w", path, err)
	}
	return b, nil
}

// Validate checks the invariants the formulas rely on and normalises the
// growth ladder and discount order.
func (b *Balance) Validate() error {
	z := b.Zone
	if z.TreeCapacity < 0 {
		return errors.New("zone.tree_capacity must not be negative")
	}
	if !(z.Status.Dirty <= z.Status.Moderate && z.Status.Moderate <= z.Status.Clean && z.Status.Clean <= z.Status.Pristine) {
		return errors.New("zone.status thresholds must be ascending")
	}
	if z.MaxTreeProtection < 0 || z.MaxTreeProtection > 1 {
		return errors.New("zone.max_tree_protection must be within [0,1]")
	}
	if len(b.Trees.Stages) == 0 {
		return errors.New("trees.stages must not be empty")
	}
	sort.SliceStable(b.Trees.Stages, func(i, j int) bool {
		return b.Trees.Stages[i].AfterDays < b.Trees.Stages[j].AfterDays
	})
	for _, st := range b.Trees.Stages {
		if _, ok := stageOrder[st.Stage]; !ok {
			return fmt.Errorf("trees.stages: unknown stage %q", st.Stage)
		}
	}
	if b.Trees.NeglectCutoffDays <= b.Trees.WaterGraceDays {
		return errors.New("trees.neglect_cutoff_days must exceed water_grace_days")
	}
	if b.Trees.BaselineRate <= 0 {
		return errors.New("trees.baseline_rate must be positive")
	}
	sort.SliceStable(b.Ledger.CommunityDiscounts, func(i, j int) bool {
		return b.Ledger.CommunityDiscounts[i].MinQuantity > b.Ledger.CommunityDiscounts[j].MinQuantity
	})
	for mode, cost := range b.Ledger.PlantingCosts {
		if cost < 0 {
			return fmt.Errorf("ledger.planting_costs.%s must not be negative", mode)
		}
	}
	return nil
}
