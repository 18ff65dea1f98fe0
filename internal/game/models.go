/*
Package game
File: models.go
Description:
    Defines the data structures of the EcoSnap ecosystem simulation: zones,
    trees, scan receipts and the player's resource balances.

    These types double as the persisted snapshot format (JSON) and the API
    response shapes. No logic lives here.
*/

package game

import "time"

// Location is a WGS84 coordinate.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type ZoneStatus string

const (
	StatusCritical ZoneStatus = "Critical"
	StatusDirty    ZoneStatus = "Dirty"
	StatusModerate ZoneStatus = "Moderate"
	StatusClean    ZoneStatus = "Clean"
	StatusPristine ZoneStatus = "Pristine"
)

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDecaying  Trend = "decaying"
	TrendStable    Trend = "stable"
)

type TreeStage string

const (
	StageSapling TreeStage = "Sapling"
	StageYoung   TreeStage = "Young"
	StageGrowing TreeStage = "Growing"
	StageMature  TreeStage = "Mature"
)

// stageOrder ranks stages so growth can be compared.
var stageOrder = map[TreeStage]int{
	StageSapling: 0,
	StageYoung:   1,
	StageGrowing: 2,
	StageMature:  3,
}

type PlantationMode string

const (
	ModeSelf      PlantationMode = "self"
	ModeCommunity PlantationMode = "community"
	ModeSponsored PlantationMode = "sponsored"
)

type ClaimType string

const (
	ClaimScout   ClaimType = "scout"   // logged only
	ClaimCleanup ClaimType = "cleanup" // physically removed
)

type MaintenanceAction string

const (
	ActionWater     MaintenanceAction = "water"
	ActionFertilize MaintenanceAction = "fertilize"
)

type ActivityType string

const (
	ActivityWalking ActivityType = "Walking"
	ActivityRunning ActivityType = "Running"
	ActivityCycling ActivityType = "Cycling"
)

// GreenLayer summarises the vegetation planted in a zone.
type GreenLayer struct {
	TreeCount      int     `json:"treeCount"`
	PlantableSpots int     `json:"plantableSpots"` // max(0, capacity - treeCount)
	CO2Offset      float64 `json:"co2Offset"`      // kg, sum over the zone's trees
	ForestCoverage float64 `json:"forestCoverage"` // percent, capped at 100
}

// WasteLayer carries the decay bookkeeping of a zone.
type WasteLayer struct {
	DecayRate         float64    `json:"decayRate"` // health points per hour
	LastCleaned       *time.Time `json:"lastCleaned,omitempty"`
	LastDecay         time.Time  `json:"lastDecay"` // when the last recalculation ran
	ContributionCount int        `json:"contributionCount"`
	IsBossActive      bool       `json:"isBossActive"` // cosmetic
}

type ZoneGamification struct {
	OwnerName     string `json:"ownerName,omitempty"`
	TeamTerritory string `json:"teamTerritory,omitempty"`
	ZoneLevel     int    `json:"zoneLevel"`
}

// Zone is one geographic grid cell. Zones are created lazily and never deleted.
type Zone struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Lat             float64          `json:"lat"` // rounded cell centre
	Lng             float64          `json:"lng"`
	CreatedAt       time.Time        `json:"createdAt"`
	Health          float64          `json:"health"` // [0,100]
	Status          ZoneStatus       `json:"status"`
	PredictionTrend Trend            `json:"predictionTrend"`
	GreenLayer      GreenLayer       `json:"greenLayer"`
	WasteLayer      WasteLayer       `json:"wasteLayer"`
	Gamification    ZoneGamification `json:"gamification"`
}

type MaintenanceLog struct {
	Date         time.Time         `json:"date"`
	Action       MaintenanceAction `json:"action"`
	HealthImpact float64           `json:"healthImpact"`
}

// TreeMetrics translates a CO2 offset into everyday equivalents for display.
type TreeMetrics struct {
	CarFreeDays    float64 `json:"carFreeDays"`
	ACHours        float64 `json:"acHours"`
	PlasticBottles float64 `json:"plasticBottles"`
}

// Tree is one planted tree instance.
type Tree struct {
	ID             string           `json:"id"`
	Species        string           `json:"species"`
	PlantedAt      time.Time        `json:"plantedAt"`
	Location       Location         `json:"location"`
	OwnerName      string           `json:"ownerName"`
	ZoneID         string           `json:"zoneId"`
	Mode           PlantationMode   `json:"mode"`
	Stage          TreeStage        `json:"stage"`
	Health         float64          `json:"health"` // [0,100]
	LastWatered    time.Time        `json:"lastWatered"`
	LastFertilized *time.Time       `json:"lastFertilized,omitempty"`
	MaintenanceLog []MaintenanceLog `json:"maintenanceLog"`
	CO2Offset      float64          `json:"co2Offset"` // kg, never decreases
	Metrics        TreeMetrics      `json:"metrics"`
}

// Classification is the result handed in by the external vision collaborator.
// The engine only reads Points and EstimatedWeight; the rest is carried along
// in the scan receipt.
type Classification struct {
	WasteType           string   `json:"wasteType"`
	Confidence          float64  `json:"confidence"`
	IsRecyclable        bool     `json:"isRecyclable"`
	MaterialComposition []string `json:"materialComposition,omitempty"`
	Condition           string   `json:"condition"`
	RiskLevel           string   `json:"riskLevel"`
	BiologicalCategory  string   `json:"biologicalCategory,omitempty"`
	Reasoning           string   `json:"reasoning,omitempty"`
	FunFact             string   `json:"funFact,omitempty"`
	UpcycleIdea         string   `json:"upcycleIdea,omitempty"`
	Points              int      `json:"points"`
	EstimatedWeight     float64  `json:"estimatedWeight"` // grams
}

// ScanRecord is the immutable receipt of one claim. Only UpcycleBonusClaimed
// ever flips.
type ScanRecord struct {
	Analysis            Classification `json:"analysis"`
	ID                  string         `json:"id"`
	Timestamp           time.Time      `json:"timestamp"`
	ActivityMode        ActivityType   `json:"activityMode"`
	ClaimType           ClaimType      `json:"claimType"`
	BasePoints          int            `json:"basePoints"`
	FitnessBonus        int            `json:"fitnessBonus"`
	CleanupBonus        int            `json:"cleanupBonus"`
	Points              int            `json:"points"` // total awarded
	Location            *Location      `json:"location,omitempty"`
	UpcycleBonusClaimed bool           `json:"upcycleBonusClaimed"`
}

// Balances are the player's counters.
type Balances struct {
	TotalPoints      int       `json:"totalPoints"`  // never decreases
	GreenCredits     int       `json:"greenCredits"` // spendable, never negative
	TotalWasteWeight float64   `json:"totalWasteWeight"`
	StreakDays       int       `json:"streakDays"`
	LastActiveDay    time.Time `json:"lastActiveDay,omitempty"`
}
