/*
Package game
File: ranks.go
Description:
    Read models derived from engine state for the dashboard: player rank,
    rank progress, neighbourhood health, CO2 totals, the weekly impact line
    and the (single player) leaderboard.
*/

package game

import (
	"fmt"
	"math"
)

type rankStep struct {
	Title string
	Above int // points must exceed this to hold the title
}

// rankLadder is ordered from the top down.
var rankLadder = []rankStep{
	{"City Champion", 50000},
	{"Zone Lord", 15000},
	{"Ranger", 5000},
	{"Guardian", 2000},
	{"Sprout", 500},
	{"Seedling", math.MinInt},
}

// RankFor returns the title for a point total.
func RankFor(points int) string {
	for _, r := range rankLadder {
		if points > r.Above {
			return r.Title
		}
	}
	return rankLadder[len(rankLadder)-1].Title
}

// NextRankProgress is the percentage [0,100] of the way from the current
// rank's floor to the next rank's floor.
func NextRankProgress(points int) float64 {
	for i, r := range rankLadder {
		if points > r.Above {
			if i == 0 {
				return 100
			}
			floor := max(0, r.Above)
			next := rankLadder[i-1].Above
			return clamp(float64(points-floor)/float64(next-floor)*100, 0, 100)
		}
	}
	return 0
}

// NeighborhoodHealth is the rounded mean zone health, 100 when there are no zones.
func NeighborhoodHealth(zones []Zone) int {
	if len(zones) == 0 {
		return 100
	}
	sum := 0.0
	for _, z := range zones {
		sum += z.Health
	}
	return int(math.Round(sum / float64(len(zones))))
}

// TotalCO2 sums the offset of every tree.
func TotalCO2(trees []Tree) float64 {
	total := 0.0
	for _, t := range trees {
		total += t.CO2Offset
	}
	return total
}

// ImpactStory is the one-line weekly summary shown on the dashboard.
func ImpactStory(points int, wasteGrams float64, trees []Tree) string {
	if len(trees) > 0 {
		return fmt.Sprintf("Sector Status: RESTORATION ACTIVE. %d trees planted. %.1fkg CO₂ offset. Rank: %s.",
			len(trees), TotalCO2(trees), RankFor(points))
	}
	return fmt.Sprintf("Sector Status: MONITORING. %.1fkg debris logged. Initiate plantation protocols to offset carbon.",
		wasteGrams/1000)
}

// Profile is the dashboard view of the player.
type Profile struct {
	Username           string       `json:"username"`
	Rank               string       `json:"rank"`
	NextRankProgress   float64      `json:"nextRankProgress"`
	Balances           Balances     `json:"balances"`
	Activity           ActivityType `json:"activity"`
	SponsoredUnlocked  bool         `json:"sponsoredUnlocked"`
	NeighborhoodHealth int          `json:"neighborhoodHealth"`
	TotalCO2Offset     float64      `json:"totalCo2Offset"`
	TreeCount          int          `json:"treeCount"`
	ScanCount          int          `json:"scanCount"`
	ImpactStory        string       `json:"impactStory"`
	CurrentZone        *Zone        `json:"currentZone,omitempty"`
}

type LeaderboardEntry struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
	Rank   int    `json:"rank"`
	Ward   string `json:"ward"`
	IsUser bool   `json:"isUser"`
	Title  string `json:"title"`
}

func (e *Engine) Profile() Profile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.state
	p := Profile{
		Username:           s.Username,
		Rank:               RankFor(s.Balances.TotalPoints),
		NextRankProgress:   NextRankProgress(s.Balances.TotalPoints),
		Balances:           s.Balances,
		Activity:           s.Activity,
		SponsoredUnlocked:  SponsoredUnlocked(s.Balances, e.balance.Ledger),
		NeighborhoodHealth: NeighborhoodHealth(s.Zones),
		TotalCO2Offset:     TotalCO2(s.Trees),
		TreeCount:          len(s.Trees),
		ScanCount:          len(s.History),
		ImpactStory:        ImpactStory(s.Balances.TotalPoints, s.Balances.TotalWasteWeight, s.Trees),
	}
	if z, ok := e.currentZoneLocked(); ok {
		p.CurrentZone = &z
	}
	return p
}

// Leaderboard only knows the local player for now.
func (e *Engine) Leaderboard() []LeaderboardEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ward := "Unknown Sector"
	if z, ok := e.currentZoneLocked(); ok {
		ward = z.Name
	}
	return []LeaderboardEntry{{
		Name:   e.state.Username,
		Points: e.state.Balances.TotalPoints,
		Rank:   1,
		Ward:   ward,
		IsUser: true,
		Title:  RankFor(e.state.Balances.TotalPoints),
	}}
}
