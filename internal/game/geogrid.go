/*
Package game
File: geogrid.go
Description:
    Maps continuous coordinates onto the fixed-precision zone grid. Three
    decimal places give cells of roughly 111m on a side.
*/

package game

import (
	"math"
	"strconv"
	"time"
)

const gridDecimals = 3

// ZoneIDOf returns the grid cell key for a coordinate. Two coordinates share a
// zone iff their 3-decimal renderings are equal.
func ZoneIDOf(lat, lng float64) string {
	return formatGrid(lat) + "_" + formatGrid(lng)
}

// CellCentre snaps a coordinate to the rounded grid position used as the
// zone's display centre.
func CellCentre(lat, lng float64) Location {
	return Location{Lat: snap(lat), Lng: snap(lng)}
}

// formatGrid rounds half away from zero, so exact ties like 1.0625 go up in
// magnitude, and a rounded -0 renders as 0.
func formatGrid(v float64) string {
	scale := math.Pow10(gridDecimals)
	r := math.Round(v*scale) / scale
	if r == 0 {
		r = 0
	}
	return strconv.FormatFloat(r, 'f', gridDecimals, 64)
}

func snap(v float64) float64 {
	out, err := strconv.ParseFloat(formatGrid(v), 64)
	if err != nil {
		return v
	}
	return out
}

// NewZone builds a fresh zone for the cell containing (lat, lng).
func NewZone(lat, lng float64, b Balance, now time.Time) Zone {
	id := ZoneIDOf(lat, lng)
	centre := CellCentre(lat, lng)
	return Zone{
		ID:              id,
		Name:            defaultZoneName(id),
		Lat:             centre.Lat,
		Lng:             centre.Lng,
		CreatedAt:       now,
		Health:          b.Zone.BaselineHealth,
		Status:          StatusFor(b.Zone.BaselineHealth, b.Zone.Status),
		PredictionTrend: TrendStable,
		GreenLayer: GreenLayer{
			PlantableSpots: b.Zone.TreeCapacity,
		},
		WasteLayer: WasteLayer{
			DecayRate: b.Zone.DefaultDecay,
			LastDecay: now,
		},
		Gamification: ZoneGamification{ZoneLevel: 1},
	}
}

// defaultZoneName uses the last four characters of the id, e.g. "Sector .877".
func defaultZoneName(id string) string {
	if len(id) <= 4 {
		return "Sector " + id
	}
	return "Sector " + id[len(id)-4:]
}
