package game

import (
	"strings"
	"testing"
	"time"

	"github.com/everforgeworks/ecosnap-engine/internal/store"
)

func TestRankFor(t *testing.T) {
	tests := []struct {
		points int
		want   string
	}{
		{0, "Seedling"},
		{500, "Seedling"},
		{501, "Sprout"},
		{2001, "Guardian"},
		{5001, "Ranger"},
		{15001, "Zone Lord"},
		{50001, "City Champion"},
	}
	for _, tt := range tests {
		if got := RankFor(tt.points); got != tt.want {
			t.Errorf("RankFor(%d) = %q, want %q", tt.points, got, tt.want)
		}
	}
}

func TestNextRankProgress(t *testing.T) {
	approx(t, "seedling", NextRankProgress(250), 50)
	approx(t, "sprout", NextRankProgress(1250), 50)
	approx(t, "top", NextRankProgress(90000), 100)
}

func TestNeighborhoodHealth(t *testing.T) {
	if got := NeighborhoodHealth(nil); got != 100 {
		t.Fatalf("empty = %d", got)
	}
	zones := []Zone{{Health: 40}, {Health: 61}}
	if got := NeighborhoodHealth(zones); got != 51 {
		t.Fatalf("mean = %d", got)
	}
}

func TestImpactStory(t *testing.T) {
	if got := ImpactStory(0, 2500, nil); !strings.Contains(got, "2.5kg debris logged") {
		t.Fatalf("monitoring story = %q", got)
	}
	trees := []Tree{{CO2Offset: 1.2}, {CO2Offset: 2}}
	got := ImpactStory(600, 0, trees)
	if !strings.Contains(got, "2 trees planted") || !strings.Contains(got, "3.2kg") || !strings.Contains(got, "Rank: Sprout") {
		t.Fatalf("restoration story = %q", got)
	}
}

func TestProfileAndLeaderboard(t *testing.T) {
	h := newHarness(t, func(s *store.Snapshots) { s.Save(KeyPoints, 1200) })
	if _, err := h.engine.ClaimScan(bottle, ClaimCleanup, nil); err != nil {
		t.Fatalf("claim: %v", err)
	}
	h.clock.Advance(time.Hour)

	p := h.engine.Profile()
	if p.Username != "Asha" || p.Rank != "Sprout" || !p.SponsoredUnlocked || p.ScanCount != 1 {
		t.Fatalf("unexpected profile %+v", p)
	}
	if p.CurrentZone == nil || p.CurrentZone.ID != ZoneIDOf(FallbackLocation.Lat, FallbackLocation.Lng) {
		t.Fatalf("current zone = %+v", p.CurrentZone)
	}

	board := h.engine.Leaderboard()
	if len(board) != 1 || !board[0].IsUser || board[0].Points != 1220 || board[0].Ward != p.CurrentZone.Name {
		t.Fatalf("unexpected leaderboard %+v", board)
	}
}
