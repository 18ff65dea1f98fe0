package game

import (
	"errors"
	"testing"
	"time"
)

func plantedTree(mode PlantationMode, species string) Tree {
	return NewTree("t1", "z1", species, mode, Location{Lat: 1, Lng: 2}, "Asha", DefaultBalance().Trees, t0)
}

func TestStageFor(t *testing.T) {
	b := DefaultBalance().Trees
	tests := []struct {
		days float64
		want TreeStage
	}{
		{0, StageSapling},
		{90, StageSapling},
		{90.1, StageYoung},
		{365, StageYoung},
		{365.5, StageGrowing},
		{731, StageMature},
		{5000, StageMature},
	}
	for _, tt := range tests {
		if got := StageFor(tt.days, b).Stage; got != tt.want {
			t.Errorf("StageFor(%v) = %s, want %s", tt.days, got, tt.want)
		}
	}
}

func TestAdvanceTreeCO2BySpecies(t *testing.T) {
	b := DefaultBalance().Trees
	now := t0.Add(10 * day)

	neem := AdvanceTree(plantedTree(ModeCommunity, "Neem"), now, b)
	approx(t, "neem co2", neem.CO2Offset, 10*0.5*22.0/20.0)

	unknown := AdvanceTree(plantedTree(ModeCommunity, "Oak"), now, b)
	approx(t, "fallback co2", unknown.CO2Offset, 10*0.5)
	approx(t, "car free days", unknown.Metrics.CarFreeDays, 5.0/4.6)
	approx(t, "bottles", unknown.Metrics.PlasticBottles, 5.0/0.08)
}

func TestAdvanceTreeHealthNeglect(t *testing.T) {
	b := DefaultBalance().Trees
	tests := []struct {
		name string
		mode PlantationMode
		age  time.Duration
		want float64
	}{
		{"self within grace", ModeSelf, 5 * day, 100},
		{"self at grace edge", ModeSelf, 7 * day, 100},
		{"self halfway down", ModeSelf, 18*day + 12*time.Hour, 50},
		{"self past cutoff", ModeSelf, 31 * day, 0},
		{"community never decays", ModeCommunity, 60 * day, 100},
		{"sponsored never decays", ModeSponsored, 60 * day, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdvanceTree(plantedTree(tt.mode, "Neem"), t0.Add(tt.age), b)
			approx(t, "health", got.Health, tt.want)
		})
	}
}

func TestAdvanceTreeIdempotentAndMonotonic(t *testing.T) {
	b := DefaultBalance().Trees
	tree := plantedTree(ModeCommunity, "Banyan")

	prev := tree
	for _, days := range []float64{1, 45, 90.5, 200, 366, 800, 1200} {
		now := t0.Add(time.Duration(days * float64(day)))
		next := AdvanceTree(prev, now, b)
		again := AdvanceTree(next, now, b)
		if again.CO2Offset != next.CO2Offset || again.Stage != next.Stage || again.Health != next.Health {
			t.Fatalf("advance not idempotent at day %v: %+v vs %+v", days, next, again)
		}
		if stageOrder[next.Stage] < stageOrder[prev.Stage] {
			t.Fatalf("stage regressed from %s to %s at day %v", prev.Stage, next.Stage, days)
		}
		if next.CO2Offset < prev.CO2Offset {
			t.Fatalf("co2 decreased from %v to %v at day %v", prev.CO2Offset, next.CO2Offset, days)
		}
		prev = next
	}

	// Going back in time never undoes growth.
	back := AdvanceTree(prev, t0.Add(10*day), b)
	if back.Stage != prev.Stage || back.CO2Offset != prev.CO2Offset {
		t.Fatalf("advance with earlier time regressed: %+v", back)
	}
}

func TestMaintainTreeCooldowns(t *testing.T) {
	b := DefaultBalance().Trees
	tree := plantedTree(ModeSelf, "Neem")
	tree.Health = 60

	// Watered at planting, so water is on cooldown for 12h.
	_, _, err := MaintainTree(tree, ActionWater, t0.Add(time.Hour), b)
	if !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected cooldown, got %v", err)
	}

	watered, reward, err := MaintainTree(tree, ActionWater, t0.Add(13*time.Hour), b)
	if err != nil {
		t.Fatalf("water: %v", err)
	}
	approx(t, "health after water", watered.Health, 70)
	if reward.XP != 50 || reward.Credits != 10 {
		t.Fatalf("unexpected reward %+v", reward)
	}
	if !watered.LastWatered.Equal(t0.Add(13*time.Hour)) || len(watered.MaintenanceLog) != 1 {
		t.Fatalf("water not recorded: %+v", watered)
	}
	if len(tree.MaintenanceLog) != 0 {
		t.Fatal("MaintainTree mutated its input")
	}

	// Never fertilized: allowed immediately, capped at 100.
	watered.Health = 95
	fed, _, err := MaintainTree(watered, ActionFertilize, t0.Add(14*time.Hour), b)
	if err != nil {
		t.Fatalf("fertilize: %v", err)
	}
	approx(t, "health capped", fed.Health, 100)
	if fed.LastFertilized == nil {
		t.Fatal("LastFertilized not set")
	}
	if _, _, err := MaintainTree(fed, ActionFertilize, t0.Add(6*day), b); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected fertilize cooldown, got %v", err)
	}
	if _, _, err := MaintainTree(fed, "prune", t0.Add(30*day), b); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected invalid action, got %v", err)
	}
}
