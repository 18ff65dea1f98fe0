package game

import (
	"errors"
	"testing"
	"time"

	"github.com/everforgeworks/ecosnap-engine/internal/notify"
	"github.com/everforgeworks/ecosnap-engine/internal/store"
)

var bottle = Classification{WasteType: "PET bottle", Points: 10, EstimatedWeight: 25, RiskLevel: "Low", Condition: "Intact"}

func TestScanPoints(t *testing.T) {
	tests := []struct {
		name                  string
		base                  int
		claim                 ClaimType
		mult                  float64
		cleanup, fitness, sum int
	}{
		{"cleanup walking", 10, ClaimCleanup, 1.0, 10, 0, 20},
		{"scout running", 10, ClaimScout, 1.5, 0, 5, 15},
		{"cleanup cycling", 10, ClaimCleanup, 1.2, 10, 4, 24},
		{"rounds half up", 7, ClaimScout, 1.5, 0, 4, 11},
		{"negative base", -5, ClaimCleanup, 1.5, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, f, s := ScanPoints(tt.base, tt.claim, tt.mult)
			if c != tt.cleanup || f != tt.fitness || s != tt.sum {
				t.Fatalf("ScanPoints = %d/%d/%d, want %d/%d/%d", c, f, s, tt.cleanup, tt.fitness, tt.sum)
			}
		})
	}
}

func TestPlantingCostAndReward(t *testing.T) {
	lb := DefaultBalance().Ledger
	costs := []struct {
		mode PlantationMode
		qty  int
		want int
	}{
		{ModeSelf, 1, 50},
		{ModeCommunity, 4, 400},
		{ModeCommunity, 5, 450},
		{ModeCommunity, 10, 850},
		{ModeSponsored, 3, 0},
	}
	for _, c := range costs {
		if got := PlantingCost(c.mode, c.qty, lb); got != c.want {
			t.Errorf("PlantingCost(%s,%d) = %d, want %d", c.mode, c.qty, got, c.want)
		}
	}
	if got := PlantingReward(ModeSelf, 1, lb); got != 500 {
		t.Errorf("self xp = %d", got)
	}
	if got := PlantingReward(ModeCommunity, 3, lb); got != 600 {
		t.Errorf("community xp = %d", got)
	}
	if got := PlantingReward(ModeSponsored, 2, lb); got != 600 {
		t.Errorf("sponsored xp = %d", got)
	}
}

func TestAdvanceStreak(t *testing.T) {
	var b Balances
	advanceStreak(&b, t0)
	if b.StreakDays != 1 {
		t.Fatalf("first day streak = %d", b.StreakDays)
	}
	advanceStreak(&b, t0.Add(3*time.Hour))
	if b.StreakDays != 1 {
		t.Fatalf("same day streak = %d", b.StreakDays)
	}
	advanceStreak(&b, t0.Add(24*time.Hour))
	if b.StreakDays != 2 {
		t.Fatalf("next day streak = %d", b.StreakDays)
	}
	advanceStreak(&b, t0.Add(96*time.Hour))
	if b.StreakDays != 1 {
		t.Fatalf("broken streak = %d", b.StreakDays)
	}
}

func TestEngineUntouchedZoneScenario(t *testing.T) {
	h := newHarness(t, nil)
	h.clock.Advance(10 * time.Hour)
	h.engine.Tick()

	z, ok := h.engine.Zone(ZoneIDOf(FallbackLocation.Lat, FallbackLocation.Lng))
	if !ok {
		t.Fatal("fallback zone not created")
	}
	approx(t, "health", z.Health, 48)
	if z.Status != StatusModerate {
		t.Fatalf("status = %s", z.Status)
	}
}

func TestClaimCleanupScenario(t *testing.T) {
	h := newHarness(t, nil)
	loc := Location{Lat: 19.0761, Lng: 72.8778}

	rec, err := h.engine.ClaimScan(bottle, ClaimCleanup, &loc)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if rec.Points != 20 || rec.BasePoints != 10 || rec.CleanupBonus != 10 || rec.FitnessBonus != 0 {
		t.Fatalf("unexpected receipt %+v", rec)
	}
	bal := h.engine.Balances()
	if bal.TotalPoints != 20 || bal.GreenCredits != 515 || bal.TotalWasteWeight != 25 || bal.StreakDays != 1 {
		t.Fatalf("unexpected balances %+v", bal)
	}
	z, _ := h.engine.Zone(ZoneIDOf(loc.Lat, loc.Lng))
	if z.WasteLayer.ContributionCount != 1 || z.PredictionTrend != TrendImproving {
		t.Fatalf("zone not recalculated: %+v", z.WasteLayer)
	}
	if last, _ := h.notes.Last(); last.Type != notify.TypeSuccess {
		t.Fatalf("expected success notification, got %+v", last)
	}
}

func TestClaimScanDebounce(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.engine.ClaimScan(bottle, ClaimScout, nil); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	before := h.engine.Balances()

	h.clock.Advance(time.Second)
	_, err := h.engine.ClaimScan(bottle, ClaimScout, nil)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	if h.engine.Balances() != before || len(h.engine.History()) != 1 {
		t.Fatal("rejected claim changed state")
	}
	if last, _ := h.notes.Last(); last.Type != notify.TypeError {
		t.Fatalf("expected error notification, got %+v", last)
	}

	h.clock.Advance(time.Second)
	if _, err := h.engine.ClaimScan(bottle, ClaimScout, nil); err != nil {
		t.Fatalf("claim after window: %v", err)
	}
}

func TestClaimScanActivityAndFallbackLocation(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.engine.SetActivity(ActivityRunning); err != nil {
		t.Fatalf("set activity: %v", err)
	}
	if err := h.engine.SetActivity("Flying"); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected invalid activity, got %v", err)
	}

	rec, err := h.engine.ClaimScan(bottle, ClaimScout, nil)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if rec.Points != 15 || rec.ActivityMode != ActivityRunning {
		t.Fatalf("unexpected receipt %+v", rec)
	}
	if rec.Location == nil || ScanZoneID(rec) != ZoneIDOf(FallbackLocation.Lat, FallbackLocation.Lng) {
		t.Fatalf("scan should inherit current location, got %+v", rec.Location)
	}
	if h.engine.Balances().GreenCredits != 500 {
		t.Fatal("scout claims must not grant credits")
	}
}

func TestClaimScoutBatch(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.engine.ClaimScoutBatch(nil); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected empty batch rejection, got %v", err)
	}
	if last, _ := h.notes.Last(); last.Type != notify.TypeError {
		t.Fatalf("expected error notification, got %+v", last)
	}
	items := []ScoutItem{
		{Analysis: bottle},
		{Analysis: Classification{Points: 4}, Location: &Location{Lat: 19.2, Lng: 72.9}},
	}
	recs, err := h.engine.ClaimScoutBatch(items)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(recs) != 2 || h.engine.Balances().TotalPoints != 14 {
		t.Fatalf("unexpected batch result %d recs, %d points", len(recs), h.engine.Balances().TotalPoints)
	}
	if _, ok := h.engine.Zone(ZoneIDOf(19.2, 72.9)); !ok {
		t.Fatal("batch item location should create its zone")
	}
	if _, err := h.engine.ClaimScoutBatch(items); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected batch rate limit, got %v", err)
	}
}

func TestPlantSelfScenario(t *testing.T) {
	h := newHarness(t, func(s *store.Snapshots) { s.Save(KeyCredits, 60) })
	zoneID := ZoneIDOf(FallbackLocation.Lat, FallbackLocation.Lng)
	gps := Location{Lat: 19.07605, Lng: 72.87771}

	trees, err := h.engine.Plant(PlantRequest{ZoneID: zoneID, Species: "Neem", Mode: ModeSelf, UserLocation: &gps})
	if err != nil {
		t.Fatalf("plant: %v", err)
	}
	if len(trees) != 1 || trees[0].Mode != ModeSelf || trees[0].Health != 100 || trees[0].Location != gps {
		t.Fatalf("unexpected tree %+v", trees)
	}
	bal := h.engine.Balances()
	if bal.GreenCredits != 60 || bal.TotalPoints != 500 {
		t.Fatalf("unexpected balances %+v", bal)
	}
	z, _ := h.engine.Zone(zoneID)
	if z.GreenLayer.TreeCount != 1 || z.GreenLayer.PlantableSpots != 4 {
		t.Fatalf("zone not recalculated: %+v", z.GreenLayer)
	}
}

func TestPlantSponsoredIneligible(t *testing.T) {
	h := newHarness(t, func(s *store.Snapshots) {
		s.Save(KeyStreak, 5)
		s.Save(KeyPoints, 200)
	})
	before := h.engine.Balances()
	zoneID := ZoneIDOf(FallbackLocation.Lat, FallbackLocation.Lng)

	_, err := h.engine.Plant(PlantRequest{ZoneID: zoneID, Species: "Banyan", Mode: ModeSponsored, Quantity: 1})
	if !errors.Is(err, ErrIneligible) {
		t.Fatalf("expected ineligible, got %v", err)
	}
	if h.engine.Balances() != before || len(h.engine.Trees()) != 0 {
		t.Fatal("rejected plant changed state")
	}
}

func TestPlantSponsoredUnlockedByPoints(t *testing.T) {
	h := newHarness(t, func(s *store.Snapshots) { s.Save(KeyPoints, 1000) })
	zoneID := ZoneIDOf(FallbackLocation.Lat, FallbackLocation.Lng)

	trees, err := h.engine.Plant(PlantRequest{ZoneID: zoneID, Species: "Peepal", Mode: ModeSponsored, Quantity: 2})
	if err != nil {
		t.Fatalf("plant: %v", err)
	}
	bal := h.engine.Balances()
	if len(trees) != 2 || bal.GreenCredits != 500 || bal.TotalPoints != 1600 {
		t.Fatalf("unexpected result %d trees, %+v", len(trees), bal)
	}
	// Random() is pinned to 0.5, which lands exactly on the zone centre.
	z, _ := h.engine.Zone(zoneID)
	if trees[0].Location.Lat != z.Lat || trees[0].Location.Lng != z.Lng {
		t.Fatalf("unexpected scatter %+v vs %v,%v", trees[0].Location, z.Lat, z.Lng)
	}
}

func TestPlantRejections(t *testing.T) {
	zoneID := ZoneIDOf(FallbackLocation.Lat, FallbackLocation.Lng)
	tests := []struct {
		name    string
		credits int
		req     PlantRequest
		want    error
	}{
		{"unknown zone", 500, PlantRequest{ZoneID: "0.000_0.000", Species: "Neem", Mode: ModeCommunity}, ErrNotFound},
		{"unknown mode", 500, PlantRequest{ZoneID: zoneID, Species: "Neem", Mode: "guerrilla"}, ErrInvalidAction},
		{"missing species", 500, PlantRequest{ZoneID: zoneID, Mode: ModeCommunity}, ErrInvalidAction},
		{"community too expensive", 99, PlantRequest{ZoneID: zoneID, Species: "Neem", Mode: ModeCommunity, Quantity: 1}, ErrInsufficientFunds},
		{"self without gps", 500, PlantRequest{ZoneID: zoneID, Species: "Neem", Mode: ModeSelf}, ErrLocationRequired},
		{"self without gps and funds", 10, PlantRequest{ZoneID: zoneID, Species: "Neem", Mode: ModeSelf}, ErrInsufficientFunds},
		{"more than capacity", 5000, PlantRequest{ZoneID: zoneID, Species: "Neem", Mode: ModeCommunity, Quantity: 6}, ErrCapacityExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(s *store.Snapshots) { s.Save(KeyCredits, tt.credits) })
			before := h.engine.Balances()
			_, err := h.engine.Plant(tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if h.engine.Balances() != before || len(h.engine.Trees()) != 0 {
				t.Fatal("rejected plant changed state")
			}
			if last, ok := h.notes.Last(); !ok || last.Type != notify.TypeError {
				t.Fatalf("expected error notification, got %+v", last)
			}
		})
	}
}

func TestPlantCapacityInvariant(t *testing.T) {
	h := newHarness(t, func(s *store.Snapshots) { s.Save(KeyCredits, 1000) })
	zoneID := ZoneIDOf(FallbackLocation.Lat, FallbackLocation.Lng)
	order := func(qty int) error {
		_, err := h.engine.Plant(PlantRequest{ZoneID: zoneID, Species: "Mango", Mode: ModeCommunity, Quantity: qty})
		return err
	}

	if err := order(4); err != nil {
		t.Fatalf("first plant: %v", err)
	}
	if err := order(2); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected capacity exceeded, got %v", err)
	}
	if err := order(1); err != nil {
		t.Fatalf("fifth tree: %v", err)
	}
	if err := order(1); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected full zone, got %v", err)
	}
	z, _ := h.engine.Zone(zoneID)
	if z.GreenLayer.TreeCount != 5 || z.GreenLayer.PlantableSpots != 0 || h.engine.Balances().GreenCredits != 500 {
		t.Fatalf("unexpected state: %+v, %d credits", z.GreenLayer, h.engine.Balances().GreenCredits)
	}
}

func TestMaintainCooldownScenario(t *testing.T) {
	h := newHarness(t, nil)
	zoneID := ZoneIDOf(FallbackLocation.Lat, FallbackLocation.Lng)
	gps := FallbackLocation
	trees, err := h.engine.Plant(PlantRequest{ZoneID: zoneID, Species: "Neem", Mode: ModeSelf, UserLocation: &gps})
	if err != nil {
		t.Fatalf("plant: %v", err)
	}
	id := trees[0].ID

	h.clock.Advance(13 * time.Hour)
	watered, err := h.engine.Maintain(id, ActionWater)
	if err != nil {
		t.Fatalf("first water: %v", err)
	}
	pointsAfterFirst := h.engine.Balances().TotalPoints

	h.clock.Advance(time.Hour)
	_, err = h.engine.Maintain(id, ActionWater)
	if !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected cooldown, got %v", err)
	}
	current, _ := h.engine.Tree(id)
	if !current.LastWatered.Equal(watered.LastWatered) || h.engine.Balances().TotalPoints != pointsAfterFirst {
		t.Fatal("rejected maintenance changed state")
	}

	if _, err := h.engine.Maintain("nope", ActionWater); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClaimUpcycleBonusOnce(t *testing.T) {
	h := newHarness(t, nil)
	rec, err := h.engine.ClaimScan(bottle, ClaimScout, nil)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	if _, err := h.engine.ClaimUpcycleBonus(rec.ID); err != nil {
		t.Fatalf("upcycle: %v", err)
	}
	points := h.engine.Balances().TotalPoints
	if points != 10+50 {
		t.Fatalf("points = %d", points)
	}
	if _, err := h.engine.ClaimUpcycleBonus(rec.ID); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected already claimed, got %v", err)
	}
	if h.engine.Balances().TotalPoints != points {
		t.Fatal("second upcycle claim changed points")
	}
	if _, err := h.engine.ClaimUpcycleBonus("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPointsMonotonicAndCreditsNonNegative(t *testing.T) {
	h := newHarness(t, func(s *store.Snapshots) { s.Save(KeyCredits, 120) })
	zoneID := ZoneIDOf(FallbackLocation.Lat, FallbackLocation.Lng)
	gps := FallbackLocation

	lastPoints := 0
	check := func() {
		t.Helper()
		b := h.engine.Balances()
		if b.TotalPoints < lastPoints {
			t.Fatalf("points decreased from %d to %d", lastPoints, b.TotalPoints)
		}
		if b.GreenCredits < 0 {
			t.Fatalf("credits went negative: %d", b.GreenCredits)
		}
		lastPoints = b.TotalPoints
	}

	for i := 0; i < 6; i++ {
		_, _ = h.engine.Plant(PlantRequest{ZoneID: zoneID, Species: "Neem", Mode: ModeCommunity, Quantity: 1})
		check()
		_, _ = h.engine.Plant(PlantRequest{ZoneID: zoneID, Species: "Neem", Mode: ModeSelf, UserLocation: &gps})
		check()
		_, _ = h.engine.ClaimScan(bottle, ClaimCleanup, nil)
		check()
		h.clock.Advance(3 * time.Second)
	}
	for _, z := range h.engine.Zones() {
		if z.GreenLayer.TreeCount > 5 || z.Health < 0 || z.Health > 100 {
			t.Fatalf("zone invariant broken: %+v", z)
		}
	}
}

func TestEngineStatePersists(t *testing.T) {
	kv := store.NewMemory()
	snaps := store.NewSnapshots(kv, nil)
	clock := &testClock{now: t0}
	e := New(Options{Snapshots: snaps, Clock: clock.Now})
	e.UpdateUsername("  Asha the Brave Ranger  ")
	loc := Location{Lat: 12.9716, Lng: 77.5946}
	e.UpdateLocation(loc, false)
	if _, err := e.ClaimScan(bottle, ClaimCleanup, nil); err != nil {
		t.Fatalf("claim: %v", err)
	}

	clock.Advance(time.Hour)
	reloaded := New(Options{Snapshots: snaps, Clock: clock.Now})
	s := reloaded.Snapshot()
	if s.Username != "Asha the Brave" {
		t.Fatalf("username = %q", s.Username)
	}
	if s.IsFallbackLocation || s.Location == nil || *s.Location != loc {
		t.Fatalf("location not restored: %+v", s.Location)
	}
	if len(s.History) != 1 || !s.History[0].Timestamp.Equal(t0) || s.Balances.TotalPoints != 20 {
		t.Fatalf("history/balances not restored: %+v %+v", s.History, s.Balances)
	}
	if _, ok := reloaded.Zone(ZoneIDOf(loc.Lat, loc.Lng)); !ok {
		t.Fatal("zone not restored")
	}
}

func TestNavigationTargetReached(t *testing.T) {
	h := newHarness(t, nil)
	dest := h.engine.EnsureZone(19.2, 72.95)
	if err := h.engine.SetNavigationTarget(dest.ID); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if err := h.engine.SetNavigationTarget("nowhere"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	h.engine.UpdateLocation(Location{Lat: 19.2001, Lng: 72.9502}, false)

	if h.engine.Snapshot().NavigationTarget != "" {
		t.Fatal("navigation target should clear on arrival")
	}
	last, _ := h.notes.Last()
	if last.Type != notify.TypeSuccess || last.Text != "TARGET REACHED: "+dest.Name {
		t.Fatalf("unexpected notification %+v", last)
	}
}

func TestRenameZoneAndUsername(t *testing.T) {
	h := newHarness(t, nil)
	zoneID := ZoneIDOf(FallbackLocation.Lat, FallbackLocation.Lng)
	if err := h.engine.RenameZone(zoneID, "Colaba"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if z, _ := h.engine.Zone(zoneID); z.Name != "Colaba" {
		t.Fatalf("name = %q", z.Name)
	}
	if err := h.engine.RenameZone("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := h.engine.UpdateUsername("   "); got != DefaultUsername {
		t.Fatalf("blank username = %q", got)
	}
}

func TestTickAdvancesTreesAndZones(t *testing.T) {
	h := newHarness(t, nil)
	zoneID := ZoneIDOf(FallbackLocation.Lat, FallbackLocation.Lng)
	gps := FallbackLocation
	trees, err := h.engine.Plant(PlantRequest{ZoneID: zoneID, Species: "Neem", Mode: ModeSelf, UserLocation: &gps})
	if err != nil {
		t.Fatalf("plant: %v", err)
	}
	id := trees[0].ID

	h.clock.Advance(20 * 24 * time.Hour)
	zones := h.engine.Tick()

	tree, _ := h.engine.Tree(id)
	approx(t, "tree health", tree.Health, 100*10.0/23)
	approx(t, "tree co2", tree.CO2Offset, 20*0.5*1.1*(10.0/23))
	if tree.Stage != StageSapling {
		t.Fatalf("stage = %s", tree.Stage)
	}
	var zone Zone
	for _, z := range zones {
		if z.ID == zoneID {
			zone = z
		}
	}
	approx(t, "zone co2", zone.GreenLayer.CO2Offset, tree.CO2Offset)
	if !zone.WasteLayer.LastDecay.Equal(h.clock.Now()) {
		t.Fatalf("zone not recalculated at tick time: %v", zone.WasteLayer.LastDecay)
	}

	// Same instant again changes nothing.
	again := h.engine.Tick()
	if re, _ := h.engine.Tree(id); re.CO2Offset != tree.CO2Offset || re.Health != tree.Health {
		t.Fatalf("second tick drifted: %+v", re)
	}
	if len(again) != len(zones) {
		t.Fatalf("zone count changed: %d vs %d", len(again), len(zones))
	}
}

func TestSetBalanceRecalculatesZones(t *testing.T) {
	h := newHarness(t, nil)
	zoneID := ZoneIDOf(FallbackLocation.Lat, FallbackLocation.Lng)
	if _, err := h.engine.Plant(PlantRequest{ZoneID: zoneID, Species: "Mango", Mode: ModeCommunity, Quantity: 1}); err != nil {
		t.Fatalf("plant: %v", err)
	}
	if z, _ := h.engine.Zone(zoneID); z.Health != 58 {
		t.Fatalf("health before reload = %v", z.Health)
	}

	b := DefaultBalance()
	b.Zone.TreeBuff = 0
	b.Zone.TreeCapacity = 1
	h.engine.SetBalance(b)

	z, _ := h.engine.Zone(zoneID)
	approx(t, "health after reload", z.Health, 50)
	if z.GreenLayer.PlantableSpots != 0 || h.engine.Balance().Zone.TreeBuff != 0 {
		t.Fatalf("new tuning not applied: %+v", z.GreenLayer)
	}
	if _, err := h.engine.Plant(PlantRequest{ZoneID: zoneID, Species: "Mango", Mode: ModeCommunity, Quantity: 1}); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected reloaded capacity to apply, got %v", err)
	}
}
