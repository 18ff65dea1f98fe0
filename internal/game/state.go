/*
Package game
File: state.go
Description:
    The Engine owns all simulation state: zones, trees, scan history, the
    player's balances and location. Every mutating call takes the write lock
    for its whole read-validate-mutate-recalculate-persist cycle, so actions
    never interleave. Reads take the read lock and return copies.

    State is loaded from the snapshot store on construction and written back
    after every accepted mutation. A failed save is logged, never surfaced.
*/

package game

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/everforgeworks/ecosnap-engine/internal/logger"
	"github.com/everforgeworks/ecosnap-engine/internal/notify"
	"github.com/everforgeworks/ecosnap-engine/internal/store"
)

// Snapshot keys.
const (
	KeyUsername   = "username"
	KeyPoints     = "points"
	KeyCredits    = "credits"
	KeyWeight     = "weight"
	KeyStreak     = "streak"
	KeyLastActive = "last_active"
	KeyHistory    = "history"
	KeyZones      = "zones"
	KeyTrees      = "trees"
	KeyLocation   = "location"
)

const (
	DefaultUsername   = "Operator"
	maxUsernameLength = 15
)

// FallbackLocation is used until the device reports a real fix.
var FallbackLocation = Location{Lat: 19.0760, Lng: 72.8777}

// State is a point-in-time copy of everything the engine tracks.
type State struct {
	Username           string       `json:"username"`
	Balances           Balances     `json:"balances"`
	Activity           ActivityType `json:"activity"`
	Location           *Location    `json:"location,omitempty"`
	IsFallbackLocation bool         `json:"isFallbackLocation"`
	NavigationTarget   string       `json:"navigationTarget,omitempty"`
	Zones              []Zone       `json:"zones"`
	Trees              []Tree       `json:"trees"`
	History            []ScanRecord `json:"history"`
}

// Options wires an Engine. Zero values get sensible defaults.
type Options struct {
	Balance   *Balance
	Snapshots *store.Snapshots
	Sink      notify.Sink
	Logger    *logger.Logger
	Clock     func() time.Time
	NewID     func() string
	Random    func() float64 // uniform in [0,1), used for planting scatter
	Username  string         // used when no username was persisted
}

type Engine struct {
	mu      sync.RWMutex
	balance Balance
	state   State

	// lastScan is the anti-spam debounce anchor; deliberately not persisted.
	lastScan time.Time

	snaps  *store.Snapshots
	sink   notify.Sink
	log    *logger.Logger
	clock  func() time.Time
	newID  func() string
	random func() float64
}

// New loads persisted state and brings it up to date with the clock.
func New(opts Options) *Engine {
	e := &Engine{
		balance: DefaultBalance(),
		snaps:   opts.Snapshots,
		sink:    opts.Sink,
		log:     opts.Logger,
		clock:   opts.Clock,
		newID:   opts.NewID,
		random:  opts.Random,
	}
	if opts.Balance != nil {
		e.balance = *opts.Balance
	}
	if e.sink == nil {
		e.sink = notify.Discard
	}
	if e.log == nil {
		e.log = logger.Nop()
	}
	e.log = e.log.With("component", "engine")
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	if e.random == nil {
		e.random = rand.Float64
	}

	defaultName := strings.TrimSpace(opts.Username)
	if defaultName == "" {
		defaultName = DefaultUsername
	}
	e.load(defaultName)

	e.mu.Lock()
	now := e.clock()
	if e.state.Location == nil {
		loc := FallbackLocation
		e.state.Location = &loc
		e.state.IsFallbackLocation = true
	}
	e.ensureZoneLocked(e.state.Location.Lat, e.state.Location.Lng, now)
	e.advanceTreesLocked(now)
	e.recalculateLocked(now)
	e.persistLocked()
	e.mu.Unlock()

	e.log.Info("engine ready",
		"zones", len(e.state.Zones),
		"trees", len(e.state.Trees),
		"scans", len(e.state.History),
		"fallback_location", e.state.IsFallbackLocation)
	return e
}

func (e *Engine) load(defaultName string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.snaps
	e.state = State{
		Username: store.Load(s, KeyUsername, defaultName),
		Balances: Balances{
			TotalPoints:      store.Load(s, KeyPoints, 0),
			GreenCredits:     store.Load(s, KeyCredits, e.balance.Ledger.StartingCredits),
			TotalWasteWeight: store.Load(s, KeyWeight, 0.0),
			StreakDays:       store.Load(s, KeyStreak, 0),
			LastActiveDay:    store.Load(s, KeyLastActive, time.Time{}),
		},
		Activity: ActivityWalking,
		Location: store.Load[*Location](s, KeyLocation, nil),
		Zones:    store.Load(s, KeyZones, []Zone{}),
		Trees:    store.Load(s, KeyTrees, []Tree{}),
		History:  store.Load(s, KeyHistory, []ScanRecord{}),
	}
	if e.state.Balances.GreenCredits < 0 {
		e.state.Balances.GreenCredits = 0
	}

	// Zones saved without a creation time get one pinned now so the decay
	// anchor stops moving.
	for i := range e.state.Zones {
		z := &e.state.Zones[i]
		if z.CreatedAt.IsZero() {
			z.CreatedAt = z.WasteLayer.LastDecay
			if z.CreatedAt.IsZero() {
				z.CreatedAt = e.clock().Add(-24 * time.Hour)
			}
		}
	}
	for i := range e.state.Trees {
		if e.state.Trees[i].MaintenanceLog == nil {
			e.state.Trees[i].MaintenanceLog = []MaintenanceLog{}
		}
	}
}

// persistLocked writes every collection. Caller holds the write lock.
func (e *Engine) persistLocked() {
	if e.snaps == nil {
		return
	}
	s := e.state
	e.snaps.Save(KeyUsername, s.Username)
	e.snaps.Save(KeyPoints, s.Balances.TotalPoints)
	e.snaps.Save(KeyCredits, s.Balances.GreenCredits)
	e.snaps.Save(KeyWeight, s.Balances.TotalWasteWeight)
	e.snaps.Save(KeyStreak, s.Balances.StreakDays)
	e.snaps.Save(KeyLastActive, s.Balances.LastActiveDay)
	e.snaps.Save(KeyHistory, s.History)
	e.snaps.Save(KeyZones, s.Zones)
	e.snaps.Save(KeyTrees, s.Trees)
	if !s.IsFallbackLocation && s.Location != nil {
		e.snaps.Save(KeyLocation, s.Location)
	}
}

func (e *Engine) recalculateLocked(now time.Time) {
	e.state.Zones = RecalculateAll(e.state.Zones, e.state.History, e.state.Trees, e.state.Username, now, e.balance.Zone)
}

func (e *Engine) advanceTreesLocked(now time.Time) {
	for i, t := range e.state.Trees {
		e.state.Trees[i] = AdvanceTree(t, now, e.balance.Trees)
	}
}

func (e *Engine) emit(msgType notify.Type, format string, args ...interface{}) {
	e.sink.Notify(notify.Message{Type: msgType, Text: fmt.Sprintf(format, args...), At: e.clock()})
}

// reject logs and reports a failed action, returning err for convenience.
func (e *Engine) reject(action string, err error, text string) error {
	e.log.Warn("action rejected", "action", action, "reason", Reason(err), "err", err)
	e.emit(notify.TypeError, "%s", text)
	return err
}

// ---------------------------------------------------------------------------
// Reads

// Snapshot returns a copy of the full state.
func (e *Engine) Snapshot() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.state
	s.Zones = append([]Zone(nil), e.state.Zones...)
	s.Trees = append([]Tree(nil), e.state.Trees...)
	s.History = append([]ScanRecord(nil), e.state.History...)
	if e.state.Location != nil {
		loc := *e.state.Location
		s.Location = &loc
	}
	return s
}

func (e *Engine) Balance() Balance {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.balance
}

// SetBalance swaps the tuning and recalculates with it.
func (e *Engine) SetBalance(b Balance) {
	e.mu.Lock()
	e.balance = b
	now := e.clock()
	e.advanceTreesLocked(now)
	e.recalculateLocked(now)
	e.persistLocked()
	e.mu.Unlock()
	e.log.Info("balance reloaded")
}

func (e *Engine) Zones() []Zone {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Zone(nil), e.state.Zones...)
}

func (e *Engine) Zone(id string) (Zone, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i := e.zoneIndexLocked(id); i >= 0 {
		return e.state.Zones[i], true
	}
	return Zone{}, false
}

func (e *Engine) Trees() []Tree {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Tree(nil), e.state.Trees...)
}

func (e *Engine) Tree(id string) (Tree, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i := e.treeIndexLocked(id); i >= 0 {
		return e.state.Trees[i], true
	}
	return Tree{}, false
}

func (e *Engine) History() []ScanRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]ScanRecord(nil), e.state.History...)
}

func (e *Engine) Balances() Balances {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Balances
}

// CurrentLocation returns the known coordinate (nil if none) and whether it is
// the fallback.
func (e *Engine) CurrentLocation() (*Location, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state.Location == nil {
		return nil, false
	}
	loc := *e.state.Location
	return &loc, e.state.IsFallbackLocation
}

// CurrentZone is the zone containing the current location.
func (e *Engine) CurrentZone() (Zone, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentZoneLocked()
}

func (e *Engine) currentZoneLocked() (Zone, bool) {
	if e.state.Location == nil {
		return Zone{}, false
	}
	if i := e.zoneIndexLocked(ZoneIDOf(e.state.Location.Lat, e.state.Location.Lng)); i >= 0 {
		return e.state.Zones[i], true
	}
	return Zone{}, false
}

func (e *Engine) zoneIndexLocked(id string) int {
	for i := range e.state.Zones {
		if e.state.Zones[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) treeIndexLocked(id string) int {
	for i := range e.state.Trees {
		if e.state.Trees[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) scanIndexLocked(id string) int {
	for i := range e.state.History {
		if e.state.History[i].ID == id {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Zones & location

// EnsureZone returns the zone containing (lat, lng), creating it if unseen.
func (e *Engine) EnsureZone(lat, lng float64) Zone {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock()
	z, created := e.ensureZoneLocked(lat, lng, now)
	if created {
		e.persistLocked()
	}
	return z
}

// ensureZoneLocked creates the zone lazily and runs it through the model once
// so a new zone never shows stale defaults.
func (e *Engine) ensureZoneLocked(lat, lng float64, now time.Time) (Zone, bool) {
	id := ZoneIDOf(lat, lng)
	if i := e.zoneIndexLocked(id); i >= 0 {
		return e.state.Zones[i], false
	}
	z := NewZone(lat, lng, e.balance, now)
	e.state.Zones = append(e.state.Zones, z)
	e.recalculateLocked(now)
	e.log.Info("zone created", "zone_id", id)
	return e.state.Zones[len(e.state.Zones)-1], true
}

// UpdateLocation records a new position. A fallback fix is used for zone
// context but never persisted.
func (e *Engine) UpdateLocation(loc Location, fallback bool) Zone {
	e.mu.Lock()
	now := e.clock()
	e.state.Location = &Location{Lat: loc.Lat, Lng: loc.Lng}
	e.state.IsFallbackLocation = fallback
	z, _ := e.ensureZoneLocked(loc.Lat, loc.Lng, now)

	reached := ""
	if target := e.state.NavigationTarget; target != "" && target == z.ID {
		e.state.NavigationTarget = ""
		reached = z.Name
	}
	e.persistLocked()
	e.mu.Unlock()

	if reached != "" {
		e.emit(notify.TypeSuccess, "TARGET REACHED: %s", reached)
	}
	return z
}

// UseFallbackLocation switches to the default sector, e.g. when the device
// reports no GPS signal.
func (e *Engine) UseFallbackLocation() Zone {
	return e.UpdateLocation(FallbackLocation, true)
}

// RenameZone applies a human readable name, typically from reverse geocoding.
func (e *Engine) RenameZone(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty zone name", ErrInvalidAction)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.zoneIndexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: zone %s", ErrNotFound, id)
	}
	if e.state.Zones[i].Name == name {
		return nil
	}
	e.state.Zones[i].Name = name
	e.persistLocked()
	return nil
}

func (e *Engine) SetNavigationTarget(zoneID string) error {
	e.mu.Lock()
	i := e.zoneIndexLocked(zoneID)
	if i < 0 {
		e.mu.Unlock()
		return e.reject("navigate", fmt.Errorf("%w: zone %s", ErrNotFound, zoneID), "UNKNOWN SECTOR")
	}
	e.state.NavigationTarget = zoneID
	name := e.state.Zones[i].Name
	e.mu.Unlock()

	e.emit(notify.TypeInfo, "NAVIGATION SET: %s", name)
	return nil
}

func (e *Engine) ClearNavigation() {
	e.mu.Lock()
	e.state.NavigationTarget = ""
	e.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Profile settings

// UpdateUsername trims the name to 15 characters; blank becomes the default.
func (e *Engine) UpdateUsername(name string) string {
	cleaned := strings.TrimSpace(name)
	if r := []rune(cleaned); len(r) > maxUsernameLength {
		cleaned = strings.TrimSpace(string(r[:maxUsernameLength]))
	}
	if cleaned == "" {
		cleaned = DefaultUsername
	}
	e.mu.Lock()
	e.state.Username = cleaned
	e.persistLocked()
	e.mu.Unlock()
	return cleaned
}

func (e *Engine) SetActivity(a ActivityType) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.balance.Ledger.ActivityMultipliers[a]; !ok {
		return fmt.Errorf("%w: unknown activity %q", ErrInvalidAction, a)
	}
	e.state.Activity = a
	return nil
}

// ---------------------------------------------------------------------------
// Lifecycle

// Tick advances every tree to now and recalculates all zones. It is the
// heartbeat entry point and is safe to call at any cadence.
func (e *Engine) Tick() []Zone {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock()
	e.advanceTreesLocked(now)
	e.recalculateLocked(now)
	e.persistLocked()
	return append([]Zone(nil), e.state.Zones...)
}
