/*
Package api
File: handlers.go
Description:
    HTTP handlers for the REST API. Each handler decodes and checks the
    request shape, hands it to the engine (which owns all validation of game
    rules and all locking) and writes the result as JSON.

    Key Responsibilities:
    - Input decoding (is the JSON valid, are required fields present?)
    - Mapping engine rejections to HTTP statuses
    - Running the reverse geocoder before the engine is touched
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/everforgeworks/ecosnap-engine/internal/game"
	"github.com/everforgeworks/ecosnap-engine/internal/geo"
	"github.com/everforgeworks/ecosnap-engine/internal/logger"
)

const maxBodyBytes = 1 << 20

// Request DTOs

type ScanRequest struct {
	Analysis  game.Classification `json:"analysis"`
	ClaimType game.ClaimType      `json:"claimType"`
	Location  *game.Location      `json:"location,omitempty"`
}

type BatchRequest struct {
	Items []game.ScoutItem `json:"items"`
}

type MaintainRequest struct {
	Action game.MaintenanceAction `json:"action"`
}

// LocationRequest carries a fix; Fallback (or a missing lat/lng) means the
// device has no signal.
type LocationRequest struct {
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Fallback bool     `json:"fallback"`
}

type LocationResponse struct {
	Zone       game.Zone `json:"zone"`
	Address    string    `json:"address,omitempty"`
	IsFallback bool      `json:"isFallback"`
}

type ActivityRequest struct {
	Activity game.ActivityType `json:"activity"`
}

type UsernameRequest struct {
	Username string `json:"username"`
}

type NavigationRequest struct {
	ZoneID string `json:"zoneId"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Server bundles what the handlers need.
type Server struct {
	engine  *game.Engine
	hub     *Hub
	locator *geo.Locator
	log     *logger.Logger
}

func NewServer(engine *game.Engine, hub *Hub, locator *geo.Locator, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if locator == nil {
		locator = geo.NewLocator(engine, nil, log)
	}
	return &Server{engine: engine, hub: hub, locator: locator, log: log.With("component", "api")}
}

// Router registers every route and wraps them in permissive CORS.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	// Reads
	api.HandleFunc("/state", s.HandleGetState).Methods(http.MethodGet)
	api.HandleFunc("/zones", s.HandleGetZones).Methods(http.MethodGet)
	api.HandleFunc("/zones/{id}", s.HandleGetZone).Methods(http.MethodGet)
	api.HandleFunc("/trees", s.HandleGetTrees).Methods(http.MethodGet)
	api.HandleFunc("/history", s.HandleGetHistory).Methods(http.MethodGet)
	api.HandleFunc("/profile", s.HandleGetProfile).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", s.HandleGetLeaderboard).Methods(http.MethodGet)

	// Actions
	api.HandleFunc("/scans", s.HandleClaimScan).Methods(http.MethodPost)
	api.HandleFunc("/scans/batch", s.HandleClaimBatch).Methods(http.MethodPost)
	api.HandleFunc("/scans/{id}/upcycle", s.HandleUpcycle).Methods(http.MethodPost)
	api.HandleFunc("/trees", s.HandlePlant).Methods(http.MethodPost)
	api.HandleFunc("/trees/{id}/maintain", s.HandleMaintain).Methods(http.MethodPost)
	api.HandleFunc("/location", s.HandleLocation).Methods(http.MethodPost)
	api.HandleFunc("/activity", s.HandleActivity).Methods(http.MethodPost)
	api.HandleFunc("/username", s.HandleUsername).Methods(http.MethodPost)
	api.HandleFunc("/navigation", s.HandleNavigate).Methods(http.MethodPost)
	api.HandleFunc("/navigation", s.HandleClearNavigation).Methods(http.MethodDelete)

	if s.hub != nil {
		r.HandleFunc("/ws", s.hub.ServeWs).Methods(http.MethodGet)
	}

	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(r)
}

// ---------------------------------------------------------------------------
// Reads

func (s *Server) HandleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) HandleGetZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Zones())
}

func (s *Server) HandleGetZone(w http.ResponseWriter, r *http.Request) {
	z, ok := s.engine.Zone(mux.Vars(r)["id"])
	if !ok {
		s.writeError(w, game.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, z)
}

func (s *Server) HandleGetTrees(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Trees())
}

func (s *Server) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.History())
}

func (s *Server) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Profile())
}

func (s *Server) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Leaderboard())
}

// ---------------------------------------------------------------------------
// Actions

func (s *Server) HandleClaimScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !s.decode(w, r, &req) {
		return
	}
	rec, err := s.engine.ClaimScan(req.Analysis, req.ClaimType, req.Location)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) HandleClaimBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		s.writeError(w, errors.New("items must not be empty"))
		return
	}
	recs, err := s.engine.ClaimScoutBatch(req.Items)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recs)
}

func (s *Server) HandleUpcycle(w http.ResponseWriter, r *http.Request) {
	rec, err := s.engine.ClaimUpcycleBonus(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) HandlePlant(w http.ResponseWriter, r *http.Request) {
	var req game.PlantRequest
	if !s.decode(w, r, &req) {
		return
	}
	trees, err := s.engine.Plant(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, trees)
}

func (s *Server) HandleMaintain(w http.ResponseWriter, r *http.Request) {
	var req MaintainRequest
	if !s.decode(w, r, &req) {
		return
	}
	t, err := s.engine.Maintain(mux.Vars(r)["id"], req.Action)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleLocation records a fix. The geocoder runs inside the locator before
// the rename reaches the engine, so no engine lock is held across the lookup.
func (s *Server) HandleLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if !s.decode(w, r, &req) {
		return
	}
	var fix *game.Location
	if !req.Fallback && req.Lat != nil && req.Lng != nil {
		if *req.Lat < -90 || *req.Lat > 90 || *req.Lng < -180 || *req.Lng > 180 {
			s.writeError(w, game.ErrInvalidAction)
			return
		}
		fix = &game.Location{Lat: *req.Lat, Lng: *req.Lng}
	}
	z := s.locator.Report(r.Context(), fix)
	writeJSON(w, http.StatusOK, LocationResponse{Zone: z, Address: s.locator.Address(), IsFallback: fix == nil})
}

func (s *Server) HandleActivity(w http.ResponseWriter, r *http.Request) {
	var req ActivityRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.SetActivity(req.Activity); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) HandleUsername(w http.ResponseWriter, r *http.Request) {
	var req UsernameRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, UsernameRequest{Username: s.engine.UpdateUsername(req.Username)})
}

func (s *Server) HandleNavigate(w http.ResponseWriter, r *http.Request) {
	var req NavigationRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.SetNavigationTarget(req.ZoneID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) HandleClearNavigation(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearNavigation()
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Helpers

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: err.Error()})
		return false
	}
	return true
}

// StatusFor maps an engine error to an HTTP status.
func StatusFor(err error) int {
	switch game.Reason(err) {
	case "rate_limited":
		return http.StatusTooManyRequests
	case "insufficient_funds":
		return http.StatusPaymentRequired
	case "capacity_exceeded", "already_claimed":
		return http.StatusConflict
	case "ineligible":
		return http.StatusForbidden
	case "location_required":
		return http.StatusUnprocessableEntity
	case "cooldown_active":
		return http.StatusTooEarly
	case "not_found":
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	reason := game.Reason(err)
	if reason == "internal" {
		reason = "bad_request"
	}
	writeJSON(w, StatusFor(err), ErrorResponse{Error: reason, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
