// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/groupify/groupify/pkg/logger"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RoomDependencies
	ProfileDependencies
	GroupDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	roomsHandler   *RoomsHandler
	profileHandler *ProfileHandler
	groupsHandler  *GroupsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		statsHandler:   NewStatsHandler(deps),
		roomsHandler:   NewRoomsHandler(deps),
		profileHandler: NewProfileHandler(deps),
		groupsHandler:  NewGroupsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("POST /rooms", "rooms", s.roomsHandler.HandleCreate)
	route("GET /rooms", "rooms", s.roomsHandler.HandleList)
	route("GET /rooms/{room}", "room", s.roomsHandler.HandleGet)
	route("PATCH /rooms/{room}", "room", s.roomsHandler.HandleRename)
	route("DELETE /rooms/{room}", "room", s.roomsHandler.HandleDelete)
	route("POST /rooms/{room}/members", "room_members", s.roomsHandler.HandleJoin)
	route("DELETE /rooms/{room}/members/{member}", "room_member", s.roomsHandler.HandleLeave)
	route("GET /rooms/{room}/members/{member}/matches", "matches", s.roomsHandler.HandleMatches)
	route("GET /rooms/{room}/members/{member}/group", "member_group", s.roomsHandler.HandleGroupOf)

	route("PUT /members/{member}/profile", "profile", s.profileHandler.HandlePut)
	route("GET /members/{member}/profile", "profile", s.profileHandler.HandleGet)
	route("GET /members/{member}/rooms", "member_rooms", s.roomsHandler.HandleByMember)
	route("GET /members/{member}/groups", "member_groups", s.groupsHandler.HandleByMember)

	route("POST /rooms/{room}/groups", "room_groups", s.groupsHandler.HandleCreate)
	route("GET /rooms/{room}/groups", "room_groups", s.groupsHandler.HandleByRoom)
	route("DELETE /rooms/{room}/groups", "room_groups", s.groupsHandler.HandleClear)

	route("GET /groups/{group}", "group", s.groupsHandler.HandleGet)
	route("DELETE /groups/{group}", "group", s.groupsHandler.HandleDelete)
	route("POST /groups/{group}/members", "group_members", s.groupsHandler.HandleAddMember)
	route("PUT /groups/{group}/members/{member}", "group_member", s.groupsHandler.HandleMoveMember)
	route("DELETE /groups/{group}/members/{member}", "group_member", s.groupsHandler.HandleRemoveMember)

	route("GET /jobs/{job}", "job", s.groupsHandler.HandleJob)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status and code err maps to.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Named("api").Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, fmt.Errorf("decode body: %w", err))
	}
	return nil
}
