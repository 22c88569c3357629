package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/groupify/groupify/internal/domain/model"
	"github.com/groupify/groupify/internal/domain/types"
)

// RoomDependencies defines the room and membership operations.
type RoomDependencies interface {
	CreateRoom(ctx context.Context, name, ownerID string) (model.Room, error)
	Room(ctx context.Context, roomID string) (types.RoomDetail, error)
	Rooms(ctx context.Context) ([]model.Room, error)
	RoomsByOwner(ctx context.Context, ownerID string) ([]model.Room, error)
	RoomsByMember(ctx context.Context, memberID string) ([]model.Room, error)
	RenameRoom(ctx context.Context, roomID, name string) (model.Room, error)
	DeleteRoom(ctx context.Context, roomID string) error
	JoinRoom(ctx context.Context, roomID, memberID, displayName string) error
	LeaveRoom(ctx context.Context, roomID, memberID string) error
	Matches(ctx context.Context, roomID, memberID string, limit int) ([]types.Match, error)
	GroupOf(ctx context.Context, memberID, roomID string) (string, error)
}

// RoomsHandler handles room requests.
type RoomsHandler struct {
	deps RoomDependencies
}

// NewRoomsHandler creates a new rooms handler.
func NewRoomsHandler(deps RoomDependencies) *RoomsHandler {
	return &RoomsHandler{deps: deps}
}

type createRoomRequest struct {
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

type renameRoomRequest struct {
	Name string `json:"name"`
}

type joinRoomRequest struct {
	MemberID    string `json:"member_id"`
	DisplayName string `json:"display_name"`
}

type memberGroupResponse struct {
	RoomID   string  `json:"room_id"`
	MemberID string  `json:"member_id"`
	GroupID  *string `json:"group_id"`
}

// HandleCreate handles POST /rooms requests.
func (h *RoomsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_room"
	var req createRoomRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, r, err)
		return
	}
	room, err := h.deps.CreateRoom(r.Context(), req.Name, req.OwnerID)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// HandleList handles GET /rooms requests, optionally filtered by ?owner=.
func (h *RoomsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_rooms"
	var (
		rooms []model.Room
		err   error
	)
	if owner := r.URL.Query().Get("owner"); owner != "" {
		rooms, err = h.deps.RoomsByOwner(r.Context(), owner)
	} else {
		rooms, err = h.deps.Rooms(r.Context())
	}
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

// HandleGet handles GET /rooms/{room} requests.
func (h *RoomsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	room, err := h.deps.Room(r.Context(), r.PathValue("room"))
	if err != nil {
		writeError(w, r, Wrap("api.get_room", err))
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// HandleRename handles PATCH /rooms/{room} requests.
func (h *RoomsHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	const op = "api.rename_room"
	var req renameRoomRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, r, err)
		return
	}
	room, err := h.deps.RenameRoom(r.Context(), r.PathValue("room"), req.Name)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// HandleDelete handles DELETE /rooms/{room} requests.
func (h *RoomsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteRoom(r.Context(), r.PathValue("room")); err != nil {
		writeError(w, r, Wrap("api.delete_room", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleJoin handles POST /rooms/{room}/members requests.
func (h *RoomsHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	const op = "api.join_room"
	var req joinRoomRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, r, err)
		return
	}
	roomID := r.PathValue("room")
	if err := h.deps.JoinRoom(r.Context(), roomID, req.MemberID, req.DisplayName); err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	room, err := h.deps.Room(r.Context(), roomID)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// HandleLeave handles DELETE /rooms/{room}/members/{member} requests.
func (h *RoomsHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.LeaveRoom(r.Context(), r.PathValue("room"), r.PathValue("member")); err != nil {
		writeError(w, r, Wrap("api.leave_room", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMatches handles GET /rooms/{room}/members/{member}/matches?limit=N
// requests. A missing limit uses the service default.
func (h *RoomsHandler) HandleMatches(w http.ResponseWriter, r *http.Request) {
	const op = "api.matches"
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, r, NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	matches, err := h.deps.Matches(r.Context(), r.PathValue("room"), r.PathValue("member"), limit)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// HandleGroupOf handles GET /rooms/{room}/members/{member}/group requests.
// group_id is null when the member has no group in the room.
func (h *RoomsHandler) HandleGroupOf(w http.ResponseWriter, r *http.Request) {
	roomID, memberID := r.PathValue("room"), r.PathValue("member")
	groupID, err := h.deps.GroupOf(r.Context(), memberID, roomID)
	if err != nil {
		writeError(w, r, Wrap("api.group_of", err))
		return
	}
	resp := memberGroupResponse{RoomID: roomID, MemberID: memberID}
	if groupID != "" {
		resp.GroupID = &groupID
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleByMember handles GET /members/{member}/rooms requests.
func (h *RoomsHandler) HandleByMember(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.deps.RoomsByMember(r.Context(), r.PathValue("member"))
	if err != nil {
		writeError(w, r, Wrap("api.member_rooms", err))
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}
