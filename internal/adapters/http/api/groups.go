package api

import (
	"context"
	"net/http"

	"github.com/groupify/groupify/internal/domain/model"
	"github.com/groupify/groupify/internal/domain/types"
)

// GroupDependencies defines the grouping, group editing and job operations.
type GroupDependencies interface {
	CreateGroups(ctx context.Context, roomID string, groupSize int) ([]types.GroupDetail, error)
	RequestGroups(ctx context.Context, roomID string, groupSize int) (model.PartitionJob, error)
	GroupsByRoom(ctx context.Context, roomID string) ([]types.GroupDetail, error)
	ClearGroups(ctx context.Context, roomID string) error
	Group(ctx context.Context, groupID string) (types.GroupDetail, error)
	GroupsByMember(ctx context.Context, memberID string) ([]model.Group, error)
	RemoveGroup(ctx context.Context, groupID string) error
	AddToGroup(ctx context.Context, groupID, memberID string) error
	MoveToGroup(ctx context.Context, memberID, groupID string) error
	RemoveFromGroup(ctx context.Context, groupID, memberID string) error
	Job(ctx context.Context, jobID string) (model.PartitionJob, error)
}

// GroupsHandler handles group and partition job requests.
type GroupsHandler struct {
	deps GroupDependencies
}

// NewGroupsHandler creates a new groups handler.
func NewGroupsHandler(deps GroupDependencies) *GroupsHandler {
	return &GroupsHandler{deps: deps}
}

type createGroupsRequest struct {
	GroupSize int  `json:"group_size"`
	Sync      bool `json:"sync"`
}

type groupMemberRequest struct {
	MemberID string `json:"member_id"`
}

// HandleCreate handles POST /rooms/{room}/groups requests. The partition
// runs in the background and the pending job is returned with 202, unless
// the body asks for sync, in which case the groups are returned with 201.
func (h *GroupsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_groups"
	var req createGroupsRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, r, err)
		return
	}
	roomID := r.PathValue("room")

	if req.Sync {
		groups, err := h.deps.CreateGroups(r.Context(), roomID, req.GroupSize)
		if err != nil {
			writeError(w, r, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusCreated, groups)
		return
	}

	job, err := h.deps.RequestGroups(r.Context(), roomID, req.GroupSize)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

// HandleByRoom handles GET /rooms/{room}/groups requests.
func (h *GroupsHandler) HandleByRoom(w http.ResponseWriter, r *http.Request) {
	groups, err := h.deps.GroupsByRoom(r.Context(), r.PathValue("room"))
	if err != nil {
		writeError(w, r, Wrap("api.room_groups", err))
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// HandleClear handles DELETE /rooms/{room}/groups requests.
func (h *GroupsHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.ClearGroups(r.Context(), r.PathValue("room")); err != nil {
		writeError(w, r, Wrap("api.clear_groups", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGet handles GET /groups/{group} requests.
func (h *GroupsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	g, err := h.deps.Group(r.Context(), r.PathValue("group"))
	if err != nil {
		writeError(w, r, Wrap("api.get_group", err))
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleDelete handles DELETE /groups/{group} requests.
func (h *GroupsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.RemoveGroup(r.Context(), r.PathValue("group")); err != nil {
		writeError(w, r, Wrap("api.delete_group", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleByMember handles GET /members/{member}/groups requests.
func (h *GroupsHandler) HandleByMember(w http.ResponseWriter, r *http.Request) {
	groups, err := h.deps.GroupsByMember(r.Context(), r.PathValue("member"))
	if err != nil {
		writeError(w, r, Wrap("api.member_groups", err))
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// HandleAddMember handles POST /groups/{group}/members requests.
func (h *GroupsHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_group_member"
	var req groupMemberRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.editAndRespond(w, r, op, http.StatusCreated, func(ctx context.Context, groupID string) error {
		return h.deps.AddToGroup(ctx, groupID, req.MemberID)
	})
}

// HandleMoveMember handles PUT /groups/{group}/members/{member} requests.
// The member leaves any other group of the same room.
func (h *GroupsHandler) HandleMoveMember(w http.ResponseWriter, r *http.Request) {
	h.editAndRespond(w, r, "api.move_group_member", http.StatusOK, func(ctx context.Context, groupID string) error {
		return h.deps.MoveToGroup(ctx, r.PathValue("member"), groupID)
	})
}

// HandleRemoveMember handles DELETE /groups/{group}/members/{member} requests.
func (h *GroupsHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	h.editAndRespond(w, r, "api.remove_group_member", http.StatusOK, func(ctx context.Context, groupID string) error {
		return h.deps.RemoveFromGroup(ctx, groupID, r.PathValue("member"))
	})
}

// editAndRespond applies edit to the path's group and answers with the
// group as it now stands.
func (h *GroupsHandler) editAndRespond(w http.ResponseWriter, r *http.Request, op string, status int,
	edit func(ctx context.Context, groupID string) error,
) {
	groupID := r.PathValue("group")
	if err := edit(r.Context(), groupID); err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	g, err := h.deps.Group(r.Context(), groupID)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, status, g)
}

// HandleJob handles GET /jobs/{job} requests.
func (h *GroupsHandler) HandleJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.deps.Job(r.Context(), r.PathValue("job"))
	if err != nil {
		writeError(w, r, Wrap("api.get_job", err))
		return
	}
	writeJSON(w, http.StatusOK, job)
}
