// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/groupify/groupify/internal/domain/insight"
)

// MinRoomNameLength is the shortest accepted room name, after trimming.
const MinRoomNameLength = 2

// ErrInvalidRoomName is returned for blank or too-short room names.
var ErrInvalidRoomName = errors.New("room name must be at least 2 characters long")

// Room is a roster scope owned by a single user.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateRoomName checks a proposed room name.
func ValidateRoomName(name string) error {
	if len([]rune(strings.TrimSpace(name))) < MinRoomNameLength {
		return fmt.Errorf("%w: %q", ErrInvalidRoomName, name)
	}
	return nil
}

// Member is a participant that can join rooms.
type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Profile is a member's stored insight profile.
type Profile struct {
	MemberID      string          `json:"member_id"`
	Energies      insight.Profile `json:"energies"`
	WheelPosition int             `json:"wheel_position"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Group is a persisted group within a room. Numbers run 1..N in the order
// the partition produced them.
type Group struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	Number    int       `json:"number"`
	MemberIDs []string  `json:"member_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// JobStatus is the lifecycle state of a partition job.
type JobStatus string

// Partition job states.
const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Terminal reports whether no further transitions happen from s.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// PartitionJob asks for a room's roster to be split into groups.
type PartitionJob struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	GroupSize  int       `json:"group_size"`
	Status     JobStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	GroupIDs   []string  `json:"group_ids,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}
