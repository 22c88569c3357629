// Package repository persists rooms, members, insight profiles and groups.
package repository

import (
	"context"

	"github.com/groupify/groupify/internal/domain/model"
)

// RosterEntry is a room member with its profile loaded. Profile is nil when
// the member has not filled one in.
type RosterEntry struct {
	Member  model.Member
	Profile *model.Profile
}

// Stats counts stored entities.
type Stats struct {
	Rooms   int `json:"rooms"`
	Members int `json:"members"`
	Groups  int `json:"groups"`
}

// Store provides read/write access to rooms and their groups. All methods
// return ErrNotFound for unknown ids.
type Store interface {
	CreateRoom(ctx context.Context, room model.Room) error
	GetRoom(ctx context.Context, roomID string) (model.Room, error)
	ListRooms(ctx context.Context) ([]model.Room, error)
	ListRoomsByMember(ctx context.Context, memberID string) ([]model.Room, error)
	ListRoomsByOwner(ctx context.Context, ownerID string) ([]model.Room, error)
	RenameRoom(ctx context.Context, roomID, name string) error
	// DeleteRoom removes the room with its memberships and groups.
	DeleteRoom(ctx context.Context, roomID string) error

	UpsertMember(ctx context.Context, m model.Member) error
	GetMember(ctx context.Context, memberID string) (model.Member, error)
	// AddMemberToRoom returns ErrAlreadyExists when the member already joined.
	AddMemberToRoom(ctx context.Context, roomID, memberID string) error
	// RemoveMemberFromRoom also drops the member from the room's groups.
	// It returns ErrNotInRoom when the member never joined.
	RemoveMemberFromRoom(ctx context.Context, roomID, memberID string) error
	RoomMemberIDs(ctx context.Context, roomID string) ([]string, error)

	// CreateProfile returns ErrAlreadyExists when the member has a profile.
	CreateProfile(ctx context.Context, p model.Profile) error
	UpdateProfile(ctx context.Context, p model.Profile) error
	GetProfile(ctx context.Context, memberID string) (model.Profile, error)

	// Roster returns every member of the room, in join order, with profiles
	// loaded eagerly.
	Roster(ctx context.Context, roomID string) ([]RosterEntry, error)

	// SaveGroups stores one group per element of members, numbered from 1,
	// in a single transaction. It returns ErrAlreadyExists, and stores
	// nothing, when the room already has groups.
	SaveGroups(ctx context.Context, roomID string, members [][]string) ([]model.Group, error)
	GetGroup(ctx context.Context, groupID string) (model.Group, error)
	ListGroupsByRoom(ctx context.Context, roomID string) ([]model.Group, error)
	ListGroupsByMember(ctx context.Context, memberID string) ([]model.Group, error)
	CountGroups(ctx context.Context, roomID string) (int, error)
	DeleteGroup(ctx context.Context, groupID string) error
	DeleteGroupsByRoom(ctx context.Context, roomID string) error
	AddMemberToGroup(ctx context.Context, groupID, memberID string) error
	RemoveMemberFromGroup(ctx context.Context, groupID, memberID string) error
	// MoveMemberToGroup drops any membership the member has in a group of the
	// same room before adding it to groupID.
	MoveMemberToGroup(ctx context.Context, memberID, groupID string) error
	// GroupOfMember returns "" when the member has no group in the room.
	GroupOfMember(ctx context.Context, memberID, roomID string) (string, error)

	Stats(ctx context.Context) (Stats, error)
	Close() error
}
