package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/groupify/groupify/internal/domain/model"
	"github.com/groupify/groupify/internal/domain/types"
	"github.com/groupify/groupify/pkg/logger"
)

// CreateRoom creates a room owned by ownerID.
func (s *Service) CreateRoom(ctx context.Context, name, ownerID string) (model.Room, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return model.Room{}, err
	}
	if err := model.ValidateRoomName(name); err != nil {
		return model.Room{}, err
	}

	room := model.Room{
		ID:        s.newID(),
		Name:      strings.TrimSpace(name),
		OwnerID:   ownerID,
		CreatedAt: s.now(),
	}
	if err := store.CreateRoom(ctx, room); err != nil {
		return model.Room{}, fmt.Errorf("create room: %w", err)
	}

	s.logger.Info(ctx, "room created", logger.String("roomID", room.ID), logger.String("ownerID", ownerID))
	return room, nil
}

// Room returns a room with its member ids and group count.
func (s *Service) Room(ctx context.Context, roomID string) (types.RoomDetail, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return types.RoomDetail{}, err
	}

	room, err := store.GetRoom(ctx, roomID)
	if err != nil {
		return types.RoomDetail{}, err
	}
	members, err := store.RoomMemberIDs(ctx, roomID)
	if err != nil {
		return types.RoomDetail{}, err
	}
	groups, err := store.CountGroups(ctx, roomID)
	if err != nil {
		return types.RoomDetail{}, err
	}
	return types.RoomDetail{Room: room, MemberIDs: members, GroupCount: groups}, nil
}

// Rooms lists every room.
func (s *Service) Rooms(ctx context.Context) ([]model.Room, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	return store.ListRooms(ctx)
}

// RoomsByMember lists the rooms memberID has joined.
func (s *Service) RoomsByMember(ctx context.Context, memberID string) ([]model.Room, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	return store.ListRoomsByMember(ctx, memberID)
}

// RoomsByOwner lists the rooms ownerID created.
func (s *Service) RoomsByOwner(ctx context.Context, ownerID string) ([]model.Room, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	return store.ListRoomsByOwner(ctx, ownerID)
}

// RenameRoom changes a room's name.
func (s *Service) RenameRoom(ctx context.Context, roomID, name string) (model.Room, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return model.Room{}, err
	}
	if err := model.ValidateRoomName(name); err != nil {
		return model.Room{}, err
	}
	if err := store.RenameRoom(ctx, roomID, strings.TrimSpace(name)); err != nil {
		return model.Room{}, err
	}
	return store.GetRoom(ctx, roomID)
}

// DeleteRoom removes a room with its memberships and groups.
func (s *Service) DeleteRoom(ctx context.Context, roomID string) error {
	store, err := s.storeOrErr()
	if err != nil {
		return err
	}
	if err := store.DeleteRoom(ctx, roomID); err != nil {
		return err
	}
	s.logger.Info(ctx, "room deleted", logger.String("roomID", roomID))
	return nil
}

// JoinRoom adds memberID to the room, registering the member on first use.
func (s *Service) JoinRoom(ctx context.Context, roomID, memberID, displayName string) error {
	store, err := s.storeOrErr()
	if err != nil {
		return err
	}
	if strings.TrimSpace(memberID) == "" {
		return ErrInvalidMember
	}
	if _, err := store.GetRoom(ctx, roomID); err != nil {
		return err
	}
	if err := store.UpsertMember(ctx, model.Member{ID: memberID, DisplayName: displayName}); err != nil {
		return err
	}
	return store.AddMemberToRoom(ctx, roomID, memberID)
}

// LeaveRoom removes memberID from the room and from the room's groups.
func (s *Service) LeaveRoom(ctx context.Context, roomID, memberID string) error {
	store, err := s.storeOrErr()
	if err != nil {
		return err
	}
	return store.RemoveMemberFromRoom(ctx, roomID, memberID)
}
