package repository_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/groupify/groupify/internal/adapters/repository"
	"github.com/groupify/groupify/internal/domain/insight"
	"github.com/groupify/groupify/internal/domain/model"
)

func tempStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	n := 0
	s, err := repository.NewSQLiteStore(
		filepath.Join(t.TempDir(), "groupify.db"),
		repository.WithClock(func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }),
		repository.WithIDGenerator(func() string { n++; return fmt.Sprintf("g%d", n) }),
	)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedRoom(ctx context.Context, s repository.Store, roomID string, members ...string) {
	So(s.CreateRoom(ctx, model.Room{ID: roomID, Name: "Room " + roomID, OwnerID: "owner"}), ShouldBeNil)
	for _, id := range members {
		So(s.UpsertMember(ctx, model.Member{ID: id}), ShouldBeNil)
		So(s.AddMemberToRoom(ctx, roomID, id), ShouldBeNil)
	}
}

func TestRooms(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		s := tempStore(t)

		Convey("A created room can be read back and renamed", func() {
			So(s.CreateRoom(ctx, model.Room{ID: "r1", Name: "Team", OwnerID: "o1"}), ShouldBeNil)

			r, err := s.GetRoom(ctx, "r1")
			So(err, ShouldBeNil)
			So(r.Name, ShouldEqual, "Team")
			So(r.OwnerID, ShouldEqual, "o1")
			So(r.CreatedAt.Year(), ShouldEqual, 2024)

			So(s.RenameRoom(ctx, "r1", "Squad"), ShouldBeNil)
			r, _ = s.GetRoom(ctx, "r1")
			So(r.Name, ShouldEqual, "Squad")
		})

		Convey("Duplicate ids are rejected", func() {
			So(s.CreateRoom(ctx, model.Room{ID: "r1", Name: "Team"}), ShouldBeNil)
			So(errors.Is(s.CreateRoom(ctx, model.Room{ID: "r1", Name: "Other"}), repository.ErrAlreadyExists), ShouldBeTrue)
		})

		Convey("Unknown rooms are not found", func() {
			_, err := s.GetRoom(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(s.RenameRoom(ctx, "nope", "x"), repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(s.DeleteRoom(ctx, "nope"), repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Rooms are listed by owner and by member", func() {
			seedRoom(ctx, s, "r1", "a", "b")
			So(s.CreateRoom(ctx, model.Room{ID: "r2", Name: "Two", OwnerID: "someone"}), ShouldBeNil)

			all, err := s.ListRooms(ctx)
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 2)

			owned, err := s.ListRoomsByOwner(ctx, "owner")
			So(err, ShouldBeNil)
			So(owned, ShouldHaveLength, 1)
			So(owned[0].ID, ShouldEqual, "r1")

			joined, err := s.ListRoomsByMember(ctx, "a")
			So(err, ShouldBeNil)
			So(joined, ShouldHaveLength, 1)

			none, err := s.ListRoomsByMember(ctx, "stranger")
			So(err, ShouldBeNil)
			So(none, ShouldBeEmpty)
		})
	})
}

func TestMembership(t *testing.T) {
	Convey("Given a room with members", t, func() {
		ctx := context.Background()
		s := tempStore(t)
		seedRoom(ctx, s, "r1", "a", "b", "c")

		Convey("Members are returned in join order", func() {
			ids, err := s.RoomMemberIDs(ctx, "r1")
			So(err, ShouldBeNil)
			So(ids, ShouldResemble, []string{"a", "b", "c"})
		})

		Convey("Joining twice is rejected", func() {
			So(errors.Is(s.AddMemberToRoom(ctx, "r1", "a"), repository.ErrAlreadyExists), ShouldBeTrue)
		})

		Convey("Joining an unknown room fails", func() {
			So(errors.Is(s.AddMemberToRoom(ctx, "nope", "a"), repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Leaving removes the member from the room's groups", func() {
			_, err := s.SaveGroups(ctx, "r1", [][]string{{"a", "b"}, {"c"}})
			So(err, ShouldBeNil)

			So(s.RemoveMemberFromRoom(ctx, "r1", "a"), ShouldBeNil)
			g, err := s.GetGroup(ctx, "g1")
			So(err, ShouldBeNil)
			So(g.MemberIDs, ShouldResemble, []string{"b"})

			So(errors.Is(s.RemoveMemberFromRoom(ctx, "r1", "a"), repository.ErrNotInRoom), ShouldBeTrue)
		})

		Convey("Upserting keeps the display name when none is given", func() {
			So(s.UpsertMember(ctx, model.Member{ID: "a", DisplayName: "Ann"}), ShouldBeNil)
			So(s.UpsertMember(ctx, model.Member{ID: "a"}), ShouldBeNil)
			m, err := s.GetMember(ctx, "a")
			So(err, ShouldBeNil)
			So(m.DisplayName, ShouldEqual, "Ann")
		})
	})
}

func TestProfilesAndRoster(t *testing.T) {
	Convey("Given a room where one member has a profile", t, func() {
		ctx := context.Background()
		s := tempStore(t)
		seedRoom(ctx, s, "r1", "a", "b")

		p := model.Profile{MemberID: "a", Energies: insight.New(4, 2, 1, 3), WheelPosition: 7}
		So(s.CreateProfile(ctx, p), ShouldBeNil)

		Convey("The roster loads profiles eagerly and leaves the rest nil", func() {
			roster, err := s.Roster(ctx, "r1")
			So(err, ShouldBeNil)
			So(roster, ShouldHaveLength, 2)
			So(roster[0].Member.ID, ShouldEqual, "a")
			So(roster[0].Profile, ShouldNotBeNil)
			So(roster[0].Profile.Energies, ShouldResemble, insight.New(4, 2, 1, 3))
			So(roster[0].Profile.WheelPosition, ShouldEqual, 7)
			So(roster[1].Profile, ShouldBeNil)
		})

		Convey("A second create is rejected and update replaces values", func() {
			So(errors.Is(s.CreateProfile(ctx, p), repository.ErrAlreadyExists), ShouldBeTrue)

			p.Energies = insight.New(1, 1, 1, 1)
			So(s.UpdateProfile(ctx, p), ShouldBeNil)
			got, err := s.GetProfile(ctx, "a")
			So(err, ShouldBeNil)
			So(got.Energies, ShouldResemble, insight.New(1, 1, 1, 1))
		})

		Convey("Missing profiles are not found", func() {
			_, err := s.GetProfile(ctx, "b")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(s.UpdateProfile(ctx, model.Profile{MemberID: "b"}), repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(s.CreateProfile(ctx, model.Profile{MemberID: "ghost"}), repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestGroups(t *testing.T) {
	Convey("Given a partitioned room", t, func() {
		ctx := context.Background()
		s := tempStore(t)
		seedRoom(ctx, s, "r1", "a", "b", "c", "d", "e")
		seedRoom(ctx, s, "r2", "x")

		groups, err := s.SaveGroups(ctx, "r1", [][]string{{"c", "a"}, {"b", "d", "e"}})
		So(err, ShouldBeNil)
		So(groups, ShouldHaveLength, 2)
		So(groups[0].Number, ShouldEqual, 1)
		So(groups[1].Number, ShouldEqual, 2)

		Convey("Groups read back with members in stored order", func() {
			list, err := s.ListGroupsByRoom(ctx, "r1")
			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 2)
			So(list[0].MemberIDs, ShouldResemble, []string{"c", "a"})
			So(list[1].MemberIDs, ShouldResemble, []string{"b", "d", "e"})

			n, err := s.CountGroups(ctx, "r1")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
		})

		Convey("A second save is rejected atomically", func() {
			_, err := s.SaveGroups(ctx, "r1", [][]string{{"a"}})
			So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)
			n, _ := s.CountGroups(ctx, "r1")
			So(n, ShouldEqual, 2)
		})

		Convey("A failed save leaves nothing behind", func() {
			_, err := s.SaveGroups(ctx, "r2", [][]string{{"x"}, {"ghost"}})
			So(err, ShouldNotBeNil)
			n, _ := s.CountGroups(ctx, "r2")
			So(n, ShouldEqual, 0)
		})

		Convey("A member can be looked up by room", func() {
			id, err := s.GroupOfMember(ctx, "d", "r1")
			So(err, ShouldBeNil)
			So(id, ShouldEqual, groups[1].ID)

			id, err = s.GroupOfMember(ctx, "x", "r1")
			So(err, ShouldBeNil)
			So(id, ShouldBeEmpty)

			mine, err := s.ListGroupsByMember(ctx, "a")
			So(err, ShouldBeNil)
			So(mine, ShouldHaveLength, 1)
			So(mine[0].ID, ShouldEqual, groups[0].ID)
		})

		Convey("Moving keeps a member in exactly one group of the room", func() {
			So(s.MoveMemberToGroup(ctx, "a", groups[1].ID), ShouldBeNil)
			g0, _ := s.GetGroup(ctx, groups[0].ID)
			g1, _ := s.GetGroup(ctx, groups[1].ID)
			So(g0.MemberIDs, ShouldResemble, []string{"c"})
			So(g1.MemberIDs, ShouldResemble, []string{"b", "d", "e", "a"})

			So(errors.Is(s.MoveMemberToGroup(ctx, "x", groups[1].ID), repository.ErrNotInRoom), ShouldBeTrue)
			So(errors.Is(s.MoveMemberToGroup(ctx, "a", "nope"), repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Adding and removing single members", func() {
			So(errors.Is(s.AddMemberToGroup(ctx, groups[0].ID, "a"), repository.ErrAlreadyExists), ShouldBeTrue)
			So(errors.Is(s.AddMemberToGroup(ctx, groups[0].ID, "x"), repository.ErrNotInRoom), ShouldBeTrue)
			So(s.AddMemberToGroup(ctx, groups[0].ID, "e"), ShouldBeNil)

			So(s.RemoveMemberFromGroup(ctx, groups[0].ID, "c"), ShouldBeNil)
			So(errors.Is(s.RemoveMemberFromGroup(ctx, groups[0].ID, "c"), repository.ErrNotFound), ShouldBeTrue)
			g0, _ := s.GetGroup(ctx, groups[0].ID)
			So(g0.MemberIDs, ShouldResemble, []string{"a", "e"})
		})

		Convey("Deleting groups allows a new partition", func() {
			So(s.DeleteGroup(ctx, groups[0].ID), ShouldBeNil)
			So(errors.Is(s.DeleteGroup(ctx, groups[0].ID), repository.ErrNotFound), ShouldBeTrue)
			So(s.DeleteGroupsByRoom(ctx, "r1"), ShouldBeNil)

			n, _ := s.CountGroups(ctx, "r1")
			So(n, ShouldEqual, 0)
			_, err := s.SaveGroups(ctx, "r1", [][]string{{"a", "b", "c", "d", "e"}})
			So(err, ShouldBeNil)
		})

		Convey("Deleting the room cascades", func() {
			So(s.DeleteRoom(ctx, "r1"), ShouldBeNil)
			_, err := s.GetGroup(ctx, groups[0].ID)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			st, err := s.Stats(ctx)
			So(err, ShouldBeNil)
			So(st.Rooms, ShouldEqual, 1)
			So(st.Groups, ShouldEqual, 0)
			So(st.Members, ShouldEqual, 6)
		})
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("An in-memory store keeps data across calls", t, func() {
		ctx := context.Background()
		s, err := repository.NewSQLiteStore(repository.MemoryPath)
		So(err, ShouldBeNil)
		defer s.Close()

		seedRoom(ctx, s, "r1", "a")
		ids, err := s.RoomMemberIDs(ctx, "r1")
		So(err, ShouldBeNil)
		So(ids, ShouldResemble, []string{"a"})
	})
}
