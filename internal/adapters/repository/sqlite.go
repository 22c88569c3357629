package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // database/sql driver

	"github.com/groupify/groupify/internal/domain/insight"
	"github.com/groupify/groupify/internal/domain/model"
	"github.com/groupify/groupify/pkg/metrics"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	owner_id    TEXT NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS members (
	id            TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS room_members (
	room_id    TEXT NOT NULL,
	member_id  TEXT NOT NULL,
	PRIMARY KEY (room_id, member_id),
	FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE,
	FOREIGN KEY (member_id) REFERENCES members(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS profiles (
	member_id       TEXT PRIMARY KEY,
	red             REAL NOT NULL,
	green           REAL NOT NULL,
	blue            REAL NOT NULL,
	yellow          REAL NOT NULL,
	wheel_position  INTEGER NOT NULL,
	updated_at      TEXT NOT NULL,
	FOREIGN KEY (member_id) REFERENCES members(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS room_groups (
	id          TEXT PRIMARY KEY,
	room_id     TEXT NOT NULL,
	number      INTEGER NOT NULL,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS group_members (
	group_id   TEXT NOT NULL,
	member_id  TEXT NOT NULL,
	position   INTEGER NOT NULL,
	PRIMARY KEY (group_id, member_id),
	FOREIGN KEY (group_id) REFERENCES room_groups(id) ON DELETE CASCADE,
	FOREIGN KEY (member_id) REFERENCES members(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_room_groups_room ON room_groups(room_id);
CREATE INDEX IF NOT EXISTS idx_group_members_member ON group_members(member_id);
`

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// NewSQLiteStore opens the database at path and runs migrations. Use
// MemoryPath for a throwaway database.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps the PRAGMAs and an in-memory database alive
	// for the lifetime of the store.
	db.SetMaxOpenConns(1)

	if path != MemoryPath {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s := &SQLiteStore{
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func observeQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
}

func observeUpdate(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func exists(ctx context.Context, q queryer, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func requireRoom(ctx context.Context, q queryer, roomID string) error {
	ok, err := exists(ctx, q, `SELECT 1 FROM rooms WHERE id = ?`, roomID)
	if err != nil {
		return fmt.Errorf("lookup room: %w", err)
	}
	if !ok {
		return fmt.Errorf("room %q: %w", roomID, ErrNotFound)
	}
	return nil
}

func requireMember(ctx context.Context, q queryer, memberID string) error {
	ok, err := exists(ctx, q, `SELECT 1 FROM members WHERE id = ?`, memberID)
	if err != nil {
		return fmt.Errorf("lookup member: %w", err)
	}
	if !ok {
		return fmt.Errorf("member %q: %w", memberID, ErrNotFound)
	}
	return nil
}

func requireRoomMember(ctx context.Context, q queryer, roomID, memberID string) error {
	ok, err := exists(ctx, q, `SELECT 1 FROM room_members WHERE room_id = ? AND member_id = ?`, roomID, memberID)
	if err != nil {
		return fmt.Errorf("lookup membership: %w", err)
	}
	if !ok {
		return fmt.Errorf("member %q in room %q: %w", memberID, roomID, ErrNotInRoom)
	}
	return nil
}

// Rooms.

func (s *SQLiteStore) CreateRoom(ctx context.Context, room model.Room) error {
	defer observeUpdate(time.Now())
	if room.CreatedAt.IsZero() {
		room.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (id, name, owner_id, created_at) VALUES (?, ?, ?, ?)`,
		room.ID, room.Name, room.OwnerID, formatTime(room.CreatedAt),
	)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("room %q: %w", room.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

const roomColumns = `r.id, r.name, r.owner_id, r.created_at`

func scanRoom(sc interface{ Scan(...any) error }) (model.Room, error) {
	var (
		r       model.Room
		created string
	)
	if err := sc.Scan(&r.ID, &r.Name, &r.OwnerID, &created); err != nil {
		return model.Room{}, err
	}
	r.CreatedAt = parseTime(created)
	return r, nil
}

func (s *SQLiteStore) GetRoom(ctx context.Context, roomID string) (model.Room, error) {
	defer observeQuery(time.Now())
	r, err := scanRoom(s.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms r WHERE r.id = ?`, roomID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Room{}, fmt.Errorf("room %q: %w", roomID, ErrNotFound)
	}
	if err != nil {
		return model.Room{}, fmt.Errorf("get room: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) listRooms(ctx context.Context, query string, args ...any) ([]model.Room, error) {
	defer observeQuery(time.Now())
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []model.Room{}
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func (s *SQLiteStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	return s.listRooms(ctx, `SELECT `+roomColumns+` FROM rooms r ORDER BY r.created_at, r.id`)
}

func (s *SQLiteStore) ListRoomsByMember(ctx context.Context, memberID string) ([]model.Room, error) {
	return s.listRooms(ctx,
		`SELECT `+roomColumns+` FROM rooms r
		 JOIN room_members rm ON rm.room_id = r.id
		 WHERE rm.member_id = ? ORDER BY r.created_at, r.id`, memberID)
}

func (s *SQLiteStore) ListRoomsByOwner(ctx context.Context, ownerID string) ([]model.Room, error) {
	return s.listRooms(ctx,
		`SELECT `+roomColumns+` FROM rooms r WHERE r.owner_id = ? ORDER BY r.created_at, r.id`, ownerID)
}

func (s *SQLiteStore) RenameRoom(ctx context.Context, roomID, name string) error {
	defer observeUpdate(time.Now())
	res, err := s.db.ExecContext(ctx, `UPDATE rooms SET name = ? WHERE id = ?`, name, roomID)
	if err != nil {
		return fmt.Errorf("rename room: %w", err)
	}
	return affected(res, fmt.Errorf("room %q: %w", roomID, ErrNotFound))
}

func (s *SQLiteStore) DeleteRoom(ctx context.Context, roomID string) error {
	defer observeUpdate(time.Now())
	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, roomID)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return affected(res, fmt.Errorf("room %q: %w", roomID, ErrNotFound))
}

// Members.

func (s *SQLiteStore) UpsertMember(ctx context.Context, m model.Member) error {
	defer observeUpdate(time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (id, display_name) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET display_name = CASE
		   WHEN excluded.display_name = '' THEN members.display_name
		   ELSE excluded.display_name END`,
		m.ID, m.DisplayName,
	)
	if err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetMember(ctx context.Context, memberID string) (model.Member, error) {
	defer observeQuery(time.Now())
	var m model.Member
	err := s.db.QueryRowContext(ctx, `SELECT id, display_name FROM members WHERE id = ?`, memberID).
		Scan(&m.ID, &m.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Member{}, fmt.Errorf("member %q: %w", memberID, ErrNotFound)
	}
	if err != nil {
		return model.Member{}, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) AddMemberToRoom(ctx context.Context, roomID, memberID string) error {
	defer observeUpdate(time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := requireRoom(ctx, tx, roomID); err != nil {
		return err
	}
	if err := requireMember(ctx, tx, memberID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO room_members (room_id, member_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		roomID, memberID)
	if err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	if err := affected(res, fmt.Errorf("member %q in room %q: %w", memberID, roomID, ErrAlreadyExists)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) RemoveMemberFromRoom(ctx context.Context, roomID, memberID string) error {
	defer observeUpdate(time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := requireRoom(ctx, tx, roomID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM room_members WHERE room_id = ? AND member_id = ?`, roomID, memberID)
	if err != nil {
		return fmt.Errorf("leave room: %w", err)
	}
	if err := affected(res, fmt.Errorf("member %q in room %q: %w", memberID, roomID, ErrNotInRoom)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM group_members WHERE member_id = ?
		 AND group_id IN (SELECT id FROM room_groups WHERE room_id = ?)`, memberID, roomID); err != nil {
		return fmt.Errorf("leave groups: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) RoomMemberIDs(ctx context.Context, roomID string) ([]string, error) {
	defer observeQuery(time.Now())
	if err := requireRoom(ctx, s.db, roomID); err != nil {
		return nil, err
	}
	return queryStrings(ctx, s.db, `SELECT member_id FROM room_members WHERE room_id = ? ORDER BY rowid`, roomID)
}

// Profiles.

func (s *SQLiteStore) CreateProfile(ctx context.Context, p model.Profile) error {
	defer observeUpdate(time.Now())
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now()
	}
	if err := requireMember(ctx, s.db, p.MemberID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (member_id, red, green, blue, yellow, wheel_position, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		p.MemberID, p.Energies.Red(), p.Energies.Green(), p.Energies.Blue(), p.Energies.Yellow(),
		p.WheelPosition, formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return affected(res, fmt.Errorf("profile of %q: %w", p.MemberID, ErrAlreadyExists))
}

func (s *SQLiteStore) UpdateProfile(ctx context.Context, p model.Profile) error {
	defer observeUpdate(time.Now())
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET red = ?, green = ?, blue = ?, yellow = ?, wheel_position = ?, updated_at = ?
		 WHERE member_id = ?`,
		p.Energies.Red(), p.Energies.Green(), p.Energies.Blue(), p.Energies.Yellow(),
		p.WheelPosition, formatTime(p.UpdatedAt), p.MemberID,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return affected(res, fmt.Errorf("profile of %q: %w", p.MemberID, ErrNotFound))
}

const profileColumns = `p.member_id, p.red, p.green, p.blue, p.yellow, p.wheel_position, p.updated_at`

func scanProfile(sc interface{ Scan(...any) error }) (model.Profile, error) {
	var (
		p          model.Profile
		r, g, b, y float64
		updated    string
	)
	if err := sc.Scan(&p.MemberID, &r, &g, &b, &y, &p.WheelPosition, &updated); err != nil {
		return model.Profile{}, err
	}
	p.Energies = insight.New(r, g, b, y)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

func (s *SQLiteStore) GetProfile(ctx context.Context, memberID string) (model.Profile, error) {
	defer observeQuery(time.Now())
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles p WHERE p.member_id = ?`, memberID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, fmt.Errorf("profile of %q: %w", memberID, ErrNotFound)
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) Roster(ctx context.Context, roomID string) ([]RosterEntry, error) {
	defer observeQuery(time.Now())
	if err := requireRoom(ctx, s.db, roomID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.display_name,
		        p.member_id IS NOT NULL,
		        COALESCE(p.red, 0), COALESCE(p.green, 0), COALESCE(p.blue, 0), COALESCE(p.yellow, 0),
		        COALESCE(p.wheel_position, 0), COALESCE(p.updated_at, '')
		 FROM room_members rm
		 JOIN members m ON m.id = rm.member_id
		 LEFT JOIN profiles p ON p.member_id = m.id
		 WHERE rm.room_id = ?
		 ORDER BY rm.rowid`, roomID)
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	defer rows.Close()

	roster := []RosterEntry{}
	for rows.Next() {
		var (
			e          RosterEntry
			hasProfile bool
			r, g, b, y float64
			wheel      int
			updated    string
		)
		if err := rows.Scan(&e.Member.ID, &e.Member.DisplayName, &hasProfile, &r, &g, &b, &y, &wheel, &updated); err != nil {
			return nil, fmt.Errorf("scan roster: %w", err)
		}
		if hasProfile {
			e.Profile = &model.Profile{
				MemberID:      e.Member.ID,
				Energies:      insight.New(r, g, b, y),
				WheelPosition: wheel,
				UpdatedAt:     parseTime(updated),
			}
		}
		roster = append(roster, e)
	}
	return roster, rows.Err()
}

// Groups.

func (s *SQLiteStore) SaveGroups(ctx context.Context, roomID string, members [][]string) ([]model.Group, error) {
	defer observeUpdate(time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := requireRoom(ctx, tx, roomID); err != nil {
		return nil, err
	}
	has, err := exists(ctx, tx, `SELECT 1 FROM room_groups WHERE room_id = ? LIMIT 1`, roomID)
	if err != nil {
		return nil, fmt.Errorf("lookup groups: %w", err)
	}
	if has {
		return nil, fmt.Errorf("groups of room %q: %w", roomID, ErrAlreadyExists)
	}

	created := s.now()
	groups := make([]model.Group, 0, len(members))
	for i, ids := range members {
		g := model.Group{
			ID:        s.newID(),
			RoomID:    roomID,
			Number:    i + 1,
			MemberIDs: append([]string(nil), ids...),
			CreatedAt: created,
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO room_groups (id, room_id, number, created_at) VALUES (?, ?, ?, ?)`,
			g.ID, g.RoomID, g.Number, formatTime(g.CreatedAt)); err != nil {
			return nil, fmt.Errorf("insert group: %w", err)
		}
		for pos, memberID := range ids {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO group_members (group_id, member_id, position) VALUES (?, ?, ?)`,
				g.ID, memberID, pos); err != nil {
				return nil, fmt.Errorf("insert group member: %w", err)
			}
		}
		groups = append(groups, g)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return groups, nil
}

const groupColumns = `g.id, g.room_id, g.number, g.created_at`

func scanGroup(sc interface{ Scan(...any) error }) (model.Group, error) {
	var (
		g       model.Group
		created string
	)
	if err := sc.Scan(&g.ID, &g.RoomID, &g.Number, &created); err != nil {
		return model.Group{}, err
	}
	g.CreatedAt = parseTime(created)
	return g, nil
}

func (s *SQLiteStore) fillMembers(ctx context.Context, groups []model.Group) error {
	for i := range groups {
		ids, err := queryStrings(ctx, s.db,
			`SELECT member_id FROM group_members WHERE group_id = ? ORDER BY position`, groups[i].ID)
		if err != nil {
			return err
		}
		groups[i].MemberIDs = ids
	}
	return nil
}

func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (model.Group, error) {
	defer observeQuery(time.Now())
	g, err := scanGroup(s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM room_groups g WHERE g.id = ?`, groupID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Group{}, fmt.Errorf("group %q: %w", groupID, ErrNotFound)
	}
	if err != nil {
		return model.Group{}, fmt.Errorf("get group: %w", err)
	}
	out := []model.Group{g}
	if err := s.fillMembers(ctx, out); err != nil {
		return model.Group{}, err
	}
	return out[0], nil
}

func (s *SQLiteStore) listGroups(ctx context.Context, query string, args ...any) ([]model.Group, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	groups := []model.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}
	// Rows must be closed before the next query on the single connection.
	if err := s.fillMembers(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *SQLiteStore) ListGroupsByRoom(ctx context.Context, roomID string) ([]model.Group, error) {
	defer observeQuery(time.Now())
	if err := requireRoom(ctx, s.db, roomID); err != nil {
		return nil, err
	}
	return s.listGroups(ctx, `SELECT `+groupColumns+` FROM room_groups g WHERE g.room_id = ? ORDER BY g.number`, roomID)
}

func (s *SQLiteStore) ListGroupsByMember(ctx context.Context, memberID string) ([]model.Group, error) {
	defer observeQuery(time.Now())
	return s.listGroups(ctx,
		`SELECT `+groupColumns+` FROM room_groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.member_id = ? ORDER BY g.created_at, g.room_id, g.number`, memberID)
}

func (s *SQLiteStore) CountGroups(ctx context.Context, roomID string) (int, error) {
	defer observeQuery(time.Now())
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM room_groups WHERE room_id = ?`, roomID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count groups: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string) error {
	defer observeUpdate(time.Now())
	res, err := s.db.ExecContext(ctx, `DELETE FROM room_groups WHERE id = ?`, groupID)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return affected(res, fmt.Errorf("group %q: %w", groupID, ErrNotFound))
}

func (s *SQLiteStore) DeleteGroupsByRoom(ctx context.Context, roomID string) error {
	defer observeUpdate(time.Now())
	if err := requireRoom(ctx, s.db, roomID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM room_groups WHERE room_id = ?`, roomID); err != nil {
		return fmt.Errorf("delete groups: %w", err)
	}
	return nil
}

func groupRoom(ctx context.Context, q queryer, groupID string) (string, error) {
	var roomID string
	err := q.QueryRowContext(ctx, `SELECT room_id FROM room_groups WHERE id = ?`, groupID).Scan(&roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("group %q: %w", groupID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("lookup group: %w", err)
	}
	return roomID, nil
}

func appendToGroup(ctx context.Context, q queryer, groupID, memberID string) error {
	res, err := q.ExecContext(ctx,
		`INSERT INTO group_members (group_id, member_id, position)
		 SELECT ?, ?, COALESCE(MAX(position) + 1, 0) FROM group_members WHERE group_id = ?
		 ON CONFLICT DO NOTHING`,
		groupID, memberID, groupID)
	if err != nil {
		return fmt.Errorf("insert group member: %w", err)
	}
	return affected(res, fmt.Errorf("member %q in group %q: %w", memberID, groupID, ErrAlreadyExists))
}

func (s *SQLiteStore) AddMemberToGroup(ctx context.Context, groupID, memberID string) error {
	defer observeUpdate(time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	roomID, err := groupRoom(ctx, tx, groupID)
	if err != nil {
		return err
	}
	if err := requireRoomMember(ctx, tx, roomID, memberID); err != nil {
		return err
	}
	if err := appendToGroup(ctx, tx, groupID, memberID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) RemoveMemberFromGroup(ctx context.Context, groupID, memberID string) error {
	defer observeUpdate(time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := groupRoom(ctx, tx, groupID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = ? AND member_id = ?`, groupID, memberID)
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	if err := affected(res, fmt.Errorf("member %q in group %q: %w", memberID, groupID, ErrNotFound)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) MoveMemberToGroup(ctx context.Context, memberID, groupID string) error {
	defer observeUpdate(time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	roomID, err := groupRoom(ctx, tx, groupID)
	if err != nil {
		return err
	}
	if err := requireRoomMember(ctx, tx, roomID, memberID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM group_members WHERE member_id = ?
		 AND group_id IN (SELECT id FROM room_groups WHERE room_id = ?)`, memberID, roomID); err != nil {
		return fmt.Errorf("leave groups: %w", err)
	}
	if err := appendToGroup(ctx, tx, groupID, memberID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) GroupOfMember(ctx context.Context, memberID, roomID string) (string, error) {
	defer observeQuery(time.Now())
	var groupID string
	err := s.db.QueryRowContext(ctx,
		`SELECT g.id FROM room_groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.member_id = ? AND g.room_id = ?
		 ORDER BY g.number LIMIT 1`, memberID, roomID).Scan(&groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("group of member: %w", err)
	}
	return groupID, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	defer observeQuery(time.Now())
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM rooms), (SELECT COUNT(*) FROM members), (SELECT COUNT(*) FROM room_groups)`).
		Scan(&st.Rooms, &st.Members, &st.Groups)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	metrics.UpdateStoredRecords(st.Rooms, st.Members, st.Groups)
	return st, nil
}

func queryStrings(ctx context.Context, q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// affected returns notFound when res touched no rows.
func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isConstraint(err error) bool {
	return strings.Contains(err.Error(), "constraint failed")
}

var _ Store = (*SQLiteStore)(nil)
