package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/groupify/groupify/internal/adapters/repository"
	"github.com/groupify/groupify/internal/domain/dedupe"
	"github.com/groupify/groupify/internal/domain/grouping"
	"github.com/groupify/groupify/internal/domain/insight"
	"github.com/groupify/groupify/internal/domain/match"
	"github.com/groupify/groupify/internal/domain/model"
	"github.com/groupify/groupify/internal/domain/types"
	"github.com/groupify/groupify/pkg/logger"
	"github.com/groupify/groupify/pkg/metrics"
)

func (s *Service) checkGroupSize(groupSize int) error {
	if groupSize > s.maxGroupSize {
		return fmt.Errorf("%w: %d exceeds the maximum of %d", grouping.ErrInvalidGroupSize, groupSize, s.maxGroupSize)
	}
	return nil
}

// acquire marks roomID as being partitioned.
func (s *Service) acquire(ctx context.Context, roomID string) error {
	err := s.inflight.Acquire(ctx, roomID)
	switch {
	case err == nil:
		metrics.UpdatePartitionsInFlight(s.inflight.Size())
		return nil
	case errors.Is(err, dedupe.ErrInFlight):
		metrics.RecordPartitionRejected("in_flight")
		return fmt.Errorf("%w: a partition is already running", grouping.ErrAlreadyPartitioned)
	default:
		metrics.RecordPartitionRejected("backpressure")
		return fmt.Errorf("%w: %w", ErrBackpressure, err)
	}
}

func (s *Service) release(ctx context.Context, roomID string) {
	s.inflight.Release(ctx, roomID)
	metrics.UpdatePartitionsInFlight(s.inflight.Size())
}

// CreateGroups partitions the room's roster into groups of at most groupSize
// members and stores them, numbered from 1. It fails with the grouping
// package's sentinels, or repository.ErrNotFound for an unknown room.
func (s *Service) CreateGroups(ctx context.Context, roomID string, groupSize int) ([]types.GroupDetail, error) {
	if _, err := s.storeOrErr(); err != nil {
		return nil, err
	}
	if err := s.checkGroupSize(groupSize); err != nil {
		return nil, err
	}
	if err := s.acquire(ctx, roomID); err != nil {
		return nil, err
	}
	defer s.release(ctx, roomID)

	groups, err := s.partition(ctx, roomID, groupSize)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, roomID, groups)
}

// RequestGroups queues a partition of the room and returns the pending job.
// Room existence, prior groups, group size and roster size are checked up
// front. Missing profiles surface on the job, since they may still be
// submitted before a worker picks it up.
func (s *Service) RequestGroups(ctx context.Context, roomID string, groupSize int) (model.PartitionJob, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return model.PartitionJob{}, err
	}
	if err := s.checkGroupSize(groupSize); err != nil {
		return model.PartitionJob{}, err
	}
	if _, err := store.GetRoom(ctx, roomID); err != nil {
		return model.PartitionJob{}, err
	}
	existing, err := store.CountGroups(ctx, roomID)
	if err != nil {
		return model.PartitionJob{}, err
	}
	if existing > 0 {
		metrics.RecordPartitionRejected("already_partitioned")
		return model.PartitionJob{}, grouping.ErrAlreadyPartitioned
	}
	memberIDs, err := store.RoomMemberIDs(ctx, roomID)
	if err != nil {
		return model.PartitionJob{}, err
	}
	if err := grouping.CheckSize(len(memberIDs), groupSize); err != nil {
		metrics.RecordPartitionRejected(rejectionReason(err))
		return model.PartitionJob{}, err
	}
	if err := s.acquire(ctx, roomID); err != nil {
		return model.PartitionJob{}, err
	}

	job := model.PartitionJob{
		ID:        s.newID(),
		RoomID:    roomID,
		GroupSize: groupSize,
		Status:    model.JobPending,
		CreatedAt: s.now(),
	}
	s.jobs.Add(job)
	if !s.jobQueue.Enqueue(ctx, job) {
		s.jobs.Remove(job.ID)
		s.release(ctx, roomID)
		metrics.RecordPartitionRejected("backpressure")
		return model.PartitionJob{}, ErrBackpressure
	}

	metrics.RecordJobSubmitted()
	s.logger.Debug(ctx, "partition job queued",
		logger.String("jobID", job.ID),
		logger.String("roomID", roomID),
		logger.Int("groupSize", groupSize),
	)
	return job, nil
}

// Job returns a partition job by id.
func (s *Service) Job(ctx context.Context, jobID string) (model.PartitionJob, error) {
	if _, err := s.storeOrErr(); err != nil {
		return model.PartitionJob{}, err
	}
	job, ok := s.jobs.Get(jobID)
	if !ok {
		return model.PartitionJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job, nil
}

// partition loads the roster, runs the engine and stores the result
// atomically. The caller holds the room's in-flight key.
func (s *Service) partition(ctx context.Context, roomID string, groupSize int) ([]model.Group, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	start := time.Now()

	if _, err := store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	existing, err := store.CountGroups(ctx, roomID)
	if err != nil {
		return nil, err
	}
	roster, err := store.Roster(ctx, roomID)
	if err != nil {
		return nil, err
	}

	members := make([]grouping.Member, len(roster))
	for i, e := range roster {
		members[i].ID = e.Member.ID
		if e.Profile != nil {
			p := e.Profile.Energies
			members[i].Profile = &p
		}
	}

	opts := []grouping.Option{
		grouping.WithExistingGroups(existing),
		grouping.WithIterationFactor(s.iterationFactor),
		grouping.WithSeedingMode(s.seedingMode),
	}
	if s.randomSeed != 0 {
		opts = append(opts, grouping.WithRand(grouping.NewRand(s.randomSeed)))
	}

	res, err := grouping.Run(members, groupSize, opts...)
	if err != nil {
		metrics.RecordPartitionRejected(rejectionReason(err))
		return nil, err
	}

	groups, err := store.SaveGroups(ctx, roomID, res.Groups.IDs())
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %w", grouping.ErrAlreadyPartitioned, err)
		}
		return nil, fmt.Errorf("save groups: %w", err)
	}

	latency := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordPartition(len(members), len(groups), res.Trials, res.Accepted,
		res.SeededDeviation, res.FinalDeviation, latency)
	s.logger.Info(ctx, "room partitioned",
		logger.String("roomID", roomID),
		logger.Int("members", len(members)),
		logger.Int("groups", len(groups)),
		logger.Float64("seededDeviation", res.SeededDeviation),
		logger.Float64("finalDeviation", res.FinalDeviation),
		logger.Int("acceptedSwaps", res.Accepted),
	)
	return groups, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, grouping.ErrAlreadyPartitioned):
		return "already_partitioned"
	case errors.Is(err, grouping.ErrInvalidGroupSize):
		return "invalid_group_size"
	case errors.Is(err, grouping.ErrInsufficientMembers):
		return "insufficient_members"
	case errors.Is(err, grouping.ErrMissingProfile):
		return "missing_profile"
	default:
		return "other"
	}
}

// details attaches each group's average profile. Members without a profile
// are left out of the average.
func (s *Service) details(ctx context.Context, roomID string, groups []model.Group) ([]types.GroupDetail, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	roster, err := store.Roster(ctx, roomID)
	if err != nil {
		return nil, err
	}
	profiles := make(map[string]insight.Profile, len(roster))
	for _, e := range roster {
		if e.Profile != nil {
			profiles[e.Member.ID] = e.Profile.Energies
		}
	}

	out := make([]types.GroupDetail, len(groups))
	for i, g := range groups {
		var ps []insight.Profile
		for _, id := range g.MemberIDs {
			if p, ok := profiles[id]; ok {
				ps = append(ps, p)
			}
		}
		out[i] = types.GroupDetail{Group: g, Average: insight.Mean(ps...)}
	}
	return out, nil
}

// Group returns a group with its average profile.
func (s *Service) Group(ctx context.Context, groupID string) (types.GroupDetail, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return types.GroupDetail{}, err
	}
	g, err := store.GetGroup(ctx, groupID)
	if err != nil {
		return types.GroupDetail{}, err
	}
	out, err := s.details(ctx, g.RoomID, []model.Group{g})
	if err != nil {
		return types.GroupDetail{}, err
	}
	return out[0], nil
}

// GroupsByRoom lists a room's groups in number order.
func (s *Service) GroupsByRoom(ctx context.Context, roomID string) ([]types.GroupDetail, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	groups, err := store.ListGroupsByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, roomID, groups)
}

// GroupsByMember lists every group memberID belongs to, across rooms.
func (s *Service) GroupsByMember(ctx context.Context, memberID string) ([]model.Group, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	return store.ListGroupsByMember(ctx, memberID)
}

// GroupOf returns the id of memberID's group in the room, or "" when the
// member has none.
func (s *Service) GroupOf(ctx context.Context, memberID, roomID string) (string, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return "", err
	}
	if _, err := store.GetRoom(ctx, roomID); err != nil {
		return "", err
	}
	return store.GroupOfMember(ctx, memberID, roomID)
}

// RemoveGroup deletes one group.
func (s *Service) RemoveGroup(ctx context.Context, groupID string) error {
	store, err := s.storeOrErr()
	if err != nil {
		return err
	}
	return store.DeleteGroup(ctx, groupID)
}

// ClearGroups deletes all of a room's groups so it can be partitioned again.
func (s *Service) ClearGroups(ctx context.Context, roomID string) error {
	store, err := s.storeOrErr()
	if err != nil {
		return err
	}
	if s.inflight.Held(ctx, roomID) {
		return fmt.Errorf("%w: a partition is running", grouping.ErrAlreadyPartitioned)
	}
	return store.DeleteGroupsByRoom(ctx, roomID)
}

// AddToGroup adds a room member to one of the room's groups.
func (s *Service) AddToGroup(ctx context.Context, groupID, memberID string) error {
	store, err := s.storeOrErr()
	if err != nil {
		return err
	}
	return store.AddMemberToGroup(ctx, groupID, memberID)
}

// RemoveFromGroup drops memberID from the group.
func (s *Service) RemoveFromGroup(ctx context.Context, groupID, memberID string) error {
	store, err := s.storeOrErr()
	if err != nil {
		return err
	}
	return store.RemoveMemberFromGroup(ctx, groupID, memberID)
}

// MoveToGroup moves memberID into groupID, leaving any other group of the
// same room.
func (s *Service) MoveToGroup(ctx context.Context, memberID, groupID string) error {
	store, err := s.storeOrErr()
	if err != nil {
		return err
	}
	return store.MoveMemberToGroup(ctx, memberID, groupID)
}

// Matches ranks the other members of the room by profile similarity to
// memberID. limit <= 0 uses the configured default.
func (s *Service) Matches(ctx context.Context, roomID, memberID string, limit int) ([]types.Match, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	roster, err := store.Roster(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.matchLimit
	}

	var self *match.Candidate
	candidates := make([]match.Candidate, len(roster))
	for i, e := range roster {
		candidates[i].ID = e.Member.ID
		if e.Profile != nil {
			p := e.Profile.Energies
			candidates[i].Profile = &p
		}
		if e.Member.ID == memberID {
			self = &candidates[i]
		}
	}
	if self == nil {
		return nil, fmt.Errorf("member %q in room %q: %w", memberID, roomID, repository.ErrNotInRoom)
	}

	ranked, err := s.matcher.Rank(*self, candidates, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.Match, len(ranked))
	for i, r := range ranked {
		out[i] = types.Match{MemberID: r.MemberID, Percentage: r.Percentage}
	}
	return out, nil
}
