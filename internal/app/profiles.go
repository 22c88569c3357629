package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/groupify/groupify/internal/adapters/repository"
	"github.com/groupify/groupify/internal/domain/insight"
	"github.com/groupify/groupify/internal/domain/model"
)

// validateProfile applies the input policy: finite energies within the
// configured range and a non-negative wheel position.
func (s *Service) validateProfile(energies insight.Profile, wheel int) error {
	if err := energies.Validate(); err != nil {
		return err
	}
	if !energies.Within(s.minEnergy, s.maxEnergy) {
		return fmt.Errorf("%w: energies must lie in [%g, %g]", insight.ErrInvalidProfile, s.minEnergy, s.maxEnergy)
	}
	if wheel < 0 {
		return fmt.Errorf("%w: wheel position must not be negative", insight.ErrInvalidProfile)
	}
	return nil
}

// CreateProfile stores the first profile of memberID.
func (s *Service) CreateProfile(ctx context.Context, memberID string, energies insight.Profile, wheel int) (model.Profile, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return model.Profile{}, err
	}
	if strings.TrimSpace(memberID) == "" {
		return model.Profile{}, ErrInvalidMember
	}
	if err := s.validateProfile(energies, wheel); err != nil {
		return model.Profile{}, err
	}
	if err := store.UpsertMember(ctx, model.Member{ID: memberID}); err != nil {
		return model.Profile{}, err
	}

	p := model.Profile{MemberID: memberID, Energies: energies, WheelPosition: wheel, UpdatedAt: s.now()}
	if err := store.CreateProfile(ctx, p); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// UpdateProfile replaces an existing profile.
func (s *Service) UpdateProfile(ctx context.Context, memberID string, energies insight.Profile, wheel int) (model.Profile, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return model.Profile{}, err
	}
	if err := s.validateProfile(energies, wheel); err != nil {
		return model.Profile{}, err
	}

	p := model.Profile{MemberID: memberID, Energies: energies, WheelPosition: wheel, UpdatedAt: s.now()}
	if err := store.UpdateProfile(ctx, p); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// PutProfile creates or replaces the profile of memberID. created reports
// which of the two happened.
func (s *Service) PutProfile(ctx context.Context, memberID string, energies insight.Profile, wheel int) (p model.Profile, created bool, err error) {
	p, err = s.CreateProfile(ctx, memberID, energies, wheel)
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, repository.ErrAlreadyExists) {
		return model.Profile{}, false, err
	}
	p, err = s.UpdateProfile(ctx, memberID, energies, wheel)
	return p, false, err
}

// Profile returns the stored profile of memberID.
func (s *Service) Profile(ctx context.Context, memberID string) (model.Profile, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return model.Profile{}, err
	}
	return store.GetProfile(ctx, memberID)
}
