package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"glowUpAPI/internal/logger"
	"glowUpAPI/internal/progress"
	"glowUpAPI/internal/storage"
	"glowUpAPI/internal/user"
)

type UserService struct {
	store    storage.Store
	routines *RoutineService
	now      func() time.Time
}

func NewUserService(store storage.Store, routines *RoutineService) *UserService {
	return &UserService{store: store, routines: routines, now: time.Now}
}

// CreateUser mirrors a new Clerk account and gives it the starter routine.
func (s *UserService) CreateUser(ctx context.Context, req *user.UpsertProfileRequest) (*user.Profile, error) {
	profile, err := s.UpsertProfile(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := s.routines.SeedDefaultRoutine(ctx, profile.UserID); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *UserService) UpsertProfile(ctx context.Context, req *user.UpsertProfileRequest) (*user.Profile, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", progress.ErrInvalidInput)
	}

	now := s.now()
	profile := user.Profile{
		UserID:    userID,
		Email:     strings.TrimSpace(req.Email),
		FullName:  strings.TrimSpace(req.FullName),
		AvatarURL: req.AvatarURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var saved *user.Profile
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		if err := tx.UpsertProfile(ctx, profile); err != nil {
			return err
		}
		var err error
		saved, err = tx.GetProfile(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return saved, nil
}

// GetProfile returns the dashboard header. Users the webhook has not mirrored
// yet still get their points.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*user.ProfileResponse, error) {
	resp := &user.ProfileResponse{}
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		profile, err := tx.GetProfile(ctx)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return err
		default:
			resp.Profile = profile
		}

		points, err := tx.GetPoints(ctx)
		if err != nil {
			return err
		}
		resp.Points = points
		resp.PointsIntoLevel = points.PointsIntoLevel()
		resp.PointsToNextLevel = points.PointsToNextLevel()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return resp, nil
}

// DeleteUser removes every record owned by the user.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		return tx.DeleteUserData(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", userID, err)
	}
	logger.Info("deleted user data", "user", userID)
	return nil
}
