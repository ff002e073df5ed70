package service

import (
	"fmt"
	"sort"
	"time"

	"backoffice/internal/domain"
	"backoffice/internal/repository"

	"go.uber.org/zap"
)

// ProfileService manages restaurant customers
type ProfileService struct {
	users  *repository.Table[domain.UserProfile]
	logger *zap.Logger
	now    func() time.Time
}

// NewProfileService creates a new profile service
func NewProfileService(store repository.Store, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		users:  repository.NewTable[domain.UserProfile](store, repository.TableUsers),
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the profile or ErrNotFound
func (s *ProfileService) Get(userID int64) (*domain.UserProfile, error) {
	p, err := s.users.Get(userKey(userID))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// Touch records a user who talked to the bot, keeping their names current
func (s *ProfileService) Touch(userID int64, displayName, username string) (*domain.UserProfile, error) {
	p, err := s.users.Get(userKey(userID))
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &domain.UserProfile{UserID: userID, RegisteredAt: s.now()}
	} else if p.DisplayName == displayName && p.Username == username {
		return p, nil
	}
	p.DisplayName = displayName
	p.Username = username

	if err := s.users.Put(userKey(userID), p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

// MinecraftName returns the stored in-game name, or "" for unknown users
func (s *ProfileService) MinecraftName(userID int64) string {
	p, err := s.users.Get(userKey(userID))
	if err != nil || p == nil {
		return ""
	}
	return p.MinecraftName
}

// SetMinecraftName creates or updates the profile
func (s *ProfileService) SetMinecraftName(userID int64, displayName, username, name string) (*domain.UserProfile, error) {
	p, err := s.users.Get(userKey(userID))
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &domain.UserProfile{UserID: userID, RegisteredAt: s.now()}
	}
	p.MinecraftName = name
	if displayName != "" {
		p.DisplayName = displayName
	}
	if username != "" {
		p.Username = username
	}

	if err := s.users.Put(userKey(userID), p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

// SetBanned bans or unbans a known user
func (s *ProfileService) SetBanned(userID int64, banned bool) (*domain.UserProfile, error) {
	p, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	p.Banned = banned
	if err := s.users.Put(userKey(userID), p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	s.logger.Info("Ban flag changed", zap.Int64("user_id", userID), zap.Bool("banned", banned))
	return p, nil
}

// IsBanned reports the ban flag; unknown users are not banned
func (s *ProfileService) IsBanned(userID int64) bool {
	p, err := s.users.Get(userKey(userID))
	if err != nil {
		s.logger.Error("Failed to load profile", zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	return p != nil && p.Banned
}

// List returns profiles by registration time
func (s *ProfileService) List() ([]domain.UserProfile, error) {
	all, err := s.users.All()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].RegisteredAt.Before(all[j].RegisteredAt)
	})
	return all, nil
}
