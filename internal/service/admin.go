package service

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"backoffice/internal/domain"
	"backoffice/internal/repository"

	"go.uber.org/zap"
)

// AdminService manages the moderator set
type AdminService struct {
	admins *repository.Table[domain.Admin]
	logger *zap.Logger
	now    func() time.Time
}

// NewAdminService creates a new admin service
func NewAdminService(store repository.Store, logger *zap.Logger) *AdminService {
	return &AdminService{
		admins: repository.NewTable[domain.Admin](store, repository.TableAdmins),
		logger: logger,
		now:    time.Now,
	}
}

func adminKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// Seed stores ids when the set is empty, so runtime changes survive restarts
func (s *AdminService) Seed(ids []int64) error {
	existing, err := s.List()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, id := range ids {
		if _, err := s.Add(id, 0); err != nil {
			return err
		}
	}
	s.logger.Info("Admin set seeded", zap.Int("count", len(ids)))
	return nil
}

// IsAdmin checks membership
func (s *AdminService) IsAdmin(userID int64) (bool, error) {
	a, err := s.admins.Get(adminKey(userID))
	if err != nil {
		return false, err
	}
	return a != nil, nil
}

// IsModerator is IsAdmin with lookup errors treated as a denial
func (s *AdminService) IsModerator(userID int64) bool {
	ok, err := s.IsAdmin(userID)
	if err != nil {
		s.logger.Error("Failed to check admin", zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	return ok
}

// List returns admin ids in ascending order
func (s *AdminService) List() ([]int64, error) {
	all, err := s.admins.All()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(all))
	for _, a := range all {
		ids = append(ids, a.UserID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Add inserts an admin. It reports false when the user already was one.
func (s *AdminService) Add(userID, addedBy int64) (bool, error) {
	exists, err := s.IsAdmin(userID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	a := &domain.Admin{UserID: userID, AddedBy: addedBy, AddedAt: s.now()}
	if err := s.admins.Put(adminKey(userID), a); err != nil {
		return false, fmt.Errorf("add admin: %w", err)
	}
	s.logger.Info("Admin added", zap.Int64("user_id", userID), zap.Int64("added_by", addedBy))
	return true, nil
}

// Remove deletes an admin. The set can never become empty.
func (s *AdminService) Remove(userID int64) error {
	ids, err := s.List()
	if err != nil {
		return err
	}

	found := false
	for _, id := range ids {
		if id == userID {
			found = true
			break
		}
	}
	if !found {
		return domain.ErrNotFound
	}
	if len(ids) <= 1 {
		return domain.ErrLastAdmin
	}

	if err := s.admins.Delete(adminKey(userID)); err != nil {
		return fmt.Errorf("remove admin: %w", err)
	}
	s.logger.Info("Admin removed", zap.Int64("user_id", userID))
	return nil
}
