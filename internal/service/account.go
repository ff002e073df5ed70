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

// UsersPerPage is the page size of the user list
const UsersPerPage = 10

// AccountService manages casino player accounts
type AccountService struct {
	users  *repository.Table[domain.UserAccount]
	logger *zap.Logger
	now    func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(store repository.Store, logger *zap.Logger) *AccountService {
	return &AccountService{
		users:  repository.NewTable[domain.UserAccount](store, repository.TableUsers),
		logger: logger,
		now:    time.Now,
	}
}

func userKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// Register creates the account with a zero balance. Registering an
// existing user updates the credentials and keeps the balance.
func (s *AccountService) Register(acc domain.UserAccount) (*domain.UserAccount, error) {
	existing, err := s.users.Get(userKey(acc.UserID))
	if err != nil {
		return nil, err
	}

	if existing != nil {
		existing.Nickname = acc.Nickname
		existing.PasswordHash = acc.PasswordHash
		if acc.DisplayName != "" {
			existing.DisplayName = acc.DisplayName
		}
		if acc.Username != "" {
			existing.Username = acc.Username
		}
		acc = *existing
	} else {
		acc.Balance = 0
		acc.RegisteredAt = s.now()
	}

	if err := s.users.Put(userKey(acc.UserID), &acc); err != nil {
		return nil, fmt.Errorf("register account: %w", err)
	}
	s.logger.Info("Account registered", zap.Int64("user_id", acc.UserID), zap.String("nickname", acc.Nickname))
	return &acc, nil
}

// Get returns the account or ErrNotFound
func (s *AccountService) Get(userID int64) (*domain.UserAccount, error) {
	acc, err := s.users.Get(userKey(userID))
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, domain.ErrNotFound
	}
	return acc, nil
}

// List returns accounts by registration time
func (s *AccountService) List() ([]domain.UserAccount, error) {
	all, err := s.users.All()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].RegisteredAt.Equal(all[j].RegisteredAt) {
			return all[i].UserID < all[j].UserID
		}
		return all[i].RegisteredAt.Before(all[j].RegisteredAt)
	})
	return all, nil
}

// IDs returns every registered user id
func (s *AccountService) IDs() ([]int64, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(all))
	for _, a := range all {
		ids = append(ids, a.UserID)
	}
	return ids, nil
}

// Page returns one zero-based page and the total page count
func (s *AccountService) Page(page int) ([]domain.UserAccount, int, error) {
	all, err := s.List()
	if err != nil {
		return nil, 0, err
	}

	pages := (len(all) + UsersPerPage - 1) / UsersPerPage
	if pages == 0 {
		return nil, 0, nil
	}
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}

	start := page * UsersPerPage
	end := start + UsersPerPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], pages, nil
}

// Delete removes an account
func (s *AccountService) Delete(userID int64) (*domain.UserAccount, error) {
	acc, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.Delete(userKey(userID)); err != nil {
		return nil, fmt.Errorf("delete account: %w", err)
	}
	s.logger.Info("Account deleted", zap.Int64("user_id", userID))
	return acc, nil
}

// SetBalance overwrites the balance and returns the previous one
func (s *AccountService) SetBalance(userID, balance int64) (int64, error) {
	if balance < 0 {
		return 0, &domain.ValidationError{Field: "balance", Message: "the balance can't be negative"}
	}

	acc, err := s.Get(userID)
	if err != nil {
		return 0, err
	}

	old := acc.Balance
	acc.Balance = balance
	if err := s.users.Put(userKey(userID), acc); err != nil {
		return 0, fmt.Errorf("set balance: %w", err)
	}
	s.logger.Info("Balance changed",
		zap.Int64("user_id", userID),
		zap.Int64("old_balance", old),
		zap.Int64("new_balance", balance),
	)
	return old, nil
}

// Reset deletes every account and returns how many there were
func (s *AccountService) Reset() (int, error) {
	all, err := s.users.All()
	if err != nil {
		return 0, err
	}
	if err := s.users.Clear(); err != nil {
		return 0, fmt.Errorf("reset accounts: %w", err)
	}
	s.logger.Warn("All accounts reset", zap.Int("count", len(all)))
	return len(all), nil
}
