package service

import (
	"fmt"

	"backoffice/internal/domain"
	"backoffice/internal/repository"
)

const staffKey = "staff"

// SettingsService stores where staff notifications go
type SettingsService struct {
	settings *repository.Table[domain.StaffSettings]
}

// NewSettingsService creates a new settings service
func NewSettingsService(store repository.Store) *SettingsService {
	return &SettingsService{
		settings: repository.NewTable[domain.StaffSettings](store, repository.TableSettings),
	}
}

// Staff returns the current settings, zero when unset
func (s *SettingsService) Staff() (*domain.StaffSettings, error) {
	st, err := s.settings.Get(staffKey)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &domain.StaffSettings{}
	}
	if st.Topics == nil {
		st.Topics = map[string]int{}
	}
	return st, nil
}

func (s *SettingsService) update(fn func(st *domain.StaffSettings)) error {
	st, err := s.Staff()
	if err != nil {
		return err
	}
	fn(st)
	if err := s.settings.Put(staffKey, st); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SetStaffGroup records the staff group chat. Topics belong to the old group and are reset.
func (s *SettingsService) SetStaffGroup(chatID int64) error {
	return s.update(func(st *domain.StaffSettings) {
		if st.GroupID != chatID {
			st.Topics = map[string]int{}
		}
		st.GroupID = chatID
	})
}

// SetTopic maps a section to a forum thread of the staff group
func (s *SettingsService) SetTopic(section string, threadID int) error {
	switch section {
	case domain.SectionOrders, domain.SectionSponsors, domain.SectionApplications, domain.SectionUsers:
	default:
		return fmt.Errorf("%w: unknown section %q", domain.ErrNotFound, section)
	}
	return s.update(func(st *domain.StaffSettings) {
		st.Topics[section] = threadID
	})
}

// SetSponsorChannel records the channel approved ads are forwarded to
func (s *SettingsService) SetSponsorChannel(chatID int64) error {
	return s.update(func(st *domain.StaffSettings) {
		st.SponsorChannelID = chatID
	})
}
