package service

import (
	"time"

	"backoffice/internal/domain"
	"backoffice/internal/repository"

	"go.uber.org/zap"
)

// CleanupService removes closed records past the retention period
type CleanupService struct {
	tables    []*repository.Table[domain.PendingRecord]
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewCleanupService creates a cleanup service over the given record tables
func NewCleanupService(store repository.Store, tables []string, retentionDays int, logger *zap.Logger) *CleanupService {
	s := &CleanupService{
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger,
		now:       time.Now,
	}
	for _, name := range tables {
		s.tables = append(s.tables, repository.NewTable[domain.PendingRecord](store, name))
	}
	return s
}

// CleanupOldData deletes terminal records not touched within the retention period
func (s *CleanupService) CleanupOldData() (int, error) {
	cutoff := s.now().Add(-s.retention)
	s.logger.Info("Starting cleanup of closed records", zap.Time("cutoff", cutoff))

	removed := 0
	for _, t := range s.tables {
		records, err := t.All()
		if err != nil {
			s.logger.Error("Failed to list records", zap.String("table", t.Name()), zap.Error(err))
			return removed, err
		}

		for _, r := range records {
			if !r.Status.Terminal() || !r.UpdatedAt.Before(cutoff) {
				continue
			}
			if err := t.Delete(r.ID); err != nil {
				s.logger.Error("Failed to delete record",
					zap.String("table", t.Name()),
					zap.String("record_id", r.ID),
					zap.Error(err),
				)
				return removed, err
			}
			removed++
		}
	}

	s.logger.Info("Cleanup completed successfully", zap.Int("removed", removed))
	return removed, nil
}
