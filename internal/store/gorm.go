package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/hexascan-dev/hexascan/internal/models"
	"github.com/hexascan-dev/hexascan/internal/types"
)

// GormStore is the Postgres-backed IssueStore. Optimistic concurrency uses
// the lock_version column: conditional UPDATE plus RowsAffected check.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// issueWriteColumns are the mutable fields a transition may touch. Listing
// them explicitly keeps Updates from skipping zero values.
var issueWriteColumns = []string{
	"current_level",
	"status",
	"level1_notified_at",
	"level2_notified_at",
	"level3_notified_at",
	"resolved_by_name",
	"resolved_by_email",
	"resolved_at",
	"lock_version",
	"updated_at",
}

func (s *GormStore) Create(ctx context.Context, issue *models.EscalationIssue, event *models.EscalationEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(issue).Error; err != nil {
			return err
		}

		event.EscalationIssueID = issue.ID
		return tx.Create(event).Error
	})
}

func (s *GormStore) Get(ctx context.Context, id uint) (*models.EscalationIssue, error) {
	var issue models.EscalationIssue

	if err := s.db.WithContext(ctx).First(&issue, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &issue, nil
}

func (s *GormStore) Events(ctx context.Context, issueID uint) ([]models.EscalationEvent, error) {
	var events []models.EscalationEvent

	if err := s.db.WithContext(ctx).
		Where("escalation_issue_id = ?", issueID).
		Order("id ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

func (s *GormStore) UpdateWithEvent(ctx context.Context, issue *models.EscalationIssue, baseVersion uint, event *models.EscalationEvent) error {
	issue.LockVersion = baseVersion + 1

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.EscalationIssue{}).
			Where("id = ? AND lock_version = ?", issue.ID, baseVersion).
			Select(issueWriteColumns).
			Updates(issue)

		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return ErrStaleState
		}

		event.EscalationIssueID = issue.ID
		return tx.Create(event).Error
	})
}

func (s *GormStore) AppendEvent(ctx context.Context, event *models.EscalationEvent) error {
	return s.db.WithContext(ctx).Create(event).Error
}

func (s *GormStore) ListEscalatable(ctx context.Context, cutoff time.Time) ([]models.EscalationIssue, error) {
	var issues []models.EscalationIssue

	err := s.db.WithContext(ctx).
		Where("status IN ?", []string{types.StatusOpen, types.StatusAcknowledged, types.StatusInProgress}).
		Where(`(current_level = 1 AND level1_notified_at <= ?)
			OR (current_level = 2 AND level2_notified_at <= ?)
			OR (current_level = 3 AND level3_notified_at <= ?)`, cutoff, cutoff, cutoff).
		Find(&issues).Error

	if err != nil {
		return nil, err
	}

	return issues, nil
}

func (s *GormStore) FindOpenBySiteCheck(ctx context.Context, siteID uint, checkName string) (*models.EscalationIssue, error) {
	var issue models.EscalationIssue

	err := s.db.WithContext(ctx).
		Where("site_id = ? AND check_name = ?", siteID, checkName).
		Where("status IN ?", []string{types.StatusOpen, types.StatusAcknowledged, types.StatusInProgress}).
		Order("id DESC").
		First(&issue).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &issue, nil
}
