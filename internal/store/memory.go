package store

import (
	"context"
	"sync"
	"time"

	"github.com/hexascan-dev/hexascan/internal/models"
	"github.com/hexascan-dev/hexascan/internal/types"
)

// MemoryStore is an in-memory IssueStore with the same compare-and-swap
// semantics as GormStore. Used by tests and local development.
type MemoryStore struct {
	mu          sync.Mutex
	issues      map[uint]models.EscalationIssue
	events      []models.EscalationEvent
	nextIssueID uint
	nextEventID uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		issues:      make(map[uint]models.EscalationIssue),
		nextIssueID: 1,
		nextEventID: 1,
	}
}

func (s *MemoryStore) Create(ctx context.Context, issue *models.EscalationIssue, event *models.EscalationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue.ID = s.nextIssueID
	s.nextIssueID++
	s.issues[issue.ID] = *issue

	event.EscalationIssueID = issue.ID
	s.appendEventLocked(event)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uint) (*models.EscalationIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &issue, nil
}

func (s *MemoryStore) Events(ctx context.Context, issueID uint) ([]models.EscalationEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []models.EscalationEvent

	for _, e := range s.events {
		if e.EscalationIssueID == issueID {
			events = append(events, e)
		}
	}

	return events, nil
}

func (s *MemoryStore) UpdateWithEvent(ctx context.Context, issue *models.EscalationIssue, baseVersion uint, event *models.EscalationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.issues[issue.ID]
	if !ok {
		return ErrNotFound
	}

	if current.LockVersion != baseVersion {
		return ErrStaleState
	}

	issue.LockVersion = baseVersion + 1
	s.issues[issue.ID] = *issue

	event.EscalationIssueID = issue.ID
	s.appendEventLocked(event)
	return nil
}

func (s *MemoryStore) AppendEvent(ctx context.Context, event *models.EscalationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendEventLocked(event)
	return nil
}

func (s *MemoryStore) ListEscalatable(ctx context.Context, cutoff time.Time) ([]models.EscalationIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var issues []models.EscalationIssue

	for _, issue := range s.issues {
		if types.IsTerminalStatus(issue.Status) {
			continue
		}

		notified := issue.NotifiedAt(issue.CurrentLevel)
		if notified == nil || notified.After(cutoff) {
			continue
		}

		issues = append(issues, issue)
	}

	return issues, nil
}

func (s *MemoryStore) FindOpenBySiteCheck(ctx context.Context, siteID uint, checkName string) (*models.EscalationIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *models.EscalationIssue

	for id := range s.issues {
		issue := s.issues[id]

		if issue.SiteID != siteID || issue.CheckName != checkName || types.IsTerminalStatus(issue.Status) {
			continue
		}

		if found == nil || issue.ID > found.ID {
			copied := issue
			found = &copied
		}
	}

	if found == nil {
		return nil, ErrNotFound
	}

	return found, nil
}

func (s *MemoryStore) appendEventLocked(event *models.EscalationEvent) {
	event.ID = s.nextEventID
	s.nextEventID++
	s.events = append(s.events, *event)
}
