package escalation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hexascan-dev/hexascan/internal/contacts"
	"github.com/hexascan-dev/hexascan/internal/models"
	"github.com/hexascan-dev/hexascan/internal/notify"
	"github.com/hexascan-dev/hexascan/internal/store"
	"github.com/hexascan-dev/hexascan/internal/tokens"
	"github.com/hexascan-dev/hexascan/internal/types"
)

// OperatorLevel marks a transition performed through the authenticated
// operator API rather than a capability token. Operators bypass level
// matching but not the state machine's legality rules.
const OperatorLevel = 0

const dispatchTimeout = 15 * time.Second

// Actor identifies who performed a transition, for the audit log.
type Actor struct {
	Name  string
	Email string
}

// CreateInput carries everything needed to open an issue for a failing check.
// Site and check fields are snapshotted onto the issue as-is.
type CreateInput struct {
	OrganizationID uint
	SiteID         uint
	CheckResultID  uint
	SiteName       string
	SiteURL        string
	CheckName      string
	MonitorType    string
	Contacts       []contacts.Contact
}

// Config holds the engine's timing knobs.
type Config struct {
	Window        time.Duration // escalation window per level
	TokenTTL      time.Duration // capability token lifetime
	PublicBaseURL string        // base for token links in notifications
}

// Engine is the escalation state machine. Every mutation re-reads the issue
// and writes through the store's conditional update, so concurrent sweeper
// and human transitions on one issue produce exactly one winner; the loser
// sees store.ErrStaleState and must retry from a fresh read.
type Engine struct {
	store      store.IssueStore
	codec      *tokens.Codec
	dispatcher notify.Dispatcher
	clock      clockwork.Clock
	cfg        Config

	sink func(models.EscalationEvent)
}

func NewEngine(st store.IssueStore, codec *tokens.Codec, dispatcher notify.Dispatcher, clock clockwork.Clock, cfg Config) *Engine {
	return &Engine{
		store:      st,
		codec:      codec,
		dispatcher: dispatcher,
		clock:      clock,
		cfg:        cfg,
	}
}

// OnEvent registers a sink called after every appended event. Used by the
// websocket feed; must not block.
func (e *Engine) OnEvent(sink func(models.EscalationEvent)) {
	e.sink = sink
}

// Window exposes the configured escalation window for read paths that derive
// deadlines.
func (e *Engine) Window() time.Duration {
	return e.cfg.Window
}

// Create opens an issue at level 1 for a failing check result, appends the
// CREATED event and notifies the first contact.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*models.EscalationIssue, error) {
	if len(in.Contacts) == 0 {
		return nil, fmt.Errorf("%w: site %d has no ticket contacts", ErrValidation, in.SiteID)
	}

	if len(in.Contacts) > types.MaxEscalationLevels {
		in.Contacts = in.Contacts[:types.MaxEscalationLevels]
	}

	now := e.clock.Now()

	issue := &models.EscalationIssue{
		OrganizationID: in.OrganizationID,
		SiteID:         in.SiteID,
		CheckResultID:  in.CheckResultID,
		SiteName:       in.SiteName,
		SiteURL:        in.SiteURL,
		CheckName:      in.CheckName,
		MonitorType:    in.MonitorType,
		CurrentLevel:   1,
		MaxLevel:       len(in.Contacts),
		Status:         types.StatusOpen,
	}

	for i, c := range in.Contacts {
		switch i {
		case 0:
			issue.Level1Name, issue.Level1Email = c.Name, c.Email
		case 1:
			issue.Level2Name, issue.Level2Email = c.Name, c.Email
		case 2:
			issue.Level3Name, issue.Level3Email = c.Name, c.Email
		}
	}

	issue.SetNotifiedAt(1, now)

	event := &models.EscalationEvent{
		EventType: types.EventCreated,
		Level:     levelPtr(1),
	}

	if err := e.store.Create(ctx, issue, event); err != nil {
		return nil, fmt.Errorf("create issue for check result %d: %w", in.CheckResultID, err)
	}

	e.emit(*event)
	e.notifyLevel(issue, 1)

	return issue, nil
}

// RecordView appends a VIEWED event. Idempotent by design: every view adds an
// event, none changes state.
func (e *Engine) RecordView(ctx context.Context, issueID uint, level int) error {
	issue, err := e.store.Get(ctx, issueID)

	if err != nil {
		return err
	}

	event := &models.EscalationEvent{
		EscalationIssueID: issue.ID,
		EventType:         types.EventViewed,
		Level:             levelPtr(level),
	}

	if err := e.store.AppendEvent(ctx, event); err != nil {
		return err
	}

	e.emit(*event)
	return nil
}

// ApplyStatusUpdate advances an issue to ACKNOWLEDGED, IN_PROGRESS or
// RESOLVED. level is the caller's capability level (OperatorLevel for the
// authenticated API); it must match the issue's current level, and the status
// may only move forward.
func (e *Engine) ApplyStatusUpdate(ctx context.Context, issueID uint, level int, actor Actor, newStatus, message string) (*models.EscalationIssue, error) {
	rank, ok := statusRank(newStatus)

	if !ok || newStatus == types.StatusOpen {
		return nil, fmt.Errorf("%w: status %q is not a valid update target", ErrValidation, newStatus)
	}

	issue, err := e.store.Get(ctx, issueID)

	if err != nil {
		return nil, err
	}

	if issue.IsTerminal() {
		return nil, fmt.Errorf("%w: issue %d is already %s", ErrInvalidTransition, issue.ID, issue.Status)
	}

	if level != OperatorLevel && level != issue.CurrentLevel {
		return nil, fmt.Errorf("%w: level %d token cannot update an issue at level %d", ErrInvalidTransition, level, issue.CurrentLevel)
	}

	currentRank, _ := statusRank(issue.Status)

	if rank <= currentRank {
		return nil, fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, issue.Status, newStatus)
	}

	// Token holders act as their ladder identity unless they say otherwise.
	if level != OperatorLevel && actor.Email == "" {
		actor = Actor{Name: issue.ContactName(level), Email: issue.ContactEmail(level)}
	}

	baseVersion := issue.LockVersion
	issue.Status = newStatus

	if newStatus == types.StatusResolved {
		now := e.clock.Now()
		issue.ResolvedByName = actor.Name
		issue.ResolvedByEmail = actor.Email
		issue.ResolvedAt = &now
	}

	event := &models.EscalationEvent{
		EventType: eventForStatus(newStatus),
		Level:     actorLevel(level),
		UserName:  actor.Name,
		UserEmail: actor.Email,
		Message:   message,
	}

	if err := e.store.UpdateWithEvent(ctx, issue, baseVersion, event); err != nil {
		return nil, err
	}

	e.emit(*event)
	return issue, nil
}

// AddReport appends a free-text REPORT_ADDED event. Any capability at or
// below the current level may report, and reporting stays open on terminal
// issues for post-mortem notes.
func (e *Engine) AddReport(ctx context.Context, issueID uint, level int, actor Actor, message string) error {
	if message == "" {
		return fmt.Errorf("%w: report message is required", ErrValidation)
	}

	issue, err := e.store.Get(ctx, issueID)

	if err != nil {
		return err
	}

	if level != OperatorLevel && level > issue.CurrentLevel {
		return fmt.Errorf("%w: level %d token cannot report on an issue at level %d", ErrInvalidTransition, level, issue.CurrentLevel)
	}

	if level != OperatorLevel && actor.Email == "" {
		actor = Actor{Name: issue.ContactName(level), Email: issue.ContactEmail(level)}
	}

	event := &models.EscalationEvent{
		EscalationIssueID: issue.ID,
		EventType:         types.EventReportAdded,
		Level:             actorLevel(level),
		UserName:          actor.Name,
		UserEmail:         actor.Email,
		Message:           message,
	}

	if err := e.store.AppendEvent(ctx, event); err != nil {
		return err
	}

	e.emit(*event)
	return nil
}

// AutoResolve closes a non-terminal issue because the underlying check
// recovered. No-op on terminal issues so check recovery can race transitions
// harmlessly.
func (e *Engine) AutoResolve(ctx context.Context, issueID uint, reason string) (*models.EscalationIssue, error) {
	issue, err := e.store.Get(ctx, issueID)

	if err != nil {
		return nil, err
	}

	if issue.IsTerminal() {
		return issue, nil
	}

	now := e.clock.Now()
	baseVersion := issue.LockVersion
	issue.Status = types.StatusAutoResolved
	issue.ResolvedAt = &now

	event := &models.EscalationEvent{
		EventType: types.EventAutoResolved,
		Message:   reason,
	}

	if err := e.store.UpdateWithEvent(ctx, issue, baseVersion, event); err != nil {
		return nil, err
	}

	e.emit(*event)
	return issue, nil
}

// Escalate moves an overdue issue one level up the ladder, or to EXHAUSTED
// when the last level's window has also run out. Re-reads current state, so
// stale scheduling is harmless: pre-deadline and terminal issues are no-ops.
// Only the sweeper calls this.
func (e *Engine) Escalate(ctx context.Context, issueID uint, now time.Time) (*models.EscalationIssue, error) {
	issue, err := e.store.Get(ctx, issueID)

	if err != nil {
		return nil, err
	}

	if issue.IsTerminal() {
		return issue, nil
	}

	if now.Before(issue.EscalationDeadline(e.cfg.Window)) {
		return issue, nil
	}

	baseVersion := issue.LockVersion

	if issue.CurrentLevel >= issue.MaxLevel {
		issue.Status = types.StatusExhausted

		event := &models.EscalationEvent{
			EventType: types.EventExhausted,
			Level:     levelPtr(issue.CurrentLevel),
		}

		if err := e.store.UpdateWithEvent(ctx, issue, baseVersion, event); err != nil {
			return nil, err
		}

		e.emit(*event)
		return issue, nil
	}

	issue.CurrentLevel++
	issue.SetNotifiedAt(issue.CurrentLevel, now)

	event := &models.EscalationEvent{
		EventType: types.EventEscalated,
		Level:     levelPtr(issue.CurrentLevel),
	}

	if err := e.store.UpdateWithEvent(ctx, issue, baseVersion, event); err != nil {
		return nil, err
	}

	e.emit(*event)
	e.notifyLevel(issue, issue.CurrentLevel)

	return issue, nil
}

// notifyLevel mints a level-scoped token and hands the notification to the
// dispatcher without blocking the transition.
func (e *Engine) notifyLevel(issue *models.EscalationIssue, level int) {
	token, err := e.codec.Mint(issue.ID, level, e.cfg.TokenTTL)

	if err != nil {
		log.Printf("Failed to mint level %d token for issue %d: %v", level, issue.ID, err)
		return
	}

	n := notify.Notification{
		IssueID:            issue.ID,
		OrganizationID:     issue.OrganizationID,
		SiteName:           issue.SiteName,
		SiteURL:            issue.SiteURL,
		CheckName:          issue.CheckName,
		MonitorType:        issue.MonitorType,
		Level:              level,
		RecipientName:      issue.ContactName(level),
		RecipientEmail:     issue.ContactEmail(level),
		EscalationDeadline: issue.EscalationDeadline(e.cfg.Window),
		Token:              token,
		PublicURL:          fmt.Sprintf("%s/escalations/%d?token=%s", e.cfg.PublicBaseURL, issue.ID, token),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		if err := e.dispatcher.Dispatch(ctx, n); err != nil {
			log.Printf("Failed to dispatch level %d notification for issue %d: %v", level, issue.ID, err)
		}
	}()
}

func (e *Engine) emit(event models.EscalationEvent) {
	if e.sink != nil {
		e.sink(event)
	}
}

// statusRank orders the manual statuses so updates can only move forward.
func statusRank(status string) (int, bool) {
	switch status {
	case types.StatusOpen:
		return 0, true
	case types.StatusAcknowledged:
		return 1, true
	case types.StatusInProgress:
		return 2, true
	case types.StatusResolved:
		return 3, true
	}
	return 0, false
}

func eventForStatus(status string) string {
	switch status {
	case types.StatusAcknowledged:
		return types.EventAcknowledged
	case types.StatusInProgress:
		return types.EventInProgress
	case types.StatusResolved:
		return types.EventResolved
	}
	return ""
}

func levelPtr(level int) *int {
	return &level
}

// actorLevel maps a capability level to the event's level field; operator
// actions are recorded as system-level (nil).
func actorLevel(level int) *int {
	if level == OperatorLevel {
		return nil
	}
	return levelPtr(level)
}
