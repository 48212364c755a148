package escalation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexascan-dev/hexascan/internal/contacts"
	"github.com/hexascan-dev/hexascan/internal/escalation"
	"github.com/hexascan-dev/hexascan/internal/models"
	"github.com/hexascan-dev/hexascan/internal/notify"
	"github.com/hexascan-dev/hexascan/internal/store"
	"github.com/hexascan-dev/hexascan/internal/tokens"
	"github.com/hexascan-dev/hexascan/internal/types"
)

const testWindow = 30 * time.Minute

type captureDispatcher struct {
	mu            sync.Mutex
	notifications []notify.Notification
}

func (d *captureDispatcher) Dispatch(ctx context.Context, n notify.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications = append(d.notifications, n)
	return nil
}

func (d *captureDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.notifications)
}

func (d *captureDispatcher) last() notify.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.notifications[len(d.notifications)-1]
}

type testEnv struct {
	engine     *escalation.Engine
	store      *store.MemoryStore
	dispatcher *captureDispatcher
	clock      *clockwork.FakeClock
	codec      *tokens.Codec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := clockwork.NewFakeClock()
	st := store.NewMemoryStore()
	codec := tokens.NewCodec("test-secret", clock)
	dispatcher := &captureDispatcher{}

	engine := escalation.NewEngine(st, codec, dispatcher, clock, escalation.Config{
		Window:        testWindow,
		TokenTTL:      72 * time.Hour,
		PublicBaseURL: "http://localhost:3000",
	})

	return &testEnv{engine: engine, store: st, dispatcher: dispatcher, clock: clock, codec: codec}
}

func twoContactInput() escalation.CreateInput {
	return escalation.CreateInput{
		OrganizationID: 1,
		SiteID:         10,
		CheckResultID:  100,
		SiteName:       "Example Shop",
		SiteURL:        "https://shop.example.com",
		CheckName:      "wordpress_health",
		MonitorType:    "wordpress_health",
		Contacts: []contacts.Contact{
			{Name: "Ana", Email: "ana@example.com"},
			{Name: "Ben", Email: "ben@example.com"},
		},
	}
}

func (env *testEnv) mustCreate(t *testing.T, in escalation.CreateInput) *models.EscalationIssue {
	t.Helper()

	issue, err := env.engine.Create(context.Background(), in)
	require.NoError(t, err)
	return issue
}

func (env *testEnv) events(t *testing.T, issueID uint) []models.EscalationEvent {
	t.Helper()

	events, err := env.store.Events(context.Background(), issueID)
	require.NoError(t, err)
	return events
}

func TestCreateOpensIssueAtLevelOne(t *testing.T) {
	env := newTestEnv(t)

	issue := env.mustCreate(t, twoContactInput())

	assert.Equal(t, types.StatusOpen, issue.Status)
	assert.Equal(t, 1, issue.CurrentLevel)
	assert.Equal(t, 2, issue.MaxLevel)
	require.NotNil(t, issue.Level1NotifiedAt)
	assert.Equal(t, env.clock.Now(), *issue.Level1NotifiedAt)
	assert.Nil(t, issue.Level2NotifiedAt)

	events := env.events(t, issue.ID)
	require.Len(t, events, 1)
	assert.Equal(t, types.EventCreated, events[0].EventType)

	require.Eventually(t, func() bool { return env.dispatcher.count() == 1 }, time.Second, 10*time.Millisecond)

	n := env.dispatcher.last()
	assert.Equal(t, 1, n.Level)
	assert.Equal(t, "ana@example.com", n.RecipientEmail)
	assert.Equal(t, env.clock.Now().Add(testWindow), n.EscalationDeadline)
	assert.NotEmpty(t, n.Token)

	capability, err := env.codec.Verify(n.Token)
	require.NoError(t, err)
	assert.Equal(t, issue.ID, capability.IssueID)
	assert.Equal(t, 1, capability.Level)
}

func TestCreateWithoutContactsFails(t *testing.T) {
	env := newTestEnv(t)

	in := twoContactInput()
	in.Contacts = nil

	_, err := env.engine.Create(context.Background(), in)
	require.ErrorIs(t, err, escalation.ErrValidation)

	// Nothing persisted
	_, err = env.store.Get(context.Background(), 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEscalateBeforeDeadlineIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	issue := env.mustCreate(t, twoContactInput())

	env.clock.Advance(10 * time.Minute)

	updated, err := env.engine.Escalate(context.Background(), issue.ID, env.clock.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, updated.CurrentLevel)
	assert.Equal(t, types.StatusOpen, updated.Status)
	assert.Len(t, env.events(t, issue.ID), 1)
}

func TestEscalationLadderToExhaustion(t *testing.T) {
	env := newTestEnv(t)
	issue := env.mustCreate(t, twoContactInput())

	// Past the level-1 window: escalate to level 2.
	env.clock.Advance(31 * time.Minute)

	updated, err := env.engine.Escalate(context.Background(), issue.ID, env.clock.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, updated.CurrentLevel)
	assert.Equal(t, types.StatusOpen, updated.Status)
	require.NotNil(t, updated.Level2NotifiedAt)
	assert.Equal(t, env.clock.Now(), *updated.Level2NotifiedAt)

	events := env.events(t, issue.ID)
	require.Len(t, events, 2)
	assert.Equal(t, types.EventEscalated, events[1].EventType)
	require.NotNil(t, events[1].Level)
	assert.Equal(t, 2, *events[1].Level)

	require.Eventually(t, func() bool { return env.dispatcher.count() == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "ben@example.com", env.dispatcher.last().RecipientEmail)

	// Past the level-2 window: the ladder is exhausted.
	env.clock.Advance(31 * time.Minute)

	updated, err = env.engine.Escalate(context.Background(), issue.ID, env.clock.Now())
	require.NoError(t, err)

	assert.Equal(t, types.StatusExhausted, updated.Status)
	assert.Equal(t, 2, updated.CurrentLevel)

	events = env.events(t, issue.ID)
	require.Len(t, events, 3)
	assert.Equal(t, types.EventExhausted, events[2].EventType)

	// Further sweeps are no-ops: exhaustion happens exactly once.
	env.clock.Advance(31 * time.Minute)

	updated, err = env.engine.Escalate(context.Background(), issue.ID, env.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, types.StatusExhausted, updated.Status)
	assert.Len(t, env.events(t, issue.ID), 3)

	// No notification was sent for the exhaustion itself.
	assert.Equal(t, 2, env.dispatcher.count())
}

func TestCurrentLevelNeverDecreases(t *testing.T) {
	env := newTestEnv(t)
	issue := env.mustCreate(t, twoContactInput())

	lastLevel := issue.CurrentLevel

	for i := 0; i < 5; i++ {
		env.clock.Advance(31 * time.Minute)

		updated, err := env.engine.Escalate(context.Background(), issue.ID, env.clock.Now())
		require.NoError(t, err)
		require.GreaterOrEqual(t, updated.CurrentLevel, lastLevel)
		lastLevel = updated.CurrentLevel
	}

	assert.LessOrEqual(t, lastLevel, issue.MaxLevel)
}

func TestResolveViaTokenStopsEscalation(t *testing.T) {
	env := newTestEnv(t)
	issue := env.mustCreate(t, twoContactInput())

	env.clock.Advance(10 * time.Minute)

	updated, err := env.engine.ApplyStatusUpdate(context.Background(), issue.ID, 1, escalation.Actor{}, types.StatusResolved, "fixed the disk")
	require.NoError(t, err)

	assert.Equal(t, types.StatusResolved, updated.Status)
	assert.Equal(t, "ana@example.com", updated.ResolvedByEmail)
	assert.Equal(t, "Ana", updated.ResolvedByName)
	require.NotNil(t, updated.ResolvedAt)

	// Sweeper ticks after the deadline are no-ops for a resolved issue.
	env.clock.Advance(time.Hour)

	after, err := env.engine.Escalate(context.Background(), issue.ID, env.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, types.StatusResolved, after.Status)
	assert.Equal(t, 1, after.CurrentLevel)

	events := env.events(t, issue.ID)
	require.Len(t, events, 2)
	assert.Equal(t, types.EventResolved, events[1].EventType)
}

func TestStatusUpdatesOnlyMoveForward(t *testing.T) {
	env := newTestEnv(t)
	issue := env.mustCreate(t, twoContactInput())

	_, err := env.engine.ApplyStatusUpdate(context.Background(), issue.ID, 1, escalation.Actor{}, types.StatusInProgress, "")
	require.NoError(t, err)

	_, err = env.engine.ApplyStatusUpdate(context.Background(), issue.ID, 1, escalation.Actor{}, types.StatusAcknowledged, "")
	require.ErrorIs(t, err, escalation.ErrInvalidTransition)

	_, err = env.engine.ApplyStatusUpdate(context.Background(), issue.ID, 1, escalation.Actor{}, types.StatusOpen, "")
	require.ErrorIs(t, err, escalation.ErrValidation)
}

func TestTerminalIssuesAreImmutable(t *testing.T) {
	env := newTestEnv(t)
	issue := env.mustCreate(t, twoContactInput())

	_, err := env.engine.ApplyStatusUpdate(context.Background(), issue.ID, 1, escalation.Actor{}, types.StatusResolved, "")
	require.NoError(t, err)

	_, err = env.engine.ApplyStatusUpdate(context.Background(), issue.ID, 1, escalation.Actor{}, types.StatusInProgress, "")
	require.ErrorIs(t, err, escalation.ErrInvalidTransition)
}

func TestSupersededTokenCannotUpdateButCanReport(t *testing.T) {
	env := newTestEnv(t)
	issue := env.mustCreate(t, twoContactInput())

	env.clock.Advance(31 * time.Minute)

	_, err := env.engine.Escalate(context.Background(), issue.ID, env.clock.Now())
	require.NoError(t, err)

	// Ana's level-1 capability no longer matches the current level.
	_, err = env.engine.ApplyStatusUpdate(context.Background(), issue.ID, 1, escalation.Actor{}, types.StatusAcknowledged, "")
	require.ErrorIs(t, err, escalation.ErrInvalidTransition)

	// But she keeps visibility and commenting rights.
	err = env.engine.AddReport(context.Background(), issue.ID, 1, escalation.Actor{}, "restarted the worker, watching")
	require.NoError(t, err)

	events := env.events(t, issue.ID)
	last := events[len(events)-1]
	assert.Equal(t, types.EventReportAdded, last.EventType)
	assert.Equal(t, "ana@example.com", last.UserEmail)
}

func TestReportAllowedOnTerminalIssue(t *testing.T) {
	env := newTestEnv(t)
	issue := env.mustCreate(t, twoContactInput())

	_, err := env.engine.ApplyStatusUpdate(context.Background(), issue.ID, 1, escalation.Actor{}, types.StatusResolved, "")
	require.NoError(t, err)

	err = env.engine.AddReport(context.Background(), issue.ID, 1, escalation.Actor{}, "root cause was a full disk")
	require.NoError(t, err)
}

func TestRecordViewIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	issue := env.mustCreate(t, twoContactInput())

	for i := 0; i < 3; i++ {
		require.NoError(t, env.engine.RecordView(context.Background(), issue.ID, 1))
	}

	updated, err := env.store.Get(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusOpen, updated.Status)

	var viewed int
	for _, e := range env.events(t, issue.ID) {
		if e.EventType == types.EventViewed {
			viewed++
		}
	}
	assert.Equal(t, 3, viewed)
}

func TestAutoResolveClosesNonTerminalIssue(t *testing.T) {
	env := newTestEnv(t)
	issue := env.mustCreate(t, twoContactInput())

	updated, err := env.engine.AutoResolve(context.Background(), issue.ID, "check recovered")
	require.NoError(t, err)

	assert.Equal(t, types.StatusAutoResolved, updated.Status)
	assert.Empty(t, updated.ResolvedByEmail)
	require.NotNil(t, updated.ResolvedAt)

	events := env.events(t, issue.ID)
	last := events[len(events)-1]
	assert.Equal(t, types.EventAutoResolved, last.EventType)
	assert.Empty(t, last.UserEmail)

	// Idempotent on terminal issues.
	again, err := env.engine.AutoResolve(context.Background(), issue.ID, "check recovered")
	require.NoError(t, err)
	assert.Equal(t, types.StatusAutoResolved, again.Status)
	assert.Len(t, env.events(t, issue.ID), len(events))
}

func TestConcurrentWritersProduceOneWinner(t *testing.T) {
	env := newTestEnv(t)
	issue := env.mustCreate(t, twoContactInput())

	// Both writers read the same base version.
	base, err := env.store.Get(context.Background(), issue.ID)
	require.NoError(t, err)

	// The human wins the race.
	_, err = env.engine.ApplyStatusUpdate(context.Background(), issue.ID, 1, escalation.Actor{}, types.StatusResolved, "")
	require.NoError(t, err)

	// The sweeper's write, based on the stale read, must lose.
	stale := *base
	stale.CurrentLevel = 2
	err = env.store.UpdateWithEvent(context.Background(), &stale, base.LockVersion, &models.EscalationEvent{
		EventType: types.EventEscalated,
	})
	require.ErrorIs(t, err, store.ErrStaleState)

	final, err := env.store.Get(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusResolved, final.Status)
	assert.Equal(t, 1, final.CurrentLevel)
}

func TestPublicViewCapabilities(t *testing.T) {
	env := newTestEnv(t)
	issue := env.mustCreate(t, twoContactInput())

	view, err := env.engine.View(context.Background(), issue.ID, 1)
	require.NoError(t, err)

	assert.True(t, view.CanUpdate)
	assert.True(t, view.CanAddReport)
	require.NotNil(t, view.EscalationDeadline)
	assert.Equal(t, env.clock.Now().Add(testWindow), *view.EscalationDeadline)
	require.NotNil(t, view.TimeRemainingSecs)
	assert.Equal(t, int64(testWindow.Seconds()), *view.TimeRemainingSecs)

	env.clock.Advance(31 * time.Minute)

	_, err = env.engine.Escalate(context.Background(), issue.ID, env.clock.Now())
	require.NoError(t, err)

	// Superseded level: read-and-report only.
	view, err = env.engine.View(context.Background(), issue.ID, 1)
	require.NoError(t, err)
	assert.False(t, view.CanUpdate)
	assert.True(t, view.CanAddReport)

	// Current level can act.
	view, err = env.engine.View(context.Background(), issue.ID, 2)
	require.NoError(t, err)
	assert.True(t, view.CanUpdate)

	// Operators always can, until the issue is terminal.
	view, err = env.engine.View(context.Background(), issue.ID, escalation.OperatorLevel)
	require.NoError(t, err)
	assert.True(t, view.CanUpdate)
	assert.True(t, view.CanAddReport)
}
