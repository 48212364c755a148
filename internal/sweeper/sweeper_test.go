package sweeper

import (
	"context"
	"errors"
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

func newEngine(st store.IssueStore, clock clockwork.Clock) *escalation.Engine {
	return escalation.NewEngine(st, tokens.NewCodec("secret", clock), notify.LogDispatcher{}, clock, escalation.Config{
		Window:        testWindow,
		TokenTTL:      72 * time.Hour,
		PublicBaseURL: "http://localhost:3000",
	})
}

func createIssue(t *testing.T, engine *escalation.Engine, siteID uint, checkName string) *models.EscalationIssue {
	t.Helper()

	issue, err := engine.Create(context.Background(), escalation.CreateInput{
		OrganizationID: 1,
		SiteID:         siteID,
		CheckResultID:  1,
		SiteName:       "site",
		SiteURL:        "https://site.example.com",
		CheckName:      checkName,
		MonitorType:    "system_health",
		Contacts: []contacts.Contact{
			{Name: "Ana", Email: "ana@example.com"},
			{Name: "Ben", Email: "ben@example.com"},
		},
	})
	require.NoError(t, err)
	return issue
}

func TestSweepEscalatesOnlyOverdueIssues(t *testing.T) {
	clock := clockwork.NewFakeClock()
	st := store.NewMemoryStore()
	engine := newEngine(st, clock)

	overdue := createIssue(t, engine, 1, "cpu")

	clock.Advance(31 * time.Minute)

	fresh := createIssue(t, engine, 2, "memory")

	sw := NewSweeper(st, engine, clock, time.Minute, 30*time.Second)
	require.NoError(t, sw.Sweep(context.Background()))

	got, err := st.Get(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentLevel)

	got, err = st.Get(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentLevel)
}

func TestSweepIsIdempotentWithinOneWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	st := store.NewMemoryStore()
	engine := newEngine(st, clock)

	issue := createIssue(t, engine, 1, "cpu")

	clock.Advance(31 * time.Minute)

	sw := NewSweeper(st, engine, clock, time.Minute, 30*time.Second)
	require.NoError(t, sw.Sweep(context.Background()))
	require.NoError(t, sw.Sweep(context.Background()))

	got, err := st.Get(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentLevel)
	assert.Equal(t, types.StatusOpen, got.Status)

	events, err := st.Events(context.Background(), issue.ID)
	require.NoError(t, err)

	var escalated int
	for _, e := range events {
		if e.EventType == types.EventEscalated {
			escalated++
		}
	}
	assert.Equal(t, 1, escalated)
}

// failingStore makes reads for one issue fail, standing in for a flaky
// backend during a sweep.
type failingStore struct {
	*store.MemoryStore
	failID uint
}

func (s *failingStore) Get(ctx context.Context, id uint) (*models.EscalationIssue, error) {
	if id == s.failID {
		return nil, errors.New("store unavailable")
	}
	return s.MemoryStore.Get(ctx, id)
}

func TestSweepIsolatesPerIssueFailures(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mem := store.NewMemoryStore()
	st := &failingStore{MemoryStore: mem}
	engine := newEngine(st, clock)

	broken := createIssue(t, engine, 1, "cpu")
	healthy := createIssue(t, engine, 2, "memory")

	st.failID = broken.ID

	clock.Advance(31 * time.Minute)

	sw := NewSweeper(st, engine, clock, time.Minute, 30*time.Second)
	require.NoError(t, sw.Sweep(context.Background()))

	// The healthy issue escalated despite its sibling failing.
	got, err := mem.Get(context.Background(), healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentLevel)

	got, err = mem.Get(context.Background(), broken.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentLevel)

	// The next tick picks it up once the store recovers.
	st.failID = 0

	require.NoError(t, sw.Sweep(context.Background()))

	got, err = mem.Get(context.Background(), broken.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentLevel)
}

func TestStartStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	st := store.NewMemoryStore()
	engine := newEngine(st, clock)

	sw := NewSweeper(st, engine, clock, time.Minute, 30*time.Second)
	sw.Start()
	sw.Start() // second Start is a no-op
	sw.Stop()
	sw.Stop() // second Stop is a no-op
}
