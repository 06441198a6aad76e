package modules

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"github.com/xkorin-lab/xkorin/internal/contract"
	"github.com/xkorin-lab/xkorin/internal/core/storage"
	"github.com/xkorin-lab/xkorin/internal/core/storage/memory"
	"github.com/xkorin-lab/xkorin/internal/deadletter"
	"github.com/xkorin-lab/xkorin/internal/eventbus"
	"github.com/xkorin-lab/xkorin/internal/modules/analytics"
	"github.com/xkorin-lab/xkorin/internal/modules/assessments"
	"github.com/xkorin-lab/xkorin/internal/modules/gamification"
	"github.com/xkorin-lab/xkorin/internal/modules/messaging"
)

type inbox struct {
	sent []messaging.Notification
}

func (i *inbox) Deliver(ctx context.Context, n messaging.Notification) error {
	i.sent = append(i.sent, n)
	return nil
}

type app struct {
	bus         *eventbus.Bus
	publisher   *eventbus.Publisher
	events      *memory.EventStore
	ledger      *memory.Ledger
	deadLetters *memory.DeadLetterStore
	inbox       *inbox
	analytics   *analytics.Service
	assessments *assessments.Service
}

func newApp(t *testing.T) *app {
	t.Helper()
	a := &app{
		events:      memory.NewEventStore(),
		ledger:      memory.NewLedger(),
		deadLetters: memory.NewDeadLetterStore(),
		inbox:       &inbox{},
	}

	var dlq *deadletter.Service
	a.bus = eventbus.NewBus(eventbus.Config{MaxRetries: 3, RetryBaseDelay: time.Second, RetryMaxDelay: time.Minute}, deadletter.SinkFunc(func() eventbus.DeadLetterSink { return dlq }), nil)
	dlq = deadletter.NewService(a.deadLetters, a.bus, 3)

	contracts := contract.NewRegistry(contract.EmbeddedSource(), false)
	a.publisher = eventbus.NewPublisher(a.bus, a.events, contracts, eventbus.PublisherConfig{MaxChainDepth: 8}, nil)

	a.analytics = analytics.NewService()
	a.assessments = assessments.NewService(a.publisher)
	require.NoError(t, Register(a.bus,
		gamification.NewService(a.ledger, a.publisher),
		messaging.NewService(a.inbox, a.publisher),
		a.analytics,
		a.assessments,
	))
	return a
}

func (a *app) stored(t *testing.T, types ...v1.EventType) []*v1.Event {
	t.Helper()
	out, err := a.events.Range(context.Background(), time.Time{}, time.Now().Add(time.Hour), types, 0)
	require.NoError(t, err)
	return out
}

func (a *app) requireNoDeadLetters(t *testing.T) {
	t.Helper()
	unresolved, err := a.deadLetters.ListUnresolved(context.Background(), storage.DeadLetterFilter{})
	require.NoError(t, err)
	require.Empty(t, unresolved)
}

func TestRegistrations_Order(t *testing.T) {
	a := newApp(t)

	names := lo.Map(a.bus.Handlers(v1.StudentEnrolled), func(r eventbus.Registration, _ int) string { return r.Name })
	require.Equal(t, []string{"gamification.student_enrolled", "messaging.student_enrolled", "analytics.student_enrolled"}, names)

	require.Len(t, a.bus.Handlers(v1.ClassCreated), 1)
	require.Error(t, Register(a.bus, a.analytics), "a handler name is registered once per event type")
}

func TestEnrollmentChoreography(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)

	enrolled, err := a.publisher.Publish(ctx, v1.StudentEnrolled, map[string]interface{}{"classId": "C1"}, eventbus.WithUserID("U1"))
	require.NoError(t, err)

	a.bus.ProcessQueues(ctx)
	require.Equal(t, 0, a.bus.Stats().Total)
	a.requireNoDeadLetters(t)

	xp := a.stored(t, v1.XPGained)
	require.Len(t, xp, 1)
	require.Equal(t, float64(10), xp[0].Data["amount"])
	require.Equal(t, float64(10), xp[0].Data["newTotal"])
	require.Equal(t, float64(1), xp[0].Data["newLevel"])
	require.Equal(t, enrolled.ID, xp[0].Metadata.CausationID)
	require.Equal(t, enrolled.Metadata.CorrelationID, xp[0].Metadata.CorrelationID)

	welcome, ok := lo.Find(a.inbox.sent, func(n messaging.Notification) bool { return n.Type == messaging.TypeSuccess })
	require.True(t, ok)
	require.Equal(t, "🎓 Bienvenue!", welcome.Title)
	require.Equal(t, "U1", welcome.UserID)
	require.Equal(t, "C1", welcome.Metadata["classId"])
	require.Len(t, a.inbox.sent, 2, "welcome plus the XP notification")

	require.Len(t, a.stored(t, v1.NotificationCreated), 2)
	require.Equal(t, 1, a.analytics.ClassSize("C1"))
	require.Equal(t, map[string]int{gamification.SourceEnrollment: 10}, a.analytics.XPBySource("U1"))
}

func TestPerfectScoreChoreography(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)

	graded, err := a.assessments.RecordGrade(ctx, assessments.Grade{
		UserID:   "U2",
		ExamID:   "E1",
		Score:    decimal.NewFromInt(100),
		MaxScore: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	a.bus.ProcessQueues(ctx)
	require.Equal(t, 0, a.bus.Stats().Total)
	a.requireNoDeadLetters(t)

	counts := lo.CountValuesBy(a.stored(t), func(e *v1.Event) v1.EventType { return e.Type })
	require.Equal(t, map[v1.EventType]int{
		v1.AttemptGraded:       1,
		v1.XPGained:            2,
		v1.BadgeEarned:         1,
		v1.LevelUp:             1,
		v1.NotificationCreated: 4,
	}, counts)

	badge := a.stored(t, v1.BadgeEarned)[0]
	require.Equal(t, "perfect-score", badge.Data["badgeId"])

	levelUp := a.stored(t, v1.LevelUp)[0]
	require.Equal(t, float64(1), levelUp.Data["oldLevel"])
	require.Equal(t, float64(2), levelUp.Data["newLevel"])

	total, err := a.ledger.TotalXP(ctx, "U2")
	require.NoError(t, err)
	require.Equal(t, 130, total)

	// Every derived event traces back to the grade.
	byID := lo.KeyBy(a.stored(t), func(e *v1.Event) string { return e.ID })
	for _, e := range byID {
		require.Equal(t, graded.Metadata.CorrelationID, e.Metadata.CorrelationID)
		root := e
		for root.Metadata.CausationID != "" {
			parent, ok := byID[root.Metadata.CausationID]
			require.True(t, ok, "cause %s of %s is stored", root.Metadata.CausationID, root.ID)
			root = parent
		}
		require.Equal(t, graded.ID, root.ID)
	}

	stats, ok := a.analytics.Exam("E1")
	require.True(t, ok)
	require.Equal(t, 1, stats.Passed)
	require.Equal(t, map[string]int{gamification.SourceExam: 80, gamification.SourceBadge: 50}, a.analytics.XPBySource("U2"))
}

func TestReplayDoesNotDoubleCredit(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)

	_, err := a.assessments.RecordGrade(ctx, assessments.Grade{
		UserID:   "U1",
		ExamID:   "E1",
		Score:    decimal.NewFromInt(16),
		MaxScore: decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	a.bus.ProcessQueues(ctx)

	replayer := eventbus.NewReplayer(a.events, a.bus, 100)
	n, err := replayer.Replay(ctx, time.Time{}, time.Now().Add(time.Hour), []v1.EventType{v1.AttemptGraded})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	a.bus.ProcessQueues(ctx)

	total, err := a.ledger.TotalXP(ctx, "U1")
	require.NoError(t, err)
	require.Equal(t, 65, total)
	require.Len(t, a.stored(t, v1.XPGained), 1)

	stats, _ := a.analytics.Exam("E1")
	require.Equal(t, 1, stats.Attempts)
}
