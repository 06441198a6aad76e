// Package analytics keeps in-process projections of exam results, class sizes
// and XP sources.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"github.com/xkorin-lab/xkorin/internal/core/score"
	"github.com/xkorin-lab/xkorin/internal/eventbus"
)

// passCutoff is the percentage at or above which an attempt passes.
const passCutoff = 50

// ExamStats aggregates graded attempts of one exam.
type ExamStats struct {
	Attempts          int             `json:"attempts"`
	Passed            int             `json:"passed"`
	AveragePercentage decimal.Decimal `json:"averagePercentage"`

	sum decimal.Decimal
}

// PassRate is Passed/Attempts as a percentage.
func (s ExamStats) PassRate() decimal.Decimal {
	if s.Attempts == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.Passed)).Div(decimal.NewFromInt(int64(s.Attempts))).Mul(decimal.NewFromInt(100))
}

// Service applies events to the projections. Each (handler, event id) pair is
// applied once within the seen window, so redelivery and replay do not double count.
type Service struct {
	mu      sync.RWMutex
	exams   map[string]*ExamStats
	classes map[string]int
	xp      map[string]map[string]int
	applied *seenSet
}

func NewService() *Service {
	return newService(defaultSeenCapacity)
}

func newService(seenCapacity int) *Service {
	return &Service{
		exams:   make(map[string]*ExamStats),
		classes: make(map[string]int),
		xp:      make(map[string]map[string]int),
		applied: newSeenSet(seenCapacity),
	}
}

// Registrations lists the handlers this module subscribes.
func (s *Service) Registrations() []eventbus.Registration {
	return []eventbus.Registration{
		{EventType: v1.AttemptGraded, Name: "analytics.attempt_graded", Handle: s.HandleAttemptGraded},
		{EventType: v1.StudentEnrolled, Name: "analytics.student_enrolled", Handle: s.HandleStudentEnrolled},
		{EventType: v1.XPGained, Name: "analytics.xp_gained", Handle: s.HandleXPGained},
	}
}

func (s *Service) HandleAttemptGraded(ctx context.Context, event *v1.Event) error {
	var ref v1.AttemptRef
	if err := event.DecodeData(&ref); err != nil {
		return err
	}
	points, _ := score.Field(event.Data, "score")
	maxPoints, _ := score.Field(event.Data, "maxScore")
	pct, err := score.Percentage(points, maxPoints)
	if err != nil {
		return fmt.Errorf("attempt %s: %w", event.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.markApplied("attempt_graded", event.ID) {
		return nil
	}

	stats, ok := s.exams[ref.ExamID]
	if !ok {
		stats = &ExamStats{}
		s.exams[ref.ExamID] = stats
	}
	stats.Attempts++
	if score.AtLeast(pct, passCutoff) {
		stats.Passed++
	}
	stats.sum = stats.sum.Add(pct)
	stats.AveragePercentage = stats.sum.Div(decimal.NewFromInt(int64(stats.Attempts))).Round(2)

	slog.Debug("[Analytics] Exam stats updated",
		"exam_id", ref.ExamID,
		"attempts", stats.Attempts,
		"average", stats.AveragePercentage.String(),
	)
	return nil
}

func (s *Service) HandleStudentEnrolled(ctx context.Context, event *v1.Event) error {
	var data v1.StudentEnrolledData
	if err := event.DecodeData(&data); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.markApplied("student_enrolled", event.ID) {
		return nil
	}
	s.classes[data.ClassID]++
	return nil
}

func (s *Service) HandleXPGained(ctx context.Context, event *v1.Event) error {
	if event.UserID == "" {
		return nil
	}
	var data v1.XPGainedData
	if err := event.DecodeData(&data); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.markApplied("xp_gained", event.ID) {
		return nil
	}
	bySource, ok := s.xp[event.UserID]
	if !ok {
		bySource = make(map[string]int)
		s.xp[event.UserID] = bySource
	}
	bySource[data.Source] += data.Amount
	return nil
}

// Exam returns a copy of the stats for examID.
func (s *Service) Exam(examID string) (ExamStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.exams[examID]
	if !ok {
		return ExamStats{}, false
	}
	return *stats, true
}

// ClassSize returns the number of enrollments seen for classID.
func (s *Service) ClassSize(classID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.classes[classID]
}

// XPBySource returns the user's XP split by source.
func (s *Service) XPBySource(userID string) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.xp[userID]))
	for source, amount := range s.xp[userID] {
		out[source] = amount
	}
	return out
}

// markApplied must be called with mu held.
func (s *Service) markApplied(handler, eventID string) bool {
	return s.applied.add(handler + "/" + eventID)
}
