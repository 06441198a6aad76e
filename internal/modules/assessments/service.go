// Package assessments publishes exam grades and keeps per-class exam settings.
package assessments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"github.com/xkorin-lab/xkorin/internal/core/score"
	"github.com/xkorin-lab/xkorin/internal/eventbus"
)

// ExamConfig holds the exam settings applied to new exams of a class.
type ExamConfig struct {
	LateCodesEnabled bool `json:"lateCodesEnabled"`
	AntiCheatEnabled bool `json:"antiCheatEnabled"`
	MaxAttempts      int  `json:"maxAttempts"`
}

// DefaultExamConfig is what a freshly created class starts with.
func DefaultExamConfig() ExamConfig {
	return ExamConfig{LateCodesEnabled: true, AntiCheatEnabled: true, MaxAttempts: 3}
}

// Grade is one graded attempt.
type Grade struct {
	UserID    string
	AttemptID string
	ExamID    string
	Score     decimal.Decimal
	MaxScore  decimal.Decimal
}

var ErrInvalidGrade = errors.New("invalid grade")

type Service struct {
	publisher eventbus.EventPublisher

	mu      sync.RWMutex
	configs map[string]ExamConfig
}

func NewService(publisher eventbus.EventPublisher) *Service {
	if publisher == nil {
		panic("assessments: service requires a publisher")
	}
	return &Service{publisher: publisher, configs: make(map[string]ExamConfig)}
}

// Registrations lists the handlers this module subscribes.
func (s *Service) Registrations() []eventbus.Registration {
	return []eventbus.Registration{
		{EventType: v1.ClassCreated, Name: "assessments.class_created", Handle: s.HandleClassCreated},
	}
}

// RecordGrade announces a graded attempt as ATTEMPT_GRADED at HIGH priority.
func (s *Service) RecordGrade(ctx context.Context, g Grade) (*v1.Event, error) {
	switch {
	case g.UserID == "":
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidGrade)
	case g.ExamID == "":
		return nil, fmt.Errorf("%w: examId is required", ErrInvalidGrade)
	case g.Score.IsNegative():
		return nil, fmt.Errorf("%w: score must not be negative", ErrInvalidGrade)
	}
	if _, err := score.Percentage(g.Score, g.MaxScore); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGrade, err)
	}

	event, err := s.publisher.Publish(ctx, v1.AttemptGraded, v1.AttemptGradedData{
		AttemptID: g.AttemptID,
		ExamID:    g.ExamID,
		Score:     g.Score.InexactFloat64(),
		MaxScore:  g.MaxScore.InexactFloat64(),
	},
		eventbus.WithUserID(g.UserID),
		eventbus.WithPriority(v1.PriorityHigh),
	)
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", v1.AttemptGraded, err)
	}
	return event, nil
}

// HandleClassCreated gives a new class the default exam settings. Settings
// already present are left alone.
func (s *Service) HandleClassCreated(ctx context.Context, event *v1.Event) error {
	var data v1.ClassCreatedData
	if err := event.DecodeData(&data); err != nil {
		return err
	}
	if data.ClassID == "" {
		return fmt.Errorf("event %s: classId is required", event.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[data.ClassID]; ok {
		return nil
	}
	s.configs[data.ClassID] = DefaultExamConfig()

	slog.Info("[Assessments] Default exam config initialised",
		"class_id", data.ClassID,
		"school_id", data.SchoolID,
	)
	return nil
}

// ExamConfigFor returns the settings of classID.
func (s *Service) ExamConfigFor(classID string) (ExamConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[classID]
	return cfg, ok
}
