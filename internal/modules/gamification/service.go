// Package gamification credits XP for grades and enrollments, awards badges
// and announces level changes.
package gamification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"github.com/xkorin-lab/xkorin/internal/core/score"
	"github.com/xkorin-lab/xkorin/internal/core/storage"
	"github.com/xkorin-lab/xkorin/internal/eventbus"
)

const (
	SourceExam       = "exam"
	SourceBadge      = "badge"
	SourceEnrollment = "enrollment"
)

// Service reacts to grading and enrollment events.
// Every credit is keyed by the triggering event, so redelivery never pays twice.
type Service struct {
	ledger    storage.XPLedger
	publisher eventbus.EventPublisher
	nowFn     func() time.Time
}

func NewService(ledger storage.XPLedger, publisher eventbus.EventPublisher) *Service {
	if ledger == nil || publisher == nil {
		panic("gamification: service requires a ledger and a publisher")
	}
	return &Service{ledger: ledger, publisher: publisher, nowFn: time.Now}
}

// Registrations lists the handlers this module subscribes.
func (s *Service) Registrations() []eventbus.Registration {
	return []eventbus.Registration{
		{EventType: v1.AttemptGraded, Name: "gamification.attempt_graded", Handle: s.HandleAttemptGraded},
		{EventType: v1.StudentEnrolled, Name: "gamification.student_enrolled", Handle: s.HandleStudentEnrolled},
	}
}

// HandleAttemptGraded credits the exam reward, the perfect-score badge and its
// bonus, then announces a level change once all credits are applied.
// Every step runs on every delivery: credits replay their recorded totals and
// derived events carry ids fixed by the grading event, so a retry after a
// partial failure completes the chain without paying or announcing twice.
func (s *Service) HandleAttemptGraded(ctx context.Context, event *v1.Event) error {
	if event.UserID == "" {
		slog.Warn("[Gamification] ATTEMPT_GRADED without userId, skipping", "event_id", event.ID)
		return nil
	}

	var ref v1.AttemptRef
	if err := event.DecodeData(&ref); err != nil {
		return err
	}
	points, ok := score.Field(event.Data, "score")
	if !ok {
		return fmt.Errorf("attempt %s: score is missing", event.ID)
	}
	maxPoints, ok := score.Field(event.Data, "maxScore")
	if !ok {
		return fmt.Errorf("attempt %s: maxScore is missing", event.ID)
	}
	pct, err := score.Percentage(points, maxPoints)
	if err != nil {
		return fmt.Errorf("attempt %s: %w", event.ID, err)
	}

	amount := XPForGrade(pct)
	res, err := s.credit(ctx, event, SourceExam, ref.ExamID, amount)
	if err != nil {
		return err
	}
	oldLevel := LevelForXP(res.OldTotal)
	total := res.NewTotal

	if _, err := s.publishXP(ctx, event, "xp:"+SourceExam, SourceExam, ref.ExamID, amount, total); err != nil {
		return err
	}

	if score.AtLeast(pct, perfectCutoff) {
		if total, err = s.awardBadge(ctx, event, PerfectScore, total); err != nil {
			return err
		}
	}

	if newLevel := LevelForXP(total); newLevel > oldLevel {
		if err := s.publishLevelUp(ctx, event, oldLevel, newLevel, total); err != nil {
			return err
		}
	}

	slog.Info("[Gamification] Processed ATTEMPT_GRADED",
		"event_id", event.ID,
		"user_id", event.UserID,
		"xp", amount,
		"applied", res.Applied,
		"level", LevelForXP(total),
	)
	return nil
}

// HandleStudentEnrolled credits the welcome reward.
func (s *Service) HandleStudentEnrolled(ctx context.Context, event *v1.Event) error {
	if event.UserID == "" {
		slog.Warn("[Gamification] STUDENT_ENROLLED without userId, skipping", "event_id", event.ID)
		return nil
	}

	var data v1.StudentEnrolledData
	if err := event.DecodeData(&data); err != nil {
		return err
	}

	res, err := s.credit(ctx, event, SourceEnrollment, data.ClassID, enrollmentXP)
	if err != nil {
		return err
	}
	if !res.Applied {
		slog.Debug("[Gamification] Enrollment XP already credited", "event_id", event.ID)
	}

	if _, err := s.publishXP(ctx, event, "xp:"+SourceEnrollment, SourceEnrollment, data.ClassID, enrollmentXP, res.NewTotal); err != nil {
		return err
	}
	if oldLevel, newLevel := LevelForXP(res.OldTotal), LevelForXP(res.NewTotal); newLevel > oldLevel {
		return s.publishLevelUp(ctx, event, oldLevel, newLevel, res.NewTotal)
	}
	return nil
}

// awardBadge grants the badge once per user, credits its bonus and announces
// both. It returns the user's total after the bonus, or total unchanged when
// another event already earned the badge.
func (s *Service) awardBadge(ctx context.Context, event *v1.Event, badge Badge, total int) (int, error) {
	held, err := s.ledger.AwardBadge(ctx, event.UserID, badge.ID, event.ID, s.nowFn().UTC())
	if err != nil {
		return total, fmt.Errorf("award badge %s to %s: %w", badge.ID, event.UserID, err)
	}
	if !held {
		return total, nil
	}

	bonus, err := s.credit(ctx, event, SourceBadge, badge.ID, badge.XPBonus)
	if err != nil {
		return total, err
	}

	earned, err := s.publisher.Publish(ctx, v1.BadgeEarned, v1.BadgeEarnedData{
		BadgeID:       badge.ID,
		BadgeName:     badge.Name,
		BadgeIcon:     badge.Icon,
		BadgeRarity:   badge.Rarity,
		PointsAwarded: badge.XPBonus,
	},
		eventbus.DerivedFrom(event, "badge:"+badge.ID),
		eventbus.WithUserID(event.UserID),
		eventbus.WithPriority(v1.PriorityHigh),
	)
	if err != nil {
		return total, fmt.Errorf("publish %s: %w", v1.BadgeEarned, err)
	}

	if _, err := s.publishXP(ctx, earned, "xp:"+SourceBadge, SourceBadge, badge.ID, badge.XPBonus, bonus.NewTotal); err != nil {
		return total, err
	}
	return bonus.NewTotal, nil
}

func (s *Service) credit(ctx context.Context, event *v1.Event, source, sourceID string, amount int) (storage.XPResult, error) {
	res, err := s.ledger.Credit(ctx, storage.XPCredit{
		UserID:   event.UserID,
		EventID:  event.ID,
		Source:   source,
		SourceID: sourceID,
		Amount:   amount,
		At:       s.nowFn().UTC(),
	})
	if err != nil {
		return res, fmt.Errorf("credit %d XP (%s) to %s: %w", amount, source, event.UserID, err)
	}
	return res, nil
}

func (s *Service) publishXP(ctx context.Context, cause *v1.Event, step, source, sourceID string, amount, total int) (*v1.Event, error) {
	published, err := s.publisher.Publish(ctx, v1.XPGained, v1.XPGainedData{
		Amount:   amount,
		Source:   source,
		SourceID: sourceID,
		NewTotal: total,
		NewLevel: LevelForXP(total),
	},
		eventbus.DerivedFrom(cause, step),
		eventbus.WithUserID(cause.UserID),
	)
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", v1.XPGained, err)
	}
	return published, nil
}

func (s *Service) publishLevelUp(ctx context.Context, cause *v1.Event, oldLevel, newLevel, total int) error {
	_, err := s.publisher.Publish(ctx, v1.LevelUp, v1.LevelUpData{
		OldLevel: oldLevel,
		NewLevel: newLevel,
		TotalXP:  total,
	},
		eventbus.DerivedFrom(cause, "level-up"),
		eventbus.WithUserID(cause.UserID),
		eventbus.WithPriority(v1.PriorityHigh),
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", v1.LevelUp, err)
	}
	return nil
}
