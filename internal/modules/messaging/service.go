// Package messaging turns gamification and enrollment events into user
// notifications and announces each one as NOTIFICATION_CREATED.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"github.com/xkorin-lab/xkorin/internal/eventbus"
)

// Notification kinds and priorities accepted by the NOTIFICATION_CREATED contract.
const (
	TypeSuccess = "success"
	TypeXP      = "xp"
	TypeLevelUp = "level_up"
	TypeBadge   = "badge"

	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Notification is one message for one user.
type Notification struct {
	UserID    string
	Title     string
	Message   string
	Type      string
	Priority  string
	Metadata  map[string]interface{}
	CreatedAt time.Time
}

// Sink delivers notifications to users (in-app inbox, push, email).
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

// LogSink writes notifications to the log. It is the sink used when no
// delivery channel is configured.
type LogSink struct{}

func (LogSink) Deliver(ctx context.Context, n Notification) error {
	slog.Info("[Messaging] Notification delivered",
		"user_id", n.UserID,
		"type", n.Type,
		"priority", n.Priority,
		"title", n.Title,
	)
	return nil
}

// Service sends notifications. Delivery is at least once: a handler retried
// after the sink accepted a notification sends it again.
type Service struct {
	sink      Sink
	publisher eventbus.EventPublisher
	nowFn     func() time.Time
}

func NewService(sink Sink, publisher eventbus.EventPublisher) *Service {
	if publisher == nil {
		panic("messaging: service requires a publisher")
	}
	if sink == nil {
		sink = LogSink{}
	}
	return &Service{sink: sink, publisher: publisher, nowFn: time.Now}
}

// Registrations lists the handlers this module subscribes.
func (s *Service) Registrations() []eventbus.Registration {
	return []eventbus.Registration{
		{EventType: v1.StudentEnrolled, Name: "messaging.student_enrolled", Handle: s.HandleStudentEnrolled},
		{EventType: v1.XPGained, Name: "messaging.xp_gained", Handle: s.HandleXPGained},
		{EventType: v1.LevelUp, Name: "messaging.level_up", Handle: s.HandleLevelUp},
		{EventType: v1.BadgeEarned, Name: "messaging.badge_earned", Handle: s.HandleBadgeEarned},
	}
}

// Send delivers n and publishes NOTIFICATION_CREATED caused by cause.
// Delivery is at least once; the event is published once per cause.
func (s *Service) Send(ctx context.Context, cause *v1.Event, n Notification) error {
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	n.CreatedAt = s.nowFn().UTC()

	if err := s.sink.Deliver(ctx, n); err != nil {
		return fmt.Errorf("deliver notification to %s: %w", n.UserID, err)
	}

	priority := v1.PriorityNormal
	if n.Priority == PriorityHigh {
		priority = v1.PriorityHigh
	}
	_, err := s.publisher.Publish(ctx, v1.NotificationCreated, v1.NotificationCreatedData{
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Priority:  n.Priority,
		Metadata:  n.Metadata,
		CreatedAt: n.CreatedAt,
		Read:      false,
	},
		eventbus.DerivedFrom(cause, "notification"),
		eventbus.WithUserID(n.UserID),
		eventbus.WithPriority(priority),
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", v1.NotificationCreated, err)
	}
	return nil
}

func (s *Service) HandleStudentEnrolled(ctx context.Context, event *v1.Event) error {
	if skip(event) {
		return nil
	}
	var data v1.StudentEnrolledData
	if err := event.DecodeData(&data); err != nil {
		return err
	}
	className := data.ClassName
	if className == "" {
		className = data.ClassID
	}

	return s.Send(ctx, event, Notification{
		UserID:   event.UserID,
		Title:    "🎓 Bienvenue!",
		Message:  fmt.Sprintf(`Vous êtes maintenant inscrit au cours "%s". Bon apprentissage!`, className),
		Type:     TypeSuccess,
		Priority: PriorityNormal,
		Metadata: map[string]interface{}{
			"classId":   data.ClassID,
			"className": className,
		},
	})
}

func (s *Service) HandleXPGained(ctx context.Context, event *v1.Event) error {
	if skip(event) {
		return nil
	}
	var data v1.XPGainedData
	if err := event.DecodeData(&data); err != nil {
		return err
	}

	return s.Send(ctx, event, Notification{
		UserID:   event.UserID,
		Title:    fmt.Sprintf("✨ +%d XP", data.Amount),
		Message:  fmt.Sprintf("Vous avez gagné %d XP. Total: %d XP (niveau %d).", data.Amount, data.NewTotal, data.NewLevel),
		Type:     TypeXP,
		Priority: PriorityNormal,
		Metadata: map[string]interface{}{
			"amount":   data.Amount,
			"source":   data.Source,
			"newTotal": data.NewTotal,
			"newLevel": data.NewLevel,
		},
	})
}

func (s *Service) HandleLevelUp(ctx context.Context, event *v1.Event) error {
	if skip(event) {
		return nil
	}
	var data v1.LevelUpData
	if err := event.DecodeData(&data); err != nil {
		return err
	}

	return s.Send(ctx, event, Notification{
		UserID:   event.UserID,
		Title:    "⭐ Niveau supérieur!",
		Message:  fmt.Sprintf("Félicitations! Vous êtes passé au niveau %d!", data.NewLevel),
		Type:     TypeLevelUp,
		Priority: PriorityHigh,
		Metadata: map[string]interface{}{
			"oldLevel": data.OldLevel,
			"newLevel": data.NewLevel,
			"totalXP":  data.TotalXP,
		},
	})
}

func (s *Service) HandleBadgeEarned(ctx context.Context, event *v1.Event) error {
	if skip(event) {
		return nil
	}
	var data v1.BadgeEarnedData
	if err := event.DecodeData(&data); err != nil {
		return err
	}

	return s.Send(ctx, event, Notification{
		UserID:   event.UserID,
		Title:    "🎉 Nouveau Badge!",
		Message:  fmt.Sprintf("Vous avez obtenu le badge %s %s! +%dXP", data.BadgeName, data.BadgeIcon, data.PointsAwarded),
		Type:     TypeBadge,
		Priority: PriorityHigh,
		Metadata: map[string]interface{}{
			"badgeId":       data.BadgeID,
			"badgeRarity":   data.BadgeRarity,
			"pointsAwarded": data.PointsAwarded,
		},
	})
}

func skip(event *v1.Event) bool {
	if event.UserID != "" {
		return false
	}
	slog.Warn("[Messaging] Event without userId, skipping",
		"event_id", event.ID,
		"event_type", event.Type,
	)
	return true
}
