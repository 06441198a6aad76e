// Package invitations turns accepted class invitations into enrollments.
package invitations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"github.com/xkorin-lab/xkorin/internal/eventbus"
)

var ErrInvalidInvitation = errors.New("invalid invitation")

// Acceptance is a student accepting an invitation to a class.
type Acceptance struct {
	InvitationID string
	StudentID    string
	ClassID      string
	ClassName    string
	SchoolID     string
}

type Service struct {
	publisher eventbus.EventPublisher
}

func NewService(publisher eventbus.EventPublisher) *Service {
	if publisher == nil {
		panic("invitations: service requires a publisher")
	}
	return &Service{publisher: publisher}
}

// AcceptInvitation publishes INVITATION_ACCEPTED, then STUDENT_ENROLLED caused
// by it. It returns the enrollment event.
func (s *Service) AcceptInvitation(ctx context.Context, a Acceptance) (*v1.Event, error) {
	if a.InvitationID == "" || a.StudentID == "" || a.ClassID == "" {
		return nil, fmt.Errorf("%w: invitation, student and class are required", ErrInvalidInvitation)
	}

	accepted, err := s.publisher.Publish(ctx, v1.InvitationAccepted, v1.InvitationAcceptedData{
		InvitationID: a.InvitationID,
		ClassID:      a.ClassID,
	}, eventbus.WithUserID(a.StudentID))
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", v1.InvitationAccepted, err)
	}

	enrolled, err := s.publisher.Publish(ctx, v1.StudentEnrolled, v1.StudentEnrolledData{
		ClassID:   a.ClassID,
		ClassName: a.ClassName,
		SchoolID:  a.SchoolID,
	},
		eventbus.CausedBy(accepted),
		eventbus.WithUserID(a.StudentID),
	)
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", v1.StudentEnrolled, err)
	}

	slog.Info("[Invitations] Invitation accepted",
		"invitation_id", a.InvitationID,
		"user_id", a.StudentID,
		"class_id", a.ClassID,
		"correlation_id", enrolled.Metadata.CorrelationID,
	)
	return enrolled, nil
}
