// Package academic announces changes to the school structure: schools,
// classes and syllabi.
package academic

import (
	"context"
	"errors"
	"fmt"

	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"github.com/xkorin-lab/xkorin/internal/eventbus"
)

var ErrInvalidRequest = errors.New("invalid academic request")

type School struct {
	ID      string
	Name    string
	OwnerID string
}

type Class struct {
	ID        string
	Name      string
	SchoolID  string
	TeacherID string
}

type SyllabusChange struct {
	SyllabusID string
	SchoolID   string
	Changes    []string
}

type Service struct {
	publisher eventbus.EventPublisher
}

func NewService(publisher eventbus.EventPublisher) *Service {
	if publisher == nil {
		panic("academic: service requires a publisher")
	}
	return &Service{publisher: publisher}
}

// CreateSchool publishes SCHOOL_CREATED on behalf of the owner.
func (s *Service) CreateSchool(ctx context.Context, school School) (*v1.Event, error) {
	if school.ID == "" || school.Name == "" {
		return nil, fmt.Errorf("%w: school id and name are required", ErrInvalidRequest)
	}
	return s.publish(ctx, v1.SchoolCreated, school.OwnerID, v1.SchoolCreatedData{
		SchoolID: school.ID,
		Name:     school.Name,
		OwnerID:  school.OwnerID,
	})
}

// CreateClass publishes CLASS_CREATED. The teacher, when set, is the subject.
func (s *Service) CreateClass(ctx context.Context, class Class) (*v1.Event, error) {
	if class.ID == "" || class.Name == "" || class.SchoolID == "" {
		return nil, fmt.Errorf("%w: class id, name and school are required", ErrInvalidRequest)
	}
	return s.publish(ctx, v1.ClassCreated, class.TeacherID, v1.ClassCreatedData{
		ClassID:   class.ID,
		ClassName: class.Name,
		SchoolID:  class.SchoolID,
		TeacherID: class.TeacherID,
	})
}

// UpdateSyllabus publishes SYLLABUS_UPDATED with the list of changed sections.
func (s *Service) UpdateSyllabus(ctx context.Context, actorID string, change SyllabusChange) (*v1.Event, error) {
	if change.SyllabusID == "" {
		return nil, fmt.Errorf("%w: syllabus id is required", ErrInvalidRequest)
	}
	return s.publish(ctx, v1.SyllabusUpdated, actorID, v1.SyllabusUpdatedData{
		SyllabusID: change.SyllabusID,
		SchoolID:   change.SchoolID,
		Changes:    change.Changes,
	})
}

func (s *Service) publish(ctx context.Context, eventType v1.EventType, userID string, data interface{}) (*v1.Event, error) {
	event, err := s.publisher.Publish(ctx, eventType, data, eventbus.WithUserID(userID))
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", eventType, err)
	}
	return event, nil
}
