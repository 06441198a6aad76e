package academic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"github.com/xkorin-lab/xkorin/internal/contract"
	"github.com/xkorin-lab/xkorin/internal/core/storage/memory"
	"github.com/xkorin-lab/xkorin/internal/eventbus"
)

type recordingPublisher struct {
	mock.Mock
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType v1.EventType, data interface{}, opts ...eventbus.PublishOption) (*v1.Event, error) {
	args := p.Called(eventType, data)
	if e, ok := args.Get(0).(*v1.Event); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCreateSchool(t *testing.T) {
	pub := &recordingPublisher{}
	pub.On("Publish", v1.SchoolCreated, v1.SchoolCreatedData{SchoolID: "S1", Name: "Lycée Nord", OwnerID: "U9"}).
		Return(&v1.Event{ID: "evt-1", Type: v1.SchoolCreated}, nil).Once()

	event, err := NewService(pub).CreateSchool(context.Background(), School{ID: "S1", Name: "Lycée Nord", OwnerID: "U9"})
	require.NoError(t, err)
	require.Equal(t, "evt-1", event.ID)
	pub.AssertExpectations(t)
}

func TestCreateClass_ThroughContracts(t *testing.T) {
	events := memory.NewEventStore()
	bus := eventbus.NewBus(eventbus.Config{}, nil, nil)
	contracts := contract.NewRegistry(contract.EmbeddedSource(), false)
	svc := NewService(eventbus.NewPublisher(bus, events, contracts, eventbus.PublisherConfig{MaxChainDepth: 8}, nil))

	event, err := svc.CreateClass(context.Background(), Class{ID: "C1", Name: "Maths 3e", SchoolID: "S1", TeacherID: "T1"})
	require.NoError(t, err)
	require.Equal(t, v1.ClassCreated, event.Type)
	require.Equal(t, "T1", event.UserID)
	require.Equal(t, "Maths 3e", event.Data["className"])
	require.Equal(t, 1, bus.Stats().Normal)
}

func TestUpdateSyllabus(t *testing.T) {
	pub := &recordingPublisher{}
	pub.On("Publish", v1.SyllabusUpdated, v1.SyllabusUpdatedData{SyllabusID: "SY1", SchoolID: "S1", Changes: []string{"chapter-3"}}).
		Return(&v1.Event{ID: "evt-2"}, nil).Once()

	_, err := NewService(pub).UpdateSyllabus(context.Background(), "T1", SyllabusChange{SyllabusID: "SY1", SchoolID: "S1", Changes: []string{"chapter-3"}})
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestValidation(t *testing.T) {
	svc := NewService(&recordingPublisher{})
	ctx := context.Background()

	_, err := svc.CreateSchool(ctx, School{Name: "no id"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.CreateClass(ctx, Class{ID: "C1", Name: "no school"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.UpdateSyllabus(ctx, "T1", SyllabusChange{})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPublishFailureIsWrapped(t *testing.T) {
	pub := &recordingPublisher{}
	pub.On("Publish", v1.SchoolCreated, mock.Anything).Return(nil, eventbus.ErrPersistFailed).Once()

	_, err := NewService(pub).CreateSchool(context.Background(), School{ID: "S1", Name: "Lycée Nord"})
	require.ErrorIs(t, err, eventbus.ErrPersistFailed)
	require.ErrorContains(t, err, "publish SCHOOL_CREATED")
}
